package users

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/jewelbid-backend/internal/notifications/notificationstest"
	"github.com/angelmondragon/jewelbid-backend/pkg/auth"
	"github.com/angelmondragon/jewelbid-backend/pkg/db"
	"github.com/angelmondragon/jewelbid-backend/pkg/db/dbtest"
	"github.com/angelmondragon/jewelbid-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/jewelbid-backend/pkg/errors"
)

func TestSellerApprovalWorkflow(t *testing.T) {
	conn := dbtest.New(t)
	rec := &notificationstest.Recorder{}
	svc, err := NewService(NewRepository(conn), db.Wrap(conn), rec)
	require.NoError(t, err)
	ctx := context.Background()

	buyer := dbtest.User(t, conn, enums.UserRoleBuyer)
	adminUser := dbtest.User(t, conn, enums.UserRoleAdmin)
	admin := auth.Identity{UserID: adminUser.ID, Role: adminUser.Role}

	requested, err := svc.RequestSellerAccess(ctx, buyer.ID)
	require.NoError(t, err)
	require.Equal(t, enums.SellerStatusPending, requested.SellerStatus)
	require.Equal(t, enums.UserRoleBuyer, requested.Role)

	again, err := svc.RequestSellerAccess(ctx, buyer.ID)
	require.NoError(t, err)
	require.Equal(t, enums.SellerStatusPending, again.SellerStatus)

	pending, err := svc.ListPendingSellers(ctx, admin)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	_, err = svc.VerifySeller(ctx, auth.Identity{UserID: buyer.ID, Role: buyer.Role}, buyer.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	verified, err := svc.VerifySeller(ctx, admin, buyer.ID)
	require.NoError(t, err)
	require.Equal(t, enums.UserRoleSellerVerified, verified.Role)
	require.Equal(t, enums.SellerStatusApproved, verified.SellerStatus)

	notices := rec.For(buyer.ID)
	require.Len(t, notices, 1)
	require.Equal(t, "Seller Verified", notices[0].Title)

	_, err = svc.VerifySeller(ctx, admin, buyer.ID)
	require.NoError(t, err)
	require.Len(t, rec.For(buyer.ID), 1)

	me, err := svc.Me(ctx, buyer.ID)
	require.NoError(t, err)
	require.Equal(t, enums.UserRoleSellerVerified, me.Role)

	_, err = svc.VerifySeller(ctx, admin, uuid.New())
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
