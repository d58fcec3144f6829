package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/jewelbid-backend/pkg/auth"
	"github.com/angelmondragon/jewelbid-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/jewelbid-backend/pkg/errors"
)

type fakeRateStore struct {
	mu     sync.Mutex
	counts map[string]int64
	err    error
}

func newFakeRateStore() *fakeRateStore {
	return &fakeRateStore{counts: map[string]int64{}}
}

func (f *fakeRateStore) FixedWindowAllow(_ context.Context, scope string, limit int64, _ time.Duration) (bool, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, 0, f.err
	}
	f.counts[scope]++
	return f.counts[scope] <= limit, f.counts[scope], nil
}

func loginRequest(email, remote string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"email":"`+email+`","password":"secret"}`))
	req.RemoteAddr = remote
	return req
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	return payload.Error.Code
}

func TestAuthRateLimitKeepsBodyReadable(t *testing.T) {
	policy := AuthRateLimitPolicy{Name: "login", Window: time.Minute, IPLimit: 2, EmailLimit: 2}
	handler := AuthRateLimit(policy, newFakeRateStore(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Contains(t, string(body), `"email":"tester@example.com"`)
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, loginRequest("tester@example.com", "1.2.3.4:5678"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthRateLimitEmailLimitIgnoresCaseAndAddress(t *testing.T) {
	policy := AuthRateLimitPolicy{Name: "login", Window: time.Minute, EmailLimit: 2}
	handler := AuthRateLimit(policy, newFakeRateStore(), nil)(okHandler())

	emails := []string{"Blocked@example.com", "blocked@example.com ", "BLOCKED@example.com"}
	for i, email := range emails {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, loginRequest(email, fmt.Sprintf("10.0.0.%d:4000", i+1)))
		if i < 2 {
			assert.Equal(t, http.StatusOK, rec.Code)
			continue
		}
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, "60", rec.Header().Get("Retry-After"))
		assert.Equal(t, string(pkgerrors.CodeRateLimit), errorCode(t, rec))
	}
}

func TestAuthRateLimitIPLimitUsesForwardedFor(t *testing.T) {
	policy := AuthRateLimitPolicy{Name: "register", Window: time.Minute, IPLimit: 1}
	handler := AuthRateLimit(policy, newFakeRateStore(), nil)(okHandler())

	send := func(email string) int {
		req := loginRequest(email, "127.0.0.1:1")
		req.Header.Set("X-Forwarded-For", "5.6.7.8, 10.0.0.1")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}
	assert.Equal(t, http.StatusOK, send("a@example.com"))
	assert.Equal(t, http.StatusTooManyRequests, send("b@example.com"))
}

func TestAuthRateLimitFailsClosed(t *testing.T) {
	store := newFakeRateStore()
	store.err = errors.New("redis down")
	policy := AuthRateLimitPolicy{Name: "login", Window: time.Minute, IPLimit: 5}
	handler := AuthRateLimit(policy, store, nil)(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, loginRequest("a@example.com", "1.1.1.1:1"))
	assert.Equal(t, string(pkgerrors.CodeDependency), errorCode(t, rec))
}

func TestBidRateLimitPerUser(t *testing.T) {
	handler := BidRateLimit(newFakeRateStore(), 2, time.Minute, nil)(okHandler())
	first := auth.Identity{UserID: uuid.New(), Role: enums.UserRoleBuyer}
	second := auth.Identity{UserID: uuid.New(), Role: enums.UserRoleBuyer}

	send := func(identity auth.Identity) int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/items/x/bids", nil)
		req = req.WithContext(WithIdentity(req.Context(), identity))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, send(first))
	assert.Equal(t, http.StatusOK, send(first))
	assert.Equal(t, http.StatusTooManyRequests, send(first))
	assert.Equal(t, http.StatusOK, send(second), "other users keep their own budget")
}

func TestBidRateLimitFailsOpen(t *testing.T) {
	store := newFakeRateStore()
	store.err = errors.New("redis down")
	handler := BidRateLimit(store, 1, time.Minute, nil)(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/items/x/bids", nil)
	req = req.WithContext(WithIdentity(req.Context(), auth.Identity{UserID: uuid.New(), Role: enums.UserRoleBuyer}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
