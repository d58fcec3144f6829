package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/jewelbid-backend/pkg/errors"
)

type listingBody struct {
	Title    string          `json:"title" validate:"required,max=10"`
	Price    decimal.Decimal `json:"price" validate:"gt=0"`
	Currency string          `json:"currency,omitempty" validate:"omitempty,currency"`
}

func decode(t *testing.T, body string) (listingBody, error) {
	t.Helper()
	var dest listingBody
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	err := DecodeJSONBody(httptest.NewRecorder(), req, &dest)
	return dest, err
}

func validationDetails(t *testing.T, err error) map[string]string {
	t.Helper()
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	details, _ := typed.Details().(map[string]string)
	return details
}

func TestDecodeJSONBodyAcceptsValidListing(t *testing.T) {
	got, err := decode(t, `{"title":"Ring","price":"120.50","currency":"eur"}`)
	require.NoError(t, err)
	assert.True(t, got.Price.Equal(decimal.RequireFromString("120.5")))
}

func TestDecodeJSONBodyReportsFieldsByJSONName(t *testing.T) {
	_, err := decode(t, `{"title":"","price":"0","currency":"XYZ"}`)
	details := validationDetails(t, err)
	assert.Equal(t, "is required", details["title"])
	assert.Equal(t, "must be greater than 0", details["price"])
	assert.Equal(t, "must be a supported currency code", details["currency"])
}

func TestDecodeJSONBodyRejectsMalformedInput(t *testing.T) {
	cases := map[string]string{
		"empty":         ``,
		"unknown field": `{"title":"Ring","price":"1","extra":true}`,
		"trailing":      `{"title":"Ring","price":"1"}{"title":"x"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := decode(t, body)
			require.Error(t, err)
			assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
		})
	}
}

func TestParseUUIDParam(t *testing.T) {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("itemId", "not-a-uuid")
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	_, err := ParseUUIDParam(req, "itemId")
	require.Error(t, err)

	_, err = ParseUUIDParam(req, "dealId")
	require.Error(t, err)
}

func TestParseQueryInt(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=40&page=x", nil)

	v, err := ParseQueryInt(req, "limit", 25, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, 40, v)

	v, err = ParseQueryInt(req, "missing", 25, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, 25, v)

	_, err = ParseQueryInt(req, "page", 1, 1, 10)
	assert.Error(t, err)

	_, err = ParseQueryInt(req, "limit", 25, 1, 30)
	assert.Error(t, err)
}

func TestSanitizeStringKeepsRunesWhole(t *testing.T) {
	assert.Equal(t, "bague", SanitizeString("  bague  ", 10))
	assert.Equal(t, "émer", SanitizeString("émeraude", 4))
	assert.Equal(t, "ring", SanitizeString(" ring ", 0))
}
