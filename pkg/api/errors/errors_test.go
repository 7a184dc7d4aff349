package errors

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/propertydeck/leadsync/pkg/domain"
	"github.com/propertydeck/leadsync/pkg/models"
)

// newContext creates an echo.Context backed by an httptest.NewRecorder for the
// given HTTP method and path. It returns both the context and the recorder so
// callers can inspect the written response.
func newContext(method, path string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return c, rec
}

// parseBody is a small helper that unmarshals the recorder body into an
// ErrorResponse, failing the test on any JSON error.
func parseBody(t *testing.T, rec *httptest.ResponseRecorder) models.ErrorResponse {
	t.Helper()
	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestValidationError_SurfacesReason(t *testing.T) {
	c, rec := newContext(http.MethodPost, "/api/v1/leads/bulk-action")
	err := ValidationError(c, domain.NewValidationError("no leads selected"))

	assert.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := parseBody(t, rec)
	assert.Equal(t, "validation_error", resp.Error)
	assert.Equal(t, "no leads selected", resp.Message)
}

func TestForbiddenError_DistinctFromValidation(t *testing.T) {
	c, rec := newContext(http.MethodPatch, "/api/v1/leads/l1")
	_ = ForbiddenError(c, domain.NewForbiddenError(""))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	resp := parseBody(t, rec)
	assert.Equal(t, "forbidden", resp.Error)
	assert.Equal(t, "Permission denied", resp.Message)
}

func TestInternalError_HidesDetails(t *testing.T) {
	c, rec := newContext(http.MethodGet, "/api/v1/leads")
	_ = InternalError(c, assertableError("dial tcp 10.1.2.3:443: i/o timeout"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "dial tcp")
}

func TestFromDomain_MapsEveryCode(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{domain.NewNotFoundError("lead"), http.StatusNotFound},
		{domain.NewValidationError("bad"), http.StatusBadRequest},
		{domain.NewForbiddenError(""), http.StatusForbidden},
		{domain.NewConflictError("busy"), http.StatusConflict},
		{domain.NewUpstreamError("store down", nil), http.StatusBadGateway},
		{assertableError("plain"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		c, rec := newContext(http.MethodGet, "/api/v1/leads")
		require.NoError(t, FromDomain(c, tc.err))
		assert.Equal(t, tc.code, rec.Code)
	}
}

type assertableError string

func (e assertableError) Error() string { return string(e) }
