package httputils

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"browsekit/browsekit/utils/apperrors"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"validation", apperrors.Invalid("query", "required"), http.StatusBadRequest},
		{"wrapped validation", fmt.Errorf("search: %w", apperrors.Invalid("url", "bad")), http.StatusBadRequest},
		{"execution", &apperrors.ExecutionError{Op: "function:search", Err: errors.New("502")}, http.StatusBadGateway},
		{"timeout", &apperrors.ExecutionError{Op: "function:search", Err: fmt.Errorf("%w: %w", apperrors.ErrTimeout, context.DeadlineExceeded)}, http.StatusGatewayTimeout},
		{"config", apperrors.MissingCredential("BROWSERLESS_API_KEY"), http.StatusServiceUnavailable},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, StatusFor(tc.err))
		})
	}
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, http.StatusBadGateway, "Search failed", errors.New("upstream said no"))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"success":false,"error":"Search failed","message":"upstream said no"}`, rec.Body.String())
}

func TestDecodeJSON(t *testing.T) {
	var v struct {
		Query string `json:"query"`
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"query":"go","extra":1}`))
	require.NoError(t, DecodeJSON(httptest.NewRecorder(), req, &v))
	assert.Equal(t, "go", v.Query)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(``))
	assert.True(t, apperrors.IsValidation(DecodeJSON(httptest.NewRecorder(), req, &v)))

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"query":"a"}{"query":"b"}`))
	assert.True(t, apperrors.IsValidation(DecodeJSON(httptest.NewRecorder(), req, &v)))

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`not json`))
	assert.True(t, apperrors.IsValidation(DecodeJSON(httptest.NewRecorder(), req, &v)))
}
