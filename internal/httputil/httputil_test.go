package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/AdamBeresnev/tourney-engine/internal/bracket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_StatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		body   string
	}{
		{"not found", fmt.Errorf("%w: pool 42", bracket.ErrNotFound), http.StatusNotFound, "not found: pool 42"},
		{"validation", fmt.Errorf("%w: bracket size 6", bracket.ErrValidation), http.StatusBadRequest, "validation failed: bracket size 6"},
		{"conflict", fmt.Errorf("wrapped: %w", fmt.Errorf("%w: game completed", bracket.ErrConflict)), http.StatusConflict, "wrapped: conflict: game completed"},
		{"other", errors.New("disk on fire"), http.StatusInternalServerError, "Internal Server Error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			Error(rec, tt.err)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.body, body["error"])
		})
	}
}

func TestDecode(t *testing.T) {
	var dst struct {
		Name string `json:"name"`
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Pool A"}`))
	require.NoError(t, Decode(req, &dst))
	assert.Equal(t, "Pool A", dst.Name)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Pool A","extra":1}`))
	assert.Error(t, Decode(req, &dst))

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{`))
	assert.Error(t, Decode(req, &dst))
}

func TestJSON_NoBody(t *testing.T) {
	rec := httptest.NewRecorder()
	JSON(rec, http.StatusNoContent, nil)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
}
