package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/emnt/spacesync/internal/catalog"
	"github.com/emnt/spacesync/internal/settings"
	"github.com/emnt/spacesync/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAbortWithServiceError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", &settings.ValidationError{Field: "region", Reason: "unknown"}, http.StatusBadRequest, CodeInvalidSettings},
		{"not configured", fmt.Errorf("resolve: %w", storage.ErrNotConfigured), http.StatusConflict, CodeNotConfigured},
		{"not found", catalog.ErrAssetNotFound, http.StatusNotFound, CodeNotFound},
		{"duplicate asset", fmt.Errorf("%w: a.jpg", catalog.ErrAssetExists), http.StatusConflict, CodeAssetExists},
		{"bad asset path", fmt.Errorf("%w: ../x", catalog.ErrInvalidFile), http.StatusBadRequest, CodeBadRequest},
		{"other", errors.New("boom"), http.StatusInternalServerError, CodeSyncFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			AbortWithServiceError(c, tt.err, CodeSyncFailed)

			assert.True(t, c.IsAborted())
			assert.Equal(t, tt.status, w.Code)
			var body APIError
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.code, body.Code)
			assert.Equal(t, tt.err.Error(), body.Message)
		})
	}
}
