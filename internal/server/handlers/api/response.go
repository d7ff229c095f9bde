package api

import (
	"errors"
	"net/http"

	"github.com/emnt/spacesync/internal/catalog"
	"github.com/emnt/spacesync/internal/settings"
	"github.com/emnt/spacesync/internal/storage"
	"github.com/gin-gonic/gin"
)

func AbortWithError(ctx *gin.Context, status int, code string, err error) {
	ctx.Abort()
	ctx.Error(err)
	ctx.PureJSON(status, APIError{
		Code:    code,
		Message: err.Error(),
	})
}

// AbortWithServiceError picks the status and code from the error's kind.
// fallback is the code used for errors with no specific mapping.
func AbortWithServiceError(ctx *gin.Context, err error, fallback string) {
	var verr *settings.ValidationError
	switch {
	case errors.As(err, &verr):
		AbortWithError(ctx, http.StatusBadRequest, CodeInvalidSettings, err)
	case errors.Is(err, storage.ErrNotConfigured):
		AbortWithError(ctx, http.StatusConflict, CodeNotConfigured, err)
	case errors.Is(err, catalog.ErrAssetNotFound):
		AbortWithError(ctx, http.StatusNotFound, CodeNotFound, err)
	case errors.Is(err, catalog.ErrAssetExists):
		AbortWithError(ctx, http.StatusConflict, CodeAssetExists, err)
	case errors.Is(err, catalog.ErrInvalidFile):
		AbortWithError(ctx, http.StatusBadRequest, CodeBadRequest, err)
	default:
		AbortWithError(ctx, http.StatusInternalServerError, fallback, err)
	}
}
