package assets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/emnt/spacesync/internal/catalog"
	"github.com/emnt/spacesync/internal/server/handlers/api"
	"github.com/gin-gonic/gin"
)

type Uploader interface {
	OnAssetStored(ctx context.Context, asset *catalog.MediaAsset) error
}

type URLResolver interface {
	ResolveAssetURL(ctx context.Context, asset *catalog.MediaAsset) (string, error)
}

type CreateRequest struct {
	File  string   `json:"file" binding:"required"`
	Sizes []string `json:"sizes"`
}

type URLResponse struct {
	ID  int64  `json:"id"`
	URL string `json:"url"`
}

type AssetsHandler struct {
	catalog  catalog.Catalog
	uploader Uploader
	urls     URLResolver
}

func New(cat catalog.Catalog, uploader Uploader, urls URLResolver) *AssetsHandler {
	return &AssetsHandler{catalog: cat, uploader: uploader, urls: urls}
}

// Create registers a stored asset and hands it to the uploader.
func (h *AssetsHandler) Create(ctx *gin.Context) {
	var req CreateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		api.AbortWithError(ctx, http.StatusBadRequest, api.CodeBadRequest, fmt.Errorf("invalid request: %w", err))
		return
	}

	asset := &catalog.MediaAsset{File: req.File, Sizes: req.Sizes}
	if err := h.catalog.Add(ctx.Request.Context(), asset); err != nil {
		api.AbortWithServiceError(ctx, err, api.CodeUnknownError)
		return
	}
	if err := h.uploader.OnAssetStored(ctx.Request.Context(), asset); err != nil {
		api.AbortWithServiceError(ctx, err, api.CodeSyncFailed)
		return
	}
	ctx.PureJSON(http.StatusCreated, asset)
}

func (h *AssetsHandler) Get(ctx *gin.Context) {
	asset, ok := h.lookup(ctx)
	if !ok {
		return
	}
	ctx.PureJSON(http.StatusOK, asset)
}

func (h *AssetsHandler) URL(ctx *gin.Context) {
	asset, ok := h.lookup(ctx)
	if !ok {
		return
	}
	url, err := h.urls.ResolveAssetURL(ctx.Request.Context(), asset)
	if err != nil {
		api.AbortWithServiceError(ctx, err, api.CodeUnknownError)
		return
	}
	ctx.PureJSON(http.StatusOK, &URLResponse{ID: asset.ID, URL: url})
}

func (h *AssetsHandler) lookup(ctx *gin.Context) (*catalog.MediaAsset, bool) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		api.AbortWithError(ctx, http.StatusBadRequest, api.CodeBadRequest, errors.New("invalid asset id"))
		return nil, false
	}
	asset, err := h.catalog.Get(ctx.Request.Context(), id)
	if err != nil {
		api.AbortWithServiceError(ctx, err, api.CodeUnknownError)
		return nil, false
	}
	return asset, true
}
