package settings

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/emnt/spacesync/internal/pathmap"
	"github.com/emnt/spacesync/internal/server/handlers/api"
	"github.com/emnt/spacesync/internal/settings"
	"github.com/emnt/spacesync/internal/sync"
	"github.com/gin-gonic/gin"
)

type Service interface {
	Load(ctx context.Context) (settings.Settings, error)
	Save(ctx context.Context, s settings.Settings) error
}

type SettingsResponse struct {
	Settings settings.Settings `json:"settings"`
	Complete bool              `json:"complete"`
}

type CheckResponse struct {
	Bucket string `json:"bucket"`
	Prefix string `json:"prefix"`
	Empty  bool   `json:"empty"`
}

type SettingsHandler struct {
	svc        Service
	storage    sync.StorageResolver
	uploadsDir string
}

func New(svc Service, storage sync.StorageResolver, uploadsDir string) *SettingsHandler {
	return &SettingsHandler{svc: svc, storage: storage, uploadsDir: uploadsDir}
}

func (h *SettingsHandler) Get(ctx *gin.Context) {
	s, err := h.svc.Load(ctx.Request.Context())
	if err != nil {
		api.AbortWithServiceError(ctx, err, api.CodeUnknownError)
		return
	}
	ctx.PureJSON(http.StatusOK, &SettingsResponse{Settings: s.Masked(), Complete: s.Complete()})
}

// Update saves the posted settings. Empty or masked credentials keep the stored ones.
func (h *SettingsHandler) Update(ctx *gin.Context) {
	var req settings.Settings
	if err := ctx.ShouldBindJSON(&req); err != nil {
		api.AbortWithError(ctx, http.StatusBadRequest, api.CodeBadRequest, fmt.Errorf("invalid request: %w", err))
		return
	}

	current, err := h.svc.Load(ctx.Request.Context())
	if err != nil {
		api.AbortWithServiceError(ctx, err, api.CodeUnknownError)
		return
	}
	if keepSecret(req.AccessKey) {
		req.AccessKey = current.AccessKey
	}
	if keepSecret(req.SecretKey) {
		req.SecretKey = current.SecretKey
	}

	if err := h.svc.Save(ctx.Request.Context(), req); err != nil {
		api.AbortWithServiceError(ctx, err, api.CodeUnknownError)
		return
	}
	h.Get(ctx)
}

// Check lists at most one key under the uploads prefix with the current settings.
func (h *SettingsHandler) Check(ctx *gin.Context) {
	store, s, err := h.storage.Resolve(ctx.Request.Context())
	if err != nil {
		api.AbortWithServiceError(ctx, err, api.CodeUnknownError)
		return
	}
	mapper, err := pathmap.New(h.uploadsDir, s.UseSubfolder, s.SubfolderName)
	if err != nil {
		api.AbortWithError(ctx, http.StatusBadRequest, api.CodeInvalidSettings, err)
		return
	}

	res, err := store.List(ctx.Request.Context(), mapper.Prefix(), "", 1)
	if err != nil {
		api.AbortWithError(ctx, http.StatusBadGateway, api.CodeNotConfigured, fmt.Errorf("list %s: %w", mapper.Prefix(), err))
		return
	}
	ctx.PureJSON(http.StatusOK, &CheckResponse{
		Bucket: store.Bucket(),
		Prefix: mapper.Prefix(),
		Empty:  len(res.Keys) == 0,
	})
}

func keepSecret(v string) bool {
	return v == "" || strings.Contains(v, "*")
}
