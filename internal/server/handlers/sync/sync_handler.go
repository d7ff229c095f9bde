package sync

import (
	"context"
	"net/http"

	"github.com/emnt/spacesync/internal/server/handlers/api"
	"github.com/emnt/spacesync/internal/sync"
	"github.com/gin-gonic/gin"
)

// Service is the operator surface of the sync orchestrator.
type Service interface {
	EnableSync(ctx context.Context) error
	DisableSync(ctx context.Context) (sync.DisableMode, error)
	CancelSync(ctx context.Context) error
	GetProgress(ctx context.Context) (*sync.Progress, error)
}

type DisableResponse struct {
	Mode     sync.DisableMode `json:"mode"`
	Progress *sync.Progress   `json:"progress"`
}

type SyncHandler struct {
	svc Service
}

func New(svc Service) *SyncHandler {
	return &SyncHandler{svc: svc}
}

func (h *SyncHandler) Enable(ctx *gin.Context) {
	if err := h.svc.EnableSync(ctx.Request.Context()); err != nil {
		api.AbortWithServiceError(ctx, err, api.CodeSyncFailed)
		return
	}
	h.Progress(ctx)
}

func (h *SyncHandler) Disable(ctx *gin.Context) {
	mode, err := h.svc.DisableSync(ctx.Request.Context())
	if err != nil {
		api.AbortWithServiceError(ctx, err, api.CodeSyncFailed)
		return
	}

	progress, err := h.svc.GetProgress(ctx.Request.Context())
	if err != nil {
		api.AbortWithServiceError(ctx, err, api.CodeUnknownError)
		return
	}
	ctx.PureJSON(http.StatusOK, &DisableResponse{Mode: mode, Progress: progress})
}

func (h *SyncHandler) Cancel(ctx *gin.Context) {
	if err := h.svc.CancelSync(ctx.Request.Context()); err != nil {
		api.AbortWithServiceError(ctx, err, api.CodeSyncFailed)
		return
	}
	h.Progress(ctx)
}

func (h *SyncHandler) Progress(ctx *gin.Context) {
	progress, err := h.svc.GetProgress(ctx.Request.Context())
	if err != nil {
		api.AbortWithServiceError(ctx, err, api.CodeUnknownError)
		return
	}
	ctx.PureJSON(http.StatusOK, progress)
}
