// Package httpapi exposes the pipeline's trigger surface: a health probe and
// token-protected job routes intended for an external scheduler.
package httpapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/ballparklabs/diamondline/internal/config"
	"github.com/ballparklabs/diamondline/internal/platform/logging"
	"github.com/ballparklabs/diamondline/internal/usecase"
)

type Handler struct {
	pipeline             *usecase.PipelineService
	logger               *logging.Logger
	validator            *validator.Validate
	cleanupRetentionDays int
}

func NewHandler(
	pipeline *usecase.PipelineService,
	cfg config.Config,
	logger *logging.Logger,
) *Handler {
	if logger == nil {
		logger = logging.Default()
	}

	return &Handler{
		pipeline:             pipeline,
		logger:               logger,
		validator:            validator.New(),
		cleanupRetentionDays: cfg.CleanupRetentionDays,
	}
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Healthz")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}
