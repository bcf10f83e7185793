// Package api defines the Huma REST routes: albums, covers, marker
// previews, regions and the map settings the browser boots from.
package api

import (
	"context"
	"errors"
	"log/slog"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-gallery/internal/config"
	"github.com/joeblew999/plat-gallery/internal/interaction"
	"github.com/joeblew999/plat-gallery/internal/marker"
	"github.com/joeblew999/plat-gallery/internal/metrics"
	"github.com/joeblew999/plat-gallery/internal/region"
	"github.com/joeblew999/plat-gallery/internal/service"
)

// Version is reported by /health and /api/v1/info.
const Version = "0.2.0"

// Services holds the dependencies for API handlers.
type Services struct {
	Albums   *service.AlbumService
	Covers   service.CoverStore
	Regions  *region.Index
	Factory  *marker.Factory
	Settings config.Settings
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
}

type HealthBody struct {
	Status  string `json:"status" doc:"Health status" example:"ok"`
	Version string `json:"version" doc:"API version" example:"0.2.0"`
}

type MessageBody struct {
	Message string `json:"message" doc:"Result message"`
}

// APIHandler holds all REST API handlers. Methods named Register* are
// auto-discovered by huma.AutoRegister.
type APIHandler struct {
	svc *Services
}

func NewAPIHandler(svc *Services) *APIHandler {
	if svc.Logger == nil {
		svc.Logger = slog.Default()
	}
	return &APIHandler{svc: svc}
}

// RegisterHealth registers health check routes.
func (h *APIHandler) RegisterHealth(api huma.API) {
	huma.Get(api, "/health", h.GetHealth, huma.OperationTags("health"))
}

// RegisterMap registers the map settings route.
func (h *APIHandler) RegisterMap(api huma.API) {
	huma.Get(api, "/api/v1/map/settings", h.GetMapSettings, huma.OperationTags("map"))
}

func (h *APIHandler) GetHealth(ctx context.Context, input *struct{}) (*struct{ Body HealthBody }, error) {
	return &struct{ Body HealthBody }{Body: HealthBody{Status: "ok", Version: Version}}, nil
}

func (h *APIHandler) GetMapSettings(ctx context.Context, input *struct{}) (*struct{ Body config.Settings }, error) {
	return &struct{ Body config.Settings }{Body: h.svc.Settings}, nil
}

// HTTPError maps domain errors onto Huma status errors.
func HTTPError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, service.ErrNotFound), errors.Is(err, region.ErrNotFound):
		return huma.Error404NotFound(err.Error())
	case errors.Is(err, service.ErrExists):
		return huma.Error409Conflict(err.Error())
	case errors.Is(err, service.ErrDraftID),
		errors.Is(err, service.ErrInvalidLocation),
		errors.Is(err, service.ErrInvalidKey),
		errors.Is(err, region.ErrNoBounds),
		errors.Is(err, interaction.ErrLocationRequired),
		errors.Is(err, interaction.ErrCoverRequired),
		errors.Is(err, interaction.ErrPicking),
		errors.Is(err, interaction.ErrBusy),
		errors.Is(err, interaction.ErrNotEditing),
		errors.Is(err, interaction.ErrDraftNotSaved):
		return huma.Error422UnprocessableEntity(err.Error())
	case errors.Is(err, service.ErrUnreadable):
		return huma.Error503ServiceUnavailable(err.Error())
	default:
		return huma.Error500InternalServerError("internal error", err)
	}
}
