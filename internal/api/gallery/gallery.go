// Package gallery contains the Datastar SSE handlers behind the /gallery page.
//
// A browser opens one long-lived stream; the session it creates pushes marker
// sets, fly-to requests, panel fragments and signals down that stream. Every
// user action is a POST carrying the page signals, answered with 204 once the
// session has handled it.
package gallery

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-gallery/internal/api"
	"github.com/joeblew999/plat-gallery/internal/atlas"
	core "github.com/joeblew999/plat-gallery/internal/gallery"
	"github.com/joeblew999/plat-gallery/internal/humastar"
	"github.com/joeblew999/plat-gallery/internal/interaction"
	"github.com/joeblew999/plat-gallery/internal/marker"
	"github.com/joeblew999/plat-gallery/internal/region"
	"github.com/joeblew999/plat-gallery/internal/templates"
)

// Browser events and the elements the stream patches.
const (
	EventMarkers = "gallery-markers"
	EventFlyTo   = "gallery-fly-to"

	PanelSelector   = "#edit-panel"
	ResultsSelector = "#search-results"
)

// ErrMissingPoint rejects a map click without coordinates.
var ErrMissingPoint = errors.New("map click needs lat and lng")

// Handler serves the gallery stream and its actions.
type Handler struct {
	humastar.Handler
	registry *core.Registry
	logger   *slog.Logger
}

// NewHandler creates the gallery handler over registry. A nil logger uses
// slog.Default.
func NewHandler(registry *core.Registry, renderer *templates.Renderer, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		Handler:  humastar.Handler{Renderer: renderer},
		registry: registry,
		logger:   logger.With("component", "gallery-sse"),
	}
}

// RegisterRoutes registers the stream and every gallery action.
func (h *Handler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/gallery/stream", h.OpenStream,
		huma.OperationTags("gallery"),
		func(o *huma.Operation) {
			o.Summary = "Open a gallery session stream"
			o.Description = "Long-lived Datastar SSE stream. The `session` signal names the session the other gallery actions address."
		},
	)

	h.action(api, "/api/v1/gallery/viewport", "Report the map viewport", h.Viewport)
	h.action(api, "/api/v1/gallery/map/click", "Click the map", h.MapClick)
	h.action(api, "/api/v1/gallery/regions/hover", "Hover a country boundary", h.RegionHover)
	h.action(api, "/api/v1/gallery/regions/click", "Click a country boundary", h.RegionClick)
	h.action(api, "/api/v1/gallery/panel/new", "Open the panel on a new album", h.PanelNew)
	h.action(api, "/api/v1/gallery/panel/pick", "Pick the album location on the map", h.PanelPick)
	h.action(api, "/api/v1/gallery/panel/save", "Save the album in the panel", h.PanelSave)
	h.action(api, "/api/v1/gallery/panel/close", "Close the panel", h.PanelClose)
	h.action(api, "/api/v1/gallery/panel/delete", "Delete the album in the panel", h.PanelDelete)
	h.action(api, "/api/v1/gallery/search", "Search country boundaries", h.Search)
	h.action(api, "/api/v1/gallery/search/select", "Fly to a search result", h.SearchSelect)

	huma.Register(api, huma.Operation{
		OperationID:   "gallery-marker-click",
		Method:        http.MethodPost,
		Path:          "/api/v1/gallery/markers/{id}/click",
		Summary:       "Click an album marker",
		Tags:          []string{"gallery"},
		DefaultStatus: http.StatusNoContent,
	}, h.MarkerClick)
}

// action registers a signals-in, 204-out POST.
func (h *Handler) action(api huma.API, path, summary string, fn func(context.Context, *core.Session, humastar.Signals) error) {
	huma.Post(api, path, func(ctx context.Context, input *humastar.SignalsInput) (*struct{}, error) {
		signals, err := input.MustParse()
		if err != nil {
			return nil, err
		}
		sess, err := h.registry.Get(signals.String("session"))
		if err != nil {
			return nil, httpError(err)
		}
		if err := fn(ctx, sess, signals); err != nil {
			h.logger.Debug("gallery action failed", "path", path, "session", sess.ID(), "error", err)
			return nil, httpError(err)
		}
		return nil, nil
	},
		huma.OperationTags("gallery"),
		func(o *huma.Operation) {
			o.Summary = summary
			o.DefaultStatus = http.StatusNoContent
		},
	)
}

// OpenStream opens the session named by the `session` signal and runs it until
// the browser disconnects.
func (h *Handler) OpenStream(ctx context.Context, input *humastar.QuerySignalsInput) (*huma.StreamResponse, error) {
	signals, err := input.MustParse()
	if err != nil {
		return nil, err
	}
	sess, err := h.registry.Open(signals.String("session"))
	if err != nil {
		return nil, httpError(err)
	}

	return h.Handler.Stream(func(sse humastar.SSE) {
		defer h.registry.Close(sess)
		surf := &surface{sse: sse, logger: h.logger.With("session", sess.ID())}
		if err := sess.Run(ctx, surf); err != nil {
			h.logger.Warn("session ended with error", "session", sess.ID(), "error", err)
		}
	}), nil
}

// MarkerClickInput carries the clicked album id and the page signals.
type MarkerClickInput struct {
	ID      string `path:"id" doc:"Album id of the clicked marker"`
	RawBody []byte
}

// MarkerClick forwards a marker click. Clicks outside browsing mode are
// accepted and ignored.
func (h *Handler) MarkerClick(ctx context.Context, input *MarkerClickInput) (*struct{}, error) {
	signals, err := humastar.ParseSignals(input.RawBody)
	if err != nil {
		return nil, huma.Error400BadRequest("Invalid request data: " + err.Error())
	}
	sess, err := h.registry.Get(signals.String("session"))
	if err != nil {
		return nil, httpError(err)
	}
	if _, err := sess.ClickMarker(ctx, input.ID); err != nil {
		return nil, httpError(err)
	}
	return nil, nil
}

// Viewport reports the map bounds and pixel size after a move or zoom.
func (h *Handler) Viewport(ctx context.Context, sess *core.Session, sig humastar.Signals) error {
	v := atlas.Viewport{
		Zoom: sig.Float("zoom"),
		SW:   atlas.LatLng{Lat: sig.Float("south"), Lng: sig.Float("west")},
		NE:   atlas.LatLng{Lat: sig.Float("north"), Lng: sig.Float("east")},
	}
	size := region.Size{Width: float64(sig.Int("width")), Height: float64(sig.Int("height"))}
	return sess.ReportViewport(ctx, v, size)
}

// MapClick forwards a plain map click. Both lat and lng are required.
func (h *Handler) MapClick(ctx context.Context, sess *core.Session, sig humastar.Signals) error {
	if !sig.Has("lat") || !sig.Has("lng") {
		return ErrMissingPoint
	}
	_, err := sess.ClickMap(ctx, atlas.LatLng{Lat: sig.Float("lat"), Lng: sig.Float("lng")})
	return err
}

// RegionHover highlights the hovered boundary; an empty region clears it.
func (h *Handler) RegionHover(ctx context.Context, sess *core.Session, sig humastar.Signals) error {
	return sess.HoverRegion(ctx, sig.String("region"))
}

// RegionClick flies to a clicked boundary.
func (h *Handler) RegionClick(ctx context.Context, sess *core.Session, sig humastar.Signals) error {
	return sess.ClickRegion(ctx, sig.String("region"))
}

// PanelNew opens the panel on a new album.
func (h *Handler) PanelNew(ctx context.Context, sess *core.Session, _ humastar.Signals) error {
	return sess.NewAlbum(ctx)
}

// PanelPick hides the panel until the next map click sets the location.
func (h *Handler) PanelPick(ctx context.Context, sess *core.Session, sig humastar.Signals) error {
	return sess.PickLocation(ctx, form(sig))
}

// PanelSave stores the album in the panel.
func (h *Handler) PanelSave(ctx context.Context, sess *core.Session, sig humastar.Signals) error {
	return sess.Save(ctx, form(sig))
}

// PanelClose discards the panel.
func (h *Handler) PanelClose(ctx context.Context, sess *core.Session, _ humastar.Signals) error {
	return sess.ClosePanel(ctx)
}

// PanelDelete removes the album in the panel.
func (h *Handler) PanelDelete(ctx context.Context, sess *core.Session, _ humastar.Signals) error {
	return sess.Delete(ctx)
}

// Search patches the results for the `query` signal.
func (h *Handler) Search(ctx context.Context, sess *core.Session, sig humastar.Signals) error {
	return sess.Search(ctx, sig.String("query"))
}

// SearchSelect flies to the result named by the `region` signal.
func (h *Handler) SearchSelect(ctx context.Context, sess *core.Session, sig humastar.Signals) error {
	return sess.SelectRegion(ctx, sig.String("region"))
}

// form reads the panel fields bound in the edit-panel fragment.
func form(sig humastar.Signals) interaction.FormSnapshot {
	return interaction.FormSnapshot{
		Title:       sig.String("title"),
		Description: sig.String("description"),
		CoverKey:    sig.String("cover"),
		Country:     sig.String("country"),
	}
}

func httpError(err error) error {
	switch {
	case errors.Is(err, core.ErrInvalidID):
		return huma.Error400BadRequest(err.Error())
	case errors.Is(err, core.ErrNoSession), errors.Is(err, core.ErrUnknownMarker):
		return huma.Error404NotFound(err.Error())
	case errors.Is(err, core.ErrSessionExists):
		return huma.Error409Conflict(err.Error())
	case errors.Is(err, core.ErrClosed):
		return huma.Error410Gone(err.Error())
	case errors.Is(err, core.ErrInvalidViewport), errors.Is(err, ErrMissingPoint):
		return huma.Error422UnprocessableEntity(err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return huma.Error503ServiceUnavailable("session busy", err)
	}
	return api.HTTPError(err)
}

// surface writes session output to the Datastar stream.
type surface struct {
	sse    humastar.SSE
	logger *slog.Logger
}

func (s *surface) Markers(descs []marker.Descriptor) {
	if descs == nil {
		descs = []marker.Descriptor{}
	}
	s.check("markers", s.sse.Event(EventMarkers, map[string]any{"markers": descs}))
}

func (s *surface) FlyTo(v region.View) {
	s.check("fly-to", s.sse.Event(EventFlyTo, v))
}

func (s *surface) Panel(html string) {
	if html == "" {
		return
	}
	s.check("panel", s.sse.Replace(html, PanelSelector))
}

func (s *surface) Results(html string) {
	s.check("results", s.sse.Patch(html, ResultsSelector))
}

func (s *surface) Signals(signals map[string]any) {
	s.check("signals", s.sse.Signals(signals))
}

func (s *surface) Error(msg string) {
	s.check("error", s.sse.Error(msg))
}

func (s *surface) Success(msg string) {
	s.check("success", s.sse.Success(msg))
}

func (s *surface) check(what string, err error) {
	if err != nil {
		s.logger.Debug("stream write failed", "what", what, "error", err)
	}
}
