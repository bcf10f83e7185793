// Package gallery runs one map session per connected browser. A session owns
// the marker layer, the viewport handle, the interaction state machine and the
// update scheduler, and mutates them only from its own event loop. HTTP
// handlers reach the loop through the blocking methods on Session; results go
// back to the browser through a Surface.
package gallery

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/benbjohnson/clock"

	"github.com/joeblew999/plat-gallery/internal/atlas"
	"github.com/joeblew999/plat-gallery/internal/config"
	"github.com/joeblew999/plat-gallery/internal/interaction"
	"github.com/joeblew999/plat-gallery/internal/layer"
	"github.com/joeblew999/plat-gallery/internal/marker"
	"github.com/joeblew999/plat-gallery/internal/metrics"
	"github.com/joeblew999/plat-gallery/internal/region"
	"github.com/joeblew999/plat-gallery/internal/schedule"
	"github.com/joeblew999/plat-gallery/internal/service"
	"github.com/joeblew999/plat-gallery/internal/templates"
)

var (
	ErrClosed          = errors.New("session closed")
	ErrRunning         = errors.New("session already running")
	ErrUnknownMarker   = errors.New("no marker for that album on the map")
	ErrInvalidViewport = errors.New("invalid viewport")
)

// Albums is the album store a session reads and writes.
type Albums interface {
	Entities() []atlas.Entity
	Get(id string) (service.Album, bool)
	Create(a service.Album) (service.Album, error)
	Update(id string, a service.Album) (service.Album, error)
	Move(id string, p atlas.LatLng) (service.Album, error)
	Delete(id string) error
}

// Surface receives a session's output. Methods are only called from the
// session loop.
type Surface interface {
	Markers(descs []marker.Descriptor)
	FlyTo(v region.View)
	Panel(html string)
	Results(html string)
	Signals(signals map[string]any)
	// Error and Success set the panel's message line, clearing the other.
	Error(msg string)
	Success(msg string)
}

// Deps are the collaborators shared by all sessions.
type Deps struct {
	Albums   Albums
	Regions  *region.Index
	Factory  *marker.Factory
	Renderer *templates.Renderer
	Settings config.Settings
	Bus      *service.EventBus
	Clock    clock.Clock
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
}

// mapState is the session's view of the browser map.
type mapState struct {
	ready bool
	view  atlas.Viewport
	size  region.Size
}

func (m *mapState) Ready() bool              { return m.ready }
func (m *mapState) Viewport() atlas.Viewport { return m.view }

// Session is one browser's map. Its exported methods are safe for concurrent
// use.
type Session struct {
	id       string
	deps     Deps
	logger   *slog.Logger
	coord    *interaction.Coordinator
	layer    *layer.MarkerLayer
	sync     *layer.Synchronizer
	sched    *schedule.Scheduler
	view     mapState
	surface  Surface
	zoomedTo string

	calls chan func()
	done  chan struct{}

	startOnce sync.Once
}

// NewSession creates a session. It does nothing until Run is called.
func NewSession(id string, deps Deps) *Session {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Clock == nil {
		deps.Clock = clock.New()
	}
	if deps.Settings.Debounce <= 0 {
		deps.Settings.Debounce = schedule.DefaultWait
	}

	s := &Session{
		id:     id,
		deps:   deps,
		logger: deps.Logger.With("component", "gallery", "session", id),
		coord:  interaction.New(),
		layer:  layer.NewMarkerLayer(),
		view:   mapState{size: deps.Settings.ViewportFallback},
		calls:  make(chan func(), 64),
		done:   make(chan struct{}),
	}
	s.sync = layer.NewSynchronizer(deps.Factory, s.coord, s.logger, deps.Metrics)
	s.sched = schedule.NewScheduler(deps.Clock, deps.Settings.Debounce, s.view.Ready, s.recompute,
		schedule.WithDispatch(s.post),
		schedule.OnSuperseded(deps.Metrics.IncTriggersSuperseded),
	)
	s.coord.OnChange(s.modeChanged)
	return s
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Done is closed when the session loop has stopped.
func (s *Session) Done() <-chan struct{} { return s.done }

// Run drives the session until ctx is cancelled, writing to surf. A session
// runs at most once; afterwards it is torn down.
func (s *Session) Run(ctx context.Context, surf Surface) error {
	first := false
	s.startOnce.Do(func() { first = true })
	if !first {
		return ErrRunning
	}
	s.surface = surf

	var events chan service.Event
	if s.deps.Bus != nil {
		events = s.deps.Bus.Subscribe()
		defer s.deps.Bus.Unsubscribe(events)
	}

	s.deps.Metrics.SessionOpened()
	defer s.deps.Metrics.SessionClosed()
	defer s.teardown()

	s.logger.Debug("session started")
	s.surface.Signals(s.modeSignals())
	s.surface.Panel(s.render("panel-closed", nil))

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("session stopped", "reason", ctx.Err())
			return nil
		case fn := <-s.calls:
			fn()
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			s.handleEvent(ev)
		}
	}
}

func (s *Session) teardown() {
	s.sched.Close()
	s.layer.Clear()
	s.view.ready = false
	close(s.done)
}

// post queues fn on the loop. Used by the debouncer's timer.
func (s *Session) post(fn func()) {
	select {
	case s.calls <- fn:
	case <-s.done:
	}
}

// do runs fn on the loop and waits for its result.
func (s *Session) do(ctx context.Context, fn func() error) error {
	res := make(chan error, 1)
	select {
	case s.calls <- func() { res <- fn() }:
	case <-s.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-res:
		return err
	case <-s.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) handleEvent(ev service.Event) {
	switch ev.Resource {
	case service.ResourceAlbums:
		if ev.Action == service.ActionDeleted {
			s.coord.Forget(ev.ID)
		}
		s.sched.DataChanged()
	case service.ResourceCovers:
		s.sched.DataChanged()
	}
}

// recompute rebuilds the marker layer and publishes it.
func (s *Session) recompute() {
	if s.deps.Albums == nil {
		return
	}
	n := s.sync.Sync(&s.view, s.layer, s.deps.Albums.Entities(), s.openEntity)
	if !s.view.ready {
		return
	}
	s.surface.Markers(s.layer.Descriptors())
	s.logger.Debug("markers synced", "count", n, "zoom", s.view.view.Zoom)
}

func (s *Session) modeSignals() map[string]any {
	return map[string]any{
		"session":   s.id,
		"mode":      s.coord.Mode().Kind.String(),
		"cursor":    s.coord.Cursor(),
		"panelOpen": s.coord.PanelOpen(),
	}
}

// modeChanged keeps the panel and the mode signals in step with the
// coordinator.
func (s *Session) modeChanged(prev, next interaction.Mode) {
	s.logger.Debug("mode changed", "from", prev.String(), "to", next.String())

	signals := s.modeSignals()
	signals["error"] = ""
	if next.Kind == interaction.PickingLocation {
		signals["highlight"] = ""
	}

	if next.Kind != interaction.Editing {
		s.surface.Signals(signals)
		s.surface.Panel(s.render("panel-closed", nil))
		return
	}

	sub, _ := s.coord.Subject()
	signals["title"] = sub.Title
	signals["description"] = sub.Description
	signals["country"] = sub.Country
	signals["cover"] = sub.CoverRef
	s.surface.Signals(signals)
	s.surface.Panel(s.render("edit-panel", panelData{
		ID:          sub.ID,
		IsDraft:     sub.IsDraft(),
		HasLocation: !sub.Position().IsZero(),
		Lat:         sub.Lat,
		Lng:         sub.Lng,
	}))
}

type panelData struct {
	ID          string
	IsDraft     bool
	HasLocation bool
	Lat, Lng    float64
}

func (s *Session) render(name string, data any) string {
	if s.deps.Renderer == nil {
		return ""
	}
	html, err := s.deps.Renderer.Render(name, data)
	if err != nil {
		s.logger.Error("render failed", "template", name, "error", err)
		return ""
	}
	return html
}

// fail shows err in the panel's error line.
func (s *Session) fail(err error) {
	s.surface.Error(err.Error())
}

func (s *Session) succeed(msg string) {
	s.surface.Success(msg)
}
