package layer

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/joeblew999/plat-gallery/internal/atlas"
	"github.com/joeblew999/plat-gallery/internal/geometry"
	"github.com/joeblew999/plat-gallery/internal/marker"
	"github.com/joeblew999/plat-gallery/internal/metrics"
)

// ClickGate decides whether marker clicks reach the entity callback.
type ClickGate interface {
	AcceptsMarkerClicks() bool
}

// Synchronizer rebuilds a marker layer from the entity list.
type Synchronizer struct {
	factory *marker.Factory
	gate    ClickGate
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewSynchronizer creates a synchronizer. gate may be nil, in which case
// every click is forwarded.
func NewSynchronizer(factory *marker.Factory, gate ClickGate, logger *slog.Logger, m *metrics.Metrics) *Synchronizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Synchronizer{
		factory: factory,
		gate:    gate,
		logger:  logger,
		metrics: m,
		now:     time.Now,
	}
}

// Sync clears l and adds a marker for every entity selected for the map's
// current viewport. It returns the number of markers added.
//
// Sync does nothing when a handle is missing or the map is not ready yet.
func (s *Synchronizer) Sync(m MapHandle, l Layer, entities []atlas.Entity, onClick func(atlas.Entity)) int {
	if s == nil {
		return 0
	}
	if s.factory == nil || m == nil || l == nil || !m.Ready() {
		s.metrics.IncSyncSkipped()
		return 0
	}
	start := s.now()

	l.Clear()
	if len(entities) == 0 {
		s.metrics.ObserveSync(0, s.now().Sub(start))
		return 0
	}

	v := m.Viewport()
	spec := geometry.Scale(v.Zoom)

	added := 0
	for _, e := range atlas.SelectVisible(entities, v) {
		d, err := s.build(e, spec)
		if err != nil {
			s.logger.Error("marker skipped", "entity", e.ID, "error", err)
			s.metrics.IncMarkerErrors()
			continue
		}
		l.Add(d, s.clickHandler(e, onClick))
		added++
	}

	s.metrics.ObserveSync(added, s.now().Sub(start))
	return added
}

func (s *Synchronizer) build(e atlas.Entity, spec geometry.RenderSpec) (d marker.Descriptor, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("build marker %q: %v", e.ID, r)
		}
	}()
	return s.factory.Build(e, spec)
}

func (s *Synchronizer) clickHandler(e atlas.Entity, onClick func(atlas.Entity)) func() {
	return func() {
		if onClick == nil {
			return
		}
		if s.gate != nil && !s.gate.AcceptsMarkerClicks() {
			return
		}
		onClick(e)
	}
}
