package layer

import (
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-gallery/internal/atlas"
	"github.com/joeblew999/plat-gallery/internal/marker"
	"github.com/joeblew999/plat-gallery/internal/metrics"
	"github.com/joeblew999/plat-gallery/internal/templates"
)

type fakeMap struct {
	ready bool
	view  atlas.Viewport
}

func (m *fakeMap) Ready() bool              { return m.ready }
func (m *fakeMap) Viewport() atlas.Viewport { return m.view }

type gate bool

func (g *gate) AcceptsMarkerClicks() bool { return bool(*g) }

// recordingLayer counts writes so tests can assert a no-op.
type recordingLayer struct {
	MarkerLayer
	clears int
	adds   int
}

func (l *recordingLayer) Clear() {
	l.clears++
	l.MarkerLayer.Clear()
}

func (l *recordingLayer) Add(d marker.Descriptor, onClick func()) {
	l.adds++
	l.MarkerLayer.Add(d, onClick)
}

func newSync(t *testing.T, g ClickGate) *Synchronizer {
	t.Helper()
	r, err := templates.Default()
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewSynchronizer(marker.NewFactory(r, nil, marker.WithLogger(logger)), g, logger, nil)
}

func italy() []atlas.Entity {
	return []atlas.Entity{
		{ID: "rome", Lat: 41.9, Lng: 12.5, Title: "Rome", Country: "Italy"},
		{ID: "milan", Lat: 45.5, Lng: 9.2, Title: "Milan", Country: "Italy"},
		{ID: "naples", Lat: 40.9, Lng: 14.3, Title: "Naples", Country: "Italy"},
	}
}

func viewAt(zoom float64) atlas.Viewport {
	return atlas.Viewport{Zoom: zoom, SW: atlas.LatLng{Lat: 35, Lng: 5}, NE: atlas.LatLng{Lat: 48, Lng: 20}}
}

func TestSyncCountryRepresentativesByZoom(t *testing.T) {
	s := newSync(t, nil)
	l := NewMarkerLayer()

	n := s.Sync(&fakeMap{ready: true, view: viewAt(3)}, l, italy(), nil)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, l.Len())
	assert.Equal(t, "rome", l.Descriptors()[0].EntityID)

	n = s.Sync(&fakeMap{ready: true, view: viewAt(10)}, l, italy(), nil)
	assert.Equal(t, 3, n)
	assert.Equal(t, 3, l.Len(), "layer is cleared before re-adding")
}

func TestSyncNotReadyIsNoOp(t *testing.T) {
	s := newSync(t, nil)
	l := &recordingLayer{}

	assert.Equal(t, 0, s.Sync(&fakeMap{ready: false, view: viewAt(10)}, l, italy(), nil))
	assert.Equal(t, 0, l.clears)
	assert.Equal(t, 0, l.adds)

	assert.Equal(t, 0, s.Sync(nil, l, italy(), nil))
	assert.Equal(t, 0, s.Sync(&fakeMap{ready: true}, nil, italy(), nil))
	assert.Equal(t, 0, l.clears)
}

func TestSyncEmptyListClearsLayer(t *testing.T) {
	s := newSync(t, nil)
	l := &recordingLayer{}
	m := &fakeMap{ready: true, view: viewAt(10)}

	s.Sync(m, l, italy(), nil)
	require.Equal(t, 3, l.Len())

	assert.Equal(t, 0, s.Sync(m, l, nil, nil))
	assert.Equal(t, 0, l.Len())
	assert.Equal(t, 2, l.clears)
}

func TestSyncClickForwardingFollowsGate(t *testing.T) {
	open := gate(true)
	s := newSync(t, &open)
	l := NewMarkerLayer()

	var clicked []string
	s.Sync(&fakeMap{ready: true, view: viewAt(10)}, l, italy(), func(e atlas.Entity) {
		clicked = append(clicked, e.ID)
	})

	assert.True(t, l.Click("milan"))
	assert.Equal(t, []string{"milan"}, clicked)

	open = false
	assert.True(t, l.Click("rome"), "marker exists even when clicks are gated")
	assert.Equal(t, []string{"milan"}, clicked)

	assert.False(t, l.Click("nowhere"))
}

func TestSyncSkipsEntitiesOutOfView(t *testing.T) {
	s := newSync(t, nil)
	l := NewMarkerLayer()
	entities := append(italy(), atlas.Entity{ID: "sydney", Lat: -33.9, Lng: 151.2, Country: "Australia"})

	s.Sync(&fakeMap{ready: true, view: viewAt(12)}, l, entities, nil)

	for _, d := range l.Descriptors() {
		assert.NotEqual(t, "sydney", d.EntityID)
	}
}

func TestSyncContainsBadEntity(t *testing.T) {
	r, err := templates.Default()
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	resolver := marker.ResolverFunc(func(key string) (string, bool) {
		if key == "broken.jpg" {
			panic("blob store exploded")
		}
		return "/api/v1/covers/" + key, true
	})

	m := metrics.NewMetrics()
	reg := prometheus.NewRegistry()
	require.NoError(t, m.Register(reg))

	s := NewSynchronizer(marker.NewFactory(r, resolver, marker.WithLogger(logger)), nil, logger, m)
	entities := italy()
	entities[1].CoverRef = "broken.jpg"
	entities[2].CoverRef = "naples.jpg"

	l := NewMarkerLayer()
	n := s.Sync(&fakeMap{ready: true, view: viewAt(10)}, l, entities, nil)

	assert.Equal(t, 2, n)
	var ids []string
	for _, d := range l.Descriptors() {
		ids = append(ids, d.EntityID)
	}
	assert.ElementsMatch(t, []string{"rome", "naples"}, ids)

	families, err := reg.Gather()
	require.NoError(t, err)
	var errs float64
	for _, f := range families {
		if f.GetName() == metrics.MetricMarkerErrors {
			errs = f.GetMetric()[0].GetCounter().GetValue()
		}
	}
	assert.Equal(t, 1.0, errs)
}
