package gallery

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-gallery/internal/atlas"
	"github.com/joeblew999/plat-gallery/internal/config"
	"github.com/joeblew999/plat-gallery/internal/interaction"
	"github.com/joeblew999/plat-gallery/internal/marker"
	"github.com/joeblew999/plat-gallery/internal/region"
	"github.com/joeblew999/plat-gallery/internal/service"
	"github.com/joeblew999/plat-gallery/internal/templates"
)

type fakeSurface struct {
	mu      sync.Mutex
	markers [][]marker.Descriptor
	flights []region.View
	panels  []string
	results []string
	signals map[string]any
}

func newFakeSurface() *fakeSurface {
	return &fakeSurface{signals: map[string]any{}}
}

func (f *fakeSurface) Markers(d []marker.Descriptor) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markers = append(f.markers, d)
}

func (f *fakeSurface) FlyTo(v region.View) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flights = append(f.flights, v)
}

func (f *fakeSurface) Panel(html string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.panels = append(f.panels, html)
}

func (f *fakeSurface) Results(html string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results = append(f.results, html)
}

func (f *fakeSurface) Signals(s map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for k, v := range s {
		f.signals[k] = v
	}
}

func (f *fakeSurface) Error(msg string) {
	f.Signals(map[string]any{"error": msg, "success": ""})
}

func (f *fakeSurface) Success(msg string) {
	f.Signals(map[string]any{"error": "", "success": msg})
}

func (f *fakeSurface) markerCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.markers)
}

func (f *fakeSurface) lastMarkers() []marker.Descriptor {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.markers) == 0 {
		return nil
	}
	return f.markers[len(f.markers)-1]
}

func (f *fakeSurface) signal(key string) any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.signals[key]
}

func (f *fakeSurface) lastPanel() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.panels) == 0 {
		return ""
	}
	return f.panels[len(f.panels)-1]
}

func (f *fakeSurface) flightCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.flights)
}

func (f *fakeSurface) lastResults() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.results) == 0 {
		return ""
	}
	return f.results[len(f.results)-1]
}

type harness struct {
	sess   *Session
	surf   *fakeSurface
	clock  *clock.Mock
	albums *service.AlbumService
}

func boundaries() *region.Index {
	fc := geojson.NewFeatureCollection()
	for name, b := range map[string]orb.Bound{
		"France": {Min: orb.Point{-5, 42}, Max: orb.Point{8, 51}},
		"Italy":  {Min: orb.Point{6.6, 36.6}, Max: orb.Point{18.5, 47.1}},
	} {
		f := geojson.NewFeature(b.ToPolygon())
		f.Properties["name"] = name
		fc.Append(f)
	}
	ix := region.NewIndex()
	ix.Load(fc, nil)
	return ix
}

// newHarness builds a session without running it, so albums added before
// run do not race the first viewport report.
func newHarness(t *testing.T) *harness {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	bus := service.NewEventBus()
	albums := service.NewAlbumService("", bus)
	renderer := templates.MustDefault()
	mock := clock.NewMock()

	deps := Deps{
		Albums:   albums,
		Regions:  boundaries(),
		Factory:  marker.NewFactory(renderer, nil, marker.WithLogger(logger)),
		Renderer: renderer,
		Settings: config.Defaults(),
		Bus:      bus,
		Clock:    mock,
		Logger:   logger,
	}

	return &harness{
		sess:   NewSession(NewSessionID(), deps),
		surf:   newFakeSurface(),
		clock:  mock,
		albums: albums,
	}
}

func (h *harness) run(t *testing.T) *harness {
	t.Helper()
	runCtx, cancel := context.WithCancel(context.Background())
	go h.sess.Run(runCtx, h.surf)
	t.Cleanup(func() {
		cancel()
		<-h.sess.Done()
	})
	return h
}

func start(t *testing.T) *harness {
	return newHarness(t).run(t)
}

func (h *harness) add(t *testing.T, title string, lat, lng float64, country string) service.Album {
	t.Helper()
	a, err := h.albums.Create(service.AlbumInput{Title: title, Lat: lat, Lng: lng, Country: country, CoverKey: "x.jpg"}.Apply(service.Album{}))
	require.NoError(t, err)
	return a
}

var (
	world = atlas.Viewport{Zoom: 3, SW: atlas.LatLng{Lat: -80, Lng: -180}, NE: atlas.LatLng{Lat: 80, Lng: 180}}
	italy = atlas.Viewport{Zoom: 10, SW: atlas.LatLng{Lat: 40, Lng: 10}, NE: atlas.LatLng{Lat: 46, Lng: 16}}
	ctx   = context.Background()
)

func TestSessionRepresentativeFiltering(t *testing.T) {
	h := newHarness(t)
	h.add(t, "Rome", 41.9, 12.5, "Italy")
	h.add(t, "Florence", 43.77, 11.25, "Italy")
	h.add(t, "Venice", 45.44, 12.33, "Italy")
	h.run(t)

	require.NoError(t, h.sess.ReportViewport(ctx, world, region.Size{}))
	assert.Len(t, h.surf.lastMarkers(), 1, "first report renders at once")

	require.NoError(t, h.sess.ReportViewport(ctx, italy, region.Size{}))
	assert.Equal(t, 1, h.surf.markerCalls(), "viewport changes wait for the debounce")

	h.clock.Add(250 * time.Millisecond)
	require.Eventually(t, func() bool { return len(h.surf.lastMarkers()) == 3 }, time.Second, 5*time.Millisecond)
}

func TestSessionDebouncesViewportBursts(t *testing.T) {
	h := newHarness(t)
	h.add(t, "Rome", 41.9, 12.5, "Italy")
	h.run(t)
	require.NoError(t, h.sess.ReportViewport(ctx, world, region.Size{}))
	require.Equal(t, 1, h.surf.markerCalls())

	for i := 0; i < 5; i++ {
		v := italy
		v.Zoom = 6 + float64(i)
		require.NoError(t, h.sess.ReportViewport(ctx, v, region.Size{}))
		h.clock.Add(50 * time.Millisecond)
	}
	h.clock.Add(250 * time.Millisecond)

	require.Eventually(t, func() bool { return h.surf.markerCalls() == 2 }, time.Second, 5*time.Millisecond)
	require.Never(t, func() bool { return h.surf.markerCalls() > 2 }, 50*time.Millisecond, 5*time.Millisecond)
}

func TestSessionRejectsInvalidViewport(t *testing.T) {
	h := start(t)
	bad := atlas.Viewport{Zoom: 3, SW: atlas.LatLng{Lat: 10}, NE: atlas.LatLng{Lat: -10}}
	assert.ErrorIs(t, h.sess.ReportViewport(ctx, bad, region.Size{}), ErrInvalidViewport)
}

func TestSessionAddNewFlow(t *testing.T) {
	h := start(t)
	require.NoError(t, h.sess.ReportViewport(ctx, world, region.Size{}))

	require.NoError(t, h.sess.NewAlbum(ctx))
	m, _ := h.sess.Mode(ctx)
	assert.Equal(t, interaction.Mode{Kind: interaction.Editing, EntityID: atlas.DraftID}, m)
	assert.Contains(t, h.surf.lastPanel(), "New album")

	form := interaction.FormSnapshot{Title: "Rome", CoverKey: "rome.jpg", Country: "Italy"}
	err := h.sess.Save(ctx, form)
	assert.ErrorIs(t, err, interaction.ErrLocationRequired)
	assert.Empty(t, h.albums.List(), "nothing stored without a location")
	m, _ = h.sess.Mode(ctx)
	assert.Equal(t, interaction.Editing, m.Kind, "draft panel stays open")
	assert.Equal(t, interaction.ErrLocationRequired.Error(), h.surf.signal("error"))

	require.NoError(t, h.sess.PickLocation(ctx, form))
	assert.Equal(t, interaction.CrosshairCursor, h.surf.signal("cursor"))
	assert.Equal(t, "picking", h.surf.signal("mode"))

	picked, err := h.sess.ClickMap(ctx, atlas.LatLng{Lat: 41.9, Lng: 372.5})
	require.NoError(t, err)
	assert.True(t, picked)
	m, _ = h.sess.Mode(ctx)
	assert.Equal(t, interaction.Mode{Kind: interaction.Editing, EntityID: atlas.DraftID}, m)
	assert.Equal(t, "Rome", h.surf.signal("title"), "form values survive the pick")
	assert.Contains(t, h.surf.lastPanel(), "41.90000, 12.50000")

	require.NoError(t, h.sess.Save(ctx, form))
	list := h.albums.List()
	require.Len(t, list, 1)
	assert.NotEqual(t, atlas.DraftID, list[0].ID)
	assert.InDelta(t, 12.5, list[0].Lng, 1e-9)

	m, _ = h.sess.Mode(ctx)
	assert.Equal(t, interaction.Browsing, m.Kind)
	require.Eventually(t, func() bool { return len(h.surf.lastMarkers()) == 1 }, time.Second, 5*time.Millisecond)
}

func TestSessionMarkerClickGating(t *testing.T) {
	h := newHarness(t)
	a := h.add(t, "Rome", 41.9, 12.5, "Italy")
	h.run(t)
	require.NoError(t, h.sess.ReportViewport(ctx, italy, region.Size{}))

	opened, err := h.sess.ClickMarker(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, opened)
	assert.Equal(t, "Rome", h.surf.signal("title"))

	require.NoError(t, h.sess.PickLocation(ctx, interaction.FormSnapshot{Title: "Rome", CoverKey: "x.jpg"}))
	opened, err = h.sess.ClickMarker(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, opened, "marker clicks are ignored while picking")

	m, _ := h.sess.Mode(ctx)
	assert.Equal(t, interaction.PickingLocation, m.Kind)

	picked, err := h.sess.ClickMap(ctx, atlas.LatLng{Lat: 45.44, Lng: 12.33})
	require.NoError(t, err)
	assert.True(t, picked)
	got, _ := h.albums.Get(a.ID)
	assert.Equal(t, atlas.LatLng{Lat: 45.44, Lng: 12.33}, got.Position())

	_, err = h.sess.ClickMarker(ctx, "album_missing")
	assert.ErrorIs(t, err, ErrUnknownMarker)
}

func TestSessionMapClickWhileBrowsing(t *testing.T) {
	h := newHarness(t)
	a := h.add(t, "Rome", 41.9, 12.5, "Italy")
	h.run(t)
	require.NoError(t, h.sess.ReportViewport(ctx, italy, region.Size{}))

	picked, err := h.sess.ClickMap(ctx, atlas.LatLng{Lat: 1, Lng: 1})
	require.NoError(t, err)
	assert.False(t, picked)
	got, _ := h.albums.Get(a.ID)
	assert.Equal(t, 41.9, got.Lat)
}

func TestSessionDelete(t *testing.T) {
	h := newHarness(t)
	a := h.add(t, "Rome", 41.9, 12.5, "Italy")
	h.run(t)
	require.NoError(t, h.sess.ReportViewport(ctx, italy, region.Size{}))

	require.NoError(t, h.sess.NewAlbum(ctx))
	assert.ErrorIs(t, h.sess.Delete(ctx), interaction.ErrDraftNotSaved)
	require.NoError(t, h.sess.ClosePanel(ctx))

	_, err := h.sess.ClickMarker(ctx, a.ID)
	require.NoError(t, err)
	require.NoError(t, h.sess.Delete(ctx))

	_, ok := h.albums.Get(a.ID)
	assert.False(t, ok)
	m, _ := h.sess.Mode(ctx)
	assert.Equal(t, interaction.Browsing, m.Kind)
	require.Eventually(t, func() bool { return len(h.surf.lastMarkers()) == 0 }, time.Second, 5*time.Millisecond)
}

func TestSessionForgetsAlbumDeletedElsewhere(t *testing.T) {
	h := newHarness(t)
	a := h.add(t, "Rome", 41.9, 12.5, "Italy")
	h.run(t)
	require.NoError(t, h.sess.ReportViewport(ctx, italy, region.Size{}))
	_, err := h.sess.ClickMarker(ctx, a.ID)
	require.NoError(t, err)

	require.NoError(t, h.albums.Delete(a.ID))

	require.Eventually(t, func() bool {
		m, _ := h.sess.Mode(ctx)
		return m.Kind == interaction.Browsing
	}, time.Second, 5*time.Millisecond)
}

func TestSessionRegions(t *testing.T) {
	h := start(t)
	require.NoError(t, h.sess.ReportViewport(ctx, world, region.Size{Width: 1024, Height: 768}))

	require.NoError(t, h.sess.HoverRegion(ctx, "France"))
	assert.Equal(t, "France", h.surf.signal("highlight"))

	require.NoError(t, h.sess.ClickRegion(ctx, "France"))
	assert.Equal(t, 1, h.surf.flightCount())

	require.NoError(t, h.sess.HoverRegion(ctx, "France"))
	assert.Equal(t, "", h.surf.signal("highlight"), "the zoomed country is not highlighted")

	assert.ErrorIs(t, h.sess.ClickRegion(ctx, "Atlantis"), region.ErrNotFound)

	require.NoError(t, h.sess.NewAlbum(ctx))
	require.NoError(t, h.sess.PickLocation(ctx, interaction.FormSnapshot{}))

	require.NoError(t, h.sess.HoverRegion(ctx, "Italy"))
	assert.Equal(t, "", h.surf.signal("highlight"), "no highlight while picking")
	require.NoError(t, h.sess.ClickRegion(ctx, "Italy"))
	assert.Equal(t, 1, h.surf.flightCount(), "boundary clicks do not fly while picking")
}

func TestSessionSearch(t *testing.T) {
	h := start(t)

	require.NoError(t, h.sess.Search(ctx, "fra"))
	assert.Contains(t, h.surf.lastResults(), "France")

	require.NoError(t, h.sess.Search(ctx, "zzz"))
	assert.Contains(t, h.surf.lastResults(), "No matches")

	require.NoError(t, h.sess.SelectRegion(ctx, "Italy"))
	assert.Equal(t, 1, h.surf.flightCount())
	assert.Equal(t, "", h.surf.lastResults())
}

func TestSessionClosed(t *testing.T) {
	s := NewSession(NewSessionID(), Deps{})
	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(runCtx, newFakeSurface()) }()

	_, err := s.Mode(ctx)
	require.NoError(t, err)

	cancel()
	require.NoError(t, <-done)
	<-s.Done()

	_, err = s.Mode(ctx)
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, s.Run(context.Background(), newFakeSurface()), ErrRunning)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(Deps{})

	_, err := r.Open("not-a-uuid")
	assert.ErrorIs(t, err, ErrInvalidID)

	id := NewSessionID()
	s, err := r.Open(id)
	require.NoError(t, err)
	_, err = r.Open(id)
	assert.ErrorIs(t, err, ErrSessionExists)

	got, err := r.Get(id)
	require.NoError(t, err)
	assert.Same(t, s, got)
	assert.Equal(t, 1, r.Len())

	r.Close(s)
	_, err = r.Get(id)
	assert.ErrorIs(t, err, ErrNoSession)
	assert.Equal(t, 0, r.Len())
}
