package interaction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-gallery/internal/atlas"
)

func existing() Subject {
	return Subject{Entity: atlas.Entity{ID: "album_1", Lat: 41.9, Lng: 12.5, Title: "Rome", CoverRef: "covers/rome"}}
}

func TestStartsBrowsing(t *testing.T) {
	c := New()

	assert.Equal(t, Mode{Kind: Browsing}, c.Mode())
	assert.True(t, c.AcceptsMarkerClicks())
	assert.True(t, c.BoundaryInteractive())
	assert.Empty(t, c.Cursor())
	_, ok := c.Subject()
	assert.False(t, ok)
}

func TestEditPickAndReturn(t *testing.T) {
	c := New()
	var transitions []string
	c.OnChange(func(prev, next Mode) { transitions = append(transitions, prev.String()+">"+next.String()) })

	require.NoError(t, c.Open(existing()))
	assert.Equal(t, Mode{Kind: Editing, EntityID: "album_1"}, c.Mode())
	assert.False(t, c.AcceptsMarkerClicks())
	assert.True(t, c.PanelOpen())

	require.NoError(t, c.StartPick(FormSnapshot{Title: "Roma", CoverKey: "covers/rome"}))
	assert.Equal(t, PickingLocation, c.Mode().Kind)
	assert.Equal(t, CrosshairCursor, c.Cursor())
	assert.False(t, c.BoundaryInteractive())
	assert.False(t, c.PanelOpen())

	s, ok := c.MapClick(atlas.LatLng{Lat: 43.7, Lng: 11.2})
	require.True(t, ok)
	assert.Equal(t, "Roma", s.Title, "form snapshot survives picking")
	assert.Equal(t, 43.7, s.Lat)
	assert.Equal(t, 11.2, s.Lng)
	assert.Equal(t, Mode{Kind: Editing, EntityID: "album_1"}, c.Mode())
	assert.Empty(t, c.Cursor())

	assert.Equal(t, []string{
		"browsing>editing(album_1)",
		"editing(album_1)>picking(album_1)",
		"picking(album_1)>editing(album_1)",
	}, transitions)
}

func TestMarkerOpenRejectedWhilePicking(t *testing.T) {
	c := New()
	require.NoError(t, c.Open(existing()))
	require.NoError(t, c.StartPick(FormSnapshot{}))

	err := c.Open(Subject{Entity: atlas.Entity{ID: "album_2"}})
	assert.ErrorIs(t, err, ErrPicking)
	assert.Equal(t, PickingLocation, c.Mode().Kind)
	assert.Equal(t, "album_1", c.Mode().EntityID)
}

func TestOpenWhileEditingIsBusy(t *testing.T) {
	c := New()
	require.NoError(t, c.Open(existing()))

	assert.ErrorIs(t, c.Open(Subject{Entity: atlas.Entity{ID: "album_2"}}), ErrBusy)
}

func TestMapClickIgnoredOutsidePicking(t *testing.T) {
	c := New()
	_, ok := c.MapClick(atlas.LatLng{Lat: 1, Lng: 1})
	assert.False(t, ok)

	require.NoError(t, c.Open(existing()))
	_, ok = c.MapClick(atlas.LatLng{Lat: 1, Lng: 1})
	assert.False(t, ok)

	s, _ := c.Subject()
	assert.Equal(t, 41.9, s.Lat, "clicks outside picking never mutate data")
}

func TestMapClickWrapsLongitude(t *testing.T) {
	c := New()
	require.NoError(t, c.Open(existing()))
	require.NoError(t, c.StartPick(FormSnapshot{}))

	s, ok := c.MapClick(atlas.LatLng{Lat: 10, Lng: 370})
	require.True(t, ok)
	assert.InDelta(t, 10, s.Lng, 1e-9)
}

func TestDraftSaveRequiresLocation(t *testing.T) {
	c := New()
	d, err := c.StartNew()
	require.NoError(t, err)
	assert.True(t, d.IsDraft())
	assert.Equal(t, 0.0, d.Lat)
	assert.Equal(t, 0.0, d.Lng)

	_, err = c.Save(FormSnapshot{Title: "Trip", CoverKey: "covers/1"})
	assert.ErrorIs(t, err, ErrLocationRequired)
	assert.Equal(t, Mode{Kind: Editing, EntityID: atlas.DraftID}, c.Mode(), "draft panel stays open")
}

func TestDraftSaveRequiresCover(t *testing.T) {
	c := New()
	_, err := c.StartNew()
	require.NoError(t, err)
	require.NoError(t, c.StartPick(FormSnapshot{Title: "Trip"}))
	_, ok := c.MapClick(atlas.LatLng{Lat: 5, Lng: 5})
	require.True(t, ok)

	_, err = c.Save(FormSnapshot{Title: "Trip"})
	assert.ErrorIs(t, err, ErrCoverRequired)
}

func TestDraftSaveAfterPick(t *testing.T) {
	c := New()
	_, err := c.StartNew()
	require.NoError(t, err)
	require.NoError(t, c.StartPick(FormSnapshot{Title: "Trip", CoverKey: "covers/1"}))
	_, ok := c.MapClick(atlas.LatLng{Lat: 5, Lng: 6})
	require.True(t, ok)

	s, err := c.Save(FormSnapshot{Title: "Trip", Description: "Summer", CoverKey: "covers/1"})
	require.NoError(t, err)
	assert.Equal(t, atlas.DraftID, s.ID)
	assert.Equal(t, "Summer", s.Description)
	assert.Equal(t, atlas.LatLng{Lat: 5, Lng: 6}, s.Position())

	c.Close()
	assert.Equal(t, Mode{Kind: Browsing}, c.Mode())
}

func TestExistingSaveAtOriginIsAllowed(t *testing.T) {
	c := New()
	require.NoError(t, c.Open(Subject{Entity: atlas.Entity{ID: "album_0"}}))

	_, err := c.Save(FormSnapshot{Title: "Null Island"})
	assert.NoError(t, err)
}

func TestSaveWhilePickingRejected(t *testing.T) {
	c := New()
	require.NoError(t, c.Open(existing()))
	require.NoError(t, c.StartPick(FormSnapshot{}))

	_, err := c.Save(FormSnapshot{})
	assert.ErrorIs(t, err, ErrPicking)
}

func TestStartNewRejectedWhilePicking(t *testing.T) {
	c := New()
	require.NoError(t, c.Open(existing()))
	require.NoError(t, c.StartPick(FormSnapshot{}))

	_, err := c.StartNew()
	assert.ErrorIs(t, err, ErrPicking)
}

func TestCloseWhilePickingDraftClearsPicking(t *testing.T) {
	c := New()
	_, err := c.StartNew()
	require.NoError(t, err)
	require.NoError(t, c.StartPick(FormSnapshot{}))

	c.Close()
	assert.Equal(t, Mode{Kind: Browsing}, c.Mode())
	assert.Empty(t, c.Cursor())
	assert.True(t, c.AcceptsMarkerClicks())
}

func TestDelete(t *testing.T) {
	c := New()
	_, err := c.Delete()
	assert.ErrorIs(t, err, ErrNotEditing)

	_, err = c.StartNew()
	require.NoError(t, err)
	_, err = c.Delete()
	assert.ErrorIs(t, err, ErrDraftNotSaved)

	c.Close()
	require.NoError(t, c.Open(existing()))
	id, err := c.Delete()
	require.NoError(t, err)
	assert.Equal(t, "album_1", id)
}

func TestForget(t *testing.T) {
	c := New()
	require.NoError(t, c.Open(existing()))

	c.Forget("other")
	assert.Equal(t, Editing, c.Mode().Kind)

	c.Forget("album_1")
	assert.Equal(t, Browsing, c.Mode().Kind)
}
