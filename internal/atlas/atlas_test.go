package atlas

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func world(zoom float64) Viewport {
	return Viewport{Zoom: zoom, SW: LatLng{-85, -180}, NE: LatLng{85, 180}}
}

func TestWrap(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0, 0},
		{180, 180},
		{-180, -180},
		{190, -170},
		{-190, 170},
		{540, -180},
		{725, 5},
	}
	for _, tt := range tests {
		got := LatLng{Lat: 10, Lng: tt.in}.Wrap()
		assert.InDelta(t, tt.want, got.Lng, 1e-9, "wrap(%v)", tt.in)
		assert.Equal(t, 10.0, got.Lat)
	}
}

func TestViewportContains(t *testing.T) {
	v := Viewport{SW: LatLng{-10, -10}, NE: LatLng{10, 10}}

	assert.True(t, v.Contains(LatLng{0, 0}))
	assert.True(t, v.Contains(LatLng{10, 10}), "edges are inclusive")
	assert.True(t, v.Contains(LatLng{-10, -10}))
	assert.False(t, v.Contains(LatLng{11, 0}))
	assert.False(t, v.Contains(LatLng{0, -20}))
	assert.True(t, v.Contains(LatLng{0, 350}), "350 wraps to -10")
	assert.False(t, v.Contains(LatLng{0, 340}))
	assert.False(t, v.Contains(LatLng{math.NaN(), 0}))
}

func TestViewportContainsAcrossSeam(t *testing.T) {
	jumped := Viewport{SW: LatLng{-20, 170}, NE: LatLng{20, 200}}
	assert.True(t, jumped.Contains(LatLng{0, -175}))
	assert.True(t, jumped.Contains(LatLng{0, 175}))
	assert.False(t, jumped.Contains(LatLng{0, -150}))

	crossing := Viewport{SW: LatLng{-20, 170}, NE: LatLng{20, -170}}
	assert.True(t, crossing.Contains(LatLng{0, 179}))
	assert.True(t, crossing.Contains(LatLng{0, -179}))
	assert.False(t, crossing.Contains(LatLng{0, 0}))

	wide := Viewport{SW: LatLng{-80, -200}, NE: LatLng{80, 200}}
	assert.True(t, wide.Contains(LatLng{0, 90}))
}

func TestViewportValid(t *testing.T) {
	assert.True(t, world(3).Valid())
	assert.False(t, Viewport{SW: LatLng{10, 0}, NE: LatLng{-10, 0}}.Valid())
	assert.False(t, Viewport{Zoom: math.NaN()}.Valid())
}

func TestSelectVisibleLowZoomOnePerCountry(t *testing.T) {
	entities := []Entity{
		{ID: "a", Lat: 48.8, Lng: 2.3, Country: "France"},
		{ID: "b", Lat: 43.3, Lng: 5.4, Country: "France"},
		{ID: "c", Lat: 52.5, Lng: 13.4, Country: "Germany"},
		{ID: "d", Lat: 10, Lng: 10},
		{ID: "e", Lat: 11, Lng: 11},
	}

	got := SelectVisible(entities, world(5))

	assert.Equal(t, []string{"a", "c", "d", "e"}, ids(got))
}

func TestSelectVisibleRepresentativeMustBeInBounds(t *testing.T) {
	entities := []Entity{
		{ID: "out", Lat: -33.9, Lng: 151.2, Country: "Australia"},
		{ID: "in", Lat: -12.4, Lng: 130.8, Country: "Australia"},
	}
	v := Viewport{Zoom: 4, SW: LatLng{-20, 120}, NE: LatLng{0, 140}}

	assert.Equal(t, []string{"in"}, ids(SelectVisible(entities, v)))
}

func TestSelectVisibleHighZoomKeepsAllInBounds(t *testing.T) {
	entities := []Entity{
		{ID: "a", Lat: 48.8, Lng: 2.3, Country: "France"},
		{ID: "b", Lat: 48.9, Lng: 2.4, Country: "France"},
		{ID: "far", Lat: -33.9, Lng: 151.2, Country: "Australia"},
	}
	v := Viewport{Zoom: 10, SW: LatLng{48, 2}, NE: LatLng{49, 3}}

	assert.Equal(t, []string{"a", "b"}, ids(SelectVisible(entities, v)))
}

func TestSelectVisibleSkipsDraft(t *testing.T) {
	entities := []Entity{{ID: DraftID, Lat: 1, Lng: 1}, {ID: "a", Lat: 2, Lng: 2}}

	assert.Equal(t, []string{"a"}, ids(SelectVisible(entities, world(12))))
}

func TestSelectVisibleEmpty(t *testing.T) {
	assert.Empty(t, SelectVisible(nil, world(3)))
}

func ids(es []Entity) []string {
	out := make([]string, len(es))
	for i, e := range es {
		out[i] = e.ID
	}
	return out
}
