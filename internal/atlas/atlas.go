// Package atlas holds the map-facing value types shared by the marker engine:
// coordinates, viewports and the entities pinned to the map.
package atlas

import (
	"math"

	"github.com/paulmach/orb"
)

// DraftID marks an entity that has not been saved yet. It is never
// persisted and never matches a real entity.
const DraftID = "__draft__"

// LatLng is a WGS84 coordinate in degrees.
type LatLng struct {
	Lat float64 `json:"lat" doc:"Latitude in degrees" minimum:"-90" maximum:"90"`
	Lng float64 `json:"lng" doc:"Longitude in degrees"`
}

// Wrap returns the coordinate with its longitude wrapped into [-180, 180].
// 180 itself is kept as is.
func (p LatLng) Wrap() LatLng {
	if p.Lng >= -180 && p.Lng <= 180 {
		return p
	}
	lng := math.Mod(math.Mod(p.Lng+180, 360)+360, 360) - 180
	return LatLng{Lat: p.Lat, Lng: lng}
}

// Point returns the coordinate as an orb point (lng, lat order).
func (p LatLng) Point() orb.Point {
	return orb.Point{p.Lng, p.Lat}
}

// IsZero reports whether the coordinate is exactly 0,0, which the gallery
// treats as "no location chosen".
func (p LatLng) IsZero() bool {
	return p.Lat == 0 && p.Lng == 0
}

// FromPoint converts an orb point to a LatLng.
func FromPoint(pt orb.Point) LatLng {
	return LatLng{Lat: pt.Lat(), Lng: pt.Lon()}
}

// Viewport is the visible map area at a zoom level, as last reported by
// the browser.
type Viewport struct {
	Zoom float64 `json:"zoom" doc:"Current zoom level"`
	SW   LatLng  `json:"sw" doc:"South-west corner"`
	NE   LatLng  `json:"ne" doc:"North-east corner"`
}

// Valid reports whether the viewport has finite values and a non-inverted
// latitude range.
func (v Viewport) Valid() bool {
	for _, f := range []float64{v.Zoom, v.SW.Lat, v.SW.Lng, v.NE.Lat, v.NE.Lng} {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return v.SW.Lat <= v.NE.Lat
}

// Contains reports whether p lies inside the viewport. Longitude is compared
// modulo 360 from the west edge, so viewports that cross the antimeridian
// (or sit on a neighbouring world copy) still contain wrapped points.
func (v Viewport) Contains(p LatLng) bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) {
		return false
	}
	if p.Lat < v.SW.Lat || p.Lat > v.NE.Lat {
		return false
	}

	west := v.SW.Lng
	span := v.NE.Lng - west
	if span < 0 {
		span += 360
	}
	if span >= 360 {
		return true
	}

	off := math.Mod(p.Lng-west, 360)
	if off < 0 {
		off += 360
	}
	return off <= span
}

// Bound returns the viewport as an orb bound.
func (v Viewport) Bound() orb.Bound {
	return orb.Bound{Min: v.SW.Point(), Max: v.NE.Point()}
}

// Entity is a point of interest pinned to the map.
type Entity struct {
	ID       string  `json:"id"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	Title    string  `json:"title,omitempty"`
	CoverRef string  `json:"coverRef,omitempty"`
	Country  string  `json:"country,omitempty"`
}

// Position returns the entity's coordinate.
func (e Entity) Position() LatLng {
	return LatLng{Lat: e.Lat, Lng: e.Lng}
}

// IsDraft reports whether the entity is the unsaved draft.
func (e Entity) IsDraft() bool {
	return e.ID == DraftID
}
