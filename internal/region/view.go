// Package region computes where the map should fly for a country or other
// named region, and indexes the boundary polygons used for hover, click and
// search.
package region

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"

	"github.com/joeblew999/plat-gallery/internal/atlas"
)

const (
	// PointZoom is the zoom used when a region is a single point.
	PointZoom = 6.0
	// HighlightMaxZoom is the zoom from which boundaries stop highlighting.
	HighlightMaxZoom = 10.0

	tileSize  = 256.0
	maxLat    = 85.0511287798
	earthCirc = 2 * math.Pi * 6378137
)

// Limits bounds the zoom of a computed view.
type Limits struct {
	MinZoom float64 `koanf:"min_zoom" json:"minZoom"`
	MaxZoom float64 `koanf:"max_zoom" json:"maxZoom"`
	Snap    float64 `koanf:"zoom_snap" json:"zoomSnap"`
}

// DefaultLimits matches the map's zoom options.
func DefaultLimits() Limits {
	return Limits{MinZoom: 3, MaxZoom: 14, Snap: 1}
}

// Clamp restricts z to [MinZoom, MaxZoom].
func (l Limits) Clamp(z float64) float64 {
	return math.Max(l.MinZoom, math.Min(l.MaxZoom, z))
}

// Size is the map's size in CSS pixels.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// View is a fly-to target.
type View struct {
	Center atlas.LatLng `json:"center"`
	Zoom   float64      `json:"zoom"`
}

// FitZoom returns the largest zoom, snapped down to a multiple of snap, at
// which b fits in a map of the given size.
func FitZoom(b orb.Bound, size Size, snap float64) float64 {
	sw := pixel(b.Min)
	ne := pixel(b.Max)
	bw := ne[0] - sw[0]
	bh := sw[1] - ne[1]

	scale := math.Min(size.Width/bw, size.Height/bh)
	if math.IsNaN(scale) || math.IsInf(scale, 1) {
		return math.Inf(1)
	}
	zoom := math.Log2(scale)
	if snap > 0 {
		fine := snap / 100
		zoom = math.Round(zoom/fine) * fine
		zoom = math.Floor(zoom/snap) * snap
	}
	return zoom
}

// pixel projects p to Web Mercator pixel space at zoom 0.
func pixel(p orb.Point) [2]float64 {
	lat := math.Max(-maxLat, math.Min(maxLat, p.Lat()))
	m := project.WGS84.ToMercator(orb.Point{p.Lon(), lat})
	return [2]float64{
		(0.5 + m[0]/earthCirc) * tileSize,
		(0.5 - m[1]/earthCirc) * tileSize,
	}
}

// TargetView computes the view for a region's bounds. The bounds' centre and
// fitting zoom are adjusted by the override registered for name, the centre
// is wrapped and the zoom clamped to lim.
func TargetView(b orb.Bound, name string, size Size, overrides Overrides, lim Limits) View {
	center := atlas.FromPoint(b.Center())
	zoom := lim.Clamp(FitZoom(b, size, lim.Snap))

	if o, ok := overrides[name]; ok {
		if o.FixedLat != nil {
			center.Lat = *o.FixedLat
		}
		if o.FixedLng != nil {
			center.Lng = *o.FixedLng
		}
		if o.ZoomFactor > 0 {
			zoom *= o.ZoomFactor
		}
	}

	return View{Center: center.Wrap(), Zoom: lim.Clamp(zoom)}
}

// PointView is the view for a point region.
func PointView(p orb.Point, lim Limits) View {
	return View{Center: atlas.FromPoint(p).Wrap(), Zoom: lim.Clamp(PointZoom)}
}

// ShouldHighlight reports whether hovering a boundary highlights it.
func ShouldHighlight(name string, zoom float64, picking bool, zoomedInto string) bool {
	return !picking && name != zoomedInto && zoom < HighlightMaxZoom
}
