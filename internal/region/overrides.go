package region

// Override adjusts the computed view for regions whose bounding box gives a
// poor framing, such as countries spanning the antimeridian.
type Override struct {
	FixedLat   *float64 `koanf:"fixed_lat" json:"fixedLat,omitempty"`
	FixedLng   *float64 `koanf:"fixed_lng" json:"fixedLng,omitempty"`
	ZoomFactor float64  `koanf:"zoom_factor" json:"zoomFactor,omitempty"`
}

// Overrides maps region names to their override.
type Overrides map[string]Override

// DefaultOverrides returns the built-in adjustments.
func DefaultOverrides() Overrides {
	return Overrides{
		"Russia":                   {FixedLng: ptr(95), ZoomFactor: 1.3},
		"United States of America": {FixedLat: ptr(39.8283), FixedLng: ptr(-98.5795), ZoomFactor: 1.7},
		"Canada":                   {FixedLat: ptr(60.1304), FixedLng: ptr(-105.3468), ZoomFactor: 1.6},
		"Greenland":                {FixedLat: ptr(72.5), FixedLng: ptr(-40), ZoomFactor: 1.5},
	}
}

func ptr(v float64) *float64 { return &v }
