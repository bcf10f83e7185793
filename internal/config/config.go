// Package config loads the map settings: tile source, boundaries, starting
// view, zoom limits, debounce and the per-country fly-to overrides. Defaults
// are compiled in and an optional YAML file overlays them.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/joeblew999/plat-gallery/internal/region"
	"github.com/joeblew999/plat-gallery/internal/schedule"
)

// Default values.
const (
	DefaultTileURL         = "https://{s}.basemaps.cartocdn.com/light_all/{z}/{x}/{y}{r}.png"
	DefaultTileAttribution = `&copy; <a href="https://www.openstreetmap.org/copyright">OpenStreetMap</a> contributors &copy; <a href="https://carto.com/attributions">CARTO</a>`
	DefaultInitialZoom     = 3.2
	DefaultCenterLat       = 20.0
	DefaultCenterLng       = 0.0
)

// Bounds is a lat/lng box that limits panning.
type Bounds struct {
	South float64 `koanf:"south" json:"south"`
	West  float64 `koanf:"west" json:"west"`
	North float64 `koanf:"north" json:"north"`
	East  float64 `koanf:"east" json:"east"`
}

// Settings holds the map configuration shared by the server and the browser.
type Settings struct {
	TileURL          string           `koanf:"tile_url" json:"tileUrl"`
	TileAttribution  string           `koanf:"tile_attribution" json:"tileAttribution"`
	BoundariesURL    string           `koanf:"boundaries_url" json:"boundariesUrl"`
	CenterLat        float64          `koanf:"center_lat" json:"centerLat"`
	CenterLng        float64          `koanf:"center_lng" json:"centerLng"`
	InitialZoom      float64          `koanf:"initial_zoom" json:"initialZoom"`
	Zoom             region.Limits    `koanf:"zoom" json:"zoom"`
	MaxBounds        Bounds           `koanf:"max_bounds" json:"maxBounds"`
	Debounce         time.Duration    `koanf:"debounce" json:"-"`
	ViewportFallback region.Size      `koanf:"viewport_fallback" json:"-"`
	Overrides        region.Overrides `koanf:"overrides" json:"-"`
}

// DebounceMillis returns the debounce period in milliseconds.
func (s Settings) DebounceMillis() int64 {
	return s.Debounce.Milliseconds()
}

// Defaults returns the built-in settings.
func Defaults() Settings {
	return Settings{
		TileURL:          DefaultTileURL,
		TileAttribution:  DefaultTileAttribution,
		BoundariesURL:    region.DefaultBoundariesURL,
		CenterLat:        DefaultCenterLat,
		CenterLng:        DefaultCenterLng,
		InitialZoom:      DefaultInitialZoom,
		Zoom:             region.DefaultLimits(),
		MaxBounds:        Bounds{South: -75, West: -170, North: 82, East: 190},
		Debounce:         schedule.DefaultWait,
		ViewportFallback: region.Size{Width: 1280, Height: 800},
		Overrides:        region.DefaultOverrides(),
	}
}

// Load returns the defaults overlaid with the YAML file at path, if any.
// Overrides in the file are merged with the built-in ones.
func Load(path string) (Settings, error) {
	s := Defaults()
	if path == "" {
		return s, s.Validate()
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return Settings{}, fmt.Errorf("failed to load settings file %s: %w", path, err)
	}
	if err := k.Unmarshal("", &s); err != nil {
		return Settings{}, fmt.Errorf("failed to decode settings file %s: %w", path, err)
	}
	return s, s.Validate()
}

// Validation errors.
var (
	ErrTileURL     = errors.New("tile_url must contain {z}, {x} and {y}")
	ErrZoomRange   = errors.New("zoom.min_zoom must be below zoom.max_zoom")
	ErrZoomSnap    = errors.New("zoom.zoom_snap must be positive")
	ErrInitialZoom = errors.New("initial_zoom must lie within the zoom limits")
	ErrCenter      = errors.New("center_lat must lie within [-90, 90]")
	ErrDebounce    = errors.New("debounce must be positive")
	ErrFallback    = errors.New("viewport_fallback width and height must be positive")
	ErrMaxBounds   = errors.New("max_bounds must have south < north and west < east")
)

// Validate checks the settings and joins every problem found.
func (s Settings) Validate() error {
	var errs []error
	for _, p := range []string{"{z}", "{x}", "{y}"} {
		if !strings.Contains(s.TileURL, p) {
			errs = append(errs, ErrTileURL)
			break
		}
	}
	if s.Zoom.MinZoom >= s.Zoom.MaxZoom {
		errs = append(errs, ErrZoomRange)
	}
	if s.Zoom.Snap <= 0 {
		errs = append(errs, ErrZoomSnap)
	}
	if s.InitialZoom < s.Zoom.MinZoom || s.InitialZoom > s.Zoom.MaxZoom {
		errs = append(errs, ErrInitialZoom)
	}
	if s.CenterLat < -90 || s.CenterLat > 90 {
		errs = append(errs, ErrCenter)
	}
	if s.Debounce <= 0 {
		errs = append(errs, ErrDebounce)
	}
	if s.ViewportFallback.Width <= 0 || s.ViewportFallback.Height <= 0 {
		errs = append(errs, ErrFallback)
	}
	if s.MaxBounds.South >= s.MaxBounds.North || s.MaxBounds.West >= s.MaxBounds.East {
		errs = append(errs, ErrMaxBounds)
	}
	return errors.Join(errs...)
}
