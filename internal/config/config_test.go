package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSettings(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "map.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestDefaultsAreValid(t *testing.T) {
	s, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 3.0, s.Zoom.MinZoom)
	assert.Equal(t, 14.0, s.Zoom.MaxZoom)
	assert.Equal(t, 250*time.Millisecond, s.Debounce)
	assert.Equal(t, int64(250), s.DebounceMillis())
	assert.Contains(t, s.Overrides, "Russia")
}

func TestLoadOverlaysFile(t *testing.T) {
	path := writeSettings(t, `
tile_url: https://tiles.example.com/{z}/{x}/{y}.png
initial_zoom: 4
debounce: 100ms
zoom:
  max_zoom: 16
overrides:
  France:
    fixed_lat: 46.6
    zoom_factor: 1.2
`)

	s, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://tiles.example.com/{z}/{x}/{y}.png", s.TileURL)
	assert.Equal(t, 4.0, s.InitialZoom)
	assert.Equal(t, 100*time.Millisecond, s.Debounce)
	assert.Equal(t, 16.0, s.Zoom.MaxZoom)
	assert.Equal(t, 3.0, s.Zoom.MinZoom, "unset keys keep their defaults")
	assert.Equal(t, DefaultCenterLat, s.CenterLat)

	require.Contains(t, s.Overrides, "France")
	require.NotNil(t, s.Overrides["France"].FixedLat)
	assert.Equal(t, 46.6, *s.Overrides["France"].FixedLat)
	assert.Nil(t, s.Overrides["France"].FixedLng)
	assert.Contains(t, s.Overrides, "Canada", "built-in overrides remain")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Settings)
		want   error
	}{
		{"tile url", func(s *Settings) { s.TileURL = "https://x/{z}.png" }, ErrTileURL},
		{"zoom range", func(s *Settings) { s.Zoom.MinZoom = 15 }, ErrZoomRange},
		{"zoom snap", func(s *Settings) { s.Zoom.Snap = 0 }, ErrZoomSnap},
		{"initial zoom", func(s *Settings) { s.InitialZoom = 1 }, ErrInitialZoom},
		{"center", func(s *Settings) { s.CenterLat = 91 }, ErrCenter},
		{"debounce", func(s *Settings) { s.Debounce = 0 }, ErrDebounce},
		{"fallback", func(s *Settings) { s.ViewportFallback.Width = 0 }, ErrFallback},
		{"bounds", func(s *Settings) { s.MaxBounds.West = 200 }, ErrMaxBounds},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Defaults()
			tt.mutate(&s)
			assert.ErrorIs(t, s.Validate(), tt.want)
		})
	}
}

func TestValidateJoinsErrors(t *testing.T) {
	s := Defaults()
	s.Debounce = 0
	s.CenterLat = -100
	err := s.Validate()
	assert.ErrorIs(t, err, ErrDebounce)
	assert.ErrorIs(t, err, ErrCenter)
}
