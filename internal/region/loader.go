package region

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/paulmach/orb/geojson"
)

// DefaultBoundariesURL is the world country boundaries collection.
const DefaultBoundariesURL = "https://raw.githubusercontent.com/johan/world.geo.json/master/countries.geo.json"

// maxBoundaryBytes bounds the size of a boundary download.
const maxBoundaryBytes = 64 << 20

// Loader fetches boundary collections.
type Loader struct {
	client *http.Client
	logger *slog.Logger
}

// NewLoader creates a loader. A nil client uses a client with a 30s timeout.
func NewLoader(client *http.Client, logger *slog.Logger) *Loader {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{client: client, logger: logger}
}

// Fetch reads a FeatureCollection from an http(s) URL or a local file path.
func (l *Loader) Fetch(ctx context.Context, src string) (*geojson.FeatureCollection, error) {
	var data []byte
	var err error
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		data, err = l.get(ctx, src)
	} else {
		data, err = os.ReadFile(strings.TrimPrefix(src, "file://"))
	}
	if err != nil {
		return nil, err
	}

	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parse boundaries %s: %w", src, err)
	}
	return fc, nil
}

func (l *Loader) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch boundaries: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch boundaries: unexpected status %s", resp.Status)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxBoundaryBytes))
}

// LoadInto fetches src into ix. Failures are logged and leave ix unchanged;
// the map keeps working without boundaries.
func (l *Loader) LoadInto(ctx context.Context, ix *Index, src string) error {
	if src == "" {
		return nil
	}
	start := time.Now()
	fc, err := l.Fetch(ctx, src)
	if err != nil {
		l.logger.Error("boundaries unavailable, search and highlight disabled", "source", src, "error", err)
		return err
	}
	n := ix.Load(fc, l.logger)
	l.logger.Info("boundaries loaded", "source", src, "regions", n, "took", time.Since(start).Round(time.Millisecond))
	return nil
}
