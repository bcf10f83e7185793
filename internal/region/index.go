package region

import (
	"errors"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"golang.org/x/text/cases"
)

// SearchLimit caps the number of search results.
const SearchLimit = 10

var (
	ErrNoBounds = errors.New("region has no usable bounds")
	ErrNotFound = errors.New("region not found")
)

// Region is a named boundary.
type Region struct {
	Name     string       `json:"name"`
	Bound    orb.Bound    `json:"-"`
	Geometry orb.Geometry `json:"-"`

	folded string
}

// View returns the fly-to target for the region.
func (r Region) View(size Size, overrides Overrides, lim Limits) (View, error) {
	if r.Geometry == nil {
		return View{}, ErrNoBounds
	}
	if p, ok := r.Geometry.(orb.Point); ok {
		return PointView(p, lim), nil
	}
	if !usable(r.Bound) {
		return View{}, ErrNoBounds
	}
	return TargetView(r.Bound, r.Name, size, overrides, lim), nil
}

// usable reports whether b is well formed and spans some distance.
func usable(b orb.Bound) bool {
	return !b.IsEmpty() && (b.Max[0] > b.Min[0] || b.Max[1] > b.Min[1])
}

// Index holds the loaded boundaries. It is safe for concurrent use.
type Index struct {
	mu      sync.RWMutex
	regions []Region
	byName  map[string]int
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{byName: map[string]int{}}
}

// Load replaces the index with the named features of fc. Features without
// a name or geometry are skipped. It returns the number of regions loaded.
func (ix *Index) Load(fc *geojson.FeatureCollection, logger *slog.Logger) int {
	if logger == nil {
		logger = slog.Default()
	}
	fold := cases.Fold()

	regions := make([]Region, 0, len(fc.Features))
	byName := make(map[string]int, len(fc.Features))
	for i, f := range fc.Features {
		name, _ := f.Properties["name"].(string)
		name = strings.TrimSpace(name)
		if name == "" || f.Geometry == nil {
			logger.Warn("skipping boundary feature", "index", i, "name", name)
			continue
		}
		if _, dup := byName[name]; dup {
			continue
		}
		byName[name] = len(regions)
		regions = append(regions, Region{
			Name:     name,
			Bound:    f.Geometry.Bound(),
			Geometry: f.Geometry,
			folded:   fold.String(name),
		})
	}

	ix.mu.Lock()
	ix.regions = regions
	ix.byName = byName
	ix.mu.Unlock()
	return len(regions)
}

// Len returns the number of regions.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.regions)
}

// Lookup finds a region by exact name.
func (ix *Index) Lookup(name string) (Region, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	i, ok := ix.byName[name]
	if !ok {
		return Region{}, false
	}
	return ix.regions[i], true
}

// Search returns up to SearchLimit regions whose name contains q, ignoring
// case, in load order.
func (ix *Index) Search(q string) []Region {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil
	}
	needle := cases.Fold().String(q)

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	var out []Region
	for _, r := range ix.regions {
		if strings.Contains(r.folded, needle) {
			out = append(out, r)
			if len(out) == SearchLimit {
				break
			}
		}
	}
	return out
}

// Names returns all region names, sorted.
func (ix *Index) Names() []string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	names := make([]string, len(ix.regions))
	for i, r := range ix.regions {
		names[i] = r.Name
	}
	sort.Strings(names)
	return names
}
