// Package marker turns map entities into Polaroid-style marker descriptors:
// self-contained HTML plus the icon size and anchors a map layer needs to
// place it.
package marker

import (
	"fmt"
	"html/template"
	"log/slog"
	"strings"

	"github.com/joeblew999/plat-gallery/internal/atlas"
	"github.com/joeblew999/plat-gallery/internal/geometry"
	"github.com/joeblew999/plat-gallery/internal/templates"
)

// ClassName is the wrapper class applied to every marker icon.
const ClassName = "leaflet-polaroid-marker-wrapper"

// UntitledCaption is shown when an entity has neither title nor country.
const UntitledCaption = "Untitled"

// Descriptor is everything a map layer needs to draw one marker.
type Descriptor struct {
	EntityID    string       `json:"entityId"`
	Position    atlas.LatLng `json:"position"`
	HTML        string       `json:"html"`
	ClassName   string       `json:"className"`
	IconSize    [2]int       `json:"iconSize"`
	IconAnchor  [2]float64   `json:"iconAnchor"`
	PopupAnchor [2]float64   `json:"popupAnchor"`
}

// Resolver looks up the image source for a cover reference.
type Resolver interface {
	Resolve(key string) (src string, ok bool)
}

// ResolverFunc adapts a function to a Resolver.
type ResolverFunc func(key string) (string, bool)

// Resolve calls f.
func (f ResolverFunc) Resolve(key string) (string, bool) { return f(key) }

// MissingCoverFunc is notified when a cover cannot be resolved.
type MissingCoverFunc func(entityID, key string)

// Factory builds descriptors.
type Factory struct {
	renderer *templates.Renderer
	resolver Resolver
	logger   *slog.Logger
	onMiss   MissingCoverFunc
}

// Option configures a Factory.
type Option func(*Factory)

// WithLogger sets the logger used for missing-cover warnings.
func WithLogger(l *slog.Logger) Option {
	return func(f *Factory) { f.logger = l }
}

// WithMissingCover registers a hook called for every unresolved cover.
func WithMissingCover(fn MissingCoverFunc) Option {
	return func(f *Factory) { f.onMiss = fn }
}

// NewFactory creates a factory. A nil resolver means every marker gets the
// placeholder cover.
func NewFactory(renderer *templates.Renderer, resolver Resolver, opts ...Option) *Factory {
	f := &Factory{
		renderer: renderer,
		resolver: resolver,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// view is the data passed to the "marker" fragment.
type view struct {
	EntityID string
	Spec     geometry.RenderSpec
	Caption  template.HTML
	Src      template.URL
}

// Build renders the marker for e at the dimensions in spec.
func (f *Factory) Build(e atlas.Entity, spec geometry.RenderSpec) (Descriptor, error) {
	v := view{
		EntityID: e.ID,
		Spec:     spec,
		Caption:  template.HTML(Sanitize(Caption(e))),
		Src:      f.coverSource(e),
	}

	html, err := f.renderer.Render("marker", v)
	if err != nil {
		return Descriptor{}, fmt.Errorf("render marker %q: %w", e.ID, err)
	}

	return Descriptor{
		EntityID:    e.ID,
		Position:    e.Position().Wrap(),
		HTML:        html,
		ClassName:   ClassName,
		IconSize:    [2]int{spec.IconWidth, spec.IconHeight},
		IconAnchor:  spec.IconAnchor,
		PopupAnchor: spec.PopupAnchor,
	}, nil
}

func (f *Factory) coverSource(e atlas.Entity) template.URL {
	if e.CoverRef == "" {
		return ""
	}
	if f.resolver != nil {
		if src, ok := f.resolver.Resolve(e.CoverRef); ok && allowedSource(src) {
			return template.URL(src)
		}
	}

	f.logger.Warn("cover not found", "entity", e.ID, "key", e.CoverRef, "title", e.Title)
	if f.onMiss != nil {
		f.onMiss(e.ID, e.CoverRef)
	}
	return ""
}

// Caption picks the text shown under the photo.
func Caption(e atlas.Entity) string {
	switch {
	case e.Title != "":
		return e.Title
	case e.Country != "":
		return e.Country
	}
	return UntitledCaption
}

func allowedSource(src string) bool {
	lower := strings.ToLower(strings.TrimSpace(src))
	return strings.HasPrefix(lower, "data:image/") ||
		strings.HasPrefix(lower, "https://") ||
		strings.HasPrefix(lower, "http://") ||
		strings.HasPrefix(lower, "/")
}

var sanitizer = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
)

// Sanitize escapes text for use in marker markup. It is the only escaping
// routine applied to user text in markers.
func Sanitize(s string) string {
	return sanitizer.Replace(s)
}
