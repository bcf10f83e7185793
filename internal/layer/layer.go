// Package layer keeps a map's marker layer in step with the entity list and
// the current viewport.
package layer

import (
	"github.com/joeblew999/plat-gallery/internal/atlas"
	"github.com/joeblew999/plat-gallery/internal/marker"
)

// Layer is a marker container on a map.
type Layer interface {
	Clear()
	Add(d marker.Descriptor, onClick func())
}

// MapHandle is the view of the map the synchronizer needs.
type MapHandle interface {
	// Ready reports whether the map has been initialised and has reported
	// a viewport.
	Ready() bool
	Viewport() atlas.Viewport
}

// MarkerLayer is an in-memory Layer. It is not safe for concurrent use;
// a session loop owns it.
type MarkerLayer struct {
	items []item
}

type item struct {
	desc    marker.Descriptor
	onClick func()
}

// NewMarkerLayer creates an empty layer.
func NewMarkerLayer() *MarkerLayer {
	return &MarkerLayer{}
}

// Clear removes every marker.
func (l *MarkerLayer) Clear() {
	l.items = l.items[:0]
}

// Add appends a marker.
func (l *MarkerLayer) Add(d marker.Descriptor, onClick func()) {
	l.items = append(l.items, item{desc: d, onClick: onClick})
}

// Click invokes the click handler of the marker for id. It reports whether
// such a marker is on the layer.
func (l *MarkerLayer) Click(id string) bool {
	for _, it := range l.items {
		if it.desc.EntityID != id {
			continue
		}
		if it.onClick != nil {
			it.onClick()
		}
		return true
	}
	return false
}

// Descriptors returns a copy of the markers in insertion order.
func (l *MarkerLayer) Descriptors() []marker.Descriptor {
	out := make([]marker.Descriptor, len(l.items))
	for i, it := range l.items {
		out[i] = it.desc
	}
	return out
}

// Len returns the number of markers.
func (l *MarkerLayer) Len() int {
	return len(l.items)
}
