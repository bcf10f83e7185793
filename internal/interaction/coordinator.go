// Package interaction tracks what the user is doing on the map: browsing,
// editing an entity in the side panel, or picking a location for it.
package interaction

import (
	"errors"
	"strings"

	"github.com/joeblew999/plat-gallery/internal/atlas"
)

// Kind is the interaction mode.
type Kind int

const (
	Browsing Kind = iota
	Editing
	PickingLocation
)

func (k Kind) String() string {
	switch k {
	case Browsing:
		return "browsing"
	case Editing:
		return "editing"
	case PickingLocation:
		return "picking"
	}
	return "unknown"
}

// Mode is the active interaction. EntityID is empty while browsing.
type Mode struct {
	Kind     Kind
	EntityID string
}

func (m Mode) String() string {
	if m.Kind == Browsing {
		return m.Kind.String()
	}
	return m.Kind.String() + "(" + m.EntityID + ")"
}

// CrosshairCursor is the map cursor while picking a location.
const CrosshairCursor = "crosshair"

var (
	ErrPicking          = errors.New("a location is being picked")
	ErrBusy             = errors.New("another entity is being edited")
	ErrNotEditing       = errors.New("no entity is being edited")
	ErrLocationRequired = errors.New("choose a location on the map before saving")
	ErrCoverRequired    = errors.New("choose a cover before saving")
	ErrDraftNotSaved    = errors.New("the new entity has not been saved")
)

// Subject is the working copy of the entity being edited.
type Subject struct {
	atlas.Entity
	Description string `json:"description,omitempty"`
}

// FormSnapshot carries the edit panel's field values.
type FormSnapshot struct {
	Title       string
	Description string
	CoverKey    string
	Country     string
}

func (s *Subject) apply(f FormSnapshot) {
	s.Title = strings.TrimSpace(f.Title)
	s.Description = f.Description
	s.CoverRef = strings.TrimSpace(f.CoverKey)
	s.Country = strings.TrimSpace(f.Country)
}

// Coordinator is the interaction state machine. It is not safe for
// concurrent use; a session loop owns it.
type Coordinator struct {
	mode      Mode
	subject   Subject
	observers []func(prev, next Mode)
}

// New returns a coordinator in Browsing mode.
func New() *Coordinator {
	return &Coordinator{}
}

// Mode returns the active mode.
func (c *Coordinator) Mode() Mode {
	return c.mode
}

// Subject returns the working copy while editing or picking.
func (c *Coordinator) Subject() (Subject, bool) {
	if c.mode.Kind == Browsing {
		return Subject{}, false
	}
	return c.subject, true
}

// OnChange registers fn to run after every mode change.
func (c *Coordinator) OnChange(fn func(prev, next Mode)) {
	c.observers = append(c.observers, fn)
}

// AcceptsMarkerClicks reports whether a marker click may open an entity.
func (c *Coordinator) AcceptsMarkerClicks() bool {
	return c.mode.Kind == Browsing
}

// BoundaryInteractive reports whether country boundaries react to hover
// and clicks.
func (c *Coordinator) BoundaryInteractive() bool {
	return c.mode.Kind != PickingLocation
}

// Cursor returns the map cursor for the active mode.
func (c *Coordinator) Cursor() string {
	if c.mode.Kind == PickingLocation {
		return CrosshairCursor
	}
	return ""
}

// PanelOpen reports whether the edit panel is shown.
func (c *Coordinator) PanelOpen() bool {
	return c.mode.Kind == Editing
}

// Open starts editing s. Only possible while browsing.
func (c *Coordinator) Open(s Subject) error {
	switch c.mode.Kind {
	case PickingLocation:
		return ErrPicking
	case Editing:
		return ErrBusy
	}
	c.subject = s
	c.set(Mode{Kind: Editing, EntityID: s.ID})
	return nil
}

// StartNew opens the panel on a fresh draft, replacing any entity being
// edited.
func (c *Coordinator) StartNew() (Subject, error) {
	if c.mode.Kind == PickingLocation {
		return Subject{}, ErrPicking
	}
	c.subject = Subject{Entity: atlas.Entity{ID: atlas.DraftID}}
	c.set(Mode{Kind: Editing, EntityID: atlas.DraftID})
	return c.subject, nil
}

// StartPick hides the panel and waits for a map click. The form values are
// kept on the working copy so they survive the round trip.
func (c *Coordinator) StartPick(f FormSnapshot) error {
	if c.mode.Kind != Editing {
		return ErrNotEditing
	}
	c.subject.apply(f)
	c.set(Mode{Kind: PickingLocation, EntityID: c.subject.ID})
	return nil
}

// MapClick consumes a click while picking: the coordinate is applied to the
// working copy and the panel reopens. In any other mode the click is
// ignored and ok is false.
func (c *Coordinator) MapClick(p atlas.LatLng) (s Subject, ok bool) {
	if c.mode.Kind != PickingLocation {
		return Subject{}, false
	}
	w := p.Wrap()
	c.subject.Lat, c.subject.Lng = w.Lat, w.Lng
	c.set(Mode{Kind: Editing, EntityID: c.subject.ID})
	return c.subject, true
}

// Save applies the form to the working copy and validates it. The mode is
// left unchanged; the caller persists the result and then calls Close.
func (c *Coordinator) Save(f FormSnapshot) (Subject, error) {
	if c.mode.Kind != Editing {
		if c.mode.Kind == PickingLocation {
			return Subject{}, ErrPicking
		}
		return Subject{}, ErrNotEditing
	}
	c.subject.apply(f)
	if c.subject.IsDraft() {
		if c.subject.CoverRef == "" {
			return Subject{}, ErrCoverRequired
		}
		if c.subject.Position().IsZero() {
			return Subject{}, ErrLocationRequired
		}
	}
	return c.subject, nil
}

// Delete returns the id of the entity being edited. The draft cannot be
// deleted. The caller removes the entity and then calls Close.
func (c *Coordinator) Delete() (string, error) {
	if c.mode.Kind != Editing {
		return "", ErrNotEditing
	}
	if c.subject.IsDraft() {
		return "", ErrDraftNotSaved
	}
	return c.subject.ID, nil
}

// Close returns to browsing, discarding the draft and any pick in progress.
func (c *Coordinator) Close() {
	c.subject = Subject{}
	c.set(Mode{Kind: Browsing})
}

// Forget drops the working copy if it is id, used when the entity is
// removed elsewhere.
func (c *Coordinator) Forget(id string) {
	if c.mode.Kind != Browsing && c.subject.ID == id {
		c.Close()
	}
}

func (c *Coordinator) set(next Mode) {
	prev := c.mode
	c.mode = next
	if prev == next {
		return
	}
	for _, fn := range c.observers {
		fn(prev, next)
	}
}
