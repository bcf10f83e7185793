package gallery

import (
	"context"
	"fmt"

	"github.com/joeblew999/plat-gallery/internal/atlas"
	"github.com/joeblew999/plat-gallery/internal/humastar"
	"github.com/joeblew999/plat-gallery/internal/interaction"
	"github.com/joeblew999/plat-gallery/internal/marker"
	"github.com/joeblew999/plat-gallery/internal/region"
	"github.com/joeblew999/plat-gallery/internal/service"
)

// ReportViewport records the browser map's viewport. The first report marks
// the map ready and renders at once; later reports are debounced.
func (s *Session) ReportViewport(ctx context.Context, v atlas.Viewport, size region.Size) error {
	if !v.Valid() {
		return ErrInvalidViewport
	}
	return s.do(ctx, func() error {
		first := !s.view.ready
		s.view.ready = true
		s.view.view = v
		if size.Width > 0 && size.Height > 0 {
			s.view.size = size
		}
		if first {
			s.sched.DataChanged()
		} else {
			s.sched.ViewportChanged()
		}
		return nil
	})
}

// ClickMarker forwards a click on the marker for id. It reports whether the
// click opened the album; clicks are ignored outside browsing mode.
func (s *Session) ClickMarker(ctx context.Context, id string) (opened bool, err error) {
	err = s.do(ctx, func() error {
		before := s.coord.Mode()
		if !s.layer.Click(id) {
			return fmt.Errorf("%q: %w", id, ErrUnknownMarker)
		}
		after := s.coord.Mode()
		opened = after != before && after.Kind == interaction.Editing && after.EntityID == id
		return nil
	})
	return opened, err
}

// openEntity is the marker click callback.
func (s *Session) openEntity(e atlas.Entity) {
	sub := interaction.Subject{Entity: e}
	if a, ok := s.deps.Albums.Get(e.ID); ok {
		sub = interaction.Subject{Entity: a.Entity(), Description: a.Description}
	}
	if err := s.coord.Open(sub); err != nil {
		s.logger.Warn("marker click rejected", "album", e.ID, "error", err)
	}
}

// ClickMap handles a plain map click. While picking a location the click sets
// the location of the album being edited and reports true; otherwise it is
// ignored.
func (s *Session) ClickMap(ctx context.Context, p atlas.LatLng) (picked bool, err error) {
	err = s.do(ctx, func() error {
		if s.coord.Mode().Kind != interaction.PickingLocation {
			return nil
		}
		sub, ok := s.coord.MapClick(p)
		if !ok {
			return nil
		}
		picked = true
		if sub.IsDraft() {
			return nil
		}
		if _, err := s.deps.Albums.Move(sub.ID, sub.Position()); err != nil {
			s.fail(err)
			return err
		}
		return nil
	})
	return picked, err
}

// NewAlbum opens the panel on an unsaved draft.
func (s *Session) NewAlbum(ctx context.Context) error {
	return s.do(ctx, func() error {
		if _, err := s.coord.StartNew(); err != nil {
			s.fail(err)
			return err
		}
		return nil
	})
}

// PickLocation hides the panel until the next map click.
func (s *Session) PickLocation(ctx context.Context, f interaction.FormSnapshot) error {
	return s.do(ctx, func() error {
		if err := s.coord.StartPick(f); err != nil {
			s.fail(err)
			return err
		}
		return nil
	})
}

// Save validates the panel and stores the album. On failure the panel stays
// open showing the error.
func (s *Session) Save(ctx context.Context, f interaction.FormSnapshot) error {
	return s.do(ctx, func() error {
		sub, err := s.coord.Save(f)
		if err != nil {
			s.fail(err)
			return err
		}

		in := service.AlbumInput{
			Title:       sub.Title,
			Description: sub.Description,
			CoverKey:    sub.CoverRef,
			Lat:         sub.Lat,
			Lng:         sub.Lng,
			Country:     sub.Country,
		}
		var saved service.Album
		if sub.IsDraft() {
			saved, err = s.deps.Albums.Create(in.Apply(service.Album{}))
		} else if cur, ok := s.deps.Albums.Get(sub.ID); !ok {
			err = fmt.Errorf("album %q: %w", sub.ID, service.ErrNotFound)
		} else {
			saved, err = s.deps.Albums.Update(sub.ID, in.Apply(cur))
		}
		if err != nil {
			s.fail(err)
			return err
		}

		s.coord.Close()
		s.succeed(fmt.Sprintf("Album '%s' saved", marker.Caption(saved.Entity())))
		return nil
	})
}

// Delete removes the album being edited and closes the panel.
func (s *Session) Delete(ctx context.Context) error {
	return s.do(ctx, func() error {
		id, err := s.coord.Delete()
		if err != nil {
			s.fail(err)
			return err
		}
		if err := s.deps.Albums.Delete(id); err != nil {
			s.fail(err)
			return err
		}
		s.coord.Close()
		s.succeed("Album deleted")
		return nil
	})
}

// ClosePanel returns to browsing, discarding unsaved changes.
func (s *Session) ClosePanel(ctx context.Context) error {
	return s.do(ctx, func() error {
		s.coord.Close()
		return nil
	})
}

// HoverRegion highlights the named boundary when the mode and zoom allow it.
// An empty name clears the highlight.
func (s *Session) HoverRegion(ctx context.Context, name string) error {
	return s.do(ctx, func() error {
		highlight := ""
		picking := !s.coord.BoundaryInteractive()
		if name != "" && region.ShouldHighlight(name, s.view.view.Zoom, picking, s.zoomedTo) {
			highlight = name
		}
		s.surface.Signals(map[string]any{"highlight": highlight})
		return nil
	})
}

// ClickRegion flies to a clicked boundary. Ignored while picking a location.
func (s *Session) ClickRegion(ctx context.Context, name string) error {
	return s.do(ctx, func() error {
		if !s.coord.BoundaryInteractive() {
			return nil
		}
		return s.flyTo(name)
	})
}

// SelectRegion flies to a region chosen from the search results.
func (s *Session) SelectRegion(ctx context.Context, name string) error {
	return s.do(ctx, func() error {
		if err := s.flyTo(name); err != nil {
			return err
		}
		s.surface.Results("")
		s.surface.Signals(map[string]any{"query": ""})
		return nil
	})
}

func (s *Session) flyTo(name string) error {
	if s.deps.Regions == nil {
		return region.ErrNotFound
	}
	r, ok := s.deps.Regions.Lookup(name)
	if !ok {
		err := fmt.Errorf("%q: %w", name, region.ErrNotFound)
		s.logger.Warn("fly to unknown region", "region", name)
		return err
	}
	v, err := r.View(s.view.size, s.deps.Settings.Overrides, s.deps.Settings.Zoom)
	if err != nil {
		s.logger.Warn("region has no view", "region", name, "error", err)
		return err
	}
	s.zoomedTo = name
	s.surface.FlyTo(v)
	s.surface.Signals(map[string]any{"highlight": ""})
	return nil
}

// Search shows the regions matching q.
func (s *Session) Search(ctx context.Context, q string) error {
	return s.do(ctx, func() error {
		var found []region.Region
		if s.deps.Regions != nil {
			found = s.deps.Regions.Search(q)
		}
		s.surface.Results(s.renderResults(q, found))
		return nil
	})
}

func (s *Session) renderResults(q string, found []region.Region) string {
	if s.deps.Renderer == nil || q == "" {
		return ""
	}
	html, err := humastar.RenderList(s.deps.Renderer, "search-result", found,
		"No matches", fmt.Sprintf("Nothing matches %q", q))
	if err != nil {
		s.logger.Error("render failed", "template", "search-result", "error", err)
	}
	return html
}

// Mode returns the current interaction mode.
func (s *Session) Mode(ctx context.Context) (interaction.Mode, error) {
	var m interaction.Mode
	err := s.do(ctx, func() error {
		m = s.coord.Mode()
		return nil
	})
	return m, err
}

// Markers returns the markers currently on the layer.
func (s *Session) Markers(ctx context.Context) ([]marker.Descriptor, error) {
	var out []marker.Descriptor
	err := s.do(ctx, func() error {
		out = s.layer.Descriptors()
		return nil
	})
	return out, err
}
