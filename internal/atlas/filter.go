package atlas

// CountryRepresentativeMaxZoom is the highest zoom at which only one entity
// per country is shown.
const CountryRepresentativeMaxZoom = 5.0

// SelectVisible returns the entities to draw for a viewport, in input order.
//
// At zoom <= CountryRepresentativeMaxZoom each country contributes at most
// its first in-bounds entity; entities without a country are always kept.
// Above that zoom every in-bounds entity is kept. The draft is never
// selected.
func SelectVisible(entities []Entity, v Viewport) []Entity {
	out := make([]Entity, 0, len(entities))

	var seen map[string]struct{}
	if v.Zoom <= CountryRepresentativeMaxZoom {
		seen = make(map[string]struct{})
	}

	for _, e := range entities {
		if e.IsDraft() || !v.Contains(e.Position()) {
			continue
		}
		if seen != nil && e.Country != "" {
			if _, ok := seen[e.Country]; ok {
				continue
			}
			seen[e.Country] = struct{}{}
		}
		out = append(out, e)
	}
	return out
}
