package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-gallery/internal/atlas"
	"github.com/joeblew999/plat-gallery/internal/geometry"
	"github.com/joeblew999/plat-gallery/internal/layer"
	"github.com/joeblew999/plat-gallery/internal/marker"
)

type MarkersInput struct {
	Zoom  float64 `query:"zoom" required:"true" doc:"Zoom level" example:"5"`
	SWLat float64 `query:"swLat" minimum:"-90" maximum:"90" default:"-90" doc:"South-west latitude"`
	SWLng float64 `query:"swLng" default:"-180" doc:"South-west longitude"`
	NELat float64 `query:"neLat" minimum:"-90" maximum:"90" default:"90" doc:"North-east latitude"`
	NELng float64 `query:"neLng" default:"180" doc:"North-east longitude"`
}

type MarkersBody struct {
	Viewport atlas.Viewport      `json:"viewport" doc:"Viewport the markers were selected for"`
	Spec     geometry.RenderSpec `json:"spec" doc:"Marker geometry at this zoom"`
	Markers  []marker.Descriptor `json:"markers" doc:"Markers to draw"`
}

// staticMap is a map handle fixed to one viewport.
type staticMap atlas.Viewport

func (m staticMap) Ready() bool              { return true }
func (m staticMap) Viewport() atlas.Viewport { return atlas.Viewport(m) }

// RegisterMarkers registers the marker preview route.
func (h *APIHandler) RegisterMarkers(api huma.API) {
	huma.Get(api, "/api/v1/markers", h.GetMarkers, huma.OperationTags("markers"))
}

// GetMarkers renders the markers a map would show for the given viewport,
// without any session.
func (h *APIHandler) GetMarkers(ctx context.Context, input *MarkersInput) (*struct{ Body MarkersBody }, error) {
	v := atlas.Viewport{
		Zoom: input.Zoom,
		SW:   atlas.LatLng{Lat: input.SWLat, Lng: input.SWLng},
		NE:   atlas.LatLng{Lat: input.NELat, Lng: input.NELng},
	}
	if !v.Valid() {
		return nil, huma.Error422UnprocessableEntity("invalid viewport")
	}

	l := layer.NewMarkerLayer()
	sync := layer.NewSynchronizer(h.svc.Factory, nil, h.svc.Logger, h.svc.Metrics)
	sync.Sync(staticMap(v), l, h.svc.Albums.Entities(), nil)
	descs := l.Descriptors()
	if descs == nil {
		descs = []marker.Descriptor{}
	}

	return &struct{ Body MarkersBody }{Body: MarkersBody{
		Viewport: v,
		Spec:     geometry.Scale(v.Zoom),
		Markers:  descs,
	}}, nil
}
