package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-gallery/internal/humastar"
	"github.com/joeblew999/plat-gallery/internal/region"
)

type RegionsInput struct {
	Q      string `query:"q" maxLength:"100" doc:"Case-insensitive name fragment; empty lists all" example:"fra"`
	Offset int    `query:"offset" minimum:"0" default:"0" doc:"Items to skip"`
	Limit  int    `query:"limit" minimum:"1" maximum:"500" default:"50" doc:"Page size"`
}

type RegionViewInput struct {
	Name   string  `path:"name" doc:"Region name" example:"France"`
	Width  float64 `query:"width" minimum:"0" doc:"Map width in CSS pixels; 0 uses the configured fallback"`
	Height float64 `query:"height" minimum:"0" doc:"Map height in CSS pixels; 0 uses the configured fallback"`
}

type RegionViewBody struct {
	Name string      `json:"name" doc:"Region name"`
	View region.View `json:"view" doc:"Fly-to target"`
}

// RegisterRegions registers boundary search and fly-to routes.
func (h *APIHandler) RegisterRegions(api huma.API) {
	huma.Get(api, "/api/v1/regions", h.ListRegions, huma.OperationTags("regions"))
	huma.Get(api, "/api/v1/regions/{name}/view", h.GetRegionView, huma.OperationTags("regions"))
}

func (h *APIHandler) ListRegions(ctx context.Context, input *RegionsInput) (*struct {
	Body humastar.PageBody[string]
}, error) {
	var names []string
	if input.Q == "" {
		names = h.svc.Regions.Names()
	} else {
		for _, r := range h.svc.Regions.Search(input.Q) {
			names = append(names, r.Name)
		}
	}
	return &struct {
		Body humastar.PageBody[string]
	}{Body: humastar.Paginate(names, input.Offset, input.Limit)}, nil
}

func (h *APIHandler) GetRegionView(ctx context.Context, input *RegionViewInput) (*struct{ Body RegionViewBody }, error) {
	r, ok := h.svc.Regions.Lookup(input.Name)
	if !ok {
		return nil, HTTPError(region.ErrNotFound)
	}
	size := h.svc.Settings.ViewportFallback
	if input.Width > 0 && input.Height > 0 {
		size = region.Size{Width: input.Width, Height: input.Height}
	}
	v, err := r.View(size, h.svc.Settings.Overrides, h.svc.Settings.Zoom)
	if err != nil {
		return nil, HTTPError(err)
	}
	return &struct{ Body RegionViewBody }{Body: RegionViewBody{Name: r.Name, View: v}}, nil
}
