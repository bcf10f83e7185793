package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-gallery/internal/atlas"
	"github.com/joeblew999/plat-gallery/internal/humastar"
	"github.com/joeblew999/plat-gallery/internal/service"
)

// albumActions are the actions every stored album offers.
var albumActions = []humastar.ActionDef{
	{Rel: "edit", Pattern: "/api/v1/albums/%s", Method: http.MethodPut, Title: "Update album"},
	{Rel: "move", Pattern: "/api/v1/albums/%s/location", Method: http.MethodPut, Title: "Move album"},
	{Rel: "delete", Pattern: "/api/v1/albums/%s", Method: http.MethodDelete, Title: "Delete album"},
}

// AlbumBody is an album with its hypermedia actions.
type AlbumBody struct {
	service.Album
}

// Actions implements humastar.Actor.
func (b AlbumBody) Actions() []humastar.Action {
	actions := humastar.ActionsFor(b.ID, albumActions)
	if key := b.CoverKey(); service.ValidCoverKey(key) {
		actions = append(actions, humastar.Action{Rel: "cover", Href: service.CoverPath + key, Method: http.MethodGet, Title: "Cover image"})
	}
	return actions
}

type AlbumIDInput struct {
	ID string `path:"id" doc:"Album ID" example:"album_5f0c9d1e-0d0b-4f4c-9d7e-3c1f1d2a9b10"`
}

type ListAlbumsInput struct {
	Offset int `query:"offset" minimum:"0" default:"0" doc:"Items to skip"`
	Limit  int `query:"limit" minimum:"1" maximum:"500" default:"50" doc:"Page size"`
}

type AlbumOutput struct {
	Body AlbumBody
}

// RegisterAlbums registers album CRUD routes.
func (h *APIHandler) RegisterAlbums(api huma.API) {
	huma.Get(api, "/api/v1/albums", h.ListAlbums, huma.OperationTags("albums"))
	huma.Register(api, huma.Operation{
		OperationID:   "create-album",
		Method:        http.MethodPost,
		Path:          "/api/v1/albums",
		DefaultStatus: http.StatusCreated,
		Tags:          []string{"albums"},
	}, h.CreateAlbum)
	huma.Get(api, "/api/v1/albums/{id}", h.GetAlbum, huma.OperationTags("albums"))
	huma.Put(api, "/api/v1/albums/{id}", h.PutAlbum, huma.OperationTags("albums"))
	huma.Put(api, "/api/v1/albums/{id}/location", h.MoveAlbum, huma.OperationTags("albums"))
	huma.Delete(api, "/api/v1/albums/{id}", h.DeleteAlbum, huma.OperationTags("albums"))
}

func (h *APIHandler) ListAlbums(ctx context.Context, input *ListAlbumsInput) (*struct {
	Body humastar.PageBody[service.Album]
}, error) {
	return &struct {
		Body humastar.PageBody[service.Album]
	}{Body: humastar.Paginate(h.svc.Albums.List(), input.Offset, input.Limit)}, nil
}

func (h *APIHandler) CreateAlbum(ctx context.Context, input *struct {
	Body service.AlbumInput
}) (*AlbumOutput, error) {
	created, err := h.svc.Albums.Create(input.Body.Apply(service.Album{}))
	if err != nil {
		return nil, HTTPError(err)
	}
	return &AlbumOutput{Body: AlbumBody{created}}, nil
}

func (h *APIHandler) GetAlbum(ctx context.Context, input *AlbumIDInput) (*AlbumOutput, error) {
	a, ok := h.svc.Albums.Get(input.ID)
	if !ok {
		return nil, huma.Error404NotFound("album not found")
	}
	return &AlbumOutput{Body: AlbumBody{a}}, nil
}

func (h *APIHandler) PutAlbum(ctx context.Context, input *struct {
	AlbumIDInput
	Body service.AlbumInput
}) (*AlbumOutput, error) {
	cur, ok := h.svc.Albums.Get(input.ID)
	if !ok {
		return nil, huma.Error404NotFound("album not found")
	}
	if input.Body.Lat == 0 && input.Body.Lng == 0 {
		return nil, HTTPError(service.ErrInvalidLocation)
	}
	updated, err := h.svc.Albums.Update(input.ID, input.Body.Apply(cur))
	if err != nil {
		return nil, HTTPError(err)
	}
	return &AlbumOutput{Body: AlbumBody{updated}}, nil
}

func (h *APIHandler) MoveAlbum(ctx context.Context, input *struct {
	AlbumIDInput
	Body atlas.LatLng
}) (*AlbumOutput, error) {
	p := input.Body.Wrap()
	if p.IsZero() {
		return nil, HTTPError(service.ErrInvalidLocation)
	}
	moved, err := h.svc.Albums.Move(input.ID, p)
	if err != nil {
		return nil, HTTPError(err)
	}
	return &AlbumOutput{Body: AlbumBody{moved}}, nil
}

func (h *APIHandler) DeleteAlbum(ctx context.Context, input *AlbumIDInput) (*struct{}, error) {
	if err := h.svc.Albums.Delete(input.ID); err != nil {
		return nil, HTTPError(err)
	}
	return nil, nil
}
