package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-gallery/internal/service"
)

type CoverKeyInput struct {
	Key string `path:"key" doc:"Cover key" example:"rome-2024.jpg" pattern:"^[A-Za-z0-9._-]+$" maxLength:"200"`
}

type PutCoverInput struct {
	CoverKeyInput
	ContentType string `header:"Content-Type" doc:"Image media type"`
	RawBody     []byte `contentType:"image/*"`
}

type CoverOutput struct {
	ContentType  string    `header:"Content-Type"`
	CacheControl string    `header:"Cache-Control"`
	LastModified time.Time `header:"Last-Modified"`
	Body         []byte
}

type CoverKeysBody struct {
	Keys []string `json:"keys" doc:"Stored cover keys"`
}

// RegisterCovers registers cover blob routes.
func (h *APIHandler) RegisterCovers(api huma.API) {
	huma.Get(api, "/api/v1/covers", h.ListCovers, huma.OperationTags("covers"))
	huma.Put(api, "/api/v1/covers/{key}", h.PutCover, huma.OperationTags("covers"),
		func(o *huma.Operation) { o.MaxBodyBytes = service.MaxCoverBytes })
	huma.Get(api, "/api/v1/covers/{key}", h.GetCover, huma.OperationTags("covers"))
	huma.Delete(api, "/api/v1/covers/{key}", h.DeleteCover, huma.OperationTags("covers"))
}

func (h *APIHandler) ListCovers(ctx context.Context, input *struct{}) (*struct{ Body CoverKeysBody }, error) {
	keys, err := h.svc.Covers.Keys(ctx)
	if err != nil {
		return nil, HTTPError(err)
	}
	if keys == nil {
		keys = []string{}
	}
	return &struct{ Body CoverKeysBody }{Body: CoverKeysBody{Keys: keys}}, nil
}

func (h *APIHandler) PutCover(ctx context.Context, input *PutCoverInput) (*struct{ Body MessageBody }, error) {
	if len(input.RawBody) == 0 {
		return nil, huma.Error400BadRequest("empty cover")
	}
	ct := input.ContentType
	if ct == "" || ct == "application/octet-stream" {
		ct = http.DetectContentType(input.RawBody)
	}
	if !strings.HasPrefix(ct, "image/") {
		return nil, huma.Error415UnsupportedMediaType("covers must be images, got " + ct)
	}

	err := h.svc.Covers.Put(ctx, service.CoverBlob{Key: input.Key, ContentType: ct, Data: input.RawBody})
	if err != nil {
		return nil, HTTPError(err)
	}
	h.svc.Logger.Info("cover stored", "key", input.Key, "bytes", len(input.RawBody))
	return &struct{ Body MessageBody }{Body: MessageBody{Message: "Cover stored"}}, nil
}

func (h *APIHandler) GetCover(ctx context.Context, input *CoverKeyInput) (*CoverOutput, error) {
	blob, err := h.svc.Covers.Get(ctx, input.Key)
	if err != nil {
		return nil, HTTPError(err)
	}
	return &CoverOutput{
		ContentType:  blob.ContentType,
		CacheControl: "no-cache",
		LastModified: blob.UpdatedAt,
		Body:         blob.Data,
	}, nil
}

func (h *APIHandler) DeleteCover(ctx context.Context, input *CoverKeyInput) (*struct{}, error) {
	if err := h.svc.Covers.Delete(ctx, input.Key); err != nil {
		return nil, HTTPError(err)
	}
	return nil, nil
}
