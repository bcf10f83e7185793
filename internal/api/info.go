package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
)

type InfoHandler struct {
	dataDir string
	dbOK    bool
}

func NewInfoHandler(dataDir string, dbOK bool) *InfoHandler {
	return &InfoHandler{dataDir: dataDir, dbOK: dbOK}
}

func (h *InfoHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/info", h.GetInfo, huma.OperationTags("health"))
}

type InfoBody struct {
	Name     string   `json:"name" doc:"Service name"`
	Version  string   `json:"version" doc:"Service version"`
	DataDir  string   `json:"data_dir" doc:"Data directory path"`
	DB       bool     `json:"db" doc:"Whether covers are stored in DuckDB"`
	Features []string `json:"features" doc:"Available features"`
}

func (h *InfoHandler) GetInfo(ctx context.Context, input *struct{}) (*struct{ Body InfoBody }, error) {
	covers := "covers-memory"
	if h.dbOK {
		covers = "covers-duckdb"
	}
	return &struct{ Body InfoBody }{Body: InfoBody{
		Name:     "plat-gallery",
		Version:  Version,
		DataDir:  h.dataDir,
		DB:       h.dbOK,
		Features: []string{"albums", "markers", "regions", "datastar-sse", covers},
	}}, nil
}
