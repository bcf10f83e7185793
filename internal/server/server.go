package server

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/joeblew999/plat-gallery/internal/api"
	galleryapi "github.com/joeblew999/plat-gallery/internal/api/gallery"
	"github.com/joeblew999/plat-gallery/internal/config"
	"github.com/joeblew999/plat-gallery/internal/db"
	"github.com/joeblew999/plat-gallery/internal/gallery"
	"github.com/joeblew999/plat-gallery/internal/humastar"
	"github.com/joeblew999/plat-gallery/internal/logging"
	"github.com/joeblew999/plat-gallery/internal/marker"
	"github.com/joeblew999/plat-gallery/internal/metrics"
	"github.com/joeblew999/plat-gallery/internal/region"
	"github.com/joeblew999/plat-gallery/internal/service"
	"github.com/joeblew999/plat-gallery/internal/templates"
)

//go:embed page.html
var pageHTML string

var pageTmpl = template.Must(template.New("gallery").Parse(pageHTML))

// Config holds the server configuration.
type Config struct {
	Host     string
	Port     string
	DataDir  string // albums.json and the DuckDB file live here; "" keeps everything in memory
	Settings config.Settings
	Logger   *slog.Logger
	Clock    clock.Clock
}

// Server is the gallery HTTP server.
type Server struct {
	config   Config
	logger   *slog.Logger
	mux      *http.ServeMux
	humaAPI  huma.API
	links    *humastar.Links
	db       *sql.DB
	services *api.Services
	registry *gallery.Registry
	renderer *templates.Renderer
	metrics  *metrics.Metrics
	promReg  *prometheus.Registry
}

// New creates a gallery server. A DuckDB failure is not fatal: covers fall
// back to an in-memory store.
func New(ctx context.Context, cfg Config) (*Server, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	logger := logging.Component(cfg.Logger, "server")

	mux := http.NewServeMux()
	links := humastar.NewLinks("/health", "gallery")

	humaConfig := huma.DefaultConfig("plat-gallery API", api.Version)
	humaConfig.Info.Description = "Photo album map: albums, cover images, marker previews, country boundaries and the live Datastar map session."
	humaConfig.Servers = []*huma.Server{
		{URL: fmt.Sprintf("http://%s:%s", cfg.Host, cfg.Port), Description: "Local server"},
	}
	humaConfig.CreateHooks = []func(huma.Config) huma.Config{}
	humaConfig.Transformers = append(humaConfig.Transformers, links.Transformer())
	humaAPI := humago.New(mux, humaConfig)

	renderer, err := templates.Default()
	if err != nil {
		return nil, fmt.Errorf("parse fragments: %w", err)
	}

	m := metrics.NewMetrics()
	promReg := prometheus.NewRegistry()
	promReg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	if err := m.Register(promReg); err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	bus := service.NewEventBus()
	s := &Server{
		config:   cfg,
		logger:   logger,
		mux:      mux,
		humaAPI:  humaAPI,
		links:    links,
		renderer: renderer,
		metrics:  m,
		promReg:  promReg,
	}

	var covers service.CoverStore
	conn, err := db.Open(ctx, db.Config{DataDir: cfg.DataDir, DBName: "gallery"}, cfg.Logger)
	if err == nil {
		covers, err = service.NewDuckDBCovers(ctx, conn, bus)
		if err != nil {
			conn.Close()
		} else {
			s.db = conn
		}
	}
	if err != nil {
		logger.Warn("duckdb unavailable, covers kept in memory", "error", err)
		covers = service.NewMemoryCovers(bus)
	}

	resolver := service.CoverResolver{Store: covers, Timeout: 2 * time.Second}
	factory := marker.NewFactory(renderer, resolver,
		marker.WithLogger(logging.Component(cfg.Logger, "marker")),
		marker.WithMissingCover(func(string, string) { m.IncCoversMissing() }),
	)

	s.services = &api.Services{
		Albums:   service.NewAlbumService(cfg.DataDir, bus),
		Covers:   covers,
		Regions:  region.NewIndex(),
		Factory:  factory,
		Settings: cfg.Settings,
		Metrics:  m,
		Logger:   logging.Component(cfg.Logger, "api"),
	}
	s.registry = gallery.NewRegistry(gallery.Deps{
		Albums:   s.services.Albums,
		Regions:  s.services.Regions,
		Factory:  factory,
		Renderer: renderer,
		Settings: cfg.Settings,
		Bus:      bus,
		Clock:    cfg.Clock,
		Logger:   cfg.Logger,
		Metrics:  m,
	})

	s.routes()
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// OpenAPI returns the generated API description.
func (s *Server) OpenAPI() *huma.OpenAPI {
	return s.humaAPI.OpenAPI()
}

// Regions is the boundary index the server searches and flies to.
func (s *Server) Regions() *region.Index {
	return s.services.Regions
}

// Sessions returns the number of connected map sessions.
func (s *Server) Sessions() int {
	return s.registry.Len()
}

// LoadBoundaries fetches the configured boundary GeoJSON once. A failed
// fetch is logged and leaves the index empty; markers keep working. Only
// cancellation is returned.
func (s *Server) LoadBoundaries(ctx context.Context, client *http.Client) error {
	src := s.config.Settings.BoundariesURL
	if src == "" {
		return nil
	}
	loader := region.NewLoader(client, logging.Component(s.config.Logger, "boundaries"))
	if err := loader.LoadInto(ctx, s.services.Regions, src); err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return nil
}

// Close closes server resources.
func (s *Server) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Server) routes() {
	// REST routes, discovered through their Register* methods.
	huma.AutoRegister(s.humaAPI, api.NewAPIHandler(s.services))
	api.NewInfoHandler(s.config.DataDir, s.db != nil).RegisterRoutes(s.humaAPI)

	// Datastar SSE routes for the live map.
	galleryapi.NewHandler(s.registry, s.renderer, s.config.Logger).RegisterRoutes(s.humaAPI)

	s.links.Build(s.humaAPI)

	s.mux.Handle("/metrics", promhttp.HandlerFor(s.promReg, promhttp.HandlerOpts{Registry: s.promReg}))
	s.mux.HandleFunc("/gallery", s.handleGallery)
	s.mux.HandleFunc("/", s.handleRoot)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	for _, link := range s.links.Root() {
		w.Header().Add("Link", link)
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"service": "plat-gallery",
		"status":  "running",
		"page":    "/gallery",
	})
}

type pageData struct {
	Session  string
	Signals  string
	Settings template.JS
}

func (s *Server) handleGallery(w http.ResponseWriter, r *http.Request) {
	id := gallery.NewSessionID()
	signals, err := json.Marshal(map[string]any{
		"session":     id,
		"mode":        "browsing",
		"cursor":      "",
		"panelOpen":   false,
		"highlight":   "",
		"query":       "",
		"region":      "",
		"title":       "",
		"description": "",
		"country":     "",
		"cover":       "",
		"error":       "",
		"success":     "",
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	settings, err := json.Marshal(s.config.Settings)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := pageTmpl.Execute(w, pageData{
		Session:  id,
		Signals:  string(signals),
		Settings: template.JS(settings),
	}); err != nil {
		s.logger.Error("render gallery page", "error", err)
	}
}
