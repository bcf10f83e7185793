package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/joeblew999/plat-gallery/internal/api"
	"github.com/joeblew999/plat-gallery/internal/config"
	"github.com/joeblew999/plat-gallery/internal/logging"
	"github.com/joeblew999/plat-gallery/internal/server"
)

// Options defines all CLI flags and env vars for the gallery server.
// Flags: --host, --port, --data-dir, --settings, --log-level, --log-format
// Env vars: SERVICE_HOST, SERVICE_PORT, SERVICE_DATA_DIR, SERVICE_SETTINGS, ...
type Options struct {
	Host      string `doc:"Host to bind to" default:"0.0.0.0"`
	Port      int    `doc:"Port to listen on" short:"p" default:"8086"`
	DataDir   string `doc:"Directory for albums and the cover database" default:".data"`
	Settings  string `doc:"Map settings YAML file (tiles, zoom limits, debounce)"`
	LogLevel  string `doc:"Log level: debug, info, warn, error" default:"info"`
	LogFormat string `doc:"Log format: text or json" default:"text"`
}

func newServer(ctx context.Context, opts *Options, logger *slog.Logger) (*server.Server, error) {
	settings, err := config.Load(opts.Settings)
	if err != nil {
		return nil, err
	}
	return server.New(ctx, server.Config{
		Host:     opts.Host,
		Port:     strconv.Itoa(opts.Port),
		DataDir:  opts.DataDir,
		Settings: settings,
		Logger:   logger,
	})
}

func serve(opts *Options) error {
	logger := logging.New(opts.LogLevel, opts.LogFormat, os.Stdout)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := newServer(ctx, opts, logger)
	if err != nil {
		return err
	}
	defer srv.Close()

	addr := net.JoinHostPort(opts.Host, strconv.Itoa(opts.Port))
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
		// Session streams end when the process is asked to stop.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	displayHost := opts.Host
	if displayHost == "0.0.0.0" {
		displayHost = "localhost"
	}
	baseURL := fmt.Sprintf("http://%s:%d", displayHost, opts.Port)
	logger.Info("plat-gallery starting",
		"server", baseURL,
		"page", baseURL+"/gallery",
		"docs", baseURL+"/docs",
		"data", opts.DataDir,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return srv.LoadBoundaries(gctx, nil)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info("shutting down", "sessions", srv.Sessions())
		return httpSrv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func main() {
	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		hooks.OnStart(func() {
			if err := serve(opts); err != nil {
				fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
				os.Exit(1)
			}
		})
	})

	cli.Root().Use = "gallery"
	cli.Root().Short = "Photo album map with live marker rendering"
	cli.Root().Version = api.Version

	// spec subcommand: export OpenAPI spec
	specCmd := &cobra.Command{
		Use:   "spec",
		Short: "Export OpenAPI spec (JSON by default, --yaml for YAML)",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			quiet := logging.New("error", opts.LogFormat, os.Stderr)
			// Nothing is written to disk for an export.
			opts.DataDir = ""
			srv, err := newServer(cmd.Context(), opts, quiet)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error building server: %v\n", err)
				os.Exit(1)
			}
			defer srv.Close()
			spec := srv.OpenAPI()

			useYAML, _ := cmd.Flags().GetBool("yaml")

			var output []byte
			if useYAML {
				output, err = yaml.Marshal(spec)
			} else {
				output, err = json.MarshalIndent(spec, "", "  ")
			}
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error marshaling spec: %v\n", err)
				os.Exit(1)
			}
			fmt.Println(string(output))
		}),
	}
	specCmd.Flags().BoolP("yaml", "y", false, "Output as YAML instead of JSON")
	cli.Root().AddCommand(specCmd)

	cli.Run()
}
