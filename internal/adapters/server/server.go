// Package server composes HTTP API and MCP transports into one process handler.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/evanschultz/taskflow/internal/adapters/server/common"
	"github.com/evanschultz/taskflow/internal/adapters/server/httpapi"
	"github.com/evanschultz/taskflow/internal/adapters/server/mcpapi"
	"github.com/evanschultz/taskflow/internal/metrics"
)

const (
	defaultBindAddress     = "127.0.0.1:8080"
	metricsPath            = "/metrics"
	defaultShutdownTimeout = 5 * time.Second
)

// Config defines serve-mode endpoint configuration.
type Config struct {
	HTTPBind      string
	APIEndpoint   string
	MCPEndpoint   string
	ServerName    string
	ServerVersion string
}

// Dependencies defines app-facing adapters required by server transports.
type Dependencies struct {
	Board common.BoardService
	// Metrics is optional; when set, requests are timed and /metrics is mounted.
	Metrics *metrics.Collector
}

// NewHandler composes one root HTTP mux containing health, metrics, REST API, and MCP endpoints.
func NewHandler(cfg Config, deps Dependencies) (http.Handler, Config, error) {
	normalizedCfg, err := cfg.withDefaults()
	if err != nil {
		return nil, Config{}, err
	}
	if deps.Board == nil {
		return nil, Config{}, fmt.Errorf("board dependency is required")
	}

	mcpHandler, err := mcpapi.NewHandler(
		mcpapi.Config{
			ServerName:    normalizedCfg.ServerName,
			ServerVersion: normalizedCfg.ServerVersion,
			EndpointPath:  normalizedCfg.MCPEndpoint,
		},
		deps.Board,
	)
	if err != nil {
		return nil, Config{}, fmt.Errorf("configure mcp handler: %w", err)
	}
	apiHandler := httpapi.NewHandler(deps.Board)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", writeHealthStatus)
	mux.HandleFunc("/readyz", writeHealthStatus)
	mux.Handle(normalizedCfg.MCPEndpoint, mcpHandler)
	mux.Handle(normalizedCfg.APIEndpoint, http.StripPrefix(normalizedCfg.APIEndpoint, apiHandler))
	mux.Handle(normalizedCfg.APIEndpoint+"/", http.StripPrefix(normalizedCfg.APIEndpoint, apiHandler))
	if deps.Metrics == nil {
		return mux, normalizedCfg, nil
	}
	mux.Handle(metricsPath, deps.Metrics.Handler())
	return deps.Metrics.Middleware(routeLabeler(normalizedCfg), mux), normalizedCfg, nil
}

// routeLabeler maps request paths onto a bounded set of metric labels.
func routeLabeler(cfg Config) func(*http.Request) string {
	return func(r *http.Request) string {
		path := r.URL.Path
		switch {
		case path == "/healthz", path == "/readyz", path == metricsPath:
			return path
		case path == cfg.MCPEndpoint, strings.HasPrefix(path, cfg.MCPEndpoint+"/"):
			return cfg.MCPEndpoint
		case path == cfg.APIEndpoint, strings.HasPrefix(path, cfg.APIEndpoint+"/"):
			return cfg.APIEndpoint + "/" + httpapi.RouteLabel(strings.TrimPrefix(path, cfg.APIEndpoint))
		default:
			return "other"
		}
	}
}

// Run serves the composed handler until ctx is cancelled or the listener fails.
func Run(ctx context.Context, cfg Config, deps Dependencies) error {
	if ctx == nil {
		ctx = context.Background()
	}
	handler, resolved, err := NewHandler(cfg, deps)
	if err != nil {
		return fmt.Errorf("build server handler: %w", err)
	}
	srv := &http.Server{
		Addr:              resolved.HTTPBind,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen and serve: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	})
	return group.Wait()
}

func (c Config) withDefaults() (Config, error) {
	c.HTTPBind = cmpOr(strings.TrimSpace(c.HTTPBind), defaultBindAddress)
	c.APIEndpoint = cleanEndpoint(c.APIEndpoint, "/api/v1")
	c.MCPEndpoint = cleanEndpoint(c.MCPEndpoint, "/mcp")
	if c.APIEndpoint == c.MCPEndpoint {
		return Config{}, fmt.Errorf("api and mcp endpoints must differ: both are %q", c.APIEndpoint)
	}
	for _, reserved := range []string{"/healthz", "/readyz", metricsPath} {
		if c.APIEndpoint == reserved || c.MCPEndpoint == reserved {
			return Config{}, fmt.Errorf("endpoint %q is reserved", reserved)
		}
	}
	c.ServerName = cmpOr(strings.TrimSpace(c.ServerName), "taskflow")
	c.ServerVersion = cmpOr(strings.TrimSpace(c.ServerVersion), "dev")
	return c, nil
}

// cleanEndpoint yields "/a/b" for any of "a/b", "/a/b/", " /a/b ".
func cleanEndpoint(path, fallback string) string {
	path = strings.Trim(strings.TrimSpace(path), "/")
	if path == "" {
		return fallback
	}
	return "/" + path
}

func cmpOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func writeHealthStatus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}` + "\n"))
}
