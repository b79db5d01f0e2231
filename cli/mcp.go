// ABOUTME: MCP server subcommand
// ABOUTME: Serves prospect tools over stdio and optionally exposes Prometheus metrics over HTTP
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/harperreed/prospekt/config"
	"github.com/harperreed/prospekt/handlers"
	"github.com/harperreed/prospekt/listview"
	"github.com/harperreed/prospekt/viz"
)

// MCPCommand starts the MCP server on stdio. Logs must not go to stdout.
func MCPCommand(ctx context.Context, cfg *config.Config, logger *log.Logger, version string, out io.Writer, args []string) error {
	fs := newFlagSet("mcp", out)
	metricsAddr := fs.String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9464)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var metrics *listview.Metrics
	if *metricsAddr != "" {
		reg := prometheus.NewRegistry()
		m, err := listview.NewMetrics(reg)
		if err != nil {
			return fmt.Errorf("failed to register metrics: %w", err)
		}
		metrics = m

		ctx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			if err := serveMetrics(ctx, *metricsAddr, reg, logger); err != nil {
				logger.Error("metrics server stopped", "err", err)
			}
		}()
	}

	return WithSession(ctx, cfg, logger, metrics, func(sess *listview.Session) error {
		logger.Info("starting MCP server", "version", version, "backend", cfg.Backend)
		server := handlers.NewServer(sess, version, func(labels []string) *viz.GraphGenerator {
			return viz.NewGraphGenerator(labels, logger)
		})
		return server.Run(ctx, &mcp.StdioTransport{})
	})
}

func serveMetrics(ctx context.Context, addr string, reg *prometheus.Registry, logger *log.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("metrics server shutdown error", "err", err)
		}
	}()

	logger.Info("metrics server started", "addr", addr)
	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}
