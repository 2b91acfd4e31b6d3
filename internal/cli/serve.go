// Package cli holds the operator-facing entry points invoked from main.go,
// the same split the teacher keeps between command parsing/wiring here
// and the domain packages underneath.
package cli

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okdaichi/netslice/internal/api"
	"github.com/okdaichi/netslice/internal/config"
	"github.com/okdaichi/netslice/internal/lifecycle"
	"github.com/okdaichi/netslice/internal/observability"
	"github.com/okdaichi/netslice/internal/registry"
	"github.com/okdaichi/netslice/internal/rules"
	"github.com/okdaichi/netslice/internal/topology"
)

const auditInterval = 30 * time.Second

// RunServe starts the netslice controller: loads configuration, wires
// the domain packages, and serves the Control API until interrupted.
func RunServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configFile := fs.String("config", "config.netslice.yaml", "path to config file")
	fs.Parse(args)

	cfg, err := config.Load(*configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	switchDriver, err := cfg.BuildSwitchDriver()
	if err != nil {
		return fmt.Errorf("failed to build switch driver: %w", err)
	}
	shaper, err := cfg.BuildShaper()
	if err != nil {
		return fmt.Errorf("failed to build shaper: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := observability.Setup(ctx, observability.Config{
		Service:   cfg.ServiceName,
		TraceAddr: cfg.TraceAddr,
		Metrics:   cfg.EnableMetrics,
	}); err != nil {
		return fmt.Errorf("failed to set up observability: %w", err)
	}
	defer observability.Shutdown(context.Background())

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	manager := lifecycle.NewManager(
		cfg.Graph, cfg.Catalog, cfg.Hosts, topology.NewHopPlanner(),
		rules.NewProgrammer(switchDriver), shaper, registry.NewTable(), logger,
	)
	manager.StartAuditor(ctx, auditInterval)

	mux := http.NewServeMux()
	api.RegisterHandlers(mux, manager)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, `{"status":"ok"}`)
	})
	if cfg.EnableMetrics {
		mux.Handle("/metrics", promhttp.Handler())
	}

	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: mux,
	}

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("HTTP server error: %v", err)
		}
	}()

	log.Printf("netslice controller started on %s", cfg.ListenAddr)
	log.Println("  POST /slice/<name>/activate    - admit and program a slice")
	log.Println("  POST /slice/<name>/deactivate  - tear down an active slice")
	log.Println("  GET  /slices/status            - active slices and link utilization")
	log.Println("  GET  /health                   - health check")
	if cfg.EnableMetrics {
		log.Println("  GET  /metrics                   - Prometheus metrics")
	}

	<-ctx.Done()
	cancel()

	slog.Info("shutting down netslice controller")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("error shutting down HTTP server: %v", err)
	}

	slog.Info("netslice controller stopped")
	return nil
}
