package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/defistate/defistate-amm-go/cmd/ammd/config"
	"github.com/defistate/defistate-amm-go/differ"
	"github.com/defistate/defistate-amm-go/logging"
	"github.com/defistate/defistate-amm-go/metrics"
	"github.com/defistate/defistate-amm-go/streams/jsonrpc/server"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownTimeout = 5 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	configPath := flag.String("config", envOr("AMM_CONFIG", "config.yaml"), "Path to the configuration file.")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration from %s: %w", *configPath, err)
	}

	rootLogger := logging.NewLogger(os.Stdout, cfg.LogLevel)
	rootLogger.Info("configuration loaded", "path", *configPath, "listen_addr", cfg.ListenAddr, "fee_bps", cfg.Fee())

	// Create a context that cancels when the OS sends an interrupt (Ctrl+C) or termination signal.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	l, f, err := genesis(cfg, rootLogger.With("component", "factory"))
	if err != nil {
		return fmt.Errorf("genesis failed: %w", err)
	}

	stateDiffer, err := differ.NewStateDiffer(&differ.StateDifferConfig{
		Registry: registry,
		Logger:   rootLogger.With("component", "differ"),
	})
	if err != nil {
		return err
	}

	svc, err := server.NewService(&server.Config{
		Ledger:  l,
		Factory: f,
		Metrics: metrics.NewMetrics(registry),
		Differ:  stateDiffer,
		Logger:  rootLogger.With("component", "jsonrpc-server"),
	})
	if err != nil {
		return err
	}

	rpcServer := rpc.NewServer()
	if err := rpcServer.RegisterName(server.RpcNamespace, svc); err != nil {
		return fmt.Errorf("failed to register API: %w", err)
	}
	defer rpcServer.Stop()

	wsHandler := rpcServer.WebsocketHandler([]string{"*"})
	apiServer := &http.Server{
		Addr: cfg.ListenAddr,
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
				wsHandler.ServeHTTP(w, r)
				return
			}
			rpcServer.ServeHTTP(w, r)
		}),
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	metricsServer := &http.Server{Addr: cfg.MetricsAddr, Handler: mux}

	errCh := make(chan error, 2)
	for _, s := range []*http.Server{apiServer, metricsServer} {
		go func(s *http.Server) {
			rootLogger.Info("listening", "addr", s.Addr)
			if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}(s)
	}

	select {
	case <-ctx.Done():
		rootLogger.Info("shutting down")
	case err = <-errCh:
		rootLogger.Error("server error", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	_ = apiServer.Shutdown(shutdownCtx)
	_ = metricsServer.Shutdown(shutdownCtx)
	return err
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
