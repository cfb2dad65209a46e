package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/xiaot623/gogo/simulator/internal/adapter/engine"
	"github.com/xiaot623/gogo/simulator/internal/config"
	"github.com/xiaot623/gogo/simulator/internal/hub"
	"github.com/xiaot623/gogo/simulator/internal/logging"
	"github.com/xiaot623/gogo/simulator/internal/registry"
	"github.com/xiaot623/gogo/simulator/internal/repository"
	"github.com/xiaot623/gogo/simulator/internal/service"
	handler "github.com/xiaot623/gogo/simulator/internal/transport/http"
	"github.com/xiaot623/gogo/simulator/internal/transport/rpc"
	"github.com/xiaot623/gogo/simulator/internal/transport/ws"
	"github.com/xiaot623/gogo/simulator/policy"
)

func main() {
	// Load configuration
	cfg := config.Load()

	logger := logging.New(logging.Options{
		Level:  logging.ParseLevel(cfg.LogLevel),
		Format: cfg.LogFormat,
	})

	logger.Info("starting simulator",
		"version", cfg.AppVersion,
		"http_port", cfg.HTTPPort,
		"rpc_port", cfg.RPCPort,
		"engine", cfg.EngineProvider,
		"simulations_dir", cfg.SimulationsDir,
	)
	for _, issue := range cfg.Validate() {
		logger.Warn("configuration issue", "issue", issue)
	}

	// Initialize stores
	db, err := store.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to initialize store", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	simulations, err := store.NewFileStore(cfg.SimulationsDir, logger)
	if err != nil {
		logger.Error("failed to initialize simulation store", "error", err)
		os.Exit(1)
	}

	// Initialize engine
	eng, err := engine.New(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize engine", "error", err)
		os.Exit(1)
	}

	// Initialize policy engine
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	policyEngine, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	if err != nil {
		logger.Error("failed to initialize policy engine", "error", err)
		os.Exit(1)
	}

	// Live updates
	liveHub := hub.NewHub(logger)
	hubCtx, stopHub := context.WithCancel(context.Background())
	go liveHub.Run(hubCtx)

	// Initialize service
	svc := service.New(simulations, db, eng, cfg, policyEngine,
		service.WithRegistry(registry.New()),
		service.WithNotifier(liveHub),
		service.WithLogger(logger),
	)

	if cfg.ReconcileOnStartup {
		n, err := svc.ReconcileOrphans(ctx)
		if err != nil {
			logger.Error("failed to reconcile orphaned simulations", "error", err)
		} else if n > 0 {
			logger.Warn("reconciled orphaned simulations", "count", n)
		}
	}

	// Servers
	wsServer := ws.NewServer(cfg, liveHub, svc, logger)
	httpServer := handler.NewServer(svc, cfg, wsServer)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := httpServer.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Error("http server failed", "error", err)
			stop()
		}
	}()

	var rpcServer *rpc.Server
	if cfg.RPCPort > 0 {
		rpcServer, err = rpc.NewServer(svc, logger)
		if err != nil {
			logger.Error("failed to initialize rpc server", "error", err)
			os.Exit(1)
		}
		go func() {
			if err := rpcServer.Start(fmt.Sprintf(":%d", cfg.RPCPort)); err != nil {
				logger.Error("rpc server failed", "error", err)
				stop()
			}
		}()
	}

	logger.Info("simulator started", "engine", svc.EngineName())

	<-ctx.Done()
	logger.Info("shutting down simulator")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("failed to shutdown http server gracefully", "error", err)
	}
	if rpcServer != nil {
		if err := rpcServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("failed to shutdown rpc server gracefully", "error", err)
		}
	}
	if err := svc.Wait(shutdownCtx); err != nil {
		for _, id := range svc.Registry().IDs() {
			if h, ok := svc.Registry().Get(id); ok {
				logger.Warn("simulation still running at shutdown",
					"simulation_id", id,
					"running_for", time.Since(h.StartedAt).String(),
				)
			}
		}
	}
	stopHub()

	logger.Info("simulator stopped")
}
