package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"vttrelay/internal/auth"
	"vttrelay/internal/config"
	"vttrelay/internal/http/http_server"
	"vttrelay/internal/iceservers"
	"vttrelay/internal/monitor"
	"vttrelay/internal/services/gameroom"
	"vttrelay/internal/ws"
)

var (
	Log, _ = zap.NewDevelopment()
)

func main() {
	defer Log.Sync()
	zap.ReplaceGlobals(Log)

	// 1. Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		Log.Fatal("Failed to load configuration", zap.Error(err))
	}
	Log.Debug("Configuration loaded successfully", zap.Any("config", cfg))

	originPattern, err := cfg.OriginPattern()
	if err != nil {
		Log.Fatal("Failed to compile allowed-origin pattern", zap.Error(err))
	}

	// 2. Context with signal handling
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGINT, syscall.SIGTERM,
	)
	defer stop()

	// 3. ICE server config, read once; an empty list just means clients
	// fall back to direct connections.
	iceList, err := iceservers.Load(cfg.IceConfigPath)
	if err != nil {
		Log.Warn("ICE config unavailable, serving empty list", zap.Error(err))
		iceList = []iceservers.Server{}
	}

	// 4. Core state: room store, broadcast hub, password hasher, metrics.
	metrics := monitor.NewMetrics("vttrelay", prometheus.DefaultRegisterer)
	store := gameroom.NewStore()
	hub := ws.NewHub()
	hasher := auth.NewBcryptHasher(cfg.BcryptCost)

	// 5. WS server
	wsSrv := ws.NewWsServer(hub, store, hasher, metrics, originPattern)

	// 6. HTTP + WS server
	grace := time.Duration(cfg.ShutdownGraceSeconds) * time.Second
	httpServer := http_server.NewHttpServer(ctx, cfg.HttpServerPort, wsSrv, iceList, grace)

	errCh := make(chan error, 1)
	go func() { errCh <- httpServer.Start() }()
	Log.Info("Server started", zap.Uint16("port", cfg.HttpServerPort))

	select {
	case err := <-errCh:
		Log.Fatal("HTTP server failed", zap.Error(err))
	case <-ctx.Done():
	}

	// 7. Shutdown: stop accepting, tell connected clients to go away, then
	// force-exit if close does not complete within the grace period.
	Log.Info("Shutting down", zap.Duration("grace", grace))
	forceExit := time.AfterFunc(grace, func() {
		Log.Error("Shutdown grace period expired, forcing exit")
		os.Exit(1)
	})
	hub.CloseAll("server shutting down")
	if err := httpServer.Dispose(); err != nil {
		Log.Error("Shutdown incomplete", zap.Error(err))
	}
	forceExit.Stop()
}
