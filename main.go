package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wfunc/mrxserver/config"
	"github.com/wfunc/mrxserver/gamemap"
	"github.com/wfunc/mrxserver/logger"
	"github.com/wfunc/mrxserver/monitor"
	"github.com/wfunc/mrxserver/persistence"
	"github.com/wfunc/mrxserver/server"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Init("info")
		logger.Log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Init(cfg.Log.Level)
	defer logger.Sync()

	rules, err := cfg.Rules()
	if err != nil {
		logger.Log.Fatalf("Invalid game rules: %v", err)
	}

	gmap := gamemap.Default()
	if cfg.Game.MapFile != "" {
		gmap, err = gamemap.Load(cfg.Game.MapFile)
		if err != nil {
			logger.Log.Fatalf("Failed to load map %s: %v", cfg.Game.MapFile, err)
		}
	}
	if n := len(gmap.StartNodes()); n < rules.MaxPlayers {
		logger.Log.Fatalf("Map has %d start nodes, need at least %d", n, rules.MaxPlayers)
	}

	// Initialize Database
	db, err := persistence.Open(cfg.Database)
	if err != nil {
		logger.Log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()
	logger.Log.Infof("Database ready (driver=%s)", cfg.Database.Driver)

	// Initialize Game Server
	gameServer, err := server.NewGameServer(server.Options{
		HTTPAddress:   cfg.Server.HTTPAddress,
		RPCAddress:    cfg.Server.RPCAddress,
		Rules:         rules,
		Map:           gmap,
		TurnTimeLimit: cfg.Game.TurnTimeLimit,
		WriteTimeout:  cfg.Server.WriteTimeout,
		Database:      db,
		Monitor:       monitor.NewMonitor(cfg.Server.MetricsNamespace),
	})
	if err != nil {
		logger.Log.Fatalf("Failed to create server: %v", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- gameServer.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			logger.Log.Fatalf("Failed to start server: %v", err)
		}
	case sig := <-quit:
		logger.Log.Infof("Received %s, shutting down", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := gameServer.Shutdown(ctx); err != nil {
		logger.Log.Errorf("Shutdown: %v", err)
	}
}
