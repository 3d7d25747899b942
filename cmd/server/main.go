package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"focusdeck/internal/clock"
	"focusdeck/internal/config"
	"focusdeck/internal/focus"
	"focusdeck/internal/realtime"
	"focusdeck/internal/store"
)

const appName = "focusdeck"

// applyEnv layers environment-variable overrides on top of the settings
// file.
func applyEnv(cfg *config.Settings) {
	if v := os.Getenv("PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Port = n
		}
	}
	if v := os.Getenv("STATIC_DIR"); v != "" {
		cfg.StaticDir = v
	}
	if v := os.Getenv("SNAPSHOT_PATH"); v != "" {
		cfg.SnapshotPath = v
	}
	if v := os.Getenv("WORK_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.WorkDuration = time.Duration(n) * time.Minute
		}
	}
	if v := os.Getenv("BREAK_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.BreakDuration = time.Duration(n) * time.Minute
		}
	}
	if v := os.Getenv("TICK_INTERVAL_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.TickInterval = time.Duration(n) * time.Millisecond
		}
	}
}

func main() {
	cfg, err := config.Load(appName)
	if err != nil {
		log.Printf("settings: %v (using defaults)", err)
	}
	applyEnv(&cfg)

	// Initialize the focus engine.
	engine := focus.NewEngine(clock.System(), focus.Options{
		WorkDuration:  cfg.WorkDuration,
		BreakDuration: cfg.BreakDuration,
		TickInterval:  cfg.TickInterval,
	})

	// Hydrate from the shared snapshot and keep it in sync.
	bridge, err := store.Open(cfg.SnapshotPath, engine)
	if err != nil {
		log.Fatalf("open snapshot store: %v", err)
	}

	// Initialize the realtime server and route external snapshot changes
	// to connected clients.
	rtServer := realtime.New(engine, bridge, cfg.StaticDir, appName)
	bridge.SetRefreshCallback(rtServer.OnSnapshotRefresh)

	if err := bridge.Watch(); err != nil {
		log.Fatalf("watch snapshot: %v", err)
	}

	engine.Run()

	// Set up HTTP server.
	addr := fmt.Sprintf(":%d", cfg.Port)
	httpServer := &http.Server{
		Addr:    addr,
		Handler: rtServer.Handler(),
	}

	// Graceful shutdown on signals.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		log.Println("Shutting down...")
		engine.Close()
		bridge.Close()
		httpServer.Close()
	}()

	log.Printf("focusdeck running on http://localhost:%d (snapshot: %s)", cfg.Port, cfg.SnapshotPath)
	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("HTTP server error: %v", err)
	}
}
