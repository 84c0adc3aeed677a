package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/zaltra000/mihrab-sala/internal/config"
	"github.com/zaltra000/mihrab-sala/internal/geo"
	"github.com/zaltra000/mihrab-sala/internal/mqtt"
	"github.com/zaltra000/mihrab-sala/internal/prayertime"
	"github.com/zaltra000/mihrab-sala/internal/pushover"
	"github.com/zaltra000/mihrab-sala/internal/recommend"
	"github.com/zaltra000/mihrab-sala/internal/scheduler"
	"github.com/zaltra000/mihrab-sala/internal/storage"
	"github.com/zaltra000/mihrab-sala/internal/web"
	"github.com/zaltra000/mihrab-sala/internal/worker"
)

func main() {
	// Setup structured logger (JSON handler)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load Config
	configPath := os.Getenv("MIHRAB_CONFIG")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
		slog.Warn("Unknown log level, using info", "level", cfg.Log.Level)
		level = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	loc, err := cfg.App.Location()
	if err != nil {
		slog.Error("Invalid timezone", "timezone", cfg.App.Timezone, "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init Storage
	backend, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		slog.Error("Failed to open storage", "driver", cfg.Storage.Driver, "error", err)
		os.Exit(1)
	}
	store := storage.NewStore(backend)
	if err := store.Load(ctx); err != nil {
		slog.Error("Failed to load storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	// Init Senders
	senders := []worker.Sender{pushover.NewSender()}
	if cfg.MQTT.Broker != "" {
		mqttSender, err := mqtt.Connect(cfg.MQTT)
		if err != nil {
			slog.Warn("MQTT delivery disabled", "broker", cfg.MQTT.Broker, "error", err)
		} else {
			defer mqttSender.Close()
			senders = append(senders, mqttSender)
		}
	}

	// Init Worker and Scheduler
	w := worker.NewWorker(store, cfg.Dispatcher, senders...)
	calc := prayertime.Astronomical{}
	sched := scheduler.New(store, calc, w, cfg.Scheduler, loc)
	// Each delivery shortens the horizon; resync to keep it rolling.
	w.SetOnUpdate(sched.Trigger)

	go w.Start(ctx)
	go sched.Run(ctx)

	// Init Web Server
	gin.SetMode(gin.ReleaseMode)
	srv := web.NewServer(web.Deps{
		Store:       store,
		Scheduler:   sched,
		Calculator:  calc,
		Locator:     geo.NewLocator(cfg.Geo),
		Engine:      recommend.NewEngine(nil),
		Location:    loc,
		CORSOrigins: cfg.Server.CORSOrigins,
	})
	httpServer := &http.Server{
		Addr:              cfg.Server.Port,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start HTTP Server
	go func() {
		slog.Info("Starting server", "port", cfg.Server.Port, "url", "http://localhost"+cfg.Server.Port, "storage", cfg.Storage.Driver)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down...")
	cancel() // Stop worker and scheduler

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}
	slog.Info("Server exited")
}
