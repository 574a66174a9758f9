package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gopkg.in/natefinch/lumberjack.v2"
	"tailscale.com/tsnet"

	"github.com/claude/gymcoach/internal/config"
	"github.com/claude/gymcoach/internal/events"
	"github.com/claude/gymcoach/internal/genai"
	"github.com/claude/gymcoach/internal/mcp"
	"github.com/claude/gymcoach/internal/metrics"
	"github.com/claude/gymcoach/internal/notify"
	"github.com/claude/gymcoach/internal/restimer"
	"github.com/claude/gymcoach/internal/server"
	"github.com/claude/gymcoach/internal/session"
	"github.com/claude/gymcoach/internal/storage"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	migrateOnly := flag.Bool("migrate-only", false, "run migrations and exit")
	flag.Parse()

	bootLog := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		bootLog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := newLogger(cfg.Log)
	log.Info("GymCoach starting", "version", Version)

	// Run migrations
	dsn := cfg.Database.DSN()
	if err := storage.RunMigrations(dsn, cfg.Database.Migrations); err != nil {
		log.Error("migration failed", "error", err)
		os.Exit(1)
	}
	log.Info("migrations applied")

	if *migrateOnly {
		log.Info("migrate-only: exiting")
		return
	}

	// Connect database
	ctx := context.Background()
	db, err := storage.New(ctx, dsn, cfg.Database.MaxConns)
	if err != nil {
		log.Error("failed to connect database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	log.Info("database connected")

	// Draft storage
	sessions, err := openSessions(cfg.Session, log)
	if err != nil {
		log.Error("failed to open session store", "backend", cfg.Session.Backend, "error", err)
		os.Exit(1)
	}
	defer sessions.Close()
	log.Info("session store ready", "backend", cfg.Session.Backend)

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewManager("gymcoach", "server", reg)

	// Model access
	models := genai.Models{
		Menu:         cfg.AI.MenuModel,
		Alternatives: cfg.AI.AlternativesModel,
		Question:     cfg.AI.QuestionModel,
	}
	coach := genai.NewCoach(genai.NewClient(cfg.AI.BaseURL, cfg.AI.APIKey, cfg.AI.Timeout), models, log)

	// Rest timers report expiry to the notifier
	notifier := notify.New(db, m, log)
	timers := restimer.NewRegistry(restimer.SystemClock{}, cfg.Timer.Rest, func(userID string) {
		m.CounterTimers.WithLabelValues("expired").Inc()
		notifier.RestOver(userID)
	})
	defer timers.Stop()

	// Events
	var publisher events.Publisher = events.Noop{}
	if len(cfg.Events.Brokers) > 0 {
		producer := events.NewKafkaProducer(cfg.Events.Brokers)
		publisher = events.NewKafkaPublisher(producer, cfg.Events.TopicPrefix, m)
		log.Info("event publishing enabled", "brokers", strings.Join(cfg.Events.Brokers, ","))
	}
	defer publisher.Close()

	mcpServer := mcp.New(mcp.LocalSource{DB: db, Sessions: sessions}, Version, log)

	deps := server.Deps{
		DB:             db,
		Coach:          coach,
		Models:         models,
		Sessions:       sessions,
		Timers:         timers,
		Notifier:       notifier,
		Events:         publisher,
		Metrics:        m,
		Log:            log,
		MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		MCP:            mcp.NewHTTPHandler(mcpServer, server.UserIDFromContext),
	}

	// Start server: tsnet or plain HTTP
	var listener net.Listener
	var tsServer *tsnet.Server

	if cfg.Tailscale.Enabled {
		tsServer = &tsnet.Server{
			Hostname: cfg.Tailscale.Hostname,
			Dir:      cfg.Tailscale.StateDir,
		}
		if err := tsServer.Start(); err != nil {
			log.Error("tsnet start failed", "error", err)
			os.Exit(1)
		}
		defer tsServer.Close()

		lc, err := tsServer.LocalClient()
		if err != nil {
			log.Error("tsnet local client failed", "error", err)
			os.Exit(1)
		}
		deps.Identity = server.TailscaleIdentity(lc, db)

		listener, err = tsServer.Listen("tcp", ":80")
		if err != nil {
			log.Error("tsnet listen failed", "error", err)
			os.Exit(1)
		}
		log.Info("tsnet server starting", "hostname", cfg.Tailscale.Hostname)
	} else {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		listener, err = net.Listen("tcp", addr)
		if err != nil {
			log.Error("listen failed", "addr", addr, "error", err)
			os.Exit(1)
		}
		mode := "dev (no tailscale)"
		if cfg.Auth.JWTSecret != "" {
			mode = "jwt"
		}
		log.Info("server starting", "addr", addr, "mode", mode)
	}

	// A JWT secret takes precedence over the tailnet identity.
	switch {
	case cfg.Auth.JWTSecret != "":
		deps.Identity = server.JWTAuth(server.JWTConfig{Secret: cfg.Auth.JWTSecret, Issuer: cfg.Auth.JWTIssuer})
	case deps.Identity == nil:
		deps.Identity = server.DevIdentity(cfg.Auth.DevUser)
	}

	srv := server.New(deps)
	httpSrv := &http.Server{Handler: srv, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		if err := httpSrv.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("shutting down", "signal", sig)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
	}
	log.Info("server stopped")
}

// newLogger writes text logs to stdout, and also to a rotated file when one
// is configured.
func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}

	var out io.Writer = os.Stdout
	if cfg.File != "" {
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		})
	}
	return slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))
}

func openSessions(cfg config.SessionConfig, log *slog.Logger) (*session.Store, error) {
	var backend session.Backend
	switch cfg.Backend {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("pinging redis: %w", err)
		}
		backend = session.NewRedis(client, cfg.RedisPrefix)
	default:
		sqlite, err := session.OpenSQLite(cfg.Path)
		if err != nil {
			return nil, err
		}
		backend = sqlite
	}
	return session.NewStore(backend, log), nil
}
