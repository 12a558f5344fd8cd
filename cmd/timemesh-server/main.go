package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"timemesh/backend/internal/config"
	"timemesh/backend/internal/service/calendars"
	"timemesh/backend/internal/service/chat"
	"timemesh/backend/internal/service/events"
	"timemesh/backend/internal/service/feed"
	"timemesh/backend/internal/service/friends"
	"timemesh/backend/internal/service/invites"
	"timemesh/backend/internal/store/postgres"
	transporthttp "timemesh/backend/internal/transport/http"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})).With(
		slog.String("service", "timemesh-server"),
	)
	slog.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		log.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}

	log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLogLevel(cfg.LogLevel)})).With(
		slog.String("service", "timemesh-server"),
	)
	slog.SetDefault(log)

	log.Info("starting", slog.String("http_addr", cfg.HTTPAddr()), slog.String("log_level", cfg.LogLevel))

	loc, err := time.LoadLocation(cfg.DefaultTimezone)
	if err != nil {
		log.Error("invalid default timezone", slog.Any("err", err), slog.String("tz", cfg.DefaultTimezone))
		os.Exit(1)
	}

	log.Info("connecting to database", databaseLogArgs(cfg.DatabaseURL)...)
	db, err := postgres.Open(cfg.DatabaseURL, postgres.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
	})
	if err != nil {
		args := append([]any{slog.Any("err", err)}, databaseLogArgs(cfg.DatabaseURL)...)
		log.Error("database connection failed", args...)
		os.Exit(1)
	}
	defer func() {
		if err := postgres.Close(db); err != nil {
			log.Warn("database close failed", slog.Any("err", err))
		}
	}()

	eventRepo := postgres.NewEventRepo(db)
	calendarRepo := postgres.NewCalendarRepo(db)
	userRepo := postgres.NewUserRepo(db)
	friendRepo := postgres.NewFriendRepo(db)
	inviteRepo := postgres.NewInviteRepo(db)

	chatCfg := chat.DefaultConfig()
	chatCfg.BaseURL = cfg.ChatBaseURL
	chatCfg.APIKey = cfg.ChatAPIKey
	chatCfg.Model = cfg.ChatModel
	chatCfg.Referer = cfg.ChatReferer
	chatCfg.Title = cfg.ChatTitle
	chatCfg.MaxPromptChars = cfg.ChatMaxPromptChars
	chatCfg.Location = loc

	server := transporthttp.NewServer(transporthttp.ServerConfig{
		Feed:      feed.NewService(calendarRepo, eventRepo, log, cfg.MaxOccurrences),
		Events:    events.NewService(eventRepo, calendarRepo, cfg.MaxOccurrences),
		Calendars: calendars.NewService(calendarRepo),
		Friends:   friends.NewService(friendRepo, userRepo),
		Invites: invites.NewService(inviteRepo, calendarRepo, userRepo,
			&invites.LogMailer{From: cfg.InviteSenderAddress, Log: log}, log),
		Chat: chat.NewService(chatCfg, &http.Client{Timeout: 60 * time.Second}, eventRepo, calendarRepo, log),
		Ready: func(ctx context.Context) error {
			return db.PingContext(ctx)
		},
		Location: loc,
		Log:      log,
	})

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           server.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.RequestTimeout,
		WriteTimeout:      cfg.RequestTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	log.Info("http server started", slog.String("http_addr", cfg.HTTPAddr()))

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
		shutdown(log, httpServer, cfg.ShutdownTimeout)
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server stopped with error", slog.Any("err", err))
			os.Exit(1)
		}
	}
}

func shutdown(log *slog.Logger, s *http.Server, timeout time.Duration) {
	log.Info("shutting down http server", slog.Duration("timeout", timeout))

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := s.Shutdown(ctx); err != nil {
		log.Warn("http graceful shutdown timed out; forcing close", slog.Any("err", err))
		_ = s.Close()
		return
	}
	log.Info("http server stopped")
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func databaseLogArgs(databaseURL string) []any {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return []any{slog.String("db_url", "invalid")}
	}
	name := strings.TrimPrefix(u.Path, "/")
	host := u.Hostname()
	port := u.Port()
	if port == "" {
		port = "default"
	}
	if host == "" {
		host = "unknown"
	}
	if name == "" {
		name = "unknown"
	}
	return []any{
		slog.String("db_host", host),
		slog.String("db_port", port),
		slog.String("db_name", name),
	}
}
