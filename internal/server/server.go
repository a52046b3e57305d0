// Package server собирает HTTP сервер трекера задач: хранилище, сервисы,
// handlers, middleware и фоновую отправку писем.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/iudanet/tasktracker/internal/crypto"
	"github.com/iudanet/tasktracker/internal/server/auth"
	"github.com/iudanet/tasktracker/internal/server/config"
	"github.com/iudanet/tasktracker/internal/server/handlers"
	"github.com/iudanet/tasktracker/internal/server/mail"
	"github.com/iudanet/tasktracker/internal/server/metrics"
	"github.com/iudanet/tasktracker/internal/server/middleware"
	"github.com/iudanet/tasktracker/internal/server/storage/sqlite"
	"github.com/iudanet/tasktracker/internal/server/tasks"
	"github.com/iudanet/tasktracker/internal/server/users"
)

// shutdownTimeout время на завершение активных запросов при остановке
const shutdownTimeout = 10 * time.Second

// Server HTTP сервер со всеми зависимостями
type Server struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *sqlite.Storage
	metrics *metrics.Metrics
	limiter *middleware.RateLimiter
	worker  *mail.Worker
	handler http.Handler
	http    *http.Server
}

// New открывает хранилище и собирает сервер. Ресурсы освобождаются в Close.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, version string) (*Server, error) {
	store, err := sqlite.New(ctx, cfg.DB.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	m := metrics.New()

	var sender mail.Sender
	if cfg.SMTP.Host != "" {
		sender = mail.NewSMTPSender(mail.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			Sender:   cfg.SMTP.Sender,
		})
	} else {
		logger.Warn("SMTP host is not configured, emails will be written to the log")
		sender = mail.NewLogSender(logger)
	}

	outbox := mail.NewOutbox(logger, store)

	workerCfg := mail.DefaultWorkerConfig()
	workerCfg.PollInterval = cfg.Mail.PollInterval
	workerCfg.MaxAttempts = cfg.Mail.MaxAttempts
	worker := mail.NewWorker(logger, workerCfg, store, sender, outbox.Notify())
	worker.SetRecorder(m)

	tokens := auth.NewTokenService([]byte(cfg.Auth.Secret), store, store)

	userSvc, err := users.NewService(logger, store, tokens, crypto.NewPasswordHasher(cfg.Auth.BcryptCost), outbox)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to create user service: %w", err)
	}
	taskSvc := tasks.NewService(logger, store)

	limiter := middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	if err := limiter.TrustProxies(cfg.RateLimit.TrustedProxies); err != nil {
		limiter.Stop()
		_ = store.Close()
		return nil, fmt.Errorf("failed to configure rate limiter: %w", err)
	}

	s := &Server{
		cfg:     cfg,
		logger:  logger,
		store:   store,
		metrics: m,
		limiter: limiter,
		worker:  worker,
	}

	s.handler = s.routes(routeDeps{
		users:  handlers.NewUserHandler(logger, userSvc),
		tasks:  handlers.NewTaskHandler(logger, taskSvc),
		health: handlers.NewHealthHandler(logger, store, version),
		tokens: tokens,
	})

	s.http = &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      s.handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	return s, nil
}

// Handler возвращает корневой http.Handler со всеми middleware
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run запускает фоновую отправку писем и HTTP сервер и блокируется до отмены ctx.
// После отмены активные запросы получают shutdownTimeout на завершение.
func (s *Server) Run(ctx context.Context) error {
	s.worker.Start(ctx)
	defer s.worker.Stop()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", slog.String("addr", s.cfg.HTTP.Addr))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown http server: %w", err)
	}

	return nil
}

// Close останавливает rate limiter и закрывает хранилище
func (s *Server) Close() error {
	s.limiter.Stop()
	return s.store.Close()
}
