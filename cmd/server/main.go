package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"memberdesk/internal/adapters/backend"
	emailPkg "memberdesk/internal/adapters/email"
	web "memberdesk/internal/adapters/http"
	"memberdesk/internal/adapters/http/perf"
	"memberdesk/internal/adapters/storage"
	auditStore "memberdesk/internal/adapters/storage/audit"
	"memberdesk/internal/adapters/storage/session"
	"memberdesk/internal/application/orchestrators"
	"memberdesk/internal/config"
	"memberdesk/internal/logging"
	"memberdesk/internal/metrics"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	logging.Setup(cfg.LogLevel)

	db, err := storage.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()
	schema, _ := storage.SchemaVersion(db)
	slog.Info("database_ready", "path", cfg.DBPath, "schema", schema)

	// Performance instrumentation: wrap DB with timing, create collector
	collector := perf.NewCollector(perf.DefaultRingSize)
	timedDB := storage.NewTimedDB(db, collector, cfg.SlowQueryMs)
	m := metrics.New(nil)

	secret := cfg.SessionSecret
	if secret == "" {
		secret = uuid.NewString()
		slog.Warn("session_secret_random", "hint", "set MEMBERDESK_SESSION_SECRET so sessions survive restarts")
	}
	sealer, err := session.NewSealer(secret)
	if err != nil {
		log.Fatalf("failed to create session sealer: %v", err)
	}
	sessions := session.NewStore(timedDB, sealer, cfg.SessionTTL)

	client, err := backend.NewClient(
		backend.Config{BaseURL: cfg.APIURL, Timeout: cfg.APITimeout},
		backend.WithObserver(collector),
		backend.WithObserver(m),
	)
	if err != nil {
		log.Fatalf("failed to create backend client: %v", err)
	}

	// Configure email sender
	var sender emailPkg.Sender
	if cfg.EmailDispatch == config.DispatchResend {
		sender = emailPkg.NewResendSender(cfg.ResendKey, cfg.ResendFrom)
		slog.Info("email_sender", "dispatch", cfg.EmailDispatch, "from", cfg.ResendFrom)
	} else {
		sender = emailPkg.NewNoopSender()
		slog.Info("email_sender", "dispatch", cfg.EmailDispatch)
	}

	// Expired sessions are removed hourly
	stopCh := make(chan struct{})
	orchestrators.StartSessionPurger(sessions, time.Hour, stopCh)
	defer close(stopCh)

	handler, err := web.NewMux(&web.Deps{
		Backend:  client,
		Sessions: sessions,
		Audit:    auditStore.NewSQLiteStore(timedDB),
		Perf:     collector,
		Metrics:  m,
		Sender:   sender,
		Config:   cfg,
	})
	if err != nil {
		log.Fatalf("failed to build handler: %v", err)
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.APITimeout + 30*time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		slog.Info("server_starting", "version", version, "addr", cfg.Addr, "env", cfg.Env, "api", cfg.APIURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	slog.Info("server_stopping")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server_shutdown_failed", "error", err)
	}
}
