// Package server initializes and runs the chatline application: it opens
// the database, applies migrations, wires the services and the websocket
// hub together, and handles graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	"github.com/dmitrijs2005/chatline/internal/logging"
	"github.com/dmitrijs2005/chatline/internal/server/auth"
	"github.com/dmitrijs2005/chatline/internal/server/config"
	"github.com/dmitrijs2005/chatline/internal/server/httpapi"
	"github.com/dmitrijs2005/chatline/internal/server/hub"
	"github.com/dmitrijs2005/chatline/internal/server/mail"
	"github.com/dmitrijs2005/chatline/internal/server/messages"
	"github.com/dmitrijs2005/chatline/internal/server/repositories/repomanager"
	sessionsrepo "github.com/dmitrijs2005/chatline/internal/server/repositories/sessions"
	"github.com/dmitrijs2005/chatline/internal/server/sessions"
)

const hubShutdownTimeout = 5 * time.Second

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	hub    *hub.Hub
	server *httpapi.Server
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {

	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	// Sessions live in Redis when an address is configured, otherwise in
	// the same Postgres instance as everything else.
	var sessionStore sessionsrepo.Repository
	if cfg.RedisAddr != "" {
		sessionStore = sessionsrepo.NewRedisRepository(redis.NewClient(&redis.Options{Addr: cfg.RedisAddr}))
		logger.Info(ctx, "Using redis session store", "address", cfg.RedisAddr)
	} else {
		sessionStore = rm.Sessions(db)
	}

	var notifier mail.Notifier
	if cfg.SMTPHost != "" {
		notifier, err = mail.NewSMTPNotifier(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.MailFrom)
		if err != nil {
			return nil, fmt.Errorf("smtp init error: %w", err)
		}
	} else {
		logger.Warn(ctx, "SMTP is not configured, verification codes will be logged")
		notifier = mail.NewLogNotifier(logger)
	}

	authService := auth.NewService(rm.Users(db), notifier, auth.NewBcryptVerifier(cfg.BcryptCost), logger)
	sessionManager := sessions.NewManager(sessionStore, cfg.SessionValidityDuration)
	codec := sessions.NewCookieCodec(cfg.SessionSecret)

	h := hub.NewHub(logger)
	messageService := messages.NewService(rm.Messages(db), h)

	srv := httpapi.NewServer(cfg.Addr, logger, authService, sessionManager, codec,
		messageService, h, cfg.SessionValidityDuration)

	return &App{config: cfg, logger: logger, db: db, hub: h, server: srv}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run serves until the context is cancelled or a termination signal
// arrives, then stops the HTTP server, drains the hub, and closes the
// database.
func (app *App) Run(ctx context.Context) error {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	go app.hub.Run()

	err := app.server.Run(ctx)

	if shutdownErr := app.hub.Shutdown(hubShutdownTimeout); shutdownErr != nil {
		app.logger.Error(ctx, "hub shutdown", "error", shutdownErr.Error())
	}
	if closeErr := app.db.Close(); closeErr != nil {
		app.logger.Error(ctx, "db close", "error", closeErr.Error())
	}

	return err
}
