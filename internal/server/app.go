// Package server initializes and runs the identity service: it opens the
// database, runs migrations, wires every component together explicitly and
// serves the HTTP API until the process is signalled to stop.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/dmitrijs2005/userhub/internal/common"
	"github.com/dmitrijs2005/userhub/internal/logging"
	"github.com/dmitrijs2005/userhub/internal/server/auth"
	"github.com/dmitrijs2005/userhub/internal/server/config"
	"github.com/dmitrijs2005/userhub/internal/server/credentials"
	"github.com/dmitrijs2005/userhub/internal/server/identity"
	"github.com/dmitrijs2005/userhub/internal/server/notify"
	"github.com/dmitrijs2005/userhub/internal/server/reconcile"
	"github.com/dmitrijs2005/userhub/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/userhub/internal/server/rest"
	"github.com/dmitrijs2005/userhub/internal/server/unique"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	handler http.Handler
}

func NewApp(cfg *config.Config) (*App, error) {

	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(context.Background(), db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	rnd := common.LockedRand{}

	issuer := auth.NewIssuer([]byte(cfg.SecretKey),
		cfg.AccessTokenValidityDuration, cfg.StateTokenValidityDuration)

	notifier := notify.NewEmailNotifier(notify.SMTPConfig{
		Host:      cfg.SMTPHost,
		Port:      cfg.SMTPPort,
		User:      cfg.SMTPUser,
		Password:  cfg.SMTPPassword,
		FromEmail: cfg.SMTPFrom,
	}, logger)

	creds := credentials.NewService(db, rm, notifier, logger, rnd)

	mode := reconcile.DeferComplete
	if cfg.OAuthEagerComplete {
		mode = reconcile.EagerComplete
	}
	gen := unique.NewGenerator(rm.Users(db), rnd)
	reconciler := reconcile.NewService(db, rm, gen, issuer, notifier, logger, mode)

	orchestrator := identity.NewOrchestrator(creds, reconciler, issuer)
	verifier := reconcile.NewGoogleVerifier(cfg.GoogleClientID)
	handler := rest.NewRouter(rest.NewHandler(orchestrator, verifier, logger))

	return &App{config: cfg, logger: logger, db: db, handler: handler}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "addr", app.config.EndpointAddrHTTP)

	app.initSignalHandler(cancelFunc)

	srv := &http.Server{
		Addr:    app.config.EndpointAddrHTTP,
		Handler: app.handler,
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.logger.Error(ctx, err.Error())
			cancelFunc()
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		app.logger.Error(shutdownCtx, err.Error())
	}
	<-done

	if err := app.db.Close(); err != nil {
		app.logger.Error(context.Background(), err.Error())
	}

	app.logger.Info(context.Background(), "App stopped")
}
