// Package server initializes and runs the vendor session backend. It opens
// the database, applies migrations, wires services to the live session
// registry and serves the REST endpoint until a shutdown signal arrives.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/intercomkey/internal/logging"
	"github.com/dmitrijs2005/intercomkey/internal/server/config"
	"github.com/dmitrijs2005/intercomkey/internal/server/httpapi"
	"github.com/dmitrijs2005/intercomkey/internal/server/inventory"
	"github.com/dmitrijs2005/intercomkey/internal/server/keyapi"
	"github.com/dmitrijs2005/intercomkey/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/intercomkey/internal/server/services"
	"github.com/dmitrijs2005/intercomkey/internal/server/sessions"
	"github.com/sethvargo/go-retry"
)

const (
	dbPingAttempts = 5
	dbPingBackoff  = 500 * time.Millisecond
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	server *httpapi.Server
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.New(c.Env, os.Stdout)

	db, err := openDB(ctx, c, logger)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	vendor := keyapi.NewClient(keyapi.Endpoints{
		Identity:  c.VendorIdentityURL,
		Household: c.VendorHouseholdURL,
		Video:     c.VendorVideoURL,
	}, c.VendorTimeout)

	tokens := services.NewTokenService(db, rm, c)
	accounts := services.NewAccountService(db, rm, tokens)
	devices := services.NewDeviceService(db, rm)
	reconciler := inventory.NewReconciler(db, rm, logger)
	manager := sessions.NewManager(vendor, accounts, reconciler, logger, c.SessionCacheSize, c.SessionTTL)

	handler := httpapi.NewHandler(manager, tokens, accounts, devices, db, logger)
	server := httpapi.NewServer(c, handler, logger)

	return &App{config: c, logger: logger, db: db, server: server}, nil
}

// openDB opens the pgx pool and waits for the database to answer.
func openDB(ctx context.Context, c *config.Config, logger logging.Logger) (*sql.DB, error) {
	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(c.DBMaxOpenConns)
	db.SetMaxIdleConns(c.DBMaxIdleConns)

	backoff := retry.WithMaxRetries(dbPingAttempts, retry.NewExponential(dbPingBackoff))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := db.PingContext(ctx); err != nil {
			logger.Warn(ctx, "database not ready", "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
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

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.server.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves until a shutdown signal arrives or the server fails.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "env", app.config.Env)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(context.Background(), "db close error", "error", err)
	}
	app.logger.Info(context.Background(), "App stopped")
}
