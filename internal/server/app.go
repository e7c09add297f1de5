// Package server initializes and runs the contractsign server: the client
// HTTP gateway, the operator gRPC service and the periodic housekeeping
// sweep, with graceful shutdown on SIGINT/SIGTERM.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/contractsign/internal/logging"
	"github.com/dmitrijs2005/contractsign/internal/server/accesstoken"
	"github.com/dmitrijs2005/contractsign/internal/server/config"
	"github.com/dmitrijs2005/contractsign/internal/server/gateway"
	"github.com/dmitrijs2005/contractsign/internal/server/httpapi"
	"github.com/dmitrijs2005/contractsign/internal/server/notify"
	"github.com/dmitrijs2005/contractsign/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/contractsign/internal/server/services"
	"github.com/dmitrijs2005/contractsign/internal/server/storage"

	gs "github.com/dmitrijs2005/contractsign/internal/server/grpc"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config     *config.Config
	logger     logging.Logger
	db         *sql.DB
	router     http.Handler
	grpcServer *gs.GRPCServer
	sweeper    *services.Sweeper
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.New(os.Stdout, c.LogLevel, c.LogFormat)

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	app, err := newApp(ctx, c, logger, db, rm)
	if err != nil {
		db.Close()
		return nil, err
	}
	return app, nil
}

func newApp(ctx context.Context, c *config.Config, logger logging.Logger, db *sql.DB, rm repomanager.RepositoryManager) (*App, error) {
	linkKey, err := c.LinkKey()
	if err != nil {
		return nil, fmt.Errorf("link key: %w", err)
	}
	operatorKey, err := c.OperatorKey()
	if err != nil {
		return nil, fmt.Errorf("operator key: %w", err)
	}

	notifier, err := buildNotifier(c, logger)
	if err != nil {
		return nil, err
	}

	var store storage.ObjectStore
	if c.S3Enabled() {
		s3, err := storage.NewS3Store(ctx, storage.Options{
			Bucket:       c.S3Bucket,
			Region:       c.S3Region,
			AccessKey:    c.S3RootUser,
			SecretKey:    c.S3RootPassword,
			BaseEndpoint: c.S3BaseEndpoint,
		})
		if err != nil {
			return nil, fmt.Errorf("object store init error: %w", err)
		}
		store = s3
	}

	codec := accesstoken.NewCodec(linkKey, c.LinkTokenMaxAge)
	verifier := accesstoken.NewVerifier(
		accesstoken.NewStatelessVerifier(codec, nil),
		accesstoken.NewSingleUseVerifier(rm.AccessTokens(db), c.SingleUseGrace, c.StoreTimeout, nil),
	)

	signing := services.NewSigningService(db, rm, c, notifier, store, logger)
	gw := gateway.New(verifier, signing, logger)

	gin.SetMode(gin.ReleaseMode)
	router := httpapi.NewRouter(httpapi.NewHandler(gw, db, logger), logger, httpapi.RouterOptions{
		RateLimit:  c.RateLimit,
		RateWindow: c.RateWindow,
	})

	sweeper := services.NewSweeper(db, rm, c, logger)
	grpcServer := gs.NewGRPCServer(c.EndpointAddrGRPC, logger, gs.Services{
		Links:     services.NewLinkService(db, rm, c, codec, notifier, logger),
		Terms:     services.NewTermsService(db, rm, c, logger),
		Sweeper:   sweeper,
		Contracts: services.NewContractAdminService(db, rm, c, logger),
	}, operatorKey)

	return &App{
		config:     c,
		logger:     logger,
		db:         db,
		router:     router,
		grpcServer: grpcServer,
		sweeper:    sweeper,
	}, nil
}

// buildNotifier picks SMTP when a relay is configured, otherwise mail is
// only logged.
func buildNotifier(c *config.Config, logger logging.Logger) (notify.Notifier, error) {
	if c.SMTPAddr == "" {
		return notify.NewLogNotifier(logger), nil
	}
	n, err := notify.NewSMTPNotifier(c.SMTPAddr, c.SMTPUser, c.SMTPPassword, c.MailFrom)
	if err != nil {
		return nil, fmt.Errorf("smtp init error: %w", err)
	}
	return n, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.grpcServer.Run(ctx); err != nil {
		app.logger.Error(ctx, "gRPC server failed", "error", err)
		cancelFunc()
	}
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	srv := &http.Server{
		Addr:              app.config.EndpointAddrHTTP,
		Handler:           app.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		app.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			app.logger.Error(ctx, "HTTP shutdown error", "error", err)
		}
	}()

	app.logger.Info(ctx, "Starting HTTP server", "address", srv.Addr)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Error(ctx, "HTTP server failed", "error", err)
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(3)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.sweeper.Start(ctx, app.config.SweepInterval)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err)
	}
	app.logger.Info(ctx, "Stopped")
}
