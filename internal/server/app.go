// Package server wires the memorylane process together: storage, mailer,
// services, the HTTP API, the admin gRPC API and the unlock scheduler. It
// also owns startup and graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/memorylane/internal/idgen"
	"github.com/dmitrijs2005/memorylane/internal/logging"
	"github.com/dmitrijs2005/memorylane/internal/server/config"
	gs "github.com/dmitrijs2005/memorylane/internal/server/grpc"
	"github.com/dmitrijs2005/memorylane/internal/server/http/router"
	"github.com/dmitrijs2005/memorylane/internal/server/lock"
	"github.com/dmitrijs2005/memorylane/internal/server/mailer"
	"github.com/dmitrijs2005/memorylane/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/memorylane/internal/server/scheduler"
	"github.com/dmitrijs2005/memorylane/internal/server/services"
	"github.com/dmitrijs2005/memorylane/internal/timex"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	closers []io.Closer

	userService       *services.UserService
	capsuleService    *services.CapsuleService
	invitationService *services.InvitationService
	commentService    *services.CommentService
	unlockService     *services.UnlockService
	mediaService      *services.MediaService
}

// NewApp connects to every backing store, applies migrations and builds
// the services. The caller must Run the app, which releases the
// connections on exit.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.New(os.Stdout, c.Env)
	app := &App{config: c, logger: logger}

	if err := idgen.Init(c.SnowflakeNode); err != nil {
		return nil, err
	}

	db, err := repomanager.Open(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	app.db = db
	app.closers = append(app.closers, db)

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		app.close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	notifier, err := newNotifier(c)
	if err != nil {
		app.close()
		return nil, err
	}

	locker, err := app.newLocker(ctx)
	if err != nil {
		app.close()
		return nil, err
	}

	app.invitationService = services.NewInvitationService(db, rm, notifier, logger)
	app.userService = services.NewUserService(db, rm, c, app.invitationService, logger)
	app.capsuleService = services.NewCapsuleService(db, rm, notifier, logger, timex.SystemClock)
	app.commentService = services.NewCommentService(db, rm, logger, timex.SystemClock, idgen.New)
	app.unlockService = services.NewUnlockService(db, rm, notifier, locker, logger, timex.SystemClock, c.Location())
	app.mediaService = services.NewMediaService(c)

	return app, nil
}

func newNotifier(c *config.Config) (*mailer.Notifier, error) {
	templates, err := mailer.LoadTemplates(nil)
	if err != nil {
		return nil, fmt.Errorf("mail templates error: %w", err)
	}
	mc := mailer.Config{
		Host:           c.SMTPHost,
		Port:           c.SMTPPort,
		Username:       c.SMTPUser,
		Password:       c.SMTPPassword,
		From:           c.MailFrom,
		Timeout:        c.MailTimeout,
		AppBaseURL:     c.AppBaseURL,
		InvitationLink: c.InvitationLink,
	}
	return mailer.NewNotifier(mailer.NewSMTPDispatcher(mc), templates, mc), nil
}

// newLocker uses redis when configured so that several server replicas
// share one sweep lock. Without redis the guard is process-local.
func (app *App) newLocker(ctx context.Context) (lock.Locker, error) {
	if app.config.RedisURL == "" {
		app.logger.Info(ctx, "redis not configured, unlock sweep lock is process-local")
		return lock.LocalLocker{}, nil
	}
	client, err := lock.NewRedisClient(ctx, app.config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("redis init error: %w", err)
	}
	app.closers = append(app.closers, client)
	app.logger.Info(ctx, "redis connected")
	return lock.NewRedisLocker(client), nil
}

func (app *App) close() {
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i].Close(); err != nil {
			app.logger.Error(context.Background(), "close error", "error", err)
		}
	}
	app.closers = nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) httpHandler() http.Handler {
	if app.config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	return router.New(router.Services{
		Users:       app.userService,
		Capsules:    app.capsuleService,
		Invitations: app.invitationService,
		Comments:    app.commentService,
		Media:       app.mediaService,
		DB:          app.db,
	}, app.logger)
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	srv := &http.Server{
		Addr:              app.config.EndpointAddrHTTP,
		Handler:           app.httpHandler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		<-ctx.Done()
		app.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			app.logger.Error(shutdownCtx, "http server shutdown error", "error", err)
		}
	}()

	app.logger.Info(ctx, "Starting HTTP server", "address", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Error(ctx, "http server error", "error", err)
		cancelFunc()
	}
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if app.config.AdminAPIKey == "" {
		app.logger.Warn(ctx, "admin api key is empty, admin gRPC calls will be rejected")
	}
	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.unlockService, app.db, app.config.AdminAPIKey)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, "grpc server error", "error", err)
		cancelFunc()
	}
}

// Run serves until a termination signal arrives or a server fails, then
// shuts everything down.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()
	defer app.close()

	app.logger.Info(ctx, "Starting app...", "env", app.config.Env)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(3)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		scheduler.New(app.unlockService, app.config.UnlockSweepInterval, app.logger).Run(ctx)
	}()

	wg.Wait()
	app.logger.Info(context.WithoutCancel(ctx), "shutdown complete")
}
