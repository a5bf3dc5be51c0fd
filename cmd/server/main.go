package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"expensetracker/internal/auth"
	"expensetracker/internal/cache"
	"expensetracker/internal/config"
	"expensetracker/internal/db"
	"expensetracker/internal/events"
	"expensetracker/internal/handler"
	"expensetracker/internal/logging"
	"expensetracker/internal/repository"
	"expensetracker/internal/router"
	"expensetracker/internal/service"
	"expensetracker/internal/view"
	"expensetracker/web"
)

const shutdownTimeout = 10 * time.Second

// @title Expense Tracker API
// @version 1.0
// @description Personal expense tracker with a per-user budget ledger and session cookie authentication.
// @host localhost:8080
// @BasePath /
// @schemes http
// @securityDefinitions.apikey SessionCookie
// @in cookie
// @name session
func main() {
	os.Exit(run())
}

// run wires the server and blocks until a shutdown signal or a listener
// failure. It returns the process exit code so deferred cleanup always runs.
func run() int {
	cfg := config.Load()

	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		logrus.Errorf("logger init: %v", err)
		return 1
	}

	if err := cfg.Validate(); err != nil {
		log.Error(err)
		return 1
	}

	gormDB, err := db.Open(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		log.Errorf("database init: %v", err)
		return 1
	}

	if cfg.ResetDB {
		log.Warn("RESET_DB=true detected, dropping all tables")
		if err := db.Reset(gormDB); err != nil {
			log.WithError(err).Warn("failed to drop tables")
		}
	}

	if err := db.Migrate(gormDB); err != nil {
		log.Errorf("auto-migrate: %v", err)
		return 1
	}

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB, log)
	defer cacheClient.Close()
	if err := cacheClient.Ping(context.Background()); err != nil {
		log.WithError(err).Warn("redis unavailable, running without cache and session revocation")
	}

	publisher := newPublisher(cfg, log)
	defer publisher.Close()

	store := repository.NewStore(gormDB)

	jwtService := auth.NewJWTService(cfg.SessionSecret, cfg.SessionTTL)
	tokenStore := auth.NewTokenStore(cacheClient)

	authService := service.NewAuthService(store.Users(), jwtService, tokenStore)
	ledgerService := service.NewLedgerService(store, cacheClient, publisher, log)
	categoryService := service.NewCategoryService(store)
	dashboardService := service.NewDashboardService(store, ledgerService)

	renderer, err := view.New(web.TemplatesFS, "templates")
	if err != nil {
		log.Errorf("templates: %v", err)
		return 1
	}

	e := echo.New()
	e.HideBanner = true

	router.Register(
		e,
		cfg,
		log,
		renderer,
		handler.NewAuthHandler(authService, handler.SessionCookies{TTL: jwtService.Expiry(), Secure: cfg.CookieSecure}),
		handler.NewLedgerHandler(ledgerService),
		handler.NewCategoryHandler(categoryService),
		handler.NewDashboardHandler(dashboardService),
	)

	log.Infof("Swagger documentation available at: %s", swaggerURL(cfg))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- serve(e, ":"+cfg.ServerPort)
	}()

	exitCode := 0
	if err := waitForShutdown(ctx, serverErr); err != nil {
		log.WithError(err).Error("server start failed")
		exitCode = 1
	} else {
		log.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
	return exitCode
}

// serve runs the listener. A clean shutdown is not an error.
func serve(e *echo.Echo, addr string) error {
	if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// waitForShutdown blocks until ctx is cancelled or the listener stops. It
// returns the listener's error, if any.
func waitForShutdown(ctx context.Context, serverErr <-chan error) error {
	select {
	case <-ctx.Done():
		return nil
	case err := <-serverErr:
		return err
	}
}

// newPublisher connects to the broker when one is configured. The ledger
// keeps working without it.
func newPublisher(cfg *config.Config, log logrus.FieldLogger) events.Publisher {
	if cfg.AMQPURL == "" {
		return events.NopPublisher{}
	}
	publisher, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange, log)
	if err != nil {
		log.WithError(err).Warn("event broker unavailable, ledger events disabled")
		return events.NopPublisher{}
	}
	return publisher
}

func swaggerURL(cfg *config.Config) string {
	host := cfg.SwaggerHost
	if host == "" {
		host = "localhost:" + cfg.ServerPort
	}
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "http://" + host
	}
	return host + "/swagger/index.html"
}
