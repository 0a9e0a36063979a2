package main // Entry point package

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	glog "github.com/labstack/gommon/log"

	"github.com/iliyamo/gym-server/internal/config"
	"github.com/iliyamo/gym-server/internal/database"
	"github.com/iliyamo/gym-server/internal/handler"
	"github.com/iliyamo/gym-server/internal/i18n"
	"github.com/iliyamo/gym-server/internal/queue"
	"github.com/iliyamo/gym-server/internal/repository"
	"github.com/iliyamo/gym-server/internal/router"
	"github.com/iliyamo/gym-server/internal/service"
	"github.com/iliyamo/gym-server/internal/utils"
)

func main() {
	cfg := config.Load()

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable: cache and rate limit disabled")
	} else {
		defer rdb.Close()
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	catalog := repository.NewCatalogRepo(db)

	var events service.EventPublisher = service.NopPublisher{}
	if cfg.QueueEnabled {
		events = service.NewAMQPPublisher(cfg.RabbitURL)
	}

	codec := utils.NewTokenCodec(cfg.JWTSecret, cfg.AccessTTL(), cfg.RefreshTTL())
	auth := service.NewAuthService(cfg, users, tokens, codec, events)
	profiles := service.NewProfileService(cfg, users, events,
		repository.NewClientProfileRepo(db),
		repository.NewStaffProfileRepo(db),
	)

	e := echo.New()
	e.HideBanner = true
	if cfg.Env == "prod" {
		e.Logger.SetLevel(glog.INFO)
	} else {
		e.Logger.SetLevel(glog.DEBUG)
	}
	e.Validator = handler.Validator{}
	e.HTTPErrorHandler = handler.ErrorHandler(i18n.New())

	e.Pre(echomw.RemoveTrailingSlash())
	e.Use(echomw.RequestID())
	e.Use(echomw.Recover())
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			c.Logger().Infof("%s %s %d %s id=%s", v.Method, v.URI, v.Status, v.Latency, v.RequestID)
			return nil
		},
	}))

	shared := router.Shared{
		Authn:     auth,
		Redis:     rdb,
		Cache:     config.LoadCacheConfig(),
		RateLimit: config.LoadRateLimitConfig(),
	}
	router.RegisterRoutes(e, db)
	router.RegisterAuth(e, handler.NewAuthHandler(auth), shared)
	router.RegisterUsers(e, handler.NewProfileHandler(profiles), shared)
	router.RegisterCatalog(e, handler.NewCatalogHandler(catalog), shared)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.QueueEnabled {
		go func() {
			if err := queue.NewConsumer(cfg.RabbitURL, "logs").Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("consumer stopped: %v", err)
			}
		}()
	}

	addr := ":" + cfg.Port
	go func() {
		log.Printf("listening on %s (env=%s)", addr, cfg.Env)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	log.Printf("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
