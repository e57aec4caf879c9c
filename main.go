package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/yeremiapane/restaurant-pos/config"
	"github.com/yeremiapane/restaurant-pos/database"
	"github.com/yeremiapane/restaurant-pos/events"
	"github.com/yeremiapane/restaurant-pos/kds"
	"github.com/yeremiapane/restaurant-pos/middlewares"
	"github.com/yeremiapane/restaurant-pos/router"
	"github.com/yeremiapane/restaurant-pos/services"
	"github.com/yeremiapane/restaurant-pos/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to load config: %v", err)
	}
	utils.InitLogger(cfg.LogLevel, cfg.LogJSON)
	utils.SetJWTSecret(cfg.JWTSecret)
	if cfg.GinMode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.Open(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		utils.ErrorLogger.Fatalf("Failed to AutoMigrate: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := kds.NewHub()
	sinks := events.Multi{hub}
	var closers []func() error

	if cfg.RabbitMQURL != "" {
		rabbit := events.NewRabbitPublisher(cfg.RabbitMQURL, cfg.RabbitMQExchange)
		sinks = append(sinks, rabbit)
		closers = append(closers, rabbit.Close)
		utils.InfoLogger.WithField("exchange", cfg.RabbitMQExchange).Info("publishing events to RabbitMQ")
	}
	if cfg.RedisAddr != "" {
		client, err := events.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			utils.ErrorLogger.Fatalf("Failed to connect to redis: %v", err)
		}
		sinks = append(sinks, events.NewRedisPublisher(client, cfg.RedisPrefix))
		closers = append(closers, client.Close)
		utils.InfoLogger.WithField("addr", cfg.RedisAddr).Info("publishing events to Redis")
	}

	dispatcher := events.NewDispatcher(sinks, cfg.EventBuffer)
	dispatcher.Start()
	prometheus.MustRegister(runtimeMetrics(dispatcher, hub)...)

	tables := services.NewTableService(db, dispatcher)
	deps := router.Deps{
		Tables:     tables,
		Orders:     services.NewOrderService(db, tables, dispatcher, cfg.OrderCloseTolerance),
		Payments:   services.NewPaymentService(db, dispatcher),
		Register:   services.NewCashRegisterService(db, dispatcher, cfg.CashShortageLimit),
		Hub:        hub,
		Limiter:    middlewares.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
		CORSOrigin: cfg.CORSOrigin,
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router.SetupRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		utils.InfoLogger.Printf("Listening on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		utils.InfoLogger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		utils.ErrorLogger.Errorf("server stopped: %v", err)
	}

	dispatcher.Stop()
	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			utils.ErrorLogger.Errorf("close publisher: %v", err)
		}
	}
	utils.InfoLogger.WithFields(logrus.Fields{"dropped_events": dispatcher.Dropped()}).Info("bye")
}

func runtimeMetrics(dispatcher *events.Dispatcher, hub *kds.Hub) []prometheus.Collector {
	return []prometheus.Collector{
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "pos_events_dropped_total",
			Help: "Events dropped because the dispatch queue was full.",
		}, func() float64 { return float64(dispatcher.Dropped()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "pos_realtime_clients",
			Help: "Connected websocket clients.",
		}, func() float64 { return float64(hub.Count()) }),
	}
}
