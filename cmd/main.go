package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/ukydev/factory-log/internal/auth"
	"github.com/ukydev/factory-log/internal/catalog"
	"github.com/ukydev/factory-log/internal/config"
	"github.com/ukydev/factory-log/internal/db"
	"github.com/ukydev/factory-log/internal/efficiency"
	"github.com/ukydev/factory-log/internal/handlers"
	"github.com/ukydev/factory-log/internal/logging"
	"github.com/ukydev/factory-log/internal/maintenance"
	"github.com/ukydev/factory-log/internal/middleware"
	"github.com/ukydev/factory-log/internal/notify"
	"github.com/ukydev/factory-log/internal/recording"
)

// store is everything the server needs from a backend.
type store interface {
	db.ProductionStore
	db.TicketStore
	db.CatalogStore
	handlers.Pinger
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	st, closeStore, err := openStore(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to open store")
	}
	defer closeStore()

	if cfg.CatalogSeedFile != "" {
		seed, err := catalog.LoadSeed(cfg.CatalogSeedFile)
		if err != nil {
			log.WithError(err).Fatal("Failed to load catalog seed")
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		n, err := seed.Apply(ctx, st)
		cancel()
		if err != nil {
			log.WithError(err).Fatal("Failed to apply catalog seed")
		}
		log.WithFields(logrus.Fields{"file": cfg.CatalogSeedFile, "entries": n}).Info("Catalog seeded")
	}

	var cache catalog.Cache
	if cfg.RedisAddr != "" {
		rc, err := catalog.NewRedisCache(cfg.RedisAddr)
		if err != nil {
			log.WithError(err).Warn("Redis unavailable, using in-process catalog cache")
		} else {
			defer rc.Close()
			cache = rc
			log.WithField("addr", cfg.RedisAddr).Info("Catalog cache backed by Redis")
		}
	}
	resolver := catalog.NewResolver(st, cache, cfg.CatalogTTL, log)

	sink, closeSinks := buildSink(cfg, log)
	defer closeSinks()
	notifier := notify.NewNotifier(sink, cfg.NotifyTimeout, log)

	coordinator := recording.NewCoordinator(st, resolver, notifier, log)
	reconciler := efficiency.NewReconciler(st, log)
	tickets := maintenance.NewService(st, notifier, log)

	authService := auth.NewService(cfg.JWTSecret, cfg.JWTExpiry)
	authMW := middleware.NewAuthMiddleware(authService)
	rateLimit := middleware.NewRateLimitMiddleware()

	mux := handlers.NewRouter(handlers.Handlers{
		Production: handlers.NewProductionHandler(coordinator, reconciler, st, log),
		Reports:    handlers.NewReportHandler(efficiency.NewAggregator(st), log),
		Tickets:    handlers.NewTicketHandler(tickets, log),
		Actor:      handlers.NewActorHandler(),
		Health:     handlers.NewHealthHandler(st),
	}, authMW)

	handler := middleware.Chain(mux,
		middleware.RequestID,
		middleware.Logging(log),
		authMW.Authenticate,
		rateLimit.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindowSeconds),
	)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithFields(logrus.Fields{"port": cfg.Port, "store": cfg.StoreDriver}).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("HTTP server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("Graceful shutdown failed")
	}
}

func openStore(cfg *config.Config, log logrus.FieldLogger) (store, func(), error) {
	if cfg.StoreDriver == config.DriverMemory {
		log.Warn("Using in-memory store; data is lost on restart")
		return db.NewMemoryStore(), func() {}, nil
	}

	client, err := db.ConnectMongo(cfg.MongoURI)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.Disconnect(ctx)
	}

	mongoStore := db.NewMongoStore(client, cfg.MongoDB)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := mongoStore.EnsureIndexes(ctx); err != nil {
		closeFn()
		return nil, nil, err
	}
	log.WithField("database", cfg.MongoDB).Info("Connected to MongoDB")
	return mongoStore, closeFn, nil
}

func buildSink(cfg *config.Config, log logrus.FieldLogger) (notify.Sink, func()) {
	var sinks notify.MultiSink
	closeFn := func() {}

	if cfg.MQTTBroker != "" {
		mqttSink, err := notify.NewMQTTSink(cfg.MQTTBroker, cfg.MQTTClientID, cfg.MQTTTopic)
		if err != nil {
			log.WithError(err).Warn("MQTT broker unavailable, notifications will not be published there")
		} else {
			sinks = append(sinks, mqttSink)
			closeFn = mqttSink.Close
		}
	}
	if cfg.TelegramToken != "" {
		sinks = append(sinks, notify.NewTelegramSink(cfg.TelegramToken, cfg.TelegramChatID))
	}
	if len(sinks) == 0 {
		return notify.LogSink{Log: log}, closeFn
	}
	return sinks, closeFn
}
