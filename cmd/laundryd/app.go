package main

import (
	"context"
	"fmt"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"laundry-booking-backend/config"
	"laundry-booking-backend/internal/clock"
	"laundry-booking-backend/internal/db"
	"laundry-booking-backend/internal/engine"
	"laundry-booking-backend/internal/events"
	"laundry-booking-backend/internal/logger"
	"laundry-booking-backend/internal/notification"
	"laundry-booking-backend/internal/pricing"
	"laundry-booking-backend/internal/store"
)

// app bundles the long-lived components shared by the subcommands.
type app struct {
	cfg        *config.Config
	log        logger.Logger
	db         *gorm.DB
	store      store.Store
	engine     *engine.Engine
	pool       *notification.WorkerPool
	dispatcher *notification.Dispatcher
	publisher  events.Publisher
	webpush    *webpush.Options
	closers    []func() error
}

func loadConfig(path string) (*config.Config, logger.Logger, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration from %s: %w", path, err)
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	log.Info("configuration loaded", "path", path)
	return cfg, log, nil
}

func newApp(ctx context.Context, cfg *config.Config, log logger.Logger) (*app, error) {
	gormDB, err := db.Init(&cfg.Database, log)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, log: log, db: gormDB, store: store.NewGormStore(gormDB)}
	if sqlDB, err := gormDB.DB(); err == nil {
		a.closers = append(a.closers, sqlDB.Close)
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to load timezone %q: %w", cfg.Timezone, err)
	}

	a.webpush = &webpush.Options{
		VAPIDPublicKey:  cfg.Push.PublicKey,
		VAPIDPrivateKey: cfg.Push.PrivateKey,
		Subscriber:      cfg.Push.Subject,
		TTL:             cfg.Push.TTL,
	}
	if cfg.Push.PublicKey == "" || cfg.Push.PrivateKey == "" {
		log.Warn("VAPID keys are not configured; push delivery will fail")
	}
	a.pool = notification.NewWorkerPool(cfg.WorkerPool.Size, gormDB, a.webpush, log.With("component", "push"))

	queue, err := a.newQueue(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	clk := clock.NewSystem()
	a.dispatcher = notification.NewDispatcher(queue, a.pool, clk, log.With("component", "reminders"), cfg.Reminders.PollInterval, cfg.Reminders.BatchSize)

	bus, err := newBus(cfg.Events, log)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.publisher = events.NewFanout(bus, notification.NewWatcher(a.pool))
	a.closers = append(a.closers, a.publisher.Close)

	policy := pricing.NewPolicy(cfg.Pricing.Unit, cfg.Pricing.Durations())
	a.engine = engine.New(a.store, policy, clk, a.dispatcher, a.publisher, log.With("component", "engine"), engine.Options{
		ExpiryGrace: cfg.Scheduler.ExpiryGrace,
		Location:    loc,
	})
	return a, nil
}

func (a *app) newQueue(ctx context.Context) (notification.Queue, error) {
	switch a.cfg.Reminders.Backend {
	case "redis":
		rc := a.cfg.Reminders.Redis
		rdb := redis.NewClient(&redis.Options{Addr: rc.Addr, Password: rc.Password, DB: rc.DB})
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", rc.Addr, err)
		}
		a.closers = append(a.closers, rdb.Close)
		a.log.Info("reminder queue ready", "backend", "redis", "addr", rc.Addr)
		return notification.NewRedisQueue(rdb, rc.KeyPrefix), nil
	case "database", "":
		a.log.Info("reminder queue ready", "backend", "database")
		return notification.NewGormQueue(a.db), nil
	default:
		return nil, fmt.Errorf("unknown reminders backend %q", a.cfg.Reminders.Backend)
	}
}

func newBus(cfg config.EventsConfig, log logger.Logger) (events.Publisher, error) {
	switch cfg.Driver {
	case "kafka":
		p, err := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			return nil, err
		}
		log.Info("publishing session events to kafka", "topic", cfg.Kafka.Topic)
		return p, nil
	case "amqp":
		p, err := events.NewAMQPPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange)
		if err != nil {
			return nil, err
		}
		log.Info("publishing session events to amqp", "exchange", cfg.AMQP.Exchange)
		return p, nil
	case "log", "":
		return events.NewLogPublisher(log.With("component", "events")), nil
	default:
		return nil, fmt.Errorf("unknown events driver %q", cfg.Driver)
	}
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Warn("error during shutdown", "error", err)
		}
	}
	_ = a.log.Sync()
}
