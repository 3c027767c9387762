package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/HaulDesk/TollTrace/config"
	trackingapi "github.com/HaulDesk/TollTrace/internal/api/tracking_api"
	"github.com/HaulDesk/TollTrace/internal/broker/kafka"
	"github.com/HaulDesk/TollTrace/internal/cache/rediscache"
	"github.com/HaulDesk/TollTrace/internal/integrations/telemetry/tollping"
	"github.com/HaulDesk/TollTrace/internal/services/journey"
	"github.com/HaulDesk/TollTrace/internal/services/tracker"
	"github.com/HaulDesk/TollTrace/internal/services/vehiclesearch"
	"github.com/HaulDesk/TollTrace/internal/storage/pgfleet"
)

type tollAPIApp struct {
	ctx      context.Context
	cancel   context.CancelFunc
	opts     tollAPIOpts
	api      *trackingapi.TrackingAPI
	journey  *journey.Service
	consumer *kafka.Consumer
	closeDB  func()
}

func mustBootstrapTollAPI() *tollAPIApp {
	cfgPath := os.Getenv("configPath")
	if cfgPath == "" {
		panic("configPath env var is required")
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		panic(fmt.Sprintf("ошибка парсинга конфига, %v", err))
	}

	httpAddr := cfg.TollTrace.HTTPAddr
	if httpAddr == "" {
		httpAddr = ":8080"
	}
	consumerGroup := cfg.TollTrace.KafkaConsumerGroup
	if consumerGroup == "" {
		consumerGroup = "toll-api"
	}
	topic := cfg.Kafka.CrossingsObservedTopicName
	if topic == "" {
		topic = "crossings.observed"
	}
	swaggerPath := os.Getenv("swaggerPath")
	if swaggerPath == "" {
		swaggerPath = "api/swagger.json"
	}

	cooldown := time.Duration(cfg.TollTrace.TrackingCooldownSeconds) * time.Second
	if cooldown <= 0 {
		cooldown = 5 * time.Minute
	}
	callCost := cfg.TollTrace.ProviderCallCost
	if callCost <= 0 {
		callCost = 1.5
	}
	lookback := time.Duration(cfg.TollTrace.SearchLookbackDays) * 24 * time.Hour
	if lookback <= 0 {
		lookback = 7 * 24 * time.Hour
	}
	journeyTTL := time.Duration(cfg.TollTrace.JourneyCacheTTLSeconds) * time.Second
	if journeyTTL <= 0 {
		journeyTTL = 10 * time.Minute
	}

	sslMode := cfg.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	connString := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.Database.Username, cfg.Database.Password, cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName, sslMode)
	st := mustOpenPostgresWithRetry(connString, 60*time.Second)

	redisAddr := fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
	rc := rediscache.New(redisAddr)
	locker := rediscache.NewLocker(redisAddr)

	client := tollping.New(cfg.TollTrace.ProviderBaseURL, cfg.TollTrace.ProviderAPIKey)

	brokers := []string{fmt.Sprintf("%s:%d", cfg.Kafka.Host, cfg.Kafka.Port)}
	producer := kafka.NewProducer(brokers)
	consumer := kafka.NewConsumer(brokers, topic, consumerGroup)

	trackerSvc := tracker.New(st, client).
		WithLocker(locker).
		WithProducer(producer, topic).
		WithSettings(cooldown, callCost)
	searchSvc := vehiclesearch.New(st, client, trackerSvc).WithLookback(lookback)
	journeySvc := journey.New(st, rc, journeyTTL)

	api := trackingapi.New(trackerSvc, searchSvc, journeySvc)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	return &tollAPIApp{
		ctx:    ctx,
		cancel: cancel,
		opts: tollAPIOpts{
			httpAddr:      httpAddr,
			swaggerPath:   swaggerPath,
			topic:         topic,
			consumerGroup: consumerGroup,
		},
		api:      api,
		journey:  journeySvc,
		consumer: consumer,
		closeDB:  st.Close,
	}
}

func mustOpenPostgresWithRetry(connString string, wait time.Duration) *pgfleet.Storage {
	deadline := time.Now().Add(wait)
	var lastErr error
	for time.Now().Before(deadline) {
		st, err := pgfleet.New(connString)
		if err == nil {
			return st
		}
		lastErr = err
		time.Sleep(1 * time.Second)
	}
	panic(fmt.Sprintf("postgres is not ready after %s: %v", wait, lastErr))
}

func (a *tollAPIApp) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	if a.consumer != nil {
		_ = a.consumer.Close()
	}
	if a.closeDB != nil {
		a.closeDB()
	}
}

func (a *tollAPIApp) Run() error {
	return runTollAPI(a.ctx, a.opts, a.api, a.journey, a.consumer)
}
