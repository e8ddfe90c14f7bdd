package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/your-org/adxrelay/internal/dispatch"
	"github.com/your-org/adxrelay/internal/events"
	"github.com/your-org/adxrelay/pkg/config"
	"github.com/your-org/adxrelay/pkg/kafka"
	"github.com/your-org/adxrelay/pkg/logger"
	"github.com/your-org/adxrelay/pkg/storage/objectstore"
	"github.com/your-org/adxrelay/pkg/tracing"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logr, err := logger.New(cfg.App.LogLevel)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	traceShutdown, err := tracing.Init(ctx, tracing.Config{
		Endpoint:    cfg.Tracing.Endpoint,
		Insecure:    cfg.Tracing.Insecure,
		SampleRatio: cfg.Tracing.SampleRatio,
		Attributes:  parseResourceAttributes(cfg.Tracing.ResourceAttr),
		ServiceName: cfg.App.Name,
	})
	if err != nil {
		logr.Fatal("init tracing", zap.Error(err))
	}
	defer traceShutdown(context.Background()) //nolint:errcheck

	minDate, err := cfg.Filter.MinimumDate()
	if err != nil {
		logr.Fatal("parse minimum date", zap.Error(err))
	}

	var audit dispatch.AuditPublisher
	var producer *kafka.Producer
	if len(cfg.Kafka.Brokers) > 0 {
		producer = kafka.NewProducer(kafka.ProducerConfig{
			Brokers:      cfg.Kafka.Brokers,
			Topic:        cfg.Kafka.AuditTopic,
			BatchSize:    cfg.Kafka.BatchSize,
			BatchTimeout: cfg.Kafka.BatchTimeout,
			Compression:  kafka.CompressionFromString(cfg.Kafka.CompressionCodec),
			RequiredAcks: kafkago.RequireOne,
			MaxAttempts:  cfg.Kafka.Retries,
		})
		audit = producer
	}

	var store objectstore.Client
	if cfg.Storage.Endpoint != "" {
		store, err = objectstore.New(objectstore.Config{
			Endpoint:  cfg.Storage.Endpoint,
			Region:    cfg.Storage.Region,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
			UseSSL:    cfg.Storage.UseSSL,
		})
		if err != nil {
			logr.Fatal("init object store", zap.Error(err))
		}
	}

	extractor := dispatch.NewTimeExtractor(cfg.Filter.DateMarker, cfg.Filter.DateLayout, logr)
	dispatcher := dispatch.NewDispatcher(dispatch.Params{
		Init:    dispatch.NewClientInitializer(cfg.Ingest, nil, logr),
		Filter:  dispatch.NewFilter(cfg.Filter.Blacklist, minDate, extractor),
		Builder: dispatch.NewCommandBuilder(cfg.Ingest, logr),
		Store:   store,
		Audit:   audit,
		Logger:  logr,
	})

	if cfg.Events.QueueURL != "" {
		poller, err := events.NewPoller(cfg.Events, dispatcher, logr)
		if err != nil {
			logr.Fatal("init event queue poller", zap.Error(err))
		}
		go func() {
			if err := poller.Run(ctx); err != nil {
				logr.Error("event queue poller exited", zap.Error(err))
			}
		}()
	}

	handler := events.NewHTTPHandler(dispatcher, logr, cfg.HTTP.MaxBodyBytes)

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      handler.Router(),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logr.Error("http server shutdown failed", zap.Error(err))
		}
		if producer != nil {
			if err := producer.Close(shutdownCtx); err != nil {
				logr.Error("audit producer shutdown failed", zap.Error(err))
			}
		}
		if store != nil {
			if err := store.Close(); err != nil {
				logr.Error("object store shutdown failed", zap.Error(err))
			}
		}
	}()

	logr.Info("dispatcher service starting", zap.String("addr", cfg.HTTP.Addr))
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logr.Fatal("http server failed", zap.Error(err))
	}
}

func parseResourceAttributes(raw string) map[string]string {
	if raw == "" {
		return map[string]string{}
	}
	attrs := map[string]string{}
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" || !strings.Contains(pair, "=") {
			continue
		}
		parts := strings.SplitN(pair, "=", 2)
		attrs[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
	}
	return attrs
}
