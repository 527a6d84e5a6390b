package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/AutoAid/ServiceDesk/config"
	"github.com/AutoAid/ServiceDesk/internal/auth"
	"github.com/AutoAid/ServiceDesk/internal/backend"
	"github.com/AutoAid/ServiceDesk/internal/backend/fake"
	"github.com/AutoAid/ServiceDesk/internal/backend/resthttp"
	"github.com/AutoAid/ServiceDesk/internal/broker/kafka"
	"github.com/AutoAid/ServiceDesk/internal/broker/messages"
	"github.com/AutoAid/ServiceDesk/internal/cache"
	"github.com/AutoAid/ServiceDesk/internal/cache/rediscache"
	"github.com/AutoAid/ServiceDesk/internal/services/mechanics"
	"github.com/AutoAid/ServiceDesk/internal/services/refresher"
	"github.com/AutoAid/ServiceDesk/internal/services/requests"
)

type kafkaConsumer interface {
	Consume(ctx context.Context, handler func(msg messages.RequestUpdated) error) error
}

type appFactories struct {
	newBackend  func(cfg *config.Config) backend.Client
	newCache    func(cfg *config.Config) cache.BytesCache
	newProducer func(cfg *config.Config) requests.Producer
	newConsumer func(cfg *config.Config, topic, group string) kafkaConsumer
}

func defaultFactories() appFactories {
	return appFactories{
		newBackend: func(cfg *config.Config) backend.Client {
			// Пустой base_url — dev-режим на локальном fake.
			if cfg.Backend.BaseURL == "" {
				slog.Warn("backend base_url is empty, using in-memory fake backend")
				return fake.New()
			}
			timeout := time.Duration(cfg.Backend.TimeoutSeconds) * time.Second
			if timeout <= 0 {
				timeout = 15 * time.Second
			}
			return resthttp.New(cfg.Backend.BaseURL, timeout)
		},
		newCache: func(cfg *config.Config) cache.BytesCache {
			if cfg.Redis.Host == "" {
				return nil
			}
			return rediscache.New(fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port))
		},
		newProducer: func(cfg *config.Config) requests.Producer {
			if cfg.Kafka.Host == "" {
				return nil
			}
			return kafka.NewProducer([]string{fmt.Sprintf("%s:%d", cfg.Kafka.Host, cfg.Kafka.Port)})
		},
		newConsumer: func(cfg *config.Config, topic, group string) kafkaConsumer {
			if cfg.Kafka.Host == "" {
				return nil
			}
			return kafka.NewConsumer([]string{fmt.Sprintf("%s:%d", cfg.Kafka.Host, cfg.Kafka.Port)}, topic, group)
		},
	}
}

type app struct {
	cfg *config.Config

	store     *requests.Store
	directory *mechanics.Directory
	refresher *refresher.Refresher
	consumer  kafkaConsumer

	topic         string
	consumerGroup string
}

func buildApp(cfg *config.Config, f appFactories) *app {
	topic := cfg.Kafka.RequestUpdatedTopicName
	if topic == "" {
		topic = "request.updated"
	}
	consumerGroup := cfg.ServiceDesk.KafkaConsumerGroup
	if consumerGroup == "" {
		consumerGroup = "service-api"
	}
	snapshotTTL := time.Duration(cfg.ServiceDesk.SnapshotTTLSeconds) * time.Second
	if snapshotTTL <= 0 {
		snapshotTTL = 10 * time.Minute
	}
	refreshInterval := time.Duration(cfg.ServiceDesk.RefreshIntervalSeconds) * time.Second
	if refreshInterval <= 0 {
		refreshInterval = 30 * time.Second
	}

	b := f.newBackend(cfg)
	directory := mechanics.New(b)
	store := requests.New(b, directory, f.newCache(cfg), snapshotTTL)
	if p := f.newProducer(cfg); p != nil {
		store.WithAudit(p, topic)
	}

	ref := refresher.New(refreshInterval, store, directory)
	store.WithMissingTrigger(ref.Trigger)

	return &app{
		cfg:           cfg,
		store:         store,
		directory:     directory,
		refresher:     ref,
		consumer:      f.newConsumer(cfg, topic, consumerGroup),
		topic:         topic,
		consumerGroup: consumerGroup,
	}
}

// run поднимает фоновые контуры: периодическую синхронизацию и
// консюмер аудит-фида (события peer-инстансов). HTTP-сервер живёт
// отдельно, см. http.go.
func (a *app) run(ctx context.Context) {
	// фоновые вызовы бэкенда идут под сервисным токеном
	bgCtx := ctx
	if a.cfg.Backend.ServiceToken != "" {
		bgCtx = auth.WithToken(ctx, a.cfg.Backend.ServiceToken)
	}

	go func() {
		if err := a.refresher.Run(bgCtx); err != nil && err != context.Canceled {
			slog.Error("refresher stopped", "error", err.Error())
		}
	}()

	if a.consumer == nil {
		return
	}
	go func() {
		slog.Info("kafka consumer started", "topic", a.topic, "group", a.consumerGroup)
		_ = a.consumer.Consume(bgCtx, func(m messages.RequestUpdated) error {
			return a.store.ApplyAuditMessage(bgCtx, m)
		})
	}()
}
