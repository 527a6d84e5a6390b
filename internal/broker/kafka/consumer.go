package kafka

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/AutoAid/ServiceDesk/internal/broker/messages"
	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"
)

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Consumer struct {
	r messageReader
}

func NewConsumer(brokers []string, topic, groupID string) *Consumer {
	cfg := kafka.ReaderConfig{
		Brokers:           brokers,
		GroupID:           groupID,
		HeartbeatInterval: 3 * time.Second,
		SessionTimeout:    30 * time.Second,
	}
	if groupID != "" {
		cfg.GroupTopics = []string{topic}
	} else {
		cfg.Topic = topic
	}
	return &Consumer{
		r: kafka.NewReader(cfg),
	}
}

func newConsumerWithReader(r messageReader) *Consumer {
	return &Consumer{r: r}
}

func (c *Consumer) Close() error {
	return c.r.Close()
}

// Consume читает аудит-фид до отмены контекста и отдаёт обработчику
// уже разобранные RequestUpdated. Commit только после успешной
// обработки: упавшее сообщение перечитаем, а не потеряем. Битый
// payload — исключение: повтор его не починит, логируем и коммитим.
func (c *Consumer) Consume(ctx context.Context, handler func(msg messages.RequestUpdated) error) error {
	for {
		raw, err := c.r.FetchMessage(ctx)
		if err != nil {
			return errors.Wrap(err, "fetch message")
		}
		var upd messages.RequestUpdated
		if err := json.Unmarshal(raw.Value, &upd); err != nil {
			slog.Error("malformed request.updated payload, skipping",
				"key", string(raw.Key), "error", err.Error())
			if err := c.r.CommitMessages(ctx, raw); err != nil {
				return errors.Wrap(err, "commit message")
			}
			continue
		}
		if err := handler(upd); err != nil {
			return err
		}
		if err := c.r.CommitMessages(ctx, raw); err != nil {
			return errors.Wrap(err, "commit message")
		}
	}
}
