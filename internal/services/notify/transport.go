package notify

import (
	"context"
	"log/slog"
)

// LogTransport only records the message. It stands in for a push provider in
// local and dev setups.
type LogTransport struct {
	log *slog.Logger
}

func NewLogTransport(log *slog.Logger) *LogTransport {
	return &LogTransport{log: log}
}

func (t *LogTransport) Send(_ context.Context, msg Message) error {
	t.log.Info("push notification",
		slog.String("user_id", msg.UserID),
		slog.String("title", msg.Title),
		slog.String("body", msg.Body),
		slog.Any("data", msg.Data),
	)
	return nil
}

type Publisher interface {
	Publish(ctx context.Context, event, key string, value any) error
}

// KafkaTransport hands the message to the push gateway's topic, keyed by user
// so one user's notifications stay ordered.
type KafkaTransport struct {
	producer Publisher
}

func NewKafkaTransport(producer Publisher) *KafkaTransport {
	return &KafkaTransport{producer: producer}
}

func (t *KafkaTransport) Send(ctx context.Context, msg Message) error {
	return t.producer.Publish(ctx, msg.Data.Type, msg.UserID, msg)
}
