package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

const (
	HeaderEvent       = "event"
	HeaderContentType = "content-type"
)

// Producer writes JSON events to a single topic. Messages with the same key
// land on the same partition.
type Producer struct {
	w *kafka.Writer
}

func NewProducer(brokers []string, topic string, writeTimeout time.Duration) *Producer {
	return &Producer{
		w: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireOne,
			WriteTimeout:           writeTimeout,
			BatchTimeout:           10 * time.Millisecond,
			AllowAutoTopicCreation: true,
		},
	}
}

// Publish writes value under key and returns once the leader acked it.
func (p *Producer) Publish(ctx context.Context, event, key string, value any) error {
	msg, err := Encode(event, key, value)
	if err != nil {
		return err
	}

	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka.Publish %s: %w", event, err)
	}

	return nil
}

// Encode builds the wire message for an event.
func Encode(event, key string, value any) (kafka.Message, error) {
	b, err := json.Marshal(value)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("kafka.Encode %s: %w", event, err)
	}

	return kafka.Message{
		Key:   []byte(key),
		Value: b,
		Headers: []kafka.Header{
			{Key: HeaderEvent, Value: []byte(event)},
			{Key: HeaderContentType, Value: []byte("application/json")},
		},
		Time: time.Now().UTC(),
	}, nil
}

func (p *Producer) Close() error {
	return p.w.Close()
}

// MustWaitReady blocks until a broker answers a metadata request, panicking after timeout.
func MustWaitReady(ctx context.Context, log *slog.Logger, brokers []string, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	for {
		conn, err := kafka.DialContext(ctx, "tcp", brokers[0])
		if err == nil {
			_, err = conn.Brokers()
			_ = conn.Close()
		}
		if err == nil {
			log.Info("kafka is ready", slog.String("broker", brokers[0]))
			return
		}

		log.Warn("kafka not ready, retrying", slog.String("error", err.Error()))

		select {
		case <-ctx.Done():
			panic("timeout waiting for kafka")
		case <-time.After(2 * time.Second):
		}
	}
}
