// Package audit ships account events to Kafka and the structured log.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"interview-prep-workers/internal/common/config"
	"interview-prep-workers/internal/common/logger"
	"interview-prep-workers/internal/entitlement"

	"github.com/segmentio/kafka-go"
)

// MessageWriter is the part of *kafka.Writer the sink uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink writes each event as one JSON message keyed by account id, so an
// account's events stay ordered within a partition.
type KafkaSink struct {
	writer MessageWriter
	topic  string
}

func NewKafkaWriter(cfg config.KafkaConfig) (*kafka.Writer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka: no brokers configured")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("kafka: topic is required")
	}
	return &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: false,
		BatchTimeout:           50 * time.Millisecond,
		WriteTimeout:           5 * time.Second,
	}, nil
}

func NewKafkaSink(writer MessageWriter, topic string) *KafkaSink {
	return &KafkaSink{writer: writer, topic: topic}
}

func (s *KafkaSink) Publish(ctx context.Context, event entitlement.AccountEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	err = s.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.AccountID),
		Value: payload,
		Time:  event.At,
		Headers: []kafka.Header{
			{Key: "eventType", Value: []byte(event.Type)},
		},
	})
	if err != nil {
		return fmt.Errorf("kafka publish to %s: %w", s.topic, err)
	}
	return nil
}

func (s *KafkaSink) Close() error {
	return s.writer.Close()
}

// LogSink records every event at info level.
type LogSink struct {
	logger logger.Logger
}

func NewLogSink(log logger.Logger) *LogSink {
	return &LogSink{logger: log.WithFields(map[string]interface{}{"component": "audit"})}
}

func (s *LogSink) Publish(_ context.Context, event entitlement.AccountEvent) error {
	fields := map[string]interface{}{
		"eventType": event.Type,
		"accountId": event.AccountID,
		"at":        event.At,
	}
	if event.Role != "" {
		fields["role"] = event.Role
	}
	if event.Plan != "" {
		fields["plan"] = event.Plan
	}
	if event.Provider != "" {
		fields["provider"] = event.Provider
	}
	s.logger.Info("Account event", fields)
	return nil
}

// Fanout delivers to every sink and returns the first failure after trying all of them.
type Fanout []entitlement.EventSink

func (f Fanout) Publish(ctx context.Context, event entitlement.AccountEvent) error {
	var firstErr error
	for _, sink := range f {
		if sink == nil {
			continue
		}
		if err := sink.Publish(ctx, event); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

var (
	_ entitlement.EventSink = (*KafkaSink)(nil)
	_ entitlement.EventSink = (*LogSink)(nil)
	_ entitlement.EventSink = Fanout(nil)
)
