// internal/audit/sink_test.go
package audit

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"testing"
	"time"

	"interview-prep-workers/internal/common/config"
	"interview-prep-workers/internal/common/logger"
	"interview-prep-workers/internal/entitlement"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

type countingSink struct {
	calls int
	err   error
}

func (c *countingSink) Publish(context.Context, entitlement.AccountEvent) error {
	c.calls++
	return c.err
}

func TestKafkaSink_Publish(t *testing.T) {
	w := &fakeWriter{}
	sink := NewKafkaSink(w, "account-events")
	at := time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC)

	err := sink.Publish(context.Background(), entitlement.AccountEvent{
		Type: entitlement.EventPlanUpgraded, AccountID: "acct-1", Plan: "pro", At: at,
	})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, []byte("acct-1"), msg.Key)
	assert.Equal(t, at, msg.Time)
	assert.Equal(t, "eventType", msg.Headers[0].Key)
	assert.Equal(t, []byte(entitlement.EventPlanUpgraded), msg.Headers[0].Value)

	var decoded entitlement.AccountEvent
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "pro", decoded.Plan)

	require.NoError(t, sink.Close())
	assert.True(t, w.closed)
}

func TestKafkaSink_WriteError(t *testing.T) {
	sink := NewKafkaSink(&fakeWriter{err: stderrors.New("leader not available")}, "account-events")
	err := sink.Publish(context.Background(), entitlement.AccountEvent{Type: entitlement.EventSignedOut, AccountID: "acct-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "account-events")
}

func TestNewKafkaWriter(t *testing.T) {
	_, err := NewKafkaWriter(config.KafkaConfig{Topic: "account-events"})
	assert.Error(t, err)

	_, err = NewKafkaWriter(config.KafkaConfig{Brokers: []string{"localhost:9092"}})
	assert.Error(t, err)

	w, err := NewKafkaWriter(config.KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "account-events"})
	require.NoError(t, err)
	assert.Equal(t, "account-events", w.Topic)
	assert.Equal(t, kafka.RequireAll, w.RequiredAcks)
}

func TestFanout_TriesEverySink(t *testing.T) {
	failing := &countingSink{err: stderrors.New("down")}
	ok := &countingSink{}
	fan := Fanout{failing, nil, ok, NewLogSink(logger.NewTestLogger(t))}

	err := fan.Publish(context.Background(), entitlement.AccountEvent{Type: entitlement.EventLoggedIn, AccountID: "acct-1"})

	assert.EqualError(t, err, "down")
	assert.Equal(t, 1, failing.calls)
	assert.Equal(t, 1, ok.calls)
}
