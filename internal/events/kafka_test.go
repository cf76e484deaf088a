package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sbilibin2017/gw-login/internal/models"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaPublisher_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := NewKafkaPublisher(w)

	event := models.LoginEvent{
		EventID:    uuid.New(),
		Email:      "Alice@Example.com",
		Status:     models.StatusFailed,
		Reason:     models.ReasonInvalidCredentials,
		OccurredAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	require.NoError(t, p.Publish(context.Background(), event))
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "alice@example.com", string(msg.Key))
	assert.Equal(t, event.OccurredAt, msg.Time)
	assert.Equal(t, []kafka.Header{{Key: "event_type", Value: []byte("login.failed")}}, msg.Headers)

	var got models.LoginEvent
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	assert.Equal(t, event, got)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestKafkaPublisher_WriteError(t *testing.T) {
	p := NewKafkaPublisher(&fakeWriter{err: errors.New("broker down")})

	err := p.Publish(context.Background(), models.LoginEvent{EventID: uuid.New()})
	assert.EqualError(t, err, "broker down")
}

func TestNewKafkaWriter(t *testing.T) {
	w := NewKafkaWriter("k1:9092,k2:9092", "logins")
	defer w.Close()

	assert.Equal(t, "logins", w.Topic)
	assert.NotNil(t, w.Addr)
}

func TestNopPublisher(t *testing.T) {
	var p NopPublisher
	assert.NoError(t, p.Publish(context.Background(), models.LoginEvent{}))
	assert.NoError(t, p.Close())
}
