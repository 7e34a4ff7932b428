package kafka

import (
	"context"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapMessage(t *testing.T) {
	now := time.Now()
	msg := kafkago.Message{
		Key:       []byte("E1"),
		Value:     []byte(`{"id":"E1"}`),
		Topic:     "raw-incident-reports",
		Partition: 2,
		Offset:    42,
		Time:      now,
		Headers: []kafkago.Header{
			{Key: "source", Value: []byte("feed-watcher")},
		},
	}

	committed := false
	raw := mapMessage(msg, func(context.Context) error {
		committed = true
		return nil
	})

	assert.Equal(t, []byte("E1"), raw.Key)
	assert.JSONEq(t, `{"id":"E1"}`, string(raw.Value))
	assert.Equal(t, "raw-incident-reports", raw.Topic)
	assert.Equal(t, 2, raw.Partition)
	assert.Equal(t, int64(42), raw.Offset)
	assert.Equal(t, now, raw.Timestamp)
	assert.Equal(t, "feed-watcher", raw.Headers["source"])

	require.NoError(t, raw.Commit(context.Background()))
	assert.True(t, committed)
}
