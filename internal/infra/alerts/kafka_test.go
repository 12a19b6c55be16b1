package alerts

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKafkaPublisher(t *testing.T) {
	// Skip if no broker available
	t.Skip("Integration test - requires Kafka on localhost:9092")

	pub := NewKafkaPublisher([]string{"localhost:9092"}, "stockwatch.alerts.test")
	defer pub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	require.NoError(t, pub.Publish(ctx, "AAPL", []byte(`{"symbol":"AAPL"}`)))
}

func TestKafkaPublisher_UnreachableBroker(t *testing.T) {
	pub := NewKafkaPublisher([]string{"127.0.0.1:1"}, "stockwatch.alerts")
	defer pub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	assert.Error(t, pub.Publish(ctx, "AAPL", []byte(`{}`)))
}
