package watchlist

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroker_PublishSubscribe(t *testing.T) {
	b := NewBroker(BrokerConfig{})
	defer b.Close()

	sub := b.Subscribe()
	b.OnWatchlistChanged(&View{Phase: PhaseSynced, Total: 2})

	select {
	case ev := <-sub.C:
		assert.Equal(t, EventWatchlist, ev.Type)
		v, ok := ev.Data.(*View)
		require.True(t, ok)
		assert.Equal(t, 2, v.Total)
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestBroker_DropsWhenFull(t *testing.T) {
	b := NewBroker(BrokerConfig{ChannelSize: 1})
	defer b.Close()

	sub := b.Subscribe()
	b.OnError(NewToast(errors.New("one"), time.Now()))
	b.OnError(NewToast(errors.New("two"), time.Now()))

	stats := b.GetStats()
	assert.Equal(t, int64(2), stats.TotalPublished)
	assert.Equal(t, int64(1), stats.TotalDelivered)
	assert.Equal(t, int64(1), stats.TotalDropped)
	assert.InDelta(t, 50.0, stats.DropRate, 0.001)

	ev := <-sub.C
	assert.Equal(t, EventError, ev.Type)
	assert.Equal(t, "one", ev.Data.(Toast).Message)
}

func TestBroker_Unsubscribe(t *testing.T) {
	b := NewBroker(BrokerConfig{})
	defer b.Close()

	sub := b.Subscribe()
	b.Unsubscribe(sub)
	b.Unsubscribe(sub) // second call is a no-op

	_, open := <-sub.C
	assert.False(t, open)
	assert.Equal(t, 0, b.GetStats().ActiveSubscribers)
}

func TestBroker_Close(t *testing.T) {
	b := NewBroker(BrokerConfig{})
	sub := b.Subscribe()
	b.Close()

	_, open := <-sub.C
	assert.False(t, open)

	late := b.Subscribe()
	_, open = <-late.C
	assert.False(t, open)
}
