package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qroute/internal/model"
)

func TestBrokerPublishSubscribe(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe(pathsTopic)

	evt := model.PathEvent{Type: model.EventPathFailed, Error: "oracle failure"}
	b.Publish(pathsTopic, evt)
	b.Publish("other", model.PathEvent{Type: "ignored"})

	select {
	case got := <-ch:
		assert.Equal(t, evt, got)
	case <-time.After(200 * time.Millisecond):
		t.Fatal("timeout waiting for event")
	}

	b.Unsubscribe(pathsTopic, ch)
	_, ok := <-ch
	assert.False(t, ok, "channel should be closed after unsubscribe")
	// a second unsubscribe is a no-op
	b.Unsubscribe(pathsTopic, ch)
}

func TestBrokerDropsForSlowSubscribers(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe(pathsTopic)
	defer b.Unsubscribe(pathsTopic, ch)
	for i := 0; i < cap(ch)+5; i++ {
		b.Publish(pathsTopic, model.PathEvent{Type: model.EventPathGenerated})
	}
	require.Len(t, ch, cap(ch))
}

func TestRedisBrokerRejectsBadURL(t *testing.T) {
	_, err := NewRedisBroker("not a url")
	assert.Error(t, err)
}
