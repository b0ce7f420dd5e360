package realtime

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2025-X-Thon-Team10-JobShorts/Backend/internal/models"
)

// loopback delivers published events straight to the subscribed handlers,
// the way a single Redis server would.
type loopback struct {
	handlers map[string]func(string, []byte)
	cancels  int
	fail     bool
}

func (l *loopback) PublishOwnerEvent(owner, event string, payload []byte) error {
	if l.fail {
		return errors.New("redis down")
	}
	if h := l.handlers[owner]; h != nil {
		h(event, payload)
	}
	return nil
}

func (l *loopback) SubscribeOwner(owner string, handler func(string, []byte)) (func(), error) {
	l.handlers[owner] = handler
	return func() {
		l.cancels++
		delete(l.handlers, owner)
	}, nil
}

func decode(t *testing.T, msg WSMessage) AssetEvent {
	t.Helper()
	var ev AssetEvent
	require.NoError(t, json.Unmarshal(msg.Data, &ev))
	return ev
}

func TestAssetUpdatedReachesOwnerOnly(t *testing.T) {
	hub := NewHub(nil, nil, nil)
	mine := NewClient(hub, "u1", 4)
	other := NewClient(hub, "u2", 4)
	hub.Register(mine)
	hub.Register(other)

	thumb := "videos/u1/a_clip_thumbnail.jpg"
	hub.AssetUpdated(&models.Asset{ID: 3, OwnerID: "u1", VideoKey: "videos/u1/a_clip.mp4", Status: models.AssetStatusReadyWithAI, ThumbnailKey: &thumb})

	require.Len(t, mine.Messages(), 1)
	msg := <-mine.Messages()
	assert.Equal(t, EventAssetStatus, msg.Event)
	ev := decode(t, msg)
	assert.Equal(t, int64(3), ev.ID)
	assert.Equal(t, models.AssetStatusReadyWithAI, ev.Status)
	assert.Equal(t, thumb, ev.ThumbnailKey)
	assert.Empty(t, other.Messages())
}

func TestRedisRoundTripAndUnsubscribe(t *testing.T) {
	bus := &loopback{handlers: map[string]func(string, []byte){}}
	hub := NewHub(nil, bus, bus)
	a := NewClient(hub, "u1", 4)
	b := NewClient(hub, "u1", 4)
	hub.Register(a)
	hub.Register(b)
	assert.Equal(t, 2, hub.Connections("u1"))

	hub.AssetUpdated(&models.Asset{ID: 1, OwnerID: "u1", Status: models.AssetStatusProcessingSTT})
	assert.Len(t, a.Messages(), 1)
	assert.Len(t, b.Messages(), 1)

	hub.Unregister(a)
	hub.Unregister(b)
	assert.Zero(t, hub.Connections("u1"))
	assert.Equal(t, 1, bus.cancels)
	assert.Empty(t, bus.handlers)
}

func TestPublishFallsBackToLocal(t *testing.T) {
	bus := &loopback{handlers: map[string]func(string, []byte){}, fail: true}
	hub := NewHub(nil, bus, bus)
	c := NewClient(hub, "u1", 4)
	hub.Register(c)

	hub.AssetUpdated(&models.Asset{ID: 1, OwnerID: "u1", Status: models.AssetStatusFailed})
	require.Len(t, c.Messages(), 1)
	assert.Equal(t, models.AssetStatusFailed, decode(t, <-c.Messages()).Status)
}

func TestBroadcastDropsWhenBufferFull(t *testing.T) {
	hub := NewHub(nil, nil, nil)
	c := NewClient(hub, "u1", 1)
	hub.Register(c)
	hub.Broadcast("u1", "x", map[string]int{"n": 1})
	hub.Broadcast("u1", "x", map[string]int{"n": 2})
	assert.Len(t, c.Messages(), 1)
}

func TestChannel(t *testing.T) {
	assert.Equal(t, "assets:u1", Channel("u1"))
}
