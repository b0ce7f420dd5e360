package realtime

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/2025-X-Thon-Team10-JobShorts/Backend/internal/models"
)

const (
	// PingInterval and PongWait are used for heartbeat.
	PingInterval = 30
	PongWait     = 60

	// EventAssetStatus is pushed whenever a short-form changes state.
	EventAssetStatus = "asset_status"
)

// AssetEvent is the payload of EventAssetStatus.
type AssetEvent struct {
	ID           int64              `json:"id"`
	VideoKey     string             `json:"videoKey"`
	Status       models.AssetStatus `json:"status"`
	ThumbnailKey string             `json:"thumbnailKey,omitempty"`
}

// Hub maintains owner pid -> set of connections so uploaders can follow the
// enrichment of their videos. With Redis configured, events are published to
// Redis and delivered by the subscription on every instance, this one included.
type Hub struct {
	// owner -> map[clientID]*Client
	rooms    map[string]map[string]*Client
	subs     map[string]func() // cancel Redis subscription per owner
	mu       sync.RWMutex
	logger   *zap.Logger
	redis    RedisPublisher
	redisSub RedisSubscriber
}

// RedisPublisher is the interface for publishing to Redis (for cross-instance broadcast).
type RedisPublisher interface {
	PublishOwnerEvent(owner string, event string, payload []byte) error
}

// RedisSubscriber subscribes to owner channels and invokes handler for incoming events.
type RedisSubscriber interface {
	SubscribeOwner(owner string, handler func(event string, payload []byte)) (cancel func(), err error)
}

// NewHub creates a new WebSocket hub. Both Redis sides may be nil.
func NewHub(logger *zap.Logger, redisPub RedisPublisher, redisSub RedisSubscriber) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		rooms:    make(map[string]map[string]*Client),
		subs:     make(map[string]func()),
		logger:   logger,
		redis:    redisPub,
		redisSub: redisSub,
	}
}

// Register adds a client to its owner's room. Starts the Redis subscription for the owner if first client.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[c.Owner] == nil {
		h.rooms[c.Owner] = make(map[string]*Client)
		if h.redisSub != nil {
			owner := c.Owner
			cancel, err := h.redisSub.SubscribeOwner(owner, func(event string, payload []byte) {
				h.Broadcast(owner, event, json.RawMessage(payload))
			})
			if err != nil {
				h.logger.Warn("redis subscribe failed", zap.String("owner", owner), zap.Error(err))
			} else {
				h.subs[owner] = cancel
			}
		}
	}
	h.rooms[c.Owner][c.ID] = c
	h.logger.Debug("client connected", zap.String("client_id", c.ID), zap.String("owner", c.Owner))
}

// Unregister removes a client. Cancels the Redis subscription when the last client of an owner leaves.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	m, ok := h.rooms[c.Owner]
	if !ok {
		return
	}
	if _, ok := m[c.ID]; ok {
		delete(m, c.ID)
		close(c.send)
	}
	if len(m) == 0 {
		delete(h.rooms, c.Owner)
		if cancel, ok := h.subs[c.Owner]; ok {
			cancel()
			delete(h.subs, c.Owner)
		}
	}
	h.logger.Debug("client disconnected", zap.String("client_id", c.ID), zap.String("owner", c.Owner))
}

// Broadcast sends a message to all local clients of owner.
func (h *Hub) Broadcast(owner, event string, payload interface{}) {
	var data []byte
	switch v := payload.(type) {
	case []byte:
		data = v
	case json.RawMessage:
		data = v
	default:
		var err error
		if data, err = json.Marshal(payload); err != nil {
			return
		}
	}
	msg := WSMessage{Event: event, Data: data}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.rooms[owner] {
		select {
		case c.send <- msg:
		default:
			// slow client; drop
		}
	}
}

// Publish delivers an event to every connection of owner across instances.
func (h *Hub) Publish(owner, event string, payload interface{}) {
	if h.redis == nil {
		h.Broadcast(owner, event, payload)
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	if err := h.redis.PublishOwnerEvent(owner, event, data); err != nil {
		h.logger.Warn("redis publish failed, delivering locally", zap.String("owner", owner), zap.Error(err))
		h.Broadcast(owner, event, data)
	}
}

// AssetUpdated pushes the asset's current status to its owner.
func (h *Hub) AssetUpdated(a *models.Asset) {
	if a == nil || a.OwnerID == "" {
		return
	}
	ev := AssetEvent{ID: a.ID, VideoKey: a.VideoKey, Status: a.Status}
	if a.ThumbnailKey != nil {
		ev.ThumbnailKey = *a.ThumbnailKey
	}
	h.Publish(a.OwnerID, EventAssetStatus, ev)
}

// Connections returns the number of local connections of owner.
func (h *Hub) Connections(owner string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[owner])
}
