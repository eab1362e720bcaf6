// Package events delivers org-scoped server events (ticket activity, filed
// flight logs, low-stock alerts) to connected dashboard and mobile clients
// over WebSocket, fanned out across instances with Redis pub/sub.
package events

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Event names published by the resource handlers.
const (
	EventTicketCreated  = "ticket_created"
	EventTicketMessage  = "ticket_message"
	EventFlightLogFiled = "flight_log_filed"
	EventLowStock       = "low_stock"
)

// Publisher is the narrow interface resource handlers use to emit events.
type Publisher interface {
	Publish(orgID uuid.UUID, event string, payload interface{})
}

// RedisBridge publishes to and subscribes from per-organization Redis
// channels for cross-instance broadcast.
type RedisBridge interface {
	PublishOrgEvent(orgID uuid.UUID, event string, payload []byte) error
	SubscribeOrg(orgID uuid.UUID, handler func(event string, payload []byte)) (cancel func(), err error)
}

// Hub maintains organization -> connection sets and broadcasts messages.
type Hub struct {
	orgs   map[uuid.UUID]map[string]*Client
	subs   map[uuid.UUID]func()
	mu     sync.RWMutex
	logger *zap.Logger
	bridge RedisBridge
}

// NewHub creates a WebSocket hub. bridge may be nil (single instance).
func NewHub(logger *zap.Logger, bridge RedisBridge) *Hub {
	return &Hub{
		orgs:   make(map[uuid.UUID]map[string]*Client),
		subs:   make(map[uuid.UUID]func()),
		logger: logger,
		bridge: bridge,
	}
}

// Register adds a client to its organization's room. Starts the Redis
// subscription for the organization when the first client connects. The
// subscribe call can block on the network, so it runs outside the hub lock.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	first := h.orgs[c.OrgID] == nil
	if first {
		h.orgs[c.OrgID] = make(map[string]*Client)
	}
	h.orgs[c.OrgID][c.ID] = c
	h.mu.Unlock()

	if first && h.bridge != nil {
		cancel, err := h.bridge.SubscribeOrg(c.OrgID, func(event string, payload []byte) {
			h.broadcast(c.OrgID, event, json.RawMessage(payload))
		})
		if err != nil {
			h.logger.Error("subscribe org channel, falling back to local delivery",
				zap.String("org_id", c.OrgID.String()), zap.Error(err))
		} else {
			h.mu.Lock()
			if _, open := h.orgs[c.OrgID]; open {
				h.subs[c.OrgID] = cancel
			} else {
				// room emptied while subscribing
				cancel()
			}
			h.mu.Unlock()
		}
	}
	h.logger.Debug("events client connected", zap.String("client_id", c.ID), zap.String("org_id", c.OrgID.String()))
}

// Unregister removes a client. Cancels the Redis subscription when the last
// client of an organization leaves.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if m, ok := h.orgs[c.OrgID]; ok {
		delete(m, c.ID)
		if len(m) == 0 {
			delete(h.orgs, c.OrgID)
			if cancel, ok := h.subs[c.OrgID]; ok {
				cancel()
				delete(h.subs, c.OrgID)
			}
		}
	}
	h.mu.Unlock()
	h.logger.Debug("events client disconnected", zap.String("client_id", c.ID))
}

// Publish delivers an event to every client of the organization. With a
// live Redis subscription the event goes through Redis only, so the
// subscriber callback performs the single local broadcast and other
// instances receive it too. Without a bridge, or when the org subscription
// could not be established, it is delivered locally.
func (h *Hub) Publish(orgID uuid.UUID, event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	h.mu.RLock()
	_, subscribed := h.subs[orgID]
	h.mu.RUnlock()
	if h.bridge != nil {
		err := h.bridge.PublishOrgEvent(orgID, event, data)
		if err != nil {
			h.logger.Warn("publish org event", zap.String("org_id", orgID.String()), zap.Error(err))
		} else if subscribed {
			return
		}
	}
	h.broadcast(orgID, event, json.RawMessage(data))
}

func (h *Hub) broadcast(orgID uuid.UUID, event string, data json.RawMessage) {
	msg := WSMessage{Event: event, Data: data}

	h.mu.RLock()
	clients := h.orgs[orgID]
	h.mu.RUnlock()

	for _, c := range clients {
		select {
		case c.send <- msg:
		default:
			// buffer full, skip
		}
	}
}

// ClientCount returns the number of connected clients for an organization.
func (h *Hub) ClientCount(orgID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.orgs[orgID])
}
