package events

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/aerosky-ops/backend/internal/auth"
	"github.com/aerosky-ops/backend/pkg/response"
)

const (
	pingInterval = 30 * time.Second
	pongWait     = 60 * time.Second
	writeWait    = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Token-authenticated feed; origin is not part of the auth model.
		return true
	},
}

// WSMessage is the WebSocket message envelope.
type WSMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Client represents a single WebSocket connection scoped to one organization.
type Client struct {
	ID     string
	OrgID  uuid.UUID
	UserID uuid.UUID
	hub    *Hub
	conn   *websocket.Conn
	send   chan WSMessage
	logger *zap.Logger
}

// PrincipalResolver resolves a bearer token into a principal.
type PrincipalResolver interface {
	Resolve(ctx context.Context, sessionID, authorizationHeader string) *auth.Principal
}

// ServeWs handles the WebSocket upgrade for GET /ws?token=... The token is
// a mobile bearer token carried in the query because browsers cannot set
// headers on WebSocket requests. Non-superadmins are pinned to their own
// organization; superadmins must name one via organization_id.
func ServeWs(hub *Hub, resolver PrincipalResolver, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			response.Unauthorized(c, "Unauthorized")
			return
		}
		p := resolver.Resolve(c.Request.Context(), "", "Bearer "+token)
		if p == nil {
			response.Unauthorized(c, "Unauthorized")
			return
		}

		var orgID uuid.UUID
		if p.IsSuperAdmin() {
			id, err := uuid.Parse(c.Query("organization_id"))
			if err != nil {
				response.BadRequest(c, "organization_id required")
				return
			}
			orgID = id
		} else {
			if p.OrganizationID == nil {
				response.Forbidden(c, "no organization assigned")
				return
			}
			orgID = *p.OrganizationID
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		client := &Client{
			ID:     uuid.New().String(),
			OrgID:  orgID,
			UserID: p.ID,
			hub:    hub,
			conn:   conn,
			send:   make(chan WSMessage, 256),
			logger: logger,
		}
		hub.Register(client)
		go client.writePump()
		go client.readPump()
	}
}

// readPump drains inbound frames (the feed is server-to-client only) and
// keeps the pong deadline fresh.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(1024)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
