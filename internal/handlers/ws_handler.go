package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"holophrame-api/internal/auth"
	"holophrame-api/internal/realtime"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// wsClient implements realtime.Client by wrapping a websocket connection.
type wsClient struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
	alive   atomic.Bool
	closed  atomic.Bool
}

func newWSClient(conn *websocket.Conn) *wsClient {
	c := &wsClient{conn: conn}
	c.alive.Store(true)
	return c
}

func (c *wsClient) Send(message []byte) bool {
	if c.closed.Load() {
		return false
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
		return false
	}
	return true
}

func (c *wsClient) Ping() bool {
	if c.closed.Load() {
		return false
	}
	// WriteControl is safe concurrently with WriteMessage
	err := c.conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(5*time.Second))
	return err == nil
}

func (c *wsClient) Alive() bool { return c.alive.Load() }

func (c *wsClient) SetAlive(alive bool) { c.alive.Store(alive) }

func (c *wsClient) Terminate() {
	if c.closed.CompareAndSwap(false, true) {
		_ = c.conn.Close()
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// CORS is already handled at Gin level; allow upgrade from any origin here
		return true
	},
}

// inboundFrame is the only shape of traffic clients may send over the
// socket: authentication and heartbeat. Content-bearing writes go through
// the request API, which fans them out as events.
type inboundFrame struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

// WSHandler owns the websocket endpoint: upgrade, in-band authentication,
// and the inbound frame router.
type WSHandler struct {
	hub *realtime.Hub
	log *zap.SugaredLogger
}

func NewWSHandler(hub *realtime.Hub, log *zap.SugaredLogger) *WSHandler {
	return &WSHandler{hub: hub, log: log}
}

// Handle upgrades the connection and runs its read loop. The upgrade is
// anonymous; the connection becomes eligible for targeted events only after
// a successful auth frame.
func (h *WSHandler) Handle(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warnw("websocket upgrade failed", "error", err)
		return
	}
	h.log.Debug("new websocket connection")

	client := newWSClient(conn)
	h.hub.Track(client)
	defer func() {
		h.hub.Untrack(client)
		client.Terminate()
	}()

	// Transport-level pong answers the liveness monitor's probe. This is
	// independent of the JSON ping/pong frames handled in the router.
	conn.SetPongHandler(func(string) error {
		client.SetAlive(true)
		return nil
	})
	conn.SetReadLimit(4096)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			// Normal close or error; exit loop
			return
		}
		if !h.route(client, data) {
			return
		}
	}
}

// route dispatches one inbound frame. It returns false when the connection
// must be torn down (failed authentication). Malformed or unknown frames are
// answered with an error frame and the connection stays open.
func (h *WSHandler) route(client *wsClient, data []byte) bool {
	var frame inboundFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		h.log.Debugw("malformed websocket frame", "error", err)
		client.Send(realtime.ErrorEvent("Invalid message format").Marshal())
		return true
	}

	switch frame.Type {
	case realtime.TypeAuth:
		return h.authenticate(client, frame.Token)
	case realtime.TypePing:
		// Client-visible heartbeat; works before authentication too.
		client.Send(realtime.PongEvent().Marshal())
		return true
	default:
		client.Send(realtime.ErrorEvent(fmt.Sprintf("Unknown message type: %s", frame.Type)).Marshal())
		return true
	}
}

// authenticate verifies the token and binds the connection to its user. On
// failure the connection is closed; the client must open a new one to retry.
func (h *WSHandler) authenticate(client *wsClient, token string) bool {
	claims, err := auth.ValidateToken(token)
	if err != nil {
		client.Send(realtime.AuthErrorEvent().Marshal())
		client.Terminate()
		return false
	}

	h.hub.Register(claims.UserID, client)
	client.Send(realtime.AuthSuccessEvent().Marshal())
	h.log.Infow("websocket authenticated", "user_id", claims.UserID)
	return true
}
