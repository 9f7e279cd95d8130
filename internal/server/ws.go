package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/bobmcallan/coinboard/internal/common"
	"github.com/bobmcallan/coinboard/internal/market"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 5 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 16
)

// Message types written to the socket.
const (
	msgState = "state"
	msgError = "error"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// wsMessage is one frame sent to the client.
type wsMessage struct {
	Type  string        `json:"type"`
	State *market.State `json:"state,omitempty"`
	Error string        `json:"error,omitempty"`
}

// wsClient binds one socket to one dashboard session.
type wsClient struct {
	conn    *websocket.Conn
	session *market.Session
	send    chan wsMessage
	logger  *common.Logger
}

// handleWebSocket upgrades GET /api/ws and runs a session for the connection.
// Clients send market.Command frames and receive a "state" frame after every change.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	correlationID, _ := r.Context().Value(correlationIDKey).(string)
	c := &wsClient{
		conn:   conn,
		send:   make(chan wsMessage, sendBuffer),
		logger: s.logger.WithCorrelationId(correlationID),
	}
	c.session = market.NewSession(s.app.SessionDeps(), c.publish)

	c.logger.Info().Str("remote", r.RemoteAddr).Msg("session connected")

	go c.writePump()
	go c.readPump()
}

// publish queues a state frame. When the client falls behind, the oldest
// queued frame is dropped: every state is a full snapshot.
func (c *wsClient) publish(st market.State) {
	c.enqueue(wsMessage{Type: msgState, State: &st})
}

func (c *wsClient) enqueue(msg wsMessage) {
	for {
		select {
		case c.send <- msg:
			return
		default:
		}
		select {
		case <-c.send:
		default:
		}
	}
}

// readPump decodes commands until the socket closes, then stops the session.
func (c *wsClient) readPump() {
	defer func() {
		c.session.Close()
		close(c.send)
		c.conn.Close()
		c.logger.Info().Msg("session disconnected")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn().Err(err).Msg("websocket read failed")
			}
			return
		}

		var cmd market.Command
		if err := json.Unmarshal(data, &cmd); err != nil {
			c.enqueue(wsMessage{Type: msgError, Error: "invalid command: " + err.Error()})
			continue
		}
		if err := c.session.Handle(cmd); err != nil {
			c.logger.Debug().Str("command", cmd.Type).Err(err).Msg("command rejected")
			c.enqueue(wsMessage{Type: msgError, Error: err.Error()})
		}
	}
}

// writePump writes queued frames and keeps the connection alive with pings.
func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				c.logger.Debug().Err(err).Msg("websocket write failed")
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
