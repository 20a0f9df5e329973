package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"solitaire-ledger/internal/auth"
	"solitaire-ledger/internal/hub"
)

const (
	pongWait   = 60 * time.Second
	writeWait  = 10 * time.Second
	sendBuffer = 64
)

var errSlowConsumer = errors.New("websocket send buffer full")

type WebSocketHandler struct {
	Hub         *hub.Hub
	TokenConfig auth.TokenConfig
}

type clientMessage struct {
	Type string `json:"type"`
}

type serverMessage struct {
	Type     string `json:"type"`
	Identity string `json:"identity,omitempty"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsWriter queues outgoing frames for writePump, which owns the socket's
// write side. Write never blocks; a full queue fails the write and the hub
// drops the connection.
type wsWriter struct {
	conn      *websocket.Conn
	send      chan []byte
	closed    chan struct{}
	closeOnce sync.Once
}

func newWSWriter(conn *websocket.Conn) *wsWriter {
	return &wsWriter{
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		closed: make(chan struct{}),
	}
}

func (w *wsWriter) Write(message []byte) error {
	select {
	case <-w.closed:
		return websocket.ErrCloseSent
	default:
	}
	select {
	case w.send <- message:
		return nil
	default:
		return errSlowConsumer
	}
}

func (w *wsWriter) Close() error {
	w.closeOnce.Do(func() { close(w.closed) })
	return nil
}

func (w *wsWriter) writePump(pingPeriod time.Duration) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = w.conn.Close()
	}()

	for {
		select {
		case <-w.closed:
			_ = w.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		case message := <-w.send:
			_ = w.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := w.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			if err := w.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

// Serve streams the caller's contract events until the socket closes.
func (h *WebSocketHandler) Serve(c *gin.Context) {
	tokenString := c.Query("token")
	if tokenString == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authentication token"})
		return
	}
	claims, err := auth.VerifyToken(tokenString, h.TokenConfig)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authentication token"})
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	writer := newWSWriter(ws)
	go writer.writePump((pongWait * 9) / 10)

	conn := &hub.Connection{Identity: claims.Identity, Writer: writer}
	h.Hub.Register(conn)
	defer func() {
		h.Hub.Unregister(conn)
		_ = writer.Close()
	}()

	ws.SetReadLimit(64 * 1024)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	hello, _ := json.Marshal(serverMessage{Type: "ready", Identity: claims.Identity})
	_ = writer.Write(hello)

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		if msg.Type == "ping" {
			out, _ := json.Marshal(serverMessage{Type: "pong"})
			_ = writer.Write(out)
		}
	}
}
