package handlers

import (
	"encoding/json"
	"net"
	"net/http"
	"time"

	gorillaws "github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	ws "github.com/theakshaypant/meetbar/internal/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
)

var upgrader = gorillaws.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     sameHostOrigin,
}

// sameHostOrigin accepts non-browser clients and pages served from a
// loopback address.
func sameHostOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	req, err := http.NewRequest(http.MethodGet, origin, nil)
	if err != nil {
		return false
	}
	host := req.URL.Hostname()
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// WebSocketUpgrade upgrades the connection and attaches it to hub.
func WebSocketUpgrade(hub *ws.Hub, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warn().Err(err).Msg("websocket upgrade")
			return
		}

		client := ws.NewClient(hub)
		hub.Register(client)

		go writePump(conn, client)
		go readPump(conn, client, hub, log)
	}
}

// writePump pumps messages from the hub to the connection.
func writePump(conn *gorillaws.Conn, client *ws.Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case message, ok := <-client.Send():
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				conn.WriteMessage(gorillaws.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(gorillaws.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(gorillaws.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump handles client commands until the connection closes.
func readPump(conn *gorillaws.Conn, client *ws.Client, hub *ws.Hub, log zerolog.Logger) {
	defer func() {
		hub.Unregister(client)
		conn.Close()
	}()

	conn.SetReadLimit(65536)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if gorillaws.IsUnexpectedCloseError(err, gorillaws.CloseGoingAway, gorillaws.CloseAbnormalClosure) {
				log.Debug().Err(err).Str("client", client.ID).Msg("websocket read")
			}
			return
		}
		if reply, ok := handleClientMessage(raw); ok {
			if b, err := reply.JSON(); err == nil {
				hub.Reply(client, b)
			}
		}
	}
}

// handleClientMessage answers pings and rejects anything else.
func handleClientMessage(raw []byte) (ws.Message, bool) {
	var m ws.Message
	if err := json.Unmarshal(raw, &m); err != nil {
		return ws.NewMessage(ws.TypeError, ws.ErrorPayload{Code: "bad_request", Message: "invalid message"}), true
	}
	switch m.Type {
	case ws.TypePing:
		return ws.NewMessage(ws.TypePong, nil), true
	default:
		return ws.NewMessage(ws.TypeError, ws.ErrorPayload{Code: "unsupported", Message: "unsupported message type " + string(m.Type)}), true
	}
}
