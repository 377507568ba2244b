package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"satdice-backend/internal/models"
	"satdice-backend/internal/services"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketHandler pushes session and pot updates to every connected browser.
// It implements services.Broadcaster.
type WebSocketHandler struct {
	engine *services.GameEngine
	pot    *services.PotService
	hub    *WebSocketHub
}

type WebSocketHub struct {
	clients    map[*websocket.Conn]bool
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	broadcast  chan *Message
}

type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

func NewWebSocketHandler(engine *services.GameEngine, pot *services.PotService) *WebSocketHandler {
	hub := &WebSocketHub{
		clients:    make(map[*websocket.Conn]bool),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		broadcast:  make(chan *Message, 100),
	}

	go hub.run()

	return &WebSocketHandler{
		engine: engine,
		pot:    pot,
		hub:    hub,
	}
}

func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	h.hub.register <- conn

	defer func() {
		h.hub.unregister <- conn
		conn.Close()
	}()

	conn.WriteJSON(Message{Type: "POT_UPDATE", Data: models.PotResponse{PotSats: h.pot.Current()}})
	conn.WriteJSON(Message{Type: "SESSION_UPDATE", Data: h.engine.Snapshot()})

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Msg("websocket read error")
			}
			break
		}

		if msg.Type == "PING" {
			conn.WriteJSON(Message{Type: "PONG", Data: gin.H{"timestamp": time.Now().Unix()}})
		}
	}
}

func (hub *WebSocketHub) run() {
	for {
		select {
		case conn := <-hub.register:
			hub.clients[conn] = true

		case conn := <-hub.unregister:
			delete(hub.clients, conn)

		case message := <-hub.broadcast:
			for conn := range hub.clients {
				conn.WriteJSON(message)
			}
		}
	}
}

func (h *WebSocketHandler) BroadcastSession(snap *models.SessionSnapshot) {
	h.hub.broadcast <- &Message{Type: "SESSION_UPDATE", Data: snap}
}

func (h *WebSocketHandler) BroadcastPot(sats int64) {
	h.hub.broadcast <- &Message{Type: "POT_UPDATE", Data: models.PotResponse{PotSats: sats}}
}
