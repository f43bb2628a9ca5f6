package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"cargo_miniapp/internal/push"
	"cargo_miniapp/internal/service"
	"cargo_miniapp/pkg/logger"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // В продакшене нужно проверять origin
	},
}

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

type WebSocketHandler struct {
	authService service.AuthService
	pushSrv     *push.Server
	log         logger.Logger
}

func NewWebSocketHandler(authService service.AuthService, pushSrv *push.Server, log logger.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		authService: authService,
		pushSrv:     pushSrv,
		log:         log,
	}
}

// Handle поднимает WebSocket-подключение push-канала. Токен передается
// в query-параметре: заголовки при апгрейде из Mini-App недоступны.
func (h *WebSocketHandler) Handle(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "token query parameter required"})
		return
	}

	user, err := h.authService.ValidateToken(c.Request.Context(), token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error("Failed to upgrade connection", "error", err)
		return
	}

	client := h.pushSrv.Register(user.ID)
	h.log.Info("Push connection opened", "user_id", user.ID)

	go h.writePump(conn, client)
	h.readPump(conn, client)
}

// readPump держит подключение и следит за его живостью. Входящие
// текстовые кадры игнорируются: канал односторонний, клиент шлет
// данные только по REST.
func (h *WebSocketHandler) readPump(conn *websocket.Conn, client *push.Client) {
	defer func() {
		h.pushSrv.Unregister(client)
		conn.Close()
		h.log.Info("Push connection closed", "user_id", client.UserID)
	}()

	conn.SetReadLimit(4096)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *WebSocketHandler) writePump(conn *websocket.Conn, client *push.Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case frame, ok := <-client.Send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
