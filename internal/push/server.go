package push

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"

	"cargo_miniapp/pkg/logger"
)

// Envelope - кадр push-канала поверх WebSocket.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Client - одно WebSocket-подключение пользователя. Кадры для отправки
// кладутся в буферизованный канал Send; писатель живет в handler-е.
type Client struct {
	UserID uuid.UUID
	Send   chan []byte
}

// Server - реестр активных push-подключений, ключ - идентификатор
// пользователя. Один пользователь может держать несколько подключений
// (несколько открытых Mini-App).
type Server struct {
	mu      sync.RWMutex
	clients map[uuid.UUID]map[*Client]struct{}
	log     logger.Logger
}

func NewServer(log logger.Logger) *Server {
	return &Server{
		clients: make(map[uuid.UUID]map[*Client]struct{}),
		log:     log,
	}
}

func (s *Server) Register(userID uuid.UUID) *Client {
	client := &Client{
		UserID: userID,
		Send:   make(chan []byte, 32),
	}

	s.mu.Lock()
	if s.clients[userID] == nil {
		s.clients[userID] = make(map[*Client]struct{})
	}
	s.clients[userID][client] = struct{}{}
	s.mu.Unlock()

	return client
}

func (s *Server) Unregister(client *Client) {
	s.mu.Lock()
	if conns, ok := s.clients[client.UserID]; ok {
		if _, ok := conns[client]; ok {
			delete(conns, client)
			close(client.Send)
			if len(conns) == 0 {
				delete(s.clients, client.UserID)
			}
		}
	}
	s.mu.Unlock()
}

// Emit отправляет событие всем подключениям перечисленных пользователей.
// Медленное подключение с переполненным буфером пропускается - клиент
// восстановит состояние ближайшим refetch-ом истории.
func (s *Server) Emit(event string, payload interface{}, userIDs ...uuid.UUID) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.log.Error("Failed to marshal push payload", "error", err, "event", event)
		return
	}

	frame, err := json.Marshal(Envelope{Event: event, Data: data})
	if err != nil {
		s.log.Error("Failed to marshal push envelope", "error", err, "event", event)
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, userID := range userIDs {
		for client := range s.clients[userID] {
			select {
			case client.Send <- frame:
			default:
				s.log.Warn("Push buffer full, dropping frame", "user_id", userID, "event", event)
			}
		}
	}
}
