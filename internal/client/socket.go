package client

import (
	"context"
	"encoding/json"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"cargo_miniapp/internal/domain"
	"cargo_miniapp/internal/push"
	"cargo_miniapp/pkg/logger"
)

// Socket - push-подключение клиента. Держит WebSocket к серверу,
// переподключается с бэкоффом и раздает события через push.Hub.
// Реализует conversation.MessageFeed.
type Socket struct {
	wsURL string
	token func() string
	hub   *push.Hub
	log   logger.Logger

	mu     sync.Mutex
	conn   *websocket.Conn
	cancel context.CancelFunc
	done   chan struct{}
}

const (
	reconnectMinDelay = time.Second
	reconnectMaxDelay = 30 * time.Second
)

// NewSocket создает push-подключение. token вызывается перед каждой
// попыткой подключения - после refresh используется свежий токен.
func NewSocket(wsURL string, token func() string, log logger.Logger) *Socket {
	return &Socket{
		wsURL: wsURL,
		token: token,
		hub:   push.NewHub(),
		log:   log,
	}
}

// Connect запускает цикл подключения в фоне. Возвращается сразу.
func (s *Socket) Connect() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.run(ctx)
}

// Close останавливает цикл подключения и ждет его завершения.
func (s *Socket) Close() {
	s.mu.Lock()
	cancel := s.cancel
	conn := s.conn
	done := s.done
	s.cancel = nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}

	cancel()
	if conn != nil {
		conn.Close()
	}
	<-done
}

// SubscribeNewMessages реализует conversation.MessageFeed.
func (s *Socket) SubscribeNewMessages(handler func(*domain.Message)) (unsubscribe func()) {
	sub := s.hub.On(push.EventNewMessage, func(payload interface{}) {
		if message, ok := payload.(*domain.Message); ok {
			handler(message)
		}
	})

	return func() {
		s.hub.Off(sub)
	}
}

func (s *Socket) run(ctx context.Context) {
	defer close(s.done)

	delay := reconnectMinDelay
	for {
		if ctx.Err() != nil {
			return
		}

		conn, err := s.dial(ctx)
		if err != nil {
			s.log.Warn("Push connection failed", "error", err, "retry_in", delay)
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
			delay *= 2
			if delay > reconnectMaxDelay {
				delay = reconnectMaxDelay
			}
			continue
		}

		delay = reconnectMinDelay
		s.mu.Lock()
		s.conn = conn
		s.mu.Unlock()

		s.readLoop(conn)

		s.mu.Lock()
		s.conn = nil
		s.mu.Unlock()
	}
}

func (s *Socket) dial(ctx context.Context) (*websocket.Conn, error) {
	u, err := url.Parse(s.wsURL)
	if err != nil {
		return nil, err
	}

	q := u.Query()
	q.Set("token", s.token())
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	return conn, err
}

func (s *Socket) readLoop(conn *websocket.Conn) {
	defer conn.Close()

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var envelope push.Envelope
		if err := json.Unmarshal(frame, &envelope); err != nil {
			s.log.Warn("Malformed push frame", "error", err)
			continue
		}

		switch envelope.Event {
		case push.EventNewMessage:
			message := &domain.Message{}
			if err := json.Unmarshal(envelope.Data, message); err != nil {
				s.log.Warn("Malformed newMessage payload", "error", err)
				continue
			}
			s.hub.Emit(push.EventNewMessage, message)
		default:
			// Незнакомые события пропускаем: сервер может быть новее клиента
		}
	}
}
