package push

import (
	"sync"

	"github.com/google/uuid"
)

// Имена событий push-канала.
const (
	EventNewMessage = "newMessage"
)

// Handler - обработчик входящего события.
type Handler func(payload interface{})

// Subscription идентифицирует одну подписку. Каждый вызов On возвращает
// собственную подписку, даже для одинаковых обработчиков - отписка всегда
// адресная и не задевает чужие подписки на том же канале.
type Subscription struct {
	id    uuid.UUID
	event string
}

// Hub - внутрипроцессная шина событий push-канала. Доставка как минимум
// однократная, порядок и отсутствие дублей не гарантируются - потребители
// обязаны дедуплицировать по идентификатору сообщения.
type Hub struct {
	mu       sync.RWMutex
	handlers map[string]map[uuid.UUID]Handler
}

func NewHub() *Hub {
	return &Hub{
		handlers: make(map[string]map[uuid.UUID]Handler),
	}
}

// On регистрирует обработчик события и возвращает подписку для отписки.
func (h *Hub) On(event string, handler Handler) Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.handlers[event] == nil {
		h.handlers[event] = make(map[uuid.UUID]Handler)
	}

	sub := Subscription{id: uuid.New(), event: event}
	h.handlers[event][sub.id] = handler
	return sub
}

// Off удаляет подписку. Повторный вызов безопасен.
func (h *Hub) Off(sub Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if handlers, ok := h.handlers[sub.event]; ok {
		delete(handlers, sub.id)
	}
}

// Emit синхронно доставляет событие всем подписчикам.
// Обработчики не должны блокироваться.
func (h *Hub) Emit(event string, payload interface{}) {
	h.mu.RLock()
	handlers := make([]Handler, 0, len(h.handlers[event]))
	for _, handler := range h.handlers[event] {
		handlers = append(handlers, handler)
	}
	h.mu.RUnlock()

	for _, handler := range handlers {
		handler(payload)
	}
}
