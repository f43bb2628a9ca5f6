package conversation

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"cargo_miniapp/internal/domain"
	"cargo_miniapp/pkg/logger"
)

var (
	// ErrNoOrderSelected - сессия не может существовать без заказа;
	// "заказ не выбран" - отдельное состояние приложения, а не ошибка движка.
	ErrNoOrderSelected = errors.New("no order selected")

	// ErrEmptyMessage - локальная ошибка валидации, до сети не доходит.
	ErrEmptyMessage = errors.New("message text is empty")

	// ErrMessageTooLong - текст длиннее domain.MaxMessageLength кодовых точек.
	ErrMessageTooLong = errors.New("message text is too long")

	// ErrSendInFlight - отправка уже выполняется; повторный Submit игнорируется.
	ErrSendInFlight = errors.New("send already in flight")

	// ErrSessionClosed - операция после Teardown.
	ErrSessionClosed = errors.New("conversation session is closed")
)

// OrderReader - внешний коллаборатор: чтение карточки заказа (hasChat, номер).
type OrderReader interface {
	GetOrder(ctx context.Context, orderID uuid.UUID) (*domain.Order, error)
}

// HistoryFetcher - внешний коллаборатор: страница сохраненных сообщений заказа.
// Порядок возвращаемых сообщений не важен - движок сортирует сам.
type HistoryFetcher interface {
	FetchMessages(ctx context.Context, orderID uuid.UUID, limit, offset int) ([]*domain.Message, int, error)
}

// MessageSender - внешний коллаборатор: создание сообщения.
// Сервер назначает id и createdAt.
type MessageSender interface {
	CreateMessage(ctx context.Context, orderID uuid.UUID, text string, image *string) (*domain.Message, error)
}

// MessageFeed - push-канал. Канал может быть мультиплексирован шире одной
// переписки, поэтому движок фильтрует события по своему orderID.
// Возвращаемая функция отписывает ровно этот обработчик.
type MessageFeed interface {
	SubscribeNewMessages(handler func(*domain.Message)) (unsubscribe func())
}

// Hooks - сигналы сессии наружу. Любое поле может быть nil.
// Вызываются без удержания внутреннего мьютекса.
type Hooks struct {
	// Отображаемая последовательность пересчитана.
	OnUpdate func(messages []*domain.Message)

	// Прокрутка к последнему сообщению (после загрузки истории или live-события).
	OnScrollToLatest func()

	// Отправка не удалась; черновик уже восстановлен, пользователь может повторить.
	OnSendFailed func(text string, err error)

	// Чат по заказу еще не создан - показать предложение начать чат.
	OnChatRequired func(orderNumber int64)

	// Чат создан - внешнему слою нужно обновить карточку заказа.
	OnOrderRefresh func()

	// Некритичная ошибка фоновой операции (история не загрузилась и т.п.).
	OnError func(err error)
}

// Deps - коллабораторы сессии.
type Deps struct {
	Orders  OrderReader
	History HistoryFetcher
	Sender  MessageSender
	Feed    MessageFeed
	Log     logger.Logger
}

// Option настраивает сессию.
type Option func(*Session)

// WithHistoryLimit задает размер страницы истории (по умолчанию 100).
func WithHistoryLimit(limit int) Option {
	return func(s *Session) { s.historyLimit = limit }
}

// WithRefetchDelay задает задержку перед пост-отправочным refetch-ом.
func WithRefetchDelay(d time.Duration) Option {
	return func(s *Session) { s.refetchDelay = d }
}

// Session - сессия переписки по одному заказу на время жизни экрана.
// Сводит страницу истории и live-поток в одну упорядоченную
// последовательность без дублей и управляет отправкой.
//
// Инварианты:
//   - отображаемая последовательность = distinctById(history ∪ live),
//     отсортированная по createdAt по возрастанию;
//   - hasChat переходит false→true не более одного раза, обратно - никогда;
//   - не более одной отправки в полете.
type Session struct {
	orderID      uuid.UUID
	deps         Deps
	hooks        Hooks
	historyLimit int
	refetchDelay time.Duration

	mu           sync.Mutex
	hasChat      bool
	orderNumber  int64
	history      []*domain.Message
	live         []*domain.Message
	draft        string
	sending      bool
	closed       bool
	epoch        uint64
	unsubscribe  func()
	refetchTimer *time.Timer
}

// New привязывает сессию к заказу. Пустой orderID - ошибка вызывающего слоя.
func New(orderID uuid.UUID, deps Deps, hooks Hooks, opts ...Option) (*Session, error) {
	if orderID == uuid.Nil {
		return nil, ErrNoOrderSelected
	}

	s := &Session{
		orderID:      orderID,
		deps:         deps,
		hooks:        hooks,
		historyLimit: 100,
		refetchDelay: 100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Initialize читает карточку заказа, подписывается на live-канал и загружает
// первую страницу истории. Подписка оформляется до загрузки - события,
// пришедшие во время загрузки, не теряются (дедупликация уберет пересечения).
func (s *Session) Initialize(ctx context.Context) error {
	order, err := s.deps.Orders.GetOrder(ctx, s.orderID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	s.hasChat = order.HasChat
	s.orderNumber = order.OrderNumber
	s.unsubscribe = s.deps.Feed.SubscribeNewMessages(s.OnLiveEvent)
	chatRequired := !order.HasChat
	s.mu.Unlock()

	if chatRequired && s.hooks.OnChatRequired != nil {
		s.hooks.OnChatRequired(order.OrderNumber)
	}

	return s.refetch(ctx)
}

// refetch загружает страницу истории и применяет ее, если сессия к моменту
// ответа все еще жива и не перезапускалась (защита от устаревших ответов).
func (s *Session) refetch(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	epoch := s.epoch
	limit := s.historyLimit
	s.mu.Unlock()

	messages, _, err := s.deps.History.FetchMessages(ctx, s.orderID, limit, 0)
	if err != nil {
		return err
	}

	s.onHistoryLoaded(epoch, messages)
	return nil
}

// onHistoryLoaded целиком заменяет историю и вычищает из live-буфера
// сообщения, которые сервер уже отдал в составе страницы.
func (s *Session) onHistoryLoaded(epoch uint64, messages []*domain.Message) {
	s.mu.Lock()
	if s.closed || s.epoch != epoch {
		// Устаревший ответ - сессия закрыта или перезапущена
		s.mu.Unlock()
		return
	}

	s.history = messages

	seen := make(map[uuid.UUID]struct{}, len(messages))
	for _, m := range messages {
		seen[m.ID] = struct{}{}
	}
	kept := s.live[:0]
	for _, m := range s.live {
		if _, ok := seen[m.ID]; !ok {
			kept = append(kept, m)
		}
	}
	s.live = kept

	view := s.snapshotLocked()
	s.mu.Unlock()

	s.notifyUpdate(view)
}

// OnLiveEvent обрабатывает входящее push-событие. Событие чужого заказа
// молча отбрасывается (канал мультиплексирован), дубликат по id - тоже.
// Обработка не блокируется и не приостанавливается.
func (s *Session) OnLiveEvent(message *domain.Message) {
	if message == nil || message.OrderID != s.orderID {
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if s.containsLocked(message.ID) {
		s.mu.Unlock()
		return
	}
	s.live = append(s.live, message)
	view := s.snapshotLocked()
	s.mu.Unlock()

	s.notifyUpdate(view)
}

// Submit отправляет текст черновика. Пустой после обрезки текст - локальная
// ошибка валидации; повторный вызов при отправке в полете - ErrSendInFlight
// (вызывающий слой трактует как no-op). Флаг отправки выставляется
// синхронно, до сетевого вызова - дубликат от повторного нажатия
// отсекается детерминированно.
func (s *Session) Submit(ctx context.Context, text string) error {
	trimmed := strings.TrimSpace(text)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if trimmed == "" {
		s.mu.Unlock()
		return ErrEmptyMessage
	}
	if utf8.RuneCountInString(trimmed) > domain.MaxMessageLength {
		s.mu.Unlock()
		return ErrMessageTooLong
	}
	if s.sending {
		s.mu.Unlock()
		return ErrSendInFlight
	}
	s.sending = true
	s.draft = ""
	epoch := s.epoch
	s.mu.Unlock()

	created, err := s.deps.Sender.CreateMessage(ctx, s.orderID, trimmed, nil)
	if err != nil {
		// Восстанавливаем черновик, чтобы пользователь мог повторить отправку
		s.mu.Lock()
		s.sending = false
		if !s.closed {
			s.draft = trimmed
		}
		s.mu.Unlock()

		if s.hooks.OnSendFailed != nil {
			s.hooks.OnSendFailed(trimmed, err)
		}
		return err
	}

	s.mu.Lock()
	s.sending = false
	if s.closed || s.epoch != epoch {
		s.mu.Unlock()
		return nil
	}

	// Оптимистично вставляем созданное сообщение по серверному id, чтобы не
	// было окна, в котором отправленный текст невидим до завершения refetch-а.
	if created != nil && !s.containsLocked(created.ID) {
		s.live = append(s.live, created)
	}
	view := s.snapshotLocked()
	s.scheduleRefetchLocked(epoch)
	s.mu.Unlock()

	s.notifyUpdate(view)
	return nil
}

// scheduleRefetchLocked планирует отложенный refetch для сверки с сервером
// после успешной отправки. Вызывается с удержанным мьютексом.
func (s *Session) scheduleRefetchLocked(epoch uint64) {
	if s.refetchTimer != nil {
		s.refetchTimer.Stop()
	}
	s.refetchTimer = time.AfterFunc(s.refetchDelay, func() {
		s.mu.Lock()
		stale := s.closed || s.epoch != epoch
		s.mu.Unlock()
		if stale {
			return
		}
		if err := s.refetch(context.Background()); err != nil && !errors.Is(err, ErrSessionClosed) {
			if s.deps.Log != nil {
				s.deps.Log.Warn("Post-send refetch failed", "error", err, "order_id", s.orderID)
			}
			if s.hooks.OnError != nil {
				s.hooks.OnError(err)
			}
		}
	})
}

// OnChatCreated фиксирует переход NO_CHAT → CHAT_ACTIVE. Переход срабатывает
// не более одного раза; обратного перехода не существует. Повторный вызов -
// безопасный no-op.
func (s *Session) OnChatCreated() {
	s.mu.Lock()
	if s.closed || s.hasChat {
		s.mu.Unlock()
		return
	}
	s.hasChat = true
	s.live = nil
	view := s.snapshotLocked()
	s.mu.Unlock()

	if s.hooks.OnOrderRefresh != nil {
		s.hooks.OnOrderRefresh()
	}
	s.notifyUpdate(view)
}

// Teardown отписывается от live-канала и сбрасывает состояние сессии.
// Идемпотентен. Все незавершенные асинхронные результаты после этого
// отбрасываются защитой от устаревших ответов.
func (s *Session) Teardown() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.epoch++
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	if s.refetchTimer != nil {
		s.refetchTimer.Stop()
		s.refetchTimer = nil
	}
	s.history = nil
	s.live = nil
	s.draft = ""
	s.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

// Messages возвращает отображаемую последовательность: каждый id ровно один
// раз, по возрастанию createdAt. При равных метках времени порядок
// определяется порядком построения - страница истории, затем live-события
// в порядке прихода. Это документированный тай-брейк, а не полный порядок
// по createdAt.
func (s *Session) Messages() []*domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() []*domain.Message {
	merged := make([]*domain.Message, 0, len(s.history)+len(s.live))
	seen := make(map[uuid.UUID]struct{}, len(s.history)+len(s.live))

	for _, m := range s.history {
		if _, ok := seen[m.ID]; ok {
			continue
		}
		seen[m.ID] = struct{}{}
		merged = append(merged, m)
	}
	for _, m := range s.live {
		if _, ok := seen[m.ID]; ok {
			continue
		}
		seen[m.ID] = struct{}{}
		merged = append(merged, m)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].CreatedAt.Before(merged[j].CreatedAt)
	})

	return merged
}

func (s *Session) containsLocked(id uuid.UUID) bool {
	for _, m := range s.history {
		if m.ID == id {
			return true
		}
	}
	for _, m := range s.live {
		if m.ID == id {
			return true
		}
	}
	return false
}

func (s *Session) notifyUpdate(view []*domain.Message) {
	if s.hooks.OnUpdate != nil {
		s.hooks.OnUpdate(view)
	}
	if s.hooks.OnScrollToLatest != nil {
		s.hooks.OnScrollToLatest()
	}
}

// OrderID возвращает заказ, к которому привязана сессия.
func (s *Session) OrderID() uuid.UUID { return s.orderID }

// OrderNumber возвращает номер заказа для отображения.
func (s *Session) OrderNumber() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orderNumber
}

// HasChat сообщает, существует ли чат по заказу.
func (s *Session) HasChat() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasChat
}

// Sending сообщает, выполняется ли отправка.
func (s *Session) Sending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sending
}

// Draft возвращает текущий черновик (восстановленный после неудачной отправки).
func (s *Session) Draft() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft
}

// SetDraft обновляет черновик из поля ввода.
func (s *Session) SetDraft(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.draft = text
	}
}
