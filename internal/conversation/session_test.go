package conversation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cargo_miniapp/internal/domain"
)

type fakeOrders struct {
	order *domain.Order
	err   error
}

func (f *fakeOrders) GetOrder(_ context.Context, _ uuid.UUID) (*domain.Order, error) {
	return f.order, f.err
}

type fakeHistory struct {
	mu        sync.Mutex
	pages     [][]*domain.Message
	calls     int
	blockCh   chan struct{} // если не nil, FetchMessages ждет закрытия канала
	enterCh   chan struct{} // если не nil, закрывается при входе в первый FetchMessages
	enterOnce sync.Once
	err       error
}

func (f *fakeHistory) FetchMessages(_ context.Context, _ uuid.UUID, _, _ int) ([]*domain.Message, int, error) {
	if f.enterCh != nil {
		f.enterOnce.Do(func() { close(f.enterCh) })
	}
	if f.blockCh != nil {
		<-f.blockCh
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, 0, f.err
	}
	page := f.pages[0]
	if len(f.pages) > 1 {
		f.pages = f.pages[1:]
	}
	return page, len(page), nil
}

func (f *fakeHistory) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeSender struct {
	mu      sync.Mutex
	calls   int
	result  *domain.Message
	err     error
	blockCh chan struct{}
}

func (f *fakeSender) CreateMessage(_ context.Context, _ uuid.UUID, _ string, _ *string) (*domain.Message, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.blockCh != nil {
		<-f.blockCh
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeSender) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeFeed struct {
	mu           sync.Mutex
	handler      func(*domain.Message)
	unsubscribed bool
}

func (f *fakeFeed) SubscribeNewMessages(handler func(*domain.Message)) func() {
	f.mu.Lock()
	f.handler = handler
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		f.unsubscribed = true
		f.handler = nil
		f.mu.Unlock()
	}
}

func (f *fakeFeed) push(msg *domain.Message) {
	f.mu.Lock()
	handler := f.handler
	f.mu.Unlock()
	if handler != nil {
		handler(msg)
	}
}

func msgAt(id string, orderID uuid.UUID, at time.Time) *domain.Message {
	return &domain.Message{
		ID:        uuid.NewSHA1(uuid.NameSpaceOID, []byte(id)),
		OrderID:   orderID,
		Text:      id,
		CreatedAt: at,
	}
}

func newTestSession(t *testing.T, orderID uuid.UUID, hasChat bool, history *fakeHistory, sender *fakeSender, feed *fakeFeed, hooks Hooks) *Session {
	t.Helper()
	orders := &fakeOrders{order: &domain.Order{ID: orderID, OrderNumber: 42, HasChat: hasChat}}
	s, err := New(orderID, Deps{
		Orders:  orders,
		History: history,
		Sender:  sender,
		Feed:    feed,
	}, hooks, WithRefetchDelay(5*time.Millisecond))
	require.NoError(t, err)
	return s
}

func TestNew_RequiresOrderID(t *testing.T) {
	_, err := New(uuid.Nil, Deps{}, Hooks{})
	require.ErrorIs(t, err, ErrNoOrderSelected)
}

func TestSession_DeduplicatesHistoryAndLive(t *testing.T) {
	orderID := uuid.New()
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	m1 := msgAt("m1", orderID, base)

	history := &fakeHistory{pages: [][]*domain.Message{{m1}}}
	feed := &fakeFeed{}
	s := newTestSession(t, orderID, true, history, &fakeSender{}, feed, Hooks{})
	require.NoError(t, s.Initialize(context.Background()))
	defer s.Teardown()

	// Дубликат по id из push-канала отбрасывается
	feed.push(msgAt("m1", orderID, base))

	view := s.Messages()
	require.Len(t, view, 1)
	assert.Equal(t, m1.ID, view[0].ID)
}

func TestSession_OrdersByCreatedAt(t *testing.T) {
	orderID := uuid.New()
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	history := &fakeHistory{pages: [][]*domain.Message{nil}}
	feed := &fakeFeed{}
	s := newTestSession(t, orderID, true, history, &fakeSender{}, feed, Hooks{})
	require.NoError(t, s.Initialize(context.Background()))
	defer s.Teardown()

	// Более позднее сообщение приходит первым
	feed.push(msgAt("m2", orderID, base.Add(5*time.Minute)))
	feed.push(msgAt("m1", orderID, base))

	view := s.Messages()
	require.Len(t, view, 2)
	assert.Equal(t, "m1", view[0].Text)
	assert.Equal(t, "m2", view[1].Text)
}

func TestSession_TieBreakIsStable(t *testing.T) {
	orderID := uuid.New()
	at := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	h1 := msgAt("h1", orderID, at)
	h2 := msgAt("h2", orderID, at)

	history := &fakeHistory{pages: [][]*domain.Message{{h1, h2}}}
	feed := &fakeFeed{}
	s := newTestSession(t, orderID, true, history, &fakeSender{}, feed, Hooks{})
	require.NoError(t, s.Initialize(context.Background()))
	defer s.Teardown()

	// Live-событие с той же меткой времени встает после истории
	feed.push(msgAt("l1", orderID, at))

	first := s.Messages()
	for i := 0; i < 10; i++ {
		again := s.Messages()
		require.Equal(t, len(first), len(again))
		for j := range first {
			assert.Equal(t, first[j].ID, again[j].ID, "merge must be deterministic")
		}
	}
	assert.Equal(t, "h1", first[0].Text)
	assert.Equal(t, "h2", first[1].Text)
	assert.Equal(t, "l1", first[2].Text)
}

func TestSession_IgnoresForeignOrderEvents(t *testing.T) {
	orderID := uuid.New()
	otherOrder := uuid.New()

	history := &fakeHistory{pages: [][]*domain.Message{nil}}
	feed := &fakeFeed{}
	s := newTestSession(t, orderID, true, history, &fakeSender{}, feed, Hooks{})
	require.NoError(t, s.Initialize(context.Background()))
	defer s.Teardown()

	feed.push(msgAt("foreign", otherOrder, time.Now()))

	assert.Empty(t, s.Messages())
}

func TestSession_SubmitValidation(t *testing.T) {
	orderID := uuid.New()
	history := &fakeHistory{pages: [][]*domain.Message{nil}}
	sender := &fakeSender{}
	s := newTestSession(t, orderID, true, history, sender, &fakeFeed{}, Hooks{})
	require.NoError(t, s.Initialize(context.Background()))
	defer s.Teardown()

	require.ErrorIs(t, s.Submit(context.Background(), "   "), ErrEmptyMessage)

	long := make([]rune, domain.MaxMessageLength+1)
	for i := range long {
		long[i] = 'x'
	}
	require.ErrorIs(t, s.Submit(context.Background(), string(long)), ErrMessageTooLong)

	// Ошибки валидации до сети не доходят
	assert.Equal(t, 0, sender.callCount())
}

func TestSession_AtMostOneSendInFlight(t *testing.T) {
	orderID := uuid.New()
	created := msgAt("created", orderID, time.Now())

	history := &fakeHistory{pages: [][]*domain.Message{nil}}
	block := make(chan struct{})
	sender := &fakeSender{result: created, blockCh: block}
	s := newTestSession(t, orderID, true, history, sender, &fakeFeed{}, Hooks{})
	require.NoError(t, s.Initialize(context.Background()))
	defer s.Teardown()

	done := make(chan error, 1)
	go func() { done <- s.Submit(context.Background(), "hello") }()

	// Дожидаемся, пока первая отправка займет слот
	require.Eventually(t, func() bool { return s.Sending() }, time.Second, time.Millisecond)

	require.ErrorIs(t, s.Submit(context.Background(), "hello again"), ErrSendInFlight)

	close(block)
	require.NoError(t, <-done)

	assert.Equal(t, 1, sender.callCount())
}

func TestSession_SendFailureRestoresDraft(t *testing.T) {
	orderID := uuid.New()
	sendErr := errors.New("network down")

	history := &fakeHistory{pages: [][]*domain.Message{nil}}
	sender := &fakeSender{err: sendErr}

	var failedText string
	var failedErr error
	s := newTestSession(t, orderID, true, history, sender, &fakeFeed{}, Hooks{
		OnSendFailed: func(text string, err error) {
			failedText = text
			failedErr = err
		},
	})
	require.NoError(t, s.Initialize(context.Background()))
	defer s.Teardown()

	require.ErrorIs(t, s.Submit(context.Background(), "hi"), sendErr)

	assert.Equal(t, "hi", s.Draft())
	assert.False(t, s.Sending())
	assert.Empty(t, s.Messages())
	assert.Equal(t, "hi", failedText)
	assert.ErrorIs(t, failedErr, sendErr)
}

func TestSession_SuccessfulSendIsVisibleImmediately(t *testing.T) {
	orderID := uuid.New()
	created := msgAt("created", orderID, time.Now())

	// Первая страница пустая, после отправки сервер возвращает сообщение
	history := &fakeHistory{pages: [][]*domain.Message{nil, {created}}}
	sender := &fakeSender{result: created}
	s := newTestSession(t, orderID, true, history, sender, &fakeFeed{}, Hooks{})
	require.NoError(t, s.Initialize(context.Background()))
	defer s.Teardown()

	require.NoError(t, s.Submit(context.Background(), "hello"))

	// Созданное сообщение видно сразу, без ожидания refetch-а
	view := s.Messages()
	require.Len(t, view, 1)
	assert.Equal(t, created.ID, view[0].ID)

	// Отложенный refetch сверяет состояние с сервером и не плодит дублей
	require.Eventually(t, func() bool { return history.callCount() >= 2 }, time.Second, time.Millisecond)
	require.Eventually(t, func() bool {
		v := s.Messages()
		return len(v) == 1 && v[0].ID == created.ID
	}, time.Second, time.Millisecond)
}

func TestSession_ChatCreatedTransitionIsMonotonic(t *testing.T) {
	orderID := uuid.New()
	history := &fakeHistory{pages: [][]*domain.Message{nil}}

	var chatRequiredNumber int64
	refreshes := 0
	s := newTestSession(t, orderID, false, history, &fakeSender{}, &fakeFeed{}, Hooks{
		OnChatRequired: func(orderNumber int64) { chatRequiredNumber = orderNumber },
		OnOrderRefresh: func() { refreshes++ },
	})
	require.NoError(t, s.Initialize(context.Background()))
	defer s.Teardown()

	assert.Equal(t, int64(42), chatRequiredNumber)
	assert.False(t, s.HasChat())

	s.OnChatCreated()
	assert.True(t, s.HasChat())
	assert.Equal(t, 1, refreshes)

	// Повторный вызов - no-op, обратного перехода не существует
	s.OnChatCreated()
	assert.True(t, s.HasChat())
	assert.Equal(t, 1, refreshes)
}

func TestSession_TeardownIsIdempotentAndUnsubscribes(t *testing.T) {
	orderID := uuid.New()
	history := &fakeHistory{pages: [][]*domain.Message{nil}}
	feed := &fakeFeed{}
	s := newTestSession(t, orderID, true, history, &fakeSender{}, feed, Hooks{})
	require.NoError(t, s.Initialize(context.Background()))

	s.Teardown()
	s.Teardown()

	assert.True(t, feed.unsubscribed)
	require.ErrorIs(t, s.Submit(context.Background(), "hello"), ErrSessionClosed)
}

func TestSession_StaleHistoryAfterTeardownIsDiscarded(t *testing.T) {
	orderID := uuid.New()
	stale := msgAt("stale", orderID, time.Now())

	block := make(chan struct{})
	entered := make(chan struct{})
	history := &fakeHistory{pages: [][]*domain.Message{{stale}}, blockCh: block, enterCh: entered}
	feed := &fakeFeed{}

	updates := 0
	s := newTestSession(t, orderID, true, history, &fakeSender{}, feed, Hooks{
		OnUpdate: func([]*domain.Message) { updates++ },
	})

	done := make(chan error, 1)
	go func() { done <- s.Initialize(context.Background()) }()

	// Закрываем сессию, пока запрос истории еще в полете
	<-entered
	s.Teardown()
	close(block)
	require.NoError(t, <-done)

	// Устаревший ответ не воскрешает сессию
	assert.Empty(t, s.Messages())
	assert.Equal(t, 0, updates)
}
