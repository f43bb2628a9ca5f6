package push

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHub_EmitDeliversToAllSubscribers(t *testing.T) {
	hub := NewHub()

	var first, second []interface{}
	hub.On(EventNewMessage, func(payload interface{}) {
		first = append(first, payload)
	})
	hub.On(EventNewMessage, func(payload interface{}) {
		second = append(second, payload)
	})

	hub.Emit(EventNewMessage, "hello")

	assert.Equal(t, []interface{}{"hello"}, first)
	assert.Equal(t, []interface{}{"hello"}, second)
}

func TestHub_OffRemovesOnlyOneSubscription(t *testing.T) {
	hub := NewHub()

	var kept, removed int
	hub.On(EventNewMessage, func(interface{}) { kept++ })
	sub := hub.On(EventNewMessage, func(interface{}) { removed++ })

	hub.Off(sub)
	hub.Emit(EventNewMessage, nil)

	assert.Equal(t, 1, kept)
	assert.Equal(t, 0, removed)

	// Повторная отписка безопасна
	hub.Off(sub)
}

func TestHub_EmitUnknownEventIsNoop(t *testing.T) {
	hub := NewHub()
	assert.NotPanics(t, func() {
		hub.Emit("somethingElse", nil)
	})
}
