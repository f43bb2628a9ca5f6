package push

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cargo_miniapp/pkg/logger"
)

func TestServer_EmitReachesOnlyListedUsers(t *testing.T) {
	srv := NewServer(logger.New("error"))

	alice := uuid.New()
	bob := uuid.New()

	aliceConn := srv.Register(alice)
	bobConn := srv.Register(bob)
	defer srv.Unregister(aliceConn)
	defer srv.Unregister(bobConn)

	srv.Emit(EventNewMessage, map[string]string{"text": "hi"}, alice)

	select {
	case frame := <-aliceConn.Send:
		var envelope Envelope
		require.NoError(t, json.Unmarshal(frame, &envelope))
		assert.Equal(t, EventNewMessage, envelope.Event)
	default:
		t.Fatal("alice should have received a frame")
	}

	select {
	case <-bobConn.Send:
		t.Fatal("bob should not have received a frame")
	default:
	}
}

func TestServer_EmitFansOutToAllUserConnections(t *testing.T) {
	srv := NewServer(logger.New("error"))

	userID := uuid.New()
	first := srv.Register(userID)
	second := srv.Register(userID)
	defer srv.Unregister(first)
	defer srv.Unregister(second)

	srv.Emit(EventNewMessage, "payload", userID)

	assert.Len(t, first.Send, 1)
	assert.Len(t, second.Send, 1)
}

func TestServer_SlowConnectionDropsFrameInsteadOfBlocking(t *testing.T) {
	srv := NewServer(logger.New("error"))

	userID := uuid.New()
	conn := srv.Register(userID)
	defer srv.Unregister(conn)

	// Переполняем буфер подключения
	for i := 0; i < cap(conn.Send)+10; i++ {
		srv.Emit(EventNewMessage, i, userID)
	}

	assert.Len(t, conn.Send, cap(conn.Send))
}

func TestServer_UnregisterClosesSendChannel(t *testing.T) {
	srv := NewServer(logger.New("error"))

	conn := srv.Register(uuid.New())
	srv.Unregister(conn)

	_, open := <-conn.Send
	assert.False(t, open)

	// Событие после отписки никуда не уходит и не паникует
	assert.NotPanics(t, func() {
		srv.Emit(EventNewMessage, "late", conn.UserID)
	})
}
