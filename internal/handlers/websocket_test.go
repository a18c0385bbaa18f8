package handlers

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/mossy-p/signal-relay/internal/models"
	"github.com/mossy-p/signal-relay/internal/relay"
)

func newSignalingServer(t *testing.T) (*httptest.Server, *relay.Hub) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	registry := relay.NewRegistry()
	hub := relay.NewHub(registry, nil)

	router := gin.New()
	router.GET("/ws", HandleSignaling(hub, registry))

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server, hub
}

func dialSignaling(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, msg models.Message) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(msg))
}

func receive(t *testing.T, conn *websocket.Conn) models.Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg models.Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func expectSilence(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	var msg models.Message
	err := conn.ReadJSON(&msg)
	require.Error(t, err, "expected no message, got %+v", msg)
	require.True(t, strings.Contains(err.Error(), "timeout") ||
		strings.Contains(err.Error(), "deadline"), "unexpected read error: %v", err)
}

func TestCreateJoinSignalFlow(t *testing.T) {
	server, _ := newSignalingServer(t)

	a := dialSignaling(t, server)
	send(t, a, models.Message{Type: models.MessageTypeCreateRoom})

	joined := receive(t, a)
	require.Equal(t, models.MessageTypeRoomJoined, joined.Type)
	require.Regexp(t, "^[A-Z2-9]{6}$", joined.RoomID)
	roomID := joined.RoomID

	b := dialSignaling(t, server)
	send(t, b, models.Message{Type: models.MessageTypeJoinRoom, RoomID: roomID})

	joined = receive(t, b)
	require.Equal(t, models.MessageTypeRoomJoined, joined.Type)
	require.Equal(t, roomID, joined.RoomID)

	offer := json.RawMessage(`{"offer":{"type":"offer","sdp":"v=0"}}`)
	send(t, a, models.Message{Type: models.MessageTypeSignal, RoomID: roomID, Payload: offer})

	got := receive(t, b)
	require.Equal(t, models.MessageTypeSignal, got.Type)
	require.Equal(t, roomID, got.RoomID)
	require.JSONEq(t, string(offer), string(got.Payload))

	// The sender gets nothing back from its own signal.
	expectSilence(t, a)
}

func TestJoinUnknownRoomReturnsError(t *testing.T) {
	server, hub := newSignalingServer(t)

	conn := dialSignaling(t, server)
	send(t, conn, models.Message{Type: models.MessageTypeJoinRoom, RoomID: "ZZZZZZ"})

	msg := receive(t, conn)
	require.Equal(t, models.MessageTypeError, msg.Type)
	require.Equal(t, "Room does not exist", msg.Error)

	// The failed join caused no state mutation.
	require.Empty(t, hub.RoomIDs())

	// The connection survives the error and remains usable.
	send(t, conn, models.Message{Type: models.MessageTypeCreateRoom})
	require.Equal(t, models.MessageTypeRoomJoined, receive(t, conn).Type)
}

func TestCreateRoomWithSuppliedID(t *testing.T) {
	server, _ := newSignalingServer(t)

	a := dialSignaling(t, server)
	send(t, a, models.Message{Type: models.MessageTypeCreateRoom, RoomID: "standup"})

	joined := receive(t, a)
	require.Equal(t, models.MessageTypeRoomJoined, joined.Type)
	require.Equal(t, "standup", joined.RoomID)

	// A second create with the same id fails; the room is untouched.
	b := dialSignaling(t, server)
	send(t, b, models.Message{Type: models.MessageTypeCreateRoom, RoomID: "standup"})

	msg := receive(t, b)
	require.Equal(t, models.MessageTypeError, msg.Type)
	require.Equal(t, "Room already exists", msg.Error)

	send(t, b, models.Message{Type: models.MessageTypeJoinRoom, RoomID: "standup"})
	require.Equal(t, models.MessageTypeRoomJoined, receive(t, b).Type)
}

func TestSignalAfterPeerDisconnectIsDropped(t *testing.T) {
	server, hub := newSignalingServer(t)

	a := dialSignaling(t, server)
	send(t, a, models.Message{Type: models.MessageTypeCreateRoom})
	roomID := receive(t, a).RoomID

	b := dialSignaling(t, server)
	send(t, b, models.Message{Type: models.MessageTypeJoinRoom, RoomID: roomID})
	receive(t, b)

	// A goes away; the transport close triggers the disconnect path.
	a.Close()
	require.Eventually(t, func() bool {
		size, ok := hub.RoomSize(roomID)
		return ok && size == 1
	}, 2*time.Second, 10*time.Millisecond)

	// B's signal now reaches nobody and surfaces no error.
	send(t, b, models.Message{
		Type:    models.MessageTypeSignal,
		RoomID:  roomID,
		Payload: json.RawMessage(`{"candidate":{}}`),
	})
	expectSilence(t, b)
}

func TestLastDisconnectDeletesRoom(t *testing.T) {
	server, hub := newSignalingServer(t)

	a := dialSignaling(t, server)
	send(t, a, models.Message{Type: models.MessageTypeCreateRoom})
	roomID := receive(t, a).RoomID

	a.Close()
	require.Eventually(t, func() bool {
		_, ok := hub.RoomSize(roomID)
		return !ok
	}, 2*time.Second, 10*time.Millisecond)

	// The identifier is free again for later creates.
	b := dialSignaling(t, server)
	send(t, b, models.Message{Type: models.MessageTypeCreateRoom, RoomID: roomID})
	joined := receive(t, b)
	require.Equal(t, models.MessageTypeRoomJoined, joined.Type)
	require.Equal(t, roomID, joined.RoomID)
}
