package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/mossy-p/signal-relay/internal/models"
	"github.com/mossy-p/signal-relay/internal/relay"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 64 * 1024 // enough for SDP offers/answers
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origin checking is handled by middleware
		return true
	},
}

// Client represents a WebSocket client connection
type Client struct {
	ID   string
	Conn *websocket.Conn
	Send chan []byte
	hub  *relay.Hub
}

// HandleSignaling upgrades the connection and runs the signaling
// session: every client connects to the same endpoint and then drives
// room membership with createRoom/joinRoom/signal messages.
func HandleSignaling(hub *relay.Hub, registry *relay.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("Failed to upgrade connection: %v", err)
			return
		}

		send := make(chan []byte, relay.SendBufferSize)
		client := &Client{
			ID:   registry.Register(send),
			Conn: conn,
			Send: send,
			hub:  hub,
		}

		log.Printf("Peer %s connected from %s", client.ID, conn.RemoteAddr())

		go client.writePump()
		go client.readPump()
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Disconnect(c.ID)
		c.Conn.Close()
		log.Printf("Peer %s disconnected", c.ID)
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		var msg models.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("Failed to parse message from %s: %v", c.ID, err)
			continue
		}

		c.dispatch(msg)
	}
}

// dispatch routes one inbound message to the relay operation it names.
func (c *Client) dispatch(msg models.Message) {
	switch msg.Type {
	case models.MessageTypeCreateRoom:
		roomID, err := c.hub.CreateRoom(c.ID, msg.RoomID)
		if err != nil {
			c.sendError(err)
			return
		}
		c.sendMessage(models.Message{
			Type:   models.MessageTypeRoomJoined,
			RoomID: roomID,
		})

	case models.MessageTypeJoinRoom:
		if err := c.hub.JoinRoom(c.ID, msg.RoomID); err != nil {
			c.sendError(err)
			return
		}
		c.sendMessage(models.Message{
			Type:   models.MessageTypeRoomJoined,
			RoomID: msg.RoomID,
		})

	case models.MessageTypeSignal:
		// Forward the payload untouched to the other room members. A
		// miss (room gone, sender already left) drops silently.
		out, err := json.Marshal(models.Message{
			Type:    models.MessageTypeSignal,
			RoomID:  msg.RoomID,
			Payload: msg.Payload,
		})
		if err != nil {
			log.Printf("Failed to marshal signal from %s: %v", c.ID, err)
			return
		}
		c.hub.Relay(c.ID, msg.RoomID, out)

	default:
		log.Printf("Unknown message type from %s: %s", c.ID, msg.Type)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("Failed to write message: %v", err)
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) sendMessage(msg models.Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Failed to marshal message: %v", err)
		return
	}

	select {
	case c.Send <- data:
	default:
		log.Printf("Failed to send message to peer %s, buffer full", c.ID)
	}
}

// sendError reports a failed request back to the originating client.
// Request failures never terminate the connection.
func (c *Client) sendError(err error) {
	c.sendMessage(models.Message{
		Type:  models.MessageTypeError,
		Error: errorText(err),
	})
}

func errorText(err error) string {
	switch {
	case errors.Is(err, relay.ErrRoomNotFound):
		return "Room does not exist"
	case errors.Is(err, relay.ErrRoomAlreadyExists):
		return "Room already exists"
	case errors.Is(err, relay.ErrInvalidRoomID):
		return "Invalid room id"
	default:
		return err.Error()
	}
}
