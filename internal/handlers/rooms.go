package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mossy-p/signal-relay/internal/models"
	"github.com/mossy-p/signal-relay/internal/relay"
)

// GetRoom returns a live room's id and member count (public).
func GetRoom(hub *relay.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		roomID := c.Param("roomId")

		size, ok := hub.RoomSize(roomID)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
			return
		}

		c.JSON(http.StatusOK, models.RoomInfo{
			ID:          roomID,
			MemberCount: size,
		})
	}
}

// ListRooms returns all live rooms (requires JWT).
func ListRooms(hub *relay.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		ids := hub.RoomIDs()

		rooms := make([]models.RoomInfo, 0, len(ids))
		for _, id := range ids {
			size, ok := hub.RoomSize(id)
			if !ok {
				// Emptied between listing and lookup.
				continue
			}
			rooms = append(rooms, models.RoomInfo{ID: id, MemberCount: size})
		}

		c.JSON(http.StatusOK, models.RoomListResponse{Rooms: rooms})
	}
}

// CloseRoom force-closes a room (requires JWT). Members are not
// disconnected; their later signals to the room drop silently.
func CloseRoom(hub *relay.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("user_id")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
			return
		}

		roomID := c.Param("roomId")
		if !hub.CloseRoom(roomID) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
			return
		}

		log.Printf("Room closed: %s by user %s", roomID, userID)

		c.JSON(http.StatusOK, gin.H{"message": "Room closed"})
	}
}
