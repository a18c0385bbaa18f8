// Package redis mirrors room membership to Redis for external
// dashboards. The mirror is strictly best-effort: room state authority
// lives in memory, and mirror failures are logged, never surfaced.
package redis

import (
	"context"
	"log"
	"time"

	"github.com/mossy-p/signal-relay/config"
	"github.com/redis/go-redis/v9"
)

const (
	opTimeout = 2 * time.Second

	// Mirror keys expire on their own so a crashed instance does not
	// leave stale presence behind forever.
	keyTTL = 24 * time.Hour

	liveRoomsKey = "rooms:live"
)

// Mirror writes per-room member sets under "room:<id>:peers" and keeps
// a set of live room ids. It satisfies the relay's Presence interface.
type Mirror struct {
	client *redis.Client
}

// Connect initializes the mirror and verifies the connection.
func Connect(cfg config.RedisConfig) (*Mirror, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &Mirror{client: client}, nil
}

// Close closes the Redis connection.
func (m *Mirror) Close() error {
	return m.client.Close()
}

// Join records a member in the room's peer set.
func (m *Mirror) Join(roomID, connID string) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	pipe := m.client.Pipeline()
	pipe.SAdd(ctx, peersKey(roomID), connID)
	pipe.Expire(ctx, peersKey(roomID), keyTTL)
	pipe.SAdd(ctx, liveRoomsKey, roomID)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("Presence mirror: join %s/%s: %v", roomID, connID, err)
	}
}

// Leave removes a member from the room's peer set.
func (m *Mirror) Leave(roomID, connID string) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if err := m.client.SRem(ctx, peersKey(roomID), connID).Err(); err != nil {
		log.Printf("Presence mirror: leave %s/%s: %v", roomID, connID, err)
	}
}

// RoomClosed drops all mirror state for a room.
func (m *Mirror) RoomClosed(roomID string) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	pipe := m.client.Pipeline()
	pipe.Del(ctx, peersKey(roomID))
	pipe.SRem(ctx, liveRoomsKey, roomID)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("Presence mirror: close %s: %v", roomID, err)
	}
}

func peersKey(roomID string) string {
	return "room:" + roomID + ":peers"
}
