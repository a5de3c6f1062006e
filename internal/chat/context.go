package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/taskpilot/taskpilot/internal/nlp"
)

// ContextStore keeps the recent conversation turns per user in Redis lists,
// trimmed to a fixed depth and expiring after a period of inactivity. The
// interpreter receives them as disambiguation context.
type ContextStore struct {
	client *redis.Client
}

func NewContextStore(client *redis.Client) *ContextStore {
	return &ContextStore{client: client}
}

func convKey(userID uuid.UUID) string {
	return fmt.Sprintf("chat:ctx:%s", userID.String())
}

// Recent returns up to limit most recent turns, oldest first.
func (s *ContextStore) Recent(ctx context.Context, userID uuid.UUID, limit int) ([]nlp.Message, error) {
	vals, err := s.client.LRange(ctx, convKey(userID), int64(-limit), -1).Result()
	if err != nil {
		return nil, fmt.Errorf("lrange %s: %w", convKey(userID), err)
	}

	messages := make([]nlp.Message, 0, len(vals))
	for _, v := range vals {
		var msg nlp.Message
		if err := json.Unmarshal([]byte(v), &msg); err != nil {
			continue // skip malformed entries
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

// Append adds a turn, trims the list to maxMsgs and refreshes the TTL.
func (s *ContextStore) Append(ctx context.Context, userID uuid.UUID, msg nlp.Message, maxMsgs int, ttl time.Duration) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshaling message: %w", err)
	}

	key := convKey(userID)
	pipe := s.client.Pipeline()
	pipe.RPush(ctx, key, string(data))
	pipe.LTrim(ctx, key, int64(-maxMsgs), -1)
	pipe.Expire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("pipeline exec for %s: %w", key, err)
	}
	return nil
}

// Clear drops the user's conversation history.
func (s *ContextStore) Clear(ctx context.Context, userID uuid.UUID) error {
	return s.client.Del(ctx, convKey(userID)).Err()
}
