// Package session stores conversation history server-side for callers that
// pass a conversation_id instead of carrying their own turn list. It is an
// explicit keyed store with TTL and length-capped eviction, deliberately
// outside the chat pipeline so the core stays stateless.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"rag-backend/models"
)

type Store struct {
	rdb      *redis.Client
	ttl      time.Duration
	maxTurns int
}

func NewStore(rdb *redis.Client, ttl time.Duration, maxTurns int) *Store {
	if maxTurns < 2 {
		maxTurns = 2
	}
	return &Store{rdb: rdb, ttl: ttl, maxTurns: maxTurns}
}

func key(conversationID string) string {
	return "session:turns:" + conversationID
}

// History returns the stored turns in append order. A missing conversation
// yields an empty history, not an error.
func (s *Store) History(ctx context.Context, conversationID string) ([]models.Turn, error) {
	raw, err := s.rdb.LRange(ctx, key(conversationID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", conversationID, err)
	}
	turns := make([]models.Turn, 0, len(raw))
	for _, item := range raw {
		var t models.Turn
		if err := json.Unmarshal([]byte(item), &t); err != nil {
			return nil, fmt.Errorf("decode session turn: %w", err)
		}
		turns = append(turns, t)
	}
	return turns, nil
}

// Append adds turns to the conversation, trims it to the configured cap
// (oldest first), and refreshes the TTL.
func (s *Store) Append(ctx context.Context, conversationID string, turns ...models.Turn) error {
	if len(turns) == 0 {
		return nil
	}
	values := make([]interface{}, 0, len(turns))
	for _, t := range turns {
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Errorf("encode session turn: %w", err)
		}
		values = append(values, b)
	}

	k := key(conversationID)
	pipe := s.rdb.TxPipeline()
	pipe.RPush(ctx, k, values...)
	pipe.LTrim(ctx, k, int64(-s.maxTurns), -1)
	pipe.Expire(ctx, k, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append session %s: %w", conversationID, err)
	}
	return nil
}
