package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"pdfchat/internal/model"
)

// HistoryCache keeps a short-lived per-user copy of conversation history in
// Redis to take read pressure off MySQL.
type HistoryCache struct {
	client     *redisv9.Client
	historyTTL time.Duration
}

func NewHistoryCache(client *redisv9.Client, historyTTL time.Duration) *HistoryCache {
	if historyTTL <= 0 {
		historyTTL = 60 * time.Second
	}
	return &HistoryCache{client: client, historyTTL: historyTTL}
}

func (c *HistoryCache) GetHistory(ctx context.Context, userID string) ([]model.ConversationTurn, bool, error) {
	raw, err := c.client.Get(ctx, c.historyKey(userID)).Result()
	if err == redisv9.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get history failed: %w", err)
	}

	var turns []model.ConversationTurn
	if err := json.Unmarshal([]byte(raw), &turns); err != nil {
		return nil, false, fmt.Errorf("unmarshal cached history failed: %w", err)
	}
	return turns, true, nil
}

func (c *HistoryCache) SetHistory(ctx context.Context, userID string, turns []model.ConversationTurn) error {
	payload, err := json.Marshal(turns)
	if err != nil {
		return fmt.Errorf("marshal history cache failed: %w", err)
	}
	if err := c.client.Set(ctx, c.historyKey(userID), payload, c.historyTTL).Err(); err != nil {
		return fmt.Errorf("redis set history failed: %w", err)
	}
	return nil
}

func (c *HistoryCache) DeleteHistory(ctx context.Context, userID string) error {
	if err := c.client.Del(ctx, c.historyKey(userID)).Err(); err != nil {
		return fmt.Errorf("redis delete history failed: %w", err)
	}
	return nil
}

func (c *HistoryCache) historyKey(userID string) string {
	return "chat:history:" + userID
}
