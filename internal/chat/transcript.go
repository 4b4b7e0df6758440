// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/todos/internal/platform/constants"
)

// TranscriptTTL is how long a stored conversation survives without a new turn.
const TranscriptTTL = 24 * time.Hour

// ErrTranscriptNotFound is returned by [TranscriptStore.Load] for unknown conversations.
var ErrTranscriptNotFound = errors.New("chat: transcript not found")

// TranscriptStore keeps the latest history of a conversation, scoped to its owner.
type TranscriptStore interface {
	Save(ctx context.Context, userID, conversationID string, history []Message) error
	Load(ctx context.Context, userID, conversationID string) ([]Message, error)
}

// RedisTranscripts implements [TranscriptStore] with one JSON value per conversation.
type RedisTranscripts struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisTranscripts creates a new Redis-backed transcript store.
func NewRedisTranscripts(client *redis.Client) *RedisTranscripts {
	return &RedisTranscripts{client: client, ttl: TranscriptTTL}
}

func transcriptKey(userID, conversationID string) string {
	return constants.RedisPrefixChatConversation + userID + ":" + conversationID
}

// Save replaces the stored history and restarts its expiry.
func (store *RedisTranscripts) Save(context context.Context, userID, conversationID string, history []Message) error {
	payload, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("chat_transcript_encode_failed: %w", err)
	}
	if err := store.client.Set(context, transcriptKey(userID, conversationID), payload, store.ttl).Err(); err != nil {
		return fmt.Errorf("redis_chat_transcript_save_failed: %w", err)
	}
	return nil
}

func (store *RedisTranscripts) Load(context context.Context, userID, conversationID string) ([]Message, error) {
	payload, err := store.client.Get(context, transcriptKey(userID, conversationID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrTranscriptNotFound
		}
		return nil, fmt.Errorf("redis_chat_transcript_load_failed: %w", err)
	}

	var history []Message
	if err := json.Unmarshal(payload, &history); err != nil {
		return nil, fmt.Errorf("chat_transcript_decode_failed: %w", err)
	}
	return history, nil
}
