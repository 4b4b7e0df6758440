// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/todos/internal/platform/constants"
)

// RedisMagicLinkLedger implements [MagicLinkLedger] using Redis.
type RedisMagicLinkLedger struct {
	client *redis.Client
}

// NewMagicLinkLedger creates a new Redis-backed MagicLinkLedger.
func NewMagicLinkLedger(client *redis.Client) *RedisMagicLinkLedger {
	return &RedisMagicLinkLedger{client: client}
}

/*
Consume records the link ID with SET NX.

Description: Only the first caller for a given ID gets true. The key expires
together with the link, after which the signature check rejects it anyway.
*/
func (ledger *RedisMagicLinkLedger) Consume(context context.Context, tokenID string, ttl time.Duration) (bool, error) {
	key := constants.RedisPrefixMagicLinkUsed + tokenID

	ok, err := ledger.client.SetNX(context, key, 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis_magic_link_consume_failed: %w", err)
	}

	return ok, nil
}
