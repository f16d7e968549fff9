// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package translations

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// redisKeyPrefix namespaces the per-message hashes. Each hash maps a
// language tag to the translated text.
const redisKeyPrefix = "proxima:translations:"

var errEmptyURL = errors.New("redis translation store needs a URL")

// Redis keeps translations in a Redis server, one hash per message. HSET on
// a single field is atomic, so writes to distinct languages never clobber
// each other.
type Redis struct {
	rdb    *redis.Client
	prefix string
}

var _ Store = (*Redis)(nil)

// OpenRedis connects to the server at url (e.g. "redis://localhost:6379/0")
// and checks that it answers.
func OpenRedis(ctx context.Context, url string) (*Redis, error) {
	if url == "" {
		return nil, errEmptyURL
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	rdb := redis.NewClient(opts)

	if err := rdb.Ping(ctx).Err(); err != nil {
		if closeErr := rdb.Close(); closeErr != nil {
			log.Err(closeErr).Msg("Error closing redis client")
		}

		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Info().
		Str("addr", opts.Addr).
		Int("db", opts.DB).
		Msg("Connected to Redis translation store")

	return &Redis{rdb: rdb, prefix: redisKeyPrefix}, nil
}

func (s *Redis) key(messageID int) string {
	return s.prefix + strconv.Itoa(messageID)
}

func (s *Redis) Put(ctx context.Context, messageID int, lang, text string) error {
	if err := s.rdb.HSet(ctx, s.key(messageID), lang, text).Err(); err != nil {
		return fmt.Errorf("failed to save translation for message %d (%s): %w", messageID, lang, err)
	}

	return nil
}

func (s *Redis) ForMessage(ctx context.Context, messageID int) (map[string]string, error) {
	// HGETALL on a missing key is an empty reply, not redis.Nil.
	out, err := s.rdb.HGetAll(ctx, s.key(messageID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to query translations for message %d: %w", messageID, err)
	}

	return out, nil
}

// Close closes the client's connection pool.
func (s *Redis) Close() error {
	return s.rdb.Close()
}
