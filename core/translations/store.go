// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package translations stores the translations visitors submit.

Entries are keyed by (message id, language). Writes to distinct keys never
contend on a shared lock, and the last write to a key wins.
*/
package translations

import (
	"context"
	"errors"
	"fmt"
)

// Kinds of store accepted by Open.
const (
	KindMemory = "memory"
	KindSQLite = "sqlite"
	KindRedis  = "redis"
)

var errUnknownKind = errors.New("unknown translation store")

// Store persists translations.
type Store interface {
	// Put saves text as the lang translation of a message, replacing any previous one.
	Put(ctx context.Context, messageID int, lang, text string) error

	// ForMessage returns every saved translation of a message, keyed by language.
	// The returned map belongs to the caller.
	ForMessage(ctx context.Context, messageID int) (map[string]string, error)

	Close() error
}

// Open creates a store of the given kind. location is the database path for
// KindSQLite and the server URL for KindRedis; KindMemory ignores it.
func Open(ctx context.Context, kind, location string) (Store, error) {
	switch kind {
	case KindMemory:
		return NewMemory(), nil
	case KindSQLite:
		return OpenSQLite(ctx, location)
	case KindRedis:
		return OpenRedis(ctx, location)
	default:
		return nil, fmt.Errorf("%w: %q", errUnknownKind, kind)
	}
}
