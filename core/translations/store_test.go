// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package translations

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

// storeFactories lists every Store implementation under test.
func storeFactories(t *testing.T) map[string]func() Store {
	t.Helper()

	factories := map[string]func() Store{
		KindMemory: func() Store { return NewMemory() },
		KindSQLite: func() Store {
			s, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "translations.db"))
			require.NoError(t, err)

			return s
		},
	}

	if url := os.Getenv(redisTestURLEnv); url != "" {
		factories[KindRedis] = func() Store {
			s, err := OpenRedis(context.Background(), url)
			require.NoError(t, err)

			s.prefix = fmt.Sprintf("%stest:%s:", redisKeyPrefix, t.Name())
			flushTranslations(t, s)

			return s
		}
	}

	return factories
}

// redisTestURLEnv names a disposable Redis server to run the store tests
// against. The Redis cases only run when it is set.
const redisTestURLEnv = "PROXIMA_TEST_REDIS_URL"

// flushTranslations deletes the hashes an earlier run left under the store's prefix.
func flushTranslations(t *testing.T, s *Redis) {
	t.Helper()

	ctx := context.Background()
	iter := s.rdb.Scan(ctx, 0, s.prefix+"*", 100).Iterator()

	for iter.Next(ctx) {
		require.NoError(t, s.rdb.Del(ctx, iter.Val()).Err())
	}

	require.NoError(t, iter.Err())
}

func TestStorePutAndRead(t *testing.T) {
	t.Parallel()

	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			store := factory()
			t.Cleanup(func() { assert.NoError(t, store.Close()) })

			got, err := store.ForMessage(ctx, 1)
			require.NoError(t, err)
			assert.Empty(t, got)

			require.NoError(t, store.Put(ctx, 1, "fr", "bonjour"))
			require.NoError(t, store.Put(ctx, 1, "de", "hallo"))
			require.NoError(t, store.Put(ctx, 2, "fr", "deux"))

			got, err = store.ForMessage(ctx, 1)
			require.NoError(t, err)
			assert.Equal(t, map[string]string{"fr": "bonjour", "de": "hallo"}, got)

			// Last writer wins.
			require.NoError(t, store.Put(ctx, 1, "fr", "salut"))

			got, err = store.ForMessage(ctx, 1)
			require.NoError(t, err)
			assert.Equal(t, "salut", got["fr"])

			// The returned map is a copy.
			got["es"] = "hola"

			again, err := store.ForMessage(ctx, 1)
			require.NoError(t, err)
			assert.NotContains(t, again, "es")
		})
	}
}

func TestStoreConcurrentDistinctKeys(t *testing.T) {
	t.Parallel()

	const (
		messages = 8
		langs    = 16
	)

	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			store := factory()
			t.Cleanup(func() { assert.NoError(t, store.Close()) })

			var g errgroup.Group

			for m := 1; m <= messages; m++ {
				for l := range langs {
					g.Go(func() error {
						return store.Put(ctx, m, fmt.Sprintf("l%02d", l), fmt.Sprintf("text %d/%d", m, l))
					})
				}
			}

			require.NoError(t, g.Wait())

			for m := 1; m <= messages; m++ {
				got, err := store.ForMessage(ctx, m)
				require.NoError(t, err)
				assert.Len(t, got, langs, "message %d lost a write", m)
				assert.Equal(t, fmt.Sprintf("text %d/%d", m, 3), got["l03"])
			}
		})
	}
}

func TestSQLitePersistsAcrossReopen(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "translations.db")

	first, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	require.NoError(t, first.Put(ctx, 3, "el", "γεια"))
	require.NoError(t, first.Close())

	second, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, second.Close()) })

	got, err := second.ForMessage(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"el": "γεια"}, got)
}

func TestOpen(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	mem, err := Open(ctx, KindMemory, "")
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, mem)

	lite, err := Open(ctx, KindSQLite, MemoryPath)
	require.NoError(t, err)
	assert.IsType(t, &SQLite{}, lite)
	assert.NoError(t, lite.Close())

	_, err = Open(ctx, KindSQLite, "")
	require.ErrorIs(t, err, errEmptyPath)

	_, err = Open(ctx, KindRedis, "")
	require.ErrorIs(t, err, errEmptyURL)

	_, err = Open(ctx, KindRedis, "mysql://localhost")
	require.Error(t, err)

	_, err = Open(ctx, "etcd", "")
	require.ErrorIs(t, err, errUnknownKind)
}

func TestRedisKey(t *testing.T) {
	t.Parallel()

	s := &Redis{prefix: redisKeyPrefix}
	assert.Equal(t, "proxima:translations:42", s.key(42))
}
