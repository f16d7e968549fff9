// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package imagecache

import (
	"container/list"
	"errors"
	"slices"
	"sync"

	"github.com/klauspost/compress/zstd"
)

var ErrInvalidSize = errors.New("must provide a positive size")

// lru is a fixed-capacity least-recently-used map from image id to bytes.
//
// When compression is enabled, values are kept zstd-compressed whenever that
// makes them smaller and are decompressed transparently by get.
type lru struct {
	size      int
	evictList *list.List
	items     map[int]*list.Element
	lock      sync.Mutex
	zstdEnc   *zstd.Encoder
	zstdDec   *zstd.Decoder
}

type lruEntry struct {
	key        int
	value      []byte
	compressed bool
}

func newLRU(size int, compress bool) (*lru, error) {
	if size <= 0 {
		return nil, ErrInvalidSize
	}

	c := &lru{
		size:      size,
		evictList: list.New(),
		items:     make(map[int]*list.Element),
	}

	if compress {
		// A nil writer/reader lets us use EncodeAll/DecodeAll without streams.
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, err
		}

		dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
		if err != nil {
			return nil, err
		}

		c.zstdEnc = enc
		c.zstdDec = dec
	}

	return c, nil
}

// add stores a copy of value under key and reports whether an entry was evicted.
func (c *lru) add(key int, value []byte) bool {
	// Compress outside the lock; EncodeAll is safe for concurrent use.
	stored, compressed := c.pack(value)

	c.lock.Lock()
	defer c.lock.Unlock()

	if ent, ok := c.items[key]; ok {
		c.evictList.MoveToFront(ent)

		e := ent.Value.(*lruEntry) //nolint:forcetypeassert // only *lruEntry is ever stored
		e.value = stored
		e.compressed = compressed

		return false
	}

	c.items[key] = c.evictList.PushFront(&lruEntry{
		key:        key,
		value:      stored,
		compressed: compressed,
	})

	evicted := c.evictList.Len() > c.size
	if evicted {
		if oldest := c.evictList.Back(); oldest != nil {
			c.evictList.Remove(oldest)
			delete(c.items, oldest.Value.(*lruEntry).key) //nolint:forcetypeassert
		}
	}

	return evicted
}

// get returns a private copy of the value for key and marks it most recently used.
func (c *lru) get(key int) ([]byte, bool) {
	c.lock.Lock()

	ent, ok := c.items[key]
	if !ok {
		c.lock.Unlock()

		return nil, false
	}

	c.evictList.MoveToFront(ent)

	e := ent.Value.(*lruEntry) //nolint:forcetypeassert
	stored, compressed := e.value, e.compressed

	c.lock.Unlock()

	return c.unpack(stored, compressed)
}

func (c *lru) remove(key int) bool {
	c.lock.Lock()
	defer c.lock.Unlock()

	ent, ok := c.items[key]
	if !ok {
		return false
	}

	c.evictList.Remove(ent)
	delete(c.items, key)

	return true
}

func (c *lru) len() int {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.evictList.Len()
}

func (c *lru) pack(value []byte) ([]byte, bool) {
	if len(value) > 0 && c.zstdEnc != nil {
		packed := c.zstdEnc.EncodeAll(value, nil)
		if len(packed) < len(value) {
			return packed, true
		}
	}

	return slices.Clone(value), false
}

func (c *lru) unpack(stored []byte, compressed bool) ([]byte, bool) {
	if !compressed {
		return slices.Clone(stored), true
	}

	if c.zstdDec == nil {
		return nil, false
	}

	decoded, err := c.zstdDec.DecodeAll(stored, nil)
	if err != nil {
		return nil, false
	}

	return decoded, true
}
