// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package imagecache puts a bounded in-memory image cache in front of a content.Provider.

Concurrent misses for the same image share a single load. Only successful
loads are cached, so a missing image is looked up again on the next request.
*/
package imagecache

import (
	"context"
	"strconv"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"codeberg.org/proxima/proxima/core/content"
)

// Cache wraps a content.Provider and caches GetImage results.
//
// ListMessages and AddTranslation are passed through unchanged.
type Cache struct {
	content.Provider

	images *lru
	group  singleflight.Group
}

// Wrap returns p with an image cache of the given capacity in front of it.
func Wrap(p content.Provider, size int, compress bool) (*Cache, error) {
	images, err := newLRU(size, compress)
	if err != nil {
		return nil, err
	}

	return &Cache{Provider: p, images: images}, nil
}

func (c *Cache) GetImage(ctx context.Context, imageID int) ([]byte, error) {
	if img, ok := c.images.get(imageID); ok {
		return img, nil
	}

	v, err, shared := c.group.Do(strconv.Itoa(imageID), func() (any, error) {
		img, err := c.Provider.GetImage(ctx, imageID)
		if err != nil {
			return nil, err
		}

		if c.images.add(imageID, img) {
			log.Debug().
				Int("image_id", imageID).
				Msg("Image cache full, evicted least recently used entry")
		}

		return img, nil
	})
	if err != nil {
		return nil, err
	}

	img := v.([]byte) //nolint:forcetypeassert // the loader only returns []byte

	if shared {
		// Every waiter gets the same slice; hand out copies.
		out := make([]byte, len(img))
		copy(out, img)

		return out, nil
	}

	return img, nil
}

// Forget drops an image from the cache.
func (c *Cache) Forget(imageID int) bool {
	return c.images.remove(imageID)
}

// Len returns the number of cached images.
func (c *Cache) Len() int {
	return c.images.len()
}
