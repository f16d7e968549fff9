// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package translations

import (
	"context"

	"github.com/puzpuzpuz/xsync/v2"
)

// Memory is a two-level in-memory store: message id, then language.
//
// The zero value is not usable; construct it with NewMemory.
type Memory struct {
	byMessage *xsync.MapOf[int, *xsync.MapOf[string, string]]
}

var _ Store = (*Memory)(nil)

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		byMessage: xsync.NewIntegerMapOf[int, *xsync.MapOf[string, string]](),
	}
}

func (m *Memory) Put(_ context.Context, messageID int, lang, text string) error {
	langs, _ := m.byMessage.LoadOrCompute(messageID, func() *xsync.MapOf[string, string] {
		return xsync.NewMapOf[string]()
	})

	langs.Store(lang, text)

	return nil
}

func (m *Memory) ForMessage(_ context.Context, messageID int) (map[string]string, error) {
	langs, ok := m.byMessage.Load(messageID)
	if !ok {
		return nil, nil
	}

	out := make(map[string]string, langs.Size())

	langs.Range(func(lang, text string) bool {
		out[lang] = text

		return true
	})

	return out, nil
}

// Close is a no-op.
func (m *Memory) Close() error {
	return nil
}
