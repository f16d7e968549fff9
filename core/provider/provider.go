// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package provider is the reference content.Provider.

It serves a fixed baseline conversation, keeps visitor translations in a
translations.Store and reads pictures from an Images source.
*/
package provider

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"codeberg.org/proxima/proxima/core/content"
	"codeberg.org/proxima/proxima/core/translations"
)

// Provider implements content.Provider over a baseline message list.
type Provider struct {
	base                 []content.Message
	known                map[int]struct{}
	store                translations.Store
	images               Images
	maxTranslationLength int
}

var _ content.Provider = (*Provider)(nil)

// Option configures a Provider.
type Option func(*Provider)

// WithMaxTranslationLength overrides content.MaxTranslationLength.
func WithMaxTranslationLength(n int) Option {
	return func(p *Provider) {
		if n > 0 {
			p.maxTranslationLength = n
		}
	}
}

// New creates a Provider. The base slice is copied.
func New(base []content.Message, store translations.Store, images Images, opts ...Option) *Provider {
	p := &Provider{
		base:                 make([]content.Message, len(base)),
		known:                make(map[int]struct{}, len(base)),
		store:                store,
		images:               images,
		maxTranslationLength: content.MaxTranslationLength,
	}

	copy(p.base, base)

	for _, m := range base {
		p.known[m.ID] = struct{}{}
	}

	if p.images == nil {
		p.images = StaticImages{}
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

func (p *Provider) ListMessages(ctx context.Context) ([]content.Message, error) {
	out := make([]content.Message, 0, len(p.base))

	for _, m := range p.base {
		saved, err := p.store.ForMessage(ctx, m.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load translations: %w", err)
		}

		out = append(out, m.WithTranslations(saved))
	}

	return out, nil
}

func (p *Provider) GetImage(ctx context.Context, imageID int) ([]byte, error) {
	if imageID <= 0 {
		return nil, content.ErrImageNotFound
	}

	return p.images.Load(ctx, imageID)
}

// AddTranslation validates a submission and saves it.
func (p *Provider) AddTranslation(ctx context.Context, messageID int, lang, text string) error {
	if messageID <= 0 {
		return content.Reject("Bad messageId")
	}

	if _, ok := p.known[messageID]; !ok {
		return content.Reject("Message %d not found", messageID)
	}

	lang = strings.TrimSpace(lang)
	if lang == "" {
		return content.Reject("Language is empty")
	}

	if lang == content.NoneLang {
		return content.Reject("Cannot save translation for %s", content.NoneLang)
	}

	if strings.TrimSpace(text) == "" {
		return content.Reject("Translation is empty")
	}

	if utf8.RuneCountInString(text) > p.maxTranslationLength {
		return content.Reject(content.ReasonTranslationTooLong)
	}

	if err := p.store.Put(ctx, messageID, lang, text); err != nil {
		return err
	}

	log.Debug().
		Int("message_id", messageID).
		Str("lang", lang).
		Int("len", len(text)).
		Msg("Saved translation")

	return nil
}
