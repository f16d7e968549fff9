// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package provider

import (
	"context"
	"strconv"

	"codeberg.org/proxima/proxima/core/audit"
	"codeberg.org/proxima/proxima/core/content"
)

// Traced wraps a content.Provider so that every call is timed by an
// audit.Span and shows up in the response's Server-Timing header.
type Traced struct {
	next content.Provider
}

var _ content.Provider = Traced{}

// Trace returns p wrapped in a Traced.
func Trace(p content.Provider) Traced {
	return Traced{next: p}
}

func (t Traced) ListMessages(ctx context.Context) ([]content.Message, error) {
	span := audit.Span{Destination: audit.ToProvider, Method: "ListMessages"}
	ctx = span.Begin(ctx)

	messages, err := t.next.ListMessages(ctx)

	span.End()
	span.Error = err
	span.Log()

	return messages, err
}

func (t Traced) GetImage(ctx context.Context, imageID int) ([]byte, error) {
	span := audit.Span{Destination: audit.ToProvider, Method: "GetImage", URL: strconv.Itoa(imageID)}
	ctx = span.Begin(ctx)

	img, err := t.next.GetImage(ctx, imageID)

	span.End()
	span.Error = err
	span.Log()

	return img, err
}

func (t Traced) AddTranslation(ctx context.Context, messageID int, lang, text string) error {
	span := audit.Span{Destination: audit.ToProvider, Method: "AddTranslation", URL: strconv.Itoa(messageID) + "/" + lang}
	ctx = span.Begin(ctx)

	err := t.next.AddTranslation(ctx, messageID, lang, text)

	span.End()
	span.Error = err
	span.Log()

	return err
}
