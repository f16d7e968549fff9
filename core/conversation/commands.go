// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package conversation is the state machine behind the Proxima pages.

Commands take the visitor's session and a submitted form, mutate the session
(and, for translations, the provider) and return the Redirect the browser
must follow. Rendering is a separate step: BuildPage turns provider content
and a session snapshot into a Page, which holds everything the view needs.
*/
package conversation

import (
	"context"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"codeberg.org/proxima/proxima/core/content"
	"codeberg.org/proxima/proxima/core/session"
)

// Form field names.
const (
	FieldLang        = "lang"
	FieldReturnTo    = "returnTo"
	FieldMessageID   = "messageId"
	FieldTranslation = "translation"
)

// ErrBadLanguage is shown when a visitor tries to register a blank or sentinel language.
const ErrBadLanguage = "Bad language"

// Form is a submitted form. Missing fields read as "".
//
// url.Values satisfies it.
type Form interface {
	Get(key string) string
}

// SetLang selects the submitted language.
func SetLang(sess *session.Session, form Form) Redirect {
	sess.SelectLang(form.Get(FieldLang))

	return Redirect{Anchor: NormalizeReturnTo(form.Get(FieldReturnTo))}
}

// AddLang registers the submitted language and selects it.
//
// A blank or sentinel language leaves the session unchanged apart from a
// pending error targeted at returnTo.
func AddLang(sess *session.Session, form Form) Redirect {
	target := NormalizeReturnTo(form.Get(FieldReturnTo))

	if !sess.RegisterLang(form.Get(FieldLang)) {
		sess.SetError(ErrBadLanguage, target)
	}

	return Redirect{Anchor: target}
}

// SaveTranslation submits a translation to the provider.
//
// A rejection becomes the session's pending error, targeted at returnTo or,
// when absent, at the translated message. Success clears any pending error.
// Errors other than rejections are returned as is and leave the session untouched.
func SaveTranslation(ctx context.Context, p content.Provider, sess *session.Session, form Form) (Redirect, error) {
	messageID := parseMessageID(form.Get(FieldMessageID))
	target := translationTarget(form)

	err := p.AddTranslation(ctx, messageID, form.Get(FieldLang), form.Get(FieldTranslation))
	if err == nil {
		sess.ClearError()

		return Redirect{Anchor: target}, nil
	}

	rejection, ok := content.AsRejection(err)
	if !ok {
		return Redirect{}, err
	}

	log.Debug().
		Int("message_id", messageID).
		Str("reason", rejection.Reason).
		Msg("Translation rejected")

	sess.SetError(rejection.Reason, target)

	return Redirect{Anchor: target}, nil
}

// RejectOversizedTranslation handles a translation form whose body exceeded
// the request size limit. form holds the fields read before the limit; the
// rejection is targeted as in SaveTranslation and the provider is not called.
func RejectOversizedTranslation(sess *session.Session, form Form) Redirect {
	target := translationTarget(form)

	log.Debug().
		Str("target", target).
		Msg("Translation body too large")

	sess.SetError(content.ReasonTranslationTooLong, target)

	return Redirect{Anchor: target}
}

// translationTarget is the anchor a translation result is shown at: returnTo
// or, when absent, the translated message.
func translationTarget(form Form) string {
	target := NormalizeReturnTo(form.Get(FieldReturnTo))
	if messageID := parseMessageID(form.Get(FieldMessageID)); target == "" && messageID > 0 {
		target = content.Anchor(messageID)
	}

	return target
}

// ClearError dismisses the pending error. Without a returnTo the browser goes
// back to where the error was shown.
func ClearError(sess *session.Session, form Form) Redirect {
	target := NormalizeReturnTo(form.Get(FieldReturnTo))

	cleared := sess.ClearError()
	if target == "" && cleared != nil {
		target = cleared.Anchor
	}

	return Redirect{Anchor: target}
}

// parseMessageID returns the submitted id, or -1 when it is not an integer.
func parseMessageID(raw string) int {
	id, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return -1
	}

	return id
}
