// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package content defines the conversation data model and the provider contract
that the rest of Proxima reads it through.

Messages and links are values. Constructors copy the maps they are given and
accessors never hand out the internal maps, so a Message obtained from a
provider can be shared between goroutines without further locking.
*/
package content

import (
	"maps"
	"slices"
	"strconv"
	"strings"
)

// NoneLang is the sentinel language meaning "no language selected".
//
// It is never a valid translation target.
const NoneLang = "<None>"

// MaxTranslationLength is the default limit, in characters, for a single translation.
const MaxTranslationLength = 200_000

// ReasonTranslationTooLong is the rejection reason for a translation over the length limit.
const ReasonTranslationTooLong = "Translation too long"

// Link is a reference from one message to another.
//
// TargetID is not checked against the message list; a dangling link renders
// as an anchor to a fragment that does not exist.
type Link struct {
	TargetID     int
	Title        string
	translations map[string]string
}

// NewLink creates a Link. The translations map is copied.
func NewLink(targetID int, title string, translations map[string]string) Link {
	return Link{
		TargetID:     targetID,
		Title:        title,
		translations: cloneTranslations(translations),
	}
}

// Translation returns the title of the link in lang.
func (l Link) Translation(lang string) (string, bool) {
	title, ok := l.translations[lang]

	return title, ok
}

// Translations returns a copy of the link's title translations.
func (l Link) Translations() map[string]string {
	return maps.Clone(l.translations)
}

// Languages returns the languages the link title is translated to, sorted.
func (l Link) Languages() []string {
	return sortedKeys(l.translations)
}

// Message is a single entry of the conversation.
type Message struct {
	ID           int
	ImageID      *int
	Text         *string
	Links        []Link
	translations map[string]string
}

// NewMessage creates a Message. The links slice and the translations map are copied.
func NewMessage(id int, imageID *int, text *string, links []Link, translations map[string]string) Message {
	var imageCopy *int
	if imageID != nil {
		v := *imageID
		imageCopy = &v
	}

	var textCopy *string
	if text != nil {
		v := *text
		textCopy = &v
	}

	return Message{
		ID:           id,
		ImageID:      imageCopy,
		Text:         textCopy,
		Links:        slices.Clone(links),
		translations: cloneTranslations(translations),
	}
}

// Anchor returns the page fragment identifier of the message.
func (m Message) Anchor() string {
	return Anchor(m.ID)
}

// HasText reports whether the message carries native text.
func (m Message) HasText() bool {
	return m.Text != nil
}

// NativeText returns the native text, or "" if the message has none.
func (m Message) NativeText() string {
	if m.Text == nil {
		return ""
	}

	return *m.Text
}

// Translation returns the translated text of the message in lang.
func (m Message) Translation(lang string) (string, bool) {
	text, ok := m.translations[lang]

	return text, ok
}

// Translations returns a copy of the message's text translations.
func (m Message) Translations() map[string]string {
	return maps.Clone(m.translations)
}

// Languages returns the languages the message text is translated to, sorted.
func (m Message) Languages() []string {
	return sortedKeys(m.translations)
}

// WithTranslations returns a copy of m whose translations are the union of
// the existing ones and extra. Entries in extra win.
func (m Message) WithTranslations(extra map[string]string) Message {
	if len(extra) == 0 {
		return m
	}

	merged := cloneTranslations(m.translations)
	maps.Copy(merged, extra)

	m.translations = merged

	return m
}

// Anchor returns the page fragment identifier for the message with the given id.
func Anchor(messageID int) string {
	return "m" + strconv.Itoa(messageID)
}

// NormalizeLang trims lang and maps a blank value to NoneLang.
func NormalizeLang(lang string) string {
	lang = strings.TrimSpace(lang)
	if lang == "" {
		return NoneLang
	}

	return lang
}

// IsRealLang reports whether lang names an actual language, as opposed to
// being blank or the NoneLang sentinel.
func IsRealLang(lang string) bool {
	return NormalizeLang(lang) != NoneLang
}

func cloneTranslations(src map[string]string) map[string]string {
	dst := make(map[string]string, len(src))
	maps.Copy(dst, src)

	return dst
}

func sortedKeys(m map[string]string) []string {
	return slices.Sorted(maps.Keys(m))
}
