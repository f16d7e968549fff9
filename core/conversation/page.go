// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package conversation

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"codeberg.org/proxima/proxima/core/content"
	"codeberg.org/proxima/proxima/core/session"
)

// TextMode tells the view how to lay out a message's text.
type TextMode int

const (
	// TextHidden means the message has no native text to show.
	TextHidden TextMode = iota
	// TextNative shows the native text alone.
	TextNative
	// TextTranslated shows the native text next to its translation.
	TextTranslated
	// TextMissing shows the native text next to a form for the missing translation.
	TextMissing
)

// Page is everything needed to render the conversation for one visitor.
type Page struct {
	// SelectedLang is the session's language, possibly content.NoneLang.
	SelectedLang string

	// Languages are the selectable languages, sorted by code. NoneLang is
	// not among them.
	Languages []LanguageOption

	// Error is the pending error shown above all messages, if any.
	Error *session.PendingError

	Messages []MessageView
}

// LanguageOption is one entry of the language selector.
type LanguageOption struct {
	Code string

	// DisplayName is the language's name in itself, or "" when the code is
	// not a recognised language tag.
	DisplayName string

	Selected bool
}

// Label is the text shown for the option.
func (o LanguageOption) Label() string {
	if o.DisplayName == "" {
		return o.Code
	}

	return o.Code + " (" + o.DisplayName + ")"
}

// MessageView is a message prepared for rendering.
type MessageView struct {
	ID     int
	Anchor string

	// Error is the pending error targeted at this message, if any.
	Error *session.PendingError

	Links []LinkView

	// ImageURL is "" when the message has no image.
	ImageURL string

	Mode        TextMode
	Native      string
	Translation string

	// Lang is the language a missing translation would be saved as.
	Lang string
}

// LinkView is a link prepared for rendering.
type LinkView struct {
	Href         string
	Title        string
	Translations []LinkTranslation
}

// LinkTranslation is one translated title of a link.
type LinkTranslation struct {
	Lang     string
	Title    string
	Selected bool
}

// ImageURL returns the path the image with the given id is served from.
func ImageURL(imageID int) string {
	return "/image?id=" + strconv.Itoa(imageID)
}

// BuildPage assembles the page for snap from the provider's messages.
//
// An error whose anchor matches none of the messages is shown above them
// like an untargeted one.
func BuildPage(ctx context.Context, p content.Provider, snap session.Snapshot) (Page, error) {
	messages, err := p.ListMessages(ctx)
	if err != nil {
		return Page{}, fmt.Errorf("listing messages: %w", err)
	}

	selected := content.NormalizeLang(snap.SelectedLang)

	page := Page{
		SelectedLang: selected,
		Languages:    languageOptions(KnownLanguages(messages, snap.Languages), selected),
		Messages:     make([]MessageView, 0, len(messages)),
	}

	targeted := false

	for _, msg := range messages {
		view := buildMessage(msg, selected)

		if snap.Error != nil && snap.Error.Anchor != "" && snap.Error.Anchor == view.Anchor && !targeted {
			view.Error = snap.Error
			targeted = true
		}

		page.Messages = append(page.Messages, view)
	}

	if snap.Error != nil && !targeted {
		page.Error = snap.Error
	}

	return page, nil
}

// KnownLanguages is the sorted union of the message and link translation
// languages and the registered ones, without NoneLang.
func KnownLanguages(messages []content.Message, registered []string) []string {
	seen := make(map[string]struct{})

	add := func(langs []string) {
		for _, lang := range langs {
			if lang != content.NoneLang {
				seen[lang] = struct{}{}
			}
		}
	}

	for _, msg := range messages {
		add(msg.Languages())

		for _, link := range msg.Links {
			add(link.Languages())
		}
	}

	add(registered)

	known := make([]string, 0, len(seen))
	for lang := range seen {
		known = append(known, lang)
	}

	slices.Sort(known)

	return known
}

// DisplayName returns the name of the language in itself, e.g. "français"
// for "fr", or "" when code is not a well-formed language tag.
func DisplayName(code string) string {
	tag, err := language.Parse(code)
	if err != nil {
		return ""
	}

	name := display.Self.Name(tag)
	if strings.EqualFold(name, code) {
		return ""
	}

	return name
}

func languageOptions(codes []string, selected string) []LanguageOption {
	options := make([]LanguageOption, 0, len(codes))

	for _, code := range codes {
		options = append(options, LanguageOption{
			Code:        code,
			DisplayName: DisplayName(code),
			Selected:    code == selected,
		})
	}

	return options
}

func buildMessage(msg content.Message, selected string) MessageView {
	view := MessageView{
		ID:     msg.ID,
		Anchor: msg.Anchor(),
		Links:  make([]LinkView, 0, len(msg.Links)),
		Lang:   selected,
	}

	for _, link := range msg.Links {
		view.Links = append(view.Links, buildLink(link, selected))
	}

	if msg.ImageID != nil {
		view.ImageURL = ImageURL(*msg.ImageID)
	}

	native := msg.NativeText()
	if strings.TrimSpace(native) == "" {
		return view
	}

	view.Native = native

	switch translation, ok := msg.Translation(selected); {
	case selected == content.NoneLang:
		view.Mode = TextNative
	case ok:
		view.Mode = TextTranslated
		view.Translation = translation
	default:
		view.Mode = TextMissing
	}

	return view
}

func buildLink(link content.Link, selected string) LinkView {
	view := LinkView{
		Href:  "#" + content.Anchor(link.TargetID),
		Title: link.Title,
	}

	for _, lang := range link.Languages() {
		title, _ := link.Translation(lang)

		view.Translations = append(view.Translations, LinkTranslation{
			Lang:     lang,
			Title:    title,
			Selected: selected != content.NoneLang && lang == selected,
		})
	}

	return view
}
