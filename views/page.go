// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package views renders Proxima's HTML.

Pages carry no scripts and no stylesheets; every interaction is a plain form
post. All attribute values are single-quoted and every piece of text is
escaped with templ.EscapeString, which covers both quote characters.
*/
package views

import (
	"context"
	"io"
	"strconv"

	"github.com/a-h/templ"

	"codeberg.org/proxima/proxima/core/content"
	"codeberg.org/proxima/proxima/core/conversation"
)

// Title is the document title of the conversation page.
const Title = "Proxima"

// Page renders the whole conversation page.
func Page(page conversation.Page) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		hw := &htmlWriter{w: w}

		hw.raw("<!doctype html><html><head><meta charset='utf-8'>")
		hw.raw("<meta name='viewport' content='width=device-width, initial-scale=1'>")
		hw.raw("<title>", Title, "</title></head><body>")

		hw.raw("<table width='100%'><tr><td><table><tr><td>")
		languageSelector(hw, page)
		hw.raw("</td><td>")
		addLanguageForm(hw)
		hw.raw("</td></tr></table></td></tr><tr><td>")

		if page.Error != nil {
			errorBlock(hw, page.Error.Message, "")
		}

		for _, msg := range page.Messages {
			if msg.Error != nil {
				errorBlock(hw, msg.Error.Message, msg.Anchor)
			}

			message(hw, msg)
			hw.raw("<hr>")
		}

		hw.raw("</td></tr></table></body></html>")

		return hw.err
	})
}

func languageSelector(hw *htmlWriter, page conversation.Page) {
	hw.raw("<form method='post' action='/api/setLang'><select name='", conversation.FieldLang, "'>")

	option(hw, content.NoneLang, content.NoneLang, page.SelectedLang == content.NoneLang)

	for _, opt := range page.Languages {
		option(hw, opt.Code, opt.Label(), opt.Selected)
	}

	hw.raw("</select>")
	hiddenInput(hw, conversation.FieldReturnTo, "")
	hw.raw("<button type='submit'>Apply</button></form>")
}

func option(hw *htmlWriter, value, label string, selected bool) {
	hw.raw("<option value='")
	hw.text(value)
	hw.raw("'")

	if selected {
		hw.raw(" selected")
	}

	hw.raw(">")
	hw.text(label)
	hw.raw("</option>")
}

func addLanguageForm(hw *htmlWriter) {
	hw.raw("<form method='post' action='/api/addLang'>")
	hw.raw("<input name='", conversation.FieldLang, "' placeholder='lang'>")
	hiddenInput(hw, conversation.FieldReturnTo, "")
	hw.raw("<button type='submit'>Add language</button></form>")
}

func errorBlock(hw *htmlWriter, msg, returnTo string) {
	hw.raw("<div><b>Error:</b> ")
	hw.text(msg)
	hw.raw("<form method='post' action='/api/clearError'>")
	hiddenInput(hw, conversation.FieldReturnTo, returnTo)
	hw.raw("<button type='submit'>Ok</button></form></div><hr>")
}

func message(hw *htmlWriter, msg conversation.MessageView) {
	hw.raw("<div id='")
	hw.text(msg.Anchor)
	hw.raw("'>")

	for _, link := range msg.Links {
		hw.raw("<div><a href='")
		hw.text(link.Href)
		hw.raw("'>")
		hw.text(link.Title)
		hw.raw("</a>")

		for _, tr := range link.Translations {
			hw.raw(" ")
			hw.text(tr.Lang)
			hw.raw(": ")

			if tr.Selected {
				hw.raw("<b>")
				hw.text(tr.Title)
				hw.raw("</b>")
			} else {
				hw.text(tr.Title)
			}
		}

		hw.raw("</div>")
	}

	if msg.ImageURL != "" {
		hw.raw("<div><img alt='' src='")
		hw.text(msg.ImageURL)
		hw.raw("'></div>")
	}

	switch msg.Mode {
	case conversation.TextHidden:
	case conversation.TextNative:
		pre(hw, msg.Native)
	case conversation.TextTranslated, conversation.TextMissing:
		hw.raw("<table width='100%'><tr><td width='50%'>")
		pre(hw, msg.Native)
		hw.raw("</td><td width='50%'>")

		if msg.Mode == conversation.TextTranslated {
			pre(hw, msg.Translation)
		} else {
			translationForm(hw, msg)
		}

		hw.raw("</td></tr></table>")
	}

	hw.raw("</div>")
}

func translationForm(hw *htmlWriter, msg conversation.MessageView) {
	hw.raw("<form method='post' action='/api/saveTranslation'>")
	hiddenInput(hw, conversation.FieldMessageID, strconv.Itoa(msg.ID))
	hiddenInput(hw, conversation.FieldLang, msg.Lang)
	hiddenInput(hw, conversation.FieldReturnTo, msg.Anchor)
	hw.raw("<textarea name='", conversation.FieldTranslation, "' rows='6' cols='40'></textarea><br>")
	hw.raw("<button type='submit'>Save</button></form>")
}

func pre(hw *htmlWriter, text string) {
	hw.raw("<pre>")
	hw.text(text)
	hw.raw("</pre>")
}

func hiddenInput(hw *htmlWriter, name, value string) {
	hw.raw("<input type='hidden' name='", name, "' value='")
	hw.text(value)
	hw.raw("'>")
}

// htmlWriter writes markup and remembers the first write error.
type htmlWriter struct {
	w   io.Writer
	err error
}

// raw writes trusted markup.
func (hw *htmlWriter) raw(parts ...string) {
	for _, part := range parts {
		if hw.err != nil {
			return
		}

		_, hw.err = io.WriteString(hw.w, part)
	}
}

// text writes escaped text, valid both as element content and inside a
// single- or double-quoted attribute.
func (hw *htmlWriter) text(s string) {
	hw.raw(templ.EscapeString(s))
}
