// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package seed loads the baseline conversation from a JSON document.

The document root is a list of messages:

	[
	  {
	    "id": 1,
	    "image_id": 42,
	    "text": "native text",
	    "links": [{"id": 2, "title": "native title", "translate": {"en": "title"}}],
	    "translate": {"en": "text"}
	  }
	]

Only "id" is required. Validation errors name the offending path, for example
"messages[1].links[0].title must be a non-empty string".
*/
package seed

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/tidwall/gjson"

	"codeberg.org/proxima/proxima/core/content"
)

var (
	errInvalidJSON = errors.New("seed document is not valid JSON")
	errRootNotList = errors.New("root must be a JSON list of messages")
	errDuplicateID = errors.New("duplicate message id")
)

//go:embed demo.json
var demoDocument []byte

// Load reads and parses the seed document at path.
func Load(path string) ([]content.Message, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path comes from the operator's configuration
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file %s: %w", path, err)
	}

	messages, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse seed file %s: %w", path, err)
	}

	return messages, nil
}

// Demo returns the built-in demo conversation.
func Demo() []content.Message {
	messages, err := Parse(demoDocument)
	if err != nil {
		panic(fmt.Errorf("built-in demo conversation is invalid: %w", err))
	}

	return messages
}

// Parse validates data and converts it into messages, preserving document order.
func Parse(data []byte) ([]content.Message, error) {
	if !gjson.ValidBytes(data) {
		return nil, errInvalidJSON
	}

	root := gjson.ParseBytes(data)
	if !root.IsArray() {
		return nil, errRootNotList
	}

	items := root.Array()
	messages := make([]content.Message, 0, len(items))
	seen := make(map[int]struct{}, len(items))

	for i, item := range items {
		path := fmt.Sprintf("messages[%d]", i)

		msg, err := parseMessage(item, path)
		if err != nil {
			return nil, err
		}

		if _, dup := seen[msg.ID]; dup {
			return nil, fmt.Errorf("%w: %s.id %d", errDuplicateID, path, msg.ID)
		}

		seen[msg.ID] = struct{}{}

		messages = append(messages, msg)
	}

	return messages, nil
}

func parseMessage(item gjson.Result, path string) (content.Message, error) {
	if !item.IsObject() {
		return content.Message{}, fmt.Errorf("%s must be an object", path)
	}

	id, ok := asInt(item.Get("id"))
	if !ok || id <= 0 {
		return content.Message{}, fmt.Errorf("%s.id must be a positive integer", path)
	}

	var imageID *int

	if raw := item.Get("image_id"); present(raw) {
		v, ok := asInt(raw)
		if !ok {
			return content.Message{}, fmt.Errorf("%s.image_id must be an integer if provided", path)
		}

		imageID = &v
	}

	var text *string

	if raw := item.Get("text"); present(raw) {
		if raw.Type != gjson.String || raw.String() == "" {
			return content.Message{}, fmt.Errorf("%s.text must be a non-empty string if provided", path)
		}

		v := raw.String()
		text = &v
	}

	links, err := parseLinks(item.Get("links"), path+".links")
	if err != nil {
		return content.Message{}, err
	}

	translations, err := parseLangMap(item.Get("translate"), path+".translate")
	if err != nil {
		return content.Message{}, err
	}

	return content.NewMessage(id, imageID, text, links, translations), nil
}

func parseLinks(raw gjson.Result, path string) ([]content.Link, error) {
	if !present(raw) {
		return nil, nil
	}

	if !raw.IsArray() {
		return nil, fmt.Errorf("%s must be a list", path)
	}

	items := raw.Array()
	links := make([]content.Link, 0, len(items))

	for i, item := range items {
		itemPath := fmt.Sprintf("%s[%d]", path, i)

		if !item.IsObject() {
			return nil, fmt.Errorf("%s must be an object", itemPath)
		}

		target, ok := asInt(item.Get("id"))
		if !ok {
			return nil, fmt.Errorf("%s.id must be an integer", itemPath)
		}

		title := item.Get("title")
		if title.Type != gjson.String || title.String() == "" {
			return nil, fmt.Errorf("%s.title must be a non-empty string", itemPath)
		}

		translations, err := parseLangMap(item.Get("translate"), itemPath+".translate")
		if err != nil {
			return nil, err
		}

		links = append(links, content.NewLink(target, title.String(), translations))
	}

	return links, nil
}

func parseLangMap(raw gjson.Result, path string) (map[string]string, error) {
	if !present(raw) {
		return nil, nil
	}

	if !raw.IsObject() {
		return nil, fmt.Errorf("%s must be an object {lang: text}", path)
	}

	out := make(map[string]string)

	var err error

	raw.ForEach(func(key, value gjson.Result) bool {
		lang := key.String()

		switch {
		case strings.TrimSpace(lang) == "":
			err = fmt.Errorf("%s keys must be non-empty strings (language codes)", path)
		case lang == content.NoneLang:
			err = fmt.Errorf("%s cannot contain the %s language", path, content.NoneLang)
		case value.Type != gjson.String || value.String() == "":
			err = fmt.Errorf("%s[%s] must be a non-empty string", path, lang)
		default:
			out[lang] = value.String()

			return true
		}

		return false
	})

	if err != nil {
		return nil, err
	}

	return out, nil
}

// present reports whether a field exists and is not JSON null.
func present(r gjson.Result) bool {
	return r.Exists() && r.Type != gjson.Null
}

// asInt accepts JSON numbers written without a fraction or exponent.
func asInt(r gjson.Result) (int, bool) {
	if r.Type != gjson.Number || strings.ContainsAny(r.Raw, ".eE") {
		return 0, false
	}

	return int(r.Int()), true
}
