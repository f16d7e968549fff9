// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package audit

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// SetDefaultLogger logs to stderr in console format until the configuration
// has been loaded.
func SetDefaultLogger() {
	log.Logger = log.Output(ConsoleWriter(os.Stderr))
}

// ConsoleWriter returns a human-readable writer for f. Colours are only used
// when f is a terminal, in which case request spans are also folded into a
// single "[destination] status METHOD url" message.
func ConsoleWriter(f *os.File) io.Writer {
	noColor := !isatty.IsTerminal(f.Fd())

	w := zerolog.ConsoleWriter{Out: f, NoColor: noColor, TimeFormat: time.DateTime}

	if !noColor {
		w.FormatPrepare = foldSpan
	}

	return w
}

// foldSpan rewrites the fields of a span written by Span.Log into its message.
func foldSpan(m map[string]any) error {
	if sys, ok := m["sys"]; !ok || sys != "http" {
		return nil
	}

	status := m["status_code"]
	if status == nil {
		status = "-"
	}

	m[zerolog.MessageFieldName] = fmt.Sprintf("[%s] %v %-5s %s", m["destination"], status, m["method"], m["url"])

	for _, key := range []string{"sys", "method", "status_code", "url", "destination", "request_id"} {
		delete(m, key)
	}

	return nil
}
