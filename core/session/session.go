// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package session holds per-browser state: the selected language, the languages
the visitor registered and at most one pending error.

Sessions are identified by an opaque token carried in a cookie and live in
memory for the lifetime of the process.
*/
package session

import (
	"slices"
	"sync"

	"codeberg.org/proxima/proxima/core/content"
)

// PendingError is an error waiting to be shown to the visitor.
//
// An empty Anchor targets the whole page; otherwise the error is shown next
// to the message whose anchor matches.
type PendingError struct {
	Message string
	Anchor  string
}

// Session is the mutable state of one visitor.
//
// All methods are safe for concurrent use.
type Session struct {
	id string

	mu           sync.Mutex
	selectedLang string
	registered   []string
	pending      *PendingError
}

func newSession(id string) *Session {
	return &Session{
		id:           id,
		selectedLang: content.NoneLang,
	}
}

// ID returns the session token.
func (s *Session) ID() string {
	return s.id
}

// SelectLang makes lang the display language. Blank values select NoneLang.
func (s *Session) SelectLang(lang string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.selectedLang = content.NormalizeLang(lang)
}

// RegisterLang adds lang to the visitor's languages and selects it.
//
// It reports false, changing nothing, when lang is blank or NoneLang.
func (s *Session) RegisterLang(lang string) bool {
	lang = content.NormalizeLang(lang)
	if lang == content.NoneLang {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !slices.Contains(s.registered, lang) {
		s.registered = append(s.registered, lang)
	}

	s.selectedLang = lang

	return true
}

// SetError replaces the pending error.
func (s *Session) SetError(message, anchor string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending = &PendingError{Message: message, Anchor: anchor}
}

// ClearError drops the pending error and returns it, or nil if there was none.
func (s *Session) ClearError() *PendingError {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending := s.pending
	s.pending = nil

	return pending
}

// Snapshot is an immutable copy of a session's state.
type Snapshot struct {
	SelectedLang string

	// Languages the visitor registered, in first-registration order.
	Languages []string

	Error *PendingError
}

// Snapshot copies the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		SelectedLang: s.selectedLang,
		Languages:    slices.Clone(s.registered),
	}

	if s.pending != nil {
		pending := *s.pending
		snap.Error = &pending
	}

	return snap
}
