// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package session

import (
	"github.com/puzpuzpuz/xsync/v2"
	"github.com/rs/zerolog/log"

	"codeberg.org/proxima/proxima/core/idgen"
)

// Store maps session tokens to sessions.
//
// Sessions are never evicted. Two concurrent first requests presenting the
// same unknown token each get a fresh session; the browser keeps whichever
// cookie it receives last.
type Store struct {
	sessions *xsync.MapOf[string, *Session]
	newToken func() string
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		sessions: xsync.NewMapOf[*Session](),
		newToken: idgen.Token,
	}
}

// Resolve returns the session for token, creating a new one with a fresh
// token when token is empty or unknown. created reports which case applied.
func (st *Store) Resolve(token string) (sess *Session, created bool) {
	if token != "" {
		if existing, ok := st.sessions.Load(token); ok {
			return existing, false
		}
	}

	for {
		fresh := newSession(st.newToken())

		if _, loaded := st.sessions.LoadOrStore(fresh.id, fresh); !loaded {
			log.Debug().
				Int("sessions", st.sessions.Size()).
				Msg("Created session")

			return fresh, true
		}
	}
}

// Lookup returns the session for token without creating one.
func (st *Store) Lookup(token string) (*Session, bool) {
	if token == "" {
		return nil, false
	}

	return st.sessions.Load(token)
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	return st.sessions.Size()
}
