// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package routes

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/rs/zerolog/log"

	"codeberg.org/proxima/proxima/core/conversation"
	"codeberg.org/proxima/proxima/server/request_context"
	"codeberg.org/proxima/proxima/server/utils"
)

// step is one state machine command run on a parsed form.
type step func(r *http.Request, form url.Values) (conversation.Redirect, error)

// SetLang handles POST /api/setLang.
func (h *Handlers) SetLang(w http.ResponseWriter, r *http.Request) error {
	return h.command(w, r, nil, func(r *http.Request, form url.Values) (conversation.Redirect, error) {
		return conversation.SetLang(request_context.FromRequest(r).Session, form), nil
	})
}

// AddLang handles POST /api/addLang.
func (h *Handlers) AddLang(w http.ResponseWriter, r *http.Request) error {
	return h.command(w, r, nil, func(r *http.Request, form url.Values) (conversation.Redirect, error) {
		return conversation.AddLang(request_context.FromRequest(r).Session, form), nil
	})
}

// SaveTranslation handles POST /api/saveTranslation.
//
// An oversized body is a translation that is too long, reported like any
// other rejection.
func (h *Handlers) SaveTranslation(w http.ResponseWriter, r *http.Request) error {
	oversized := func(r *http.Request, form url.Values) (conversation.Redirect, error) {
		return conversation.RejectOversizedTranslation(request_context.FromRequest(r).Session, form), nil
	}

	return h.command(w, r, oversized, func(r *http.Request, form url.Values) (conversation.Redirect, error) {
		return conversation.SaveTranslation(r.Context(), h.Provider, request_context.FromRequest(r).Session, form)
	})
}

// ClearError handles POST /api/clearError.
func (h *Handlers) ClearError(w http.ResponseWriter, r *http.Request) error {
	return h.command(w, r, nil, func(r *http.Request, form url.Values) (conversation.Redirect, error) {
		return conversation.ClearError(request_context.FromRequest(r).Session, form), nil
	})
}

// command parses the form, runs fn and redirects to where it points.
//
// A body over the size limit runs oversized on the fields read so far, or
// gets a 413 when oversized is nil.
func (h *Handlers) command(w http.ResponseWriter, r *http.Request, oversized, fn step) error {
	if _, err := sessionFrom(r); err != nil {
		return err
	}

	form, err := utils.ParsePostForm(r)
	if errors.Is(err, utils.ErrBodyTooLarge) {
		if oversized == nil {
			return utils.WriteText(w, http.StatusRequestEntityTooLarge, "Request body too large")
		}

		fn = oversized
		err = nil
	}

	if err != nil {
		log.Debug().Err(err).Str("url", r.URL.Path).Msg("Rejected malformed form")

		return utils.WriteText(w, http.StatusBadRequest, "Bad form")
	}

	redirect, err := fn(r, form)
	if err != nil {
		return err
	}

	seeOther(w, r, redirect)

	return nil
}
