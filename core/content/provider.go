// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package content

import (
	"context"
	"errors"
	"fmt"
)

// ErrImageNotFound is returned by Provider.GetImage when no image has the requested id.
var ErrImageNotFound = errors.New("image not found")

// RejectionError is returned by Provider.AddTranslation when the submission
// is invalid. Reason is shown to the visitor as is.
type RejectionError struct {
	Reason string
}

func (e *RejectionError) Error() string {
	return e.Reason
}

// Reject builds a *RejectionError with a formatted reason.
func Reject(format string, args ...any) error {
	return &RejectionError{Reason: fmt.Sprintf(format, args...)}
}

// AsRejection extracts a *RejectionError from err.
func AsRejection(err error) (*RejectionError, bool) {
	var rejection *RejectionError
	if errors.As(err, &rejection) {
		return rejection, true
	}

	return nil, false
}

// Provider is the source of conversation content.
//
// Implementations must be safe for concurrent use. A translation accepted by
// AddTranslation is visible to every later ListMessages call.
type Provider interface {
	// ListMessages returns all messages in display order, with saved
	// translations merged into the baseline ones.
	ListMessages(ctx context.Context) ([]Message, error)

	// GetImage returns the raw bytes of an image, or ErrImageNotFound.
	GetImage(ctx context.Context, imageID int) ([]byte, error)

	// AddTranslation stores text as the lang translation of a message.
	//
	// Invalid submissions yield a *RejectionError; any other error is a
	// storage failure.
	AddTranslation(ctx context.Context, messageID int, lang, text string) error
}
