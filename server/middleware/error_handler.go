// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package middleware

import (
	"fmt"
	"maps"
	"net/http"
	"net/http/httptest"

	"github.com/rs/zerolog/log"

	"codeberg.org/proxima/proxima/config"
	"codeberg.org/proxima/proxima/core/audit"
	"codeberg.org/proxima/proxima/server/request_context"
	"codeberg.org/proxima/proxima/server/utils"
)

// PanicError carries a value recovered from a panicking handler.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// ServerErrorMessage is the body of a 500 response caused by err: the
// error's type and message, nothing else.
func ServerErrorMessage(err error) string {
	if panicErr, ok := err.(*PanicError); ok {
		if inner, ok := panicErr.Value.(error); ok {
			return fmt.Sprintf("Server error: %T: %s", inner, inner.Error())
		}

		return fmt.Sprintf("Server error: %T: %v", panicErr.Value, panicErr.Value)
	}

	return fmt.Sprintf("Server error: %T: %s", err, err.Error())
}

// CatchError wraps HTTP handlers that return an error, providing centralized error handling,
// response buffering, and request logging.
//
// It operates as follows:
//  1. It times the request with an audit.Span.
//  2. It runs the handler against an httptest.ResponseRecorder, recovering
//     from panics.
//  3. Any error returned by the handler is stored in the request context.
//
// After the handler runs, it decides on the final response:
//   - If the handler returned an error (or panicked) without writing an HTTP
//     error status code, the buffered response is discarded and a plain-text
//     500 response naming the error's type and message is sent instead.
//   - In all other cases, including 4xx responses the handler wrote itself,
//     the buffered response is written to the client.
//
// Finally, it logs the completed request via the audit package.
func CatchError(handler func(w http.ResponseWriter, r *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := request_context.FromRequest(r)

		span := audit.Span{
			Destination: audit.ToUser,
			RequestID:   ctx.RequestID,
			Method:      r.Method,
			URL:         r.URL.String(),
		}

		r = r.WithContext(span.Begin(r.Context()))

		recorder := httptest.NewRecorder()

		ctx.RequestError = runHandler(handler, recorder, r)

		if ctx.RequestError != nil && recorder.Code < http.StatusBadRequest {
			ctx.StatusCode = http.StatusInternalServerError

			w.Header().Set("Cache-Control", "no-store")

			if err := utils.WriteText(w, ctx.StatusCode, "%s", ServerErrorMessage(ctx.RequestError)); err != nil {
				log.Err(err).Msg("Failed to write error response")
			}
		} else {
			ctx.StatusCode = recorder.Code
			span.Size = recorder.Body.Len()

			maps.Copy(w.Header(), recorder.Header())
			w.WriteHeader(recorder.Code)

			if _, err := recorder.Body.WriteTo(w); err != nil {
				log.Err(err).Msg("Failed to write response body")
			}
		}

		span.End()

		span.StatusCode = ctx.StatusCode
		span.Error = ctx.RequestError

		if !config.Global.ShouldSkipServerLogging(r.URL.Path) || ctx.StatusCode >= http.StatusInternalServerError {
			span.Log()
		}
	}
}

// runHandler calls handler, converting a panic into a *PanicError.
func runHandler(handler func(w http.ResponseWriter, r *http.Request) error, w http.ResponseWriter, r *http.Request) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			if recovered == http.ErrAbortHandler {
				panic(recovered)
			}

			err = &PanicError{Value: recovered}
		}
	}()

	return handler(w, r)
}
