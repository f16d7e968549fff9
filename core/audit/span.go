// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package audit

import (
	"context"
	"encoding/base64"
	"fmt"
	"runtime/trace"
	"strconv"
	"time"

	servertiming "github.com/mitchellh/go-server-timing"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Span represents a request or a provider call in flight.
type Span struct {
	// only these fields are set automatically
	task     *trace.Task
	start    time.Time
	duration time.Duration
	metric   *servertiming.Metric

	Destination TrafficDestination
	RequestID   string
	Method      string
	URL         string
	StatusCode  int
	Error       error

	// Size is the number of bytes in the response body.
	Size int
}

// TrafficDestination describes what a span measures.
type TrafficDestination string

// Constants for traffic destinations.
const (
	// ToUser is a response served to a browser.
	ToUser TrafficDestination = "user"
	// ToProvider is a call into the content provider.
	ToProvider TrafficDestination = "provider"
)

// ServerTimingName is the metric name of span in the Server-Timing header.
func (span Span) ServerTimingName() string {
	// base64 without trailing '=' keeps the token syntax valid
	return string(span.Destination) + "$" + span.Method + "$" + base64.RawURLEncoding.EncodeToString([]byte(span.URL))
}

func (span *Span) Begin(ctx context.Context) context.Context {
	span.start = time.Now()

	ctx, span.task = trace.NewTask(ctx, "proxima."+string(span.Destination))
	if servertimingContext := servertiming.FromContext(ctx); servertimingContext != nil {
		span.metric = servertimingContext.NewMetric(span.ServerTimingName())
		span.metric.Extra = make(map[string]string)
		span.metric.Extra["start"] = strconv.FormatFloat(float64(span.start.UnixNano())/float64(time.Millisecond), 'f', -1, 64)
	}

	return ctx
}

// End stops the clock. Calling it again has no effect.
func (span *Span) End() {
	if span.task != nil {
		span.duration = time.Since(span.start)
		span.task.End()

		if span.metric != nil {
			span.metric.Duration = span.duration
		}

		span.task = nil
	}
}

// Duration is the time between Begin and End.
func (span Span) Duration() time.Duration {
	return span.duration
}

// Log writes the span to the global logger. Server errors are logged at
// error level, everything else at debug level.
func (span Span) Log() {
	event := log.Debug()
	if span.StatusCode >= 500 {
		event = log.Error()
	}

	span.fill(event).Send()
}

func (span Span) fill(event *zerolog.Event) *zerolog.Event {
	event.Str("sys", "http")
	event.Str("method", span.Method)
	event.Str("url", span.URL)
	event.Str("destination", string(span.Destination))
	event.Dur("dur", span.duration)

	if span.Destination == ToUser {
		event.Int("status_code", span.StatusCode)
		event.Str("len", humanizeSize(span.Size))
	}

	if span.RequestID != "" {
		event.Str("request_id", span.RequestID)
	}

	if span.Error != nil {
		event.Err(span.Error)
	}

	return event
}

const (
	bytesInKB = 1024
	bytesInMB = bytesInKB * bytesInKB
	bytesInGB = bytesInMB * bytesInKB
)

func humanizeSize(x int) string {
	if x < bytesInKB {
		return strconv.Itoa(x)
	}

	if x < bytesInMB {
		return fmt.Sprintf("%.2fK", float64(x)/bytesInKB)
	}

	if x < bytesInGB {
		return fmt.Sprintf("%.2fM", float64(x)/bytesInMB)
	}

	return fmt.Sprintf("%.2fG", float64(x)/bytesInGB)
}
