// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package limiter is a middleware that rate limits state-changing HTTP requests.

Clients are grouped by their IP network (a /24 for IPv4 and a /48 for IPv6 by
default) and each network draws from a shared token bucket. Only POST requests
consume tokens; pages and images are never limited.
*/
package limiter
