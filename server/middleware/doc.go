// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package middleware provides the request handling layers shared by every Proxima route.

Global middleware (security headers, URL normalisation, body limits, server
timing) is registered on the router in server/router. Handlers themselves are
wrapped individually by CatchError, which turns returned errors and panics
into plain-text 500 responses.
*/
package middleware
