// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package utils

import (
	"fmt"
	"net/http"
	"net/netip"
)

// PeerAddr is the address of the directly connected peer, which is a reverse
// proxy rather than the browser in proxied deployments.
func PeerAddr(r *http.Request) (netip.Addr, bool) {
	if addrPort, err := netip.ParseAddrPort(r.RemoteAddr); err == nil {
		return addrPort.Addr().Unmap(), true
	}

	addr, err := netip.ParseAddr(r.RemoteAddr)
	if err != nil {
		return netip.Addr{}, false
	}

	return addr.Unmap(), true
}

// IsTrustedProxy reports whether forwarding headers from addr may be
// believed: only private and loopback peers qualify.
func IsTrustedProxy(addr netip.Addr) bool {
	return addr.IsPrivate() || addr.IsLoopback()
}

// IsConnectionSecure reports whether the browser reached us over TLS, either
// directly or through a trusted proxy that sets X-Forwarded-Proto.
//
// A last proxy with a public address is not trusted, so such deployments are
// treated as insecure.
func IsConnectionSecure(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}

	peer, ok := PeerAddr(r)

	return ok && IsTrustedProxy(peer) && r.Header.Get("X-Forwarded-Proto") == "https"
}

// WriteText writes a plain-text response with the given status code.
func WriteText(w http.ResponseWriter, statusCode int, format string, args ...any) error {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(statusCode)

	if _, err := fmt.Fprintf(w, format, args...); err != nil {
		return fmt.Errorf("writing %d response: %w", statusCode, err)
	}

	return nil
}
