// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package limiter

import (
	"net/http"
	"net/netip"
	"strings"

	"github.com/rs/zerolog/log"

	"codeberg.org/proxima/proxima/server/utils"
)

// clientAddr is the address requests from r are accounted to. The zero Addr
// means it could not be determined.
//
// Proxy headers (X-Real-IP, then the last X-Forwarded-For hop) are only
// consulted when trustForwarded is set and the peer is a trusted proxy.
func clientAddr(r *http.Request, trustForwarded bool) netip.Addr {
	peer, ok := utils.PeerAddr(r)
	if !ok {
		log.Error().
			Str("remote_addr", r.RemoteAddr).
			Msg("Could not determine client IP")

		return netip.Addr{}
	}

	if !trustForwarded {
		return peer
	}

	if !utils.IsTrustedProxy(peer) {
		if r.Header.Get("X-Forwarded-For") != "" {
			log.Debug().
				Str("remote_ip", peer.String()).
				Msg("Request from untrusted source, ignoring proxy headers")
		}

		return peer
	}

	if addr, ok := parseHeaderAddr(r.Header.Get("X-Real-IP")); ok {
		return addr
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		hops := strings.Split(xff, ",")
		if addr, ok := parseHeaderAddr(hops[len(hops)-1]); ok {
			return addr
		}
	}

	return peer
}

func parseHeaderAddr(raw string) (netip.Addr, bool) {
	addr, err := netip.ParseAddr(strings.TrimSpace(raw))
	if err != nil {
		return netip.Addr{}, false
	}

	return addr.Unmap(), true
}

// passList holds the networks that are never limited. A bare address is a
// single-host prefix.
type passList []netip.Prefix

// parsePassList parses addresses and CIDRs, skipping (and logging) anything else.
func parsePassList(entries []string) passList {
	list := make(passList, 0, len(entries))

	for _, entry := range entries {
		if prefix, err := netip.ParsePrefix(entry); err == nil {
			list = append(list, prefix.Masked())

			continue
		}

		if addr, err := netip.ParseAddr(entry); err == nil {
			addr = addr.Unmap()
			list = append(list, netip.PrefixFrom(addr, addr.BitLen()))

			continue
		}

		log.Warn().
			Str("entry", entry).
			Msg("Ignoring invalid limiter pass list entry")
	}

	return list
}

func (p passList) contains(addr netip.Addr) bool {
	for _, prefix := range p {
		if prefix.Contains(addr) {
			return true
		}
	}

	return false
}

// network is the prefix addr is accounted under: /ipv4Prefix or /ipv6Prefix.
func network(addr netip.Addr, ipv4Prefix, ipv6Prefix int) netip.Prefix {
	bits := ipv6Prefix
	if addr.Is4() {
		bits = ipv4Prefix
	}

	prefix, err := addr.Prefix(bits)
	if err != nil {
		return netip.PrefixFrom(addr, addr.BitLen())
	}

	return prefix
}
