// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/user"
	"strconv"

	"github.com/rs/zerolog/log"

	"codeberg.org/proxima/proxima/config"
)

var (
	errChmodSocket = errors.New("failed to change unix socket permissions")
	errChownSocket = errors.New("failed to change unix socket ownership")
)

// listen opens the configured unix socket, or the TCP host and port when no
// socket is set.
func listen(ctx context.Context) (net.Listener, error) {
	basic := config.Global.Basic

	var lc net.ListenConfig

	if basic.UnixSocket != "" {
		l, err := lc.Listen(ctx, "unix", basic.UnixSocket)
		if err != nil {
			return nil, fmt.Errorf("failed to start Unix socket listener on %s: %w", basic.UnixSocket, err)
		}

		if err := prepareSocket(basic.UnixSocket, basic.UnixSocketUser, basic.UnixSocketGroup, basic.UnixSocketPermissions); err != nil {
			_ = l.Close()

			return nil, err
		}

		log.Info().
			Str("address", basic.UnixSocket).
			Msg("Listening on Unix domain socket")

		return l, nil
	}

	addr := net.JoinHostPort(basic.Host, basic.Port)

	l, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to start TCP listener on %s: %w", addr, err)
	}

	log.Info().
		Str("address", l.Addr().String()).
		Str("url", localURL(l.Addr())).
		Msg("Listening on address")

	return l, nil
}

// localURL is a browsable URL for a local TCP listener.
func localURL(addr net.Addr) string {
	tcp, ok := addr.(*net.TCPAddr)
	if !ok {
		return ""
	}

	return "http://localhost:" + strconv.Itoa(tcp.Port) + "/"
}

// prepareSocket applies the configured owner, group and mode to the socket file.
func prepareSocket(path, owner, group string, mode os.FileMode) error {
	uid, err := lookupID(owner, userID)
	if err != nil {
		return err
	}

	gid, err := lookupID(group, groupID)
	if err != nil {
		return err
	}

	if uid != -1 || gid != -1 {
		if err := os.Chown(path, uid, gid); err != nil {
			return fmt.Errorf("%w: %w", errChownSocket, err)
		}
	}

	if err := os.Chmod(path, mode); err != nil {
		return fmt.Errorf("%w: %w", errChmodSocket, err)
	}

	return nil
}

// lookupID turns a numeric id or a name into an id. Empty means -1, which
// os.Chown leaves unchanged.
func lookupID(value string, byName func(string) (string, error)) (int, error) {
	if value == "" {
		return -1, nil
	}

	if id, err := strconv.Atoi(value); err == nil {
		return id, nil
	}

	raw, err := byName(value)
	if err != nil {
		return -1, err
	}

	id, err := strconv.Atoi(raw)
	if err != nil {
		return -1, fmt.Errorf("non-numeric id %q for %q: %w", raw, value, err)
	}

	return id, nil
}

func userID(name string) (string, error) {
	u, err := user.Lookup(name)
	if err != nil {
		return "", fmt.Errorf("failed to lookup user %q: %w", name, err)
	}

	return u.Uid, nil
}

func groupID(name string) (string, error) {
	g, err := user.LookupGroup(name)
	if err != nil {
		return "", fmt.Errorf("failed to lookup group %q: %w", name, err)
	}

	return g.Gid, nil
}
