// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package config

import (
	"runtime/debug"
	"strings"
)

// BuildVersion is the latest tagged release of Proxima.
const BuildVersion string = "v0.4.0"

const shortRevisionLength = 8

// buildInfo is what the Go toolchain stamped into the binary.
type buildInfo struct {
	GoVersion   string
	VcsRevision string
	VcsTime     string
	VcsModified bool
}

// Revision is "<commit date>-<short hash>", with "+dirty" for builds from a
// modified tree, or "unknown" outside a VCS checkout.
func (b *buildInfo) Revision() string {
	if b.VcsRevision == "" {
		return "unknown"
	}

	revision := b.VcsRevision
	if len(revision) > shortRevisionLength {
		revision = revision[:shortRevisionLength]
	}

	if date, _, _ := strings.Cut(b.VcsTime, "T"); date != "" {
		revision = date + "-" + revision
	}

	if b.VcsModified {
		revision += "+dirty"
	}

	return revision
}

func (b *buildInfo) load() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	b.fill(info)
}

func (b *buildInfo) fill(info *debug.BuildInfo) {
	b.GoVersion = info.GoVersion

	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			b.VcsRevision = setting.Value
		case "vcs.time":
			b.VcsTime = setting.Value
		case "vcs.modified":
			b.VcsModified = setting.Value == "true"
		}
	}
}
