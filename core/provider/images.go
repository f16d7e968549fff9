// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package provider

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"codeberg.org/proxima/proxima/core/content"
)

// Images resolves image ids to raw bytes.
type Images interface {
	// Load returns the image bytes or content.ErrImageNotFound.
	Load(ctx context.Context, imageID int) ([]byte, error)
}

// StaticImages serves images held in memory.
type StaticImages map[int][]byte

func (s StaticImages) Load(_ context.Context, imageID int) ([]byte, error) {
	img, ok := s[imageID]
	if !ok {
		return nil, content.ErrImageNotFound
	}

	return slices.Clone(img), nil
}

// imageExtensions are tried in order when looking an image up in a directory.
var imageExtensions = []string{".png", ".jpg", ".jpeg"}

// DirImages serves image N from the file N.png, N.jpg or N.jpeg in Dir,
// falling back to Fallback when no such file exists.
type DirImages struct {
	Dir      string
	Fallback Images
}

func (d DirImages) Load(ctx context.Context, imageID int) ([]byte, error) {
	name := strconv.Itoa(imageID)

	for _, ext := range imageExtensions {
		path := filepath.Join(d.Dir, name+ext)

		data, err := os.ReadFile(path) // #nosec G304 -- file name is built from an integer id
		if err == nil {
			return data, nil
		}

		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read image %s: %w", path, err)
		}
	}

	if d.Fallback != nil {
		return d.Fallback.Load(ctx, imageID)
	}

	return nil, content.ErrImageNotFound
}
