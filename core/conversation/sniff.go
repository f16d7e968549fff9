// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package conversation

import "bytes"

// Content types served for images.
const (
	ContentTypePNG    = "image/png"
	ContentTypeJPEG   = "image/jpeg"
	ContentTypeBinary = "application/octet-stream"
)

var (
	pngMagic  = []byte{0x89, 'P', 'N', 'G'}
	jpegMagic = []byte{0xFF, 0xD8}
)

// SniffImageType picks the content type of an image from its leading bytes.
func SniffImageType(data []byte) string {
	switch {
	case len(data) >= 8 && bytes.HasPrefix(data, pngMagic):
		return ContentTypePNG
	case bytes.HasPrefix(data, jpegMagic):
		return ContentTypeJPEG
	default:
		return ContentTypeBinary
	}
}
