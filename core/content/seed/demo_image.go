// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package seed

import (
	"encoding/base64"
	"slices"
)

// DemoImageID is the image referenced by the demo conversation.
const DemoImageID = 1

// A transparent 1x1 PNG.
const demoImageBase64 = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAQAAAC1HAwCAAAAC0lEQVR4nGNgYAAAAAMAASsJTYQAAAAASUVORK5CYII="

var demoImage = mustDecode(demoImageBase64)

// DemoImage returns a copy of the built-in demo picture.
func DemoImage() []byte {
	return slices.Clone(demoImage)
}

func mustDecode(s string) []byte {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		panic(err)
	}

	return b
}
