// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package routes

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"codeberg.org/proxima/proxima/config"
	"codeberg.org/proxima/proxima/core/content"
	"codeberg.org/proxima/proxima/core/conversation"
	"codeberg.org/proxima/proxima/server/utils"
)

// Image serves the raw bytes of /image?id=N with a sniffed content type.
func (h *Handlers) Image(w http.ResponseWriter, r *http.Request) error {
	imageID, err := strconv.Atoi(utils.GetQueryParam(r, "id"))
	if err != nil || imageID <= 0 {
		return utils.WriteText(w, http.StatusBadRequest, "Bad image id")
	}

	data, err := h.Provider.GetImage(r.Context(), imageID)
	if errors.Is(err, content.ErrImageNotFound) {
		return utils.WriteText(w, http.StatusNotFound, "No image")
	}

	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", conversation.SniffImageType(data))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))

	if maxAge := config.Global.HTTPCache.ImageMaxAge; maxAge > 0 {
		w.Header().Set("Cache-Control", fmt.Sprintf("private, max-age=%d", int(maxAge.Seconds())))
	}

	_, err = w.Write(data)

	return err
}
