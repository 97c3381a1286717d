// Parley - Two-Party Direct Messaging Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parley

package api

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/tomtom215/parley/internal/logging"
	"github.com/tomtom215/parley/internal/models"
	"github.com/tomtom215/parley/internal/upload"
)

// multipartOverhead is slack on top of the payload cap for multipart
// framing and form fields.
const multipartOverhead = 64 << 10

// Upload handles POST /api/v1/upload: a multipart attachment capped at
// MaxFileSize, rejected before anything is written to disk.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	h.handleUpload(w, r, h.cfg.Upload.MaxFileSize, h.uploads.SaveAttachment)
}

// UploadAvatar handles POST /api/v1/upload/avatar: images only, capped
// at MaxAvatarSize.
func (h *Handler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	h.handleUpload(w, r, h.cfg.Upload.MaxAvatarSize, h.uploads.SaveAvatar)
}

func (h *Handler) handleUpload(
	w http.ResponseWriter,
	r *http.Request,
	maxSize int64,
	save func(io.Reader, string) (*models.UploadResult, error),
) {
	start := time.Now()

	// Cap the socket read; the store enforces the exact payload limit.
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)

	file, header, err := r.FormFile("file")
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			respondError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "Upload exceeds size limit", nil)
			return
		}
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Multipart field 'file' is required", nil)
		return
	}
	defer func() { _ = file.Close() }()

	result, err := save(file, header.Filename)
	if err != nil {
		switch {
		case errors.Is(err, upload.ErrTooLarge):
			respondError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "Upload exceeds size limit", nil)
		case errors.Is(err, upload.ErrNotImage):
			respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Avatar must be an image", nil)
		default:
			respondError(w, http.StatusInternalServerError, "SERVICE_ERROR", "Failed to store upload", err)
		}
		return
	}

	logging.Ctx(r.Context()).Info().
		Str("url", result.URL).
		Int64("size", result.Size).
		Str("mime_type", result.MimeType).
		Msg("upload accepted")
	respondSuccess(w, http.StatusCreated, result, start)
}
