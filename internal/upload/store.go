// Parley - Two-Party Direct Messaging Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parley

// Package upload stores message attachments and avatars on local disk.
//
// Size caps are enforced before anything touches the disk: an oversize
// or wrongly typed upload leaves no file behind. Content types come
// from sniffing the payload, never from the client-supplied header.
package upload

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/tomtom215/parley/internal/config"
	"github.com/tomtom215/parley/internal/logging"
	"github.com/tomtom215/parley/internal/metrics"
	"github.com/tomtom215/parley/internal/models"
)

var (
	// ErrTooLarge indicates the payload exceeded the configured size cap.
	ErrTooLarge = errors.New("upload exceeds size limit")

	// ErrNotImage indicates an avatar upload whose sniffed type is not an image.
	ErrNotImage = errors.New("avatar must be an image")
)

const (
	kindAttachment = "attachment"
	kindAvatar     = "avatar"
)

// Store persists uploaded blobs under a single directory and hands out
// public URLs for them.
type Store struct {
	cfg *config.UploadConfig
}

// NewStore creates the upload directory if needed and returns a Store.
func NewStore(cfg *config.UploadConfig) (*Store, error) {
	if err := os.MkdirAll(cfg.Dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &Store{cfg: cfg}, nil
}

// Dir returns the directory blobs are stored in, for static serving.
func (s *Store) Dir() string {
	return s.cfg.Dir
}

// SaveAttachment stores a message attachment of any sniffable type,
// capped at MaxFileSize.
func (s *Store) SaveAttachment(r io.Reader, filename string) (*models.UploadResult, error) {
	return s.save(r, filename, kindAttachment, s.cfg.MaxFileSize, false)
}

// SaveAvatar stores a profile image, capped at MaxAvatarSize. Payloads
// that do not sniff as an image are rejected.
func (s *Store) SaveAvatar(r io.Reader, filename string) (*models.UploadResult, error) {
	return s.save(r, filename, kindAvatar, s.cfg.MaxAvatarSize, true)
}

func (s *Store) save(r io.Reader, filename, kind string, maxSize int64, imageOnly bool) (*models.UploadResult, error) {
	// Read one byte past the cap so an oversize payload is detected
	// without buffering the whole thing.
	data, err := io.ReadAll(io.LimitReader(r, maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(data)) > maxSize {
		metrics.RecordUpload(kind, "rejected_size", 0)
		return nil, ErrTooLarge
	}

	mtype := mimetype.Detect(data)
	if imageOnly && !strings.HasPrefix(mtype.String(), "image/") {
		metrics.RecordUpload(kind, "rejected_type", 0)
		return nil, ErrNotImage
	}

	name := uuid.NewString() + blobExtension(mtype, filename)
	dst := filepath.Join(s.cfg.Dir, name)
	if err := os.WriteFile(dst, data, 0o640); err != nil {
		return nil, fmt.Errorf("failed to store upload: %w", err)
	}

	size := int64(len(data))
	metrics.RecordUpload(kind, "accepted", size)
	logging.Info().
		Str("kind", kind).
		Str("stored_as", name).
		Str("mime_type", mtype.String()).
		Int64("size", size).
		Msg("upload stored")

	return &models.UploadResult{
		URL:      path.Join(s.cfg.PublicPath, name),
		Filename: filepath.Base(filename),
		Size:     size,
		MimeType: mtype.String(),
	}, nil
}

// blobExtension prefers the sniffed extension; the client-supplied one
// is only a fallback for types mimetype cannot name.
func blobExtension(mtype *mimetype.MIME, filename string) string {
	if ext := mtype.Extension(); ext != "" {
		return ext
	}
	return strings.ToLower(filepath.Ext(filepath.Base(filename)))
}
