// Package icon validates uploaded app icons and writes them to the
// project's asset directory, optionally mirroring them to S3.
package icon

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// FileName is the name the icon is stored under.
const FileName = "icon.png"

const defaultMIME = "image/png"

var (
	// ErrMissing is returned when no icon data was supplied.
	ErrMissing = errors.New("missing icon file")
	// ErrNotPNG is returned when the data lacks the PNG signature.
	ErrNotPNG = errors.New("icon must be a PNG file")
)

var pngSignature = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

// IsPNG reports whether data starts with the 8-byte PNG signature.
func IsPNG(data []byte) bool {
	return bytes.HasPrefix(data, pngSignature)
}

// Store writes icon bytes somewhere and returns where they ended up.
type Store interface {
	Put(ctx context.Context, data []byte, contentType string) (string, error)
}

// LocalStore writes the icon to Dir/icon.png, creating Dir if needed.
type LocalStore struct {
	Dir string
}

// Path returns the file the icon is written to.
func (s LocalStore) Path() string {
	return filepath.Join(s.Dir, FileName)
}

// Put writes data, replacing any previous icon.
func (s LocalStore) Put(_ context.Context, data []byte, _ string) (string, error) {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("creating icon directory: %w", err)
	}
	path := s.Path()
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing icon: %w", err)
	}
	return path, nil
}

// Upload is the outcome of a successful Save.
type Upload struct {
	Path           string   // location reported by the primary store
	PreviewDataURL string   // data: URL for an inline preview
	Mirrors        []string // locations written by mirrors
}

// Uploader validates icons and writes them to Primary, then to each
// mirror. Mirror failures are logged and do not fail the upload.
type Uploader struct {
	Primary Store
	Mirrors []Store
	Logger  *slog.Logger
}

// Save validates data and stores it. contentType is the client's declared
// type; it only affects the preview URL.
func (u *Uploader) Save(ctx context.Context, data []byte, contentType string) (*Upload, error) {
	if len(data) == 0 {
		return nil, ErrMissing
	}
	if !IsPNG(data) {
		return nil, ErrNotPNG
	}
	path, err := u.Primary.Put(ctx, data, defaultMIME)
	if err != nil {
		return nil, err
	}
	up := &Upload{Path: path, PreviewDataURL: DataURL(contentType, data)}
	for _, m := range u.Mirrors {
		loc, err := m.Put(ctx, data, defaultMIME)
		if err != nil {
			u.logger().Warn("mirroring icon failed", "error", err)
			continue
		}
		up.Mirrors = append(up.Mirrors, loc)
	}
	u.logger().Info("icon stored", "path", path, "bytes", len(data))
	return up, nil
}

func (u *Uploader) logger() *slog.Logger {
	if u.Logger != nil {
		return u.Logger
	}
	return slog.Default()
}

// DataURL encodes data as a base64 data URL, defaulting the media type to
// image/png.
func DataURL(contentType string, data []byte) string {
	if strings.TrimSpace(contentType) == "" {
		contentType = defaultMIME
	}
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
