// Package storage keeps uploaded product images on local disk.
package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	apperrors "scrapdeal/internal/errors"
)

// PublicPrefix is the URL path stored images are served under.
const PublicPrefix = "/uploads/"

var allowedTypes = []string{"image/jpeg", "image/png"}

// ImageStore persists an uploaded image and returns a retrievable reference.
type ImageStore interface {
	Save(ctx context.Context, r io.Reader) (string, error)
	Remove(ref string) error
}

// DiskStore writes images as <uuid><ext> under a single directory.
type DiskStore struct {
	dir      string
	maxBytes int64
}

var _ ImageStore = (*DiskStore)(nil)

// NewDiskStore creates the upload directory if needed.
func NewDiskStore(dir string, maxMB int) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &DiskStore{dir: dir, maxBytes: int64(maxMB) << 20}, nil
}

// Dir returns the directory images are written to.
func (s *DiskStore) Dir() string {
	return s.dir
}

// Save sniffs the content, rejects anything but jpeg or png and anything over
// the size limit, then writes it and returns its public path.
func (s *DiskStore) Save(ctx context.Context, r io.Reader) (string, error) {
	content, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if len(content) == 0 {
		return "", apperrors.Validation("image file is empty")
	}
	if int64(len(content)) > s.maxBytes {
		return "", apperrors.Validation(fmt.Sprintf("image too large (max %dMB)", s.maxBytes>>20))
	}

	mtype := mimetype.Detect(content)
	if !mimetype.EqualsAny(mtype.String(), allowedTypes...) {
		return "", apperrors.Validation("only jpeg and png images are allowed")
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	name := uuid.New().String() + mtype.Extension()
	if err := os.WriteFile(filepath.Join(s.dir, name), content, 0o644); err != nil {
		return "", fmt.Errorf("write image: %w", err)
	}
	return PublicPrefix + name, nil
}

// Remove deletes a previously stored image by its public reference.
// Unknown references are ignored.
func (s *DiskStore) Remove(ref string) error {
	name := filepath.Base(ref)
	if name == "." || name == "/" || !strings.HasPrefix(ref, PublicPrefix) {
		return nil
	}
	err := os.Remove(filepath.Join(s.dir, name))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove image: %w", err)
	}
	return nil
}
