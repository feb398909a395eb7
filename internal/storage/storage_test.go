package storage

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "scrapdeal/internal/errors"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))))
	return buf.Bytes()
}

func TestDiskStore_SavePNG(t *testing.T) {
	dir := t.TempDir()
	store, err := NewDiskStore(dir, 1)
	require.NoError(t, err)

	ref, err := store.Save(context.Background(), bytes.NewReader(pngBytes(t)))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(ref, PublicPrefix))
	assert.Equal(t, ".png", filepath.Ext(ref))
	_, err = os.Stat(filepath.Join(dir, filepath.Base(ref)))
	assert.NoError(t, err)
}

func TestDiskStore_RejectsNonImage(t *testing.T) {
	store, err := NewDiskStore(t.TempDir(), 1)
	require.NoError(t, err)

	_, err = store.Save(context.Background(), strings.NewReader("%PDF-1.4 not an image"))
	assert.True(t, errors.Is(err, apperrors.ErrValidation))
}

func TestDiskStore_RejectsEmpty(t *testing.T) {
	store, err := NewDiskStore(t.TempDir(), 1)
	require.NoError(t, err)

	_, err = store.Save(context.Background(), strings.NewReader(""))
	assert.True(t, errors.Is(err, apperrors.ErrValidation))
}

func TestDiskStore_RejectsOversize(t *testing.T) {
	store, err := NewDiskStore(t.TempDir(), 1)
	require.NoError(t, err)

	big := append(pngBytes(t), make([]byte, 1<<20)...)
	_, err = store.Save(context.Background(), bytes.NewReader(big))
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrValidation))
	assert.Contains(t, err.Error(), "max 1MB")
}

func TestDiskStore_Remove(t *testing.T) {
	dir := t.TempDir()
	store, err := NewDiskStore(dir, 1)
	require.NoError(t, err)

	ref, err := store.Save(context.Background(), bytes.NewReader(pngBytes(t)))
	require.NoError(t, err)

	require.NoError(t, store.Remove(ref))
	_, err = os.Stat(filepath.Join(dir, filepath.Base(ref)))
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, store.Remove(ref))
	assert.NoError(t, store.Remove("https://elsewhere/x.png"))
}
