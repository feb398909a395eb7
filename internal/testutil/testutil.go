// Package testutil provides shared fixtures for backend tests.
package testutil

import (
	"bytes"
	"image"
	"image/png"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"scrapdeal/internal/cache"
	"scrapdeal/internal/db"
)

// NewDB opens a migrated in-memory SQLite database.
// A single connection keeps every query on the same in-memory instance.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), db.Config())
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.Migrate(gdb, false))
	return gdb
}

// NewFileDB opens a migrated SQLite file database shared by up to conns
// connections, so transactions from separate goroutines genuinely overlap.
// Writers take the lock at BEGIN and wait for it instead of failing busy.
func NewFileDB(t testing.TB, conns int) *gorm.DB {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "scrapdeal.db") +
		"?_busy_timeout=10000&_txlock=immediate&_journal_mode=WAL"
	gdb, err := gorm.Open(sqlite.Open(dsn), db.Config())
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(conns)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.Migrate(gdb, false))
	return gdb
}

// NewCache starts a miniredis instance and returns a cache client bound to it.
func NewCache(t testing.TB) (*cache.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return cache.NewFromRedis(rdb), mr
}

// PNG returns a tiny valid png image.
func PNG(t testing.TB) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))))
	return buf.Bytes()
}
