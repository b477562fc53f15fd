// Package storetest provides a migrated throwaway sqlite store for tests.
package storetest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"warbler/internal/store"
)

// New opens a fresh sqlite database under t.TempDir and migrates it.
func New(t *testing.T) *store.Store {
	t.Helper()

	s, err := store.Open(store.Options{DSN: filepath.Join(t.TempDir(), "warbler.db")})
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))

	t.Cleanup(func() { _ = s.Close() })
	return s
}
