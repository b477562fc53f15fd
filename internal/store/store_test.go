package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"warbler/internal/models"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Options{DSN: filepath.Join(t.TempDir(), "warbler.db")})
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func countUsers(t *testing.T, s *Store) int64 {
	t.Helper()
	var n int64
	require.NoError(t, s.DB.Model(&models.User{}).Count(&n).Error)
	return n
}

func TestSqliteDSN(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"warbler.db", "file:warbler.db?_foreign_keys=1&_busy_timeout=5000&_journal_mode=WAL&_txlock=immediate"},
		{"file:x.db?cache=shared", "file:x.db?cache=shared&_foreign_keys=1&_busy_timeout=5000&_journal_mode=WAL&_txlock=immediate"},
		{"file:x.db?_fk=1&_busy_timeout=10", "file:x.db?_fk=1&_busy_timeout=10&_journal_mode=WAL&_txlock=immediate"},
		{"file:x.db?_fk=1&_busy_timeout=10&_journal_mode=DELETE&_txlock=deferred", "file:x.db?_fk=1&_busy_timeout=10&_journal_mode=DELETE&_txlock=deferred"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, sqliteDSN(tt.in))
		})
	}
}

func TestWithTx_CommitsOnSuccess(t *testing.T) {
	s := openTemp(t)

	err := s.WithTx(context.Background(), func(tx *gorm.DB) error {
		return tx.Create(&models.User{Username: "alice", Email: "alice@x.com", Password: "h"}).Error
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), countUsers(t, s))
}

func TestWithTx_RollbackOnError(t *testing.T) {
	s := openTemp(t)

	err := s.WithTx(context.Background(), func(tx *gorm.DB) error {
		require.NoError(t, tx.Create(&models.User{Username: "alice", Email: "alice@x.com", Password: "h"}).Error)
		return errors.New("boom")
	})
	require.Error(t, err)
	assert.Equal(t, int64(0), countUsers(t, s), "must rollback when fn returns error")
}

func TestWithTx_RollbackOnPanic(t *testing.T) {
	s := openTemp(t)

	require.Panics(t, func() {
		_ = s.WithTx(context.Background(), func(tx *gorm.DB) error {
			require.NoError(t, tx.Create(&models.User{Username: "alice", Email: "alice@x.com", Password: "h"}).Error)
			panic("kaput")
		})
	})
	assert.Equal(t, int64(0), countUsers(t, s), "must rollback on panic")
}

func TestMigrate_UniqueConstraints(t *testing.T) {
	s := openTemp(t)

	require.NoError(t, s.DB.Create(&models.User{Username: "alice", Email: "alice@x.com", Password: "h"}).Error)

	err := s.DB.Create(&models.User{Username: "alice", Email: "other@x.com", Password: "h"}).Error
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	err = s.DB.Create(&models.User{Username: "bob", Email: "alice@x.com", Password: "h"}).Error
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}

func TestMigrate_CompositeFollowKey(t *testing.T) {
	s := openTemp(t)

	a := &models.User{Username: "a", Email: "a@x.com", Password: "h"}
	b := &models.User{Username: "b", Email: "b@x.com", Password: "h"}
	require.NoError(t, s.DB.Create(a).Error)
	require.NoError(t, s.DB.Create(b).Error)

	edge := &models.Follow{FollowerID: a.ID, FollowedID: b.ID}
	require.NoError(t, s.DB.Omit("Follower", "Followed").Create(edge).Error)

	err := s.DB.Omit("Follower", "Followed").Create(&models.Follow{FollowerID: a.ID, FollowedID: b.ID}).Error
	assert.Error(t, err, "composite key must reject a duplicate edge")
}

func TestMigrate_CascadesUserDelete(t *testing.T) {
	s := openTemp(t)

	a := &models.User{Username: "a", Email: "a@x.com", Password: "h"}
	require.NoError(t, s.DB.Create(a).Error)
	msg := &models.Message{Text: "hi", Timestamp: time.Now(), UserID: a.ID}
	require.NoError(t, s.DB.Omit("User").Create(msg).Error)

	require.NoError(t, s.DB.Delete(&models.User{}, a.ID).Error)

	var n int64
	require.NoError(t, s.DB.Model(&models.Message{}).Count(&n).Error)
	assert.Equal(t, int64(0), n, "foreign key cascade must remove messages")
}

func TestPing(t *testing.T) {
	s := openTemp(t)
	require.NoError(t, s.Ping(context.Background()))
}
