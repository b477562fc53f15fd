// Package service implements warbler's domain operations: accounts,
// the follow graph, likes, messages and the home feed.
//
// Every operation that acts on behalf of a user takes the resolved current
// identity as an explicit actor argument. A nil actor means anonymous.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"warbler/internal/models"
	"warbler/internal/store"
)

// FeedLimit caps the number of messages on the home feed.
const FeedLimit = 100

type Options struct {
	BcryptCost int
	// RequireMessageOwner restricts DeleteMessage to the message author.
	RequireMessageOwner bool
}

type Service struct {
	store *store.Store
	log   logrus.FieldLogger
	opts  Options
	now   func() time.Time
}

func New(st *store.Store, log logrus.FieldLogger, opts Options) *Service {
	return &Service{
		store: st,
		log:   log,
		opts:  opts,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) db(ctx context.Context) *gorm.DB {
	return s.store.DB.WithContext(ctx)
}

// notFound maps gorm's missing-row error to ErrNotFound and wraps the rest.
func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("load %s: %w", what, err)
}

func userExists(tx *gorm.DB, id uint) error {
	var n int64
	if err := tx.Model(&models.User{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return fmt.Errorf("count user: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
