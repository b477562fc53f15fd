package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"warbler/internal/models"
)

// UserStats holds the counters shown on a profile page.
type UserStats struct {
	Messages  int64
	Following int64
	Followers int64
	Likes     int64
}

func (s *Service) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db(ctx).First(&user, id).Error; err != nil {
		return nil, notFound(err, "user")
	}
	return &user, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// ListUsers returns every user, or only those whose username contains q.
// The match is case-insensitive on every store and q is taken literally.
func (s *Service) ListUsers(ctx context.Context, q string) ([]models.User, error) {
	db := s.db(ctx).Order("username")
	if q != "" {
		pattern := "%" + likeEscaper.Replace(strings.ToLower(q)) + "%"
		db = db.Where(`LOWER(username) LIKE ? ESCAPE '\'`, pattern)
	}

	var users []models.User
	if err := db.Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (s *Service) UserStats(ctx context.Context, id uint) (UserStats, error) {
	var st UserStats
	db := s.db(ctx)

	counts := []struct {
		dst   *int64
		model any
		where string
	}{
		{&st.Messages, &models.Message{}, "user_id = ?"},
		{&st.Following, &models.Follow{}, "follower_id = ?"},
		{&st.Followers, &models.Follow{}, "followed_id = ?"},
		{&st.Likes, &models.Like{}, "user_id = ?"},
	}
	for _, c := range counts {
		if err := db.Model(c.model).Where(c.where, id).Count(c.dst).Error; err != nil {
			return UserStats{}, fmt.Errorf("count stats: %w", err)
		}
	}
	return st, nil
}

// DeleteUser removes actor together with their messages, every follow edge
// touching them, their likes and the likes on their messages.
func (s *Service) DeleteUser(ctx context.Context, actor *models.User) error {
	if actor == nil {
		return ErrUnauthenticated
	}

	err := s.store.WithTx(ctx, func(tx *gorm.DB) error {
		owned := tx.Model(&models.Message{}).Select("id").Where("user_id = ?", actor.ID)

		steps := []struct {
			what string
			run  func() error
		}{
			{"likes", func() error {
				return tx.Where("user_id = ? OR message_id IN (?)", actor.ID, owned).Delete(&models.Like{}).Error
			}},
			{"follows", func() error {
				return tx.Where("follower_id = ? OR followed_id = ?", actor.ID, actor.ID).Delete(&models.Follow{}).Error
			}},
			{"messages", func() error {
				return tx.Where("user_id = ?", actor.ID).Delete(&models.Message{}).Error
			}},
			{"user", func() error {
				return tx.Delete(&models.User{}, actor.ID).Error
			}},
		}
		for _, st := range steps {
			if err := st.run(); err != nil {
				return fmt.Errorf("delete %s: %w", st.what, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.WithFields(logrus.Fields{"user_id": actor.ID, "username": actor.Username}).Info("User deleted")
	return nil
}
