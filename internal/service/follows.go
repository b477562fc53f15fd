package service

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"warbler/internal/models"
)

// Follow makes actor follow the user targetID. Following someone already
// followed is a no-op.
func (s *Service) Follow(ctx context.Context, actor *models.User, targetID uint) error {
	if actor == nil {
		return ErrUnauthenticated
	}

	return s.store.WithTx(ctx, func(tx *gorm.DB) error {
		if err := userExists(tx, targetID); err != nil {
			return err
		}
		edge := &models.Follow{FollowerID: actor.ID, FollowedID: targetID}
		err := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Omit(clause.Associations).
			Create(edge).Error
		if err != nil {
			return fmt.Errorf("insert follow: %w", err)
		}
		return nil
	})
}

// Unfollow removes the actor -> targetID edge if it exists.
func (s *Service) Unfollow(ctx context.Context, actor *models.User, targetID uint) error {
	if actor == nil {
		return ErrUnauthenticated
	}

	return s.store.WithTx(ctx, func(tx *gorm.DB) error {
		if err := userExists(tx, targetID); err != nil {
			return err
		}
		err := tx.Where("follower_id = ? AND followed_id = ?", actor.ID, targetID).
			Delete(&models.Follow{}).Error
		if err != nil {
			return fmt.Errorf("delete follow: %w", err)
		}
		return nil
	})
}

func (s *Service) IsFollowing(ctx context.Context, followerID, followedID uint) (bool, error) {
	var n int64
	err := s.db(ctx).Model(&models.Follow{}).
		Where("follower_id = ? AND followed_id = ?", followerID, followedID).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("count follow: %w", err)
	}
	return n > 0, nil
}

// Following lists the users userID follows.
func (s *Service) Following(ctx context.Context, userID uint) ([]models.User, error) {
	var users []models.User
	err := s.db(ctx).
		Joins("JOIN follows ON follows.followed_id = users.id").
		Where("follows.follower_id = ?", userID).
		Order("users.username").
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("list following: %w", err)
	}
	return users, nil
}

// Followers lists the users following userID.
func (s *Service) Followers(ctx context.Context, userID uint) ([]models.User, error) {
	var users []models.User
	err := s.db(ctx).
		Joins("JOIN follows ON follows.follower_id = users.id").
		Where("follows.followed_id = ?", userID).
		Order("users.username").
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("list followers: %w", err)
	}
	return users, nil
}

// FollowingIDs returns the set of user ids userID follows.
func (s *Service) FollowingIDs(ctx context.Context, userID uint) (map[uint]bool, error) {
	var ids []uint
	err := s.db(ctx).Model(&models.Follow{}).
		Where("follower_id = ?", userID).
		Pluck("followed_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("list following ids: %w", err)
	}
	set := make(map[uint]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}
