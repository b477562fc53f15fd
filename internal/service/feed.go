package service

import (
	"context"
	"fmt"

	"warbler/internal/models"
)

// HomeFeed returns the newest FeedLimit messages written by actor or by
// anyone actor follows.
func (s *Service) HomeFeed(ctx context.Context, actor *models.User) ([]models.Message, error) {
	if actor == nil {
		return nil, ErrUnauthenticated
	}

	db := s.db(ctx)
	followed := db.Model(&models.Follow{}).Select("followed_id").Where("follower_id = ?", actor.ID)

	var msgs []models.Message
	err := db.Preload("User").
		Where("user_id = ? OR user_id IN (?)", actor.ID, followed).
		Order("timestamp DESC").Order("id DESC").
		Limit(FeedLimit).
		Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("load feed: %w", err)
	}
	return msgs, nil
}
