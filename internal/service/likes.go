package service

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"warbler/internal/models"
)

// ToggleLike flips the actor's like on a message and reports the new state.
// Liking one's own message fails with ErrSelfLike and changes nothing.
func (s *Service) ToggleLike(ctx context.Context, actor *models.User, messageID uint) (bool, error) {
	if actor == nil {
		return false, ErrUnauthenticated
	}

	var liked bool
	err := s.store.WithTx(ctx, func(tx *gorm.DB) error {
		var msg models.Message
		if err := tx.First(&msg, messageID).Error; err != nil {
			return notFound(err, "message")
		}
		if msg.UserID == actor.ID {
			return ErrSelfLike
		}

		res := tx.Where("user_id = ? AND message_id = ?", actor.ID, messageID).Delete(&models.Like{})
		if res.Error != nil {
			return fmt.Errorf("delete like: %w", res.Error)
		}
		if res.RowsAffected > 0 {
			liked = false
			return nil
		}

		err := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Omit(clause.Associations).
			Create(&models.Like{UserID: actor.ID, MessageID: messageID}).Error
		if err != nil {
			return fmt.Errorf("insert like: %w", err)
		}
		liked = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return liked, nil
}

// LikedMessages lists the messages userID liked, newest first.
func (s *Service) LikedMessages(ctx context.Context, userID uint) ([]models.Message, error) {
	var msgs []models.Message
	err := s.db(ctx).
		Preload("User").
		Joins("JOIN likes ON likes.message_id = messages.id").
		Where("likes.user_id = ?", userID).
		Order("messages.timestamp DESC").
		Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("list likes: %w", err)
	}
	return msgs, nil
}

// LikedMessageIDs returns the set of message ids userID liked.
func (s *Service) LikedMessageIDs(ctx context.Context, userID uint) (map[uint]bool, error) {
	var ids []uint
	err := s.db(ctx).Model(&models.Like{}).
		Where("user_id = ?", userID).
		Pluck("message_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("list like ids: %w", err)
	}
	set := make(map[uint]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}

func (s *Service) HasLiked(ctx context.Context, userID, messageID uint) (bool, error) {
	var n int64
	err := s.db(ctx).Model(&models.Like{}).
		Where("user_id = ? AND message_id = ?", userID, messageID).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("count like: %w", err)
	}
	return n > 0, nil
}
