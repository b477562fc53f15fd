package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"warbler/internal/models"
)

// authorAssoc is omitted on insert so the author row is never re-saved.
const authorAssoc = "User"

// PostMessage creates a message owned by actor.
func (s *Service) PostMessage(ctx context.Context, actor *models.User, text string) (*models.Message, error) {
	if actor == nil {
		return nil, ErrUnauthenticated
	}

	text = strings.TrimSpace(text)
	switch {
	case text == "":
		return nil, &ValidationError{Field: "text", Msg: "is required"}
	case utf8.RuneCountInString(text) > models.MaxMessageLength:
		return nil, &ValidationError{Field: "text", Msg: fmt.Sprintf("must be at most %d characters", models.MaxMessageLength)}
	}

	msg := &models.Message{Text: text, Timestamp: s.now(), UserID: actor.ID}
	err := s.store.WithTx(ctx, func(tx *gorm.DB) error {
		return tx.Omit(authorAssoc).Create(msg).Error
	})
	if err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}
	msg.User = *actor
	return msg, nil
}

// DeleteMessage hard-deletes a message and its likes. Any authenticated
// actor may delete unless RequireMessageOwner is set.
func (s *Service) DeleteMessage(ctx context.Context, actor *models.User, messageID uint) error {
	if actor == nil {
		return ErrUnauthenticated
	}

	err := s.store.WithTx(ctx, func(tx *gorm.DB) error {
		var msg models.Message
		if err := tx.First(&msg, messageID).Error; err != nil {
			return notFound(err, "message")
		}
		if s.opts.RequireMessageOwner && msg.UserID != actor.ID {
			return ErrForbidden
		}
		if err := tx.Where("message_id = ?", msg.ID).Delete(&models.Like{}).Error; err != nil {
			return fmt.Errorf("delete likes: %w", err)
		}
		if err := tx.Delete(&msg).Error; err != nil {
			return fmt.Errorf("delete message: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.WithFields(logrus.Fields{"message_id": messageID, "actor_id": actor.ID}).Info("Message deleted")
	return nil
}

// GetMessage loads a message with its author.
func (s *Service) GetMessage(ctx context.Context, id uint) (*models.Message, error) {
	var msg models.Message
	if err := s.db(ctx).Preload("User").First(&msg, id).Error; err != nil {
		return nil, notFound(err, "message")
	}
	return &msg, nil
}

// UserMessages lists a user's messages newest first. limit <= 0 means no limit.
func (s *Service) UserMessages(ctx context.Context, userID uint, limit int) ([]models.Message, error) {
	q := s.db(ctx).Preload("User").
		Where("user_id = ?", userID).
		Order("timestamp DESC").Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var msgs []models.Message
	if err := q.Find(&msgs).Error; err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return msgs, nil
}
