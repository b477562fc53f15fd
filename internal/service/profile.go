package service

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"warbler/internal/models"
)

type ProfileInput struct {
	Username       string
	Email          string
	ImageURL       string
	HeaderImageURL string
	Bio            string
	Location       string
}

// EditProfile re-authenticates actor against the stored (pre-edit) password
// and then writes the new profile fields. On any failure nothing is written
// and actor is left untouched.
func (s *Service) EditProfile(ctx context.Context, actor *models.User, in ProfileInput, confirmPassword string) (*models.User, error) {
	if actor == nil {
		return nil, ErrUnauthenticated
	}

	var updated models.User
	err := s.store.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.First(&updated, actor.ID).Error; err != nil {
			return notFound(err, "user")
		}
		if !CheckPasswordHash(confirmPassword, updated.Password) {
			return ErrReauthentication
		}

		updated.Username = in.Username
		updated.Email = in.Email
		updated.ImageURL = orDefault(in.ImageURL, models.DefaultImageURL)
		updated.HeaderImageURL = orDefault(in.HeaderImageURL, models.DefaultHeaderImageURL)
		updated.Bio = in.Bio
		updated.Location = in.Location

		return tx.Save(&updated).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateCredential
		}
		return nil, err
	}

	*actor = updated
	return actor, nil
}

// ChangePassword replaces actor's password after verifying the current one.
func (s *Service) ChangePassword(ctx context.Context, actor *models.User, current, newPassword, confirmPassword string) error {
	if actor == nil {
		return ErrUnauthenticated
	}
	if newPassword != confirmPassword {
		return ErrPasswordMismatch
	}

	hash, err := HashPassword(newPassword, s.opts.BcryptCost)
	if err != nil {
		return err
	}

	err = s.store.WithTx(ctx, func(tx *gorm.DB) error {
		var stored models.User
		if err := tx.First(&stored, actor.ID).Error; err != nil {
			return notFound(err, "user")
		}
		if !CheckPasswordHash(current, stored.Password) {
			return ErrReauthentication
		}
		if err := tx.Model(&stored).Update("password", hash).Error; err != nil {
			return fmt.Errorf("update password: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	actor.Password = hash
	return nil
}
