package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"warbler/internal/models"
)

type SignupInput struct {
	Username string
	Password string
	Email    string
	ImageURL string
}

// Signup hashes the password and creates the user in its own transaction.
// A taken username or email yields ErrDuplicateCredential and nothing is
// persisted.
func (s *Service) Signup(ctx context.Context, in SignupInput) (*models.User, error) {
	hash, err := HashPassword(in.Password, s.opts.BcryptCost)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:       in.Username,
		Email:          in.Email,
		Password:       hash,
		ImageURL:       orDefault(in.ImageURL, models.DefaultImageURL),
		HeaderImageURL: models.DefaultHeaderImageURL,
	}

	err = s.store.WithTx(ctx, func(tx *gorm.DB) error {
		return tx.Create(user).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateCredential
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.log.WithFields(logrus.Fields{"user_id": user.ID, "username": user.Username}).Info("User registered successfully")
	return user, nil
}

// Authenticate returns the user when username and password match. An unknown
// username and a wrong password both return (nil, nil).
func (s *Service) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	var user models.User
	err := s.db(ctx).Where("username = ?", username).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			burnHash(password)
			return nil, nil
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	if !CheckPasswordHash(password, user.Password) {
		return nil, nil
	}
	return &user, nil
}
