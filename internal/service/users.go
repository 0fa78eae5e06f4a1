package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Dan9191/finance-tracker/internal/auth"
	"github.com/Dan9191/finance-tracker/internal/models"
	"github.com/Dan9191/finance-tracker/internal/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

// Register creates a new user with hashed password and zero balance
func (s *Service) Register(ctx context.Context, in models.SignupInput) (*models.User, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" {
		return nil, models.NewValidationError("user_name is required")
	}
	if in.Password == "" {
		return nil, models.NewValidationError("password is required")
	}

	// Hash password
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &models.User{
		ID:               uuid.NewString(),
		Username:         username,
		PasswordHash:     string(hashedPassword),
		Email:            strings.TrimSpace(in.Email),
		PhoneNumber:      strings.TrimSpace(in.PhoneNumber),
		RemainingBalance: decimal.Zero,
		Transactions:     []string{},
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	err = s.repo.RunInTx(ctx, func(repo repository.Repository) error {
		return repo.CreateUser(ctx, user)
	})
	if err != nil {
		return nil, err
	}

	s.log.WithField("user_id", user.ID).Infof("User registered: %s", user.Username)
	return user, nil
}

// Login authenticates a user and returns its public projection with a JWT
func (s *Service) Login(ctx context.Context, username, password string) (*models.PublicUser, string, error) {
	user, err := s.repo.FindUserByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, models.ErrUserNotFound) {
		return nil, "", models.ErrInvalidCredentials
	}
	if err != nil {
		return nil, "", err
	}

	// Verify password
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", models.ErrInvalidCredentials
	}

	token, err := auth.IssueToken(s.config.JWTSecret, user.ID, s.config.TokenTTL)
	if err != nil {
		return nil, "", err
	}

	s.log.WithField("user_id", user.ID).Infof("User logged in: %s", user.Username)
	public := user.Public()
	return &public, token, nil
}

// GetUser returns a user together with its transaction ids
func (s *Service) GetUser(ctx context.Context, rawID string) (*models.User, error) {
	id, err := parseID(rawID, models.ErrInvalidUserID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, id); err != nil {
		return nil, err
	}
	user, err := s.repo.FindUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.Transactions, err = s.repo.ListTransactionIDs(ctx, id); err != nil {
		return nil, err
	}
	return user, nil
}

// UpdateUser applies a profile patch
func (s *Service) UpdateUser(ctx context.Context, rawID string, patch models.UserPatch) (*models.User, error) {
	id, err := parseID(rawID, models.ErrInvalidUserID)
	if err != nil {
		return nil, err
	}
	if patch.Empty() {
		return nil, models.NewValidationError("Please provide data to update")
	}
	if patch.Username != nil && strings.TrimSpace(*patch.Username) == "" {
		return nil, models.NewValidationError("user_name cannot be empty")
	}
	if err := s.authorize(ctx, id); err != nil {
		return nil, err
	}

	var user *models.User
	err = s.repo.RunInTx(ctx, func(repo repository.Repository) error {
		if user, err = repo.LockUser(ctx, id); err != nil {
			return err
		}
		if patch.Username != nil {
			user.Username = strings.TrimSpace(*patch.Username)
		}
		if patch.Email != nil {
			user.Email = strings.TrimSpace(*patch.Email)
		}
		if patch.PhoneNumber != nil {
			user.PhoneNumber = strings.TrimSpace(*patch.PhoneNumber)
		}
		user.UpdatedAt = time.Now().UTC()
		if err := repo.UpdateUserProfile(ctx, user); err != nil {
			return err
		}
		user.Transactions, err = repo.ListTransactionIDs(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.WithField("user_id", id).Info("User updated")
	return user, nil
}

// DeleteUser removes a user and all of its transactions
func (s *Service) DeleteUser(ctx context.Context, rawID string) error {
	id, err := parseID(rawID, models.ErrInvalidUserID)
	if err != nil {
		return err
	}
	if err := s.authorize(ctx, id); err != nil {
		return err
	}
	err = s.repo.RunInTx(ctx, func(repo repository.Repository) error {
		if _, err := repo.LockUser(ctx, id); err != nil {
			return err
		}
		return repo.DeleteUser(ctx, id)
	})
	if err != nil {
		return err
	}

	s.log.WithField("user_id", id).Info("User deleted")
	return nil
}
