package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/Dan9191/finance-tracker/internal/auth"
	"github.com/Dan9191/finance-tracker/internal/config"
	"github.com/Dan9191/finance-tracker/internal/models"
	"github.com/Dan9191/finance-tracker/internal/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// RateProvider quotes a currency in roubles per unit
type RateProvider interface {
	Rate(ctx context.Context, currency string) (decimal.Decimal, error)
}

// Service handles business logic
type Service struct {
	repo   repository.Repository
	rates  RateProvider
	log    *logrus.Logger
	config *config.Config
}

// NewService initializes a new service. rates may be nil, which disables
// balance conversion.
func NewService(repo repository.Repository, rates RateProvider, log *logrus.Logger, cfg *config.Config) *Service {
	return &Service{repo: repo, rates: rates, log: log, config: cfg}
}

// Ping checks that the store is reachable
func (s *Service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

// parseID normalizes a UUID path parameter or returns invalid
func parseID(raw string, invalid error) (string, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("%w: %q", invalid, raw)
	}
	return id.String(), nil
}

// authorize rejects access to another user's data when the request carries
// an authenticated identity
func (s *Service) authorize(ctx context.Context, ownerID string) error {
	if userID, ok := auth.UserIDFromContext(ctx); ok && userID != ownerID {
		return models.ErrForbidden
	}
	return nil
}
