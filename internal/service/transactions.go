package service

import (
	"context"
	"strings"
	"time"

	"github.com/Dan9191/finance-tracker/internal/models"
	"github.com/Dan9191/finance-tracker/internal/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// reconcile returns the balance after the effect of before is reversed and
// the effect of after applied. A nil before is a new entry, a nil after a
// removal. A negative result is rejected.
func reconcile(balance decimal.Decimal, before, after *models.Transaction) (decimal.Decimal, error) {
	if before != nil {
		balance = balance.Sub(before.Effect())
	}
	if after != nil {
		balance = balance.Add(after.Effect())
	}
	if balance.IsNegative() {
		return decimal.Zero, models.ErrInsufficientBalance
	}
	return balance, nil
}

func normalizeAmount(amount decimal.Decimal) (decimal.Decimal, error) {
	amount = amount.Round(2)
	if !amount.IsPositive() {
		return decimal.Zero, models.NewValidationError("amount must be greater than zero")
	}
	return amount, nil
}

func (s *Service) txLog(tx *models.Transaction) *logrus.Entry {
	return s.log.WithFields(logrus.Fields{
		"user_id":        tx.UserID,
		"transaction_id": tx.ID,
		"type":           tx.Type,
		"amount":         tx.Amount.String(),
	})
}

// lockTransaction locks the owner of transaction id, then reads the
// transaction again so it cannot be stale relative to that owner's writers.
func (s *Service) lockTransaction(ctx context.Context, repo repository.Repository, id string) (*models.Transaction, *models.User, error) {
	tx, err := repo.FindTransactionByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if err := s.authorize(ctx, tx.UserID); err != nil {
		return nil, nil, err
	}
	user, err := repo.LockUser(ctx, tx.UserID)
	if err != nil {
		return nil, nil, err
	}
	if tx, err = repo.FindTransactionByID(ctx, id); err != nil {
		return nil, nil, err
	}
	return tx, user, nil
}

// AddTransaction records a transaction and applies it to the owner's balance.
// An expense larger than the current balance is rejected.
func (s *Service) AddTransaction(ctx context.Context, rawUserID string, in models.TransactionInput) (*models.Transaction, decimal.Decimal, error) {
	userID, err := parseID(rawUserID, models.ErrInvalidUserID)
	if err != nil {
		return nil, decimal.Zero, err
	}
	txType, err := models.ParseTransactionType(in.Type)
	if err != nil {
		return nil, decimal.Zero, err
	}
	amount, err := normalizeAmount(in.Amount)
	if err != nil {
		return nil, decimal.Zero, err
	}
	if err := s.authorize(ctx, userID); err != nil {
		return nil, decimal.Zero, err
	}

	now := time.Now().UTC()
	date := in.Date
	if date.IsZero() {
		date = now
	}
	tx := &models.Transaction{
		ID:          uuid.NewString(),
		UserID:      userID,
		Type:        txType,
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Amount:      amount,
		Category:    strings.TrimSpace(in.Category),
		Date:        date.UTC(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	var balance decimal.Decimal
	err = s.repo.RunInTx(ctx, func(repo repository.Repository) error {
		user, err := repo.LockUser(ctx, userID)
		if err != nil {
			return err
		}
		if balance, err = reconcile(user.RemainingBalance, nil, tx); err != nil {
			return err
		}
		if err := repo.CreateTransaction(ctx, tx); err != nil {
			return err
		}
		return repo.UpdateUserBalance(ctx, userID, balance)
	})
	if err != nil {
		return nil, decimal.Zero, err
	}

	s.txLog(tx).Infof("Transaction added, balance %s", balance)
	return tx, balance, nil
}

// ListTransactions returns a user's filtered transactions and per-type totals
func (s *Service) ListTransactions(ctx context.Context, rawUserID string, filter models.TransactionFilter) (*models.TransactionList, error) {
	userID, err := parseID(rawUserID, models.ErrInvalidUserID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, userID); err != nil {
		return nil, err
	}
	user, err := s.repo.FindUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	filter.UserID = userID
	transactions, err := s.repo.ListTransactions(ctx, filter)
	if err != nil {
		return nil, err
	}

	return &models.TransactionList{
		Summary:      Summarize(transactions, user.RemainingBalance),
		Transactions: transactions,
	}, nil
}

// GetTransaction returns a single transaction
func (s *Service) GetTransaction(ctx context.Context, rawID string) (*models.Transaction, error) {
	id, err := parseID(rawID, models.ErrInvalidTransactionID)
	if err != nil {
		return nil, err
	}
	tx, err := s.repo.FindTransactionByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, tx.UserID); err != nil {
		return nil, err
	}
	return tx, nil
}

// UpdateTransaction edits a transaction. The old effect is reversed from a
// snapshot taken before any field changes, then the new effect is applied.
func (s *Service) UpdateTransaction(ctx context.Context, rawID string, patch models.TransactionPatch) (*models.Transaction, decimal.Decimal, error) {
	id, err := parseID(rawID, models.ErrInvalidTransactionID)
	if err != nil {
		return nil, decimal.Zero, err
	}
	var newType models.TransactionType
	if strings.TrimSpace(patch.Type) != "" {
		if newType, err = models.ParseTransactionType(patch.Type); err != nil {
			return nil, decimal.Zero, err
		}
	}
	var newAmount *decimal.Decimal
	if patch.Amount != nil {
		amount, err := normalizeAmount(*patch.Amount)
		if err != nil {
			return nil, decimal.Zero, err
		}
		newAmount = &amount
	}

	var (
		tx      *models.Transaction
		balance decimal.Decimal
	)
	err = s.repo.RunInTx(ctx, func(repo repository.Repository) error {
		current, user, err := s.lockTransaction(ctx, repo, id)
		if err != nil {
			return err
		}

		before := *current
		tx = current
		if newType != "" {
			tx.Type = newType
		}
		if title := strings.TrimSpace(patch.Title); title != "" {
			tx.Title = title
		}
		if newAmount != nil {
			tx.Amount = *newAmount
		}
		if category := strings.TrimSpace(patch.Category); category != "" {
			tx.Category = category
		}
		if description := strings.TrimSpace(patch.Description); description != "" {
			tx.Description = description
		}
		if !patch.Date.IsZero() {
			tx.Date = patch.Date.UTC()
		}
		tx.UpdatedAt = time.Now().UTC()

		if balance, err = reconcile(user.RemainingBalance, &before, tx); err != nil {
			return err
		}
		if err := repo.UpdateTransaction(ctx, tx); err != nil {
			return err
		}
		return repo.UpdateUserBalance(ctx, user.ID, balance)
	})
	if err != nil {
		return nil, decimal.Zero, err
	}

	s.txLog(tx).Infof("Transaction updated, balance %s", balance)
	return tx, balance, nil
}

// DeleteTransaction reverses a transaction's effect and removes it
func (s *Service) DeleteTransaction(ctx context.Context, rawID string) (decimal.Decimal, error) {
	id, err := parseID(rawID, models.ErrInvalidTransactionID)
	if err != nil {
		return decimal.Zero, err
	}

	var (
		tx      *models.Transaction
		balance decimal.Decimal
	)
	err = s.repo.RunInTx(ctx, func(repo repository.Repository) error {
		current, user, err := s.lockTransaction(ctx, repo, id)
		if err != nil {
			return err
		}
		tx = current
		if balance, err = reconcile(user.RemainingBalance, tx, nil); err != nil {
			return err
		}
		if err := repo.DeleteTransaction(ctx, id); err != nil {
			return err
		}
		return repo.UpdateUserBalance(ctx, user.ID, balance)
	})
	if err != nil {
		return decimal.Zero, err
	}

	s.txLog(tx).Infof("Transaction deleted, balance %s", balance)
	return balance, nil
}
