package service

import (
	"context"
	"time"

	"github.com/Dan9191/finance-tracker/internal/models"
	"github.com/sirupsen/logrus"
)

// StatementSender delivers a monthly statement to its user
type StatementSender interface {
	SendStatement(ctx context.Context, statement models.Statement) error
}

// previousMonth returns the calendar month before now, as [start, end) in UTC
func previousMonth(now time.Time) (time.Time, time.Time) {
	now = now.UTC()
	end := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return end.AddDate(0, -1, 0), end
}

// Statements builds last month's statement for every user with an email address
func (s *Service) Statements(ctx context.Context, now time.Time) ([]models.Statement, error) {
	users, err := s.repo.ListUsersWithEmail(ctx)
	if err != nil {
		return nil, err
	}

	start, end := previousMonth(now)
	statements := make([]models.Statement, 0, len(users))
	for _, user := range users {
		transactions, err := s.repo.ListTransactions(ctx, models.TransactionFilter{UserID: user.ID, From: start, Until: end})
		if err != nil {
			return nil, err
		}
		summary := Summarize(transactions, user.RemainingBalance)
		statements = append(statements, models.Statement{
			UserID:         user.ID,
			Username:       user.Username,
			Email:          user.Email,
			PeriodStart:    start,
			PeriodEnd:      end,
			Income:         summary.TotalIncome,
			Expense:        summary.TotalExpense,
			Count:          len(transactions),
			ClosingBalance: user.RemainingBalance,
		})
	}
	return statements, nil
}

// SendStatements builds and delivers last month's statements. A failed
// delivery is logged and does not stop the others; the number of statements
// sent is returned.
func (s *Service) SendStatements(ctx context.Context, now time.Time, sender StatementSender) (int, error) {
	statements, err := s.Statements(ctx, now)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, st := range statements {
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		if err := sender.SendStatement(ctx, st); err != nil {
			s.log.WithFields(logrus.Fields{"user_id": st.UserID, "error": err}).Error("Failed to send statement")
			continue
		}
		sent++
	}
	s.log.Infof("Monthly statements sent: %d of %d", sent, len(statements))
	return sent, nil
}
