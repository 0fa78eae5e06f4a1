package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/Dan9191/finance-tracker/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// forEachRepository runs fn against every backend that works without external services.
func forEachRepository(t *testing.T, fn func(t *testing.T, repo Repository)) {
	t.Run("memory", func(t *testing.T) {
		fn(t, NewMemoryRepository())
	})
	t.Run("sqlite", func(t *testing.T) {
		repo, err := NewSQLiteRepository(context.Background(), filepath.Join(t.TempDir(), "finance.db"))
		if err != nil {
			t.Fatalf("open sqlite: %v", err)
		}
		t.Cleanup(func() { repo.Close() })
		fn(t, repo)
	})
}

func newUser(name string) *models.User {
	now := time.Now().UTC().Truncate(time.Second)
	return &models.User{
		ID:               uuid.NewString(),
		Username:         name,
		PasswordHash:     "hash",
		Email:            name + "@example.com",
		RemainingBalance: decimal.Zero,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func newTransaction(userID string, typ models.TransactionType, amount int64, category string, date time.Time) *models.Transaction {
	now := time.Now().UTC().Truncate(time.Second)
	return &models.Transaction{
		ID:        uuid.NewString(),
		UserID:    userID,
		Type:      typ,
		Title:     string(typ) + " " + category,
		Amount:    decimal.NewFromInt(amount),
		Category:  category,
		Date:      date,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestUserLifecycle(t *testing.T) {
	forEachRepository(t, func(t *testing.T, repo Repository) {
		ctx := context.Background()
		user := newUser("alice")
		if err := repo.CreateUser(ctx, user); err != nil {
			t.Fatalf("CreateUser: %v", err)
		}

		dup := newUser("alice")
		if err := repo.CreateUser(ctx, dup); !errors.Is(err, models.ErrUsernameTaken) {
			t.Fatalf("duplicate user name: got %v, want ErrUsernameTaken", err)
		}

		got, err := repo.FindUserByUsername(ctx, "alice")
		if err != nil {
			t.Fatalf("FindUserByUsername: %v", err)
		}
		if got.ID != user.ID || got.PasswordHash != "hash" || !got.RemainingBalance.IsZero() {
			t.Fatalf("unexpected user %+v", got)
		}

		if err := repo.UpdateUserBalance(ctx, user.ID, decimal.RequireFromString("12.50")); err != nil {
			t.Fatalf("UpdateUserBalance: %v", err)
		}
		got, err = repo.LockUser(ctx, user.ID)
		if err != nil {
			t.Fatalf("LockUser: %v", err)
		}
		if !got.RemainingBalance.Equal(decimal.RequireFromString("12.5")) {
			t.Fatalf("balance = %s, want 12.5", got.RemainingBalance)
		}

		got.Username = "alice2"
		got.PhoneNumber = "5551234"
		if err := repo.UpdateUserProfile(ctx, got); err != nil {
			t.Fatalf("UpdateUserProfile: %v", err)
		}
		got, _ = repo.FindUserByID(ctx, user.ID)
		if got.Username != "alice2" || got.PhoneNumber != "5551234" {
			t.Fatalf("profile not stored: %+v", got)
		}

		bob := newUser("bob")
		bob.Email = ""
		if err := repo.CreateUser(ctx, bob); err != nil {
			t.Fatalf("CreateUser bob: %v", err)
		}
		got.Username = "bob"
		if err := repo.UpdateUserProfile(ctx, got); !errors.Is(err, models.ErrUsernameTaken) {
			t.Fatalf("rename onto taken name: got %v", err)
		}

		withEmail, err := repo.ListUsersWithEmail(ctx)
		if err != nil {
			t.Fatalf("ListUsersWithEmail: %v", err)
		}
		if len(withEmail) != 1 || withEmail[0].ID != user.ID {
			t.Fatalf("ListUsersWithEmail = %+v", withEmail)
		}

		if _, err := repo.FindUserByID(ctx, uuid.NewString()); !errors.Is(err, models.ErrUserNotFound) {
			t.Fatalf("missing user: got %v", err)
		}
		if err := repo.UpdateUserBalance(ctx, uuid.NewString(), decimal.Zero); !errors.Is(err, models.ErrUserNotFound) {
			t.Fatalf("balance of missing user: got %v", err)
		}
	})
}

func TestTransactionsFilterAndOrder(t *testing.T) {
	forEachRepository(t, func(t *testing.T, repo Repository) {
		ctx := context.Background()
		user := newUser("carol")
		if err := repo.CreateUser(ctx, user); err != nil {
			t.Fatalf("CreateUser: %v", err)
		}

		jan := time.Date(2024, time.January, 10, 0, 0, 0, 0, time.UTC)
		mar := time.Date(2024, time.March, 5, 12, 0, 0, 0, time.UTC)
		dec := time.Date(2023, time.December, 31, 23, 0, 0, 0, time.UTC)
		entries := []*models.Transaction{
			newTransaction(user.ID, models.TransactionTypeIncome, 500, "Salary", jan),
			newTransaction(user.ID, models.TransactionTypeExpense, 40, "Food", mar),
			newTransaction(user.ID, models.TransactionTypeExpense, 15, "Food", dec),
		}
		for _, tx := range entries {
			if err := repo.CreateTransaction(ctx, tx); err != nil {
				t.Fatalf("CreateTransaction: %v", err)
			}
		}

		all, err := repo.ListTransactions(ctx, models.TransactionFilter{UserID: user.ID})
		if err != nil {
			t.Fatalf("ListTransactions: %v", err)
		}
		if len(all) != 3 || all[0].ID != entries[1].ID || all[2].ID != entries[2].ID {
			t.Fatalf("expected newest first, got %v", ids(all))
		}
		if !all[0].Amount.Equal(decimal.NewFromInt(40)) || !all[0].Date.Equal(mar) {
			t.Fatalf("round trip mismatch: %+v", all[0])
		}

		food, _ := repo.ListTransactions(ctx, models.TransactionFilter{UserID: user.ID, Category: "Food", Type: models.TransactionTypeExpense})
		if len(food) != 2 {
			t.Fatalf("category filter returned %d", len(food))
		}

		year, _ := repo.ListTransactions(ctx, models.TransactionFilter{
			UserID: user.ID,
			From:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			Until:  time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		})
		if len(year) != 2 {
			t.Fatalf("date range returned %v", ids(year))
		}

		txIDs, err := repo.ListTransactionIDs(ctx, user.ID)
		if err != nil || len(txIDs) != 3 {
			t.Fatalf("ListTransactionIDs = %v, %v", txIDs, err)
		}
	})
}

func TestTransactionUpdateDeleteAndCascade(t *testing.T) {
	forEachRepository(t, func(t *testing.T, repo Repository) {
		ctx := context.Background()
		user := newUser("dave")
		repo.CreateUser(ctx, user)
		tx := newTransaction(user.ID, models.TransactionTypeExpense, 30, "", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))
		if err := repo.CreateTransaction(ctx, tx); err != nil {
			t.Fatalf("CreateTransaction: %v", err)
		}

		tx.Amount = decimal.NewFromInt(50)
		tx.Type = models.TransactionTypeIncome
		tx.Title = "refund"
		if err := repo.UpdateTransaction(ctx, tx); err != nil {
			t.Fatalf("UpdateTransaction: %v", err)
		}
		got, err := repo.FindTransactionByID(ctx, tx.ID)
		if err != nil {
			t.Fatalf("FindTransactionByID: %v", err)
		}
		if got.Type != models.TransactionTypeIncome || got.Title != "refund" || !got.Amount.Equal(decimal.NewFromInt(50)) {
			t.Fatalf("update not stored: %+v", got)
		}

		if err := repo.DeleteTransaction(ctx, tx.ID); err != nil {
			t.Fatalf("DeleteTransaction: %v", err)
		}
		if err := repo.DeleteTransaction(ctx, tx.ID); !errors.Is(err, models.ErrTransactionNotFound) {
			t.Fatalf("second delete: got %v", err)
		}

		other := newTransaction(user.ID, models.TransactionTypeIncome, 10, "Gift", time.Now().UTC())
		repo.CreateTransaction(ctx, other)
		if err := repo.DeleteUser(ctx, user.ID); err != nil {
			t.Fatalf("DeleteUser: %v", err)
		}
		if _, err := repo.FindTransactionByID(ctx, other.ID); !errors.Is(err, models.ErrTransactionNotFound) {
			t.Fatalf("transaction survived user deletion: %v", err)
		}
		if err := repo.DeleteUser(ctx, user.ID); !errors.Is(err, models.ErrUserNotFound) {
			t.Fatalf("second user delete: got %v", err)
		}
	})
}

func TestRunInTxRollsBack(t *testing.T) {
	forEachRepository(t, func(t *testing.T, repo Repository) {
		ctx := context.Background()
		user := newUser("erin")
		repo.CreateUser(ctx, user)

		boom := errors.New("boom")
		err := repo.RunInTx(ctx, func(tx Repository) error {
			if err := tx.CreateTransaction(ctx, newTransaction(user.ID, models.TransactionTypeIncome, 99, "", time.Now().UTC())); err != nil {
				return err
			}
			if err := tx.UpdateUserBalance(ctx, user.ID, decimal.NewFromInt(99)); err != nil {
				return err
			}
			return boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("RunInTx error = %v", err)
		}

		got, _ := repo.FindUserByID(ctx, user.ID)
		if !got.RemainingBalance.IsZero() {
			t.Fatalf("balance kept after rollback: %s", got.RemainingBalance)
		}
		list, _ := repo.ListTransactions(ctx, models.TransactionFilter{UserID: user.ID})
		if len(list) != 0 {
			t.Fatalf("transaction kept after rollback: %v", ids(list))
		}
	})
}

func TestRebind(t *testing.T) {
	got := dialectPostgres.rebind("SELECT 1 WHERE a = ? AND b = ?")
	if got != "SELECT 1 WHERE a = $1 AND b = $2" {
		t.Fatalf("postgres rebind = %q", got)
	}
	if got := dialectSQLite.rebind("a = ?"); got != "a = ?" {
		t.Fatalf("sqlite rebind = %q", got)
	}
	if dialectPostgres.lockClause() == "" || dialectSQLite.lockClause() != "" {
		t.Fatalf("unexpected lock clauses")
	}
}

func ids(list []models.Transaction) []string {
	out := make([]string, 0, len(list))
	for _, tx := range list {
		out = append(out, tx.ID)
	}
	return out
}
