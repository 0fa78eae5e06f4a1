package repository

import (
	"context"

	"github.com/Dan9191/finance-tracker/internal/models"
	"github.com/shopspring/decimal"
)

// Repository provides persistence for users and their transactions.
//
// Lookups return models.ErrUserNotFound or models.ErrTransactionNotFound
// (wrapped) when nothing matches.
type Repository interface {
	CreateUser(ctx context.Context, user *models.User) error
	FindUserByID(ctx context.Context, id string) (*models.User, error)
	FindUserByUsername(ctx context.Context, username string) (*models.User, error)
	// LockUser reads a user and holds it until the surrounding RunInTx ends.
	LockUser(ctx context.Context, id string) (*models.User, error)
	UpdateUserProfile(ctx context.Context, user *models.User) error
	UpdateUserBalance(ctx context.Context, id string, balance decimal.Decimal) error
	// DeleteUser removes the user together with all of its transactions.
	DeleteUser(ctx context.Context, id string) error
	ListUsersWithEmail(ctx context.Context) ([]models.User, error)

	CreateTransaction(ctx context.Context, tx *models.Transaction) error
	FindTransactionByID(ctx context.Context, id string) (*models.Transaction, error)
	// ListTransactions returns matches sorted by date, newest first.
	ListTransactions(ctx context.Context, filter models.TransactionFilter) ([]models.Transaction, error)
	ListTransactionIDs(ctx context.Context, userID string) ([]string, error)
	UpdateTransaction(ctx context.Context, tx *models.Transaction) error
	DeleteTransaction(ctx context.Context, id string) error

	// RunInTx runs fn as one atomic unit of work. fn must use the Repository
	// it is handed; returning an error rolls everything back.
	RunInTx(ctx context.Context, fn func(repo Repository) error) error
	Ping(ctx context.Context) error
	Close() error
}
