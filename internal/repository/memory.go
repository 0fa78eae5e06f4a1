package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Dan9191/finance-tracker/internal/models"
	"github.com/shopspring/decimal"
)

// MemoryRepository keeps users and transactions in process memory. Units of
// work are serialized and rolled back from a snapshot on error.
type MemoryRepository struct {
	txMu sync.Mutex // held for the duration of RunInTx

	mu           sync.RWMutex
	users        map[string]models.User
	transactions map[string]models.Transaction
}

// NewMemoryRepository creates an empty in-memory repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		users:        make(map[string]models.User),
		transactions: make(map[string]models.Transaction),
	}
}

// memoryTx is the view handed to RunInTx callbacks; it shares storage with
// its parent but must not take txMu again.
type memoryTx struct {
	*MemoryRepository
}

func (t memoryTx) RunInTx(ctx context.Context, fn func(repo Repository) error) error {
	return fn(t)
}

// RunInTx serializes fn against other units of work and restores the
// previous state if fn fails
func (r *MemoryRepository) RunInTx(ctx context.Context, fn func(repo Repository) error) error {
	r.txMu.Lock()
	defer r.txMu.Unlock()

	r.mu.RLock()
	users := make(map[string]models.User, len(r.users))
	for k, v := range r.users {
		users[k] = v
	}
	transactions := make(map[string]models.Transaction, len(r.transactions))
	for k, v := range r.transactions {
		transactions[k] = v
	}
	r.mu.RUnlock()

	if err := fn(memoryTx{r}); err != nil {
		r.mu.Lock()
		r.users = users
		r.transactions = transactions
		r.mu.Unlock()
		return err
	}
	return nil
}

// Ping always succeeds
func (r *MemoryRepository) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Close is a no-op
func (r *MemoryRepository) Close() error {
	return nil
}

func (r *MemoryRepository) usernameTaken(username, exceptID string) bool {
	for id, u := range r.users {
		if u.Username == username && id != exceptID {
			return true
		}
	}
	return false
}

// CreateUser stores a new user
func (r *MemoryRepository) CreateUser(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.users[user.ID]; exists || r.usernameTaken(user.Username, "") {
		return fmt.Errorf("failed to create user: %w", models.ErrUsernameTaken)
	}
	stored := *user
	stored.Transactions = nil
	r.users[user.ID] = stored
	return nil
}

// FindUserByID retrieves a user by id
func (r *MemoryRepository) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[id]
	if !ok {
		return nil, models.ErrUserNotFound
	}
	return &user, nil
}

// FindUserByUsername retrieves a user by user name
func (r *MemoryRepository) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, user := range r.users {
		if user.Username == username {
			return &user, nil
		}
	}
	return nil, models.ErrUserNotFound
}

// LockUser is FindUserByID; RunInTx already excludes other writers
func (r *MemoryRepository) LockUser(ctx context.Context, id string) (*models.User, error) {
	return r.FindUserByID(ctx, id)
}

// UpdateUserProfile stores user name, email and phone number
func (r *MemoryRepository) UpdateUserProfile(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.users[user.ID]
	if !ok {
		return fmt.Errorf("failed to update user: %w", models.ErrUserNotFound)
	}
	if r.usernameTaken(user.Username, user.ID) {
		return fmt.Errorf("failed to update user: %w", models.ErrUsernameTaken)
	}
	stored.Username = user.Username
	stored.Email = user.Email
	stored.PhoneNumber = user.PhoneNumber
	stored.UpdatedAt = user.UpdatedAt
	r.users[user.ID] = stored
	return nil
}

// UpdateUserBalance stores a new remaining balance
func (r *MemoryRepository) UpdateUserBalance(ctx context.Context, id string, balance decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.users[id]
	if !ok {
		return fmt.Errorf("failed to update balance: %w", models.ErrUserNotFound)
	}
	stored.RemainingBalance = balance
	stored.UpdatedAt = time.Now().UTC()
	r.users[id] = stored
	return nil
}

// DeleteUser removes a user and its transactions
func (r *MemoryRepository) DeleteUser(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return fmt.Errorf("failed to delete user: %w", models.ErrUserNotFound)
	}
	for txID, tx := range r.transactions {
		if tx.UserID == id {
			delete(r.transactions, txID)
		}
	}
	delete(r.users, id)
	return nil
}

// ListUsersWithEmail returns every user that has an email address
func (r *MemoryRepository) ListUsersWithEmail(ctx context.Context) ([]models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var users []models.User
	for _, user := range r.users {
		if user.Email != "" {
			users = append(users, user)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

// CreateTransaction stores a new transaction
func (r *MemoryRepository) CreateTransaction(ctx context.Context, tx *models.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[tx.UserID]; !ok {
		return fmt.Errorf("failed to create transaction: %w", models.ErrUserNotFound)
	}
	r.transactions[tx.ID] = *tx
	return nil
}

// FindTransactionByID retrieves a transaction by id
func (r *MemoryRepository) FindTransactionByID(ctx context.Context, id string) (*models.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tx, ok := r.transactions[id]
	if !ok {
		return nil, models.ErrTransactionNotFound
	}
	return &tx, nil
}

// ListTransactions returns the transactions matching filter, newest first
func (r *MemoryRepository) ListTransactions(ctx context.Context, filter models.TransactionFilter) ([]models.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	transactions := []models.Transaction{}
	for _, tx := range r.transactions {
		if filter.Matches(&tx) {
			transactions = append(transactions, tx)
		}
	}
	sort.Slice(transactions, func(i, j int) bool {
		a, b := transactions[i], transactions[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.After(b.Date)
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
	return transactions, nil
}

// ListTransactionIDs returns the ids of a user's transactions, newest first
func (r *MemoryRepository) ListTransactionIDs(ctx context.Context, userID string) ([]string, error) {
	transactions, err := r.ListTransactions(ctx, models.TransactionFilter{UserID: userID})
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(transactions))
	for _, tx := range transactions {
		ids = append(ids, tx.ID)
	}
	return ids, nil
}

// UpdateTransaction replaces a stored transaction, keeping its owner
func (r *MemoryRepository) UpdateTransaction(ctx context.Context, tx *models.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.transactions[tx.ID]
	if !ok {
		return fmt.Errorf("failed to update transaction: %w", models.ErrTransactionNotFound)
	}
	updated := *tx
	updated.UserID = stored.UserID
	updated.CreatedAt = stored.CreatedAt
	r.transactions[tx.ID] = updated
	return nil
}

// DeleteTransaction removes a transaction
func (r *MemoryRepository) DeleteTransaction(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.transactions[id]; !ok {
		return fmt.Errorf("failed to delete transaction: %w", models.ErrTransactionNotFound)
	}
	delete(r.transactions, id)
	return nil
}
