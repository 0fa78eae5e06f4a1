package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Dan9191/finance-tracker/internal/models"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

// SQLRepository implements Repository on top of database/sql
type SQLRepository struct {
	db      *sql.DB
	q       queryer
	dialect dialect
}

// NewPostgresRepository connects to Postgres and applies migrations
func NewPostgresRepository(ctx context.Context, dsn string) (*SQLRepository, error) {
	db, err := sql.Open(dialectPostgres.driverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if err := RunMigrations(dialectPostgres, dsn); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLRepository{db: db, q: db, dialect: dialectPostgres}, nil
}

// NewSQLiteRepository opens (or creates) a SQLite database file and applies migrations
func NewSQLiteRepository(ctx context.Context, path string) (*SQLRepository, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	dsn := path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_txlock=immediate"

	db, err := sql.Open(dialectSQLite.driverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer at a time keeps read-modify-write of balances serialized.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := RunMigrations(dialectSQLite, dsn); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLRepository{db: db, q: db, dialect: dialectSQLite}, nil
}

// Close releases the connection pool
func (r *SQLRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks database connectivity
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// RunInTx runs fn inside a database transaction
func (r *SQLRepository) RunInTx(ctx context.Context, fn func(repo Repository) error) error {
	if _, nested := r.q.(*sql.Tx); nested {
		return fn(r)
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(&SQLRepository{db: r.db, q: tx, dialect: r.dialect}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

const userColumns = `id, user_name, password_hash, email, phone_number, remaining_balance, created_at, updated_at`

func scanUser(row rowScanner) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(&user.ID, &user.Username, &user.PasswordHash, &user.Email, &user.PhoneNumber,
		&user.RemainingBalance, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}
	user.CreatedAt = user.CreatedAt.UTC()
	user.UpdatedAt = user.UpdatedAt.UTC()
	return user, nil
}

// CreateUser creates a new user in the database
func (r *SQLRepository) CreateUser(ctx context.Context, user *models.User) error {
	query := r.dialect.rebind(`
		INSERT INTO users (` + userColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := r.q.ExecContext(ctx, query, user.ID, user.Username, user.PasswordHash, user.Email,
		user.PhoneNumber, user.RemainingBalance, user.CreatedAt.UTC(), user.UpdatedAt.UTC())
	if isUniqueViolation(err) {
		return fmt.Errorf("failed to create user: %w", models.ErrUsernameTaken)
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *SQLRepository) findUser(ctx context.Context, where string, arg any, lock bool) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + where
	if lock {
		query += r.dialect.lockClause()
	}
	user, err := scanUser(r.q.QueryRowContext(ctx, r.dialect.rebind(query), arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

// FindUserByID retrieves a user by id
func (r *SQLRepository) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	return r.findUser(ctx, "id = ?", id, false)
}

// FindUserByUsername retrieves a user by user name
func (r *SQLRepository) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.findUser(ctx, "user_name = ?", username, false)
}

// LockUser retrieves a user and locks its row for the rest of the transaction
func (r *SQLRepository) LockUser(ctx context.Context, id string) (*models.User, error) {
	return r.findUser(ctx, "id = ?", id, true)
}

func (r *SQLRepository) execAffectingOne(ctx context.Context, notFound error, query string, args ...any) error {
	res, err := r.q.ExecContext(ctx, r.dialect.rebind(query), args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

// UpdateUserProfile stores user name, email and phone number
func (r *SQLRepository) UpdateUserProfile(ctx context.Context, user *models.User) error {
	err := r.execAffectingOne(ctx, models.ErrUserNotFound, `
		UPDATE users SET user_name = ?, email = ?, phone_number = ?, updated_at = ?
		WHERE id = ?`,
		user.Username, user.Email, user.PhoneNumber, user.UpdatedAt.UTC(), user.ID)
	if isUniqueViolation(err) {
		return fmt.Errorf("failed to update user: %w", models.ErrUsernameTaken)
	}
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

// UpdateUserBalance stores a new remaining balance
func (r *SQLRepository) UpdateUserBalance(ctx context.Context, id string, balance decimal.Decimal) error {
	err := r.execAffectingOne(ctx, models.ErrUserNotFound, `
		UPDATE users SET remaining_balance = ?, updated_at = ? WHERE id = ?`,
		balance, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update balance: %w", err)
	}
	return nil
}

// DeleteUser removes a user and its transactions
func (r *SQLRepository) DeleteUser(ctx context.Context, id string) error {
	return r.RunInTx(ctx, func(repo Repository) error {
		tr := repo.(*SQLRepository)
		if _, err := tr.q.ExecContext(ctx, tr.dialect.rebind(`DELETE FROM transactions WHERE user_id = ?`), id); err != nil {
			return fmt.Errorf("failed to delete user transactions: %w", err)
		}
		if err := tr.execAffectingOne(ctx, models.ErrUserNotFound, `DELETE FROM users WHERE id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete user: %w", err)
		}
		return nil
	})
}

// ListUsersWithEmail returns every user that has an email address
func (r *SQLRepository) ListUsersWithEmail(ctx context.Context) ([]models.User, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+userColumns+` FROM users WHERE email <> '' ORDER BY user_name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

const transactionColumns = `id, user_id, type, title, description, amount, category, date, created_at, updated_at`

func scanTransaction(row rowScanner) (*models.Transaction, error) {
	tx := &models.Transaction{}
	var txType string
	err := row.Scan(&tx.ID, &tx.UserID, &txType, &tx.Title, &tx.Description, &tx.Amount,
		&tx.Category, &tx.Date, &tx.CreatedAt, &tx.UpdatedAt)
	if err != nil {
		return nil, err
	}
	tx.Type = models.TransactionType(txType)
	tx.Date = tx.Date.UTC()
	tx.CreatedAt = tx.CreatedAt.UTC()
	tx.UpdatedAt = tx.UpdatedAt.UTC()
	return tx, nil
}

// CreateTransaction inserts a new transaction
func (r *SQLRepository) CreateTransaction(ctx context.Context, tx *models.Transaction) error {
	query := r.dialect.rebind(`
		INSERT INTO transactions (` + transactionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := r.q.ExecContext(ctx, query, tx.ID, tx.UserID, string(tx.Type), tx.Title, tx.Description,
		tx.Amount, tx.Category, tx.Date.UTC(), tx.CreatedAt.UTC(), tx.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

// FindTransactionByID retrieves a transaction by id
func (r *SQLRepository) FindTransactionByID(ctx context.Context, id string) (*models.Transaction, error) {
	query := r.dialect.rebind(`SELECT ` + transactionColumns + ` FROM transactions WHERE id = ?`)
	tx, err := scanTransaction(r.q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrTransactionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find transaction: %w", err)
	}
	return tx, nil
}

// ListTransactions returns the transactions matching filter, newest first
func (r *SQLRepository) ListTransactions(ctx context.Context, filter models.TransactionFilter) ([]models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE user_id = ?`
	args := []any{filter.UserID}
	if filter.Type != "" {
		query += ` AND type = ?`
		args = append(args, string(filter.Type))
	}
	if filter.Category != "" {
		query += ` AND category = ?`
		args = append(args, filter.Category)
	}
	if !filter.From.IsZero() {
		query += ` AND date >= ?`
		args = append(args, filter.From.UTC())
	}
	if !filter.Until.IsZero() {
		query += ` AND date < ?`
		args = append(args, filter.Until.UTC())
	}
	query += ` ORDER BY date DESC, created_at DESC`

	rows, err := r.q.QueryContext(ctx, r.dialect.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	transactions := []models.Transaction{}
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, *tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return transactions, nil
}

// ListTransactionIDs returns the ids of a user's transactions, newest first
func (r *SQLRepository) ListTransactionIDs(ctx context.Context, userID string) ([]string, error) {
	query := r.dialect.rebind(`SELECT id FROM transactions WHERE user_id = ? ORDER BY date DESC, created_at DESC`)
	rows, err := r.q.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transaction ids: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan transaction id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// UpdateTransaction stores every mutable field of tx
func (r *SQLRepository) UpdateTransaction(ctx context.Context, tx *models.Transaction) error {
	err := r.execAffectingOne(ctx, models.ErrTransactionNotFound, `
		UPDATE transactions
		SET type = ?, title = ?, description = ?, amount = ?, category = ?, date = ?, updated_at = ?
		WHERE id = ?`,
		string(tx.Type), tx.Title, tx.Description, tx.Amount, tx.Category, tx.Date.UTC(), tx.UpdatedAt.UTC(), tx.ID)
	if err != nil {
		return fmt.Errorf("failed to update transaction: %w", err)
	}
	return nil
}

// DeleteTransaction removes a transaction
func (r *SQLRepository) DeleteTransaction(ctx context.Context, id string) error {
	if err := r.execAffectingOne(ctx, models.ErrTransactionNotFound, `DELETE FROM transactions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	return nil
}
