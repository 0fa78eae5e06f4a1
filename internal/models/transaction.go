package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType is either income or expense
type TransactionType string

const (
	TransactionTypeIncome  TransactionType = "income"
	TransactionTypeExpense TransactionType = "expense"
)

var (
	signPositive = decimal.NewFromInt(1)
	signNegative = decimal.NewFromInt(-1)
)

// ParseTransactionType accepts "income" or "expense" in any case
func ParseTransactionType(s string) (TransactionType, error) {
	switch t := TransactionType(strings.ToLower(strings.TrimSpace(s))); t {
	case TransactionTypeIncome, TransactionTypeExpense:
		return t, nil
	default:
		return "", NewValidationError(fmt.Sprintf("type must be %q or %q", TransactionTypeIncome, TransactionTypeExpense))
	}
}

// Sign is +1 for income and -1 for expense
func (t TransactionType) Sign() decimal.Decimal {
	if t == TransactionTypeExpense {
		return signNegative
	}
	return signPositive
}

// Transaction represents a single income or expense ledger entry
type Transaction struct {
	ID          string          `json:"_id"`
	UserID      string          `json:"user"`
	Type        TransactionType `json:"type"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category,omitempty"`
	Date        time.Time       `json:"date"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// Effect is the signed change this transaction applies to its owner's balance
func (t *Transaction) Effect() decimal.Decimal {
	return t.Amount.Mul(t.Type.Sign())
}

// TransactionInput carries the fields of a new transaction
type TransactionInput struct {
	Type        string
	Title       string
	Description string
	Amount      decimal.Decimal
	Category    string
	Date        time.Time // zero means now
}

// TransactionPatch carries an edit. Empty strings, a nil amount and a zero
// date keep the current value.
type TransactionPatch struct {
	Type        string
	Title       string
	Description string
	Amount      *decimal.Decimal
	Category    string
	Date        time.Time
}

// TransactionFilter narrows a transaction listing. From is inclusive and
// Until exclusive; zero values leave the bound open.
type TransactionFilter struct {
	UserID   string
	Type     TransactionType
	Category string
	From     time.Time
	Until    time.Time
}

// Matches reports whether t passes the filter
func (f TransactionFilter) Matches(t *Transaction) bool {
	if f.UserID != "" && t.UserID != f.UserID {
		return false
	}
	if f.Type != "" && t.Type != f.Type {
		return false
	}
	if f.Category != "" && t.Category != f.Category {
		return false
	}
	if !f.From.IsZero() && t.Date.Before(f.From) {
		return false
	}
	if !f.Until.IsZero() && !t.Date.Before(f.Until) {
		return false
	}
	return true
}
