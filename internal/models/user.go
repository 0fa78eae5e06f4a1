package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// User represents a user in the system
type User struct {
	ID               string          `json:"_id"`
	Username         string          `json:"user_name"`
	PasswordHash     string          `json:"-"` // Not serialized
	Email            string          `json:"email,omitempty"`
	PhoneNumber      string          `json:"phone_number,omitempty"`
	RemainingBalance decimal.Decimal `json:"remaining_balance"`
	Transactions     []string        `json:"transactions"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

// PublicUser is the projection returned on login: no password, no transaction list
type PublicUser struct {
	ID               string          `json:"_id"`
	Username         string          `json:"user_name"`
	Email            string          `json:"email,omitempty"`
	PhoneNumber      string          `json:"phone_number,omitempty"`
	RemainingBalance decimal.Decimal `json:"remaining_balance"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

// Public returns the public projection of the user
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:               u.ID,
		Username:         u.Username,
		Email:            u.Email,
		PhoneNumber:      u.PhoneNumber,
		RemainingBalance: u.RemainingBalance,
		CreatedAt:        u.CreatedAt,
		UpdatedAt:        u.UpdatedAt,
	}
}

// SignupInput carries the fields accepted at signup
type SignupInput struct {
	Username    string
	Password    string
	Email       string
	PhoneNumber string
}

// UserPatch carries profile changes; nil fields are left untouched.
// Password, balance and transactions are not part of a profile update.
type UserPatch struct {
	Username    *string
	Email       *string
	PhoneNumber *string
}

// Empty reports whether the patch changes nothing
func (p UserPatch) Empty() bool {
	return p.Username == nil && p.Email == nil && p.PhoneNumber == nil
}
