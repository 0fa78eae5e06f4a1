package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Amounts are written to JSON as numbers, the way the browser UI expects them.
func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// UncategorizedLabel groups expenses without a category
const UncategorizedLabel = "Uncategorized"

// MonthNames labels the bar chart buckets
var MonthNames = [12]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

// Summary represents per-type totals next to the stored balance
type Summary struct {
	TotalIncome  decimal.Decimal `json:"totalIncome"`
	TotalExpense decimal.Decimal `json:"totalExpense"`
	Balance      decimal.Decimal `json:"balance"`
}

// TransactionList is a filtered listing with its summary
type TransactionList struct {
	Summary      Summary       `json:"summary"`
	Transactions []Transaction `json:"transactions"`
}

// MonthlyTotals represents income and expense for one calendar month
type MonthlyTotals struct {
	Month   string          `json:"month"`
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
}

// GraphData feeds the dashboard charts for one year
type GraphData struct {
	PieChart map[string]decimal.Decimal `json:"pieChart"`
	BarChart []MonthlyTotals            `json:"barChart"`
}

// BalanceQuote is a user's balance expressed in another currency
type BalanceQuote struct {
	BaseCurrency string          `json:"baseCurrency"`
	Currency     string          `json:"currency"`
	Rate         decimal.Decimal `json:"rate"`
	Balance      decimal.Decimal `json:"balance"`
}

// Statement summarizes one user's activity over a period
type Statement struct {
	UserID         string
	Username       string
	Email          string
	PeriodStart    time.Time
	PeriodEnd      time.Time // exclusive
	Income         decimal.Decimal
	Expense        decimal.Decimal
	Count          int
	ClosingBalance decimal.Decimal
}

// Net is income minus expense over the period
func (s Statement) Net() decimal.Decimal {
	return s.Income.Sub(s.Expense)
}
