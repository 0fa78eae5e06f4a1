package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Dan9191/finance-tracker/internal/models"
	"github.com/shopspring/decimal"
)

// ErrRatesUnavailable is returned when no exchange rate source is configured
var ErrRatesUnavailable = errors.New("exchange rates unavailable")

// Summarize totals income and expense over transactions
func Summarize(transactions []models.Transaction, balance decimal.Decimal) models.Summary {
	summary := models.Summary{TotalIncome: decimal.Zero, TotalExpense: decimal.Zero, Balance: balance}
	for _, tx := range transactions {
		switch tx.Type {
		case models.TransactionTypeIncome:
			summary.TotalIncome = summary.TotalIncome.Add(tx.Amount)
		case models.TransactionTypeExpense:
			summary.TotalExpense = summary.TotalExpense.Add(tx.Amount)
		}
	}
	return summary
}

// BuildGraphData buckets transactions into expense-by-category totals and
// twelve zero-filled monthly income/expense totals
func BuildGraphData(transactions []models.Transaction) models.GraphData {
	data := models.GraphData{
		PieChart: make(map[string]decimal.Decimal),
		BarChart: make([]models.MonthlyTotals, len(models.MonthNames)),
	}
	for i, name := range models.MonthNames {
		data.BarChart[i] = models.MonthlyTotals{Month: name, Income: decimal.Zero, Expense: decimal.Zero}
	}

	for _, tx := range transactions {
		month := &data.BarChart[tx.Date.UTC().Month()-1]
		switch tx.Type {
		case models.TransactionTypeIncome:
			month.Income = month.Income.Add(tx.Amount)
		case models.TransactionTypeExpense:
			month.Expense = month.Expense.Add(tx.Amount)
			category := tx.Category
			if category == "" {
				category = models.UncategorizedLabel
			}
			data.PieChart[category] = data.PieChart[category].Add(tx.Amount)
		}
	}
	return data
}

// yearBounds returns [Jan 1 year, Jan 1 year+1) in UTC
func yearBounds(year int) (time.Time, time.Time) {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(1, 0, 0)
}

// GraphData returns the chart data for one calendar year. A zero year means
// the current one.
func (s *Service) GraphData(ctx context.Context, rawUserID string, year int) (*models.GraphData, int, error) {
	userID, err := parseID(rawUserID, models.ErrInvalidUserID)
	if err != nil {
		return nil, 0, err
	}
	if year == 0 {
		year = time.Now().UTC().Year()
	}
	if year < 1 || year > 9999 {
		return nil, 0, models.NewValidationError("year is out of range")
	}
	if err := s.authorize(ctx, userID); err != nil {
		return nil, 0, err
	}
	if _, err := s.repo.FindUserByID(ctx, userID); err != nil {
		return nil, 0, err
	}

	from, until := yearBounds(year)
	transactions, err := s.repo.ListTransactions(ctx, models.TransactionFilter{UserID: userID, From: from, Until: until})
	if err != nil {
		return nil, 0, err
	}

	data := BuildGraphData(transactions)
	return &data, year, nil
}

// ConvertBalance expresses a user's balance in another currency using the
// configured rate provider
func (s *Service) ConvertBalance(ctx context.Context, rawUserID, currency string) (*models.BalanceQuote, error) {
	userID, err := parseID(rawUserID, models.ErrInvalidUserID)
	if err != nil {
		return nil, err
	}
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if len(currency) != 3 {
		return nil, models.NewValidationError("currency must be a three-letter code")
	}
	if err := s.authorize(ctx, userID); err != nil {
		return nil, err
	}
	user, err := s.repo.FindUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	base := s.config.BaseCurrency
	quote := &models.BalanceQuote{BaseCurrency: base, Currency: currency, Rate: decimal.NewFromInt(1), Balance: user.RemainingBalance}
	if currency == base {
		return quote, nil
	}
	if s.rates == nil {
		return nil, ErrRatesUnavailable
	}

	baseRate, err := s.rates.Rate(ctx, base)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRatesUnavailable, err)
	}
	targetRate, err := s.rates.Rate(ctx, currency)
	if errors.Is(err, models.ErrUnknownCurrency) {
		return nil, models.NewValidationError(fmt.Sprintf("unknown currency %s", currency))
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRatesUnavailable, err)
	}
	if !targetRate.IsPositive() {
		return nil, fmt.Errorf("%w: non-positive rate for %s", ErrRatesUnavailable, currency)
	}

	quote.Rate = baseRate.DivRound(targetRate, 6)
	quote.Balance = user.RemainingBalance.Mul(baseRate).DivRound(targetRate, 2)
	return quote, nil
}
