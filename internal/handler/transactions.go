package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Dan9191/finance-tracker/internal/models"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
)

type transactionRequest struct {
	Type        string           `json:"type"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Amount      *decimal.Decimal `json:"amount"`
	Category    string           `json:"category"`
	Date        string           `json:"date"`
}

// AddTransaction records a transaction for the user in the path
func (h *Handler) AddTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, r, keySuccess, err)
		return
	}
	if req.Amount == nil {
		writeMessage(w, http.StatusBadRequest, keySuccess, "amount is required")
		return
	}
	date, _, err := parseDate("date", req.Date)
	if err != nil {
		h.writeError(w, r, keySuccess, err)
		return
	}

	tx, balance, err := h.svc.AddTransaction(r.Context(), mux.Vars(r)["userId"], models.TransactionInput{
		Type:        req.Type,
		Title:       req.Title,
		Description: req.Description,
		Amount:      *req.Amount,
		Category:    req.Category,
		Date:        date,
	})
	if err != nil {
		h.writeError(w, r, keySuccess, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		keySuccess:    true,
		"message":     "Transaction added successfully",
		"transaction": tx,
		"balance":     balance,
	})
}

// listFilter reads type, category, startDate and endDate. The date range is
// applied only when both ends are given; a date-only endDate includes that day.
func listFilter(r *http.Request) (models.TransactionFilter, error) {
	q := r.URL.Query()
	var filter models.TransactionFilter

	if raw := strings.TrimSpace(q.Get("type")); raw != "" {
		t, err := models.ParseTransactionType(raw)
		if err != nil {
			return filter, err
		}
		filter.Type = t
	}
	filter.Category = strings.TrimSpace(q.Get("category"))

	from, _, err := parseDate("startDate", q.Get("startDate"))
	if err != nil {
		return filter, err
	}
	until, dateOnly, err := parseDate("endDate", q.Get("endDate"))
	if err != nil {
		return filter, err
	}
	if from.IsZero() || until.IsZero() {
		return filter, nil
	}
	if dateOnly {
		until = until.Add(24 * time.Hour)
	} else {
		until = until.Add(time.Nanosecond)
	}
	filter.From, filter.Until = from, until
	return filter, nil
}

// AllTransactions lists a user's transactions with totals
func (h *Handler) AllTransactions(w http.ResponseWriter, r *http.Request) {
	filter, err := listFilter(r)
	if err != nil {
		h.writeError(w, r, keySuccess, err)
		return
	}

	list, err := h.svc.ListTransactions(r.Context(), mux.Vars(r)["userId"], filter)
	if err != nil {
		h.writeError(w, r, keySuccess, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		keySuccess:     true,
		"count":        len(list.Transactions),
		"summary":      list.Summary,
		"transactions": list.Transactions,
	})
}

// GetTransaction returns a single transaction
func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := h.svc.GetTransaction(r.Context(), mux.Vars(r)["transactionId"])
	if err != nil {
		h.writeError(w, r, keySuccess, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{keySuccess: true, "transaction": tx})
}

// UpdateTransaction edits a transaction and rebalances its owner
func (h *Handler) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, r, keySuccess, err)
		return
	}
	date, _, err := parseDate("date", req.Date)
	if err != nil {
		h.writeError(w, r, keySuccess, err)
		return
	}

	tx, balance, err := h.svc.UpdateTransaction(r.Context(), mux.Vars(r)["transactionId"], models.TransactionPatch{
		Type:        req.Type,
		Title:       req.Title,
		Description: req.Description,
		Amount:      req.Amount,
		Category:    req.Category,
		Date:        date,
	})
	if err != nil {
		h.writeError(w, r, keySuccess, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		keySuccess:    true,
		"message":     "Transaction updated",
		"transaction": tx,
		"balance":     balance,
	})
}

// DeleteTransaction removes a transaction and rebalances its owner
func (h *Handler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	balance, err := h.svc.DeleteTransaction(r.Context(), mux.Vars(r)["transactionId"])
	if err != nil {
		h.writeError(w, r, keySuccess, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{keySuccess: true, "message": "Transaction deleted", "balance": balance})
}

// GraphData returns the yearly chart data
func (h *Handler) GraphData(w http.ResponseWriter, r *http.Request) {
	year := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("year")); raw != "" {
		y, err := strconv.Atoi(raw)
		if err != nil {
			writeMessage(w, http.StatusBadRequest, keySuccess, "year must be a number")
			return
		}
		year = y
		if year == 0 {
			writeMessage(w, http.StatusBadRequest, keySuccess, "year is out of range")
			return
		}
	}

	data, year, err := h.svc.GraphData(r.Context(), mux.Vars(r)["userId"], year)
	if err != nil {
		h.writeError(w, r, keySuccess, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{keySuccess: true, "year": year, "data": data})
}

// Balance converts the user's balance into the requested currency
func (h *Handler) Balance(w http.ResponseWriter, r *http.Request) {
	currency := r.URL.Query().Get("currency")
	if strings.TrimSpace(currency) == "" {
		writeMessage(w, http.StatusBadRequest, keySuccess, "currency is required")
		return
	}

	quote, err := h.svc.ConvertBalance(r.Context(), mux.Vars(r)["userId"], currency)
	if err != nil {
		h.writeError(w, r, keySuccess, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		keySuccess:     true,
		"baseCurrency": quote.BaseCurrency,
		"currency":     quote.Currency,
		"rate":         quote.Rate,
		"balance":      quote.Balance,
	})
}
