package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Dan9191/finance-tracker/internal/config"
	"github.com/Dan9191/finance-tracker/internal/models"
	"github.com/Dan9191/finance-tracker/internal/repository"
	"github.com/Dan9191/finance-tracker/internal/service"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type staticRates map[string]decimal.Decimal

func (s staticRates) Rate(ctx context.Context, currency string) (decimal.Decimal, error) {
	rate, ok := s[currency]
	if !ok {
		return decimal.Zero, models.ErrUnknownCurrency
	}
	return rate, nil
}

func newTestRouter(t *testing.T, authRequired bool) http.Handler {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	cfg := &config.Config{
		JWTSecret:      "test-secret",
		TokenTTL:       time.Hour,
		AuthRequired:   authRequired,
		AllowedOrigins: []string{"*"},
		BaseCurrency:   "RUB",
	}
	rates := staticRates{"RUB": decimal.NewFromInt(1), "USD": decimal.NewFromInt(80)}
	svc := service.NewService(repository.NewMemoryRepository(), rates, log, cfg)
	return NewRouter(NewHandler(svc, log), cfg, log)
}

func do(t *testing.T, h http.Handler, method, path, body string, header ...string) (int, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	out := map[string]interface{}{}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("%s %s: invalid JSON %q: %v", method, path, rec.Body.String(), err)
	}
	return rec.Code, out
}

func expect(t *testing.T, status, want int, body map[string]interface{}) {
	t.Helper()
	if status != want {
		t.Fatalf("status = %d, want %d, body %v", status, want, body)
	}
}

func signupAndLogin(t *testing.T, h http.Handler, name string) (string, string) {
	t.Helper()
	status, body := do(t, h, "POST", "/crate_user", `{"user_name":"`+name+`","password":"pw","email":"`+name+`@example.com","phone_number":5551234}`)
	expect(t, status, http.StatusOK, body)
	if body["status"] != true || body["message"] != "User Profile Created Successfully" {
		t.Fatalf("signup body = %v", body)
	}

	status, body = do(t, h, "POST", "/userLogin", `{"user_name":"`+name+`","password":"pw"}`)
	expect(t, status, http.StatusOK, body)
	id, _ := body["_id"].(string)
	token, _ := body["token"].(string)
	if id == "" || token == "" {
		t.Fatalf("login body = %v", body)
	}
	if _, leaked := body["password"]; leaked {
		t.Fatalf("login leaked password: %v", body)
	}
	if _, listed := body["transactions"]; listed {
		t.Fatalf("login returned transactions: %v", body)
	}
	if body["phone_number"] != "5551234" {
		t.Fatalf("phone_number = %v", body["phone_number"])
	}
	return id, token
}

func TestUserRoutes(t *testing.T) {
	h := newTestRouter(t, false)
	id, _ := signupAndLogin(t, h, "alice")

	status, body := do(t, h, "POST", "/crate_user", `{"user_name":"alice","password":"x"}`)
	expect(t, status, http.StatusConflict, body)
	if body["status"] != false {
		t.Fatalf("conflict body = %v", body)
	}

	status, body = do(t, h, "POST", "/userLogin", `{"user_name":"alice","password":"wrong"}`)
	expect(t, status, http.StatusNotFound, body)

	status, body = do(t, h, "POST", "/userLogin", `{"password":"pw"}`)
	expect(t, status, http.StatusBadRequest, body)
	if body["message"] != "Username is required" {
		t.Fatalf("missing user name body = %v", body)
	}

	status, body = do(t, h, "PUT", "/updateUser/"+id, `{}`)
	expect(t, status, http.StatusBadRequest, body)
	if body["message"] != "Please provide data to update" {
		t.Fatalf("empty update body = %v", body)
	}

	status, body = do(t, h, "PUT", "/updateUser/"+id, `{"email":"new@example.com","remaining_balance":1000000,"password":"hijack"}`)
	expect(t, status, http.StatusOK, body)
	user := body["user"].(map[string]interface{})
	if user["email"] != "new@example.com" || user["remaining_balance"] != 0.0 {
		t.Fatalf("updated user = %v", user)
	}

	status, body = do(t, h, "GET", "/user/"+id, "")
	expect(t, status, http.StatusOK, body)
	if body["success"] != true {
		t.Fatalf("get user body = %v", body)
	}

	status, body = do(t, h, "GET", "/user/not-a-uuid", "")
	expect(t, status, http.StatusBadRequest, body)
	if body["message"] != "Invalid user ID" {
		t.Fatalf("invalid id body = %v", body)
	}

	status, body = do(t, h, "DELETE", "/deleteUser/"+id, "")
	expect(t, status, http.StatusOK, body)
	status, body = do(t, h, "GET", "/user/"+id, "")
	expect(t, status, http.StatusNotFound, body)
	if body["message"] != "User not found" {
		t.Fatalf("deleted user body = %v", body)
	}
}

func TestTransactionRoutes(t *testing.T) {
	h := newTestRouter(t, false)
	id, _ := signupAndLogin(t, h, "bob")

	status, body := do(t, h, "POST", "/addTransaction/"+id, `{"type":"income","title":"Salary","amount":100,"date":"2024-01-05"}`)
	expect(t, status, http.StatusCreated, body)
	if body["balance"] != 100.0 || body["message"] != "Transaction added successfully" {
		t.Fatalf("add income body = %v", body)
	}

	status, body = do(t, h, "POST", "/addTransaction/"+id, `{"type":"expense","title":"TV","amount":250}`)
	expect(t, status, http.StatusBadRequest, body)
	if body["message"] != "Insufficient balance" {
		t.Fatalf("rejected expense body = %v", body)
	}

	status, body = do(t, h, "POST", "/addTransaction/"+id, `{"type":"expense","title":"Lunch","amount":"30","category":"Food","date":"2024-03-14T12:00:00Z"}`)
	expect(t, status, http.StatusCreated, body)
	if body["balance"] != 70.0 {
		t.Fatalf("add expense body = %v", body)
	}
	txID := body["transaction"].(map[string]interface{})["_id"].(string)

	status, body = do(t, h, "GET", "/allTransactions/"+id+"?type=expense", "")
	expect(t, status, http.StatusOK, body)
	if body["count"] != 1.0 {
		t.Fatalf("filtered list = %v", body)
	}
	summary := body["summary"].(map[string]interface{})
	if summary["totalExpense"] != 30.0 || summary["totalIncome"] != 0.0 || summary["balance"] != 70.0 {
		t.Fatalf("summary = %v", summary)
	}

	status, body = do(t, h, "GET", "/allTransactions/"+id+"?startDate=2024-03-14&endDate=2024-03-14", "")
	expect(t, status, http.StatusOK, body)
	if body["count"] != 1.0 {
		t.Fatalf("date range list = %v", body)
	}

	status, body = do(t, h, "GET", "/allTransactions/"+id+"?startDate=2024-03-15", "")
	expect(t, status, http.StatusOK, body)
	if body["count"] != 2.0 {
		t.Fatalf("half-open range should be ignored: %v", body)
	}

	status, body = do(t, h, "PUT", "/updateTransaction/"+txID, `{"amount":50}`)
	expect(t, status, http.StatusOK, body)
	if body["balance"] != 50.0 {
		t.Fatalf("update body = %v", body)
	}

	status, body = do(t, h, "GET", "/getTransactionGraphData/"+id+"?year=2024", "")
	expect(t, status, http.StatusOK, body)
	data := body["data"].(map[string]interface{})
	if pie := data["pieChart"].(map[string]interface{}); pie["Food"] != 50.0 || len(pie) != 1 {
		t.Fatalf("pieChart = %v", pie)
	}
	bars := data["barChart"].([]interface{})
	if len(bars) != 12 || bars[2].(map[string]interface{})["expense"] != 50.0 || bars[0].(map[string]interface{})["income"] != 100.0 {
		t.Fatalf("barChart = %v", bars)
	}

	status, body = do(t, h, "GET", "/getTransactionGraphData/"+id+"?year=abc", "")
	expect(t, status, http.StatusBadRequest, body)

	status, body = do(t, h, "GET", "/balance/"+id+"?currency=usd", "")
	expect(t, status, http.StatusOK, body)
	if body["balance"] != 0.63 || body["currency"] != "USD" {
		t.Fatalf("balance quote = %v", body)
	}

	status, body = do(t, h, "GET", "/transaction/"+txID, "")
	expect(t, status, http.StatusOK, body)

	status, body = do(t, h, "DELETE", "/deleteTransaction/"+txID, "")
	expect(t, status, http.StatusOK, body)
	if body["balance"] != 100.0 || body["message"] != "Transaction deleted" {
		t.Fatalf("delete body = %v", body)
	}

	status, body = do(t, h, "DELETE", "/deleteTransaction/"+txID, "")
	expect(t, status, http.StatusNotFound, body)
	if body["message"] != "Transaction not found" {
		t.Fatalf("second delete body = %v", body)
	}

	status, body = do(t, h, "GET", "/transaction/xyz", "")
	expect(t, status, http.StatusBadRequest, body)
	if body["message"] != "Invalid transaction ID" {
		t.Fatalf("invalid transaction id body = %v", body)
	}
}

func TestUnknownRoute(t *testing.T) {
	h := newTestRouter(t, false)

	status, body := do(t, h, "GET", "/does/not/exist", "")
	expect(t, status, http.StatusNotFound, body)
	if body["message"] != "Route not found" || body["path"] != "/does/not/exist" {
		t.Fatalf("body = %v", body)
	}

	status, body = do(t, h, "PATCH", "/crate_user", "")
	expect(t, status, http.StatusNotFound, body)

	status, body = do(t, h, "GET", "/healthz", "")
	expect(t, status, http.StatusOK, body)
}

func TestAuthRequired(t *testing.T) {
	h := newTestRouter(t, true)
	aliceID, aliceToken := signupAndLogin(t, h, "alice")
	bobID, _ := signupAndLogin(t, h, "bob")

	status, body := do(t, h, "GET", "/user/"+aliceID, "")
	expect(t, status, http.StatusUnauthorized, body)

	status, body = do(t, h, "GET", "/user/"+aliceID, "", "Authorization", "Bearer "+aliceToken)
	expect(t, status, http.StatusOK, body)

	status, body = do(t, h, "GET", "/user/"+bobID, "", "Authorization", "Bearer "+aliceToken)
	expect(t, status, http.StatusForbidden, body)

	status, body = do(t, h, "POST", "/addTransaction/"+bobID, `{"type":"income","amount":1}`, "Authorization", "Bearer "+aliceToken)
	expect(t, status, http.StatusForbidden, body)
}

func TestCORSPreflight(t *testing.T) {
	h := newTestRouter(t, false)
	req := httptest.NewRequest(http.MethodOptions, "/crate_user", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("Access-Control-Allow-Origin = %q", got)
	}
}

func TestFlexString(t *testing.T) {
	var req signupRequest
	if err := json.Unmarshal([]byte(`{"phone_number":"+1 555"}`), &req); err != nil || req.PhoneNumber != "+1 555" {
		t.Fatalf("string phone = %q, %v", req.PhoneNumber, err)
	}
	if err := json.Unmarshal([]byte(`{"phone_number":9876543210}`), &req); err != nil || req.PhoneNumber != "9876543210" {
		t.Fatalf("numeric phone = %q, %v", req.PhoneNumber, err)
	}
	if err := json.Unmarshal([]byte(`{"phone_number":true}`), &req); err == nil {
		t.Fatal("expected error for boolean phone number")
	}
}
