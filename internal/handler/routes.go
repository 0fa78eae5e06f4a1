package handler

import (
	"net/http"

	"github.com/Dan9191/finance-tracker/internal/config"
	"github.com/Dan9191/finance-tracker/internal/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// notFound answers unknown routes and wrong methods alike
func notFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, map[string]interface{}{keyStatus: false, "message": "Route not found", "path": r.URL.Path})
}

// NewRouter builds the HTTP API. Requests pass through CORS, panic recovery
// and request logging before reaching mux, so unmatched routes are covered too.
func NewRouter(h *Handler, cfg *config.Config, log *logrus.Logger) http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(notFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(notFound)

	protect := func(f http.HandlerFunc) http.Handler {
		if !cfg.AuthRequired {
			return f
		}
		return middleware.AuthMiddleware(cfg)(f)
	}

	// Public routes
	r.HandleFunc("/healthz", h.Health).Methods("GET")
	r.HandleFunc("/crate_user", h.CreateUser).Methods("POST")
	r.HandleFunc("/userLogin", h.Login).Methods("POST")

	// Protected routes
	r.Handle("/user/{userId}", protect(h.GetUser)).Methods("GET")
	r.Handle("/updateUser/{userId}", protect(h.UpdateUser)).Methods("PUT")
	r.Handle("/deleteUser/{userId}", protect(h.DeleteUser)).Methods("DELETE")
	r.Handle("/addTransaction/{userId}", protect(h.AddTransaction)).Methods("POST")
	r.Handle("/allTransactions/{userId}", protect(h.AllTransactions)).Methods("GET")
	r.Handle("/transaction/{transactionId}", protect(h.GetTransaction)).Methods("GET")
	r.Handle("/updateTransaction/{transactionId}", protect(h.UpdateTransaction)).Methods("PUT")
	r.Handle("/deleteTransaction/{transactionId}", protect(h.DeleteTransaction)).Methods("DELETE")
	r.Handle("/getTransactionGraphData/{userId}", protect(h.GraphData)).Methods("GET")
	r.Handle("/balance/{userId}", protect(h.Balance)).Methods("GET")

	var handler http.Handler = r
	handler = middleware.Recoverer(log)(handler)
	handler = middleware.RequestLogger(log)(handler)
	handler = cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	})(handler)
	return handler
}
