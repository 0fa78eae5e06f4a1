package handler

import (
	"net/http"

	"github.com/Dan9191/finance-tracker/internal/models"
	"github.com/gorilla/mux"
)

type signupRequest struct {
	Username    string     `json:"user_name"`
	Password    string     `json:"password"`
	Email       string     `json:"email"`
	PhoneNumber flexString `json:"phone_number"`
}

type loginRequest struct {
	Username string `json:"user_name"`
	Password string `json:"password"`
}

type loginResponse struct {
	models.PublicUser
	Token string `json:"token"`
}

// updateUserRequest lists the editable profile fields; anything else in the
// body (password, balance, transactions) is ignored
type updateUserRequest struct {
	Username    *string     `json:"user_name"`
	Email       *string     `json:"email"`
	PhoneNumber *flexString `json:"phone_number"`
}

// CreateUser handles user registration
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, r, keyStatus, err)
		return
	}

	_, err := h.svc.Register(r.Context(), models.SignupInput{
		Username:    req.Username,
		Password:    req.Password,
		Email:       req.Email,
		PhoneNumber: string(req.PhoneNumber),
	})
	if err != nil {
		h.writeError(w, r, keyStatus, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{keyStatus: true, "message": "User Profile Created Successfully"})
}

// Login handles user authentication
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, r, keyStatus, err)
		return
	}
	if req.Username == "" {
		writeMessage(w, http.StatusBadRequest, keyStatus, "Username is required")
		return
	}
	if req.Password == "" {
		writeMessage(w, http.StatusBadRequest, keyStatus, "Password is required")
		return
	}

	user, token, err := h.svc.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.writeError(w, r, keyStatus, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{PublicUser: *user, Token: token})
}

// GetUser returns a user with its transaction ids
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.svc.GetUser(r.Context(), mux.Vars(r)["userId"])
	if err != nil {
		h.writeError(w, r, keySuccess, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{keySuccess: true, "user": user})
}

// UpdateUser applies a profile patch
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var req updateUserRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, r, keyStatus, err)
		return
	}

	patch := models.UserPatch{Username: req.Username, Email: req.Email}
	if req.PhoneNumber != nil {
		phone := string(*req.PhoneNumber)
		patch.PhoneNumber = &phone
	}

	user, err := h.svc.UpdateUser(r.Context(), mux.Vars(r)["userId"], patch)
	if err != nil {
		h.writeError(w, r, keyStatus, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{keyStatus: true, "message": "User updated successfully", "user": user})
}

// DeleteUser removes a user and its transactions
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteUser(r.Context(), mux.Vars(r)["userId"]); err != nil {
		h.writeError(w, r, keyStatus, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{keyStatus: true, "message": "User deleted successfully"})
}
