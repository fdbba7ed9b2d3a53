package handler

import (
	"errors"
	"net/http"

	"github.com/hszk-dev/gostream/internal/auth"
	"github.com/hszk-dev/gostream/internal/domain/model"
	"github.com/hszk-dev/gostream/internal/usecase"
)

// AuthHandler handles the account-lifecycle HTTP surface of spec.md §6:
// register, verify-email, resend-verification, login, logout.
type AuthHandler struct {
	users        usecase.UserService
	frontendURL  string
	cookieMaxAge int
}

// NewAuthHandler creates an AuthHandler. cookieMaxAge is the fingerprint
// cookie's Max-Age in seconds, matching the access token's lifetime.
func NewAuthHandler(users usecase.UserService, frontendURL string, cookieMaxAge int) *AuthHandler {
	return &AuthHandler{users: users, frontendURL: frontendURL, cookieMaxAge: cookieMaxAge}
}

type registerRequest struct {
	Username             string `json:"username"`
	Email                string `json:"email"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"passwordConfirmation"`
}

type registerResponse struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteProblem(w, r, http.StatusBadRequest, "validation failed", "malformed JSON body")
		return
	}

	if req.Password != req.PasswordConfirmation {
		WriteValidationProblem(w, r, map[string]string{"passwordConfirmation": "must match password"})
		return
	}

	user, err := h.users.Register(r.Context(), usecase.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		if errors.Is(err, model.ErrInvalidUsername) || errors.Is(err, model.ErrInvalidEmail) {
			WriteProblem(w, r, http.StatusBadRequest, "validation failed", err.Error())
			return
		}
		HandleServiceError(w, r, err)
		return
	}

	JSON(w, http.StatusCreated, registerResponse{Username: user.Username, Email: user.Email})
}

// VerifyEmail handles GET /api/auth/verify-email?token=. It always redirects
// to the frontend, with an error query param on failure, per spec.md §6.
func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if err := h.users.VerifyEmail(r.Context(), token); err != nil {
		http.Redirect(w, r, h.frontendURL+"/verify-email?error=invalid_token", http.StatusFound)
		return
	}
	http.Redirect(w, r, h.frontendURL+"/verify-email?status=success", http.StatusFound)
}

type resendVerificationRequest struct {
	Email string `json:"email"`
}

// ResendVerification handles POST /api/auth/resend-verification.
func (h *AuthHandler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	var req resendVerificationRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteProblem(w, r, http.StatusBadRequest, "validation failed", "malformed JSON body")
		return
	}

	if err := h.users.ResendVerification(r.Context(), req.Email); err != nil {
		HandleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteProblem(w, r, http.StatusBadRequest, "validation failed", "malformed JSON body")
		return
	}

	result, err := h.users.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, usecase.ErrInvalidCredentials) || errors.Is(err, usecase.ErrEmailNotVerified) {
			WriteProblem(w, r, http.StatusUnauthorized, "unauthorized", "invalid username or password")
			return
		}
		HandleServiceError(w, r, err)
		return
	}

	http.SetCookie(w, auth.NewFingerprintCookie(result.RawFingerprint, h.cookieMaxAge))
	w.Header().Set("Authorization", "Bearer "+result.Token)
	w.WriteHeader(http.StatusOK)
}

// Logout handles POST /api/auth/logout. Authentication is not required to
// reach this handler; clearing an absent cookie is harmless.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, auth.ClearFingerprintCookie())
	w.WriteHeader(http.StatusOK)
}
