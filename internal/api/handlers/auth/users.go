package auth

import (
	"net/http"
	"time"

	"billbuddy/internal/api/handlers"
	"billbuddy/internal/services/identity"
	"billbuddy/pkg/utils"
)

// CookieName is the session cookie the JWT middleware also accepts.
const CookieName = "Bearer"

type Handler struct {
	Identity     *identity.Service
	SecureCookie bool
}

// POST /users/signup
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req identity.RegisterInput
	if !handlers.DecodeJSON(w, r, &req) {
		return
	}

	user, warning, err := h.Identity.Register(r.Context(), req)
	if err != nil {
		utils.WriteServiceError(w, err)
		return
	}

	var warnings map[string]string
	if warning != "" {
		warnings = map[string]string{"notifier": warning}
	}
	utils.WriteJSONWithWarnings(w, http.StatusCreated, "registration successful, check your email to verify your account", user, warnings)
}

// GET /users/verify?token=
func (h *Handler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		utils.WriteError(w, "token is required", http.StatusBadRequest)
		return
	}

	if err := h.Identity.VerifyEmail(r.Context(), token); err != nil {
		utils.WriteServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, "email verified", nil)
}

// POST /users/resend-verification
func (h *Handler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if !handlers.DecodeJSON(w, r, &req) {
		return
	}

	if err := h.Identity.ResendVerification(r.Context(), req.Email); err != nil {
		utils.WriteServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, "if the account exists and is unverified, a new link has been sent", nil)
}

// POST /users/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !handlers.DecodeJSON(w, r, &req) {
		return
	}

	session, err := h.Identity.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		utils.WriteServiceError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    session.Token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.SecureCookie,
		Expires:  session.ExpiresAt,
		SameSite: http.SameSiteStrictMode,
	})
	utils.WriteJSON(w, http.StatusOK, "login successful", session)
}

// POST /users/logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	tokenID, exp := utils.CallerToken(r.Context())
	if err := h.Identity.Logout(r.Context(), tokenID, time.Unix(exp, 0)); err != nil {
		utils.WriteServiceError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   h.SecureCookie,
		Expires:  time.Unix(0, 0),
		SameSite: http.SameSiteStrictMode,
	})
	utils.WriteJSON(w, http.StatusOK, "logged out successfully", nil)
}

// POST /users/forgot-password
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if !handlers.DecodeJSON(w, r, &req) {
		return
	}

	if err := h.Identity.RequestPasswordReset(r.Context(), req.Email); err != nil {
		utils.WriteServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, "if the account exists, a reset link has been sent", nil)
}

// POST /users/reset-password
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if !handlers.DecodeJSON(w, r, &req) {
		return
	}

	if err := h.Identity.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		utils.WriteServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, "password reset successful", nil)
}
