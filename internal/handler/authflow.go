package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/stashd/stashd/internal/auth"
	"github.com/stashd/stashd/internal/handler/dto"
	"github.com/stashd/stashd/internal/service"
)

// AuthHandler serves the form-action auth endpoints. These are not
// REST: each POST consumes form fields and answers with a redirect
// carrying an encoded status and human-readable message, so a plain
// HTML form can drive the whole flow.
type AuthHandler struct {
	svc        *service.UserService
	logger     *slog.Logger
	cookieName string
	cookieTTL  time.Duration
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(svc *service.UserService, logger *slog.Logger, cookieName string, cookieTTL time.Duration) *AuthHandler {
	return &AuthHandler{
		svc:        svc,
		logger:     logger,
		cookieName: cookieName,
		cookieTTL:  cookieTTL,
	}
}

// SignUp handles POST /auth/sign-up with fields fullname, email, password.
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	session, err := h.svc.SignUp(r.Context(), service.SignUpInput{
		FullName: r.PostFormValue("fullname"),
		Email:    r.PostFormValue("email"),
		Password: r.PostFormValue("password"),
	})
	if err != nil {
		h.redirectError(w, r, "/sign-up", err)
		return
	}

	h.setSessionCookie(w, r, session.Token)
	redirectWithStatus(w, r, "/", "success", "Account created")
}

// SignIn handles POST /auth/sign-in with fields email, password.
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	session, err := h.svc.SignIn(r.Context(), r.PostFormValue("email"), r.PostFormValue("password"))
	if err != nil {
		h.redirectError(w, r, "/sign-in", err)
		return
	}

	h.setSessionCookie(w, r, session.Token)
	redirectWithStatus(w, r, "/", "success", "Signed in")
}

// SignOut handles POST /auth/sign-out.
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	token := ""
	if cookie, err := r.Cookie(h.cookieName); err == nil {
		token = cookie.Value
	}

	if err := h.svc.SignOut(r.Context(), token); err != nil {
		h.logger.Warn("failed to delete session", "error", err)
	}

	h.clearSessionCookie(w, r)
	redirectWithStatus(w, r, "/sign-in", "success", "Signed out")
}

// ForgotPassword handles POST /auth/forgot-password with field email.
// The response is identical whether or not the account exists.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.ForgotPassword(r.Context(), r.PostFormValue("email")); err != nil {
		h.redirectError(w, r, "/forgot-password", err)
		return
	}

	redirectWithStatus(w, r, "/forgot-password", "success",
		"If the account exists, a reset link has been issued")
}

// ResetPassword handles POST /auth/reset-password with fields token,
// password, confirmPassword.
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	err := h.svc.ResetPassword(r.Context(),
		r.PostFormValue("token"),
		r.PostFormValue("password"),
		r.PostFormValue("confirmPassword"),
	)
	if err != nil {
		h.redirectError(w, r, "/reset-password", err)
		return
	}

	redirectWithStatus(w, r, "/sign-in", "success", "Password updated, sign in again")
}

// Me handles GET /api/me for the signed-in account.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{
			Error: "Unauthorized: no active session",
			Code:  "UNAUTHORIZED",
		})
		return
	}

	user, err := h.svc.CurrentUser(r.Context(), userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{
			Error: "An internal error occurred",
			Code:  "INTERNAL_ERROR",
		})
		return
	}

	writeJSON(w, http.StatusOK, dto.ToUserResponse(user))
}

// redirectError maps a service error to a redirect message. Auth
// paths surface their real validation messages; everything else gets
// a generic one.
func (h *AuthHandler) redirectError(w http.ResponseWriter, r *http.Request, path string, err error) {
	message := "Something went wrong, please try again"
	switch {
	case errors.Is(err, service.ErrFieldsRequired):
		message = "All fields are required"
	case errors.Is(err, service.ErrEmailExists):
		message = "An account with this email already exists"
	case errors.Is(err, service.ErrInvalidCredentials):
		message = "Invalid email or password"
	case errors.Is(err, service.ErrPasswordMismatch):
		message = "Passwords do not match"
	case errors.Is(err, service.ErrInvalidResetToken):
		message = "Invalid or expired reset link"
	default:
		h.logger.Error("auth_flow_error", "path", path, "error", err)
	}
	redirectWithStatus(w, r, path, "error", message)
}

// redirectWithStatus answers a form POST with a 303 carrying the
// outcome in the query string.
func redirectWithStatus(w http.ResponseWriter, r *http.Request, path, status, message string) {
	query := url.Values{}
	query.Set("status", status)
	query.Set("message", message)
	http.Redirect(w, r, path+"?"+query.Encode(), http.StatusSeeOther)
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, r *http.Request, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.cookieTTL.Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearSessionCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}
