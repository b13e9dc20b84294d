// Package rest is the HTTP surface of the identity service. It owns the
// transport-level policies: request decoding, bcrypt password hashing and
// comparison, bearer-token authentication and the error-to-status mapping.
package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrijs2005/userhub/internal/common"
	"github.com/dmitrijs2005/userhub/internal/logging"
	"github.com/dmitrijs2005/userhub/internal/server/auth"
	"github.com/dmitrijs2005/userhub/internal/server/credentials"
	"github.com/dmitrijs2005/userhub/internal/server/identity"
	"github.com/dmitrijs2005/userhub/internal/server/models"
)

// Identity is the part of the orchestrator the handlers call.
type Identity interface {
	Register(ctx context.Context, req credentials.RegisterRequest) (*identity.RegisterResult, error)
	Login(ctx context.Context, email string) (*models.User, error)
	VerifyCode(ctx context.Context, email, code string) (*identity.StatusResult, error)
	ForgotPassword(ctx context.Context, email string) (*identity.StatusResult, error)
	ResetPassword(ctx context.Context, email, code, newPassword string) (*identity.StatusResult, error)
	Reconcile(ctx context.Context, profile map[string]any) (*identity.ReconcileResult, error)
	UpdateProfile(ctx context.Context, email, taxID, phone string) (*identity.ProfileResult, error)
	IssueAccessToken(user *models.User) (string, error)
	VerifyAccessToken(token string) (*auth.AccessClaims, error)
}

// TokenVerifier validates an external provider token and returns its claims.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (map[string]any, error)
}

type Handler struct {
	identity Identity
	google   TokenVerifier
	logger   logging.Logger
}

func NewHandler(id Identity, google TokenVerifier, logger logging.Logger) *Handler {
	return &Handler{identity: id, google: google, logger: logger}
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"fullName"`
	TaxID    string `json:"taxId"`
	Phone    string `json:"phone"`
	Username string `json:"username"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type verifyRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type forgotRequest struct {
	Email string `json:"email"`
}

type resetRequest struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"newPassword"`
}

type googleLoginRequest struct {
	IDToken string `json:"idToken"`
}

type updateProfileRequest struct {
	TaxID string `json:"taxId"`
	Phone string `json:"phone"`
}

type loginResponse struct {
	User        *models.User `json:"user"`
	AccessToken string       `json:"accessToken"`
}

func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		h.respondError(w, r, common.Validationf("email and password are required"))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	res, err := h.identity.Register(r.Context(), credentials.RegisterRequest{
		Email:    req.Email,
		Password: string(hash),
		FullName: req.FullName,
		TaxID:    req.TaxID,
		Phone:    req.Phone,
		Username: req.Username,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, res)
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decode(w, r, &req) {
		return
	}

	user, err := h.identity.Login(r.Context(), req.Email)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if user == nil {
		h.respondErrorMessage(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		h.respondErrorMessage(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := h.identity.IssueAccessToken(user)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	user.Password = ""
	h.respondJSON(w, http.StatusOK, loginResponse{User: user, AccessToken: token})
}

func (h *Handler) HandleVerifyCode(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.identity.VerifyCode(r.Context(), req.Email, req.Code)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, res)
}

func (h *Handler) HandleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.identity.ForgotPassword(r.Context(), req.Email)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, res)
}

func (h *Handler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.NewPassword == "" {
		h.respondError(w, r, common.Validationf("newPassword is required"))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	res, err := h.identity.ResetPassword(r.Context(), req.Email, req.Code, string(hash))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, res)
}

func (h *Handler) HandleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	var req googleLoginRequest
	if !h.decode(w, r, &req) {
		return
	}

	profile, err := h.google.Verify(r.Context(), req.IDToken)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	res, err := h.identity.Reconcile(r.Context(), profile)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	res.User.Password = ""
	h.respondJSON(w, http.StatusOK, res)
}

func (h *Handler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		h.respondErrorMessage(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req updateProfileRequest
	if !h.decode(w, r, &req) {
		return
	}

	res, err := h.identity.UpdateProfile(r.Context(), claims.Email, req.TaxID, req.Phone)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	res.User.Password = ""
	h.respondJSON(w, http.StatusOK, res)
}

type contextKey string

const claimsKey contextKey = "accessClaims"

func claimsFromContext(ctx context.Context) (*auth.AccessClaims, bool) {
	claims, ok := ctx.Value(claimsKey).(*auth.AccessClaims)
	return claims, ok
}

// Authenticate verifies the Bearer access token and stores its claims in the
// request context.
func (h *Handler) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || token == "" {
			h.respondErrorMessage(w, http.StatusUnauthorized, "authentication required")
			return
		}

		claims, err := h.identity.VerifyAccessToken(token)
		if err != nil {
			h.respondError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.respondErrorMessage(w, http.StatusBadRequest, "malformed request body")
		return false
	}
	return true
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) respondErrorMessage(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, errorResponse{Error: message})
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFromError(err)
	message := err.Error()
	if status >= http.StatusInternalServerError {
		// internal details stay in the log
		h.logger.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err.Error())
		message = http.StatusText(status)
	}
	h.respondErrorMessage(w, status, message)
}

func statusFromError(err error) int {
	switch {
	case errors.Is(err, common.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrInvalidToken), errors.Is(err, common.ErrTokenExpired):
		return http.StatusUnauthorized
	case errors.Is(err, common.ErrTransient):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
