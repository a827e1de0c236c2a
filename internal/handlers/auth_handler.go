package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"kidtasks/internal/security"
)

// AuthHandler exchanges the shared board password for an access token
type AuthHandler struct {
	passwords *security.PasswordChecker
	tokens    *security.TokenIssuer
	limiter   *security.RateLimiter
	clientIPs *security.ClientIPResolver
	logger    *slog.Logger
}

// NewAuthHandler creates a new auth handler. limiter may be nil; a nil
// clientIPs keys the limiter by the direct peer address.
func NewAuthHandler(passwords *security.PasswordChecker, tokens *security.TokenIssuer, limiter *security.RateLimiter, clientIPs *security.ClientIPResolver, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{
		passwords: passwords,
		tokens:    tokens,
		limiter:   limiter,
		clientIPs: clientIPs,
		logger:    logger,
	}
}

type loginRequest struct {
	Password string `json:"password"`
}

type loginResponse struct {
	Success   bool       `json:"success"`
	Token     string     `json:"token,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

// Login handles POST /api/auth
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	clientIP := h.clientIPs.ClientIP(r)
	if h.limiter != nil && !h.limiter.Allow(clientIP) {
		h.logger.Warn("login rate limited", slog.String("client_ip", clientIP))
		w.Header().Set("Retry-After", "60")
		respondWithError(w, http.StatusTooManyRequests, ErrTooManyRequests, "", nil)
		return
	}

	// No password set, allow access
	if !h.passwords.Enabled() {
		writeJSON(w, http.StatusOK, loginResponse{Success: true})
		return
	}

	var req loginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxAuthBodyBytes)).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidRequestBody, "", nil)
		return
	}

	if !h.passwords.Check(req.Password) {
		h.logger.Info("login rejected", slog.String("client_ip", clientIP))
		respondWithError(w, http.StatusUnauthorized, ErrIncorrectPassword, "", nil)
		return
	}

	token, expires, err := h.tokens.Issue()
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "failed to issue token", err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Success: true, Token: token, ExpiresAt: &expires})
}
