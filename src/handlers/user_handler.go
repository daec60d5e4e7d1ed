// backend/src/handlers/user_handler.go
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/username/propfolio/backend/src/config"
	"github.com/username/propfolio/backend/src/database"
	"github.com/username/propfolio/backend/src/logger"
	"github.com/username/propfolio/backend/src/models"
	"github.com/username/propfolio/backend/src/security"
	"github.com/username/propfolio/backend/src/services"
	"github.com/username/propfolio/backend/src/utils"
)

type UserHandler struct {
	authService  *security.AuthService
	emailService services.EmailService
}

func NewUserHandler(authService *security.AuthService, emailService services.EmailService) *UserHandler {
	return &UserHandler{
		authService:  authService,
		emailService: emailService,
	}
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	User         *models.User `json:"user"`
}

func (h *UserHandler) RegisterUserHandler(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Username == "" || req.Email == "" || len(req.Password) < 8 {
		utils.SendJSONError(w, "Username, email and a password of at least 8 characters are required", http.StatusBadRequest)
		return
	}

	user := &models.User{Username: req.Username, Email: req.Email}
	if err := user.HashPassword(req.Password); err != nil {
		logger.L.Error("Failed to hash password during registration", "error", err)
		utils.SendJSONError(w, "Registration failed", http.StatusInternalServerError)
		return
	}
	if err := user.CreateUser(database.DB); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unique constraint failed") {
			utils.SendJSONError(w, "Username or email already in use", http.StatusConflict)
			return
		}
		logger.L.Error("Failed to create user", "error", err)
		utils.SendJSONError(w, "Registration failed", http.StatusInternalServerError)
		return
	}

	// Welcome email must not block or fail registration.
	go func() {
		if err := h.emailService.SendWelcomeEmail(user.Email, user.Username); err != nil {
			logger.L.Warn("Failed to send welcome email", "userID", user.ID, "error", err)
		}
	}()

	logger.L.Info("User registered", "userID", user.ID, "username", user.Username)
	utils.SendJSON(w, user, http.StatusCreated)
}

func (h *UserHandler) LoginUserHandler(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	user, err := models.GetUserByUsername(database.DB, req.Username)
	if err != nil {
		utils.SendJSONError(w, "Invalid username or password", http.StatusUnauthorized)
		return
	}
	if err := user.CheckPassword(req.Password); err != nil {
		logger.L.Warn("Login failed: bad password", "username", req.Username)
		utils.SendJSONError(w, "Invalid username or password", http.StatusUnauthorized)
		return
	}

	accessToken, err := h.authService.GenerateToken(strconv.FormatInt(user.ID, 10))
	if err != nil {
		logger.L.Error("Failed to generate access token", "userID", user.ID, "error", err)
		utils.SendJSONError(w, "Login failed", http.StatusInternalServerError)
		return
	}
	refreshToken, err := h.authService.GenerateRefreshToken()
	if err != nil {
		logger.L.Error("Failed to generate refresh token", "userID", user.ID, "error", err)
		utils.SendJSONError(w, "Login failed", http.StatusInternalServerError)
		return
	}

	session := &models.Session{
		UserID:       user.ID,
		Token:        accessToken,
		RefreshToken: refreshToken,
		UserAgent:    r.UserAgent(),
		ClientIP:     r.RemoteAddr,
		ExpiresAt:    time.Now().Add(config.Cfg.RefreshTokenExpiry),
		CreatedAt:    time.Now(),
	}
	if err := models.CreateSession(database.DB, session); err != nil {
		logger.L.Error("Failed to create session", "userID", user.ID, "error", err)
		utils.SendJSONError(w, "Login failed", http.StatusInternalServerError)
		return
	}

	logger.L.Info("User logged in", "userID", user.ID)
	utils.SendJSON(w, tokenResponse{AccessToken: accessToken, RefreshToken: refreshToken, User: user}, http.StatusOK)
}

func (h *UserHandler) RefreshTokenHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		utils.SendJSONError(w, "refresh_token is required", http.StatusBadRequest)
		return
	}

	session, err := models.GetSessionByRefreshToken(database.DB, req.RefreshToken)
	if err != nil {
		utils.SendJSONError(w, "Invalid refresh token", http.StatusUnauthorized)
		return
	}
	if time.Now().After(session.ExpiresAt) {
		utils.SendJSONError(w, "Refresh token expired", http.StatusUnauthorized)
		return
	}

	accessToken, err := h.authService.GenerateToken(strconv.FormatInt(session.UserID, 10))
	if err != nil {
		logger.L.Error("Failed to generate access token on refresh", "userID", session.UserID, "error", err)
		utils.SendJSONError(w, "Token refresh failed", http.StatusInternalServerError)
		return
	}
	if err := models.UpdateSessionToken(database.DB, session.ID, accessToken); err != nil {
		logger.L.Error("Failed to update session on refresh", "sessionID", session.ID, "error", err)
		utils.SendJSONError(w, "Token refresh failed", http.StatusInternalServerError)
		return
	}

	utils.SendJSON(w, map[string]string{"access_token": accessToken}, http.StatusOK)
}

func (h *UserHandler) LogoutUserHandler(w http.ResponseWriter, r *http.Request) {
	authHeader := r.Header.Get("Authorization")
	tokenString := strings.TrimPrefix(authHeader, "Bearer ")
	if err := models.DeleteSessionByToken(database.DB, tokenString); err != nil {
		logger.L.Warn("Failed to delete session on logout", "error", err)
	}
	utils.SendJSON(w, map[string]string{"message": "Logged out"}, http.StatusOK)
}

func (h *UserHandler) RequestPasswordResetHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		utils.SendJSONError(w, "email is required", http.StatusBadRequest)
		return
	}

	// Always answer the same way so the endpoint cannot be used to probe for accounts.
	respond := func() {
		utils.SendJSON(w, map[string]string{"message": "If that email is registered, a reset link has been sent."}, http.StatusOK)
	}

	user, err := models.GetUserByEmail(database.DB, strings.TrimSpace(strings.ToLower(req.Email)))
	if err != nil {
		respond()
		return
	}

	token, err := h.authService.GenerateRefreshToken()
	if err != nil {
		logger.L.Error("Failed to generate password reset token", "userID", user.ID, "error", err)
		respond()
		return
	}
	expiresAt := time.Now().Add(config.Cfg.PasswordResetTokenExpiry)
	if _, err := database.DB.Exec(`UPDATE users SET password_reset_token = ?, password_reset_token_expires_at = ? WHERE id = ?`,
		token, expiresAt, user.ID); err != nil {
		logger.L.Error("Failed to store password reset token", "userID", user.ID, "error", err)
		respond()
		return
	}

	go func() {
		if err := h.emailService.SendPasswordResetEmail(user.Email, user.Username, token); err != nil {
			logger.L.Warn("Failed to send password reset email", "userID", user.ID, "error", err)
		}
	}()
	respond()
}

func (h *UserHandler) ResetPasswordHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token       string `json:"token"`
		NewPassword string `json:"new_password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" || len(req.NewPassword) < 8 {
		utils.SendJSONError(w, "token and a new password of at least 8 characters are required", http.StatusBadRequest)
		return
	}

	var userID int64
	var expiresAt time.Time
	err := database.DB.QueryRow(`SELECT id, password_reset_token_expires_at FROM users WHERE password_reset_token = ?`,
		req.Token).Scan(&userID, &expiresAt)
	if err != nil || time.Now().After(expiresAt) {
		utils.SendJSONError(w, "Invalid or expired reset token", http.StatusUnauthorized)
		return
	}

	user := &models.User{}
	if err := user.HashPassword(req.NewPassword); err != nil {
		logger.L.Error("Failed to hash password on reset", "userID", userID, "error", err)
		utils.SendJSONError(w, "Password reset failed", http.StatusInternalServerError)
		return
	}
	if _, err := database.DB.Exec(`
		UPDATE users SET password = ?, password_reset_token = NULL, password_reset_token_expires_at = NULL, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`, user.Password, userID); err != nil {
		logger.L.Error("Failed to update password on reset", "userID", userID, "error", err)
		utils.SendJSONError(w, "Password reset failed", http.StatusInternalServerError)
		return
	}

	logger.L.Info("Password reset completed", "userID", userID)
	utils.SendJSON(w, map[string]string{"message": "Password updated"}, http.StatusOK)
}
