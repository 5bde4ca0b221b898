package handlers

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/workos/workos-go/v4/pkg/usermanagement"
	"go.uber.org/zap"

	"github.com/clinware/backend/config"
	"github.com/clinware/backend/middleware"
	"github.com/clinware/backend/models"
)

// SessionCookieName is the cookie carrying the Redis session ID.
const SessionCookieName = "clinic_session"

// AuthHandler drives the hosted AuthKit login flow and session lifecycle.
type AuthHandler struct {
	config *config.Config
	redis  *redis.Client
	pgPool *pgxpool.Pool
	logger *zap.Logger
}

func NewAuthHandler(cfg *config.Config, redisClient *redis.Client, pgPool *pgxpool.Pool, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		config: cfg,
		redis:  redisClient,
		pgPool: pgPool,
		logger: logger,
	}
}

// Login handles GET /auth/login. Stores an anti-replay state in Redis and
// returns the hosted login URL.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	state := uuid.New().String()

	stateKey := fmt.Sprintf("auth_state:%s", state)
	stateData := map[string]interface{}{
		"createdAt": time.Now(),
		"ip":        c.IP(),
		"userAgent": c.Get("User-Agent"),
	}
	stateJSON, err := json.Marshal(stateData)
	if err != nil {
		h.logger.Error("failed to marshal state data", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(
			NewErrorResponse("INTERNAL_ERROR", "Internal server error"))
	}
	if err := h.redis.Set(c.Context(), stateKey, stateJSON, 10*time.Minute).Err(); err != nil {
		h.logger.Error("failed to store state in redis", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(
			NewErrorResponse("INTERNAL_ERROR", "Internal server error"))
	}

	authURL, err := usermanagement.GetAuthorizationURL(usermanagement.GetAuthorizationURLOpts{
		ClientID:    h.config.WorkOSClientId,
		RedirectURI: h.config.WorkOSRedirectURI,
		Provider:    "authkit",
		State:       state,
	})
	if err != nil {
		h.logger.Error("failed to build authorization URL", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(
			NewErrorResponse("INTERNAL_ERROR", "Login service temporarily unavailable"))
	}

	return c.JSON(fiber.Map{"loginUrl": authURL.String()})
}

// Callback handles GET /auth/callback?code=&state=. Exchanges the code,
// upserts the user record and creates a Redis-backed session.
func (h *AuthHandler) Callback(c *fiber.Ctx) error {
	ctx := c.Context()
	code := c.Query("code")
	state := c.Query("state")

	if code == "" || state == "" {
		h.logger.Warn("missing code or state in callback",
			zap.String("ip", c.IP()),
			zap.String("user_agent", c.Get("User-Agent")))
		return c.Status(fiber.StatusBadRequest).JSON(
			NewErrorResponse("INVALID_CALLBACK", "Missing code or state"))
	}

	stateKey := fmt.Sprintf("auth_state:%s", state)
	if _, err := h.redis.Get(ctx, stateKey).Bytes(); err != nil {
		h.logger.Error("failed to get state data", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(
			NewErrorResponse("INVALID_STATE", "Invalid state"))
	}
	// Delete state immediately to prevent replay
	h.redis.Del(ctx, stateKey)

	resp, err := usermanagement.AuthenticateWithCode(ctx, usermanagement.AuthenticateWithCodeOpts{
		ClientID:  h.config.WorkOSClientId,
		Code:      code,
		IPAddress: c.IP(),
		UserAgent: c.Get("User-Agent"),
	})
	if err != nil {
		h.logger.Error("failed to exchange code", zap.Error(err))
		return c.Status(fiber.StatusUnauthorized).JSON(
			NewErrorResponse("AUTH_FAILED", "Failed to authenticate"))
	}

	fullName := strings.TrimSpace(resp.User.FirstName + " " + resp.User.LastName)
	role, err := h.upsertUser(c, resp.User.ID, resp.User.Email, fullName)
	if err != nil {
		h.logger.Error("failed to upsert user record",
			zap.String("auth_id", resp.User.ID),
			zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(
			NewErrorResponse("INTERNAL_ERROR", "Failed to create user record"))
	}

	sessionID := uuid.New().String()
	sessionKey := fmt.Sprintf("session:%s", sessionID)
	duration := time.Duration(h.config.SessionDurationHours) * time.Hour

	sessionData := middleware.SessionData{
		SessionID: sessionID,
		AuthID:    resp.User.ID,
		Email:     resp.User.Email,
		Name:      fullName,
		Role:      role,
		ExpiresAt: time.Now().Add(duration),
		CreatedAt: time.Now(),
	}
	sessionJSON, err := json.Marshal(sessionData)
	if err != nil {
		h.logger.Error("failed to marshal session data", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(
			NewErrorResponse("INTERNAL_ERROR", "Internal server error"))
	}
	if err := h.redis.Set(ctx, sessionKey, sessionJSON, duration).Err(); err != nil {
		h.logger.Error("failed to store session in redis", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(
			NewErrorResponse("INTERNAL_ERROR", "Internal server error"))
	}

	c.Cookie(&fiber.Cookie{
		Name:     SessionCookieName,
		Value:    sessionID,
		Expires:  time.Now().Add(duration),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
		Domain:   h.config.CookieDomain,
		Path:     "/",
	})

	h.logger.Info("user logged in",
		zap.String("auth_id", resp.User.ID),
		zap.String("role", role))

	return c.JSON(fiber.Map{
		"session": sessionID,
		"user": fiber.Map{
			"id":    resp.User.ID,
			"email": resp.User.Email,
			"name":  fullName,
			"role":  role,
		},
	})
}

// upsertUser inserts or refreshes the Postgres user row and returns the
// stored role. New users start as regular users.
func (h *AuthHandler) upsertUser(c *fiber.Ctx, authID, email, name string) (string, error) {
	var role string
	err := h.pgPool.QueryRow(c.Context(),
		`INSERT INTO users (user_id, auth_id, email, name, role, created_at)
		 VALUES ($1, $2, $3, $4, $5, NOW())
		 ON CONFLICT (auth_id) DO UPDATE
		 SET email = EXCLUDED.email, name = EXCLUDED.name, updated_at = NOW()
		 RETURNING role`,
		uuid.New(), authID, email, name, models.RoleUser,
	).Scan(&role)
	if err != nil {
		return "", err
	}
	return role, nil
}

// Logout handles POST /auth/logout
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	sessionID := c.Cookies(SessionCookieName)
	if sessionID != "" {
		h.redis.Del(c.Context(), fmt.Sprintf("session:%s", sessionID))
	}

	c.Cookie(&fiber.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Expires:  time.Now().Add(-1 * time.Hour),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
		Domain:   h.config.CookieDomain,
		Path:     "/",
	})

	return c.JSON(fiber.Map{"message": "Logged out successfully"})
}

// Me handles GET /api/auth/me and echoes the authenticated identity.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"auth_id": c.Locals("authID"),
		"email":   c.Locals("email"),
		"name":    c.Locals("name"),
		"role":    c.Locals("role"),
	})
}
