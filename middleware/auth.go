package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/clinware/backend/config"
	"github.com/clinware/backend/models"
)

// SessionData is the record the auth handler stores in Redis after a
// successful console login.
type SessionData struct {
	SessionID string    `json:"session_id"`
	AuthID    string    `json:"auth_id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// AuthMiddleware verifies the caller's credential and exposes the actor
// identity (authID, email, role, name) via request locals. Two credential
// forms are accepted: a JWT verified against the configured JWKS endpoint,
// or a session ID resolved in Redis.
type AuthMiddleware struct {
	logger     *zap.Logger
	redis      *redis.Client
	jwks       *keyfunc.JWKS
	config     *config.Config
	cookieName string
}

func NewAuthMiddleware(logger *zap.Logger, redisClient *redis.Client, cfg *config.Config, cookieName string) (*AuthMiddleware, error) {
	m := &AuthMiddleware{
		logger:     logger,
		redis:      redisClient,
		config:     cfg,
		cookieName: cookieName,
	}

	if cfg.JWKSURL != "" {
		jwks, err := keyfunc.Get(cfg.JWKSURL, keyfunc.Options{
			RefreshInterval:   time.Hour,
			RefreshRateLimit:  time.Minute,
			RefreshUnknownKID: true,
			RefreshErrorHandler: func(err error) {
				logger.Warn("jwks refresh failed", zap.Error(err))
			},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to load JWKS from %s: %w", cfg.JWKSURL, err)
		}
		m.jwks = jwks
	}

	return m, nil
}

func (m *AuthMiddleware) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var credential string

		// Try Authorization header first
		auth := c.Get("Authorization")
		if auth != "" && strings.HasPrefix(auth, "Bearer ") {
			credential = strings.TrimPrefix(auth, "Bearer ")
		}

		// Fall back to cookie
		if credential == "" {
			credential = c.Cookies(m.cookieName)
		}

		if credential == "" {
			m.logger.Debug("no authentication found", zap.String("path", c.Path()))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Authentication required",
				"code":  "NO_SESSION",
			})
		}

		// A credential with two dots is a JWT; everything else is treated
		// as a Redis session ID.
		if strings.Count(credential, ".") == 2 && m.jwks != nil {
			if err := m.verifyJWT(c, credential); err != nil {
				m.logger.Debug("jwt verification failed",
					zap.String("path", c.Path()),
					zap.Error(err))
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": "Invalid or expired token",
					"code":  "TOKEN_INVALID",
				})
			}
			return c.Next()
		}

		session, err := m.validateSession(c.Context(), credential)
		if err != nil {
			m.logger.Debug("invalid session",
				zap.String("path", c.Path()),
				zap.Error(err))

			// Clear invalid cookie
			c.Cookie(&fiber.Cookie{
				Name:     m.cookieName,
				Value:    "",
				Expires:  time.Now().Add(-1 * time.Hour),
				HTTPOnly: true,
				Secure:   true,
				SameSite: "Lax",
				Path:     "/",
			})

			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired session",
				"code":  "SESSION_INVALID",
			})
		}

		c.Locals("authID", session.AuthID)
		c.Locals("email", session.Email)
		c.Locals("role", session.Role)
		c.Locals("name", session.Name)
		c.Locals("sessionID", credential)

		return c.Next()
	}
}

func (m *AuthMiddleware) verifyJWT(c *fiber.Ctx, token string) error {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"RS256", "ES256"})}
	if m.config.ExpectedIssuer != "" {
		opts = append(opts, jwt.WithIssuer(m.config.ExpectedIssuer))
	}
	if m.config.ExpectedAudience != "" {
		opts = append(opts, jwt.WithAudience(m.config.ExpectedAudience))
	}

	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, m.jwks.Keyfunc, opts...)
	if err != nil {
		return fmt.Errorf("parse token: %w", err)
	}
	if !parsed.Valid {
		return fmt.Errorf("token is not valid")
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return fmt.Errorf("token has no subject")
	}
	email, _ := claims["email"].(string)
	name, _ := claims["name"].(string)
	role, _ := claims["role"].(string)
	if role == "" {
		role = models.RoleUser
	}

	c.Locals("authID", sub)
	c.Locals("email", email)
	c.Locals("role", role)
	c.Locals("name", name)

	return nil
}

func (m *AuthMiddleware) validateSession(ctx context.Context, sessionID string) (*SessionData, error) {
	sessionKey := fmt.Sprintf("session:%s", sessionID)
	sessionBytes, err := m.redis.Get(ctx, sessionKey).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("session not found")
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var sessionData SessionData
	if err := json.Unmarshal(sessionBytes, &sessionData); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	if time.Now().After(sessionData.ExpiresAt) {
		m.redis.Del(ctx, sessionKey)
		return nil, fmt.Errorf("session expired")
	}

	return &sessionData, nil
}
