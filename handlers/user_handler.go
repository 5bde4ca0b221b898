package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/workos/workos-go/v4/pkg/usermanagement"
	"go.uber.org/zap"

	"github.com/clinware/backend/config"
	"github.com/clinware/backend/models"
)

// UserHandler manages the Postgres-backed account records that sit behind
// the auth identities.
type UserHandler struct {
	config *config.Config
	pgPool *pgxpool.Pool
	logger *zap.Logger
}

func NewUserHandler(cfg *config.Config, pgPool *pgxpool.Pool, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		config: cfg,
		pgPool: pgPool,
		logger: logger,
	}
}

func (h *UserHandler) getUserByAuthID(ctx context.Context, authID string) (*models.User, error) {
	var user models.User
	var mobile *string
	var updatedAt *time.Time
	err := h.pgPool.QueryRow(ctx,
		`SELECT user_id, auth_id, email, name, role, mobile, created_at, updated_at
		 FROM users WHERE auth_id = $1`,
		authID,
	).Scan(&user.UserID, &user.AuthID, &user.Email, &user.Name, &user.Role, &mobile, &user.CreatedAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	if mobile != nil {
		user.Mobile = *mobile
	}
	if updatedAt != nil {
		user.UpdatedAt = *updatedAt
	}
	return &user, nil
}

// GetProfile handles GET /api/users/me
func (h *UserHandler) GetProfile(c *fiber.Ctx) error {
	authID, _ := c.Locals("authID").(string)

	user, err := h.getUserByAuthID(c.Context(), authID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return c.Status(fiber.StatusNotFound).JSON(
				NewErrorResponse("USER_NOT_FOUND", "User record not found"))
		}
		h.logger.Error("failed to fetch user profile",
			zap.String("auth_id", authID),
			zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(
			NewErrorResponse("INTERNAL_ERROR", "Failed to fetch profile"))
	}

	return c.JSON(user)
}

type updateProfileRequest struct {
	Name   string `json:"name"`
	Mobile string `json:"mobile"`
}

// UpdateProfile handles PUT /api/users/me. Name changes propagate to the
// identity provider so the hosted login screen stays consistent.
func (h *UserHandler) UpdateProfile(c *fiber.Ctx) error {
	authID, _ := c.Locals("authID").(string)

	var req updateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(
			NewErrorResponse("INVALID_BODY", "Invalid request body"))
	}
	if req.Name == "" && req.Mobile == "" {
		return c.Status(fiber.StatusBadRequest).JSON(
			NewErrorResponse("EMPTY_UPDATE", "No fields to update"))
	}

	_, err := h.pgPool.Exec(c.Context(),
		`UPDATE users
		 SET name = COALESCE(NULLIF($1, ''), name),
		     mobile = COALESCE(NULLIF($2, ''), mobile),
		     updated_at = NOW()
		 WHERE auth_id = $3`,
		req.Name, req.Mobile, authID)
	if err != nil {
		h.logger.Error("failed to update profile",
			zap.String("auth_id", authID),
			zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(
			NewErrorResponse("INTERNAL_ERROR", "Failed to update profile"))
	}

	if req.Name != "" {
		if _, err := usermanagement.UpdateUser(c.Context(), usermanagement.UpdateUserOpts{
			User:      authID,
			FirstName: req.Name,
		}); err != nil {
			h.logger.Warn("failed to propagate name to identity provider",
				zap.String("auth_id", authID),
				zap.Error(err))
		}
	}

	return c.JSON(fiber.Map{"message": "Profile updated successfully"})
}

// ListUsers handles GET /api/users
func (h *UserHandler) ListUsers(c *fiber.Ctx) error {
	if !requireAdmin(c) {
		return nil
	}

	rows, err := h.pgPool.Query(c.Context(),
		`SELECT user_id, auth_id, email, name, role, COALESCE(mobile, ''), created_at
		 FROM users ORDER BY created_at DESC LIMIT 200`)
	if err != nil {
		h.logger.Error("failed to list users", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(
			NewErrorResponse("INTERNAL_ERROR", "Failed to fetch users"))
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var user models.User
		if err := rows.Scan(&user.UserID, &user.AuthID, &user.Email, &user.Name, &user.Role, &user.Mobile, &user.CreatedAt); err != nil {
			h.logger.Error("failed to scan user row", zap.Error(err))
			continue
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		h.logger.Error("error during user row iteration", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(
			NewErrorResponse("INTERNAL_ERROR", "Error while reading users"))
	}

	return c.JSON(fiber.Map{
		"users": users,
		"count": len(users),
	})
}

type setRoleRequest struct {
	Role string `json:"role"`
}

// SetRole handles PUT /api/users/:authID/role. Only full admins may grant
// roles, and nobody can demote themselves.
func (h *UserHandler) SetRole(c *fiber.Ctx) error {
	actor := actorFromCtx(c)
	if actor.Role != models.RoleAdmin {
		return c.Status(fiber.StatusForbidden).JSON(
			NewErrorResponse("NOT_AUTHORIZED", "Administrator access required"))
	}

	targetAuthID := c.Params("authID")
	if targetAuthID == actor.AuthID {
		return c.Status(fiber.StatusBadRequest).JSON(
			NewErrorResponse("INVALID_TARGET", "You cannot change your own role"))
	}

	var req setRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(
			NewErrorResponse("INVALID_BODY", "Invalid request body"))
	}
	switch req.Role {
	case models.RoleAdmin, models.RoleStaff, models.RoleUser:
	default:
		return c.Status(fiber.StatusBadRequest).JSON(
			NewErrorResponse("INVALID_ROLE", "Unknown role"))
	}

	tag, err := h.pgPool.Exec(c.Context(),
		`UPDATE users SET role = $1, updated_at = NOW() WHERE auth_id = $2`,
		req.Role, targetAuthID)
	if err != nil {
		h.logger.Error("failed to set role",
			zap.String("auth_id", targetAuthID),
			zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(
			NewErrorResponse("INTERNAL_ERROR", "Failed to update role"))
	}
	if tag.RowsAffected() == 0 {
		return c.Status(fiber.StatusNotFound).JSON(
			NewErrorResponse("USER_NOT_FOUND", "User record not found"))
	}

	h.logger.Info("user role changed",
		zap.String("auth_id", targetAuthID),
		zap.String("role", req.Role),
		zap.String("changed_by", actor.AuthID))

	return c.JSON(fiber.Map{"message": "Role updated successfully"})
}
