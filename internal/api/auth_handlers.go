package api

import (
	"database/sql"

	"github.com/gofiber/fiber/v2"

	"tempo/internal/auth"
	"tempo/internal/models"
)

// RegisterHandler creates the instance owner. Tempo is a single-user
// dashboard, so registration closes once a user exists.
func RegisterHandler(deps Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req models.RegisterRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		var count int
		if err := deps.DB.QueryRow("SELECT COUNT(*) FROM users").Scan(&count); err != nil {
			return err
		}
		if count > 0 {
			return fiber.NewError(fiber.StatusForbidden, "Registration is closed")
		}

		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			return err
		}

		result, err := deps.DB.Exec(
			"INSERT INTO users (username, password_hash) VALUES (?, ?)",
			req.Username, hash,
		)
		if err != nil {
			return fiber.NewError(fiber.StatusConflict, "Username already taken")
		}

		userID64, _ := result.LastInsertId()
		return respondWithTokens(c, deps, int(userID64), req.Username, fiber.StatusCreated)
	}
}

func LoginHandler(deps Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req models.LoginRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		var userID int
		var passwordHash string
		err := deps.DB.QueryRow(
			"SELECT id, password_hash FROM users WHERE username = ?",
			req.Username,
		).Scan(&userID, &passwordHash)
		if err == sql.ErrNoRows {
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid credentials")
		}
		if err != nil {
			return err
		}

		if err := auth.CheckPassword(passwordHash, req.Password); err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid credentials")
		}

		return respondWithTokens(c, deps, userID, req.Username, fiber.StatusOK)
	}
}

func RefreshTokenHandler(deps Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body struct {
			RefreshToken string `json:"refreshToken"`
		}
		if err := c.BodyParser(&body); err != nil || body.RefreshToken == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Missing refresh token")
		}

		claims, err := deps.Tokens.ValidateRefreshToken(body.RefreshToken)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid refresh token")
		}

		return respondWithTokens(c, deps, claims.UserID, claims.Username, fiber.StatusOK)
	}
}

func respondWithTokens(c *fiber.Ctx, deps Deps, userID int, username string, status int) error {
	token, err := deps.Tokens.GenerateToken(userID, username)
	if err != nil {
		return err
	}
	refresh, err := deps.Tokens.GenerateRefreshToken(userID, username)
	if err != nil {
		return err
	}

	return c.Status(status).JSON(models.AuthResponse{
		Token:        token,
		RefreshToken: refresh,
		User:         models.User{ID: userID, Username: username},
	})
}
