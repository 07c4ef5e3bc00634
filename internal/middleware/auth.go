// Package middleware provides the Fiber middleware chain: authentication, rate limiting, tracing and logging.
package middleware

import (
	"errors"
	"strings"

	"fruitmap/internal/auth"
	"fruitmap/internal/models"

	"github.com/gofiber/fiber/v2"
)

// Fiber locals set by RequireAuth.
const (
	LocalUserID = "userID"
	LocalEmail  = "email"
)

// TokenVerifier checks a bearer token and returns its identity.
type TokenVerifier interface {
	VerifyToken(token string) (*auth.Claims, error)
}

// RequireAuth rejects requests without a valid bearer token. A missing token
// and an expired token are 401; any other verification failure is 400.
func RequireAuth(verifier TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearerToken(c.Get(fiber.HeaderAuthorization))
		if token == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Access denied. No token provided."))
		}

		claims, err := verifier.VerifyToken(token)
		if err != nil {
			if errors.Is(err, auth.ErrExpiredToken) {
				return models.RespondWithError(c, fiber.StatusUnauthorized,
					&models.AppError{Code: models.CodeTokenExpired, Message: "Token expired."})
			}
			return models.RespondWithError(c, fiber.StatusBadRequest,
				&models.AppError{Code: models.CodeTokenInvalid, Message: "Invalid token.", Err: err})
		}

		c.Locals(LocalUserID, claims.ID)
		c.Locals(LocalEmail, claims.Email)
		c.SetUserContext(withUserID(c.UserContext(), claims.ID))

		return c.Next()
	}
}

// UserID returns the authenticated user id, or "" outside RequireAuth.
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(LocalUserID).(string)
	return id
}

func bearerToken(header string) string {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}
