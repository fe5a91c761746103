// middleware/auth.go
package middleware

import (
	"errors"
	"strings"

	"feedquire/logger"

	"github.com/gofiber/fiber/v2"
	jwt "github.com/golang-jwt/jwt/v5"
)

// SessionClaims is the subset of a Supabase access token we read.
type SessionClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// sessionAudience is the aud Supabase stamps on signed-in users' access tokens.
const sessionAudience = "authenticated"

func parseSessionToken(tok string, secret []byte) (*SessionClaims, error) {
	t, err := jwt.ParseWithClaims(tok, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithAudience(sessionAudience))
	if err != nil {
		return nil, err
	}
	c, ok := t.Claims.(*SessionClaims)
	if !ok || !t.Valid {
		return nil, errors.New("invalid token")
	}
	if strings.TrimSpace(c.Subject) == "" {
		return nil, errors.New("token has no subject")
	}
	return c, nil
}

// SessionAuth validates the bearer access token and exposes user_id and email to handlers.
func SessionAuth(secret string, log *logger.Logger) fiber.Handler {
	key := []byte(secret)
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		tok := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		if header == "" || tok == header {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing bearer token",
			})
		}

		claims, err := parseSessionToken(tok, key)
		if err != nil {
			log.Debug("🚫 [SESSION] rejected token", "path", c.Path(), "error", err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid or expired session",
			})
		}

		c.Locals("user_id", claims.Subject)
		c.Locals("email", claims.Email)
		return c.Next()
	}
}

// UserID returns the authenticated caller set by SessionAuth.
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals("user_id").(string)
	return id
}

func Email(c *fiber.Ctx) string {
	email, _ := c.Locals("email").(string)
	return email
}
