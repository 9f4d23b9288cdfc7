package auth

import (
	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/spec-kit/request-checker/pkg/util/errorutil"
)

// HashSecret hashes a shared secret for INTERNAL_API_SECRET_HASH.
func HashSecret(secret string, cost int) (string, error) {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(secret), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// InternalSecretGuard protects scheduler-facing endpoints with a shared
// bearer secret checked against a bcrypt hash. An empty hash disables the
// check.
func InternalSecretGuard(hash string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if hash == "" {
			return c.Next()
		}
		secret, err := bearerToken(c)
		if err != nil {
			return err
		}
		if bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) != nil {
			return apperrors.NewUnauthorized("invalid internal secret")
		}
		return c.Next()
	}
}
