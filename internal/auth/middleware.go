package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	apperrors "github.com/bbn-music/community-bot/pkg/util/errorutil"
)

const claimsKey = "auth_claims"

// TranscriptAccess validates the signed link token for /transcripts/:id. The
// token is read from the token query parameter or a bearer header and must
// be issued for the transcript in the path.
func TranscriptAccess(tokens *TokenManager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := c.Query("token")
		if raw == "" {
			authHeader := c.Get("Authorization")
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
				raw = parts[1]
			}
		}
		if raw == "" {
			return apperrors.NewUnauthorized("missing transcript token")
		}

		claims, err := tokens.ParseToken(raw)
		if err != nil {
			return apperrors.NewUnauthorized("invalid token")
		}
		if claims.TranscriptID != c.Params("id") {
			return apperrors.NewUnauthorized("token not valid for this transcript")
		}

		c.Locals(claimsKey, claims)
		return c.Next()
	}
}

// ClaimsFromContext retrieves the validated link claims.
func ClaimsFromContext(c *fiber.Ctx) (*Claims, bool) {
	val := c.Locals(claimsKey)
	if val == nil {
		return nil, false
	}
	claims, ok := val.(*Claims)
	return claims, ok
}
