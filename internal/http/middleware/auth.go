// README: Credential-token authentication.
package middleware

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"

	"epsilon/internal/apperr"
	"epsilon/internal/clock"
	"epsilon/internal/modules/user"
)

// userIDKey is where the authenticated user id lands in the gin context.
const userIDKey = "auth.userID"

// CredentialStore resolves an opaque token to a stored credential.
type CredentialStore interface {
	LookupCredential(ctx context.Context, token string) (*user.Credential, error)
}

// Auth resolves the Authorization header to a user id. Missing, unknown, or
// expired tokens end the request with 401.
func Auth(store CredentialStore, clk clock.Clock) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader("Authorization")
		if token == "" {
			abort(c, apperr.Unauthorized("No header"))
			return
		}

		credential, err := store.LookupCredential(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				err = apperr.Unauthorized("No credential")
			}
			abort(c, err)
			return
		}
		if !clk.Now().Before(credential.Expires) {
			abort(c, apperr.Unauthorized("Credential was past its deadline"))
			return
		}

		c.Set(userIDKey, credential.UserID)
		c.Next()
	}
}

// UserID returns the authenticated user id set by Auth.
func UserID(c *gin.Context) string {
	return c.GetString(userIDKey)
}

func abort(c *gin.Context, err error) {
	c.AbortWithStatusJSON(apperr.HTTPStatus(err), gin.H{"error": err.Error()})
}
