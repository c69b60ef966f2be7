package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/memorylane/internal/common"
	"github.com/dmitrijs2005/memorylane/internal/server/auth"
)

const identityKey = "memorylane.identity"

// TokenVerifier checks an access token and returns the caller.
type TokenVerifier interface {
	Verify(ctx context.Context, accessToken string) (auth.Identity, error)
}

// RequireAuth rejects requests without a valid bearer token.
func RequireAuth(v TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		if !authenticate(c, v, token) {
			return
		}
		c.Next()
	}
}

// OptionalAuth lets anonymous requests through. A token that is present
// must still be valid.
func OptionalAuth(v TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if ok && !authenticate(c, v, token) {
			return
		}
		c.Next()
	}
}

func authenticate(c *gin.Context, v TokenVerifier, token string) bool {
	id, err := v.Verify(c.Request.Context(), token)
	switch {
	case err == nil:
	case errors.Is(err, common.ErrTokenExpired):
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token expired"})
		return false
	case errors.Is(err, common.ErrInvalidToken):
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return false
	default:
		_ = c.Error(err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return false
	}
	c.Set(identityKey, id)
	return true
}

func bearerToken(c *gin.Context) (string, bool) {
	h := c.GetHeader(common.AccessTokenHeaderName)
	scheme, token, found := strings.Cut(h, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// CurrentIdentity returns the authenticated caller, if any.
func CurrentIdentity(c *gin.Context) (auth.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return auth.Identity{}, false
	}
	id, ok := v.(auth.Identity)
	return id, ok
}

// CurrentUserID is the caller's id, or "" for anonymous requests.
func CurrentUserID(c *gin.Context) string {
	id, _ := CurrentIdentity(c)
	return id.UserID
}
