package http

import (
	"github.com/gin-gonic/gin"

	"github.com/urbansims/microgreens/internal/domain/auth"
)

const (
	authClaimsKey = "auth_claims"
	authTokenKey  = "auth_token"
)

func setClaims(c *gin.Context, claims auth.Claims, token string) {
	c.Set(authClaimsKey, claims)
	c.Set(authTokenKey, token)
}

func getClaims(c *gin.Context) (auth.Claims, bool) {
	value, ok := c.Get(authClaimsKey)
	if !ok {
		return auth.Claims{}, false
	}
	claims, ok := value.(auth.Claims)
	return claims, ok
}

func getToken(c *gin.Context) string {
	return c.GetString(authTokenKey)
}
