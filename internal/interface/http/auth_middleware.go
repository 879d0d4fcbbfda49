package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/urbansims/microgreens/internal/domain/auth"
	apperrors "github.com/urbansims/microgreens/pkg/errors"
)

const sessionCookie = "access_token"

// authMiddleware accepts a bearer header or, for browser pages, the
// session cookie set at login.
func authMiddleware(svc auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, httpErr := extractToken(c)
		if httpErr != nil {
			abortWithError(c, httpErr)
			return
		}
		claims, err := svc.ValidateToken(c.Request.Context(), token)
		if err != nil {
			status := http.StatusUnauthorized
			code := apperrors.CodeInvalidToken
			if !apperrors.IsCode(err, apperrors.CodeInvalidToken) {
				status = http.StatusInternalServerError
				code = "auth_failed"
			}
			abortWithError(c, NewHTTPError(status, code, errMessage(err), err))
			return
		}
		setClaims(c, claims, token)
		c.Next()
	}
}

func extractToken(c *gin.Context) (string, *HTTPError) {
	header := c.GetHeader("Authorization")
	if header == "" {
		if cookie, err := c.Cookie(sessionCookie); err == nil && strings.TrimSpace(cookie) != "" {
			return strings.TrimSpace(cookie), nil
		}
		return "", NewHTTPError(http.StatusUnauthorized, "unauthorized", "missing authorization header", nil)
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", NewHTTPError(http.StatusUnauthorized, "unauthorized", "invalid authorization header", nil)
	}
	return strings.TrimSpace(parts[1]), nil
}
