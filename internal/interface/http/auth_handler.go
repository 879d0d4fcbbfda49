package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/urbansims/microgreens/internal/domain/auth"
)

// Register creates a user account.
func (h *Handler) Register(c *gin.Context) {
	var req auth.RegisterRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.authSvc.Register(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, fromAppError(err, "register_failed"))
		return
	}
	c.JSON(http.StatusCreated, user)
}

// Login exchanges credentials for tokens. The access token is also set as
// a cookie so the HTML dashboard can authenticate.
func (h *Handler) Login(c *gin.Context) {
	var req auth.LoginRequest
	if !bindJSON(c, &req) {
		return
	}
	resp, err := h.authSvc.Login(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, fromAppError(err, "login_failed"))
		return
	}
	h.setSessionCookie(c, resp.Token)
	c.JSON(http.StatusOK, resp)
}

// Refresh issues a new token pair from a refresh token.
func (h *Handler) Refresh(c *gin.Context) {
	var req auth.RefreshRequest
	if !bindJSON(c, &req) {
		return
	}
	resp, err := h.authSvc.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		abortWithError(c, fromAppError(err, "refresh_failed"))
		return
	}
	h.setSessionCookie(c, resp.Token)
	c.JSON(http.StatusOK, resp)
}

// Profile returns the authenticated user.
func (h *Handler) Profile(c *gin.Context) {
	claims, ok := getClaims(c)
	if !ok {
		abortWithError(c, NewHTTPError(http.StatusUnauthorized, "unauthorized", "missing token", nil))
		return
	}
	user, err := h.authSvc.Profile(c.Request.Context(), claims.UserID)
	if err != nil {
		abortWithError(c, fromAppError(err, "fetch_failed"))
		return
	}
	c.JSON(http.StatusOK, user)
}

// UpdatePreferences stores the dashboard mode and default tray size.
func (h *Handler) UpdatePreferences(c *gin.Context) {
	claims, ok := getClaims(c)
	if !ok {
		abortWithError(c, NewHTTPError(http.StatusUnauthorized, "unauthorized", "missing token", nil))
		return
	}
	var req auth.PreferencesRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.authSvc.UpdatePreferences(c.Request.Context(), claims.UserID, req)
	if err != nil {
		abortWithError(c, fromAppError(err, "update_failed"))
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *Handler) setSessionCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookie, token, 0, "/", "", c.Request.TLS != nil, true)
}
