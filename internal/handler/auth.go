package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rollbook/internal/auth"
)

type loginRequest struct {
	Role       string `form:"role" json:"role" binding:"required"`
	Identifier string `form:"identifier" json:"identifier" binding:"required"`
	Passport   string `form:"passport" json:"passport" binding:"required"`
}

// sessionFor re-derives the user's role from current group membership and
// issues a session token for it.
func (h *Handler) sessionFor(c *gin.Context, user *auth.PlatformUser) (string, auth.Role, error) {
	groups, err := h.users.GroupsOf(c.Request.Context(), user.ID)
	if err != nil {
		return "", auth.RoleAnonymous, err
	}
	role := auth.ResolveRole(user, groups)
	token, _, err := auth.IssueSession(user.Username, role, h.cfg.JWTIssuer, h.cfg.JWTSigningKey, h.cfg.SessionTTL)
	return token, role, err
}

// LoginPage renders the login form.
func (h *Handler) LoginPage(c *gin.Context) {
	h.render(c, http.StatusOK, "login.html", gin.H{})
}

// Login authenticates a browser login and sets the session cookie. Any
// failure renders the same generic message.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBind(&req); err != nil {
		h.render(c, http.StatusBadRequest, "login.html", gin.H{"Error": "all fields are required"})
		return
	}

	user, err := h.backend.Login(c.Request.Context(), req.Identifier, req.Passport, auth.Role(req.Role))
	if err != nil {
		h.render(c, http.StatusUnauthorized, "login.html", gin.H{"Error": auth.ErrAuthFailed.Error()})
		return
	}
	token, role, err := h.sessionFor(c, user)
	if err != nil {
		h.render(c, http.StatusInternalServerError, "login.html", gin.H{"Error": "login failed, try again"})
		return
	}

	c.SetCookie(auth.SessionCookie, token, int(h.cfg.SessionTTL.Seconds()), "/", "", false, true)
	switch role {
	case auth.RoleStudent:
		c.Redirect(http.StatusFound, "/my-attendance")
	case auth.RoleTutor:
		c.Redirect(http.StatusFound, "/mark-attendance")
	default:
		c.Redirect(http.StatusFound, "/")
	}
}

// Logout clears the session cookie.
func (h *Handler) Logout(c *gin.Context) {
	c.SetCookie(auth.SessionCookie, "", -1, "/", "", false, true)
	c.Redirect(http.StatusFound, "/")
}

// APILogin authenticates a JSON login and returns a bearer token.
func (h *Handler) APILogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.backend.Login(c.Request.Context(), req.Identifier, req.Passport, auth.Role(req.Role))
	if err != nil {
		h.apiError(c, err)
		return
	}
	token, role, err := h.sessionFor(c, user)
	if err != nil {
		h.apiError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token":    token,
		"username": user.Username,
		"role":     role,
	})
}
