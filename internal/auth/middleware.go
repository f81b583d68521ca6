package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// SessionCookie is the cookie carrying the web session token. The API may
// send the same token as a bearer header instead.
const SessionCookie = "rollbook_session"

const (
	ctxRoleKey = "rollbook.role"
	ctxUserKey = "rollbook.user"
)

// LoginPath is where gates send unauthenticated or unauthorized browsers.
const LoginPath = "/login"

// ResolveSession derives the request's role exactly once, before any gate
// runs. Missing, invalid or expired tokens and any lookup failure all
// resolve to anonymous; role derivation never escalates on error.
func ResolveSession(users UserRepository, signingKey, issuer string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := RoleAnonymous
		var user *PlatformUser

		if token := sessionToken(c); token != "" {
			if claims, err := ParseSession(token, signingKey, issuer); err == nil {
				u, err := users.GetUserByUsername(c.Request.Context(), claims.Username)
				if err == nil && u != nil {
					groups, gerr := users.GroupsOf(c.Request.Context(), u.ID)
					if gerr == nil {
						user = u
						role = ResolveRole(u, groups)
					}
				}
			}
		}

		c.Set(ctxRoleKey, role)
		if user != nil {
			c.Set(ctxUserKey, user)
		}
		c.Next()
	}
}

func sessionToken(c *gin.Context) string {
	if authz := c.GetHeader("Authorization"); authz != "" {
		if strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			return strings.TrimSpace(authz[len("bearer "):])
		}
	}
	if cookie, err := c.Cookie(SessionCookie); err == nil {
		return cookie
	}
	return ""
}

// CurrentRole returns the role resolved for this request.
func CurrentRole(c *gin.Context) Role {
	if v, ok := c.Get(ctxRoleKey); ok {
		if role, ok := v.(Role); ok {
			return role
		}
	}
	return RoleAnonymous
}

// CurrentUser returns the authenticated platform user, or nil.
func CurrentUser(c *gin.Context) *PlatformUser {
	if v, ok := c.Get(ctxUserKey); ok {
		if user, ok := v.(*PlatformUser); ok {
			return user
		}
	}
	return nil
}

// FailMode selects how a gate rejects a request: browsers get a redirect to
// the login page, API callers get a proper status code.
type FailMode int

const (
	FailRedirect FailMode = iota
	FailJSON
)

func deny(c *gin.Context, mode FailMode, role Role) {
	if mode == FailRedirect {
		c.Redirect(http.StatusFound, LoginPath)
		c.Abort()
		return
	}
	if role == RoleAnonymous {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "permission denied"})
}

// RequireAuthenticated passes any resolved role except anonymous.
func RequireAuthenticated(mode FailMode) gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentRole(c) == RoleAnonymous {
			deny(c, mode, RoleAnonymous)
			return
		}
		c.Next()
	}
}

// RequireElevated passes tutors and admins; attendance marking and record
// CRUD sit behind this gate.
func RequireElevated(mode FailMode) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := CurrentRole(c)
		if !role.Elevated() {
			deny(c, mode, role)
			return
		}
		c.Next()
	}
}

// RequireAdmin passes admins only; student, tutor and course CRUD sit
// behind this gate.
func RequireAdmin(mode FailMode) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := CurrentRole(c)
		if role != RoleAdmin {
			deny(c, mode, role)
			return
		}
		c.Next()
	}
}
