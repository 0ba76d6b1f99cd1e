package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookworms/internal/apierror"
	"github.com/mrlokans/bookworms/internal/entities"
)

// Context keys for identity data
const (
	ContextKeyUsername = "auth_username"
	ContextKeyRole     = "auth_role"
	ContextKeyClaims   = "auth_claims"
)

// Descriptions used in 401/403 bodies. Token failures all share one message.
const (
	DescriptionMissingToken = "a bearer token is required"
	DescriptionInvalidToken = "the bearer token is invalid or has expired"
	DescriptionForbidden    = "insufficient permissions for this resource"
)

// TokenVerifier is the verification half of the token service.
type TokenVerifier interface {
	VerifyToken(token string) (*Claims, error)
}

// Middleware authenticates requests with bearer tokens.
type Middleware struct {
	verifier    TokenVerifier
	publicPaths map[string]bool
}

// NewMiddleware creates a new authentication middleware.
func NewMiddleware(verifier TokenVerifier) *Middleware {
	publicPaths := map[string]bool{
		"/health":            true,
		"/ping":              true,
		"/api/auth/login":    true,
		"/api/auth/register": true,
	}

	return &Middleware{
		verifier:    verifier,
		publicPaths: publicPaths,
	}
}

// Handler returns a Gin middleware handler that authenticates requests.
// Requests without a valid token get a 401 error body; public paths pass through.
func (m *Middleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m.isPublicPath(c.Request.URL.Path) {
			c.Next()
			return
		}

		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			abortUnauthorized(c, DescriptionMissingToken)
			return
		}

		claims, err := m.verifier.VerifyToken(token)
		if err != nil {
			abortUnauthorized(c, DescriptionInvalidToken)
			return
		}

		setIdentity(c, claims)
		c.Next()
	}
}

// RequireRole returns a middleware that allows only the given roles.
// It must run after Handler.
func (m *Middleware) RequireRole(roles ...entities.UserRole) gin.HandlerFunc {
	roleSet := make(map[entities.UserRole]bool)
	for _, r := range roles {
		roleSet[r] = true
	}

	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil {
			abortUnauthorized(c, DescriptionMissingToken)
			return
		}
		for _, r := range claims.Roles {
			if roleSet[r] {
				c.Next()
				return
			}
		}
		apierror.Abort(c, http.StatusForbidden, DescriptionForbidden)
	}
}

// isPublicPath checks if a path should be accessible without authentication.
func (m *Middleware) isPublicPath(path string) bool {
	return m.publicPaths[strings.TrimSuffix(path, "/")] || m.publicPaths[path]
}

// bearerToken extracts the token from an "Authorization: Bearer <token>" header.
func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

func abortUnauthorized(c *gin.Context, description string) {
	c.Header("WWW-Authenticate", `Bearer realm="bookworms"`)
	apierror.Abort(c, http.StatusUnauthorized, description)
}

// setIdentity stores the verified claims in the Gin context.
func setIdentity(c *gin.Context, claims *Claims) {
	id := claims.Identity()
	c.Set(ContextKeyClaims, claims)
	c.Set(ContextKeyUsername, id.Username)
	c.Set(ContextKeyRole, id.Role)
}

// Helper functions to extract auth data from Gin context

// GetClaims returns the verified token claims, or nil for anonymous requests.
func GetClaims(c *gin.Context) *Claims {
	if v, exists := c.Get(ContextKeyClaims); exists {
		if claims, ok := v.(*Claims); ok {
			return claims
		}
	}
	return nil
}

// GetUsername retrieves the authenticated username from the context.
func GetUsername(c *gin.Context) string {
	if name, exists := c.Get(ContextKeyUsername); exists {
		if username, ok := name.(string); ok {
			return username
		}
	}
	return ""
}

// GetUserRole retrieves the authenticated user's role from the context.
func GetUserRole(c *gin.Context) entities.UserRole {
	if r, exists := c.Get(ContextKeyRole); exists {
		if role, ok := r.(entities.UserRole); ok {
			return role
		}
	}
	return ""
}

// IsAuthenticated returns true if the request carried a valid token.
func IsAuthenticated(c *gin.Context) bool {
	return GetClaims(c) != nil
}
