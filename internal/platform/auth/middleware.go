package auth

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Claims are the token claims the dashboard understands.
type Claims struct {
	jwt.RegisteredClaims
	Role       string `json:"role"`
	Department string `json:"department,omitempty"`
	GivenName  string `json:"given_name,omitempty"`
	FamilyName string `json:"family_name,omitempty"`
}

// User converts verified claims into the request principal.
func (c *Claims) User() *User {
	return &User{
		ID:         c.Subject,
		Role:       ParseRole(c.Role),
		Department: strings.TrimSpace(c.Department),
		FirstName:  c.GivenName,
		LastName:   c.FamilyName,
	}
}

type JWTConfig struct {
	Issuer   string
	Audience string
	JWKSURL  string
	// SigningKey enables HS256 validation for locally issued tokens.
	SigningKey []byte
	Skipper    middleware.Skipper
}

// JWTMiddleware validates bearer tokens and stores the resulting *User on
// the request context.
func JWTMiddleware(cfg JWTConfig) echo.MiddlewareFunc {
	resolvedJWKSURL := cfg.JWKSURL
	if resolvedJWKSURL == "" && cfg.Issuer != "" && len(cfg.SigningKey) == 0 {
		if u, err := DiscoverJWKSURL(cfg.Issuer); err == nil {
			resolvedJWKSURL = u
		}
	}
	var keyFunc jwt.Keyfunc
	if len(cfg.SigningKey) > 0 {
		keyFunc = func(t *jwt.Token) (interface{}, error) { return cfg.SigningKey, nil }
	} else {
		keyFunc = jwksKeyFunc(resolvedJWKSURL)
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"RS256", "HS256"})}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cfg.Skipper != nil && cfg.Skipper(c) {
				return next(c)
			}

			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
			}

			claims := &Claims{}
			token, err := jwt.ParseWithClaims(parts[1], claims, keyFunc, opts...)
			if err != nil || !token.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}
			if claims.Subject == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "token has no subject")
			}

			req := c.Request()
			c.SetRequest(req.WithContext(WithUser(req.Context(), claims.User())))
			return next(c)
		}
	}
}

// Headers honoured by DevAuthMiddleware.
const (
	DevUserHeader       = "X-Dev-User"
	DevRoleHeader       = "X-Dev-Role"
	DevDepartmentHeader = "X-Dev-Department"
)

// DevAuthMiddleware is a permissive middleware for development. It builds the
// user from the X-Dev-* headers and defaults to an administrator when no role
// header is sent.
func DevAuthMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			u := &User{
				ID:         req.Header.Get(DevUserHeader),
				Role:       RoleAdministrator,
				Department: strings.TrimSpace(req.Header.Get(DevDepartmentHeader)),
				FirstName:  "Dev",
				LastName:   "User",
			}
			if u.ID == "" {
				u.ID = "dev-user"
			}
			if role := req.Header.Get(DevRoleHeader); role != "" {
				u.Role = ParseRole(role)
			}
			c.SetRequest(req.WithContext(WithUser(req.Context(), u)))
			return next(c)
		}
	}
}
