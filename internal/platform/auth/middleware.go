package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

type contextKey string

const claimsKey contextKey = "auth_claims"

// JWTMiddleware authenticates requests via the Authorization bearer header.
// Missing, malformed, expired, and badly signed tokens all produce the same
// 401 so callers cannot distinguish why a token was refused.
func JWTMiddleware(issuer *TokenIssuer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return unauthorized(c)
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return unauthorized(c)
			}

			claims, err := issuer.Parse(parts[1])
			if err != nil {
				return unauthorized(c)
			}

			ctx := context.WithValue(c.Request().Context(), claimsKey, claims)
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid or expired token"})
}

// RequireRole rejects authenticated requests whose role is not in roles.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims := ActorFromContext(c.Request().Context())
			if claims == nil {
				return unauthorized(c)
			}
			for _, required := range roles {
				if claims.Role == required {
					return next(c)
				}
			}
			return c.JSON(http.StatusForbidden, map[string]string{"error": "insufficient role"})
		}
	}
}

// ActorFromContext returns the authenticated user's claims, or nil for
// unauthenticated requests.
func ActorFromContext(ctx context.Context) *Claims {
	claims, _ := ctx.Value(claimsKey).(*Claims)
	return claims
}

// WithActor places claims on a context. Used by tests to simulate an
// authenticated request without running the middleware.
func WithActor(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}
