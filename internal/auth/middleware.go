package auth

import (
	"net/http"
	"slices"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	"scrapdeal/internal/errors"
	"scrapdeal/internal/logger"
	"scrapdeal/internal/model"
)

const tokenContextKey = "user"

var errUnauthorized = echo.NewHTTPError(http.StatusUnauthorized, errors.ErrorResponse{
	Error: "missing or invalid token",
	Code:  "UNAUTHORIZED",
})

// Middleware verifies the bearer token and stores it on the echo context.
func (s *JWTService) Middleware() echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		SigningKey:    s.secret,
		SigningMethod: jwt.SigningMethodHS256.Alg(),
		ContextKey:    tokenContextKey,
		TokenLookup:   "header:" + echo.HeaderAuthorization + ":Bearer ",
		NewClaimsFunc: func(echo.Context) jwt.Claims {
			return new(Claims)
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return errUnauthorized
		},
	})
}

// RequireRoles admits callers whose token is not revoked and whose role is listed.
// It must run after Middleware.
func RequireRoles(store TokenStoreInterface, roles ...model.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, ok := CurrentUser(c)
			if !ok {
				return errUnauthorized
			}

			ctx := c.Request().Context()
			revoked, _ := store.IsAccessTokenBlacklisted(ctx, claims.ID)
			if revoked {
				return echo.NewHTTPError(http.StatusUnauthorized, errors.ErrorResponse{
					Error: "token has been revoked",
					Code:  "TOKEN_REVOKED",
				})
			}

			if len(roles) > 0 && !slices.Contains(roles, claims.Role) {
				return echo.NewHTTPError(http.StatusForbidden, errors.ErrorResponse{
					Error: "access denied for role " + string(claims.Role),
					Code:  "FORBIDDEN_ROLE",
				})
			}

			c.SetRequest(c.Request().WithContext(logger.WithUserID(ctx, claims.UserID)))
			return next(c)
		}
	}
}

// CurrentUser returns the verified claims of the caller.
func CurrentUser(c echo.Context) (*Claims, bool) {
	token, ok := c.Get(tokenContextKey).(*jwt.Token)
	if !ok {
		return nil, false
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || claims.UserID == "" {
		return nil, false
	}
	return claims, true
}
