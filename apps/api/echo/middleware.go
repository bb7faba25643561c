package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"github.com/trezcool/kia/core/user"
)

// tokenTypeMiddleware rejects tokens issued for another purpose.
func tokenTypeMiddleware(typ string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.Type != typ {
				return errWrongTokenType
			}
			return next(ctx)
		}
	}
}

// parentMiddleware loads the token owner into the context. The owner must be an active parent.
func parentMiddleware(svc user.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			id, err := claims.UserID()
			if err != nil {
				return errUnauthorized
			}

			usr, err := svc.GetByID(ctx.Request().Context(), id)
			if err != nil {
				if errors.Cause(err) == user.ErrNotFound {
					return errUnauthorized
				}
				return errors.Wrap(err, "finding user by ID")
			}
			if !usr.IsActive {
				return errAccountDeactivated
			}
			if !usr.IsParent() {
				return errParentsOnly
			}
			ctx.Set(contextUserKey, usr)
			return next(ctx)
		}
	}
}

// rateLimitMiddleware limits requests per client IP; a non-positive limit disables it.
func rateLimitMiddleware(perSecond float64) echo.MiddlewareFunc {
	if perSecond <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(rate.Limit(perSecond)))
}
