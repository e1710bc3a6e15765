package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/tutora/core/lesson"
)

var contextObjectKey = "object"

// lessonMiddleware loads the :id lesson of the authenticated user into the context.
func lessonMiddleware(svc *lesson.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			owner, err := ownerID(ctx)
			if err != nil {
				return err
			}

			l, err := svc.Get(ctx.Request().Context(), owner, ctx.Param("id"))
			if err != nil {
				if err == lesson.ErrNotFound {
					return errHttpNotFound
				}
				return errors.Wrap(err, "finding lesson by ID")
			}
			ctx.Set(contextObjectKey, l)
			return next(ctx)
		}
	}
}
