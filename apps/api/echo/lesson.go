package echoapi

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/tutora/core/lesson"
)

var errLessonNotFoundInCtx = errors.New("lesson object not found in echo.Context")

type lessonApi struct {
	svc      *lesson.Service
	validate *validator.Validate
	nowFunc  func() time.Time // mockable
}

func registerLessonAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *lesson.Service, validate *validator.Validate) {
	api := lessonApi{
		svc:      svc,
		validate: validate,
		nowFunc:  time.Now,
	}

	lg := g.Group("/lessons", jwt)
	lg.GET("", api.query)
	lg.POST("", api.create)
	lg.GET("/week", api.week)
	lg.GET("/series/:id", api.series)

	// detail endpoints
	lg.GET("/:id", api.retrieve, lessonMiddleware(svc))
	lg.PUT("/:id", api.update, lessonMiddleware(svc))
	lg.DELETE("/:id", api.destroy)
	lg.POST("/:id/complete", api.complete)
}

// WeekRequest selects the Monday-to-Sunday week containing Date, as seen in TZ (default UTC).
type WeekRequest struct {
	Date string `query:"date"`
	TZ   string `query:"tz" validate:"omitempty,timezone"`
}

// Handlers

func (api *lessonApi) query(ctx echo.Context) error {
	owner, err := ownerID(ctx)
	if err != nil {
		return err
	}

	start, startErr := queryTime(ctx, "start", true)
	end, endErr := queryTime(ctx, "end", true)
	if err = fieldErrors(startErr, endErr); err != nil {
		return err
	}
	if err = (lesson.ListRequest{Start: start, End: end}).Validate(api.validate); err != nil {
		return err
	}

	lessons, err := api.svc.List(ctx.Request().Context(), owner, start, end)
	if err != nil {
		return errors.Wrap(err, "listing lessons")
	}
	return ctx.JSON(http.StatusOK, lessons)
}

func (api *lessonApi) week(ctx echo.Context) error {
	owner, err := ownerID(ctx)
	if err != nil {
		return err
	}

	var data WeekRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to WeekRequest")
	}
	if err = api.validate.Struct(data); err != nil {
		return err
	}
	loc := time.UTC
	if data.TZ != "" {
		if loc, err = time.LoadLocation(data.TZ); err != nil {
			return errors.Wrap(err, "loading location")
		}
	}

	day, dayErr := queryDate(ctx, "date", loc)
	if dayErr != nil {
		return fieldErrors(dayErr)
	}
	if day.IsZero() {
		day = api.nowFunc()
	}

	lessons, err := api.svc.ListWeek(ctx.Request().Context(), owner, day, loc)
	if err != nil {
		return errors.Wrap(err, "listing week lessons")
	}
	return ctx.JSON(http.StatusOK, lessons)
}

func (api *lessonApi) create(ctx echo.Context) error {
	owner, err := ownerID(ctx)
	if err != nil {
		return err
	}

	var data lesson.NewLesson
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewLesson")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	lessons, err := api.svc.Create(ctx.Request().Context(), owner, data)
	if err != nil {
		return errors.Wrap(err, "creating lesson")
	}
	return ctx.JSON(http.StatusCreated, lessons)
}

func (api *lessonApi) series(ctx echo.Context) error {
	owner, err := ownerID(ctx)
	if err != nil {
		return err
	}

	summary, err := api.svc.Series(ctx.Request().Context(), owner, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "summarizing series")
	}
	return ctx.JSON(http.StatusOK, summary)
}

func (api *lessonApi) retrieve(ctx echo.Context) error {
	l, ok := ctx.Get(contextObjectKey).(lesson.Lesson)
	if !ok {
		return errors.Wrap(errLessonNotFoundInCtx, "retrieving object from context")
	}
	return ctx.JSON(http.StatusOK, l)
}

func (api *lessonApi) update(ctx echo.Context) error {
	l, ok := ctx.Get(contextObjectKey).(lesson.Lesson)
	if !ok {
		return errors.Wrap(errLessonNotFoundInCtx, "retrieving object from context")
	}

	var data lesson.UpdateLesson
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateLesson")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	l, err := api.svc.Update(ctx.Request().Context(), l.OwnerID, l.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating lesson")
	}
	return ctx.JSON(http.StatusOK, l)
}

func (api *lessonApi) destroy(ctx echo.Context) error {
	owner, err := ownerID(ctx)
	if err != nil {
		return err
	}

	wholeSeries, seriesErr := queryBool(ctx, "series")
	if err = fieldErrors(seriesErr); err != nil {
		return err
	}

	if _, err = api.svc.Delete(ctx.Request().Context(), owner, ctx.Param("id"), wholeSeries); err != nil {
		return errors.Wrap(err, "deleting lesson")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *lessonApi) complete(ctx echo.Context) error {
	owner, err := ownerID(ctx)
	if err != nil {
		return err
	}

	if err = api.svc.Complete(ctx.Request().Context(), owner, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "completing lesson")
	}
	return ctx.NoContent(http.StatusNoContent)
}
