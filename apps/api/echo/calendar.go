package echoapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/tutora/core/lesson"
	icalsvc "github.com/trezcool/tutora/services/ical"
)

const (
	calendarMIME = "text/calendar; charset=utf-8"

	calendarPast   = 4 * 7 * 24 * time.Hour
	calendarFuture = 52 * 7 * 24 * time.Hour
)

type calendarApi struct {
	svc     *lesson.Service
	feed    icalsvc.Feed
	nowFunc func() time.Time // mockable
}

func registerCalendarAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *lesson.Service, feed icalsvc.Feed) {
	api := calendarApi{
		svc:     svc,
		feed:    feed,
		nowFunc: time.Now,
	}
	g.GET("/calendar.ics", api.feedHandler, jwt)
}

func (api *calendarApi) feedHandler(ctx echo.Context) error {
	owner, err := ownerID(ctx)
	if err != nil {
		return err
	}

	now := api.nowFunc().UTC()
	from, fromErr := queryTime(ctx, "from", false)
	to, toErr := queryTime(ctx, "to", false)
	if err = fieldErrors(fromErr, toErr); err != nil {
		return err
	}
	if from.IsZero() {
		from = now.Add(-calendarPast)
	}
	if to.IsZero() {
		to = now.Add(calendarFuture)
	}

	lessons, err := api.svc.List(ctx.Request().Context(), owner, from, to)
	if err != nil {
		return errors.Wrap(err, "listing calendar lessons")
	}
	return ctx.Blob(http.StatusOK, calendarMIME, []byte(api.feed.Serialize(lessons, now)))
}
