package echoapi

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/tutora/core"
)

const dateLayout = "2006-01-02"

// queryTime parses an RFC 3339 query param. A missing param yields the zero time unless required.
func queryTime(ctx echo.Context, name string, required bool) (time.Time, *core.FieldError) {
	raw := ctx.QueryParam(name)
	if raw == "" {
		if required {
			return time.Time{}, &core.FieldError{Field: name, Error: name + " is a required field"}
		}
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, &core.FieldError{Field: name, Error: name + " must be an RFC 3339 date-time"}
	}
	return t, nil
}

// queryDate accepts an RFC 3339 date-time or a plain date in loc.
func queryDate(ctx echo.Context, name string, loc *time.Location) (time.Time, *core.FieldError) {
	raw := ctx.QueryParam(name)
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.ParseInLocation(dateLayout, raw, loc); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t, nil
	}
	return time.Time{}, &core.FieldError{Field: name, Error: name + " must be a date or an RFC 3339 date-time"}
}

// queryBool parses an optional boolean query param; missing means false.
func queryBool(ctx echo.Context, name string) (bool, *core.FieldError) {
	raw := ctx.QueryParam(name)
	if raw == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, &core.FieldError{Field: name, Error: name + " must be a boolean"}
	}
	return b, nil
}

// fieldErrors drops the nil entries; nil when none is left.
func fieldErrors(errs ...*core.FieldError) error {
	var flds []core.FieldError
	for _, e := range errs {
		if e != nil {
			flds = append(flds, *e)
		}
	}
	if len(flds) == 0 {
		return nil
	}
	return core.NewValidationError(nil, flds...)
}
