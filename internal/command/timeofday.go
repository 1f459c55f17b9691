package command

import (
	"context"
	"fmt"
	"time"
)

type locationKey struct{}

// WithLocation attaches the caller's time zone; time answers are rendered in it.
func WithLocation(ctx context.Context, loc *time.Location) context.Context {
	if loc == nil {
		return ctx
	}
	return context.WithValue(ctx, locationKey{}, loc)
}

// LocationFrom returns the zone set by WithLocation, or nil.
func LocationFrom(ctx context.Context) *time.Location {
	loc, _ := ctx.Value(locationKey{}).(*time.Location)
	return loc
}

// ClockTime renders t as a 12-hour wall-clock time, e.g. "2:05 PM".
// Hours 0 and 12 both display as 12.
func ClockTime(t time.Time) string {
	h := t.Hour()
	display := h % 12
	if display == 0 {
		display = 12
	}
	period := "AM"
	if h >= 12 {
		period = "PM"
	}
	return fmt.Sprintf("%d:%02d %s", display, t.Minute(), period)
}
