package trader

import (
	"fmt"
	"time"
)

// CloseWindow is a daily time-of-day range in Loc, From inclusive, To exclusive.
type CloseWindow struct {
	From time.Duration
	To   time.Duration
	Loc  *time.Location
}

func (w CloseWindow) Contains(t time.Time) bool {
	t = t.In(w.Loc)
	clock := time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute + time.Duration(t.Second())*time.Second
	return clock >= w.From && clock < w.To
}

func (w CloseWindow) String() string {
	return fmt.Sprintf("%s-%s %s", clock(w.From), clock(w.To), w.Loc)
}

func clock(d time.Duration) string {
	return fmt.Sprintf("%02d:%02d", int(d.Hours()), int(d.Minutes())%60)
}
