// Package analytics derives totals, monthly trends, statistical indicators
// and projections from the raw ledger collections.
//
// Every exported function is pure: it reads its inputs, never mutates them,
// performs no I/O and returns the same output for the same input.
package analytics

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

// Window is the number of months of history the statistics cover.
type Window int

const (
	Window3  Window = 3
	Window6  Window = 6
	Window12 Window = 12

	DefaultWindow = Window6
)

var ErrInvalidWindow = errors.New("window must be 3, 6 or 12 months")

// ParseWindow accepts "3", "3m", "3months" or "3meses" (and the same for 6
// and 12). An empty string selects DefaultWindow.
func ParseWindow(s string) (Window, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return DefaultWindow, nil
	}
	for _, suffix := range []string{"months", "meses", "month", "mes", "m"} {
		if strings.HasSuffix(s, suffix) {
			s = strings.TrimSuffix(s, suffix)
			break
		}
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, ErrInvalidWindow
	}
	w := Window(n)
	if !w.Valid() {
		return 0, ErrInvalidWindow
	}
	return w, nil
}

func (w Window) Valid() bool {
	return w == Window3 || w == Window6 || w == Window12
}

func (w Window) String() string {
	return strconv.Itoa(int(w)) + "months"
}

// Cutoff is the first day of the month w months before now's month.
func (w Window) Cutoff(now time.Time, loc *time.Location) time.Time {
	n := now.In(loc)
	return time.Date(n.Year(), n.Month()-time.Month(w), 1, 0, 0, 0, 0, loc)
}

// Options selects the window and the clock the engine evaluates against.
type Options struct {
	Window Window
	// Now anchors the window and the calendar-relative figures. When zero,
	// the latest record date is used so the result stays a function of the input.
	Now time.Time
	// Location decides which calendar month, weekday and hour a record falls
	// in. Defaults to UTC.
	Location *time.Location
}

func (o Options) normalize(c Collections) Options {
	if !o.Window.Valid() {
		o.Window = DefaultWindow
	}
	if o.Location == nil {
		o.Location = time.UTC
	}
	if o.Now.IsZero() {
		o.Now = c.latest()
	}
	o.Now = o.Now.In(o.Location)
	return o
}
