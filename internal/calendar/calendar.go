// Package calendar assigns synthetic measurement dates inside a fixed
// historical window and buckets them into years and quarters.
package calendar

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/gyeh/diabwh/internal/dwerr"
	"github.com/gyeh/diabwh/internal/model"
)

// Distribution names.
const (
	Uniform    = "uniform"
	Sequential = "sequential"
)

// Window is the half-open range [Start, Start + Years).
type Window struct {
	Start        time.Time
	Years        int
	Distribution string
}

// DefaultWindow starts on the epoch used by the original dashboard data.
func DefaultWindow() Window {
	return Window{
		Start:        time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC),
		Years:        2,
		Distribution: Uniform,
	}
}

// End is the first date outside the window.
func (w Window) End() time.Time {
	return w.Start.AddDate(w.Years, 0, 0)
}

// Days is the number of calendar days in the window.
func (w Window) Days() int {
	return int(w.End().Sub(w.Start).Hours() / 24)
}

// Validate rejects windows that cannot hold a date.
func (w Window) Validate() error {
	if w.Start.IsZero() {
		return &dwerr.ConfigError{Field: "window.start", Reason: "is required"}
	}
	if w.Years < 1 {
		return &dwerr.ConfigError{Field: "window.years", Reason: fmt.Sprintf("must be >= 1, got %d", w.Years)}
	}
	switch w.Distribution {
	case Uniform, Sequential:
	default:
		return &dwerr.ConfigError{Field: "window.distribution", Reason: fmt.Sprintf("unknown distribution %q", w.Distribution)}
	}
	return nil
}

// Assigner draws dates from a Window.
type Assigner struct {
	w    Window
	days int
}

// NewAssigner validates w and normalizes its start to UTC midnight.
func NewAssigner(w Window) (*Assigner, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	y, m, d := w.Start.Date()
	w.Start = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &Assigner{w: w, days: w.Days()}, nil
}

// Window returns the normalized window.
func (a *Assigner) Window() Window { return a.w }

// Assign picks the date of the index-th (0-based) record. Uniform draws the
// day offset from rng; Sequential walks the window one day per record and
// wraps around.
func (a *Assigner) Assign(index int64, rng *rand.Rand) (model.DateAssignment, error) {
	var offset int
	switch a.w.Distribution {
	case Sequential:
		offset = int(index % int64(a.days))
		if offset < 0 {
			offset += a.days
		}
	default:
		offset = rng.IntN(a.days)
	}
	return a.At(a.w.Start.AddDate(0, 0, offset))
}

// At buckets an explicit date, rejecting anything outside the window.
func (a *Assigner) At(date time.Time) (model.DateAssignment, error) {
	if !a.Contains(date) {
		return model.DateAssignment{}, &dwerr.RangeError{What: "assigned date", Value: date.Format(time.DateOnly)}
	}
	return Bucket(date), nil
}

// Contains reports whether date lies in [Start, End).
func (a *Assigner) Contains(date time.Time) bool {
	return !date.Before(a.w.Start) && date.Before(a.w.End())
}

// Bucket computes year, quarter and month for a date.
func Bucket(date time.Time) model.DateAssignment {
	return model.DateAssignment{
		Date:    date,
		Year:    date.Year(),
		Quarter: Quarter(date),
		Month:   int(date.Month()),
	}
}

// Quarter is ((month-1)/3)+1.
func Quarter(date time.Time) int {
	return (int(date.Month())-1)/3 + 1
}
