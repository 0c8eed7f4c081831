// Package calendar tracks the selected day and the visible month of a
// scheduling screen.
package calendar

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/wolfman30/barbershop-scheduler/internal/scheduling"
)

// Clock returns the current time.
type Clock func() time.Time

// ChangeFunc reacts to an accepted date selection, typically by reloading
// whatever is keyed by the day.
type ChangeFunc func(ctx context.Context, day scheduling.CalendarDate) error

// DaySelection holds the selected date and the month shown by the picker.
// Only business days can be selected. The visible month never moves before
// the current month and never changes the selected date.
type DaySelection struct {
	clock Clock
	loc   *time.Location

	mu        sync.Mutex
	selected  scheduling.CalendarDate
	visible   scheduling.Month
	listeners []ChangeFunc
}

// NewDaySelection starts on today, even when today is a weekend; the screen
// then shows its closed-on-weekends state until a weekday is picked.
func NewDaySelection(clock Clock, loc *time.Location) *DaySelection {
	if clock == nil {
		clock = time.Now
	}
	if loc == nil {
		loc = time.Local
	}
	today := scheduling.DateOf(clock().In(loc))
	return &DaySelection{
		clock:    clock,
		loc:      loc,
		selected: today,
		visible:  scheduling.MonthOf(today),
	}
}

// OnChange registers fn to run after every accepted selection.
func (s *DaySelection) OnChange(fn ChangeFunc) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// SelectDate moves the selection to day and runs the change listeners.
// Weekends are ignored and reported as false. Reselecting the current date
// runs the listeners again, so a failed load can be retried. Listener errors
// are joined.
func (s *DaySelection) SelectDate(ctx context.Context, day scheduling.CalendarDate) (bool, error) {
	if day.IsZero() || !day.IsBusinessDay() {
		return false, nil
	}
	s.mu.Lock()
	s.selected = day
	s.visible = s.clampMonth(scheduling.MonthOf(day))
	listeners := append([]ChangeFunc(nil), s.listeners...)
	s.mu.Unlock()

	var errs []error
	for _, fn := range listeners {
		if err := fn(ctx, day); err != nil {
			errs = append(errs, err)
		}
	}
	return true, errors.Join(errs...)
}

// SelectMonth changes the visible window only. Months before the current one
// are clamped to the current month.
func (s *DaySelection) SelectMonth(m scheduling.Month) scheduling.Month {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.visible = s.clampMonth(m)
	return s.visible
}

func (s *DaySelection) clampMonth(m scheduling.Month) scheduling.Month {
	current := scheduling.MonthOf(s.Today())
	if m.Before(current) {
		return current
	}
	return m
}

// Selected is the selected date.
func (s *DaySelection) Selected() scheduling.CalendarDate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// VisibleMonth is the month shown by the picker.
func (s *DaySelection) VisibleMonth() scheduling.Month {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visible
}

// Today is the current date in the selection's location.
func (s *DaySelection) Today() scheduling.CalendarDate {
	return scheduling.DateOf(s.clock().In(s.loc))
}

// IsToday reports whether the selected date is today.
func (s *DaySelection) IsToday() bool {
	return s.Selected().Equal(s.Today())
}

// Now is the clock's current time in the selection's location.
func (s *DaySelection) Now() time.Time {
	return s.clock().In(s.loc)
}

// Location is the zone used for day boundaries.
func (s *DaySelection) Location() *time.Location {
	return s.loc
}
