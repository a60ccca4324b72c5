// Package datecursor computes the active meal date. Every result lands on a weekday
// and is truncated to the local calendar day.
package datecursor

import (
	"fmt"
	"time"
)

const (
	DashedLayout  = "2006-01-02"
	CompactLayout = "20060102"
)

var koreanWeekdays = [...]string{"일", "월", "화", "수", "목", "금", "토"}

// Day truncates t to midnight of its calendar day in t's location.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func addDays(t time.Time, n int) time.Time {
	return Day(t).AddDate(0, 0, n)
}

// NextWeekday moves a weekend date forward to Monday and leaves weekdays alone.
func NextWeekday(d time.Time) time.Time {
	switch d.Weekday() {
	case time.Saturday:
		return addDays(d, 2)
	case time.Sunday:
		return addDays(d, 1)
	}
	return Day(d)
}

// PreviousWeekday moves Saturday, Sunday and Monday back to the preceding Friday.
// Monday is included, so this is not the inverse of NextWeekday.
func PreviousWeekday(d time.Time) time.Time {
	switch d.Weekday() {
	case time.Monday:
		return addDays(d, -3)
	case time.Sunday:
		return addDays(d, -2)
	case time.Saturday:
		return addDays(d, -1)
	}
	return Day(d)
}

// StepForward advances one day, skipping the weekend: Friday becomes Monday.
func StepForward(d time.Time) time.Time {
	next := addDays(d, 1)
	switch next.Weekday() {
	case time.Saturday:
		return addDays(next, 2)
	case time.Sunday:
		return addDays(next, 1)
	}
	return next
}

// StepBackward goes back one day, skipping the weekend: Monday becomes Friday.
func StepBackward(d time.Time) time.Time {
	prev := addDays(d, -1)
	switch prev.Weekday() {
	case time.Sunday:
		return addDays(prev, -2)
	case time.Saturday:
		return addDays(prev, -1)
	}
	return prev
}

// Today is the default meal date: the current day, or the coming Monday on weekends.
func Today(now time.Time) time.Time {
	return NextWeekday(now)
}

// Format renders YYYY-MM-DD.
func Format(d time.Time) string {
	return d.Format(DashedLayout)
}

// Compact renders YYYYMMDD, the form NEIS and the review store use.
func Compact(d time.Time) string {
	return d.Format(CompactLayout)
}

// Parse accepts YYYY-MM-DD or YYYYMMDD and returns local midnight.
func Parse(s string) (time.Time, error) {
	layout := DashedLayout
	if len(s) == len(CompactLayout) {
		layout = CompactLayout
	}
	t, err := time.ParseInLocation(layout, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// Label is the display form, e.g. "2025년 3월 10일 (월)".
func Label(d time.Time) string {
	return fmt.Sprintf("%d년 %d월 %d일 (%s)", d.Year(), int(d.Month()), d.Day(), koreanWeekdays[d.Weekday()])
}

/*
MealReview is a school meal review service: NEIS meal menus, star ratings and written reviews per meal.
MealReview Copyright (C) 2025 MealReview contributors
    This program is free software: you can redistribute it and/or modify
    it under the terms of the GNU General Public License as published by
    the Free Software Foundation, either version 3 of the License, or
    (at your option) any later version.

    This program is distributed in the hope that it will be useful,
    but WITHOUT ANY WARRANTY; without even the implied warranty of
    MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
    GNU General Public License for more details.

    You should have received a copy of the GNU General Public License
    along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/
