package planner

import (
	"cmp"
	"fmt"
	"slices"
	"time"
)

// Filter narrows the visible task list. Zero fields mean "no filter".
type Filter struct {
	Date  string `json:"date,omitempty"`
	TagID string `json:"tagId,omitempty"`
}

// HasDate reports whether a date filter is set.
func (f Filter) HasDate() bool {
	return f.Date != ""
}

// Matches reports whether the task passes both filters.
func (f Filter) Matches(t Task) bool {
	if f.Date != "" && !sameDay(t.Date, f.Date) {
		return false
	}
	if f.TagID != "" && t.TagID != f.TagID {
		return false
	}
	return true
}

// Select returns the tasks visible under f. With a date filter the stored
// order is kept; otherwise tasks are ordered incomplete first, then by date,
// then by creation time.
func Select(tasks []Task, f Filter) []Task {
	out := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		if f.Matches(t) {
			out = append(out, t)
		}
	}
	if !f.HasDate() {
		SortDefault(out)
	}
	return out
}

// SortDefault orders tasks in place: incomplete before completed, then date
// ascending, then createdAt ascending. Equal tasks keep their relative order.
func SortDefault(tasks []Task) {
	slices.SortStableFunc(tasks, func(a, b Task) int {
		if a.Completed != b.Completed {
			if a.Completed {
				return 1
			}
			return -1
		}
		if c := cmp.Compare(a.Date, b.Date); c != 0 {
			return c
		}
		return cmp.Compare(a.CreatedAt, b.CreatedAt)
	})
}

// TodaysDeadlines returns the incomplete deadline tasks due on today.
func TodaysDeadlines(tasks []Task, today string) []Task {
	out := make([]Task, 0)
	for _, t := range tasks {
		if t.IsDeadline() && !t.Completed && sameDay(t.Date, today) {
			out = append(out, t)
		}
	}
	return out
}

// DayBucket summarizes one calendar cell.
type DayBucket struct {
	Date      string   `json:"date"`
	Total     int      `json:"total"`
	Deadlines int      `json:"deadlines"`
	Completed int      `json:"completed"`
	TagColors []string `json:"tagColors"`
}

// CalendarMonth buckets tasks into every day of the given month. TagColors
// lists the distinct colors of the tags used that day, in first-seen order.
func CalendarMonth(tasks []Task, tags []Tag, year int, month time.Month) ([]DayBucket, error) {
	if month < time.January || month > time.December {
		return nil, fmt.Errorf("%w: month %d out of range", ErrInvalidInput, month)
	}

	colors := make(map[string]string, len(tags))
	for _, tag := range tags {
		colors[tag.ID] = tag.Color()
	}

	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	days := first.AddDate(0, 1, -1).Day()
	buckets := make([]DayBucket, days)
	index := make(map[string]int, days)
	for i := range buckets {
		date := first.AddDate(0, 0, i).Format(DateLayout)
		buckets[i] = DayBucket{Date: date, TagColors: []string{}}
		index[date] = i
	}

	for _, t := range tasks {
		i, ok := index[t.Date]
		if !ok {
			continue
		}
		b := &buckets[i]
		b.Total++
		if t.IsDeadline() {
			b.Deadlines++
		}
		if t.Completed {
			b.Completed++
		}
		if color, ok := colors[t.TagID]; ok && !slices.Contains(b.TagColors, color) {
			b.TagColors = append(b.TagColors, color)
		}
	}
	return buckets, nil
}

// sameDay compares two stored dates by calendar day. Unparseable values
// fall back to exact string comparison.
func sameDay(a, b string) bool {
	da, errA := time.Parse(DateLayout, a)
	db, errB := time.Parse(DateLayout, b)
	if errA != nil || errB != nil {
		return a == b
	}
	return da.Equal(db)
}
