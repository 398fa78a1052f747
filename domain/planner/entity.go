package planner

import (
	"fmt"
	"time"
)

// Kind distinguishes tasks that must be done by a date from tasks planned for a date.
type Kind string

const (
	KindDeadline  Kind = "deadline"
	KindScheduled Kind = "scheduled"
)

// Theme is the stored UI theme preference.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// Date and time layouts used for the stored calendar fields.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// Display defaults applied on read when a task carries no explicit value.
const (
	DefaultImageOffset  = 50
	DefaultImageOpacity = 30
	DefaultThemeColor   = "#6366f1"
)

// Task is a single to-do item. The JSON field names are the persisted format.
type Task struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Date         string `json:"date"`
	Time         string `json:"time,omitempty"`
	Completed    bool   `json:"completed"`
	Type         Kind   `json:"type"`
	TagID        string `json:"tagId,omitempty"`
	ImageURL     string `json:"imageUrl,omitempty"`
	ImageID      string `json:"imageId,omitempty"`
	ImageOffset  *int   `json:"imageOffset,omitempty"`
	ImageOpacity *int   `json:"imageOpacity,omitempty"`
	CreatedAt    int64  `json:"createdAt"`
}

// Tag is a user-defined color category for tasks.
type Tag struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	ThemeColor string `json:"themeColor"`
	ImageURL   string `json:"imageUrl,omitempty"`
	ImageID    string `json:"imageId,omitempty"`
}

// ImageRef is the pair of optional image references an entity may carry.
// A local key takes precedence over the remote URL when it resolves.
type ImageRef struct {
	URL     string `json:"url,omitempty"`
	LocalID string `json:"localId,omitempty"`
}

// IsZero reports whether neither reference is set.
func (r ImageRef) IsZero() bool {
	return r.URL == "" && r.LocalID == ""
}

// Image returns the task's image references.
func (t Task) Image() ImageRef {
	return ImageRef{URL: t.ImageURL, LocalID: t.ImageID}
}

// ResolvedImageOffset returns the vertical image offset with the default applied.
func (t Task) ResolvedImageOffset() int {
	if t.ImageOffset == nil {
		return DefaultImageOffset
	}
	return *t.ImageOffset
}

// ResolvedImageOpacity returns the image opacity with the default applied.
func (t Task) ResolvedImageOpacity() int {
	if t.ImageOpacity == nil {
		return DefaultImageOpacity
	}
	return *t.ImageOpacity
}

// IsDeadline reports whether the task is a deadline. An empty kind counts as a deadline.
func (t Task) IsDeadline() bool {
	return t.Type == KindDeadline || t.Type == ""
}

// Day parses the task's calendar date.
func (t Task) Day() (time.Time, error) {
	return time.Parse(DateLayout, t.Date)
}

// Image returns the tag's image references.
func (t Tag) Image() ImageRef {
	return ImageRef{URL: t.ImageURL, LocalID: t.ImageID}
}

// Color returns the tag color, falling back to the default accent.
func (t Tag) Color() string {
	if t.ThemeColor == "" {
		return DefaultThemeColor
	}
	return t.ThemeColor
}

// ParseKind validates a task kind. An empty value defaults to deadline.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case "":
		return KindDeadline, nil
	case KindDeadline, KindScheduled:
		return Kind(s), nil
	}
	return "", fmt.Errorf("%w: unknown task type %q", ErrInvalidInput, s)
}

// ParseTheme validates a theme preference.
func ParseTheme(s string) (Theme, error) {
	switch Theme(s) {
	case ThemeLight, ThemeDark:
		return Theme(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidTheme, s)
}

// Today returns the current local calendar date in the stored layout.
func Today(now time.Time) string {
	return now.Format(DateLayout)
}

// NowMillis returns t as Unix milliseconds, the unit of Task.CreatedAt.
func NowMillis(t time.Time) int64 {
	return t.UnixMilli()
}
