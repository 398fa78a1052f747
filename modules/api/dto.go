package api

import (
	"github.com/example/planner/domain/planner"
)

// TaskResponse is the HTTP representation of a task with display values resolved.
type TaskResponse struct {
	ID           string       `json:"id"`
	Title        string       `json:"title"`
	Date         string       `json:"date"`
	Time         string       `json:"time,omitempty"`
	Completed    bool         `json:"completed"`
	Type         planner.Kind `json:"type"`
	TagID        string       `json:"tagId,omitempty"`
	ImageURL     string       `json:"imageUrl,omitempty"`
	ImageID      string       `json:"imageId,omitempty"`
	ImageSrc     string       `json:"imageSrc,omitempty"`
	ImageOffset  int          `json:"imageOffset"`
	ImageOpacity int          `json:"imageOpacity"`
	CreatedAt    int64        `json:"createdAt"`
}

// ListTasksResponse is the HTTP response for task lists.
type ListTasksResponse struct {
	Tasks []TaskResponse `json:"tasks"`
	Total int            `json:"total"`
}

// TagResponse is the HTTP representation of a tag.
type TagResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	ThemeColor string `json:"themeColor"`
	ImageURL   string `json:"imageUrl,omitempty"`
	ImageID    string `json:"imageId,omitempty"`
	ImageSrc   string `json:"imageSrc,omitempty"`
}

// ListTagsResponse is the HTTP response for listing tags.
type ListTagsResponse struct {
	Tags  []TagResponse `json:"tags"`
	Total int           `json:"total"`
}

// CalendarResponse is the HTTP response for a month view.
type CalendarResponse struct {
	Year  int                 `json:"year"`
	Month int                 `json:"month"`
	Days  []planner.DayBucket `json:"days"`
}

// DeleteResponse reports whether anything was removed.
type DeleteResponse struct {
	Deleted bool `json:"deleted"`
}

// ThemeRequest is the HTTP request for storing the theme.
type ThemeRequest struct {
	Theme string `json:"theme"`
}

// ThemeResponse is the HTTP response carrying the theme.
type ThemeResponse struct {
	Theme planner.Theme `json:"theme"`
}

// HealthResponse is the HTTP response for health check.
type HealthResponse struct {
	Status  string         `json:"status"`
	Details map[string]any `json:"details,omitempty"`
}

// ErrorResponse is the HTTP response for errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
