package records

import (
	"context"
	"time"

	"github.com/example/planner/domain/planner"
)

// TaskIDRequest addresses a single task.
type TaskIDRequest struct {
	TaskID string `json:"task_id"`
}

// UpdateTaskRequest is the request for editing a task.
type UpdateTaskRequest struct {
	TaskID string    `json:"task_id"`
	Patch  TaskPatch `json:"patch"`
}

// DeleteRequest is the request for deleting a task or tag. Confirmed
// carries the user's answer to the confirmation prompt.
type DeleteRequest struct {
	ID        string `json:"id"`
	Confirmed bool   `json:"confirmed"`
}

// DeleteResponse reports whether anything was removed.
type DeleteResponse struct {
	Deleted bool `json:"deleted"`
}

// TaskResponse wraps a single task.
type TaskResponse struct {
	Task planner.Task `json:"task"`
}

// ListTasksRequest is the request for the filtered task list.
type ListTasksRequest struct {
	Filter planner.Filter `json:"filter"`
}

// TodayDeadlinesRequest asks for the deadlines due on Today (YYYY-MM-DD).
// An empty Today means the current local date.
type TodayDeadlinesRequest struct {
	Today string `json:"today,omitempty"`
}

// ListTasksResponse is the response for task lists.
type ListTasksResponse struct {
	Tasks []planner.Task `json:"tasks"`
	Total int            `json:"total"`
}

// CalendarMonthRequest selects a month.
type CalendarMonthRequest struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

// CalendarMonthResponse holds one bucket per day.
type CalendarMonthResponse struct {
	Days []planner.DayBucket `json:"days"`
}

// UpdateTagRequest is the request for editing a tag.
type UpdateTagRequest struct {
	TagID string   `json:"tag_id"`
	Patch TagPatch `json:"patch"`
}

// TagResponse wraps a single tag.
type TagResponse struct {
	Tag planner.Tag `json:"tag"`
}

// ListTagsRequest is the request for listing tags.
type ListTagsRequest struct{}

// ListTagsResponse is the response for listing tags.
type ListTagsResponse struct {
	Tags  []planner.Tag `json:"tags"`
	Total int           `json:"total"`
}

// ThemeRequest carries a theme to store. get-theme ignores it.
type ThemeRequest struct {
	Theme string `json:"theme,omitempty"`
}

// ThemeResponse carries the stored theme.
type ThemeResponse struct {
	Theme planner.Theme `json:"theme"`
}

// PlannerPort is the contract driving adapters use to reach the record store.
type PlannerPort interface {
	AddTask(ctx context.Context, in *TaskInput) (*planner.Task, error)
	ToggleTask(ctx context.Context, taskID string) (*planner.Task, error)
	UpdateTask(ctx context.Context, taskID string, patch *TaskPatch) (*planner.Task, error)
	DeleteTask(ctx context.Context, taskID string, confirmed bool) (bool, error)
	ListTasks(ctx context.Context, filter planner.Filter) ([]planner.Task, error)
	TodaysDeadlines(ctx context.Context, today string) ([]planner.Task, error)
	CalendarMonth(ctx context.Context, year int, month time.Month) ([]planner.DayBucket, error)
	AddTag(ctx context.Context, in *TagInput) (*planner.Tag, error)
	UpdateTag(ctx context.Context, tagID string, patch *TagPatch) (*planner.Tag, error)
	DeleteTag(ctx context.Context, tagID string, confirmed bool) (bool, error)
	ListTags(ctx context.Context) ([]planner.Tag, error)
	Theme(ctx context.Context) (planner.Theme, error)
	SetTheme(ctx context.Context, theme planner.Theme) (planner.Theme, error)
}
