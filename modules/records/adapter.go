package records

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/planner/domain/planner"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// remoteErrors are matched by message because handler errors cross the
// service boundary as text.
var remoteErrors = []error{
	ErrTaskNotFound,
	ErrTagNotFound,
	ErrNotLoaded,
	planner.ErrInvalidInput,
	planner.ErrInvalidTheme,
}

// plannerAdapter wraps ServiceContainer for type-safe cross-module communication.
type plannerAdapter struct {
	container mono.ServiceContainer
}

// NewPlannerAdapter creates a PlannerPort over the records module's services.
func NewPlannerAdapter(container mono.ServiceContainer) PlannerPort {
	if container == nil {
		panic("planner adapter requires non-nil ServiceContainer")
	}
	return &plannerAdapter{container: container}
}

func call[Req, Resp any](ctx context.Context, container mono.ServiceContainer, service string, req *Req, resp *Resp) error {
	if err := helper.CallRequestReplyService(
		ctx,
		container,
		service,
		json.Marshal,
		json.Unmarshal,
		req,
		resp,
	); err != nil {
		return translateError(service, err)
	}
	return nil
}

// translateError restores the sentinel error named in a remote failure.
func translateError(service string, err error) error {
	msg := err.Error()
	for _, sentinel := range remoteErrors {
		if errors.Is(err, sentinel) {
			return fmt.Errorf("%s service call failed: %w", service, err)
		}
		if strings.Contains(msg, sentinel.Error()) {
			return fmt.Errorf("%s service call failed: %w: %s", service, sentinel, msg)
		}
	}
	return fmt.Errorf("%s service call failed: %w", service, err)
}

// AddTask creates a task via the add-task service.
func (a *plannerAdapter) AddTask(ctx context.Context, in *TaskInput) (*planner.Task, error) {
	var resp TaskResponse
	if err := call(ctx, a.container, "add-task", in, &resp); err != nil {
		return nil, err
	}
	return &resp.Task, nil
}

// ToggleTask flips completion via the toggle-task service.
func (a *plannerAdapter) ToggleTask(ctx context.Context, taskID string) (*planner.Task, error) {
	var resp TaskResponse
	if err := call(ctx, a.container, "toggle-task", &TaskIDRequest{TaskID: taskID}, &resp); err != nil {
		return nil, err
	}
	return &resp.Task, nil
}

// UpdateTask edits a task via the update-task service.
func (a *plannerAdapter) UpdateTask(ctx context.Context, taskID string, patch *TaskPatch) (*planner.Task, error) {
	req := UpdateTaskRequest{TaskID: taskID}
	if patch != nil {
		req.Patch = *patch
	}
	var resp TaskResponse
	if err := call(ctx, a.container, "update-task", &req, &resp); err != nil {
		return nil, err
	}
	return &resp.Task, nil
}

// DeleteTask removes a task via the delete-task service.
func (a *plannerAdapter) DeleteTask(ctx context.Context, taskID string, confirmed bool) (bool, error) {
	var resp DeleteResponse
	if err := call(ctx, a.container, "delete-task", &DeleteRequest{ID: taskID, Confirmed: confirmed}, &resp); err != nil {
		return false, err
	}
	return resp.Deleted, nil
}

// ListTasks returns the filtered task list via the list-tasks service.
func (a *plannerAdapter) ListTasks(ctx context.Context, filter planner.Filter) ([]planner.Task, error) {
	var resp ListTasksResponse
	if err := call(ctx, a.container, "list-tasks", &ListTasksRequest{Filter: filter}, &resp); err != nil {
		return nil, err
	}
	return resp.Tasks, nil
}

// TodaysDeadlines returns today's open deadlines via the today-deadlines service.
func (a *plannerAdapter) TodaysDeadlines(ctx context.Context, today string) ([]planner.Task, error) {
	var resp ListTasksResponse
	if err := call(ctx, a.container, "today-deadlines", &TodayDeadlinesRequest{Today: today}, &resp); err != nil {
		return nil, err
	}
	return resp.Tasks, nil
}

// CalendarMonth returns the day buckets via the calendar-month service.
func (a *plannerAdapter) CalendarMonth(ctx context.Context, year int, month time.Month) ([]planner.DayBucket, error) {
	var resp CalendarMonthResponse
	if err := call(ctx, a.container, "calendar-month", &CalendarMonthRequest{Year: year, Month: int(month)}, &resp); err != nil {
		return nil, err
	}
	return resp.Days, nil
}

// AddTag creates a tag via the add-tag service.
func (a *plannerAdapter) AddTag(ctx context.Context, in *TagInput) (*planner.Tag, error) {
	var resp TagResponse
	if err := call(ctx, a.container, "add-tag", in, &resp); err != nil {
		return nil, err
	}
	return &resp.Tag, nil
}

// UpdateTag edits a tag via the update-tag service.
func (a *plannerAdapter) UpdateTag(ctx context.Context, tagID string, patch *TagPatch) (*planner.Tag, error) {
	req := UpdateTagRequest{TagID: tagID}
	if patch != nil {
		req.Patch = *patch
	}
	var resp TagResponse
	if err := call(ctx, a.container, "update-tag", &req, &resp); err != nil {
		return nil, err
	}
	return &resp.Tag, nil
}

// DeleteTag removes a tag via the delete-tag service.
func (a *plannerAdapter) DeleteTag(ctx context.Context, tagID string, confirmed bool) (bool, error) {
	var resp DeleteResponse
	if err := call(ctx, a.container, "delete-tag", &DeleteRequest{ID: tagID, Confirmed: confirmed}, &resp); err != nil {
		return false, err
	}
	return resp.Deleted, nil
}

// ListTags returns all tags via the list-tags service.
func (a *plannerAdapter) ListTags(ctx context.Context) ([]planner.Tag, error) {
	var resp ListTagsResponse
	if err := call(ctx, a.container, "list-tags", &ListTagsRequest{}, &resp); err != nil {
		return nil, err
	}
	return resp.Tags, nil
}

// Theme reads the theme preference via the get-theme service.
func (a *plannerAdapter) Theme(ctx context.Context) (planner.Theme, error) {
	var resp ThemeResponse
	if err := call(ctx, a.container, "get-theme", &ThemeRequest{}, &resp); err != nil {
		return "", err
	}
	return resp.Theme, nil
}

// SetTheme stores the theme preference via the set-theme service.
func (a *plannerAdapter) SetTheme(ctx context.Context, theme planner.Theme) (planner.Theme, error) {
	var resp ThemeResponse
	if err := call(ctx, a.container, "set-theme", &ThemeRequest{Theme: string(theme)}, &resp); err != nil {
		return "", err
	}
	return resp.Theme, nil
}
