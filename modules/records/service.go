package records

import (
	"context"
	"fmt"
	"time"

	"github.com/example/planner/domain/planner"
	"github.com/go-monolith/mono"
)

// addTask handles the add-task service request.
func (m *Module) addTask(ctx context.Context, req TaskInput, _ *mono.Msg) (TaskResponse, error) {
	task, err := m.store.AddTask(ctx, req)
	if err != nil {
		return TaskResponse{}, err
	}
	m.logger.Info("Task added", "task_id", task.ID, "date", task.Date)
	return TaskResponse{Task: task}, nil
}

// toggleTask handles the toggle-task service request.
func (m *Module) toggleTask(ctx context.Context, req TaskIDRequest, _ *mono.Msg) (TaskResponse, error) {
	task, err := m.store.ToggleTask(ctx, req.TaskID)
	if err != nil {
		return TaskResponse{}, err
	}
	return TaskResponse{Task: task}, nil
}

// updateTask handles the update-task service request.
func (m *Module) updateTask(ctx context.Context, req UpdateTaskRequest, _ *mono.Msg) (TaskResponse, error) {
	task, err := m.store.UpdateTask(ctx, req.TaskID, req.Patch)
	if err != nil {
		return TaskResponse{}, err
	}
	return TaskResponse{Task: task}, nil
}

// deleteTask handles the delete-task service request.
func (m *Module) deleteTask(ctx context.Context, req DeleteRequest, _ *mono.Msg) (DeleteResponse, error) {
	deleted, err := m.store.DeleteTask(ctx, req.ID, Confirmed(req.Confirmed))
	if err != nil {
		return DeleteResponse{}, err
	}
	if deleted {
		m.logger.Info("Task deleted", "task_id", req.ID)
	}
	return DeleteResponse{Deleted: deleted}, nil
}

// listTasks handles the list-tasks service request.
func (m *Module) listTasks(_ context.Context, req ListTasksRequest, _ *mono.Msg) (ListTasksResponse, error) {
	if req.Filter.Date != "" {
		if err := planner.ValidateDate(req.Filter.Date); err != nil {
			return ListTasksResponse{}, err
		}
	}
	tasks := planner.Select(m.store.Tasks(), req.Filter)
	return ListTasksResponse{Tasks: tasks, Total: len(tasks)}, nil
}

// todayDeadlines handles the today-deadlines service request.
func (m *Module) todayDeadlines(_ context.Context, req TodayDeadlinesRequest, _ *mono.Msg) (ListTasksResponse, error) {
	today := req.Today
	if today == "" {
		today = planner.Today(m.now())
	} else if err := planner.ValidateDate(today); err != nil {
		return ListTasksResponse{}, err
	}
	tasks := planner.TodaysDeadlines(m.store.Tasks(), today)
	return ListTasksResponse{Tasks: tasks, Total: len(tasks)}, nil
}

// calendarMonth handles the calendar-month service request.
func (m *Module) calendarMonth(_ context.Context, req CalendarMonthRequest, _ *mono.Msg) (CalendarMonthResponse, error) {
	days, err := planner.CalendarMonth(m.store.Tasks(), m.store.Tags(), req.Year, time.Month(req.Month))
	if err != nil {
		return CalendarMonthResponse{}, err
	}
	return CalendarMonthResponse{Days: days}, nil
}

// addTag handles the add-tag service request.
func (m *Module) addTag(ctx context.Context, req TagInput, _ *mono.Msg) (TagResponse, error) {
	tag, err := m.store.AddTag(ctx, req)
	if err != nil {
		return TagResponse{}, err
	}
	m.logger.Info("Tag added", "tag_id", tag.ID, "name", tag.Name)
	return TagResponse{Tag: tag}, nil
}

// updateTag handles the update-tag service request.
func (m *Module) updateTag(ctx context.Context, req UpdateTagRequest, _ *mono.Msg) (TagResponse, error) {
	tag, err := m.store.UpdateTag(ctx, req.TagID, req.Patch)
	if err != nil {
		return TagResponse{}, err
	}
	return TagResponse{Tag: tag}, nil
}

// deleteTag handles the delete-tag service request.
func (m *Module) deleteTag(ctx context.Context, req DeleteRequest, _ *mono.Msg) (DeleteResponse, error) {
	deleted, err := m.store.DeleteTag(ctx, req.ID, Confirmed(req.Confirmed))
	if err != nil {
		return DeleteResponse{}, err
	}
	return DeleteResponse{Deleted: deleted}, nil
}

// listTags handles the list-tags service request.
func (m *Module) listTags(_ context.Context, _ ListTagsRequest, _ *mono.Msg) (ListTagsResponse, error) {
	tags := m.store.Tags()
	return ListTagsResponse{Tags: tags, Total: len(tags)}, nil
}

// getTheme handles the get-theme service request.
func (m *Module) getTheme(_ context.Context, _ ThemeRequest, _ *mono.Msg) (ThemeResponse, error) {
	return ThemeResponse{Theme: m.store.Theme()}, nil
}

// setTheme handles the set-theme service request.
func (m *Module) setTheme(ctx context.Context, req ThemeRequest, _ *mono.Msg) (ThemeResponse, error) {
	theme, err := planner.ParseTheme(req.Theme)
	if err != nil {
		return ThemeResponse{}, err
	}
	if err := m.store.SetTheme(ctx, theme); err != nil {
		return ThemeResponse{}, fmt.Errorf("failed to set theme: %w", err)
	}
	return ThemeResponse{Theme: theme}, nil
}
