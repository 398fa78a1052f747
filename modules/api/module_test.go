package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/example/planner/domain/planner"
	"github.com/example/planner/modules/images"
	"github.com/example/planner/modules/records"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockLogger implements types.Logger for testing.
type mockLogger struct{}

func (m *mockLogger) Debug(_ string, _ ...any)         {}
func (m *mockLogger) Info(_ string, _ ...any)          {}
func (m *mockLogger) Warn(_ string, _ ...any)          {}
func (m *mockLogger) Error(_ string, _ ...any)         {}
func (m *mockLogger) With(_ ...any) types.Logger       { return m }
func (m *mockLogger) WithError(_ error) types.Logger   { return m }
func (m *mockLogger) WithModule(_ string) types.Logger { return m }

var errNotImplemented = errors.New("not implemented")

// mockPlanner implements records.PlannerPort for testing.
type mockPlanner struct {
	addTaskFunc       func(ctx context.Context, in *records.TaskInput) (*planner.Task, error)
	toggleTaskFunc    func(ctx context.Context, taskID string) (*planner.Task, error)
	updateTaskFunc    func(ctx context.Context, taskID string, patch *records.TaskPatch) (*planner.Task, error)
	deleteTaskFunc    func(ctx context.Context, taskID string, confirmed bool) (bool, error)
	listTasksFunc     func(ctx context.Context, filter planner.Filter) ([]planner.Task, error)
	todayFunc         func(ctx context.Context, today string) ([]planner.Task, error)
	calendarMonthFunc func(ctx context.Context, year int, month time.Month) ([]planner.DayBucket, error)
	addTagFunc        func(ctx context.Context, in *records.TagInput) (*planner.Tag, error)
	updateTagFunc     func(ctx context.Context, tagID string, patch *records.TagPatch) (*planner.Tag, error)
	deleteTagFunc     func(ctx context.Context, tagID string, confirmed bool) (bool, error)
	listTagsFunc      func(ctx context.Context) ([]planner.Tag, error)
	themeFunc         func(ctx context.Context) (planner.Theme, error)
	setThemeFunc      func(ctx context.Context, theme planner.Theme) (planner.Theme, error)
}

func (m *mockPlanner) AddTask(ctx context.Context, in *records.TaskInput) (*planner.Task, error) {
	if m.addTaskFunc != nil {
		return m.addTaskFunc(ctx, in)
	}
	return nil, errNotImplemented
}

func (m *mockPlanner) ToggleTask(ctx context.Context, taskID string) (*planner.Task, error) {
	if m.toggleTaskFunc != nil {
		return m.toggleTaskFunc(ctx, taskID)
	}
	return nil, errNotImplemented
}

func (m *mockPlanner) UpdateTask(ctx context.Context, taskID string, patch *records.TaskPatch) (*planner.Task, error) {
	if m.updateTaskFunc != nil {
		return m.updateTaskFunc(ctx, taskID, patch)
	}
	return nil, errNotImplemented
}

func (m *mockPlanner) DeleteTask(ctx context.Context, taskID string, confirmed bool) (bool, error) {
	if m.deleteTaskFunc != nil {
		return m.deleteTaskFunc(ctx, taskID, confirmed)
	}
	return false, errNotImplemented
}

func (m *mockPlanner) ListTasks(ctx context.Context, filter planner.Filter) ([]planner.Task, error) {
	if m.listTasksFunc != nil {
		return m.listTasksFunc(ctx, filter)
	}
	return nil, errNotImplemented
}

func (m *mockPlanner) TodaysDeadlines(ctx context.Context, today string) ([]planner.Task, error) {
	if m.todayFunc != nil {
		return m.todayFunc(ctx, today)
	}
	return nil, errNotImplemented
}

func (m *mockPlanner) CalendarMonth(ctx context.Context, year int, month time.Month) ([]planner.DayBucket, error) {
	if m.calendarMonthFunc != nil {
		return m.calendarMonthFunc(ctx, year, month)
	}
	return nil, errNotImplemented
}

func (m *mockPlanner) AddTag(ctx context.Context, in *records.TagInput) (*planner.Tag, error) {
	if m.addTagFunc != nil {
		return m.addTagFunc(ctx, in)
	}
	return nil, errNotImplemented
}

func (m *mockPlanner) UpdateTag(ctx context.Context, tagID string, patch *records.TagPatch) (*planner.Tag, error) {
	if m.updateTagFunc != nil {
		return m.updateTagFunc(ctx, tagID, patch)
	}
	return nil, errNotImplemented
}

func (m *mockPlanner) DeleteTag(ctx context.Context, tagID string, confirmed bool) (bool, error) {
	if m.deleteTagFunc != nil {
		return m.deleteTagFunc(ctx, tagID, confirmed)
	}
	return false, errNotImplemented
}

func (m *mockPlanner) ListTags(ctx context.Context) ([]planner.Tag, error) {
	if m.listTagsFunc != nil {
		return m.listTagsFunc(ctx)
	}
	return nil, errNotImplemented
}

func (m *mockPlanner) Theme(ctx context.Context) (planner.Theme, error) {
	if m.themeFunc != nil {
		return m.themeFunc(ctx)
	}
	return "", errNotImplemented
}

func (m *mockPlanner) SetTheme(ctx context.Context, theme planner.Theme) (planner.Theme, error) {
	if m.setThemeFunc != nil {
		return m.setThemeFunc(ctx, theme)
	}
	return "", errNotImplemented
}

// mockImages implements ImageStore with an in-memory map.
type mockImages struct {
	data map[string]*images.Image
}

func newMockImages() *mockImages {
	return &mockImages{data: make(map[string]*images.Image)}
}

func (m *mockImages) Upload(_ context.Context, data []byte, contentType string) (*images.ImageInfo, error) {
	if !strings.HasPrefix(contentType, "image/") {
		return nil, fmt.Errorf("%w: %s", images.ErrUnsupportedType, contentType)
	}
	id := fmt.Sprintf("img_%d", len(m.data)+1)
	info := images.ImageInfo{ID: id, Size: int64(len(data)), ContentType: contentType, URL: images.LocalURL(id)}
	m.data[id] = &images.Image{ImageInfo: info, Data: data}
	return &info, nil
}

func (m *mockImages) Get(_ context.Context, id string) (*images.Image, bool) {
	img, ok := m.data[id]
	return img, ok
}

func (m *mockImages) Delete(_ context.Context, id string) error {
	delete(m.data, id)
	return nil
}

func (m *mockImages) Resolve(_ context.Context, ref planner.ImageRef) string {
	if _, ok := m.data[ref.LocalID]; ok {
		return images.LocalURL(ref.LocalID)
	}
	return ref.URL
}

func newTestApp(p *mockPlanner, store ImageStore) *fiber.App {
	m := NewModule(Config{MaxImageSize: 1024}, store, &mockLogger{})
	m.planner = p
	return m.newApp()
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func TestCreateTask(t *testing.T) {
	var got *records.TaskInput
	p := &mockPlanner{
		addTaskFunc: func(_ context.Context, in *records.TaskInput) (*planner.Task, error) {
			got = in
			return &planner.Task{ID: "t1", Title: in.Title, Date: in.Date, Type: planner.KindDeadline, CreatedAt: 1}, nil
		},
	}
	app := newTestApp(p, nil)

	resp, body := doJSON(t, app, http.MethodPost, "/api/v1/tasks", map[string]any{
		"title": "Write report",
		"date":  "2024-06-01",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.NotNil(t, got)
	assert.Equal(t, "2024-06-01", got.Date)

	var task TaskResponse
	require.NoError(t, json.Unmarshal(body, &task))
	assert.Equal(t, "t1", task.ID)
	assert.Equal(t, planner.DefaultImageOffset, task.ImageOffset)
	assert.Equal(t, planner.DefaultImageOpacity, task.ImageOpacity)
	assert.Empty(t, task.ImageSrc)
}

func TestCreateTask_Errors(t *testing.T) {
	tests := []struct {
		name           string
		body           any
		addErr         error
		expectedStatus int
		expectedError  string
	}{
		{
			name:           "missing title",
			body:           map[string]any{"date": "2024-06-01"},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "validation_error",
		},
		{
			name:           "invalid input",
			body:           map[string]any{"title": "x", "date": "June"},
			addErr:         fmt.Errorf("AddTask service call failed: %w", planner.ErrInvalidInput),
			expectedStatus: http.StatusBadRequest,
			expectedError:  "validation_error",
		},
		{
			name:           "unknown tag",
			body:           map[string]any{"title": "x", "date": "2024-06-01", "tagId": "nope"},
			addErr:         records.ErrTagNotFound,
			expectedStatus: http.StatusNotFound,
			expectedError:  "not_found",
		},
		{
			name:           "storage failure",
			body:           map[string]any{"title": "x", "date": "2024-06-01"},
			addErr:         errors.New("disk full"),
			expectedStatus: http.StatusInternalServerError,
			expectedError:  "create_failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &mockPlanner{
				addTaskFunc: func(_ context.Context, _ *records.TaskInput) (*planner.Task, error) {
					return nil, tt.addErr
				},
			}
			resp, body := doJSON(t, newTestApp(p, nil), http.MethodPost, "/api/v1/tasks", tt.body)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			var errResp ErrorResponse
			require.NoError(t, json.Unmarshal(body, &errResp))
			assert.Equal(t, tt.expectedError, errResp.Error)
		})
	}
}

func TestCreateTask_InvalidBody(t *testing.T) {
	app := newTestApp(&mockPlanner{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/tasks", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestListTasks_PassesFilterAndResolvesImages(t *testing.T) {
	store := newMockImages()
	info, err := store.Upload(context.Background(), []byte("png"), "image/png")
	require.NoError(t, err)

	offset := 10
	var gotFilter planner.Filter
	p := &mockPlanner{
		listTasksFunc: func(_ context.Context, filter planner.Filter) ([]planner.Task, error) {
			gotFilter = filter
			return []planner.Task{
				{ID: "t1", Title: "local", Date: "2024-06-01", ImageURL: "https://example.com/a.png", ImageID: info.ID, ImageOffset: &offset},
				{ID: "t2", Title: "stale", Date: "2024-06-01", ImageURL: "https://example.com/b.png", ImageID: "img_gone"},
			}, nil
		},
	}
	app := newTestApp(p, store)

	resp, body := doJSON(t, app, http.MethodGet, "/api/v1/tasks?date=2024-06-01&tag=tag-work", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, planner.Filter{Date: "2024-06-01", TagID: "tag-work"}, gotFilter)

	var list ListTasksResponse
	require.NoError(t, json.Unmarshal(body, &list))
	require.Len(t, list.Tasks, 2)
	assert.Equal(t, 2, list.Total)
	assert.Equal(t, images.LocalURL(info.ID), list.Tasks[0].ImageSrc)
	assert.Equal(t, 10, list.Tasks[0].ImageOffset)
	assert.Equal(t, "https://example.com/b.png", list.Tasks[1].ImageSrc)
}

func TestTodayDeadlines(t *testing.T) {
	var gotToday string
	p := &mockPlanner{
		todayFunc: func(_ context.Context, today string) ([]planner.Task, error) {
			gotToday = today
			return []planner.Task{{ID: "t1", Title: "due", Date: today, Type: planner.KindDeadline}}, nil
		},
	}

	resp, body := doJSON(t, newTestApp(p, nil), http.MethodGet, "/api/v1/tasks/today?today=2024-06-01", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "2024-06-01", gotToday)

	var list ListTasksResponse
	require.NoError(t, json.Unmarshal(body, &list))
	assert.Equal(t, 1, list.Total)
}

func TestToggleAndUpdateTask(t *testing.T) {
	title := "renamed"
	p := &mockPlanner{
		toggleTaskFunc: func(_ context.Context, id string) (*planner.Task, error) {
			if id != "t1" {
				return nil, records.ErrTaskNotFound
			}
			return &planner.Task{ID: id, Completed: true}, nil
		},
		updateTaskFunc: func(_ context.Context, id string, patch *records.TaskPatch) (*planner.Task, error) {
			require.NotNil(t, patch.Title)
			return &planner.Task{ID: id, Title: *patch.Title}, nil
		},
	}
	app := newTestApp(p, nil)

	resp, body := doJSON(t, app, http.MethodPost, "/api/v1/tasks/t1/toggle", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var task TaskResponse
	require.NoError(t, json.Unmarshal(body, &task))
	assert.True(t, task.Completed)

	resp, _ = doJSON(t, app, http.MethodPost, "/api/v1/tasks/missing/toggle", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = doJSON(t, app, http.MethodPatch, "/api/v1/tasks/t1", map[string]any{"title": title})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &task))
	assert.Equal(t, title, task.Title)
}

func TestDelete_RequiresConfirmation(t *testing.T) {
	tests := []struct {
		name string
		path string
	}{
		{name: "task", path: "/api/v1/tasks/t1"},
		{name: "tag", path: "/api/v1/tags/g1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			p := &mockPlanner{
				deleteTaskFunc: func(_ context.Context, _ string, confirmed bool) (bool, error) {
					calls++
					return confirmed, nil
				},
				deleteTagFunc: func(_ context.Context, _ string, confirmed bool) (bool, error) {
					calls++
					return confirmed, nil
				},
			}
			app := newTestApp(p, nil)

			resp, body := doJSON(t, app, http.MethodDelete, tt.path, nil)
			assert.Equal(t, http.StatusConflict, resp.StatusCode)
			assert.Contains(t, string(body), "confirmation_required")
			assert.Equal(t, 0, calls)

			resp, body = doJSON(t, app, http.MethodDelete, tt.path+"?confirm=true", nil)
			require.Equal(t, http.StatusOK, resp.StatusCode)
			var del DeleteResponse
			require.NoError(t, json.Unmarshal(body, &del))
			assert.True(t, del.Deleted)
			assert.Equal(t, 1, calls)
		})
	}
}

func TestCalendarMonth(t *testing.T) {
	var gotYear int
	var gotMonth time.Month
	p := &mockPlanner{
		calendarMonthFunc: func(_ context.Context, year int, month time.Month) ([]planner.DayBucket, error) {
			gotYear, gotMonth = year, month
			return []planner.DayBucket{{Date: "2024-03-01", Total: 2, Deadlines: 1, TagColors: []string{"#3b82f6"}}}, nil
		},
	}
	app := newTestApp(p, nil)

	resp, body := doJSON(t, app, http.MethodGet, "/api/v1/calendar/2024/3", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2024, gotYear)
	assert.Equal(t, time.March, gotMonth)

	var cal CalendarResponse
	require.NoError(t, json.Unmarshal(body, &cal))
	require.Len(t, cal.Days, 1)
	assert.Equal(t, 2, cal.Days[0].Total)

	for _, path := range []string{"/api/v1/calendar/2024/13", "/api/v1/calendar/2024/0", "/api/v1/calendar/year/3"} {
		resp, _ := doJSON(t, app, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, path)
	}
}

func TestTags(t *testing.T) {
	p := &mockPlanner{
		listTagsFunc: func(_ context.Context) ([]planner.Tag, error) {
			return []planner.Tag{{ID: "g1", Name: "Work", ThemeColor: "#3b82f6"}, {ID: "g2", Name: "Blank"}}, nil
		},
		addTagFunc: func(_ context.Context, in *records.TagInput) (*planner.Tag, error) {
			return &planner.Tag{ID: "g3", Name: in.Name, ThemeColor: planner.DefaultThemeColor}, nil
		},
		updateTagFunc: func(_ context.Context, id string, _ *records.TagPatch) (*planner.Tag, error) {
			return nil, records.ErrTagNotFound
		},
	}
	app := newTestApp(p, nil)

	resp, body := doJSON(t, app, http.MethodGet, "/api/v1/tags", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list ListTagsResponse
	require.NoError(t, json.Unmarshal(body, &list))
	require.Len(t, list.Tags, 2)
	assert.Equal(t, planner.DefaultThemeColor, list.Tags[1].ThemeColor)

	resp, _ = doJSON(t, app, http.MethodPost, "/api/v1/tags", map[string]any{"name": "Games"})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodPost, "/api/v1/tags", map[string]any{"themeColor": "#000000"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodPatch, "/api/v1/tags/missing", map[string]any{"name": "x"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestTheme(t *testing.T) {
	stored := planner.ThemeLight
	p := &mockPlanner{
		themeFunc: func(_ context.Context) (planner.Theme, error) { return stored, nil },
		setThemeFunc: func(_ context.Context, theme planner.Theme) (planner.Theme, error) {
			stored = theme
			return theme, nil
		},
	}
	app := newTestApp(p, nil)

	resp, _ := doJSON(t, app, http.MethodPut, "/api/v1/preferences/theme", map[string]any{"theme": "sepia"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, planner.ThemeLight, stored)

	resp, _ = doJSON(t, app, http.MethodPut, "/api/v1/preferences/theme", map[string]any{"theme": "dark"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := doJSON(t, app, http.MethodGet, "/api/v1/preferences/theme", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var theme ThemeResponse
	require.NoError(t, json.Unmarshal(body, &theme))
	assert.Equal(t, planner.ThemeDark, theme.Theme)
}

func TestNotLoadedMapsToUnavailable(t *testing.T) {
	p := &mockPlanner{
		listTagsFunc: func(_ context.Context) ([]planner.Tag, error) {
			return nil, fmt.Errorf("ListTags service call failed: %w", records.ErrNotLoaded)
		},
	}

	resp, _ := doJSON(t, newTestApp(p, nil), http.MethodGet, "/api/v1/tags", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func uploadRequest(t *testing.T, data []byte, contentType string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	header := make(map[string][]string)
	header["Content-Disposition"] = []string{`form-data; name="image"; filename="cover.png"`}
	header["Content-Type"] = []string{contentType}
	part, err := w.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/images", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestImages(t *testing.T) {
	store := newMockImages()
	app := newTestApp(&mockPlanner{}, store)

	resp, err := app.Test(uploadRequest(t, []byte("\x89PNG"), "image/png"), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var info images.ImageInfo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&info))
	resp.Body.Close()
	assert.Equal(t, "img_1", info.ID)

	resp, body := doJSON(t, app, http.MethodGet, "/api/v1/images/img_1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	assert.Equal(t, []byte("\x89PNG"), body)

	resp, _ = doJSON(t, app, http.MethodDelete, "/api/v1/images/img_1", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodGet, "/api/v1/images/img_1", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = app.Test(uploadRequest(t, []byte("hello"), "text/plain"), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestImages_Unavailable(t *testing.T) {
	app := newTestApp(&mockPlanner{}, nil)

	resp, _ := doJSON(t, app, http.MethodGet, "/api/v1/images/img_1", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestModule_StartWithoutPlanner(t *testing.T) {
	m := NewModule(Config{}, nil, &mockLogger{})

	require.Error(t, m.Start(context.Background()))
	assert.False(t, m.Health(context.Background()).Healthy)
	assert.NoError(t, m.Stop(context.Background()))
}

func TestHealthEndpoint(t *testing.T) {
	resp, body := doJSON(t, newTestApp(&mockPlanner{}, nil), http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "127.0.0.1:3000")
}
