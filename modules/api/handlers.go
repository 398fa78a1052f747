package api

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/example/planner/domain/planner"
	"github.com/example/planner/modules/images"
	"github.com/example/planner/modules/records"
	"github.com/gofiber/fiber/v2"
)

// setupRoutes configures all HTTP routes.
func (m *Module) setupRoutes(app *fiber.App) {
	app.Get("/health", m.healthHandler)

	api := app.Group("/api/v1")

	tasks := api.Group("/tasks")
	tasks.Get("/", m.listTasks)
	tasks.Get("/today", m.todayDeadlines)
	tasks.Post("/", m.createTask)
	tasks.Patch("/:id", m.updateTask)
	tasks.Post("/:id/toggle", m.toggleTask)
	tasks.Delete("/:id", m.deleteTask)

	api.Get("/calendar/:year/:month", m.calendarMonth)

	tags := api.Group("/tags")
	tags.Get("/", m.listTags)
	tags.Post("/", m.createTag)
	tags.Patch("/:id", m.updateTag)
	tags.Delete("/:id", m.deleteTag)

	imgs := api.Group("/images")
	imgs.Post("/", m.uploadImage)
	imgs.Get("/:id", m.getImage)
	imgs.Delete("/:id", m.deleteImage)

	api.Get("/preferences/theme", m.getTheme)
	api.Put("/preferences/theme", m.setTheme)
}

// healthHandler handles GET /health.
func (m *Module) healthHandler(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{
		Status: "healthy",
		Details: map[string]any{
			"module": "api",
			"addr":   m.cfg.addr(),
		},
	})
}

// listTasks handles GET /api/v1/tasks.
func (m *Module) listTasks(c *fiber.Ctx) error {
	filter := planner.Filter{
		Date:  c.Query("date"),
		TagID: c.Query("tag"),
	}

	tasks, err := m.planner.ListTasks(c.Context(), filter)
	if err != nil {
		return writeError(c, err, "list_failed")
	}
	return c.JSON(m.taskList(c.Context(), tasks))
}

// todayDeadlines handles GET /api/v1/tasks/today.
func (m *Module) todayDeadlines(c *fiber.Ctx) error {
	tasks, err := m.planner.TodaysDeadlines(c.Context(), c.Query("today"))
	if err != nil {
		return writeError(c, err, "list_failed")
	}
	return c.JSON(m.taskList(c.Context(), tasks))
}

// createTask handles POST /api/v1/tasks.
func (m *Module) createTask(c *fiber.Ctx) error {
	var req records.TaskInput
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}
	if req.Title == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "validation_error",
			Message: "Title is required",
		})
	}

	task, err := m.planner.AddTask(c.Context(), &req)
	if err != nil {
		return writeError(c, err, "create_failed")
	}
	return c.Status(fiber.StatusCreated).JSON(m.taskResponse(c.Context(), *task))
}

// updateTask handles PATCH /api/v1/tasks/:id.
func (m *Module) updateTask(c *fiber.Ctx) error {
	var patch records.TaskPatch
	if err := c.BodyParser(&patch); err != nil {
		return invalidBody(c)
	}

	task, err := m.planner.UpdateTask(c.Context(), c.Params("id"), &patch)
	if err != nil {
		return writeError(c, err, "update_failed")
	}
	return c.JSON(m.taskResponse(c.Context(), *task))
}

// toggleTask handles POST /api/v1/tasks/:id/toggle.
func (m *Module) toggleTask(c *fiber.Ctx) error {
	task, err := m.planner.ToggleTask(c.Context(), c.Params("id"))
	if err != nil {
		return writeError(c, err, "toggle_failed")
	}
	return c.JSON(m.taskResponse(c.Context(), *task))
}

// deleteTask handles DELETE /api/v1/tasks/:id?confirm=true.
func (m *Module) deleteTask(c *fiber.Ctx) error {
	if !confirmed(c) {
		return confirmationRequired(c, "task")
	}

	deleted, err := m.planner.DeleteTask(c.Context(), c.Params("id"), true)
	if err != nil {
		return writeError(c, err, "delete_failed")
	}
	return c.JSON(DeleteResponse{Deleted: deleted})
}

// calendarMonth handles GET /api/v1/calendar/:year/:month.
func (m *Module) calendarMonth(c *fiber.Ctx) error {
	year, err := c.ParamsInt("year")
	if err != nil || year < 1 {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "validation_error",
			Message: "Invalid year",
		})
	}
	month, err := c.ParamsInt("month")
	if err != nil || month < 1 || month > 12 {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "validation_error",
			Message: "Invalid month",
		})
	}

	days, err := m.planner.CalendarMonth(c.Context(), year, time.Month(month))
	if err != nil {
		return writeError(c, err, "calendar_failed")
	}
	return c.JSON(CalendarResponse{Year: year, Month: month, Days: days})
}

// listTags handles GET /api/v1/tags.
func (m *Module) listTags(c *fiber.Ctx) error {
	tags, err := m.planner.ListTags(c.Context())
	if err != nil {
		return writeError(c, err, "list_failed")
	}

	resp := make([]TagResponse, 0, len(tags))
	for _, t := range tags {
		resp = append(resp, m.tagResponse(c.Context(), t))
	}
	return c.JSON(ListTagsResponse{Tags: resp, Total: len(resp)})
}

// createTag handles POST /api/v1/tags.
func (m *Module) createTag(c *fiber.Ctx) error {
	var req records.TagInput
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}
	if req.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "validation_error",
			Message: "Name is required",
		})
	}

	tag, err := m.planner.AddTag(c.Context(), &req)
	if err != nil {
		return writeError(c, err, "create_failed")
	}
	return c.Status(fiber.StatusCreated).JSON(m.tagResponse(c.Context(), *tag))
}

// updateTag handles PATCH /api/v1/tags/:id.
func (m *Module) updateTag(c *fiber.Ctx) error {
	var patch records.TagPatch
	if err := c.BodyParser(&patch); err != nil {
		return invalidBody(c)
	}

	tag, err := m.planner.UpdateTag(c.Context(), c.Params("id"), &patch)
	if err != nil {
		return writeError(c, err, "update_failed")
	}
	return c.JSON(m.tagResponse(c.Context(), *tag))
}

// deleteTag handles DELETE /api/v1/tags/:id?confirm=true.
func (m *Module) deleteTag(c *fiber.Ctx) error {
	if !confirmed(c) {
		return confirmationRequired(c, "tag")
	}

	deleted, err := m.planner.DeleteTag(c.Context(), c.Params("id"), true)
	if err != nil {
		return writeError(c, err, "delete_failed")
	}
	return c.JSON(DeleteResponse{Deleted: deleted})
}

// uploadImage handles POST /api/v1/images (multipart field "image").
func (m *Module) uploadImage(c *fiber.Ctx) error {
	if m.images == nil {
		return imagesUnavailable(c)
	}

	header, err := c.FormFile("image")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "invalid_request",
			Message: "No image provided",
		})
	}
	file, err := header.Open()
	if err != nil {
		return writeError(c, err, "upload_failed")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return writeError(c, err, "upload_failed")
	}

	info, err := m.images.Upload(c.Context(), data, header.Header.Get(fiber.HeaderContentType))
	if err != nil {
		return writeError(c, err, "upload_failed")
	}
	return c.Status(fiber.StatusCreated).JSON(info)
}

// getImage handles GET /api/v1/images/:id.
func (m *Module) getImage(c *fiber.Ctx) error {
	if m.images == nil {
		return imagesUnavailable(c)
	}

	img, ok := m.images.Get(c.Context(), c.Params("id"))
	if !ok {
		return writeError(c, images.ErrImageNotFound, "get_failed")
	}

	c.Set(fiber.HeaderContentType, img.ContentType)
	c.Set(fiber.HeaderCacheControl, "private, max-age=3600")
	return c.Send(img.Data)
}

// deleteImage handles DELETE /api/v1/images/:id.
func (m *Module) deleteImage(c *fiber.Ctx) error {
	if m.images == nil {
		return imagesUnavailable(c)
	}

	if err := m.images.Delete(c.Context(), c.Params("id")); err != nil {
		return writeError(c, err, "delete_failed")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// getTheme handles GET /api/v1/preferences/theme.
func (m *Module) getTheme(c *fiber.Ctx) error {
	theme, err := m.planner.Theme(c.Context())
	if err != nil {
		return writeError(c, err, "theme_failed")
	}
	return c.JSON(ThemeResponse{Theme: theme})
}

// setTheme handles PUT /api/v1/preferences/theme.
func (m *Module) setTheme(c *fiber.Ctx) error {
	var req ThemeRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}
	theme, err := planner.ParseTheme(req.Theme)
	if err != nil {
		return writeError(c, err, "theme_failed")
	}

	stored, err := m.planner.SetTheme(c.Context(), theme)
	if err != nil {
		return writeError(c, err, "theme_failed")
	}
	return c.JSON(ThemeResponse{Theme: stored})
}

func (m *Module) taskList(ctx context.Context, tasks []planner.Task) ListTasksResponse {
	resp := make([]TaskResponse, 0, len(tasks))
	for _, t := range tasks {
		resp = append(resp, m.taskResponse(ctx, t))
	}
	return ListTasksResponse{Tasks: resp, Total: len(resp)}
}

func (m *Module) taskResponse(ctx context.Context, t planner.Task) TaskResponse {
	return TaskResponse{
		ID:           t.ID,
		Title:        t.Title,
		Date:         t.Date,
		Time:         t.Time,
		Completed:    t.Completed,
		Type:         t.Type,
		TagID:        t.TagID,
		ImageURL:     t.ImageURL,
		ImageID:      t.ImageID,
		ImageSrc:     m.imageSrc(ctx, t.Image()),
		ImageOffset:  t.ResolvedImageOffset(),
		ImageOpacity: t.ResolvedImageOpacity(),
		CreatedAt:    t.CreatedAt,
	}
}

func (m *Module) tagResponse(ctx context.Context, t planner.Tag) TagResponse {
	return TagResponse{
		ID:         t.ID,
		Name:       t.Name,
		ThemeColor: t.Color(),
		ImageURL:   t.ImageURL,
		ImageID:    t.ImageID,
		ImageSrc:   m.imageSrc(ctx, t.Image()),
	}
}

func (m *Module) imageSrc(ctx context.Context, ref planner.ImageRef) string {
	if ref.IsZero() {
		return ""
	}
	if m.images == nil {
		return ref.URL
	}
	return m.images.Resolve(ctx, ref)
}

func confirmed(c *fiber.Ctx) bool {
	return c.Query("confirm") == "true"
}

func confirmationRequired(c *fiber.Ctx, what string) error {
	return c.Status(fiber.StatusConflict).JSON(ErrorResponse{
		Error:   "confirmation_required",
		Message: "Deleting a " + what + " requires confirm=true",
	})
}

func invalidBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
		Error:   "invalid_request",
		Message: "Invalid request body",
	})
}

func imagesUnavailable(c *fiber.Ctx) error {
	return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{
		Error:   "unavailable",
		Message: "Image storage is not configured",
	})
}

// writeError maps domain errors to HTTP responses.
func writeError(c *fiber.Ctx, err error, code string) error {
	status := fiber.StatusInternalServerError
	kind := code

	switch {
	case errors.Is(err, records.ErrTaskNotFound),
		errors.Is(err, records.ErrTagNotFound),
		errors.Is(err, images.ErrImageNotFound):
		status, kind = fiber.StatusNotFound, "not_found"
	case errors.Is(err, planner.ErrInvalidInput),
		errors.Is(err, planner.ErrInvalidTheme),
		errors.Is(err, images.ErrInvalidImageID),
		errors.Is(err, images.ErrUnsupportedType):
		status, kind = fiber.StatusBadRequest, "validation_error"
	case errors.Is(err, images.ErrImageTooLarge):
		status, kind = fiber.StatusRequestEntityTooLarge, "too_large"
	case errors.Is(err, records.ErrNotLoaded):
		status, kind = fiber.StatusServiceUnavailable, "unavailable"
	}

	return c.Status(status).JSON(ErrorResponse{
		Error:   kind,
		Message: err.Error(),
	})
}
