package records

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/example/planner/domain/planner"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/google/uuid"
)

// Owner kinds reported when an image is released.
const (
	OwnerTask = "task"
	OwnerTag  = "tag"
)

// ImageReleaser is told when a local image is no longer referenced.
// Implementations must not block; cleanup is best-effort.
type ImageReleaser interface {
	ReleaseImage(ctx context.Context, imageID, ownerKind, ownerID string)
}

// Confirmer gates destructive operations.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, prompt string) bool

// Confirm calls f.
func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) bool {
	return f(ctx, prompt)
}

// Confirmed returns a Confirmer that always answers ok.
func Confirmed(ok bool) Confirmer {
	return ConfirmFunc(func(context.Context, string) bool { return ok })
}

// TaskInput holds the fields of a new task.
type TaskInput struct {
	Title        string `json:"title"`
	Date         string `json:"date"`
	Time         string `json:"time,omitempty"`
	Type         string `json:"type,omitempty"`
	TagID        string `json:"tagId,omitempty"`
	ImageURL     string `json:"imageUrl,omitempty"`
	ImageID      string `json:"imageId,omitempty"`
	ImageOffset  *int   `json:"imageOffset,omitempty"`
	ImageOpacity *int   `json:"imageOpacity,omitempty"`
}

// TaskPatch holds optional task edits. Nil fields are left unchanged and
// an empty string clears an optional field.
type TaskPatch struct {
	Title        *string `json:"title,omitempty"`
	Date         *string `json:"date,omitempty"`
	Time         *string `json:"time,omitempty"`
	Type         *string `json:"type,omitempty"`
	Completed    *bool   `json:"completed,omitempty"`
	TagID        *string `json:"tagId,omitempty"`
	ImageURL     *string `json:"imageUrl,omitempty"`
	ImageID      *string `json:"imageId,omitempty"`
	ImageOffset  *int    `json:"imageOffset,omitempty"`
	ImageOpacity *int    `json:"imageOpacity,omitempty"`
}

// TagInput holds the fields of a new tag.
type TagInput struct {
	Name       string `json:"name"`
	ThemeColor string `json:"themeColor,omitempty"`
	ImageURL   string `json:"imageUrl,omitempty"`
	ImageID    string `json:"imageId,omitempty"`
}

// TagPatch holds optional tag edits.
type TagPatch struct {
	Name       *string `json:"name,omitempty"`
	ThemeColor *string `json:"themeColor,omitempty"`
	ImageURL   *string `json:"imageUrl,omitempty"`
	ImageID    *string `json:"imageId,omitempty"`
}

// Store holds the task and tag collections in memory and writes the whole
// affected collection to the KVStore on every mutation. Memory is only
// updated after the write succeeds.
type Store struct {
	mu       sync.RWMutex
	kv       KVStore
	migrator *Migrator
	releaser ImageReleaser
	logger   types.Logger
	now      func() time.Time
	newID    func() string

	loaded bool
	tasks  []planner.Task
	tags   []planner.Tag
	theme  planner.Theme
}

// StoreOption customizes a Store.
type StoreOption func(*Store)

// WithClock overrides the time source.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides id generation.
func WithIDGenerator(newID func() string) StoreOption {
	return func(s *Store) { s.newID = newID }
}

// NewStore creates a store. Call Load before using it.
func NewStore(kv KVStore, releaser ImageReleaser, logger types.Logger, opts ...StoreOption) *Store {
	s := &Store{
		kv:       kv,
		releaser: releaser,
		logger:   logger,
		now:      time.Now,
		newID:    func() string { return uuid.New().String() },
		tasks:    []planner.Task{},
		tags:     []planner.Tag{},
		theme:    planner.ThemeLight,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.migrator = NewMigrator(kv, logger, s.now)
	return s
}

// Load reads tags, then tasks, then the theme, migrating legacy data on first run.
func (s *Store) Load(ctx context.Context) error {
	tags, err := s.migrator.LoadTags(ctx)
	if err != nil {
		return fmt.Errorf("failed to load tags: %w", err)
	}
	tasks, err := s.migrator.LoadTasks(ctx)
	if err != nil {
		return fmt.Errorf("failed to load tasks: %w", err)
	}
	theme, err := s.migrator.LoadTheme(ctx)
	if err != nil {
		return fmt.Errorf("failed to load theme: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tags = tags
	s.tasks = tasks
	s.theme = theme
	s.loaded = true

	s.logger.Info("Records loaded", "tasks", len(tasks), "tags", len(tags), "theme", string(theme))
	return nil
}

// Tasks returns a copy of all tasks in stored order.
func (s *Store) Tasks() []planner.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.tasks)
}

// Tags returns a copy of all tags in stored order.
func (s *Store) Tags() []planner.Tag {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.tags)
}

// Task returns a single task.
func (s *Store) Task(id string) (planner.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.taskIndex(id)
	if i < 0 {
		return planner.Task{}, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	return s.tasks[i], nil
}

// Tag returns a single tag.
func (s *Store) Tag(id string) (planner.Tag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.tagIndex(id)
	if i < 0 {
		return planner.Tag{}, fmt.Errorf("%w: %s", ErrTagNotFound, id)
	}
	return s.tags[i], nil
}

// AddTask validates and appends a new task.
func (s *Store) AddTask(ctx context.Context, in TaskInput) (planner.Task, error) {
	kind, err := planner.ParseKind(in.Type)
	if err != nil {
		return planner.Task{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return planner.Task{}, ErrNotLoaded
	}

	task := planner.Task{
		ID:           s.newID(),
		Title:        strings.TrimSpace(in.Title),
		Date:         in.Date,
		Time:         in.Time,
		Type:         kind,
		TagID:        in.TagID,
		ImageURL:     in.ImageURL,
		ImageID:      in.ImageID,
		ImageOffset:  in.ImageOffset,
		ImageOpacity: in.ImageOpacity,
		CreatedAt:    planner.NowMillis(s.now()),
	}
	if err := task.Validate(); err != nil {
		return planner.Task{}, err
	}
	if err := s.checkTag(task.TagID); err != nil {
		return planner.Task{}, err
	}

	next := append(slices.Clone(s.tasks), task)
	if err := s.saveTasks(ctx, next); err != nil {
		return planner.Task{}, err
	}
	return task, nil
}

// ToggleTask flips a task's completion.
func (s *Store) ToggleTask(ctx context.Context, id string) (planner.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.taskIndex(id)
	if i < 0 {
		return planner.Task{}, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}

	next := slices.Clone(s.tasks)
	next[i].Completed = !next[i].Completed
	if err := s.saveTasks(ctx, next); err != nil {
		return planner.Task{}, err
	}
	return next[i], nil
}

// UpdateTask applies a patch. Replacing a local image releases the old one.
func (s *Store) UpdateTask(ctx context.Context, id string, patch TaskPatch) (planner.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.taskIndex(id)
	if i < 0 {
		return planner.Task{}, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}

	before := s.tasks[i]
	task := before
	if patch.Title != nil {
		task.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Date != nil {
		task.Date = *patch.Date
	}
	if patch.Time != nil {
		task.Time = *patch.Time
	}
	if patch.Type != nil {
		kind, err := planner.ParseKind(*patch.Type)
		if err != nil {
			return planner.Task{}, err
		}
		task.Type = kind
	}
	if patch.Completed != nil {
		task.Completed = *patch.Completed
	}
	if patch.TagID != nil {
		task.TagID = *patch.TagID
	}
	if patch.ImageURL != nil {
		task.ImageURL = *patch.ImageURL
	}
	if patch.ImageID != nil {
		task.ImageID = *patch.ImageID
	}
	if patch.ImageOffset != nil {
		task.ImageOffset = patch.ImageOffset
	}
	if patch.ImageOpacity != nil {
		task.ImageOpacity = patch.ImageOpacity
	}

	if err := task.Validate(); err != nil {
		return planner.Task{}, err
	}
	if task.TagID != before.TagID {
		if err := s.checkTag(task.TagID); err != nil {
			return planner.Task{}, err
		}
	}

	next := slices.Clone(s.tasks)
	next[i] = task
	if err := s.saveTasks(ctx, next); err != nil {
		return planner.Task{}, err
	}

	if before.ImageID != "" && before.ImageID != task.ImageID {
		s.release(ctx, before.ImageID, OwnerTask, id)
	}
	return task, nil
}

// DeleteTask removes a task once confirm agrees. A declined confirmation
// returns false and changes nothing.
func (s *Store) DeleteTask(ctx context.Context, id string, confirm Confirmer) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.taskIndex(id)
	if i < 0 {
		return false, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	task := s.tasks[i]
	if !confirm.Confirm(ctx, fmt.Sprintf("Delete task %q?", task.Title)) {
		return false, nil
	}

	next := slices.Delete(slices.Clone(s.tasks), i, i+1)
	if err := s.saveTasks(ctx, next); err != nil {
		return false, err
	}

	if task.ImageID != "" {
		s.release(ctx, task.ImageID, OwnerTask, id)
	}
	return true, nil
}

// AddTag validates and appends a new tag.
func (s *Store) AddTag(ctx context.Context, in TagInput) (planner.Tag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return planner.Tag{}, ErrNotLoaded
	}

	tag := planner.Tag{
		ID:         s.newID(),
		Name:       strings.TrimSpace(in.Name),
		ThemeColor: in.ThemeColor,
		ImageURL:   in.ImageURL,
		ImageID:    in.ImageID,
	}
	if tag.ThemeColor == "" {
		tag.ThemeColor = planner.DefaultThemeColor
	}
	if err := tag.Validate(); err != nil {
		return planner.Tag{}, err
	}

	next := append(slices.Clone(s.tags), tag)
	if err := s.saveTags(ctx, next); err != nil {
		return planner.Tag{}, err
	}
	return tag, nil
}

// UpdateTag applies a patch. Replacing a local image releases the old one.
func (s *Store) UpdateTag(ctx context.Context, id string, patch TagPatch) (planner.Tag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.tagIndex(id)
	if i < 0 {
		return planner.Tag{}, fmt.Errorf("%w: %s", ErrTagNotFound, id)
	}

	before := s.tags[i]
	tag := before
	if patch.Name != nil {
		tag.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.ThemeColor != nil {
		tag.ThemeColor = *patch.ThemeColor
	}
	if patch.ImageURL != nil {
		tag.ImageURL = *patch.ImageURL
	}
	if patch.ImageID != nil {
		tag.ImageID = *patch.ImageID
	}
	if err := tag.Validate(); err != nil {
		return planner.Tag{}, err
	}

	next := slices.Clone(s.tags)
	next[i] = tag
	if err := s.saveTags(ctx, next); err != nil {
		return planner.Tag{}, err
	}

	if before.ImageID != "" && before.ImageID != tag.ImageID {
		s.release(ctx, before.ImageID, OwnerTag, id)
	}
	return tag, nil
}

// DeleteTag removes a tag once confirm agrees and clears it from every
// task that referenced it. Both collections are written.
func (s *Store) DeleteTag(ctx context.Context, id string, confirm Confirmer) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.tagIndex(id)
	if i < 0 {
		return false, fmt.Errorf("%w: %s", ErrTagNotFound, id)
	}
	tag := s.tags[i]
	if !confirm.Confirm(ctx, fmt.Sprintf("Delete tag %q?", tag.Name)) {
		return false, nil
	}

	tasks := slices.Clone(s.tasks)
	cleared := 0
	for j := range tasks {
		if tasks[j].TagID == id {
			tasks[j].TagID = ""
			cleared++
		}
	}
	if cleared > 0 {
		if err := s.saveTasks(ctx, tasks); err != nil {
			return false, err
		}
	}

	next := slices.Delete(slices.Clone(s.tags), i, i+1)
	if err := s.saveTags(ctx, next); err != nil {
		return false, err
	}

	if tag.ImageID != "" {
		s.release(ctx, tag.ImageID, OwnerTag, id)
	}
	s.logger.Info("Tag deleted", "tag_id", id, "tasks_cleared", cleared)
	return true, nil
}

// Theme returns the stored theme preference.
func (s *Store) Theme() planner.Theme {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.theme
}

// SetTheme stores the theme preference.
func (s *Store) SetTheme(ctx context.Context, theme planner.Theme) error {
	if _, err := planner.ParseTheme(string(theme)); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.kv.Set(ctx, KeyTheme, []byte(theme)); err != nil {
		return fmt.Errorf("failed to persist theme: %w", err)
	}
	s.theme = theme
	return nil
}

func (s *Store) taskIndex(id string) int {
	return slices.IndexFunc(s.tasks, func(t planner.Task) bool { return t.ID == id })
}

func (s *Store) tagIndex(id string) int {
	return slices.IndexFunc(s.tags, func(t planner.Tag) bool { return t.ID == id })
}

func (s *Store) checkTag(id string) error {
	if id != "" && s.tagIndex(id) < 0 {
		return fmt.Errorf("%w: %s", ErrTagNotFound, id)
	}
	return nil
}

// saveTasks persists next and only then installs it in memory.
func (s *Store) saveTasks(ctx context.Context, next []planner.Task) error {
	if err := s.persist(ctx, KeyTasks, next); err != nil {
		return err
	}
	s.tasks = next
	return nil
}

func (s *Store) saveTags(ctx context.Context, next []planner.Tag) error {
	if err := s.persist(ctx, KeyTags, next); err != nil {
		return err
	}
	s.tags = next
	return nil
}

func (s *Store) persist(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	if err := s.kv.Set(ctx, key, data); err != nil {
		s.logger.Error("Failed to persist collection", "key", key, "error", err)
		return fmt.Errorf("failed to persist %s: %w", key, err)
	}
	return nil
}

func (s *Store) release(ctx context.Context, imageID, ownerKind, ownerID string) {
	if s.releaser == nil {
		s.logger.Warn("No image releaser configured, image left in place", "image_id", imageID)
		return
	}
	s.releaser.ReleaseImage(ctx, imageID, ownerKind, ownerID)
}
