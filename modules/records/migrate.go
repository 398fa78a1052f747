package records

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/example/planner/domain/planner"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Legacy entries are validated one at a time. Only the id is required and
// every optional field may be null.
const legacyTagSchemaJSON = `{
  "type": "object",
  "required": ["id"],
  "properties": {
    "id": {"type": "string", "minLength": 1},
    "title": {"type": ["string", "null"]},
    "themeColor": {"type": ["string", "null"]},
    "imageUrl": {"type": ["string", "null"]},
    "imageId": {"type": ["string", "null"]}
  }
}`

const legacyTaskSchemaJSON = `{
  "type": "object",
  "required": ["id"],
  "properties": {
    "id": {"type": "string", "minLength": 1},
    "title": {"type": ["string", "null"]},
    "date": {"type": ["string", "null"]},
    "time": {"type": ["string", "null"]},
    "completed": {"type": ["boolean", "null"]},
    "type": {"type": ["string", "null"]},
    "tagId": {"type": ["string", "null"]},
    "gameId": {"type": ["string", "null"]},
    "imageUrl": {"type": ["string", "null"]},
    "imageId": {"type": ["string", "null"]},
    "imageOffset": {"type": ["integer", "null"]},
    "imageOpacity": {"type": ["integer", "null"]},
    "createdAt": {"type": ["integer", "null"]}
  }
}`

var (
	legacyTagSchema  = jsonschema.MustCompileString("legacy-tag.json", legacyTagSchemaJSON)
	legacyTaskSchema = jsonschema.MustCompileString("legacy-task.json", legacyTaskSchemaJSON)
)

// DefaultTags seeds an empty planner with a few categories.
func DefaultTags() []planner.Tag {
	return []planner.Tag{
		{ID: "tag-work", Name: "Work", ThemeColor: "#3b82f6"},
		{ID: "tag-personal", Name: "Personal", ThemeColor: "#10b981"},
		{ID: "tag-health", Name: "Health", ThemeColor: "#ef4444"},
	}
}

type legacyTag struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	ThemeColor string `json:"themeColor"`
	ImageURL   string `json:"imageUrl,omitempty"`
	ImageID    string `json:"imageId,omitempty"`
}

type legacyTask struct {
	planner.Task
	GameID *string `json:"gameId"`
}

// Migrator loads the current collections, upgrading from the legacy keys
// the first time. The presence of a current key marks its migration done.
type Migrator struct {
	kv     KVStore
	logger types.Logger
	now    func() time.Time
}

// NewMigrator creates a migrator over kv.
func NewMigrator(kv KVStore, logger types.Logger, now func() time.Time) *Migrator {
	if now == nil {
		now = time.Now
	}
	return &Migrator{kv: kv, logger: logger, now: now}
}

// LoadTags returns the current tags. Legacy tags are renamed and written
// under the current key; with no data at all the defaults are seeded.
func (m *Migrator) LoadTags(ctx context.Context) ([]planner.Tag, error) {
	current, err := m.read(ctx, KeyTags)
	if err != nil {
		return nil, err
	}
	if current != nil {
		var tags []planner.Tag
		if err := json.Unmarshal(current, &tags); err != nil {
			m.logger.Error("Stored tags are malformed, starting empty", "key", KeyTags, "error", err)
			return []planner.Tag{}, nil
		}
		return nonNil(tags), nil
	}

	legacy, err := m.read(ctx, KeyLegacyTags)
	if err != nil {
		return nil, err
	}
	if legacy == nil {
		tags := DefaultTags()
		m.write(ctx, KeyTags, tags)
		m.logger.Info("Seeded default tags", "count", len(tags))
		return tags, nil
	}

	raw, err := decodeLegacy[legacyTag](m, KeyLegacyTags, legacy, legacyTagSchema)
	if err != nil {
		m.logger.Error("Legacy tags are malformed, starting empty", "key", KeyLegacyTags, "error", err)
		return []planner.Tag{}, nil
	}
	if len(raw) == 0 {
		m.logger.Warn("No readable legacy tags, starting empty", "key", KeyLegacyTags)
		return []planner.Tag{}, nil
	}

	tags := make([]planner.Tag, len(raw))
	for i, lt := range raw {
		name := lt.Title
		if name == "" {
			name = lt.ID
		}
		tags[i] = planner.Tag{
			ID:         lt.ID,
			Name:       name,
			ThemeColor: lt.ThemeColor,
			ImageURL:   lt.ImageURL,
			ImageID:    lt.ImageID,
		}
	}
	m.write(ctx, KeyTags, tags)
	m.logger.Info("Migrated legacy tags", "count", len(tags))
	return tags, nil
}

// LoadTasks returns the current tasks. Legacy tasks get gameId renamed to
// tagId and a creation time backfilled. No data at all means no tasks.
func (m *Migrator) LoadTasks(ctx context.Context) ([]planner.Task, error) {
	current, err := m.read(ctx, KeyTasks)
	if err != nil {
		return nil, err
	}
	if current != nil {
		var tasks []planner.Task
		if err := json.Unmarshal(current, &tasks); err != nil {
			m.logger.Error("Stored tasks are malformed, starting empty", "key", KeyTasks, "error", err)
			return []planner.Task{}, nil
		}
		return nonNil(tasks), nil
	}

	legacy, err := m.read(ctx, KeyLegacyTasks)
	if err != nil {
		return nil, err
	}
	if legacy == nil {
		return []planner.Task{}, nil
	}

	raw, err := decodeLegacy[legacyTask](m, KeyLegacyTasks, legacy, legacyTaskSchema)
	if err != nil {
		m.logger.Error("Legacy tasks are malformed, starting empty", "key", KeyLegacyTasks, "error", err)
		return []planner.Task{}, nil
	}
	if len(raw) == 0 {
		m.logger.Warn("No readable legacy tasks, starting empty", "key", KeyLegacyTasks)
		return []planner.Task{}, nil
	}

	now := planner.NowMillis(m.now())
	tasks := make([]planner.Task, len(raw))
	for i, lt := range raw {
		task := lt.Task
		if task.TagID == "" && lt.GameID != nil {
			task.TagID = *lt.GameID
		}
		if task.CreatedAt == 0 {
			task.CreatedAt = now
		}
		tasks[i] = task
	}
	m.write(ctx, KeyTasks, tasks)
	m.logger.Info("Migrated legacy tasks", "count", len(tasks))
	return tasks, nil
}

// LoadTheme returns the stored theme, or light when absent or invalid.
func (m *Migrator) LoadTheme(ctx context.Context) (planner.Theme, error) {
	data, err := m.read(ctx, KeyTheme)
	if err != nil {
		return "", err
	}
	if data == nil {
		return planner.ThemeLight, nil
	}
	theme, err := planner.ParseTheme(string(data))
	if err != nil {
		m.logger.Warn("Stored theme is invalid, using light", "value", string(data))
		return planner.ThemeLight, nil
	}
	return theme, nil
}

// read returns nil, nil for an absent key.
func (m *Migrator) read(ctx context.Context, key string) ([]byte, error) {
	data, err := m.kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return data, nil
}

// write persists a migrated collection. A failed write leaves the legacy
// data in place so the migration runs again on the next start.
func (m *Migrator) write(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		m.logger.Error("Failed to encode migrated data", "key", key, "error", err)
		return
	}
	if err := m.kv.Set(ctx, key, data); err != nil {
		m.logger.Error("Failed to write migrated data", "key", key, "error", err)
	}
}

// decodeLegacy decodes a legacy collection entry by entry. It fails only
// when data is not a JSON array. Entries that do not match schema are
// logged and skipped so one bad entry never drops the rest.
func decodeLegacy[T any](m *Migrator, key string, data []byte, schema *jsonschema.Schema) ([]T, error) {
	var entries []json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("invalid json array: %w", err)
	}

	out := make([]T, 0, len(entries))
	for i, entry := range entries {
		var doc any
		if err := json.Unmarshal(entry, &doc); err != nil {
			m.logger.Warn("Skipping unreadable legacy entry", "key", key, "index", i, "error", err)
			continue
		}
		if err := schema.Validate(doc); err != nil {
			m.logger.Warn("Skipping invalid legacy entry", "key", key, "index", i, "error", err)
			continue
		}
		var v T
		if err := json.Unmarshal(entry, &v); err != nil {
			m.logger.Warn("Skipping unreadable legacy entry", "key", key, "index", i, "error", err)
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
