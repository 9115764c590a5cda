package task

import (
	"context"
	"errors"
	"fmt"
	"time"

	domain "github.com/example/task-service/domain/task"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Repository persists tasks. Every operation except Create is scoped to an
// owner; a task owned by somebody else is reported exactly like a missing one.
type Repository interface {
	// Create stores a new task. It never validates its input.
	Create(ctx context.Context, ownerID string, in domain.Input) (*domain.Task, error)
	// GetByID returns nil without error when the task is not found.
	GetByID(ctx context.Context, id, ownerID string) (*domain.Task, error)
	// Find returns the owner's tasks, newest first.
	Find(ctx context.Context, ownerID string, filter domain.Filter) ([]*domain.Task, error)
	// Update applies the set fields of in. It returns nil without error when the task is not found.
	Update(ctx context.Context, id, ownerID string, in domain.Input) (*domain.Task, error)
	// Trash moves the task to the trash and returns its id, or "" when the task is not found.
	Trash(ctx context.Context, id, ownerID string) (string, error)
	Ping(ctx context.Context) error
	Close() error
}

// RepositoryOption configures a repository.
type RepositoryOption func(*repoOptions)

type repoOptions struct {
	now   func() time.Time
	newID func() string
}

func defaultRepoOptions(opts []RepositoryOption) repoOptions {
	o := repoOptions{
		now:   time.Now,
		newID: func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithClock sets the time source used to stamp CreatedAt.
func WithClock(now func() time.Time) RepositoryOption {
	return func(o *repoOptions) {
		o.now = now
	}
}

// WithIDGenerator sets the function that generates task ids.
func WithIDGenerator(fn func() string) RepositoryOption {
	return func(o *repoOptions) {
		o.newID = fn
	}
}

// newTask builds the row written by Create, applying defaults.
func newTask(o repoOptions, ownerID string, in domain.Input) *domain.Task {
	t := &domain.Task{
		ID:        o.newID(),
		OwnerID:   ownerID,
		Priority:  domain.PriorityMedium,
		Status:    domain.StatusOpen,
		CreatedAt: domain.Timestamp(o.now()),
	}
	if in.Title != nil {
		t.Title = *in.Title
	}
	if in.Description != nil {
		t.Description = in.Description
	}
	if in.Priority != nil {
		t.Priority = *in.Priority
	}
	if in.Status != nil {
		t.Status = *in.Status
	}
	if in.ReminderAt != nil && !in.ClearsReminder() {
		at := domain.Timestamp(*in.ReminderAt)
		t.ReminderAt = &at
		t.ReminderAllDay = in.ReminderAllDay
	}
	return t
}

// changes returns the column updates described by in.
func changes(in domain.Input) map[string]any {
	updates := make(map[string]any)
	if in.Title != nil {
		updates["title"] = *in.Title
	}
	switch {
	case in.ClearDescription:
		updates["description"] = nil
	case in.Description != nil:
		updates["description"] = *in.Description
	}
	if in.Priority != nil {
		updates["priority"] = string(*in.Priority)
	}
	if in.Status != nil {
		updates["status"] = string(*in.Status)
	}
	switch {
	case in.ClearsReminder():
		updates["reminder_at"] = nil
		updates["reminder_all_day"] = nil
	case in.ReminderAt != nil:
		updates["reminder_at"] = domain.Timestamp(*in.ReminderAt)
		if in.ReminderAllDay != nil {
			updates["reminder_all_day"] = *in.ReminderAllDay
		}
	case in.ReminderAllDay != nil:
		updates["reminder_all_day"] = *in.ReminderAllDay
	}
	return updates
}

// OpenSQLite opens (creating if needed) the SQLite database at path and migrates the task schema.
func OpenSQLite(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database connection: %w", err)
	}
	// SQLite allows a single writer; one connection also keeps ":memory:" databases shared.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&domain.Task{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return db, nil
}

// GormRepository implements Repository using GORM.
type GormRepository struct {
	db   *gorm.DB
	opts repoOptions
}

var _ Repository = (*GormRepository)(nil)

// NewGormRepository creates a new GormRepository on an already migrated database.
func NewGormRepository(db *gorm.DB, opts ...RepositoryOption) *GormRepository {
	return &GormRepository{
		db:   db,
		opts: defaultRepoOptions(opts),
	}
}

// Create stores a new task.
func (r *GormRepository) Create(ctx context.Context, ownerID string, in domain.Input) (*domain.Task, error) {
	t := newTask(r.opts, ownerID, in)
	if err := r.db.WithContext(ctx).Create(t).Error; err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	return t, nil
}

// GetByID returns the task with the given id owned by ownerID.
func (r *GormRepository) GetByID(ctx context.Context, id, ownerID string) (*domain.Task, error) {
	return r.get(r.db.WithContext(ctx), id, ownerID)
}

func (r *GormRepository) get(db *gorm.DB, id, ownerID string) (*domain.Task, error) {
	var t domain.Task
	result := db.First(&t, "id = ? AND owner_id = ?", id, ownerID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get task: %w", result.Error)
	}
	t.Normalize()
	return &t, nil
}

// Find returns the tasks of ownerID matching filter.
func (r *GormRepository) Find(ctx context.Context, ownerID string, filter domain.Filter) ([]*domain.Task, error) {
	query := r.db.WithContext(ctx).Where("owner_id = ?", ownerID)
	if filter.Priority != nil {
		query = query.Where("priority = ?", string(*filter.Priority))
	}
	if filter.Status != nil {
		query = query.Where("status = ?", string(*filter.Status))
	}

	tasks := make([]*domain.Task, 0)
	if err := query.Order("created_at DESC").Order("id ASC").Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("failed to find tasks: %w", err)
	}
	for _, t := range tasks {
		t.Normalize()
	}
	return tasks, nil
}

// Update applies the set fields of in to the task.
func (r *GormRepository) Update(ctx context.Context, id, ownerID string, in domain.Input) (*domain.Task, error) {
	var updated *domain.Task
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := r.get(tx, id, ownerID)
		if err != nil || current == nil {
			return err
		}

		updates := changes(in)
		if len(updates) == 0 {
			updated = current
			return nil
		}

		result := tx.Model(&domain.Task{}).
			Where("id = ? AND owner_id = ?", id, ownerID).
			Updates(updates)
		if result.Error != nil {
			return fmt.Errorf("failed to update task: %w", result.Error)
		}

		updated, err = r.get(tx, id, ownerID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Trash sets the status of the task to TRASH.
func (r *GormRepository) Trash(ctx context.Context, id, ownerID string) (string, error) {
	result := r.db.WithContext(ctx).
		Model(&domain.Task{}).
		Where("id = ? AND owner_id = ?", id, ownerID).
		Update("status", string(domain.StatusTrash))
	if result.Error != nil {
		return "", fmt.Errorf("failed to trash task: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return "", nil
	}
	return id, nil
}

// Ping checks the database connection.
func (r *GormRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database connection: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the database connection.
func (r *GormRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
