package task

import (
	"context"
	"errors"
	"fmt"
	"strings"

	domain "github.com/example/task-service/domain/task"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const taskSchema = `
CREATE TABLE IF NOT EXISTS tasks (
	id               TEXT PRIMARY KEY,
	owner_id         TEXT NOT NULL,
	title            VARCHAR(1024) NOT NULL,
	description      VARCHAR(4096),
	priority         TEXT NOT NULL,
	status           TEXT NOT NULL,
	created_at       TIMESTAMPTZ NOT NULL,
	reminder_at      TIMESTAMPTZ,
	reminder_all_day BOOLEAN
);
CREATE INDEX IF NOT EXISTS idx_tasks_owner_status_priority ON tasks (owner_id, status, priority);
`

const taskColumns = `id, owner_id, title, description, priority, status, created_at, reminder_at, reminder_all_day`

// PostgresRepository implements Repository using a pgx connection pool.
type PostgresRepository struct {
	pool *pgxpool.Pool
	opts repoOptions
}

var _ Repository = (*PostgresRepository)(nil)

// NewPostgresRepository creates a new PostgresRepository.
func NewPostgresRepository(pool *pgxpool.Pool, opts ...RepositoryOption) *PostgresRepository {
	return &PostgresRepository{
		pool: pool,
		opts: defaultRepoOptions(opts),
	}
}

// OpenPostgres connects to databaseURL, verifies the connection and ensures the schema exists.
func OpenPostgres(ctx context.Context, databaseURL string, opts ...RepositoryOption) (*PostgresRepository, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	repo := NewPostgresRepository(pool, opts...)
	if err := repo.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return repo, nil
}

// EnsureSchema creates the tasks table and its index when missing.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, taskSchema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

func scanTask(row pgx.Row) (*domain.Task, error) {
	var (
		t        domain.Task
		priority string
		status   string
	)
	if err := row.Scan(
		&t.ID,
		&t.OwnerID,
		&t.Title,
		&t.Description,
		&priority,
		&status,
		&t.CreatedAt,
		&t.ReminderAt,
		&t.ReminderAllDay,
	); err != nil {
		return nil, err
	}
	t.Priority = domain.Priority(priority)
	t.Status = domain.Status(status)
	t.Normalize()
	return &t, nil
}

// Create stores a new task.
func (r *PostgresRepository) Create(ctx context.Context, ownerID string, in domain.Input) (*domain.Task, error) {
	t := newTask(r.opts, ownerID, in)
	_, err := r.pool.Exec(ctx,
		`INSERT INTO tasks (`+taskColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		t.ID, t.OwnerID, t.Title, t.Description, string(t.Priority), string(t.Status),
		t.CreatedAt, t.ReminderAt, t.ReminderAllDay,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	return t, nil
}

// GetByID returns the task with the given id owned by ownerID.
func (r *PostgresRepository) GetByID(ctx context.Context, id, ownerID string) (*domain.Task, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = $1 AND owner_id = $2`,
		id, ownerID,
	)
	t, err := scanTask(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return t, nil
}

// Find returns the tasks of ownerID matching filter.
func (r *PostgresRepository) Find(ctx context.Context, ownerID string, filter domain.Filter) ([]*domain.Task, error) {
	var priority, status *string
	if filter.Priority != nil {
		p := string(*filter.Priority)
		priority = &p
	}
	if filter.Status != nil {
		s := string(*filter.Status)
		status = &s
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+taskColumns+` FROM tasks
		WHERE owner_id = $1
		  AND ($2::text IS NULL OR priority = $2)
		  AND ($3::text IS NULL OR status = $3)
		ORDER BY created_at DESC, id ASC`,
		ownerID, priority, status,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to find tasks: %w", err)
	}
	defer rows.Close()

	tasks := make([]*domain.Task, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tasks: %w", err)
	}
	return tasks, nil
}

// Update applies the set fields of in to the task.
func (r *PostgresRepository) Update(ctx context.Context, id, ownerID string, in domain.Input) (*domain.Task, error) {
	updates := changes(in)
	if len(updates) == 0 {
		return r.GetByID(ctx, id, ownerID)
	}

	sets := make([]string, 0, len(updates))
	args := make([]any, 0, len(updates)+2)
	for _, column := range []string{"title", "description", "priority", "status", "reminder_at", "reminder_all_day"} {
		value, ok := updates[column]
		if !ok {
			continue
		}
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	args = append(args, id, ownerID)

	row := r.pool.QueryRow(ctx,
		fmt.Sprintf(`UPDATE tasks SET %s WHERE id = $%d AND owner_id = $%d RETURNING `+taskColumns,
			strings.Join(sets, ", "), len(args)-1, len(args)),
		args...,
	)
	t, err := scanTask(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to update task: %w", err)
	}
	return t, nil
}

// Trash sets the status of the task to TRASH.
func (r *PostgresRepository) Trash(ctx context.Context, id, ownerID string) (string, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE tasks SET status = $1 WHERE id = $2 AND owner_id = $3`,
		string(domain.StatusTrash), id, ownerID,
	)
	if err != nil {
		return "", fmt.Errorf("failed to trash task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return "", nil
	}
	return id, nil
}

// Ping checks the database connection.
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close closes the connection pool.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}
