package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// Task is a stored to-do item. ID is zero until storage assigns one.
type Task struct {
	ID        int64     `json:"id,omitempty"`
	Task      string    `json:"task"`
	IsDone    bool      `json:"isDone"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewTask holds the caller-supplied fields of a task being added
type NewTask struct {
	Task   string `json:"task"`
	IsDone bool   `json:"isDone"`
}

// ListTasks returns every task in key order. An empty collection yields an
// empty, non-nil slice.
func (s *Service) ListTasks(ctx context.Context) (tasks []Task, err error) {
	defer func(start time.Time) { s.observe("list_tasks", start, err) }(time.Now())

	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx,
		"SELECT id, task, is_done, created_at FROM tasks ORDER BY id")
	if err != nil {
		return nil, &ReadError{Op: "list tasks", Err: err}
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			logrus.WithError(closeErr).Warn("Failed to close database rows")
		}
	}()

	tasks = make([]Task, 0)
	for rows.Next() {
		var task Task
		var createdAtMillis int64
		if err := rows.Scan(&task.ID, &task.Task, &task.IsDone, &createdAtMillis); err != nil {
			return nil, &ReadError{Op: "list tasks", Err: fmt.Errorf("failed to scan task: %w", err)}
		}
		task.CreatedAt = fromMillis(createdAtMillis)
		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		return nil, &ReadError{Op: "list tasks", Err: fmt.Errorf("error iterating tasks: %w", err)}
	}

	return tasks, nil
}

// AddTask inserts a task, stamping its creation time, and returns the stored
// record with its assigned id.
func (s *Service) AddTask(ctx context.Context, in NewTask) (task Task, err error) {
	defer func(start time.Time) { s.observe("add_task", start, err) }(time.Now())

	db, err := s.conn(ctx)
	if err != nil {
		return Task{}, err
	}

	createdAt := toMillis(s.now())

	var id int64
	err = inTx(ctx, db, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			"INSERT INTO tasks (task, is_done, created_at) VALUES (?, ?, ?)",
			in.Task, in.IsDone, createdAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert task: %w", err)
		}
		id, err = result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to read assigned id: %w", err)
		}
		return nil
	})
	if err != nil {
		return Task{}, &WriteError{Op: "add task", Err: err}
	}

	return Task{
		ID:        id,
		Task:      in.Task,
		IsDone:    in.IsDone,
		CreatedAt: fromMillis(createdAt),
	}, nil
}

// UpdateTask writes the full task under its id. An existing row keeps its
// original creation time; an unknown id is inserted as supplied.
func (s *Service) UpdateTask(ctx context.Context, task Task) (err error) {
	defer func(start time.Time) { s.observe("update_task", start, err) }(time.Now())

	if task.ID <= 0 {
		return &WriteError{Op: "update task", Err: ErrMissingKey}
	}

	db, err := s.conn(ctx)
	if err != nil {
		return err
	}

	createdAt := task.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}

	err = inTx(ctx, db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO tasks (id, task, is_done, created_at) VALUES (?, ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET task = excluded.task, is_done = excluded.is_done`,
			task.ID, task.Task, task.IsDone, toMillis(createdAt),
		)
		if err != nil {
			return fmt.Errorf("failed to put task %d: %w", task.ID, err)
		}
		return nil
	})
	if err != nil {
		return &WriteError{Op: "update task", Err: err}
	}
	return nil
}

// DeleteTask removes the task with id. Deleting an unknown id succeeds.
func (s *Service) DeleteTask(ctx context.Context, id int64) (err error) {
	defer func(start time.Time) { s.observe("delete_task", start, err) }(time.Now())

	db, err := s.conn(ctx)
	if err != nil {
		return err
	}

	err = inTx(ctx, db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM tasks WHERE id = ?", id); err != nil {
			return fmt.Errorf("failed to delete task %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return &WriteError{Op: "delete task", Err: err}
	}
	return nil
}

// ClearTasks removes every task. Assigned ids are not reused afterwards.
func (s *Service) ClearTasks(ctx context.Context) (err error) {
	defer func(start time.Time) { s.observe("clear_tasks", start, err) }(time.Now())

	db, err := s.conn(ctx)
	if err != nil {
		return err
	}

	var cleared int64
	err = inTx(ctx, db, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, "DELETE FROM tasks")
		if err != nil {
			return fmt.Errorf("failed to clear tasks: %w", err)
		}
		cleared, err = result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get affected rows: %w", err)
		}
		return nil
	})
	if err != nil {
		return &WriteError{Op: "clear tasks", Err: err}
	}

	if cleared > 0 {
		logrus.WithField("deleted_count", cleared).Debug("Cleared task collection")
	}
	return nil
}
