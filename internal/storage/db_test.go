package storage

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, opts ...Option) *Service {
	t.Helper()
	svc := New(filepath.Join(t.TempDir(), "todo.db"), opts...)
	t.Cleanup(func() {
		_ = svc.Close() // Ignore error in test
	})
	return svc
}

func TestNew_DoesNotOpen(t *testing.T) {
	svc := New(":memory:")

	assert.False(t, svc.IsOpen())
	assert.Equal(t, ":memory:", svc.Path())
}

func TestInitialize_InMemory(t *testing.T) {
	svc := New(":memory:")
	defer func() {
		_ = svc.Close() // Ignore error in test
	}()

	require.NoError(t, svc.Initialize(context.Background()))
	assert.True(t, svc.IsOpen())
}

func TestInitialize_Idempotent(t *testing.T) {
	svc := newTestService(t)

	require.NoError(t, svc.Initialize(context.Background()))
	first := svc.db

	require.NoError(t, svc.Initialize(context.Background()))
	assert.Same(t, first, svc.db)
}

func TestInitialize_CreatesSchema(t *testing.T) {
	svc := newTestService(t)
	require.NoError(t, svc.Initialize(context.Background()))

	objects := map[string]bool{}
	rows, err := svc.db.Query("SELECT name FROM sqlite_master WHERE type IN ('table', 'index')")
	require.NoError(t, err)
	defer func() {
		_ = rows.Close() // Ignore error in test
	}()
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		objects[name] = true
	}
	require.NoError(t, rows.Err())

	for _, name := range []string{"tasks", "prompts", "idx_tasks_created_at", "idx_prompts_created_at", "schema_version", "schema_meta"} {
		assert.True(t, objects[name], "missing schema object %s", name)
	}

	var version int
	require.NoError(t, svc.db.QueryRow("SELECT MAX(version) FROM schema_version").Scan(&version))
	assert.Equal(t, SchemaVersion, version)

	var name string
	require.NoError(t, svc.db.QueryRow("SELECT value FROM schema_meta WHERE name = 'database'").Scan(&name))
	assert.Equal(t, DatabaseName, name)
}

func TestInitialize_UpgradesFromVersionOne(t *testing.T) {
	path := filepath.Join(t.TempDir(), "todo.db")

	// Lay down a version 1 database holding one task
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	require.NoError(t, upgrade(context.Background(), db, 1))
	_, err = db.Exec("INSERT INTO tasks (task, is_done, created_at) VALUES ('old', 0, 1000)")
	require.NoError(t, err)
	var prompts int
	err = db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE name = 'prompts'").Scan(&prompts)
	require.NoError(t, err)
	assert.Equal(t, 0, prompts)
	require.NoError(t, db.Close())

	svc := New(path)
	defer func() {
		_ = svc.Close() // Ignore error in test
	}()

	tasks, err := svc.ListTasks(context.Background())
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "old", tasks[0].Task)

	listed, err := svc.ListPrompts(context.Background())
	require.NoError(t, err)
	assert.Empty(t, listed)

	var version int
	require.NoError(t, svc.db.QueryRow("SELECT MAX(version) FROM schema_version").Scan(&version))
	assert.Equal(t, 2, version)
}

func TestInitialize_RejectsNewerSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "todo.db")

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	require.NoError(t, upgrade(context.Background(), db, SchemaVersion))
	_, err = db.Exec("INSERT INTO schema_version (version, applied_at) VALUES (99, 0)")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	svc := New(path)
	err = svc.Initialize(context.Background())

	var connErr *ConnectionError
	require.True(t, errors.As(err, &connErr))
	assert.Contains(t, err.Error(), "newer than requested version")
	assert.False(t, svc.IsOpen())
}

func TestInitialize_RejectsForeignDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "todo.db")

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = db.Exec(SchemaBootstrap)
	require.NoError(t, err)
	_, err = db.Exec("INSERT INTO schema_meta (name, value) VALUES ('database', 'OtherDB')")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	err = New(path).Initialize(context.Background())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "OtherDB")
}

func TestInitialize_Failure(t *testing.T) {
	svc := New(filepath.Join(t.TempDir(), "missing", "dir", "todo.db"))

	err := svc.Initialize(context.Background())

	var connErr *ConnectionError
	require.True(t, errors.As(err, &connErr))
	assert.Contains(t, err.Error(), "failed to open database")
	assert.False(t, svc.IsOpen())
}

func TestOperation_FailsWithConnectionError(t *testing.T) {
	svc := New(filepath.Join(t.TempDir(), "missing", "todo.db"))

	_, err := svc.ListTasks(context.Background())

	var connErr *ConnectionError
	assert.True(t, errors.As(err, &connErr))
}

func TestOperation_OpensLazily(t *testing.T) {
	svc := newTestService(t)
	require.False(t, svc.IsOpen())

	tasks, err := svc.ListTasks(context.Background())
	require.NoError(t, err)
	assert.Empty(t, tasks)
	assert.True(t, svc.IsOpen())
}

func TestConcurrentFirstUse(t *testing.T) {
	svc := newTestService(t)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.AddTask(context.Background(), NewTask{Task: "parallel"})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}

	tasks, err := svc.ListTasks(context.Background())
	require.NoError(t, err)
	assert.Len(t, tasks, 8)
}

func TestClose_ReopensOnNextOperation(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.AddTask(context.Background(), NewTask{Task: "persisted"})
	require.NoError(t, err)
	require.NoError(t, svc.Close())
	assert.False(t, svc.IsOpen())

	tasks, err := svc.ListTasks(context.Background())
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "persisted", tasks[0].Task)
}

func TestClose_Unopened(t *testing.T) {
	assert.NoError(t, New(":memory:").Close())
}

type recordedOp struct {
	op  string
	err error
}

type fakeRecorder struct {
	mu  sync.Mutex
	ops []recordedOp
}

func (r *fakeRecorder) ObserveOperation(op string, _ time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, recordedOp{op: op, err: err})
}

func TestRecorder_ObservesOperations(t *testing.T) {
	recorder := &fakeRecorder{}
	svc := newTestService(t, WithRecorder(recorder))

	_, err := svc.AddTask(context.Background(), NewTask{Task: "observed"})
	require.NoError(t, err)
	err = svc.UpsertPrompt(context.Background(), Prompt{})
	require.Error(t, err)

	require.Len(t, recorder.ops, 2)
	assert.Equal(t, "add_task", recorder.ops[0].op)
	assert.NoError(t, recorder.ops[0].err)
	assert.Equal(t, "upsert_prompt", recorder.ops[1].op)
	assert.Error(t, recorder.ops[1].err)
}
