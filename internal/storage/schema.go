// Package storage provides task and prompt persistence using SQLite.
package storage

const (
	// DatabaseName identifies the local database recorded in schema_meta
	DatabaseName = "TodoDB"

	// SchemaVersion is the version requested when the database is opened
	SchemaVersion = 2
)

// Schema definitions for the to-do database
const (
	// SchemaBootstrap holds the bookkeeping tables every version relies on
	SchemaBootstrap = `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER PRIMARY KEY,
	applied_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS schema_meta (
	name TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

	// SchemaV1 creates the task collection
	SchemaV1 = `
CREATE TABLE IF NOT EXISTS tasks (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	task TEXT NOT NULL,
	is_done INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_tasks_created_at ON tasks(created_at);
`

	// SchemaV2 creates the prompt collection. created_at is declared with its
	// index but no write path populates it.
	SchemaV2 = `
CREATE TABLE IF NOT EXISTS prompts (
	slug TEXT PRIMARY KEY,
	prompt TEXT NOT NULL,
	created_at INTEGER
);

CREATE INDEX IF NOT EXISTS idx_prompts_created_at ON prompts(created_at);
`
)

// Migration is a single schema step applied when the stored version is older
type Migration struct {
	Version int
	SQL     string
}

// Migrations represents all available migrations, in ascending version order
var Migrations = []Migration{
	{
		Version: 1,
		SQL:     SchemaV1,
	},
	{
		Version: 2,
		SQL:     SchemaV2,
	},
}
