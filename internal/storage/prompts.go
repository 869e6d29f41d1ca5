package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// Prompt is a named prompt template keyed by its slug
type Prompt struct {
	Slug   string `json:"slug"`
	Prompt string `json:"prompt"`
}

// ListPrompts returns every prompt keyed by slug. An empty collection yields
// an empty, non-nil map.
func (s *Service) ListPrompts(ctx context.Context) (prompts map[string]Prompt, err error) {
	defer func(start time.Time) { s.observe("list_prompts", start, err) }(time.Now())

	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, "SELECT slug, prompt FROM prompts")
	if err != nil {
		return nil, &ReadError{Op: "list prompts", Err: err}
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			logrus.WithError(closeErr).Warn("Failed to close database rows")
		}
	}()

	prompts = make(map[string]Prompt)
	for rows.Next() {
		var p Prompt
		if err := rows.Scan(&p.Slug, &p.Prompt); err != nil {
			return nil, &ReadError{Op: "list prompts", Err: fmt.Errorf("failed to scan prompt: %w", err)}
		}
		prompts[p.Slug] = p
	}

	if err := rows.Err(); err != nil {
		return nil, &ReadError{Op: "list prompts", Err: fmt.Errorf("error iterating prompts: %w", err)}
	}

	return prompts, nil
}

// UpsertPrompt stores p, replacing any prompt with the same slug
func (s *Service) UpsertPrompt(ctx context.Context, p Prompt) (err error) {
	defer func(start time.Time) { s.observe("upsert_prompt", start, err) }(time.Now())

	if p.Slug == "" {
		return &WriteError{Op: "upsert prompt", Err: ErrMissingKey}
	}

	db, err := s.conn(ctx)
	if err != nil {
		return err
	}

	err = inTx(ctx, db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO prompts (slug, prompt) VALUES (?, ?)
			 ON CONFLICT(slug) DO UPDATE SET prompt = excluded.prompt`,
			p.Slug, p.Prompt,
		)
		if err != nil {
			return fmt.Errorf("failed to put prompt %q: %w", p.Slug, err)
		}
		return nil
	})
	if err != nil {
		return &WriteError{Op: "upsert prompt", Err: err}
	}
	return nil
}
