// Package backup exports the task and prompt collections as a JSON snapshot.
package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/rossigee/todostore/internal/storage"
	"github.com/sirupsen/logrus"
)

// Source reads the collections being exported
type Source interface {
	ListTasks(ctx context.Context) ([]storage.Task, error)
	ListPrompts(ctx context.Context) (map[string]storage.Prompt, error)
}

// Uploader stores a finished snapshot
type Uploader interface {
	Upload(ctx context.Context, objectName string, data []byte, contentType string) (minio.UploadInfo, error)
}

// Observer is told about every export attempt
type Observer interface {
	ObserveBackup(err error)
}

// Snapshot is the serialized backup document
type Snapshot struct {
	Database   string                    `json:"database"`
	Version    int                       `json:"version"`
	ExportedAt time.Time                 `json:"exportedAt"`
	Tasks      []storage.Task            `json:"tasks"`
	Prompts    map[string]storage.Prompt `json:"prompts"`
}

// Result describes an uploaded snapshot
type Result struct {
	Object  string    `json:"object"`
	Bucket  string    `json:"bucket"`
	Size    int64     `json:"size"`
	Tasks   int       `json:"tasks"`
	Prompts int       `json:"prompts"`
	Time    time.Time `json:"exported_at"`
}

// Exporter builds snapshots from a Source and hands them to an Uploader
type Exporter struct {
	source   Source
	uploader Uploader
	observer Observer
	prefix   string
	now      func() time.Time
}

// NewExporter creates an exporter. observer may be nil.
func NewExporter(source Source, uploader Uploader, prefix string, observer Observer) *Exporter {
	if prefix == "" {
		prefix = "tododb"
	}
	return &Exporter{
		source:   source,
		uploader: uploader,
		observer: observer,
		prefix:   prefix,
		now:      time.Now,
	}
}

// Build reads both collections into a snapshot
func (e *Exporter) Build(ctx context.Context) (*Snapshot, error) {
	tasks, err := e.source.ListTasks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read tasks: %w", err)
	}
	prompts, err := e.source.ListPrompts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompts: %w", err)
	}

	return &Snapshot{
		Database:   storage.DatabaseName,
		Version:    storage.SchemaVersion,
		ExportedAt: e.now().UTC(),
		Tasks:      tasks,
		Prompts:    prompts,
	}, nil
}

// Export builds a snapshot and uploads it
func (e *Exporter) Export(ctx context.Context) (result *Result, err error) {
	defer func() {
		if e.observer != nil {
			e.observer.ObserveBackup(err)
		}
	}()

	snapshot, err := e.Build(ctx)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}

	object := e.objectName(snapshot.ExportedAt)
	info, err := e.uploader.Upload(ctx, object, data, "application/json")
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"object":  object,
		"tasks":   len(snapshot.Tasks),
		"prompts": len(snapshot.Prompts),
		"size":    info.Size,
	}).Info("Uploaded database backup")

	return &Result{
		Object:  object,
		Bucket:  info.Bucket,
		Size:    info.Size,
		Tasks:   len(snapshot.Tasks),
		Prompts: len(snapshot.Prompts),
		Time:    snapshot.ExportedAt,
	}, nil
}

func (e *Exporter) objectName(t time.Time) string {
	return fmt.Sprintf("%s-%s.json", e.prefix, t.UTC().Format("20060102T150405Z"))
}
