package storage

import "errors"

// ErrMissingKey is returned when a write names no primary key
var ErrMissingKey = errors.New("record has no primary key")

var errConnectionClosed = errors.New("connection closed while opening")

// ConnectionError reports that the database could not be opened
type ConnectionError struct {
	Path string
	Err  error
}

func (e *ConnectionError) Error() string {
	return "failed to open database " + e.Path + ": " + e.Err.Error()
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// ReadError reports a failed read transaction
type ReadError struct {
	Op  string
	Err error
}

func (e *ReadError) Error() string {
	return "failed to " + e.Op + ": " + e.Err.Error()
}

func (e *ReadError) Unwrap() error { return e.Err }

// WriteError reports a failed write transaction
type WriteError struct {
	Op  string
	Err error
}

func (e *WriteError) Error() string {
	return "failed to " + e.Op + ": " + e.Err.Error()
}

func (e *WriteError) Unwrap() error { return e.Err }
