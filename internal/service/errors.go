package service

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrPIDRequired  = errors.New("pid is required")
	ErrNotFound     = errors.New("student not found")
	ErrFileNotFound = errors.New("file not found")
	ErrValidation   = errors.New("validation failed")
	ErrStorage      = errors.New("storage failure")
	ErrConflict     = errors.New("student was modified concurrently")
	ErrNoFiles      = errors.New("no files supplied")
	ErrUnknownSlot  = errors.New("unknown file slot")
	ErrPartialSync  = errors.New("record saved but obsolete files could not be removed")
)

// FieldError is one failed rule on one input field.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

// ValidationError lists every field that failed validation. errors.Is(err, ErrValidation) holds.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Rule)
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// StorageError reports a failed blob store call. Path is the blob path, or
// the target folder when the failure happened before a path existed.
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }

// PartialSyncError means the aggregate was persisted but some obsolete blobs
// could not be deleted. Orphaned lists them; no reference points at them.
type PartialSyncError struct {
	Orphaned []string
	Err      error
}

func (e *PartialSyncError) Error() string {
	return fmt.Sprintf("%s (%d orphaned): %v", ErrPartialSync.Error(), len(e.Orphaned), e.Err)
}

func (e *PartialSyncError) Unwrap() error { return e.Err }

func (e *PartialSyncError) Is(target error) bool { return target == ErrPartialSync }
