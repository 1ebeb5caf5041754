package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"regapi/internal/model"
	"regapi/internal/repository"
	"regapi/internal/storage"
)

var tracer = otel.Tracer("regapi/internal/service")

// StudentListResult is the service-level DTO for listed students.
type StudentListResult struct {
	Items []model.Student `json:"data"`
	Total int             `json:"count"`
}

// StudentService defines the use cases for student registration records.
// Every mutating call locks the aggregate, loads it, changes it, persists it,
// releases obsolete blobs and returns a fresh projection.
type StudentService interface {
	// Register validates the input and creates a new aggregate with a fresh PID.
	Register(ctx context.Context, in *model.StudentInput) (*model.Student, error)

	// Get returns a single aggregate by PID.
	Get(ctx context.Context, pid string) (*model.Student, error)

	// List returns aggregates newest first. A non-positive limit returns all of them.
	List(ctx context.Context, limit, offset int) (*StudentListResult, error)

	// Update overwrites root scalars and every supplied group or collection.
	// Blobs no longer referenced after the update are deleted.
	Update(ctx context.Context, pid string, in *model.StudentInput) (*model.Student, error)

	// SyncFiles stores the supplied files and points the aggregate at them.
	// Files they replace are deleted after the aggregate is saved.
	SyncFiles(ctx context.Context, pid string, files FileBundle) (*model.Student, error)

	// Delete removes every blob reachable from the aggregate, then the aggregate.
	Delete(ctx context.Context, pid string) error

	// FileURL returns a presigned download URL for a populated file slot.
	FileURL(ctx context.Context, pid, slot string) (string, error)
}

// Option tunes a StudentService.
type Option func(*studentService)

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *studentService) { s.now = now }
}

// WithPresignExpiry sets the lifetime of URLs returned by FileURL.
func WithPresignExpiry(d time.Duration) Option {
	return func(s *studentService) {
		if d > 0 {
			s.presignExpiry = d
		}
	}
}

type studentService struct {
	repo          repository.StudentRepository
	blobs         storage.BlobStore
	files         *FileSyncer
	locks         *keyedMutex
	log           *zap.Logger
	now           func() time.Time
	presignExpiry time.Duration
}

// NewStudentService constructs a new StudentService.
func NewStudentService(repo repository.StudentRepository, blobs storage.BlobStore, log *zap.Logger, opts ...Option) StudentService {
	if log == nil {
		log = zap.NewNop()
	}
	s := &studentService{
		repo:          repo,
		blobs:         blobs,
		files:         NewFileSyncer(blobs, log),
		locks:         newKeyedMutex(),
		log:           log,
		now:           func() time.Time { return time.Now().UTC() },
		presignExpiry: 15 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func startSpan(ctx context.Context, name, pid string) (context.Context, trace.Span) {
	var attrs []attribute.KeyValue
	if pid != "" {
		attrs = append(attrs, attribute.String("student.pid", pid))
	}
	return tracer.Start(ctx, "StudentService."+name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (s *studentService) load(ctx context.Context, pid string) (*model.Student, error) {
	if pid == "" {
		return nil, ErrPIDRequired
	}
	st, err := s.repo.FindByPID(ctx, pid)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load student: %w", err)
	}
	return st, nil
}

func saveErr(err error) error {
	if errors.Is(err, repository.ErrVersionConflict) {
		return ErrConflict
	}
	return fmt.Errorf("save student: %w", err)
}

func (s *studentService) Register(ctx context.Context, in *model.StudentInput) (st *model.Student, err error) {
	ctx, span := startSpan(ctx, "Register", "")
	defer func() { endSpan(span, err) }()

	if err := Validate(in); err != nil {
		return nil, err
	}
	st = NewStudent(in, s.now())
	if err := s.repo.Create(ctx, st); err != nil {
		return nil, fmt.Errorf("create student: %w", err)
	}
	span.SetAttributes(attribute.String("student.pid", st.PID))
	s.log.Info("student_registered", zap.String("pid", st.PID), zap.Int64("id", st.ID))
	return st, nil
}

func (s *studentService) Get(ctx context.Context, pid string) (st *model.Student, err error) {
	ctx, span := startSpan(ctx, "Get", pid)
	defer func() { endSpan(span, err) }()

	return s.load(ctx, pid)
}

func (s *studentService) List(ctx context.Context, limit, offset int) (res *StudentListResult, err error) {
	ctx, span := startSpan(ctx, "List", "")
	defer func() { endSpan(span, err) }()

	if offset < 0 {
		offset = 0
	}
	page, err := s.repo.List(ctx, repository.PageQuery{Limit: limit, Offset: offset})
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return &StudentListResult{Items: page.Items, Total: page.Total}, nil
}

func (s *studentService) Update(ctx context.Context, pid string, in *model.StudentInput) (st *model.Student, err error) {
	ctx, span := startSpan(ctx, "Update", pid)
	defer func() { endSpan(span, err) }()

	if pid == "" {
		return nil, ErrPIDRequired
	}
	if err := Validate(in); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(pid)
	defer unlock()

	st, err = s.load(ctx, pid)
	if err != nil {
		return nil, err
	}
	before := model.FileRefs(st)
	ApplyUpdate(st, in, s.now())
	if err := s.repo.Save(ctx, st); err != nil {
		return nil, saveErr(err)
	}

	released := model.ReleasedRefs(before, st)
	if orphaned, err := s.files.Release(ctx, released); err != nil {
		return nil, &PartialSyncError{Orphaned: orphaned, Err: err}
	}
	s.log.Info("student_updated", zap.String("pid", pid), zap.Int("released", len(released)))
	return s.load(ctx, pid)
}

func (s *studentService) SyncFiles(ctx context.Context, pid string, files FileBundle) (st *model.Student, err error) {
	ctx, span := startSpan(ctx, "SyncFiles", pid)
	defer func() { endSpan(span, err) }()

	if pid == "" {
		return nil, ErrPIDRequired
	}
	if files.Empty() {
		return nil, fmt.Errorf("%w: %w", ErrValidation, ErrNoFiles)
	}

	unlock := s.locks.Lock(pid)
	defer unlock()

	st, err = s.load(ctx, pid)
	if err != nil {
		return nil, err
	}
	res, err := s.files.Sync(ctx, st, files, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, st); err != nil {
		s.files.Rollback(ctx, res.Stored)
		return nil, saveErr(err)
	}
	// a replaced path may still back another slot
	obsolete := model.ReleasedRefs(res.Obsolete, st)
	if orphaned, err := s.files.Release(ctx, obsolete); err != nil {
		return nil, &PartialSyncError{Orphaned: orphaned, Err: err}
	}
	s.log.Info("student_files_synced",
		zap.String("pid", pid),
		zap.Int("stored", len(res.Stored)),
		zap.Int("released", len(obsolete)),
	)
	return s.load(ctx, pid)
}

func (s *studentService) Delete(ctx context.Context, pid string) (err error) {
	ctx, span := startSpan(ctx, "Delete", pid)
	defer func() { endSpan(span, err) }()

	if pid == "" {
		return ErrPIDRequired
	}

	unlock := s.locks.Lock(pid)
	defer unlock()

	st, err := s.load(ctx, pid)
	if err != nil {
		return err
	}

	refs := model.FileRefs(st)
	deleted := make(map[string]struct{}, len(refs))
	for _, ref := range refs {
		if err := s.deleteBlob(ctx, ref); err != nil {
			return errors.Join(err, s.forgetRefs(ctx, st, deleted))
		}
		deleted[ref] = struct{}{}
	}

	if err := s.repo.Delete(ctx, pid, st.Version); err != nil {
		return saveErr(err)
	}
	s.log.Info("student_deleted", zap.String("pid", pid), zap.Int("blobs", len(refs)))
	return nil
}

func (s *studentService) deleteBlob(ctx context.Context, path string) error {
	ok, err := s.blobs.Exists(ctx, path)
	if err != nil {
		return &StorageError{Op: "exists", Path: path, Err: err}
	}
	if !ok {
		return nil
	}
	if err := s.blobs.Delete(ctx, path); err != nil {
		return &StorageError{Op: "delete", Path: path, Err: err}
	}
	return nil
}

// forgetRefs clears references to blobs that were already deleted and saves,
// so a failed Delete never leaves a reference to a missing blob. A failed
// save is returned: the record then still points at deleted blobs.
func (s *studentService) forgetRefs(ctx context.Context, st *model.Student, deleted map[string]struct{}) error {
	if len(deleted) == 0 {
		return nil
	}
	if _, ok := deleted[st.PhotoPath]; ok {
		st.PhotoPath = ""
	}
	for i := range st.Documents {
		if _, ok := deleted[st.Documents[i].FilePath]; ok {
			st.Documents[i].FilePath = ""
		}
	}
	for i := range st.AcademicHistories {
		if _, ok := deleted[st.AcademicHistories[i].MarksheetPath]; ok {
			st.AcademicHistories[i].MarksheetPath = ""
		}
	}
	st.UpdatedAt = s.now()
	if err := s.repo.Save(ctx, st); err != nil {
		s.log.Error("student_forget_refs_failed", zap.String("pid", st.PID), zap.Error(err))
		return fmt.Errorf("clear deleted refs: %w", saveErr(err))
	}
	return nil
}

func (s *studentService) FileURL(ctx context.Context, pid, slot string) (url string, err error) {
	ctx, span := startSpan(ctx, "FileURL", pid)
	defer func() { endSpan(span, err) }()

	st, err := s.load(ctx, pid)
	if err != nil {
		return "", err
	}
	path, err := slotPath(st, slot)
	if err != nil {
		return "", err
	}
	if path == "" {
		return "", ErrFileNotFound
	}
	url, err = s.blobs.PresignGet(ctx, path, s.presignExpiry)
	if err != nil {
		return "", &StorageError{Op: "presign", Path: path, Err: err}
	}
	return url, nil
}

// slotPath resolves a slot name to the path it currently holds. Marksheet
// slots are 1-based over academic histories ordered by ID.
func slotPath(st *model.Student, slot string) (string, error) {
	switch slot {
	case "photo":
		return st.PhotoPath, nil
	case "signature":
		return documentPath(st, model.DocumentSignature), nil
	case "citizenship":
		return documentPath(st, model.DocumentCitizenship), nil
	case "character-certificate":
		return documentPath(st, model.DocumentCharacterCertificate), nil
	}
	if n, ok := strings.CutPrefix(slot, "marksheet-"); ok {
		i, err := strconv.Atoi(n)
		records := historiesByID(st)
		if err != nil || i < 1 || i > len(records) {
			return "", ErrFileNotFound
		}
		return st.AcademicHistories[records[i-1]].MarksheetPath, nil
	}
	return "", fmt.Errorf("%w: %w %q", ErrValidation, ErrUnknownSlot, slot)
}

func documentPath(st *model.Student, t model.DocumentType) string {
	if idx := st.DocumentsOfType(t); len(idx) > 0 {
		return st.Documents[idx[0]].FilePath
	}
	return ""
}
