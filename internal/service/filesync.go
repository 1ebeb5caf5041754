package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"

	"regapi/internal/model"
	"regapi/internal/storage"
)

// Blob folders, one per slot kind.
const (
	FolderPhotos                = "photos"
	FolderSignatures            = "signatures"
	FolderCitizenships          = "citizenships"
	FolderCharacterCertificates = "character-certificates"
	FolderMarksheets            = "marksheets"
)

// MarksheetUpload is one marksheet payload with its client-supplied ordinal.
type MarksheetUpload struct {
	Ordinal int
	File    *storage.Payload
}

// FileBundle is the set of optional payloads of one upload request. A nil
// payload leaves its slot untouched.
type FileBundle struct {
	Photo                *storage.Payload
	Signature            *storage.Payload
	Citizenship          *storage.Payload
	CharacterCertificate *storage.Payload
	Marksheets           []MarksheetUpload
}

// Empty reports whether the bundle carries no payload at all.
func (b FileBundle) Empty() bool {
	if b.Photo != nil || b.Signature != nil || b.Citizenship != nil || b.CharacterCertificate != nil {
		return false
	}
	for _, m := range b.Marksheets {
		if m.File != nil {
			return false
		}
	}
	return true
}

// SyncResult lists the paths written by a sync and the paths it made obsolete.
type SyncResult struct {
	Stored   []string
	Obsolete []string
}

// FileSyncer stores uploaded files and swaps the aggregate's references to them.
type FileSyncer struct {
	blobs storage.BlobStore
	log   *zap.Logger
}

// NewFileSyncer creates a FileSyncer writing to blobs.
func NewFileSyncer(blobs storage.BlobStore, log *zap.Logger) *FileSyncer {
	return &FileSyncer{blobs: blobs, log: log}
}

// slot is one pending write: where to store the payload and how to point the
// aggregate at the new path. apply returns the paths it replaced.
type slot struct {
	folder  string
	payload *storage.Payload
	apply   func(path string) []string
}

// Sync stores every present payload, then rewrites references on s in memory.
// If any store fails, the blobs stored by this call are deleted and s is not
// modified. The caller persists s and then releases Obsolete, or rolls back
// Stored if persisting fails.
func (f *FileSyncer) Sync(ctx context.Context, s *model.Student, b FileBundle, now time.Time) (*SyncResult, error) {
	slots := f.plan(s, b, now)

	res := &SyncResult{}
	paths := make([]string, len(slots))
	for i, sl := range slots {
		path, err := f.blobs.Store(ctx, sl.folder, *sl.payload)
		if err != nil {
			f.Rollback(ctx, res.Stored)
			return nil, &StorageError{Op: "store", Path: sl.folder, Err: err}
		}
		paths[i] = path
		res.Stored = append(res.Stored, path)
	}

	for i, sl := range slots {
		for _, old := range sl.apply(paths[i]) {
			if old != "" {
				res.Obsolete = append(res.Obsolete, old)
			}
		}
	}
	if len(slots) > 0 {
		s.UpdatedAt = now
	}
	return res, nil
}

func (f *FileSyncer) plan(s *model.Student, b FileBundle, now time.Time) []slot {
	var slots []slot
	if b.Photo != nil {
		slots = append(slots, slot{folder: FolderPhotos, payload: b.Photo, apply: func(path string) []string {
			old := s.PhotoPath
			s.PhotoPath = path
			return []string{old}
		}})
	}

	fixed := []struct {
		t       model.DocumentType
		folder  string
		payload *storage.Payload
	}{
		{model.DocumentSignature, FolderSignatures, b.Signature},
		{model.DocumentCitizenship, FolderCitizenships, b.Citizenship},
		{model.DocumentCharacterCertificate, FolderCharacterCertificates, b.CharacterCertificate},
	}
	for _, fx := range fixed {
		if fx.payload == nil {
			continue
		}
		t := fx.t
		slots = append(slots, slot{folder: fx.folder, payload: fx.payload, apply: func(path string) []string {
			return replaceDocument(s, t, path, now)
		}})
	}

	uploads := make([]MarksheetUpload, len(b.Marksheets))
	copy(uploads, b.Marksheets)
	sort.SliceStable(uploads, func(i, j int) bool { return uploads[i].Ordinal < uploads[j].Ordinal })

	records := historiesByID(s)
	for i := 0; i < len(uploads) && i < len(records); i++ {
		if uploads[i].File == nil {
			continue
		}
		h := &s.AcademicHistories[records[i]]
		slots = append(slots, slot{folder: FolderMarksheets, payload: uploads[i].File, apply: func(path string) []string {
			old := h.MarksheetPath
			h.MarksheetPath = path
			h.UpdatedAt = now
			return []string{old}
		}})
	}
	return slots
}

// replaceDocument drops every record of type t and appends one pointing at path.
func replaceDocument(s *model.Student, t model.DocumentType, path string, now time.Time) []string {
	var old []string
	kept := make([]model.StudentDocument, 0, len(s.Documents)+1)
	for _, d := range s.Documents {
		if d.DocumentType == t {
			old = append(old, d.FilePath)
			continue
		}
		kept = append(kept, d)
	}
	doc := model.StudentDocument{DocumentType: t, FilePath: path}
	doc.Stamp(s.ID, now)
	s.Documents = append(kept, doc)
	return old
}

// historiesByID returns indexes into s.AcademicHistories ordered by ascending ID.
func historiesByID(s *model.Student) []int {
	idx := make([]int, len(s.AcademicHistories))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return s.AcademicHistories[idx[a]].ID < s.AcademicHistories[idx[b]].ID
	})
	return idx
}

// Rollback deletes blobs written by a sync whose aggregate was never persisted.
// Failures are logged; the blobs are unreferenced either way.
func (f *FileSyncer) Rollback(ctx context.Context, paths []string) {
	for _, p := range paths {
		if err := f.blobs.Delete(ctx, p); err != nil {
			f.log.Warn("blob_rollback_failed", zap.String("path", p), zap.Error(err))
		}
	}
}

// Release deletes blobs no longer referenced by a persisted aggregate. Paths
// that are already gone are skipped. It returns the paths left behind.
func (f *FileSyncer) Release(ctx context.Context, paths []string) ([]string, error) {
	var (
		orphaned []string
		errs     []error
	)
	for _, p := range paths {
		ok, err := f.blobs.Exists(ctx, p)
		if err != nil {
			orphaned = append(orphaned, p)
			errs = append(errs, &StorageError{Op: "exists", Path: p, Err: err})
			continue
		}
		if !ok {
			continue
		}
		if err := f.blobs.Delete(ctx, p); err != nil {
			orphaned = append(orphaned, p)
			errs = append(errs, &StorageError{Op: "delete", Path: p, Err: err})
			continue
		}
		f.log.Debug("blob_released", zap.String("path", p))
	}
	if len(orphaned) > 0 {
		f.log.Warn("blob_release_incomplete", zap.Strings("orphaned", orphaned))
	}
	return orphaned, errors.Join(errs...)
}
