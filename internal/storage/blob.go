package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Payload is one uploaded file waiting to be stored.
type Payload struct {
	Filename    string
	ContentType string
	Size        int64
	Reader      io.Reader
}

// BlobStore stores opaque file contents and hands back a path for each write.
type BlobStore interface {
	// Store writes the payload under folder and returns a fresh path. Two calls
	// never return the same path, even for identical content.
	Store(ctx context.Context, folder string, p Payload) (string, error)
	// Delete removes the blob at path.
	Delete(ctx context.Context, path string) error
	// Exists reports whether a blob is currently stored at path.
	Exists(ctx context.Context, path string) (bool, error)
	// PresignGet returns a time-limited download URL for path.
	PresignGet(ctx context.Context, path string, expiry time.Duration) (string, error)
}

// ErrPayloadEmpty is returned by Store when the payload carries no reader.
var ErrPayloadEmpty = errors.New("payload reader is nil")

type blobStore struct {
	store  Storage
	prefix string
}

// NewBlobStore builds a BlobStore on top of an object Storage. Every key is
// placed under prefix (e.g. "students").
func NewBlobStore(store Storage, prefix string) BlobStore {
	return &blobStore{store: store, prefix: strings.Trim(prefix, "/")}
}

func (b *blobStore) Store(ctx context.Context, folder string, p Payload) (string, error) {
	if p.Reader == nil {
		return "", ErrPayloadEmpty
	}
	// Generate filename using UUID + extension
	ext := strings.ToLower(filepath.Ext(p.Filename))
	key := path.Join(b.prefix, strings.Trim(folder, "/"), uuid.New().String()+ext)

	contentType := p.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	size := p.Size
	if size <= 0 {
		size = -1
	}

	info, err := b.store.Put(ctx, key, p.Reader, PutObjectOptions{
		Size:        size,
		ContentType: contentType,
		Metadata: map[string]string{
			"original-filename": p.Filename,
		},
	})
	if err != nil {
		return "", fmt.Errorf("put %s: %w", key, err)
	}
	return info.Key, nil
}

func (b *blobStore) Delete(ctx context.Context, key string) error {
	if err := b.store.Delete(ctx, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func (b *blobStore) Exists(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, nil
	}
	_, err := b.store.Stat(ctx, key)
	if err != nil {
		if errors.Is(err, ErrObjectNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("stat %s: %w", key, err)
	}
	return true, nil
}

func (b *blobStore) PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error) {
	return b.store.PresignGet(ctx, key, expiry)
}
