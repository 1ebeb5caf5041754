package storage

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// InstrumentedBlobStore counts every blob-store call by operation and outcome.
type InstrumentedBlobStore struct {
	next BlobStore
	ops  *prometheus.CounterVec
}

// NewInstrumentedBlobStore wraps next and registers blob_operations_total on reg.
func NewInstrumentedBlobStore(next BlobStore, reg prometheus.Registerer) (*InstrumentedBlobStore, error) {
	ops := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blob_operations_total",
			Help: "Total number of blob store operations by operation and outcome.",
		},
		[]string{"op", "outcome"},
	)
	if err := reg.Register(ops); err != nil {
		return nil, err
	}
	return &InstrumentedBlobStore{next: next, ops: ops}, nil
}

var _ BlobStore = (*InstrumentedBlobStore)(nil)

func (s *InstrumentedBlobStore) observe(op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	s.ops.WithLabelValues(op, outcome).Inc()
}

func (s *InstrumentedBlobStore) Store(ctx context.Context, folder string, p Payload) (string, error) {
	key, err := s.next.Store(ctx, folder, p)
	s.observe("store", err)
	return key, err
}

func (s *InstrumentedBlobStore) Delete(ctx context.Context, key string) error {
	err := s.next.Delete(ctx, key)
	s.observe("delete", err)
	return err
}

func (s *InstrumentedBlobStore) Exists(ctx context.Context, key string) (bool, error) {
	ok, err := s.next.Exists(ctx, key)
	s.observe("exists", err)
	return ok, err
}

func (s *InstrumentedBlobStore) PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error) {
	u, err := s.next.PresignGet(ctx, key, expiry)
	s.observe("presign", err)
	return u, err
}
