package storage

import (
	"context"
	"io"
	"time"

	"love-vault-backend/internal/telemetry"
)

// InstrumentedStore wraps an ObjectStore with metrics recording
type InstrumentedStore struct {
	store ObjectStore
}

// NewInstrumentedStore creates a new instrumented store wrapper
func NewInstrumentedStore(s ObjectStore) *InstrumentedStore {
	return &InstrumentedStore{store: s}
}

func (is *InstrumentedStore) Upload(ctx context.Context, bucket, key string, body io.Reader, opts UploadOptions) error {
	start := time.Now()
	err := is.store.Upload(ctx, bucket, key, body, opts)
	telemetry.RecordStorageOp("upload", bucket, err, time.Since(start))
	return err
}

func (is *InstrumentedStore) PublicURL(bucket, key string) string {
	return is.store.PublicURL(bucket, key)
}

func (is *InstrumentedStore) SignedURL(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	start := time.Now()
	u, err := is.store.SignedURL(ctx, bucket, key, ttl)
	telemetry.RecordStorageOp("sign", bucket, err, time.Since(start))
	return u, err
}

func (is *InstrumentedStore) Remove(ctx context.Context, bucket string, keys ...string) error {
	start := time.Now()
	err := is.store.Remove(ctx, bucket, keys...)
	telemetry.RecordStorageOp("remove", bucket, err, time.Since(start))
	return err
}
