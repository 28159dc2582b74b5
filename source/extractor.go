package source

import (
	"context"
	"io"

	"cloud.google.com/go/storage"
	"github.com/rs/zerolog/log"
	"golang.org/x/xerrors"
	"google.golang.org/api/option"
)

// Extractor opens objects for reading.
type Extractor interface {
	Extract(context.Context, Object) (io.ReadCloser, error)
}

// StorageExtractor reads objects from Cloud Storage.
type StorageExtractor struct {
	storage *storage.Client
}

// NewStorageExtractor builds a StorageExtractor.
func NewStorageExtractor(ctx context.Context, opts ...option.ClientOption) (*StorageExtractor, error) {
	s, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, xerrors.Errorf("failed to build storage client: %w", err)
	}

	return &StorageExtractor{storage: s}, nil
}

// Extract opens a reader of o. The caller closes it.
func (e *StorageExtractor) Extract(ctx context.Context, o Object) (io.ReadCloser, error) {
	r, err := e.storage.Bucket(o.Bucket).Object(o.Name).NewReader(ctx)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("object", o.FullPath()).Msg("failed to initialize object reader")
		return nil, xerrors.Errorf("failed to get reader of %s: %w", o.FullPath(), err)
	}

	log.Ctx(ctx).Debug().Str("object", o.FullPath()).Int64("size", r.Attrs.Size).Msg("object opened")

	return r, nil
}

// Close closes the underlying storage client.
func (e *StorageExtractor) Close() error {
	return e.storage.Close()
}
