package store

import (
	"context"
	"errors"
	"path"
	"strings"

	"github.com/imamik/stratus/internal/platform/s3"
)

// ObjectClient is the subset of the S3 client used by S3Backend.
type ObjectClient interface {
	PutObject(ctx context.Context, key string, data []byte) error
	GetObject(ctx context.Context, key string) ([]byte, error)
	DeleteObject(ctx context.Context, key string) error
	ListObjects(ctx context.Context, prefix string) ([]string, error)
}

// S3Backend stores each document as <prefix>/<kind>/<id>.json.
type S3Backend struct {
	client ObjectClient
	prefix string
}

// NewS3Backend returns a backend writing objects under prefix.
func NewS3Backend(client ObjectClient, prefix string) *S3Backend {
	return &S3Backend{client: client, prefix: strings.Trim(prefix, "/")}
}

func (b *S3Backend) key(kind Kind, id string) string {
	return path.Join(b.prefix, string(kind), id+".json")
}

func (b *S3Backend) kindPrefix(kind Kind) string {
	return path.Join(b.prefix, string(kind)) + "/"
}

func (b *S3Backend) Get(ctx context.Context, kind Kind, id string) ([]byte, error) {
	data, err := b.client.GetObject(ctx, b.key(kind, id))
	if errors.Is(err, s3.ErrNotFound) {
		return nil, ErrNotFound
	}
	return data, err
}

func (b *S3Backend) Put(ctx context.Context, kind Kind, id string, doc []byte) error {
	return b.client.PutObject(ctx, b.key(kind, id), doc)
}

// Delete removes the object. S3 deletes are idempotent, so existence is
// checked first to report ErrNotFound like the other backends.
func (b *S3Backend) Delete(ctx context.Context, kind Kind, id string) error {
	if _, err := b.Get(ctx, kind, id); err != nil {
		return err
	}
	return b.client.DeleteObject(ctx, b.key(kind, id))
}

func (b *S3Backend) List(ctx context.Context, kind Kind) ([][]byte, error) {
	keys, err := b.client.ListObjects(ctx, b.kindPrefix(kind))
	if err != nil {
		return nil, err
	}
	docs := make([][]byte, 0, len(keys))
	for _, key := range keys {
		if !strings.HasSuffix(key, ".json") {
			continue
		}
		data, err := b.client.GetObject(ctx, key)
		if errors.Is(err, s3.ErrNotFound) {
			// deleted between list and get
			continue
		}
		if err != nil {
			return nil, err
		}
		docs = append(docs, data)
	}
	return docs, nil
}

func (b *S3Backend) Close() error { return nil }
