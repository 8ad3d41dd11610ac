// Package blob stores the bytes of item images outside the database.
package blob

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
)

// Store keeps opaque objects under string keys. Implementations report
// backend failures wrapped in model.ErrStorageUnavailable and missing
// objects as model.ErrNotFound. Deleting a missing object is not an error.
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// ImageKey returns the object key of an item image.
func ImageKey(tenant, item, image uuid.UUID) string {
	return fmt.Sprintf("%s/%s/%s.jpg", tenant, item, image)
}

// Observer is told the outcome of every blob operation.
type Observer func(op string, err error)

type observed struct {
	Store
	observe Observer
}

// WithObserver wraps s so that fn sees every Put, Open and Delete.
func WithObserver(s Store, fn Observer) Store {
	if fn == nil {
		return s
	}
	return &observed{Store: s, observe: fn}
}

func (o *observed) Put(ctx context.Context, key string, data []byte, contentType string) error {
	err := o.Store.Put(ctx, key, data, contentType)
	o.observe("put", err)
	return err
}

func (o *observed) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	rc, err := o.Store.Open(ctx, key)
	o.observe("open", err)
	return rc, err
}

func (o *observed) Delete(ctx context.Context, key string) error {
	err := o.Store.Delete(ctx, key)
	o.observe("delete", err)
	return err
}
