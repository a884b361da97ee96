package client

import (
	"bytes"
	"context"
	"encoding/json"
	"net/url"
	"strings"

	"github.com/yndnr/garagebook-go/internal/core/domain"
)

// Resource is JSON CRUD over one collection path, e.g. /api/appointments.
type Resource[T any] struct {
	client *Client
	path   string
}

// NewResource binds a collection path to c.
func NewResource[T any](c *Client, path string) *Resource[T] {
	return &Resource[T]{client: c, path: strings.TrimRight(path, "/")}
}

// Path returns the collection path.
func (r *Resource[T]) Path() string {
	return r.path
}

func (r *Resource[T]) item(id domain.ID) string {
	return r.path + "/" + url.PathEscape(id.String())
}

// List fetches the whole collection. Both a bare array and a {"data": [...]}
// envelope are accepted. A record that does not decode, such as one with an
// unknown status, is dropped with a warning; the rest of the list is kept.
func (r *Resource[T]) List(ctx context.Context) ([]T, error) {
	var raw json.RawMessage
	if err := r.client.Get(ctx, r.path, &raw); err != nil {
		return nil, err
	}
	return decodeList[T](raw, func(index int, err error) {
		r.client.logger.Warn("dropping undecodable record", "path", r.path, "index", index, "error", err)
	})
}

// Get fetches one record.
func (r *Resource[T]) Get(ctx context.Context, id domain.ID) (T, error) {
	var out T
	err := r.client.Get(ctx, r.item(id), &out)
	return out, err
}

// Create posts body and returns the record the server created.
func (r *Resource[T]) Create(ctx context.Context, body any) (T, error) {
	var out T
	err := r.client.Post(ctx, r.path, body, &out)
	return out, err
}

// Update puts body to the record and returns the server's version.
func (r *Resource[T]) Update(ctx context.Context, id domain.ID, body any) (T, error) {
	var out T
	err := r.client.Put(ctx, r.item(id), body, &out)
	return out, err
}

// Delete removes the record.
func (r *Resource[T]) Delete(ctx context.Context, id domain.ID) error {
	return r.client.Delete(ctx, r.item(id))
}

// decodeList decodes a list body. drop, if set, is told about each element
// that fails to decode; that element is left out.
func decodeList[T any](raw json.RawMessage, drop func(index int, err error)) ([]T, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []T{}, nil
	}

	if trimmed[0] == '{' {
		var env struct {
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return nil, domain.ErrTransport.WithDetails("decode list envelope").WithCause(err)
		}
		return decodeList[T](env.Data, drop)
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(trimmed, &elems); err != nil {
		return nil, domain.ErrTransport.WithDetails("decode list").WithCause(err)
	}

	items := make([]T, 0, len(elems))
	for i, elem := range elems {
		var item T
		if err := json.Unmarshal(elem, &item); err != nil {
			if drop != nil {
				drop(i, err)
			}
			continue
		}
		items = append(items, item)
	}
	return items, nil
}
