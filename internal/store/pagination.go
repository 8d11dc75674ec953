package store

import (
	"encoding/base64"
	"strconv"
)

const (
	// DefaultPageSize applies when a list request does not name a limit.
	DefaultPageSize = 100
	// MaxPageSize caps any list request.
	MaxPageSize = 1000
)

// PageRequest contains pagination request parameters.
type PageRequest struct {
	Limit  int    // items per page, defaults to 100 with a maximum of 1000
	Cursor string // opaque cursor for the next page, empty for the first page
}

// Normalize clamps the limit into [1, MaxPageSize].
func (p *PageRequest) Normalize() {
	if p.Limit <= 0 {
		p.Limit = DefaultPageSize
	}
	if p.Limit > MaxPageSize {
		p.Limit = MaxPageSize
	}
}

// PageResult is a typed page of entities.
type PageResult[T any] struct {
	Items      []*T
	NextCursor string // empty when there are no more pages
}

// HasMore reports whether another page exists.
func (r *PageResult[T]) HasMore() bool {
	return r.NextCursor != ""
}

// EncodeCursor creates an opaque cursor from a position key.
func EncodeCursor(position string) string {
	if position == "" {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString([]byte(position))
}

// DecodeCursor decodes a cursor back to its position key.
func DecodeCursor(cursor string) (string, error) {
	if cursor == "" {
		return "", nil
	}
	decoded, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return "", ErrInvalidCursor.WithCause(err)
	}
	return string(decoded), nil
}

// EncodeIDCursor builds a cursor that resumes after id.
func EncodeIDCursor(id int64) string {
	return EncodeCursor(strconv.FormatInt(id, 10))
}

// DecodeIDCursor returns the id a cursor resumes after, or 0 for the first page.
func DecodeIDCursor(cursor string) (int64, error) {
	pos, err := DecodeCursor(cursor)
	if err != nil || pos == "" {
		return 0, err
	}
	id, err := strconv.ParseInt(pos, 10, 64)
	if err != nil {
		return 0, ErrInvalidCursor.WithCause(err)
	}
	return id, nil
}
