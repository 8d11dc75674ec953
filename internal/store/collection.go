package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
)

// normalizer is implemented by domain types that fix up nil slices after decoding.
type normalizer interface {
	Normalize()
}

// Collection provides typed CRUD for one kind over a Datastore.
// Entities are stored as JSON.
type Collection[T any] struct {
	ds      Datastore
	kind    string
	getID   func(*T) int64
	setID   func(*T, int64)
	indexes []index[T]
}

type index[T any] struct {
	name  string
	value func(*T) string
}

// NewCollection creates a collection for kind. getID and setID expose the
// entity's numeric id field.
func NewCollection[T any](ds Datastore, kind string, getID func(*T) int64, setID func(*T, int64)) *Collection[T] {
	return &Collection[T]{ds: ds, kind: kind, getID: getID, setID: setID}
}

// WithIndex adds an equality index on a single-valued property.
func (c *Collection[T]) WithIndex(name string, value func(*T) string) *Collection[T] {
	c.indexes = append(c.indexes, index[T]{name: name, value: value})
	return c
}

// Kind returns the stored kind name.
func (c *Collection[T]) Kind() string { return c.kind }

// Create allocates an id, assigns it to entity and stores it.
func (c *Collection[T]) Create(ctx context.Context, entity *T) error {
	id, err := c.ds.AllocateID(ctx, c.kind)
	if err != nil {
		return fmt.Errorf("allocate %s id: %w", c.kind, err)
	}
	c.setID(entity, id)

	rec, err := c.encode(entity)
	if err != nil {
		return err
	}
	if err := c.ds.Insert(ctx, Key{Kind: c.kind, ID: id}, rec); err != nil {
		return fmt.Errorf("insert %s %d: %w", c.kind, id, err)
	}
	return nil
}

// Get retrieves an entity by id. Returns ErrNotFound if it does not exist.
func (c *Collection[T]) Get(ctx context.Context, id int64) (*T, error) {
	data, err := c.ds.Get(ctx, Key{Kind: c.kind, ID: id})
	if err != nil {
		return nil, err
	}
	return c.decode(data)
}

// Mutate loads the entity, applies fn and persists the result atomically.
// fn may run more than once if the store retries a conflicting write, so it
// must not have side effects beyond the entity. The stored id is kept even
// if fn changes it. If fn returns ErrNoChange nothing is written and the
// current entity is returned.
func (c *Collection[T]) Mutate(ctx context.Context, id int64, fn func(*T) error) (*T, error) {
	var result *T
	err := c.ds.Update(ctx, Key{Kind: c.kind, ID: id}, func(current []byte) (Record, error) {
		entity, err := c.decode(current)
		if err != nil {
			return Record{}, err
		}
		c.setID(entity, id)
		if err := fn(entity); err != nil {
			if errors.Is(err, ErrNoChange) {
				result = entity
			}
			return Record{}, err
		}
		c.setID(entity, id)
		result = entity
		return c.encode(entity)
	})
	if errors.Is(err, ErrNoChange) {
		return result, nil
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Delete removes an entity and returns it as it was at the moment it was
// removed. Returns ErrNotFound if nothing was stored under id.
func (c *Collection[T]) Delete(ctx context.Context, id int64) (*T, error) {
	data, err := c.ds.Delete(ctx, Key{Kind: c.kind, ID: id})
	if err != nil {
		return nil, fmt.Errorf("delete %s %d: %w", c.kind, id, err)
	}
	if data == nil {
		return nil, ErrNotFound
	}
	return c.decode(data)
}

// List returns one page of entities in id order.
func (c *Collection[T]) List(ctx context.Context, page PageRequest) (*PageResult[T], error) {
	return c.query(ctx, nil, page)
}

// ListBy returns one page of entities whose index equals value.
func (c *Collection[T]) ListBy(ctx context.Context, indexName, value string, page PageRequest) (*PageResult[T], error) {
	return c.query(ctx, &Filter{Property: indexName, Value: value}, page)
}

// All iterates every entity of the kind, fetching pages as it goes.
func (c *Collection[T]) All(ctx context.Context) iter.Seq2[*T, error] {
	return func(yield func(*T, error) bool) {
		req := PageRequest{Limit: MaxPageSize}
		for {
			res, err := c.query(ctx, nil, req)
			if err != nil {
				yield(nil, err)
				return
			}
			for _, entity := range res.Items {
				if !yield(entity, nil) {
					return
				}
			}
			if !res.HasMore() {
				return
			}
			req.Cursor = res.NextCursor
		}
	}
}

func (c *Collection[T]) query(ctx context.Context, filter *Filter, page PageRequest) (*PageResult[T], error) {
	page.Normalize()

	res, err := c.ds.Query(ctx, Query{Kind: c.kind, Filter: filter, Limit: page.Limit, Cursor: page.Cursor})
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", c.kind, err)
	}

	out := &PageResult[T]{Items: make([]*T, 0, len(res.Items)), NextCursor: res.NextCursor}
	for _, item := range res.Items {
		entity, err := c.decode(item.Data)
		if err != nil {
			return nil, err
		}
		c.setID(entity, item.Key.ID)
		out.Items = append(out.Items, entity)
	}
	return out, nil
}

func (c *Collection[T]) encode(entity *T) (Record, error) {
	data, err := json.Marshal(entity)
	if err != nil {
		return Record{}, fmt.Errorf("failed to marshal %s: %w", c.kind, err)
	}
	rec := Record{Data: data}
	if len(c.indexes) > 0 {
		rec.Indexes = make(map[string]string, len(c.indexes))
		for _, idx := range c.indexes {
			rec.Indexes[idx.name] = idx.value(entity)
		}
	}
	return rec, nil
}

func (c *Collection[T]) decode(data []byte) (*T, error) {
	var entity T
	if err := json.Unmarshal(data, &entity); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s: %w", c.kind, err)
	}
	if n, ok := any(&entity).(normalizer); ok {
		n.Normalize()
	}
	return &entity, nil
}
