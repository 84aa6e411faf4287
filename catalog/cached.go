//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Copyright (C) 2025 Aaron Mathis aaron.mathis@gmail.com
//
// This file is part of SQLStep.
//
// SQLStep is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// SQLStep is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with SQLStep. If not, see https://www.gnu.org/licenses/.

package catalog

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CachedStore wraps another Store with an LRU cache over table lookups.
// Partition metadata is read on every incremental step, so the hot path
// avoids hitting the backend for tables it has already resolved. Log
// operations pass through unchanged.
type CachedStore struct {
	inner Store
	cache *lru.Cache[string, *Table]
}

// DefaultCacheSize is the table cache capacity used by NewCachedStore
// when size is not positive.
const DefaultCacheSize = 128

// NewCachedStore wraps inner with a table lookup cache of the given size.
func NewCachedStore(inner Store, size int) (*CachedStore, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, *Table](size)
	if err != nil {
		return nil, &StoreError{Backend: "cache", Op: "new", Err: err}
	}
	return &CachedStore{inner: inner, cache: cache}, nil
}

// Table resolves schema.name, serving repeated lookups from the cache.
func (s *CachedStore) Table(ctx context.Context, schema, name string) (*Table, error) {
	key := schema + "." + name
	if t, ok := s.cache.Get(key); ok {
		return t, nil
	}
	t, err := s.inner.Table(ctx, schema, name)
	if err != nil {
		return nil, err
	}
	s.cache.Add(key, t)
	return t, nil
}

// PutTable writes through to the backend and invalidates the cached entry.
func (s *CachedStore) PutTable(ctx context.Context, t *Table) error {
	if err := s.inner.PutTable(ctx, t); err != nil {
		return err
	}
	if t != nil {
		s.cache.Remove(t.Key())
	}
	return nil
}

// DeleteTable deletes from the backend and invalidates the cached entry.
func (s *CachedStore) DeleteTable(ctx context.Context, schema, name string) error {
	if err := s.inner.DeleteTable(ctx, schema, name); err != nil {
		return err
	}
	s.cache.Remove(schema + "." + name)
	return nil
}

// Tables bypasses the cache; listings always reflect the backend.
func (s *CachedStore) Tables(ctx context.Context, preds ...Predicate) ([]*Table, error) {
	return s.inner.Tables(ctx, preds...)
}

func (s *CachedStore) AppendQueryLog(ctx context.Context, q *QueryLog) error {
	return s.inner.AppendQueryLog(ctx, q)
}

func (s *CachedStore) QueryLogs(ctx context.Context, preds ...Predicate) ([]*QueryLog, error) {
	return s.inner.QueryLogs(ctx, preds...)
}

func (s *CachedStore) AppendTaskLog(ctx context.Context, t *TaskLog) error {
	return s.inner.AppendTaskLog(ctx, t)
}

func (s *CachedStore) TaskLogs(ctx context.Context, preds ...Predicate) ([]*TaskLog, error) {
	return s.inner.TaskLogs(ctx, preds...)
}

// Purge drops all cached table entries.
func (s *CachedStore) Purge() {
	s.cache.Purge()
}

// Close closes the underlying store.
func (s *CachedStore) Close(ctx context.Context) error {
	s.cache.Purge()
	return s.inner.Close(ctx)
}
