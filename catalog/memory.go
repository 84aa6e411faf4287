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
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore is a mutex-guarded in-process Store. It backs tests and
// single-process deployments where partition metadata is registered at
// startup.
type MemoryStore struct {
	mu      sync.RWMutex
	tables  map[string]*Table
	queries []*QueryLog
	tasks   []*TaskLog
}

// NewMemoryStore creates an empty in-memory catalog.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tables: make(map[string]*Table),
	}
}

// Table resolves the partition catalog entry for schema.name.
func (s *MemoryStore) Table(ctx context.Context, schema, name string) (*Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tables[schema+"."+name]
	if !ok {
		return nil, fmt.Errorf("table %s.%s: %w", schema, name, ErrNotFound)
	}
	return t, nil
}

// PutTable creates or replaces a partition catalog entry.
func (s *MemoryStore) PutTable(ctx context.Context, t *Table) error {
	if t == nil || t.Schema == "" || t.Name == "" {
		return &StoreError{Backend: "memory", Op: "put_table", Err: fmt.Errorf("schema and table name are required")}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[t.Key()] = t
	return nil
}

// DeleteTable removes a partition catalog entry.
func (s *MemoryStore) DeleteTable(ctx context.Context, schema, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := schema + "." + name
	if _, ok := s.tables[key]; !ok {
		return fmt.Errorf("table %s: %w", key, ErrNotFound)
	}
	delete(s.tables, key)
	return nil
}

// Tables lists entries matching all predicates.
func (s *MemoryStore) Tables(ctx context.Context, preds ...Predicate) ([]*Table, error) {
	for _, p := range preds {
		if err := p.Validate(); err != nil {
			return nil, &StoreError{Backend: "memory", Op: "tables", Err: err}
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Table
	for _, t := range s.tables {
		fields := map[string]interface{}{
			ColSchemaName:      t.Schema,
			ColTableName:       t.Name,
			ColPartitionColumn: t.Column,
		}
		if matchesAll(fields, preds) {
			out = append(out, t)
		}
	}
	return out, nil
}

// AppendQueryLog stores a query log record, assigning an ID if empty.
func (s *MemoryStore) AppendQueryLog(ctx context.Context, q *QueryLog) error {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = append(s.queries, q)
	return nil
}

// QueryLogs lists query log records matching all predicates.
func (s *MemoryStore) QueryLogs(ctx context.Context, preds ...Predicate) ([]*QueryLog, error) {
	for _, p := range preds {
		if err := p.Validate(); err != nil {
			return nil, &StoreError{Backend: "memory", Op: "query_logs", Err: err}
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*QueryLog
	for _, q := range s.queries {
		fields := map[string]interface{}{
			ColID:        q.ID,
			ColStartedAt: q.StartedAt,
			ColUsername:  q.User,
			ColStatement: q.Statement,
		}
		if matchesAll(fields, preds) {
			out = append(out, q)
		}
	}
	return out, nil
}

// AppendTaskLog stores a task log record, assigning an ID if empty.
func (s *MemoryStore) AppendTaskLog(ctx context.Context, t *TaskLog) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append(s.tasks, t)
	return nil
}

// TaskLogs lists task log records matching all predicates.
func (s *MemoryStore) TaskLogs(ctx context.Context, preds ...Predicate) ([]*TaskLog, error) {
	for _, p := range preds {
		if err := p.Validate(); err != nil {
			return nil, &StoreError{Backend: "memory", Op: "task_logs", Err: err}
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*TaskLog
	for _, t := range s.tasks {
		fields := map[string]interface{}{
			ColID:       t.ID,
			ColLoggedAt: t.LoggedAt,
			ColStatus:   t.Status,
			ColDetail:   t.Detail,
		}
		if matchesAll(fields, preds) {
			out = append(out, t)
		}
	}
	return out, nil
}

// Close is a no-op for the memory store.
func (s *MemoryStore) Close(ctx context.Context) error {
	return nil
}

func matchesAll(fields map[string]interface{}, preds []Predicate) bool {
	for _, p := range preds {
		if !p.Matches(fields) {
			return false
		}
	}
	return true
}
