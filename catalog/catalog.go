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
	"errors"
	"fmt"
	"time"
)

// Package catalog stores partition metadata and execution logs.
//
// The engine resolves a table's partition list here before planning an
// incremental query; the session appends query and task logs as statements
// execute. Stores are interchangeable: in-memory, SQLite, or MongoDB, with
// an optional LRU cache in front of any of them.

// ErrNotFound reports that the requested object does not exist. Callers can
// rely on errors.Is(err, ErrNotFound) to tell "no such object" apart from a
// storage failure.
var ErrNotFound = errors.New("catalog: not found")

// Partition is one partition of a table. Bounds are only meaningful for
// range-predicate dialects and stay empty otherwise; an empty UpperBound on
// the last partition means it is open-ended.
type Partition struct {
	Name       string
	LowerBound string
	UpperBound string
}

// Table is a partition catalog entry. Partitions carries the authoritative
// scan and merge order.
type Table struct {
	Schema     string
	Name       string
	Column     string
	Partitions []Partition
}

// Key returns the schema-qualified lookup key for the table.
func (t *Table) Key() string {
	return t.Schema + "." + t.Name
}

// QueryLog records one statement received by a session.
type QueryLog struct {
	ID        string
	StartedAt time.Time
	User      string
	Statement string
}

// TaskLog records one engine task transition, such as a partition scan.
type TaskLog struct {
	ID       string
	LoggedAt time.Time
	Status   string
	Detail   string
}

// Store is the partition catalog and log storage seam.
// Lookup methods return ErrNotFound (wrapped) when the object is absent and
// a distinct error on storage failure.
type Store interface {
	// Table resolves the partition catalog entry for schema.name.
	Table(ctx context.Context, schema, name string) (*Table, error)
	// PutTable creates or replaces a partition catalog entry.
	PutTable(ctx context.Context, t *Table) error
	// DeleteTable removes a partition catalog entry.
	DeleteTable(ctx context.Context, schema, name string) error
	// Tables lists entries matching all predicates.
	Tables(ctx context.Context, preds ...Predicate) ([]*Table, error)

	// AppendQueryLog stores a query log record, assigning an ID if empty.
	AppendQueryLog(ctx context.Context, q *QueryLog) error
	// QueryLogs lists query log records matching all predicates.
	QueryLogs(ctx context.Context, preds ...Predicate) ([]*QueryLog, error)

	// AppendTaskLog stores a task log record, assigning an ID if empty.
	AppendTaskLog(ctx context.Context, t *TaskLog) error
	// TaskLogs lists task log records matching all predicates.
	TaskLogs(ctx context.Context, preds ...Predicate) ([]*TaskLog, error)

	// Close releases the store's resources.
	Close(ctx context.Context) error
}

// StoreError provides structured error information for catalog operations.
type StoreError struct {
	Backend string // Store implementation ("memory", "sqlite", "mongo")
	Op      string // Operation that failed (e.g., "put_table", "query_logs")
	Err     error  // Underlying error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("catalog %s %s: %v", e.Backend, e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// Predicate column names shared by every store implementation.
const (
	ColSchemaName      = "schema_name"
	ColTableName       = "table_name"
	ColPartitionColumn = "partition_column"
	ColID              = "id"
	ColStartedAt       = "started_at"
	ColUsername        = "username"
	ColStatement       = "statement"
	ColLoggedAt        = "logged_at"
	ColStatus          = "status"
	ColDetail          = "detail"
)
