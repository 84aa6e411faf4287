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
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteStore persists the catalog in a SQLite file, the default durable
// backend: a single file, no server, pure Go driver.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens or creates the catalog database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, &StoreError{Backend: "sqlite", Op: "open", Err: err}
	}
	if err := initSchema(db); err != nil {
		db.Close()
		return nil, &StoreError{Backend: "sqlite", Op: "init_schema", Err: err}
	}
	return &SQLiteStore{db: db}, nil
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS partition_tables (
			schema_name      TEXT NOT NULL,
			table_name       TEXT NOT NULL,
			partition_column TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (schema_name, table_name)
		);
		CREATE TABLE IF NOT EXISTS partitions (
			schema_name    TEXT NOT NULL,
			table_name     TEXT NOT NULL,
			seq            INTEGER NOT NULL,
			partition_name TEXT NOT NULL,
			lower_bound    TEXT NOT NULL DEFAULT '',
			upper_bound    TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (schema_name, table_name, seq)
		);
		CREATE TABLE IF NOT EXISTS query_logs (
			id         TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			username   TEXT NOT NULL DEFAULT '',
			statement  TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS task_logs (
			id        TEXT PRIMARY KEY,
			logged_at TEXT NOT NULL,
			status    TEXT NOT NULL DEFAULT '',
			detail    TEXT NOT NULL DEFAULT ''
		);
	`)
	return err
}

// Table resolves the partition catalog entry for schema.name.
func (s *SQLiteStore) Table(ctx context.Context, schema, name string) (*Table, error) {
	t := &Table{Schema: schema, Name: name}
	err := s.db.QueryRowContext(ctx,
		`SELECT partition_column FROM partition_tables WHERE schema_name = ? AND table_name = ?`,
		schema, name,
	).Scan(&t.Column)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("table %s.%s: %w", schema, name, ErrNotFound)
	}
	if err != nil {
		return nil, &StoreError{Backend: "sqlite", Op: "table", Err: err}
	}

	parts, err := s.loadPartitions(ctx, schema, name)
	if err != nil {
		return nil, err
	}
	t.Partitions = parts
	return t, nil
}

func (s *SQLiteStore) loadPartitions(ctx context.Context, schema, name string) ([]Partition, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT partition_name, lower_bound, upper_bound FROM partitions
		 WHERE schema_name = ? AND table_name = ? ORDER BY seq`,
		schema, name,
	)
	if err != nil {
		return nil, &StoreError{Backend: "sqlite", Op: "load_partitions", Err: err}
	}
	defer rows.Close()

	var parts []Partition
	for rows.Next() {
		var p Partition
		if err := rows.Scan(&p.Name, &p.LowerBound, &p.UpperBound); err != nil {
			return nil, &StoreError{Backend: "sqlite", Op: "scan_partition", Err: err}
		}
		parts = append(parts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, &StoreError{Backend: "sqlite", Op: "load_partitions", Err: err}
	}
	return parts, nil
}

// PutTable creates or replaces a partition catalog entry atomically.
func (s *SQLiteStore) PutTable(ctx context.Context, t *Table) error {
	if t == nil || t.Schema == "" || t.Name == "" {
		return &StoreError{Backend: "sqlite", Op: "put_table", Err: fmt.Errorf("schema and table name are required")}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &StoreError{Backend: "sqlite", Op: "put_table", Err: err}
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO partition_tables (schema_name, table_name, partition_column) VALUES (?, ?, ?)`,
		t.Schema, t.Name, t.Column,
	); err != nil {
		return &StoreError{Backend: "sqlite", Op: "put_table", Err: err}
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM partitions WHERE schema_name = ? AND table_name = ?`,
		t.Schema, t.Name,
	); err != nil {
		return &StoreError{Backend: "sqlite", Op: "put_table", Err: err}
	}
	for i, p := range t.Partitions {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO partitions (schema_name, table_name, seq, partition_name, lower_bound, upper_bound)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			t.Schema, t.Name, i, p.Name, p.LowerBound, p.UpperBound,
		); err != nil {
			return &StoreError{Backend: "sqlite", Op: "put_table", Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return &StoreError{Backend: "sqlite", Op: "put_table", Err: err}
	}
	return nil
}

// DeleteTable removes a partition catalog entry.
func (s *SQLiteStore) DeleteTable(ctx context.Context, schema, name string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM partition_tables WHERE schema_name = ? AND table_name = ?`,
		schema, name,
	)
	if err != nil {
		return &StoreError{Backend: "sqlite", Op: "delete_table", Err: err}
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("table %s.%s: %w", schema, name, ErrNotFound)
	}
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM partitions WHERE schema_name = ? AND table_name = ?`,
		schema, name,
	); err != nil {
		return &StoreError{Backend: "sqlite", Op: "delete_table", Err: err}
	}
	return nil
}

// Tables lists entries matching all predicates.
func (s *SQLiteStore) Tables(ctx context.Context, preds ...Predicate) ([]*Table, error) {
	clause, args, err := WhereClause(preds)
	if err != nil {
		return nil, &StoreError{Backend: "sqlite", Op: "tables", Err: err}
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT schema_name, table_name, partition_column FROM partition_tables`+clause+` ORDER BY schema_name, table_name`,
		args...,
	)
	if err != nil {
		return nil, &StoreError{Backend: "sqlite", Op: "tables", Err: err}
	}
	defer rows.Close()

	var out []*Table
	for rows.Next() {
		t := &Table{}
		if err := rows.Scan(&t.Schema, &t.Name, &t.Column); err != nil {
			return nil, &StoreError{Backend: "sqlite", Op: "tables", Err: err}
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, &StoreError{Backend: "sqlite", Op: "tables", Err: err}
	}

	for _, t := range out {
		parts, err := s.loadPartitions(ctx, t.Schema, t.Name)
		if err != nil {
			return nil, err
		}
		t.Partitions = parts
	}
	return out, nil
}

// AppendQueryLog stores a query log record, assigning an ID if empty.
func (s *SQLiteStore) AppendQueryLog(ctx context.Context, q *QueryLog) error {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO query_logs (id, started_at, username, statement) VALUES (?, ?, ?, ?)`,
		q.ID, q.StartedAt.UTC().Format(time.RFC3339Nano), q.User, q.Statement,
	)
	if err != nil {
		return &StoreError{Backend: "sqlite", Op: "append_query_log", Err: err}
	}
	return nil
}

// QueryLogs lists query log records matching all predicates.
func (s *SQLiteStore) QueryLogs(ctx context.Context, preds ...Predicate) ([]*QueryLog, error) {
	clause, args, err := WhereClause(preds)
	if err != nil {
		return nil, &StoreError{Backend: "sqlite", Op: "query_logs", Err: err}
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, username, statement FROM query_logs`+clause+` ORDER BY started_at`,
		args...,
	)
	if err != nil {
		return nil, &StoreError{Backend: "sqlite", Op: "query_logs", Err: err}
	}
	defer rows.Close()

	var out []*QueryLog
	for rows.Next() {
		q := &QueryLog{}
		var startedAt string
		if err := rows.Scan(&q.ID, &startedAt, &q.User, &q.Statement); err != nil {
			return nil, &StoreError{Backend: "sqlite", Op: "query_logs", Err: err}
		}
		q.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt)
		if err != nil {
			return nil, &StoreError{Backend: "sqlite", Op: "query_logs", Err: err}
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, &StoreError{Backend: "sqlite", Op: "query_logs", Err: err}
	}
	return out, nil
}

// AppendTaskLog stores a task log record, assigning an ID if empty.
func (s *SQLiteStore) AppendTaskLog(ctx context.Context, t *TaskLog) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO task_logs (id, logged_at, status, detail) VALUES (?, ?, ?, ?)`,
		t.ID, t.LoggedAt.UTC().Format(time.RFC3339Nano), t.Status, t.Detail,
	)
	if err != nil {
		return &StoreError{Backend: "sqlite", Op: "append_task_log", Err: err}
	}
	return nil
}

// TaskLogs lists task log records matching all predicates.
func (s *SQLiteStore) TaskLogs(ctx context.Context, preds ...Predicate) ([]*TaskLog, error) {
	clause, args, err := WhereClause(preds)
	if err != nil {
		return nil, &StoreError{Backend: "sqlite", Op: "task_logs", Err: err}
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, logged_at, status, detail FROM task_logs`+clause+` ORDER BY logged_at`,
		args...,
	)
	if err != nil {
		return nil, &StoreError{Backend: "sqlite", Op: "task_logs", Err: err}
	}
	defer rows.Close()

	var out []*TaskLog
	for rows.Next() {
		t := &TaskLog{}
		var loggedAt string
		if err := rows.Scan(&t.ID, &loggedAt, &t.Status, &t.Detail); err != nil {
			return nil, &StoreError{Backend: "sqlite", Op: "task_logs", Err: err}
		}
		t.LoggedAt, err = time.Parse(time.RFC3339Nano, loggedAt)
		if err != nil {
			return nil, &StoreError{Backend: "sqlite", Op: "task_logs", Err: err}
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, &StoreError{Backend: "sqlite", Op: "task_logs", Err: err}
	}
	return out, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close(ctx context.Context) error {
	if err := s.db.Close(); err != nil {
		return &StoreError{Backend: "sqlite", Op: "close", Err: err}
	}
	return nil
}
