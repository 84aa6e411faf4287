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

package sqlstep

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aaronlmathis/sqlstep/catalog"
	"github.com/aaronlmathis/sqlstep/core"
	"github.com/aaronlmathis/sqlstep/logger"
	"github.com/aaronlmathis/sqlstep/parse"
	"github.com/aaronlmathis/sqlstep/plan"
	"github.com/aaronlmathis/sqlstep/task"
)

// DefaultSchema is assumed when a statement names an unqualified table.
const DefaultSchema = "public"

// Task log status for a freshly planned incremental query.
const statusPlanned = "PLANNED"

// Task log status for a failed plan or partition scan.
const statusFailed = "FAILED"

// SessionBuilder provides a fluent interface for assembling sessions.
type SessionBuilder struct {
	catalog       catalog.Store
	channel       core.Channel
	dialect       plan.Dialect
	defaultSchema string
	user          string
	log           *logger.Logger
	workers       int
	pool          *task.Pool
}

// NewSession creates a new session builder.
func NewSession() *SessionBuilder {
	return &SessionBuilder{
		dialect:       plan.DialectRange,
		defaultSchema: DefaultSchema,
	}
}

// WithCatalog sets the partition catalog store. Required.
func (sb *SessionBuilder) WithCatalog(store catalog.Store) *SessionBuilder {
	sb.catalog = store
	return sb
}

// WithChannel sets the execution channel to the backing database. Required.
func (sb *SessionBuilder) WithChannel(channel core.Channel) *SessionBuilder {
	sb.channel = channel
	return sb
}

// WithDialect sets the partition addressing dialect for generated scans.
func (sb *SessionBuilder) WithDialect(dialect plan.Dialect) *SessionBuilder {
	sb.dialect = dialect
	return sb
}

// WithDefaultSchema sets the schema assumed for unqualified table names.
func (sb *SessionBuilder) WithDefaultSchema(schema string) *SessionBuilder {
	sb.defaultSchema = schema
	return sb
}

// WithUser sets the username recorded in query logs.
func (sb *SessionBuilder) WithUser(user string) *SessionBuilder {
	sb.user = user
	return sb
}

// WithLogger sets the logger for session and coordinator diagnostics.
func (sb *SessionBuilder) WithLogger(log *logger.Logger) *SessionBuilder {
	sb.log = log
	return sb
}

// WithWorkers sets the worker count for the session's own scan pool.
func (sb *SessionBuilder) WithWorkers(workers int) *SessionBuilder {
	sb.workers = workers
	return sb
}

// WithPool sets a shared scan pool. The session will not close it.
func (sb *SessionBuilder) WithPool(pool *task.Pool) *SessionBuilder {
	sb.pool = pool
	return sb
}

// Build validates the configuration and creates the session.
func (sb *SessionBuilder) Build() (*Session, error) {
	if sb.catalog == nil {
		return nil, fmt.Errorf("session requires a catalog store")
	}
	if sb.channel == nil {
		return nil, fmt.Errorf("session requires an execution channel")
	}
	switch sb.dialect {
	case plan.DialectRange, plan.DialectTables, plan.DialectNative:
	default:
		return nil, fmt.Errorf("unknown dialect: %s", sb.dialect)
	}

	log := sb.log
	if log == nil {
		log = logger.Default()
	}

	options := []task.Option{task.WithLogger(log)}
	if sb.pool != nil {
		options = append(options, task.WithPool(sb.pool))
	} else if sb.workers > 0 {
		options = append(options, task.WithWorkers(sb.workers))
	}
	coordinator, err := task.NewCoordinator(sb.channel, options...)
	if err != nil {
		return nil, err
	}

	return &Session{
		catalog:       sb.catalog,
		channel:       sb.channel,
		coordinator:   coordinator,
		dialect:       sb.dialect,
		defaultSchema: sb.defaultSchema,
		user:          sb.user,
		log:           log,
	}, nil
}

// Session is one client's stateful connection through the middleware. It
// classifies each statement, forwards ordinary SQL to the channel, and runs
// INCREMENTAL statements against its coordinator. A session holds at most
// one incremental task at a time; sessions over the same catalog and channel
// are independent. Not safe for concurrent use by multiple goroutines.
type Session struct {
	catalog       catalog.Store
	channel       core.Channel
	coordinator   *task.Coordinator
	dialect       plan.Dialect
	defaultSchema string
	user          string
	log           *logger.Logger
}

// Execute runs one statement and returns its result.
//
// Ordinary SQL is forwarded to the channel verbatim. An INCREMENTAL SELECT
// plans a new task, replacing any previous one, scans the first partition,
// and returns the first refined answer. INCREMENTAL ROWS merges the next
// partition into the running aggregate and returns the sharper answer; once
// every partition has been consumed it keeps returning an empty result with
// the same header.
func (s *Session) Execute(ctx context.Context, statement string) (*core.Result, error) {
	s.logQuery(ctx, statement)

	stmt, err := parse.Parse(statement)
	if err != nil {
		return nil, err
	}

	switch stmt.Kind {
	case parse.KindPull:
		return s.advance(ctx)
	case parse.KindQuery:
		return s.begin(ctx, stmt)
	default:
		return s.channel.Execute(ctx, stmt.Raw)
	}
}

// begin resolves the table, generates the plan, and runs the first step of
// the new task.
func (s *Session) begin(ctx context.Context, stmt *parse.Statement) (*core.Result, error) {
	schema := stmt.Schema
	if schema == "" {
		schema = s.defaultSchema
	}

	table, err := s.catalog.Table(ctx, schema, stmt.Table)
	if err != nil {
		return nil, err
	}

	calls := make([]plan.Call, len(stmt.Aggregates))
	for i, agg := range stmt.Aggregates {
		calls[i] = plan.Call{Function: agg.Function, Column: agg.Column}
	}

	p, err := plan.Generate(table, calls, s.dialect)
	if err != nil {
		s.logTask(ctx, statusFailed, fmt.Sprintf("%s.%s: %v", schema, stmt.Table, err))
		return nil, err
	}

	s.log.Info("planned incremental query over %s.%s (%d partitions, dialect %s)",
		schema, stmt.Table, p.TotalPartitions(), s.dialect)
	s.logTask(ctx, statusPlanned,
		fmt.Sprintf("%s.%s: %d partitions", schema, stmt.Table, p.TotalPartitions()))

	result, err := s.coordinator.Begin(ctx, p, stmt.Approximate, stmt.Parallel)
	if err != nil {
		s.logTask(ctx, statusFailed, err.Error())
		return nil, err
	}

	s.logTask(ctx, s.coordinator.State().String(),
		fmt.Sprintf("%d partitions scanned", s.coordinator.Cursor()))
	return result, nil
}

// advance pulls the next partition from the coordinator. Pulls after
// exhaustion are answered but not logged; no partition was scanned.
func (s *Session) advance(ctx context.Context) (*core.Result, error) {
	exhausted := s.coordinator.State() == task.StateExhausted

	result, err := s.coordinator.Advance(ctx)
	if err != nil {
		if !errors.Is(err, task.ErrNoActiveQuery) {
			s.logTask(ctx, statusFailed, err.Error())
		}
		return nil, err
	}

	if !exhausted {
		s.logTask(ctx, s.coordinator.State().String(),
			fmt.Sprintf("%d partitions scanned", s.coordinator.Cursor()))
	}
	return result, nil
}

// State reports the coordinator state of the current incremental task.
func (s *Session) State() task.State {
	return s.coordinator.State()
}

// Reset abandons the current incremental task, if any.
func (s *Session) Reset() {
	s.coordinator.Reset()
}

// Close releases the session's coordinator. The catalog store and channel
// are shared across sessions and stay open.
func (s *Session) Close() error {
	return s.coordinator.Close()
}

// logQuery appends a query log record. Log failures are reported but never
// fail the statement itself.
func (s *Session) logQuery(ctx context.Context, statement string) {
	entry := &catalog.QueryLog{
		StartedAt: time.Now().UTC(),
		User:      s.user,
		Statement: statement,
	}
	if err := s.catalog.AppendQueryLog(ctx, entry); err != nil {
		s.log.Warn("query log append failed: %v", err)
	}
}

// logTask appends a task log record. Log failures are reported but never
// fail the statement itself.
func (s *Session) logTask(ctx context.Context, status, detail string) {
	entry := &catalog.TaskLog{
		LoggedAt: time.Now().UTC(),
		Status:   status,
		Detail:   detail,
	}
	if err := s.catalog.AppendTaskLog(ctx, entry); err != nil {
		s.log.Warn("task log append failed: %v", err)
	}
}
