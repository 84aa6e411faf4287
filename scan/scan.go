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

package scan

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
	"strconv"
	"sync"
	"time"

	"github.com/aaronlmathis/sqlstep/core"
	_ "github.com/lib/pq"  // PostgreSQL driver
	_ "modernc.org/sqlite" // SQLite driver
)

// Package scan provides execution channels over backing databases. A channel
// runs one SQL statement to completion and returns the materialized result;
// the incremental engine issues one channel call per partition scan and the
// session forwards passthrough statements over the same channel.

// Driver names accepted by Open.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// ChannelError provides structured error information for channel operations
type ChannelError struct {
	Driver string // Driver in use (e.g., "postgres", "sqlite")
	Op     string // Operation that failed (e.g., "connect", "query", "scan")
	Err    error  // Underlying error
}

func (e *ChannelError) Error() string {
	if e.Driver != "" {
		return fmt.Sprintf("%s channel %s: %v", e.Driver, e.Op, e.Err)
	}
	return fmt.Sprintf("channel %s: %v", e.Op, e.Err)
}

func (e *ChannelError) Unwrap() error {
	return e.Err
}

// DBStats holds statistics about the channel's activity
type DBStats struct {
	QueriesExecuted int64         // Total statements executed
	RowsReturned    int64         // Total rows materialized
	QueryDuration   time.Duration // Total time spent in queries
	LastQueryTime   time.Time     // Time of last statement
}

// Options configures a database channel
type Options struct {
	DSN             string        // Database connection string
	Driver          string        // postgres or sqlite
	ConnMaxLifetime time.Duration // Maximum connection lifetime
	ConnMaxIdleTime time.Duration // Maximum connection idle time
	MaxOpenConns    int           // Maximum open connections
	MaxIdleConns    int           // Maximum idle connections
	QueryTimeout    time.Duration // Per-statement execution timeout
}

// Option represents a configuration function for Options
type Option func(*Options)

// WithDSN sets the database connection string.
func WithDSN(dsn string) Option {
	return func(opts *Options) {
		opts.DSN = dsn
	}
}

// WithDriver selects the database driver.
func WithDriver(driver string) Option {
	return func(opts *Options) {
		opts.Driver = driver
	}
}

// WithConnectionPool configures the connection pool.
func WithConnectionPool(maxOpen, maxIdle int) Option {
	return func(opts *Options) {
		opts.MaxOpenConns = maxOpen
		opts.MaxIdleConns = maxIdle
	}
}

// WithConnectionTimeout sets connection and idle timeouts.
func WithConnectionTimeout(lifetime, idleTime time.Duration) Option {
	return func(opts *Options) {
		opts.ConnMaxLifetime = lifetime
		opts.ConnMaxIdleTime = idleTime
	}
}

// WithQueryTimeout sets the per-statement execution timeout.
func WithQueryTimeout(timeout time.Duration) Option {
	return func(opts *Options) {
		opts.QueryTimeout = timeout
	}
}

// withDefaults applies default values to Options
func (opts *Options) withDefaults() *Options {
	result := &Options{}
	if opts != nil {
		*result = *opts
	}

	if result.Driver == "" {
		result.Driver = DriverPostgres
	}
	if result.QueryTimeout <= 0 {
		result.QueryTimeout = 30 * time.Second
	}
	if result.ConnMaxLifetime <= 0 {
		result.ConnMaxLifetime = 5 * time.Minute
	}
	if result.ConnMaxIdleTime <= 0 {
		result.ConnMaxIdleTime = 1 * time.Minute
	}
	if result.MaxOpenConns <= 0 {
		result.MaxOpenConns = 10
	}
	if result.MaxIdleConns <= 0 {
		result.MaxIdleConns = 5
	}

	return result
}

// DB is an execution channel backed by a SQL database. It implements
// core.Channel and is safe for concurrent use; the parallel scanner issues
// overlapping Execute calls against one DB.
type DB struct {
	mu    sync.Mutex
	db    *sql.DB
	opts  *Options
	stats DBStats
}

// Open connects to the configured database and verifies the connection.
func Open(options ...Option) (*DB, error) {
	opts := (&Options{}).withDefaults()
	for _, option := range options {
		option(opts)
	}

	if opts.DSN == "" {
		return nil, &ChannelError{Driver: opts.Driver, Op: "validate", Err: fmt.Errorf("dsn is required")}
	}
	if opts.Driver != DriverPostgres && opts.Driver != DriverSQLite {
		return nil, &ChannelError{Driver: opts.Driver, Op: "validate", Err: fmt.Errorf("unknown driver %q", opts.Driver)}
	}

	db, err := sql.Open(opts.Driver, opts.DSN)
	if err != nil {
		return nil, &ChannelError{Driver: opts.Driver, Op: "connect", Err: err}
	}

	db.SetMaxOpenConns(opts.MaxOpenConns)
	db.SetMaxIdleConns(opts.MaxIdleConns)
	db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	db.SetConnMaxIdleTime(opts.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), opts.QueryTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, &ChannelError{Driver: opts.Driver, Op: "ping", Err: err}
	}

	return &DB{db: db, opts: opts}, nil
}

// OpenPostgres opens a PostgreSQL channel from a DSN.
func OpenPostgres(dsn string, options ...Option) (*DB, error) {
	return Open(append([]Option{WithDSN(dsn), WithDriver(DriverPostgres)}, options...)...)
}

// OpenSQLite opens a SQLite channel from a file path or DSN.
func OpenSQLite(dsn string, options ...Option) (*DB, error) {
	return Open(append([]Option{WithDSN(dsn), WithDriver(DriverSQLite)}, options...)...)
}

// Execute implements core.Channel. It runs one statement to completion and
// returns the materialized result.
func (d *DB) Execute(ctx context.Context, query string) (*core.Result, error) {
	if d.opts.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.opts.QueryTimeout)
		defer cancel()
	}

	startTime := time.Now()
	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return nil, &ChannelError{Driver: d.opts.Driver, Op: "query", Err: err}
	}
	defer rows.Close()

	columnNames, err := rows.Columns()
	if err != nil {
		return nil, &ChannelError{Driver: d.opts.Driver, Op: "columns", Err: err}
	}
	columnTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, &ChannelError{Driver: d.opts.Driver, Op: "column_types", Err: err}
	}

	result := &core.Result{
		Columns:   columnNames,
		TypeNames: make([]string, len(columnTypes)),
	}
	for i, ct := range columnTypes {
		result.TypeNames[i] = ct.DatabaseTypeName()
	}

	values := make([]interface{}, len(columnNames))
	scanBuffer := make([]interface{}, len(columnNames))
	for i := range scanBuffer {
		scanBuffer[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(scanBuffer...); err != nil {
			return nil, &ChannelError{Driver: d.opts.Driver, Op: "scan", Err: err}
		}
		row := make(core.Row, len(values))
		for i, value := range values {
			if value == nil {
				row[i] = nil
				continue
			}
			row[i] = convertValue(value, columnTypes[i])
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, &ChannelError{Driver: d.opts.Driver, Op: "read", Err: err}
	}

	d.mu.Lock()
	d.stats.QueriesExecuted++
	d.stats.RowsReturned += int64(len(result.Rows))
	d.stats.QueryDuration += time.Since(startTime)
	d.stats.LastQueryTime = time.Now()
	d.mu.Unlock()

	return result, nil
}

// Stats returns a copy of the channel's activity counters.
func (d *DB) Stats() DBStats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

// Close releases the underlying connection pool.
func (d *DB) Close() error {
	if err := d.db.Close(); err != nil {
		return &ChannelError{Driver: d.opts.Driver, Op: "close", Err: err}
	}
	return nil
}

// convertValue converts SQL driver values to the Go types the merge algebra
// dispatches on. Text types arrive as byte slices from lib/pq; NUMERIC and
// DECIMAL arrive as text and must come back numeric or SUM/AVG over them
// would fall through to string comparison.
func convertValue(value interface{}, colType *sql.ColumnType) interface{} {
	if b, ok := value.([]byte); ok {
		dbType := colType.DatabaseTypeName()
		switch dbType {
		case "TEXT", "VARCHAR", "CHAR", "BPCHAR", "NAME":
			return string(b)
		case "NUMERIC", "DECIMAL":
			if f, err := strconv.ParseFloat(string(b), 64); err == nil {
				return f
			}
			return string(b)
		default:
			// Keep as byte array for binary types like BYTEA
			return b
		}
	}

	switch v := value.(type) {
	case time.Time, bool, int64, float64, string:
		return v
	default:
		rv := reflect.ValueOf(v)
		switch rv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32:
			return rv.Int()
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			return int64(rv.Uint())
		case reflect.Float32:
			return float64(rv.Float())
		default:
			// Fallback to string representation
			return fmt.Sprintf("%v", v)
		}
	}
}
