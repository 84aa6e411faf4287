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
	"github.com/aaronlmathis/sqlstep/core"
	"github.com/aaronlmathis/sqlstep/plan"
	"github.com/aaronlmathis/sqlstep/task"
)

// Package sqlstep is a SQL middleware that answers aggregate queries over
// partitioned tables incrementally. A session sits between a client and its
// backing database: ordinary SQL passes through untouched, while statements
// opening with INCREMENTAL are executed partition by partition, each pull
// refining the previous answer by merging one more partition's partial
// aggregates.
//
// Core concepts:
//   - Session: one client's stateful connection through the middleware.
//   - Channel: the execution path to the backing database (see scan).
//   - Store: the partition metadata catalog (see catalog).
//   - Coordinator: the incremental task state machine (see task).
//
// Example usage:
//
//	session, err := sqlstep.NewSession().
//	    WithCatalog(store).
//	    WithChannel(channel).
//	    Build()
//	if err != nil { log.Fatal(err) }
//	defer session.Close()
//
//	estimate, err := session.Execute(ctx, "INCREMENTAL SELECT APPROXIMATE COUNT(*) FROM public.sales")
//	refined, err := session.Execute(ctx, "INCREMENTAL ROWS")

// Row is one result row.
type Row = core.Row

// Result is a fully materialized statement result.
type Result = core.Result

// Cursor iterates a row set with rewind support.
type Cursor = core.Cursor

// ListCursor is the in-memory Cursor implementation.
type ListCursor = core.ListCursor

// CursorNotPositionedError reports value access on an unpositioned cursor.
type CursorNotPositionedError = core.CursorNotPositionedError

// Channel executes one statement against a backing database.
type Channel = core.Channel

// ChannelFunc adapts a function to the Channel interface.
type ChannelFunc = core.ChannelFunc

// Dialect selects how partitions are addressed in generated scans.
type Dialect = plan.Dialect

// Supported partition addressing dialects.
const (
	DialectRange  = plan.DialectRange
	DialectTables = plan.DialectTables
	DialectNative = plan.DialectNative
)

// ErrNoActiveQuery is returned for INCREMENTAL ROWS with no planned query.
var ErrNoActiveQuery = task.ErrNoActiveQuery
