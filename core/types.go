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

package core

// Package core defines the shared result and cursor types for SQLStep.
//
// SQLStep is a SQL middleware that answers aggregate queries incrementally
// against partitioned tables, one partition per client call, refining the
// answer as partitions are merged.
//
// This file contains the tabular result type exchanged between the engine,
// its execution channels, and the client-facing session.

// Row is a single result row, one value per projected column.
type Row []interface{}

// Result is a tabular statement result: column labels, database type names
// (parallel to Columns, may be empty when a channel cannot report them),
// and zero or more rows.
//
// Refined aggregate results carry exactly one row; an exhausted incremental
// query yields zero rows with the header unchanged.
type Result struct {
	Columns   []string
	TypeNames []string
	Rows      []Row
}

// RowCount returns the number of rows in the result.
func (r *Result) RowCount() int {
	return len(r.Rows)
}

// Empty reports whether the result carries no rows.
func (r *Result) Empty() bool {
	return len(r.Rows) == 0
}
