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

// Package export captures statement results as snapshots and writes them
// to CSV, JSON lines, Parquet, or S3. A snapshot of a refined incremental
// answer is a point-in-time copy; later pulls do not change it.
package export

import (
	"fmt"

	"github.com/aaronlmathis/sqlstep/core"
)

// Format selects the encoding for an exported snapshot.
type Format string

const (
	FormatCSV     Format = "csv"
	FormatJSON    Format = "json"
	FormatParquet Format = "parquet"
)

// Snapshot is a result frozen for export. TypeNames carries the backing
// database's column types when the result came off a passthrough scan;
// merged incremental results leave it empty and writers infer types from
// the values instead.
type Snapshot struct {
	Columns   []string
	TypeNames []string
	Rows      []core.Row
}

// Capture copies a result into a snapshot.
func Capture(result *core.Result) (*Snapshot, error) {
	if result == nil {
		return nil, fmt.Errorf("export: no result to capture")
	}
	if len(result.Columns) == 0 {
		return nil, fmt.Errorf("export: result has no columns")
	}

	snap := &Snapshot{
		Columns:   append([]string(nil), result.Columns...),
		TypeNames: append([]string(nil), result.TypeNames...),
		Rows:      make([]core.Row, len(result.Rows)),
	}
	for i, row := range result.Rows {
		snap.Rows[i] = append(core.Row(nil), row...)
	}
	return snap, nil
}
