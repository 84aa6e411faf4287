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

package parse

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestParse_Passthrough forwards ordinary SQL untouched.
func TestParse_Passthrough(t *testing.T) {
	statements := []string{
		"SELECT * FROM sales",
		"select 1",
		"INSERT INTO t VALUES (1, 'x')",
		"CREATE TABLE t (id INTEGER)",
		"INCREMENTALLY SELECT COUNT(*) FROM t", // not our keyword
		"  \n EXPLAIN SELECT 1",
	}
	for _, raw := range statements {
		stmt, err := Parse(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, KindPassthrough, stmt.Kind, raw)
		assert.Equal(t, raw, stmt.Raw, raw)
	}
}

// TestParse_Pull recognizes the rows pull in any casing.
func TestParse_Pull(t *testing.T) {
	for _, raw := range []string{"INCREMENTAL ROWS", "incremental rows", "Incremental Rows;"} {
		stmt, err := Parse(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, KindPull, stmt.Kind, raw)
	}
}

// TestParse_Query parses a minimal incremental aggregate query.
func TestParse_Query(t *testing.T) {
	stmt, err := Parse("INCREMENTAL SELECT SUM(amount) FROM sales")
	require.NoError(t, err)

	assert.Equal(t, KindQuery, stmt.Kind)
	assert.False(t, stmt.Parallel)
	assert.False(t, stmt.Approximate)
	assert.Equal(t, []AggregateCall{{Function: "SUM", Column: "amount"}}, stmt.Aggregates)
	assert.Equal(t, "", stmt.Schema)
	assert.Equal(t, "sales", stmt.Table)
}

// TestParse_QueryFull exercises every optional clause at once.
func TestParse_QueryFull(t *testing.T) {
	stmt, err := Parse("incremental parallel select approximate count(*), avg(price), min(name) from public.sales;")
	require.NoError(t, err)

	assert.Equal(t, KindQuery, stmt.Kind)
	assert.True(t, stmt.Parallel)
	assert.True(t, stmt.Approximate)
	assert.Equal(t, []AggregateCall{
		{Function: "count", Column: "*"},
		{Function: "avg", Column: "price"},
		{Function: "min", Column: "name"},
	}, stmt.Aggregates)
	assert.Equal(t, "public", stmt.Schema)
	assert.Equal(t, "sales", stmt.Table)
}

// TestParse_UnknownFunctionIsSyntacticallyFine leaves function validation to
// the planner.
func TestParse_UnknownFunctionIsSyntacticallyFine(t *testing.T) {
	stmt, err := Parse("INCREMENTAL SELECT STDDEV(amount) FROM sales")
	require.NoError(t, err)
	assert.Equal(t, "STDDEV", stmt.Aggregates[0].Function)
}

// TestParse_Rejections refuses everything outside the incremental grammar.
func TestParse_Rejections(t *testing.T) {
	statements := []string{
		"INCREMENTAL",
		"INCREMENTAL DELETE FROM t",
		"INCREMENTAL PARALLEL ROWS",
		"INCREMENTAL SELECT FROM sales",
		"INCREMENTAL SELECT * FROM sales",
		"INCREMENTAL SELECT SUM(amount FROM sales",
		"INCREMENTAL SELECT SUM(amount) sales",
		"INCREMENTAL SELECT SUM(amount) FROM",
		"INCREMENTAL SELECT SUM(amount) FROM sales WHERE amount > 1",
		"INCREMENTAL SELECT SUM(amount) FROM sales GROUP BY region",
		"INCREMENTAL SELECT SUM(amount) FROM sales JOIN other",
		"INCREMENTAL SELECT SUM(amount) FROM public.sales.extra",
		"INCREMENTAL ROWS please",
		"INCREMENTAL SELECT SUM(amount) FROM sales LIMIT 1",
	}
	for _, raw := range statements {
		_, err := Parse(raw)
		require.Error(t, err, raw)

		var synErr *SyntaxError
		assert.True(t, errors.As(err, &synErr), raw)
	}
}

// TestParse_ErrorPositions point at the offending token.
func TestParse_ErrorPositions(t *testing.T) {
	_, err := Parse("INCREMENTAL SELECT SUM(amount) FROM sales WHERE x")
	require.Error(t, err)

	var synErr *SyntaxError
	require.True(t, errors.As(err, &synErr))
	assert.Equal(t, 42, synErr.Pos)
	assert.Contains(t, synErr.Msg, "WHERE")
}

// TestParse_BadCharacterInIncremental rejects runes outside the grammar once
// the statement is known to be incremental.
func TestParse_BadCharacterInIncremental(t *testing.T) {
	_, err := Parse("INCREMENTAL SELECT SUM(amount) FROM sales -- trailing")
	require.Error(t, err)

	var synErr *SyntaxError
	assert.True(t, errors.As(err, &synErr))
}
