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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPredicate_Validate rejects malformed columns and unknown operators.
func TestPredicate_Validate(t *testing.T) {
	assert.NoError(t, Where(ColSchemaName, OpEq, "public").Validate())
	assert.NoError(t, Where(ColStatus, OpLike, "FAIL%").Validate())

	assert.Error(t, Where("", OpEq, "x").Validate())
	assert.Error(t, Where("schema_name; DROP TABLE", OpEq, "x").Validate())
	assert.Error(t, Where("1column", OpEq, "x").Validate())
	assert.Error(t, Where(ColSchemaName, Op("=="), "x").Validate())
	assert.Error(t, Where(ColSchemaName, Op("OR 1=1"), "x").Validate())
}

// TestWhereClause_Rendering builds parameterized SQL from predicates.
func TestWhereClause_Rendering(t *testing.T) {
	clause, args, err := WhereClause(nil)
	require.NoError(t, err)
	assert.Equal(t, "", clause)
	assert.Empty(t, args)

	clause, args, err = WhereClause([]Predicate{
		Where(ColSchemaName, OpEq, "public"),
	})
	require.NoError(t, err)
	assert.Equal(t, " WHERE schema_name = ?", clause)
	assert.Equal(t, []interface{}{"public"}, args)

	clause, args, err = WhereClause([]Predicate{
		Where(ColSchemaName, OpEq, "public"),
		Where(ColTableName, OpLike, "sales%"),
	})
	require.NoError(t, err)
	assert.Equal(t, " WHERE schema_name = ? AND table_name LIKE ?", clause)
	assert.Equal(t, []interface{}{"public", "sales%"}, args)
}

// TestWhereClause_NormalizesTime stores timestamps as RFC3339 UTC text.
func TestWhereClause_NormalizesTime(t *testing.T) {
	loc := time.FixedZone("EST", -5*3600)
	at := time.Date(2025, 3, 1, 7, 30, 0, 0, loc)

	_, args, err := WhereClause([]Predicate{Where(ColStartedAt, OpGe, at)})
	require.NoError(t, err)
	require.Len(t, args, 1)
	assert.Equal(t, "2025-03-01T12:30:00Z", args[0])
}

// TestWhereClause_InvalidPredicate surfaces validation failures.
func TestWhereClause_InvalidPredicate(t *testing.T) {
	_, _, err := WhereClause([]Predicate{Where("bad column", OpEq, 1)})
	assert.Error(t, err)
}

// TestPredicate_Matches evaluates predicates against field maps.
func TestPredicate_Matches(t *testing.T) {
	fields := map[string]interface{}{
		ColSchemaName: "public",
		ColStatus:     "FAILED",
		"seq":         int64(7),
	}

	assert.True(t, Where(ColSchemaName, OpEq, "public").Matches(fields))
	assert.False(t, Where(ColSchemaName, OpEq, "other").Matches(fields))
	assert.True(t, Where(ColSchemaName, OpNe, "other").Matches(fields))
	assert.True(t, Where(ColStatus, OpLike, "FAIL%").Matches(fields))
	assert.False(t, Where(ColStatus, OpLike, "OK%").Matches(fields))
	assert.True(t, Where("seq", OpGt, 3).Matches(fields))
	assert.True(t, Where("seq", OpLe, 7.0).Matches(fields))
	assert.False(t, Where("seq", OpLt, 7).Matches(fields))
	assert.False(t, Where("missing", OpEq, "x").Matches(fields))
}

// TestPredicate_MatchesTime compares time.Time operands chronologically.
func TestPredicate_MatchesTime(t *testing.T) {
	earlier := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	later := earlier.Add(time.Hour)
	fields := map[string]interface{}{ColStartedAt: later}

	assert.True(t, Where(ColStartedAt, OpGt, earlier).Matches(fields))
	assert.True(t, Where(ColStartedAt, OpEq, later).Matches(fields))
	assert.False(t, Where(ColStartedAt, OpLt, earlier).Matches(fields))
}

// TestLikeRegexp anchors patterns and escapes regex metacharacters.
func TestLikeRegexp(t *testing.T) {
	assert.Equal(t, "^FAIL.*$", likeRegexp("FAIL%"))
	assert.Equal(t, "^a.c$", likeRegexp("a_c"))
	assert.Equal(t, `^v1\.2.*$`, likeRegexp("v1.2%"))
}
