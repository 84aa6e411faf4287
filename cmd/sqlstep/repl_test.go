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

package main

import (
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aaronlmathis/sqlstep"
	"github.com/aaronlmathis/sqlstep/catalog"
)

func TestParsePartitions_BoundForms(t *testing.T) {
	partitions, err := parsePartitions("p0:0:100,p1:100:200,p2:200:")
	require.NoError(t, err)
	assert.Equal(t, []catalog.Partition{
		{Name: "p0", LowerBound: "0", UpperBound: "100"},
		{Name: "p1", LowerBound: "100", UpperBound: "200"},
		{Name: "p2", LowerBound: "200", UpperBound: ""},
	}, partitions)
}

func TestParsePartitions_NameOnly(t *testing.T) {
	partitions, err := parsePartitions("sales_2023,sales_2024")
	require.NoError(t, err)
	require.Len(t, partitions, 2)
	assert.Equal(t, "sales_2023", partitions[0].Name)
	assert.Empty(t, partitions[0].LowerBound)
}

func TestParsePartitions_RejectsMissingName(t *testing.T) {
	_, err := parsePartitions(":0:100")
	require.Error(t, err)
}

func TestSplitQualified(t *testing.T) {
	schema, name := splitQualified("analytics.sales")
	assert.Equal(t, "analytics", schema)
	assert.Equal(t, "sales", name)

	schema, name = splitQualified("sales")
	assert.Equal(t, sqlstep.DefaultSchema, schema)
	assert.Equal(t, "sales", name)
}

func TestRenderResult_AlignedTable(t *testing.T) {
	color.NoColor = true
	defer func() { color.NoColor = false }()

	result := &sqlstep.Result{
		Columns: []string{"SUM", "MIN"},
		Rows:    []sqlstep.Row{{int64(820), nil}},
	}

	var sb strings.Builder
	renderResult(&sb, result)

	lines := strings.Split(sb.String(), "\n")
	require.GreaterOrEqual(t, len(lines), 4)
	assert.Equal(t, "SUM  MIN", strings.TrimRight(lines[0], " "))
	assert.Equal(t, "---  ----", lines[1])
	assert.Equal(t, "820  NULL", lines[2])
	assert.Equal(t, "(1 row)", lines[3])
}
