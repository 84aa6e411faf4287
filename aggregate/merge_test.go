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

package aggregate

import (
	"errors"
	"testing"

	"github.com/aaronlmathis/sqlstep/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mergeOne(t *testing.T, rows []core.Row, d Descriptor, factor float64) interface{} {
	t.Helper()
	out, err := Merge(core.NewListCursor(rows), []Descriptor{d}, factor)
	require.NoError(t, err)
	require.Len(t, out, 1)
	return out[0]
}

// TestMerge_SumRefinement walks a SUM through four partitions and checks
// each refinement step
func TestMerge_SumRefinement(t *testing.T) {
	partials := []core.Row{{int64(55)}, {int64(155)}, {int64(255)}, {int64(355)}}
	want := []int64{55, 210, 465, 820}

	cur := core.NewListCursor(nil)
	d := Descriptor{Kind: Sum, Column: "price"}
	for i, p := range partials {
		cur.Append(p)
		out, err := Merge(cur, []Descriptor{d}, 1)
		require.NoError(t, err)
		assert.Equal(t, want[i], out[0], "after partition %d", i)
	}
}

// TestMerge_CountApproximate scales a half-scanned COUNT by factor 2
func TestMerge_CountApproximate(t *testing.T) {
	rows := []core.Row{{int64(25)}, {int64(25)}}
	got := mergeOne(t, rows, Descriptor{Kind: Count, Column: "id"}, 2)
	assert.Equal(t, int64(100), got)
}

// TestMerge_CountRoundsScaledTotal verifies COUNT rounds rather than
// truncates when the factor is fractional
func TestMerge_CountRoundsScaledTotal(t *testing.T) {
	rows := []core.Row{{int64(10)}, {int64(10)}, {int64(10)}}
	// 30 * (4/3) = 40 exactly; 31 * (4/3) = 41.33.. rounds to 41
	got := mergeOne(t, rows, Descriptor{Kind: Count, Column: "id"}, 4.0/3.0)
	assert.Equal(t, int64(40), got)

	rows = []core.Row{{int64(11)}, {int64(10)}, {int64(10)}}
	got = mergeOne(t, rows, Descriptor{Kind: Count, Column: "id"}, 4.0/3.0)
	assert.Equal(t, int64(41), got)
}

// TestMerge_SumIntegerTruncatesScaledTotal verifies integer SUM truncates
// the scaled product
func TestMerge_SumIntegerTruncatesScaledTotal(t *testing.T) {
	rows := []core.Row{{int64(5)}, {int64(5)}, {int64(1)}}
	// 11 * (4/3) = 14.66.. truncates to 14
	got := mergeOne(t, rows, Descriptor{Kind: Sum, Column: "qty"}, 4.0/3.0)
	assert.Equal(t, int64(14), got)
}

// TestMerge_SumFloat accumulates the floating family
func TestMerge_SumFloat(t *testing.T) {
	rows := []core.Row{{1.5}, {2.5}, {3.0}}
	got := mergeOne(t, rows, Descriptor{Kind: Sum, Column: "price"}, 1)
	assert.InDelta(t, 7.0, got, 1e-9)

	got = mergeOne(t, rows, Descriptor{Kind: Sum, Column: "price"}, 2)
	assert.InDelta(t, 14.0, got, 1e-9)
}

// TestMerge_AvgFactorCancels checks that approximate AVG equals exact AVG:
// the factor scales numerator and denominator identically
func TestMerge_AvgFactorCancels(t *testing.T) {
	rows := []core.Row{
		{10.0, int64(4)},
		{30.0, int64(4)},
	}
	d := Descriptor{Kind: Avg, Column: "price"}

	exact := mergeOne(t, rows, d, 1)
	approx := mergeOne(t, rows, d, 3)

	assert.InDelta(t, 5.0, exact, 1e-9)
	assert.Equal(t, exact, approx)
}

// TestMerge_AvgIntegerRounds verifies the integer family rounds its final
// division
func TestMerge_AvgIntegerRounds(t *testing.T) {
	rows := []core.Row{
		{int64(10), int64(4)}, // 10/4 = 2.5, rounds to 3
	}
	got := mergeOne(t, rows, Descriptor{Kind: Avg, Column: "qty"}, 1)
	assert.Equal(t, int64(3), got)
}

// TestMerge_AvgConsumesTwoColumns verifies descriptor widths line up when
// AVG sits between other aggregates
func TestMerge_AvgConsumesTwoColumns(t *testing.T) {
	// physical layout: count | avg-sum | avg-count | max
	rows := []core.Row{
		{int64(3), int64(30), int64(3), int64(9)},
		{int64(2), int64(10), int64(2), int64(7)},
	}
	descriptors := []Descriptor{
		{Kind: Count, Column: "id"},
		{Kind: Avg, Column: "qty"},
		{Kind: Max, Column: "qty"},
	}

	out, err := Merge(core.NewListCursor(rows), descriptors, 1)
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, int64(5), out[0])
	assert.Equal(t, int64(8), out[1])
	assert.Equal(t, int64(9), out[2])
}

// TestMerge_MinString reproduces the string comparator behavior across
// partitions: {"bob","al"} then {"ann"} yields "al"
func TestMerge_MinString(t *testing.T) {
	cur := core.NewListCursor([]core.Row{{"bob"}, {"al"}})
	d := Descriptor{Kind: Min, Column: "name"}

	out, err := Merge(cur, []Descriptor{d}, 1)
	require.NoError(t, err)
	assert.Equal(t, "al", out[0])

	cur.Append(core.Row{"ann"})
	out, err = Merge(cur, []Descriptor{d}, 1)
	require.NoError(t, err)
	assert.Equal(t, "al", out[0])
}

// TestMerge_MaxString exercises the max direction over strings
func TestMerge_MaxString(t *testing.T) {
	rows := []core.Row{{"bob"}, {"al"}, {"ann"}}
	got := mergeOne(t, rows, Descriptor{Kind: Max, Column: "name"}, 1)
	assert.Equal(t, "bob", got)
}

// TestMerge_MinMaxNumeric covers both numeric families and confirms MIN/MAX
// ignore the approximate factor
func TestMerge_MinMaxNumeric(t *testing.T) {
	ints := []core.Row{{int64(7)}, {int64(-3)}, {int64(12)}}
	assert.Equal(t, int64(-3), mergeOne(t, ints, Descriptor{Kind: Min, Column: "v"}, 4))
	assert.Equal(t, int64(12), mergeOne(t, ints, Descriptor{Kind: Max, Column: "v"}, 4))

	floats := []core.Row{{2.5}, {-1.5}, {9.25}}
	assert.Equal(t, -1.5, mergeOne(t, floats, Descriptor{Kind: Min, Column: "v"}, 4))
	assert.Equal(t, 9.25, mergeOne(t, floats, Descriptor{Kind: Max, Column: "v"}, 4))
}

// TestMerge_NullPartials verifies NULL partials are skipped and all-NULL
// columns produce NULL (COUNT excepted)
func TestMerge_NullPartials(t *testing.T) {
	rows := []core.Row{{nil}, {int64(5)}, {nil}}
	assert.Equal(t, int64(5), mergeOne(t, rows, Descriptor{Kind: Sum, Column: "v"}, 1))

	allNull := []core.Row{{nil}, {nil}}
	assert.Nil(t, mergeOne(t, allNull, Descriptor{Kind: Sum, Column: "v"}, 1))
	assert.Nil(t, mergeOne(t, allNull, Descriptor{Kind: Min, Column: "v"}, 1))

	counts := []core.Row{{int64(0)}, {int64(0)}}
	assert.Equal(t, int64(0), mergeOne(t, counts, Descriptor{Kind: Count, Column: "v"}, 1))
}

// TestMerge_EmptyAccumulator checks merging before any partition arrives
func TestMerge_EmptyAccumulator(t *testing.T) {
	out, err := Merge(core.NewListCursor(nil), []Descriptor{
		{Kind: Count, Column: "a"},
		{Kind: Sum, Column: "b"},
	}, 1)
	require.NoError(t, err)
	assert.Equal(t, core.Row{int64(0), nil}, out)
}

// TestMerge_UnsupportedType surfaces UnsupportedTypeError with function and
// column context
func TestMerge_UnsupportedType(t *testing.T) {
	rows := []core.Row{{true}}
	_, err := Merge(core.NewListCursor(rows), []Descriptor{{Kind: Sum, Column: "flag"}}, 1)
	require.Error(t, err)

	var unsupported *UnsupportedTypeError
	require.True(t, errors.As(err, &unsupported))
	assert.Equal(t, "SUM", unsupported.Function)
	assert.Equal(t, "flag", unsupported.Column)
	assert.Contains(t, unsupported.Error(), "bool")

	_, err = Merge(core.NewListCursor([]core.Row{{"oops"}}), []Descriptor{{Kind: Count, Column: "id"}}, 1)
	assert.Error(t, err)
}

// TestHeader_AvgCountedOnce confirms one label per aggregate call
func TestHeader_AvgCountedOnce(t *testing.T) {
	h := Header([]Descriptor{
		{Kind: Count, Column: "id"},
		{Kind: Avg, Column: "price"},
		{Kind: Max, Column: "price"},
	})
	assert.Equal(t, []string{"COUNT", "AVG", "MAX"}, h)
}

// TestParseKind covers the accepted spellings and a rejection
func TestParseKind(t *testing.T) {
	cases := map[string]Kind{
		"count": Count,
		"SUM":   Sum,
		"Avg":   Avg,
		"mIn":   Min,
		"MAX":   Max,
	}
	for name, want := range cases {
		k, ok := ParseKind(name)
		require.True(t, ok, name)
		assert.Equal(t, want, k)
	}

	_, ok := ParseKind("median")
	assert.False(t, ok)
}
