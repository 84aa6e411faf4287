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
	"math"

	"github.com/aaronlmathis/sqlstep/core"
)

// Merge derives the current best-estimate aggregate values from the full
// accumulated row set. One full rewound pass is made per aggregate column,
// so cost grows with partitions-scanned times row width; the accumulated
// set holds one row per merged partition, which keeps that acceptable.
//
// factor is the approximate scaling factor: totalPartitions divided by
// partitions scanned so far, or 1 for exact execution. COUNT rounds its
// scaled total, integer SUM truncates, AVG scales numerator and denominator
// identically (so the factor cancels), MIN/MAX are never scaled.
//
// Returns one output value per descriptor. NULL partial values (an empty
// partition's SUM, for instance) contribute nothing; a column with no
// non-NULL values yields a NULL result, except COUNT which yields 0.
func Merge(rows core.Cursor, descriptors []Descriptor, factor float64) (core.Row, error) {
	out := make(core.Row, 0, len(descriptors))
	col := 0
	for _, d := range descriptors {
		var value interface{}
		var err error
		switch d.Kind {
		case Count:
			value, err = mergeCount(rows, col, d.Column, factor)
		case Sum:
			value, err = mergeSum(rows, col, d.Column, factor)
		case Avg:
			value, err = mergeAvg(rows, col, d.Column, factor)
		case Min:
			value, err = mergeExtreme(rows, col, d, false)
		case Max:
			value, err = mergeExtreme(rows, col, d, true)
		default:
			err = &UnsupportedTypeError{Function: d.Kind.String(), Column: d.Column}
		}
		if err != nil {
			return nil, err
		}
		out = append(out, value)
		col += d.Width()
	}
	return out, nil
}

func mergeCount(rows core.Cursor, col int, column string, factor float64) (interface{}, error) {
	var total int64

	rows.Rewind()
	for rows.Next() {
		v, err := rows.Value(col)
		if err != nil {
			return nil, err
		}
		if v == nil {
			continue
		}
		n, ok := toInt64(v)
		if !ok {
			return nil, &UnsupportedTypeError{Function: "COUNT", Column: column, Value: v}
		}
		total += n
	}

	if factor == 1 {
		return total, nil
	}
	return int64(math.Round(float64(total) * factor)), nil
}

func mergeSum(rows core.Cursor, col int, column string, factor float64) (interface{}, error) {
	var intTotal int64
	var floatTotal float64
	family := familyNone

	rows.Rewind()
	for rows.Next() {
		v, err := rows.Value(col)
		if err != nil {
			return nil, err
		}
		if v == nil {
			continue
		}
		if family == familyNone {
			family = familyOf(v)
		}
		switch family {
		case familyInt:
			n, ok := toInt64(v)
			if !ok {
				return nil, &UnsupportedTypeError{Function: "SUM", Column: column, Value: v}
			}
			intTotal += n
		case familyFloat:
			f, ok := toFloat64(v)
			if !ok {
				return nil, &UnsupportedTypeError{Function: "SUM", Column: column, Value: v}
			}
			floatTotal += f
		default:
			return nil, &UnsupportedTypeError{Function: "SUM", Column: column, Value: v}
		}
	}

	switch family {
	case familyInt:
		if factor == 1 {
			return intTotal, nil
		}
		return int64(float64(intTotal) * factor), nil
	case familyFloat:
		return floatTotal * factor, nil
	default:
		// every partition so far was empty; SUM over nothing is NULL
		return nil, nil
	}
}

// mergeAvg consumes two consecutive physical columns, the partial sums at
// col and the partial counts at col+1. Both totals are scaled by the same
// factor before dividing, so the factor cancels out of the result.
func mergeAvg(rows core.Cursor, col int, column string, factor float64) (interface{}, error) {
	var intSum int64
	var floatSum float64
	var count int64
	family := familyNone

	rows.Rewind()
	for rows.Next() {
		sv, err := rows.Value(col)
		if err != nil {
			return nil, err
		}
		cv, err := rows.Value(col + 1)
		if err != nil {
			return nil, err
		}
		if sv == nil || cv == nil {
			continue
		}
		if family == familyNone {
			family = familyOf(sv)
		}
		switch family {
		case familyInt:
			n, ok := toInt64(sv)
			if !ok {
				return nil, &UnsupportedTypeError{Function: "AVG", Column: column, Value: sv}
			}
			intSum += n
		case familyFloat:
			f, ok := toFloat64(sv)
			if !ok {
				return nil, &UnsupportedTypeError{Function: "AVG", Column: column, Value: sv}
			}
			floatSum += f
		default:
			return nil, &UnsupportedTypeError{Function: "AVG", Column: column, Value: sv}
		}
		n, ok := toInt64(cv)
		if !ok {
			return nil, &UnsupportedTypeError{Function: "AVG", Column: column, Value: cv}
		}
		count += n
	}

	if family == familyNone || count == 0 {
		return nil, nil
	}

	scaledCount := float64(count) * factor
	switch family {
	case familyInt:
		scaledSum := float64(intSum) * factor
		return int64(math.Round(scaledSum / scaledCount)), nil
	default:
		scaledSum := floatSum * factor
		return scaledSum / scaledCount, nil
	}
}

func mergeExtreme(rows core.Cursor, col int, d Descriptor, max bool) (interface{}, error) {
	var intBest int64
	var floatBest float64
	var stringBest string
	family := familyNone
	first := true

	rows.Rewind()
	for rows.Next() {
		v, err := rows.Value(col)
		if err != nil {
			return nil, err
		}
		if v == nil {
			continue
		}
		if family == familyNone {
			family = familyOf(v)
		}
		switch family {
		case familyInt:
			n, ok := toInt64(v)
			if !ok {
				return nil, &UnsupportedTypeError{Function: d.Kind.String(), Column: d.Column, Value: v}
			}
			if first || (max && n > intBest) || (!max && n < intBest) {
				intBest = n
			}
		case familyFloat:
			f, ok := toFloat64(v)
			if !ok {
				return nil, &UnsupportedTypeError{Function: d.Kind.String(), Column: d.Column, Value: v}
			}
			if first || (max && f > floatBest) || (!max && f < floatBest) {
				floatBest = f
			}
		case familyString:
			s, ok := v.(string)
			if !ok {
				return nil, &UnsupportedTypeError{Function: d.Kind.String(), Column: d.Column, Value: v}
			}
			if first {
				stringBest = s
			} else if max && CompareStrings(stringBest, s) < 0 {
				stringBest = s
			} else if !max && CompareStrings(stringBest, s) > 0 {
				stringBest = s
			}
		default:
			return nil, &UnsupportedTypeError{Function: d.Kind.String(), Column: d.Column, Value: v}
		}
		first = false
	}

	switch family {
	case familyInt:
		return intBest, nil
	case familyFloat:
		return floatBest, nil
	case familyString:
		return stringBest, nil
	default:
		return nil, nil
	}
}
