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
	"fmt"
	"strings"
)

// Package aggregate implements the partial-aggregate merge algebra for
// incremental queries.
//
// Each partition scan produces one row of partial aggregates. The merger
// recomputes the current best estimate by folding the entire accumulated
// row set, so values refine monotonically as partitions arrive.

// Kind identifies one of the supported aggregate functions.
type Kind int

const (
	Count Kind = iota
	Sum
	Avg
	Min
	Max
)

// String returns the function name as it appears in result headers.
func (k Kind) String() string {
	switch k {
	case Count:
		return "COUNT"
	case Sum:
		return "SUM"
	case Avg:
		return "AVG"
	case Min:
		return "MIN"
	case Max:
		return "MAX"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind maps a function name to its Kind, case-insensitively.
// The second return is false for functions the engine cannot merge.
func ParseKind(name string) (Kind, bool) {
	switch strings.ToUpper(name) {
	case "COUNT":
		return Count, true
	case "SUM":
		return Sum, true
	case "AVG":
		return Avg, true
	case "MIN":
		return Min, true
	case "MAX":
		return Max, true
	default:
		return 0, false
	}
}

// Descriptor names one aggregate call of the incremental projection.
type Descriptor struct {
	Kind   Kind
	Column string
}

// Width is the number of physical result columns the descriptor consumes
// on merge. AVG is planned as separate SUM and COUNT projections, so it
// consumes two consecutive columns.
func (d Descriptor) Width() int {
	if d.Kind == Avg {
		return 2
	}
	return 1
}

// Label is the output column label for the descriptor, one label per
// aggregate call regardless of physical width.
func (d Descriptor) Label() string {
	return d.Kind.String()
}

// Header builds the output column labels for a descriptor list.
func Header(descriptors []Descriptor) []string {
	out := make([]string, 0, len(descriptors))
	for _, d := range descriptors {
		out = append(out, d.Label())
	}
	return out
}

// UnsupportedTypeError is returned when an aggregate column carries a value
// the merge algebra cannot accumulate.
type UnsupportedTypeError struct {
	Function string
	Column   string
	Value    interface{}
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("aggregate %s(%s): unsupported value type %T", e.Function, e.Column, e.Value)
}
