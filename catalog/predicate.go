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
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Op is a predicate comparison operator.
type Op string

const (
	OpEq   Op = "="
	OpNe   Op = "<>"
	OpLt   Op = "<"
	OpLe   Op = "<="
	OpGt   Op = ">"
	OpGe   Op = ">="
	OpLike Op = "LIKE"
)

// Predicate is one column/operator/value filter tuple. Predicates replace
// string-concatenated filter expressions: stores render them to
// parameterized SQL or native filters, never by splicing values into query
// text.
type Predicate struct {
	Column string
	Op     Op
	Value  interface{}
}

// Where is shorthand for constructing a predicate.
func Where(column string, op Op, value interface{}) Predicate {
	return Predicate{Column: column, Op: op, Value: value}
}

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Validate checks that the predicate can be rendered safely.
func (p Predicate) Validate() error {
	if !identPattern.MatchString(p.Column) {
		return fmt.Errorf("invalid predicate column %q", p.Column)
	}
	switch p.Op {
	case OpEq, OpNe, OpLt, OpLe, OpGt, OpGe, OpLike:
		return nil
	default:
		return fmt.Errorf("invalid predicate operator %q", string(p.Op))
	}
}

// WhereClause renders predicates as a parameterized SQL conjunction with
// its argument list. An empty predicate list renders to an empty clause.
func WhereClause(preds []Predicate) (string, []interface{}, error) {
	if len(preds) == 0 {
		return "", nil, nil
	}
	var b strings.Builder
	args := make([]interface{}, 0, len(preds))
	b.WriteString(" WHERE ")
	for i, p := range preds {
		if err := p.Validate(); err != nil {
			return "", nil, err
		}
		if i > 0 {
			b.WriteString(" AND ")
		}
		b.WriteString(p.Column)
		b.WriteString(" ")
		b.WriteString(string(p.Op))
		b.WriteString(" ?")
		args = append(args, normalizeArg(p.Value))
	}
	return b.String(), args, nil
}

// normalizeArg converts values to the representation the SQL stores keep on
// disk. Timestamps are stored as RFC3339 text.
func normalizeArg(v interface{}) interface{} {
	if t, ok := v.(time.Time); ok {
		return t.UTC().Format(time.RFC3339Nano)
	}
	return v
}

// Matches evaluates the predicate against a field map, the in-process
// counterpart of the SQL rendering used by the memory store.
func (p Predicate) Matches(fields map[string]interface{}) bool {
	v, ok := fields[p.Column]
	if !ok {
		return false
	}
	switch p.Op {
	case OpEq:
		return compareOperands(v, p.Value) == 0
	case OpNe:
		return compareOperands(v, p.Value) != 0
	case OpLt:
		return compareOperands(v, p.Value) < 0
	case OpLe:
		return compareOperands(v, p.Value) <= 0
	case OpGt:
		return compareOperands(v, p.Value) > 0
	case OpGe:
		return compareOperands(v, p.Value) >= 0
	case OpLike:
		s, sok := v.(string)
		pat, pok := p.Value.(string)
		if !sok || !pok {
			return false
		}
		return likeMatch(s, pat)
	default:
		return false
	}
}

func compareOperands(a, b interface{}) int {
	if at, ok := a.(time.Time); ok {
		if bt, ok := timeOperand(b); ok {
			switch {
			case at.Before(bt):
				return -1
			case at.After(bt):
				return 1
			default:
				return 0
			}
		}
	}
	if af, ok := numericOperand(a); ok {
		if bf, ok := numericOperand(b); ok {
			switch {
			case af < bf:
				return -1
			case af > bf:
				return 1
			default:
				return 0
			}
		}
	}
	return strings.Compare(fmt.Sprintf("%v", a), fmt.Sprintf("%v", b))
}

func timeOperand(v interface{}) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		if err != nil {
			return time.Time{}, false
		}
		return parsed, true
	default:
		return time.Time{}, false
	}
}

func numericOperand(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// likeMatch implements SQL LIKE semantics: % matches any run, _ matches a
// single character.
func likeMatch(s, pattern string) bool {
	re, err := regexp.Compile(likeRegexp(pattern))
	if err != nil {
		return false
	}
	return re.MatchString(s)
}

// likeRegexp converts a SQL LIKE pattern to an anchored regular expression.
func likeRegexp(pattern string) string {
	escaped := regexp.QuoteMeta(pattern)
	escaped = strings.ReplaceAll(escaped, "%", ".*")
	escaped = strings.ReplaceAll(escaped, "_", ".")
	return "^" + escaped + "$"
}
