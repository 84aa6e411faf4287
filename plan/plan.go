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

// Package plan turns an aggregate query over a partitioned table into an
// ordered list of per-partition scan statements. Each statement computes the
// partial aggregates for exactly one partition; AVG is rewritten to SUM and
// COUNT so partials stay mergeable.
package plan

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"

	"github.com/aaronlmathis/sqlstep/aggregate"
	"github.com/aaronlmathis/sqlstep/catalog"
)

// Dialect selects how a partition is addressed in generated SQL.
type Dialect string

const (
	// DialectRange scans the logical table with range predicates on the
	// partition column. The last partition is open-ended.
	DialectRange Dialect = "range"

	// DialectTables scans physical per-partition tables that live next to
	// the logical table in the same schema.
	DialectTables Dialect = "tables"

	// DialectNative uses the backend's PARTITION(...) selection syntax.
	DialectNative Dialect = "native"
)

// Call is one aggregate invocation as written in the query, before the
// function name has been resolved.
type Call struct {
	Function string // aggregate function name as written
	Column   string // argument column, "*" for COUNT(*)
}

// NotPartitionedError reports a table with no partition metadata. Incremental
// execution is impossible without partitions, so this is fatal for the query.
type NotPartitionedError struct {
	Schema string
	Table  string
}

func (e *NotPartitionedError) Error() string {
	return fmt.Sprintf("table %s.%s is not partitioned", e.Schema, e.Table)
}

// UnsupportedAggregateError reports an aggregate function the incremental
// engine cannot merge.
type UnsupportedAggregateError struct {
	Function string
}

func (e *UnsupportedAggregateError) Error() string {
	return fmt.Sprintf("aggregate function %s is not supported for incremental execution", e.Function)
}

// Plan is an ordered list of per-partition scan statements plus the header
// and descriptors needed to merge their results.
type Plan struct {
	Table       *catalog.Table
	Dialect     Dialect
	Statements  []string               // one scan statement per partition, in partition order
	Descriptors []aggregate.Descriptor // logical aggregates, AVG once
	Header      []string               // client-facing column labels
}

// TotalPartitions returns the number of partitions the plan covers.
func (p *Plan) TotalPartitions() int {
	return len(p.Statements)
}

// Factor returns the scale factor for an approximate answer after scanned
// partitions: totalPartitions/partitionsScanned, or 1 in exact mode.
func (p *Plan) Factor(scanned int, approximate bool) float64 {
	if !approximate || scanned <= 0 {
		return 1
	}
	return float64(p.TotalPartitions()) / float64(scanned)
}

// Generate builds the per-partition scan plan for the given calls against a
// cataloged table.
func Generate(table *catalog.Table, calls []Call, dialect Dialect) (*Plan, error) {
	if table == nil {
		return nil, fmt.Errorf("plan: table is required")
	}
	if len(table.Partitions) == 0 {
		return nil, &NotPartitionedError{Schema: table.Schema, Table: table.Name}
	}
	if len(calls) == 0 {
		return nil, fmt.Errorf("plan: at least one aggregate is required")
	}

	descriptors := make([]aggregate.Descriptor, 0, len(calls))
	for _, call := range calls {
		kind, ok := aggregate.ParseKind(call.Function)
		if !ok {
			return nil, &UnsupportedAggregateError{Function: strings.ToUpper(call.Function)}
		}
		if kind != aggregate.Count && (call.Column == "" || call.Column == "*") {
			return nil, fmt.Errorf("plan: %s requires a column argument", kind)
		}
		descriptors = append(descriptors, aggregate.Descriptor{Kind: kind, Column: call.Column})
	}

	selectList, err := renderSelectList(descriptors, dialect)
	if err != nil {
		return nil, err
	}

	statements := make([]string, 0, len(table.Partitions))
	for _, part := range table.Partitions {
		stmt, err := renderStatement(table, part, selectList, dialect)
		if err != nil {
			return nil, err
		}
		statements = append(statements, stmt)
	}

	return &Plan{
		Table:       table,
		Dialect:     dialect,
		Statements:  statements,
		Descriptors: descriptors,
		Header:      aggregate.Header(descriptors),
	}, nil
}

// renderSelectList renders the physical select list. AVG(c) becomes
// SUM(c), COUNT(c).
func renderSelectList(descriptors []aggregate.Descriptor, dialect Dialect) (string, error) {
	var parts []string
	for _, d := range descriptors {
		col := renderColumn(d.Column, dialect)
		switch d.Kind {
		case aggregate.Avg:
			parts = append(parts, "SUM("+col+")", "COUNT("+col+")")
		case aggregate.Count, aggregate.Sum, aggregate.Min, aggregate.Max:
			parts = append(parts, d.Kind.String()+"("+col+")")
		default:
			return "", &UnsupportedAggregateError{Function: d.Kind.String()}
		}
	}
	return strings.Join(parts, ", "), nil
}

func renderStatement(table *catalog.Table, part catalog.Partition, selectList string, dialect Dialect) (string, error) {
	switch dialect {
	case DialectRange:
		return renderRangeScan(table, part, selectList), nil
	case DialectTables:
		return fmt.Sprintf("SELECT %s FROM %s",
			selectList, qualify(table.Schema, part.Name, dialect)), nil
	case DialectNative:
		return fmt.Sprintf("SELECT %s FROM %s PARTITION(%s)",
			selectList, qualify(table.Schema, table.Name, dialect), part.Name), nil
	default:
		return "", fmt.Errorf("plan: unknown dialect %q", dialect)
	}
}

func renderRangeScan(table *catalog.Table, part catalog.Partition, selectList string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s", selectList, qualify(table.Schema, table.Name, DialectRange))

	col := renderColumn(table.Column, DialectRange)
	var conds []string
	if part.LowerBound != "" {
		conds = append(conds, col+" >= "+renderBound(part.LowerBound))
	}
	if part.UpperBound != "" {
		conds = append(conds, col+" < "+renderBound(part.UpperBound))
	}
	if len(conds) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(conds, " AND "))
	}
	return b.String()
}

// qualify renders a schema-qualified name. The native dialect targets
// backends with their own quoting rules, so names pass through bare there.
func qualify(schema, name string, dialect Dialect) string {
	if dialect == DialectNative {
		if schema == "" {
			return name
		}
		return schema + "." + name
	}
	if schema == "" {
		return pq.QuoteIdentifier(name)
	}
	return pq.QuoteIdentifier(schema) + "." + pq.QuoteIdentifier(name)
}

func renderColumn(column string, dialect Dialect) string {
	if column == "" || column == "*" {
		return "*"
	}
	if dialect == DialectNative {
		return column
	}
	return pq.QuoteIdentifier(column)
}

// renderBound renders a partition bound literal. Numeric bounds pass through
// bare; everything else is quoted as a string literal.
func renderBound(bound string) string {
	if _, err := strconv.ParseFloat(bound, 64); err == nil {
		return bound
	}
	return pq.QuoteLiteral(bound)
}
