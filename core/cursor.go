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

import "fmt"

// Cursor is a forward-only, rewindable view over a row list.
// The merger makes one full rewound pass per aggregate column, so a cursor
// must support being iterated to exhaustion repeatedly.
type Cursor interface {
	// Next advances to the next row and reports whether one is available.
	Next() bool
	// Rewind resets the cursor to before the first row.
	Rewind()
	// Value returns the value of column i on the current row.
	Value(i int) (interface{}, error)
}

// CursorNotPositionedError is returned when a column is accessed before the
// first Next call or after the cursor is exhausted.
type CursorNotPositionedError struct {
	Position int
}

func (e *CursorNotPositionedError) Error() string {
	return fmt.Sprintf("cursor not positioned on a row (position %d)", e.Position)
}

// ListCursor is an in-memory Cursor over an append-only row list. It starts
// positioned before the first row; Append may extend it between passes,
// which is how accumulated partition rows grow across incremental steps.
type ListCursor struct {
	rows []Row
	pos  int
}

// NewListCursor creates a cursor over rows, positioned before the first row.
func NewListCursor(rows []Row) *ListCursor {
	return &ListCursor{rows: rows, pos: -1}
}

// Next advances one row and reports whether a row is available.
func (c *ListCursor) Next() bool {
	if c.pos >= len(c.rows)-1 {
		c.pos = len(c.rows)
		return false
	}
	c.pos++
	return true
}

// Rewind resets the cursor to before the first row.
func (c *ListCursor) Rewind() {
	c.pos = -1
}

// Value returns the value of column i on the current row.
func (c *ListCursor) Value(i int) (interface{}, error) {
	if c.pos < 0 || c.pos >= len(c.rows) {
		return nil, &CursorNotPositionedError{Position: c.pos}
	}
	row := c.rows[c.pos]
	if i < 0 || i >= len(row) {
		return nil, fmt.Errorf("column index %d out of range for row of %d columns", i, len(row))
	}
	return row[i], nil
}

// Append adds rows to the end of the list without disturbing the current
// position.
func (c *ListCursor) Append(rows ...Row) {
	c.rows = append(c.rows, rows...)
}

// Len returns the number of rows currently behind the cursor.
func (c *ListCursor) Len() int {
	return len(c.rows)
}
