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

package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// JSONError wraps JSON-specific export errors with context.
type JSONError struct {
	Op  string
	Err error
}

func (e *JSONError) Error() string {
	return fmt.Sprintf("json export %s: %v", e.Op, e.Err)
}

func (e *JSONError) Unwrap() error {
	return e.Err
}

// WriteJSON encodes a snapshot to w as line-delimited JSON, one object per
// row keyed by column name. NULL cells become JSON null.
func WriteJSON(w io.Writer, snap *Snapshot) error {
	if snap == nil {
		return &JSONError{Op: "write", Err: fmt.Errorf("nil snapshot")}
	}

	for _, row := range snap.Rows {
		object := make(map[string]interface{}, len(snap.Columns))
		for i, column := range snap.Columns {
			var value interface{}
			if i < len(row) {
				value = row[i]
			}
			if raw, ok := value.([]byte); ok {
				value = string(raw)
			}
			object[column] = value
		}

		data, err := json.Marshal(object)
		if err != nil {
			return &JSONError{Op: "marshal", Err: err}
		}
		if _, err := w.Write(data); err != nil {
			return &JSONError{Op: "write_row", Err: err}
		}
		if _, err := w.Write([]byte("\n")); err != nil {
			return &JSONError{Op: "write_row", Err: err}
		}
	}
	return nil
}

// WriteJSONFile encodes a snapshot to a file, creating parent directories.
func WriteJSONFile(filename string, snap *Snapshot) error {
	dir := filepath.Dir(filename)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return &JSONError{Op: "create_directory", Err: err}
		}
	}

	file, err := os.Create(filename)
	if err != nil {
		return &JSONError{Op: "open_file", Err: err}
	}

	if err := WriteJSON(file, snap); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return &JSONError{Op: "close_file", Err: err}
	}
	return nil
}
