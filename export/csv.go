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
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// CSVError wraps CSV-specific export errors with context.
type CSVError struct {
	Op  string
	Err error
}

func (e *CSVError) Error() string {
	return fmt.Sprintf("csv export %s: %v", e.Op, e.Err)
}

func (e *CSVError) Unwrap() error {
	return e.Err
}

// CSVOptions configures CSV output.
type CSVOptions struct {
	Comma       rune
	UseCRLF     bool
	WriteHeader bool
}

// CSVOption is a functional option.
type CSVOption func(*CSVOptions)

func WithComma(delim rune) CSVOption {
	return func(opts *CSVOptions) {
		opts.Comma = delim
	}
}

func WithCRLF(useCRLF bool) CSVOption {
	return func(opts *CSVOptions) {
		opts.UseCRLF = useCRLF
	}
}

func WithWriteHeader(write bool) CSVOption {
	return func(opts *CSVOptions) {
		opts.WriteHeader = write
	}
}

// WriteCSV encodes a snapshot to w.
func WriteCSV(w io.Writer, snap *Snapshot, options ...CSVOption) error {
	if snap == nil {
		return &CSVError{Op: "write", Err: fmt.Errorf("nil snapshot")}
	}

	opts := CSVOptions{Comma: ',', WriteHeader: true}
	for _, option := range options {
		option(&opts)
	}

	cw := csv.NewWriter(w)
	cw.Comma = opts.Comma
	cw.UseCRLF = opts.UseCRLF

	if opts.WriteHeader {
		if err := cw.Write(snap.Columns); err != nil {
			return &CSVError{Op: "write_header", Err: err}
		}
	}

	row := make([]string, len(snap.Columns))
	for _, record := range snap.Rows {
		for i := range snap.Columns {
			if i < len(record) {
				row[i] = formatCell(record[i])
			} else {
				row[i] = ""
			}
		}
		if err := cw.Write(row); err != nil {
			return &CSVError{Op: "write_row", Err: err}
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return &CSVError{Op: "flush", Err: err}
	}
	return nil
}

// WriteCSVFile encodes a snapshot to a file, creating parent directories.
func WriteCSVFile(filename string, snap *Snapshot, options ...CSVOption) error {
	dir := filepath.Dir(filename)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return &CSVError{Op: "create_directory", Err: err}
		}
	}

	file, err := os.Create(filename)
	if err != nil {
		return &CSVError{Op: "open_file", Err: err}
	}

	if err := WriteCSV(file, snap, options...); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return &CSVError{Op: "close_file", Err: err}
	}
	return nil
}

// formatCell renders one cell for CSV output. NULL becomes the empty string.
func formatCell(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case []byte:
		return string(v)
	case time.Time:
		return v.Format(time.RFC3339Nano)
	default:
		return fmt.Sprintf("%v", v)
	}
}
