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
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/apache/arrow/go/v12/arrow"
	"github.com/apache/arrow/go/v12/arrow/array"
	"github.com/apache/arrow/go/v12/arrow/memory"
	"github.com/apache/arrow/go/v12/parquet"
	"github.com/apache/arrow/go/v12/parquet/compress"
	"github.com/apache/arrow/go/v12/parquet/pqarrow"
)

// ParquetError wraps Parquet-specific export errors with context.
type ParquetError struct {
	Op  string // Operation that failed (e.g., "schema", "write_batch", "open_file")
	Err error  // Underlying error
}

func (e *ParquetError) Error() string {
	return fmt.Sprintf("parquet export %s: %v", e.Op, e.Err)
}

func (e *ParquetError) Unwrap() error {
	return e.Err
}

// ParquetOptions configures Parquet output.
type ParquetOptions struct {
	Compression compress.Compression
}

// ParquetOption is a functional option.
type ParquetOption func(*ParquetOptions)

// WithCompression sets the Parquet compression codec. Snappy by default.
func WithCompression(compression compress.Compression) ParquetOption {
	return func(opts *ParquetOptions) {
		opts.Compression = compression
	}
}

// WriteParquet encodes a snapshot to w as a single record batch.
//
// The Arrow schema comes from the snapshot's database type names when
// present, otherwise from the Go types of the first non-null value in each
// column. A column with no type name and no values defaults to string.
func WriteParquet(w io.Writer, snap *Snapshot, options ...ParquetOption) error {
	if snap == nil {
		return &ParquetError{Op: "write", Err: fmt.Errorf("nil snapshot")}
	}

	opts := ParquetOptions{Compression: compress.Codecs.Snappy}
	for _, option := range options {
		option(&opts)
	}

	schema, err := snapshotSchema(snap)
	if err != nil {
		return err
	}

	allocator := memory.NewGoAllocator()
	builders := make([]array.Builder, len(schema.Fields()))
	for i, field := range schema.Fields() {
		builders[i] = array.NewBuilder(allocator, field.Type)
		defer builders[i].Release()
	}

	for _, row := range snap.Rows {
		for i := range snap.Columns {
			var value interface{}
			if i < len(row) {
				value = row[i]
			}
			if value == nil {
				builders[i].AppendNull()
				continue
			}
			if err := appendValue(builders[i], value); err != nil {
				return &ParquetError{
					Op:  "append_value",
					Err: fmt.Errorf("column %s: %w", snap.Columns[i], err),
				}
			}
		}
	}

	arrays := make([]arrow.Array, len(builders))
	for i, builder := range builders {
		arrays[i] = builder.NewArray()
		defer arrays[i].Release()
	}
	record := array.NewRecord(schema, arrays, int64(len(snap.Rows)))
	defer record.Release()

	props := parquet.NewWriterProperties(parquet.WithCompression(opts.Compression))
	writer, err := pqarrow.NewFileWriter(schema, w, props, pqarrow.DefaultWriterProps())
	if err != nil {
		return &ParquetError{Op: "create_writer", Err: err}
	}

	if err := writer.Write(record); err != nil {
		writer.Close()
		return &ParquetError{Op: "write_batch", Err: err}
	}
	if err := writer.Close(); err != nil {
		return &ParquetError{Op: "close_writer", Err: err}
	}
	return nil
}

// WriteParquetFile encodes a snapshot to a file, creating parent directories.
func WriteParquetFile(filename string, snap *Snapshot, options ...ParquetOption) error {
	dir := filepath.Dir(filename)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return &ParquetError{Op: "create_directory", Err: err}
		}
	}

	file, err := os.Create(filename)
	if err != nil {
		return &ParquetError{Op: "open_file", Err: err}
	}

	if err := WriteParquet(file, snap, options...); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return &ParquetError{Op: "close_file", Err: err}
	}
	return nil
}

// snapshotSchema builds the Arrow schema for a snapshot.
func snapshotSchema(snap *Snapshot) (*arrow.Schema, error) {
	fields := make([]arrow.Field, len(snap.Columns))
	for i, name := range snap.Columns {
		dataType := typeForColumn(snap, i)
		fields[i] = arrow.Field{Name: name, Type: dataType, Nullable: true}
	}
	return arrow.NewSchema(fields, nil), nil
}

// typeForColumn resolves one column's Arrow type.
func typeForColumn(snap *Snapshot, column int) arrow.DataType {
	if column < len(snap.TypeNames) {
		if dataType, ok := arrowTypeForName(snap.TypeNames[column]); ok {
			return dataType
		}
	}
	for _, row := range snap.Rows {
		if column >= len(row) || row[column] == nil {
			continue
		}
		return inferArrowType(row[column])
	}
	return arrow.BinaryTypes.String
}

// arrowTypeForName maps a database type name to an Arrow type.
func arrowTypeForName(typeName string) (arrow.DataType, bool) {
	switch strings.ToUpper(typeName) {
	case "INT2", "INT4", "INT8", "SMALLINT", "INT", "INTEGER", "BIGINT":
		return arrow.PrimitiveTypes.Int64, true
	case "FLOAT4", "FLOAT8", "REAL", "DOUBLE", "DOUBLE PRECISION", "NUMERIC", "DECIMAL":
		return arrow.PrimitiveTypes.Float64, true
	case "BOOL", "BOOLEAN":
		return arrow.FixedWidthTypes.Boolean, true
	case "TIMESTAMP", "TIMESTAMPTZ", "DATE", "DATETIME":
		return arrow.FixedWidthTypes.Timestamp_us, true
	case "TEXT", "VARCHAR", "CHAR", "BPCHAR", "NAME":
		return arrow.BinaryTypes.String, true
	case "BYTEA", "BLOB":
		return arrow.BinaryTypes.Binary, true
	default:
		return nil, false
	}
}

// inferArrowType infers the Arrow data type from a Go value.
func inferArrowType(value interface{}) arrow.DataType {
	switch value.(type) {
	case bool:
		return arrow.FixedWidthTypes.Boolean
	case int, int32, int64:
		return arrow.PrimitiveTypes.Int64
	case float32, float64:
		return arrow.PrimitiveTypes.Float64
	case time.Time:
		return arrow.FixedWidthTypes.Timestamp_us
	case []byte:
		return arrow.BinaryTypes.Binary
	default:
		return arrow.BinaryTypes.String
	}
}

// appendValue appends one non-null value to the matching builder. Values
// that cannot be coerced to the column type become nulls.
func appendValue(builder array.Builder, value interface{}) error {
	switch b := builder.(type) {
	case *array.BooleanBuilder:
		if v, ok := value.(bool); ok {
			b.Append(v)
		} else {
			b.AppendNull()
		}
	case *array.Int64Builder:
		switch v := value.(type) {
		case int64:
			b.Append(v)
		case int:
			b.Append(int64(v))
		case int32:
			b.Append(int64(v))
		default:
			b.AppendNull()
		}
	case *array.Float64Builder:
		switch v := value.(type) {
		case float64:
			b.Append(v)
		case float32:
			b.Append(float64(v))
		case int64:
			b.Append(float64(v))
		case int:
			b.Append(float64(v))
		default:
			b.AppendNull()
		}
	case *array.StringBuilder:
		if v, ok := value.(string); ok {
			b.Append(v)
		} else {
			b.Append(fmt.Sprintf("%v", value))
		}
	case *array.TimestampBuilder:
		if v, ok := value.(time.Time); ok {
			b.Append(arrow.Timestamp(v.UnixMicro()))
		} else {
			b.AppendNull()
		}
	case *array.BinaryBuilder:
		if v, ok := value.([]byte); ok {
			b.Append(v)
		} else {
			b.AppendNull()
		}
	default:
		return fmt.Errorf("unsupported builder type %T", builder)
	}
	return nil
}
