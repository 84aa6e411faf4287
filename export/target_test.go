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
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatForTarget_Extensions(t *testing.T) {
	cases := []struct {
		target string
		want   Format
	}{
		{"totals.parquet", FormatParquet},
		{"TOTALS.PARQUET", FormatParquet},
		{"exports/totals.json", FormatJSON},
		{"totals.jsonl", FormatJSON},
		{"totals.ndjson", FormatJSON},
		{"totals.csv", FormatCSV},
		{"totals.txt", FormatCSV},
		{"totals", FormatCSV},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, FormatForTarget(tc.target), tc.target)
	}
}

func TestSplitS3Target(t *testing.T) {
	bucket, key, err := splitS3Target("s3://lake/exports/totals.parquet")
	require.NoError(t, err)
	assert.Equal(t, "lake", bucket)
	assert.Equal(t, "exports/totals.parquet", key)

	for _, target := range []string{"s3://", "s3://lake", "s3://lake/", "s3:///totals.csv"} {
		_, _, err := splitS3Target(target)
		assert.Error(t, err, target)
	}
}

func TestExport_DispatchesOnExtension(t *testing.T) {
	dir := t.TempDir()
	snap := aggregateSnapshot()

	csvPath := filepath.Join(dir, "totals.csv")
	require.NoError(t, Export(context.Background(), csvPath, snap))
	data, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	assert.Equal(t, "COUNT,AVG\n100,42.5\n", string(data))

	jsonPath := filepath.Join(dir, "totals.jsonl")
	require.NoError(t, Export(context.Background(), jsonPath, snap))
	data, err = os.ReadFile(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, "{\"AVG\":42.5,\"COUNT\":100}\n", string(data))

	parquetPath := filepath.Join(dir, "totals.parquet")
	require.NoError(t, Export(context.Background(), parquetPath, snap))
	info, err := os.Stat(parquetPath)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestExport_RejectsMalformedS3Target(t *testing.T) {
	err := Export(context.Background(), "s3://bucket-only", aggregateSnapshot())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "s3://bucket/key")
}
