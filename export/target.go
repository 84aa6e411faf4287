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
	"fmt"
	"path/filepath"
	"strings"
)

// Export writes a snapshot to the destination named by target. Targets of
// the form s3://bucket/key upload to S3 using ambient AWS configuration;
// anything else is a filesystem path. The format comes from the target's
// extension via FormatForTarget.
func Export(ctx context.Context, target string, snap *Snapshot) error {
	if strings.HasPrefix(target, "s3://") {
		bucket, key, err := splitS3Target(target)
		if err != nil {
			return err
		}
		uploader, err := NewS3Uploader(ctx, WithS3Bucket(bucket))
		if err != nil {
			return err
		}
		return uploader.Upload(ctx, key, snap, FormatForTarget(key))
	}

	switch FormatForTarget(target) {
	case FormatParquet:
		return WriteParquetFile(target, snap)
	case FormatJSON:
		return WriteJSONFile(target, snap)
	default:
		return WriteCSVFile(target, snap)
	}
}

// FormatForTarget picks the export format from a target's extension.
// Unrecognized extensions fall back to CSV.
func FormatForTarget(target string) Format {
	switch strings.ToLower(filepath.Ext(target)) {
	case ".parquet":
		return FormatParquet
	case ".json", ".jsonl", ".ndjson":
		return FormatJSON
	default:
		return FormatCSV
	}
}

// splitS3Target splits s3://bucket/key into its parts.
func splitS3Target(target string) (string, string, error) {
	parts := strings.SplitN(strings.TrimPrefix(target, "s3://"), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("export: s3 target must look like s3://bucket/key, got %q", target)
	}
	return parts[0], parts[1], nil
}
