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
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Error provides structured error information for S3 export operations.
type S3Error struct {
	Op  string // Operation that failed (e.g., "encode", "put_object")
	Err error  // Underlying error
}

func (e *S3Error) Error() string {
	return fmt.Sprintf("s3 export %s: %v", e.Op, e.Err)
}

func (e *S3Error) Unwrap() error {
	return e.Err
}

// S3Stats holds statistics about the uploader's activity.
type S3Stats struct {
	Uploads        int64
	BytesUploaded  int64
	UploadDuration time.Duration
	LastUploadTime time.Time
}

// S3Options configures the S3 uploader.
type S3Options struct {
	Bucket         string          // S3 bucket name
	Region         string          // AWS region
	Profile        string          // AWS profile to use
	Credentials    aws.Credentials // Explicit credentials
	EndpointURL    string          // Custom S3 endpoint (for S3-compatible services)
	ForcePathStyle bool            // Use path-style addressing
}

// S3Option represents a configuration function for the uploader.
type S3Option func(*S3Options)

func WithS3Bucket(bucket string) S3Option {
	return func(opts *S3Options) {
		opts.Bucket = bucket
	}
}

func WithS3Region(region string) S3Option {
	return func(opts *S3Options) {
		opts.Region = region
	}
}

func WithS3Profile(profile string) S3Option {
	return func(opts *S3Options) {
		opts.Profile = profile
	}
}

func WithS3Credentials(creds aws.Credentials) S3Option {
	return func(opts *S3Options) {
		opts.Credentials = creds
	}
}

func WithS3Endpoint(endpoint string) S3Option {
	return func(opts *S3Options) {
		opts.EndpointURL = endpoint
	}
}

func WithS3PathStyle(pathStyle bool) S3Option {
	return func(opts *S3Options) {
		opts.ForcePathStyle = pathStyle
	}
}

// S3Uploader writes encoded snapshots to an S3 bucket.
type S3Uploader struct {
	client *s3.Client
	opts   S3Options
	stats  S3Stats
	mu     sync.Mutex
}

// NewS3Uploader creates an uploader for the configured bucket.
func NewS3Uploader(ctx context.Context, options ...S3Option) (*S3Uploader, error) {
	opts := S3Options{}
	for _, option := range options {
		option(&opts)
	}

	if opts.Bucket == "" {
		return nil, &S3Error{Op: "validate_options", Err: fmt.Errorf("bucket is required")}
	}

	cfg, err := createAWSConfig(ctx, opts)
	if err != nil {
		return nil, &S3Error{Op: "create_aws_config", Err: err}
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.EndpointURL != "" {
			o.BaseEndpoint = aws.String(opts.EndpointURL)
		}
		o.UsePathStyle = opts.ForcePathStyle
	})

	return &S3Uploader{client: client, opts: opts}, nil
}

// Upload encodes a snapshot in the given format and puts it under key.
func (u *S3Uploader) Upload(ctx context.Context, key string, snap *Snapshot, format Format) error {
	payload, contentType, err := encodeSnapshot(snap, format)
	if err != nil {
		return &S3Error{Op: "encode", Err: err}
	}

	start := time.Now()
	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.opts.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(payload),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return &S3Error{Op: "put_object", Err: err}
	}

	u.mu.Lock()
	u.stats.Uploads++
	u.stats.BytesUploaded += int64(len(payload))
	u.stats.UploadDuration += time.Since(start)
	u.stats.LastUploadTime = time.Now()
	u.mu.Unlock()

	return nil
}

// Stats returns upload statistics.
func (u *S3Uploader) Stats() S3Stats {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.stats
}

// encodeSnapshot renders a snapshot to bytes in the given format.
func encodeSnapshot(snap *Snapshot, format Format) ([]byte, string, error) {
	var buf bytes.Buffer
	switch format {
	case FormatCSV:
		if err := WriteCSV(&buf, snap); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), "text/csv", nil
	case FormatJSON:
		if err := WriteJSON(&buf, snap); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), "application/x-ndjson", nil
	case FormatParquet:
		if err := WriteParquet(&buf, snap); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), "application/octet-stream", nil
	default:
		return nil, "", fmt.Errorf("unsupported format %q", format)
	}
}

// createAWSConfig creates AWS configuration from options.
func createAWSConfig(ctx context.Context, opts S3Options) (aws.Config, error) {
	configOpts := []func(*config.LoadOptions) error{}

	if opts.Region != "" {
		configOpts = append(configOpts, config.WithRegion(opts.Region))
	}
	if opts.Profile != "" {
		configOpts = append(configOpts, config.WithSharedConfigProfile(opts.Profile))
	}

	cfg, err := config.LoadDefaultConfig(ctx, configOpts...)
	if err != nil {
		return aws.Config{}, err
	}

	if opts.Credentials.AccessKeyID != "" {
		cfg.Credentials = aws.NewCredentialsCache(
			credentials.NewStaticCredentialsProvider(
				opts.Credentials.AccessKeyID,
				opts.Credentials.SecretAccessKey,
				opts.Credentials.SessionToken,
			),
		)
	}

	return cfg, nil
}
