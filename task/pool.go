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

package task

import (
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/aaronlmathis/sqlstep/core"
	"github.com/aaronlmathis/sqlstep/logger"
)

// DefaultWorkers is the fixed size of the parallel scan pool.
const DefaultWorkers = 4

// releaseTimeout bounds how long Close waits for in-flight scans.
const releaseTimeout = 5 * time.Second

// Pool runs partition scans on a fixed set of workers. Results come back
// through per-scan futures so the coordinator can merge them in partition
// order regardless of completion order.
type Pool struct {
	pool *ants.Pool
	log  *logger.Logger
}

// scanResult is one completed partition scan.
type scanResult struct {
	result *core.Result
	err    error
}

// Future receives the result of one submitted partition scan. The channel is
// buffered so the worker never blocks on an abandoned task.
type Future struct {
	partition int
	ch        chan scanResult
}

// NewPool creates a scan pool with the given number of workers.
func NewPool(size int, log *logger.Logger) (*Pool, error) {
	if size <= 0 {
		size = DefaultWorkers
	}
	if log == nil {
		log = logger.Default()
	}

	p, err := ants.NewPool(size, ants.WithPanicHandler(func(v interface{}) {
		log.Error("partition scan worker panic: %v", v)
	}))
	if err != nil {
		return nil, err
	}
	return &Pool{pool: p, log: log}, nil
}

// Submit schedules one partition scan and returns its future. The scan
// function runs on a pool worker; its result is delivered exactly once.
func (p *Pool) Submit(partition int, scan func() (*core.Result, error)) *Future {
	fut := &Future{partition: partition, ch: make(chan scanResult, 1)}
	err := p.pool.Submit(func() {
		result, err := scan()
		fut.ch <- scanResult{result: result, err: err}
	})
	if err != nil {
		fut.ch <- scanResult{err: err}
	}
	return fut
}

// Running returns the number of scans currently executing.
func (p *Pool) Running() int {
	return p.pool.Running()
}

// Close waits briefly for in-flight scans and releases the workers.
func (p *Pool) Close() error {
	return p.pool.ReleaseTimeout(releaseTimeout)
}
