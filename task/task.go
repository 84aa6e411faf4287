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

// Package task drives incremental aggregate execution. A coordinator holds
// at most one active task: an ordered partition scan plan, a cursor over it,
// and the accumulated partial rows scanned so far. Each advance scans one
// more partition (or collects one finished parallel scan), re-merges the
// accumulated partials, and returns the refined answer.
package task

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/aaronlmathis/sqlstep/aggregate"
	"github.com/aaronlmathis/sqlstep/core"
	"github.com/aaronlmathis/sqlstep/logger"
	"github.com/aaronlmathis/sqlstep/plan"
)

// ErrNoActiveQuery is returned when rows are pulled before any incremental
// query has been planned.
var ErrNoActiveQuery = errors.New("no active incremental query")

// State is the lifecycle state of the coordinator's current task.
type State int

const (
	StateIdle      State = iota // no active task
	StatePlanned                // planned, no partition scanned yet
	StateAdvancing              // at least one partition merged
	StateExhausted              // every partition merged
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StatePlanned:
		return "PLANNED"
	case StateAdvancing:
		return "ADVANCING"
	case StateExhausted:
		return "EXHAUSTED"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ScanError reports a failed partition scan. The cursor does not move past a
// failed partition, so the same advance can be retried.
type ScanError struct {
	Partition int
	Err       error
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("scanning partition %d: %v", e.Partition, e.Err)
}

func (e *ScanError) Unwrap() error {
	return e.Err
}

// Coordinator executes one incremental task at a time against an execution
// channel. Safe for concurrent use, though the client protocol is a single
// stream of pulls.
type Coordinator struct {
	mu      sync.Mutex
	channel core.Channel
	log     *logger.Logger
	pool    *Pool
	ownPool bool
	workers int

	state       State
	plan        *plan.Plan
	approximate bool
	parallel    bool
	cursor      int
	accumulated *core.ListCursor
	pending     []*Future
}

// Option represents a configuration function for the Coordinator
type Option func(*Coordinator)

// WithLogger sets the logger used for worker and abandonment warnings.
func WithLogger(log *logger.Logger) Option {
	return func(c *Coordinator) {
		c.log = log
	}
}

// WithPool supplies a shared scan pool. The coordinator will not close it.
func WithPool(pool *Pool) Option {
	return func(c *Coordinator) {
		c.pool = pool
	}
}

// WithWorkers sets the size of the coordinator's own scan pool.
func WithWorkers(workers int) Option {
	return func(c *Coordinator) {
		c.workers = workers
	}
}

// NewCoordinator creates an idle coordinator over the given channel.
func NewCoordinator(channel core.Channel, options ...Option) (*Coordinator, error) {
	c := &Coordinator{
		channel: channel,
		workers: DefaultWorkers,
		state:   StateIdle,
	}
	for _, option := range options {
		option(c)
	}

	if c.channel == nil {
		return nil, fmt.Errorf("task: execution channel is required")
	}
	if c.log == nil {
		c.log = logger.Default()
	}
	if c.pool == nil {
		pool, err := NewPool(c.workers, c.log)
		if err != nil {
			return nil, err
		}
		c.pool = pool
		c.ownPool = true
	}
	return c, nil
}

// Begin replaces any active task with a freshly planned one, scans the
// first partition synchronously, and returns the first refined answer. In
// parallel mode the remaining partitions are dispatched to the scan pool
// once the first scan succeeds; advances then collect them in partition
// order. If the first scan fails the task stays planned and the next
// advance retries it.
func (c *Coordinator) Begin(ctx context.Context, p *plan.Plan, approximate, parallel bool) (*core.Result, error) {
	if p == nil || p.TotalPartitions() == 0 {
		return nil, fmt.Errorf("task: plan has no partitions")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.abandonLocked()
	c.plan = p
	c.approximate = approximate
	c.parallel = parallel
	c.cursor = 0
	c.accumulated = core.NewListCursor(nil)
	c.state = StatePlanned

	return c.advanceLocked(ctx)
}

func (c *Coordinator) submitLocked(ctx context.Context, partition int) *Future {
	statement := c.plan.Statements[partition]
	channel := c.channel
	return c.pool.Submit(partition, func() (*core.Result, error) {
		return channel.Execute(ctx, statement)
	})
}

// Advance merges one more partition into the running answer and returns it.
// An exhausted task keeps answering with the same header and zero rows. A
// scan failure leaves the cursor and accumulated partials untouched, so the
// next advance retries the same partition.
func (c *Coordinator) Advance(ctx context.Context) (*core.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateIdle:
		return nil, ErrNoActiveQuery
	case StateExhausted:
		return &core.Result{Columns: c.plan.Header}, nil
	}
	return c.advanceLocked(ctx)
}

// advanceLocked runs one step: scan or collect the partition at the cursor,
// append its partials, and re-merge. The first partition is always scanned
// synchronously; in parallel mode its success dispatches every remaining
// partition to the pool.
func (c *Coordinator) advanceLocked(ctx context.Context) (*core.Result, error) {
	var rows []core.Row
	if c.parallel && c.cursor > 0 {
		fut := c.pending[0]
		var res scanResult
		select {
		case res = <-fut.ch:
		case <-ctx.Done():
			return nil, &ScanError{Partition: fut.partition, Err: ctx.Err()}
		}
		if res.err != nil {
			// resubmit so the next advance retries this partition
			c.pending[0] = c.submitLocked(ctx, fut.partition)
			return nil, &ScanError{Partition: fut.partition, Err: res.err}
		}
		c.pending = c.pending[1:]
		rows = res.result.Rows
	} else {
		result, err := c.channel.Execute(ctx, c.plan.Statements[c.cursor])
		if err != nil {
			return nil, &ScanError{Partition: c.cursor, Err: err}
		}
		rows = result.Rows
		if c.parallel {
			for i := 1; i < c.plan.TotalPartitions(); i++ {
				c.pending = append(c.pending, c.submitLocked(ctx, i))
			}
		}
	}

	c.accumulated.Append(rows...)
	c.cursor++
	if c.cursor >= c.plan.TotalPartitions() {
		c.state = StateExhausted
	} else {
		c.state = StateAdvancing
	}

	factor := c.plan.Factor(c.cursor, c.approximate)
	merged, err := aggregate.Merge(c.accumulated, c.plan.Descriptors, factor)
	if err != nil {
		return nil, err
	}
	return &core.Result{
		Columns: c.plan.Header,
		Rows:    []core.Row{merged},
	}, nil
}

// State returns the current task state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Cursor returns how many partitions have been merged so far.
func (c *Coordinator) Cursor() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cursor
}

// Reset abandons the active task, if any.
func (c *Coordinator) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.abandonLocked()
}

// Close abandons the active task and releases the coordinator's own pool.
// A shared pool supplied via WithPool is left running.
func (c *Coordinator) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.abandonLocked()
	if c.ownPool {
		return c.pool.Close()
	}
	return nil
}

// abandonLocked drops task state. Submitted scans cannot be cancelled; they
// finish on their workers and their buffered futures are garbage collected.
func (c *Coordinator) abandonLocked() {
	if len(c.pending) > 0 {
		c.log.Warn("abandoning incremental task with %d unconsumed partition scans", len(c.pending))
		c.pending = nil
	}
	c.state = StateIdle
	c.plan = nil
	c.cursor = 0
	c.accumulated = nil
}
