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

import (
	"context"
)

// Package core defines the collaborator interfaces for SQLStep.
//
// This file contains the execution channel seam: the single point through
// which the engine runs SQL against a backing database, one channel use per
// partition scan.

// Channel executes one SQL statement against the backing database and
// returns its rows with column metadata.
// A channel is used by the coordinator and by parallel scan workers, each
// of which performs independent calls.
type Channel interface {
	// Execute runs the statement and returns the full materialized result.
	Execute(ctx context.Context, query string) (*Result, error)
}

// ChannelFunc is a function adapter for the Channel interface.
// Allows ordinary functions to be used as execution channels.
type ChannelFunc func(ctx context.Context, query string) (*Result, error)

// Execute implements the Channel interface for ChannelFunc.
func (f ChannelFunc) Execute(ctx context.Context, query string) (*Result, error) {
	return f(ctx, query)
}
