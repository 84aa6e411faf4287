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

package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingStore wraps MemoryStore and counts Table lookups that reach it.
type countingStore struct {
	*MemoryStore
	tableCalls int
}

func (c *countingStore) Table(ctx context.Context, schema, name string) (*Table, error) {
	c.tableCalls++
	return c.MemoryStore.Table(ctx, schema, name)
}

// TestCachedStore_ServesRepeatLookupsFromCache hits the backend once.
func TestCachedStore_ServesRepeatLookupsFromCache(t *testing.T) {
	ctx := context.Background()
	inner := &countingStore{MemoryStore: NewMemoryStore()}
	require.NoError(t, inner.PutTable(ctx, salesTable()))

	cached, err := NewCachedStore(inner, 8)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		got, err := cached.Table(ctx, "public", "sales")
		require.NoError(t, err)
		assert.Equal(t, "region_id", got.Column)
	}
	assert.Equal(t, 1, inner.tableCalls)
}

// TestCachedStore_DoesNotCacheMisses retries the backend on each miss.
func TestCachedStore_DoesNotCacheMisses(t *testing.T) {
	ctx := context.Background()
	inner := &countingStore{MemoryStore: NewMemoryStore()}
	cached, err := NewCachedStore(inner, 8)
	require.NoError(t, err)

	_, err = cached.Table(ctx, "public", "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
	_, err = cached.Table(ctx, "public", "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, 2, inner.tableCalls)
}

// TestCachedStore_InvalidatesOnPut re-resolves after a catalog update.
func TestCachedStore_InvalidatesOnPut(t *testing.T) {
	ctx := context.Background()
	inner := &countingStore{MemoryStore: NewMemoryStore()}
	require.NoError(t, inner.PutTable(ctx, salesTable()))

	cached, err := NewCachedStore(inner, 8)
	require.NoError(t, err)

	got, err := cached.Table(ctx, "public", "sales")
	require.NoError(t, err)
	assert.Equal(t, "region_id", got.Column)

	updated := salesTable()
	updated.Column = "sale_date"
	require.NoError(t, cached.PutTable(ctx, updated))

	got, err = cached.Table(ctx, "public", "sales")
	require.NoError(t, err)
	assert.Equal(t, "sale_date", got.Column)
	assert.Equal(t, 2, inner.tableCalls)
}

// TestCachedStore_InvalidatesOnDelete drops the entry with the table.
func TestCachedStore_InvalidatesOnDelete(t *testing.T) {
	ctx := context.Background()
	inner := &countingStore{MemoryStore: NewMemoryStore()}
	require.NoError(t, inner.PutTable(ctx, salesTable()))

	cached, err := NewCachedStore(inner, 8)
	require.NoError(t, err)

	_, err = cached.Table(ctx, "public", "sales")
	require.NoError(t, err)

	require.NoError(t, cached.DeleteTable(ctx, "public", "sales"))

	_, err = cached.Table(ctx, "public", "sales")
	assert.True(t, errors.Is(err, ErrNotFound))
}

// TestCachedStore_LogsPassThrough forwards log operations unchanged.
func TestCachedStore_LogsPassThrough(t *testing.T) {
	ctx := context.Background()
	inner := &countingStore{MemoryStore: NewMemoryStore()}
	cached, err := NewCachedStore(inner, 8)
	require.NoError(t, err)

	require.NoError(t, cached.AppendQueryLog(ctx, &QueryLog{Statement: "SELECT 1"}))
	logs, err := cached.QueryLogs(ctx)
	require.NoError(t, err)
	assert.Len(t, logs, 1)

	require.NoError(t, cached.AppendTaskLog(ctx, &TaskLog{Status: "PLANNED"}))
	tasks, err := cached.TaskLogs(ctx, Where(ColStatus, OpEq, "PLANNED"))
	require.NoError(t, err)
	assert.Len(t, tasks, 1)
}
