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
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := OpenSQLite(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close(context.Background()) })
	return store
}

// TestSQLiteStore_TableRoundTrip persists an entry and reads it back with
// partitions in declaration order.
func TestSQLiteStore_TableRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := openTestSQLite(t)

	require.NoError(t, store.PutTable(ctx, salesTable()))

	got, err := store.Table(ctx, "public", "sales")
	require.NoError(t, err)
	assert.Equal(t, "public", got.Schema)
	assert.Equal(t, "sales", got.Name)
	assert.Equal(t, "region_id", got.Column)
	require.Len(t, got.Partitions, 3)
	assert.Equal(t, []Partition{
		{Name: "sales_p0", LowerBound: "0", UpperBound: "100"},
		{Name: "sales_p1", LowerBound: "100", UpperBound: "200"},
		{Name: "sales_p2", LowerBound: "200", UpperBound: ""},
	}, got.Partitions)
}

// TestSQLiteStore_PutTableReplaces swaps the partition list atomically.
func TestSQLiteStore_PutTableReplaces(t *testing.T) {
	ctx := context.Background()
	store := openTestSQLite(t)
	require.NoError(t, store.PutTable(ctx, salesTable()))

	replacement := &Table{
		Schema: "public",
		Name:   "sales",
		Column: "sale_date",
		Partitions: []Partition{
			{Name: "sales_2024", LowerBound: "2024-01-01", UpperBound: "2025-01-01"},
		},
	}
	require.NoError(t, store.PutTable(ctx, replacement))

	got, err := store.Table(ctx, "public", "sales")
	require.NoError(t, err)
	assert.Equal(t, "sale_date", got.Column)
	require.Len(t, got.Partitions, 1)
	assert.Equal(t, "sales_2024", got.Partitions[0].Name)
}

// TestSQLiteStore_TableNotFound surfaces the sentinel for unknown tables.
func TestSQLiteStore_TableNotFound(t *testing.T) {
	ctx := context.Background()
	store := openTestSQLite(t)

	_, err := store.Table(ctx, "public", "missing")
	assert.True(t, errors.Is(err, ErrNotFound))

	err = store.DeleteTable(ctx, "public", "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

// TestSQLiteStore_DeleteTable removes the entry and its partitions.
func TestSQLiteStore_DeleteTable(t *testing.T) {
	ctx := context.Background()
	store := openTestSQLite(t)
	require.NoError(t, store.PutTable(ctx, salesTable()))

	require.NoError(t, store.DeleteTable(ctx, "public", "sales"))

	_, err := store.Table(ctx, "public", "sales")
	assert.True(t, errors.Is(err, ErrNotFound))

	tables, err := store.Tables(ctx)
	require.NoError(t, err)
	assert.Empty(t, tables)
}

// TestSQLiteStore_TablesFiltering lists entries matching predicates.
func TestSQLiteStore_TablesFiltering(t *testing.T) {
	ctx := context.Background()
	store := openTestSQLite(t)
	require.NoError(t, store.PutTable(ctx, salesTable()))
	require.NoError(t, store.PutTable(ctx, &Table{Schema: "audit", Name: "events", Column: "logged_at"}))

	public, err := store.Tables(ctx, Where(ColSchemaName, OpEq, "public"))
	require.NoError(t, err)
	require.Len(t, public, 1)
	assert.Equal(t, "sales", public[0].Name)
	assert.Len(t, public[0].Partitions, 3)

	none, err := store.Tables(ctx, Where(ColTableName, OpLike, "zz%"))
	require.NoError(t, err)
	assert.Empty(t, none)
}

// TestSQLiteStore_QueryLogs round-trips timestamps through RFC3339 text.
func TestSQLiteStore_QueryLogs(t *testing.T) {
	ctx := context.Background()
	store := openTestSQLite(t)
	base := time.Date(2025, 6, 1, 12, 0, 0, 123456000, time.UTC)

	first := &QueryLog{StartedAt: base, User: "alice", Statement: "SELECT 1"}
	require.NoError(t, store.AppendQueryLog(ctx, first))
	assert.NotEmpty(t, first.ID)
	require.NoError(t, store.AppendQueryLog(ctx, &QueryLog{
		ID:        "q-2",
		StartedAt: base.Add(time.Minute),
		User:      "bob",
		Statement: "INCREMENTAL SELECT COUNT(*) FROM sales",
	}))

	all, err := store.QueryLogs(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.True(t, all[0].StartedAt.Equal(base))
	assert.Equal(t, "q-2", all[1].ID)

	late, err := store.QueryLogs(ctx, Where(ColStartedAt, OpGt, base))
	require.NoError(t, err)
	require.Len(t, late, 1)
	assert.Equal(t, "bob", late[0].User)
}

// TestSQLiteStore_TaskLogs filters records by status.
func TestSQLiteStore_TaskLogs(t *testing.T) {
	ctx := context.Background()
	store := openTestSQLite(t)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.AppendTaskLog(ctx, &TaskLog{LoggedAt: base, Status: "PLANNED", Detail: "4 partitions"}))
	require.NoError(t, store.AppendTaskLog(ctx, &TaskLog{LoggedAt: base.Add(time.Second), Status: "EXHAUSTED", Detail: ""}))

	planned, err := store.TaskLogs(ctx, Where(ColStatus, OpEq, "PLANNED"))
	require.NoError(t, err)
	require.Len(t, planned, 1)
	assert.Equal(t, "4 partitions", planned[0].Detail)

	all, err := store.TaskLogs(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

// TestSQLiteStore_Reopen confirms the catalog survives process restarts.
func TestSQLiteStore_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "catalog.db")

	store, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, store.PutTable(ctx, salesTable()))
	require.NoError(t, store.Close(ctx))

	reopened, err := OpenSQLite(path)
	require.NoError(t, err)
	defer reopened.Close(ctx)

	got, err := reopened.Table(ctx, "public", "sales")
	require.NoError(t, err)
	assert.Len(t, got.Partitions, 3)
}
