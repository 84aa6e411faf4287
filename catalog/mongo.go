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
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStoreOptions configures the MongoDB catalog store.
type MongoStoreOptions struct {
	URI          string        // MongoDB connection URI
	Database     string        // Database name
	Timeout      time.Duration // Operation timeout
	MaxPoolSize  uint64        // Connection pool size
	Username     string        // Authentication username
	Password     string        // Authentication password
	AuthDatabase string        // Authentication database
}

// MongoStoreOption is a functional option for MongoStoreOptions
type MongoStoreOption func(*MongoStoreOptions)

func WithMongoURI(uri string) MongoStoreOption {
	return func(opts *MongoStoreOptions) {
		opts.URI = uri
	}
}

func WithMongoDatabase(database string) MongoStoreOption {
	return func(opts *MongoStoreOptions) {
		opts.Database = database
	}
}

func WithMongoTimeout(timeout time.Duration) MongoStoreOption {
	return func(opts *MongoStoreOptions) {
		opts.Timeout = timeout
	}
}

func WithMongoMaxPoolSize(size uint64) MongoStoreOption {
	return func(opts *MongoStoreOptions) {
		opts.MaxPoolSize = size
	}
}

func WithMongoCredentials(username, password, authDB string) MongoStoreOption {
	return func(opts *MongoStoreOptions) {
		opts.Username = username
		opts.Password = password
		opts.AuthDatabase = authDB
	}
}

// MongoStore persists the catalog in MongoDB, for deployments that already
// run one and want the catalog shared between middleware instances.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
	opts   *MongoStoreOptions
}

// Collection names used by MongoStore.
const (
	mongoTablesCollection    = "partition_tables"
	mongoQueryLogsCollection = "query_logs"
	mongoTaskLogsCollection  = "task_logs"
)

type mongoPartitionDoc struct {
	Name       string `bson:"partition_name"`
	LowerBound string `bson:"lower_bound"`
	UpperBound string `bson:"upper_bound"`
}

type mongoTableDoc struct {
	Schema     string              `bson:"schema_name"`
	Name       string              `bson:"table_name"`
	Column     string              `bson:"partition_column"`
	Partitions []mongoPartitionDoc `bson:"partitions"`
}

type mongoQueryLogDoc struct {
	ID        string    `bson:"_id"`
	StartedAt time.Time `bson:"started_at"`
	User      string    `bson:"username"`
	Statement string    `bson:"statement"`
}

type mongoTaskLogDoc struct {
	ID       string    `bson:"_id"`
	LoggedAt time.Time `bson:"logged_at"`
	Status   string    `bson:"status"`
	Detail   string    `bson:"detail"`
}

// OpenMongo connects to MongoDB and returns a catalog store backed by it.
func OpenMongo(ctx context.Context, storeOptions ...MongoStoreOption) (*MongoStore, error) {
	opts := &MongoStoreOptions{
		URI:         "mongodb://localhost:27017",
		Database:    "sqlstep",
		Timeout:     30 * time.Second,
		MaxPoolSize: 100,
	}
	for _, opt := range storeOptions {
		opt(opts)
	}

	clientOpts := options.Client().ApplyURI(opts.URI)
	if opts.MaxPoolSize > 0 {
		clientOpts.SetMaxPoolSize(opts.MaxPoolSize)
	}
	if opts.Timeout > 0 {
		clientOpts.SetConnectTimeout(opts.Timeout)
		clientOpts.SetServerSelectionTimeout(opts.Timeout)
	}
	if opts.Username != "" {
		credential := options.Credential{
			Username: opts.Username,
			Password: opts.Password,
		}
		if opts.AuthDatabase != "" {
			credential.AuthSource = opts.AuthDatabase
		}
		clientOpts.SetAuth(credential)
	}

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, &StoreError{Backend: "mongo", Op: "connect", Err: err}
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, &StoreError{Backend: "mongo", Op: "ping", Err: err}
	}

	return &MongoStore{
		client: client,
		db:     client.Database(opts.Database),
		opts:   opts,
	}, nil
}

// Table resolves the partition catalog entry for schema.name.
func (s *MongoStore) Table(ctx context.Context, schema, name string) (*Table, error) {
	var doc mongoTableDoc
	err := s.db.Collection(mongoTablesCollection).FindOne(ctx, bson.M{
		ColSchemaName: schema,
		ColTableName:  name,
	}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("table %s.%s: %w", schema, name, ErrNotFound)
	}
	if err != nil {
		return nil, &StoreError{Backend: "mongo", Op: "table", Err: err}
	}
	return doc.toTable(), nil
}

func (d *mongoTableDoc) toTable() *Table {
	t := &Table{Schema: d.Schema, Name: d.Name, Column: d.Column}
	for _, p := range d.Partitions {
		t.Partitions = append(t.Partitions, Partition{
			Name:       p.Name,
			LowerBound: p.LowerBound,
			UpperBound: p.UpperBound,
		})
	}
	return t
}

// PutTable creates or replaces a partition catalog entry.
func (s *MongoStore) PutTable(ctx context.Context, t *Table) error {
	if t == nil || t.Schema == "" || t.Name == "" {
		return &StoreError{Backend: "mongo", Op: "put_table", Err: fmt.Errorf("schema and table name are required")}
	}

	doc := mongoTableDoc{Schema: t.Schema, Name: t.Name, Column: t.Column}
	for _, p := range t.Partitions {
		doc.Partitions = append(doc.Partitions, mongoPartitionDoc{
			Name:       p.Name,
			LowerBound: p.LowerBound,
			UpperBound: p.UpperBound,
		})
	}

	_, err := s.db.Collection(mongoTablesCollection).ReplaceOne(ctx,
		bson.M{ColSchemaName: t.Schema, ColTableName: t.Name},
		doc,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return &StoreError{Backend: "mongo", Op: "put_table", Err: err}
	}
	return nil
}

// DeleteTable removes a partition catalog entry.
func (s *MongoStore) DeleteTable(ctx context.Context, schema, name string) error {
	res, err := s.db.Collection(mongoTablesCollection).DeleteOne(ctx, bson.M{
		ColSchemaName: schema,
		ColTableName:  name,
	})
	if err != nil {
		return &StoreError{Backend: "mongo", Op: "delete_table", Err: err}
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("table %s.%s: %w", schema, name, ErrNotFound)
	}
	return nil
}

// Tables lists entries matching all predicates.
func (s *MongoStore) Tables(ctx context.Context, preds ...Predicate) ([]*Table, error) {
	filter, err := predicatesToFilter(preds)
	if err != nil {
		return nil, &StoreError{Backend: "mongo", Op: "tables", Err: err}
	}

	findOpts := options.Find().SetSort(bson.D{
		{Key: ColSchemaName, Value: 1},
		{Key: ColTableName, Value: 1},
	})
	cursor, err := s.db.Collection(mongoTablesCollection).Find(ctx, filter, findOpts)
	if err != nil {
		return nil, &StoreError{Backend: "mongo", Op: "tables", Err: err}
	}
	defer cursor.Close(ctx)

	var out []*Table
	for cursor.Next(ctx) {
		var doc mongoTableDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, &StoreError{Backend: "mongo", Op: "decode_table", Err: err}
		}
		out = append(out, doc.toTable())
	}
	if err := cursor.Err(); err != nil {
		return nil, &StoreError{Backend: "mongo", Op: "tables", Err: err}
	}
	return out, nil
}

// AppendQueryLog stores a query log record, assigning an ID if empty.
func (s *MongoStore) AppendQueryLog(ctx context.Context, q *QueryLog) error {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	_, err := s.db.Collection(mongoQueryLogsCollection).InsertOne(ctx, mongoQueryLogDoc{
		ID:        q.ID,
		StartedAt: q.StartedAt.UTC(),
		User:      q.User,
		Statement: q.Statement,
	})
	if err != nil {
		return &StoreError{Backend: "mongo", Op: "append_query_log", Err: err}
	}
	return nil
}

// QueryLogs lists query log records matching all predicates.
func (s *MongoStore) QueryLogs(ctx context.Context, preds ...Predicate) ([]*QueryLog, error) {
	filter, err := predicatesToFilter(preds)
	if err != nil {
		return nil, &StoreError{Backend: "mongo", Op: "query_logs", Err: err}
	}

	findOpts := options.Find().SetSort(bson.D{{Key: ColStartedAt, Value: 1}})
	cursor, err := s.db.Collection(mongoQueryLogsCollection).Find(ctx, filter, findOpts)
	if err != nil {
		return nil, &StoreError{Backend: "mongo", Op: "query_logs", Err: err}
	}
	defer cursor.Close(ctx)

	var out []*QueryLog
	for cursor.Next(ctx) {
		var doc mongoQueryLogDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, &StoreError{Backend: "mongo", Op: "decode_query_log", Err: err}
		}
		out = append(out, &QueryLog{
			ID:        doc.ID,
			StartedAt: doc.StartedAt,
			User:      doc.User,
			Statement: doc.Statement,
		})
	}
	if err := cursor.Err(); err != nil {
		return nil, &StoreError{Backend: "mongo", Op: "query_logs", Err: err}
	}
	return out, nil
}

// AppendTaskLog stores a task log record, assigning an ID if empty.
func (s *MongoStore) AppendTaskLog(ctx context.Context, t *TaskLog) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	_, err := s.db.Collection(mongoTaskLogsCollection).InsertOne(ctx, mongoTaskLogDoc{
		ID:       t.ID,
		LoggedAt: t.LoggedAt.UTC(),
		Status:   t.Status,
		Detail:   t.Detail,
	})
	if err != nil {
		return &StoreError{Backend: "mongo", Op: "append_task_log", Err: err}
	}
	return nil
}

// TaskLogs lists task log records matching all predicates.
func (s *MongoStore) TaskLogs(ctx context.Context, preds ...Predicate) ([]*TaskLog, error) {
	filter, err := predicatesToFilter(preds)
	if err != nil {
		return nil, &StoreError{Backend: "mongo", Op: "task_logs", Err: err}
	}

	findOpts := options.Find().SetSort(bson.D{{Key: ColLoggedAt, Value: 1}})
	cursor, err := s.db.Collection(mongoTaskLogsCollection).Find(ctx, filter, findOpts)
	if err != nil {
		return nil, &StoreError{Backend: "mongo", Op: "task_logs", Err: err}
	}
	defer cursor.Close(ctx)

	var out []*TaskLog
	for cursor.Next(ctx) {
		var doc mongoTaskLogDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, &StoreError{Backend: "mongo", Op: "decode_task_log", Err: err}
		}
		out = append(out, &TaskLog{
			ID:       doc.ID,
			LoggedAt: doc.LoggedAt,
			Status:   doc.Status,
			Detail:   doc.Detail,
		})
	}
	if err := cursor.Err(); err != nil {
		return nil, &StoreError{Backend: "mongo", Op: "task_logs", Err: err}
	}
	return out, nil
}

// Close disconnects from MongoDB.
func (s *MongoStore) Close(ctx context.Context) error {
	if err := s.client.Disconnect(ctx); err != nil {
		return &StoreError{Backend: "mongo", Op: "close", Err: err}
	}
	return nil
}

// predicatesToFilter translates predicates into a MongoDB filter document.
// The id column maps to Mongo's _id field.
func predicatesToFilter(preds []Predicate) (bson.M, error) {
	filter := bson.M{}
	for _, p := range preds {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		field := p.Column
		if field == ColID {
			field = "_id"
		}
		var cond bson.M
		switch p.Op {
		case OpEq:
			cond = bson.M{"$eq": p.Value}
		case OpNe:
			cond = bson.M{"$ne": p.Value}
		case OpLt:
			cond = bson.M{"$lt": p.Value}
		case OpLe:
			cond = bson.M{"$lte": p.Value}
		case OpGt:
			cond = bson.M{"$gt": p.Value}
		case OpGe:
			cond = bson.M{"$gte": p.Value}
		case OpLike:
			pattern, ok := p.Value.(string)
			if !ok {
				return nil, fmt.Errorf("LIKE predicate on %s requires a string value", p.Column)
			}
			cond = bson.M{"$regex": likeRegexp(pattern)}
		default:
			return nil, fmt.Errorf("unsupported operator %q", p.Op)
		}
		filter[field] = cond
	}
	return filter, nil
}
