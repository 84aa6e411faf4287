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

package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aaronlmathis/sqlstep"
	"github.com/aaronlmathis/sqlstep/catalog"
	"github.com/aaronlmathis/sqlstep/logger"
	"github.com/aaronlmathis/sqlstep/plan"
	"github.com/aaronlmathis/sqlstep/scan"
)

var (
	flagDSN     string
	flagDriver  string
	flagDialect string
	flagCatalog string
	flagMongo   string
	flagUser    string
	flagSchema  string
	flagWorkers int
	flagExecute string
	flagVerbose bool
)

var rootCmd = &cobra.Command{
	Use:   "sqlstep",
	Short: "Incremental aggregate shell for partitioned tables",
	Long: `sqlstep connects to a database and answers aggregate queries over
partitioned tables incrementally. Ordinary SQL passes through untouched;
INCREMENTAL SELECT answers from the first partition right away and
INCREMENTAL ROWS refines the answer one partition at a time.`,
	RunE:          run,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVar(&flagDSN, "dsn", "", "database connection string (required)")
	flags.StringVar(&flagDriver, "driver", scan.DriverPostgres, "database driver (postgres or sqlite)")
	flags.StringVar(&flagDialect, "dialect", string(plan.DialectRange), "partition dialect (range, tables, native)")
	flags.StringVar(&flagCatalog, "catalog", "sqlstep.db", "SQLite partition catalog path")
	flags.StringVar(&flagMongo, "mongo-catalog", "", "MongoDB partition catalog URI (overrides --catalog)")
	flags.StringVar(&flagUser, "user", "", "username recorded in query logs")
	flags.StringVar(&flagSchema, "schema", sqlstep.DefaultSchema, "default schema for unqualified table names")
	flags.IntVar(&flagWorkers, "workers", 0, "parallel scan workers (0 uses the default)")
	flags.StringVarP(&flagExecute, "execute", "e", "", "execute semicolon-separated statements and exit")
	flags.BoolVar(&flagVerbose, "verbose", false, "enable debug logging")
	rootCmd.MarkFlagRequired("dsn")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	log := logger.Default()
	if flagVerbose {
		log.SetLevel(logger.LevelDebug)
	}

	channel, err := openChannel()
	if err != nil {
		return err
	}
	defer channel.Close()

	store, err := openCatalog(cmd.Context())
	if err != nil {
		return err
	}
	defer store.Close(context.Background())

	session, err := sqlstep.NewSession().
		WithCatalog(store).
		WithChannel(channel).
		WithDialect(plan.Dialect(flagDialect)).
		WithDefaultSchema(flagSchema).
		WithUser(flagUser).
		WithLogger(log).
		WithWorkers(flagWorkers).
		Build()
	if err != nil {
		return err
	}
	defer session.Close()

	if flagExecute != "" {
		return runBatch(session, flagExecute)
	}
	return runShell(session, store)
}

func openChannel() (*scan.DB, error) {
	switch flagDriver {
	case scan.DriverPostgres:
		return scan.OpenPostgres(flagDSN)
	case scan.DriverSQLite:
		return scan.OpenSQLite(flagDSN)
	default:
		return nil, fmt.Errorf("unknown driver %q (postgres or sqlite)", flagDriver)
	}
}

func openCatalog(ctx context.Context) (catalog.Store, error) {
	var inner catalog.Store
	if flagMongo != "" {
		store, err := catalog.OpenMongo(ctx, catalog.WithMongoURI(flagMongo))
		if err != nil {
			return nil, err
		}
		inner = store
	} else {
		store, err := catalog.OpenSQLite(flagCatalog)
		if err != nil {
			return nil, err
		}
		inner = store
	}
	return catalog.NewCachedStore(inner, catalog.DefaultCacheSize)
}

// runBatch executes semicolon-separated statements and stops on the first
// error.
func runBatch(session *sqlstep.Session, script string) error {
	for _, statement := range strings.Split(script, ";") {
		statement = strings.TrimSpace(statement)
		if statement == "" {
			continue
		}
		result, err := session.Execute(context.Background(), statement)
		if err != nil {
			return err
		}
		renderResult(os.Stdout, result)
	}
	return nil
}
