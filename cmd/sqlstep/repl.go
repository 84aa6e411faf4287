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
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/aaronlmathis/sqlstep"
	"github.com/aaronlmathis/sqlstep/catalog"
	"github.com/aaronlmathis/sqlstep/export"
)

const prompt = "sqlstep> "

// repl is the interactive shell state. last holds the most recent result
// for \export.
type repl struct {
	session *sqlstep.Session
	store   catalog.Store
	last    *sqlstep.Result
}

func runShell(session *sqlstep.Session, store catalog.Store) error {
	r := &repl{session: session, store: store}

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	if path := historyPath(); path != "" {
		if f, err := os.Open(path); err == nil {
			line.ReadHistory(f)
			f.Close()
		}
	}
	defer saveHistory(line)

	printNotice("sqlstep shell. \\help lists meta-commands, \\q quits.")

	for {
		input, err := line.Prompt(prompt)
		if err == liner.ErrPromptAborted {
			printNotice("aborted")
			continue
		}
		if err == io.EOF {
			fmt.Println()
			return nil
		}
		if err != nil {
			return err
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		if strings.HasPrefix(input, "\\") {
			if quit := r.dispatch(input); quit {
				return nil
			}
			continue
		}

		result, err := r.session.Execute(context.Background(), input)
		if err != nil {
			printError(err)
			continue
		}
		r.last = result
		renderResult(os.Stdout, result)
	}
}

// dispatch runs one meta-command. Returns true when the shell should exit.
func (r *repl) dispatch(input string) bool {
	fields := strings.Fields(input)
	switch fields[0] {
	case `\q`, `\quit`:
		return true
	case `\help`:
		printHelp()
	case `\reset`:
		r.session.Reset()
		printNotice("incremental task abandoned")
	case `\tables`:
		r.listTables()
	case `\register`:
		r.registerTable(fields[1:])
	case `\unregister`:
		r.unregisterTable(fields[1:])
	case `\export`:
		r.export(fields[1:])
	default:
		printError(fmt.Errorf("unknown meta-command %s (try \\help)", fields[0]))
	}
	return false
}

func printHelp() {
	fmt.Print(`Meta-commands:
  \q                                        quit
  \reset                                    abandon the current incremental task
  \tables                                   list registered partitioned tables
  \register <table> <column> <parts>        register partition metadata,
                                            parts = name:lower:upper,... (open upper bound: name:lower:)
  \unregister <table>                       remove partition metadata
  \export <path|s3://bucket/key>            export the last result (.parquet, .json, CSV)
  \help                                     this help
`)
}

func (r *repl) listTables() {
	tables, err := r.store.Tables(context.Background())
	if err != nil {
		printError(err)
		return
	}
	if len(tables) == 0 {
		printNotice("no partitioned tables registered")
		return
	}
	for _, t := range tables {
		fmt.Printf("%s.%s  partitioned by %s into %d partitions\n",
			t.Schema, t.Name, t.Column, len(t.Partitions))
	}
}

func (r *repl) registerTable(args []string) {
	if len(args) != 3 {
		printError(fmt.Errorf(`usage: \register <schema.table> <column> <name:lower:upper,...>`))
		return
	}

	schema, name := splitQualified(args[0])
	partitions, err := parsePartitions(args[2])
	if err != nil {
		printError(err)
		return
	}

	table := &catalog.Table{Schema: schema, Name: name, Column: args[1], Partitions: partitions}
	if err := r.store.PutTable(context.Background(), table); err != nil {
		printError(err)
		return
	}
	printNotice(fmt.Sprintf("registered %s.%s with %d partitions", schema, name, len(partitions)))
}

func (r *repl) unregisterTable(args []string) {
	if len(args) != 1 {
		printError(fmt.Errorf(`usage: \unregister <schema.table>`))
		return
	}

	schema, name := splitQualified(args[0])
	if err := r.store.DeleteTable(context.Background(), schema, name); err != nil {
		printError(err)
		return
	}
	printNotice(fmt.Sprintf("unregistered %s.%s", schema, name))
}

func (r *repl) export(args []string) {
	if len(args) != 1 {
		printError(fmt.Errorf(`usage: \export <path|s3://bucket/key>`))
		return
	}
	if r.last == nil {
		printError(fmt.Errorf("no result to export"))
		return
	}

	snap, err := export.Capture(r.last)
	if err != nil {
		printError(err)
		return
	}

	target := args[0]
	if err := export.Export(context.Background(), target, snap); err != nil {
		printError(err)
		return
	}
	printNotice("exported to " + target)
}

// splitQualified splits schema.table, defaulting to the --schema flag.
func splitQualified(qualified string) (string, string) {
	if i := strings.IndexByte(qualified, '.'); i >= 0 {
		return qualified[:i], qualified[i+1:]
	}
	schema := flagSchema
	if schema == "" {
		schema = sqlstep.DefaultSchema
	}
	return schema, qualified
}

// parsePartitions parses name:lower:upper triples separated by commas. An
// empty or missing upper bound marks the partition as open-ended.
func parsePartitions(spec string) ([]catalog.Partition, error) {
	var partitions []catalog.Partition
	for _, part := range strings.Split(spec, ",") {
		fields := strings.SplitN(part, ":", 3)
		if fields[0] == "" {
			return nil, fmt.Errorf("partition %q needs a name", part)
		}
		p := catalog.Partition{Name: fields[0]}
		if len(fields) > 1 {
			p.LowerBound = fields[1]
		}
		if len(fields) > 2 {
			p.UpperBound = fields[2]
		}
		partitions = append(partitions, p)
	}
	return partitions, nil
}

func historyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".sqlstep_history")
}

func saveHistory(line *liner.State) {
	path := historyPath()
	if path == "" {
		return
	}
	f, err := os.Create(path)
	if err != nil {
		return
	}
	defer f.Close()
	line.WriteHistory(f)
}
