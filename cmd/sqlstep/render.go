package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/aaronlmathis/sqlstep"
)

var (
	headerColor = color.New(color.FgCyan, color.Bold)
	errorColor  = color.New(color.FgRed)
	noticeColor = color.New(color.FgYellow)
)

func printError(err error) {
	errorColor.Fprintln(os.Stderr, err.Error())
}

func printNotice(msg string) {
	noticeColor.Fprintln(os.Stdout, msg)
}

// renderResult prints a result as an aligned table with a colored header.
func renderResult(w io.Writer, result *sqlstep.Result) {
	if result == nil || len(result.Columns) == 0 {
		return
	}

	widths := make([]int, len(result.Columns))
	for i, column := range result.Columns {
		widths[i] = len(column)
	}

	cells := make([][]string, len(result.Rows))
	for ri, row := range result.Rows {
		cells[ri] = make([]string, len(result.Columns))
		for ci := range result.Columns {
			text := "NULL"
			if ci < len(row) && row[ci] != nil {
				text = renderCell(row[ci])
			}
			cells[ri][ci] = text
			if len(text) > widths[ci] {
				widths[ci] = len(text)
			}
		}
	}

	for i, column := range result.Columns {
		if i > 0 {
			fmt.Fprint(w, "  ")
		}
		headerColor.Fprintf(w, "%-*s", widths[i], column)
	}
	fmt.Fprintln(w)
	for i := range result.Columns {
		if i > 0 {
			fmt.Fprint(w, "  ")
		}
		fmt.Fprint(w, strings.Repeat("-", widths[i]))
	}
	fmt.Fprintln(w)

	for _, row := range cells {
		for i, cell := range row {
			if i > 0 {
				fmt.Fprint(w, "  ")
			}
			fmt.Fprintf(w, "%-*s", widths[i], cell)
		}
		fmt.Fprintln(w)
	}

	suffix := "rows"
	if len(result.Rows) == 1 {
		suffix = "row"
	}
	noticeColor.Fprintf(w, "(%d %s)\n", len(result.Rows), suffix)
}

func renderCell(value interface{}) string {
	switch v := value.(type) {
	case []byte:
		return string(v)
	case time.Time:
		return v.Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", v)
	}
}
