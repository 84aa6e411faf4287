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

// Package parse classifies client statements. Only statements opening with
// the INCREMENTAL keyword belong to the engine:
//
//	INCREMENTAL ROWS
//	INCREMENTAL [PARALLEL] SELECT [APPROXIMATE] agg(col), ... FROM [schema.]table
//
// Everything else is passed through to the backing database verbatim.
package parse

import (
	"fmt"
	"strings"
)

// Kind classifies a parsed statement.
type Kind int

const (
	// KindPassthrough is any statement the engine does not interpret.
	KindPassthrough Kind = iota
	// KindPull requests the next incremental answer (INCREMENTAL ROWS).
	KindPull
	// KindQuery starts a new incremental aggregate query.
	KindQuery
)

// AggregateCall is one aggregate invocation as written, unresolved.
type AggregateCall struct {
	Function string
	Column   string // "*" for COUNT(*)
}

// Statement is one classified client statement.
type Statement struct {
	Kind        Kind
	Parallel    bool
	Approximate bool
	Aggregates  []AggregateCall
	Schema      string
	Table       string
	Raw         string // original statement text, verbatim
}

// SyntaxError reports where an incremental statement stopped making sense.
type SyntaxError struct {
	Pos int
	Msg string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at position %d: %s", e.Pos, e.Msg)
}

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokLParen
	tokRParen
	tokComma
	tokDot
	tokStar
	tokSemi
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

// Parse classifies one statement. Statements not starting with INCREMENTAL
// come back as passthrough without further inspection; incremental
// statements are parsed fully and reject anything outside the grammar.
func Parse(statement string) (*Statement, error) {
	tokens, firstErr := lex(statement)
	if len(tokens) == 0 || tokens[0].kind != tokIdent || !keyword(tokens[0], "INCREMENTAL") {
		return &Statement{Kind: KindPassthrough, Raw: statement}, nil
	}
	// lex errors matter only once the statement is known to be ours
	if firstErr != nil {
		return nil, firstErr
	}

	p := &parser{tokens: tokens, raw: statement}
	return p.parseIncremental()
}

func keyword(t token, kw string) bool {
	return strings.EqualFold(t.text, kw)
}

// lex scans up to the first bad rune. A partial token stream is still
// returned so Parse can decide whether the statement is incremental at all.
func lex(s string) ([]token, error) {
	var tokens []token
	i := 0
	for i < len(s) {
		c := s[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case isIdentStart(c):
			start := i
			for i < len(s) && isIdentPart(s[i]) {
				i++
			}
			tokens = append(tokens, token{kind: tokIdent, text: s[start:i], pos: start})
		case c == '(':
			tokens = append(tokens, token{kind: tokLParen, text: "(", pos: i})
			i++
		case c == ')':
			tokens = append(tokens, token{kind: tokRParen, text: ")", pos: i})
			i++
		case c == ',':
			tokens = append(tokens, token{kind: tokComma, text: ",", pos: i})
			i++
		case c == '.':
			tokens = append(tokens, token{kind: tokDot, text: ".", pos: i})
			i++
		case c == '*':
			tokens = append(tokens, token{kind: tokStar, text: "*", pos: i})
			i++
		case c == ';':
			tokens = append(tokens, token{kind: tokSemi, text: ";", pos: i})
			i++
		default:
			return tokens, &SyntaxError{Pos: i, Msg: fmt.Sprintf("unexpected character %q", rune(c))}
		}
	}
	tokens = append(tokens, token{kind: tokEOF, pos: len(s)})
	return tokens, nil
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

type parser struct {
	tokens []token
	next   int
	raw    string
}

func (p *parser) peek() token {
	return p.tokens[p.next]
}

func (p *parser) advance() token {
	t := p.tokens[p.next]
	if t.kind != tokEOF {
		p.next++
	}
	return t
}

func (p *parser) errorf(t token, format string, args ...interface{}) error {
	return &SyntaxError{Pos: t.pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) parseIncremental() (*Statement, error) {
	p.advance() // INCREMENTAL

	stmt := &Statement{Raw: p.raw}

	t := p.peek()
	if t.kind == tokIdent && keyword(t, "ROWS") {
		p.advance()
		stmt.Kind = KindPull
		return stmt, p.expectEnd()
	}

	if t.kind == tokIdent && keyword(t, "PARALLEL") {
		p.advance()
		stmt.Parallel = true
		t = p.peek()
	}

	if t.kind != tokIdent || !keyword(t, "SELECT") {
		return nil, p.errorf(t, "expected SELECT or ROWS, got %q", t.text)
	}
	p.advance()

	if t = p.peek(); t.kind == tokIdent && keyword(t, "APPROXIMATE") {
		p.advance()
		stmt.Approximate = true
	}

	for {
		call, err := p.parseAggregateCall()
		if err != nil {
			return nil, err
		}
		stmt.Aggregates = append(stmt.Aggregates, call)
		if p.peek().kind != tokComma {
			break
		}
		p.advance()
	}

	if t = p.peek(); t.kind != tokIdent || !keyword(t, "FROM") {
		return nil, p.errorf(t, "expected FROM, got %q", t.text)
	}
	p.advance()

	schema, table, err := p.parseTableName()
	if err != nil {
		return nil, err
	}
	stmt.Schema = schema
	stmt.Table = table
	stmt.Kind = KindQuery

	return stmt, p.expectEnd()
}

func (p *parser) parseAggregateCall() (AggregateCall, error) {
	t := p.advance()
	if t.kind != tokIdent {
		return AggregateCall{}, p.errorf(t, "expected aggregate function, got %q", t.text)
	}
	if keyword(t, "FROM") {
		return AggregateCall{}, p.errorf(t, "expected aggregate function before FROM")
	}
	call := AggregateCall{Function: t.text}

	if open := p.advance(); open.kind != tokLParen {
		return AggregateCall{}, p.errorf(open, "expected ( after %s", call.Function)
	}

	arg := p.advance()
	switch arg.kind {
	case tokStar:
		call.Column = "*"
	case tokIdent:
		call.Column = arg.text
	default:
		return AggregateCall{}, p.errorf(arg, "expected column or * in %s(...)", call.Function)
	}

	if closing := p.advance(); closing.kind != tokRParen {
		return AggregateCall{}, p.errorf(closing, "expected ) after %s argument", call.Function)
	}
	return call, nil
}

func (p *parser) parseTableName() (string, string, error) {
	t := p.advance()
	if t.kind != tokIdent {
		return "", "", p.errorf(t, "expected table name, got %q", t.text)
	}
	first := t.text

	if p.peek().kind != tokDot {
		return "", first, nil
	}
	p.advance()

	t = p.advance()
	if t.kind != tokIdent {
		return "", "", p.errorf(t, "expected table name after %q.", first)
	}
	return first, t.text, nil
}

// expectEnd allows a trailing semicolon and nothing else. Predicates, joins,
// grouping and every other SQL construct stay with the backing database;
// rejecting them here keeps incremental answers honest.
func (p *parser) expectEnd() error {
	if p.peek().kind == tokSemi {
		p.advance()
	}
	if t := p.peek(); t.kind != tokEOF {
		return p.errorf(t, "unexpected %q at end of statement", t.text)
	}
	return nil
}
