// Copyright 2024 Ross Light
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//		 https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

package myst

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
)

// ErrUnknownNodeType is returned when a node type name is not recognized.
var ErrUnknownNodeType = errors.New("unknown node type")

// Severity is the importance of a [Diagnostic].
type Severity int8

const (
	SeverityInfo Severity = 1 + iota
	SeverityWarning
	SeverityError
)

func (sev Severity) String() string {
	switch sev {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "Severity(" + strconv.Itoa(int(sev)) + ")"
	}
}

func (sev Severity) level() slog.Level {
	switch sev {
	case SeverityInfo:
		return slog.LevelInfo
	case SeverityError:
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

// Code identifies the condition a [Diagnostic] reports.
type Code string

const (
	// CodeMalformedTokens reports unbalanced open and close tokens.
	CodeMalformedTokens Code = "malformed-tokens"
	// CodeUnknownToken reports a token type with no handler.
	CodeUnknownToken Code = "unknown-token"
	// CodeDanglingTarget reports a target with no node after it.
	CodeDanglingTarget Code = "dangling-target"
	// CodeDuplicateLabel reports a second explicit target with the same identifier.
	CodeDuplicateLabel Code = "duplicate-label"
	// CodeUnresolvedReference reports a reference to an identifier with no target.
	CodeUnresolvedReference Code = "unresolved-reference"
	// CodeKindMismatch reports a reference to a target of the wrong kind.
	CodeKindMismatch Code = "kind-mismatch"
	// CodeDuplicateDocument reports a second document with the same name in a project.
	CodeDuplicateDocument Code = "duplicate-document"
)

// A Diagnostic is a non-fatal problem found while compiling or resolving a document.
type Diagnostic struct {
	Severity   Severity
	Code       Code
	Message    string
	Identifier string
	Document   string
	Position   Position
}

func (d Diagnostic) String() string {
	prefix := d.Document
	if d.Position.IsValid() {
		if prefix != "" {
			prefix += ":"
		}
		prefix += d.Position.String()
	}
	if prefix != "" {
		prefix += ": "
	}
	return fmt.Sprintf("%s%v: %s [%s]", prefix, d.Severity, d.Message, d.Code)
}

// A DiagnosticSink receives diagnostics.
// A nil DiagnosticSink discards all diagnostics.
type DiagnosticSink interface {
	Report(d Diagnostic)
}

// SinkFunc is a function that implements [DiagnosticSink].
type SinkFunc func(d Diagnostic)

// Report calls f(d).
func (f SinkFunc) Report(d Diagnostic) {
	f(d)
}

// DiagnosticList is a [DiagnosticSink] that records every diagnostic.
// It is not safe to report to a DiagnosticList from multiple goroutines.
type DiagnosticList []Diagnostic

// Report appends d to the list.
func (list *DiagnosticList) Report(d Diagnostic) {
	*list = append(*list, d)
}

// Codes returns the codes of the diagnostics in the list, in order.
func (list DiagnosticList) Codes() []Code {
	codes := make([]Code, len(list))
	for i, d := range list {
		codes[i] = d.Code
	}
	return codes
}

// HasErrors reports whether any diagnostic in the list has error severity.
func (list DiagnosticList) HasErrors() bool {
	for _, d := range list {
		if d.Severity >= SeverityError {
			return true
		}
	}
	return false
}

// NewLogSink returns a [DiagnosticSink] that writes each diagnostic
// to logger as a structured record.
func NewLogSink(logger *slog.Logger) DiagnosticSink {
	return SinkFunc(func(d Diagnostic) {
		attrs := []slog.Attr{slog.String("code", string(d.Code))}
		if d.Identifier != "" {
			attrs = append(attrs, slog.String("identifier", d.Identifier))
		}
		if d.Document != "" {
			attrs = append(attrs, slog.String("document", d.Document))
		}
		if d.Position.IsValid() {
			attrs = append(attrs, slog.Int("line", d.Position.Line))
		}
		logger.LogAttrs(context.Background(), d.Severity.level(), d.Message, attrs...)
	})
}

// reporter stamps diagnostics with a document name before forwarding them.
type reporter struct {
	sink     DiagnosticSink
	document string
}

func (r reporter) report(sev Severity, code Code, pos Position, identifier string, format string, args ...any) {
	if r.sink == nil {
		return
	}
	r.sink.Report(Diagnostic{
		Severity:   sev,
		Code:       code,
		Message:    fmt.Sprintf(format, args...),
		Identifier: identifier,
		Document:   r.document,
		Position:   pos,
	})
}

// stampDocument returns a sink that sets the Document field
// of diagnostics that do not name one.
func stampDocument(sink DiagnosticSink, document string) DiagnosticSink {
	if sink == nil || document == "" {
		return sink
	}
	return SinkFunc(func(d Diagnostic) {
		if d.Document == "" {
			d.Document = document
		}
		sink.Report(d)
	})
}
