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
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// DocumentOptions is the set of parameters to [ProcessDocument] and [BuildProject].
// The zero value compiles with the default handlers,
// numbers the default kinds per document,
// and discards diagnostics.
type DocumentOptions struct {
	// Document is the name of the document for [ProcessDocument].
	// [BuildProject] uses the names of its source documents instead.
	Document string

	Handlers          HandlerTable
	HoistSingleImages HoistPolicy
	UnknownTokens     UnknownTokenPolicy
	Numbering         *NumberingOptions
	// Templates holds the reference display templates by target kind.
	// See [ResolveOptions].
	Templates map[string]string
	// DocumentURL maps document names to link URLs.
	// See [ResolveOptions].
	DocumentURL func(from, to string) string

	Diagnostics DiagnosticSink
}

func (opts *DocumentOptions) compileOptions(document string, sink DiagnosticSink) *CompileOptions {
	return &CompileOptions{
		Handlers:          opts.Handlers,
		HoistSingleImages: opts.HoistSingleImages,
		UnknownTokens:     opts.UnknownTokens,
		Diagnostics:       sink,
		Document:          document,
	}
}

// label runs the compile and label stages for one document.
func (opts *DocumentOptions) label(tokens []Token, document string, sink DiagnosticSink) *Node {
	root := Compile(tokens, opts.compileOptions(document, sink))
	PropagateTargets(root, stampDocument(sink, document))
	LabelHeadings(root)
	return root
}

// ProcessDocument runs every stage on a single document:
// compilation, target propagation, implicit heading labels,
// enumeration, and reference resolution.
// It returns the resolved tree and the document's target registry.
func ProcessDocument(tokens []Token, opts *DocumentOptions) (*Node, *ReferenceState) {
	if opts == nil {
		opts = new(DocumentOptions)
	}
	root := opts.label(tokens, opts.Document, opts.Diagnostics)
	state := NewReferenceState(opts.Document, opts.Numbering)
	EnumerateTargets(root, state, opts.Diagnostics)
	ResolveReferences(root, state, &ResolveOptions{
		Document:    opts.Document,
		Templates:   opts.Templates,
		DocumentURL: opts.DocumentURL,
	}, opts.Diagnostics)
	return root, state
}

// SourceDocument is a named token stream in a project.
type SourceDocument struct {
	Name   string
	Tokens []Token
}

// Document is a processed document in a [Project].
type Document struct {
	Name  string
	Root  *Node
	State *ReferenceState
}

// Project is the result of [BuildProject].
type Project struct {
	Documents []*Document
	State     *ProjectState
}

// Document returns the named document or nil.
func (p *Project) Document(name string) *Document {
	for _, doc := range p.Documents {
		if doc.Name == name {
			return doc
		}
	}
	return nil
}

// BuildProject processes an ordered collection of documents
// that share a numbering namespace.
//
// Documents are compiled and labeled concurrently.
// Enumeration then runs on one document at a time in the given order,
// and resolution starts only after every document has been enumerated,
// so references may point to targets in later documents.
// Diagnostics are delivered to opts.Diagnostics in document order.
//
// Document names must be unique.
// A document whose name was already used by an earlier document
// is reported as a [CodeDuplicateDocument] error and left out of the project.
//
// BuildProject only returns an error if ctx is done.
func BuildProject(ctx context.Context, docs []SourceDocument, opts *DocumentOptions) (*Project, error) {
	if opts == nil {
		opts = new(DocumentOptions)
	}
	docs = uniqueDocuments(docs, opts.Diagnostics)
	project := &Project{
		Documents: make([]*Document, len(docs)),
		State:     NewProjectState(opts.Numbering),
	}
	diags := make([]DiagnosticList, len(docs))

	err := forEachDocument(ctx, len(docs), func(i int) {
		project.Documents[i] = &Document{
			Name: docs[i].Name,
			Root: opts.label(docs[i].Tokens, docs[i].Name, &diags[i]),
		}
	})
	flushDiagnostics(opts.Diagnostics, diags)
	if err != nil {
		return nil, fmt.Errorf("build project: %w", err)
	}

	for i, doc := range project.Documents {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("build project: %w", err)
		}
		doc.State = project.State.AddDocument(doc.Name)
		EnumerateTargets(doc.Root, doc.State, &diags[i])
	}
	flushDiagnostics(opts.Diagnostics, diags)

	// The registry is read-only from here on.
	err = forEachDocument(ctx, len(docs), func(i int) {
		doc := project.Documents[i]
		ResolveReferences(doc.Root, project.State.ResolverFor(doc.Name), &ResolveOptions{
			Document:    doc.Name,
			Templates:   opts.Templates,
			DocumentURL: opts.DocumentURL,
		}, &diags[i])
	})
	flushDiagnostics(opts.Diagnostics, diags)
	if err != nil {
		return nil, fmt.Errorf("build project: %w", err)
	}
	return project, nil
}

// uniqueDocuments returns the documents whose names are not used
// by an earlier document and reports the others to sink.
func uniqueDocuments(docs []SourceDocument, sink DiagnosticSink) []SourceDocument {
	seen := make(map[string]struct{}, len(docs))
	unique := make([]SourceDocument, 0, len(docs))
	for _, doc := range docs {
		if _, dup := seen[doc.Name]; dup {
			r := reporter{sink: sink, document: doc.Name}
			r.report(SeverityError, CodeDuplicateDocument, Position{}, "",
				"document %q appears more than once in the project", doc.Name)
			continue
		}
		seen[doc.Name] = struct{}{}
		unique = append(unique, doc)
	}
	return unique
}

// forEachDocument calls f for every index in [0, n) concurrently.
func forEachDocument(ctx context.Context, n int, f func(i int)) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range n {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			f(i)
			return nil
		})
	}
	return g.Wait()
}

// flushDiagnostics sends the buffered diagnostics to sink in order
// and empties the buffers.
func flushDiagnostics(sink DiagnosticSink, diags []DiagnosticList) {
	for i := range diags {
		if sink != nil {
			for _, d := range diags[i] {
				sink.Report(d)
			}
		}
		diags[i] = diags[i][:0]
	}
}
