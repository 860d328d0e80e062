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
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ErrUnknownReferenceKind is returned by [ParseReferenceKind]
// for names that are not cross-reference roles.
var ErrUnknownReferenceKind = errors.New("unknown reference kind")

// Cross-reference kinds carried in the Kind field
// of [ContentReferenceType] nodes.
const (
	// RefKind displays the target's title or label.
	RefKind = "ref"
	// NumrefKind displays the target's number through a template.
	NumrefKind = "numref"
	// EqKind displays an equation number in parentheses.
	EqKind = "eq"
)

// ParseReferenceKind returns the cross-reference kind for a role name.
func ParseReferenceKind(name string) (string, error) {
	switch name {
	case RefKind, NumrefKind, EqKind:
		return name, nil
	default:
		return "", fmt.Errorf("role %q: %w", name, ErrUnknownReferenceKind)
	}
}

// TargetKind returns the numbering kind of a labeled node.
func TargetKind(n *Node) string {
	switch n.Type {
	case ContainerType:
		if n.Kind == "" {
			return "figure"
		}
		return n.Kind
	case MathType:
		return "equation"
	case HeadingType:
		return "heading"
	case CodeType:
		return "code"
	case FootnoteDefinitionType:
		return "footnote"
	default:
		return n.Type.String()
	}
}

// EnumerateTargets registers every labeled node of the tree with state
// in document order
// and stores the number assigned to each one in its Enumerator field.
// Reference nodes are never registered.
// Duplicate labels are reported to sink.
func EnumerateTargets(root *Node, state *ReferenceState, sink DiagnosticSink) {
	if depth := shallowestHeading(root); depth > 0 {
		state.SetHeadingBase(depth)
	}
	Walk(root, &WalkOptions{
		Pre: func(c *Cursor) bool {
			n := c.Node()
			if !n.IsLabeled() || n.Type == RootType || n.Type.IsReference() {
				return true
			}
			if enumerator, ok := state.RegisterTarget(n, TargetKind(n), sink); ok {
				n.Enumerator = enumerator
			}
			return true
		},
	})
}

// shallowestHeading returns the smallest depth of the headings in the tree
// or 0 if there are none.
func shallowestHeading(root *Node) int {
	depth := 0
	for _, h := range SelectAll(root, HeadingType) {
		if depth == 0 || h.Depth < depth {
			depth = h.Depth
		}
	}
	return depth
}

// ResolveOptions is the set of parameters to [ResolveReferences].
type ResolveOptions struct {
	// Document is the name of the document being resolved.
	// Targets in other documents get links prefixed with their document name.
	Document string
	// Templates maps a target kind to the display template
	// used by numbered references, like "Fig. %s".
	// In a template, "%s" and "{number}" are replaced by the target's number
	// and "{name}" by its title.
	Templates map[string]string
	// DocumentURL returns the URL that links from document from
	// to document to.
	// If DocumentURL is nil, the target document's name is used as its URL.
	DocumentURL func(from, to string) string
}

// documentURL returns the URL of a target document
// as linked from the named document.
func (opts *ResolveOptions) documentURL(from, to string) string {
	if opts == nil || opts.DocumentURL == nil {
		return to
	}
	return opts.DocumentURL(from, to)
}

var defaultTemplates = map[string]string{
	"figure":   "Figure %s",
	"table":    "Table %s",
	"code":     "Program %s",
	"equation": "Equation %s",
	"heading":  "Section %s",
}

func (opts *ResolveOptions) template(kind string) string {
	if opts != nil {
		if tmpl := opts.Templates[kind]; tmpl != "" {
			return tmpl
		}
	}
	if tmpl := defaultTemplates[kind]; tmpl != "" {
		return tmpl
	}
	return cases.Title(language.Und).String(kind) + " %s"
}

// ResolveReferences rewrites every cross-reference
// and footnote reference in the tree using lookup.
//
// A resolved reference gets Status [ReferenceResolved],
// a single text child with its display text,
// the target's identifiers, and a URL to the target.
// A reference to an unknown identifier gets Status [ReferenceUnresolved]
// and a reference to a target of the wrong kind
// gets Status [ReferenceKindMismatch];
// both keep their identifier and are reported to sink.
// Resolving an already resolved tree yields the same tree.
func ResolveReferences(root *Node, lookup Resolver, opts *ResolveOptions, sink DiagnosticSink) {
	var document string
	if opts != nil {
		document = opts.Document
	}
	r := reporter{sink: sink, document: document}
	Walk(root, &WalkOptions{
		Pre: func(c *Cursor) bool {
			n := c.Node()
			if !n.Type.IsReference() {
				return true
			}
			resolveReference(n, lookup, opts, r)
			return false
		},
	})
}

func resolveReference(n *Node, lookup Resolver, opts *ResolveOptions, r reporter) {
	if n.Identifier == "" {
		setLabelFrom(n, n.Label)
	}
	t, ok := lookup.Lookup(n.Identifier)
	if !ok {
		n.Status = ReferenceUnresolved
		r.report(SeverityWarning, CodeUnresolvedReference, n.Position, n.Identifier,
			"reference target %q not found", n.Label)
		return
	}

	var text string
	mismatch := func(format string, args ...any) {
		n.Status = ReferenceKindMismatch
		r.report(SeverityWarning, CodeKindMismatch, n.Position, n.Identifier, format, args...)
	}
	if n.Type == FootnoteReferenceType {
		if t.Kind != "footnote" {
			mismatch("footnote reference %q points to a %s", n.Label, t.Kind)
			return
		}
		text = orDefault(t.Enumerator, t.Label)
	} else {
		switch n.Kind {
		case NumrefKind:
			if t.Enumerator == "" {
				mismatch("numbered reference %q points to an unnumbered %s", n.Label, t.Kind)
				return
			}
			tmpl := n.Value
			if tmpl == "" {
				tmpl = opts.template(t.Kind)
			}
			text = fillTemplate(tmpl, t)
		case EqKind:
			if t.Kind != "equation" {
				mismatch("equation reference %q points to a %s", n.Label, t.Kind)
				return
			}
			if t.Enumerator == "" {
				text = t.Label
			} else {
				text = "(" + t.Enumerator + ")"
			}
		default:
			text = refText(n, t, opts)
		}
	}

	n.Status = ReferenceResolved
	n.Identifier = t.Identifier
	n.HTMLID = t.HTMLID
	n.Document = t.Document
	n.URL = "#" + t.HTMLID
	if t.Document != "" && t.Document != r.document {
		n.URL = opts.documentURL(r.document, t.Document) + n.URL
	}
	n.Children = []*Node{{Type: TextType, Value: text, Position: n.Position}}
}

// refText returns the display text of a plain cross-reference.
func refText(n *Node, t *Target, opts *ResolveOptions) string {
	if n.Value != "" {
		return fillTemplate(n.Value, t)
	}
	if t.Title != "" {
		return t.Title
	}
	if t.Kind != "heading" && t.Enumerator != "" {
		return fillTemplate(opts.template(t.Kind), t)
	}
	return orDefault(t.Label, t.Identifier)
}

// fillTemplate expands a display template for a target.
func fillTemplate(tmpl string, t *Target) string {
	return strings.NewReplacer(
		"%s", t.Enumerator,
		"{number}", t.Enumerator,
		"{name}", orDefault(t.Title, t.Label),
	).Replace(tmpl)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
