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
	"fmt"
	"strconv"
	"strings"
)

// NumberingScope is the namespace a kind's counter runs in.
type NumberingScope int8

const (
	// ScopeDocument counters restart in every document.
	ScopeDocument NumberingScope = iota
	// ScopeProject counters continue across the documents of a project.
	ScopeProject
)

func (scope NumberingScope) String() string {
	switch scope {
	case ScopeDocument:
		return "document"
	case ScopeProject:
		return "project"
	default:
		return "NumberingScope(" + strconv.Itoa(int(scope)) + ")"
	}
}

// MarshalText returns the scope's name.
func (scope NumberingScope) MarshalText() ([]byte, error) {
	return []byte(scope.String()), nil
}

// UnmarshalText parses "document" or "project".
func (scope *NumberingScope) UnmarshalText(text []byte) error {
	switch string(text) {
	case "", "document":
		*scope = ScopeDocument
	case "project":
		*scope = ScopeProject
	default:
		return fmt.Errorf("unknown numbering scope %q", text)
	}
	return nil
}

// KindNumbering is the numbering policy for one target kind.
type KindNumbering struct {
	Enabled bool
	Scope   NumberingScope
}

// NumberingOptions selects which target kinds are numbered.
// A nil *NumberingOptions numbers the default kinds
// (see [DefaultNumberedKinds]) per document.
type NumberingOptions struct {
	// Kinds overrides the policy for individual kinds.
	// Kinds not present use the default policy.
	Kinds map[string]KindNumbering
}

// DefaultNumberedKinds is the list of kinds numbered by default.
var DefaultNumberedKinds = []string{"heading", "figure", "table", "code", "equation", "footnote"}

func (opts *NumberingOptions) policy(kind string) KindNumbering {
	if opts != nil {
		if p, ok := opts.Kinds[kind]; ok {
			return p
		}
	}
	for _, k := range DefaultNumberedKinds {
		if k == kind {
			return KindNumbering{Enabled: true}
		}
	}
	return KindNumbering{}
}

// A Target is a labeled node registered in a [ReferenceState].
type Target struct {
	Identifier string
	Label      string
	HTMLID     string
	Kind       string
	// Enumerator is the target's number, or empty if unnumbered.
	Enumerator string
	// Document is the name of the document that declares the target.
	Document string
	// Title is the display text of the target:
	// a heading's text or a container's caption.
	Title    string
	Implicit bool
	Node     *Node
}

// counterSet holds the running counters of one numbering namespace.
type counterSet struct {
	counts   map[string]int
	headings [6]int
}

func (cs *counterSet) next(kind string) string {
	if cs.counts == nil {
		cs.counts = make(map[string]int)
	}
	cs.counts[kind]++
	return strconv.Itoa(cs.counts[kind])
}

// nextHeading advances the heading counters for a heading at level
// and returns the hierarchical number, like "2.1".
// Levels above the heading that have not been seen yet are written as 0,
// so every heading gets a distinct number.
func (cs *counterSet) nextHeading(level int) string {
	level = min(max(level, 1), len(cs.headings))
	cs.headings[level-1]++
	for i := level; i < len(cs.headings); i++ {
		cs.headings[i] = 0
	}
	sb := new(strings.Builder)
	for i, n := range cs.headings[:level] {
		if i > 0 {
			sb.WriteByte('.')
		}
		sb.WriteString(strconv.Itoa(n))
	}
	return sb.String()
}

// ReferenceState is the registry of the targets of one document.
// A ReferenceState must not be modified concurrently:
// callers serialize calls to [*ReferenceState.RegisterTarget],
// including across the documents of a [ProjectState].
type ReferenceState struct {
	document string
	opts     *NumberingOptions
	project  *ProjectState
	counters counterSet
	targets  map[string]*Target
	order    []*Target
	// headingBase is the depth numbered as the first level.
	headingBase int
}

// NewReferenceState returns an empty registry for the named document.
func NewReferenceState(document string, opts *NumberingOptions) *ReferenceState {
	return &ReferenceState{
		document: document,
		opts:     opts,
		targets:  make(map[string]*Target),
	}
}

// Document returns the name of the document the state belongs to.
func (s *ReferenceState) Document() string {
	return s.document
}

func (s *ReferenceState) countersFor(kind string) *counterSet {
	if s.project != nil && s.opts.policy(kind).Scope == ScopeProject {
		return &s.project.counters
	}
	return &s.counters
}

// RegisterTarget records n as the target for its identifier
// and assigns it the next number for kind if kind is numbered.
// It returns the assigned enumerator (empty for unnumbered kinds)
// and whether n was registered.
//
// The first registration of an identifier wins,
// except that an explicit label replaces an implicit one.
// A later explicit target with the same identifier
// is reported to sink as [CodeDuplicateLabel]
// and left unregistered and unnumbered;
// later implicit ones are ignored silently.
// Headings always advance the section counters
// so that section numbers follow the document structure.
func (s *ReferenceState) RegisterTarget(n *Node, kind string, sink DiagnosticSink) (enumerator string, ok bool) {
	if !n.IsLabeled() {
		return "", false
	}
	policy := s.opts.policy(kind)
	counters := s.countersFor(kind)

	existing := s.targets[n.Identifier]
	if existing != nil && existing.Node == n {
		return existing.Enumerator, true
	}
	if existing != nil && !(existing.Implicit && !n.Implicit) {
		if kind == "heading" && policy.Enabled {
			counters.nextHeading(s.headingLevel(n.Depth))
		}
		if !n.Implicit {
			r := reporter{sink: sink, document: s.document}
			r.report(SeverityWarning, CodeDuplicateLabel, n.Position, n.Identifier,
				"duplicate label %q (first declared as a %s)", n.Label, existing.Kind)
		}
		return "", false
	}

	if policy.Enabled {
		if kind == "heading" {
			enumerator = counters.nextHeading(s.headingLevel(n.Depth))
		} else {
			enumerator = counters.next(kind)
		}
	}
	t := &Target{
		Identifier: n.Identifier,
		Label:      n.Label,
		HTMLID:     n.HTMLID,
		Kind:       kind,
		Enumerator: enumerator,
		Document:   s.document,
		Title:      targetTitle(n),
		Implicit:   n.Implicit,
		Node:       n,
	}
	if t.HTMLID == "" {
		t.HTMLID = CreateHTMLID(t.Identifier)
	}
	s.targets[t.Identifier] = t
	s.order = append(s.order, t)
	if s.project != nil {
		s.project.index.add(t)
	}
	return enumerator, true
}

// SetHeadingBase sets the heading depth that is numbered as the first level,
// usually the depth of the shallowest heading in the document.
// A document whose headings start at "##" then numbers them "1", "2",
// instead of "0.1", "0.2".
// [EnumerateTargets] sets the base from the tree it enumerates.
func (s *ReferenceState) SetHeadingBase(depth int) {
	s.headingBase = depth
}

// headingLevel returns the counter level of a heading at depth.
func (s *ReferenceState) headingLevel(depth int) int {
	if s.headingBase < 1 {
		return depth
	}
	return depth - s.headingBase + 1
}

// Lookup returns the target registered for the given identifier.
// If no target uses the identifier verbatim,
// Lookup tries the anchor form of the identifier,
// which matches implicit heading labels.
func (s *ReferenceState) Lookup(identifier string) (*Target, bool) {
	if t := s.targets[identifier]; t != nil {
		return t, true
	}
	if t := s.targets[CreateHTMLID(identifier)]; t != nil && t.Implicit {
		return t, true
	}
	return nil, false
}

// Targets returns the registered targets in registration order.
// Targets replaced by a later explicit label are not included.
func (s *ReferenceState) Targets() []*Target {
	targets := make([]*Target, 0, len(s.targets))
	for _, t := range s.order {
		if s.targets[t.Identifier] == t {
			targets = append(targets, t)
		}
	}
	return targets
}

// targetTitle returns the display text of a target node.
func targetTitle(n *Node) string {
	switch n.Type {
	case HeadingType:
		return ToText(n.Children)
	case ContainerType:
		for _, c := range n.Children {
			if c.Type == CaptionType {
				return strings.TrimSpace(ToText(c.Children))
			}
		}
	}
	return ""
}

// A Resolver looks up targets by identifier.
// [*ReferenceState] is a Resolver for a single document,
// and [*ProjectState.ResolverFor] returns one for a document in a project.
type Resolver interface {
	Lookup(identifier string) (*Target, bool)
}

// ResolverFunc is a function that implements [Resolver].
type ResolverFunc func(identifier string) (*Target, bool)

// Lookup calls f(identifier).
func (f ResolverFunc) Lookup(identifier string) (*Target, bool) {
	return f(identifier)
}

// ProjectState is the registry of an ordered collection of documents
// that share a numbering namespace.
// Like [ReferenceState], it must not be modified concurrently.
type ProjectState struct {
	opts     *NumberingOptions
	docs     []*ReferenceState
	byName   map[string]*ReferenceState
	index    targetIndex
	counters counterSet
}

// targetIndex maps identifiers to the first target declared in project order.
type targetIndex map[string]*Target

func (idx targetIndex) add(t *Target) {
	if prev := idx[t.Identifier]; prev == nil || prev.Implicit && !t.Implicit {
		idx[t.Identifier] = t
	}
}

// NewProjectState returns an empty project registry.
func NewProjectState(opts *NumberingOptions) *ProjectState {
	return &ProjectState{
		opts:   opts,
		byName: make(map[string]*ReferenceState),
		index:  make(targetIndex),
	}
}

// AddDocument appends a document to the project order
// and returns its registry.
// Adding a document that is already in the project
// returns its existing registry.
func (p *ProjectState) AddDocument(document string) *ReferenceState {
	if s := p.byName[document]; s != nil {
		return s
	}
	s := NewReferenceState(document, p.opts)
	s.project = p
	p.docs = append(p.docs, s)
	p.byName[document] = s
	return s
}

// Document returns the registry of the named document or nil.
func (p *ProjectState) Document(document string) *ReferenceState {
	return p.byName[document]
}

// DocumentOrder returns the names of the documents
// in the order they were added.
func (p *ProjectState) DocumentOrder() []string {
	names := make([]string, len(p.docs))
	for i, s := range p.docs {
		names[i] = s.document
	}
	return names
}

// Lookup finds the target for identifier as seen from the document from:
// the document's own targets come first,
// then the first document in project order that declares the identifier.
func (p *ProjectState) Lookup(from, identifier string) (*Target, bool) {
	if s := p.byName[from]; s != nil {
		if t, ok := s.Lookup(identifier); ok {
			return t, true
		}
	}
	if t := p.index[identifier]; t != nil {
		return t, true
	}
	if t := p.index[CreateHTMLID(identifier)]; t != nil && t.Implicit {
		return t, true
	}
	return nil, false
}

// ResolverFor returns a [Resolver] that looks up identifiers
// as seen from the named document.
func (p *ProjectState) ResolverFor(document string) Resolver {
	return ResolverFunc(func(identifier string) (*Target, bool) {
		return p.Lookup(document, identifier)
	})
}
