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
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func refNode(kind, label, value string) *Node {
	return labeled(&Node{Type: ContentReferenceType, Kind: kind, Value: value}, label)
}

func TestResolveReferences(t *testing.T) {
	heading := labeled(headingNode(1, "Overview"), "overview")
	fig := figureNode("fig-cat", "A cat.")
	eq := labeled(&Node{Type: MathType, Value: "x"}, "eq-x")
	note := labeled(&Node{Type: FootnoteDefinitionType, Children: []*Node{}}, "n1")
	plain := labeled(&Node{Type: ParagraphType, Children: []*Node{textNode("p")}}, "plain")
	state := NewReferenceState("doc.md", nil)
	EnumerateTargets(rootNode(heading, fig, eq, note, plain), state, nil)

	other := &Target{
		Identifier: "elsewhere",
		Label:      "elsewhere",
		HTMLID:     "elsewhere",
		Kind:       "figure",
		Enumerator: "7",
		Document:   "other.md",
	}
	lookup := ResolverFunc(func(identifier string) (*Target, bool) {
		if identifier == other.Identifier {
			return other, true
		}
		return state.Lookup(identifier)
	})

	tests := []struct {
		name      string
		ref       *Node
		opts      *ResolveOptions
		want      *Node
		wantCodes []Code
	}{
		{
			name: "RefHeading",
			ref:  refNode(RefKind, "overview", ""),
			want: &Node{
				Type:       ContentReferenceType,
				Kind:       RefKind,
				Identifier: "overview",
				Label:      "overview",
				HTMLID:     "overview",
				URL:        "#overview",
				Document:   "doc.md",
				Status:     ReferenceResolved,
				Children:   []*Node{textNode("Overview")},
			},
		},
		{
			name: "RefExplicitText",
			ref:  refNode(RefKind, "plain", "the paragraph"),
			want: &Node{
				Type:       ContentReferenceType,
				Kind:       RefKind,
				Identifier: "plain",
				Label:      "plain",
				HTMLID:     "plain",
				Value:      "the paragraph",
				URL:        "#plain",
				Document:   "doc.md",
				Status:     ReferenceResolved,
				Children:   []*Node{textNode("the paragraph")},
			},
		},
		{
			name: "NumrefDefaultTemplate",
			ref:  refNode(NumrefKind, "fig-cat", ""),
			want: &Node{
				Type:       ContentReferenceType,
				Kind:       NumrefKind,
				Identifier: "fig-cat",
				Label:      "fig-cat",
				HTMLID:     "fig-cat",
				URL:        "#fig-cat",
				Document:   "doc.md",
				Status:     ReferenceResolved,
				Children:   []*Node{textNode("Figure 1")},
			},
		},
		{
			name: "NumrefConfiguredTemplate",
			ref:  refNode(NumrefKind, "fig-cat", ""),
			opts: &ResolveOptions{
				Document:  "doc.md",
				Templates: map[string]string{"figure": "Fig. {number}"},
			},
			want: &Node{
				Type:       ContentReferenceType,
				Kind:       NumrefKind,
				Identifier: "fig-cat",
				Label:      "fig-cat",
				HTMLID:     "fig-cat",
				URL:        "#fig-cat",
				Document:   "doc.md",
				Status:     ReferenceResolved,
				Children:   []*Node{textNode("Fig. 1")},
			},
		},
		{
			name: "NumrefInlineTemplate",
			ref:  refNode(NumrefKind, "fig-cat", "{name} (%s)"),
			want: &Node{
				Type:       ContentReferenceType,
				Kind:       NumrefKind,
				Identifier: "fig-cat",
				Label:      "fig-cat",
				HTMLID:     "fig-cat",
				Value:      "{name} (%s)",
				URL:        "#fig-cat",
				Document:   "doc.md",
				Status:     ReferenceResolved,
				Children:   []*Node{textNode("A cat. (1)")},
			},
		},
		{
			name: "Equation",
			ref:  refNode(EqKind, "eq-x", ""),
			want: &Node{
				Type:       ContentReferenceType,
				Kind:       EqKind,
				Identifier: "eq-x",
				Label:      "eq-x",
				HTMLID:     "eq-x",
				URL:        "#eq-x",
				Document:   "doc.md",
				Status:     ReferenceResolved,
				Children:   []*Node{textNode("(1)")},
			},
		},
		{
			name: "Footnote",
			ref:  labeled(&Node{Type: FootnoteReferenceType}, "n1"),
			want: &Node{
				Type:       FootnoteReferenceType,
				Identifier: "n1",
				Label:      "n1",
				HTMLID:     "n1",
				URL:        "#n1",
				Document:   "doc.md",
				Status:     ReferenceResolved,
				Children:   []*Node{textNode("1")},
			},
		},
		{
			name: "OtherDocument",
			ref:  refNode(NumrefKind, "elsewhere", ""),
			want: &Node{
				Type:       ContentReferenceType,
				Kind:       NumrefKind,
				Identifier: "elsewhere",
				Label:      "elsewhere",
				HTMLID:     "elsewhere",
				URL:        "other.md#elsewhere",
				Document:   "other.md",
				Status:     ReferenceResolved,
				Children:   []*Node{textNode("Figure 7")},
			},
		},
		{
			name: "OtherDocumentURL",
			ref:  refNode(RefKind, "elsewhere", ""),
			opts: &ResolveOptions{
				Document: "doc.md",
				DocumentURL: func(from, to string) string {
					if from != "doc.md" {
						return "from-" + from
					}
					return strings.TrimSuffix(to, ".md") + ".html"
				},
			},
			want: &Node{
				Type:       ContentReferenceType,
				Kind:       RefKind,
				Identifier: "elsewhere",
				Label:      "elsewhere",
				HTMLID:     "elsewhere",
				URL:        "other.html#elsewhere",
				Document:   "other.md",
				Status:     ReferenceResolved,
				Children:   []*Node{textNode("Figure 7")},
			},
		},
		{
			name: "Missing",
			ref:  refNode(RefKind, "missing", ""),
			want: &Node{
				Type:       ContentReferenceType,
				Kind:       RefKind,
				Identifier: "missing",
				Label:      "missing",
				HTMLID:     "missing",
				Status:     ReferenceUnresolved,
			},
			wantCodes: []Code{CodeUnresolvedReference},
		},
		{
			name: "EquationKindMismatch",
			ref:  refNode(EqKind, "fig-cat", ""),
			want: &Node{
				Type:       ContentReferenceType,
				Kind:       EqKind,
				Identifier: "fig-cat",
				Label:      "fig-cat",
				HTMLID:     "fig-cat",
				Status:     ReferenceKindMismatch,
			},
			wantCodes: []Code{CodeKindMismatch},
		},
		{
			name: "NumrefUnnumbered",
			ref:  refNode(NumrefKind, "plain", ""),
			want: &Node{
				Type:       ContentReferenceType,
				Kind:       NumrefKind,
				Identifier: "plain",
				Label:      "plain",
				HTMLID:     "plain",
				Status:     ReferenceKindMismatch,
			},
			wantCodes: []Code{CodeKindMismatch},
		},
		{
			name: "FootnoteKindMismatch",
			ref:  labeled(&Node{Type: FootnoteReferenceType}, "overview"),
			want: &Node{
				Type:       FootnoteReferenceType,
				Identifier: "overview",
				Label:      "overview",
				HTMLID:     "overview",
				Status:     ReferenceKindMismatch,
			},
			wantCodes: []Code{CodeKindMismatch},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			opts := test.opts
			if opts == nil {
				opts = &ResolveOptions{Document: "doc.md"}
			}
			root := rootNode(&Node{Type: ParagraphType, Children: []*Node{test.ref}})
			var diags DiagnosticList
			ResolveReferences(root, lookup, opts, &diags)
			if diff := cmp.Diff(test.want, test.ref, treeOptions); diff != "" {
				t.Errorf("reference (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(test.wantCodes, diags.Codes(), cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("diagnostic codes (-want +got):\n%s", diff)
			}
			for _, d := range diags {
				if d.Document != "doc.md" || d.Identifier != test.want.Identifier {
					t.Errorf("diagnostic %v does not name doc.md and %q", d, test.want.Identifier)
				}
			}

			// Resolving again yields the same tree.
			again := root.Clone()
			ResolveReferences(again, lookup, opts, nil)
			if diff := cmp.Diff(root, again, treeOptions); diff != "" {
				t.Errorf("second resolution changed tree (-first +second):\n%s", diff)
			}
		})
	}
}

func TestParseReferenceKind(t *testing.T) {
	for _, name := range []string{RefKind, NumrefKind, EqKind} {
		if got, err := ParseReferenceKind(name); got != name || err != nil {
			t.Errorf("ParseReferenceKind(%q) = %q, %v; want %q, <nil>", name, got, err, name)
		}
	}
	if _, err := ParseReferenceKind("doc"); !errors.Is(err, ErrUnknownReferenceKind) {
		t.Errorf("ParseReferenceKind(\"doc\") error = %v; want %v", err, ErrUnknownReferenceKind)
	}
}

func TestTargetKind(t *testing.T) {
	tests := []struct {
		n    *Node
		want string
	}{
		{&Node{Type: ContainerType}, "figure"},
		{&Node{Type: ContainerType, Kind: "table"}, "table"},
		{&Node{Type: MathType}, "equation"},
		{&Node{Type: HeadingType}, "heading"},
		{&Node{Type: CodeType}, "code"},
		{&Node{Type: FootnoteDefinitionType}, "footnote"},
		{&Node{Type: ParagraphType}, "paragraph"},
	}
	for _, test := range tests {
		if got := TargetKind(test.n); got != test.want {
			t.Errorf("TargetKind(%v node) = %q; want %q", test.n.Type, got, test.want)
		}
	}
}

func TestProcessDocument(t *testing.T) {
	tokens := concatTokens(
		[]Token{
			{Type: "heading_open", Tag: "h1", Nesting: Open, Line: 1},
			inlineToken(textToken("Title")),
			{Type: "heading_close", Tag: "h1", Nesting: Close},
			{Type: "myst_target", Content: "my-target", Line: 2},
		},
		paragraphTokens(textToken("Hello")),
		paragraphTokens(
			Token{Type: "ref", Meta: &TokenMeta{Kind: RefKind, Name: "my-target"}},
			textToken(" and "),
			Token{Type: "ref", Meta: &TokenMeta{Kind: RefKind, Name: "missing"}},
		),
	)
	var diags DiagnosticList
	root, state := ProcessDocument(tokens, &DocumentOptions{
		Document:    "index.md",
		Diagnostics: &diags,
	})

	want := rootNode(
		&Node{
			Type:       HeadingType,
			Depth:      1,
			Identifier: "title",
			Label:      "Title",
			HTMLID:     "title",
			Implicit:   true,
			Enumerator: "1",
			Children:   []*Node{textNode("Title")},
		},
		&Node{
			Type:       ParagraphType,
			Identifier: "my-target",
			Label:      "my-target",
			HTMLID:     "my-target",
			Children:   []*Node{textNode("Hello")},
		},
		&Node{Type: ParagraphType, Children: []*Node{
			{
				Type:       ContentReferenceType,
				Kind:       RefKind,
				Identifier: "my-target",
				Label:      "my-target",
				HTMLID:     "my-target",
				URL:        "#my-target",
				Document:   "index.md",
				Status:     ReferenceResolved,
				Children:   []*Node{textNode("my-target")},
			},
			textNode(" and "),
			{
				Type:       ContentReferenceType,
				Kind:       RefKind,
				Identifier: "missing",
				Label:      "missing",
				HTMLID:     "missing",
				Status:     ReferenceUnresolved,
			},
		}},
	)
	if diff := cmp.Diff(want, root, treeOptions); diff != "" {
		t.Errorf("tree (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]Code{CodeUnresolvedReference}, diags.Codes()); diff != "" {
		t.Errorf("diagnostic codes (-want +got):\n%s", diff)
	}
	if state.Document() != "index.md" {
		t.Errorf("state.Document() = %q; want %q", state.Document(), "index.md")
	}
	if got := len(state.Targets()); got != 2 {
		t.Errorf("len(state.Targets()) = %d; want 2", got)
	}
}
