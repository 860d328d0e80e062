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
	"testing"

	"github.com/google/go-cmp/cmp"
)

// labeled returns n with its label fields set from label.
func labeled(n *Node, label string) *Node {
	setLabelFrom(n, label)
	return n
}

func figureNode(label string, caption string) *Node {
	n := &Node{Type: ContainerType, Kind: "figure", Numbered: true, Children: []*Node{}}
	if caption != "" {
		n.Children = append(n.Children, &Node{Type: CaptionType, Children: []*Node{textNode(caption)}})
	}
	return labeled(n, label)
}

func headingNode(depth int, text string) *Node {
	return &Node{Type: HeadingType, Depth: depth, Children: []*Node{textNode(text)}}
}

func TestRegisterTargetDuplicate(t *testing.T) {
	var diags DiagnosticList
	state := NewReferenceState("doc", nil)
	first := figureNode("fig-1", "First")
	second := figureNode("fig-1", "Second")
	third := figureNode("fig-2", "")

	if got, ok := state.RegisterTarget(first, "figure", &diags); got != "1" || !ok {
		t.Errorf("RegisterTarget(first) = %q, %t; want \"1\", true", got, ok)
	}
	if got, ok := state.RegisterTarget(second, "figure", &diags); got != "" || ok {
		t.Errorf("RegisterTarget(second) = %q, %t; want \"\", false", got, ok)
	}
	if got, ok := state.RegisterTarget(third, "figure", &diags); got != "2" || !ok {
		t.Errorf("RegisterTarget(third) = %q, %t; want \"2\", true", got, ok)
	}
	// Registering the same node again is a no-op.
	if got, ok := state.RegisterTarget(first, "figure", &diags); got != "1" || !ok {
		t.Errorf("RegisterTarget(first) again = %q, %t; want \"1\", true", got, ok)
	}

	if diff := cmp.Diff([]Code{CodeDuplicateLabel}, diags.Codes()); diff != "" {
		t.Errorf("diagnostic codes (-want +got):\n%s", diff)
	}
	if got := diags[0].Document; got != "doc" {
		t.Errorf("diagnostic document = %q; want %q", got, "doc")
	}
	target, ok := state.Lookup("fig-1")
	if !ok {
		t.Fatal("Lookup(\"fig-1\") failed")
	}
	if target.Node != first || target.Title != "First" {
		t.Errorf("Lookup(\"fig-1\") = %+v; want first figure", target)
	}
	if got := len(state.Targets()); got != 2 {
		t.Errorf("len(Targets()) = %d; want 2", got)
	}
}

func TestRegisterTargetUnlabeled(t *testing.T) {
	state := NewReferenceState("", nil)
	if got, ok := state.RegisterTarget(&Node{Type: ContainerType}, "figure", nil); got != "" || ok {
		t.Errorf("RegisterTarget(unlabeled) = %q, %t; want \"\", false", got, ok)
	}
}

func TestEnumerateTargets(t *testing.T) {
	eq1 := labeled(&Node{Type: MathType, Value: "a"}, "eq-a")
	eq2 := labeled(&Node{Type: MathType, Value: "b"}, "eq-b")
	root := rootNode(
		headingNode(1, "One"),
		figureNode("fig-a", "A"),
		headingNode(2, "One A"),
		eq1,
		figureNode("fig-b", "B"),
		headingNode(2, "One B"),
		headingNode(1, "Two"),
		headingNode(2, "Two A"),
		eq2,
		labeled(&Node{Type: ParagraphType, Children: []*Node{textNode("p")}}, "para"),
		&Node{Type: ContentReferenceType, Kind: RefKind, Identifier: "para", Label: "para"},
	)
	LabelHeadings(root)
	state := NewReferenceState("doc", nil)
	var diags DiagnosticList
	EnumerateTargets(root, state, &diags)
	if len(diags) > 0 {
		t.Errorf("unexpected diagnostics: %v", diags)
	}

	got := make(map[string]string)
	for _, target := range state.Targets() {
		got[target.Identifier] = target.Enumerator
	}
	want := map[string]string{
		"one":   "1",
		"fig-a": "1",
		"one-a": "1.1",
		"eq-a":  "1",
		"fig-b": "2",
		"one-b": "1.2",
		"two":   "2",
		"two-a": "2.1",
		"eq-b":  "2",
		"para":  "",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("enumerators (-want +got):\n%s", diff)
	}
	if eq2.Enumerator != "2" {
		t.Errorf("second equation Enumerator = %q; want \"2\"", eq2.Enumerator)
	}
	if ref := root.Children[len(root.Children)-1]; ref.Enumerator != "" {
		t.Errorf("reference Enumerator = %q; want \"\"", ref.Enumerator)
	}
}

func TestEnumerateTargetsHeadingLevels(t *testing.T) {
	type heading struct {
		depth int
		text  string
	}
	tests := []struct {
		name     string
		headings []heading
		want     []string
	}{
		{
			name:     "ShallowerLater",
			headings: []heading{{2, "Intro"}, {1, "Part"}, {2, "Sub"}},
			want:     []string{"0.1", "1", "1.1"},
		},
		{
			name:     "StartsAtSecondLevel",
			headings: []heading{{2, "A"}, {3, "A.1"}, {2, "B"}},
			want:     []string{"1", "1.1", "2"},
		},
		{
			name:     "SkippedLevel",
			headings: []heading{{1, "A"}, {3, "Deep"}, {2, "B"}},
			want:     []string{"1", "1.0.1", "1.1"},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var nodes []*Node
			for _, h := range test.headings {
				nodes = append(nodes, headingNode(h.depth, h.text))
			}
			root := rootNode(nodes...)
			LabelHeadings(root)
			EnumerateTargets(root, NewReferenceState("doc", nil), nil)

			got := make([]string, len(nodes))
			for i, n := range nodes {
				got[i] = n.Enumerator
			}
			if diff := cmp.Diff(test.want, got); diff != "" {
				t.Errorf("heading enumerators (-want +got):\n%s", diff)
			}
			seen := make(map[string]bool)
			for _, e := range got {
				if seen[e] {
					t.Errorf("enumerator %q assigned twice", e)
				}
				seen[e] = true
			}
		})
	}
}

func TestEnumerateTargetsDisabledKind(t *testing.T) {
	opts := &NumberingOptions{Kinds: map[string]KindNumbering{
		"figure":  {Enabled: false},
		"heading": {Enabled: false},
		"aside":   {Enabled: true},
	}}
	fig := figureNode("fig", "")
	aside := labeled(&Node{Type: ContainerType, Kind: "aside", Numbered: true}, "side")
	h := headingNode(1, "Title")
	root := rootNode(h, fig, aside)
	LabelHeadings(root)
	state := NewReferenceState("", opts)
	EnumerateTargets(root, state, nil)

	if fig.Enumerator != "" {
		t.Errorf("figure Enumerator = %q; want \"\"", fig.Enumerator)
	}
	if h.Enumerator != "" {
		t.Errorf("heading Enumerator = %q; want \"\"", h.Enumerator)
	}
	if aside.Enumerator != "1" {
		t.Errorf("aside Enumerator = %q; want \"1\"", aside.Enumerator)
	}
	if _, ok := state.Lookup("fig"); !ok {
		t.Error("unnumbered figure not registered")
	}
}

func TestExplicitLabelReplacesImplicit(t *testing.T) {
	h := headingNode(1, "Intro")
	p := labeled(&Node{Type: ParagraphType, Children: []*Node{textNode("x")}}, "intro")
	root := rootNode(h, p)
	LabelHeadings(root)

	var diags DiagnosticList
	state := NewReferenceState("", nil)
	EnumerateTargets(root, state, &diags)
	if len(diags) > 0 {
		t.Errorf("unexpected diagnostics: %v", diags)
	}
	target, ok := state.Lookup("intro")
	if !ok || target.Node != p {
		t.Errorf("Lookup(\"intro\") = %+v, %t; want paragraph", target, ok)
	}
	if got := len(state.Targets()); got != 1 {
		t.Errorf("len(Targets()) = %d; want 1", got)
	}
}

func TestLookupHTMLIDForm(t *testing.T) {
	h := headingNode(2, "Getting Started")
	root := rootNode(h)
	LabelHeadings(root)
	state := NewReferenceState("", nil)
	EnumerateTargets(root, state, nil)

	for _, identifier := range []string{"getting-started", "getting started"} {
		target, ok := state.Lookup(identifier)
		if !ok || target.Node != h {
			t.Errorf("Lookup(%q) = %+v, %t; want heading", identifier, target, ok)
		}
	}
	if _, ok := state.Lookup("getting"); ok {
		t.Error("Lookup(\"getting\") succeeded")
	}
}

func TestProjectState(t *testing.T) {
	opts := &NumberingOptions{Kinds: map[string]KindNumbering{
		"figure": {Enabled: true, Scope: ScopeProject},
	}}
	project := NewProjectState(opts)
	a := project.AddDocument("a.md")
	b := project.AddDocument("b.md")
	if again := project.AddDocument("a.md"); again != a {
		t.Error("AddDocument(\"a.md\") twice returned different states")
	}
	if diff := cmp.Diff([]string{"a.md", "b.md"}, project.DocumentOrder()); diff != "" {
		t.Errorf("DocumentOrder() (-want +got):\n%s", diff)
	}

	aRoot := rootNode(headingNode(1, "Alpha"), figureNode("fig-x", ""), figureNode("shared", "A"))
	bRoot := rootNode(headingNode(1, "Beta"), figureNode("fig-y", ""), figureNode("shared", "B"))
	LabelHeadings(aRoot)
	LabelHeadings(bRoot)
	var diags DiagnosticList
	EnumerateTargets(aRoot, a, &diags)
	EnumerateTargets(bRoot, b, &diags)
	if len(diags) > 0 {
		t.Errorf("unexpected diagnostics: %v", diags)
	}

	tests := []struct {
		from           string
		identifier     string
		wantDocument   string
		wantEnumerator string
	}{
		{"a.md", "fig-x", "a.md", "1"},
		{"a.md", "fig-y", "b.md", "3"},
		{"b.md", "fig-x", "a.md", "1"},
		{"a.md", "shared", "a.md", "2"},
		{"b.md", "shared", "b.md", "4"},
		{"c.md", "shared", "a.md", "2"},
		{"a.md", "beta", "b.md", "1"},
		{"b.md", "beta", "b.md", "1"},
	}
	for _, test := range tests {
		target, ok := project.ResolverFor(test.from).Lookup(test.identifier)
		if !ok {
			t.Errorf("Lookup(%q, %q) failed", test.from, test.identifier)
			continue
		}
		if target.Document != test.wantDocument || target.Enumerator != test.wantEnumerator {
			t.Errorf("Lookup(%q, %q) = {Document: %q, Enumerator: %q}; want {Document: %q, Enumerator: %q}",
				test.from, test.identifier, target.Document, target.Enumerator, test.wantDocument, test.wantEnumerator)
		}
	}
	if _, ok := project.Lookup("a.md", "nope"); ok {
		t.Error("Lookup(\"a.md\", \"nope\") succeeded")
	}
}
