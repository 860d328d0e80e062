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

// PropagateTargets attaches the label of every explicit target node
// ([TargetType]) to the node that follows it in document order
// and removes the target nodes from the tree.
// A node that already has a label is relabeled.
// Targets with no following node are dropped
// and reported to sink as [CodeDanglingTarget].
//
// PropagateTargets is idempotent:
// a second call on its own output does nothing.
func PropagateTargets(root *Node, sink DiagnosticSink) {
	nodes := Preorder(root)
	found := false
	r := reporter{sink: sink}
	for i, n := range nodes {
		if n.Type != TargetType {
			continue
		}
		found = true
		norm, ok := NormalizeLabel(n.Label)
		if !ok {
			continue
		}
		next := nextInDocumentOrder(nodes, i, func(m *Node) bool {
			return m.Type == TargetType
		})
		if next == nil {
			r.report(SeverityWarning, CodeDanglingTarget, n.Position, norm.Identifier,
				"target %q is not followed by any content", norm.Label)
			continue
		}
		next.Identifier = norm.Identifier
		next.Label = norm.Label
		next.HTMLID = norm.HTMLID
		next.Implicit = false
	}
	if found {
		removeType(root, TargetType)
	}
}

// LabelHeadings gives every unlabeled heading an implicit label
// derived from its text.
// The heading's identifier is the anchor-safe form of the text
// so that it can be used directly as a URL fragment.
// Headings labeled by an explicit target keep their label.
func LabelHeadings(root *Node) {
	for _, h := range SelectAll(root, HeadingType) {
		if h.Identifier != "" || h.Label != "" {
			continue
		}
		norm, ok := NormalizeLabel(ToText(h.Children))
		if !ok || norm.HTMLID == "" {
			continue
		}
		h.Identifier = norm.HTMLID
		h.HTMLID = norm.HTMLID
		h.Label = norm.Label
		h.Implicit = true
	}
}
