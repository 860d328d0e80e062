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
)

// NodeType is an enumeration of the variants a [Node] can take.
type NodeType uint16

const (
	RootType NodeType = 1 + iota
	HeadingType
	ThematicBreakType
	ParagraphType
	BlockquoteType
	ListType
	ListItemType
	EmphasisType
	StrongType
	CodeType
	InlineCodeType
	BreakType
	LinkType
	ImageType
	AbbreviationType
	SubscriptType
	SuperscriptType
	DefinitionListType
	DefinitionTermType
	DefinitionDescriptionType
	AdmonitionType
	AdmonitionTitleType
	ContainerType
	CaptionType
	MathType
	InlineMathType
	ContentReferenceType
	FootnoteReferenceType
	FootnoteDefinitionType
	DirectiveType
	DirectiveErrorType
	RoleType
	CommentType
	BlockBreakType
	HTMLType
	TextType

	// TargetType is an explicit target marker.
	// Targets are consumed by [PropagateTargets].
	TargetType

	// RemoveType marks a node that is deleted after compilation.
	RemoveType
	// LiftType marks a node whose children replace it after compilation.
	LiftType
	// HeaderTargetType marks a label that is moved onto the next node
	// in document order after compilation.
	HeaderTargetType

	nodeTypeEnd
)

var nodeTypeNames = [...]string{
	RootType:                  "root",
	HeadingType:               "heading",
	ThematicBreakType:         "thematicBreak",
	ParagraphType:             "paragraph",
	BlockquoteType:            "blockquote",
	ListType:                  "list",
	ListItemType:              "listItem",
	EmphasisType:              "emphasis",
	StrongType:                "strong",
	CodeType:                  "code",
	InlineCodeType:            "inlineCode",
	BreakType:                 "break",
	LinkType:                  "link",
	ImageType:                 "image",
	AbbreviationType:          "abbreviation",
	SubscriptType:             "subscript",
	SuperscriptType:           "superscript",
	DefinitionListType:        "definitionList",
	DefinitionTermType:        "definitionTerm",
	DefinitionDescriptionType: "definitionDescription",
	AdmonitionType:            "admonition",
	AdmonitionTitleType:       "admonitionTitle",
	ContainerType:             "container",
	CaptionType:               "caption",
	MathType:                  "math",
	InlineMathType:            "inlineMath",
	ContentReferenceType:      "contentReference",
	FootnoteReferenceType:     "footnoteReference",
	FootnoteDefinitionType:    "footnoteDefinition",
	DirectiveType:             "directive",
	DirectiveErrorType:        "directiveError",
	RoleType:                  "role",
	CommentType:               "comment",
	BlockBreakType:            "blockBreak",
	HTMLType:                  "html",
	TextType:                  "text",
	TargetType:                "mystTarget",
	RemoveType:                "_remove",
	LiftType:                  "_lift",
	HeaderTargetType:          "_headerTarget",
}

// String returns the mdast name of the type, like "heading".
func (typ NodeType) String() string {
	if typ == 0 || typ >= nodeTypeEnd {
		return "NodeType(" + strconv.Itoa(int(typ)) + ")"
	}
	return nodeTypeNames[typ]
}

// IsSentinel reports whether nodes of the type
// only exist while a tree is being compiled.
func (typ NodeType) IsSentinel() bool {
	return typ == RemoveType || typ == LiftType || typ == HeaderTargetType
}

// IsReference reports whether nodes of the type
// point at a target by identifier rather than declaring one.
func (typ NodeType) IsReference() bool {
	return typ == ContentReferenceType || typ == FootnoteReferenceType
}

// MarshalText returns the type's name.
func (typ NodeType) MarshalText() ([]byte, error) {
	if typ == 0 || typ >= nodeTypeEnd {
		return nil, fmt.Errorf("marshal node type: %w %d", ErrUnknownNodeType, uint16(typ))
	}
	return []byte(nodeTypeNames[typ]), nil
}

// UnmarshalText parses a type name as returned by [NodeType.String].
func (typ *NodeType) UnmarshalText(text []byte) error {
	t, err := ParseNodeType(string(text))
	if err != nil {
		return err
	}
	*typ = t
	return nil
}

// ParseNodeType returns the type with the given name.
// "remove" and "lift" are accepted as aliases for the sentinel types.
func ParseNodeType(name string) (NodeType, error) {
	switch name {
	case "remove":
		return RemoveType, nil
	case "lift":
		return LiftType, nil
	case "headerTarget":
		return HeaderTargetType, nil
	}
	for typ := RootType; typ < nodeTypeEnd; typ++ {
		if nodeTypeNames[typ] == name {
			return typ, nil
		}
	}
	return 0, fmt.Errorf("parse node type %q: %w", name, ErrUnknownNodeType)
}

// ReferenceStatus describes the outcome of resolving a reference node.
type ReferenceStatus uint8

const (
	// ReferencePending is the status of a reference
	// that has not been through [ResolveReferences].
	ReferencePending ReferenceStatus = iota
	// ReferenceResolved means the reference found its target.
	ReferenceResolved
	// ReferenceUnresolved means no target has the reference's identifier.
	ReferenceUnresolved
	// ReferenceKindMismatch means the target exists
	// but is not a kind the reference accepts.
	ReferenceKindMismatch
)

var referenceStatusNames = [...]string{
	ReferencePending:      "",
	ReferenceResolved:     "resolved",
	ReferenceUnresolved:   "unresolved",
	ReferenceKindMismatch: "kindMismatch",
}

func (status ReferenceStatus) String() string {
	if int(status) >= len(referenceStatusNames) {
		return "ReferenceStatus(" + strconv.Itoa(int(status)) + ")"
	}
	if status == ReferencePending {
		return "pending"
	}
	return referenceStatusNames[status]
}

// MarshalText returns the status name, or an empty string for pending.
func (status ReferenceStatus) MarshalText() ([]byte, error) {
	if int(status) >= len(referenceStatusNames) {
		return nil, fmt.Errorf("marshal reference status: unknown value %d", uint8(status))
	}
	return []byte(referenceStatusNames[status]), nil
}

// Position is a location in the source document.
// The zero value means the position is unknown.
type Position struct {
	// Line is the 1-based line number.
	Line int `json:"line,omitempty"`
}

// IsValid reports whether the position refers to a line.
func (pos Position) IsValid() bool {
	return pos.Line > 0
}

func (pos Position) String() string {
	if !pos.IsValid() {
		return "-"
	}
	return strconv.Itoa(pos.Line)
}

// Node is an element of a compiled document tree.
// Every node is exclusively owned by its parent.
type Node struct {
	Type     NodeType `json:"type"`
	Children []*Node  `json:"children,omitempty"`
	Position Position `json:"position,omitzero"`

	// Identifier is the normalized label used for lookups.
	Identifier string `json:"identifier,omitempty"`
	// Label is the label as the author wrote it.
	Label string `json:"label,omitempty"`
	// HTMLID is an anchor-safe form of the identifier.
	HTMLID string `json:"html_id,omitempty"`
	// Implicit is true if the label was inferred from content.
	Implicit bool `json:"implicit,omitempty"`

	Depth    int    `json:"depth,omitempty"`
	Ordered  bool   `json:"ordered,omitempty"`
	Start    int    `json:"start,omitempty"`
	Spread   bool   `json:"spread,omitempty"`
	Value    string `json:"value,omitempty"`
	Lang     string `json:"lang,omitempty"`
	URL      string `json:"url,omitempty"`
	Title    string `json:"title,omitempty"`
	Alt      string `json:"alt,omitempty"`
	Class    string `json:"class,omitempty"`
	Width    string `json:"width,omitempty"`
	Align    string `json:"align,omitempty"`
	Kind     string `json:"kind,omitempty"`
	Args     string `json:"args,omitempty"`
	Numbered bool   `json:"numbered,omitempty"`

	// Enumerator is the number assigned by [EnumerateTargets].
	Enumerator string `json:"enumerator,omitempty"`
	// Status is set on reference nodes by [ResolveReferences].
	Status ReferenceStatus `json:"status,omitempty"`
	// Document names the document that owns a resolved reference's target.
	Document string `json:"document,omitempty"`

	// Data holds attributes set by custom handlers.
	Data map[string]string `json:"data,omitempty"`
}

// ChildCount returns the number of children the node has.
// Calling ChildCount on nil returns 0.
func (n *Node) ChildCount() int {
	if n == nil {
		return 0
	}
	return len(n.Children)
}

// Child returns the i'th child of the node.
func (n *Node) Child(i int) *Node {
	return n.Children[i]
}

// IsLabeled reports whether the node carries an identifier.
func (n *Node) IsLabeled() bool {
	return n != nil && n.Identifier != ""
}

// Clone returns a deep copy of the node.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	n2 := new(Node)
	*n2 = *n
	if n.Children != nil {
		n2.Children = make([]*Node, len(n.Children))
		for i, c := range n.Children {
			n2.Children[i] = c.Clone()
		}
	}
	if n.Data != nil {
		n2.Data = make(map[string]string, len(n.Data))
		for k, v := range n.Data {
			n2.Data[k] = v
		}
	}
	return n2
}

// setLabel copies the label fields of src onto n.
func (n *Node) setLabel(src *Node) {
	n.Identifier = src.Identifier
	n.Label = src.Label
	n.HTMLID = src.HTMLID
}
