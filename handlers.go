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
	"html"
	"strconv"
	"strings"
)

// A Rule describes how the compiler turns a token into a [Node].
type Rule struct {
	// Type is the type of the node produced.
	// [RemoveType] and [LiftType] produce nodes
	// that are rewritten after compilation.
	Type NodeType
	// IsLeaf is true if the node never has children.
	IsLeaf bool
	// NoCloseToken is true if the token does not come in open/close pairs.
	NoCloseToken bool
	// IsText is true if the token's content is stored in the node's Value
	// instead of as child nodes.
	IsText bool
	// GetAttrs, if not nil, sets the variant-specific fields of n
	// from tokens[i].
	// The full token slice is provided so that GetAttrs can look ahead.
	GetAttrs func(n *Node, tokens []Token, i int)
}

// HandlerTable maps a token name (see [Token.Name]) to its [Rule].
type HandlerTable map[string]Rule

// Merge returns a new table with the entries of overrides
// replacing the entries of h with the same name.
// Neither h nor overrides is modified.
func (h HandlerTable) Merge(overrides HandlerTable) HandlerTable {
	merged := make(HandlerTable, len(h)+len(overrides))
	for name, rule := range h {
		merged[name] = rule
	}
	for name, rule := range overrides {
		merged[name] = rule
	}
	return merged
}

// DefaultHandlers returns a new copy of the handler table
// for the MyST token stream.
func DefaultHandlers() HandlerTable {
	return HandlerTable(nil).Merge(defaultHandlers)
}

var defaultHandlers = HandlerTable{
	"heading": {
		Type: HeadingType,
		GetAttrs: func(n *Node, tokens []Token, i int) {
			if tag := tokens[i].Tag; len(tag) == 2 && tag[0] == 'h' {
				n.Depth = int(tag[1] - '0')
			}
			if n.Depth < 1 || n.Depth > 6 {
				n.Depth = 1
			}
		},
	},
	"hr": {
		Type:         ThematicBreakType,
		NoCloseToken: true,
		IsLeaf:       true,
	},
	"paragraph":  {Type: ParagraphType},
	"blockquote": {Type: BlockquoteType},
	"ordered_list": {
		Type: ListType,
		GetAttrs: func(n *Node, tokens []Token, i int) {
			n.Ordered = true
			n.Start = 1
			if i+1 < len(tokens) {
				if start, err := strconv.Atoi(tokens[i+1].Info); err == nil {
					n.Start = start
				}
			}
		},
	},
	"bullet_list": {Type: ListType},
	"list_item": {
		Type: ListItemType,
		GetAttrs: func(n *Node, tokens []Token, i int) {
			n.Spread = true
		},
	},
	"em":     {Type: EmphasisType},
	"strong": {Type: StrongType},
	"fence": {
		Type:     CodeType,
		IsLeaf:   true,
		GetAttrs: codeAttrs,
	},
	"code_block": {
		Type:     CodeType,
		IsLeaf:   true,
		GetAttrs: codeAttrs,
	},
	"code_inline": {
		Type:         InlineCodeType,
		NoCloseToken: true,
		IsText:       true,
	},
	"hardbreak": {
		Type:         BreakType,
		NoCloseToken: true,
		IsLeaf:       true,
	},
	"link": {
		Type: LinkType,
		GetAttrs: func(n *Node, tokens []Token, i int) {
			n.URL = tokens[i].Attr("href")
			n.Title = tokens[i].Attr("title")
		},
	},
	"image": {
		Type:         ImageType,
		NoCloseToken: true,
		IsLeaf:       true,
		GetAttrs: func(n *Node, tokens []Token, i int) {
			tok := &tokens[i]
			n.URL = tok.Attr("src")
			n.Alt = tok.Attr("alt")
			if n.Alt == "" {
				sb := new(strings.Builder)
				for _, c := range tok.Children {
					sb.WriteString(c.Content)
				}
				n.Alt = sb.String()
			}
			n.Title = tok.Attr("title")
			n.Width = tok.Attr("width")
			n.Class = tok.className(func(c string) bool {
				if align, ok := alignClass(c); ok {
					if n.Align == "" {
						n.Align = align
					}
					return true
				}
				return false
			})
		},
	},
	"abbr": {
		Type: AbbreviationType,
		GetAttrs: func(n *Node, tokens []Token, i int) {
			n.Title = tokens[i].Attr("title")
			if len(tokens[i].Children) > 0 {
				n.Value = tokens[i].Children[0].Content
			}
		},
	},
	"sub": {Type: SubscriptType},
	"sup": {Type: SuperscriptType},
	"dl":  {Type: DefinitionListType},
	"dt":  {Type: DefinitionTermType},
	"dd":  {Type: DefinitionDescriptionType},
	"admonition": {
		Type: AdmonitionType,
		GetAttrs: func(n *Node, tokens []Token, i int) {
			tok := &tokens[i]
			n.Kind = tok.meta().Kind
			n.Class = tok.className(func(c string) bool {
				return c == GenericAdmonition || c == n.Kind
			})
		},
	},
	"admonition_title": {Type: AdmonitionTitleType},
	"figure":         containerRule("figure"),
	"table_figure":   containerRule("table"),
	"code_figure":    containerRule("code"),
	"figure_caption": {Type: CaptionType},
	"math_inline": {
		Type:         InlineMathType,
		NoCloseToken: true,
		IsText:       true,
	},
	"math_inline_double": {
		Type:         MathType,
		NoCloseToken: true,
		IsText:       true,
	},
	"math_block": {
		Type:         MathType,
		NoCloseToken: true,
		IsText:       true,
		GetAttrs:     mathAttrs,
	},
	"math_block_label": {
		Type:         MathType,
		NoCloseToken: true,
		IsText:       true,
		GetAttrs:     mathAttrs,
	},
	"amsmath": {
		Type:         MathType,
		NoCloseToken: true,
		IsText:       true,
	},
	"ref": {
		Type:   ContentReferenceType,
		IsLeaf: true,
		GetAttrs: func(n *Node, tokens []Token, i int) {
			meta := tokens[i].meta()
			n.Kind = meta.Kind
			setLabelFrom(n, meta.Name)
			n.Value = meta.Value
		},
	},
	"footnote_ref": {
		Type:         FootnoteReferenceType,
		NoCloseToken: true,
		IsLeaf:       true,
		GetAttrs: func(n *Node, tokens []Token, i int) {
			setLabelFrom(n, tokens[i].meta().Label)
		},
	},
	"footnote_anchor": {
		Type:         RemoveType,
		NoCloseToken: true,
	},
	// The footnote block is a presentation concern:
	// its footnotes are lifted into the enclosing tree.
	"footnote_block": {Type: LiftType},
	"footnote": {
		Type: FootnoteDefinitionType,
		GetAttrs: func(n *Node, tokens []Token, i int) {
			setLabelFrom(n, tokens[i].meta().Label)
		},
	},
	"directive": {
		Type:         DirectiveType,
		NoCloseToken: true,
		IsLeaf:       true,
		GetAttrs: func(n *Node, tokens []Token, i int) {
			tok := &tokens[i]
			n.Kind = tok.Info
			n.Args = tok.meta().Arg
			n.Value = strings.TrimSpace(tok.Content)
		},
	},
	"directive_error": {
		Type:         DirectiveErrorType,
		NoCloseToken: true,
	},
	"role": {
		Type:         RoleType,
		NoCloseToken: true,
		IsLeaf:       true,
		GetAttrs: func(n *Node, tokens []Token, i int) {
			n.Kind = tokens[i].meta().Name
			n.Value = tokens[i].Content
		},
	},
	"myst_target": {
		Type:         HeaderTargetType,
		NoCloseToken: true,
		IsLeaf:       true,
		GetAttrs: func(n *Node, tokens []Token, i int) {
			setLabelFrom(n, tokens[i].Content)
		},
	},
	"myst_inline_target": {
		Type:         TargetType,
		NoCloseToken: true,
		IsLeaf:       true,
		GetAttrs: func(n *Node, tokens []Token, i int) {
			n.Label = tokens[i].Content
		},
	},
	"html_inline": {
		Type:         HTMLType,
		NoCloseToken: true,
		IsText:       true,
	},
	"html_block": {
		Type:         HTMLType,
		NoCloseToken: true,
		IsText:       true,
	},
	"myst_block_break": {
		Type:         BlockBreakType,
		NoCloseToken: true,
		IsLeaf:       true,
		GetAttrs: func(n *Node, tokens []Token, i int) {
			n.Value = tokens[i].Content
		},
	},
	"myst_line_comment": {
		Type:         CommentType,
		NoCloseToken: true,
		IsLeaf:       true,
		GetAttrs: func(n *Node, tokens []Token, i int) {
			n.Value = strings.TrimSpace(tokens[i].Content)
		},
	},
}

// containerRule returns the rule for a numbered container
// whose kind defaults to defaultKind.
func containerRule(defaultKind string) Rule {
	return Rule{
		Type: ContainerType,
		GetAttrs: func(n *Node, tokens []Token, i int) {
			tok := &tokens[i]
			n.Kind = tok.meta().Kind
			if n.Kind == "" {
				n.Kind = defaultKind
			}
			if setLabelFrom(n, tok.meta().Name) {
				n.Numbered = true
			}
			n.Class = tok.className(func(c string) bool { return c == "numbered" })
		},
	}
}

func codeAttrs(n *Node, tokens []Token, i int) {
	n.Lang = fenceLang(tokens[i].Info)
	n.Value = withoutTrailingNewline(tokens[i].Content)
}

func mathAttrs(n *Node, tokens []Token, i int) {
	setLabelFrom(n, tokens[i].Info)
}

// setLabelFrom sets the label fields of n from a raw label.
// It reports whether the label was not blank.
func setLabelFrom(n *Node, raw string) bool {
	norm, ok := NormalizeLabel(raw)
	if !ok {
		return false
	}
	n.Identifier = norm.Identifier
	n.Label = norm.Label
	n.HTMLID = norm.HTMLID
	return true
}

// fenceLang returns the first word of a fence info string.
func fenceLang(info string) string {
	words := strings.Fields(html.UnescapeString(info))
	if len(words) == 0 {
		return ""
	}
	return strings.ReplaceAll(words[0], `\`, "")
}

// alignClass reports whether c is an "align-left", "align-right",
// or "align-center" class and returns the alignment.
func alignClass(c string) (string, bool) {
	align, ok := strings.CutPrefix(c, "align-")
	if !ok {
		return "", false
	}
	switch align {
	case "left", "right", "center":
		return align, true
	default:
		return "", false
	}
}

func withoutTrailingNewline(s string) string {
	return strings.TrimSuffix(s, "\n")
}
