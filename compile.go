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

// HoistPolicy controls whether [Compile] replaces paragraphs
// that only contain an image with the image itself.
type HoistPolicy int8

const (
	// HoistDefault is the same as [HoistImages].
	HoistDefault HoistPolicy = iota
	// HoistImages replaces single-image paragraphs with their image.
	HoistImages
	// NoHoist leaves single-image paragraphs in place.
	NoHoist
)

func (policy HoistPolicy) enabled() bool {
	return policy != NoHoist
}

// UnknownTokenPolicy controls what [Compile] does with a token
// that has no entry in the handler table.
type UnknownTokenPolicy int8

const (
	// UnknownTokenWarn drops the token and reports a warning.
	UnknownTokenWarn UnknownTokenPolicy = iota
	// UnknownTokenText keeps the token's content as text
	// and reports a warning.
	UnknownTokenText
	// UnknownTokenIgnore drops the token silently.
	UnknownTokenIgnore
)

// CompileOptions is the set of parameters to [Compile].
// The zero value uses the [DefaultHandlers] table
// and hoists single-image paragraphs.
type CompileOptions struct {
	// Handlers is merged over the default handler table.
	Handlers HandlerTable
	// HoistSingleImages controls paragraph hoisting.
	HoistSingleImages HoistPolicy
	// UnknownTokens controls how unknown tokens are treated.
	UnknownTokens UnknownTokenPolicy
	// Diagnostics receives the problems found in the token stream.
	Diagnostics DiagnosticSink
	// Document is the name stamped on diagnostics.
	Document string
}

// Compile converts a token stream into a document tree.
// Compile never fails:
// unbalanced tokens are closed at the end of their enclosing scope
// or dropped,
// and unknown tokens are handled according to opts.UnknownTokens.
// Problems are reported to opts.Diagnostics.
// The returned node always has type [RootType].
//
// Unless opts.HoistSingleImages is [NoHoist],
// a paragraph whose only child is an image is replaced by the image.
// The image keeps its own attributes;
// if the image is unlabeled and the paragraph is labeled,
// the image takes the paragraph's label.
func Compile(tokens []Token, opts *CompileOptions) *Node {
	if opts == nil {
		opts = new(CompileOptions)
	}
	c := &compiler{
		handlers: defaultHandlers,
		unknown:  opts.UnknownTokens,
		r:        reporter{sink: opts.Diagnostics, document: opts.Document},
		root:     &Node{Type: RootType, Children: []*Node{}},
	}
	if len(opts.Handlers) > 0 {
		c.handlers = defaultHandlers.Merge(opts.Handlers)
	}
	c.stack = []compileFrame{{node: c.root}}

	c.compileTokens(tokens)
	if len(c.stack) > 1 {
		top := c.stack[len(c.stack)-1]
		c.r.report(SeverityWarning, CodeMalformedTokens, top.node.Position, "",
			"%d unclosed %s at end of document", len(c.stack)-1, pluralize(len(c.stack)-1, "token", "tokens"))
		c.closeTo(1)
	}

	removeType(c.root, RemoveType)
	liftType(c.root, LiftType)
	dropAdmonitionTitles(c.root)
	clearReferenceChildren(c.root)
	c.attachHeaderTargets()
	if opts.HoistSingleImages.enabled() {
		hoistSingleImages(c.root)
	}
	return c.root
}

type compiler struct {
	handlers HandlerTable
	unknown  UnknownTokenPolicy
	r        reporter
	root     *Node
	stack    []compileFrame
	line     int
}

// compileFrame is an open node waiting for its close token.
type compileFrame struct {
	name string
	rule Rule
	node *Node
}

func (c *compiler) top() *compileFrame {
	return &c.stack[len(c.stack)-1]
}

func (c *compiler) compileTokens(tokens []Token) {
	for i := range tokens {
		tok := &tokens[i]
		if tok.Line > 0 {
			c.line = tok.Line
		}
		if tok.Hidden {
			continue
		}
		switch tok.Type {
		case "inline":
			c.compileTokens(tok.Children)
			continue
		case "text":
			c.appendText(tok.Content)
			continue
		case "softbreak":
			c.appendText("\n")
			continue
		}

		name := tok.Name()
		rule, ok := c.handlers[name]
		if !ok {
			c.unknownToken(tok)
			continue
		}
		switch {
		case rule.NoCloseToken || tok.Nesting == SelfClosing:
			n := c.newNode(rule, tokens, i)
			if rule.IsText && n.Value == "" {
				n.Value = tok.Content
			}
			c.appendChild(n)
		case tok.Nesting == Open:
			c.stack = append(c.stack, compileFrame{
				name: name,
				rule: rule,
				node: c.newNode(rule, tokens, i),
			})
		default:
			c.closeToken(name)
		}
	}
}

// newNode creates the node for tokens[i]
// and fills in its attributes.
func (c *compiler) newNode(rule Rule, tokens []Token, i int) *Node {
	n := &Node{
		Type:     rule.Type,
		Position: Position{Line: c.line},
	}
	if !rule.IsLeaf && !rule.IsText {
		n.Children = []*Node{}
	}
	if rule.GetAttrs != nil {
		rule.GetAttrs(n, tokens, i)
	}
	return n
}

// closeToken pops the frame opened by a token with the given name.
func (c *compiler) closeToken(name string) {
	for depth := len(c.stack) - 1; depth > 0; depth-- {
		if c.stack[depth].name != name {
			continue
		}
		if depth < len(c.stack)-1 {
			top := c.top()
			c.r.report(SeverityWarning, CodeMalformedTokens, Position{Line: c.line}, "",
				"%s closed before %s", name, top.name)
		}
		c.closeTo(depth)
		return
	}
	c.r.report(SeverityWarning, CodeMalformedTokens, Position{Line: c.line}, "",
		"unmatched %s close token", name)
}

// closeTo pops frames until the stack has depth frames,
// appending each popped node to its parent.
func (c *compiler) closeTo(depth int) {
	for len(c.stack) > depth {
		f := c.stack[len(c.stack)-1]
		c.stack = c.stack[:len(c.stack)-1]
		c.appendChild(f.node)
	}
}

func (c *compiler) appendChild(n *Node) {
	f := c.top()
	if f.rule.IsLeaf || f.rule.IsText {
		return
	}
	f.node.Children = append(f.node.Children, n)
}

func (c *compiler) appendText(s string) {
	if s == "" {
		return
	}
	f := c.top()
	switch {
	case f.rule.IsText:
		f.node.Value += s
	case f.rule.IsLeaf:
	default:
		children := f.node.Children
		if len(children) > 0 && children[len(children)-1].Type == TextType {
			children[len(children)-1].Value += s
			return
		}
		f.node.Children = append(children, &Node{
			Type:     TextType,
			Value:    s,
			Position: Position{Line: c.line},
		})
	}
}

func (c *compiler) unknownToken(tok *Token) {
	if c.unknown == UnknownTokenIgnore {
		return
	}
	c.r.report(SeverityWarning, CodeUnknownToken, Position{Line: c.line}, "",
		"no handler for token type %q", tok.Type)
	if c.unknown == UnknownTokenText && tok.Nesting == SelfClosing {
		c.appendText(tok.Content)
	}
}

// attachHeaderTargets copies the label of every header target
// onto the node that follows it in document order
// and removes the header targets from the tree.
func (c *compiler) attachHeaderTargets() {
	nodes := Preorder(c.root)
	found := false
	for i, n := range nodes {
		if n.Type != HeaderTargetType {
			continue
		}
		found = true
		next := nextInDocumentOrder(nodes, i, func(m *Node) bool {
			return m.Type == HeaderTargetType
		})
		if next == nil {
			c.r.report(SeverityWarning, CodeDanglingTarget, n.Position, n.Identifier,
				"target %q is not followed by any content", n.Label)
			continue
		}
		next.setLabel(n)
		next.Implicit = false
	}
	if found {
		removeType(c.root, HeaderTargetType)
	}
}

// dropAdmonitionTitles removes the title of a non-generic admonition
// when it is the default title for the admonition's kind.
func dropAdmonitionTitles(root *Node) {
	Walk(root, &WalkOptions{
		Pre: func(cursor *Cursor) bool {
			n := cursor.Node()
			if n.Type != AdmonitionType || n.Kind == GenericAdmonition || len(n.Children) == 0 {
				return true
			}
			title := n.Children[0]
			if title.Type != AdmonitionTitleType {
				return true
			}
			if want, ok := AdmonitionTitle(n.Kind); ok && ToText(title.Children) == want {
				n.Children = n.Children[1:]
			}
			return true
		},
	})
}

func clearReferenceChildren(root *Node) {
	for _, n := range SelectAll(root, ContentReferenceType) {
		n.Children = nil
	}
}

// hoistSingleImages replaces every paragraph whose only child is an image
// with that image.
func hoistSingleImages(root *Node) {
	rewriteChildren(root, func(child *Node) []*Node {
		if child.Type != ParagraphType || len(child.Children) != 1 || child.Children[0].Type != ImageType {
			return []*Node{child}
		}
		img := child.Children[0]
		if !img.IsLabeled() && child.IsLabeled() {
			img.setLabel(child)
		}
		return []*Node{img}
	})
}

func pluralize(n int, singular, plural string) string {
	if n == 1 {
		return singular
	}
	return plural
}
