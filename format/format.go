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

// Package format writes compiled document trees back out as MyST Markdown.
package format

import (
	"bytes"
	"io"
	"strconv"
	"strings"

	"zombiezen.com/go/myst"
)

// Format writes the given document tree as MyST Markdown to the given writer.
// Explicit labels are written as targets or directive options.
// Implicit labels, numbers, and resolved reference text are not written:
// they are derived again when the output is compiled.
func Format(w io.Writer, root *myst.Node) error {
	f := &formatter{
		w:       &errWriter{w: w},
		indents: make(map[*myst.Node]string),
		outer:   make(map[*myst.Node]string),
	}
	myst.Walk(root, &myst.WalkOptions{
		Pre: func(c *myst.Cursor) bool {
			parentIndent := f.indents[c.Parent()]
			f.outer[c.Node()] = parentIndent
			newIndent, descend := f.preBlock(parentIndent, c)
			f.indents[c.Node()] = parentIndent + newIndent
			return descend
		},
		Post: func(c *myst.Cursor) bool {
			f.postBlock(c)
			return true
		},
	})
	return f.w.err
}

type formatter struct {
	w *errWriter
	// indents is the line prefix of each node's children.
	indents map[*myst.Node]string
	// outer is the line prefix of each node itself.
	outer map[*myst.Node]string
	// continueLine is true if the next block continues the current line,
	// as after a list marker.
	continueLine bool
	// noSeparator is true if the next block starts a new line
	// without a blank line before it, as after a target.
	noSeparator bool
}

// startBlock writes the separator and line prefix
// before a block node.
func (f *formatter) startBlock(indent string, c *myst.Cursor) {
	if f.continueLine {
		f.continueLine = false
		f.noSeparator = false
		return
	}
	if f.w.hasWritten && !f.noSeparator {
		sepIndent := indent
		if c.Index() == 0 && c.Parent() != nil {
			sepIndent = f.outer[c.Parent()]
		}
		writeTrimmedIndent(f.w, sepIndent)
		f.w.WriteString("\n")
	}
	f.noSeparator = false
	f.w.WriteString(indent)
}

// startLine writes the line prefix of a block
// that is not separated from the previous line.
func (f *formatter) startLine(indent string) {
	f.noSeparator = false
	if f.continueLine {
		f.continueLine = false
		return
	}
	f.w.WriteString(indent)
}

func (f *formatter) preBlock(indent string, c *myst.Cursor) (childrenIndent string, descend bool) {
	n := c.Node()
	if hasTarget(n) {
		f.startBlock(indent, c)
		f.w.WriteString("(")
		f.w.WriteString(n.Label)
		f.w.WriteString(")=\n")
		f.noSeparator = true
	}

	switch n.Type {
	case myst.RootType:
		return "", true
	case myst.ParagraphType, myst.CaptionType, myst.DefinitionTermType:
		f.startBlock(indent, c)
		f.inlineLine(indent, n.Children)
		return "", false
	case myst.HeadingType:
		f.startBlock(indent, c)
		f.w.WriteString(strings.Repeat("#", min(max(n.Depth, 1), 6)))
		f.w.WriteString(" ")
		f.inlineLine(indent, n.Children)
		return "", false
	case myst.ThematicBreakType:
		if f.w.hasWritten {
			f.startBlock(indent, c)
			f.w.WriteString("---\n")
		} else {
			// Disambiguate from front matter.
			f.w.WriteString("***\n")
		}
		return "", false
	case myst.BlockquoteType:
		return "> ", true
	case myst.ListType:
		return "", true
	case myst.ListItemType:
		list := c.Parent()
		if c.Index() > 0 && !list.Spread {
			f.startLine(indent)
		} else {
			f.startBlock(indent, c)
		}
		marker := "- "
		if list.Ordered {
			marker = strconv.Itoa(list.Start+c.Index()) + ". "
		}
		f.w.WriteString(marker)
		f.continueLine = true
		return strings.Repeat(" ", len(marker)), true
	case myst.DefinitionListType:
		return "", true
	case myst.DefinitionDescriptionType:
		f.startLine(indent)
		f.w.WriteString(": ")
		f.continueLine = true
		return "  ", true
	case myst.CodeType:
		f.startBlock(indent, c)
		fence := directiveFence(n)
		f.w.WriteString(fence)
		f.w.WriteString(n.Lang)
		f.w.WriteString("\n")
		f.body(indent, n.Value)
		f.w.WriteString(indent)
		f.w.WriteString(fence)
		f.w.WriteString("\n")
		return "", false
	case myst.MathType:
		f.startBlock(indent, c)
		fence := directiveFence(n)
		f.w.WriteString(fence)
		f.w.WriteString("{math}\n")
		if n.Label != "" && !n.Implicit {
			f.option(indent, "label", n.Label)
		}
		f.body(indent, n.Value)
		f.w.WriteString(indent)
		f.w.WriteString(fence)
		f.w.WriteString("\n")
		return "", false
	case myst.DirectiveType:
		f.startBlock(indent, c)
		fence := directiveFence(n)
		f.w.WriteString(fence)
		f.w.WriteString("{" + n.Kind + "}")
		if n.Args != "" {
			f.w.WriteString(" ")
			f.w.WriteString(n.Args)
		}
		f.w.WriteString("\n")
		f.body(indent, n.Value)
		f.w.WriteString(indent)
		f.w.WriteString(fence)
		f.w.WriteString("\n")
		return "", false
	case myst.AdmonitionType:
		f.startBlock(indent, c)
		f.w.WriteString(directiveFence(n))
		title := admonitionTitle(n)
		switch {
		case n.Kind == myst.GenericAdmonition || n.Kind == "":
			f.w.WriteString("{admonition}")
			if title != "" {
				f.w.WriteString(" " + title)
			}
			f.w.WriteString("\n")
		case title != "":
			f.w.WriteString("{admonition} " + title + "\n")
			f.option(indent, "class", strings.TrimSpace(n.Kind+" "+n.Class))
		default:
			f.w.WriteString("{" + n.Kind + "}\n")
		}
		if n.Class != "" && (title == "" || n.Kind == myst.GenericAdmonition) {
			f.option(indent, "class", n.Class)
		}
		return "", true
	case myst.AdmonitionTitleType:
		return "", false
	case myst.ContainerType:
		f.startBlock(indent, c)
		f.w.WriteString(directiveFence(n))
		f.w.WriteString("{" + orDefault(n.Kind, "figure") + "}")
		if img := figureImage(n); img != nil {
			f.w.WriteString(" ")
			f.w.WriteString(img.URL)
		}
		f.w.WriteString("\n")
		if n.Label != "" && !n.Implicit {
			f.option(indent, "name", n.Label)
		}
		if img := figureImage(n); img != nil && img.Alt != "" {
			f.option(indent, "alt", img.Alt)
		}
		f.noSeparator = true
		return "", true
	case myst.FootnoteDefinitionType:
		f.startBlock(indent, c)
		f.w.WriteString("[^" + orDefault(n.Label, n.Identifier) + "]: ")
		f.continueLine = true
		return "    ", true
	case myst.CommentType:
		f.startBlock(indent, c)
		f.w.WriteString("% ")
		f.w.WriteString(n.Value)
		f.w.WriteString("\n")
		return "", false
	case myst.BlockBreakType:
		f.startBlock(indent, c)
		f.w.WriteString("+++")
		if n.Value != "" {
			f.w.WriteString(" " + n.Value)
		}
		f.w.WriteString("\n")
		return "", false
	case myst.HTMLType:
		f.startBlock(indent, c)
		f.body("", strings.TrimSuffix(n.Value, "\n"))
		return "", false
	case myst.DirectiveErrorType:
		return "", false
	case myst.ImageType:
		if c.Parent() != nil && c.Parent().Type == myst.ContainerType && figureImage(c.Parent()) == n {
			return "", false
		}
		f.startBlock(indent, c)
		f.inlineLine(indent, []*myst.Node{n})
		return "", false
	default:
		// Inline content outside of a paragraph.
		f.startBlock(indent, c)
		f.inlineLine(indent, []*myst.Node{n})
		return "", false
	}
}

func (f *formatter) postBlock(c *myst.Cursor) {
	n := c.Node()
	switch n.Type {
	case myst.AdmonitionType, myst.ContainerType:
		f.noSeparator = false
		f.w.WriteString(f.outer[n])
		f.w.WriteString(directiveFence(n))
		f.w.WriteString("\n")
	case myst.ListItemType, myst.FootnoteDefinitionType, myst.DefinitionDescriptionType:
		if f.continueLine {
			// Empty item.
			f.continueLine = false
			f.w.WriteString("\n")
		}
	}
}

// option writes a directive option line.
func (f *formatter) option(indent, key, value string) {
	f.startLine(indent)
	f.w.WriteString(":" + key + ": ")
	f.w.WriteString(value)
	f.w.WriteString("\n")
}

// body writes a raw block of text, prefixing every line with indent.
func (f *formatter) body(indent, text string) {
	if text == "" {
		return
	}
	f.w.WriteString(indent)
	indentedWrite(f.w, indent, []byte(text))
	f.w.WriteString("\n")
}

func (f *formatter) inlineLine(indent string, nodes []*myst.Node) {
	sb := new(strings.Builder)
	writeInlines(sb, nodes)
	indentedWrite(f.w, indent, []byte(sb.String()))
	f.w.WriteString("\n")
}

func writeInlines(sb *strings.Builder, nodes []*myst.Node) {
	for _, n := range nodes {
		writeInline(sb, n)
	}
}

func writeInline(sb *strings.Builder, n *myst.Node) {
	switch n.Type {
	case myst.TextType, myst.HTMLType:
		sb.WriteString(n.Value)
	case myst.EmphasisType:
		sb.WriteString("*")
		writeInlines(sb, n.Children)
		sb.WriteString("*")
	case myst.StrongType:
		sb.WriteString("**")
		writeInlines(sb, n.Children)
		sb.WriteString("**")
	case myst.InlineCodeType:
		writeCodeSpan(sb, n.Value)
	case myst.BreakType:
		sb.WriteString("\\\n")
	case myst.LinkType:
		sb.WriteString("[")
		writeInlines(sb, n.Children)
		sb.WriteString("](")
		writeDestination(sb, n.URL, n.Title)
		sb.WriteString(")")
	case myst.ImageType:
		sb.WriteString("![")
		sb.WriteString(n.Alt)
		sb.WriteString("](")
		writeDestination(sb, n.URL, n.Title)
		sb.WriteString(")")
	case myst.InlineMathType:
		sb.WriteString("$")
		sb.WriteString(n.Value)
		sb.WriteString("$")
	case myst.MathType:
		sb.WriteString("$$")
		sb.WriteString(n.Value)
		sb.WriteString("$$")
	case myst.RoleType:
		writeRole(sb, n.Kind, n.Value)
	case myst.SubscriptType:
		writeRole(sb, "sub", myst.ToText(n.Children))
	case myst.SuperscriptType:
		writeRole(sb, "sup", myst.ToText(n.Children))
	case myst.AbbreviationType:
		content := myst.ToText(n.Children)
		if n.Title != "" {
			content += " (" + n.Title + ")"
		}
		writeRole(sb, "abbr", content)
	case myst.ContentReferenceType:
		label := orDefault(n.Label, n.Identifier)
		if n.Value != "" {
			label = n.Value + " <" + label + ">"
		}
		writeRole(sb, orDefault(n.Kind, myst.RefKind), label)
	case myst.FootnoteReferenceType:
		sb.WriteString("[^")
		sb.WriteString(orDefault(n.Label, n.Identifier))
		sb.WriteString("]")
	default:
		writeInlines(sb, n.Children)
	}
}

func writeRole(sb *strings.Builder, name, content string) {
	sb.WriteString("{" + name + "}")
	writeCodeSpan(sb, content)
}

func writeCodeSpan(sb *strings.Builder, content string) {
	ticks := strings.Repeat("`", longestRun(content, '`')+1)
	pad := strings.HasPrefix(content, "`") || strings.HasSuffix(content, "`")
	sb.WriteString(ticks)
	if pad {
		sb.WriteString(" ")
	}
	sb.WriteString(content)
	if pad {
		sb.WriteString(" ")
	}
	sb.WriteString(ticks)
}

func writeDestination(sb *strings.Builder, url, title string) {
	if url == "" || strings.ContainsAny(url, " ()") {
		sb.WriteString("<" + url + ">")
	} else {
		sb.WriteString(url)
	}
	if title != "" {
		sb.WriteString(` "`)
		sb.WriteString(strings.ReplaceAll(title, `"`, `\"`))
		sb.WriteString(`"`)
	}
}

// hasTarget reports whether the node's label
// must be written as a "(label)=" target.
func hasTarget(n *myst.Node) bool {
	if n.Label == "" || n.Implicit || n.Type.IsReference() {
		return false
	}
	switch n.Type {
	case myst.RootType, myst.ContainerType, myst.MathType, myst.FootnoteDefinitionType:
		return false
	default:
		return true
	}
}

func admonitionTitle(n *myst.Node) string {
	if n.ChildCount() == 0 || n.Child(0).Type != myst.AdmonitionTitleType {
		return ""
	}
	return myst.ToText(n.Child(0).Children)
}

// figureImage returns the image that a figure directive takes as its argument.
func figureImage(n *myst.Node) *myst.Node {
	if n.Kind != "figure" && n.Kind != "" || n.ChildCount() == 0 {
		return nil
	}
	if img := n.Child(0); img.Type == myst.ImageType {
		return img
	}
	return nil
}

// directiveFence returns the backtick fence for a directive node,
// long enough to enclose any fences nested inside it.
func directiveFence(n *myst.Node) string {
	return strings.Repeat("`", fenceLen(n))
}

func fenceLen(n *myst.Node) int {
	switch n.Type {
	case myst.CodeType, myst.MathType, myst.DirectiveType:
		return max(3, longestRun(n.Value, '`')+1)
	case myst.AdmonitionType, myst.ContainerType:
		inner := 0
		for _, c := range n.Children {
			inner = max(inner, fenceLen(c))
		}
		return max(3, inner+1)
	default:
		inner := 0
		for _, c := range n.Children {
			inner = max(inner, fenceLen(c))
		}
		return inner
	}
}

func longestRun(s string, c byte) int {
	longest, run := 0, 0
	for i := 0; i < len(s); i++ {
		if s[i] != c {
			run = 0
			continue
		}
		run++
		longest = max(longest, run)
	}
	return longest
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func indentedWrite(w *errWriter, indent string, p []byte) {
	for {
		i := bytes.IndexByte(p, '\n')
		if i == -1 {
			break
		}
		w.Write(p[:i+1])
		w.WriteString(indent)
		p = p[i+1:]
	}
	w.Write(p)
}

// writeTrimmedIndent writes the indent without trailing whitespace.
func writeTrimmedIndent(w io.StringWriter, indent string) error {
	_, err := w.WriteString(strings.TrimRight(indent, " \t"))
	return err
}

type errWriter struct {
	w          io.Writer
	hasWritten bool
	err        error
}

func (w *errWriter) Write(p []byte) (n int, err error) {
	if w.err != nil {
		return 0, w.err
	}
	n, w.err = w.w.Write(p)
	w.hasWritten = w.hasWritten || n > 0
	return n, w.err
}

func (w *errWriter) WriteString(s string) (n int, err error) {
	if w.err != nil {
		return 0, w.err
	}
	n, w.err = io.WriteString(w.w, s)
	w.hasWritten = w.hasWritten || n > 0
	return n, w.err
}
