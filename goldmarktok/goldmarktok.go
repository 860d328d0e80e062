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

// Package goldmarktok produces MyST token streams from Markdown source
// using the goldmark CommonMark parser.
//
// goldmark parses the CommonMark structure of the document,
// including footnotes and definition lists.
// The MyST extensions that CommonMark sees as ordinary text are recognized
// on top of the parsed tree:
//
//   - A paragraph whose first line is "(label)=" declares a target.
//   - A text ending in "{name}" followed by a code span is a role.
//     The ref, numref, and eq roles are cross-references.
//   - Text between single or double dollar signs is math.
//   - A fenced code block whose info string is "{name}" is a directive.
//     The math, figure, and admonition directives are understood;
//     any other directive is passed through with its raw body.
//   - Paragraphs made of lines starting with "%" are comments
//     and a paragraph starting with "+++" is a block break.
package goldmarktok

import (
	"bytes"
	"regexp"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
	"zombiezen.com/go/myst"
)

var markdown = goldmark.New(
	goldmark.WithExtensions(
		extension.Footnote,
		extension.DefinitionList,
	),
)

// Tokens parses Markdown source into a MyST token stream
// suitable for [myst.Compile].
func Tokens(source []byte) []myst.Token {
	return tokens(source, 0)
}

// tokens parses source whose first line is line firstLine+1 of the document.
func tokens(source []byte, firstLine int) []myst.Token {
	doc := markdown.Parser().Parse(text.NewReader(source))
	c := &converter{
		source:       source,
		lineStarts:   lineStarts(source),
		firstLine:    firstLine,
		footnoteRefs: make(map[int]string),
	}
	ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if fn, ok := n.(*east.Footnote); ok && entering {
			c.footnoteRefs[fn.Index] = string(fn.Ref)
		}
		return ast.WalkContinue, nil
	})
	c.blocks(doc)
	return c.tokens
}

type converter struct {
	source       []byte
	lineStarts   []int
	firstLine    int
	footnoteRefs map[int]string
	tokens       []myst.Token
}

func (c *converter) emit(tok myst.Token) {
	c.tokens = append(c.tokens, tok)
}

func (c *converter) open(typ string, line int) {
	c.emit(myst.Token{Type: typ + "_open", Nesting: myst.Open, Line: line})
}

func (c *converter) close(typ string) {
	c.emit(myst.Token{Type: typ + "_close", Nesting: myst.Close})
}

func (c *converter) blocks(parent ast.Node) {
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		c.block(n)
	}
}

func (c *converter) block(node ast.Node) {
	line := c.lineOf(node)
	switch n := node.(type) {
	case *ast.Heading:
		c.emit(myst.Token{Type: "heading_open", Tag: "h" + strconv.Itoa(n.Level), Nesting: myst.Open, Line: line})
		c.emit(c.inline(n, line))
		c.emit(myst.Token{Type: "heading_close", Tag: "h" + strconv.Itoa(n.Level), Nesting: myst.Close})
	case *ast.Paragraph:
		c.paragraph(n, line)
	case *ast.TextBlock:
		// Paragraphs of tight lists.
		c.emit(myst.Token{Type: "paragraph_open", Nesting: myst.Open, Hidden: true, Line: line})
		c.emit(c.inline(n, line))
		c.emit(myst.Token{Type: "paragraph_close", Nesting: myst.Close, Hidden: true})
	case *ast.ThematicBreak:
		c.emit(myst.Token{Type: "hr", Tag: "hr", Line: line})
	case *ast.Blockquote:
		c.open("blockquote", line)
		c.blocks(n)
		c.close("blockquote")
	case *ast.List:
		c.list(n, line)
	case *ast.FencedCodeBlock:
		c.fence(n, line)
	case *ast.CodeBlock:
		c.emit(myst.Token{Type: "code_block", Content: c.linesText(n), Line: line})
	case *ast.HTMLBlock:
		content := c.linesText(n)
		if n.HasClosure() {
			content += string(n.ClosureLine.Value(c.source))
		}
		c.emit(myst.Token{Type: "html_block", Content: content, Line: line})
	case *east.DefinitionList:
		c.open("dl", line)
		c.blocks(n)
		c.close("dl")
	case *east.DefinitionTerm:
		c.open("dt", line)
		c.emit(c.inline(n, line))
		c.close("dt")
	case *east.DefinitionDescription:
		c.open("dd", line)
		c.blocks(n)
		c.close("dd")
	case *east.FootnoteList:
		c.open("footnote_block", line)
		c.blocks(n)
		c.close("footnote_block")
	case *east.Footnote:
		c.emit(myst.Token{
			Type:    "footnote_open",
			Nesting: myst.Open,
			Meta:    &myst.TokenMeta{Label: string(n.Ref)},
			Line:    line,
		})
		c.blocks(n)
		c.close("footnote")
	default:
		c.blocks(n)
	}
}

func (c *converter) list(n *ast.List, line int) {
	typ := "bullet_list"
	if n.IsOrdered() {
		typ = "ordered_list"
	}
	c.open(typ, line)
	i := 0
	for item := n.FirstChild(); item != nil; item = item.NextSibling() {
		tok := myst.Token{Type: "list_item_open", Nesting: myst.Open, Line: c.lineOf(item)}
		if n.IsOrdered() {
			tok.Info = strconv.Itoa(n.Start + i)
		}
		c.emit(tok)
		c.blocks(item)
		c.close("list_item")
		i++
	}
	c.close(typ)
}

var (
	targetRE  = regexp.MustCompile(`^\(([^()]+)\)=$`)
	commentRE = regexp.MustCompile(`^%`)
)

// paragraph emits a paragraph
// or the MyST block syntax that CommonMark parses as one.
func (c *converter) paragraph(n *ast.Paragraph, line int) {
	lines := c.lines(n)
	switch {
	case len(lines) > 0 && targetRE.MatchString(lines[0]):
		label := targetRE.FindStringSubmatch(lines[0])[1]
		c.emit(myst.Token{Type: "myst_target", Content: label, Line: line})
		if len(lines) == 1 {
			return
		}
		// The rest of the paragraph follows the target's line break.
		inline := c.inline(n, line+1)
		if i := slices.IndexFunc(inline.Children, func(tok myst.Token) bool { return tok.Type == "softbreak" }); i >= 0 {
			inline.Children = inline.Children[i+1:]
		}
		c.emit(myst.Token{Type: "paragraph_open", Nesting: myst.Open, Line: line + 1})
		c.emit(inline)
		c.close("paragraph")
	case len(lines) > 0 && allMatch(commentRE, lines):
		for i, l := range lines {
			c.emit(myst.Token{Type: "myst_line_comment", Content: strings.TrimPrefix(l, "%"), Line: line + i})
		}
	case len(lines) == 1 && strings.HasPrefix(lines[0], "+++"):
		c.emit(myst.Token{Type: "myst_block_break", Content: strings.TrimSpace(lines[0][len("+++"):]), Line: line})
	default:
		c.open("paragraph", line)
		c.emit(c.inline(n, line))
		c.close("paragraph")
	}
}

func allMatch(re *regexp.Regexp, lines []string) bool {
	for _, l := range lines {
		if !re.MatchString(l) {
			return false
		}
	}
	return true
}

// inline returns an "inline" token with the inline children of n.
func (c *converter) inline(n ast.Node, line int) myst.Token {
	return myst.Token{Type: "inline", Children: c.inlines(n), Line: line}
}

func (c *converter) inlines(parent ast.Node) []myst.Token {
	var toks []myst.Token
	for node := parent.FirstChild(); node != nil; node = node.NextSibling() {
		switch n := node.(type) {
		case *ast.Text:
			s := string(n.Segment.Value(c.source))
			if span, ok := n.NextSibling().(*ast.CodeSpan); ok && !n.SoftLineBreak() && !n.HardLineBreak() {
				if before, name, ok := cutRoleName(s); ok {
					toks = append(toks, mathText(before)...)
					toks = append(toks, roleTokens(name, c.plainText(span))...)
					node = span
					continue
				}
			}
			toks = append(toks, mathText(s)...)
			switch {
			case n.HardLineBreak():
				toks = append(toks, myst.Token{Type: "hardbreak"})
			case n.SoftLineBreak():
				toks = append(toks, myst.Token{Type: "softbreak"})
			}
		case *ast.String:
			toks = append(toks, myst.Token{Type: "text", Content: string(n.Value)})
		case *ast.CodeSpan:
			toks = append(toks, myst.Token{Type: "code_inline", Content: c.plainText(n)})
		case *ast.Emphasis:
			typ := "em"
			if n.Level >= 2 {
				typ = "strong"
			}
			toks = append(toks, myst.Token{Type: typ + "_open", Nesting: myst.Open})
			toks = append(toks, c.inlines(n)...)
			toks = append(toks, myst.Token{Type: typ + "_close", Nesting: myst.Close})
		case *ast.Link:
			attrs := map[string]string{"href": string(n.Destination)}
			if len(n.Title) > 0 {
				attrs["title"] = string(n.Title)
			}
			toks = append(toks, myst.Token{Type: "link_open", Nesting: myst.Open, Attrs: attrs})
			toks = append(toks, c.inlines(n)...)
			toks = append(toks, myst.Token{Type: "link_close", Nesting: myst.Close})
		case *ast.AutoLink:
			url := string(n.URL(c.source))
			if n.AutoLinkType == ast.AutoLinkEmail && !strings.HasPrefix(strings.ToLower(url), "mailto:") {
				url = "mailto:" + url
			}
			toks = append(toks,
				myst.Token{Type: "link_open", Nesting: myst.Open, Attrs: map[string]string{"href": url}},
				myst.Token{Type: "text", Content: string(n.Label(c.source))},
				myst.Token{Type: "link_close", Nesting: myst.Close},
			)
		case *ast.Image:
			alt := c.plainText(n)
			attrs := map[string]string{"src": string(n.Destination), "alt": alt}
			if len(n.Title) > 0 {
				attrs["title"] = string(n.Title)
			}
			toks = append(toks, myst.Token{
				Type:     "image",
				Tag:      "img",
				Attrs:    attrs,
				Children: []myst.Token{{Type: "text", Content: alt}},
			})
		case *ast.RawHTML:
			sb := new(strings.Builder)
			for i := 0; i < n.Segments.Len(); i++ {
				seg := n.Segments.At(i)
				sb.Write(seg.Value(c.source))
			}
			toks = append(toks, myst.Token{Type: "html_inline", Content: sb.String()})
		case *east.FootnoteLink:
			toks = append(toks, myst.Token{
				Type: "footnote_ref",
				Meta: &myst.TokenMeta{Label: c.footnoteRefs[n.Index]},
			})
		case *east.FootnoteBacklink:
			toks = append(toks, myst.Token{Type: "footnote_anchor"})
		default:
			toks = append(toks, c.inlines(n)...)
		}
	}
	return toks
}

var roleNameRE = regexp.MustCompile(`\{([A-Za-z][\w:.-]*)\}$`)

// cutRoleName splits a "{name}" suffix from s.
func cutRoleName(s string) (before, name string, ok bool) {
	m := roleNameRE.FindStringSubmatchIndex(s)
	if m == nil {
		return s, "", false
	}
	return s[:m[0]], s[m[2]:m[3]], true
}

var (
	explicitTitleRE = regexp.MustCompile(`^(.*?)\s*<([^<>]+)>$`)
	abbrTitleRE     = regexp.MustCompile(`^(.*?)\s*\(([^()]*)\)$`)
)

// roleTokens returns the tokens for a role with the given name and content.
func roleTokens(name, content string) []myst.Token {
	if kind, err := myst.ParseReferenceKind(name); err == nil {
		meta := &myst.TokenMeta{Kind: kind, Name: content}
		if m := explicitTitleRE.FindStringSubmatch(content); m != nil {
			meta.Value = m[1]
			meta.Name = m[2]
		}
		return []myst.Token{{Type: "ref", Meta: meta}}
	}
	switch name {
	case "math":
		return []myst.Token{{Type: "math_inline", Content: content}}
	case "sub", "sup":
		return []myst.Token{
			{Type: name + "_open", Nesting: myst.Open},
			{Type: "text", Content: content},
			{Type: name + "_close", Nesting: myst.Close},
		}
	case "abbr":
		title := ""
		if m := abbrTitleRE.FindStringSubmatch(content); m != nil {
			content, title = m[1], m[2]
		}
		return []myst.Token{
			{
				Type:     "abbr_open",
				Nesting:  myst.Open,
				Attrs:    map[string]string{"title": title},
				Children: []myst.Token{{Type: "text", Content: content}},
			},
			{Type: "text", Content: content},
			{Type: "abbr_close", Nesting: myst.Close},
		}
	default:
		return []myst.Token{{Type: "role", Content: content, Meta: &myst.TokenMeta{Name: name}}}
	}
}

var mathRE = regexp.MustCompile(`\$\$([^$]+)\$\$|\$([^\s$](?:[^$]*[^\s$])?)\$`)

// mathText splits dollar-delimited math out of text.
func mathText(s string) []myst.Token {
	var toks []myst.Token
	for s != "" {
		m := mathRE.FindStringSubmatchIndex(s)
		if m == nil {
			break
		}
		if m[0] > 0 {
			toks = append(toks, myst.Token{Type: "text", Content: s[:m[0]]})
		}
		if m[2] >= 0 {
			toks = append(toks, myst.Token{Type: "math_inline_double", Content: s[m[2]:m[3]]})
		} else {
			toks = append(toks, myst.Token{Type: "math_inline", Content: s[m[4]:m[5]]})
		}
		s = s[m[1]:]
	}
	if s != "" {
		toks = append(toks, myst.Token{Type: "text", Content: s})
	}
	return toks
}

// plainText returns the text content of an inline node.
func (c *converter) plainText(n ast.Node) string {
	sb := new(strings.Builder)
	ast.Walk(n, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n := n.(type) {
		case *ast.Text:
			sb.Write(n.Segment.Value(c.source))
			if n.SoftLineBreak() || n.HardLineBreak() {
				sb.WriteByte(' ')
			}
		case *ast.String:
			sb.Write(n.Value)
		}
		return ast.WalkContinue, nil
	})
	return sb.String()
}

// lines returns the trimmed source lines of a block.
func (c *converter) lines(n ast.Node) []string {
	segs := n.Lines()
	lines := make([]string, 0, segs.Len())
	for i := 0; i < segs.Len(); i++ {
		seg := segs.At(i)
		lines = append(lines, strings.TrimSpace(string(seg.Value(c.source))))
	}
	return lines
}

// linesText returns the raw source text of a block.
func (c *converter) linesText(n ast.Node) string {
	var buf bytes.Buffer
	segs := n.Lines()
	for i := 0; i < segs.Len(); i++ {
		seg := segs.At(i)
		buf.Write(seg.Value(c.source))
	}
	return buf.String()
}

// lineOf returns the 1-based line a block starts on in the document.
func (c *converter) lineOf(n ast.Node) int {
	offset := -1
	for b := n; b != nil && offset < 0; b = b.FirstChild() {
		if b.Type() != ast.TypeBlock {
			break
		}
		if fence, ok := b.(*ast.FencedCodeBlock); ok && fence.Info != nil {
			offset = fence.Info.Segment.Start
		} else if b.Lines().Len() > 0 {
			offset = b.Lines().At(0).Start
		}
	}
	if offset < 0 {
		return 0
	}
	return c.firstLine + sort.SearchInts(c.lineStarts, offset+1)
}

func lineStarts(source []byte) []int {
	starts := []int{0}
	for i, b := range source {
		if b == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}
