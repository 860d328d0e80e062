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
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"go4.org/bytereplacer"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// An HTMLRenderer converts resolved document trees into HTML.
// Both resolved and unresolved references are rendered:
// resolved references become links to their targets
// and unresolved references become spans
// with the "unresolved" class.
//
// # Security considerations
//
// Documents may contain raw HTML,
// which can introduce [Cross-Site Scripting (XSS)] vulnerabilities
// when used with untrusted inputs.
// The resulting HTML should be sent through an HTML sanitizer,
// or IgnoreRaw can be set to prevent inclusion of raw HTML.
// FilterTag can be used to prevent some tags from being used
// while still showing the source text.
//
// [Cross-Site Scripting (XSS)]: https://owasp.org/www-community/attacks/xss/
type HTMLRenderer struct {
	// If IgnoreRaw is true, the renderer skips any raw HTML nodes.
	IgnoreRaw bool
	// FilterTag is a predicate function
	// that reports whether an element with the given lowercased tag name
	// should have its leading angle bracket escaped.
	// If FilterTag is nil, then no filtering will occur.
	//
	// FilterTag functions must not modify the byte slice
	// nor retain the slice after the function returns.
	FilterTag func(tag []byte) bool
	// AdmonitionTitles overrides the default admonition titles by kind.
	AdmonitionTitles map[string]string
	// Templates overrides the caption number templates by kind,
	// as in [ResolveOptions].
	Templates map[string]string
}

// RenderHTML writes the given document tree to the given writer as HTML
// using the default options for [HTMLRenderer].
func RenderHTML(w io.Writer, root *Node) error {
	return new(HTMLRenderer).Render(w, root)
}

// Render writes the given document tree to the given writer as HTML.
func (r *HTMLRenderer) Render(w io.Writer, root *Node) error {
	if _, err := w.Write(r.AppendNode(nil, root)); err != nil {
		return fmt.Errorf("render myst to html: %w", err)
	}
	return nil
}

// AppendNode appends the rendered HTML of a node to dst
// and returns the resulting byte slice.
func (r *HTMLRenderer) AppendNode(dst []byte, n *Node) []byte {
	state := &renderState{
		HTMLRenderer: r,
		dst:          dst,
	}
	state.node(n)
	return state.dst
}

type renderState struct {
	*HTMLRenderer
	dst []byte
	// captionNumber is the display number of the enclosing container.
	captionNumber string
}

func (r *renderState) openTagAttr(name atom.Atom) {
	start := len(r.dst)
	r.dst = append(r.dst, '<')
	r.dst = append(r.dst, name.String()...)
	if r.FilterTag != nil && r.FilterTag(r.dst[start+1:]) {
		r.dst = r.dst[:start]
		r.dst = append(r.dst, "&lt;"...)
		r.dst = append(r.dst, name.String()...)
	}
}

func (r *renderState) openTag(name atom.Atom) {
	r.openTagAttr(name)
	r.dst = append(r.dst, '>')
}

// openTagID opens a tag with the node's anchor as its id, if it has one.
func (r *renderState) openTagID(name atom.Atom, n *Node) {
	r.openTagAttr(name)
	r.anchor(n)
	r.dst = append(r.dst, '>')
}

func (r *renderState) closeTag(name atom.Atom) {
	start := len(r.dst)
	r.dst = append(r.dst, "</"...)
	r.dst = append(r.dst, name.String()...)
	if r.FilterTag != nil && r.FilterTag(r.dst[start+2:]) {
		r.dst = r.dst[:start]
		r.dst = append(r.dst, "&lt;/"...)
		r.dst = append(r.dst, name.String()...)
	}
	r.dst = append(r.dst, '>')
}

func (r *renderState) attr(key, value string) {
	r.dst = append(r.dst, ' ')
	r.dst = append(r.dst, key...)
	r.dst = append(r.dst, `="`...)
	r.dst = append(r.dst, htmlEscaper.Replace([]byte(value))...)
	r.dst = append(r.dst, '"')
}

func (r *renderState) optionalAttr(key, value string) {
	if value != "" {
		r.attr(key, value)
	}
}

func (r *renderState) anchor(n *Node) {
	if n.HTMLID != "" {
		r.attr("id", n.HTMLID)
	} else if n.Identifier != "" {
		r.attr("id", CreateHTMLID(n.Identifier))
	}
}

func (r *renderState) text(s string) {
	r.dst = append(r.dst, htmlEscaper.Replace([]byte(s))...)
}

func (r *renderState) wrap(name atom.Atom, n *Node) {
	r.openTagID(name, n)
	r.children(n)
	r.closeTag(name)
}

func (r *renderState) children(parent *Node) {
	for _, c := range parent.Children {
		r.node(c)
	}
}

// blockChildren renders the children of a block container,
// one per line.
func (r *renderState) blockChildren(parent *Node) {
	for i, c := range parent.Children {
		if i > 0 {
			r.dst = append(r.dst, '\n')
		}
		r.node(c)
	}
}

func (r *renderState) node(n *Node) {
	switch n.Type {
	case RootType:
		r.blockChildren(n)
	case ParagraphType:
		r.wrap(atom.P, n)
	case ThematicBreakType:
		r.openTag(atom.Hr)
	case HeadingType:
		tagName := headingTags[min(max(n.Depth, 1), len(headingTags))-1]
		r.openTagID(tagName, n)
		r.children(n)
		r.closeTag(tagName)
	case CodeType:
		r.openTag(atom.Pre)
		r.openTagAttr(atom.Code)
		r.anchor(n)
		if n.Lang != "" {
			r.attr("class", "language-"+n.Lang)
		}
		r.dst = append(r.dst, '>')
		r.text(n.Value)
		if n.Value != "" {
			r.dst = append(r.dst, '\n')
		}
		r.closeTag(atom.Code)
		r.closeTag(atom.Pre)
	case BlockquoteType:
		r.openTagID(atom.Blockquote, n)
		r.dst = append(r.dst, '\n')
		r.blockChildren(n)
		r.dst = append(r.dst, '\n')
		r.closeTag(atom.Blockquote)
	case ListType:
		tagName := atom.Ul
		if n.Ordered {
			tagName = atom.Ol
		}
		r.openTagAttr(tagName)
		r.anchor(n)
		if n.Ordered && n.Start != 1 {
			r.attr("start", strconv.Itoa(n.Start))
		}
		r.dst = append(r.dst, ">\n"...)
		r.blockChildren(n)
		r.dst = append(r.dst, '\n')
		r.closeTag(tagName)
	case ListItemType:
		r.wrap(atom.Li, n)
	case EmphasisType:
		r.wrap(atom.Em, n)
	case StrongType:
		r.wrap(atom.Strong, n)
	case InlineCodeType:
		r.openTag(atom.Code)
		r.text(n.Value)
		r.closeTag(atom.Code)
	case BreakType:
		r.dst = append(r.dst, "<br>\n"...)
	case LinkType:
		r.openTagAttr(atom.A)
		r.attr("href", NormalizeURI(n.URL))
		r.optionalAttr("title", n.Title)
		r.dst = append(r.dst, '>')
		r.children(n)
		r.closeTag(atom.A)
	case ImageType:
		r.openTagAttr(atom.Img)
		r.anchor(n)
		r.attr("src", NormalizeURI(n.URL))
		r.attr("alt", n.Alt)
		r.optionalAttr("title", n.Title)
		r.optionalAttr("width", n.Width)
		class := n.Class
		if n.Align != "" {
			class = strings.TrimSpace("align-" + n.Align + " " + class)
		}
		r.optionalAttr("class", class)
		r.dst = append(r.dst, '>')
	case AbbreviationType:
		r.openTagAttr(atom.Abbr)
		r.optionalAttr("title", n.Title)
		r.dst = append(r.dst, '>')
		r.children(n)
		r.closeTag(atom.Abbr)
	case SubscriptType:
		r.wrap(atom.Sub, n)
	case SuperscriptType:
		r.wrap(atom.Sup, n)
	case DefinitionListType:
		r.openTagID(atom.Dl, n)
		r.dst = append(r.dst, '\n')
		r.blockChildren(n)
		r.dst = append(r.dst, '\n')
		r.closeTag(atom.Dl)
	case DefinitionTermType:
		r.wrap(atom.Dt, n)
	case DefinitionDescriptionType:
		r.wrap(atom.Dd, n)
	case AdmonitionType:
		r.admonition(n)
	case AdmonitionTitleType:
		r.openTagAttr(atom.P)
		r.attr("class", "admonition-title")
		r.dst = append(r.dst, '>')
		r.children(n)
		r.closeTag(atom.P)
	case ContainerType:
		r.openTagAttr(atom.Figure)
		r.anchor(n)
		r.optionalAttr("class", strings.TrimSpace(n.Kind+" "+n.Class))
		r.dst = append(r.dst, ">\n"...)
		outer := r.captionNumber
		r.captionNumber = ""
		if n.Enumerator != "" {
			opts := &ResolveOptions{Templates: r.Templates}
			r.captionNumber = strings.ReplaceAll(opts.template(TargetKind(n)), "%s", n.Enumerator)
		}
		r.blockChildren(n)
		r.captionNumber = outer
		r.dst = append(r.dst, '\n')
		r.closeTag(atom.Figure)
	case CaptionType:
		r.openTag(atom.Figcaption)
		if r.captionNumber != "" {
			r.openTagAttr(atom.Span)
			r.attr("class", "caption-number")
			r.dst = append(r.dst, '>')
			r.text(r.captionNumber)
			r.closeTag(atom.Span)
			r.dst = append(r.dst, ' ')
		}
		r.children(n)
		r.closeTag(atom.Figcaption)
	case MathType:
		r.openTagAttr(atom.Div)
		r.anchor(n)
		r.attr("class", "math")
		r.dst = append(r.dst, '>')
		r.text(n.Value)
		if n.Enumerator != "" {
			r.text(" (" + n.Enumerator + ")")
		}
		r.closeTag(atom.Div)
	case InlineMathType:
		r.openTagAttr(atom.Span)
		r.attr("class", "math")
		r.dst = append(r.dst, '>')
		r.text(n.Value)
		r.closeTag(atom.Span)
	case ContentReferenceType:
		r.reference(n, "reference")
	case FootnoteReferenceType:
		r.openTag(atom.Sup)
		r.reference(n, "footnote-reference")
		r.closeTag(atom.Sup)
	case FootnoteDefinitionType:
		r.openTagAttr(atom.Div)
		r.anchor(n)
		r.attr("class", "footnote")
		r.dst = append(r.dst, '>')
		if n.Enumerator != "" {
			r.openTagAttr(atom.Span)
			r.attr("class", "footnote-number")
			r.dst = append(r.dst, '>')
			r.text(n.Enumerator)
			r.closeTag(atom.Span)
		}
		r.blockChildren(n)
		r.closeTag(atom.Div)
	case DirectiveType, RoleType:
		tagName := atom.Div
		if n.Type == RoleType {
			tagName = atom.Span
		}
		r.openTagAttr(tagName)
		r.anchor(n)
		r.attr("class", n.Type.String())
		r.optionalAttr("data-kind", n.Kind)
		r.optionalAttr("data-args", n.Args)
		r.dst = append(r.dst, '>')
		r.text(n.Value)
		r.closeTag(tagName)
	case DirectiveErrorType:
		r.openTagAttr(atom.Div)
		r.attr("class", "directive-error")
		r.dst = append(r.dst, '>')
		r.blockChildren(n)
		r.closeTag(atom.Div)
	case HTMLType:
		if !r.IgnoreRaw {
			r.raw([]byte(n.Value))
		}
	case TextType:
		r.text(n.Value)
	case CommentType, BlockBreakType:
		// Not rendered.
	default:
		r.children(n)
	}
}

var headingTags = [...]atom.Atom{atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6}

func (r *renderState) admonition(n *Node) {
	r.openTagAttr(atom.Aside)
	r.anchor(n)
	class := "admonition"
	if n.Kind != "" && n.Kind != GenericAdmonition {
		class += " " + n.Kind
	}
	if n.Class != "" {
		class += " " + n.Class
	}
	r.attr("class", class)
	r.dst = append(r.dst, ">\n"...)
	if n.ChildCount() == 0 || n.Child(0).Type != AdmonitionTitleType {
		title, ok := r.AdmonitionTitles[n.Kind]
		if !ok {
			title, ok = AdmonitionTitle(n.Kind)
		}
		if ok {
			r.node(&Node{
				Type:     AdmonitionTitleType,
				Children: []*Node{{Type: TextType, Value: title}},
			})
			r.dst = append(r.dst, '\n')
		}
	}
	r.blockChildren(n)
	r.dst = append(r.dst, '\n')
	r.closeTag(atom.Aside)
}

func (r *renderState) reference(n *Node, class string) {
	if n.Status != ReferenceResolved {
		r.openTagAttr(atom.Span)
		r.attr("class", class+" unresolved")
		r.optionalAttr("data-identifier", n.Identifier)
		r.dst = append(r.dst, '>')
		r.text(orDefault(n.Label, n.Identifier))
		r.closeTag(atom.Span)
		return
	}
	r.openTagAttr(atom.A)
	r.attr("class", class)
	r.attr("href", NormalizeURI(n.URL))
	r.dst = append(r.dst, '>')
	r.children(n)
	r.closeTag(atom.A)
}

// raw appends raw HTML,
// escaping the opening angle bracket of any tag rejected by FilterTag.
func (r *renderState) raw(rawHTML []byte) {
	if r.FilterTag == nil {
		r.dst = append(r.dst, rawHTML...)
		return
	}
	tok := html.NewTokenizer(bytes.NewReader(rawHTML))
	for {
		tt := tok.Next()
		if tt == html.ErrorToken {
			return
		}
		raw := tok.Raw()
		switch tt {
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			name, _ := tok.TagName()
			if r.FilterTag(name) {
				r.dst = append(r.dst, "&lt;"...)
				raw = raw[1:]
			}
		}
		r.dst = append(r.dst, raw...)
	}
}

var htmlEscaper = bytereplacer.New(
	"&", "&amp;",
	`'`, "&#39;",
	`<`, "&lt;",
	`>`, "&gt;",
	`"`, "&quot;",
)

// FilterTagGFM performs the same tag filtering as the
// GitHub Flavored Markdown [tagfilter extension].
// It is suitable for use as the FilterTag field in [HTMLRenderer].
//
// [tagfilter extension]: https://github.github.com/gfm/#disallowed-raw-html-extension-
func FilterTagGFM(tag []byte) bool {
	switch atom.Lookup(tag) {
	case atom.Title, atom.Textarea, atom.Style, atom.Xmp, atom.Iframe,
		atom.Noembed, atom.Noframes, atom.Script, atom.Plaintext:
		return true
	default:
		return false
	}
}

// NormalizeURI percent-encodes any characters in a string
// that are not reserved or unreserved URI characters.
// Existing percent-encoded sequences are kept as-is.
func NormalizeURI(s string) string {
	// RFC 3986 reserved and unreserved characters.
	const safeSet = `;/?:@&=+$,-_.!~*'()#`

	sb := new(strings.Builder)
	sb.Grow(len(s))
	skip := 0
	var buf [utf8.UTFMax]byte
	for i, c := range s {
		if skip > 0 {
			skip--
			sb.WriteRune(c)
			continue
		}
		switch {
		case c == '%':
			if i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]) {
				skip = 2
				sb.WriteByte('%')
			} else {
				sb.WriteString("%25")
			}
		case 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || '0' <= c && c <= '9' || strings.ContainsRune(safeSet, c):
			sb.WriteRune(c)
		default:
			n := utf8.EncodeRune(buf[:], c)
			for _, b := range buf[:n] {
				sb.WriteByte('%')
				sb.WriteByte(urlHexDigit(b >> 4))
				sb.WriteByte(urlHexDigit(b & 0x0f))
			}
		}
	}
	return sb.String()
}

func isHex(c byte) bool {
	return 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F' || '0' <= c && c <= '9'
}

func urlHexDigit(x byte) byte {
	switch {
	case x < 0xa:
		return '0' + x
	case x < 0x10:
		return 'A' + x - 0xa
	default:
		panic("out of bounds")
	}
}
