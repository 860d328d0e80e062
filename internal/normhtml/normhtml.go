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

// Package normhtml normalizes rendered HTML
// so that tests can compare documents
// without depending on insignificant output differences
// like whitespace between blocks, attribute order, or class order.
package normhtml

import (
	"bytes"
	"regexp"
	"slices"
	"strings"
	"unicode"

	"go4.org/bytereplacer"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Options is the set of parameters to [Normalize].
type Options struct {
	// DropAttrs lists attributes to remove from every element.
	DropAttrs []string
	// KeepClassOrder disables sorting the words of class attributes.
	KeepClassOrder bool
}

// NormalizeHTML strips insignificant output differences from HTML
// using the default [Options].
func NormalizeHTML(b []byte) []byte {
	return Normalize(b, nil)
}

// Normalize strips insignificant output differences from HTML.
func Normalize(b []byte, opts *Options) []byte {
	if opts == nil {
		opts = new(Options)
	}
	n := &normalizer{
		opts: opts,
		tok:  html.NewTokenizerFragment(bytes.NewReader(b), "div"),
		last: html.StartTagToken,
	}
	for {
		tt := n.tok.Next()
		switch tt {
		case html.ErrorToken:
			return n.output
		case html.TextToken:
			n.text(n.tok.Text())
		case html.EndTagToken:
			tagBytes, _ := n.tok.TagName()
			n.endTag(string(tagBytes))
		case html.StartTagToken, html.SelfClosingTagToken:
			n.startTag()
		case html.CommentToken:
			n.output = append(n.output, n.tok.Raw()...)
		}

		n.last = tt
		if tt == html.SelfClosingTagToken {
			n.last = html.EndTagToken
		}
	}
}

var whitespaceRE = regexp.MustCompile(`\s+`)

var htmlEscaper = bytereplacer.New(
	"&", "&amp;",
	`'`, "&apos;",
	`<`, "&lt;",
	`>`, "&gt;",
	`"`, "&quot;",
)

type normalizer struct {
	opts    *Options
	tok     *html.Tokenizer
	output  []byte
	last    html.TokenType
	lastTag string
	inPre   bool
}

func (n *normalizer) text(data []byte) {
	afterTag := n.last == html.EndTagToken || n.last == html.StartTagToken
	afterBlockTag := afterTag && isBlockTag(n.lastTag)
	if afterTag && n.lastTag == atom.Br.String() {
		data = bytes.TrimLeft(data, "\n")
	}
	if !n.inPre {
		data = whitespaceRE.ReplaceAll(data, []byte(" "))
	}
	if afterBlockTag && !n.inPre {
		switch n.last {
		case html.StartTagToken:
			data = bytes.TrimLeftFunc(data, unicode.IsSpace)
		case html.EndTagToken:
			data = bytes.TrimSpace(data)
		}
	}
	n.output = append(n.output, htmlEscaper.Replace(bytes.Clone(data))...)
}

func (n *normalizer) endTag(tag string) {
	if tag == atom.Pre.String() {
		n.inPre = false
	} else if isBlockTag(tag) {
		n.output = bytes.TrimRightFunc(n.output, unicode.IsSpace)
	}
	n.output = append(n.output, "</"...)
	n.output = append(n.output, tag...)
	n.output = append(n.output, ">"...)
	n.lastTag = tag
}

func (n *normalizer) startTag() {
	type htmlAttribute struct {
		key   string
		value string
	}

	tagBytes, hasAttr := n.tok.TagName()
	tag := string(tagBytes)
	if tag == atom.Pre.String() {
		n.inPre = true
	}
	if isBlockTag(tag) {
		n.output = bytes.TrimRightFunc(n.output, unicode.IsSpace)
	}
	n.output = append(n.output, "<"...)
	n.output = append(n.output, tag...)
	var attrs []htmlAttribute
	for more := hasAttr; more; {
		var k, v []byte
		k, v, more = n.tok.TagAttr()
		key := string(k)
		if slices.Contains(n.opts.DropAttrs, key) {
			continue
		}
		value := string(v)
		if key == "class" && !n.opts.KeepClassOrder {
			classes := strings.Fields(value)
			slices.Sort(classes)
			value = strings.Join(classes, " ")
		}
		attrs = append(attrs, htmlAttribute{key, value})
	}
	slices.SortFunc(attrs, func(a, b htmlAttribute) int {
		return strings.Compare(a.key, b.key)
	})
	for _, attr := range attrs {
		n.output = append(n.output, " "...)
		n.output = append(n.output, attr.key...)
		if attr.value != "" {
			n.output = append(n.output, `="`...)
			n.output = append(n.output, html.EscapeString(attr.value)...)
			n.output = append(n.output, `"`...)
		}
	}
	n.output = append(n.output, ">"...)
	n.lastTag = tag
}

var blockTags = map[atom.Atom]struct{}{
	atom.Article:    {},
	atom.Aside:      {},
	atom.Blockquote: {},
	atom.Body:       {},
	atom.Caption:    {},
	atom.Dd:         {},
	atom.Div:        {},
	atom.Dl:         {},
	atom.Dt:         {},
	atom.Figcaption: {},
	atom.Figure:     {},
	atom.Footer:     {},
	atom.H1:         {},
	atom.H2:         {},
	atom.H3:         {},
	atom.H4:         {},
	atom.H5:         {},
	atom.H6:         {},
	atom.Header:     {},
	atom.Hr:         {},
	atom.Li:         {},
	atom.Ol:         {},
	atom.P:          {},
	atom.Pre:        {},
	atom.Script:     {},
	atom.Section:    {},
	atom.Style:      {},
	atom.Table:      {},
	atom.Td:         {},
	atom.Th:         {},
	atom.Tr:         {},
	atom.Ul:         {},
}

func isBlockTag(tag string) bool {
	_, ok := blockTags[atom.Lookup([]byte(tag))]
	return ok
}
