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

package goldmarktok

import (
	"regexp"
	"strings"

	"github.com/yuin/goldmark/ast"
	"zombiezen.com/go/myst"
)

var (
	directiveRE = regexp.MustCompile(`^\{([A-Za-z][\w:.-]*)\}\s*(.*)$`)
	optionRE    = regexp.MustCompile(`^:([\w-]+):\s*(.*)$`)
)

// directive is a parsed "{name} args" fence.
type directive struct {
	name    string
	args    string
	options map[string]string
	// body is the content after the options.
	body string
	// bodyLine is the 0-based document line the body starts on.
	bodyLine int
	// raw is the full content of the fence.
	raw string
}

func (c *converter) fence(n *ast.FencedCodeBlock, line int) {
	info := ""
	if n.Info != nil {
		info = strings.TrimSpace(string(n.Info.Segment.Value(c.source)))
	}
	content := c.linesText(n)
	m := directiveRE.FindStringSubmatch(info)
	if m == nil {
		c.emit(myst.Token{Type: "fence", Tag: "code", Info: info, Content: content, Line: line})
		return
	}
	d := parseDirective(m[1], m[2], content)
	d.bodyLine += line
	switch {
	case d.name == "math":
		typ := "math_block"
		if d.options["label"] != "" {
			typ = "math_block_label"
		}
		c.emit(myst.Token{
			Type:    typ,
			Info:    d.options["label"],
			Content: strings.TrimSpace(d.body),
			Line:    line,
		})
	case d.name == "figure":
		c.figure(d, line)
	case d.name == myst.GenericAdmonition || myst.IsAdmonitionKind(d.name):
		c.admonition(d, line)
	default:
		c.emit(myst.Token{
			Type:    "directive",
			Info:    d.name,
			Content: d.raw,
			Meta:    &myst.TokenMeta{Arg: d.args},
			Line:    line,
		})
	}
}

func parseDirective(name, args, content string) *directive {
	d := &directive{
		name:    name,
		args:    args,
		options: make(map[string]string),
		raw:     content,
	}
	lines := strings.SplitAfter(content, "\n")
	i := 0
	for ; i < len(lines); i++ {
		m := optionRE.FindStringSubmatch(strings.TrimSpace(lines[i]))
		if m == nil {
			break
		}
		d.options[m[1]] = m[2]
	}
	if i < len(lines) && strings.TrimSpace(lines[i]) == "" {
		i++
	}
	d.body = strings.Join(lines[i:], "")
	d.bodyLine = i
	return d
}

func (c *converter) figure(d *directive, line int) {
	var class []string
	if cls := d.options["class"]; cls != "" {
		class = strings.Fields(cls)
	}
	c.emit(myst.Token{
		Type:    "figure_open",
		Nesting: myst.Open,
		Meta:    &myst.TokenMeta{Kind: "figure", Name: d.options["name"], Class: class},
		Line:    line,
	})

	imgAttrs := map[string]string{"src": d.args, "alt": d.options["alt"]}
	if width := d.options["width"]; width != "" {
		imgAttrs["width"] = width
	}
	if align := d.options["align"]; align != "" {
		imgAttrs["class"] = "align-" + align
	}
	c.emit(myst.Token{Type: "paragraph_open", Nesting: myst.Open, Line: line})
	c.emit(myst.Token{Type: "inline", Children: []myst.Token{{Type: "image", Tag: "img", Attrs: imgAttrs}}})
	c.close("paragraph")

	body := tokens([]byte(d.body), d.bodyLine)
	if len(body) >= 3 && body[0].Type == "paragraph_open" && body[1].Type == "inline" && body[2].Type == "paragraph_close" {
		c.emit(myst.Token{Type: "figure_caption_open", Nesting: myst.Open, Line: body[0].Line})
		c.emit(body[1])
		c.close("figure_caption")
		body = body[3:]
	}
	c.tokens = append(c.tokens, body...)
	c.close("figure")
}

func (c *converter) admonition(d *directive, line int) {
	var class []string
	if cls := d.options["class"]; cls != "" {
		class = strings.Fields(cls)
	}
	c.emit(myst.Token{
		Type:    "admonition_open",
		Nesting: myst.Open,
		Meta:    &myst.TokenMeta{Kind: d.name, Class: class},
		Line:    line,
	})
	title := d.args
	if title == "" {
		title, _ = myst.AdmonitionTitle(d.name)
	}
	if title != "" {
		c.open("admonition_title", line)
		titleTokens := tokens([]byte(title), line-1)
		if len(titleTokens) >= 2 && titleTokens[1].Type == "inline" {
			c.emit(titleTokens[1])
		} else {
			c.emit(myst.Token{Type: "inline", Children: []myst.Token{{Type: "text", Content: title}}})
		}
		c.close("admonition_title")
	}
	c.tokens = append(c.tokens, tokens([]byte(d.body), d.bodyLine)...)
	c.close("admonition")
}
