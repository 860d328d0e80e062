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

import "strings"

// Nesting is the effect a [Token] has on the tree's depth.
type Nesting int8

const (
	// Close ends the node opened by the matching [Open] token.
	Close Nesting = -1
	// SelfClosing tokens are complete on their own.
	SelfClosing Nesting = 0
	// Open starts a node that is ended by a [Close] token.
	Open Nesting = 1
)

// Token is a lexical unit produced by a Markdown tokenizer.
// The token shape follows markdown-it:
// block structure is expressed as Open/Close pairs
// and the inline content of a block is held in the Children
// of an "inline" token.
//
// Tokens are read-only to this package.
type Token struct {
	Type    string
	Tag     string
	Nesting Nesting
	Content string
	// Info holds a fence's info string,
	// a math block's label,
	// or an ordered list item's number.
	Info  string
	Attrs map[string]string
	Meta  *TokenMeta
	// Children holds the inline tokens of an "inline" token.
	Children []Token
	// Hidden tokens do not produce nodes.
	// markdown-it hides the paragraphs of tight lists.
	Hidden bool
	// Line is the 1-based line the token starts on, or zero if unknown.
	Line int
}

// TokenMeta is the structured payload of syntax extension tokens
// such as directives, roles, targets, and footnotes.
type TokenMeta struct {
	Kind  string
	Name  string
	Label string
	Arg   string
	Value string
	Class []string
}

// Attr returns the value of the named attribute
// or the empty string if the token does not have the attribute.
func (tok *Token) Attr(name string) string {
	if tok == nil {
		return ""
	}
	return tok.Attrs[name]
}

// Name returns the key used to look up the token's handler:
// the token's type without any "_open" or "_close" suffix.
func (tok *Token) Name() string {
	if name, ok := strings.CutSuffix(tok.Type, "_open"); ok {
		return name
	}
	if name, ok := strings.CutSuffix(tok.Type, "_close"); ok {
		return name
	}
	return tok.Type
}

func (tok *Token) meta() *TokenMeta {
	if tok.Meta == nil {
		return new(TokenMeta)
	}
	return tok.Meta
}

// className returns the space-separated class list of the token,
// dropping any class for which exclude returns true.
func (tok *Token) className(exclude func(string) bool) string {
	raw := strings.Join(tok.meta().Class, " ")
	if raw == "" {
		raw = tok.Attr("class")
	}
	sb := new(strings.Builder)
	for _, c := range strings.Fields(raw) {
		if exclude != nil && exclude(c) {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(c)
	}
	return sb.String()
}
