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

package format_test

import (
	"bytes"
	"os"

	"zombiezen.com/go/myst"
	"zombiezen.com/go/myst/format"
)

func ExampleFormat() {
	tokens := []myst.Token{
		{Type: "heading_open", Tag: "h1", Nesting: myst.Open},
		{Type: "inline", Children: []myst.Token{{Type: "text", Content: "Results"}}},
		{Type: "heading_close", Tag: "h1", Nesting: myst.Close},
		{Type: "myst_target", Content: "fig-cat"},
		{Type: "figure_open", Nesting: myst.Open, Meta: &myst.TokenMeta{Name: "fig-cat"}},
		{Type: "paragraph_open", Nesting: myst.Open},
		{Type: "inline", Children: []myst.Token{{Type: "image", Attrs: map[string]string{"src": "cat.png", "alt": "A cat"}}}},
		{Type: "paragraph_close", Nesting: myst.Close},
		{Type: "figure_caption_open", Nesting: myst.Open},
		{Type: "inline", Children: []myst.Token{{Type: "text", Content: "The cat."}}},
		{Type: "figure_caption_close", Nesting: myst.Close},
		{Type: "figure_close", Nesting: myst.Close},
		{Type: "paragraph_open", Nesting: myst.Open},
		{Type: "inline", Children: []myst.Token{
			{Type: "text", Content: "As shown in "},
			{Type: "ref", Meta: &myst.TokenMeta{Kind: "numref", Name: "fig-cat"}},
			{Type: "text", Content: "."},
		}},
		{Type: "paragraph_close", Nesting: myst.Close},
	}
	root, _ := myst.ProcessDocument(tokens, nil)

	out := new(bytes.Buffer)
	if err := format.Format(out, root); err != nil {
		// Writing in-memory shouldn't fail.
		panic(err)
	}
	os.Stdout.Write(out.Bytes())
	// Output:
	// # Results
	//
	// ```{figure} cat.png
	// :name: fig-cat
	// :alt: A cat
	// The cat.
	// ```
	//
	// As shown in {numref}`fig-cat`.
}
