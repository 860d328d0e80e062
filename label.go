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
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalized is the set of identifiers derived from a single label.
type Normalized struct {
	// Identifier is the canonical lookup key:
	// Label lower-cased.
	Identifier string
	// Label is the raw label with runs of whitespace
	// collapsed to a single space and trimmed.
	Label string
	// HTMLID is an anchor-safe form of Identifier.
	HTMLID string
}

// NormalizeLabel derives the identifiers for a raw label.
// It returns false if the label is empty or only whitespace.
// NormalizeLabel is idempotent:
// normalizing the Identifier of a result yields the same Identifier.
func NormalizeLabel(label string) (Normalized, bool) {
	collapsed := strings.Join(strings.Fields(label), " ")
	if collapsed == "" {
		return Normalized{}, false
	}
	identifier := cases.Lower(language.Und).String(collapsed)
	return Normalized{
		Identifier: identifier,
		Label:      collapsed,
		HTMLID:     CreateHTMLID(identifier),
	}, true
}

// CreateHTMLID converts an identifier into a string
// that is safe to use as an HTML id attribute or URL fragment:
// it only contains ASCII lowercase letters, digits, and single hyphens,
// starts with a letter, and never begins or ends with a hyphen.
// Letters with diacritics are replaced by their base letter.
// CreateHTMLID returns the empty string if nothing usable remains.
func CreateHTMLID(identifier string) string {
	folder := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(folder, identifier)
	if err != nil {
		folded = identifier
	}
	folded = cases.Lower(language.Und).String(folded)

	buf := make([]byte, 0, len(folded)+len("id-"))
	for _, c := range folded {
		if 'a' <= c && c <= 'z' || '0' <= c && c <= '9' || c == '-' {
			buf = append(buf, byte(c))
		} else {
			buf = append(buf, '-')
		}
	}

	// Collapse hyphen runs.
	n := 0
	for i, b := range buf {
		if b == '-' && i > 0 && buf[i-1] == '-' {
			continue
		}
		buf[n] = b
		n++
	}
	id := strings.Trim(string(buf[:n]), "-")
	if id != "" && '0' <= id[0] && id[0] <= '9' {
		id = "id-" + id
	}
	return id
}

// ToText returns the concatenated text content of the given nodes
// and their descendants.
func ToText(nodes []*Node) string {
	sb := new(strings.Builder)
	for _, n := range nodes {
		Walk(n, &WalkOptions{
			Pre: func(c *Cursor) bool {
				curr := c.Node()
				switch {
				case curr.Type == BreakType:
					sb.WriteByte(' ')
				case len(curr.Children) == 0:
					sb.WriteString(curr.Value)
				}
				return true
			},
		})
	}
	return sb.String()
}
