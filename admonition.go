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

// GenericAdmonition is the admonition kind
// whose title is always supplied by the author.
const GenericAdmonition = "admonition"

var admonitionTitles = map[string]string{
	"attention": "Attention",
	"caution":   "Caution",
	"danger":    "Danger",
	"error":     "Error",
	"important": "Important",
	"hint":      "Hint",
	"note":      "Note",
	"seealso":   "See Also",
	"tip":       "Tip",
	"warning":   "Warning",
}

// AdmonitionTitle returns the canonical title of an admonition kind,
// like "Note" for "note".
// It returns false for the generic kind and for unknown kinds.
func AdmonitionTitle(kind string) (title string, ok bool) {
	title, ok = admonitionTitles[kind]
	return title, ok
}

// IsAdmonitionKind reports whether kind names a built-in admonition.
func IsAdmonitionKind(kind string) bool {
	_, ok := admonitionTitles[kind]
	return ok || kind == GenericAdmonition
}
