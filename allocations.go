// Copyright 2018 Google LLC
// Copyright 2023 Ross Light
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

package commonmark

// linkData holds the resolved fields of a Link or Image tag, stored in the
// allocations table and referenced from an itemBody by index.
type linkData struct {
	kind  LinkKind
	dest  string
	title string
}

// refDef is one entry of the reference-definition table: a link
// destination and title. Footnote definitions are tracked separately, in
// footnoteDefs.
type refDef struct {
	destination string
	title       string
	titlePresent bool
}

// allocations is the parser's side-table store, analogous to
// pulldown-cmark's Allocations struct: small integer indices stored in
// itemBody.idx index into these slices/maps instead of inlining variable-
// sized data into every node.
type allocations struct {
	// cows holds miscellaneous arena/owned strings referenced by idx that
	// don't warrant their own vector: fenced-code info strings. Mirrors
	// parse.rs's Allocations.cows.
	cows []string

	links      []linkData
	alignments [][]Alignment

	// refdefs maps a folded, whitespace-normalized label to its
	// definition. First write wins (§3 invariant 5).
	refdefs map[string]refDef
	// refdefOrder preserves insertion order for deterministic iteration
	// (e.g. when a consumer wants to list all definitions).
	refdefOrder []string

	// footnoteDefs maps a folded label to the tree index of its
	// FootnoteDefinition container.
	footnoteDefs map[string]treeIndex
}

func newAllocations() *allocations {
	return &allocations{
		refdefs:      make(map[string]refDef),
		footnoteDefs: make(map[string]treeIndex),
	}
}

func (a *allocations) addCow(s string) int {
	a.cows = append(a.cows, s)
	return len(a.cows) - 1
}

func (a *allocations) addLink(ld linkData) int {
	a.links = append(a.links, ld)
	return len(a.links) - 1
}

func (a *allocations) addAlignments(al []Alignment) int {
	a.alignments = append(a.alignments, al)
	return len(a.alignments) - 1
}

// insertRefDef inserts a reference definition under its folded key,
// ignoring the insertion if one is already present.
func (a *allocations) insertRefDef(foldedLabel string, def refDef) {
	if _, exists := a.refdefs[foldedLabel]; exists {
		return
	}
	a.refdefs[foldedLabel] = def
	a.refdefOrder = append(a.refdefOrder, foldedLabel)
}

func (a *allocations) lookupRefDef(foldedLabel string) (refDef, bool) {
	d, ok := a.refdefs[foldedLabel]
	return d, ok
}

func (a *allocations) insertFootnoteDef(foldedLabel string, ix treeIndex) {
	if _, exists := a.footnoteDefs[foldedLabel]; exists {
		return
	}
	a.footnoteDefs[foldedLabel] = ix
}

func (a *allocations) lookupFootnoteDef(foldedLabel string) (treeIndex, bool) {
	ix, ok := a.footnoteDefs[foldedLabel]
	return ix, ok
}
