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

// A type that implements ReferenceMatcher can be checked for the presence
// of link reference definitions. The parser's own inline pass does not use
// it; it looks definitions up in its allocations table directly.
type ReferenceMatcher interface {
	MatchReference(normalizedLabel string) bool
}

// LinkDefinition is the data of a [link reference definition].
//
// [link reference definition]: https://spec.commonmark.org/0.30/#link-reference-definition
type LinkDefinition struct {
	Destination  string
	Title        string
	TitlePresent bool
}

// ReferenceMap is a mapping of [normalized labels] to link definitions.
//
// [normalized labels]: https://spec.commonmark.org/0.30/#matches
type ReferenceMap map[string]LinkDefinition

// MatchReference reports whether the normalized label appears in the map.
func (m ReferenceMap) MatchReference(normalizedLabel string) bool {
	_, ok := m[normalizedLabel]
	return ok
}

// References returns the reference definitions collected during the first
// pass, keyed by folded label. Unlike the teacher's Extract, this requires
// no separate tree walk: refdefs are interned into p.allocations as the
// first pass encounters them, in source order, first-write-wins, so the
// map can simply be copied out once parsing is done.
func (p *Parser) References() ReferenceMap {
	m := make(ReferenceMap, len(p.allocations.refdefOrder))
	for _, label := range p.allocations.refdefOrder {
		def := p.allocations.refdefs[label]
		m[label] = LinkDefinition{
			Destination:  def.destination,
			Title:        def.title,
			TitlePresent: def.titlePresent,
		}
	}
	return m
}
