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

// treeIndex identifies a node within a [tree]. The zero value means "nil":
// no real node is ever stored at index zero, since [newTree] seeds a dummy
// node there so that every live index is non-zero and a plain int can serve
// as a two-state pointer without a separate boolean.
type treeIndex int

const nilIndex treeIndex = 0

func (ix treeIndex) valid() bool {
	return ix != nilIndex
}

// treeNode is one node of a [tree]: a tagged item plus sibling-list and
// child-list links expressed as indices rather than pointers, so that the
// tree stays acyclic-by-construction and its items can be mutated in place
// (as inline resolution does) without invalidating other references to them.
type treeNode[T any] struct {
	child treeIndex
	next  treeIndex
	item  T
}

// tree is a slice-backed container intended for fast building as a preorder
// traversal: append a node at the cursor, optionally push down into it to
// make subsequent appends its children, and pop back up when a container
// closes. This mirrors pulldown-cmark's Tree<T>.
type tree[T any] struct {
	nodes []treeNode[T]
	spine []treeIndex // indices of nodes on the path to the current node
	cur   treeIndex
}

// newTree returns an empty tree with its dummy sentinel node in place.
func newTree[T any]() *tree[T] {
	return &tree[T]{
		nodes: []treeNode[T]{{}},
	}
}

// curIndex returns the index of the element currently in focus, or nilIndex.
func (t *tree[T]) curIndex() treeIndex {
	return t.cur
}

// node returns a pointer to the node at ix for direct field access/mutation.
// ix must be valid (non-nil and within range); this is a programming error
// otherwise.
func (t *tree[T]) node(ix treeIndex) *treeNode[T] {
	if ix == nilIndex || int(ix) >= len(t.nodes) {
		panic("commonmark: invalid tree index")
	}
	return &t.nodes[ix]
}

// append adds one item to the current position in the tree, either as the
// next sibling of cur, or — if cur is nil — as the first child of the
// spine's top. It returns the new node's index and makes it the new cur.
func (t *tree[T]) append(item T) treeIndex {
	ix := t.createNode(item)
	if t.cur.valid() {
		t.node(t.cur).next = ix
	} else if len(t.spine) > 0 {
		t.node(t.spine[len(t.spine)-1]).child = ix
	}
	t.cur = ix
	return ix
}

// createNode allocates an isolated node with no siblings or children yet.
func (t *tree[T]) createNode(item T) treeIndex {
	ix := treeIndex(len(t.nodes))
	t.nodes = append(t.nodes, treeNode[T]{item: item})
	return ix
}

// push descends a level: new items appended after this call become children
// of the node currently in focus.
func (t *tree[T]) push() {
	if !t.cur.valid() {
		panic("commonmark: push with no current node")
	}
	t.spine = append(t.spine, t.cur)
	t.cur = t.node(t.cur).child
}

// pop ascends one level, returning the index of the node that was just
// closed (the spine's former top), or nilIndex if the spine was empty.
func (t *tree[T]) pop() treeIndex {
	if len(t.spine) == 0 {
		return nilIndex
	}
	ix := t.spine[len(t.spine)-1]
	t.spine = t.spine[:len(t.spine)-1]
	t.cur = ix
	return ix
}

// peekUp returns the parent (spine top), or nilIndex if at the root.
func (t *tree[T]) peekUp() treeIndex {
	if len(t.spine) == 0 {
		return nilIndex
	}
	return t.spine[len(t.spine)-1]
}

// peekGrandparent returns the grandparent, or nilIndex if the spine is too shallow.
func (t *tree[T]) peekGrandparent() treeIndex {
	if len(t.spine) < 2 {
		return nilIndex
	}
	return t.spine[len(t.spine)-2]
}

// isEmpty reports whether the tree holds no real nodes.
func (t *tree[T]) isEmpty() bool {
	return len(t.nodes) <= 1
}

// spineLen returns the depth of the currently open spine.
func (t *tree[T]) spineLen() int {
	return len(t.spine)
}

// reset moves the focus back to the first node added to the tree (if any)
// and clears the spine, so the tree can be walked again from the top.
func (t *tree[T]) reset() {
	if t.isEmpty() {
		t.cur = nilIndex
	} else {
		t.cur = treeIndex(1)
	}
	t.spine = t.spine[:0]
}

// walkSpine returns the indices from the root down to, but not including,
// the current node.
func (t *tree[T]) walkSpine() []treeIndex {
	return t.spine
}

// nextSibling moves focus to the next sibling of the current focus.
func (t *tree[T]) nextSibling() {
	t.cur = t.node(t.cur).next
}
