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

// A Cursor describes a [Node] encountered during [Walk].
type Cursor struct {
	node   *Node
	parent *Node
	index  int
}

// Node returns the current [Node].
func (c *Cursor) Node() *Node {
	return c.node
}

// Parent returns the parent of the current [Node]
// (as returned by [*Cursor.Node])
// or nil if the current node is the root of the walk.
func (c *Cursor) Parent() *Node {
	return c.parent
}

// Index returns the index of the current [Node]
// in its parent's children
// or -1 if the current node is the root of the walk.
func (c *Cursor) Index() int {
	return c.index
}

// WalkOptions is the set of parameters to [Walk].
type WalkOptions struct {
	// If Pre is not nil, it is called for each node before the node's children are traversed (pre-order).
	// If Pre returns false, no children are traversed, and Post is not called for that node.
	Pre func(c *Cursor) bool
	// If Post is not nil, it is called for each node after the node's children are traversed (post-order).
	// If Post returns false, traversal is terminated and Walk returns immediately.
	Post func(c *Cursor) bool
}

// Walk traverses a [Node] recursively, starting with root,
// and calling [WalkOptions.Pre] and [WalkOptions.Post].
// Pre may modify the children of the current node
// before they are traversed.
func Walk(root *Node, opts *WalkOptions) {
	type walkFrame struct {
		node   *Node
		parent *Node
		index  int
		post   bool
	}

	stack := []walkFrame{{node: root, index: -1}}
	cursor := new(Cursor)
	for len(stack) > 0 {
		curr := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if curr.post {
			if opts.Post != nil {
				cursor.node = curr.node
				cursor.parent = curr.parent
				cursor.index = curr.index
				if !opts.Post(cursor) {
					break
				}
			}
			continue
		}

		if opts.Pre != nil {
			cursor.node = curr.node
			cursor.parent = curr.parent
			cursor.index = curr.index
			if !opts.Pre(cursor) {
				continue
			}
		}
		curr.post = true
		stack = append(stack, curr)
		for i := curr.node.ChildCount() - 1; i >= 0; i-- {
			stack = append(stack, walkFrame{
				parent: curr.node,
				node:   curr.node.Child(i),
				index:  i,
			})
		}
	}
}

// Preorder returns the nodes of the tree rooted at root in document order,
// starting with root itself.
func Preorder(root *Node) []*Node {
	var nodes []*Node
	Walk(root, &WalkOptions{
		Pre: func(c *Cursor) bool {
			nodes = append(nodes, c.Node())
			return true
		},
	})
	return nodes
}

// SelectAll returns the nodes of the given type in document order.
func SelectAll(root *Node, typ NodeType) []*Node {
	var nodes []*Node
	Walk(root, &WalkOptions{
		Pre: func(c *Cursor) bool {
			if c.Node().Type == typ {
				nodes = append(nodes, c.Node())
			}
			return true
		},
	})
	return nodes
}

// rewriteChildren replaces every child of every node in the tree
// with the nodes returned by f.
// Nodes returned by f are visited afterward.
func rewriteChildren(root *Node, f func(child *Node) []*Node) {
	stack := []*Node{root}
	for len(stack) > 0 {
		curr := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if curr.Children == nil {
			continue
		}
		newChildren := make([]*Node, 0, len(curr.Children))
		for _, c := range curr.Children {
			newChildren = append(newChildren, f(c)...)
		}
		curr.Children = newChildren
		for i := len(newChildren) - 1; i >= 0; i-- {
			stack = append(stack, newChildren[i])
		}
	}
}

// removeType deletes every node of the given type from the tree,
// along with its descendants.
func removeType(root *Node, typ NodeType) {
	rewriteChildren(root, func(child *Node) []*Node {
		if child.Type == typ {
			return nil
		}
		return []*Node{child}
	})
}

// liftType replaces every node of the given type
// with its children, in order.
func liftType(root *Node, typ NodeType) {
	var expand func(n *Node) []*Node
	expand = func(n *Node) []*Node {
		if n.Type != typ {
			return []*Node{n}
		}
		var lifted []*Node
		for _, c := range n.Children {
			lifted = append(lifted, expand(c)...)
		}
		return lifted
	}
	rewriteChildren(root, expand)
}

// nextInDocumentOrder returns the first node after nodes[i]
// in the pre-order slice nodes that is not a descendant of nodes[i]
// and for which skip returns false.
func nextInDocumentOrder(nodes []*Node, i int, skip func(*Node) bool) *Node {
	end := i + 1 + descendantCount(nodes[i])
	for j := end; j < len(nodes); j++ {
		if skip == nil || !skip(nodes[j]) {
			return nodes[j]
		}
	}
	return nil
}

func descendantCount(n *Node) int {
	count := 0
	stack := append([]*Node(nil), n.Children...)
	for len(stack) > 0 {
		curr := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		count++
		stack = append(stack, curr.Children...)
	}
	return count
}
