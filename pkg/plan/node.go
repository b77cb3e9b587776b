// Package plan models the physical operator tree reported back by an engine
// and classifies its nodes into accelerated and reference-path sets.
package plan

import (
	"strings"
)

// Node is one operator in a physical plan. The Accelerated tag is set once,
// during plan construction, by the engine boundary that produced the plan.
type Node struct {
	Name        string  `json:"name"`
	Accelerated bool    `json:"accelerated"`
	Children    []*Node `json:"children,omitempty"`
}

// NewNode constructs a plan node.
func NewNode(name string, accelerated bool, children ...*Node) *Node {
	return &Node{Name: name, Accelerated: accelerated, Children: children}
}

// Classification partitions a plan's nodes by execution path. Nodes are
// partitioned by identity, not by name: the same operator name may occur on
// both paths within one plan.
type Classification struct {
	Accelerated []*Node
	Reference   []*Node
}

// ReferenceNames returns the distinct operator names on the reference path.
func (c Classification) ReferenceNames() []string {
	return distinctNames(c.Reference)
}

// AcceleratedNames returns the distinct operator names on the accelerated path.
func (c Classification) AcceleratedNames() []string {
	return distinctNames(c.Accelerated)
}

func distinctNames(nodes []*Node) []string {
	seen := make(map[string]struct{}, len(nodes))
	names := make([]string, 0, len(nodes))
	for _, n := range nodes {
		if _, ok := seen[n.Name]; ok {
			continue
		}
		seen[n.Name] = struct{}{}
		names = append(names, n.Name)
	}
	return names
}

// Classify walks the tree once and partitions every node by its tag.
// The walk uses an explicit stack so arbitrarily deep plans cannot
// overflow the goroutine stack.
func Classify(root *Node) Classification {
	var c Classification
	if root == nil {
		return c
	}

	stack := []*Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if n.Accelerated {
			c.Accelerated = append(c.Accelerated, n)
		} else {
			c.Reference = append(c.Reference, n)
		}

		// Push children in reverse so the walk visits them left to right.
		for i := len(n.Children) - 1; i >= 0; i-- {
			stack = append(stack, n.Children[i])
		}
	}
	return c
}

// TagByName retags every node in the tree: accelerated iff its name is in
// acceleratedNames. Used for engines that report operator names without tags.
func TagByName(root *Node, acceleratedNames map[string]struct{}) {
	if root == nil {
		return
	}
	stack := []*Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		_, n.Accelerated = acceleratedNames[n.Name]
		for i := len(n.Children) - 1; i >= 0; i-- {
			stack = append(stack, n.Children[i])
		}
	}
}

// Render returns an indented dump of the tree with each node annotated by its
// execution path. This is the diagnostic form embedded in failure reports.
func Render(root *Node) string {
	if root == nil {
		return "<empty plan>"
	}

	var sb strings.Builder
	type frame struct {
		node  *Node
		depth int
	}
	stack := []frame{{root, 0}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		sb.WriteString(strings.Repeat("  ", f.depth))
		sb.WriteString(f.node.Name)
		if f.node.Accelerated {
			sb.WriteString(" [accel]")
		} else {
			sb.WriteString(" [ref]")
		}
		sb.WriteByte('\n')

		for i := len(f.node.Children) - 1; i >= 0; i-- {
			stack = append(stack, frame{f.node.Children[i], f.depth + 1})
		}
	}
	return sb.String()
}
