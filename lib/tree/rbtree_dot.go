package tree

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
)

const (
	dotRedNodeAttrs   = "fillcolor=lightcoral, fontcolor=white"
	dotBlackNodeAttrs = "fillcolor=lightgray, fontcolor=black"
)

// Export renders one statement per node, identified by its address, and
// one statement per parent to child edge.
// It is a read-only preorder traversal without recursion.
func (tree *rbTree[K]) Export(w io.Writer) error {
	bw := bufio.NewWriter(w)
	_, _ = bw.WriteString("digraph G {\n")
	_, _ = bw.WriteString("    node [shape=circle, style=filled];\n")

	stack := make([]*rbNode[K], 0, 64)
	defer func() {
		clear(stack)
	}()
	if tree.root != nil {
		stack = append(stack, tree.root)
	}

	for size := len(stack); size > 0; size = len(stack) {
		aux := stack[size-1]
		stack = stack[:size-1]

		attrs := dotBlackNodeAttrs
		if aux.isRed() {
			attrs = dotRedNodeAttrs
		}
		label := strconv.Quote(fmt.Sprint(aux.key))
		if _, err := fmt.Fprintf(bw, "    \"%p\" [label=%s, %s];\n", aux, label, attrs); err != nil {
			return err
		}
		for _, child := range [2]*rbNode[K]{aux.left, aux.right} {
			if child == nil {
				continue
			}
			if _, err := fmt.Fprintf(bw, "    \"%p\" -> \"%p\";\n", aux, child); err != nil {
				return err
			}
		}

		// Left subtree is rendered first.
		if aux.right != nil {
			stack = append(stack, aux.right)
		}
		if aux.left != nil {
			stack = append(stack, aux.left)
		}
	}

	_, _ = bw.WriteString("}\n")
	return bw.Flush()
}
