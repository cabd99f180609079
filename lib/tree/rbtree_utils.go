package tree

import (
	"errors"

	"github.com/benz9527/rbrange/lib/infra"
)

var (
	errRBTreeRedViolation   = errors.New("rbtree red violation")
	errRBTreeBlackViolation = errors.New("rbtree black violation")
	errRBTreeOrderViolation = errors.New("rbtree order violation")
	errRBTreeLinkViolation  = errors.New("rbtree link violation")
)

func isBlack[K infra.OrderedKey](node RBNode[K]) bool {
	return node == nil || node.Color() == Black
}

func isRed[K infra.OrderedKey](node RBNode[K]) bool {
	return node != nil && node.Color() == Red
}

func blackDepthTo[K infra.OrderedKey](target, to RBNode[K]) int {
	depth := 0
	for aux := target; aux != nil && aux != to; aux = aux.Parent() {
		if isBlack[K](aux) {
			depth++
		}
	}
	return depth
}

// rbtree rule validation utilities.

// References:
// https://github1s.com/minghu6/rust-minghu6/blob/master/coll_st/src/bst/rb.rs

// Inorder traversal to validate the rbtree properties.
func RedViolationValidate[K infra.OrderedKey](tree RBTree[K]) error {
	size := tree.Len()
	aux := tree.Root()
	if size <= 0 || aux == nil {
		return nil
	}

	stack := make([]RBNode[K], 0, size>>1)
	defer func() {
		clear(stack)
	}()

	for ; aux != nil; aux = aux.Left() {
		stack = append(stack, aux)
	}

	for size = int64(len(stack)); size > 0; size = int64(len(stack)) {
		if aux = stack[size-1]; isRed[K](aux) {
			if isRed[K](aux.Parent()) || isRed[K](aux.Left()) || isRed[K](aux.Right()) {
				return errRBTreeRedViolation
			}
		}

		stack = stack[:size-1]
		if aux.Right() != nil {
			for aux = aux.Right(); aux != nil; aux = aux.Left() {
				stack = append(stack, aux)
			}
		}
	}
	return nil
}

// BFS traversal to load all nodes that hold at least one nil leaf.
func bfsLeaves[K infra.OrderedKey](tree RBTree[K]) []RBNode[K] {
	size := tree.Len()
	aux := tree.Root()
	if size <= 0 || aux == nil {
		return nil
	}

	leaves := make([]RBNode[K], 0, size>>1+1)
	queue := make([]RBNode[K], 0, size>>1+1)
	defer func() {
		clear(queue)
	}()
	queue = append(queue, aux)

	for len(queue) > 0 {
		aux = queue[0]
		l, r := aux.Left(), aux.Right()
		if /* nil leaves, keep one */ l == nil || r == nil {
			leaves = append(leaves, aux)
		}
		if l != nil {
			queue = append(queue, l)
		}
		if r != nil {
			queue = append(queue, r)
		}
		queue = queue[1:]
	}
	return leaves
}

/*
<X> is a RED node.
[X] is a BLACK node (or NIL).

	        [13]
			/  \
		 <8>    [15]
		 / \    /  \
	  [6] [11] [14] [17]
	  /              /
	<1>            [16]

Each leaf node to root node black depth are equal.
The root itself must be black.
*/
func BlackViolationValidate[K infra.OrderedKey](tree RBTree[K]) error {
	if isRed[K](tree.Root()) {
		return errRBTreeBlackViolation
	}
	leaves := bfsLeaves[K](tree)
	if leaves == nil {
		return nil
	}

	blackDepth := blackDepthTo[K](leaves[0], tree.Root())
	for i := 1; i < len(leaves); i++ {
		if blackDepthTo[K](leaves[i], tree.Root()) != blackDepth {
			return errRBTreeBlackViolation
		}
	}
	return nil
}

// OrderViolationValidate checks the strict ascending order (by the tree's
// own comparator) of an inorder traversal and the element count.
func OrderViolationValidate[K infra.OrderedKey](tree RBTree[K]) error {
	cmp := infra.AscComparator[K]
	if t, ok := tree.(*rbTree[K]); ok {
		cmp = t.cmp
	}

	var (
		prev    K
		visited int64
		err     error
	)
	tree.Foreach(func(idx int64, color RBColor, key K) bool {
		if idx > 0 && cmp(prev, key) >= 0 {
			err = errRBTreeOrderViolation
			return false
		}
		prev = key
		visited++
		return true
	})
	if err == nil && visited != tree.Len() {
		err = errRBTreeOrderViolation
	}
	return err
}

// LinkViolationValidate checks every child links back to its parent.
func LinkViolationValidate[K infra.OrderedKey](tree RBTree[K]) error {
	root := tree.Root()
	if root == nil {
		if tree.Len() != 0 {
			return errRBTreeLinkViolation
		}
		return nil
	}
	if root.Parent() != nil {
		return errRBTreeLinkViolation
	}

	queue := []RBNode[K]{root}
	visited := int64(0)
	for len(queue) > 0 {
		aux := queue[0]
		queue = queue[1:]
		visited++
		for _, child := range [2]RBNode[K]{aux.Left(), aux.Right()} {
			if child == nil {
				continue
			}
			if child.Parent() != aux {
				return errRBTreeLinkViolation
			}
			queue = append(queue, child)
		}
	}
	if visited != tree.Len() {
		return errRBTreeLinkViolation
	}
	return nil
}
