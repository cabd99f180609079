package tree

import (
	"errors"
	"io"

	"github.com/benz9527/rbrange/lib/infra"
)

// go install golang.org/x/tools/cmd/stringer@latest

//go:generate stringer -type=RBColor
type RBColor uint8

const (
	Black RBColor = iota
	Red
)

//go:generate stringer -type=RBDirection
type RBDirection int8

const (
	Left RBDirection = -1 + iota
	Root
	Right
)

// ErrRBTreeInvariantViolation reports broken bookkeeping inside the tree
// itself, never a caller misuse.
var ErrRBTreeInvariantViolation = errors.New("[rbtree] invariant violation")

type RBNode[K infra.OrderedKey] interface {
	Key() K
	Color() RBColor
	Left() RBNode[K]
	Right() RBNode[K]
	Parent() RBNode[K]
}

// RBTree is an ordered set of unique keys.
// It is not safe for concurrent use.
//
// The red-black properties are restored after every Insert. Erase only
// keeps the BST order unless the tree is built with
// WithRBTreeEraseRebalance.
type RBTree[K infra.OrderedKey] interface {
	Len() int64
	Root() RBNode[K]
	// Insert ignores a key that is already present.
	Insert(key K) error
	// Erase ignores a key that is absent.
	Erase(key K) error
	Exists(key K) bool
	Min() RBNode[K]
	Max() RBNode[K]
	// LowerBound returns the node with the smallest key >= key.
	LowerBound(key K) RBNode[K]
	// UpperBound returns the node with the smallest key > key.
	UpperBound(key K) RBNode[K]
	Successor(node RBNode[K]) RBNode[K]
	Predecessor(node RBNode[K]) RBNode[K]
	// RangeQuery counts the keys in [lo, hi]. An inverted range is empty.
	RangeQuery(lo, hi K) int64
	Foreach(action func(idx int64, color RBColor, key K) bool)
	// Export writes the tree as a graphviz digraph, for debugging only.
	Export(w io.Writer) error
	Clear()
}
