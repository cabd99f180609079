package tree

import (
	"sync/atomic"

	"github.com/benz9527/rbrange/lib/infra"
)

type rbNode[K infra.OrderedKey] struct {
	parent *rbNode[K]
	left   *rbNode[K]
	right  *rbNode[K]
	key    K
	color  RBColor
}

func (node *rbNode[K]) Color() RBColor {
	return node.color
}

func (node *rbNode[K]) Key() K {
	return node.key
}

func (node *rbNode[K]) Left() RBNode[K] {
	if node == nil {
		return nil
	}
	return node.left.asRBNode()
}

func (node *rbNode[K]) Parent() RBNode[K] {
	if node == nil {
		return nil
	}
	return node.parent.asRBNode()
}

func (node *rbNode[K]) Right() RBNode[K] {
	if node == nil {
		return nil
	}
	return node.right.asRBNode()
}

// asRBNode avoids leaking a typed nil pointer through the interface.
func (node *rbNode[K]) asRBNode() RBNode[K] {
	if node == nil {
		return nil
	}
	return node
}

func nodeOf[K infra.OrderedKey](node RBNode[K]) *rbNode[K] {
	n, _ := node.(*rbNode[K])
	return n
}

// A nil child counts as black.
func (node *rbNode[K]) isBlack() bool {
	return node == nil || node.color == Black
}

func (node *rbNode[K]) isRed() bool {
	return node != nil && node.color == Red
}

func (node *rbNode[K]) isRoot() bool {
	return node != nil && node.parent == nil
}

func (node *rbNode[K]) Direction() RBDirection {
	if node == nil {
		// impossible run to here
		panic( /* debug assertion */ "[rbtree] nil node without direction")
	}

	if node.isRoot() {
		return Root
	}
	if node == node.parent.left {
		return Left
	}
	return Right
}

func (node *rbNode[K]) sibling() *rbNode[K] {
	switch node.Direction() {
	case Left:
		return node.parent.right
	case Right:
		return node.parent.left
	default:
	}
	return nil
}

func (node *rbNode[K]) uncle() *rbNode[K] {
	return node.parent.sibling()
}

func (node *rbNode[K]) fixLink() {
	if node.left != nil {
		node.left.parent = node
	}
	if node.right != nil {
		node.right.parent = node
	}
}

// unlink clears every link of a node that left the tree.
func (node *rbNode[K]) unlink() {
	node.parent = nil
	node.left = nil
	node.right = nil
}

func (node *rbNode[K]) minimum() *rbNode[K] {
	aux := node
	for ; aux != nil && aux.left != nil; aux = aux.left {
	}
	return aux
}

func (node *rbNode[K]) maximum() *rbNode[K] {
	aux := node
	for ; aux != nil && aux.right != nil; aux = aux.right {
	}
	return aux
}

// The pred node of the current node is its previous node in sorted order
func (node *rbNode[K]) pred() *rbNode[K] {
	x := node
	if x == nil {
		return nil
	}
	if x.left != nil {
		return x.left.maximum()
	}

	aux := x.parent
	// Backtrack to father node that is the x's pred.
	for aux != nil && x == aux.left {
		x = aux
		aux = aux.parent
	}
	return aux
}

// The succ node of the current node is its next node in sorted order.
func (node *rbNode[K]) succ() *rbNode[K] {
	x := node
	if x == nil {
		return nil
	}
	if x.right != nil {
		return x.right.minimum()
	}

	aux := x.parent
	// Backtrack to father node that is the x's succ.
	for aux != nil && x == aux.right {
		x = aux
		aux = aux.parent
	}
	return aux
}

type rbTree[K infra.OrderedKey] struct {
	root             *rbNode[K]
	cmp              infra.OrderedKeyComparator[K]
	count            int64
	isEraseRebalance bool
}

func (tree *rbTree[K]) keyCompare(k1, k2 K) int64 {
	return tree.cmp(k1, k2)
}

func (tree *rbTree[K]) Len() int64 {
	return atomic.LoadInt64(&tree.count)
}

func (tree *rbTree[K]) Root() RBNode[K] {
	return tree.root.asRBNode()
}

// replaceChild relinks the slot of old under parent to repl.
// A nil parent means old is the root.
func (tree *rbTree[K]) replaceChild(parent, old, repl *rbNode[K]) error {
	switch {
	case parent == nil:
		tree.root = repl
	case parent.left == old:
		parent.left = repl
	case parent.right == old:
		parent.right = repl
	default:
		return infra.WrapErrorStackWithMessage(ErrRBTreeInvariantViolation, "parent does not link to the replaced child")
	}
	if repl != nil {
		repl.parent = parent
	}
	return nil
}

// References:
// https://elixir.bootlin.com/linux/latest/source/lib/rbtree.c
// rbtree properties:
// https://en.wikipedia.org/wiki/Red%E2%80%93black_tree#Properties
// p1. Every node is either red or black.
// p2. All NIL nodes are considered black.
// p3. A red node does not have a red child. (red-violation)
// p4. Every path from a given node to any of its descendant
//   NIL nodes goes through the same number of black nodes. (black-violation)
// p5. The root is black.

/*
		 |                         |
		 X                         S
		/ \     leftRotate(X)     / \
	   L   S    ============>    X   Sd
		  / \                   / \
		Sc   Sd                L   Sc
*/
func (tree *rbTree[K]) leftRotate(x *rbNode[K]) error {
	if x == nil || x.right == nil {
		return infra.WrapErrorStackWithMessage(ErrRBTreeInvariantViolation, "left rotate node x is nil or x.right is nil")
	}

	p, y := x.parent, x.right
	if err := tree.replaceChild(p, x, y); err != nil {
		return err
	}
	x.right, y.left = y.left, x

	x.fixLink()
	y.fixLink()
	return nil
}

/*
			 |                         |
			 X                         S
			/ \     rightRotate(S)    / \
	       L   S    <============    X   R
			  / \                   / \
			Sc   Sd               Sc   Sd
*/
func (tree *rbTree[K]) rightRotate(x *rbNode[K]) error {
	if x == nil || x.left == nil {
		return infra.WrapErrorStackWithMessage(ErrRBTreeInvariantViolation, "right rotate node x is nil or x.left is nil")
	}

	p, y := x.parent, x.left
	if err := tree.replaceChild(p, x, y); err != nil {
		return err
	}
	x.left, y.right = y.right, x

	x.fixLink()
	y.fixLink()
	return nil
}

// i1: Empty rbtree, insert directly, but root node is painted to black.
// i2: The key exists, nothing changed.
func (tree *rbTree[K]) Insert(key K) error {
	if /* i1 */ tree.root == nil {
		tree.root = &rbNode[K]{
			key:   key,
			color: Black,
		}
		atomic.AddInt64(&tree.count, 1)
		return nil
	}

	var (
		x, y = tree.root, (*rbNode[K])(nil)
		res  int64
	)
	for x != nil {
		y = x
		res = tree.keyCompare(key, x.key)
		if /* i2 */ res == 0 {
			return nil
		} else /* less */ if res < 0 {
			x = x.left
		} else /* greater */ {
			x = x.right
		}
	}

	z := &rbNode[K]{
		key:    key,
		color:  Red,
		parent: y,
	}
	if res < 0 {
		y.left = z
	} else {
		y.right = z
	}
	atomic.AddInt64(&tree.count, 1)
	return tree.insertRebalance(z)
}

/*
New node X is red by default.

<X> is a RED node.
[X] is a BLACK node (or NIL).

im1: Current node X is root or X's parent P is black, so hold p3 and p4.

im2: If both the parent P and the uncle U are red, grandpa G is black.
(red-violation)
G is repainted into red unless it is the root.
After repainted G may be still red-violation.
Loop to fix grandpa.

	    [G]             <G>
	    / \             / \
	  <P> <U>  ====>  [P] [U]
	  /               /
	<X>             <X>

im3: The parent P is red but the uncle U is black. (red-violation)
X is opposite direction to P. Rotate P to X's direction, then X is the
apex between G and P. Here must enter im4 to fix the former parent P.

	  [G]                 [G]
	  / \    rotate(P)    / \
	<P> [U]  ========>  <X> [U]
	  \                 /
	  <X>             <P>

im4: Handle im3 scenario, current node is the same direction as parent.
Rotate G and swap the colors of the two pivots.

	    [G]                 <P>               [P]
	    / \    rotate(G)    / \    repaint    / \
	  <P> [U]  ========>  <X> [G]  ======>  <X> <G>
	  /                         \                 \
	<X>                         [U]               [U]
*/
func (tree *rbTree[K]) insertRebalance(x *rbNode[K]) error {
	for x != nil {
		if x.isRoot() {
			x.color = Black
			return nil
		}

		p := x.parent
		if /* im1 */ p.isBlack() {
			return nil
		}

		gp := p.parent
		if gp == nil {
			return infra.WrapErrorStackWithMessage(ErrRBTreeInvariantViolation, "red parent without grandpa")
		}

		if /* im2 */ u := x.uncle(); u.isRed() {
			p.color = Black
			u.color = Black
			if !gp.isRoot() {
				gp.color = Red
			}
			x = gp
			continue
		}

		var err error
		dir, pDir := x.Direction(), p.Direction()
		if /* im3 */ dir != pDir {
			switch dir {
			case Left:
				err = tree.rightRotate(p)
			case Right:
				err = tree.leftRotate(p)
			default:
				err = infra.WrapErrorStackWithMessage(ErrRBTreeInvariantViolation, "insert violate (im3)")
			}
			if err != nil {
				return err
			}
			// The former parent enters im4.
			x, p = p, x
		}

		switch /* im4 */ pDir {
		case Left:
			err = tree.rightRotate(gp)
		case Right:
			err = tree.leftRotate(gp)
		default:
			err = infra.WrapErrorStackWithMessage(ErrRBTreeInvariantViolation, "insert violate (im4)")
		}
		if err != nil {
			return err
		}
		p.color, gp.color = gp.color, p.color
		return nil
	}
	return nil
}

// Inorder traversal to implement the DFS.
func (tree *rbTree[K]) Foreach(action func(idx int64, color RBColor, key K) bool) {
	size := atomic.LoadInt64(&tree.count)
	aux := tree.root
	if size <= 0 || aux == nil {
		return
	}

	stack := make([]*rbNode[K], 0, size>>1)
	defer func() {
		clear(stack)
	}()

	for ; aux != nil; aux = aux.left {
		stack = append(stack, aux)
	}

	idx := int64(0)
	for size = int64(len(stack)); size > 0; size = int64(len(stack)) {
		if aux = stack[size-1]; !action(idx, aux.color, aux.key) {
			return
		}
		idx++
		stack = stack[:size-1]
		if aux.right != nil {
			for aux = aux.right; aux != nil; aux = aux.left {
				stack = append(stack, aux)
			}
		}
	}
}

// Clear trims leaves bottom-up without recursion, the height of a tree
// unbalanced by Erase is unbounded.
func (tree *rbTree[K]) Clear() {
	aux := tree.root
	for aux != nil {
		if aux.left != nil {
			aux = aux.left
			continue
		}
		if aux.right != nil {
			aux = aux.right
			continue
		}

		p := aux.parent
		if p != nil {
			if p.left == aux {
				p.left = nil
			} else {
				p.right = nil
			}
		}
		aux.parent = nil
		atomic.AddInt64(&tree.count, -1)
		aux = p
	}
	tree.root = nil
	atomic.StoreInt64(&tree.count, 0)
}

type RBTreeOpt[K infra.OrderedKey] func(*rbTree[K])

func WithRBTreeDesc[K infra.OrderedKey]() RBTreeOpt[K] {
	return func(tree *rbTree[K]) {
		tree.cmp = infra.DescComparator[K]
	}
}

// WithRBTreeComparator replaces the natural key order.
// The comparator must be a strict total order.
func WithRBTreeComparator[K infra.OrderedKey](cmp infra.OrderedKeyComparator[K]) RBTreeOpt[K] {
	return func(tree *rbTree[K]) {
		if cmp != nil {
			tree.cmp = cmp
		}
	}
}

// WithRBTreeEraseRebalance enables the red-black fix-up after Erase.
// Without it Erase is a plain BST removal and the red-black properties
// may be violated afterward.
func WithRBTreeEraseRebalance[K infra.OrderedKey]() RBTreeOpt[K] {
	return func(tree *rbTree[K]) {
		tree.isEraseRebalance = true
	}
}

func NewRBTree[K infra.OrderedKey](opts ...RBTreeOpt[K]) RBTree[K] {
	tree := &rbTree[K]{
		cmp:              infra.AscComparator[K],
		count:            0,
		isEraseRebalance: false,
	}

	for _, o := range opts {
		if o != nil {
			o(tree)
		}
	}
	return tree
}
