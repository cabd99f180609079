package tree

import (
	"sync/atomic"

	"github.com/benz9527/rbrange/lib/infra"
)

func (tree *rbTree[K]) Erase(key K) error {
	z := tree.search(key)
	if z == nil {
		return nil
	}

	var err error
	if tree.isEraseRebalance {
		err = tree.eraseRebalanced(z)
	} else {
		err = tree.eraseSplice(z)
	}
	if err != nil {
		return err
	}
	z.unlink()
	atomic.AddInt64(&tree.count, -1)
	return nil
}

/*
Plain BST removal, the colors are never rebalanced.

r1: Current node Z is a leaf, unlink it from its parent.

r2: Current node Z has left and right node.
The succ S (leftmost of the right subtree) is spliced into Z's position.
S takes Z's parent link, left subtree and color. S's right subtree takes
S's former position.

	  |                    |
	  Z                    S
	 / \                  / \
	L   R   splice(S)    L   R
	   / \  =========>      / \
	  S  ..               Sr  ..
	   \
	   Sr

r3: Current node Z has exactly one child C, C is promoted into Z's position.
*/
func (tree *rbTree[K]) eraseSplice(z *rbNode[K]) error {
	switch {
	case /* r1 */ z.left == nil && z.right == nil:
		return tree.replaceChild(z.parent, z, nil)
	case /* r2 */ z.left != nil && z.right != nil:
		s := z.right.minimum()
		if s != z.right {
			if err := tree.replaceChild(s.parent, s, s.right); err != nil {
				return err
			}
			s.right = z.right
			s.right.parent = s
		}
		if err := tree.replaceChild(z.parent, z, s); err != nil {
			return err
		}
		s.left = z.left
		s.left.parent = s
		s.color = z.color
		return nil
	default:
	}

	/* r3 */
	child := z.left
	if child == nil {
		child = z.right
	}
	return tree.replaceChild(z.parent, z, child)
}

/*
r1: Current node Z has left and right node.
Swap the positions (and colors) of Z and its succ S. Keys are never
swapped, the nodes held by callers keep their keys.
After swapping, Z has no left node.

r2: Current node Z has one child C. C must be red (Otherwise,
black-violation), promote C and repaint it into black.

r3: (1) Current node Z is a red leaf node, remove directly.

r3: (2) Current node Z is a black leaf node, we have to rebalance before
unlinking it, Z acts as the double black node. (black-violation)
*/
func (tree *rbTree[K]) eraseRebalanced(z *rbNode[K]) error {
	if /* r1 */ z.left != nil && z.right != nil {
		if err := tree.swapWithSucc(z); err != nil {
			return err
		}
	}

	child := z.left
	if child == nil {
		child = z.right
	}
	if /* r2 */ child != nil {
		if err := tree.replaceChild(z.parent, z, child); err != nil {
			return err
		}
		if z.isBlack() {
			if child.isRed() {
				child.color = Black
				return nil
			}
			return tree.removeRebalance(child)
		}
		return nil
	}

	if /* r3 (2) */ z.isBlack() && !z.isRoot() {
		if err := tree.removeRebalance(z); err != nil {
			return err
		}
	}
	return tree.replaceChild(z.parent, z, nil)
}

func (tree *rbTree[K]) swapWithSucc(z *rbNode[K]) error {
	s := z.right.minimum()
	zp, zl, zr := z.parent, z.left, z.right
	sp, sr := s.parent, s.right

	if err := tree.replaceChild(zp, z, s); err != nil {
		return err
	}
	s.left = zl
	zl.parent = s
	if sp == z {
		s.right = z
		z.parent = s
	} else {
		s.right = zr
		zr.parent = s
		sp.left = z
		z.parent = sp
	}

	z.left = nil
	z.right = sr
	if sr != nil {
		sr.parent = z
	}
	z.color, s.color = s.color, z.color
	return nil
}

/*
<X> is a RED node.
[X] is a BLACK node (or NIL).
{X} is either a RED node or a BLACK node.

Sc is the same direction to X and it X's sibling's child node.
Sd is the opposite direction to X and it X's sibling's child node.

rm1: Current node X's sibling S is red, so the parent P, nephew node Sc and Sd
must be black. (Otherwise, red-violation)
(1) X is left node of P, left rotate P
(2) X is right node of P, right rotate P.
(3) repaint S into black, P into red.

	  [P]                   <S>               [S]
	  / \    l-rotate(P)    / \    repaint    / \
	[X] <S>  ==========>  [P] [D]  ======>  <P> [Sd]
	    / \               / \               / \
	 [Sc] [Sd]          [X] [Sc]          [X] [Sc]

rm2: Current node X's parent P is red, the sibling S, nephew node Sc and Sd
is black.
Repaint S into red and P into black.

rm3: All of current node X's parent P, the sibling S, nephew node Sc and Sd
are black.
Paint the S into red to satisfy p4 locally. Then loop to handle P.

rm4: Current node X's sibling S is black, nephew node Sc is red and Sd
is black. Rotate S away from X, repaint S into red, Sc into black.
Enter into rm5 to fix.

rm5: Current node X's sibling S is black, nephew node Sd is red.
(1) If X is left node of P, left rotate P.
(2) If X is right node of P, right rotate P.
(3) S takes P's color, P and Sd are repainted into black.

	  {P}                   [S]                {S}
	  / \    l-rotate(P)    / \     repaint    / \
	[X] [S]  ==========>  {P} <Sd>  ======>  [P] [Sd]
	    / \               / \                / \
	 [Sc] <Sd>          [X] [Sc]           [X] [Sc]
*/
func (tree *rbTree[K]) removeRebalance(x *rbNode[K]) error {
	for !x.isRoot() {
		var err error
		dir := x.Direction()
		sibling := x.sibling()
		if sibling == nil {
			return infra.WrapErrorStackWithMessage(ErrRBTreeInvariantViolation, "double black node without sibling")
		}

		if /* rm1 */ sibling.isRed() {
			switch dir {
			case Left:
				err = tree.leftRotate(x.parent)
			case Right:
				err = tree.rightRotate(x.parent)
			default:
				err = infra.WrapErrorStackWithMessage(ErrRBTreeInvariantViolation, "remove violate (rm1)")
			}
			if err != nil {
				return err
			}
			sibling.color = Black
			x.parent.color = Red // ready to enter rm2
			if sibling = x.sibling(); sibling == nil {
				return infra.WrapErrorStackWithMessage(ErrRBTreeInvariantViolation, "remove violate (rm1), no sibling after rotation")
			}
		}

		var sc, sd *rbNode[K]
		if dir == Left {
			sc, sd = sibling.left, sibling.right
		} else {
			sc, sd = sibling.right, sibling.left
		}

		if sc.isBlack() && sd.isBlack() {
			sibling.color = Red
			if /* rm2 */ x.parent.isRed() {
				x.parent.color = Black
				return nil
			}
			/* rm3 */
			x = x.parent
			continue
		}

		if /* rm4 */ sd.isBlack() {
			if dir == Left {
				err = tree.rightRotate(sibling)
			} else {
				err = tree.leftRotate(sibling)
			}
			if err != nil {
				return err
			}
			sc.color = Black
			sibling.color = Red
			sibling, sd = sc, sibling
		}

		/* rm5 */
		if dir == Left {
			err = tree.leftRotate(x.parent)
		} else {
			err = tree.rightRotate(x.parent)
		}
		if err != nil {
			return err
		}
		sibling.color = x.parent.color
		x.parent.color = Black
		sd.color = Black
		return nil
	}
	return nil
}
