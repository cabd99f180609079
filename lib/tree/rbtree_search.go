package tree

func (tree *rbTree[K]) search(key K) *rbNode[K] {
	for aux := tree.root; aux != nil; {
		res := tree.keyCompare(key, aux.key)
		if res == 0 {
			return aux
		} else if res > 0 {
			aux = aux.right
		} else {
			aux = aux.left
		}
	}
	return nil
}

func (tree *rbTree[K]) Exists(key K) bool {
	return tree.search(key) != nil
}

func (tree *rbTree[K]) Min() RBNode[K] {
	return tree.root.minimum().asRBNode()
}

func (tree *rbTree[K]) Max() RBNode[K] {
	return tree.root.maximum().asRBNode()
}

// Descend and keep the last node where we turned left, it is the
// smallest key not ordered before the target so far.
func (tree *rbTree[K]) lowerBound(key K) *rbNode[K] {
	var candidate *rbNode[K]
	for aux := tree.root; aux != nil; {
		if tree.keyCompare(aux.key, key) >= 0 {
			candidate = aux
			aux = aux.left
		} else {
			aux = aux.right
		}
	}
	return candidate
}

func (tree *rbTree[K]) upperBound(key K) *rbNode[K] {
	var candidate *rbNode[K]
	for aux := tree.root; aux != nil; {
		if tree.keyCompare(aux.key, key) > 0 {
			candidate = aux
			aux = aux.left
		} else {
			aux = aux.right
		}
	}
	return candidate
}

func (tree *rbTree[K]) LowerBound(key K) RBNode[K] {
	return tree.lowerBound(key).asRBNode()
}

func (tree *rbTree[K]) UpperBound(key K) RBNode[K] {
	return tree.upperBound(key).asRBNode()
}

// Successor returns nil for the maximum, for a nil node and for a node
// which has been erased.
func (tree *rbTree[K]) Successor(node RBNode[K]) RBNode[K] {
	return nodeOf[K](node).succ().asRBNode()
}

func (tree *rbTree[K]) Predecessor(node RBNode[K]) RBNode[K] {
	return nodeOf[K](node).pred().asRBNode()
}

// RangeQuery walks from the lower bound of lo to the upper bound of hi,
// it costs O(height + count) without order statistic metadata.
func (tree *rbTree[K]) RangeQuery(lo, hi K) int64 {
	if tree.keyCompare(lo, hi) > 0 {
		return 0
	}

	start, stop := tree.lowerBound(lo), tree.upperBound(hi)
	count := int64(0)
	for aux := start; aux != nil && aux != stop; aux = aux.succ() {
		count++
	}
	return count
}
