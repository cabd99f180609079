package tree

import (
	"bytes"
	"errors"
	randv2 "math/rand/v2"
	"sort"
	"strings"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"

	"github.com/benz9527/rbrange/lib/infra"
)

type checkData struct {
	color RBColor
	key   uint64
}

func requireInorder(t *testing.T, tree RBTree[uint64], expected []checkData) {
	t.Helper()
	require.Equal(t, int64(len(expected)), tree.Len())
	tree.Foreach(func(idx int64, color RBColor, key uint64) bool {
		require.Equal(t, expected[idx].color, color, "key %d", key)
		require.Equal(t, expected[idx].key, key)
		return true
	})
}

func requireRBProps[K infra.OrderedKey](t *testing.T, tree RBTree[K]) {
	t.Helper()
	require.NoError(t, RedViolationValidate[K](tree))
	require.NoError(t, BlackViolationValidate[K](tree))
	require.NoError(t, OrderViolationValidate[K](tree))
	require.NoError(t, LinkViolationValidate[K](tree))
}

func TestNilNode(t *testing.T) {
	tree := NewRBTree[uint64]()
	require.Nil(t, tree.Root())
	require.True(t, tree.Root() == nil)
	require.Nil(t, tree.LowerBound(1))
	require.True(t, tree.UpperBound(1) == nil)
	require.True(t, tree.Successor(nil) == nil)
	require.True(t, tree.Predecessor(nil) == nil)
	require.True(t, tree.Min() == nil)
	require.True(t, tree.Max() == nil)

	require.NoError(t, tree.Insert(1))
	require.True(t, tree.Root().Left() == nil)
	require.True(t, tree.Root().Right() == nil)
	require.True(t, tree.Root().Parent() == nil)
}

func TestRBColorAndDirectionString(t *testing.T) {
	require.Equal(t, "Black", Black.String())
	require.Equal(t, "Red", Red.String())
	require.Equal(t, "RBColor(7)", RBColor(7).String())
	require.Equal(t, "Left", Left.String())
	require.Equal(t, "Root", Root.String())
	require.Equal(t, "Right", Right.String())
	require.Equal(t, "RBDirection(5)", RBDirection(5).String())
}

func TestRbtreeInsert_RootIsBlack(t *testing.T) {
	tree := NewRBTree[int]()
	require.NoError(t, tree.Insert(10))

	root := tree.Root()
	require.NotNil(t, root)
	require.Equal(t, 10, root.Key())
	require.Equal(t, Black, root.Color())
	require.Equal(t, int64(1), tree.Len())
}

func TestRbtreeInsert_ChildrenFollowBSTOrder(t *testing.T) {
	tree := NewRBTree[int]()
	for _, key := range []int{10, 5, 15} {
		require.NoError(t, tree.Insert(key))
	}

	root := tree.Root()
	require.Equal(t, 10, root.Key())
	require.Equal(t, Black, root.Color())
	require.NotNil(t, root.Left())
	require.NotNil(t, root.Right())
	require.Equal(t, 5, root.Left().Key())
	require.Equal(t, 15, root.Right().Key())
	require.Equal(t, root, root.Left().Parent())
	requireRBProps[int](t, tree)
}

func TestRbtreeInsert_Duplicate(t *testing.T) {
	tree := NewRBTree[int]()
	for _, key := range []int{10, 10, 5, 10, 5} {
		require.NoError(t, tree.Insert(key))
	}
	require.Equal(t, int64(2), tree.Len())
	require.Equal(t, int64(1), tree.RangeQuery(10, 10))
	requireRBProps[int](t, tree)
}

func TestRbtreeInsertRotateAndErase(t *testing.T) {
	tree := NewRBTree[uint64]()

	require.NoError(t, tree.Insert(52))
	requireInorder(t, tree, []checkData{{Black, 52}})
	requireRBProps[uint64](t, tree)

	require.NoError(t, tree.Insert(47))
	requireInorder(t, tree, []checkData{{Red, 47}, {Black, 52}})
	requireRBProps[uint64](t, tree)

	// left-left, rotate right at the grandpa.
	require.NoError(t, tree.Insert(3))
	requireInorder(t, tree, []checkData{{Red, 3}, {Black, 47}, {Red, 52}})
	require.Equal(t, uint64(47), tree.Root().Key())
	requireRBProps[uint64](t, tree)

	// Red uncle, recolor and the root stays black.
	require.NoError(t, tree.Insert(35))
	requireInorder(t, tree, []checkData{{Black, 3}, {Red, 35}, {Black, 47}, {Black, 52}})
	requireRBProps[uint64](t, tree)

	// right-left.
	require.NoError(t, tree.Insert(24))
	requireInorder(t, tree, []checkData{{Red, 3}, {Black, 24}, {Red, 35}, {Black, 47}, {Black, 52}})
	requireRBProps[uint64](t, tree)

	// Two children, the succ 35 is the right child and takes the color.
	require.NoError(t, tree.Erase(24))
	requireInorder(t, tree, []checkData{{Red, 3}, {Black, 35}, {Black, 47}, {Black, 52}})
	require.NoError(t, OrderViolationValidate[uint64](tree))
	require.NoError(t, LinkViolationValidate[uint64](tree))

	// Leaf.
	require.NoError(t, tree.Erase(52))
	requireInorder(t, tree, []checkData{{Red, 3}, {Black, 35}, {Black, 47}})
	require.NoError(t, LinkViolationValidate[uint64](tree))

	// Root with one child.
	require.NoError(t, tree.Erase(47))
	requireInorder(t, tree, []checkData{{Red, 3}, {Black, 35}})
	require.Equal(t, uint64(35), tree.Root().Key())
	require.Nil(t, tree.Root().Parent())

	// Absent key.
	require.NoError(t, tree.Erase(100))
	require.Equal(t, int64(2), tree.Len())

	require.NoError(t, tree.Erase(35))
	require.NoError(t, tree.Erase(3))
	require.Equal(t, int64(0), tree.Len())
	require.Nil(t, tree.Root())
}

func TestRbtreeEraseSplice_SuccDeepInRightSubtree(t *testing.T) {
	tree := NewRBTree[int]()
	for _, key := range []int{50, 30, 70, 60, 80, 65} {
		require.NoError(t, tree.Insert(key))
	}
	require.NoError(t, tree.Erase(50))
	require.False(t, tree.Exists(50))
	require.Equal(t, int64(5), tree.Len())
	require.NoError(t, OrderViolationValidate[int](tree))
	require.NoError(t, LinkViolationValidate[int](tree))

	keys := make([]int, 0, 5)
	tree.Foreach(func(idx int64, color RBColor, key int) bool {
		keys = append(keys, key)
		return true
	})
	require.Equal(t, []int{30, 60, 65, 70, 80}, keys)
}

func TestRbtreeErase_NodeIsUnlinked(t *testing.T) {
	tree := NewRBTree[int]()
	for _, key := range []int{20, 10, 30, 25} {
		require.NoError(t, tree.Insert(key))
	}
	node := tree.LowerBound(20)
	require.Equal(t, 20, node.Key())
	require.NoError(t, tree.Erase(20))
	require.Nil(t, node.Left())
	require.Nil(t, node.Right())
	require.Nil(t, node.Parent())
	require.Nil(t, tree.Successor(node))
}

func TestRbtreeSuccessor(t *testing.T) {
	tree := NewRBTree[int]()
	for _, key := range []int{20, 10, 30, 25} {
		require.NoError(t, tree.Insert(key))
	}

	// With right subtree.
	succ := tree.Successor(tree.LowerBound(20))
	require.NotNil(t, succ)
	require.Equal(t, 25, succ.Key())

	// Without right subtree.
	succ = tree.Successor(tree.LowerBound(10))
	require.NotNil(t, succ)
	require.Equal(t, 20, succ.Key())

	succ = tree.Successor(tree.LowerBound(25))
	require.Equal(t, 30, succ.Key())

	pred := tree.Predecessor(tree.LowerBound(25))
	require.Equal(t, 20, pred.Key())
	require.Nil(t, tree.Predecessor(tree.Min()))
	require.Equal(t, 10, tree.Min().Key())
	require.Equal(t, 30, tree.Max().Key())
}

func TestRbtreeSuccessor_MaxHasNone(t *testing.T) {
	tree := NewRBTree[int]()
	for _, key := range []int{20, 10, 30} {
		require.NoError(t, tree.Insert(key))
	}
	node30 := tree.LowerBound(30)
	require.Equal(t, 30, node30.Key())
	require.Nil(t, tree.Successor(node30))
}

func TestRbtreeBounds(t *testing.T) {
	tree := NewRBTree[int]()
	for _, key := range []int{10, 20, 30} {
		require.NoError(t, tree.Insert(key))
	}

	testcases := []struct {
		key   int
		lower any
		upper any
	}{
		{5, 10, 10},
		{10, 10, 20},
		{15, 20, 20},
		{20, 20, 30},
		{30, 30, nil},
		{35, nil, nil},
	}
	for _, tc := range testcases {
		lb, ub := tree.LowerBound(tc.key), tree.UpperBound(tc.key)
		if tc.lower == nil {
			require.Nil(t, lb, "lower bound of %d", tc.key)
		} else {
			require.Equal(t, tc.lower, lb.Key(), "lower bound of %d", tc.key)
		}
		if tc.upper == nil {
			require.Nil(t, ub, "upper bound of %d", tc.key)
		} else {
			require.Equal(t, tc.upper, ub.Key(), "upper bound of %d", tc.key)
		}
	}
}

func TestRbtreeRangeQuery(t *testing.T) {
	tree := NewRBTree[int]()
	for _, key := range []int{10, 20, 30, 40, 50} {
		require.NoError(t, tree.Insert(key))
	}

	testcases := []struct {
		name     string
		lo, hi   int
		expected int64
	}{
		{"inner", 15, 45, 3},
		{"cover all", 0, 100, 5},
		{"after max", 55, 100, 0},
		{"single hit", 30, 30, 1},
		{"single miss", 35, 35, 0},
		{"inverted", 45, 15, 0},
		{"before min", -10, 5, 0},
		{"inclusive borders", 10, 50, 5},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(tt *testing.T) {
			require.Equal(tt, tc.expected, tree.RangeQuery(tc.lo, tc.hi))
		})
	}

	require.Equal(t, int64(0), NewRBTree[int]().RangeQuery(0, 100))
}

func TestRbtreeDesc(t *testing.T) {
	tree := NewRBTree[int](WithRBTreeDesc[int]())
	for i := 1; i <= 5; i++ {
		require.NoError(t, tree.Insert(i))
	}
	requireRBProps[int](t, tree)

	keys := make([]int, 0, 5)
	tree.Foreach(func(idx int64, color RBColor, key int) bool {
		keys = append(keys, key)
		return true
	})
	require.Equal(t, []int{5, 4, 3, 2, 1}, keys)

	require.Equal(t, 3, tree.LowerBound(3).Key())
	require.Equal(t, 5, tree.LowerBound(10).Key())
	require.Equal(t, 2, tree.UpperBound(3).Key())
	require.Nil(t, tree.UpperBound(1))
	require.Equal(t, int64(3), tree.RangeQuery(4, 2))
	require.Equal(t, int64(0), tree.RangeQuery(2, 4))
}

func TestRbtreeComparator(t *testing.T) {
	byLen := func(i, j string) int64 {
		if len(i) != len(j) {
			return int64(len(i) - len(j))
		}
		return infra.AscComparator(i, j)
	}
	tree := NewRBTree[string](WithRBTreeComparator[string](byLen), WithRBTreeComparator[string](nil))
	for _, key := range []string{"ccc", "a", "bb", "aa", "dddd"} {
		require.NoError(t, tree.Insert(key))
	}
	requireRBProps[string](t, tree)
	require.Equal(t, "a", tree.Min().Key())
	require.Equal(t, "aa", tree.LowerBound("b").Key())
	require.Equal(t, "bb", tree.UpperBound("aa").Key())
	require.Equal(t, int64(3), tree.RangeQuery("aa", "ccc"))
}

func TestRbtreeForeach_Stop(t *testing.T) {
	tree := NewRBTree[int]()
	for i := 0; i < 10; i++ {
		require.NoError(t, tree.Insert(i))
	}
	visited := 0
	tree.Foreach(func(idx int64, color RBColor, key int) bool {
		visited++
		return idx < 3
	})
	require.Equal(t, 4, visited)
}

func TestRbtreeInvariantViolation(t *testing.T) {
	tree := &rbTree[int]{cmp: infra.AscComparator[int]}

	err := tree.leftRotate(nil)
	require.ErrorIs(t, err, ErrRBTreeInvariantViolation)
	var es infra.ErrorStack
	require.True(t, errors.As(err, &es))
	require.NotEmpty(t, es.Stack())

	require.NoError(t, tree.Insert(1))
	require.ErrorIs(t, tree.rightRotate(tree.root), ErrRBTreeInvariantViolation)

	// Parent does not link back to its child.
	orphan := &rbNode[int]{key: 2, parent: tree.root}
	require.ErrorIs(t, tree.replaceChild(orphan.parent, orphan, nil), ErrRBTreeInvariantViolation)

	// A red root breaks the grandpa guarantee.
	tree.root.color = Red
	err = tree.Insert(2)
	require.ErrorIs(t, err, ErrRBTreeInvariantViolation)
}

func TestRbtreeClear(t *testing.T) {
	tree := NewRBTree[int]()
	for i := 0; i < 1000; i++ {
		require.NoError(t, tree.Insert(randv2.IntN(10000)))
	}
	root := tree.Root()
	tree.Clear()
	require.Equal(t, int64(0), tree.Len())
	require.Nil(t, tree.Root())
	require.Nil(t, root.Left())
	require.Nil(t, root.Right())

	// Reusable after clear.
	require.NoError(t, tree.Insert(1))
	require.Equal(t, Black, tree.Root().Color())
	require.Equal(t, int64(1), tree.Len())
}

func TestRbtreeClear_DegenerateChain(t *testing.T) {
	const n = 100_000
	tree := &rbTree[int]{cmp: infra.AscComparator[int]}
	var tail *rbNode[int]
	for i := 0; i < n; i++ {
		node := &rbNode[int]{key: i, color: Black, parent: tail}
		if tail == nil {
			tree.root = node
		} else {
			tail.right = node
		}
		tail = node
		tree.count++
	}
	require.Equal(t, int64(n), tree.RangeQuery(0, n))

	tree.Clear()
	require.Equal(t, int64(0), tree.Len())
	require.Nil(t, tree.Root())
	require.Nil(t, tail.Parent())
}

func TestRbtreeExport(t *testing.T) {
	tree := NewRBTree[int]()
	for _, key := range []int{10, 5, 15, 1} {
		require.NoError(t, tree.Insert(key))
	}

	buf := &bytes.Buffer{}
	require.NoError(t, tree.Export(buf))
	out := buf.String()
	require.True(t, strings.HasPrefix(out, "digraph G {\n    node [shape=circle, style=filled];\n"))
	require.True(t, strings.HasSuffix(out, "}\n"))

	lines := strings.Split(strings.TrimSpace(out), "\n")
	nodes, edges, reds := 0, 0, 0
	for _, line := range lines {
		switch {
		case strings.Contains(line, "[label="):
			nodes++
			if strings.Contains(line, dotRedNodeAttrs) {
				reds++
			}
		case strings.Contains(line, "->"):
			edges++
		}
	}
	require.Equal(t, 4, nodes)
	require.Equal(t, 3, edges)
	require.Equal(t, 1, reds)
	require.Contains(t, lines[2], `[label="10", `+dotBlackNodeAttrs+`]`)

	empty := &bytes.Buffer{}
	require.NoError(t, NewRBTree[int]().Export(empty))
	require.Equal(t, "digraph G {\n    node [shape=circle, style=filled];\n}\n", empty.String())
}

type failWriter struct{}

var errFailWriter = errors.New("write failed")

func (failWriter) Write([]byte) (int, error) {
	return 0, errFailWriter
}

func TestRbtreeExport_WriteFailure(t *testing.T) {
	tree := NewRBTree[string]()
	require.NoError(t, tree.Insert(`say "hi"`))
	require.ErrorIs(t, tree.Export(failWriter{}), errFailWriter)

	buf := &bytes.Buffer{}
	require.NoError(t, tree.Export(buf))
	require.Contains(t, buf.String(), `[label="say \"hi\"", `)
}

func TestRbtreeRandomInsert(t *testing.T) {
	tree := NewRBTree[int]()
	ref := make([]int, 0, 2048)
	for i := 0; i < 2048; i++ {
		key := randv2.IntN(4096) - 2048
		require.NoError(t, tree.Insert(key))
		ref = append(ref, key)
	}
	ref = lo.Uniq(ref)
	sort.Ints(ref)

	requireRBProps[int](t, tree)
	require.Equal(t, int64(len(ref)), tree.Len())
	tree.Foreach(func(idx int64, color RBColor, key int) bool {
		require.Equal(t, ref[idx], key)
		return true
	})

	for i := 0; i < 512; i++ {
		x := randv2.IntN(5000) - 2500
		lbIdx := sort.SearchInts(ref, x)
		ubIdx := sort.Search(len(ref), func(i int) bool { return ref[i] > x })
		if lb := tree.LowerBound(x); lbIdx == len(ref) {
			require.Nil(t, lb)
		} else {
			require.Equal(t, ref[lbIdx], lb.Key())
		}
		if ub := tree.UpperBound(x); ubIdx == len(ref) {
			require.Nil(t, ub)
		} else {
			require.Equal(t, ref[ubIdx], ub.Key())
		}

		from, to := randv2.IntN(5000)-2500, randv2.IntN(5000)-2500
		expected := int64(0)
		for _, key := range ref {
			if from <= key && key <= to {
				expected++
			}
		}
		require.Equal(t, expected, tree.RangeQuery(from, to), "[%d, %d]", from, to)
	}

	node := tree.Min()
	for i := 0; i < len(ref); i++ {
		require.Equal(t, ref[i], node.Key())
		node = tree.Successor(node)
	}
	require.Nil(t, node)
}

func TestRbtreeRandomErase_Splice(t *testing.T) {
	tree := NewRBTree[int]()
	keys := lo.Uniq(lo.Times(1024, func(int) int { return randv2.IntN(8192) }))
	for _, key := range keys {
		require.NoError(t, tree.Insert(key))
	}
	requireRBProps[int](t, tree)

	randv2.Shuffle(len(keys), func(i, j int) { keys[i], keys[j] = keys[j], keys[i] })
	for i, key := range keys {
		require.True(t, tree.Exists(key))
		require.NoError(t, tree.Erase(key))
		require.False(t, tree.Exists(key))
		require.Equal(t, int64(len(keys)-i-1), tree.Len())
		if i%16 == 0 {
			require.NoError(t, OrderViolationValidate[int](tree))
			require.NoError(t, LinkViolationValidate[int](tree))
		}
	}
	require.Nil(t, tree.Root())
}

func TestRbtreeRandomErase_Rebalance(t *testing.T) {
	tree := NewRBTree[int](WithRBTreeEraseRebalance[int]())
	keys := lo.Uniq(lo.Times(1024, func(int) int { return randv2.IntN(8192) }))
	for _, key := range keys {
		require.NoError(t, tree.Insert(key))
	}

	randv2.Shuffle(len(keys), func(i, j int) { keys[i], keys[j] = keys[j], keys[i] })
	for i, key := range keys {
		node := tree.LowerBound(key)
		require.NoError(t, tree.Erase(key))
		require.False(t, tree.Exists(key))
		require.Equal(t, key, node.Key())
		if i%8 == 0 {
			requireRBProps[int](t, tree)
		}
		// Interleave inserts to keep the tree shape mixed.
		if i%5 == 0 {
			require.NoError(t, tree.Insert(key))
			require.NoError(t, tree.Erase(key))
		}
	}
	require.Equal(t, int64(0), tree.Len())
}

func TestRbtreeErase_RebalanceKeepsNodeIdentity(t *testing.T) {
	tree := NewRBTree[int](WithRBTreeEraseRebalance[int]())
	for _, key := range []int{50, 30, 70, 60, 80, 65} {
		require.NoError(t, tree.Insert(key))
	}
	node60 := tree.LowerBound(60)
	require.NoError(t, tree.Erase(50))
	require.Equal(t, 60, node60.Key())
	require.True(t, tree.Exists(60))
	requireRBProps[int](t, tree)
}

func BenchmarkRbtreeInsert(b *testing.B) {
	tree := NewRBTree[int]()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = tree.Insert(randv2.Int())
	}
}

func BenchmarkRbtreeRangeQuery(b *testing.B) {
	tree := NewRBTree[int]()
	for i := 0; i < 100_000; i++ {
		_ = tree.Insert(i)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		from := randv2.IntN(100_000)
		_ = tree.RangeQuery(from, from+100)
	}
}
