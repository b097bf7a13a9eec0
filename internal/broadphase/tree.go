package broadphase

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/rigidsim/internal/geom"
)

const nullNode = -1

type treeNode struct {
	aabb geom.AABB
	data int

	// parent doubles as the free-list link for unused nodes.
	parent int
	child1 int
	child2 int

	// leaf = 0, free node = -1
	height int
}

func (n *treeNode) isLeaf() bool { return n.child1 == nullNode }

// Tree is a dynamic bounding volume hierarchy over fat AABBs. Leaves carry
// a caller-chosen integer. Proxy ids are node indices and stay valid until
// DestroyProxy.
type Tree struct {
	nodes      []treeNode
	root       int
	freeList   int
	nodeCount  int
	margin     float64
	multiplier float64
}

func NewTree(margin, multiplier float64) *Tree {
	t := &Tree{root: nullNode, freeList: nullNode, margin: margin, multiplier: multiplier}
	t.grow(16)
	return t
}

func (t *Tree) grow(capacity int) {
	start := len(t.nodes)
	t.nodes = append(t.nodes, make([]treeNode, capacity-start)...)
	for i := start; i < capacity-1; i++ {
		t.nodes[i].parent = i + 1
		t.nodes[i].height = -1
	}
	t.nodes[capacity-1].parent = t.freeList
	t.nodes[capacity-1].height = -1
	t.freeList = start
}

func (t *Tree) allocate() int {
	if t.freeList == nullNode {
		t.grow(2 * len(t.nodes))
	}
	id := t.freeList
	n := &t.nodes[id]
	t.freeList = n.parent
	*n = treeNode{parent: nullNode, child1: nullNode, child2: nullNode}
	t.nodeCount++
	return id
}

func (t *Tree) free(id int) {
	t.nodes[id] = treeNode{parent: t.freeList, child1: nullNode, child2: nullNode, height: -1}
	t.freeList = id
	t.nodeCount--
}

// CreateProxy inserts a leaf whose fat AABB is aabb grown by the margin.
func (t *Tree) CreateProxy(aabb geom.AABB, data int) int {
	id := t.allocate()
	t.nodes[id].aabb = aabb.Inflate(t.margin)
	t.nodes[id].data = data
	t.insertLeaf(id)
	return id
}

func (t *Tree) DestroyProxy(id int) {
	t.removeLeaf(id)
	t.free(id)
}

// MoveProxy refits the leaf when aabb escapes its fat AABB. The new fat
// AABB is stretched along the predicted displacement. It reports whether
// the leaf was reinserted.
func (t *Tree) MoveProxy(id int, aabb geom.AABB, displacement mgl64.Vec3) bool {
	if t.nodes[id].aabb.Contains(aabb) {
		return false
	}
	t.removeLeaf(id)
	t.nodes[id].aabb = aabb.Inflate(t.margin).Extend(displacement.Mul(t.multiplier))
	t.insertLeaf(id)
	return true
}

func (t *Tree) FatAABB(id int) geom.AABB { return t.nodes[id].aabb }

func (t *Tree) Data(id int) int { return t.nodes[id].data }

// Height is the height of the root, zero for an empty tree.
func (t *Tree) Height() int {
	if t.root == nullNode {
		return 0
	}
	return t.nodes[t.root].height
}

func (t *Tree) ProxyCount() int {
	if t.nodeCount == 0 {
		return 0
	}
	return (t.nodeCount + 1) / 2
}

// Query calls fn for every leaf whose fat AABB overlaps aabb, until fn
// returns false.
func (t *Tree) Query(aabb geom.AABB, fn func(id int) bool) {
	if t.root == nullNode {
		return
	}
	stack := make([]int, 0, 64)
	stack = append(stack, t.root)
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := &t.nodes[id]
		if !n.aabb.Overlaps(aabb) {
			continue
		}
		if n.isLeaf() {
			if !fn(id) {
				return
			}
			continue
		}
		stack = append(stack, n.child1, n.child2)
	}
}

// Raycast walks leaves whose fat AABB the segment from→to crosses. The
// callback returns the new clip fraction: 0 stops the walk, a negative
// value ignores the leaf.
func (t *Tree) Raycast(from, to mgl64.Vec3, maxFraction float64, fn func(id int, maxFraction float64) float64) {
	if t.root == nullNode {
		return
	}
	stack := make([]int, 0, 64)
	stack = append(stack, t.root)
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := &t.nodes[id]
		if _, ok := n.aabb.RayIntersect(from, to, maxFraction); !ok {
			continue
		}
		if !n.isLeaf() {
			stack = append(stack, n.child1, n.child2)
			continue
		}
		value := fn(id, maxFraction)
		if value == 0 {
			return
		}
		if value > 0 {
			maxFraction = value
		}
	}
}

func (t *Tree) insertLeaf(leaf int) {
	if t.root == nullNode {
		t.root = leaf
		t.nodes[leaf].parent = nullNode
		return
	}

	leafAABB := t.nodes[leaf].aabb
	index := t.root
	for !t.nodes[index].isLeaf() {
		child1 := t.nodes[index].child1
		child2 := t.nodes[index].child2

		area := t.nodes[index].aabb.SurfaceArea()
		combinedArea := t.nodes[index].aabb.Merge(leafAABB).SurfaceArea()

		// cost of making a new parent here
		cost := 2 * combinedArea
		inheritance := 2 * (combinedArea - area)

		cost1 := t.descendCost(child1, leafAABB) + inheritance
		cost2 := t.descendCost(child2, leafAABB) + inheritance

		if cost < cost1 && cost < cost2 {
			break
		}
		if cost1 < cost2 {
			index = child1
		} else {
			index = child2
		}
	}

	sibling := index
	oldParent := t.nodes[sibling].parent
	newParent := t.allocate()
	t.nodes[newParent].parent = oldParent
	t.nodes[newParent].aabb = leafAABB.Merge(t.nodes[sibling].aabb)
	t.nodes[newParent].height = t.nodes[sibling].height + 1
	t.nodes[newParent].child1 = sibling
	t.nodes[newParent].child2 = leaf
	t.nodes[sibling].parent = newParent
	t.nodes[leaf].parent = newParent

	if oldParent != nullNode {
		if t.nodes[oldParent].child1 == sibling {
			t.nodes[oldParent].child1 = newParent
		} else {
			t.nodes[oldParent].child2 = newParent
		}
	} else {
		t.root = newParent
	}

	t.refit(t.nodes[leaf].parent)
}

func (t *Tree) descendCost(child int, leafAABB geom.AABB) float64 {
	merged := leafAABB.Merge(t.nodes[child].aabb).SurfaceArea()
	if t.nodes[child].isLeaf() {
		return merged
	}
	return merged - t.nodes[child].aabb.SurfaceArea()
}

func (t *Tree) removeLeaf(leaf int) {
	if leaf == t.root {
		t.root = nullNode
		return
	}

	parent := t.nodes[leaf].parent
	grandParent := t.nodes[parent].parent
	sibling := t.nodes[parent].child1
	if sibling == leaf {
		sibling = t.nodes[parent].child2
	}

	if grandParent == nullNode {
		t.root = sibling
		t.nodes[sibling].parent = nullNode
		t.free(parent)
		return
	}

	if t.nodes[grandParent].child1 == parent {
		t.nodes[grandParent].child1 = sibling
	} else {
		t.nodes[grandParent].child2 = sibling
	}
	t.nodes[sibling].parent = grandParent
	t.free(parent)
	t.refit(grandParent)
}

// refit walks up from index rebalancing and recomputing bounds.
func (t *Tree) refit(index int) {
	for index != nullNode {
		index = t.balance(index)
		c1, c2 := t.nodes[index].child1, t.nodes[index].child2
		t.nodes[index].height = 1 + max(t.nodes[c1].height, t.nodes[c2].height)
		t.nodes[index].aabb = t.nodes[c1].aabb.Merge(t.nodes[c2].aabb)
		index = t.nodes[index].parent
	}
}

// balance performs a single rotation if node a is imbalanced and returns
// the index of the subtree root.
func (t *Tree) balance(iA int) int {
	a := &t.nodes[iA]
	if a.isLeaf() || a.height < 2 {
		return iA
	}
	iB, iC := a.child1, a.child2
	diff := t.nodes[iC].height - t.nodes[iB].height
	switch {
	case diff > 1:
		return t.rotateUp(iA, iC, iB, false)
	case diff < -1:
		return t.rotateUp(iA, iB, iC, true)
	}
	return iA
}

// rotateUp lifts child iC of iA above it. iB is iA's other child; left
// reports whether iC was child1.
func (t *Tree) rotateUp(iA, iC, iB int, left bool) int {
	iF, iG := t.nodes[iC].child1, t.nodes[iC].child2

	// C takes A's place
	t.nodes[iC].child1 = iA
	t.nodes[iC].parent = t.nodes[iA].parent
	t.nodes[iA].parent = iC

	if p := t.nodes[iC].parent; p != nullNode {
		if t.nodes[p].child1 == iA {
			t.nodes[p].child1 = iC
		} else {
			t.nodes[p].child2 = iC
		}
	} else {
		t.root = iC
	}

	// the taller grandchild stays under C, the shorter moves under A
	keep, move := iF, iG
	if t.nodes[iF].height <= t.nodes[iG].height {
		keep, move = iG, iF
	}
	t.nodes[iC].child2 = keep
	if left {
		t.nodes[iA].child1 = move
	} else {
		t.nodes[iA].child2 = move
	}
	t.nodes[move].parent = iA

	t.nodes[iA].aabb = t.nodes[iB].aabb.Merge(t.nodes[move].aabb)
	t.nodes[iA].height = 1 + max(t.nodes[iB].height, t.nodes[move].height)
	t.nodes[iC].aabb = t.nodes[iA].aabb.Merge(t.nodes[keep].aabb)
	t.nodes[iC].height = 1 + max(t.nodes[iA].height, t.nodes[keep].height)
	return iC
}

// Validate checks structural invariants: parent links, heights and
// enclosing bounds.
func (t *Tree) Validate() error {
	if t.root == nullNode {
		return nil
	}
	if t.nodes[t.root].parent != nullNode {
		return errors.New("broadphase: root has a parent")
	}
	return t.validate(t.root)
}

func (t *Tree) validate(id int) error {
	n := &t.nodes[id]
	if n.isLeaf() {
		if n.height != 0 {
			return fmt.Errorf("broadphase: leaf %d has height %d", id, n.height)
		}
		return nil
	}
	c1, c2 := n.child1, n.child2
	if t.nodes[c1].parent != id || t.nodes[c2].parent != id {
		return fmt.Errorf("broadphase: node %d has a child with a wrong parent", id)
	}
	if want := 1 + max(t.nodes[c1].height, t.nodes[c2].height); n.height != want {
		return fmt.Errorf("broadphase: node %d height %d, want %d", id, n.height, want)
	}
	if !n.aabb.Contains(t.nodes[c1].aabb) || !n.aabb.Contains(t.nodes[c2].aabb) {
		return fmt.Errorf("broadphase: node %d does not enclose its children", id)
	}
	if err := t.validate(c1); err != nil {
		return err
	}
	return t.validate(c2)
}
