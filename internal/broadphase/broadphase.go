package broadphase

import (
	"sort"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/rigidsim/internal/geom"
)

// Pair is an unordered pair of proxy ids with A < B.
type Pair struct {
	A, B int
}

func makePair(a, b int) Pair {
	if a > b {
		a, b = b, a
	}
	return Pair{A: a, B: b}
}

func (p Pair) less(o Pair) bool {
	if p.A != o.A {
		return p.A < o.A
	}
	return p.B < o.B
}

// Filter rejects pairs that must never collide. It receives leaf data.
type Filter func(dataA, dataB int) bool

// BroadPhase keeps the set of proxy pairs whose fat AABBs overlap. A pair
// enters the set when a moved proxy finds it and leaves only once the fat
// AABBs separate, so no overlapping pair is ever missing.
type BroadPhase struct {
	tree    *Tree
	moved   []int
	isMoved map[int]bool
	pairs   map[Pair]struct{}
	filter  Filter
	out     []Pair
}

func New(margin, multiplier float64, filter Filter) *BroadPhase {
	return &BroadPhase{
		tree:    NewTree(margin, multiplier),
		isMoved: make(map[int]bool),
		pairs:   make(map[Pair]struct{}),
		filter:  filter,
	}
}

func (bp *BroadPhase) Tree() *Tree { return bp.tree }

func (bp *BroadPhase) AddProxy(aabb geom.AABB, data int) int {
	id := bp.tree.CreateProxy(aabb, data)
	bp.buffer(id)
	return id
}

// RemoveProxy drops the proxy and every pair that references it.
func (bp *BroadPhase) RemoveProxy(id int) {
	if bp.isMoved[id] {
		delete(bp.isMoved, id)
		for i, m := range bp.moved {
			if m == id {
				bp.moved = append(bp.moved[:i], bp.moved[i+1:]...)
				break
			}
		}
	}
	for p := range bp.pairs {
		if p.A == id || p.B == id {
			delete(bp.pairs, p)
		}
	}
	bp.tree.DestroyProxy(id)
}

// MoveProxy reports the proxy's new tight AABB and its displacement since
// the last update.
func (bp *BroadPhase) MoveProxy(id int, aabb geom.AABB, displacement mgl64.Vec3) {
	if bp.tree.MoveProxy(id, aabb, displacement) {
		bp.buffer(id)
	}
}

// TouchProxy forces the proxy to be re-queried on the next update.
func (bp *BroadPhase) TouchProxy(id int) {
	bp.buffer(id)
}

func (bp *BroadPhase) buffer(id int) {
	if bp.isMoved[id] {
		return
	}
	bp.isMoved[id] = true
	bp.moved = append(bp.moved, id)
}

func (bp *BroadPhase) FatAABB(id int) geom.AABB { return bp.tree.FatAABB(id) }

func (bp *BroadPhase) Data(id int) int { return bp.tree.Data(id) }

// TestOverlap reports whether two proxies' fat AABBs overlap.
func (bp *BroadPhase) TestOverlap(a, b int) bool {
	return bp.tree.FatAABB(a).Overlaps(bp.tree.FatAABB(b))
}

// UpdatePairs queries the tree for every moved proxy, prunes pairs whose
// fat AABBs no longer overlap and returns the surviving pairs sorted by
// proxy id. The slice is reused by the next call.
func (bp *BroadPhase) UpdatePairs() []Pair {
	for _, id := range bp.moved {
		fat := bp.tree.FatAABB(id)
		bp.tree.Query(fat, func(other int) bool {
			if other == id {
				return true
			}
			p := makePair(id, other)
			if _, ok := bp.pairs[p]; ok {
				return true
			}
			if bp.filter != nil && !bp.filter(bp.tree.Data(p.A), bp.tree.Data(p.B)) {
				return true
			}
			bp.pairs[p] = struct{}{}
			return true
		})
	}
	bp.moved = bp.moved[:0]
	clear(bp.isMoved)

	bp.out = bp.out[:0]
	for p := range bp.pairs {
		if !bp.TestOverlap(p.A, p.B) {
			delete(bp.pairs, p)
			continue
		}
		if bp.filter != nil && !bp.filter(bp.tree.Data(p.A), bp.tree.Data(p.B)) {
			delete(bp.pairs, p)
			continue
		}
		bp.out = append(bp.out, p)
	}
	sort.Slice(bp.out, func(i, j int) bool { return bp.out[i].less(bp.out[j]) })
	return bp.out
}

// PairCount is the size of the persistent pair set.
func (bp *BroadPhase) PairCount() int { return len(bp.pairs) }

// Query reports proxies whose fat AABB overlaps aabb.
func (bp *BroadPhase) Query(aabb geom.AABB, fn func(id int) bool) {
	bp.tree.Query(aabb, fn)
}

func (bp *BroadPhase) Raycast(from, to mgl64.Vec3, fn func(id int, maxFraction float64) float64) {
	bp.tree.Raycast(from, to, 1, fn)
}
