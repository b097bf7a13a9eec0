// Package island partitions awake dynamic bodies into independently
// solvable groups connected by contacts and joints.
package island

import (
	"github.com/san-kum/rigidsim/internal/body"
	"github.com/san-kum/rigidsim/internal/contact"
)

// Joint is any two-body constraint that links islands.
type Joint interface {
	Bodies() (*body.Body, *body.Body)
}

// Island is one connected group. Bodies holds only dynamic members; static
// and kinematic bodies appear through the manifolds and joints that touch
// them but never join two islands.
type Island[J Joint] struct {
	Bodies    []*body.Body
	Manifolds []*contact.Manifold
	Joints    []J
}

func (isl *Island[J]) reset() {
	clear(isl.Bodies)
	clear(isl.Manifolds)
	clear(isl.Joints)
	isl.Bodies = isl.Bodies[:0]
	isl.Manifolds = isl.Manifolds[:0]
	isl.Joints = isl.Joints[:0]
}

// Builder rebuilds islands each step, reusing its buffers.
type Builder[J Joint] struct {
	parent  []int
	rank    []uint8
	awake   []bool
	slot    []int
	index   map[*body.Body]int
	islands []*Island[J]
	out     []*Island[J]

	woken int
}

func NewBuilder[J Joint]() *Builder[J] {
	return &Builder[J]{index: make(map[*body.Body]int)}
}

// Woken returns how many sleeping bodies the last Build woke.
func (b *Builder[J]) Woken() int { return b.woken }

// Build groups the active dynamic bodies. A group with any awake member, or
// touched by a moving kinematic body, is woken entirely and returned;
// sleeping groups are skipped. Islands are ordered by their first member in
// bodies and keep manifolds and joints in the order given. The result is
// valid until the next call.
func (b *Builder[J]) Build(bodies []*body.Body, manifolds []*contact.Manifold, joints []J) []*Island[J] {
	n := len(bodies)
	b.grow(n)
	clear(b.index)
	b.woken = 0

	for i, bd := range bodies {
		b.parent[i] = i
		b.rank[i] = 0
		b.awake[i] = false
		b.slot[i] = -1
		if member(bd) {
			b.index[bd] = i
		}
	}

	link := func(x, y *body.Body) {
		ix, okx := b.index[x]
		iy, oky := b.index[y]
		switch {
		case okx && oky:
			b.union(ix, iy)
		case okx && drives(y):
			b.awake[ix] = true
		case oky && drives(x):
			b.awake[iy] = true
		}
	}
	for _, m := range manifolds {
		if touching(m) {
			link(m.Bodies())
		}
	}
	for _, j := range joints {
		if x, y := j.Bodies(); x.IsActive() && y.IsActive() {
			link(x, y)
		}
	}

	for i, bd := range bodies {
		if _, ok := b.index[bd]; !ok {
			continue
		}
		r := b.find(i)
		if b.awake[i] || bd.IsAwake() {
			b.awake[r] = true
		}
	}

	b.out = b.out[:0]
	for i, bd := range bodies {
		if _, ok := b.index[bd]; !ok {
			continue
		}
		r := b.find(i)
		if !b.awake[r] {
			continue
		}
		if b.slot[r] < 0 {
			b.slot[r] = len(b.out)
			b.out = append(b.out, b.next(len(b.out)))
		}
		if bd.IsSleeping() {
			bd.SetSleeping(false)
			b.woken++
		}
		isl := b.out[b.slot[r]]
		isl.Bodies = append(isl.Bodies, bd)
	}

	for _, m := range manifolds {
		if touching(m) {
			if isl := b.islandOf(m.Bodies()); isl != nil {
				isl.Manifolds = append(isl.Manifolds, m)
			}
		}
	}
	for _, j := range joints {
		x, y := j.Bodies()
		if !x.IsActive() || !y.IsActive() {
			continue
		}
		if isl := b.islandOf(x, y); isl != nil {
			isl.Joints = append(isl.Joints, j)
		}
	}
	return b.out
}

func (b *Builder[J]) islandOf(x, y *body.Body) *Island[J] {
	i, ok := b.index[x]
	if !ok {
		if i, ok = b.index[y]; !ok {
			return nil
		}
	}
	s := b.slot[b.find(i)]
	if s < 0 {
		return nil
	}
	return b.out[s]
}

func (b *Builder[J]) next(i int) *Island[J] {
	if i == len(b.islands) {
		b.islands = append(b.islands, &Island[J]{})
	}
	isl := b.islands[i]
	isl.reset()
	return isl
}

func (b *Builder[J]) grow(n int) {
	if cap(b.parent) < n {
		b.parent = make([]int, n)
		b.rank = make([]uint8, n)
		b.awake = make([]bool, n)
		b.slot = make([]int, n)
	}
	b.parent = b.parent[:n]
	b.rank = b.rank[:n]
	b.awake = b.awake[:n]
	b.slot = b.slot[:n]
}

func (b *Builder[J]) find(i int) int {
	for b.parent[i] != i {
		b.parent[i] = b.parent[b.parent[i]]
		i = b.parent[i]
	}
	return i
}

func (b *Builder[J]) union(x, y int) {
	rx, ry := b.find(x), b.find(y)
	if rx == ry {
		return
	}
	if b.rank[rx] < b.rank[ry] {
		rx, ry = ry, rx
	}
	b.parent[ry] = rx
	if b.rank[rx] == b.rank[ry] {
		b.rank[rx]++
	}
}

func touching(m *contact.Manifold) bool {
	x, y := m.Bodies()
	return m.IsTouching() && x.IsActive() && y.IsActive()
}

func member(b *body.Body) bool {
	return b.IsDynamic() && b.IsActive()
}

// drives reports whether a non-member body can wake what it touches.
func drives(b *body.Body) bool {
	if b.Type() != body.Kinematic || !b.IsActive() {
		return false
	}
	return b.LinearVelocity().LenSqr() > 0 || b.AngularVelocity().LenSqr() > 0
}
