package contact

import (
	"fmt"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
)

// Reduction selects which points survive when the narrow phase reports
// more than the manifold can hold.
type Reduction uint8

const (
	// ReduceArea keeps the deepest point and then the points that span
	// the largest area around it.
	ReduceArea Reduction = iota
	// ReduceDeepest keeps the deepest points.
	ReduceDeepest
)

func (r Reduction) String() string {
	switch r {
	case ReduceArea:
		return "area"
	case ReduceDeepest:
		return "deepest"
	}
	return fmt.Sprintf("reduction(%d)", uint8(r))
}

func ParseReduction(s string) (Reduction, error) {
	switch s {
	case "area", "":
		return ReduceArea, nil
	case "deepest":
		return ReduceDeepest, nil
	}
	return ReduceArea, fmt.Errorf("contact: unknown reduction %q", s)
}

type candidate struct {
	world mgl64.Vec3
	depth float64
}

// reduce returns the indices of at most limit candidates, ascending.
func reduce(pts []candidate, normal mgl64.Vec3, limit int, rule Reduction) []int {
	if limit <= 0 || limit > MaxPoints {
		limit = MaxPoints
	}
	if len(pts) <= limit {
		idx := make([]int, len(pts))
		for i := range idx {
			idx[i] = i
		}
		return idx
	}

	var chosen []int
	if rule == ReduceDeepest {
		order := make([]int, len(pts))
		for i := range order {
			order[i] = i
		}
		sort.SliceStable(order, func(a, b int) bool { return pts[order[a]].depth > pts[order[b]].depth })
		chosen = order[:limit]
	} else {
		chosen = reduceArea(pts, normal)
		if len(chosen) > limit {
			chosen = chosen[:limit]
		}
	}
	sort.Ints(chosen)
	return chosen
}

// reduceArea picks up to four points: the deepest, the one farthest from
// it, the one maximizing the triangle area, and the one adding the most
// area outside that triangle.
func reduceArea(pts []candidate, normal mgl64.Vec3) []int {
	i1 := 0
	for i := range pts {
		if pts[i].depth > pts[i1].depth {
			i1 = i
		}
	}
	p1 := pts[i1].world

	i2, best := -1, -1.0
	for i := range pts {
		if i == i1 {
			continue
		}
		if d := pts[i].world.Sub(p1).LenSqr(); d > best {
			i2, best = i, d
		}
	}
	p2 := pts[i2].world

	i3, best := -1, -1.0
	sign := 1.0
	for i := range pts {
		if i == i1 || i == i2 {
			continue
		}
		area := p2.Sub(p1).Cross(pts[i].world.Sub(p1)).Dot(normal)
		if a := abs(area); a > best {
			i3, best = i, a
			sign = 1
			if area < 0 {
				sign = -1
			}
		}
	}
	if i3 < 0 {
		return []int{i1, i2}
	}
	p3 := pts[i3].world

	// with the triangle wound positively, a point outside an edge gives a
	// negative signed area on that edge
	i4, best := -1, 0.0
	for i := range pts {
		if i == i1 || i == i2 || i == i3 {
			continue
		}
		q := pts[i].world
		a12 := sign * p1.Sub(q).Cross(p2.Sub(q)).Dot(normal)
		a23 := sign * p2.Sub(q).Cross(p3.Sub(q)).Dot(normal)
		a31 := sign * p3.Sub(q).Cross(p1.Sub(q)).Dot(normal)
		outside := -min(a12, a23, a31)
		if outside > best {
			i4, best = i, outside
		}
	}
	if i4 < 0 {
		return []int{i1, i2, i3}
	}
	return []int{i1, i2, i3, i4}
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
