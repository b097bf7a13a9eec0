package broadphase

import (
	"math/rand"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/rigidsim/internal/geom"
)

func benchBroadPhase(b *testing.B, n int) (*BroadPhase, []int, []geom.AABB) {
	rng := rand.New(rand.NewSource(1))
	bp := New(0.1, 2, nil)
	ids := make([]int, n)
	boxes := make([]geom.AABB, n)
	for i := range ids {
		boxes[i] = randomBox(rng, 50)
		ids[i] = bp.AddProxy(boxes[i], i)
	}
	bp.UpdatePairs()
	return bp, ids, boxes
}

func BenchmarkUpdatePairs_1000(b *testing.B) {
	bp, ids, boxes := benchBroadPhase(b, 1000)
	d := mgl64.Vec3{0.05, -0.05, 0}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for j, id := range ids {
			boxes[j] = geom.NewAABB(boxes[j].Min.Add(d), boxes[j].Max.Add(d))
			bp.MoveProxy(id, boxes[j], d)
		}
		bp.UpdatePairs()
	}
}

func BenchmarkQuery_1000(b *testing.B) {
	bp, _, boxes := benchBroadPhase(b, 1000)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		bp.Query(boxes[i%len(boxes)], func(int) bool { return true })
	}
}
