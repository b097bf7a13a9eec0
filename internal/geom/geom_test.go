package geom

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

const eps = 1e-9

func vecNear(a, b mgl64.Vec3, tol float64) bool {
	return a.Sub(b).Len() <= tol
}

func TestTransformRoundTrip(t *testing.T) {
	tr := NewTransform(mgl64.Vec3{1, 2, 3}, mgl64.QuatRotate(0.7, mgl64.Vec3{1, 1, 0}.Normalize()))
	p := mgl64.Vec3{-0.5, 4, 2}

	if got := tr.InverseApply(tr.Apply(p)); !vecNear(got, p, eps) {
		t.Errorf("inverse apply: expected %v, got %v", p, got)
	}
	if got := tr.Inverse().Apply(tr.Apply(p)); !vecNear(got, p, eps) {
		t.Errorf("inverse transform: expected %v, got %v", p, got)
	}

	child := Translation(0, 1, 0)
	composed := tr.Mul(child)
	if got, want := composed.Apply(p), tr.Apply(child.Apply(p)); !vecNear(got, want, eps) {
		t.Errorf("compose: expected %v, got %v", want, got)
	}
}

func TestNewTransformZeroQuat(t *testing.T) {
	tr := NewTransform(mgl64.Vec3{}, mgl64.Quat{})
	if tr.Orientation != mgl64.QuatIdent() {
		t.Errorf("expected identity orientation, got %v", tr.Orientation)
	}
}

func TestSkew(t *testing.T) {
	a := mgl64.Vec3{1, -2, 3}
	b := mgl64.Vec3{0.5, 4, -1}
	if got, want := Skew(a).Mul3x1(b), a.Cross(b); !vecNear(got, want, eps) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestTangentBasis(t *testing.T) {
	normals := []mgl64.Vec3{
		{1, 0, 0}, {0, 1, 0}, {0, 0, -1},
		mgl64.Vec3{1, 1, 1}.Normalize(),
		mgl64.Vec3{-0.2, 0.1, 0.9}.Normalize(),
	}
	for _, n := range normals {
		t1, t2 := TangentBasis(n)
		if math.Abs(t1.Dot(n)) > eps || math.Abs(t2.Dot(n)) > eps || math.Abs(t1.Dot(t2)) > eps {
			t.Errorf("basis for %v not orthogonal: %v %v", n, t1, t2)
		}
		if math.Abs(t1.Len()-1) > eps || math.Abs(t2.Len()-1) > eps {
			t.Errorf("basis for %v not unit: %v %v", n, t1, t2)
		}
	}
}

func TestIntegrateOrientationStaysUnit(t *testing.T) {
	q := mgl64.QuatIdent()
	w := mgl64.Vec3{3, -1, 2}
	for i := 0; i < 1000; i++ {
		q = IntegrateOrientation(q, w, 1.0/60)
	}
	if math.Abs(q.Len()-1) > 1e-12 {
		t.Errorf("expected unit quaternion, got length %v", q.Len())
	}
}

func TestAABB(t *testing.T) {
	a := NewAABB(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 1, 1})
	b := NewAABB(mgl64.Vec3{1, 0.5, 0.5}, mgl64.Vec3{2, 2, 2})
	c := NewAABB(mgl64.Vec3{1.1, 0, 0}, mgl64.Vec3{2, 1, 1})

	if !a.Overlaps(b) {
		t.Error("touching boxes should overlap")
	}
	if a.Overlaps(c) {
		t.Error("separated boxes should not overlap")
	}
	m := a.Merge(c)
	if !m.Contains(a) || !m.Contains(c) {
		t.Error("merge should contain both inputs")
	}
	if got := a.SurfaceArea(); math.Abs(got-6) > eps {
		t.Errorf("expected area 6, got %v", got)
	}
	ext := a.Extend(mgl64.Vec3{-1, 0, 2})
	if ext.Min[0] != -1 || ext.Max[2] != 3 || ext.Max[0] != 1 {
		t.Errorf("unexpected extension %v", ext)
	}
}

func TestAABBRayIntersect(t *testing.T) {
	a := NewAABB(mgl64.Vec3{-1, -1, -1}, mgl64.Vec3{1, 1, 1})
	f, ok := a.RayIntersect(mgl64.Vec3{-3, 0, 0}, mgl64.Vec3{3, 0, 0}, 1)
	if !ok || math.Abs(f-1.0/3) > eps {
		t.Errorf("expected hit at 1/3, got %v %v", f, ok)
	}
	if _, ok := a.RayIntersect(mgl64.Vec3{-3, 2, 0}, mgl64.Vec3{3, 2, 0}, 1); ok {
		t.Error("expected miss")
	}
	if _, ok := a.RayIntersect(mgl64.Vec3{-3, 0, 0}, mgl64.Vec3{3, 0, 0}, 0.2); ok {
		t.Error("expected miss when clipped by max fraction")
	}
}

func TestAABBTransformed(t *testing.T) {
	b := NewAABB(mgl64.Vec3{-1, -0.5, -0.5}, mgl64.Vec3{1, 0.5, 0.5})
	tr := NewTransform(mgl64.Vec3{5, 0, 0}, mgl64.QuatRotate(math.Pi/2, mgl64.Vec3{0, 0, 1}))
	got := b.Transformed(tr)
	want := NewAABB(mgl64.Vec3{4.5, -1, -0.5}, mgl64.Vec3{5.5, 1, 0.5})
	if !vecNear(got.Min, want.Min, 1e-9) || !vecNear(got.Max, want.Max, 1e-9) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestNewShapeValidation(t *testing.T) {
	if _, err := NewSphere(0); err != ErrInvalidDimensions {
		t.Errorf("expected ErrInvalidDimensions, got %v", err)
	}
	if _, err := NewBox(1, -1, 1); err != ErrInvalidDimensions {
		t.Errorf("expected ErrInvalidDimensions, got %v", err)
	}
	if _, err := NewCapsule(math.NaN(), 1); err != ErrInvalidDimensions {
		t.Errorf("expected ErrInvalidDimensions, got %v", err)
	}
}

func TestSupport(t *testing.T) {
	box, _ := NewBox(1, 2, 3)
	if got := box.Support(mgl64.Vec3{1, -1, 1}); got != (mgl64.Vec3{1, -2, 3}) {
		t.Errorf("box support: got %v", got)
	}
	sphere, _ := NewSphere(2)
	if got := sphere.Support(mgl64.Vec3{0, 0, -5}); !vecNear(got, mgl64.Vec3{0, 0, -2}, eps) {
		t.Errorf("sphere support: got %v", got)
	}
	capsule, _ := NewCapsule(0.5, 1)
	if got := capsule.Support(mgl64.Vec3{0, -1, 0}); !vecNear(got, mgl64.Vec3{0, -1.5, 0}, eps) {
		t.Errorf("capsule support: got %v", got)
	}
}

func TestRaycastShapes(t *testing.T) {
	sphere, _ := NewSphere(1)
	box, _ := NewBox(1, 1, 1)
	capsule, _ := NewCapsule(1, 1)
	hull, err := NewConvexHull(cubePoints(1))
	if err != nil {
		t.Fatalf("hull: %v", err)
	}

	tests := []struct {
		name     string
		shape    Shape
		from, to mgl64.Vec3
		fraction float64
		normal   mgl64.Vec3
	}{
		{"sphere", sphere, mgl64.Vec3{-4, 0, 0}, mgl64.Vec3{4, 0, 0}, 3.0 / 8, mgl64.Vec3{-1, 0, 0}},
		{"box", box, mgl64.Vec3{0, 5, 0}, mgl64.Vec3{0, -5, 0}, 0.4, mgl64.Vec3{0, 1, 0}},
		{"capsule side", capsule, mgl64.Vec3{5, 0.5, 0}, mgl64.Vec3{-5, 0.5, 0}, 0.4, mgl64.Vec3{1, 0, 0}},
		{"capsule cap", capsule, mgl64.Vec3{0, 5, 0}, mgl64.Vec3{0, -5, 0}, 0.3, mgl64.Vec3{0, 1, 0}},
		{"hull", hull, mgl64.Vec3{0, 0, -3}, mgl64.Vec3{0, 0, 3}, 1.0 / 3, mgl64.Vec3{0, 0, -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hit, ok := tt.shape.Raycast(tt.from, tt.to, 1)
			if !ok {
				t.Fatal("expected hit")
			}
			if math.Abs(hit.Fraction-tt.fraction) > 1e-9 {
				t.Errorf("expected fraction %v, got %v", tt.fraction, hit.Fraction)
			}
			if !vecNear(hit.Normal, tt.normal, 1e-9) {
				t.Errorf("expected normal %v, got %v", tt.normal, hit.Normal)
			}
			if _, ok := tt.shape.Raycast(mgl64.Vec3{}, tt.to, 1); ok {
				t.Error("ray starting inside should not hit")
			}
		})
	}
}

func TestConvexHull(t *testing.T) {
	pts := append(cubePoints(1), mgl64.Vec3{0.1, 0.2, 0.3})
	hull, err := NewConvexHull(pts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := len(hull.Planes()); got != 6 {
		t.Errorf("expected 6 planes, got %d", got)
	}
	if math.Abs(hull.Volume()-8) > 1e-9 {
		t.Errorf("expected volume 8, got %v", hull.Volume())
	}
	face, n := hull.Face(mgl64.Vec3{0, 1, 0.1})
	if len(face) != 4 || !vecNear(n, mgl64.Vec3{0, 1, 0}, eps) {
		t.Errorf("unexpected face %v normal %v", face, n)
	}
	if !hull.ContainsPoint(mgl64.Vec3{0.9, -0.9, 0.9}) || hull.ContainsPoint(mgl64.Vec3{1.1, 0, 0}) {
		t.Error("containment mismatch")
	}

	flat := []mgl64.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {1, 1, 0}}
	if _, err := NewConvexHull(flat); err != ErrDegenerateHull {
		t.Errorf("expected ErrDegenerateHull for coplanar points, got %v", err)
	}
	if _, err := NewConvexHull(flat[:3]); err != ErrDegenerateHull {
		t.Errorf("expected ErrDegenerateHull for three points, got %v", err)
	}
}

func TestInertia(t *testing.T) {
	box, _ := NewBox(0.5, 0.5, 0.5)
	if got := box.Inertia(6); !vecNear(got, mgl64.Vec3{1, 1, 1}, eps) {
		t.Errorf("unit cube of mass 6: expected 1, got %v", got)
	}
	sphere, _ := NewSphere(1)
	if got := sphere.Inertia(5); !vecNear(got, mgl64.Vec3{2, 2, 2}, eps) {
		t.Errorf("sphere: expected 2, got %v", got)
	}
}

func cubePoints(h float64) []mgl64.Vec3 {
	var pts []mgl64.Vec3
	for _, x := range []float64{-h, h} {
		for _, y := range []float64{-h, h} {
			for _, z := range []float64{-h, h} {
				pts = append(pts, mgl64.Vec3{x, y, z})
			}
		}
	}
	return pts
}
