package world

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/rigidsim/internal/body"
	"github.com/san-kum/rigidsim/internal/geom"
)

// Raycast returns the closest shape hit by the segment from→to.
func (w *World) Raycast(from, to mgl64.Vec3) (RaycastHit, bool) {
	var best RaycastHit
	found := false
	w.broad.Raycast(from, to, func(id int, maxFraction float64) float64 {
		p, err := w.registry.Proxy(body.ProxyID(w.broad.Data(id)))
		if err != nil {
			return -1
		}
		t := p.WorldTransform()
		hit, ok := p.Shape().Raycast(t.InverseApply(from), t.InverseApply(to), maxFraction)
		if !ok {
			return -1
		}
		best = RaycastHit{
			Body:     p.Body().Handle(),
			Shape:    p,
			Point:    from.Add(to.Sub(from).Mul(hit.Fraction)),
			Normal:   t.ApplyVector(hit.Normal),
			Fraction: hit.Fraction,
		}
		found = true
		return hit.Fraction
	})
	return best, found
}

// RaycastAll reports every shape hit along from→to, in no fixed order,
// until fn returns false.
func (w *World) RaycastAll(from, to mgl64.Vec3, fn func(RaycastHit) bool) {
	w.broad.Raycast(from, to, func(id int, maxFraction float64) float64 {
		p, err := w.registry.Proxy(body.ProxyID(w.broad.Data(id)))
		if err != nil {
			return -1
		}
		t := p.WorldTransform()
		hit, ok := p.Shape().Raycast(t.InverseApply(from), t.InverseApply(to), 1)
		if !ok {
			return -1
		}
		more := fn(RaycastHit{
			Body:     p.Body().Handle(),
			Shape:    p,
			Point:    from.Add(to.Sub(from).Mul(hit.Fraction)),
			Normal:   t.ApplyVector(hit.Normal),
			Fraction: hit.Fraction,
		})
		if !more {
			return 0
		}
		return maxFraction
	})
}

// QueryAABB reports every shape whose world AABB overlaps box until fn
// returns false.
func (w *World) QueryAABB(box geom.AABB, fn func(*body.ProxyShape) bool) {
	w.broad.Query(box, func(id int) bool {
		p, err := w.registry.Proxy(body.ProxyID(w.broad.Data(id)))
		if err != nil || !p.AABB().Overlaps(box) {
			return true
		}
		return fn(p)
	})
}

// TestOverlap reports whether any shape of a intersects any shape of b.
func (w *World) TestOverlap(a, b body.Handle) (bool, error) {
	ba, err := w.get("test overlap", a)
	if err != nil {
		return false, err
	}
	bb, err := w.get("test overlap", b)
	if err != nil {
		return false, err
	}
	if !ba.AABB().Overlaps(bb.AABB()) {
		return false, nil
	}
	for _, pa := range ba.Shapes() {
		for _, pb := range bb.Shapes() {
			if !pa.AABB().Overlaps(pb.AABB()) {
				continue
			}
			if w.dispatch.Overlap(pa.Shape(), pa.WorldTransform(), pb.Shape(), pb.WorldTransform()) {
				return true, nil
			}
		}
	}
	return false, nil
}

// TestPointInside reports whether the world point lies inside the body.
func (w *World) TestPointInside(h body.Handle, p mgl64.Vec3) (bool, error) {
	b, err := w.get("test point", h)
	if err != nil {
		return false, err
	}
	return b.TestPointInside(p), nil
}

// Contacts snapshots the current manifolds in shape-pair order.
func (w *World) Contacts() []Contact {
	manifolds := w.contacts.Manifolds()
	out := make([]Contact, 0, len(manifolds))
	for _, m := range manifolds {
		c := Contact{
			BodyA:  m.BodyA().Handle(),
			BodyB:  m.BodyB().Handle(),
			ShapeA: m.ProxyA.Index(),
			ShapeB: m.ProxyB.Index(),
			Normal: m.Normal,
			Points: make([]ContactPoint, len(m.Points)),
		}
		for i, p := range m.Points {
			wa, wb := m.WorldPoints(i)
			c.Points[i] = ContactPoint{WorldA: wa, WorldB: wb, Depth: p.Depth, NormalImpulse: p.NormalImpulse}
		}
		out = append(out, c)
	}
	return out
}

// ContactsOf snapshots the manifolds touching one body.
func (w *World) ContactsOf(h body.Handle) ([]Contact, error) {
	if _, err := w.get("contacts", h); err != nil {
		return nil, err
	}
	var out []Contact
	for _, c := range w.Contacts() {
		if c.BodyA == h || c.BodyB == h {
			out = append(out, c)
		}
	}
	return out, nil
}
