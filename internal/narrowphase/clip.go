package narrowphase

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/rigidsim/internal/geom"
)

// clipPolygon keeps the part of poly with n·x <= d (Sutherland-Hodgman).
func clipPolygon(poly []mgl64.Vec3, n mgl64.Vec3, d float64) []mgl64.Vec3 {
	if len(poly) == 0 {
		return nil
	}
	out := make([]mgl64.Vec3, 0, len(poly)+2)
	prev := poly[len(poly)-1]
	prevDist := n.Dot(prev) - d
	for _, cur := range poly {
		curDist := n.Dot(cur) - d
		if curDist <= 0 {
			if prevDist > 0 {
				out = append(out, lerpPlane(prev, cur, prevDist, curDist))
			}
			out = append(out, cur)
		} else if prevDist <= 0 {
			out = append(out, lerpPlane(prev, cur, prevDist, curDist))
		}
		prev, prevDist = cur, curDist
	}
	return out
}

func lerpPlane(a, b mgl64.Vec3, da, db float64) mgl64.Vec3 {
	t := da / (da - db)
	return a.Add(b.Sub(a).Mul(t))
}

type clipped struct {
	point mgl64.Vec3
	depth float64
}

// clipFaces clips the incident polygon to the side planes of the reference
// face and keeps points no further than margin above the reference plane.
// Depth is measured against refNormal and is negative above the plane.
func clipFaces(ref []mgl64.Vec3, refNormal mgl64.Vec3, incident []mgl64.Vec3, margin float64) []clipped {
	if len(ref) < 3 {
		return nil
	}
	var centroid mgl64.Vec3
	for _, v := range ref {
		centroid = centroid.Add(v)
	}
	centroid = centroid.Mul(1 / float64(len(ref)))

	poly := incident
	for i, v := range ref {
		next := ref[(i+1)%len(ref)]
		side := next.Sub(v).Cross(refNormal)
		if side.LenSqr() < 1e-24 {
			continue
		}
		side = side.Normalize()
		if side.Dot(centroid.Sub(v)) > 0 {
			side = side.Mul(-1)
		}
		poly = clipPolygon(poly, side, side.Dot(v))
		if len(poly) == 0 {
			return nil
		}
	}

	refOffset := refNormal.Dot(ref[0])
	out := make([]clipped, 0, len(poly))
	for _, p := range poly {
		sep := refNormal.Dot(p) - refOffset
		if sep <= margin {
			out = append(out, clipped{point: p, depth: -sep})
		}
	}
	return out
}

func worldFace(p geom.Polytope, t geom.Transform, dir mgl64.Vec3) ([]mgl64.Vec3, mgl64.Vec3) {
	face, n := p.Face(t.InverseApplyVector(dir))
	world := make([]mgl64.Vec3, len(face))
	for i, v := range face {
		world[i] = t.Apply(v)
	}
	return world, t.ApplyVector(n)
}

// faceContacts builds a clipped face manifold for polytopes a and b along
// the separating normal n (A towards B). The face more aligned with n is
// the reference; A wins near-ties.
func faceContacts(a geom.Polytope, ta geom.Transform, b geom.Polytope, tb geom.Transform, n mgl64.Vec3, margin float64, out *ContactSet) bool {
	faceA, normalA := worldFace(a, ta, n)
	faceB, normalB := worldFace(b, tb, n.Mul(-1))

	if normalA.Dot(n) >= 0.98*normalB.Dot(n.Mul(-1)) {
		pts := clipFaces(faceA, normalA, faceB, margin)
		if len(pts) == 0 {
			return false
		}
		out.Normal = normalA
		for _, p := range pts {
			out.add(p.point, p.depth)
		}
		return true
	}

	pts := clipFaces(faceB, normalB, faceA, margin)
	if len(pts) == 0 {
		return false
	}
	out.Normal = normalB.Mul(-1)
	for _, p := range pts {
		// incident point lies on A; its partner sits on B's face
		out.add(p.point.Add(normalB.Mul(p.depth)), p.depth)
	}
	return true
}
