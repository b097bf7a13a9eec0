package viz

import (
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/rigidsim/internal/body"
	"github.com/san-kum/rigidsim/internal/geom"
)

// Camera orbits a target point and projects world points onto the canvas.
type Camera struct {
	Target           mgl64.Vec3
	Distance         float64
	Near             float64
	RotX, RotY, RotZ float64
	Zoom             float64
}

func NewCamera() *Camera {
	return &Camera{Distance: 30, Near: 0.1, RotX: 0.35, Zoom: 1.0}
}

func (c *Camera) RotateX(a float64) { c.RotX += a }
func (c *Camera) RotateY(a float64) { c.RotY += a }
func (c *Camera) RotateZ(a float64) { c.RotZ += a }
func (c *Camera) ZoomIn()           { c.Zoom = math.Min(10, c.Zoom*1.2) }
func (c *Camera) ZoomOut()          { c.Zoom = math.Max(0.1, c.Zoom/1.2) }

// Frame aims the camera at the centre of box from far enough away to see
// all of it.
func (c *Camera) Frame(box geom.AABB) {
	c.Target = box.Center()
	c.Distance = math.Max(5, 2.5*box.HalfExtents().Len())
}

func (c *Camera) view() mgl64.Mat3 {
	return mgl64.Rotate3DZ(c.RotZ).Mul3(mgl64.Rotate3DX(c.RotX)).Mul3(mgl64.Rotate3DY(c.RotY))
}

// Project converts world coordinates to canvas sub-pixels.
// Returns x, y, depth, and visibility.
func (c *Camera) Project(p mgl64.Vec3, sw, sh int) (int, int, float64, bool) {
	x, y, depth, front := c.project(c.view(), p, sw, sh)
	return x, y, depth, front && onScreen(x, y, sw, sh)
}

func onScreen(x, y, sw, sh int) bool {
	return x >= 0 && x < sw && y >= 0 && y < sh
}

// project reports whether p lies in front of the camera; points behind it
// have no usable screen position.
func (c *Camera) project(view mgl64.Mat3, p mgl64.Vec3, sw, sh int) (int, int, float64, bool) {
	rot := view.Mul3x1(p.Sub(c.Target)).Mul(c.Zoom)
	dist := c.Distance
	if rot.Z() >= dist-c.Near {
		return 0, 0, 0, false
	}
	scale := dist / (dist - rot.Z())
	pScale := 0.9 * float64(min(sw, sh)) / dist
	sx := int(math.Round(rot.X()*scale*pScale)) + sw/2
	sy := int(math.Round(-rot.Y()*scale*pScale)) + sh/2
	return sx, sy, rot.Z(), true
}

type Edge struct {
	Start, End mgl64.Vec3
}

type Wireframe struct{ Edges []Edge }

func NewWireframe() *Wireframe               { return &Wireframe{Edges: make([]Edge, 0)} }
func (w *Wireframe) AddEdge(s, e mgl64.Vec3) { w.Edges = append(w.Edges, Edge{s, e}) }
func (w *Wireframe) AddPoint(p mgl64.Vec3)   { w.Edges = append(w.Edges, Edge{p, p}) }
func (w *Wireframe) Clear()                  { w.Edges = w.Edges[:0] }

// ringSegments is the number of chords used for circles.
const ringSegments = 16

func (w *Wireframe) ring(tf geom.Transform, centre, u, v mgl64.Vec3, r float64, from, to float64) {
	n := int(math.Ceil(ringSegments * (to - from) / (2 * math.Pi)))
	point := func(a float64) mgl64.Vec3 {
		return tf.Apply(centre.Add(u.Mul(r * math.Cos(a))).Add(v.Mul(r * math.Sin(a))))
	}
	prev := point(from)
	for i := 1; i <= n; i++ {
		next := point(from + (to-from)*float64(i)/float64(n))
		w.AddEdge(prev, next)
		prev = next
	}
}

var (
	axisX = mgl64.Vec3{1, 0, 0}
	axisY = mgl64.Vec3{0, 1, 0}
	axisZ = mgl64.Vec3{0, 0, 1}
)

// AddShape outlines s placed at tf.
func (w *Wireframe) AddShape(s geom.Shape, tf geom.Transform) {
	switch s := s.(type) {
	case *geom.Box:
		h := s.HalfExtents
		var v [8]mgl64.Vec3
		for i := range v {
			c := mgl64.Vec3{h.X(), h.Y(), h.Z()}
			if i&1 == 0 {
				c[0] = -c[0]
			}
			if i&2 == 0 {
				c[1] = -c[1]
			}
			if i&4 == 0 {
				c[2] = -c[2]
			}
			v[i] = tf.Apply(c)
		}
		for i := range v {
			for bit := 1; bit < 8; bit <<= 1 {
				if j := i | bit; j != i {
					w.AddEdge(v[i], v[j])
				}
			}
		}
	case *geom.Sphere:
		var o mgl64.Vec3
		w.ring(tf, o, axisX, axisY, s.Radius, 0, 2*math.Pi)
		w.ring(tf, o, axisX, axisZ, s.Radius, 0, 2*math.Pi)
		w.ring(tf, o, axisY, axisZ, s.Radius, 0, 2*math.Pi)
	case *geom.Capsule:
		top, bottom := axisY.Mul(s.HalfHeight), axisY.Mul(-s.HalfHeight)
		w.ring(tf, top, axisX, axisZ, s.Radius, 0, 2*math.Pi)
		w.ring(tf, bottom, axisX, axisZ, s.Radius, 0, 2*math.Pi)
		for _, side := range []mgl64.Vec3{axisX, axisX.Mul(-1), axisZ, axisZ.Mul(-1)} {
			off := side.Mul(s.Radius)
			w.AddEdge(tf.Apply(top.Add(off)), tf.Apply(bottom.Add(off)))
		}
		w.ring(tf, top, axisX, axisY, s.Radius, 0, math.Pi)
		w.ring(tf, top, axisZ, axisY, s.Radius, 0, math.Pi)
		w.ring(tf, bottom, axisX, axisY, s.Radius, math.Pi, 2*math.Pi)
		w.ring(tf, bottom, axisZ, axisY, s.Radius, math.Pi, 2*math.Pi)
	case *geom.ConvexHull:
		verts := s.Vertices()
		for _, face := range s.Faces() {
			for i, a := range face {
				b := face[(i+1)%len(face)]
				w.AddEdge(tf.Apply(verts[a]), tf.Apply(verts[b]))
			}
		}
	default:
		box := s.LocalBounds()
		w.AddShape(&geom.Box{HalfExtents: box.HalfExtents()}, tf.Mul(geom.NewTransform(box.Center(), mgl64.QuatIdent())))
	}
}

// AddBody outlines every shape of b in its current pose.
func (w *Wireframe) AddBody(b *body.Body) {
	for _, p := range b.Shapes() {
		w.AddShape(p.Shape(), p.WorldTransform())
	}
}

func (w *Wireframe) AddAxes(l float64) {
	var o mgl64.Vec3
	w.AddEdge(o, axisX.Mul(l))
	w.AddEdge(o, axisY.Mul(l))
	w.AddEdge(o, axisZ.Mul(l))
}

type ProjectedEdge struct {
	X1, Y1, X2, Y2 int
	Depth          float64
}

// Render3D draws the wireframe to the canvas, farthest edges first.
func Render3D(c *Canvas, w *Wireframe, cam *Camera) {
	if c == nil || w == nil || cam == nil {
		return
	}
	cw, ch := c.Pixels()
	view := cam.view()
	proj := make([]ProjectedEdge, 0, len(w.Edges))
	for _, e := range w.Edges {
		x1, y1, d1, f1 := cam.project(view, e.Start, cw, ch)
		x2, y2, d2, f2 := cam.project(view, e.End, cw, ch)
		if f1 && f2 && (onScreen(x1, y1, cw, ch) || onScreen(x2, y2, cw, ch)) {
			proj = append(proj, ProjectedEdge{x1, y1, x2, y2, (d1 + d2) / 2})
		}
	}
	sort.Slice(proj, func(i, j int) bool { return proj[i].Depth < proj[j].Depth })
	for _, e := range proj {
		if e.X1 == e.X2 && e.Y1 == e.Y2 {
			c.Set(e.X1, e.Y1)
		} else {
			c.DrawLine(e.X1, e.Y1, e.X2, e.Y2)
		}
	}
}
