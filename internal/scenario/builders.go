package scenario

import (
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/rigidsim/internal/body"
	"github.com/san-kum/rigidsim/internal/geom"
	"github.com/san-kum/rigidsim/internal/world"
)

func dropBox(w *world.World, p Params, rng *rand.Rand) ([]body.Handle, error) {
	if err := ground(w, 0, 0, 10, p.material()); err != nil {
		return nil, err
	}
	s, err := geom.NewBox(p.Size, p.Size, p.Size)
	h, err := spawn(w, placement{
		typ:      body.Dynamic,
		position: mgl64.Vec3{0, p.Height, 0},
		material: p.material(),
	}, s, err)
	if err != nil {
		return nil, err
	}
	return []body.Handle{h}, nil
}

func stack(w *world.World, p Params, rng *rand.Rand) ([]body.Handle, error) {
	if err := ground(w, 0, 0, 10, p.material()); err != nil {
		return nil, err
	}
	out := make([]body.Handle, 0, p.Count)
	for i := 0; i < p.Count; i++ {
		s, err := geom.NewBox(p.Size, p.Size, p.Size)
		y := p.Size + float64(i)*(2*p.Size+p.Spacing)
		h, err := spawn(w, placement{typ: body.Dynamic, position: mgl64.Vec3{0, y, 0}, material: p.material()}, s, err)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, nil
}

// pyramid lays Count boxes on the bottom row and one fewer on each row up.
func pyramid(w *world.World, p Params, rng *rand.Rand) ([]body.Handle, error) {
	half := math.Max(10, float64(p.Count)*p.Size*2)
	if err := ground(w, 0, 0, half, p.material()); err != nil {
		return nil, err
	}
	pitch := 2*p.Size + p.Spacing
	var out []body.Handle
	for row := 0; row < p.Count; row++ {
		n := p.Count - row
		x0 := -float64(n-1) * pitch / 2
		y := p.Size + float64(row)*(2*p.Size+p.Spacing)
		for i := 0; i < n; i++ {
			s, err := geom.NewBox(p.Size, p.Size, p.Size)
			h, err := spawn(w, placement{
				typ:      body.Dynamic,
				position: mgl64.Vec3{x0 + float64(i)*pitch, y, 0},
				material: p.material(),
			}, s, err)
			if err != nil {
				return nil, err
			}
			out = append(out, h)
		}
	}
	return out, nil
}

// spheres drops a loose column of spheres with jitter in x and z.
func spheres(w *world.World, p Params, rng *rand.Rand) ([]body.Handle, error) {
	if err := ground(w, 0, 0, 10, p.material()); err != nil {
		return nil, err
	}
	out := make([]body.Handle, 0, p.Count)
	for i := 0; i < p.Count; i++ {
		jx := (rng.Float64()*2 - 1) * p.Size
		jz := (rng.Float64()*2 - 1) * p.Size
		y := p.Height + float64(i)*(2*p.Size+p.Spacing)
		s, err := geom.NewSphere(p.Size)
		h, err := spawn(w, placement{typ: body.Dynamic, position: mgl64.Vec3{jx, y, jz}, material: p.material()}, s, err)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, nil
}

// clusterPitch keeps neighbouring clusters far enough apart that their
// piles never touch.
const clusterPitch = 20

// clusters builds Count independent piles of three spheres, each on its
// own ground slab.
func clusters(w *world.World, p Params, rng *rand.Rand) ([]body.Handle, error) {
	var out []body.Handle
	for c := 0; c < p.Count; c++ {
		x := float64(c) * clusterPitch
		if err := ground(w, x, 0, 5, p.material()); err != nil {
			return nil, err
		}
		for i := 0; i < 3; i++ {
			pos := mgl64.Vec3{
				x + (rng.Float64()-0.5)*p.Size,
				p.Size + p.Spacing + float64(i)*(2*p.Size+p.Spacing),
				(rng.Float64() - 0.5) * p.Size,
			}
			s, err := geom.NewSphere(p.Size)
			h, err := spawn(w, placement{typ: body.Dynamic, position: pos, material: p.material()}, s, err)
			if err != nil {
				return nil, err
			}
			out = append(out, h)
		}
	}
	return out, nil
}

// chain hangs Count spheres in a horizontal line from a static anchor at
// Height; each link is jointed to the previous one halfway between them.
func chain(w *world.World, p Params, rng *rand.Rand) ([]body.Handle, error) {
	if err := ground(w, 0, 0, 20, p.material()); err != nil {
		return nil, err
	}
	def := world.DefaultBodyDef(body.Static)
	def.Position = mgl64.Vec3{0, p.Height, 0}
	anchor, err := w.CreateBody(def)
	if err != nil {
		return nil, err
	}

	pitch := 2*p.Size + p.Spacing
	prev := anchor
	out := make([]body.Handle, 0, p.Count)
	for i := 1; i <= p.Count; i++ {
		x := float64(i) * pitch
		s, err := geom.NewSphere(p.Size)
		link, err := spawn(w, placement{typ: body.Dynamic, position: mgl64.Vec3{x, p.Height, 0}, material: p.material()}, s, err)
		if err != nil {
			return nil, err
		}
		if _, err := w.CreateBallSocketJoint(prev, link, mgl64.Vec3{x - pitch/2, p.Height, 0}, false); err != nil {
			return nil, err
		}
		out = append(out, link)
		prev = link
	}
	return out, nil
}

// mixed alternates capsules, tetrahedra and wedges with random tilts.
func mixed(w *world.World, p Params, rng *rand.Rand) ([]body.Handle, error) {
	if err := ground(w, 0, 0, 10, p.material()); err != nil {
		return nil, err
	}
	r := p.Size
	tetra := []mgl64.Vec3{{r, 0, -r / math.Sqrt2}, {-r, 0, -r / math.Sqrt2}, {0, r, r / math.Sqrt2}, {0, -r, r / math.Sqrt2}}
	wedge := []mgl64.Vec3{
		{-r, -r / 2, -r}, {r, -r / 2, -r}, {0, r / 2, -r},
		{-r, -r / 2, r}, {r, -r / 2, r}, {0, r / 2, r},
	}

	out := make([]body.Handle, 0, p.Count)
	for i := 0; i < p.Count; i++ {
		var (
			s   geom.Shape
			err error
		)
		switch i % 3 {
		case 0:
			s, err = geom.NewCapsule(r/2, r)
		case 1:
			s, err = geom.NewConvexHull(tetra)
		default:
			s, err = geom.NewConvexHull(wedge)
		}
		axis := mgl64.Vec3{rng.Float64() - 0.5, rng.Float64() - 0.5, rng.Float64() - 0.5}
		q := mgl64.QuatIdent()
		if axis.Len() > 1e-6 {
			q = mgl64.QuatRotate(rng.Float64()*math.Pi, axis.Normalize())
		}
		pos := mgl64.Vec3{(rng.Float64()*2 - 1) * r, p.Height + float64(i)*(3*r+p.Spacing), (rng.Float64()*2 - 1) * r}
		h, err := spawn(w, placement{typ: body.Dynamic, position: pos, orientation: q, material: p.material()}, s, err)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, nil
}
