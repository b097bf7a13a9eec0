// Package scenario builds named demonstration scenes on a world.
package scenario

import (
	"fmt"
	"math/rand"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/rigidsim/internal/body"
	"github.com/san-kum/rigidsim/internal/geom"
	"github.com/san-kum/rigidsim/internal/world"
)

// Params tune a scene. Builders read only the fields they need.
type Params struct {
	Count       int     `yaml:"count" json:"count"`
	Height      float64 `yaml:"height" json:"height"`
	Size        float64 `yaml:"size" json:"size"`
	Spacing     float64 `yaml:"spacing" json:"spacing"`
	Friction    float64 `yaml:"friction" json:"friction"`
	Restitution float64 `yaml:"restitution" json:"restitution"`
	Seed        int64   `yaml:"-" json:"seed"`
}

func DefaultParams() Params {
	return Params{
		Count:       5,
		Height:      5,
		Size:        0.5,
		Spacing:     0.05,
		Friction:    0.5,
		Restitution: 0.2,
	}
}

func (p Params) material() body.Material {
	return body.Material{Friction: p.Friction, Restitution: p.Restitution}
}

func (p Params) validate() error {
	if p.Count < 1 {
		return fmt.Errorf("%w: count must be at least 1", ErrInvalidParams)
	}
	if !(p.Size > 0) {
		return fmt.Errorf("%w: size must be positive", ErrInvalidParams)
	}
	if p.Spacing < 0 || p.Friction < 0 || p.Restitution < 0 {
		return fmt.Errorf("%w: spacing, friction and restitution must not be negative", ErrInvalidParams)
	}
	return nil
}

// Scene is a populated world with the bodies worth recording.
type Scene struct {
	Name    string
	Params  Params
	World   *world.World
	Tracked []body.Handle
}

// BuildFunc populates w and returns the bodies to track.
type BuildFunc func(w *world.World, p Params, rng *rand.Rand) ([]body.Handle, error)

type placement struct {
	typ         body.Type
	position    mgl64.Vec3
	orientation mgl64.Quat
	velocity    mgl64.Vec3
	material    body.Material
}

func spawn(w *world.World, at placement, s geom.Shape, err error) (body.Handle, error) {
	if err != nil {
		return body.Handle{}, err
	}
	def := world.DefaultBodyDef(at.typ)
	def.Position = at.position
	if at.orientation.Len() != 0 {
		def.Orientation = at.orientation
	}
	def.LinearVelocity = at.velocity
	def.Material = at.material
	h, err := w.CreateBody(def)
	if err != nil {
		return body.Handle{}, err
	}
	if _, err := w.AddShape(h, s, geom.Identity()); err != nil {
		return body.Handle{}, err
	}
	return h, nil
}

// ground adds a static slab whose top face is y=0 centred on (x, z).
func ground(w *world.World, x, z, half float64, m body.Material) error {
	s, err := geom.NewBox(half, 0.5, half)
	_, err = spawn(w, placement{typ: body.Static, position: mgl64.Vec3{x, -0.5, z}, material: m}, s, err)
	return err
}
