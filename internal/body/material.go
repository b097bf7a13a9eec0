package body

import "math"

const (
	DefaultFriction    = 0.3
	DefaultRestitution = 0.0
)

// Material holds the surface coefficients used when two bodies touch.
type Material struct {
	Friction    float64 `yaml:"friction" json:"friction"`
	Restitution float64 `yaml:"restitution" json:"restitution"`
}

func DefaultMaterial() Material {
	return Material{Friction: DefaultFriction, Restitution: DefaultRestitution}
}

// MixFriction combines coefficients with the geometric mean.
func MixFriction(a, b float64) float64 {
	return math.Sqrt(math.Max(a, 0) * math.Max(b, 0))
}

// MixRestitution takes the bouncier of the two surfaces.
func MixRestitution(a, b float64) float64 {
	return math.Max(a, b)
}
