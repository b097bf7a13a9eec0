package body

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/rigidsim/internal/geom"
)

// Type selects how a body responds to forces and contacts.
type Type uint8

const (
	// Static bodies never move and have infinite mass.
	Static Type = iota
	// Kinematic bodies move only by their set velocity and are not pushed
	// by contacts.
	Kinematic
	// Dynamic bodies are fully simulated.
	Dynamic
)

func (t Type) String() string {
	switch t {
	case Static:
		return "static"
	case Kinematic:
		return "kinematic"
	case Dynamic:
		return "dynamic"
	default:
		return fmt.Sprintf("type(%d)", uint8(t))
	}
}

// ParseType maps a lowercase type name to a Type.
func ParseType(s string) (Type, error) {
	switch s {
	case "static":
		return Static, nil
	case "kinematic":
		return Kinematic, nil
	case "dynamic", "":
		return Dynamic, nil
	}
	return Dynamic, fmt.Errorf("body: unknown type %q", s)
}

// Handle identifies a body across steps. A handle outlives its body: once
// the body is destroyed, lookups report ErrStaleHandle.
type Handle struct {
	index uint32
	gen   uint32
}

func (h Handle) Index() int { return int(h.index) }

func (h Handle) Generation() uint32 { return h.gen }

// IsZero reports whether h is the zero handle, which no body ever has.
func (h Handle) IsZero() bool { return h.gen == 0 }

func (h Handle) String() string {
	return fmt.Sprintf("body#%d.%d", h.index, h.gen)
}

// Less orders handles by slot index, the canonical body order.
func (h Handle) Less(o Handle) bool {
	if h.index != o.index {
		return h.index < o.index
	}
	return h.gen < o.gen
}

// Body is a rigid body. The centre of mass coincides with the body origin.
type Body struct {
	handle Handle
	typ    Type

	transform geom.Transform
	active    bool

	sleeping   bool
	allowSleep bool
	sleepTime  float64

	shapes    []*ProxyShape
	nextShape int
	radius    float64

	mass            float64
	invMass         float64
	invInertiaLocal mgl64.Mat3
	invInertiaWorld mgl64.Mat3

	linearVelocity  mgl64.Vec3
	angularVelocity mgl64.Vec3
	force           mgl64.Vec3
	torque          mgl64.Vec3

	material       Material
	linearDamping  float64
	angularDamping float64
	gravityScale   float64

	UserData any
}

func newBody(h Handle, typ Type, t geom.Transform) *Body {
	b := &Body{
		handle:       h,
		typ:          typ,
		transform:    geom.NewTransform(t.Position, t.Orientation),
		active:       true,
		allowSleep:   true,
		mass:         1,
		material:     DefaultMaterial(),
		gravityScale: 1,
	}
	b.updateMassProperties()
	return b
}

func (b *Body) Handle() Handle { return b.handle }

func (b *Body) Type() Type { return b.typ }

func (b *Body) IsDynamic() bool { return b.typ == Dynamic }

func (b *Body) Transform() geom.Transform { return b.transform }

func (b *Body) Position() mgl64.Vec3 { return b.transform.Position }

func (b *Body) Orientation() mgl64.Quat { return b.transform.Orientation }

func (b *Body) IsActive() bool { return b.active }

func (b *Body) IsSleeping() bool { return b.sleeping }

// IsAwake reports whether the body takes part in simulation this step.
// Static bodies are never awake.
func (b *Body) IsAwake() bool { return b.active && !b.sleeping && b.typ != Static }

func (b *Body) AllowSleep() bool { return b.allowSleep }

func (b *Body) SleepTime() float64 { return b.sleepTime }

func (b *Body) Shapes() []*ProxyShape { return b.shapes }

// Shape returns the i-th attached shape, or nil when i is out of range.
func (b *Body) Shape(i int) *ProxyShape {
	if i < 0 || i >= len(b.shapes) {
		return nil
	}
	return b.shapes[i]
}

func (b *Body) ShapeCount() int { return len(b.shapes) }

// BoundingRadius encloses every shape, measured from the body origin.
func (b *Body) BoundingRadius() float64 { return b.radius }

func (b *Body) Mass() float64 {
	if b.typ != Dynamic {
		return 0
	}
	return b.mass
}

func (b *Body) InvMass() float64 { return b.invMass }

func (b *Body) InvInertiaLocal() mgl64.Mat3 { return b.invInertiaLocal }

func (b *Body) InvInertiaWorld() mgl64.Mat3 { return b.invInertiaWorld }

func (b *Body) LinearVelocity() mgl64.Vec3 { return b.linearVelocity }

func (b *Body) AngularVelocity() mgl64.Vec3 { return b.angularVelocity }

func (b *Body) Force() mgl64.Vec3 { return b.force }

func (b *Body) Torque() mgl64.Vec3 { return b.torque }

func (b *Body) Material() Material { return b.material }

func (b *Body) LinearDamping() float64 { return b.linearDamping }

func (b *Body) AngularDamping() float64 { return b.angularDamping }

func (b *Body) GravityScale() float64 { return b.gravityScale }

// SetTransform places the body and refreshes the cached bounds of its
// shapes. Velocities are left untouched.
func (b *Body) SetTransform(t geom.Transform) {
	b.transform = geom.NewTransform(t.Position, t.Orientation)
	b.updateWorldInertia()
	for _, p := range b.shapes {
		p.refresh()
	}
}

func (b *Body) SetLinearVelocity(v mgl64.Vec3) {
	if b.typ == Static {
		return
	}
	b.linearVelocity = v
}

func (b *Body) SetAngularVelocity(w mgl64.Vec3) {
	if b.typ == Static {
		return
	}
	b.angularVelocity = w
}

func (b *Body) ApplyForce(f mgl64.Vec3) {
	if b.typ != Dynamic {
		return
	}
	b.force = b.force.Add(f)
}

// ApplyForceAtPoint applies f at world point p, adding the induced torque.
func (b *Body) ApplyForceAtPoint(f, p mgl64.Vec3) {
	if b.typ != Dynamic {
		return
	}
	b.force = b.force.Add(f)
	b.torque = b.torque.Add(p.Sub(b.transform.Position).Cross(f))
}

func (b *Body) ApplyTorque(t mgl64.Vec3) {
	if b.typ != Dynamic {
		return
	}
	b.torque = b.torque.Add(t)
}

// ApplyImpulse changes momentum immediately at world point p.
func (b *Body) ApplyImpulse(j, p mgl64.Vec3) {
	if b.typ != Dynamic {
		return
	}
	b.linearVelocity = b.linearVelocity.Add(j.Mul(b.invMass))
	r := p.Sub(b.transform.Position)
	b.angularVelocity = b.angularVelocity.Add(b.invInertiaWorld.Mul3x1(r.Cross(j)))
}

func (b *Body) ClearForces() {
	b.force = mgl64.Vec3{}
	b.torque = mgl64.Vec3{}
}

// SetSleeping puts the body to sleep or wakes it. A sleeping body keeps
// no velocity or accumulated force.
func (b *Body) SetSleeping(sleeping bool) {
	if b.typ == Static {
		return
	}
	b.sleepTime = 0
	if b.sleeping == sleeping {
		return
	}
	b.sleeping = sleeping
	if sleeping {
		b.linearVelocity = mgl64.Vec3{}
		b.angularVelocity = mgl64.Vec3{}
		b.ClearForces()
	}
}

func (b *Body) SetSleepTime(t float64) { b.sleepTime = t }

func (b *Body) SetAllowSleep(allow bool) {
	b.allowSleep = allow
	if !allow {
		b.SetSleeping(false)
	}
}

func (b *Body) SetActive(active bool) {
	b.active = active
	if !active {
		b.sleeping = false
		b.sleepTime = 0
	}
}

// SetType changes the body type and recomputes mass properties. Static
// bodies lose their velocity.
func (b *Body) SetType(t Type) {
	b.typ = t
	if t == Static {
		b.linearVelocity = mgl64.Vec3{}
		b.angularVelocity = mgl64.Vec3{}
		b.sleeping = false
	}
	b.ClearForces()
	b.sleepTime = 0
	b.updateMassProperties()
}

func (b *Body) SetMass(m float64) error {
	if !(m > 0) || math.IsInf(m, 0) {
		return ErrInvalidMass
	}
	b.mass = m
	b.updateMassProperties()
	return nil
}

func (b *Body) SetMaterial(m Material) { b.material = m }

func (b *Body) SetDamping(linear, angular float64) {
	b.linearDamping = math.Max(linear, 0)
	b.angularDamping = math.Max(angular, 0)
}

func (b *Body) SetGravityScale(s float64) { b.gravityScale = s }

// updateMassProperties distributes the body mass over its shapes by volume
// and accumulates the inertia tensor about the body origin.
func (b *Body) updateMassProperties() {
	b.radius = 0
	for _, p := range b.shapes {
		r := p.local.Position.Len() + geom.BoundingRadius(p.shape)
		b.radius = math.Max(b.radius, r)
	}

	if b.typ != Dynamic {
		b.invMass = 0
		b.invInertiaLocal = mgl64.Mat3{}
		b.invInertiaWorld = mgl64.Mat3{}
		return
	}
	b.invMass = 1 / b.mass

	total := 0.0
	for _, p := range b.shapes {
		total += p.shape.Volume()
	}
	if total <= 0 {
		b.invInertiaLocal = mgl64.Mat3{}
		b.updateWorldInertia()
		return
	}

	var inertia mgl64.Mat3
	for _, p := range b.shapes {
		m := b.mass * p.shape.Volume() / total
		rot := p.local.Rotation()
		principal := mgl64.Diag3(p.shape.Inertia(m))
		inertia = inertia.Add(rot.Mul3(principal).Mul3(rot.Transpose()))

		c := p.local.Position
		shift := mgl64.Ident3().Mul(c.Dot(c)).Sub(outer(c, c)).Mul(m)
		inertia = inertia.Add(shift)
	}

	if math.Abs(inertia.Det()) < 1e-18 {
		b.invInertiaLocal = mgl64.Mat3{}
	} else {
		b.invInertiaLocal = inertia.Inv()
	}
	b.updateWorldInertia()
}

func (b *Body) updateWorldInertia() {
	r := b.transform.Rotation()
	b.invInertiaWorld = r.Mul3(b.invInertiaLocal).Mul3(r.Transpose())
}

func outer(a, c mgl64.Vec3) mgl64.Mat3 {
	var m mgl64.Mat3
	for col := 0; col < 3; col++ {
		for row := 0; row < 3; row++ {
			m[col*3+row] = a[row] * c[col]
		}
	}
	return m
}
