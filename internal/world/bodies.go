package world

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/rigidsim/internal/body"
	"github.com/san-kum/rigidsim/internal/geom"
)

// get resolves a handle, wrapping failures with the operation name.
func (w *World) get(op string, h body.Handle) (*body.Body, error) {
	b, err := w.registry.Get(h)
	if err != nil {
		w.logger.Debug("world: bad handle", "op", op, "handle", h, "err", err)
		return nil, &body.HandleError{Op: op, Handle: h, Wrapped: err}
	}
	return b, nil
}

// CreateBody adds a body without shapes.
func (w *World) CreateBody(def BodyDef) (body.Handle, error) {
	t := def.transform()
	if !t.IsValid() {
		return body.Handle{}, ErrInvalidTransform
	}
	b := w.registry.Create(def.Type, t)
	if def.Mass != 0 {
		if err := b.SetMass(def.Mass); err != nil {
			_ = w.registry.Destroy(b.Handle())
			return body.Handle{}, fmt.Errorf("create body: %w", err)
		}
	}
	b.SetLinearVelocity(def.LinearVelocity)
	b.SetAngularVelocity(def.AngularVelocity)
	b.SetMaterial(def.Material)
	if def.GravityScale != 0 {
		b.SetGravityScale(def.GravityScale)
	}
	b.SetDamping(w.cfg.LinearDamping, w.cfg.AngularDamping)
	b.SetAllowSleep(!def.DisableSleep)
	b.SetActive(!def.Inactive)
	b.UserData = def.UserData
	w.logger.Debug("world: body created", "handle", b.Handle(), "type", def.Type)
	return b.Handle(), nil
}

// DestroyBody removes a body with its shapes, manifolds and joints. Bodies
// it touched are woken.
func (w *World) DestroyBody(h body.Handle) error {
	b, err := w.get("destroy body", h)
	if err != nil {
		return err
	}
	w.wakeTouching(b)
	kept := w.joints[:0]
	for _, j := range w.joints {
		ja, jb := j.Bodies()
		if ja == b || jb == b {
			w.forgetJoint(j)
			continue
		}
		kept = append(kept, j)
	}
	clear(w.joints[len(kept):])
	w.joints = kept

	w.detachProxies(b)
	w.contacts.RemoveBody(b)
	return w.registry.Destroy(h)
}

// Body returns the body behind h for reading and direct mutation of
// properties that need no pipeline upkeep.
func (w *World) Body(h body.Handle) (*body.Body, error) {
	return w.get("body", h)
}

func (w *World) BodyCount() int { return w.registry.Len() }

// Bodies returns every body in creation slot order.
func (w *World) Bodies() []*body.Body {
	return w.registry.Bodies(nil)
}

// AppendBodies appends the live bodies to dst.
func (w *World) AppendBodies(dst []*body.Body) []*body.Body {
	return w.registry.Bodies(dst)
}

// AddShape attaches s to the body at the local transform and enters it in
// the broad phase.
func (w *World) AddShape(h body.Handle, s geom.Shape, local geom.Transform) (*body.ProxyShape, error) {
	b, err := w.get("add shape", h)
	if err != nil {
		return nil, err
	}
	if !local.IsValid() {
		return nil, ErrInvalidTransform
	}
	p, err := w.registry.AddShape(b, s, local)
	if err != nil {
		return nil, fmt.Errorf("add shape: %w", err)
	}
	if b.IsActive() {
		w.attachProxy(p)
	}
	w.wake(b)
	return p, nil
}

// RemoveShape detaches the shape with the given body-local index.
func (w *World) RemoveShape(h body.Handle, index int) error {
	b, err := w.get("remove shape", h)
	if err != nil {
		return err
	}
	for _, p := range b.Shapes() {
		if p.Index() != index {
			continue
		}
		w.wakeTouching(b)
		if p.TreeID() != body.NoTreeNode {
			w.broad.RemoveProxy(p.TreeID())
			p.SetTreeID(body.NoTreeNode)
		}
		w.contacts.RemoveProxy(p.ID())
		return w.registry.RemoveShape(p)
	}
	return fmt.Errorf("remove shape %d: %w", index, ErrUnknownShape)
}

// SetTransform teleports a body and wakes it together with what it touched.
func (w *World) SetTransform(h body.Handle, t geom.Transform) error {
	b, err := w.get("set transform", h)
	if err != nil {
		return err
	}
	if !t.IsValid() {
		return ErrInvalidTransform
	}
	from := b.Position()
	b.SetTransform(t)
	disp := b.Position().Sub(from)
	for _, p := range b.Shapes() {
		if p.TreeID() != body.NoTreeNode {
			w.broad.MoveProxy(p.TreeID(), p.AABB(), disp)
			w.broad.TouchProxy(p.TreeID())
		}
	}
	w.wakeTouching(b)
	return nil
}

func (w *World) SetLinearVelocity(h body.Handle, v mgl64.Vec3) error {
	b, err := w.get("set linear velocity", h)
	if err != nil {
		return err
	}
	b.SetLinearVelocity(v)
	if v.LenSqr() > 0 {
		w.wake(b)
	}
	return nil
}

func (w *World) SetAngularVelocity(h body.Handle, v mgl64.Vec3) error {
	b, err := w.get("set angular velocity", h)
	if err != nil {
		return err
	}
	b.SetAngularVelocity(v)
	if v.LenSqr() > 0 {
		w.wake(b)
	}
	return nil
}

// ApplyForce accumulates a force at the centre of mass until the end of
// the next step.
func (w *World) ApplyForce(h body.Handle, f mgl64.Vec3) error {
	b, err := w.get("apply force", h)
	if err != nil {
		return err
	}
	w.wake(b)
	b.ApplyForce(f)
	return nil
}

func (w *World) ApplyForceAtPoint(h body.Handle, f, p mgl64.Vec3) error {
	b, err := w.get("apply force", h)
	if err != nil {
		return err
	}
	w.wake(b)
	b.ApplyForceAtPoint(f, p)
	return nil
}

func (w *World) ApplyTorque(h body.Handle, t mgl64.Vec3) error {
	b, err := w.get("apply torque", h)
	if err != nil {
		return err
	}
	w.wake(b)
	b.ApplyTorque(t)
	return nil
}

// ApplyImpulse changes velocity at once, as if j acted at world point p.
func (w *World) ApplyImpulse(h body.Handle, j, p mgl64.Vec3) error {
	b, err := w.get("apply impulse", h)
	if err != nil {
		return err
	}
	w.wake(b)
	b.ApplyImpulse(j, p)
	return nil
}

// SetType changes the body type. Pairs are re-filtered on the next step.
func (w *World) SetType(h body.Handle, t body.Type) error {
	b, err := w.get("set type", h)
	if err != nil {
		return err
	}
	if b.Type() == t {
		return nil
	}
	w.wakeTouching(b)
	b.SetType(t)
	w.touchProxies(b)
	w.wake(b)
	return nil
}

// SetActive adds or removes the body from simulation. Inactive bodies keep
// their state but leave the broad phase and lose their manifolds.
func (w *World) SetActive(h body.Handle, active bool) error {
	b, err := w.get("set active", h)
	if err != nil {
		return err
	}
	if b.IsActive() == active {
		return nil
	}
	if active {
		b.SetActive(true)
		for _, p := range b.Shapes() {
			w.attachProxy(p)
		}
		w.wake(b)
		return nil
	}
	w.wakeTouching(b)
	w.detachProxies(b)
	w.contacts.RemoveBody(b)
	b.SetActive(false)
	return nil
}

func (w *World) SetMass(h body.Handle, m float64) error {
	b, err := w.get("set mass", h)
	if err != nil {
		return err
	}
	if err := b.SetMass(m); err != nil {
		return fmt.Errorf("set mass %s: %w", h, err)
	}
	w.wake(b)
	return nil
}

// SetGravityScale scales gravity for one body; zero switches it off.
func (w *World) SetGravityScale(h body.Handle, s float64) error {
	b, err := w.get("set gravity scale", h)
	if err != nil {
		return err
	}
	b.SetGravityScale(s)
	w.wake(b)
	return nil
}

func (w *World) SetMaterial(h body.Handle, m body.Material) error {
	b, err := w.get("set material", h)
	if err != nil {
		return err
	}
	b.SetMaterial(m)
	return nil
}

// SetAllowSleep enables or forbids sleeping; forbidding wakes the body.
func (w *World) SetAllowSleep(h body.Handle, allow bool) error {
	b, err := w.get("set allow sleep", h)
	if err != nil {
		return err
	}
	b.SetAllowSleep(allow)
	return nil
}

func (w *World) Wake(h body.Handle) error {
	b, err := w.get("wake", h)
	if err != nil {
		return err
	}
	w.wake(b)
	return nil
}

// Sleep puts a body to sleep at once. It wakes again on the next step if
// an awake body touches it.
func (w *World) Sleep(h body.Handle) error {
	b, err := w.get("sleep", h)
	if err != nil {
		return err
	}
	b.SetSleeping(true)
	return nil
}

func (w *World) IsSleeping(h body.Handle) (bool, error) {
	b, err := w.get("is sleeping", h)
	if err != nil {
		return false, err
	}
	return b.IsSleeping(), nil
}

func (w *World) attachProxy(p *body.ProxyShape) {
	if p.TreeID() != body.NoTreeNode {
		return
	}
	p.SetTreeID(w.broad.AddProxy(p.AABB(), int(p.ID())))
}

func (w *World) detachProxies(b *body.Body) {
	for _, p := range b.Shapes() {
		if p.TreeID() != body.NoTreeNode {
			w.broad.RemoveProxy(p.TreeID())
			p.SetTreeID(body.NoTreeNode)
		}
	}
}

func (w *World) touchProxies(b *body.Body) {
	for _, p := range b.Shapes() {
		if p.TreeID() != body.NoTreeNode {
			w.broad.TouchProxy(p.TreeID())
		}
	}
}
