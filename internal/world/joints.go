package world

import (
	"fmt"
	"slices"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/rigidsim/internal/body"
	"github.com/san-kum/rigidsim/internal/solver"
)

// CreateBallSocketJoint pins a and b together at a world anchor. Unless
// collideConnected is set, the two bodies stop colliding with each other.
func (w *World) CreateBallSocketJoint(a, b body.Handle, anchor mgl64.Vec3, collideConnected bool) (*solver.BallSocketJoint, error) {
	ba, err := w.get("create joint", a)
	if err != nil {
		return nil, err
	}
	bb, err := w.get("create joint", b)
	if err != nil {
		return nil, err
	}
	if ba == bb || (!ba.IsDynamic() && !bb.IsDynamic()) {
		return nil, fmt.Errorf("create joint %s-%s: %w", a, b, ErrJointBodies)
	}

	j := solver.NewBallSocketJoint(ba, bb, anchor, collideConnected)
	w.joints = append(w.joints, j)
	if !collideConnected {
		w.noCollide[makeBodyPair(a, b)]++
	}
	w.touchProxies(ba)
	w.touchProxies(bb)
	w.wake(ba)
	w.wake(bb)
	return j, nil
}

// DestroyJoint removes j and wakes the bodies it held.
func (w *World) DestroyJoint(j *solver.BallSocketJoint) error {
	for i, o := range w.joints {
		if o != j {
			continue
		}
		w.joints = slices.Delete(w.joints, i, i+1)
		w.forgetJoint(j)
		return nil
	}
	return ErrUnknownJoint
}

// Joints returns the joints in creation order.
func (w *World) Joints() []*solver.BallSocketJoint {
	return append([]*solver.BallSocketJoint(nil), w.joints...)
}

// forgetJoint drops the filtering and sleep effects of a removed joint.
func (w *World) forgetJoint(j *solver.BallSocketJoint) {
	ba, bb := j.Bodies()
	if !j.CollideConnected() {
		key := makeBodyPair(ba.Handle(), bb.Handle())
		if w.noCollide[key]--; w.noCollide[key] <= 0 {
			delete(w.noCollide, key)
		}
	}
	w.touchProxies(ba)
	w.touchProxies(bb)
	w.wake(ba)
	w.wake(bb)
}
