package body

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/rigidsim/internal/geom"
)

// ProxyID identifies a shape proxy across the whole world.
type ProxyID int32

// NoTreeNode marks a proxy that is not in the broad phase.
const NoTreeNode = -1

// ProxyShape attaches a shape to a body at a local transform and links it
// to its broad-phase node.
type ProxyShape struct {
	id     ProxyID
	body   *Body
	index  int
	shape  geom.Shape
	local  geom.Transform
	treeID int
	aabb   geom.AABB
}

func (p *ProxyShape) ID() ProxyID { return p.id }

func (p *ProxyShape) Body() *Body { return p.body }

// Index is the proxy's stable index within its body.
func (p *ProxyShape) Index() int { return p.index }

func (p *ProxyShape) Shape() geom.Shape { return p.shape }

func (p *ProxyShape) LocalTransform() geom.Transform { return p.local }

func (p *ProxyShape) WorldTransform() geom.Transform {
	return p.body.transform.Mul(p.local)
}

// AABB is the tight world-space bound of the shape at the body's current
// transform.
func (p *ProxyShape) AABB() geom.AABB { return p.aabb }

func (p *ProxyShape) refresh() {
	p.aabb = p.shape.LocalBounds().Transformed(p.WorldTransform())
}

func (p *ProxyShape) TreeID() int { return p.treeID }

func (p *ProxyShape) SetTreeID(id int) { p.treeID = id }

// BodyPoint maps a point in the shape frame to the body frame.
func (p *ProxyShape) BodyPoint(local mgl64.Vec3) mgl64.Vec3 {
	return p.local.Apply(local)
}
