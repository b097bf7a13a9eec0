package body

import (
	"github.com/san-kum/rigidsim/internal/geom"
)

type slot struct {
	gen  uint32
	body *Body
}

// Registry owns bodies and shape proxies in generation-checked slots.
// Iteration order is slot order, which is stable for a given sequence of
// creations and destructions.
type Registry struct {
	slots   []slot
	free    []uint32
	count   int
	proxies []*ProxyShape
	freeIDs []ProxyID
}

func NewRegistry() *Registry {
	return &Registry{}
}

func (r *Registry) Create(typ Type, t geom.Transform) *Body {
	var idx uint32
	if n := len(r.free); n > 0 {
		idx = r.free[n-1]
		r.free = r.free[:n-1]
	} else {
		idx = uint32(len(r.slots))
		r.slots = append(r.slots, slot{})
	}
	s := &r.slots[idx]
	s.gen++
	if s.gen == 0 {
		s.gen = 1
	}
	b := newBody(Handle{index: idx, gen: s.gen}, typ, t)
	s.body = b
	r.count++
	return b
}

func (r *Registry) Get(h Handle) (*Body, error) {
	if h.gen == 0 || int(h.index) >= len(r.slots) {
		return nil, ErrInvalidHandle
	}
	s := r.slots[h.index]
	if s.gen != h.gen || s.body == nil {
		return nil, ErrStaleHandle
	}
	return s.body, nil
}

// Destroy frees the slot and every proxy of the body. The caller must have
// already detached the proxies from the broad phase.
func (r *Registry) Destroy(h Handle) error {
	b, err := r.Get(h)
	if err != nil {
		return err
	}
	for _, p := range b.shapes {
		r.releaseProxy(p)
	}
	b.shapes = nil
	s := &r.slots[h.index]
	s.body = nil
	s.gen++
	if s.gen == 0 {
		s.gen = 1
	}
	r.free = append(r.free, h.index)
	r.count--
	return nil
}

func (r *Registry) Len() int { return r.count }

// Each visits live bodies in slot order until fn returns false.
func (r *Registry) Each(fn func(*Body) bool) {
	for i := range r.slots {
		if b := r.slots[i].body; b != nil {
			if !fn(b) {
				return
			}
		}
	}
}

// Bodies appends live bodies in slot order to dst.
func (r *Registry) Bodies(dst []*Body) []*Body {
	for i := range r.slots {
		if b := r.slots[i].body; b != nil {
			dst = append(dst, b)
		}
	}
	return dst
}

// AddShape attaches s to b at local and recomputes the body's mass
// properties. The proxy is not yet in the broad phase.
func (r *Registry) AddShape(b *Body, s geom.Shape, local geom.Transform) (*ProxyShape, error) {
	if s == nil {
		return nil, ErrNoShape
	}
	var id ProxyID
	if n := len(r.freeIDs); n > 0 {
		id = r.freeIDs[n-1]
		r.freeIDs = r.freeIDs[:n-1]
	} else {
		id = ProxyID(len(r.proxies))
		r.proxies = append(r.proxies, nil)
	}
	p := &ProxyShape{
		id:     id,
		body:   b,
		index:  b.nextShape,
		shape:  s,
		local:  geom.NewTransform(local.Position, local.Orientation),
		treeID: NoTreeNode,
	}
	p.refresh()
	b.nextShape++
	b.shapes = append(b.shapes, p)
	r.proxies[id] = p
	b.updateMassProperties()
	return p, nil
}

// RemoveShape detaches the proxy from its body.
func (r *Registry) RemoveShape(p *ProxyShape) error {
	if p == nil || int(p.id) >= len(r.proxies) || r.proxies[p.id] != p {
		return ErrInvalidProxy
	}
	b := p.body
	for i, q := range b.shapes {
		if q == p {
			b.shapes = append(b.shapes[:i], b.shapes[i+1:]...)
			break
		}
	}
	r.releaseProxy(p)
	b.updateMassProperties()
	return nil
}

func (r *Registry) Proxy(id ProxyID) (*ProxyShape, error) {
	if id < 0 || int(id) >= len(r.proxies) || r.proxies[id] == nil {
		return nil, ErrInvalidProxy
	}
	return r.proxies[id], nil
}

func (r *Registry) releaseProxy(p *ProxyShape) {
	r.proxies[p.id] = nil
	r.freeIDs = append(r.freeIDs, p.id)
}
