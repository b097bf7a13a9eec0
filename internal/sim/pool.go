package sim

import "sync"

// StatePool recycles snapshot buffers by tracked-body count. It is safe for
// concurrent use, so ensemble members can share one.
type StatePool struct {
	mu     sync.Mutex
	byBody map[int]*sync.Pool
}

func NewStatePool() *StatePool {
	return &StatePool{byBody: make(map[int]*sync.Pool)}
}

// states backs every simulator unless SetStatePool says otherwise.
var states = NewStatePool()

func (p *StatePool) forBodies(n int) *sync.Pool {
	p.mu.Lock()
	defer p.mu.Unlock()
	sp, ok := p.byBody[n]
	if !ok {
		sp = &sync.Pool{New: func() any { return make(State, n*BodyStride) }}
		p.byBody[n] = sp
	}
	return sp
}

// Get returns a zeroed state holding n bodies.
func (p *StatePool) Get(n int) State {
	return p.forBodies(n).Get().(State)
}

// Put clears s and keeps it for reuse. Empty buffers and buffers that do
// not hold whole bodies are dropped.
func (p *StatePool) Put(s State) {
	if len(s) == 0 || len(s)%BodyStride != 0 {
		return
	}
	clear(s)
	p.forBodies(s.Bodies()).Put(s)
}

// Copy returns a pooled copy of src.
func (p *StatePool) Copy(src State) State {
	dst := p.Get(src.Bodies())
	copy(dst, src)
	return dst
}
