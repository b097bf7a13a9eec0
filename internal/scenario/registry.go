package scenario

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"

	"github.com/san-kum/rigidsim/internal/world"
)

var (
	ErrUnknownScenario = errors.New("scenario: unknown scenario")
	ErrInvalidParams   = errors.New("scenario: invalid parameters")
)

type entry struct {
	description string
	build       BuildFunc
}

type Registry struct {
	scenes map[string]entry
}

func NewRegistry() *Registry {
	r := &Registry{scenes: make(map[string]entry)}

	r.Register("drop-box", "one box dropped from a height onto the ground", dropBox)
	r.Register("stack", "a vertical stack of boxes", stack)
	r.Register("pyramid", "a pyramid of boxes", pyramid)
	r.Register("spheres", "spheres rained onto the ground", spheres)
	r.Register("clusters", "independent sphere piles, one island each", clusters)
	r.Register("chain", "spheres hanging from ball-and-socket joints", chain)
	r.Register("mixed", "capsules and convex hulls tumbling onto the ground", mixed)

	return r
}

// Register adds or replaces a scene builder.
func (r *Registry) Register(name, description string, fn BuildFunc) {
	r.scenes[name] = entry{description: description, build: fn}
}

func (r *Registry) Describe(name string) (string, error) {
	e, ok := r.scenes[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownScenario, name)
	}
	return e.description, nil
}

// List returns the scene names in order.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.scenes))
	for name := range r.scenes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build creates a world from cfg and populates it with the named scene.
// The random source is seeded from p.Seed.
func (r *Registry) Build(name string, cfg world.Config, p Params, opts ...world.Option) (*Scene, error) {
	e, ok := r.scenes[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownScenario, name)
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	w, err := world.New(cfg, opts...)
	if err != nil {
		return nil, err
	}
	tracked, err := e.build(w, p, rand.New(rand.NewSource(p.Seed)))
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", name, err)
	}
	return &Scene{Name: name, Params: p, World: w, Tracked: tracked}, nil
}
