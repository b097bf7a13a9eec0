// Package world drives a rigid-body simulation one fixed step at a time.
//
// A [World] owns the bodies and their shape proxies and runs the collision
// and constraint pipeline on every call to [World.Step]:
//
//   - broad phase: a dynamic AABB tree reports candidate shape pairs
//   - narrow phase: exact contacts per pair (closed form, SAT, GJK/EPA)
//   - contact manager: persistent manifolds carrying warm-start impulses
//   - islands: awake dynamic bodies grouped by contacts and joints
//   - solver: sequential impulses, integration, position correction
//   - sleep: islands at rest for long enough stop being simulated
//
// # Example
//
//	w, _ := world.New(world.DefaultConfig())
//	floor, _ := w.CreateBody(world.DefaultBodyDef(body.Static))
//	box, _ := geom.NewBox(10, 0.5, 10)
//	w.AddShape(floor, box, geom.Translation(0, -0.5, 0))
//	for i := 0; i < 60; i++ {
//		w.Step(1.0 / 60)
//	}
//
// # Thread Safety
//
// World is NOT thread-safe. Islands are solved on worker goroutines when
// [Config.Workers] is above one, but every exported method must be called
// from a single goroutine. Contact listeners and observers run on that
// goroutine, synchronously within Step.
package world
