package world_test

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/rigidsim/internal/body"
	"github.com/san-kum/rigidsim/internal/geom"
	"github.com/san-kum/rigidsim/internal/world"
)

const dt = 1.0 / 60

func newWorld(mutate func(*world.Config)) *world.World {
	cfg := world.DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	w, err := world.New(cfg)
	Expect(err).NotTo(HaveOccurred())
	return w
}

func spawn(w *world.World, typ body.Type, pos mgl64.Vec3, s geom.Shape, mat body.Material) body.Handle {
	def := world.DefaultBodyDef(typ)
	def.Position = pos
	def.Material = mat
	h, err := w.CreateBody(def)
	Expect(err).NotTo(HaveOccurred())
	_, err = w.AddShape(h, s, geom.Identity())
	Expect(err).NotTo(HaveOccurred())
	return h
}

func box(hx, hy, hz float64) geom.Shape {
	s, err := geom.NewBox(hx, hy, hz)
	Expect(err).NotTo(HaveOccurred())
	return s
}

func ball(r float64) geom.Shape {
	s, err := geom.NewSphere(r)
	Expect(err).NotTo(HaveOccurred())
	return s
}

func floorAt(w *world.World, x float64) body.Handle {
	return spawn(w, body.Static, mgl64.Vec3{x, -0.5, 0}, box(5, 0.5, 5), body.DefaultMaterial())
}

func bodyOf(w *world.World, h body.Handle) *body.Body {
	b, err := w.Body(h)
	Expect(err).NotTo(HaveOccurred())
	return b
}

func run(w *world.World, steps int) {
	for i := 0; i < steps; i++ {
		w.Step(dt)
	}
}

// cluster drops three offset spheres onto a floor centred at x.
func cluster(w *world.World, x float64) []body.Handle {
	floorAt(w, x)
	var out []body.Handle
	for i := 0; i < 3; i++ {
		pos := mgl64.Vec3{x + 0.1*float64(i), 0.6 + 1.05*float64(i), 0.05 * float64(i)}
		out = append(out, spawn(w, body.Dynamic, pos, ball(0.5), body.DefaultMaterial()))
	}
	return out
}

var _ = Describe("World", func() {
	Describe("a box dropped onto the floor", func() {
		var (
			w   *world.World
			cub body.Handle
		)

		BeforeEach(func() {
			w = newWorld(nil)
			floorAt(w, 0)
			cub = spawn(w, body.Dynamic, mgl64.Vec3{0, 5, 0}, box(0.5, 0.5, 0.5),
				body.Material{Friction: 0.5, Restitution: 0.2})
		})

		It("bounces once and comes to rest", func() {
			b := bodyOf(w, cub)
			impacted, bounced := false, false
			for i := 0; i < 300; i++ {
				w.Step(dt)
				vy := b.LinearVelocity().Y()
				if vy < -5 {
					impacted = true
				}
				if impacted && vy > 0.5 {
					bounced = true
				}
			}
			Expect(bounced).To(BeTrue())
			Expect(b.LinearVelocity().Len()).To(BeNumerically("<", 0.05))
			Expect(b.Position().Y()).To(BeNumerically("~", 0.5, 0.02))
		})

		It("never reports a deep penetration once settled", func() {
			run(w, 120)
			for i := 0; i < 60; i++ {
				w.Step(dt)
				Expect(w.Stats().MaxPenetration).To(BeNumerically("<", 0.02))
			}
		})
	})

	Describe("a box resting on the floor", func() {
		It("gains no energy and falls asleep", func() {
			w := newWorld(nil)
			floorAt(w, 0)
			h := spawn(w, body.Dynamic, mgl64.Vec3{0, 0.5, 0}, box(0.5, 0.5, 0.5), body.DefaultMaterial())
			b := bodyOf(w, h)

			maxEnergy := 0.0
			for i := 0; i < 120; i++ {
				w.Step(dt)
				maxEnergy = math.Max(maxEnergy, b.KineticEnergy())
			}
			Expect(maxEnergy).To(BeNumerically("<", 1e-3))
			Expect(b.IsSleeping()).To(BeTrue())
			Expect(w.Stats().Sleeping).To(Equal(1))

			rest := b.Position()
			run(w, 60)
			Expect(b.Position()).To(Equal(rest))
		})

		It("keeps all four corners in the manifold", func() {
			w := newWorld(func(c *world.Config) { c.SleepingEnabled = false })
			floorAt(w, 0)
			spawn(w, body.Dynamic, mgl64.Vec3{0, 0.5, 0}, box(0.5, 0.5, 0.5), body.DefaultMaterial())
			for i := 0; i < 120; i++ {
				w.Step(dt)
				cs := w.Contacts()
				Expect(cs).To(HaveLen(1))
				Expect(cs[0].Points).To(HaveLen(4), "step %d", i)
			}
		})
	})

	Describe("warm starting", func() {
		stack := func(warm bool) (*world.World, body.Handle) {
			w := newWorld(func(c *world.Config) {
				c.WarmStarting = warm
				c.VelocityTolerance = 1e-4
				c.SleepingEnabled = false
			})
			floorAt(w, 0)
			var top body.Handle
			for i := 0; i < 3; i++ {
				top = spawn(w, body.Dynamic, mgl64.Vec3{0, 0.5 + float64(i), 0}, box(0.5, 0.5, 0.5), body.DefaultMaterial())
			}
			return w, top
		}

		It("reaches the same rest state in fewer iterations", func() {
			warm, warmTop := stack(true)
			cold, coldTop := stack(false)
			run(warm, 180)
			run(cold, 180)

			warmIters, coldIters := 0, 0
			for i := 0; i < 60; i++ {
				warm.Step(dt)
				cold.Step(dt)
				warmIters += warm.Stats().VelocityIterations
				coldIters += cold.Stats().VelocityIterations
			}
			Expect(warmIters).To(BeNumerically("<", coldIters))

			// cold solves settle each contact near the slop; warm ones sit flush
			tol := 4*cold.Config().LinearSlop + 0.01
			wp, cp := bodyOf(warm, warmTop).Position(), bodyOf(cold, coldTop).Position()
			Expect(wp.Y()).To(BeNumerically("~", cp.Y(), tol))
			Expect(wp.Y()).To(BeNumerically("~", 2.5, tol))
			Expect(cp.Y()).To(BeNumerically("~", 2.5, tol))
			for _, p := range []mgl64.Vec3{wp, cp} {
				Expect(math.Abs(p.X())).To(BeNumerically("<", 0.01), "top drifted to %v", p)
				Expect(math.Abs(p.Z())).To(BeNumerically("<", 0.01), "top drifted to %v", p)
			}
		})
	})

	Describe("overlapping spheres without gravity", func() {
		It("are pushed apart", func() {
			w := newWorld(func(c *world.Config) { c.Gravity = mgl64.Vec3{} })
			a := spawn(w, body.Dynamic, mgl64.Vec3{0, 0, 0}, ball(0.5), body.DefaultMaterial())
			b := spawn(w, body.Dynamic, mgl64.Vec3{0.7, 0, 0}, ball(0.5), body.DefaultMaterial())
			run(w, 60)

			d := bodyOf(w, b).Position().Sub(bodyOf(w, a).Position()).Len()
			cfg := w.Config()
			Expect(d).To(BeNumerically(">=", 1-4*cfg.LinearSlop))
		})
	})

	Describe("a pile of spheres", func() {
		It("keeps every contact shallow", func() {
			w := newWorld(nil)
			floorAt(w, 0)
			for i := 0; i < 8; i++ {
				pos := mgl64.Vec3{0.3 * float64(i%3), 0.6 + 1.1*float64(i), 0.2 * float64(i%2)}
				spawn(w, body.Dynamic, pos, ball(0.5), body.DefaultMaterial())
			}
			run(w, 240)
			for _, c := range w.Contacts() {
				for _, p := range c.Points {
					Expect(p.Depth).To(BeNumerically("<", 0.03))
				}
			}
		})
	})

	Describe("separate islands", func() {
		It("evolve the same wherever they are", func() {
			w := newWorld(func(c *world.Config) { c.SleepingEnabled = false })
			near := cluster(w, 0)
			far := cluster(w, 1000)
			run(w, 120)

			for i := range near {
				pn := bodyOf(w, near[i]).Position()
				pf := bodyOf(w, far[i]).Position().Sub(mgl64.Vec3{1000, 0, 0})
				Expect(pn.ApproxEqualThreshold(pf, 1e-6)).To(BeTrue(), "body %d: %v vs %v", i, pn, pf)
			}
			Expect(w.Stats().Islands).To(BeNumerically(">=", 2))
		})

		It("solve identically on any number of workers", func() {
			build := func(workers int) (*world.World, []body.Handle) {
				w := newWorld(func(c *world.Config) { c.Workers = workers })
				var hs []body.Handle
				for i := 0; i < 6; i++ {
					hs = append(hs, cluster(w, 20*float64(i))...)
				}
				return w, hs
			}
			serial, hs := build(1)
			parallel, hp := build(4)
			run(serial, 150)
			run(parallel, 150)

			for i := range hs {
				Expect(bodyOf(parallel, hp[i]).Position()).To(Equal(bodyOf(serial, hs[i]).Position()))
				Expect(bodyOf(parallel, hp[i]).LinearVelocity()).To(Equal(bodyOf(serial, hs[i]).LinearVelocity()))
			}
			Expect(parallel.Stats().FellAsleep).To(Equal(serial.Stats().FellAsleep))
		})
	})

	Describe("a hanging chain", func() {
		It("keeps its links together", func() {
			w := newWorld(nil)
			anchor, err := w.CreateBody(world.DefaultBodyDef(body.Static))
			Expect(err).NotTo(HaveOccurred())
			Expect(w.SetTransform(anchor, geom.Translation(0, 10, 0))).To(Succeed())

			prev := anchor
			for i := 1; i <= 5; i++ {
				link := spawn(w, body.Dynamic, mgl64.Vec3{0.5 * float64(i), 10, 0}, ball(0.2), body.DefaultMaterial())
				_, err := w.CreateBallSocketJoint(prev, link, mgl64.Vec3{0.5*float64(i) - 0.25, 10, 0}, false)
				Expect(err).NotTo(HaveOccurred())
				prev = link
			}
			run(w, 300)

			Expect(w.Joints()).To(HaveLen(5))
			for _, j := range w.Joints() {
				Expect(j.Error()).To(BeNumerically("<", 0.05))
			}
			Expect(bodyOf(w, prev).Position().Y()).To(BeNumerically("<", 10))
		})
	})
})
