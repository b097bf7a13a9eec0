package world

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/rigidsim/internal/body"
	"github.com/san-kum/rigidsim/internal/geom"
)

// benchPyramid builds a box pyramid with the given base on a static floor.
func benchPyramid(b *testing.B, base, workers int) *World {
	cfg := DefaultConfig()
	cfg.Workers = workers
	cfg.SleepingEnabled = false
	w, err := New(cfg)
	if err != nil {
		b.Fatal(err)
	}

	spawn := func(typ body.Type, pos mgl64.Vec3, s geom.Shape) {
		def := DefaultBodyDef(typ)
		def.Position = pos
		h, err := w.CreateBody(def)
		if err != nil {
			b.Fatal(err)
		}
		if _, err := w.AddShape(h, s, geom.Identity()); err != nil {
			b.Fatal(err)
		}
	}

	floor, _ := geom.NewBox(50, 0.5, 50)
	spawn(body.Static, mgl64.Vec3{0, -0.5, 0}, floor)
	box := cube(0.5)
	for row := 0; row < base; row++ {
		for i := 0; i < base-row; i++ {
			x := float64(i) - float64(base-row-1)/2
			spawn(body.Dynamic, mgl64.Vec3{x * 1.05, 0.5 + float64(row)*1.01, 0}, box)
		}
	}
	return w
}

func BenchmarkStep_Pyramid10(b *testing.B) {
	w := benchPyramid(b, 10, 1)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		w.Step(dt)
	}
}

func BenchmarkStep_Pyramid10_Workers4(b *testing.B) {
	w := benchPyramid(b, 10, 4)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		w.Step(dt)
	}
}
