package export

import (
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/rigidsim/internal/sim"
	"github.com/san-kum/rigidsim/internal/viz"
	"github.com/san-kum/rigidsim/internal/world"
)

const svgHeader = `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`

// Plane selects the two world axes of a trajectory plot.
type Plane int

const (
	// PlaneXY is the side view: x to the right, y up.
	PlaneXY Plane = iota
	// PlaneXZ is the top view.
	PlaneXZ
	// PlaneZY is the side view along x.
	PlaneZY
)

func ParsePlane(s string) (Plane, error) {
	switch s {
	case "xy", "":
		return PlaneXY, nil
	case "xz":
		return PlaneXZ, nil
	case "zy":
		return PlaneZY, nil
	}
	return 0, fmt.Errorf("export: unknown plane %q (want xy, xz or zy)", s)
}

func (p Plane) axes() (int, int) {
	switch p {
	case PlaneXZ:
		return 0, 2
	case PlaneZY:
		return 2, 1
	default:
		return 0, 1
	}
}

var palette = []string{"#00ff88", "#00ccff", "#ff00ff", "#ffcc00", "#ff4444", "#88ff88", "#ffffff"}

// CanvasToSVG converts a Braille canvas to SVG format
func CanvasToSVG(canvas *viz.Canvas, scale float64) string {
	if canvas == nil {
		return ""
	}

	pw, ph := canvas.Pixels()
	width := float64(pw) * scale
	height := float64(ph) * scale

	var sb strings.Builder
	fmt.Fprintf(&sb, svgHeader, width, height, width, height)
	sb.WriteString("<g fill=\"#00ff00\">\n")

	dotRadius := scale * 0.4
	for y := 0; y < ph; y++ {
		for x := 0; x < pw; x++ {
			if !canvas.IsSet(x, y) {
				continue
			}
			cx := float64(x)*scale + scale/2
			cy := float64(y)*scale + scale/2
			fmt.Fprintf(&sb, "<circle cx=\"%.1f\" cy=\"%.1f\" r=\"%.1f\"/>\n", cx, cy, dotRadius)
		}
	}

	sb.WriteString("</g>\n</svg>")
	return sb.String()
}

// FrameToSVG renders the current pose of every body in w as seen by cam.
func FrameToSVG(w *world.World, cam *viz.Camera, cols, rows int, scale float64) string {
	canvas := viz.NewCanvas(cols, rows)
	wire := viz.NewWireframe()
	for _, b := range w.Bodies() {
		wire.AddBody(b)
	}
	for _, j := range w.Joints() {
		a, b := j.WorldAnchors()
		wire.AddEdge(a, b)
	}
	viz.Render3D(canvas, wire, cam)
	return CanvasToSVG(canvas, scale)
}

// TrajectoriesToSVG draws one path per tracked body, projected onto plane,
// on a shared scale.
func TrajectoriesToSVG(states []sim.State, plane Plane, width, height int) string {
	if len(states) < 2 || states[0].Bodies() == 0 {
		return ""
	}
	ax, ay := plane.axes()

	minX, maxX := math.Inf(1), math.Inf(-1)
	minY, maxY := math.Inf(1), math.Inf(-1)
	for _, s := range states {
		for i := 0; i < s.Bodies(); i++ {
			p, _ := s.Body(i)
			minX, maxX = math.Min(minX, p[ax]), math.Max(maxX, p[ax])
			minY, maxY = math.Min(minY, p[ay]), math.Max(maxY, p[ay])
		}
	}

	// Add padding
	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	maxX += rangeX * 0.1
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeX = maxX - minX
	rangeY = maxY - minY

	var sb strings.Builder
	fmt.Fprintf(&sb, svgHeader, float64(width), float64(height), float64(width), float64(height))

	for i := 0; i < states[0].Bodies(); i++ {
		fmt.Fprintf(&sb, `<path fill="none" stroke="%s" stroke-width="1.5" d="M`, palette[i%len(palette)])
		for k, s := range states {
			if i >= s.Bodies() {
				break
			}
			p, _ := s.Body(i)
			x := (p[ax] - minX) / rangeX * float64(width)
			y := float64(height) - (p[ay]-minY)/rangeY*float64(height)
			if k == 0 {
				fmt.Fprintf(&sb, "%.1f,%.1f", x, y)
			} else {
				fmt.Fprintf(&sb, " L%.1f,%.1f", x, y)
			}
		}
		sb.WriteString("\"/>\n")
	}

	sb.WriteString("</svg>")
	return sb.String()
}
