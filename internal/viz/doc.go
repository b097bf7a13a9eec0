// Package viz provides terminal visualization for rigid-body scenes.
//
// The package implements an interactive TUI using the Bubble Tea framework:
//
//   - [Model]: live view that steps a scene and draws it as a wireframe
//   - [Canvas]: Braille-based pixel canvas for high-fidelity rendering
//   - [Camera] and [Wireframe]: perspective projection of body outlines
//   - [NewInteractiveApp]: scenario and preset picker that opens the live view
//
// # Key Bindings
//
//	Space - Pause/Resume simulation
//	S     - Single step while paused
//	R     - Rebuild the scene
//	[ ]   - Halve/double the steps per frame
//	F     - Frame the moving bodies
//	x y z - Rotate the camera (shifted keys rotate back)
//	+ -   - Zoom
//	T     - Cycle color themes
//	?     - Show help overlay
package viz
