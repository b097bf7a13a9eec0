package world

import "errors"

// Domain errors for world operations. Handle failures are reported as
// *body.HandleError wrapping body.ErrInvalidHandle or body.ErrStaleHandle.
var (
	// ErrInvalidTimeStep indicates a non-positive or non-finite step.
	ErrInvalidTimeStep = errors.New("world: time step must be positive and finite")

	// ErrInvalidConfig indicates a configuration value outside its range.
	ErrInvalidConfig = errors.New("world: invalid configuration")

	// ErrJointBodies indicates a joint between a body and itself or between
	// two bodies that cannot move.
	ErrJointBodies = errors.New("world: joint needs two distinct bodies, one of them dynamic")

	// ErrUnknownJoint indicates a joint not owned by the world.
	ErrUnknownJoint = errors.New("world: unknown joint")

	// ErrUnknownShape indicates a shape index the body does not have.
	ErrUnknownShape = errors.New("world: unknown shape index")

	// ErrInvalidTransform indicates a transform with NaN or Inf components.
	ErrInvalidTransform = errors.New("world: transform is not finite")
)
