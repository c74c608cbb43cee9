package renderer

import "errors"

var (
	ErrNoTracers        = errors.New("renderer: no tracers attached")
	ErrSceneNotDefined  = errors.New("renderer: no scene defined")
	ErrCameraNotDefined = errors.New("renderer: scene has no camera")
	ErrInvalidFrameSize = errors.New("renderer: frame dimensions must be positive")

	// Returned (wrapped with the context error) when a frame render is
	// cancelled before all blocks complete.
	ErrInterrupted = errors.New("renderer: frame render interrupted")
)
