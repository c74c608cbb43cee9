package batch

import (
	"context"

	"github.com/achilleasa/polaris-bake/compositor"
)

// A renderable scene object. Implementations must be comparable so that
// objects can be used as map keys and compared against each other.
type Object interface {
	Name() string
	HideRender() bool
	SetHideRender(bool)
}

// A named group of objects.
type Collection interface {
	Name() string
	Objects() []Object
}

// The Host interface exposes the scene capabilities required for batch
// rendering objects.
type Host interface {
	// Get the path of the file the scene was loaded from. The second
	// return value is false if the scene has not been saved to disk.
	FilePath() (string, bool)

	// Get the scene collections.
	Collections() []Collection

	// Get the inclusive frame range.
	FrameRange() (start, end int)

	// Set the current frame.
	SetFrame(frame int) error

	// Enable the mist pass for the named view layer.
	EnableMistPass(viewLayer string) error

	// Access the compositor node tree and toggle whether rendering runs it.
	NodeTree() *compositor.NodeTree
	UseNodes(enabled bool)

	// Render the current frame. If writeStill is set the render result is
	// also written to the scene output path. The call blocks until all
	// outputs have been written and returns the list of written files.
	Render(ctx context.Context, writeStill bool) ([]string, error)
}
