package renderer

import (
	"context"

	"github.com/achilleasa/polaris-bake/compositor"
)

type Renderer interface {
	// Render frame and return the produced passes indexed by view layer name.
	Render(ctx context.Context, frame int) (map[string]compositor.LayerPasses, error)

	// Shutdown renderer and any attached tracer.
	Close()

	// Get render statistics.
	Stats() FrameStats
}
