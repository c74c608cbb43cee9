package tracer

import (
	"context"
	"time"
)

type ChangeType uint8

const (
	SetScene ChangeType = iota
	SetCamera
)

// Frame buffers shared by all tracers rendering a frame. Each tracer only
// writes the rows of the blocks assigned to it. Rows are stored top-down.
type FrameBuffers struct {
	// Premultiplied RGBA color.
	Color []float32

	// Distance from the camera and mist intensity per pixel.
	Depth []float32
	Mist  []float32
}

// Allocate frame buffers for the given frame dimensions.
func NewFrameBuffers(frameW, frameH uint32) *FrameBuffers {
	pixels := int(frameW * frameH)
	return &FrameBuffers{
		Color: make([]float32, pixels*4),
		Depth: make([]float32, pixels),
		Mist:  make([]float32, pixels),
	}
}

// A unit of work that is processed by a tracer.
type BlockRequest struct {
	// The context of the frame render; tracers abort blocks when it is done.
	Ctx context.Context

	// Block start row and height.
	BlockY uint32
	BlockH uint32

	// The number of emitted rays per traced pixel.
	SamplesPerPixel uint32

	// A random seed value for the tracer's sample jitter.
	Seed uint32

	// A channel to signal on block completion with the number of completed rows.
	DoneChan chan<- uint32

	// A channel to signal if an error occurs.
	ErrChan chan<- error
}

// Tracer statistics.
type Stats struct {
	// The rendered block height
	BlockH uint32

	// The time for rendering the last block.
	RenderTime time.Duration

	// The time for applying pending changes before the last block.
	UpdateTime time.Duration
}

type Tracer interface {
	// Get tracer id.
	Id() string

	// Shutdown and cleanup tracer.
	Close()

	// Get the tracers computation speed estimate compared to a
	// baseline (single cpu core) implementation.
	Speed() uint32

	// Setup the tracer.
	Setup(frameW, frameH uint32, buffers *FrameBuffers) error

	// Enqueue block request.
	Enqueue(BlockRequest)

	// Append a change to the tracer's update buffer. Changes are applied
	// before processing the next block request.
	Update(ChangeType, interface{})

	// Retrieve last frame statistics.
	Stats() *Stats
}
