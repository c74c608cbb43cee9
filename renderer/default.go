package renderer

import (
	"context"
	"fmt"
	"time"

	"github.com/achilleasa/polaris-bake/asset/scene"
	"github.com/achilleasa/polaris-bake/compositor"
	"github.com/achilleasa/polaris-bake/log"
	"github.com/achilleasa/polaris-bake/tracer"
)

// A renderer that splits frames into row blocks and traces them using a
// pool of tracers.
type defaultRenderer struct {
	logger log.Logger

	sc        *scene.Scene
	scheduler tracer.BlockScheduler
	tracers   []tracer.Tracer

	// Frame buffers shared by all tracers.
	buffers *tracer.FrameBuffers

	// Block heights assigned to each tracer for the last frame.
	blockAssignments []uint32

	options Options
	stats   FrameStats
}

// Create a new default renderer using the specified block scheduler and tracers.
func NewDefault(sc *scene.Scene, scheduler tracer.BlockScheduler, tracers []tracer.Tracer, opts Options) (Renderer, error) {
	if sc == nil {
		return nil, ErrSceneNotDefined
	}
	if sc.Camera == nil {
		return nil, ErrCameraNotDefined
	}
	if len(tracers) == 0 {
		return nil, ErrNoTracers
	}

	if opts.FrameW == 0 {
		opts.FrameW = sc.Render.ResolutionX
	}
	if opts.FrameH == 0 {
		opts.FrameH = sc.Render.ResolutionY
	}
	if opts.SamplesPerPixel == 0 {
		opts.SamplesPerPixel = sc.Render.Samples
	}
	if opts.FrameW == 0 || opts.FrameH == 0 {
		return nil, fmt.Errorf("%w; got %dx%d", ErrInvalidFrameSize, opts.FrameW, opts.FrameH)
	}

	r := &defaultRenderer{
		logger:    log.New("renderer"),
		sc:        sc,
		scheduler: scheduler,
		tracers:   tracers,
		buffers:   tracer.NewFrameBuffers(opts.FrameW, opts.FrameH),
		options:   opts,
	}

	for _, tr := range tracers {
		err := tr.Setup(opts.FrameW, opts.FrameH, r.buffers)
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("renderer: could not setup tracer %s: %w", tr.Id(), err)
		}
		tr.Update(tracer.SetScene, sc)
	}

	r.logger.Debugf("attached %d tracer(s); frame %dx%d at %d spp", len(tracers), opts.FrameW, opts.FrameH, opts.SamplesPerPixel)
	return r, nil
}

// Shutdown renderer and any attached tracer.
func (r *defaultRenderer) Close() {
	for _, tr := range r.tracers {
		tr.Close()
	}
}

// Get last frame stats.
func (r *defaultRenderer) Stats() FrameStats {
	return r.stats
}

// Render frame and return the produced passes for each view layer.
func (r *defaultRenderer) Render(ctx context.Context, frame int) (map[string]compositor.LayerPasses, error) {
	start := time.Now()
	if err := r.renderFrame(ctx, frame); err != nil {
		return nil, err
	}

	r.stats = FrameStats{
		Frame:      frame,
		Tracers:    make([]TracerStat, len(r.tracers)),
		RenderTime: time.Since(start),
	}
	for idx, tr := range r.tracers {
		r.stats.Tracers[idx] = TracerStat{
			Id:           tr.Id(),
			BlockH:       r.blockAssignments[idx],
			FramePercent: 100.0 * float32(r.blockAssignments[idx]) / float32(r.options.FrameH),
			RenderTime:   tr.Stats().RenderTime,
		}
	}
	r.logger.Debugf("rendered frame %d in %s", frame, r.stats.RenderTime)

	return r.buildPasses(), nil
}

// Schedule the frame blocks, enqueue them and wait for all tracers to finish.
func (r *defaultRenderer) renderFrame(ctx context.Context, frame int) error {
	cam := r.sc.CameraAt(frame)
	for _, tr := range r.tracers {
		tr.Update(tracer.SetCamera, cam)
	}

	r.blockAssignments = r.scheduler.Schedule(r.tracers, r.options.FrameH)

	doneChan := make(chan uint32, len(r.tracers))
	errChan := make(chan error, len(r.tracers))
	var blockY uint32
	pending := 0
	for idx, tr := range r.tracers {
		blockH := r.blockAssignments[idx]
		if blockH == 0 {
			continue
		}

		tr.Enqueue(tracer.BlockRequest{
			Ctx:             ctx,
			BlockY:          blockY,
			BlockH:          blockH,
			SamplesPerPixel: r.options.SamplesPerPixel,
			Seed:            r.options.Seed + uint32(frame),
			DoneChan:        doneChan,
			ErrChan:         errChan,
		})
		blockY += blockH
		pending++
	}

	// Each block replies exactly once; wait for all of them so no tracer
	// is still writing to the frame buffers when we return.
	var firstErr error
	for ; pending > 0; pending-- {
		select {
		case <-doneChan:
		case err := <-errChan:
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w: %v", ErrInterrupted, ctxErr)
	}
	return firstErr
}

// Copy the frame buffers into the passes enabled by each view layer.
func (r *defaultRenderer) buildPasses() map[string]compositor.LayerPasses {
	frameW, frameH := int(r.options.FrameW), int(r.options.FrameH)
	pixels := frameW * frameH

	layers := make(map[string]compositor.LayerPasses, len(r.sc.ViewLayers))
	for _, viewLayer := range r.sc.ViewLayers {
		passes := make(compositor.LayerPasses)

		image := compositor.NewPass(frameW, frameH, 4, false)
		copy(image.Data, r.buffers.Color)
		passes[compositor.PassImage] = image

		alpha := compositor.NewPass(frameW, frameH, 1, true)
		for pixel := 0; pixel < pixels; pixel++ {
			alpha.Data[pixel] = r.buffers.Color[pixel*4+3]
		}
		passes[compositor.PassAlpha] = alpha

		if viewLayer.UsePassZ {
			depth := compositor.NewPass(frameW, frameH, 1, true)
			copy(depth.Data, r.buffers.Depth)
			passes[compositor.PassDepth] = depth
		}

		if viewLayer.UsePassMist {
			mist := compositor.NewPass(frameW, frameH, 1, true)
			copy(mist.Data, r.buffers.Mist)
			passes[compositor.PassMist] = mist
		}

		layers[viewLayer.Name] = passes
	}

	return layers
}
