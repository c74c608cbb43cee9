package cpu

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/achilleasa/polaris-bake/asset/scene"
	"github.com/achilleasa/polaris-bake/log"
	"github.com/achilleasa/polaris-bake/tracer"
)

var (
	ErrNoSceneData = errors.New("cpu tracer: no scene data uploaded")
	ErrNotSetup    = errors.New("cpu tracer: tracer has not been setup")
	ErrClosed      = errors.New("cpu tracer: tracer is closed")
)

type cpuTracer struct {
	logger log.Logger

	sync.Mutex
	wg sync.WaitGroup

	// The tracer id.
	id string

	// A buffer for queuing updates. Updates are grouped by type and
	// latest updates always overwrite the previous ones.
	updateBuffer map[tracer.ChangeType]interface{}

	// A channel for receiving block requests from the renderer.
	blockReqChan chan tracer.BlockRequest

	// A channel for signaling the worker to exit.
	closeChan chan struct{}

	// Statistics for last rendered block.
	stats *tracer.Stats

	// Frame dims and the shared output buffers.
	frameW  uint32
	frameH  uint32
	buffers *tracer.FrameBuffers

	// The scene and the camera used for the next blocks.
	sceneData *scene.Scene
	camera    scene.Camera

	// Per-object BVHs for the current scene. Only accessed by the worker.
	accel map[*scene.Object]*objectBVH
}

// Create a new cpu tracer.
func NewTracer(id string) tracer.Tracer {
	return &cpuTracer{
		logger:       log.New(fmt.Sprintf("cpu tracer (%s)", id)),
		id:           id,
		updateBuffer: make(map[tracer.ChangeType]interface{}, 0),
		stats:        &tracer.Stats{},
		accel:        make(map[*scene.Object]*objectBVH),
	}
}

// Get tracer id.
func (tr *cpuTracer) Id() string {
	return tr.id
}

// Each cpu tracer runs on a single core.
func (tr *cpuTracer) Speed() uint32 {
	return 1
}

// Setup the tracer to render frames of the given dimensions into buffers.
func (tr *cpuTracer) Setup(frameW, frameH uint32, buffers *tracer.FrameBuffers) error {
	tr.Lock()
	defer tr.Unlock()

	pixels := int(frameW * frameH)
	if buffers == nil || len(buffers.Color) < pixels*4 || len(buffers.Depth) < pixels || len(buffers.Mist) < pixels {
		return fmt.Errorf("cpu tracer: frame buffers are too small for a %dx%d frame", frameW, frameH)
	}

	tr.frameW = frameW
	tr.frameH = frameH
	tr.buffers = buffers

	// Start worker
	if tr.closeChan == nil {
		tr.startWorker()
	}
	return nil
}

// Shutdown and cleanup tracer.
func (tr *cpuTracer) Close() {
	tr.Lock()
	defer tr.Unlock()

	// If the worker is running shut it down
	if tr.closeChan != nil {
		close(tr.closeChan)
		tr.wg.Wait()
		tr.closeChan = nil
	}
	tr.sceneData = nil
	tr.accel = make(map[*scene.Object]*objectBVH)
	tr.buffers = nil
}

// Enqueue block request. The call blocks until the worker accepts the request.
func (tr *cpuTracer) Enqueue(blockReq tracer.BlockRequest) {
	tr.Lock()
	reqChan, closeChan := tr.blockReqChan, tr.closeChan
	tr.Unlock()

	if closeChan == nil {
		blockReq.ErrChan <- ErrNotSetup
		return
	}

	select {
	case reqChan <- blockReq:
	case <-closeChan:
		blockReq.ErrChan <- ErrClosed
	}
}

// Append a change to the tracer's update buffer.
func (tr *cpuTracer) Update(changeType tracer.ChangeType, data interface{}) {
	tr.Lock()
	defer tr.Unlock()
	tr.updateBuffer[changeType] = data
}

// Retrieve last frame statistics.
func (tr *cpuTracer) Stats() *tracer.Stats {
	return tr.stats
}

// Commit queued changes.
func (tr *cpuTracer) commitUpdates() error {
	tr.Lock()
	defer tr.Unlock()

	for changeType, data := range tr.updateBuffer {
		switch changeType {
		case tracer.SetScene:
			sc, ok := data.(*scene.Scene)
			if !ok {
				return fmt.Errorf("cpu tracer: expected *scene.Scene for scene update; got %T", data)
			}
			tr.sceneData = sc
			tr.accel = make(map[*scene.Object]*objectBVH)
		case tracer.SetCamera:
			cam, ok := data.(scene.Camera)
			if !ok {
				return fmt.Errorf("cpu tracer: expected scene.Camera for camera update; got %T", data)
			}
			tr.camera = cam
		default:
			return fmt.Errorf("cpu tracer: unsupported update type %d", changeType)
		}
	}

	tr.updateBuffer = make(map[tracer.ChangeType]interface{}, 0)
	return nil
}

// Spawn a go-routine to process block render requests. This method is
// meant to be called while holding tr.Lock().
func (tr *cpuTracer) startWorker() {
	tr.blockReqChan = make(chan tracer.BlockRequest)
	tr.closeChan = make(chan struct{})

	reqChan, closeChan := tr.blockReqChan, tr.closeChan
	readyChan := make(chan struct{})
	tr.wg.Add(1)
	go func() {
		defer tr.wg.Done()
		var startTime time.Time
		var err error
		close(readyChan)
		for {
			select {
			case blockReq := <-reqChan:
				// Apply any pending changes
				startTime = time.Now()
				err = tr.commitUpdates()
				if err != nil {
					blockReq.ErrChan <- err
					continue
				}
				tr.stats.UpdateTime = time.Since(startTime)

				// Render block and reply with our completion status
				startTime = time.Now()
				err = tr.renderBlock(&blockReq)
				if err != nil {
					blockReq.ErrChan <- err
					continue
				}

				// Update stats
				tr.stats.BlockH = blockReq.BlockH
				tr.stats.RenderTime = time.Since(startTime)

				blockReq.DoneChan <- blockReq.BlockH
			case <-closeChan:
				return
			}
		}
	}()

	// Wait for go-routine to start
	<-readyChan
}

// Render block.
func (tr *cpuTracer) renderBlock(blockReq *tracer.BlockRequest) error {
	if tr.sceneData == nil {
		return ErrNoSceneData
	}
	if blockReq.BlockY+blockReq.BlockH > tr.frameH {
		return fmt.Errorf("cpu tracer: block rows %d-%d exceed frame height %d", blockReq.BlockY, blockReq.BlockY+blockReq.BlockH, tr.frameH)
	}

	samples := blockReq.SamplesPerPixel
	if samples == 0 {
		samples = 1
	}

	ctx := newTraceContext(tr.sceneData, tr.camera, tr.frameW, tr.frameH, tr.objectBVH)
	invSamples := 1.0 / float32(samples)
	for y := blockReq.BlockY; y < blockReq.BlockY+blockReq.BlockH; y++ {
		if blockReq.Ctx != nil {
			if err := blockReq.Ctx.Err(); err != nil {
				return err
			}
		}

		for x := uint32(0); x < tr.frameW; x++ {
			var r, g, b, a, mist float32
			depth := float32(backgroundDepth)
			for s := uint32(0); s < samples; s++ {
				jx, jy := float32(0.5), float32(0.5)
				if samples > 1 {
					jx = jitter(blockReq.Seed, x, y, 2*s)
					jy = jitter(blockReq.Seed, x, y, 2*s+1)
				}

				smp := ctx.sample(float32(x)+jx, float32(y)+jy)
				r += smp.color[0] * smp.alpha
				g += smp.color[1] * smp.alpha
				b += smp.color[2] * smp.alpha
				a += smp.alpha
				mist += smp.mist
				if smp.depth < depth {
					depth = smp.depth
				}
			}

			offset := y*tr.frameW + x
			tr.buffers.Color[offset*4] = r * invSamples
			tr.buffers.Color[offset*4+1] = g * invSamples
			tr.buffers.Color[offset*4+2] = b * invSamples
			tr.buffers.Color[offset*4+3] = a * invSamples
			tr.buffers.Depth[offset] = depth
			tr.buffers.Mist[offset] = mist * invSamples
		}
	}

	return nil
}

// Get the BVH for a scene object building it on first use.
func (tr *cpuTracer) objectBVH(obj *scene.Object) *objectBVH {
	accel, exists := tr.accel[obj]
	if !exists {
		accel = buildObjectBVH(obj)
		tr.accel[obj] = accel
	}
	return accel
}

// Generate a deterministic sub-pixel offset in [0, 1) for a pixel sample.
func jitter(seed, x, y, index uint32) float32 {
	h := seed*0x9E3779B9 ^ x*0x85EBCA6B ^ y*0xC2B2AE35 ^ index*0x27D4EB2F
	h ^= h >> 16
	h *= 0x7FEB352D
	h ^= h >> 15
	h *= 0x846CA68B
	h ^= h >> 16
	return float32(h>>8) / float32(1<<24)
}
