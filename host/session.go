package host

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/achilleasa/polaris-bake/asset/scene"
	"github.com/achilleasa/polaris-bake/asset/scene/reader"
	"github.com/achilleasa/polaris-bake/batch"
	"github.com/achilleasa/polaris-bake/compositor"
	"github.com/achilleasa/polaris-bake/log"
	"github.com/achilleasa/polaris-bake/renderer"
	"github.com/achilleasa/polaris-bake/tracer"
	"github.com/achilleasa/polaris-bake/tracer/cpu"
)

var _ batch.Host = (*Session)(nil)

type Options struct {
	// Number of cpu tracers used for rendering frames. Defaults to 1.
	Tracers int

	Renderer renderer.Options
}

// A session exposes a loaded scene and a renderer for it as a batch host.
type Session struct {
	logger   log.Logger
	sc       *scene.Scene
	renderer renderer.Renderer
}

// Load a scene file and create a session for it.
func Open(sceneFile string, opts Options) (*Session, error) {
	sc, err := reader.ReadScene(sceneFile)
	if err != nil {
		return nil, err
	}
	return NewSession(sc, opts)
}

// Create a session for a scene.
func NewSession(sc *scene.Scene, opts Options) (*Session, error) {
	if opts.Tracers <= 0 {
		opts.Tracers = 1
	}

	tracers := make([]tracer.Tracer, opts.Tracers)
	for idx := range tracers {
		tracers[idx] = cpu.NewTracer(fmt.Sprintf("cpu-%d", idx))
	}

	r, err := renderer.NewDefault(sc, tracer.PerfectScheduler(), tracers, opts.Renderer)
	if err != nil {
		return nil, err
	}

	return &Session{
		logger:   log.New("host"),
		sc:       sc,
		renderer: r,
	}, nil
}

// Get the session scene.
func (s *Session) Scene() *scene.Scene {
	return s.sc
}

// Shutdown the session renderer.
func (s *Session) Close() {
	s.renderer.Close()
}

// Get the stats for the last rendered frame.
func (s *Session) Stats() renderer.FrameStats {
	return s.renderer.Stats()
}

func (s *Session) FilePath() (string, bool) {
	return s.sc.FilePath, s.sc.FilePath != ""
}

func (s *Session) Collections() []batch.Collection {
	collections := make([]batch.Collection, len(s.sc.Collections))
	for idx, coll := range s.sc.Collections {
		collections[idx] = collection{coll}
	}
	return collections
}

func (s *Session) FrameRange() (int, int) {
	return s.sc.FrameStart, s.sc.FrameEnd
}

func (s *Session) SetFrame(frame int) error {
	s.sc.FrameCurrent = frame
	return nil
}

func (s *Session) EnableMistPass(viewLayer string) error {
	layer, err := s.sc.ViewLayer(viewLayer)
	if err != nil {
		return err
	}
	layer.UsePassMist = true
	return nil
}

func (s *Session) NodeTree() *compositor.NodeTree {
	return s.sc.NodeTree()
}

func (s *Session) UseNodes(enabled bool) {
	s.sc.UseNodes = enabled
}

// Render the current frame. When the scene uses nodes the compositor node
// tree is executed for the rendered passes. If writeStill is set and the
// scene defines an output path, the combined image is also written there.
func (s *Session) Render(ctx context.Context, writeStill bool) ([]string, error) {
	frame := s.sc.FrameCurrent
	layers, err := s.renderer.Render(ctx, frame)
	if err != nil {
		return nil, err
	}

	inputs := compositor.Inputs{
		Frame:  frame,
		Layers: layers,
	}
	if len(s.sc.ViewLayers) != 0 {
		inputs.DefaultLayer = s.sc.ViewLayers[0].Name
	}

	written := make([]string, 0)
	if s.sc.UseNodes {
		files, err := s.sc.NodeTree().Execute(inputs)
		written = append(written, files...)
		if err != nil {
			return written, err
		}
	}

	if writeStill && s.sc.Render.OutputPath != "" {
		files, err := s.writeStill(inputs)
		written = append(written, files...)
		if err != nil {
			return written, err
		}
	}

	s.logger.Infof("rendered frame %d in %s; wrote %d file(s)", frame, s.renderer.Stats().RenderTime, len(written))
	return written, nil
}

// Write the combined image of the default view layer to the scene output path.
func (s *Session) writeStill(inputs compositor.Inputs) ([]string, error) {
	outputPath := s.sc.Render.OutputPath
	if strings.HasPrefix(outputPath, "//") {
		outputPath = filepath.Join(filepath.Dir(s.sc.FilePath), outputPath[2:])
	}

	tree := compositor.NewNodeTree()
	renderLayers, err := tree.NewNode(compositor.NodeRenderLayers)
	if err != nil {
		return nil, err
	}
	output, err := tree.NewNode(compositor.NodeOutputFile)
	if err != nil {
		return nil, err
	}
	output.BasePath = filepath.Dir(outputPath)
	output.FileSlots[0].Path = filepath.Base(outputPath)

	from, err := renderLayers.Output(compositor.PassImage)
	if err != nil {
		return nil, err
	}
	to, err := output.Input(0)
	if err != nil {
		return nil, err
	}
	if _, err = tree.Link(from, to); err != nil {
		return nil, err
	}

	return tree.Execute(inputs)
}

// Adapts a scene object to the batch.Object interface. Adapters wrapping the
// same object compare equal.
type object struct {
	obj *scene.Object
}

func (o object) Name() string              { return o.obj.Name }
func (o object) HideRender() bool          { return o.obj.HideRender }
func (o object) SetHideRender(hidden bool) { o.obj.HideRender = hidden }

type collection struct {
	coll *scene.Collection
}

func (c collection) Name() string {
	return c.coll.Name
}

func (c collection) Objects() []batch.Object {
	objects := make([]batch.Object, len(c.coll.Objects))
	for idx, obj := range c.coll.Objects {
		objects[idx] = object{obj}
	}
	return objects
}
