package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/achilleasa/polaris-bake/compositor"
	"github.com/achilleasa/polaris-bake/log"
)

const (
	// The output dir relative to the scene file dir.
	DefaultOutputPrefix = "resources/textures/objects"

	// The view layer whose mist pass gets enabled.
	DefaultViewLayer = "ViewLayer"

	// Printed to the console once all objects have been rendered.
	CompletionMessage = "hello!"

	diffuseDirName = "diffuse"
	mistDirName    = "mist"
)

var (
	ErrUnsavedScene = errors.New("batch: scene has not been saved; save the scene file first")
)

type Options struct {
	// Output path prefix relative to the scene file dir.
	OutputPrefix string

	// Name of the view layer that produces the mist pass.
	ViewLayer string

	// Receives the object names and the completion message. Defaults to stdout.
	Console io.Writer

	// Restricts the rendered objects.
	Filter Filter
}

// Statistics for a batch run.
type Summary struct {
	Objects int
	Frames  int

	// Files written by the host.
	Files []string

	Elapsed time.Duration
}

func (s *Summary) add(other *Summary) {
	s.Objects += other.Objects
	s.Frames += other.Frames
	s.Files = append(s.Files, other.Files...)
}

// A runner renders each scene object in isolation for every frame of the
// scene frame range.
type Runner struct {
	logger log.Logger
	host   Host
	opts   Options
}

// Create a new runner for the given host.
func New(host Host, opts Options) *Runner {
	if opts.OutputPrefix == "" {
		opts.OutputPrefix = DefaultOutputPrefix
	}
	if opts.ViewLayer == "" {
		opts.ViewLayer = DefaultViewLayer
	}
	if opts.Console == nil {
		opts.Console = os.Stdout
	}

	return &Runner{
		logger: log.New("batch"),
		host:   host,
		opts:   opts,
	}
}

// Render all objects of all collections. Rendering stops at the first error.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()
	filePath, saved := r.host.FilePath()
	if !saved {
		return nil, ErrUnsavedScene
	}

	err := r.host.EnableMistPass(r.opts.ViewLayer)
	if err != nil {
		return nil, err
	}

	frameStart, frameEnd := r.host.FrameRange()
	r.logger.Infof("rendering objects of %s (frames %d-%d, filter %s)", filePath, frameStart, frameEnd, r.opts.Filter)

	summary := &Summary{Files: make([]string, 0)}
	for _, coll := range r.host.Collections() {
		for _, obj := range coll.Objects() {
			if !r.opts.Filter.Match(coll.Name(), obj.Name()) {
				r.logger.Debugf("skipping object %s/%s", coll.Name(), obj.Name())
				continue
			}

			objSummary, err := r.RenderObject(ctx, coll.Name(), obj)
			summary.add(objSummary)
			if err != nil {
				summary.Elapsed = time.Since(start)
				return summary, err
			}
		}
	}

	summary.Elapsed = time.Since(start)
	fmt.Fprintln(r.opts.Console, CompletionMessage)
	return summary, nil
}

// Render every frame of the scene frame range with only obj visible. The
// visibility of all objects is restored before returning, even on error.
func (r *Runner) RenderObject(ctx context.Context, collName string, obj Object) (*Summary, error) {
	frameStart, frameEnd := r.host.FrameRange()
	summary := &Summary{Files: make([]string, 0)}

	snapshot := SnapshotVisibility(r.host)
	defer snapshot.Restore()

	isolate(r.host, obj)

	start := time.Now()
	for frame := frameStart; frame <= frameEnd; frame++ {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		files, err := r.RenderFrame(ctx, collName, obj.Name(), frame)
		summary.Files = append(summary.Files, files...)
		if err != nil {
			return summary, fmt.Errorf("batch: rendering frame %d of %s/%s: %w", frame, collName, obj.Name(), err)
		}
		summary.Frames++
	}

	summary.Objects++
	summary.Elapsed = time.Since(start)
	r.logger.Infof("rendered %d frame(s) of %s/%s in %s", summary.Frames, collName, obj.Name(), summary.Elapsed)
	return summary, nil
}

// Set the current frame, prepare the output dirs and compositor and render
// the frame to disk.
func (r *Runner) RenderFrame(ctx context.Context, collName, objName string, frame int) ([]string, error) {
	err := r.host.SetFrame(frame)
	if err != nil {
		return nil, err
	}

	diffuseDir, mistDir, err := r.OutputDirs(collName)
	if err != nil {
		return nil, err
	}

	for _, dir := range []string{diffuseDir, mistDir} {
		if err = os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("batch: could not create output dir: %w", err)
		}
	}

	err = r.ConfigureCompositor(mistDir, diffuseDir, objName)
	if err != nil {
		return nil, err
	}

	return r.host.Render(ctx, true)
}

// Get the diffuse and mist output dirs for a collection.
func (r *Runner) OutputDirs(collName string) (diffuseDir, mistDir string, err error) {
	filePath, saved := r.host.FilePath()
	if !saved {
		return "", "", ErrUnsavedScene
	}

	outputPath := filepath.Join(filepath.Dir(filePath), r.opts.OutputPrefix, collName)
	return filepath.Join(outputPath, diffuseDirName), filepath.Join(outputPath, mistDirName), nil
}

// Rebuild the compositor node tree so that the combined image is written
// to diffuseDir and the mist pass to mistDir.
func (r *Runner) ConfigureCompositor(mistDir, diffuseDir, objName string) error {
	fmt.Fprintln(r.opts.Console, objName)
	r.logger.Noticef("configuring compositor for %s", objName)

	r.host.UseNodes(true)
	tree := r.host.NodeTree()
	tree.Clear()

	renderLayers, err := tree.NewNode(compositor.NodeRenderLayers)
	if err != nil {
		return err
	}
	renderLayers.Layer = r.opts.ViewLayer

	slotPath := objName + "_####"
	combined, err := tree.NewNode(compositor.NodeOutputFile)
	if err != nil {
		return err
	}
	combined.Label = "Combined Output"
	combined.BasePath = diffuseDir
	combined.FileSlots[0].Path = slotPath
	combined.Format = compositor.Format{FileFormat: "PNG", ColorDepth: "8", ColorMode: "RGBA"}

	mist, err := tree.NewNode(compositor.NodeOutputFile)
	if err != nil {
		return err
	}
	mist.Label = "Mist Output"
	mist.BasePath = mistDir
	mist.FileSlots[0].Path = slotPath
	mist.Format = compositor.Format{FileFormat: "PNG", ColorDepth: "16", ColorMode: "BW"}

	links := []struct {
		from string
		to   *compositor.Node
	}{
		{compositor.PassImage, combined},
		{compositor.PassMist, mist},
	}
	for _, link := range links {
		from, err := renderLayers.Output(link.from)
		if err != nil {
			return err
		}
		to, err := link.to.Input(0)
		if err != nil {
			return err
		}
		if _, err = tree.Link(from, to); err != nil {
			return err
		}
	}

	return nil
}
