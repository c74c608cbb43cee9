package batch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/achilleasa/polaris-bake/compositor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errRenderFailed = errors.New("render failed")

type fakeObject struct {
	name   string
	hidden bool
}

func (o *fakeObject) Name() string            { return o.name }
func (o *fakeObject) HideRender() bool        { return o.hidden }
func (o *fakeObject) SetHideRender(hide bool) { o.hidden = hide }

type fakeCollection struct {
	name    string
	objects []*fakeObject
}

func (c *fakeCollection) Name() string { return c.name }

func (c *fakeCollection) Objects() []Object {
	objects := make([]Object, len(c.objects))
	for idx, obj := range c.objects {
		objects[idx] = obj
	}
	return objects
}

// The state observed by the host when a render was requested.
type renderCall struct {
	frame      int
	visible    []string
	writeStill bool
}

// An in-memory host that executes the compositor node tree against
// synthetic passes.
type fakeHost struct {
	filePath    string
	collections []*fakeCollection
	frameStart  int
	frameEnd    int

	frame      int
	mistLayers []string
	mistErr    error
	tree       *compositor.NodeTree
	useNodes   bool

	renders     []renderCall
	failAtFrame int
}

func newFakeHost(dir string, collections ...*fakeCollection) *fakeHost {
	filePath := ""
	if dir != "" {
		filePath = filepath.Join(dir, "scene.obj")
	}
	return &fakeHost{
		filePath:    filePath,
		collections: collections,
		frameStart:  1,
		frameEnd:    3,
		tree:        compositor.NewNodeTree(),
	}
}

func (h *fakeHost) FilePath() (string, bool) { return h.filePath, h.filePath != "" }

func (h *fakeHost) Collections() []Collection {
	collections := make([]Collection, len(h.collections))
	for idx, coll := range h.collections {
		collections[idx] = coll
	}
	return collections
}

func (h *fakeHost) FrameRange() (int, int) { return h.frameStart, h.frameEnd }

func (h *fakeHost) SetFrame(frame int) error {
	h.frame = frame
	return nil
}

func (h *fakeHost) EnableMistPass(viewLayer string) error {
	if h.mistErr != nil {
		return h.mistErr
	}
	h.mistLayers = append(h.mistLayers, viewLayer)
	return nil
}

func (h *fakeHost) NodeTree() *compositor.NodeTree { return h.tree }
func (h *fakeHost) UseNodes(enabled bool)          { h.useNodes = enabled }

func (h *fakeHost) Render(ctx context.Context, writeStill bool) ([]string, error) {
	call := renderCall{frame: h.frame, writeStill: writeStill}
	for _, coll := range h.collections {
		for _, obj := range coll.objects {
			if !obj.hidden {
				call.visible = append(call.visible, obj.name)
			}
		}
	}
	h.renders = append(h.renders, call)

	if h.failAtFrame == h.frame {
		return nil, errRenderFailed
	}
	if !h.useNodes {
		return nil, nil
	}

	combined := compositor.NewPass(2, 2, 4, false)
	for pixel := 0; pixel < 4; pixel++ {
		copy(combined.Data[pixel*4:], []float32{0.25, 0.25, 0.25, 0.5})
	}
	mist := compositor.NewPass(2, 2, 1, true)
	copy(mist.Data, []float32{0, 0.25, 0.5, 1})

	return h.tree.Execute(compositor.Inputs{
		Frame: h.frame,
		Layers: map[string]compositor.LayerPasses{
			DefaultViewLayer: {compositor.PassImage: combined, compositor.PassMist: mist},
		},
		DefaultLayer: DefaultViewLayer,
	})
}

// List all files and dirs below root.
func listTree(t *testing.T, root string) []string {
	var entries []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		entries = append(entries, rel)
		return nil
	})
	require.NoError(t, err)
	sort.Strings(entries)
	return entries
}

func decodePNG(t *testing.T, file string) image.Image {
	f, err := os.Open(file)
	require.NoError(t, err)
	defer f.Close()

	img, err := png.Decode(f)
	require.NoError(t, err)
	return img
}

func TestRunSingleObject(t *testing.T) {
	dir := t.TempDir()
	host := newFakeHost(dir, &fakeCollection{name: "Props", objects: []*fakeObject{{name: "Chair"}}})
	var console bytes.Buffer

	summary, err := New(host, Options{Console: &console}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Objects)
	assert.Equal(t, 3, summary.Frames)
	assert.Len(t, summary.Files, 6)
	assert.Equal(t, []string{DefaultViewLayer}, host.mistLayers)
	assert.Equal(t, "Chair\nChair\nChair\nhello!\n", console.String())

	outDir := filepath.Join(dir, "resources", "textures", "objects", "Props")
	for frame := 1; frame <= 3; frame++ {
		name := fmt.Sprintf("Chair_%04d.png", frame)

		diffuse := decodePNG(t, filepath.Join(outDir, "diffuse", name))
		assert.IsType(t, &image.NRGBA{}, diffuse, "frame %d", frame)

		mist := decodePNG(t, filepath.Join(outDir, "mist", name))
		require.IsType(t, &image.Gray16{}, mist, "frame %d", frame)
		assert.Equal(t, uint16(16384), mist.(*image.Gray16).Gray16At(1, 0).Y)
	}

	assert.Equal(t, []string{
		".",
		"diffuse",
		"diffuse/Chair_0001.png",
		"diffuse/Chair_0002.png",
		"diffuse/Chair_0003.png",
		"mist",
		"mist/Chair_0001.png",
		"mist/Chair_0002.png",
		"mist/Chair_0003.png",
	}, listTree(t, outDir))

	for idx, call := range host.renders {
		assert.Equal(t, idx+1, call.frame)
		assert.True(t, call.writeStill)
	}
}

func TestRunHidesOtherObjects(t *testing.T) {
	a := &fakeObject{name: "A"}
	b := &fakeObject{name: "B", hidden: true}
	lamp := &fakeObject{name: "Lamp"}
	host := newFakeHost(t.TempDir(),
		&fakeCollection{name: "Props", objects: []*fakeObject{a, b}},
		&fakeCollection{name: "Lights", objects: []*fakeObject{lamp}},
	)
	host.frameStart, host.frameEnd = 10, 11

	summary, err := New(host, Options{Console: &bytes.Buffer{}}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Objects)
	assert.Equal(t, 6, summary.Frames)

	require.Len(t, host.renders, 6)
	expVisible := []string{"A", "A", "B", "B", "Lamp", "Lamp"}
	for idx, call := range host.renders {
		assert.Equal(t, []string{expVisible[idx]}, call.visible, "render %d", idx)
		assert.Equal(t, 10+idx%2, call.frame, "render %d", idx)
	}

	assert.False(t, a.hidden)
	assert.True(t, b.hidden)
	assert.False(t, lamp.hidden)
}

func TestRunRestoresVisibilityOnRenderError(t *testing.T) {
	a := &fakeObject{name: "A", hidden: true}
	b := &fakeObject{name: "B"}
	host := newFakeHost(t.TempDir(), &fakeCollection{name: "Props", objects: []*fakeObject{a, b}})
	host.failAtFrame = 2
	var console bytes.Buffer

	summary, err := New(host, Options{Console: &console}).Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errRenderFailed))

	// Processing stops at the failed frame of the first object.
	require.Len(t, host.renders, 2)
	assert.Equal(t, 0, summary.Objects)
	assert.Equal(t, 1, summary.Frames)
	assert.NotContains(t, console.String(), CompletionMessage)

	assert.True(t, a.hidden)
	assert.False(t, b.hidden)
}

func TestRunUnsavedScene(t *testing.T) {
	// Output paths of an unsaved scene would resolve against the working dir.
	dir := t.TempDir()
	wd, wdErr := os.Getwd()
	require.NoError(t, wdErr)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	chair := &fakeObject{name: "Chair"}
	host := newFakeHost("", &fakeCollection{name: "Props", objects: []*fakeObject{chair}})
	runner := New(host, Options{Console: &bytes.Buffer{}})

	_, err := runner.Run(context.Background())
	assert.Equal(t, ErrUnsavedScene, err)

	_, err = runner.RenderFrame(context.Background(), "Props", chair.name, 1)
	assert.Equal(t, ErrUnsavedScene, err)

	assert.Empty(t, host.renders)
	assert.Empty(t, host.mistLayers)
	assert.Empty(t, host.tree.Nodes)
	assert.Equal(t, []string{"."}, listTree(t, dir))
	assert.NoDirExists(t, filepath.Join(dir, "resources"))
}

func TestRunMistPassError(t *testing.T) {
	host := newFakeHost(t.TempDir(), &fakeCollection{name: "Props", objects: []*fakeObject{{name: "Chair"}}})
	host.mistErr = errors.New("unknown view layer")

	_, err := New(host, Options{Console: &bytes.Buffer{}}).Run(context.Background())
	assert.Equal(t, host.mistErr, err)
	assert.Empty(t, host.renders)
}

func TestRunTwiceProducesSameTree(t *testing.T) {
	dir := t.TempDir()
	host := newFakeHost(dir,
		&fakeCollection{name: "Props", objects: []*fakeObject{{name: "Chair"}, {name: "Table"}}},
	)
	runner := New(host, Options{Console: &bytes.Buffer{}})

	_, err := runner.Run(context.Background())
	require.NoError(t, err)
	first := listTree(t, dir)

	_, err = runner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, listTree(t, dir))
}

func TestRunCustomOutputPrefixAndViewLayer(t *testing.T) {
	dir := t.TempDir()
	host := newFakeHost(dir, &fakeCollection{name: "Props", objects: []*fakeObject{{name: "Chair"}}})
	runner := New(host, Options{OutputPrefix: "out", ViewLayer: "Bake", Console: &bytes.Buffer{}})

	diffuseDir, mistDir, err := runner.OutputDirs("Props")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "out", "Props", "diffuse"), diffuseDir)
	assert.Equal(t, filepath.Join(dir, "out", "Props", "mist"), mistDir)

	// The fake host only renders the default view layer.
	_, err = runner.Run(context.Background())
	assert.True(t, errors.Is(err, compositor.ErrPassUnavailable))
	assert.Equal(t, []string{"Bake"}, host.mistLayers)
}

func TestRunCancelled(t *testing.T) {
	chair := &fakeObject{name: "Chair", hidden: true}
	table := &fakeObject{name: "Table"}
	host := newFakeHost(t.TempDir(), &fakeCollection{name: "Props", objects: []*fakeObject{chair, table}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(host, Options{Console: &bytes.Buffer{}}).Run(ctx)
	assert.Equal(t, context.Canceled, err)
	assert.Empty(t, host.renders)
	assert.True(t, chair.hidden)
	assert.False(t, table.hidden)
}

func TestRunFilter(t *testing.T) {
	chair := &fakeObject{name: "Chair"}
	table := &fakeObject{name: "Table"}
	lamp := &fakeObject{name: "Lamp"}
	host := newFakeHost(t.TempDir(),
		&fakeCollection{name: "Props", objects: []*fakeObject{chair, table}},
		&fakeCollection{name: "Lights", objects: []*fakeObject{lamp}},
	)
	host.frameEnd = 1

	filter, err := ParseFilter("Props/T*")
	require.NoError(t, err)

	summary, err := New(host, Options{Console: &bytes.Buffer{}, Filter: filter}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Objects)

	require.Len(t, host.renders, 1)
	assert.Equal(t, []string{"Table"}, host.renders[0].visible)
}

func TestRenderObjectEmptyFrameRange(t *testing.T) {
	chair := &fakeObject{name: "Chair", hidden: true}
	table := &fakeObject{name: "Table"}
	host := newFakeHost(t.TempDir(), &fakeCollection{name: "Props", objects: []*fakeObject{chair, table}})
	host.frameStart, host.frameEnd = 5, 4

	summary, err := New(host, Options{Console: &bytes.Buffer{}}).RenderObject(context.Background(), "Props", chair)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Frames)
	assert.Empty(t, host.renders)
	assert.True(t, chair.hidden)
	assert.False(t, table.hidden)
}

func TestConfigureCompositor(t *testing.T) {
	host := newFakeHost(t.TempDir())
	var console bytes.Buffer
	runner := New(host, Options{Console: &console})

	// Configuring twice must rebuild the tree from scratch.
	for pass := 0; pass < 2; pass++ {
		require.NoError(t, runner.ConfigureCompositor("/out/mist", "/out/diffuse", "Chair"))
	}
	assert.Equal(t, "Chair\nChair\n", console.String())
	assert.True(t, host.useNodes)

	tree := host.tree
	require.Len(t, tree.Nodes, 3)
	require.Len(t, tree.Links, 2)

	renderLayers, combined, mist := tree.Nodes[0], tree.Nodes[1], tree.Nodes[2]
	assert.Equal(t, compositor.NodeRenderLayers, renderLayers.Type)
	assert.Equal(t, DefaultViewLayer, renderLayers.Layer)

	assert.Equal(t, compositor.NodeOutputFile, combined.Type)
	assert.Equal(t, "Combined Output", combined.Label)
	assert.Equal(t, "/out/diffuse", combined.BasePath)
	assert.Equal(t, "Chair_####", combined.FileSlots[0].Path)
	assert.Equal(t, compositor.Format{FileFormat: "PNG", ColorDepth: "8", ColorMode: "RGBA"}, combined.Format)

	assert.Equal(t, compositor.NodeOutputFile, mist.Type)
	assert.Equal(t, "Mist Output", mist.Label)
	assert.Equal(t, "/out/mist", mist.BasePath)
	assert.Equal(t, "Chair_####", mist.FileSlots[0].Path)
	assert.Equal(t, compositor.Format{FileFormat: "PNG", ColorDepth: "16", ColorMode: "BW"}, mist.Format)

	assert.Equal(t, compositor.PassImage, tree.Links[0].From.Name)
	assert.Same(t, renderLayers, tree.Links[0].From.Node())
	assert.Same(t, combined, tree.Links[0].To.Node())
	assert.Equal(t, compositor.PassMist, tree.Links[1].From.Name)
	assert.Same(t, mist, tree.Links[1].To.Node())
}

func TestParseFilter(t *testing.T) {
	specs := []struct {
		expr     string
		coll     string
		obj      string
		expMatch bool
	}{
		{"", "Props", "Chair", true},
		{"Chair", "Props", "Chair", true},
		{"Ch*", "Lights", "Chair", true},
		{"Props/*", "Props", "Table", true},
		{"Props/*", "Lights", "Lamp", false},
		{"*/Lamp", "Lights", "Lamp", true},
		{"Props/Chair", "Props", "Table", false},
	}

	for _, spec := range specs {
		filter, err := ParseFilter(spec.expr)
		require.NoError(t, err, spec.expr)
		assert.Equal(t, spec.expMatch, filter.Match(spec.coll, spec.obj), "filter %q against %s/%s", spec.expr, spec.coll, spec.obj)
	}

	_, err := ParseFilter("Props/[")
	assert.Error(t, err)

	filter, _ := ParseFilter("Props/C*")
	assert.Equal(t, "Props/C*", filter.String())
	assert.Equal(t, "*", Filter{}.String())
	assert.Equal(t, "*/Chair", Filter{Object: "Chair"}.String())
}
