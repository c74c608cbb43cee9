package compositor

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNodeDefaults(t *testing.T) {
	tree := NewNodeTree()

	rl, err := tree.NewNode(NodeRenderLayers)
	require.NoError(t, err)
	assert.Equal(t, "Render Layers", rl.Name)
	assert.Len(t, rl.Outputs, 4)
	assert.Empty(t, rl.Inputs)

	out, err := tree.NewNode(NodeOutputFile)
	require.NoError(t, err)
	assert.Equal(t, "File Output", out.Name)
	require.Len(t, out.FileSlots, 1)
	assert.Equal(t, "Image", out.FileSlots[0].Path)
	assert.Equal(t, Format{FileFormat: "PNG", ColorDepth: "8", ColorMode: "RGBA"}, out.Format)

	second, err := tree.NewNode(NodeOutputFile)
	require.NoError(t, err)
	assert.Equal(t, "File Output.001", second.Name)
	assert.Len(t, tree.Nodes, 3)
}

func TestUnknownNodeType(t *testing.T) {
	tree := NewNodeTree()
	_, err := tree.NewNode("CompositorNodeBlur")
	assert.True(t, errors.Is(err, ErrUnknownNodeType))
	assert.Empty(t, tree.Nodes)
}

func TestSocketLookup(t *testing.T) {
	tree := NewNodeTree()
	rl, _ := tree.NewNode(NodeRenderLayers)
	out, _ := tree.NewNode(NodeOutputFile)

	mist, err := rl.Output(PassMist)
	require.NoError(t, err)
	assert.Equal(t, rl, mist.Node())

	_, err = rl.Output("Emission")
	assert.True(t, errors.Is(err, ErrUnknownSocket))

	_, err = out.Input(0)
	assert.NoError(t, err)
	_, err = out.Input(1)
	assert.True(t, errors.Is(err, ErrUnknownSocket))
}

func TestLinkReplacesExistingInputLink(t *testing.T) {
	tree := NewNodeTree()
	rl, _ := tree.NewNode(NodeRenderLayers)
	out, _ := tree.NewNode(NodeOutputFile)
	image, _ := rl.Output(PassImage)
	mist, _ := rl.Output(PassMist)
	in, _ := out.Input(0)

	_, err := tree.Link(image, in)
	require.NoError(t, err)
	_, err = tree.Link(mist, in)
	require.NoError(t, err)

	require.Len(t, tree.Links, 1)
	assert.Equal(t, mist, tree.Links[0].From)
}

func TestLinkValidation(t *testing.T) {
	tree := NewNodeTree()
	rl, _ := tree.NewNode(NodeRenderLayers)
	out, _ := tree.NewNode(NodeOutputFile)
	image, _ := rl.Output(PassImage)
	in, _ := out.Input(0)

	_, err := tree.Link(in, image)
	assert.True(t, errors.Is(err, ErrInvalidLink))

	other := NewNodeTree()
	foreign, _ := other.NewNode(NodeOutputFile)
	foreignIn, _ := foreign.Input(0)
	_, err = tree.Link(image, foreignIn)
	assert.True(t, errors.Is(err, ErrInvalidLink))
}

func TestRemoveAndClear(t *testing.T) {
	tree := NewNodeTree()
	rl, _ := tree.NewNode(NodeRenderLayers)
	out, _ := tree.NewNode(NodeOutputFile)
	image, _ := rl.Output(PassImage)
	in, _ := out.Input(0)
	_, err := tree.Link(image, in)
	require.NoError(t, err)

	tree.Remove(out)
	assert.Len(t, tree.Nodes, 1)
	assert.Empty(t, tree.Links)

	tree.Clear()
	assert.Empty(t, tree.Nodes)

	// Names become available again once nodes are removed.
	node, err := tree.NewNode(NodeOutputFile)
	require.NoError(t, err)
	assert.Equal(t, "File Output", node.Name)
}
