package compositor

import (
	"errors"
	"fmt"
)

// Supported node types.
const (
	NodeRenderLayers = "CompositorNodeRLayers"
	NodeOutputFile   = "CompositorNodeOutputFile"
)

// Render layer outputs.
const (
	PassImage = "Image"
	PassAlpha = "Alpha"
	PassDepth = "Depth"
	PassMist  = "Mist"
)

var (
	ErrUnknownNodeType = errors.New("compositor: unknown node type")
	ErrUnknownSocket   = errors.New("compositor: unknown socket")
	ErrInvalidLink     = errors.New("compositor: invalid link")
)

// A socket is a named input or output of a node.
type Socket struct {
	Name string

	node     *Node
	isOutput bool
}

// Get the node that owns this socket.
func (s *Socket) Node() *Node {
	return s.node
}

// The output path of a file output socket relative to the node base path.
type FileSlot struct {
	Path string
}

// Image format settings for file output nodes.
type Format struct {
	FileFormat string
	ColorDepth string
	ColorMode  string
}

// A compositor node.
type Node struct {
	// Unique name within the tree and an optional display label.
	Name  string
	Label string

	Type string

	// The view layer sourced by render layer nodes. An empty value selects
	// the default layer.
	Layer string

	// Output settings for file output nodes. Each file slot is paired with
	// the input socket at the same index.
	BasePath  string
	FileSlots []*FileSlot
	Format    Format

	Inputs  []*Socket
	Outputs []*Socket
}

// Lookup an output socket by name.
func (n *Node) Output(name string) (*Socket, error) {
	for _, socket := range n.Outputs {
		if socket.Name == name {
			return socket, nil
		}
	}
	return nil, fmt.Errorf("%w: node %q has no output %q", ErrUnknownSocket, n.Name, name)
}

// Lookup an input socket by index.
func (n *Node) Input(index int) (*Socket, error) {
	if index < 0 || index >= len(n.Inputs) {
		return nil, fmt.Errorf("%w: node %q has no input %d", ErrUnknownSocket, n.Name, index)
	}
	return n.Inputs[index], nil
}

// A link connects a node output to a node input.
type Link struct {
	From *Socket
	To   *Socket
}

// A tree of compositor nodes and the links between them.
type NodeTree struct {
	Nodes []*Node
	Links []*Link
}

// Create an empty node tree.
func NewNodeTree() *NodeTree {
	return &NodeTree{
		Nodes: make([]*Node, 0),
		Links: make([]*Link, 0),
	}
}

// Remove all nodes and links.
func (t *NodeTree) Clear() {
	t.Nodes = t.Nodes[:0]
	t.Links = t.Links[:0]
}

// Remove a node and any links attached to it.
func (t *NodeTree) Remove(node *Node) {
	for index, n := range t.Nodes {
		if n == node {
			t.Nodes = append(t.Nodes[:index], t.Nodes[index+1:]...)
			break
		}
	}

	links := t.Links[:0]
	for _, link := range t.Links {
		if link.From.node == node || link.To.node == node {
			continue
		}
		links = append(links, link)
	}
	t.Links = links
}

// Create a node of the given type and append it to the tree.
func (t *NodeTree) NewNode(nodeType string) (*Node, error) {
	var node *Node
	switch nodeType {
	case NodeRenderLayers:
		node = &Node{Name: t.uniqueName("Render Layers")}
		for _, name := range []string{PassImage, PassAlpha, PassDepth, PassMist} {
			node.Outputs = append(node.Outputs, &Socket{Name: name, node: node, isOutput: true})
		}
	case NodeOutputFile:
		node = &Node{
			Name:      t.uniqueName("File Output"),
			FileSlots: []*FileSlot{{Path: "Image"}},
			Format: Format{
				FileFormat: "PNG",
				ColorDepth: "8",
				ColorMode:  "RGBA",
			},
		}
		node.Inputs = append(node.Inputs, &Socket{Name: "Image", node: node})
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownNodeType, nodeType)
	}

	node.Type = nodeType
	t.Nodes = append(t.Nodes, node)
	return node, nil
}

// Link an output socket to an input socket. An input accepts a single link;
// linking an already connected input replaces its previous link.
func (t *NodeTree) Link(from, to *Socket) (*Link, error) {
	if from == nil || to == nil || !from.isOutput || to.isOutput {
		return nil, fmt.Errorf("%w: links must connect an output to an input", ErrInvalidLink)
	}
	if !t.contains(from.node) || !t.contains(to.node) {
		return nil, fmt.Errorf("%w: socket belongs to a node outside this tree", ErrInvalidLink)
	}

	for index, link := range t.Links {
		if link.To == to {
			t.Links = append(t.Links[:index], t.Links[index+1:]...)
			break
		}
	}

	link := &Link{From: from, To: to}
	t.Links = append(t.Links, link)
	return link, nil
}

// Get the link connected to an input socket or nil if it is not linked.
func (t *NodeTree) linkTo(to *Socket) *Link {
	for _, link := range t.Links {
		if link.To == to {
			return link
		}
	}
	return nil
}

func (t *NodeTree) contains(node *Node) bool {
	for _, n := range t.Nodes {
		if n == node {
			return true
		}
	}
	return false
}

// Generate a node name that is not used by any other node in the tree.
func (t *NodeTree) uniqueName(base string) string {
	name := base
	for suffix := 1; ; suffix++ {
		taken := false
		for _, n := range t.Nodes {
			if n.Name == name {
				taken = true
				break
			}
		}
		if !taken {
			return name
		}
		name = fmt.Sprintf("%s.%03d", base, suffix)
	}
}
