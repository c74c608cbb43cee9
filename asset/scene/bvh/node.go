package bvh

import "github.com/achilleasa/polaris-bake/types"

// Bvh nodes are comprised of two Vec3 and two multipurpose int32 parameters
// whose value depends on the node type:
//
// - For non-leaf nodes they are both >0 and point to the L/R child nodes
// - For leafs:
//   - left data is <= 0 and points to the first item index
//   - right data is >0 and contains the count of leaf items
type Node struct {
	Min   types.Vec3
	lData int32

	Max   types.Vec3
	rData int32
}

// Set bounding box.
func (n *Node) SetBBox(bbox [2]types.Vec3) {
	n.Min = bbox[0]
	n.Max = bbox[1]
}

// Get bounding box.
func (n *Node) BBox() [2]types.Vec3 {
	return [2]types.Vec3{n.Min, n.Max}
}

// Set left and right child node indices.
func (n *Node) SetChildNodes(left, right uint32) {
	n.lData = int32(left)
	n.rData = int32(right)
}

// Set first item index and count.
func (n *Node) SetItems(firstItemIndex, count uint32) {
	n.lData = -int32(firstItemIndex)
	n.rData = int32(count)
}

func (n *Node) IsLeaf() bool {
	return n.lData <= 0
}

// Get left and right child node indices.
func (n *Node) ChildNodes() (left, right uint32) {
	return uint32(n.lData), uint32(n.rData)
}

// Get first item index and count for a leaf.
func (n *Node) Items() (firstItemIndex, count uint32) {
	return uint32(-n.lData), uint32(n.rData)
}
