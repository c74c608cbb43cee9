package cpu

import (
	"github.com/achilleasa/polaris-bake/asset/scene"
	"github.com/achilleasa/polaris-bake/asset/scene/bvh"
	"github.com/achilleasa/polaris-bake/types"
)

// Leafs are created once a node holds this many primitives.
const minLeafPrimitives = 4

// A primitive wrapper that can be partitioned by the bvh builder.
type primRef struct {
	prim   *scene.Primitive
	bbox   [2]types.Vec3
	center types.Vec3
}

func (p primRef) BBox() [2]types.Vec3 {
	return p.bbox
}

func (p primRef) Center() types.Vec3 {
	return p.center
}

// A BVH over the primitives of a single object.
type objectBVH struct {
	nodes []bvh.Node

	// Primitives ordered so that each leaf references a contiguous range.
	prims []*scene.Primitive
}

func buildObjectBVH(obj *scene.Object) *objectBVH {
	workList := make([]bvh.BoundedVolume, len(obj.Primitives))
	for idx := range obj.Primitives {
		prim := &obj.Primitives[idx]
		bbox := types.EmptyBBox()
		for _, vertex := range prim.Vertices {
			bbox[0] = types.MinVec3(bbox[0], vertex)
			bbox[1] = types.MaxVec3(bbox[1], vertex)
		}
		workList[idx] = primRef{
			prim:   prim,
			bbox:   bbox,
			center: prim.Vertices[0].Add(prim.Vertices[1]).Add(prim.Vertices[2]).Mul(1.0 / 3.0),
		}
	}

	accel := &objectBVH{
		prims: make([]*scene.Primitive, 0, len(workList)),
	}
	accel.nodes = bvh.Build(workList, minLeafPrimitives, func(leaf *bvh.Node, itemList []bvh.BoundedVolume) {
		leaf.SetItems(uint32(len(accel.prims)), uint32(len(itemList)))
		for _, item := range itemList {
			accel.prims = append(accel.prims, item.(primRef).prim)
		}
	}, bvh.SurfaceAreaHeuristic)

	return accel
}

// Get the bbox enclosing all object primitives.
func (accel *objectBVH) bbox() [2]types.Vec3 {
	if len(accel.nodes) == 0 {
		return types.EmptyBBox()
	}
	return accel.nodes[0].BBox()
}

// Intersect ray with the object primitives updating closest if a closer hit
// is found. If anyHit is set the traversal stops at the first intersection.
func (accel *objectBVH) intersect(ray types.Ray, closest *hit, anyHit bool) bool {
	if len(accel.nodes) == 0 {
		return false
	}

	found := false
	stack := make([]uint32, 1, 32)
	for len(stack) > 0 {
		node := &accel.nodes[stack[len(stack)-1]]
		stack = stack[:len(stack)-1]
		if !ray.HitBBox(node.BBox(), 0, closest.t) {
			continue
		}

		if !node.IsLeaf() {
			left, right := node.ChildNodes()
			stack = append(stack, left, right)
			continue
		}

		first, count := node.Items()
		for _, prim := range accel.prims[first : first+count] {
			t, u, v, ok := intersectTriangle(ray, prim)
			if !ok || t >= closest.t {
				continue
			}
			*closest = hit{t: t, u: u, v: v, prim: prim}
			found = true
			if anyHit {
				return true
			}
		}
	}
	return found
}
