package cpu

import (
	"math"
	"testing"

	"github.com/achilleasa/polaris-bake/asset/scene"
	"github.com/achilleasa/polaris-bake/tracer"
	"github.com/achilleasa/polaris-bake/types"
)

// An object with a grid of small triangles placed at alternating depths.
func gridObject(size int) *scene.Object {
	obj := &scene.Object{Name: "Grid"}
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			cx := float32(2*x - size)
			cy := float32(2*y - size)
			z := float32(-5 - (x+y)%3)
			obj.Primitives = append(obj.Primitives, scene.Primitive{
				Vertices:      [3]types.Vec3{{cx - 0.5, cy - 0.5, z}, {cx + 0.5, cy - 0.5, z}, {cx, cy + 0.5, z}},
				MaterialIndex: -1,
			})
		}
	}
	return obj
}

func bruteForceIntersect(ray types.Ray, obj *scene.Object) (hit, bool) {
	closest := hit{t: math.MaxFloat32}
	found := false
	for primIndex := range obj.Primitives {
		prim := &obj.Primitives[primIndex]
		t, u, v, ok := intersectTriangle(ray, prim)
		if !ok || t >= closest.t {
			continue
		}
		closest = hit{t: t, u: u, v: v, prim: prim}
		found = true
	}
	return closest, found
}

func TestObjectBVHReferencesAllPrimitives(t *testing.T) {
	obj := gridObject(8)
	accel := buildObjectBVH(obj)

	if len(accel.prims) != len(obj.Primitives) {
		t.Fatalf("expected bvh to reference %d primitives; got %d", len(obj.Primitives), len(accel.prims))
	}
	seen := make(map[*scene.Primitive]bool)
	for _, prim := range accel.prims {
		if seen[prim] {
			t.Fatalf("primitive %p referenced more than once", prim)
		}
		seen[prim] = true
	}

	bbox := accel.bbox()
	expMin := types.Vec3{-8.5, -8.5, -7}
	expMax := types.Vec3{6.5, 6.5, -5}
	if bbox[0] != expMin || bbox[1] != expMax {
		t.Fatalf("expected bbox [%v, %v]; got %v", expMin, expMax, bbox)
	}
}

func TestObjectBVHMatchesBruteForce(t *testing.T) {
	obj := gridObject(8)
	accel := buildObjectBVH(obj)
	origin := types.Vec3{0, 0, 5}

	var targets []types.Vec3
	for _, prim := range obj.Primitives {
		centroid := prim.Vertices[0].Add(prim.Vertices[1]).Add(prim.Vertices[2]).Mul(1.0 / 3.0)
		targets = append(targets, centroid, centroid.Add(types.Vec3{1, 1, 0}))
	}

	var hits int
	for _, target := range targets {
		ray := types.Ray{Origin: origin, Dir: target.Sub(origin).Normalize()}

		expHit, expFound := bruteForceIntersect(ray, obj)
		closest := hit{t: math.MaxFloat32}
		found := accel.intersect(ray, &closest, false)
		if found != expFound {
			t.Fatalf("ray towards %v: expected found to be %t; got %t", target, expFound, found)
		}
		if !found {
			continue
		}
		hits++
		if closest.prim != expHit.prim {
			t.Fatalf("ray towards %v: bvh and brute force hit different primitives", target)
		}
		if closest.t != expHit.t {
			t.Fatalf("ray towards %v: expected t %f; got %f", target, expHit.t, closest.t)
		}
	}

	if hits < len(obj.Primitives) {
		t.Fatalf("expected at least %d hits; got %d", len(obj.Primitives), hits)
	}
}

func TestObjectBVHAnyHit(t *testing.T) {
	obj := gridObject(4)
	accel := buildObjectBVH(obj)

	target := obj.Primitives[0].Vertices[0].Add(obj.Primitives[0].Vertices[1]).Add(obj.Primitives[0].Vertices[2]).Mul(1.0 / 3.0)
	origin := types.Vec3{0, 0, 5}
	ray := types.Ray{Origin: origin, Dir: target.Sub(origin).Normalize()}

	closest := hit{t: math.MaxFloat32}
	if !accel.intersect(ray, &closest, true) {
		t.Fatal("expected ray to hit the grid")
	}
	if closest.prim == nil {
		t.Fatal("expected hit to reference a primitive")
	}

	// A closer hit recorded by a previous object occludes the grid.
	closest = hit{t: 0.5}
	if accel.intersect(ray, &closest, false) {
		t.Fatal("expected grid to be occluded by the closer hit")
	}
}

func TestObjectBVHEmptyObject(t *testing.T) {
	accel := buildObjectBVH(&scene.Object{Name: "Empty"})

	closest := hit{t: math.MaxFloat32}
	if accel.intersect(types.Ray{Dir: types.Vec3{0, 0, -1}}, &closest, false) {
		t.Fatal("expected no hits for an empty object")
	}
	if bbox := accel.bbox(); bbox != types.EmptyBBox() {
		t.Fatalf("expected empty bbox; got %v", bbox)
	}
}

func TestObjectBVHCacheResetOnSceneChange(t *testing.T) {
	tr := NewTracer("test").(*cpuTracer)
	defer tr.Close()

	obj := testScene().Collections[0].Objects[0]
	accel := tr.objectBVH(obj)
	if tr.objectBVH(obj) != accel {
		t.Fatal("expected bvh to be built once per object")
	}

	tr.Update(tracer.SetScene, testScene())
	if err := tr.commitUpdates(); err != nil {
		t.Fatal(err)
	}
	if len(tr.accel) != 0 {
		t.Fatalf("expected bvh cache to be reset after a scene change; got %d entries", len(tr.accel))
	}
}
