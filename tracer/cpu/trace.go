package cpu

import (
	"math"

	"github.com/achilleasa/polaris-bake/asset/scene"
	"github.com/achilleasa/polaris-bake/types"
)

const (
	// Depth reported for rays that escape the scene.
	backgroundDepth = 1e10

	// Offset applied to shadow ray origins to avoid self intersections.
	rayEpsilon = 1e-4

	intersectEpsilon = 1e-8
)

type sample struct {
	color types.Vec3
	alpha float32
	depth float32
	mist  float32
}

type hit struct {
	t    float32
	u, v float32
	prim *scene.Primitive
}

// Per-block state for casting rays against the renderable scene objects.
type traceContext struct {
	sc      *scene.Scene
	objects []*objectBVH
	bboxes  [][2]types.Vec3

	frameW, frameH float32

	// Camera basis.
	eye          types.Vec3
	forward      types.Vec3
	right        types.Vec3
	up           types.Vec3
	tanHalfFov   float32
	aspect       float32
	lightDir     types.Vec3
	transparency bool
}

// Create a trace context for the visible scene objects. The accel callback
// supplies the BVH for an object.
func newTraceContext(sc *scene.Scene, cam scene.Camera, frameW, frameH uint32, accel func(*scene.Object) *objectBVH) *traceContext {
	ctx := &traceContext{
		sc:           sc,
		frameW:       float32(frameW),
		frameH:       float32(frameH),
		eye:          cam.Eye,
		forward:      cam.Look.Sub(cam.Eye).Normalize(),
		tanHalfFov:   float32(math.Tan(float64(cam.FOV) * math.Pi / 360.0)),
		aspect:       float32(frameW) / float32(frameH),
		lightDir:     sc.World.LightDir.Normalize(),
		transparency: sc.Render.FilmTransparent,
	}
	ctx.right = ctx.forward.Cross(cam.Up).Normalize()
	ctx.up = ctx.right.Cross(ctx.forward)

	// Objects flagged as hidden are excluded from the render entirely.
	for _, coll := range sc.Collections {
		for _, obj := range coll.Objects {
			if obj.HideRender || len(obj.Primitives) == 0 {
				continue
			}

			objAccel := accel(obj)
			ctx.objects = append(ctx.objects, objAccel)
			ctx.bboxes = append(ctx.bboxes, objAccel.bbox())
		}
	}
	return ctx
}

// Generate a primary ray through the frame position (px, py) where (0, 0)
// is the top-left corner of the frame.
func (ctx *traceContext) primaryRay(px, py float32) types.Ray {
	ndcX := (2*px/ctx.frameW - 1) * ctx.aspect * ctx.tanHalfFov
	ndcY := (1 - 2*py/ctx.frameH) * ctx.tanHalfFov
	dir := ctx.forward.Add(ctx.right.Mul(ndcX)).Add(ctx.up.Mul(ndcY)).Normalize()
	return types.Ray{Origin: ctx.eye, Dir: dir}
}

// Trace a primary ray through the frame position (px, py).
func (ctx *traceContext) sample(px, py float32) sample {
	ray := ctx.primaryRay(px, py)

	h, found := ctx.intersect(ray, backgroundDepth, false)
	if !found {
		bg := sample{depth: backgroundDepth, mist: 1}
		if !ctx.transparency {
			bg.color = ctx.sc.World.Color
			bg.alpha = 1
		}
		return bg
	}

	return sample{
		color: ctx.shade(ray, h),
		alpha: 1,
		depth: h.t,
		mist:  ctx.sc.Mist.Intensity(h.t),
	}
}

// Apply diffuse lighting from the sun light with a shadow test.
func (ctx *traceContext) shade(ray types.Ray, h hit) types.Vec3 {
	prim := h.prim
	w := 1 - h.u - h.v
	normal := prim.Normals[0].Mul(w).Add(prim.Normals[1].Mul(h.u)).Add(prim.Normals[2].Mul(h.v)).Normalize()
	if normal.Dot(ray.Dir) > 0 {
		normal = normal.Mul(-1)
	}

	var mat *scene.Material
	if prim.MaterialIndex >= 0 && prim.MaterialIndex < len(ctx.sc.Materials) {
		mat = ctx.sc.Materials[prim.MaterialIndex]
	}
	albedo := types.XYZ(0.7, 0.7, 0.7)
	var emission types.Vec3
	if mat != nil {
		albedo = mat.Kd
		emission = mat.Ke
		if mat.KdTex != nil {
			uv := prim.UVs[0].Mul(w).Add(prim.UVs[1].Mul(h.u)).Add(prim.UVs[2].Mul(h.v))
			albedo = albedo.MulVec(mat.KdTex.Sample(uv))
		}
	}

	light := ctx.sc.World.Ambient
	if nDotL := normal.Dot(ctx.lightDir); nDotL > 0 {
		point := ray.At(h.t).Add(normal.Mul(rayEpsilon))
		shadowRay := types.Ray{Origin: point, Dir: ctx.lightDir}
		if _, blocked := ctx.intersect(shadowRay, backgroundDepth, true); !blocked {
			light += nDotL * ctx.sc.World.LightIntensity
		}
	}

	return emission.Add(albedo.Mul(light))
}

// Find the closest intersection of ray with a renderable primitive. If anyHit
// is set the search stops at the first intersection.
func (ctx *traceContext) intersect(ray types.Ray, tMax float32, anyHit bool) (hit, bool) {
	closest := hit{t: tMax}
	found := false
	for objIndex, objAccel := range ctx.objects {
		if !ray.HitBBox(ctx.bboxes[objIndex], 0, closest.t) {
			continue
		}

		if objAccel.intersect(ray, &closest, anyHit) {
			found = true
			if anyHit {
				return closest, true
			}
		}
	}
	return closest, found
}

// Ray-triangle intersection using the Möller-Trumbore algorithm.
func intersectTriangle(ray types.Ray, prim *scene.Primitive) (t, u, v float32, ok bool) {
	edge1 := prim.Vertices[1].Sub(prim.Vertices[0])
	edge2 := prim.Vertices[2].Sub(prim.Vertices[0])

	h := ray.Dir.Cross(edge2)
	a := edge1.Dot(h)
	if a > -intersectEpsilon && a < intersectEpsilon {
		return 0, 0, 0, false
	}

	f := 1 / a
	s := ray.Origin.Sub(prim.Vertices[0])
	u = f * s.Dot(h)
	if u < 0 || u > 1 {
		return 0, 0, 0, false
	}

	q := s.Cross(edge1)
	v = f * ray.Dir.Dot(q)
	if v < 0 || u+v > 1 {
		return 0, 0, 0, false
	}

	t = f * edge2.Dot(q)
	if t <= rayEpsilon {
		return 0, 0, 0, false
	}
	return t, u, v, true
}
