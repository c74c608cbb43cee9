package scene

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/achilleasa/polaris-bake/asset/texture"
	"github.com/achilleasa/polaris-bake/compositor"
	"github.com/achilleasa/polaris-bake/types"
	"github.com/olekukonko/tablewriter"
)

const (
	// The collection that receives objects defined before any group.
	DefaultCollectionName = "Collection"

	// The view layer created for scenes that do not define one.
	DefaultViewLayerName = "ViewLayer"
)

var (
	ErrUnknownViewLayer = errors.New("scene: unknown view layer")
	ErrUnknownObject    = errors.New("scene: unknown object")
)

// A triangle primitive in world space.
type Primitive struct {
	Vertices      [3]types.Vec3
	Normals       [3]types.Vec3
	UVs           [3]types.Vec2
	MaterialIndex int
}

// An object is a named set of primitives that can be excluded from renders.
type Object struct {
	Name       string
	Primitives []Primitive

	// True if the object is excluded from renders.
	HideRender bool

	// World-space AABB.
	BBox [2]types.Vec3
}

// Recalculate the object AABB from its primitives.
func (o *Object) UpdateBBox() {
	o.BBox = types.EmptyBBox()
	for _, prim := range o.Primitives {
		for _, v := range prim.Vertices {
			o.BBox[0] = types.MinVec3(o.BBox[0], v)
			o.BBox[1] = types.MaxVec3(o.BBox[1], v)
		}
	}
}

// Get the center of the object AABB.
func (o *Object) Center() types.Vec3 {
	return o.BBox[0].Add(o.BBox[1]).Mul(0.5)
}

// A collection groups objects under a name.
type Collection struct {
	Name    string
	Objects []*Object
}

// A surface material.
type Material struct {
	Name string

	// Diffuse color and optional texture modulating it.
	Kd    types.Vec3
	KdTex *texture.Texture

	// Emissive color.
	Ke types.Vec3
}

// The mist falloff curve.
type MistFalloff uint8

const (
	MistQuadratic MistFalloff = iota
	MistLinear
	MistInverseQuadratic
)

// Parse a falloff name as used in scene files.
func ParseMistFalloff(name string) (MistFalloff, error) {
	switch name {
	case "quadratic":
		return MistQuadratic, nil
	case "linear":
		return MistLinear, nil
	case "inverse_quadratic":
		return MistInverseQuadratic, nil
	}
	return MistQuadratic, fmt.Errorf("scene: unknown mist falloff %q", name)
}

// Mist settings map the distance from the camera to a [0, 1] intensity.
type Mist struct {
	Start   float32
	Depth   float32
	Falloff MistFalloff
}

// Get the mist intensity for a hit at the given distance from the camera.
func (m Mist) Intensity(dist float32) float32 {
	if m.Depth <= 0 {
		if dist > m.Start {
			return 1
		}
		return 0
	}

	f := (dist - m.Start) / m.Depth
	if f < 0 {
		f = 0
	} else if f > 1 {
		f = 1
	}

	switch m.Falloff {
	case MistQuadratic:
		return f * f
	case MistInverseQuadratic:
		return float32(math.Sqrt(float64(f)))
	}
	return f
}

// A view layer selects which render passes are produced.
type ViewLayer struct {
	Name        string
	UsePassZ    bool
	UsePassMist bool
}

// World settings.
type World struct {
	// Background color.
	Color types.Vec3

	// Direction towards the sun light and its intensity.
	LightDir       types.Vec3
	LightIntensity float32

	// Ambient term applied to all diffuse surfaces.
	Ambient float32
}

// Render settings.
type RenderSettings struct {
	ResolutionX uint32
	ResolutionY uint32

	// Samples per pixel.
	Samples uint32

	// Render a transparent background instead of the world color.
	FilmTransparent bool

	// Optional output path template for still renders.
	OutputPath string
}

// Camera settings.
type Camera struct {
	// Vertical field of view in degrees.
	FOV  float32
	Eye  types.Vec3
	Look types.Vec3
	Up   types.Vec3
}

// The scene contains the collections, settings and compositor node tree that
// a render session operates on.
type Scene struct {
	// Absolute path of the file this scene was loaded from. It is empty for
	// scenes that have not been saved to the local filesystem.
	FilePath string

	Collections []*Collection
	Materials   []*Material
	ViewLayers  []*ViewLayer

	Camera *Camera
	World  World
	Mist   Mist
	Render RenderSettings

	FrameStart   int
	FrameEnd     int
	FrameCurrent int

	// Camera orbit around its look point in degrees per frame.
	TurntableStep float32

	// True if rendering runs the compositor node tree.
	UseNodes bool

	nodeTree *compositor.NodeTree
}

// Create a new scene with default settings.
func New() *Scene {
	return &Scene{
		Collections: make([]*Collection, 0),
		Materials:   make([]*Material, 0),
		ViewLayers:  []*ViewLayer{{Name: DefaultViewLayerName, UsePassZ: true}},
		Camera: &Camera{
			FOV:  45.0,
			Eye:  types.Vec3{0, 0, 0},
			Look: types.Vec3{0, 0, -1},
			Up:   types.Vec3{0, 1, 0},
		},
		World: World{
			Color:          types.Vec3{0.05, 0.05, 0.05},
			LightDir:       types.Vec3{0.5, 1, 0.75}.Normalize(),
			LightIntensity: 1.0,
			Ambient:        0.15,
		},
		Mist: Mist{Start: 5, Depth: 25, Falloff: MistQuadratic},
		Render: RenderSettings{
			ResolutionX:     512,
			ResolutionY:     512,
			Samples:         4,
			FilmTransparent: true,
		},
		FrameStart:   1,
		FrameEnd:     250,
		FrameCurrent: 1,
	}
}

// Get the compositor node tree, creating an empty one if required.
func (sc *Scene) NodeTree() *compositor.NodeTree {
	if sc.nodeTree == nil {
		sc.nodeTree = compositor.NewNodeTree()
	}
	return sc.nodeTree
}

// Lookup a view layer by name.
func (sc *Scene) ViewLayer(name string) (*ViewLayer, error) {
	for _, layer := range sc.ViewLayers {
		if layer.Name == name {
			return layer, nil
		}
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownViewLayer, name)
}

// Lookup an object by name.
func (sc *Scene) Object(name string) (*Object, error) {
	for _, coll := range sc.Collections {
		for _, obj := range coll.Objects {
			if obj.Name == name {
				return obj, nil
			}
		}
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownObject, name)
}

// Get the collection with the given name, creating it if it does not exist.
func (sc *Scene) Collection(name string) *Collection {
	for _, coll := range sc.Collections {
		if coll.Name == name {
			return coll
		}
	}
	coll := &Collection{Name: name, Objects: make([]*Object, 0)}
	sc.Collections = append(sc.Collections, coll)
	return coll
}

// Get the number of objects in all collections.
func (sc *Scene) ObjectCount() int {
	count := 0
	for _, coll := range sc.Collections {
		count += len(coll.Objects)
	}
	return count
}

// Get the camera as positioned for a particular frame. Turntable scenes orbit
// the eye around the look point.
func (sc *Scene) CameraAt(frame int) Camera {
	cam := *sc.Camera
	if sc.TurntableStep == 0 {
		return cam
	}

	angle := float32(frame-sc.FrameStart) * sc.TurntableStep
	rot := types.QuatFromAxisAngle(cam.Up, angle*math.Pi/180.0)
	cam.Eye = cam.Look.Add(rot.Rotate(cam.Eye.Sub(cam.Look)))
	return cam
}

// Build a tabular representation of scene statistics.
func (sc *Scene) Stats() string {
	var triangles, textures int
	for _, coll := range sc.Collections {
		for _, obj := range coll.Objects {
			triangles += len(obj.Primitives)
		}
	}
	for _, mat := range sc.Materials {
		if mat.KdTex != nil {
			textures++
		}
	}

	layerNames := make([]string, 0, len(sc.ViewLayers))
	for _, layer := range sc.ViewLayers {
		layerNames = append(layerNames, layer.Name)
	}

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Setting", "Value"})
	table.Append([]string{"Collections", fmt.Sprintf("%d", len(sc.Collections))})
	table.Append([]string{"Objects", fmt.Sprintf("%d", sc.ObjectCount())})
	table.Append([]string{"Triangles", fmt.Sprintf("%d", triangles)})
	table.Append([]string{"Materials", fmt.Sprintf("%d", len(sc.Materials))})
	table.Append([]string{"Textures", fmt.Sprintf("%d", textures)})
	table.Append([]string{"Frame range", fmt.Sprintf("%d - %d", sc.FrameStart, sc.FrameEnd)})
	table.Append([]string{"Resolution", fmt.Sprintf("%dx%d", sc.Render.ResolutionX, sc.Render.ResolutionY)})
	table.Append([]string{"Samples", fmt.Sprintf("%d", sc.Render.Samples)})
	table.Append([]string{"View layers", strings.Join(layerNames, ", ")})
	table.Render()
	return buf.String()
}
