package reader

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/achilleasa/polaris-bake/asset"
	"github.com/achilleasa/polaris-bake/asset/scene"
	"github.com/achilleasa/polaris-bake/asset/texture"
	"github.com/achilleasa/polaris-bake/log"
	"github.com/achilleasa/polaris-bake/types"
)

type wavefrontMaterial struct {
	Name string

	// Diffuse/Albedo color.
	Kd types.Vec3

	// Emissive color.
	Ke types.Vec3

	// Diffuse texture path.
	KdTex string

	// Relative path for textures.
	AssetRelPath *asset.Resource

	// True if this material is used by at least one primitive.
	Used bool
}

type wavefrontSceneReader struct {
	logger log.Logger

	// The parsed scene.
	scene *scene.Scene

	// The collection and object receiving parsed faces.
	curCollection *scene.Collection
	curObject     *scene.Object

	// A map of material names to parsed wavefront materials
	matNameToIndex map[string]int

	// Currently selected material.
	curMaterial *wavefrontMaterial

	// Parsed wavefront materials.
	materials []*wavefrontMaterial

	// List of vertices, normals and uv coords.
	vertexList []types.Vec3
	normalList []types.Vec3
	uvList     []types.Vec2

	// Scene directives referencing objects are applied once parsing completes.
	hiddenObjects []string

	// Set once the first view_layer directive replaces the default layer.
	viewLayersDefined bool

	// An error stack that provides additional error information when
	// scene files include other files (models, mat libs e.t.c)
	errStack []string
}

// Create a new text scene reader.
func newWavefrontReader() *wavefrontSceneReader {
	return &wavefrontSceneReader{
		logger:         log.New("wavefront scene reader"),
		scene:          scene.New(),
		matNameToIndex: make(map[string]int, 0),
		vertexList:     make([]types.Vec3, 0),
		normalList:     make([]types.Vec3, 0),
		uvList:         make([]types.Vec2, 0),
		errStack:       make([]string, 0),
	}
}

// Read scene definition.
func (r *wavefrontSceneReader) Read(sceneRes *asset.Resource) (*scene.Scene, error) {
	r.logger.Noticef(`parsing scene from "%s"`, sceneRes.Path())
	start := time.Now()

	// Parse scene
	err := r.parse(sceneRes)
	if err != nil {
		return nil, err
	}
	r.verifyLastParsedObject()

	for _, name := range r.hiddenObjects {
		obj, err := r.scene.Object(name)
		if err != nil {
			return nil, r.emitError(sceneRes.Path(), 0, `hide_render: %s`, err.Error())
		}
		obj.HideRender = true
	}

	// Prune unused materials and load textures for the remaining ones
	if err = r.processMaterials(); err != nil {
		return nil, err
	}

	if localPath, ok := sceneRes.LocalPath(); ok {
		r.scene.FilePath = localPath
	}

	r.logger.Noticef("parsed scene in %d ms", time.Since(start).Nanoseconds()/1e6)
	return r.scene, nil
}

// Generate scene materials for material entries that are in use and update the
// material indices for all parsed primitives.
func (r *wavefrontSceneReader) processMaterials() error {
	wfMaterialToSceneMaterial := make(map[int]int, 0)
	pruned := 0
	for wfIndex, wfMat := range r.materials {
		if !wfMat.Used {
			r.logger.Infof("skipping unused material %q", wfMat.Name)
			pruned++
			continue
		}

		mat := &scene.Material{
			Name: wfMat.Name,
			Kd:   wfMat.Kd,
			Ke:   wfMat.Ke,
		}

		if wfMat.KdTex != "" {
			texRes, err := asset.NewResource(wfMat.KdTex, wfMat.AssetRelPath)
			if err != nil {
				return r.emitError("", 0, `material "%s": could not load diffuse texture: %s`, wfMat.Name, err.Error())
			}
			mat.KdTex, err = texture.New(texRes)
			texRes.Close()
			if err != nil {
				return r.emitError("", 0, `material "%s": %s`, wfMat.Name, err.Error())
			}
		}

		r.scene.Materials = append(r.scene.Materials, mat)
		wfMaterialToSceneMaterial[wfIndex] = len(r.scene.Materials) - 1
	}

	// For each primitive, map wavefront material indices to the generated materials
	for _, coll := range r.scene.Collections {
		for _, obj := range coll.Objects {
			for primIndex := range obj.Primitives {
				prim := &obj.Primitives[primIndex]
				prim.MaterialIndex = wfMaterialToSceneMaterial[prim.MaterialIndex]
			}
		}
	}

	if pruned > 0 {
		r.logger.Noticef("pruned %d unused materials", pruned)
	}
	return nil
}

// Generate an error message that also includes any data in the error stack.
func (r *wavefrontSceneReader) emitError(file string, line int, msgFormat string, args ...interface{}) error {
	msg := fmt.Sprintf(msgFormat, args...)

	var errMsg string
	if file != "" {
		errMsg = strings.Trim(
			fmt.Sprintf("[%s: %d] error: %s\n%s", file, line, msg, strings.Join(r.errStack, "\n")),
			"\n",
		)
	} else {
		errMsg = strings.Trim(
			fmt.Sprintf("error: %s\n%s", msg, strings.Join(r.errStack, "\n")),
			"\n",
		)
	}

	return fmt.Errorf("%s", errMsg)
}

// Push a frame to the error stack.
func (r *wavefrontSceneReader) pushFrame(msg string) {
	r.errStack = append([]string{msg}, r.errStack...)
}

// Pop a frame from the error stack.
func (r *wavefrontSceneReader) popFrame() {
	r.errStack = r.errStack[1:]
}

// Create and select a default material for surfaces not using one.
func (r *wavefrontSceneReader) defaultMaterial() *wavefrontMaterial {
	matName := ""

	// Search for material in referenced list
	matIndex, exists := r.matNameToIndex[matName]
	if !exists {
		// Add it now
		r.materials = append(r.materials, &wavefrontMaterial{Kd: types.Vec3{0.7, 0.7, 0.7}})
		matIndex = len(r.materials) - 1
		r.matNameToIndex[matName] = matIndex
	}
	r.curMaterial = r.materials[matIndex]
	return r.curMaterial
}

// Get the collection receiving new objects.
func (r *wavefrontSceneReader) collection() *scene.Collection {
	if r.curCollection == nil {
		r.curCollection = r.scene.Collection(scene.DefaultCollectionName)
	}
	return r.curCollection
}

// Start a new object in the current collection.
func (r *wavefrontSceneReader) startObject(name string) {
	r.verifyLastParsedObject()

	coll := r.collection()
	r.curObject = &scene.Object{Name: name}
	coll.Objects = append(coll.Objects, r.curObject)
}

// Parse wavefront object scene format.
func (r *wavefrontSceneReader) parse(res *asset.Resource) error {
	var lineNum int = 0
	var err error

	// The main obj file may include (call) several other object files. Each
	// object file contains 1-based indices (when they are positive). By
	// tracking the current vertex/uv/normal offsets we can apply them
	// while parsing faces to select the correct coordinates.
	relVertexOffset := len(r.vertexList)
	relUvOffset := len(r.uvList)
	relNormalOffset := len(r.normalList)

	scanner := bufio.NewScanner(res)
	for scanner.Scan() {
		lineNum++
		lineTokens := strings.Fields(scanner.Text())
		if len(lineTokens) == 0 || strings.HasPrefix(lineTokens[0], "#") {
			continue
		}

		switch lineTokens[0] {
		case "call", "mtllib":
			if len(lineTokens) != 2 {
				return r.emitError(res.Path(), lineNum, `unsupported syntax for "%s"; expected 1 argument; got %d`, lineTokens[0], len(lineTokens)-1)
			}

			r.pushFrame(fmt.Sprintf("referenced from %s:%d [%s]", res.Path(), lineNum, lineTokens[0]))

			incRes, err := asset.NewResource(lineTokens[1], res)
			if err != nil {
				return r.emitError(res.Path(), lineNum, "%s", err.Error())
			}
			defer incRes.Close()

			switch lineTokens[0] {
			case "call":
				err = r.parse(incRes)
			case "mtllib":
				err = r.parseMaterials(incRes)
			}

			if err != nil {
				return err
			}
			r.popFrame()
		case "usemtl":
			if len(lineTokens) != 2 {
				return r.emitError(res.Path(), lineNum, `unsupported syntax for 'usemtl'; expected 1 argument; got %d`, len(lineTokens)-1)
			}

			// Lookup material
			matName := lineTokens[1]
			matIndex, exists := r.matNameToIndex[matName]
			if !exists {
				return r.emitError(res.Path(), lineNum, `undefined material with name "%s"`, matName)
			}

			// Activate material
			r.curMaterial = r.materials[matIndex]
		case "v":
			v, err := parseVec3(lineTokens)
			if err != nil {
				return r.emitError(res.Path(), lineNum, "%s", err.Error())
			}
			r.vertexList = append(r.vertexList, v)
		case "vn":
			v, err := parseVec3(lineTokens)
			if err != nil {
				return r.emitError(res.Path(), lineNum, "%s", err.Error())
			}
			r.normalList = append(r.normalList, v)
		case "vt":
			v, err := parseVec2(lineTokens)
			if err != nil {
				return r.emitError(res.Path(), lineNum, "%s", err.Error())
			}
			r.uvList = append(r.uvList, v)
		case "g":
			if len(lineTokens) < 2 {
				return r.emitError(res.Path(), lineNum, `unsupported syntax for "g"; expected 1 argument for collection name; got %d`, len(lineTokens)-1)
			}

			r.verifyLastParsedObject()
			r.curObject = nil
			r.curCollection = r.scene.Collection(lineTokens[1])
		case "o":
			if len(lineTokens) < 2 {
				return r.emitError(res.Path(), lineNum, `unsupported syntax for "o"; expected 1 argument for object name; got %d`, len(lineTokens)-1)
			}
			if _, err := r.scene.Object(lineTokens[1]); err == nil {
				return r.emitError(res.Path(), lineNum, `object "%s" already defined`, lineTokens[1])
			}

			r.startObject(lineTokens[1])
		case "f":
			primList, err := r.parseFace(lineTokens, relVertexOffset, relUvOffset, relNormalOffset)
			if err != nil {
				return r.emitError(res.Path(), lineNum, "%s", err.Error())
			}

			// If no object has been defined create a default one
			if r.curObject == nil {
				r.startObject("default")
			}

			r.curObject.Primitives = append(r.curObject.Primitives, primList...)
		case "camera_fov":
			r.scene.Camera.FOV, err = parseFloat32(lineTokens)
		case "camera_eye":
			r.scene.Camera.Eye, err = parseVec3(lineTokens)
		case "camera_look":
			r.scene.Camera.Look, err = parseVec3(lineTokens)
		case "camera_up":
			r.scene.Camera.Up, err = parseVec3(lineTokens)
		case "frame_range":
			var frames []int
			frames, err = parseInts(lineTokens, 2)
			if err == nil {
				r.scene.FrameStart, r.scene.FrameEnd = frames[0], frames[1]
			}
		case "frame_current":
			var frames []int
			frames, err = parseInts(lineTokens, 1)
			if err == nil {
				r.scene.FrameCurrent = frames[0]
			}
		case "resolution":
			var dims []int
			dims, err = parseInts(lineTokens, 2)
			if err == nil && (dims[0] <= 0 || dims[1] <= 0) {
				err = fmt.Errorf("resolution must be positive; got %dx%d", dims[0], dims[1])
			}
			if err == nil {
				r.scene.Render.ResolutionX, r.scene.Render.ResolutionY = uint32(dims[0]), uint32(dims[1])
			}
		case "samples":
			var samples []int
			samples, err = parseInts(lineTokens, 1)
			if err == nil && samples[0] <= 0 {
				err = fmt.Errorf("samples must be positive; got %d", samples[0])
			}
			if err == nil {
				r.scene.Render.Samples = uint32(samples[0])
			}
		case "view_layer":
			err = r.parseViewLayer(lineTokens)
		case "mist":
			err = r.parseMist(lineTokens)
		case "world_color":
			r.scene.World.Color, err = parseVec3(lineTokens)
		case "light_dir":
			var dir types.Vec3
			dir, err = parseVec3(lineTokens)
			r.scene.World.LightDir = dir.Normalize()
		case "film_transparent":
			r.scene.Render.FilmTransparent, err = parseSwitch(lineTokens)
		case "turntable":
			r.scene.TurntableStep, err = parseFloat32(lineTokens)
		case "hide_render":
			if len(lineTokens) != 2 {
				return r.emitError(res.Path(), lineNum, `unsupported syntax for "hide_render"; expected 1 argument; got %d`, len(lineTokens)-1)
			}
			r.hiddenObjects = append(r.hiddenObjects, lineTokens[1])
		case "output_path":
			if len(lineTokens) != 2 {
				return r.emitError(res.Path(), lineNum, `unsupported syntax for "output_path"; expected 1 argument; got %d`, len(lineTokens)-1)
			}
			r.scene.Render.OutputPath = lineTokens[1]
		case "transform":
			err = r.parseObjectTransform(lineTokens)
		}

		if err != nil {
			return r.emitError(res.Path(), lineNum, "%s", err.Error())
		}
	}

	return nil
}

// Drop the last parsed object if it contains no primitives.
func (r *wavefrontSceneReader) verifyLastParsedObject() {
	if r.curObject == nil {
		return
	}

	obj := r.curObject
	if len(obj.Primitives) != 0 {
		obj.UpdateBBox()
		return
	}

	r.logger.Warningf(`dropping object "%s" as it contains no polygons`, obj.Name)
	coll := r.collection()
	for index, o := range coll.Objects {
		if o == obj {
			coll.Objects = append(coll.Objects[:index], coll.Objects[index+1:]...)
			break
		}
	}
	r.curObject = nil
}

// Parse view layer definition:
// view_layer name [z] [mist]
// The first definition replaces the default view layer.
func (r *wavefrontSceneReader) parseViewLayer(lineTokens []string) error {
	if len(lineTokens) < 2 {
		return fmt.Errorf(`unsupported syntax for "view_layer"; expected at least 1 argument; got %d`, len(lineTokens)-1)
	}

	layer := &scene.ViewLayer{Name: lineTokens[1]}
	for _, pass := range lineTokens[2:] {
		switch pass {
		case "z":
			layer.UsePassZ = true
		case "mist":
			layer.UsePassMist = true
		default:
			return fmt.Errorf(`unknown pass "%s" for view layer "%s"`, pass, layer.Name)
		}
	}

	if !r.viewLayersDefined {
		r.scene.ViewLayers = r.scene.ViewLayers[:0]
		r.viewLayersDefined = true
	}

	if _, err := r.scene.ViewLayer(layer.Name); err == nil {
		return fmt.Errorf(`view layer "%s" already defined`, layer.Name)
	}
	r.scene.ViewLayers = append(r.scene.ViewLayers, layer)
	return nil
}

// Parse mist settings:
// mist start depth [linear|quadratic|inverse_quadratic]
func (r *wavefrontSceneReader) parseMist(lineTokens []string) error {
	if len(lineTokens) != 3 && len(lineTokens) != 4 {
		return fmt.Errorf(`unsupported syntax for "mist"; expected 2 or 3 arguments: start depth [falloff]; got %d`, len(lineTokens)-1)
	}

	var vals [2]float32
	for index := 1; index < 3; index++ {
		v, err := strconv.ParseFloat(lineTokens[index], 32)
		if err != nil {
			return err
		}
		vals[index-1] = float32(v)
	}
	if vals[1] < 0 {
		return fmt.Errorf("mist depth must not be negative; got %f", vals[1])
	}

	r.scene.Mist.Start, r.scene.Mist.Depth = vals[0], vals[1]
	if len(lineTokens) == 4 {
		falloff, err := scene.ParseMistFalloff(lineTokens[3])
		if err != nil {
			return err
		}
		r.scene.Mist.Falloff = falloff
	}
	return nil
}

// Parse object transform definition. Definitions use the following format:
// transform object_name tX tY tZ yaw pitch roll sX sY sZ
// where:
// - tX, tY, tZ       : translation vector
// - yaw, pitch, roll : rotation angles in degrees
// - sX, sY, sZ	      : scale
//
// The transformation is applied to the object vertices in scale, rotate,
// translate order.
func (r *wavefrontSceneReader) parseObjectTransform(lineTokens []string) error {
	if len(lineTokens) != 11 {
		return fmt.Errorf(`unsupported syntax for "transform"; expected 10 arguments: object_name tX tY tZ yaw pitch roll sX sY sZ; got %d`, len(lineTokens)-1)
	}

	obj, err := r.scene.Object(lineTokens[1])
	if err != nil {
		return err
	}

	var args [9]float32
	for index := 2; index < 11; index++ {
		v, err := strconv.ParseFloat(lineTokens[index], 32)
		if err != nil {
			return err
		}
		args[index-2] = float32(v)
	}

	translation := types.XYZ(args[0], args[1], args[2])
	rot := types.QuatFromEuler(args[3], args[4], args[5])
	scale := types.XYZ(args[6], args[7], args[8])
	invScale := types.XYZ(safeInv(scale[0]), safeInv(scale[1]), safeInv(scale[2]))

	for primIndex := range obj.Primitives {
		prim := &obj.Primitives[primIndex]
		for i := 0; i < 3; i++ {
			prim.Vertices[i] = rot.Rotate(prim.Vertices[i].MulVec(scale)).Add(translation)
			prim.Normals[i] = rot.Rotate(prim.Normals[i].MulVec(invScale)).Normalize()
		}
	}
	obj.UpdateBBox()
	return nil
}

func safeInv(v float32) float32 {
	if v == 0 {
		return 0
	}
	return 1 / v
}

// Parse face definition. Each face definitions consists of 3 arguments,
// one for each vertex. Each one of the vertex arguments is comprised of
// 1, 2 or 3 args separated by a slash character. The following formats are
// supported:
// - vertexIndex
// - vertexIndex/uvIndex
// - vertexIndex//normalIndex
// - vertexIndex/uvIndex/normalIndex
//
// Indices start from 1 and may be negative to indicate
// an offset off the end of the vertex/uv list.
//
// This method only works with triangular/quad faces and will return an error if a
// face with more than 4 vertices is encountered.
func (r *wavefrontSceneReader) parseFace(lineTokens []string, relVertexOffset, relUvOffset, relNormalOffset int) ([]scene.Primitive, error) {
	if len(lineTokens) < 4 || len(lineTokens) > 5 {
		return nil, fmt.Errorf(`unsupported syntax for "f"; expected 3 arguments for triangular face or 4 arguments for a quad face; got %d. Select the triangulation option in your exporter`, len(lineTokens)-1)
	}

	var vertices [4]types.Vec3
	var normals [4]types.Vec3
	var uv [4]types.Vec2
	var vOffset int
	var err error
	expIndices := 0
	hasNormals := false
	for arg := 0; arg < len(lineTokens)-1; arg++ {
		vTokens := strings.Split(lineTokens[arg+1], "/")

		// The first arg defines the format for the following args
		if arg == 0 {
			expIndices = len(vTokens)
		} else if len(vTokens) != expIndices {
			return nil, fmt.Errorf("expected each face argument to contain %d indices; arg %d contains %d indices", expIndices, arg, len(vTokens))
		}

		// Faces must at least define a vertex coord
		if vTokens[0] == "" {
			return nil, fmt.Errorf("face argument %d does not include a vertex index", arg)
		}

		vOffset, err = selectFaceCoordIndex(vTokens[0], len(r.vertexList), relVertexOffset)
		if err != nil {
			return nil, fmt.Errorf("could not parse vertex coord for face argument %d: %s", arg, err.Error())
		}
		vertices[arg] = r.vertexList[vOffset]

		// Parse UV coords if specified
		if expIndices > 1 && vTokens[1] != "" {
			vOffset, err = selectFaceCoordIndex(vTokens[1], len(r.uvList), relUvOffset)
			if err != nil {
				return nil, fmt.Errorf("could not parse tex coord for face argument %d: %s", arg, err.Error())
			}
			uv[arg] = r.uvList[vOffset]
		}

		// Parse normal coords if specified
		if expIndices > 2 && vTokens[2] != "" {
			vOffset, err = selectFaceCoordIndex(vTokens[2], len(r.normalList), relNormalOffset)
			if err != nil {
				return nil, fmt.Errorf("could not parse normal coord for face argument %d: %s", arg, err.Error())
			}
			normals[arg] = r.normalList[vOffset].Normalize()
			hasNormals = true
		}
	}

	// If no material defined select the default. Also flag the current material
	// as being in use so we don't prune it later.
	if r.curMaterial == nil {
		r.curMaterial = r.defaultMaterial()
	}
	r.curMaterial.Used = true

	// If no normals are available generate them from the vertices
	if !hasNormals {
		e01 := vertices[1].Sub(vertices[0])
		e02 := vertices[2].Sub(vertices[0])
		faceNormal := e01.Cross(e02).Normalize()
		normals[0] = faceNormal
		normals[1] = faceNormal
		normals[2] = faceNormal
		normals[3] = faceNormal
	}

	// Assemble vertices into one or two primitives depending on whether we are parsing a triangular or a quad face
	primitives := make([]scene.Primitive, 0, 2)
	indiceList := [][3]int{{0, 1, 2}}
	if len(lineTokens) == 5 {
		indiceList = append(indiceList, [3]int{0, 2, 3})
	}

	for _, indices := range indiceList {
		prim := scene.Primitive{MaterialIndex: r.matNameToIndex[r.curMaterial.Name]}

		// copy vertices for this triangle
		for triIndex, selectIndex := range indices {
			prim.Vertices[triIndex] = vertices[selectIndex]
			prim.Normals[triIndex] = normals[selectIndex]
			prim.UVs[triIndex] = uv[selectIndex]
		}
		primitives = append(primitives, prim)
	}

	return primitives, nil
}

// Parse a wavefront material library.
func (r *wavefrontSceneReader) parseMaterials(res *asset.Resource) error {
	var lineNum int = 0
	var err error

	r.logger.Infof(`parsing material library "%s"`, res.Path())

	scanner := bufio.NewScanner(res)

	var curMaterial *wavefrontMaterial = nil
	var matName string = ""

	for scanner.Scan() {
		lineNum++
		lineTokens := strings.Fields(scanner.Text())
		if len(lineTokens) == 0 || strings.HasPrefix(lineTokens[0], "#") {
			continue
		}

		switch lineTokens[0] {
		case "newmtl":
			if len(lineTokens) != 2 {
				return r.emitError(res.Path(), lineNum, `unsupported syntax for "newmtl"; expected 1 argument; got %d`, len(lineTokens)-1)
			}

			matName = lineTokens[1]
			if _, exists := r.matNameToIndex[matName]; exists {
				return r.emitError(res.Path(), lineNum, `material "%s" already defined`, matName)
			}

			// Allocate new material and add it to library
			curMaterial = &wavefrontMaterial{
				Name:         matName,
				AssetRelPath: res,
			}
			r.materials = append(r.materials, curMaterial)
			r.matNameToIndex[matName] = len(r.materials) - 1
		default:
			if curMaterial == nil {
				return r.emitError(res.Path(), lineNum, `got "%s" without a "newmtl"`, lineTokens[0])
			}

			switch lineTokens[0] {
			case "include":
				if len(lineTokens) < 2 {
					return r.emitError(res.Path(), lineNum, `unsupported syntax for "%s"; expected 1 argument; got %d`, lineTokens[0], len(lineTokens)-1)
				}

				baseMaterialIndex, exists := r.matNameToIndex[lineTokens[1]]
				if !exists {
					return r.emitError(res.Path(), lineNum, `could not include unknown material "%s"`, lineTokens[1])
				}

				// Overwrite material but keep the original name
				*curMaterial = *r.materials[baseMaterialIndex]
				curMaterial.Name = matName
			case "Kd":
				curMaterial.Kd, err = parseVec3(lineTokens)
			case "Ke":
				curMaterial.Ke, err = parseVec3(lineTokens)
			case "map_Kd":
				if len(lineTokens) < 2 {
					return r.emitError(res.Path(), lineNum, `unsupported syntax for "%s"; expected 1 argument; got %d`, lineTokens[0], len(lineTokens)-1)
				}
				curMaterial.KdTex = lineTokens[len(lineTokens)-1]
			default:
				r.logger.Debugf(`[%s: %d] ignoring unsupported material directive "%s"`, res.Path(), lineNum, lineTokens[0])
			}

			// Report any errors
			if err != nil {
				return r.emitError(res.Path(), lineNum, "%s", err.Error())
			}
		}
	}

	return nil
}

// Given an index for a face coord type (vertex, normal, tex) calculate the
// proper offset into the coord list. Wavefront format can also use negative
// indices to reference elements from the end of the coord list.
func selectFaceCoordIndex(indexToken string, coordListLen int, relOffset int) (int, error) {
	index, err := strconv.ParseInt(indexToken, 10, 32)
	if err != nil {
		return -1, err
	}

	var vOffset int = 0
	if index < 0 {
		vOffset = coordListLen + int(index)
	} else {
		vOffset = relOffset + int(index-1)
	}
	if vOffset < 0 || vOffset >= coordListLen {
		return -1, fmt.Errorf("index out of bounds")
	}
	return vOffset, nil
}

// Parse a float scalar value.
func parseFloat32(lineTokens []string) (float32, error) {
	if len(lineTokens) < 2 {
		return 0, fmt.Errorf(`unsupported syntax for "%s"; expected 1 argument; got %d`, lineTokens[0], len(lineTokens)-1)
	}

	val, err := strconv.ParseFloat(lineTokens[1], 32)
	if err != nil {
		return 0, err
	}

	return float32(val), nil
}

// Parse a fixed number of integer arguments.
func parseInts(lineTokens []string, count int) ([]int, error) {
	if len(lineTokens) != count+1 {
		return nil, fmt.Errorf(`unsupported syntax for "%s"; expected %d arguments; got %d`, lineTokens[0], count, len(lineTokens)-1)
	}

	vals := make([]int, count)
	for index := 0; index < count; index++ {
		v, err := strconv.Atoi(lineTokens[index+1])
		if err != nil {
			return nil, err
		}
		vals[index] = v
	}
	return vals, nil
}

// Parse an on/off switch.
func parseSwitch(lineTokens []string) (bool, error) {
	if len(lineTokens) != 2 {
		return false, fmt.Errorf(`unsupported syntax for "%s"; expected 1 argument; got %d`, lineTokens[0], len(lineTokens)-1)
	}

	switch lineTokens[1] {
	case "on", "true", "1":
		return true, nil
	case "off", "false", "0":
		return false, nil
	}
	return false, fmt.Errorf(`invalid value "%s" for "%s"; expected on or off`, lineTokens[1], lineTokens[0])
}

// Parse a Vec3 row.
func parseVec3(lineTokens []string) (types.Vec3, error) {
	if len(lineTokens) < 4 {
		return types.Vec3{}, fmt.Errorf(`unsupported syntax for "%s"; expected 3 arguments; got %d`, lineTokens[0], len(lineTokens)-1)
	}

	v := types.Vec3{}
	for tokIdx := 1; tokIdx <= 3; tokIdx++ {
		coord, err := strconv.ParseFloat(lineTokens[tokIdx], 32)
		if err != nil {
			return v, err
		}
		v[tokIdx-1] = float32(coord)
	}
	return v, nil
}

// Parse a Vec2 row.
func parseVec2(lineTokens []string) (types.Vec2, error) {
	if len(lineTokens) < 3 {
		return types.Vec2{}, fmt.Errorf(`unsupported syntax for "%s"; expected 2 arguments; got %d`, lineTokens[0], len(lineTokens)-1)
	}

	v := types.Vec2{}
	for tokIdx := 1; tokIdx <= 2; tokIdx++ {
		coord, err := strconv.ParseFloat(lineTokens[tokIdx], 32)
		if err != nil {
			return v, err
		}
		v[tokIdx-1] = float32(coord)
	}
	return v, nil
}
