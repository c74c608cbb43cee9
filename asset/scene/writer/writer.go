package writer

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/achilleasa/polaris-bake/asset/scene"
)

// The Writer interface is implemented by all scene writers.
type Writer interface {
	// Write the scene to its destination.
	Write(*scene.Scene) error
}

// Write a compiled scene. The output format is selected by the file
// extension; only .zip archives are supported.
func WriteScene(sc *scene.Scene, filename string) error {
	if sc == nil {
		return fmt.Errorf("writeScene: no scene to write to %s", filename)
	}

	var writer Writer
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".zip":
		writer = newZipSceneWriter(filename)
	default:
		return fmt.Errorf("writeScene: unsupported file format %q", filepath.Ext(filename))
	}
	return writer.Write(sc)
}
