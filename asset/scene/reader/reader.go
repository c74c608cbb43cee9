package reader

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/achilleasa/polaris-bake/asset"
	"github.com/achilleasa/polaris-bake/asset/scene"
)

// The Reader interface is implemented by all scene readers.
type Reader interface {
	// Read scene definition from a resource.
	Read(*asset.Resource) (*scene.Scene, error)
}

// Read scene from file.
func ReadScene(filename string) (*scene.Scene, error) {
	res, err := asset.NewResource(filename, nil)
	if err != nil {
		return nil, err
	}
	defer res.Close()

	// Select reader based on file extension
	var reader Reader
	switch strings.ToLower(filepath.Ext(res.RemotePath())) {
	case ".obj":
		reader = newWavefrontReader()
	case ".zip":
		reader = newZipSceneReader()
	default:
		return nil, fmt.Errorf("readScene: unsupported file format %q", filepath.Ext(filename))
	}
	return reader.Read(res)
}
