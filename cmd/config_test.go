package cmd

import (
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/achilleasa/polaris-bake/asset/scene"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli"
)

func writeFile(t *testing.T, file, content string) {
	require.NoError(t, os.WriteFile(file, []byte(content), 0644))
}

func TestReadConfigDefaults(t *testing.T) {
	cfg, err := readConfig(filepath.Join(t.TempDir(), "scene.obj"), "", nil)
	require.NoError(t, err)
	assert.Equal(t, defaultConfig(), cfg)
	assert.Equal(t, "resources/textures/objects", cfg.OutputPrefix)
	assert.Equal(t, "ViewLayer", cfg.ViewLayer)
	assert.Equal(t, 1, cfg.Tracers)
}

func TestReadConfigFileNextToScene(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, defaultConfigFile), `
output_prefix: textures/baked
view_layer: Bake
tracers: 4
width: 64
height: 32
`)

	cfg, err := readConfig(filepath.Join(dir, "scene.obj"), "", map[string]string{
		"POLARIS_BAKE_TRACERS": "2",
		"POLARIS_BAKE_ONLY":    "Props/*",
	})
	require.NoError(t, err)

	exp := Config{
		OutputPrefix: "textures/baked",
		ViewLayer:    "Bake",
		Tracers:      2,
		Width:        64,
		Height:       32,
		Only:         "Props/*",
	}
	assert.Equal(t, exp, cfg)
}

func TestReadConfigErrors(t *testing.T) {
	dir := t.TempDir()
	sceneFile := filepath.Join(dir, "scene.obj")

	_, err := readConfig(sceneFile, filepath.Join(dir, "missing.yaml"), nil)
	assert.Error(t, err, "expected an error for a missing explicit config file")

	badFile := filepath.Join(dir, "bad.yaml")
	writeFile(t, badFile, "unknown_key: 1\n")
	_, err = readConfig(sceneFile, badFile, nil)
	assert.Error(t, err, "expected an error for unknown config keys")

	_, err = readConfig(sceneFile, "", map[string]string{"POLARIS_BAKE_WIDTH": "wide"})
	assert.Error(t, err, "expected an error for a non-numeric width")

	emptyFile := filepath.Join(dir, "empty.yaml")
	writeFile(t, emptyFile, "")
	cfg, err := readConfig(sceneFile, emptyFile, nil)
	require.NoError(t, err)
	assert.Equal(t, defaultConfig(), cfg)
}

func TestEnvironment(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".env"), "POLARIS_BAKE_VIEW_LAYER=FromDotEnv\nPOLARIS_BAKE_SAMPLES=8\nOTHER=1\n")
	t.Setenv("POLARIS_BAKE_SAMPLES", "16")

	env := environment(filepath.Join(dir, "scene.obj"))
	assert.Equal(t, "FromDotEnv", env["POLARIS_BAKE_VIEW_LAYER"])
	assert.Equal(t, "16", env["POLARIS_BAKE_SAMPLES"])
	assert.NotContains(t, env, "OTHER")
}

func TestApplyFlags(t *testing.T) {
	set := flag.NewFlagSet("render", flag.ContinueOnError)
	set.String("out-prefix", "", "")
	set.String("view-layer", "", "")
	set.String("only", "", "")
	set.Int("tracers", 0, "")
	set.Uint("width", 0, "")
	set.Uint("height", 0, "")
	set.Uint("samples", 0, "")
	require.NoError(t, set.Parse([]string{"--view-layer", "Flags", "--samples", "32", "scene.obj"}))
	ctx := cli.NewContext(cli.NewApp(), set, nil)

	cfg := defaultConfig()
	cfg.Tracers = 3
	applyFlags(ctx, &cfg)

	assert.Equal(t, "Flags", cfg.ViewLayer)
	assert.Equal(t, uint32(32), cfg.Samples)
	assert.Equal(t, 3, cfg.Tracers, "unset flags must not override config values")
	assert.Equal(t, "resources/textures/objects", cfg.OutputPrefix)
}

func TestObjectTable(t *testing.T) {
	sc := scene.New()
	sc.FrameStart, sc.FrameEnd = 1, 3
	props := sc.Collection("Props")
	props.Objects = append(props.Objects, &scene.Object{Name: "Chair", HideRender: true})

	table := objectTable(sc)
	for _, exp := range []string{"Collection", "Props", "Chair", "true", "1-3"} {
		assert.True(t, strings.Contains(table, exp), "expected table to contain %q:\n%s", exp, table)
	}
}
