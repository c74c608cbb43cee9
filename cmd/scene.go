package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/achilleasa/polaris-bake/asset/scene"
	"github.com/achilleasa/polaris-bake/asset/scene/reader"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
)

// Display scene info and the objects that a batch render would process.
func ShowSceneInfo(ctx *cli.Context) error {
	setupLogging(ctx)

	if ctx.NArg() != 1 {
		return errors.New("missing scene file argument")
	}

	sceneFile := ctx.Args().First()
	if !strings.HasSuffix(sceneFile, ".obj") && !strings.HasSuffix(sceneFile, ".zip") {
		return errors.New("only scene files with a .obj or .zip extension are supported")
	}

	sc, err := reader.ReadScene(sceneFile)
	if err != nil {
		return err
	}

	logger.Noticef("scene information:\n%s", sc.Stats())
	logger.Noticef("scene objects:\n%s", objectTable(sc))
	return nil
}

func objectTable(sc *scene.Scene) string {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Collection", "Object", "Primitives", "Hidden"})
	for _, coll := range sc.Collections {
		for _, obj := range coll.Objects {
			table.Append([]string{
				coll.Name,
				obj.Name,
				fmt.Sprintf("%d", len(obj.Primitives)),
				fmt.Sprintf("%t", obj.HideRender),
			})
		}
	}
	table.SetFooter([]string{"", "", "FRAMES", fmt.Sprintf("%d-%d", sc.FrameStart, sc.FrameEnd)})

	table.Render()
	return buf.String()
}
