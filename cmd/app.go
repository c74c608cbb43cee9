package cmd

import "github.com/urfave/cli"

// Create the polaris-bake cli application.
func NewApp() *cli.App {
	cli.VersionFlag = cli.BoolFlag{
		Name:  "version",
		Usage: "print only the version",
	}

	app := cli.NewApp()
	app.Name = "polaris-bake"
	app.Usage = "render per-object color and mist image sequences"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable even more verbose logging",
		},
		cli.StringFlag{
			Name:   "config, c",
			Usage:  "load render settings from a yaml file (default: polaris-bake.yaml next to the scene)",
			EnvVar: "POLARIS_BAKE_CONFIG",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:  "render",
			Usage: "render every scene object in isolation",
			Description: `
Render each object of each scene collection on its own for every frame of the
scene frame range. All other objects are hidden from the render while an object
is processed and their visibility is restored afterwards.

For each frame two images are written below the scene file directory:

  <out-prefix>/<collection>/diffuse/<object>_<frame>.png (8-bit RGBA)
  <out-prefix>/<collection>/mist/<object>_<frame>.png    (16-bit grayscale)`,
			ArgsUsage: "scene_file.obj|scene_file.zip",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "out-prefix, o",
					Usage: "output dir relative to the scene file dir (default: resources/textures/objects)",
				},
				cli.StringFlag{
					Name:  "view-layer",
					Usage: "view layer used for the mist pass (default: ViewLayer)",
				},
				cli.StringFlag{
					Name:  "only",
					Usage: "only render objects matching a [collection/]object glob",
				},
				cli.IntFlag{
					Name:  "tracers, t",
					Usage: "number of cpu tracers used for rendering each frame (default: 1)",
				},
				cli.UintFlag{
					Name:  "width",
					Usage: "frame width (default: scene resolution)",
				},
				cli.UintFlag{
					Name:  "height",
					Usage: "frame height (default: scene resolution)",
				},
				cli.UintFlag{
					Name:  "samples, spp",
					Usage: "samples per pixel (default: scene samples)",
				},
			},
			Action: RenderObjects,
		},
		{
			Name:      "info",
			Usage:     "display scene information and the objects that will be rendered",
			ArgsUsage: "scene_file.obj|scene_file.zip",
			Action:    ShowSceneInfo,
		},
		{
			Name:  "compile",
			Usage: "compile text scene representation into a binary compressed format",
			Description: `
Parse a scene definition from a wavefront obj file and write it to a zip archive
which can be supplied as an argument to the render command.`,
			ArgsUsage: "scene_file1.obj scene_file2.obj ...",
			Action:    CompileScene,
		},
	}

	return app
}
