package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/achilleasa/polaris-bake/batch"
	"github.com/achilleasa/polaris-bake/host"
	"github.com/achilleasa/polaris-bake/renderer"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
)

// Render every object of a scene in isolation.
func RenderObjects(ctx *cli.Context) error {
	setupLogging(ctx)

	if ctx.NArg() != 1 {
		return errors.New("missing scene file argument")
	}
	sceneFile := ctx.Args().First()

	cfg, err := loadConfig(ctx, sceneFile)
	if err != nil {
		return err
	}
	if err = applyLogLevel(ctx, cfg); err != nil {
		return err
	}

	filter, err := batch.ParseFilter(cfg.Only)
	if err != nil {
		return err
	}

	session, err := host.Open(sceneFile, host.Options{
		Tracers: cfg.Tracers,
		Renderer: renderer.Options{
			FrameW:          cfg.Width,
			FrameH:          cfg.Height,
			SamplesPerPixel: cfg.Samples,
		},
	})
	if err != nil {
		return err
	}
	defer session.Close()

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	runner := batch.New(session, batch.Options{
		OutputPrefix: cfg.OutputPrefix,
		ViewLayer:    cfg.ViewLayer,
		Console:      os.Stdout,
		Filter:       filter,
	})
	summary, err := runner.Run(runCtx)
	if summary != nil {
		displaySummary(summary)
		if summary.Frames != 0 {
			displayFrameStats(session.Stats())
		}
	}

	return err
}

func displaySummary(summary *batch.Summary) {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Objects", "Frames", "Files", "Elapsed"})
	table.Append([]string{
		fmt.Sprintf("%d", summary.Objects),
		fmt.Sprintf("%d", summary.Frames),
		fmt.Sprintf("%d", len(summary.Files)),
		summary.Elapsed.String(),
	})

	table.Render()
	logger.Noticef("batch summary\n%s", buf.String())
}

func displayFrameStats(stats renderer.FrameStats) {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Tracer", "Block height", "% of frame", "Render time"})
	for _, stat := range stats.Tracers {
		table.Append([]string{
			stat.Id,
			fmt.Sprintf("%d", stat.BlockH),
			fmt.Sprintf("%02.1f %%", stat.FramePercent),
			stat.RenderTime.String(),
		})
	}
	table.SetFooter([]string{"", "", "TOTAL", stats.RenderTime.String()})

	table.Render()
	logger.Noticef("last frame (%d) statistics\n%s", stats.Frame, buf.String())
}
