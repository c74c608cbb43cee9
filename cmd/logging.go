package cmd

import (
	"fmt"

	"github.com/achilleasa/polaris-bake/log"
	"github.com/urfave/cli"
)

var logger = log.New("polaris-bake")

// Raise the log level when -v or -vv is set. Without these flags the level
// stays at notice until a configured log_level is applied.
func setupLogging(ctx *cli.Context) {
	switch {
	case ctx.GlobalBool("vv"):
		log.SetLevel(log.Debug)
	case ctx.GlobalBool("v"):
		log.SetLevel(log.Info)
	}
}

// Apply the configured log level unless verbose logging was requested on
// the command line.
func applyLogLevel(ctx *cli.Context, cfg Config) error {
	if cfg.LogLevel == "" || ctx.GlobalBool("v") || ctx.GlobalBool("vv") {
		return nil
	}

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	log.SetLevel(level)
	return nil
}
