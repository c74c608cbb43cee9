package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/achilleasa/polaris-bake/batch"
	"github.com/joho/godotenv"
	"github.com/urfave/cli"
	"gopkg.in/yaml.v3"
)

const (
	// Config file looked up next to the scene file when --config is not specified.
	defaultConfigFile = "polaris-bake.yaml"

	// Prefix for environment variables overriding config file values.
	envPrefix = "POLARIS_BAKE_"
)

// Render settings. Values are layered as: defaults, config file, .env file
// next to the scene, environment and finally command line flags.
type Config struct {
	OutputPrefix string `yaml:"output_prefix"`
	ViewLayer    string `yaml:"view_layer"`
	Tracers      int    `yaml:"tracers"`
	Width        uint32 `yaml:"width"`
	Height       uint32 `yaml:"height"`
	Samples      uint32 `yaml:"samples"`
	Only         string `yaml:"only"`
	LogLevel     string `yaml:"log_level"`
}

func defaultConfig() Config {
	return Config{
		OutputPrefix: batch.DefaultOutputPrefix,
		ViewLayer:    batch.DefaultViewLayer,
		Tracers:      1,
	}
}

// Load the render config for a scene file.
func loadConfig(ctx *cli.Context, sceneFile string) (Config, error) {
	cfg, err := readConfig(sceneFile, ctx.GlobalString("config"), environment(sceneFile))
	if err != nil {
		return cfg, err
	}

	applyFlags(ctx, &cfg)
	if cfg.Tracers <= 0 {
		return cfg, fmt.Errorf("config: tracers must be positive; got %d", cfg.Tracers)
	}
	return cfg, nil
}

// Build the config from the defaults, the config file and the environment.
// If configFile is empty the default config file next to the scene is used
// when present.
func readConfig(sceneFile, configFile string, env map[string]string) (Config, error) {
	cfg := defaultConfig()

	mustExist := configFile != ""
	if !mustExist {
		configFile = filepath.Join(filepath.Dir(sceneFile), defaultConfigFile)
	}

	f, err := os.Open(configFile)
	switch {
	case err == nil:
		defer f.Close()
		dec := yaml.NewDecoder(f)
		dec.KnownFields(true)
		if err = dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return cfg, fmt.Errorf("config: could not parse %s: %w", configFile, err)
		}
		logger.Infof("loaded config from %s", configFile)
	case mustExist || !os.IsNotExist(err):
		return cfg, fmt.Errorf("config: %w", err)
	}

	if err = applyEnv(&cfg, env); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Collect the config variables from the .env file next to the scene file
// and the process environment. The process environment takes precedence.
func environment(sceneFile string) map[string]string {
	env := make(map[string]string)
	dotEnv, err := godotenv.Read(filepath.Join(filepath.Dir(sceneFile), ".env"))
	if err == nil {
		for key, value := range dotEnv {
			if strings.HasPrefix(key, envPrefix) {
				env[key] = value
			}
		}
	}

	for _, entry := range os.Environ() {
		if key, value, found := strings.Cut(entry, "="); found && strings.HasPrefix(key, envPrefix) {
			env[key] = value
		}
	}
	return env
}

func applyEnv(cfg *Config, env map[string]string) error {
	var err error
	for key, value := range env {
		switch strings.TrimPrefix(key, envPrefix) {
		case "OUT_PREFIX":
			cfg.OutputPrefix = value
		case "VIEW_LAYER":
			cfg.ViewLayer = value
		case "ONLY":
			cfg.Only = value
		case "LOG_LEVEL":
			cfg.LogLevel = value
		case "TRACERS":
			cfg.Tracers, err = strconv.Atoi(value)
		case "WIDTH":
			cfg.Width, err = parseUint32(value)
		case "HEIGHT":
			cfg.Height, err = parseUint32(value)
		case "SAMPLES":
			cfg.Samples, err = parseUint32(value)
		default:
			logger.Warningf("ignoring unknown environment variable %s", key)
		}

		if err != nil {
			return fmt.Errorf("config: invalid value %q for %s: %w", value, key, err)
		}
	}
	return nil
}

// Override config values with any flags explicitly set on the command line.
func applyFlags(ctx *cli.Context, cfg *Config) {
	if ctx.IsSet("out-prefix") {
		cfg.OutputPrefix = ctx.String("out-prefix")
	}
	if ctx.IsSet("view-layer") {
		cfg.ViewLayer = ctx.String("view-layer")
	}
	if ctx.IsSet("only") {
		cfg.Only = ctx.String("only")
	}
	if ctx.IsSet("tracers") {
		cfg.Tracers = ctx.Int("tracers")
	}
	if ctx.IsSet("width") {
		cfg.Width = uint32(ctx.Uint("width"))
	}
	if ctx.IsSet("height") {
		cfg.Height = uint32(ctx.Uint("height"))
	}
	if ctx.IsSet("samples") {
		cfg.Samples = uint32(ctx.Uint("samples"))
	}
}

func parseUint32(value string) (uint32, error) {
	v, err := strconv.ParseUint(value, 10, 32)
	return uint32(v), err
}
