package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/ouchmyfoot/legopile/internal/config"
	"github.com/ouchmyfoot/legopile/internal/logging"
	"github.com/ouchmyfoot/legopile/internal/orchestrator"
	"github.com/ouchmyfoot/legopile/internal/target"
	"github.com/ouchmyfoot/legopile/internal/util"
	"github.com/ouchmyfoot/legopile/internal/version"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// newApp builds the CLI application with its full flag and command
// surface. Tests run the same wiring.
func newApp() *cli.App {
	return &cli.App{
		Name:    version.Name,
		Usage:   version.Description,
		Version: version.Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "config.yaml",
				Usage:   "Path to configuration file",
			},
			&cli.StringFlag{
				Name:  "verbosity",
				Value: "info",
				Usage: "Log level: debug, info, warn, error",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Value: "text",
				Usage: "Log format: text or json",
			},
			&cli.StringFlag{
				Name:  "run-id",
				Usage: "Run identifier (generated when empty)",
			},
			&cli.BoolFlag{
				Name:  "output-json",
				Usage: "Print the run result as JSON to stdout",
			},
			&cli.StringFlag{
				Name:  "output-file",
				Usage: "Write the run result JSON to a file",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "Reduce the raw Rebrickable tables into the pile CSV",
				Action: runReduce,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "raw-dir",
						Usage: "Directory holding the raw Rebrickable tables",
					},
					&cli.StringFlag{
						Name:  "out",
						Usage: "Output CSV path",
					},
					&cli.Int64Flag{
						Name:  "max-rows",
						Usage: "Output row cap (0 disables the cap)",
					},
					&cli.StringFlag{
						Name:  "exclude-categories",
						Usage: "Comma-separated part category names to skip",
					},
					&cli.BoolFlag{
						Name:  "explode",
						Usage: "Write one row per physical piece",
					},
					&cli.BoolFlag{
						Name:  "no-progress",
						Usage: "Disable the progress bar",
					},
				},
			},
			{
				Name:   "validate",
				Usage:  "Validate a produced pile CSV",
				Action: runValidate,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "file",
						Usage: "File to validate (defaults to the configured output)",
					},
					&cli.StringFlag{
						Name:  "raw-dir",
						Usage: "Cross-check rows against the raw tables in this directory",
					},
				},
			},
			{
				Name:   "schema",
				Usage:  "Print the output column schema",
				Action: showSchema,
			},
			{
				Name:   "init",
				Usage:  "Write a starter configuration file",
				Action: initConfig,
			},
		},
	}
}

// loadConfig reads the file named by --config. The default file may be
// absent, in which case env overrides on top of built-in defaults
// apply; an explicitly named file must exist.
func loadConfig(c *cli.Context) (*config.Config, error) {
	path := c.String("config")
	cfg, err := config.Load(path)
	if err != nil {
		if !c.IsSet("config") && errors.Is(err, os.ErrNotExist) {
			return config.FromEnv()
		}
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// setupLogging applies log settings, letting --verbosity and
// --log-format override the config file.
func setupLogging(c *cli.Context, cfg *config.Config) error {
	levelName := cfg.Log.Level
	if c.IsSet("verbosity") {
		levelName = c.String("verbosity")
	}
	level, err := logging.ParseLevel(levelName)
	if err != nil {
		return err
	}
	logging.SetLevel(level)

	format := cfg.Log.Format
	if c.IsSet("log-format") {
		format = c.String("log-format")
	}
	if format != "text" && format != "json" {
		return fmt.Errorf("invalid log format %q", format)
	}
	logging.SetFormat(format)
	return nil
}

// applyRunFlags copies run command flag overrides onto the config.
func applyRunFlags(c *cli.Context, cfg *config.Config) {
	if c.IsSet("raw-dir") {
		cfg.RawDir = c.String("raw-dir")
	}
	if c.IsSet("out") {
		cfg.Output = c.String("out")
	}
	if c.IsSet("max-rows") {
		n := c.Int64("max-rows")
		cfg.MaxRows = &n
	}
	if c.IsSet("exclude-categories") {
		names := util.SplitCSV(c.String("exclude-categories"))
		if names == nil {
			names = []string{}
		}
		cfg.ExcludeCategories = names
	}
	if c.IsSet("explode") {
		cfg.Explode = c.Bool("explode")
	}
	if c.Bool("no-progress") {
		off := false
		cfg.Progress = &off
	}
}

func runReduce(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	applyRunFlags(c, cfg)
	if err := setupLogging(c, cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	// Handle graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Println("\nInterrupted. Discarding partial output...")
		cancel()
	}()

	result, err := orchestrator.New(cfg).Run(ctx, c.String("run-id"))
	if err != nil {
		return err
	}

	if err := outputJSON(c, result); err != nil {
		return err
	}
	if !c.Bool("output-json") {
		orchestrator.PrintSummary(result)
	}
	return nil
}

func runValidate(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if c.IsSet("raw-dir") {
		cfg.RawDir = c.String("raw-dir")
	}
	if err := setupLogging(c, cfg); err != nil {
		return err
	}

	path := cfg.Output
	if c.IsSet("file") {
		path = c.String("file")
	}

	return orchestrator.New(cfg).Validate(context.Background(), path, c.IsSet("raw-dir"))
}

func showSchema(c *cli.Context) error {
	fmt.Println(strings.Join(target.Columns, ","))
	return nil
}

func initConfig(c *cli.Context) error {
	path := c.String("config")
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}

	if err := os.WriteFile(path, []byte(config.DefaultYAML), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	fmt.Printf("Wrote %s\n", path)
	return nil
}

// outputJSON emits the run result as JSON to stdout and/or a file,
// controlled by --output-json and --output-file.
func outputJSON(c *cli.Context, result *orchestrator.RunResult) error {
	if !c.Bool("output-json") && !c.IsSet("output-file") {
		return nil
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling result: %w", err)
	}

	if c.Bool("output-json") {
		fmt.Println(string(data))
	}
	if path := c.String("output-file"); path != "" {
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("writing result file: %w", err)
		}
	}
	return nil
}
