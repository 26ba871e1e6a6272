package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"picclip/clip"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Send()
	}
}

func run() error {
	var args cliArgs
	cliCtx := kong.Parse(
		&args,
		kong.Name("picclip"),
		kong.Description("Crop images interactively in the browser or in batch."),
		kong.UsageOnError(),
	)
	if err := cliCtx.Run(); err != nil {
		return err
	}

	return nil
}

type ViewportFlags struct {
	ViewportWidth  float64 `help:"Width of the cropping viewport in pixels" default:"1000"`
	ViewportHeight float64 `help:"Height of the cropping viewport in pixels" default:"800"`
}

func (f ViewportFlags) viewport() clip.Viewport {
	return clip.Viewport{Width: f.ViewportWidth, Height: f.ViewportHeight}
}

func setupLogger(verbose bool) {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	log.Logger = log.Output(zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) {
		w.Out = os.Stderr
	})).Level(level)
	zerolog.DefaultContextLogger = &log.Logger
}

type serveCmd struct {
	ViewportFlags `embed:""`

	RootDir     string        `arg:"" help:"Root directory to serve images from"`
	OutputDir   string        `help:"Directory clipped images are written to (default: <root>/output)"`
	Open        bool          `help:"Open the browser automatically when the server starts" default:"true" negatable:""`
	Once        bool          `help:"Exit after the first successful clip" default:"false"`
	OriginDelay time.Duration `help:"Debounce delay for layout measurements" default:"500ms"`
	Verbose     bool          `help:"Enable verbose logging" default:"false"`
}

func (cmd *serveCmd) Run() error {
	setupLogger(cmd.Verbose)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	ctx = log.Logger.WithContext(ctx)

	outputDir := cmd.OutputDir
	if outputDir == "" {
		outputDir = filepath.Join(cmd.RootDir, "output")
	}

	app := NewWebApp(Config{
		RootDir:     cmd.RootDir,
		Viewport:    cmd.viewport(),
		OriginDelay: cmd.OriginDelay,
		OnBeforeShutdown: func() {
			log.Ctx(ctx).Info().Msg("Shutting down web application...")
		},
		OnReady: func(addr string) {
			log.Ctx(ctx).Info().Msgf("Server started at %s", addr)
			if cmd.Open {
				if err := openBrowser(addr); err != nil {
					log.Error().Err(err).Msg("Failed to open browser")
				}
			}
		},
		OnClip: func(reqCtx context.Context, sessionID string, info clip.ClipInfo) {
			path, err := saveClip(outputDir, info.File.Name, &info)
			if err != nil {
				log.Ctx(reqCtx).Error().Err(err).Str("session", sessionID).Msg("Failed to save clip")
			} else {
				log.Ctx(reqCtx).Info().Str("session", sessionID).Str("path", path).Msg("Saved clip")
			}

			if cmd.Once {
				cancel()
			}
		},
	})

	if err := app.Run(ctx); err != nil {
		return err
	}

	return nil
}

type cropCmd struct {
	ViewportFlags `embed:""`

	Input     string `arg:"" optional:"" help:"JSON Lines file with crop operations, read from stdin when omitted"`
	BaseDir   string `help:"Directory relative resources are resolved against" default:"."`
	OutputDir string `help:"Directory clipped images are written to" default:"output"`
	JSON      bool   `help:"Output parsed operations in JSON format without executing"`
	Verbose   bool   `help:"Enable verbose logging" default:"false"`
}

func (cmd *cropCmd) Run() error {
	setupLogger(cmd.Verbose)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	ctx = log.Logger.WithContext(ctx)

	data, err := cmd.read()
	if err != nil {
		return err
	}
	ops, err := readOperations(data)
	if err != nil {
		return fmt.Errorf("failed to parse operations: %w", err)
	}

	if cmd.JSON {
		printJSONL(ops)
		return nil
	}

	executor := &OperationExecutor{
		BaseDir:   cmd.BaseDir,
		OutputDir: cmd.OutputDir,
		Viewport:  cmd.viewport(),
	}
	return executor.Exec(ctx, ops)
}

func (cmd *cropCmd) read() ([]byte, error) {
	if cmd.Input == "" || cmd.Input == "-" {
		return io.ReadAll(os.Stdin)
	}
	data, err := os.ReadFile(cmd.Input)
	if err != nil {
		return nil, fmt.Errorf("failed to read operations: %w", err)
	}
	return data, nil
}

type cliArgs struct {
	Serve serveCmd `cmd:"" default:"withargs" help:"Serve the cropping UI for a directory of images"`
	Crop  cropCmd  `cmd:"" help:"Run crop operations without a browser"`
}

func printJSONL[T any](data []T) {
	enc := json.NewEncoder(os.Stdout)
	for _, item := range data {
		if err := enc.Encode(item); err != nil {
			log.Error().Err(err).Msg("Failed to encode item to JSON")
			continue
		}
	}
}
