package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/germanamz/colorking/cmd/colorking/internal/tui"
	"github.com/germanamz/colorking/pkg/colorkingdir"
	"github.com/germanamz/colorking/pkg/engine"
)

// globalFlags are shared by every command.
type globalFlags struct {
	dir      string
	config   string
	logLevel string
	logFile  string
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}

	cmd := &cobra.Command{
		Use:   "colorking",
		Short: "Turn a description into a printable coloring page",
		Long: `colorking walks you through describing a drawing, choosing one of the
generated drawings, picking an outline version, adjusting print settings,
and saving a print-ready PDF.

With no AI provider enabled the wizard uses demo drawings.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWizard(cmd.Context(), g)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&g.dir, "dir", colorkingdir.DefaultName, "path to the colorking directory")
	pf.StringVar(&g.config, "config", "", "path to a config file (default: <dir>/config.yaml)")
	pf.StringVar(&g.logLevel, "log-level", "", "log level override (debug, info, warn, error)")
	pf.StringVar(&g.logFile, "log-file", "", "log destination override (a path, or stderr)")

	cmd.AddCommand(
		newInitCmd(g),
		newKeyCmd(g),
		newGenerateCmd(g),
		newServeCmd(g),
	)

	return cmd
}

// loadConfig resolves configuration and applies the logging flags.
func loadConfig(g *globalFlags) (engine.Config, error) {
	cfg, err := engine.LoadConfig(colorkingdir.New(g.dir), g.config)
	if err != nil {
		return engine.Config{}, err
	}

	if g.logLevel != "" {
		cfg.Log.Level = g.logLevel
	}
	if g.logFile != "" {
		cfg.Log.File = g.logFile
	}

	return cfg, nil
}

func newLogger(cfg engine.Config, fallback string) (*zap.Logger, error) {
	path := cfg.Log.File
	if path == "" {
		path = fallback
	}

	return engine.NewLogger(cfg.Log.Level, path)
}

// openEngine loads configuration and builds the engine, logging to the
// directory's log file unless overridden.
func openEngine(ctx context.Context, g *globalFlags) (*engine.Engine, *zap.Logger, error) {
	cfg, err := loadConfig(g)
	if err != nil {
		return nil, nil, err
	}

	log, err := newLogger(cfg, colorkingdir.New(g.dir).LogPath())
	if err != nil {
		return nil, nil, err
	}

	eng, err := engine.New(ctx, cfg, engine.WithLogger(log))
	if err != nil {
		_ = log.Sync()
		return nil, nil, err
	}

	return eng, log, nil
}

func runWizard(ctx context.Context, g *globalFlags) error {
	eng, log, err := openEngine(ctx, g)
	if err != nil {
		return err
	}
	defer func() {
		_ = eng.Close()
		_ = log.Sync()
	}()

	model := tui.New(ctx, eng.Store(), eng, tui.Options{})

	if _, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil {
		return fmt.Errorf("wizard: %w", err)
	}

	return nil
}
