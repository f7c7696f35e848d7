package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/germanamz/colorking/pkg/colorkingdir"
	"github.com/germanamz/colorking/pkg/drawing"
	"github.com/germanamz/colorking/pkg/engine"
	"github.com/germanamz/colorking/pkg/imagegen"
)

type initOptions struct {
	kind     string
	baseURL  string
	pageSize string
	style    string
	force    bool
}

func newInitCmd(g *globalFlags) *cobra.Command {
	o := &initOptions{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the colorking directory with a config file",
		Long: `init creates the colorking directory (local state, prints, .gitignore)
and writes config.yaml. Without --kind it asks for the settings interactively.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if o.kind == "" {
				if err := initForm(o).Run(); err != nil {
					return err
				}
			}

			path, err := runInit(g.dir, o)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Initialized %s\n", path)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&o.kind, "kind", "", "image provider: openai, replicate, or proxy")
	f.StringVar(&o.baseURL, "base-url", "", "provider base URL (required for proxy)")
	f.StringVar(&o.pageSize, "page-size", string(drawing.PageA4), "default page size (A4 or A3)")
	f.StringVar(&o.style, "outline-style", string(imagegen.StyleSimple), "outline style (simple, detailed, artistic)")
	f.BoolVar(&o.force, "force", false, "overwrite an existing config file")

	return cmd
}

func initForm(o *initOptions) *huh.Form {
	kinds := make([]huh.Option[string], 0, 3)
	for _, k := range engine.KnownProviderKinds() {
		kinds = append(kinds, huh.NewOption(k, k))
	}

	styles := make([]huh.Option[string], 0, 3)
	for _, s := range imagegen.KnownOutlineStyles() {
		styles = append(styles, huh.NewOption(s, s))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Image provider").
				Description("Used once you enable it with `colorking key`.").
				Options(kinds...).
				Value(&o.kind),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Proxy base URL").
				Placeholder("https://<project>.supabase.co").
				Value(&o.baseURL).
				Validate(func(s string) error {
					if s == "" {
						return errors.New("a base URL is required for the proxy")
					}
					return nil
				}),
		).WithHideFunc(func() bool { return o.kind != "proxy" }),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Default page size").
				Options(huh.NewOption("A4", string(drawing.PageA4)), huh.NewOption("A3", string(drawing.PageA3))).
				Value(&o.pageSize),
			huh.NewSelect[string]().
				Title("Outline style").
				Options(styles...).
				Value(&o.style),
		),
	)
}

// runInit creates the directory layout and writes the config, returning the
// config path.
func runInit(dirPath string, o *initOptions) (string, error) {
	d := colorkingdir.New(dirPath)

	if _, err := os.Stat(d.ConfigPath()); err == nil && !o.force {
		return "", fmt.Errorf("%s already exists (use --force to overwrite)", d.ConfigPath())
	}

	cfg := engine.DefaultConfig()
	cfg.Provider.Kind = o.kind
	cfg.Provider.BaseURL = o.baseURL
	cfg.Print.PageSize = o.pageSize
	cfg.Drawings.OutlineStyle = o.style

	if err := cfg.Validate(); err != nil {
		return "", err
	}

	if err := colorkingdir.EnsureStructure(d); err != nil {
		return "", err
	}

	if err := engine.SaveConfig(d.ConfigPath(), cfg); err != nil {
		return "", err
	}

	return d.ConfigPath(), nil
}
