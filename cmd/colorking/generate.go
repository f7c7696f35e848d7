package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/germanamz/colorking/pkg/drawing"
)

type generateOptions struct {
	drawingID string
	outlineID string
	pageSize  string
	thickness string
	color     string
	copies    int
}

func newGenerateCmd(g *globalFlags) *cobra.Command {
	o := &generateOptions{}

	cmd := &cobra.Command{
		Use:   "generate <description>",
		Short: "Run the wizard without the UI and save the PDF",
		Long: `generate runs every wizard step in order: it generates drawings for the
description, converts the chosen drawing to outlines, applies the print
settings, and saves the PDF under <dir>/prints.`,
		Example: `  colorking generate "a cat in a crown" --page-size A3 --copies 2`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			eng, log, err := openEngine(ctx, g)
			if err != nil {
				return err
			}
			defer func() {
				_ = eng.Close()
				_ = log.Sync()
			}()

			store := eng.Store()
			out := cmd.OutOrStdout()
			description := strings.Join(args, " ")

			prog := newProgress(eng.Events(), cmd.ErrOrStderr())
			defer prog.close()

			err = store.GenerateDrawingOptions(ctx, description)
			prog.flush()
			if err != nil {
				return fmt.Errorf("generate drawings: %w", err)
			}
			printOptions(cmd, "Drawings", store.Snapshot().DrawingOptions, o.drawingID)

			err = store.GenerateOutlineOptions(ctx, o.drawingID)
			prog.flush()
			if err != nil {
				return fmt.Errorf("generate outlines: %w", err)
			}
			printOptions(cmd, "Outlines", store.Snapshot().OutlineOptions, o.outlineID)

			if err := store.SelectOutline(o.outlineID); err != nil {
				return err
			}

			ps, err := o.printSettings(cmd, store.Snapshot().PrintSettings)
			if err != nil {
				return err
			}
			if err := store.SetPrintSettings(ps); err != nil {
				return err
			}

			path, err := eng.PrintToFile(ctx)
			prog.flush()
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "Saved %s (%s, %d %s)\n", path, ps.PageSize, ps.Copies, plural(ps.Copies, "copy", "copies"))

			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&o.drawingID, "drawing", "1", "id of the drawing to convert")
	f.StringVar(&o.outlineID, "outline", "1", "id of the outline to print")
	f.StringVar(&o.pageSize, "page-size", "", "page size (A4 or A3)")
	f.StringVar(&o.thickness, "thickness", "", "outline thickness (thin, medium, thick)")
	f.StringVar(&o.color, "color", "", "outline color (black, gray, blue)")
	f.IntVar(&o.copies, "copies", 0, fmt.Sprintf("number of copies (%d-%d)", drawing.MinCopies, drawing.MaxCopies))

	return cmd
}

// printSettings overlays the flags that were set onto base.
func (o *generateOptions) printSettings(cmd *cobra.Command, base drawing.PrintSettings) (drawing.PrintSettings, error) {
	ps := base
	flags := cmd.Flags()

	if flags.Changed("page-size") {
		v, err := drawing.ParsePageSize(o.pageSize)
		if err != nil {
			return ps, err
		}
		ps.PageSize = v
	}
	if flags.Changed("thickness") {
		v, err := drawing.ParseOutlineThickness(o.thickness)
		if err != nil {
			return ps, err
		}
		ps.OutlineThickness = v
	}
	if flags.Changed("color") {
		v, err := drawing.ParseOutlineColor(o.color)
		if err != nil {
			return ps, err
		}
		ps.OutlineColor = v
	}
	if flags.Changed("copies") {
		ps.Copies = o.copies
	}

	return ps, ps.Validate()
}

func printOptions(cmd *cobra.Command, title string, opts []drawing.ImageOption, chosen string) {
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "%s:\n", title)
	for _, o := range opts {
		marker := " "
		if o.ID == chosen {
			marker = "*"
		}
		fmt.Fprintf(out, " %s %s. %s\n", marker, o.ID, o.Alt)
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}

	return many
}

