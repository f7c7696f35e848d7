package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

func newKeyCmd(g *globalFlags) *cobra.Command {
	var (
		apiKey  string
		enable  bool
		disable bool
	)

	cmd := &cobra.Command{
		Use:   "key",
		Short: "Set the provider API key and turn the provider on or off",
		Long: `key stores the image provider's API key on this machine and sets whether
the wizard uses it. Without flags it asks interactively.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if enable && disable {
				return errors.New("--enable and --disable are mutually exclusive")
			}

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
			s := store.Snapshot()
			key, enabled := s.ProviderCredential, s.ProviderEnabled

			interactive := !cmd.Flags().Changed("key") && !enable && !disable
			if interactive {
				if err := keyForm(&key, &enabled).Run(); err != nil {
					return err
				}
			} else {
				if cmd.Flags().Changed("key") {
					key = apiKey
				}
				if enable || disable {
					enabled = enable
				}
			}

			if err := store.SetProviderCredential(ctx, key); err != nil {
				return err
			}
			if err := store.SetProviderEnabled(ctx, enabled); err != nil {
				return err
			}

			state := "disabled"
			if enabled {
				state = "enabled"
			}
			masked := "not set"
			if k := strings.TrimSpace(key); k != "" {
				masked = mask(k)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Provider %s, key %s\n", state, masked)

			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&apiKey, "key", "", "API key to store (empty removes it)")
	f.BoolVar(&enable, "enable", false, "use the provider")
	f.BoolVar(&disable, "disable", false, "use demo drawings instead of the provider")

	return cmd
}

func keyForm(key *string, enabled *bool) *huh.Form {
	return huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title("API key").
			Description("Stored on this machine only. Leave empty to remove it.").
			EchoMode(huh.EchoModePassword).
			Value(key),
		huh.NewConfirm().
			Title("Use the AI provider?").
			Affirmative("Yes").
			Negative("No, use demo drawings").
			Value(enabled),
	))
}

// mask keeps the last four characters of a key.
func mask(key string) string {
	if len(key) <= 4 {
		return strings.Repeat("•", len(key))
	}

	return strings.Repeat("•", 4) + key[len(key)-4:]
}
