package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// enableCmd turns personalization on and regenerates everything.
var enableCmd = &cobra.Command{
	Use:   "enable",
	Short: "Enable personalization and regenerate all artifacts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return setEnabled(cmd, true)
	},
}

// disableCmd turns personalization off and removes emitted artifacts.
var disableCmd = &cobra.Command{
	Use:   "disable",
	Short: "Disable personalization and remove emitted artifacts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return setEnabled(cmd, false)
	},
}

func setEnabled(cmd *cobra.Command, enabled bool) error {
	eng, err := newEngine()
	if err != nil {
		return err
	}
	defer eng.close()

	eng.cfg.EnablePersonalization = enabled
	if err := eng.cfg.Save(); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	eng.ctl.UpdateConfig(eng.cfg)

	if err := eng.ctl.SetEnabled(cmd.Context(), enabled); err != nil {
		return err
	}
	if enabled {
		fmt.Fprintln(cmd.OutOrStdout(), styleOK.Render("personalization enabled"))
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), styleDisabled.Render("personalization disabled, artifacts removed"))
	}
	return nil
}
