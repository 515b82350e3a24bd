package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"voicepatch/internal/directive"
	"voicepatch/internal/refresh"
)

var refreshIfStale bool

// refreshCmd regenerates override artifacts on explicit trigger.
var refreshCmd = &cobra.Command{
	Use:   "refresh [lists|commands]",
	Short: "Regenerate personalization artifacts",
	Long: `Re-runs the directive pipeline for one domain, or both when no domain is
given. By default the run is unconditional (an explicit trigger always
regenerates); with --if-stale the run is skipped when no input's modification
time changed since the last committed run.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRefresh,
}

func init() {
	refreshCmd.Flags().BoolVar(&refreshIfStale, "if-stale", false, "refresh only when inputs changed since the last committed run")
}

func parseDomain(arg string) (directive.Domain, error) {
	switch arg {
	case "lists":
		return directive.Lists, nil
	case "commands":
		return directive.Commands, nil
	default:
		return "", fmt.Errorf("unknown domain %q (want lists or commands)", arg)
	}
}

func runRefresh(cmd *cobra.Command, args []string) error {
	eng, err := newEngine()
	if err != nil {
		return err
	}
	defer eng.close()

	domains := refresh.Domains
	if len(args) == 1 {
		d, err := parseDomain(args[0])
		if err != nil {
			return err
		}
		domains = []directive.Domain{d}
	}

	ctx := cmd.Context()
	for _, d := range domains {
		if refreshIfStale {
			ran, err := eng.ctl.RefreshIfStale(ctx, d)
			if err != nil {
				return err
			}
			if !ran {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: up to date\n", d)
			}
			continue
		}
		if err := eng.ctl.Refresh(ctx, d); err != nil {
			return err
		}
	}
	return nil
}
