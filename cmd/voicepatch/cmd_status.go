package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"voicepatch/internal/refresh"
	"voicepatch/internal/state"
)

// statusCmd reports per-domain personalization state.
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show personalization state and recent run outcomes",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	eng, err := newEngine()
	if err != nil {
		return err
	}
	defer eng.close()

	out := cmd.OutOrStdout()

	enabled := "disabled"
	style := styleDisabled
	if eng.cfg.EnablePersonalization {
		enabled = "enabled"
		style = styleOK
	}
	fmt.Fprintf(out, "%s %s (%s)\n", styleTitle.Render("personalization:"), style.Render(enabled), eng.cfg.Root)

	for _, domain := range refresh.Domains {
		fmt.Fprintf(out, "\n%s\n", styleTitle.Render(string(domain)))

		run, err := eng.store.LastRun(string(domain))
		if err != nil {
			return err
		}
		if run == nil {
			fmt.Fprintf(out, "%s %s\n", styleKey.Render("last run"), styleDisabled.Render("never"))
			continue
		}

		outcome := run.Outcome
		switch outcome {
		case state.OutcomeCommitted:
			outcome = styleOK.Render(outcome)
		case state.OutcomeFailed:
			outcome = styleBad.Render(outcome)
		default:
			outcome = styleDisabled.Render(outcome)
		}

		fmt.Fprintf(out, "%s %s\n", styleKey.Render("outcome"), outcome)
		fmt.Fprintf(out, "%s %s\n", styleKey.Render("finished"), run.Finished.Format("2006-01-02 15:04:05"))
		fmt.Fprintf(out, "%s %d\n", styleKey.Render("artifacts"), run.Artifacts)
		if run.Errors > 0 || run.Warnings > 0 {
			fmt.Fprintf(out, "%s %s\n", styleKey.Render("problems"),
				styleWarn.Render(fmt.Sprintf("%d errors, %d warnings", run.Errors, run.Warnings)))
			msgs, err := eng.store.RecentMessages(string(domain), 5)
			if err != nil {
				return err
			}
			for _, msg := range msgs {
				fmt.Fprintf(out, "%s %s\n", styleKey.Render(""), strings.TrimSpace(msg))
			}
		}
	}
	return nil
}
