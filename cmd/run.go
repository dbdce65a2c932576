package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/newopenings-crawler/internal/crawler"
)

// newRunCmd creates the 'run' subcommand.
func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run discovery and reconciliation once",
		Long: `Runs the source chain once, merges the results into the store and records a
run log, exactly as a scheduled refresh would.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			event, err := appInstance.RunNow(cmd.Context(), crawler.TriggerManual)
			if err != nil {
				return err
			}
			appInstance.GetLogger().Info("run command finished", zap.String("run_id", event.RunID))
			fmt.Fprintf(cmd.OutOrStdout(), "%s (source: %s, pruned: %d)\n", event.Message, event.Source, event.Pruned)
			return nil
		},
	}
}
