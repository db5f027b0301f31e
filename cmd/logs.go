package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"trustscore/internal/bootstrap"
	"trustscore/internal/errs"
	"trustscore/internal/ports"
	"trustscore/internal/usecase/reliability"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "List reliability audit log entries",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *reliability.Service) error {
		kind, err := requiredModelFlag(cmd)
		if err != nil {
			return err
		}
		filter := ports.AuditLogFilter{Kind: kind}
		filter.ID, _ = cmd.Flags().GetString("id")
		filter.Source, _ = cmd.Flags().GetString("source")
		filter.Since, _ = cmd.Flags().GetString("since")
		filter.Limit, _ = cmd.Flags().GetInt("limit")
		filter.NewestFirst, _ = cmd.Flags().GetBool("newest-first")

		entries, err := svc.ListLogs(cmd.Context(), filter)
		if err != nil {
			return errs.Wrap(err, "list logs")
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "created\tentity\tfrom\tto\tdelta\tsource\tactor\tmessage")
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				e.Created,
				e.Ref,
				formatOptionalScore(e.FromTotalScore),
				formatScore(e.ToTotalScore),
				formatOptionalScore(e.Delta()),
				e.Source,
				valueOr(e.ActorService, valueOr(e.ActorUserID, "-")),
				e.Message,
			)
		}
		return errs.Wrap(w.Flush(), "write logs output")
	}),
}

func init() {
	rootCmd.AddCommand(logsCmd)

	addModelFlag(logsCmd, true)
	logsCmd.Flags().String("id", "", "Only entries of this entity")
	logsCmd.Flags().String("source", "", "Only entries with this source")
	logsCmd.Flags().String("since", "", "Only entries created at or after this RFC3339 time")
	logsCmd.Flags().Int("limit", 50, "Maximum entries (0 for all)")
	logsCmd.Flags().Bool("newest-first", true, "Order newest entries first")
}
