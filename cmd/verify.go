package cmd

import (
	"fmt"
	"log/slog"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"trustscore/internal/bootstrap"
	"trustscore/internal/bootstrap/logging"
	"trustscore/internal/errs"
	"trustscore/internal/usecase/reliability"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Recompute audit log checksums and report mismatches",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *reliability.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		kind, err := requiredModelFlag(cmd)
		if err != nil {
			return err
		}
		id, _ := cmd.Flags().GetString("id")
		limit, _ := cmd.Flags().GetInt("limit")

		report, err := svc.VerifyLogs(ctx, kind, id, limit)
		if err != nil {
			return errs.Wrap(err, "verify logs")
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "verified\t%d\n", report.Verified)
		fmt.Fprintf(w, "failed\t%d\n", report.Failed)
		if len(report.Failures) > 0 {
			fmt.Fprintln(w, "")
			fmt.Fprintln(w, "log_id\tentity\tcreated\texpected\tcomputed")
			for _, f := range report.Failures {
				computed := f.Computed
				if f.Err != nil {
					computed = f.Err.Error()
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", f.LogID, f.Ref, f.Created, f.Expected, computed)
			}
		}
		if err := w.Flush(); err != nil {
			return errs.Wrap(err, "write verify output")
		}

		if report.Failed > 0 {
			logging.Warn(ctx, "audit log checksum mismatches", slog.Int("failed", report.Failed))
			return fmt.Errorf("%d audit log entries failed verification", report.Failed)
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	addModelFlag(verifyCmd, true)
	verifyCmd.Flags().String("id", "", "Only verify entries of this entity")
	verifyCmd.Flags().Int("limit", 0, "Verify the newest N entries (0 for all)")
}
