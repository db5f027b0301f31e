package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"trustscore/internal/bootstrap"
	"trustscore/internal/errs"
	"trustscore/internal/infrastructure/snapshot"
	"trustscore/internal/usecase/reliability"
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Preview reliability scores of an entity snapshot without saving",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *reliability.Service) error {
		kind, err := modelFlag(cmd)
		if err != nil {
			return err
		}
		file, _ := cmd.Flags().GetString("file")

		records, err := snapshot.LoadFile(file, kind)
		if err != nil {
			return errs.Wrap(err, "load entities")
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		for i, record := range records {
			eval, err := svc.Preview(cmd.Context(), record)
			if err != nil {
				return errs.Wrapf(err, "preview %s", record.Ref())
			}
			if i > 0 {
				fmt.Fprintln(w, "")
			}
			fmt.Fprintf(w, "entity\t%s\n", eval.Ref)
			fmt.Fprintf(w, "total_score\t%s\n", formatScore(eval.Aggregate.TotalScore))
			fmt.Fprintf(w, "completeness\t%.2f%%\n", eval.Aggregate.CompletenessPercent)
			fmt.Fprintf(w, "badge\t%s\n", renderBadge(eval.Badge))
			fmt.Fprintf(w, "severity\t%s\n", eval.Severity)
			fmt.Fprintf(w, "scoring_version\t%s\n", eval.ScoringVersion)
			fmt.Fprintln(w, "field\tscore\tweight\tweighted\tnotes")
			for _, c := range eval.Contributions {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", c.Field, formatScore(c.Score), formatScore(c.Weight), formatScore(c.Weighted), c.Notes)
			}
		}
		return errs.Wrap(w.Flush(), "write score output")
	}),
}

func init() {
	rootCmd.AddCommand(scoreCmd)

	addModelFlag(scoreCmd, false)
	scoreCmd.Flags().String("file", "", "Entity snapshot file (.yaml, .toml or .json)")
	_ = scoreCmd.MarkFlagRequired("file")
}
