package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"trustscore/internal/bootstrap"
	domainreliability "trustscore/internal/domain/reliability"
	"trustscore/internal/errs"
	"trustscore/internal/usecase/reliability"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Summarize stored reliability scores and audit activity of a model",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *reliability.Service) error {
		kind, err := requiredModelFlag(cmd)
		if err != nil {
			return err
		}
		var opts reliability.ReportOptions
		opts.TopLimit, _ = cmd.Flags().GetInt("limit")
		opts.MinTopScore, _ = cmd.Flags().GetFloat64("min-score")
		opts.AttentionScore, _ = cmd.Flags().GetFloat64("attention-score")
		opts.AttentionCompleteness, _ = cmd.Flags().GetFloat64("attention-completeness")
		opts.SignificantDelta, _ = cmd.Flags().GetFloat64("min-delta")

		report, err := svc.Report(cmd.Context(), kind, opts)
		if err != nil {
			return errs.Wrap(err, "build report")
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "metric\tvalue")
		fmt.Fprintf(w, "entities\t%d\n", report.Stats.Count)
		fmt.Fprintf(w, "avg_score\t%.3f\n", report.Stats.AvgScore)
		fmt.Fprintf(w, "min_score\t%.3f\n", report.Stats.MinScore)
		fmt.Fprintf(w, "max_score\t%.3f\n", report.Stats.MaxScore)
		fmt.Fprintf(w, "avg_completeness\t%.2f%%\n", report.Stats.AvgCompleteness)

		fmt.Fprintln(w, "\nscoring_version\tcount")
		for _, v := range report.Versions {
			fmt.Fprintf(w, "%s\t%d\n", v.ScoringVersion, v.Count)
		}

		fmt.Fprintln(w, "\nfield\tcount\tavg\tmin\tmax\tavg_weight")
		for _, f := range report.Fields {
			fmt.Fprintf(w, "%s\t%d\t%.3f\t%.3f\t%.3f\t%.3f\n", f.Field, f.Count, f.AvgScore, f.MinScore, f.MaxScore, f.AvgWeight)
		}

		writeSummaries(w, "top_scoring", report.TopScoring)
		writeSummaries(w, "needing_attention", report.NeedingAttention)

		fmt.Fprintln(w, "\nsignificant_change\tfrom\tto\tcreated")
		for _, e := range report.SignificantChanges {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.Ref, formatOptionalScore(e.FromTotalScore), formatScore(e.ToTotalScore), e.Created)
		}

		fmt.Fprintln(w, "\ntrend\tcount")
		fmt.Fprintf(w, "%s\t%d\n", domainreliability.TrendImprovement, report.Trends.Improvement)
		fmt.Fprintf(w, "%s\t%d\n", domainreliability.TrendDegradation, report.Trends.Degradation)
		fmt.Fprintf(w, "%s\t%d\n", domainreliability.TrendNoChange, report.Trends.NoChange)

		fmt.Fprintln(w, "\nsource\tcount")
		for _, a := range report.Activity {
			fmt.Fprintf(w, "%s\t%d\n", a.Source, a.Count)
		}
		return errs.Wrap(w.Flush(), "write report output")
	}),
}

func writeSummaries(w *tabwriter.Writer, title string, items []domainreliability.Summary) {
	fmt.Fprintf(w, "\n%s\tscore\tcompleteness\n", title)
	for _, s := range items {
		fmt.Fprintf(w, "%s\t%s\t%.2f%%\n", s.Ref.ID, formatScore(s.TotalScore), s.CompletenessPercent)
	}
}

func init() {
	rootCmd.AddCommand(reportCmd)

	addModelFlag(reportCmd, true)
	reportCmd.Flags().Int("limit", reliability.DefaultReportLimit, "Rows per ranked section")
	reportCmd.Flags().Float64("min-score", 0, "Lowest score listed as top scoring")
	reportCmd.Flags().Float64("attention-score", reliability.DefaultAttentionScore, "Scores below this need attention")
	reportCmd.Flags().Float64("attention-completeness", reliability.DefaultAttentionCompleteness, "Completeness below this needs attention")
	reportCmd.Flags().Float64("min-delta", reliability.DefaultSignificantDelta, "Smallest score change reported as significant")
}
