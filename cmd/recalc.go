package cmd

import (
	"fmt"
	"log/slog"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"trustscore/internal/bootstrap"
	"trustscore/internal/bootstrap/logging"
	domainreliability "trustscore/internal/domain/reliability"
	"trustscore/internal/errs"
	"trustscore/internal/infrastructure/snapshot"
	"trustscore/internal/usecase/reliability"
)

var recalcCmd = &cobra.Command{
	Use:   "recalc",
	Short: "Recalculate and persist reliability scores from an entity snapshot file",
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App, svc *reliability.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		kind, err := modelFlag(cmd)
		if err != nil {
			return err
		}
		file, _ := cmd.Flags().GetString("file")
		onlyID, _ := cmd.Flags().GetString("id")
		concurrency, _ := cmd.Flags().GetInt("concurrency")
		if concurrency <= 0 {
			concurrency = app.Config.Reliability.BatchConcurrency
		}

		records, err := snapshot.LoadFile(file, kind)
		if err != nil {
			return errs.Wrap(err, "load entities")
		}
		entities := make([]domainreliability.Scorable, 0, len(records))
		for _, r := range records {
			if onlyID != "" && strings.TrimSpace(r.ID) != strings.TrimSpace(onlyID) {
				continue
			}
			entities = append(entities, r)
		}
		if len(entities) == 0 {
			return fmt.Errorf("no entities to recalculate in %s", file)
		}

		rc := recalcContextFromFlags(cmd)
		out := cmd.OutOrStdout()

		if len(entities) == 1 {
			outcome, err := svc.Recalculate(ctx, entities[0], rc)
			if err != nil {
				logging.Error(ctx, "recalculate failed", slog.Any("err", errs.Loggable(err)))
				return errs.Wrap(err, "recalculate")
			}
			_, err = fmt.Fprintf(out, "%s: %s -> %s (completeness %.2f%%, %s)\n",
				outcome.Summary.Ref,
				previousScore(outcome.Previous),
				formatScore(outcome.Summary.TotalScore),
				outcome.Summary.CompletenessPercent,
				outcome.Summary.ScoringVersion,
			)
			return errs.Wrap(err, "write recalc output")
		}

		result, err := svc.RecalculateBatch(ctx, entities, rc, concurrency)
		if err != nil {
			return errs.Wrap(err, "recalculate batch")
		}

		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "processed\t%d\n", result.Processed)
		fmt.Fprintf(w, "failed\t%d\n", result.Failed)
		if len(result.Failures) > 0 {
			fmt.Fprintln(w, "")
			fmt.Fprintln(w, "entity\terror")
			for _, f := range result.Failures {
				fmt.Fprintf(w, "%s\t%v\n", f.Ref, f.Err)
			}
		}
		if err := w.Flush(); err != nil {
			return errs.Wrap(err, "write recalc output")
		}
		if result.Failed > 0 {
			return fmt.Errorf("%d of %d entities failed", result.Failed, len(entities))
		}
		return nil
	}),
}

func previousScore(prev *domainreliability.Summary) string {
	if prev == nil {
		return "new"
	}
	return formatScore(prev.TotalScore)
}

func init() {
	rootCmd.AddCommand(recalcCmd)

	addModelFlag(recalcCmd, false)
	addActorFlags(recalcCmd)
	recalcCmd.Flags().String("file", "", "Entity snapshot file (.yaml, .toml or .json)")
	recalcCmd.Flags().String("id", "", "Only recalculate the entity with this id")
	recalcCmd.Flags().Int("concurrency", 0, "Parallel recalculations (default reliability.batch_concurrency)")
	_ = recalcCmd.MarkFlagRequired("file")
}
