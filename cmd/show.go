package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"trustscore/internal/bootstrap"
	domainreliability "trustscore/internal/domain/reliability"
	"trustscore/internal/errs"
	"trustscore/internal/usecase/reliability"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	badgeStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
)

var badgeColors = map[domainreliability.Badge]lipgloss.Color{
	domainreliability.BadgeExcellent: lipgloss.Color("34"),
	domainreliability.BadgeGood:      lipgloss.Color("214"),
	domainreliability.BadgePoor:      lipgloss.Color("160"),
}

func renderBadge(b domainreliability.Badge) string {
	color, ok := badgeColors[b]
	if !ok {
		return string(b)
	}
	return badgeStyle.Foreground(lipgloss.Color("231")).Background(color).Render(strings.ToUpper(string(b)))
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the stored reliability summary and field scores of an entity",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *reliability.Service) error {
		kind, err := requiredModelFlag(cmd)
		if err != nil {
			return err
		}
		id, _ := cmd.Flags().GetString("id")

		detail, err := svc.Detail(cmd.Context(), domainreliability.NewEntityRef(kind, id))
		if err != nil {
			return errs.Wrap(err, "load summary")
		}
		s := detail.Summary

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s  %s\n", titleStyle.Render(s.Ref.String()), renderBadge(detail.Badge))
		fmt.Fprintln(out, dimStyle.Render(fmt.Sprintf("%s, last calculated %s by %s", s.ScoringVersion, s.LastCalculated, s.LastSource)))

		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "total_score\t%s\n", formatScore(s.TotalScore))
		fmt.Fprintf(w, "completeness\t%.2f%%\n", s.CompletenessPercent)
		fmt.Fprintf(w, "updated_by\t%s\n", valueOr(s.UpdatedByService, valueOr(s.UpdatedByUserID, "-")))
		fmt.Fprintln(w, "")
		fmt.Fprintln(w, "field\tscore\tweight\tnotes")
		for _, f := range detail.Fields {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", f.Field, formatScore(f.Score), formatScore(f.Weight), f.Notes)
		}
		return errs.Wrap(w.Flush(), "write show output")
	}),
}

func init() {
	rootCmd.AddCommand(showCmd)

	addModelFlag(showCmd, true)
	showCmd.Flags().String("id", "", "Entity id")
	_ = showCmd.MarkFlagRequired("id")
}
