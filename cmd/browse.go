package cmd

import (
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"trustscore/internal/bootstrap"
	"trustscore/internal/bootstrap/logging"
	"trustscore/internal/errs"
	"trustscore/internal/usecase/reliability"
	"trustscore/internal/usecase/reliabilityconsole"
)

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Browse stored reliability scores interactively",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *reliability.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		kind, err := requiredModelFlag(cmd)
		if err != nil {
			return err
		}
		limit, _ := cmd.Flags().GetInt("limit")
		refreshInterval, _ := cmd.Flags().GetDuration("refresh-interval")

		model := reliabilityconsole.NewModel(ctx, svc, reliabilityconsole.Options{
			Kind:            kind,
			Limit:           limit,
			RefreshInterval: refreshInterval,
		})

		program := tea.NewProgram(model, tea.WithAltScreen())
		if _, err := program.Run(); err != nil {
			return errs.Wrap(err, "run reliability console")
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(browseCmd)

	addModelFlag(browseCmd, true)
	browseCmd.Flags().Int("limit", reliability.DefaultReportLimit, "Entities per view")
	browseCmd.Flags().Duration("refresh-interval", 10*time.Second, "Auto refresh interval")
}
