package cmd

import (
	"errors"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	domainreliability "trustscore/internal/domain/reliability"
	"trustscore/internal/usecase/reliability"
)

func addModelFlag(cmd *cobra.Command, required bool) {
	kinds := make([]string, 0, len(domainreliability.KnownModelKinds()))
	for _, kind := range domainreliability.KnownModelKinds() {
		kinds = append(kinds, kind.String())
	}
	cmd.Flags().String("model", "", "Model kind: "+strings.Join(kinds, ", "))
	if required {
		_ = cmd.MarkFlagRequired("model")
	}
}

// modelFlag returns the --model kind, or "" when the flag is unset.
func modelFlag(cmd *cobra.Command) (domainreliability.ModelKind, error) {
	raw, _ := cmd.Flags().GetString("model")
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}
	return domainreliability.ParseModelKind(raw)
}

func requiredModelFlag(cmd *cobra.Command) (domainreliability.ModelKind, error) {
	kind, err := modelFlag(cmd)
	if err != nil {
		return "", err
	}
	if kind == "" {
		return "", errors.New("--model is required")
	}
	return kind, nil
}

func addActorFlags(cmd *cobra.Command) {
	cmd.Flags().String("source", domainreliability.DefaultSource, "Recalculation source")
	cmd.Flags().String("actor-user", "", "Acting user id")
	cmd.Flags().String("actor-service", "cli:recalc", "Acting service name")
	cmd.Flags().String("message", "", "Audit log message")
}

func recalcContextFromFlags(cmd *cobra.Command) reliability.RecalcContext {
	source, _ := cmd.Flags().GetString("source")
	user, _ := cmd.Flags().GetString("actor-user")
	service, _ := cmd.Flags().GetString("actor-service")
	message, _ := cmd.Flags().GetString("message")
	return reliability.RecalcContext{
		Source:       source,
		ActorUserID:  &user,
		ActorService: &service,
		Message:      message,
	}
}

func formatScore(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func formatOptionalScore(f *float64) string {
	if f == nil {
		return "-"
	}
	return formatScore(*f)
}

func valueOr(v *string, def string) string {
	if v == nil || *v == "" {
		return def
	}
	return *v
}
