package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"clawcraft.app/relay/common/id"
	"clawcraft.app/relay/common/logger"
	"clawcraft.app/relay/core/config"
	"clawcraft.app/relay/internal/brain"
	"clawcraft.app/relay/internal/model"
	"clawcraft.app/relay/internal/service"
)

var (
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow, color.Bold)
	infoColor    = color.New(color.FgCyan)
)

// Runner runs the pipeline for one issue without delivering anything.
type Runner interface {
	Run(ctx context.Context, issueKey string, scriptRequested bool) (*brain.Result, error)
}

type RunnerFactory func() (Runner, error)

func newOrchestratorRunner() (Runner, error) {
	cfg, err := config.Load(config.ServiceTypeCLI)
	if err != nil {
		return nil, err
	}

	// stdout carries the summary; logs go to stderr.
	logger.SetupWriter(cfg, os.Stderr)

	services, err := service.NewServices(cfg)
	if err != nil {
		return nil, err
	}
	return services.Orchestrator(), nil
}

func GenerateCmd(newRunner RunnerFactory) *cobra.Command {
	var (
		script bool
		outDir string
	)

	cmd := &cobra.Command{
		Use:   "generate KEY",
		Short: "Generate Gherkin scenarios and Xray CSV/JSON for an issue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			issueKey, _, ok := model.ParseCommandText(args[0])
			if !ok {
				return fmt.Errorf("invalid issue key %q, expected something like PROJ-123", args[0])
			}

			runner, err := newRunner()
			if err != nil {
				return err
			}

			correlationID := id.NewCorrelationID()
			ctx := logger.WithLogFields(cmd.Context(), logger.LogFields{
				CorrelationID: &correlationID,
				IssueKey:      &issueKey,
				Component:     "clawcraft.cli",
			})

			out := cmd.OutOrStdout()
			infoColor.Fprintf(out, "Generating tests for %s...\n", issueKey)

			result, err := runner.Run(ctx, issueKey, script)
			if err != nil {
				errorColor.Fprintln(out, brain.UserMessage(err, issueKey, correlationID))
				return err
			}

			paths, err := writeFiles(outDir, result)
			if err != nil {
				return err
			}

			printSummary(out, result, paths, correlationID)
			return nil
		},
	}

	cmd.Flags().BoolVar(&script, "script", false, "Request an automation script (Bugs with Steps to Reproduce only)")
	cmd.Flags().StringVar(&outDir, "out", ".", "Directory to write the CSV and JSON files to")
	return cmd
}

func writeFiles(dir string, result *brain.Result) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	var paths []string
	for _, f := range result.Files.All() {
		path := filepath.Join(dir, filepath.Base(f.Filename))
		if err := os.WriteFile(path, []byte(f.Content), 0o644); err != nil {
			return nil, fmt.Errorf("writing %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func printSummary(w io.Writer, result *brain.Result, paths []string, correlationID string) {
	a := result.Artifact
	positive, negative, edge := a.ScenarioCounts()

	successColor.Fprintf(w, "✅ %s (%s): %s\n", a.IssueKey, a.IssueType, a.Summary)
	fmt.Fprintf(w, "   Scenarios: Positive=%d, Negative=%d, Edge=%d\n", positive, negative, edge)

	switch {
	case a.Automation.Included:
		fmt.Fprintf(w, "   Automation script: %s/%s\n", deref(a.Automation.Target), deref(a.Automation.Language))
	case result.Gate.MissingSteps:
		warningColor.Fprintln(w, "   Automation script: No (missing Steps to Reproduce)")
	default:
		fmt.Fprintln(w, "   Automation script: No")
	}

	if result.Repaired {
		warningColor.Fprintln(w, "   Model output needed one repair")
	}

	for _, p := range paths {
		fmt.Fprintf(w, "   Wrote %s\n", p)
	}
	fmt.Fprintf(w, "   Correlation ID: %s\n", correlationID)
}

func deref[T ~string](s *T) string {
	if s == nil {
		return "-"
	}
	return string(*s)
}
