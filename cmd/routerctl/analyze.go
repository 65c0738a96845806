package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"ai-orchestrator-be/internal/bootstrap"
	"ai-orchestrator-be/internal/entity"
	"ai-orchestrator-be/pkg/ai/pipeline"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var analyzeTenant string

var analyzeCmd = &cobra.Command{
	Use:   "analyze <text>",
	Short: "Dry-run routing for one message",
	Long: `Runs the analyzer, category selector and skill selector on a message
with the current configuration. Nothing is dispatched and no session is touched.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeTenant, "tenant", "cli", "Tenant whose overrides and disabled intents apply")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	p, err := bootstrap.NewPreviewPipeline(loadConfig(), newLogger())
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}
	printPreview(cmd.OutOrStdout(), p.Preview(analyzeTenant, strings.Join(args, " ")))
	return nil
}

func printPreview(w io.Writer, pv pipeline.Preview) {
	bold := color.New(color.Bold)
	label := color.New(color.FgCyan)

	if pv.Directives.Category != "" || len(pv.Directives.Skills) > 0 {
		label.Fprint(w, "Directives  ")
		fmt.Fprintf(w, "category=%s skills=%v\n", pv.Directives.Category, pv.Directives.Skills)
	}
	for _, r := range pv.Directives.Rejected {
		color.New(color.FgYellow).Fprintf(w, "Ignored     %s\n", r)
	}

	label.Fprint(w, "Intent      ")
	bold.Fprintf(w, "%s", pv.Analysis.Intent)
	fmt.Fprintf(w, " (%.2f via %s)\n", pv.Analysis.Confidence, pv.Analysis.Source)

	for _, e := range pv.Analysis.Entities {
		label.Fprint(w, "Entity      ")
		fmt.Fprintf(w, "%s=%q [%d,%d)\n", e.Type, e.Value, e.Span.Start, e.Span.End)
	}

	label.Fprint(w, "Category    ")
	color.New(color.FgGreen, color.Bold).Fprintf(w, "%s", pv.Decision.Category)
	fmt.Fprintf(w, " by %s", pv.Decision.Strategy)
	if pv.Decision.Boosted {
		fmt.Fprint(w, " (continuity boost)")
	}
	fmt.Fprintln(w)

	names := make([]string, 0, len(pv.Decision.Scores))
	for c := range pv.Decision.Scores {
		names = append(names, string(c))
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "            %-15s %.3f\n", name, pv.Decision.Scores[entity.Category(name)])
	}

	label.Fprint(w, "Skills      ")
	if len(pv.Skills) == 0 {
		fmt.Fprintln(w, "-")
	} else {
		fmt.Fprintln(w, pv.Skills)
	}

	label.Fprint(w, "Target      ")
	model := pv.Profile.Model
	if model == "" {
		model = "default model"
	}
	fmt.Fprintf(w, "%s (%s)\n", pv.Profile.Target, model)
}
