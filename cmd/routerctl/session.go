package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"ai-orchestrator-be/internal/entity"
	"ai-orchestrator-be/internal/repository/implementation"
	"ai-orchestrator-be/internal/repository/specification"
	"ai-orchestrator-be/pkg/ai/session"
	"ai-orchestrator-be/pkg/database"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var sessionTurns int

var sessionCmd = &cobra.Command{
	Use:   "session <tenant> <conversation>",
	Short: "Show a conversation's durable session",
	Long: `Reads the session from the durable tier. The fast tier may be ahead of
it by the writes still queued for persistence.`,
	Args: cobra.ExactArgs(2),
	RunE: runSession,
}

func init() {
	sessionCmd.Flags().IntVar(&sessionTurns, "turns", 5, "Number of recent turns to print")
}

func runSession(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	db, err := database.NewGormDBFromDSN(cfg.Database.Connection, true)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()

	repo := implementation.NewSessionRepository(db)
	s, err := repo.FindOne(ctx, specification.ByConversation{TenantId: args[0], ConversationId: args[1]})
	if err != nil {
		return fmt.Errorf("read session: %w", err)
	}
	if s == nil {
		color.New(color.FgYellow).Fprintf(cmd.OutOrStdout(), "No session for %s:%s\n", args[0], args[1])
		return nil
	}

	printSummary(cmd.OutOrStdout(), session.Summarize(s, sessionTurns))
	return nil
}

func printSummary(w io.Writer, sum entity.SessionSummary) {
	label := color.New(color.FgCyan)

	label.Fprint(w, "Session     ")
	fmt.Fprintf(w, "%s:%s\n", sum.TenantId, sum.ConversationId)
	label.Fprint(w, "Turns       ")
	fmt.Fprintf(w, "%d (last active %s)\n", sum.TurnCount, sum.LastActive.Format(time.RFC3339))
	label.Fprint(w, "Continuity  ")
	fmt.Fprintf(w, "%.2f, last category %s\n", sum.ContinuityScore, sum.LastCategory)

	label.Fprint(w, "Categories  ")
	for _, c := range entity.Categories {
		if n := sum.CategoryHistogram[c]; n > 0 {
			fmt.Fprintf(w, "%s=%d ", c, n)
		}
	}
	fmt.Fprintln(w)

	for _, t := range sum.RecentTurns {
		color.New(color.Faint).Fprintf(w, "  %s ", t.Timestamp.Format("15:04:05"))
		color.New(color.FgGreen).Fprintf(w, "%-14s ", t.Category)
		fmt.Fprintf(w, "%s\n", t.RequestText)
		if t.ResultSummary != "" {
			color.New(color.Faint).Fprintf(w, "           -> %s\n", t.ResultSummary)
		}
	}
}
