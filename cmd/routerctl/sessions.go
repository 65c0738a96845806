package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"ai-orchestrator-be/internal/entity"
	"ai-orchestrator-be/internal/repository/contract"
	"ai-orchestrator-be/internal/repository/implementation"
	"ai-orchestrator-be/internal/repository/specification"
	"ai-orchestrator-be/pkg/database"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	sessionsSince    time.Duration
	sessionsLimit    int
	sessionsOffset   int
	sessionsCategory string
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions <tenant>",
	Short: "List a tenant's recently active sessions",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessions,
}

func init() {
	sessionsCmd.Flags().DurationVar(&sessionsSince, "since", 24*time.Hour, "Only sessions active within this period")
	sessionsCmd.Flags().IntVar(&sessionsLimit, "limit", 20, "Maximum sessions to print")
	sessionsCmd.Flags().IntVar(&sessionsOffset, "offset", 0, "Sessions to skip")
	sessionsCmd.Flags().StringVar(&sessionsCategory, "category", "", "Only sessions whose last turn went to this category")
}

type sessionQuery struct {
	TenantId string
	Since    time.Time
	Category entity.Category
	Limit    int
	Offset   int
}

type sessionPage struct {
	Sessions []*entity.Session
	Total    int64
}

func listSessions(ctx context.Context, repo contract.SessionRepository, q sessionQuery) (*sessionPage, error) {
	filters := []specification.Specification{
		specification.ByTenant{TenantId: q.TenantId},
		specification.ActiveSince{Since: q.Since},
	}
	if q.Category != "" {
		filters = append(filters, specification.ByLastCategory{Category: string(q.Category)})
	}

	total, err := repo.Count(ctx, filters...)
	if err != nil {
		return nil, fmt.Errorf("count sessions: %w", err)
	}
	page := append(filters,
		specification.OrderBy{Field: "last_active", Desc: true},
		specification.Pagination{Limit: q.Limit, Offset: q.Offset},
	)
	sessions, err := repo.FindAll(ctx, page...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return &sessionPage{Sessions: sessions, Total: total}, nil
}

func runSessions(cmd *cobra.Command, args []string) error {
	category := entity.Category(sessionsCategory)
	if category != "" && !category.Valid() {
		return fmt.Errorf("unknown category %q", sessionsCategory)
	}
	if sessionsLimit <= 0 {
		return fmt.Errorf("--limit must be positive")
	}

	cfg := loadConfig()
	db, err := database.NewGormDBFromDSN(cfg.Database.Connection, true)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()

	page, err := listSessions(ctx, implementation.NewSessionRepository(db), sessionQuery{
		TenantId: args[0],
		Since:    time.Now().Add(-sessionsSince),
		Category: category,
		Limit:    sessionsLimit,
		Offset:   sessionsOffset,
	})
	if err != nil {
		return err
	}
	printSessionPage(cmd.OutOrStdout(), page, sessionsOffset)
	return nil
}

func printSessionPage(w io.Writer, page *sessionPage, offset int) {
	if len(page.Sessions) == 0 {
		color.New(color.FgYellow).Fprintf(w, "No sessions (%d matching)\n", page.Total)
		return
	}
	for _, s := range page.Sessions {
		var category entity.Category
		if last := s.LastTurn(); last != nil {
			category = last.Category
		}
		color.New(color.Faint).Fprintf(w, "%s ", s.LastActive.Format(time.RFC3339))
		color.New(color.FgGreen).Fprintf(w, "%-14s ", category)
		fmt.Fprintf(w, "%-24s %3d turns  %.2f\n", s.Key.ConversationId, len(s.Turns), s.ContinuityScore)
	}
	color.New(color.FgCyan).Fprintf(w, "%d-%d of %d\n", offset+1, offset+len(page.Sessions), page.Total)
}
