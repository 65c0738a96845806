package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"ai-orchestrator-be/pkg/events"
	pktNats "ai-orchestrator-be/pkg/nats"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var usageTarget string

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Usage records",
}

var usageWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Tail usage events as backends are called",
	RunE:  runUsageWatch,
}

func init() {
	usageWatchCmd.Flags().StringVar(&usageTarget, "target", "", "Only show one backend target")
	usageCmd.AddCommand(usageWatchCmd)
}

func runUsageWatch(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	sub, err := pktNats.NewSubscriber(cfg.App.NatsURL, newLogger())
	if err != nil {
		return fmt.Errorf("connect NATS: %w", err)
	}
	defer sub.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	subject := "usage.>"
	if usageTarget != "" {
		subject = "usage." + usageTarget
	}

	out := cmd.OutOrStdout()
	cancel, err := sub.Watch(ctx, subject, func(_ context.Context, e events.Event) error {
		printUsage(out, e)
		return nil
	})
	if err != nil {
		return fmt.Errorf("watch %s: %w", subject, err)
	}
	defer cancel()

	color.New(color.Faint).Fprintf(out, "Watching %s, Ctrl-C to stop\n", subject)
	<-ctx.Done()
	return nil
}

func printUsage(w io.Writer, e events.Event) {
	d := e.Payload()
	status := color.New(color.FgGreen).Sprint("ok")
	if ok, _ := d["success"].(bool); !ok {
		status = color.New(color.FgRed).Sprint("fail")
	}
	if abandoned, _ := d["abandoned"].(bool); abandoned {
		status += color.New(color.FgYellow).Sprint(" abandoned")
	}

	fmt.Fprintf(w, "%s %-12v %-28v in=%-6v out=%-6v cost=%v latency=%vms %s\n",
		e.Timestamp().Format("15:04:05"),
		d["backend_target"], d["model"], d["tokens_in"], d["tokens_out"], d["cost"], d["latency_ms"], status)
}
