package main

import (
	"os"

	"ai-orchestrator-be/internal/config"
	"ai-orchestrator-be/internal/pkg/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "routerctl",
	Short: "Operator tool for the AI orchestrator",
	Long: `routerctl inspects the orchestrator without going through the HTTP API.

  analyze   dry-run analysis, category selection and skill selection
  session   read a conversation's durable session
  sessions  list a tenant's recently active sessions
  usage     tail usage events from NATS`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log component debug output to stderr")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(sessionCmd)
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(usageCmd)
}

func loadConfig() *config.Config {
	return config.Load()
}

func newLogger() logger.ILogger {
	if verbose {
		return logger.NewConsoleLogger(zapcore.DebugLevel)
	}
	return logger.NewConsoleLogger(zapcore.WarnLevel)
}
