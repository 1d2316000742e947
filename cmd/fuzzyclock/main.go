// Package main is the fuzzyclock command: a one-shot phrase printer, a live
// terminal clock and the HTTP widget host.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/spf13/cobra"

	"github.com/aelexs/fuzzyclock/internal/server"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "fuzzyclock",
	Short: "Fuzzy clock - tells the time the way people say it",
	Long: `fuzzyclock renders the current time as a fuzzy phrase such as
"twenty past four" or "noon", using one of four policies: fast, precise,
slow or warped.`,
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the widget host",
	Long: `Start the HTTP host that keeps one fuzzy clock per registered display
instance. Configuration comes from FUZZY_* environment variables.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	return server.Run(cmd.Context(), server.Params{
		Name:    "fuzzyclock",
		Version: version,
	}, nil)
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}
