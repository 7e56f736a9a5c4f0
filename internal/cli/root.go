// Package cli implements the spendshield command surface.
package cli

import (
	"go.uber.org/zap"

	"github.com/spf13/cobra"
)

var (
	storePath    string
	auditPath    string
	rulesPath    string
	sitesPath    string
	analysisURL  string
	eventURL     string
	dashboardURL string
	hostname     string
	debug        bool
)

var rootCmd = &cobra.Command{
	Use:   "spendshield",
	Short: "SpendShield - purchase-intent interception engine",
	Long: `SpendShield watches a page for payment-card entry, interrupts it with
a nudge before card details go in, and records what the user decided.
The engine makes its call from the page's own markup, heuristically,
with no cooperation from the site.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&storePath, "store", "", "Path to persisted store JSON (default: in-memory, nothing survives the run)")
	rootCmd.PersistentFlags().StringVar(&auditPath, "audit-log", "", "Path to local decision trail JSONL (default: none)")
	rootCmd.PersistentFlags().StringVar(&rulesPath, "rules", "", "Path to classifier rule pack YAML")
	rootCmd.PersistentFlags().StringVar(&sitesPath, "sites", "", "Path to retailer selector table YAML")
	rootCmd.PersistentFlags().StringVar(&analysisURL, "analysis-url", "", "Price analysis endpoint URL")
	rootCmd.PersistentFlags().StringVar(&eventURL, "event-url", "", "Decision telemetry endpoint URL")
	rootCmd.PersistentFlags().StringVar(&dashboardURL, "dashboard-url", "", "Dashboard URL for continue-anyway handoff")
	rootCmd.PersistentFlags().StringVar(&hostname, "host", "localhost", "Hostname to attribute the page to")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Verbose diagnostic logging")
}

func Execute() error {
	return rootCmd.Execute()
}

func newLogger() *zap.Logger {
	if !debug {
		return zap.NewNop()
	}
	log, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return log
}
