package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/spendshield/spendshield/internal/audit"
	"github.com/spendshield/spendshield/internal/classifier"
	"github.com/spendshield/spendshield/internal/engine"
	"github.com/spendshield/spendshield/internal/nudge"
	"github.com/spendshield/spendshield/internal/page"
	"github.com/spendshield/spendshield/internal/storage"
)

var runCmd = &cobra.Command{
	Use:   "run <page.html>",
	Short: "Attach the engine to a saved page and play out a card-entry attempt",
	Long: `Load an HTML file as the live page, start the engine against it, and
focus the first field the classifier flags. If the nudge fires, the
decision is taken interactively at the terminal and recorded the same
way the in-page engine records it.

  spendshield run checkout.html --host shop.example.com --store ~/.spendshield/store.json`,
	Args: cobra.ExactArgs(1),
	RunE: runCommand,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runCommand(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	doc, err := page.Parse(f, hostname)
	if err != nil {
		return fmt.Errorf("parse %s: %w", args[0], err)
	}

	cls := classifier.New()
	if rulesPath != "" {
		if err := cls.LoadPack(rulesPath); err != nil {
			return err
		}
	}

	sites, err := loadSites()
	if err != nil {
		return err
	}

	var store storage.Store = storage.NewMemStore()
	if storePath != "" {
		store = storage.NewFileStore(storePath)
	}

	var trail *audit.Trail
	if auditPath != "" {
		trail, err = audit.Open(auditPath)
		if err != nil {
			return err
		}
		defer func() { _ = trail.Close() }()
	}

	eng := engine.New(engine.Options{
		Doc:          doc,
		Store:        store,
		Classifier:   cls,
		Sites:        sites,
		Surface:      nudge.NewTerminalSurface(nil, nil),
		Trail:        trail,
		Log:          newLogger(),
		AnalysisURL:  analysisURL,
		EventURL:     eventURL,
		DashboardURL: dashboardURL,
	})

	eng.Start(ctx)
	// One-shot run: let the config load and analysis land before the
	// simulated focus, so the nudge can carry an advisory.
	eng.Settle()

	var target *page.Element
	for _, el := range doc.Inputs() {
		if cls.IsCardField(el) {
			target = el
			break
		}
	}
	if target == nil {
		fmt.Println("No card fields on this page; nothing to intercept.")
		return nil
	}

	doc.Focus(target)

	if url := doc.NavigatedTo(); url != "" {
		fmt.Printf("Continuing, handing off to %s\n", url)
	}
	return nil
}
