package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/spendshield/spendshield/internal/analysis"
	"github.com/spendshield/spendshield/internal/classifier"
	"github.com/spendshield/spendshield/internal/page"
)

var scanCmd = &cobra.Command{
	Use:   "scan <page.html>",
	Short: "Classify the form fields of a saved page",
	Long: `Parse an HTML file, run the card-field classifier over every form
control, and report which fields would trigger a nudge. Also previews
what product extraction would recover from the page.

  spendshield scan checkout.html --host shop.example.com`,
	Args: cobra.ExactArgs(1),
	RunE: scanCommand,
}

func init() {
	rootCmd.AddCommand(scanCmd)
}

func scanCommand(cmd *cobra.Command, args []string) error {
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

	fmt.Println("═══════════════════════════════════════════════════════")
	fmt.Printf("  SpendShield Field Scan: %s\n", hostname)
	fmt.Println("═══════════════════════════════════════════════════════")
	fmt.Println()

	inputs := doc.Inputs()
	if len(inputs) == 0 {
		fmt.Println("  No form controls found.")
	}

	matches := 0
	for _, el := range inputs {
		rule, ok := cls.MatchRule(el)
		icon := "·"
		verdict := "-"
		if ok {
			icon = "▲"
			verdict = rule.ID
			matches++
		}
		fmt.Printf("  %s  %-10s %-24s %s\n", icon, el.Tag(), describeField(el), verdict)
	}
	fmt.Printf("\n  %d/%d fields classified as card fields\n\n", matches, len(inputs))

	sites, err := loadSites()
	if err != nil {
		return err
	}
	fmt.Println("─── Product Extraction ────────────────────────────────")
	if product, ok := analysis.Extract(doc, sites); ok {
		fmt.Printf("  %s @ %.2f\n", product.Name, product.Price)
	} else {
		fmt.Println("  nothing extracted (no metadata, hostname not in site table)")
	}
	fmt.Println()

	return nil
}

func describeField(el *page.Element) string {
	for _, attr := range []string{"id", "name", "placeholder", "aria-label"} {
		if v := el.Attr(attr); v != "" {
			return attr + "=" + v
		}
	}
	return "(unlabeled)"
}

func loadSites() ([]analysis.Site, error) {
	if sitesPath == "" {
		return analysis.DefaultSites(), nil
	}
	return analysis.LoadSites(sitesPath)
}
