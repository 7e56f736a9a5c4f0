// Package nudge owns the interstitial lifecycle: gating, presentation,
// and the two terminal decisions. The controller is a small state
// machine (Idle, Gathering while the store read is in flight, Shown)
// with no state persisted across page loads.
package nudge

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spendshield/spendshield/internal/analysis"
	"github.com/spendshield/spendshield/internal/classifier"
	"github.com/spendshield/spendshield/internal/page"
	"github.com/spendshield/spendshield/internal/report"
	"github.com/spendshield/spendshield/internal/session"
	"github.com/spendshield/spendshield/internal/storage"
)

// DefaultDashboardURL is where a "continue anyway" decision sends the
// user; the automate flag asks the dashboard to pick the flow up.
const DefaultDashboardURL = "https://dashboard.spendshield.app/purchases?automate=true"

// Prompt is what a surface renders: the page being interrupted and
// the optional advisory verdict.
type Prompt struct {
	Hostname string
	Analysis *analysis.Result
}

// Resolution is how the user left the nudge. A dismissal (backdrop
// click, non-interactive surface) has Dismissed=true and reports no
// outcome.
type Resolution struct {
	Outcome   string // report.OutcomeCancelled or report.OutcomeContinued
	OptOut    bool   // "don't show again for this site"
	Dismissed bool
}

// Surface presents a nudge. Show must invoke resolve exactly once for
// a decision or dismissal; Hide tears the presentation down and must
// be safe to call after resolution.
type Surface interface {
	Show(p Prompt, resolve func(Resolution))
	Hide()
}

// Controller gates and runs nudge sessions for one page load.
type Controller struct {
	doc          *page.Document
	sess         *session.Context
	store        storage.Store
	cls          *classifier.Classifier
	reporter     *report.Reporter
	surface      Surface
	log          *zap.Logger
	dashboardURL string
}

// Config wires a Controller. Surface and DashboardURL are optional:
// the default surface is the in-page modal, the default URL is
// DefaultDashboardURL.
type Config struct {
	Doc          *page.Document
	Session      *session.Context
	Store        storage.Store
	Classifier   *classifier.Classifier
	Reporter     *report.Reporter
	Surface      Surface
	Log          *zap.Logger
	DashboardURL string
}

// NewController creates a nudge controller.
func NewController(cfg Config) *Controller {
	c := &Controller{
		doc:          cfg.Doc,
		sess:         cfg.Session,
		store:        cfg.Store,
		cls:          cfg.Classifier,
		reporter:     cfg.Reporter,
		surface:      cfg.Surface,
		log:          cfg.Log,
		dashboardURL: cfg.DashboardURL,
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}
	if c.dashboardURL == "" {
		c.dashboardURL = DefaultDashboardURL
	}
	if c.surface == nil {
		c.surface = NewModalSurface(cfg.Doc)
	}
	return c
}

// Trigger is the entry transition, invoked after the classifier has
// matched a focused field. Gating runs in order (re-entrancy, cooldown,
// ignored sites) and any failure returns to Idle with no visible
// effect.
func (c *Controller) Trigger(ctx context.Context) {
	// Synchronous pre-checks first: no point reading the store when
	// the session already rules the nudge out.
	if !c.sess.GateNudge() {
		return
	}

	// Gathering: the ignore-list read is the only suspension point
	// before presentation.
	if storage.IsIgnored(ctx, c.store, c.doc.Hostname()) {
		c.log.Debug("nudge: site ignored", zap.String("host", c.doc.Hostname()))
		return
	}

	// The store read yielded, so the gate is re-checked and committed
	// in one critical section. Two racing triggers cannot both pass.
	if !c.sess.BeginShow() {
		return
	}

	prompt := Prompt{
		Hostname: c.doc.Hostname(),
		Analysis: c.sess.Analysis(),
	}

	resolved := false
	c.surface.Show(prompt, func(res Resolution) {
		if resolved {
			return
		}
		resolved = true
		c.resolve(ctx, res)
	})
}

// resolve handles both terminal decisions and dismissal. The cooldown
// timestamp is never rolled back: a dismissed nudge still counts.
func (c *Controller) resolve(ctx context.Context, res Resolution) {
	c.surface.Hide()
	c.sess.EndShow()

	if res.Dismissed {
		c.log.Debug("nudge: dismissed without decision")
		return
	}

	if res.OptOut {
		if err := storage.AddIgnoredSite(ctx, c.store, c.doc.Hostname()); err != nil {
			c.log.Debug("nudge: opt-out persist failed", zap.Error(err))
		}
	}

	c.reporter.Report(ctx, c.sess.UserID(), c.doc.Hostname(), res.Outcome)

	switch res.Outcome {
	case report.OutcomeCancelled:
		c.sanitizeCardFields()
	case report.OutcomeContinued:
		c.doc.Navigate(c.dashboardURL)
	}
}

// sanitizeCardFields clears and blurs every input the classifier still
// recognizes as a card field. Best effort: the page's own framework
// state (a controlled React input, say) is beyond reach; only the DOM
// value is cleared.
func (c *Controller) sanitizeCardFields() {
	cleared := 0
	for _, el := range c.doc.Inputs() {
		if !c.cls.IsCardField(el) {
			continue
		}
		el.SetValue("")
		c.doc.Blur(el)
		cleared++
	}
	c.log.Debug("nudge: cancelled, card fields cleared", zap.Int("count", cleared))
}

// truncate shortens advisory reasoning for display. max counts runes;
// the cut never lands inside a multi-byte sequence.
func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return strings.TrimSpace(string(runes[:max])) + "…"
}
