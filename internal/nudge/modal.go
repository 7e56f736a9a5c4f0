package nudge

import (
	"github.com/spendshield/spendshield/internal/analysis"
	"github.com/spendshield/spendshield/internal/page"
	"github.com/spendshield/spendshield/internal/report"
)

// Element ids used by the in-page modal. Fixed so defensive cleanup
// can find a stale modal from an earlier, interrupted session.
const (
	ModalID          = "spendshield-nudge"
	CancelButtonID   = "spendshield-cancel"
	ContinueButtonID = "spendshield-continue"
	OptOutID         = "spendshield-optout"
	AdvisoryID       = "spendshield-advisory"
	visibleClass     = "visible"
)

const reasoningLimit = 140

// badgeColors maps a recommendation verdict to its badge color.
var badgeColors = map[string]string{
	analysis.RecommendBuy:   "#1f8a4c",
	analysis.RecommendWait:  "#d4a017",
	analysis.RecommendAvoid: "#c0392b",
}

// ModalSurface renders the nudge as an overlay injected into the page.
type ModalSurface struct {
	doc   *page.Document
	modal *page.Element
}

// NewModalSurface creates the in-page modal surface.
func NewModalSurface(doc *page.Document) *ModalSurface {
	return &ModalSurface{doc: doc}
}

// Show builds and injects the modal. Any stale modal element is
// removed first, then the visible class is applied on the next frame
// so the overlay can transition in.
func (m *ModalSurface) Show(p Prompt, resolve func(Resolution)) {
	if stale := m.doc.ElementByID(ModalID); stale != nil {
		stale.Remove()
	}

	overlay := m.doc.CreateElement("div", map[string]string{
		"id":    ModalID,
		"class": "spendshield-overlay",
	})
	card := m.doc.CreateElement("div", map[string]string{"class": "spendshield-card"})

	title := m.doc.CreateElement("h2", nil)
	title.AppendText("Hold on: about to enter card details?")
	card.AppendChild(title)

	if p.Analysis != nil {
		card.AppendChild(m.buildAdvisory(p.Analysis))
	}

	optOut := m.doc.CreateElement("input", map[string]string{
		"id":   OptOutID,
		"type": "checkbox",
	})
	optOutLabel := m.doc.CreateElement("label", map[string]string{"for": OptOutID})
	optOutLabel.AppendText("Don't show again for this site")
	row := m.doc.CreateElement("div", map[string]string{"class": "spendshield-optout-row"})
	row.AppendChild(optOut)
	row.AppendChild(optOutLabel)
	card.AppendChild(row)

	cancel := m.doc.CreateElement("button", map[string]string{
		"id":    CancelButtonID,
		"class": "spendshield-btn primary",
	})
	cancel.AppendText("Cancel Purchase")

	cont := m.doc.CreateElement("button", map[string]string{
		"id":    ContinueButtonID,
		"class": "spendshield-btn secondary",
	})
	cont.AppendText("Continue Anyway")

	actions := m.doc.CreateElement("div", map[string]string{"class": "spendshield-actions"})
	actions.AppendChild(cancel)
	actions.AppendChild(cont)
	card.AppendChild(actions)

	overlay.AppendChild(card)

	// Handlers are attached exactly once per modal instance.
	cancel.OnClick(func() {
		resolve(Resolution{Outcome: report.OutcomeCancelled, OptOut: optOut.Checked()})
	})
	cont.OnClick(func() {
		resolve(Resolution{Outcome: report.OutcomeContinued, OptOut: optOut.Checked()})
	})
	// Backdrop click is an implicit hide, not a decision.
	overlay.OnClick(func() {
		resolve(Resolution{Dismissed: true})
	})

	m.modal = overlay
	m.doc.Body().AppendChild(overlay)
	m.doc.RequestFrame(func() {
		overlay.AddClass(visibleClass)
	})
}

func (m *ModalSurface) buildAdvisory(r *analysis.Result) *page.Element {
	panel := m.doc.CreateElement("div", map[string]string{
		"id":    AdvisoryID,
		"class": "spendshield-advisory",
	})

	badge := m.doc.CreateElement("span", map[string]string{
		"class": "spendshield-badge",
		"style": "background:" + badgeColors[r.Recommendation],
	})
	badge.AppendText(r.Recommendation)
	panel.AppendChild(badge)

	reasoning := m.doc.CreateElement("p", nil)
	reasoning.AppendText(truncate(r.Reasoning, reasoningLimit))
	panel.AppendChild(reasoning)

	return panel
}

// Hide removes the visible class and tears the modal out of the page.
func (m *ModalSurface) Hide() {
	if m.modal == nil {
		return
	}
	m.modal.RemoveClass(visibleClass)
	m.modal.Remove()
	m.modal = nil
}
