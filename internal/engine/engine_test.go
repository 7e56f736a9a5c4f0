package engine

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/spendshield/spendshield/internal/analysis"
	"github.com/spendshield/spendshield/internal/nudge"
	"github.com/spendshield/spendshield/internal/page"
	"github.com/spendshield/spendshield/internal/report"
	"github.com/spendshield/spendshield/internal/session"
	"github.com/spendshield/spendshield/internal/storage"
)

const checkoutPage = `<html><head>
	<meta property="og:title" content="Noise Cancelling Headphones">
	<meta property="product:price:amount" content="349.99">
</head><body>
	<input id="cc-number" maxlength="16">
	<input id="email" type="email" name="email">
</body></html>`

type harness struct {
	doc    *page.Document
	store  *storage.MemStore
	engine *Engine
	clock  time.Time

	mu     sync.Mutex
	events []report.Event
}

func newHarness(t *testing.T, verdict *analysis.Result) *harness {
	t.Helper()

	h := &harness{
		store: storage.NewMemStore(),
		clock: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	doc, err := page.ParseString(checkoutPage, "shop.example.com")
	if err != nil {
		t.Fatal(err)
	}
	h.doc = doc

	eventSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var ev report.Event
		if err := json.NewDecoder(r.Body).Decode(&ev); err == nil {
			h.mu.Lock()
			h.events = append(h.events, ev)
			h.mu.Unlock()
		}
	}))
	t.Cleanup(eventSrv.Close)

	analysisSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if verdict == nil {
			http.Error(w, "no verdict", http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(verdict)
	}))
	t.Cleanup(analysisSrv.Close)

	h.engine = New(Options{
		Doc:         doc,
		Store:       h.store,
		AnalysisURL: analysisSrv.URL,
		EventURL:    eventSrv.URL,
	})
	h.engine.Session().SetClock(func() time.Time { return h.clock })
	h.engine.Reporter().SetClock(func() time.Time { return h.clock })
	return h
}

func (h *harness) focus(t *testing.T, id string) {
	t.Helper()
	el := h.doc.ElementByID(id)
	if el == nil {
		t.Fatalf("element #%s not in document", id)
	}
	h.doc.Focus(el)
	h.doc.FlushFrames()
}

func (h *harness) click(t *testing.T, id string) {
	t.Helper()
	el := h.doc.ElementByID(id)
	if el == nil {
		t.Fatalf("element #%s not in document", id)
	}
	el.Click()
}

func (h *harness) modal() *page.Element {
	return h.doc.ElementByID(nudge.ModalID)
}

func (h *harness) reportedEvents() []report.Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]report.Event(nil), h.events...)
}

func TestCardFieldFocusShowsModal(t *testing.T) {
	h := newHarness(t, nil)
	h.engine.Start(context.Background())
	h.engine.Settle()

	h.focus(t, "cc-number")
	if h.modal() == nil {
		t.Fatal("focusing a card number field must show the nudge")
	}
}

func TestNonCardFocusIsIgnored(t *testing.T) {
	h := newHarness(t, nil)
	h.engine.Start(context.Background())
	h.engine.Settle()

	h.focus(t, "email")
	if h.modal() != nil {
		t.Fatal("an email field must not trigger the nudge")
	}
}

func TestCancelFlowEndToEnd(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	if err := h.store.Set(ctx, storage.KeyUserID, "user-5"); err != nil {
		t.Fatal(err)
	}
	h.engine.Start(ctx)
	h.engine.Settle()

	card := h.doc.ElementByID("cc-number")
	card.SetValue("4111111111111111")
	h.focus(t, "cc-number")
	if h.modal() == nil {
		t.Fatal("modal should be shown")
	}

	h.click(t, nudge.CancelButtonID)

	if card.Value() != "" {
		t.Errorf("card field not cleared: %q", card.Value())
	}
	if h.doc.Focused() == card {
		t.Error("cancelled card field must lose focus")
	}
	if h.modal() != nil {
		t.Error("modal must be removed after the decision")
	}

	events := h.reportedEvents()
	if len(events) != 1 {
		t.Fatalf("got %d telemetry events, want 1", len(events))
	}
	want := report.Event{
		UserID:    "user-5",
		Domain:    "shop.example.com",
		Outcome:   report.OutcomeCancelled,
		Timestamp: h.clock.UTC().Format(time.RFC3339),
	}
	if events[0] != want {
		t.Errorf("event = %+v, want %+v", events[0], want)
	}
}

func TestOptOutOutlivesCooldown(t *testing.T) {
	h := newHarness(t, nil)
	h.engine.Start(context.Background())
	h.engine.Settle()

	h.focus(t, "cc-number")
	h.click(t, nudge.OptOutID)
	h.click(t, nudge.CancelButtonID)

	h.clock = h.clock.Add(time.Hour)
	h.focus(t, "cc-number")
	if h.modal() != nil {
		t.Fatal("opted-out site must stay silent even after the cooldown expires")
	}
}

func TestVerdictReachesModal(t *testing.T) {
	fair := 299.0
	h := newHarness(t, &analysis.Result{
		Recommendation: analysis.RecommendWait,
		Reasoning:      "price drops are common in July",
		FairPrice:      &fair,
	})
	h.engine.Start(context.Background())
	h.engine.Settle()

	h.focus(t, "cc-number")
	if h.doc.ElementByID(nudge.AdvisoryID) == nil {
		t.Fatal("the fetched verdict should render an advisory panel")
	}
}

func TestStoredSettingsApplied(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	minutes := 1
	if err := h.store.Set(ctx, storage.KeySettings, session.Settings{CooldownMinutes: &minutes}); err != nil {
		t.Fatal(err)
	}
	h.engine.Start(ctx)
	h.engine.Settle()

	if got := h.engine.Session().Cooldown(); got != time.Minute {
		t.Errorf("cooldown = %v, want 1m from stored settings", got)
	}

	h.focus(t, "cc-number")
	h.modal().Click() // dismiss

	h.clock = h.clock.Add(90 * time.Second)
	h.focus(t, "cc-number")
	if h.modal() == nil {
		t.Fatal("shortened cooldown should allow a second nudge")
	}
}

func TestExtractionSnapshotsPageAtStart(t *testing.T) {
	var mu sync.Mutex
	var products []analysis.Product
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p analysis.Product
		if err := json.NewDecoder(r.Body).Decode(&p); err == nil {
			mu.Lock()
			products = append(products, p)
			mu.Unlock()
		}
		_ = json.NewEncoder(w).Encode(analysis.Result{
			Recommendation: analysis.RecommendBuy,
			Reasoning:      "fair price",
		})
	}))
	t.Cleanup(srv.Close)

	doc, err := page.ParseString(checkoutPage, "shop.example.com")
	if err != nil {
		t.Fatal(err)
	}
	eng := New(Options{Doc: doc, Store: storage.NewMemStore(), AnalysisURL: srv.URL})
	eng.Start(context.Background())

	// Extraction read the document inside Start, on this goroutine.
	// Mutating the page now must not reach the in-flight request.
	for _, meta := range doc.Query("meta") {
		if meta.Attr("property") == "product:price:amount" {
			meta.SetAttr("content", "1.00")
		}
	}
	eng.Settle()

	mu.Lock()
	defer mu.Unlock()
	if len(products) != 1 {
		t.Fatalf("got %d analysis requests, want 1", len(products))
	}
	if products[0].Price != 349.99 {
		t.Errorf("request carried price %.2f, want the value at start time", products[0].Price)
	}
}

func TestNudgeDoesNotWaitForConfiguration(t *testing.T) {
	h := newHarness(t, nil)
	h.engine.Start(context.Background())

	// Focus fires before the boot tasks are settled; the classifier
	// path runs on defaults and must not block.
	h.focus(t, "cc-number")
	if h.modal() == nil {
		t.Fatal("nudge must work before configuration finishes loading")
	}
	h.engine.Settle()
}
