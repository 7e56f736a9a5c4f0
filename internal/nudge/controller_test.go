package nudge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spendshield/spendshield/internal/analysis"
	"github.com/spendshield/spendshield/internal/classifier"
	"github.com/spendshield/spendshield/internal/page"
	"github.com/spendshield/spendshield/internal/report"
	"github.com/spendshield/spendshield/internal/session"
	"github.com/spendshield/spendshield/internal/storage"
)

const checkoutHTML = `<body>
	<input id="card" name="card_number" maxlength="16">
	<input id="cvv" name="cvv" maxlength="4">
	<input id="email" type="email" name="email">
</body>`

type fixture struct {
	doc   *page.Document
	sess  *session.Context
	store *storage.MemStore
	ctrl  *Controller
	clock time.Time

	mu     sync.Mutex
	events []report.Event
	srv    *httptest.Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		store: storage.NewMemStore(),
		clock: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	doc, err := page.ParseString(checkoutHTML, "shop.example.com")
	if err != nil {
		t.Fatal(err)
	}
	f.doc = doc

	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var ev report.Event
		if err := json.NewDecoder(r.Body).Decode(&ev); err == nil {
			f.mu.Lock()
			f.events = append(f.events, ev)
			f.mu.Unlock()
		}
	}))
	t.Cleanup(f.srv.Close)

	f.sess = session.NewContext()
	f.sess.SetClock(func() time.Time { return f.clock })

	reporter := report.New(f.srv.URL, nil, zap.NewNop())
	reporter.SetClock(func() time.Time { return f.clock })

	f.ctrl = NewController(Config{
		Doc:        doc,
		Session:    f.sess,
		Store:      f.store,
		Classifier: classifier.New(),
		Reporter:   reporter,
		Log:        zap.NewNop(),
	})
	return f
}

func (f *fixture) trigger() {
	f.ctrl.Trigger(context.Background())
	f.doc.FlushFrames()
}

func (f *fixture) modal() *page.Element {
	return f.doc.ElementByID(ModalID)
}

func (f *fixture) click(t *testing.T, id string) {
	t.Helper()
	el := f.doc.ElementByID(id)
	if el == nil {
		t.Fatalf("element #%s not in document", id)
	}
	el.Click()
}

func (f *fixture) reportedEvents() []report.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]report.Event(nil), f.events...)
}

func TestTriggerShowsModal(t *testing.T) {
	f := newFixture(t)
	f.trigger()

	modal := f.modal()
	if modal == nil {
		t.Fatal("modal should be injected")
	}
	if !modal.HasClass("visible") {
		t.Error("visible class should be applied on the next frame")
	}
	if !f.sess.ModalShown() {
		t.Error("ModalShown flag must agree with the injected modal")
	}
}

func TestCooldownAllowsExactlyOneShow(t *testing.T) {
	f := newFixture(t)

	f.trigger()
	if f.modal() == nil {
		t.Fatal("first trigger should show")
	}
	f.modal().Click() // backdrop dismiss

	f.clock = f.clock.Add(10 * time.Minute) // inside the 15m default
	f.trigger()
	if f.modal() != nil {
		t.Fatal("second trigger inside cooldown must be silent")
	}

	f.clock = f.clock.Add(6 * time.Minute) // past expiry
	f.trigger()
	if f.modal() == nil {
		t.Fatal("trigger after cooldown expiry should show again")
	}
}

func TestReentrancyWhileShown(t *testing.T) {
	f := newFixture(t)
	f.trigger()
	first := f.modal()

	f.trigger()
	if f.modal() != first {
		t.Fatal("a second trigger while shown must not rebuild the modal")
	}
}

func TestIgnoredSiteAborts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := storage.AddIgnoredSite(ctx, f.store, "shop.example.com"); err != nil {
		t.Fatal(err)
	}

	f.trigger()
	if f.modal() != nil {
		t.Fatal("ignored site must never show a nudge")
	}
	if !f.sess.LastNudge().IsZero() {
		t.Error("aborted nudge must not start the cooldown clock")
	}
}

func TestCancelClearsCardFieldsOnly(t *testing.T) {
	f := newFixture(t)
	f.sess.SetUserID("user-1")

	card := f.doc.ElementByID("card")
	cvv := f.doc.ElementByID("cvv")
	email := f.doc.ElementByID("email")
	card.SetValue("4111111111111111")
	cvv.SetValue("123")
	email.SetValue("a@example.com")
	f.doc.Focus(card)

	f.trigger()
	f.click(t, CancelButtonID)

	if card.Value() != "" || cvv.Value() != "" {
		t.Errorf("card fields not cleared: card=%q cvv=%q", card.Value(), cvv.Value())
	}
	if email.Value() != "a@example.com" {
		t.Errorf("non-card field disturbed: %q", email.Value())
	}
	if f.doc.Focused() == card {
		t.Error("cancelled card field must lose focus")
	}
	if f.modal() != nil || f.sess.ModalShown() {
		t.Error("modal must be torn down after a decision")
	}

	events := f.reportedEvents()
	if len(events) != 1 {
		t.Fatalf("got %d telemetry events, want 1", len(events))
	}
	want := report.Event{
		UserID:    "user-1",
		Domain:    "shop.example.com",
		Outcome:   report.OutcomeCancelled,
		Timestamp: f.clock.UTC().Format(time.RFC3339),
	}
	if events[0] != want {
		t.Errorf("event = %+v, want %+v", events[0], want)
	}
}

func TestContinueNavigatesToDashboard(t *testing.T) {
	f := newFixture(t)
	f.sess.SetUserID("user-1")
	card := f.doc.ElementByID("card")
	card.SetValue("4111")

	f.trigger()
	f.click(t, ContinueButtonID)

	if got := f.doc.NavigatedTo(); got != DefaultDashboardURL {
		t.Errorf("navigated to %q, want %q", got, DefaultDashboardURL)
	}
	if card.Value() != "4111" {
		t.Error("continue must not sanitize fields")
	}
	events := f.reportedEvents()
	if len(events) != 1 || events[0].Outcome != report.OutcomeContinued {
		t.Errorf("events = %+v, want one continued", events)
	}
}

func TestBackdropDismissalIsNotADecision(t *testing.T) {
	f := newFixture(t)
	f.sess.SetUserID("user-1")

	f.trigger()
	f.modal().Click()

	if f.modal() != nil || f.sess.ModalShown() {
		t.Error("backdrop click must close the modal")
	}
	if len(f.reportedEvents()) != 0 {
		t.Error("dismissal must not report an outcome")
	}
	if f.sess.GateNudge() {
		t.Error("cooldown must remain in force after dismissal")
	}
	if f.doc.NavigatedTo() != "" {
		t.Error("dismissal must not navigate")
	}
}

func TestOptOutPersistsSite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.trigger()
	f.click(t, OptOutID) // check the box
	f.click(t, CancelButtonID)

	if !storage.IsIgnored(ctx, f.store, "shop.example.com") {
		t.Fatal("opt-out must persist the hostname")
	}

	// Even after cooldown expiry, the site stays suppressed.
	f.clock = f.clock.Add(time.Hour)
	f.trigger()
	if f.modal() != nil {
		t.Fatal("opted-out site must never nudge again")
	}
}

func TestAdvisoryPanel(t *testing.T) {
	f := newFixture(t)
	fair := 299.0
	f.sess.SetAnalysis(&analysis.Result{
		Recommendation: analysis.RecommendAvoid,
		Reasoning:      "priced well above recent average",
		FairPrice:      &fair,
	})

	f.trigger()
	panel := f.doc.ElementByID(AdvisoryID)
	if panel == nil {
		t.Fatal("advisory panel should render when a verdict exists")
	}
	if text := panel.Text(); !strings.Contains(text, analysis.RecommendAvoid) {
		t.Errorf("panel text %q missing verdict badge", text)
	}
}

func TestNoAdvisoryWithoutVerdict(t *testing.T) {
	f := newFixture(t)
	f.trigger()
	if f.doc.ElementByID(AdvisoryID) != nil {
		t.Fatal("no advisory panel without an analysis verdict")
	}
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{"short ascii", "fine as is", 20, "fine as is"},
		{"long ascii", "abcdefgh", 4, "abcd…"},
		{"multibyte at the cut", strings.Repeat("é", 6), 4, strings.Repeat("é", 4) + "…"},
		{"trailing space trimmed", "ab  cdef", 4, "ab…"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncate(tt.in, tt.max)
			if got != tt.want {
				t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
			}
			if !utf8.ValidString(got) {
				t.Errorf("truncate produced invalid UTF-8: %q", got)
			}
		})
	}
}

func TestStaleModalCleanup(t *testing.T) {
	f := newFixture(t)
	stale := f.doc.CreateElement("div", map[string]string{"id": ModalID})
	f.doc.Body().AppendChild(stale)

	f.trigger()

	count := 0
	f.doc.Walk(func(e *page.Element) {
		if e.Attr("id") == ModalID {
			count++
		}
	})
	if count != 1 {
		t.Fatalf("found %d modal elements, want exactly 1", count)
	}
}
