// Package report delivers the terminal nudge decision to the backend.
// It is a best-effort notifier: methods have no error return by
// design, so a network failure physically cannot propagate into the
// interception flow.
package report

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/spendshield/spendshield/internal/audit"
)

// Decision outcomes. Immutable once emitted.
const (
	OutcomeCancelled = "cancelled"
	OutcomeContinued = "continued"
)

// DefaultEndpointPath is the event-logging endpoint consumed here.
const DefaultEndpointPath = "/api/extension/event"

// Event is the wire body of the telemetry POST.
type Event struct {
	UserID    string `json:"userId"`
	Domain    string `json:"domain"`
	Outcome   string `json:"outcome"`
	Timestamp string `json:"timestamp"`
}

// Reporter posts decision outcomes. One POST per decision, no retry,
// no queuing; a decision made while no identity is known is never
// delivered later.
type Reporter struct {
	url   string
	http  *http.Client
	log   *zap.Logger
	trail *audit.Trail
	now   func() time.Time
}

// New creates a reporter for the given endpoint URL. trail may be nil
// when no local audit trail is configured.
func New(url string, trail *audit.Trail, log *zap.Logger) *Reporter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Reporter{
		url:   url,
		http:  &http.Client{Timeout: 10 * time.Second},
		log:   log,
		trail: trail,
		now:   time.Now,
	}
}

// SetClock replaces the reporter's time source (test hook).
func (r *Reporter) SetClock(now func() time.Time) { r.now = now }

// Report records the outcome. The local audit trail is written
// regardless of identity; the telemetry POST fires only when a user
// identity is known.
func (r *Reporter) Report(ctx context.Context, userID, domain, outcome string) {
	ts := r.now().UTC().Format(time.RFC3339)

	if r.trail != nil {
		r.trail.Record(audit.Entry{
			Timestamp: ts,
			Domain:    domain,
			Outcome:   outcome,
			UserID:    userID,
		})
	}

	if userID == "" {
		r.log.Debug("report: no identity, skipping telemetry",
			zap.String("domain", domain), zap.String("outcome", outcome))
		return
	}

	body, err := json.Marshal(Event{
		UserID:    userID,
		Domain:    domain,
		Outcome:   outcome,
		Timestamp: ts,
	})
	if err != nil {
		r.log.Debug("report: marshal failed", zap.Error(err))
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		r.log.Debug("report: request build failed", zap.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.http.Do(req)
	if err != nil {
		r.log.Debug("report: delivery failed", zap.Error(err))
		return
	}
	_ = resp.Body.Close()
}
