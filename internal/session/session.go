// Package session owns the per-page-load mutable state of the engine:
// user identity, tunable settings, and the nudge session flags. All of
// it lives in one explicitly-passed Context rather than package-level
// variables, so tests can run independent sessions side by side.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spendshield/spendshield/internal/analysis"
)

// Defaults used until (and unless) the persisted settings arrive.
const (
	DefaultWarnThreshold   = 50
	DefaultCooldownMinutes = 15
)

// Config is the session configuration. UserID is "" until the loader
// or the identity observer learns otherwise.
type Config struct {
	UserID          string
	WarnThreshold   float64
	CooldownMinutes int
}

// Context is the process-wide state for one page load. Single logical
// writer per field; the lock exists because the config loader and
// analysis client complete on their own goroutines.
type Context struct {
	mu  sync.Mutex
	id  string
	cfg Config

	modalShown bool
	lastNudge  time.Time
	analysis   *analysis.Result

	now func() time.Time
}

// NewContext creates a fresh session with default configuration.
func NewContext() *Context {
	return &Context{
		id: uuid.NewString(),
		cfg: Config{
			WarnThreshold:   DefaultWarnThreshold,
			CooldownMinutes: DefaultCooldownMinutes,
		},
		now: time.Now,
	}
}

// ID returns the page-load session identifier.
func (c *Context) ID() string { return c.id }

// SetClock replaces the session's time source (test hook).
func (c *Context) SetClock(now func() time.Time) {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
}

// Config returns a copy of the current configuration.
func (c *Context) Config() Config {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg
}

// UserID returns the current user identity, or "".
func (c *Context) UserID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg.UserID
}

// SetUserID adopts a user identity. An empty id is ignored: identity
// is never removed once adopted.
func (c *Context) SetUserID(id string) {
	if id == "" {
		return
	}
	c.mu.Lock()
	c.cfg.UserID = id
	c.mu.Unlock()
}

// ApplySettings shallow-merges persisted settings over the defaults.
// Missing fields keep their current values.
func (c *Context) ApplySettings(s Settings) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s.WarnThreshold != nil {
		c.cfg.WarnThreshold = *s.WarnThreshold
	}
	if s.CooldownMinutes != nil {
		c.cfg.CooldownMinutes = *s.CooldownMinutes
	}
}

// Cooldown returns the configured nudge cooldown as a duration.
func (c *Context) Cooldown() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Duration(c.cfg.CooldownMinutes) * time.Minute
}

// SetAnalysis stores the page's analysis verdict. Written once per
// page load by the analysis client.
func (c *Context) SetAnalysis(r *analysis.Result) {
	c.mu.Lock()
	c.analysis = r
	c.mu.Unlock()
}

// Analysis returns the stored verdict, or nil if none arrived.
func (c *Context) Analysis() *analysis.Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.analysis
}

// ModalShown reports whether a nudge is currently on screen.
func (c *Context) ModalShown() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.modalShown
}

// LastNudge returns the time the last nudge was presented.
func (c *Context) LastNudge() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastNudge
}

// GateNudge is the synchronous pre-check: re-entrancy then cooldown.
// It mutates nothing; BeginShow re-checks before committing.
func (c *Context) GateNudge() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gateLocked()
}

func (c *Context) gateLocked() bool {
	if c.modalShown {
		return false
	}
	cooldown := time.Duration(c.cfg.CooldownMinutes) * time.Minute
	if !c.lastNudge.IsZero() && c.now().Sub(c.lastNudge) < cooldown {
		return false
	}
	return true
}

// BeginShow re-runs the gate and, if it still passes, marks the modal
// shown and starts the cooldown clock in one critical section, no
// yield in between, so two racing focus events cannot both show. The
// cooldown runs from presentation, not from the user's decision.
func (c *Context) BeginShow() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.gateLocked() {
		return false
	}
	c.modalShown = true
	c.lastNudge = c.now()
	return true
}

// EndShow clears the modal-shown flag. The cooldown timestamp is not
// rolled back, so a dismissed nudge still counts against the cooldown.
func (c *Context) EndShow() {
	c.mu.Lock()
	c.modalShown = false
	c.mu.Unlock()
}
