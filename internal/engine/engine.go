// Package engine wires the interception components to one page load:
// configuration, identity sync, product analysis, field classification
// and the nudge controller. One Engine per page; a fresh session each
// time, exactly like a content script re-injected on navigation.
package engine

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/spendshield/spendshield/internal/analysis"
	"github.com/spendshield/spendshield/internal/audit"
	"github.com/spendshield/spendshield/internal/classifier"
	"github.com/spendshield/spendshield/internal/identity"
	"github.com/spendshield/spendshield/internal/nudge"
	"github.com/spendshield/spendshield/internal/page"
	"github.com/spendshield/spendshield/internal/report"
	"github.com/spendshield/spendshield/internal/session"
	"github.com/spendshield/spendshield/internal/storage"
)

// Options configures an Engine. Doc and Store are required; the rest
// default sensibly.
type Options struct {
	Doc   *page.Document
	Store storage.Store

	Classifier *classifier.Classifier
	Sites      []analysis.Site
	Surface    nudge.Surface
	Trail      *audit.Trail
	Log        *zap.Logger

	AnalysisURL  string
	EventURL     string
	DashboardURL string
}

// Engine is one page load's worth of interception machinery.
type Engine struct {
	doc      *page.Document
	store    storage.Store
	sess     *session.Context
	cls      *classifier.Classifier
	client   *analysis.Client
	reporter *report.Reporter
	observer *identity.Observer
	ctrl     *nudge.Controller
	log      *zap.Logger

	boot sync.WaitGroup
}

// New assembles an engine. Nothing runs until Start.
func New(opts Options) *Engine {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	cls := opts.Classifier
	if cls == nil {
		cls = classifier.New()
	}

	sess := session.NewContext()
	reporter := report.New(opts.EventURL, opts.Trail, log)

	e := &Engine{
		doc:      opts.Doc,
		store:    opts.Store,
		sess:     sess,
		cls:      cls,
		client:   analysis.NewClient(opts.AnalysisURL, opts.Sites, log),
		reporter: reporter,
		observer: identity.NewObserver(opts.Doc, sess, opts.Store, log),
		log:      log,
	}
	e.ctrl = nudge.NewController(nudge.Config{
		Doc:          opts.Doc,
		Session:      sess,
		Store:        opts.Store,
		Classifier:   cls,
		Reporter:     reporter,
		Surface:      opts.Surface,
		Log:          log,
		DashboardURL: opts.DashboardURL,
	})
	return e
}

// Session exposes the engine's session context (for tests and the CLI).
func (e *Engine) Session() *session.Context { return e.sess }

// Reporter exposes the outcome reporter (test clock injection).
func (e *Engine) Reporter() *report.Reporter { return e.reporter }

// Start is page-ready: the identity observer begins watching
// immediately, the configuration load and the analysis round trip fire
// off without blocking anything, and the focus handler is registered
// synchronously. The classifier path never waits on any of them.
func (e *Engine) Start(ctx context.Context) {
	e.observer.Start(ctx)

	e.boot.Add(1)
	go func() {
		defer e.boot.Done()
		session.Load(ctx, e.store, e.sess, e.log)
	}()

	// Extraction reads the document, which is only safe on this
	// goroutine. Only the network round trip runs in the background.
	if product, ok := e.client.Product(e.doc); ok {
		e.boot.Add(1)
		go func() {
			defer e.boot.Done()
			e.client.Deliver(ctx, product, e.sess.SetAnalysis)
		}()
	}

	e.doc.OnFocus(func(el *page.Element) {
		e.handleFocus(ctx, el)
	})

	e.log.Debug("engine: started",
		zap.String("session", e.sess.ID()),
		zap.String("host", e.doc.Hostname()))
}

// Settle blocks until the fire-and-forget boot tasks finish. The
// engine never needs this itself; tests and one-shot CLI runs do.
func (e *Engine) Settle() {
	e.boot.Wait()
}

// handleFocus runs the classifier synchronously inside the focus
// event, observing the DOM exactly as it was at focus time.
func (e *Engine) handleFocus(ctx context.Context, el *page.Element) {
	defer func() {
		// Nothing the engine does may propagate into the host page's
		// own script execution.
		if r := recover(); r != nil {
			e.log.Debug("engine: focus handler panicked", zap.Any("panic", r))
		}
	}()

	if el == nil || !e.cls.IsCardField(el) {
		return
	}
	e.ctrl.Trigger(ctx)
}
