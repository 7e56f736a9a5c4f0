// Package identity reconciles the engine's notion of the current user
// with an authentication marker the host page injects after initial
// load. The marker is the only identity signal available across
// single-page-app navigations, where no page reload ever happens.
package identity

import (
	"context"

	"go.uber.org/zap"

	"github.com/spendshield/spendshield/internal/page"
	"github.com/spendshield/spendshield/internal/session"
	"github.com/spendshield/spendshield/internal/storage"
)

// MarkerAttr designates the marker element. Its absence is normal.
const MarkerAttr = "data-spendshield-auth"

// UserIDAttr carries the identity on the marker element.
const UserIDAttr = "data-user-id"

// Observer watches the document for the auth marker and adopts any
// new identity it carries. It never removes an identity once adopted.
type Observer struct {
	doc   *page.Document
	sess  *session.Context
	store storage.Store
	log   *zap.Logger
}

// NewObserver creates an identity observer.
func NewObserver(doc *page.Document, sess *session.Context, store storage.Store, log *zap.Logger) *Observer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Observer{doc: doc, sess: sess, store: store, log: log}
}

// Start subscribes to document changes for the page's lifetime and
// runs one immediate check in case the marker is already present.
func (o *Observer) Start(ctx context.Context) {
	o.doc.OnChange(func() {
		o.check(ctx)
	})
	o.check(ctx)
}

// check re-scans for the marker on every mutation batch. Re-checking
// is cheaper than diffing mutation records and immune to the marker
// being replaced wholesale by a framework re-render.
func (o *Observer) check(ctx context.Context) {
	defer func() {
		// A hostile or broken page must not crash the engine through
		// its own mutation storm.
		if r := recover(); r != nil {
			o.log.Debug("identity: check panicked", zap.Any("panic", r))
		}
	}()

	marker := o.doc.ElementWithAttr(MarkerAttr)
	if marker == nil {
		return
	}
	id := marker.Attr(UserIDAttr)
	if id == "" || id == o.sess.UserID() {
		return
	}

	o.sess.SetUserID(id)
	if err := o.store.Set(ctx, storage.KeyUserID, id); err != nil {
		o.log.Debug("identity: persist failed", zap.Error(err))
	}
	o.log.Debug("identity: adopted", zap.String("userId", id))
}
