package session

import (
	"context"

	"go.uber.org/zap"

	"github.com/spendshield/spendshield/internal/storage"
)

// Settings is the persisted shape of the tunables. Pointer fields so a
// partial settings object merges without clobbering defaults.
type Settings struct {
	WarnThreshold   *float64 `json:"warnThreshold,omitempty"`
	CooldownMinutes *int     `json:"cooldownMinutes,omitempty"`
}

// Load populates the session from the persisted store: userId and
// settings. Fire-and-forget by contract: every component must work
// before this completes, so Load never returns an error; an
// unreachable store just leaves the defaults in place.
func Load(ctx context.Context, store storage.Store, sess *Context, log *zap.Logger) {
	var userID string
	if ok, err := store.Get(ctx, storage.KeyUserID, &userID); err != nil {
		log.Debug("session: userId read failed, keeping default", zap.Error(err))
	} else if ok {
		sess.SetUserID(userID)
	}

	var settings Settings
	if ok, err := store.Get(ctx, storage.KeySettings, &settings); err != nil {
		log.Debug("session: settings read failed, keeping defaults", zap.Error(err))
	} else if ok {
		sess.ApplySettings(settings)
	}
}
