// Package quota tracks per-user plan tier and usage count, gating access to
// premium capabilities and daily volume.
package quota

import (
	"context"

	apperrors "github.com/banterhq/banter/internal/errors"
	"github.com/banterhq/banter/store"
)

// FreeMessageLimit is the number of messages a free-plan user may send.
const FreeMessageLimit = 10

// Capability describes what a request asks of the generation service.
type Capability struct {
	// Media is set for image or document input (pro-plan only).
	Media bool
}

// Ledger gates requests on the user's plan and message counter.
type Ledger struct {
	store *store.Store
}

// NewLedger creates a ledger backed by the given store.
func NewLedger(store *store.Store) *Ledger {
	return &Ledger{store: store}
}

// CheckAndConsume validates the request against the user's record and, when
// allowed, consumes one unit of quota. The increment happens before
// generation is attempted: a failed generation still consumes quota
// (pay-for-attempt policy).
//
// Anonymous callers (empty userID) bypass the ledger entirely; their limit
// is advisory and client-held. This is a known enforcement gap, kept as-is.
//
// The counter is read-then-written without a transaction, so two concurrent
// requests for one user may both pass the limit check. Accepted.
func (l *Ledger) CheckAndConsume(ctx context.Context, userID string, capability Capability) error {
	if userID == "" {
		return nil
	}

	user, err := l.store.GetUser(ctx, &store.FindUser{ID: &userID})
	if err != nil {
		return err
	}

	if user == nil {
		// Lazy creation: the first request both creates the record and
		// counts as message one.
		_, err := l.store.CreateUser(ctx, &store.User{
			ID:           userID,
			Plan:         store.UserPlanFree,
			MessageCount: 1,
		})
		return err
	}

	if capability.Media && user.Plan != store.UserPlanPro {
		return apperrors.New(apperrors.ErrCodeForbiddenMedia, "image and document analysis requires the pro plan")
	}
	if user.Plan == store.UserPlanFree && user.MessageCount >= FreeMessageLimit {
		return apperrors.New(apperrors.ErrCodeQuotaExceeded, "daily message limit reached")
	}

	count := user.MessageCount + 1
	if _, err := l.store.UpdateUser(ctx, &store.UpdateUser{ID: userID, MessageCount: &count}); err != nil {
		return err
	}
	return nil
}
