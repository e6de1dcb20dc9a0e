// Package analytics records listing engagement actions as counter
// increments on the backing store.
package analytics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/confirmit/marketd/internal/listing"
)

// Action is an enumerated engagement action reported by clients.
type Action string

// Supported engagement actions.
const (
	ActionView       Action = "view"
	ActionWebsite    Action = "website_click"
	ActionDirections Action = "directions"
	ActionPhoneCall  Action = "phone_call"
	ActionWhatsapp   Action = "whatsapp"
	ActionInstagram  Action = "instagram"
)

// ErrInvalidAction is returned for an action kind outside the enumeration.
// No mutation is performed.
var ErrInvalidAction = errors.New("invalid action kind")

// actionCounters maps each action to its typed counter field. The mapping is
// fixed at compile time; client input never selects a store field directly.
var actionCounters = map[Action]listing.CounterField{
	ActionView:       listing.CounterViews,
	ActionWebsite:    listing.CounterWebsiteClicks,
	ActionDirections: listing.CounterDirectionRequests,
	ActionPhoneCall:  listing.CounterPhoneClicks,
	ActionWhatsapp:   listing.CounterWhatsappClicks,
	ActionInstagram:  listing.CounterInstagramClicks,
}

// ParseAction validates a client-supplied action string.
func ParseAction(s string) (Action, error) {
	a := Action(s)
	if _, ok := actionCounters[a]; !ok {
		return "", ErrInvalidAction
	}
	return a, nil
}

// Tracker applies engagement actions to the listing store.
type Tracker struct {
	repo    listing.Repository
	logger  *slog.Logger
	metrics *Metrics
}

// NewTracker creates a tracker. logger and metrics may be nil.
func NewTracker(repo listing.Repository, logger *slog.Logger, metrics *Metrics) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{repo: repo, logger: logger, metrics: metrics}
}

// Record increments the counter for one action on one listing. The listing
// must exist before any mutation is attempted: an unknown action returns
// ErrInvalidAction and an unknown id returns listing.ErrNotFound, both
// without touching a counter.
func (t *Tracker) Record(ctx context.Context, id string, action Action) error {
	field, ok := actionCounters[action]
	if !ok {
		return ErrInvalidAction
	}

	if _, err := t.repo.GetByID(ctx, id); err != nil {
		return err
	}

	if err := t.repo.IncrementCounter(ctx, id, field, 1); err != nil {
		return fmt.Errorf("increment %s for %s: %w", field.Column(), id, err)
	}

	if t.metrics != nil {
		t.metrics.IncAction(action)
	}
	return nil
}

// RecordViewBestEffort increments the view counter during a read. It never
// returns an error: an increment failure is logged and observed, and the
// read it is attached to succeeds regardless.
func (t *Tracker) RecordViewBestEffort(ctx context.Context, id string) {
	if err := t.repo.IncrementCounter(ctx, id, listing.CounterViews, 1); err != nil {
		t.logger.Warn("best-effort view increment failed",
			"listing_id", id,
			"error", err)
		if t.metrics != nil {
			t.metrics.IncViewIncrementFailures()
		}
		return
	}
	if t.metrics != nil {
		t.metrics.IncAction(ActionView)
	}
}
