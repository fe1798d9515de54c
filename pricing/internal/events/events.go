package events

import (
	"context"
	"log/slog"

	"campaign_pricing/pricing/internal/campaign"
)

const (
	Added       = "added"
	Removed     = "removed"
	Restored    = "restored"
	BundleAdded = "bundle_added"
	CartEmptied = "cart.emptied" // full name, not scoped to a campaign type
	AddFailed   = "add_failed"
)

// Name builds the conventional "<campaignType>.<event>" notification name.
func Name(t campaign.Type, event string) string {
	return string(t) + "." + event
}

// Event is a cart lifecycle notification for one campaign.
type Event struct {
	Name         string        `json:"name"`
	SessionID    string        `json:"session_id"`
	CampaignID   int64         `json:"campaign_id"`
	CampaignType campaign.Type `json:"campaign_type"`
	ProductID    int64         `json:"product_id"`
	LineKey      string        `json:"line_key"`
	RelatedKeys  []string      `json:"related_keys,omitempty"`
}

// Notifier receives lifecycle notifications. Delivery is best effort;
// nothing in pricing depends on a notification being handled.
type Notifier interface {
	Notify(ctx context.Context, e Event)
}

type NotifierFunc func(ctx context.Context, e Event)

func (f NotifierFunc) Notify(ctx context.Context, e Event) {
	f(ctx, e)
}

// Multi fans an event out to every notifier in order.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, e Event) {
	for _, n := range m {
		if n != nil {
			n.Notify(ctx, e)
		}
	}
}

// LogNotifier writes every event to a structured logger.
type LogNotifier struct {
	Logger *slog.Logger
}

func (l LogNotifier) Notify(ctx context.Context, e Event) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "campaign lifecycle",
		"event", e.Name,
		"session_id", e.SessionID,
		"campaign_id", e.CampaignID,
		"product_id", e.ProductID,
		"line_key", e.LineKey,
		"related", len(e.RelatedKeys),
	)
}
