package scarcity

import "campaign_pricing/pricing/internal/campaign"

type Settings = campaign.ScarcitySettings

type Tier string

const (
	TierNormal Tier = "normal"
	TierLow    Tier = "low"
	TierUrgent Tier = "urgent"
)

type Display struct {
	DisplayedQuantity int64 `json:"displayed_quantity"`
	DisplayedSold     int64 `json:"displayed_sold"`
	DisplayedViews    int64 `json:"displayed_views"`
	DisplayedUsers    int64 `json:"displayed_users"`
	MessageTier       Tier  `json:"message_tier"`

	QuantityDiff    int64 `json:"quantity_diff"`
	RawFakeQuantity int64 `json:"raw_fake_quantity"`
	Fake            bool  `json:"fake"`
}

// RawFakeQuantity is the unclamped fake stock: configured amount plus the
// change in live stock since the baseline was taken.
func RawFakeQuantity(cfg Settings, live Counters, b Baselines) int64 {
	return cfg.FakeQuantity + (live.Stock - b.Quantity)
}

// Compute derives display numbers from live counters and baselines.
// Displayed counters never go below zero.
func Compute(cfg Settings, live Counters, b Baselines) Display {
	out := Display{
		QuantityDiff: live.Stock - b.Quantity,
		Fake:         cfg.FakeEnabled,
	}
	if cfg.FakeEnabled {
		out.RawFakeQuantity = RawFakeQuantity(cfg, live, b)
		out.DisplayedQuantity = clamp(out.RawFakeQuantity)
		out.DisplayedSold = clamp(cfg.FakeSold + (live.Sold - b.Sold))
		out.DisplayedViews = clamp(cfg.FakeViews + (live.Views - b.Views))
		out.DisplayedUsers = clamp(cfg.FakeUsers + (live.Users - b.Users))
	} else {
		out.DisplayedQuantity = clamp(live.Stock)
		out.DisplayedSold = clamp(live.Sold)
		out.DisplayedViews = clamp(live.Views)
		out.DisplayedUsers = clamp(live.Users)
	}
	out.MessageTier = SelectTier(out.DisplayedQuantity, cfg.LowAmount, cfg.UrgentAmount)
	return out
}

// SelectTier picks the message for a displayed stock number. Urgent wins over low.
func SelectTier(displayed, lowAmount, urgentAmount int64) Tier {
	switch {
	case displayed <= urgentAmount:
		return TierUrgent
	case displayed <= lowAmount:
		return TierLow
	default:
		return TierNormal
	}
}

func clamp(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}
