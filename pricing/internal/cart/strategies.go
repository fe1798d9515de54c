package cart

import (
	"context"
	"slices"

	"campaign_pricing/pricing/internal/campaign"
	"campaign_pricing/pricing/internal/events"
)

// Strategy is the per-campaign-type cart behaviour.
type Strategy interface {
	Add(ctx context.Context, t *Tracker, sess *Session, c campaign.Campaign, req AddRequest) (AddResult, error)
	Removed(line Line) events.Event
	Restored(line Line) events.Event
}

// Registry maps campaign types to their cart strategy.
type Registry map[campaign.Type]Strategy

func DefaultRegistry() Registry {
	return Registry{
		campaign.NormalDiscount:           simpleStrategy{},
		campaign.FreeShippingBar:          simpleStrategy{},
		campaign.SpendingGoal:             simpleStrategy{},
		campaign.VolumeDiscount:           simpleStrategy{keepTiers: true},
		campaign.MixMatch:                 simpleStrategy{keepTiers: true},
		campaign.BuyXGetY:                 buyXGetYStrategy{},
		campaign.FrequentlyBoughtTogether: togetherStrategy{},
		campaign.BundleDiscount:           bundleStrategy{},
	}
}

func lineEvent(line Line, event string, related []string) events.Event {
	return events.Event{
		Name:         events.Name(line.Tag.CampaignType, event),
		CampaignID:   line.Tag.CampaignID,
		CampaignType: line.Tag.CampaignType,
		ProductID:    line.ProductID,
		LineKey:      line.Key,
		RelatedKeys:  related,
	}
}

type lifecycle struct{}

func (lifecycle) Removed(line Line) events.Event  { return lineEvent(line, events.Removed, nil) }
func (lifecycle) Restored(line Line) events.Event { return lineEvent(line, events.Restored, nil) }

func newTag(c campaign.Campaign, role Role) *Tag {
	return &Tag{
		CampaignID:   c.ID,
		CampaignType: c.Type,
		FreeShipping: c.FreeShipping,
		Role:         role,
	}
}

func itemQuantity(item AddItem) int {
	if item.Quantity < 1 {
		return 1
	}
	return item.Quantity
}

// offerSnapshot copies the offer for item. Offers without products apply to
// whatever the campaign triggers on.
func offerSnapshot(c campaign.Campaign, item AddItem) *campaign.Offer {
	for _, id := range []int64{item.itemID(), item.ProductID} {
		if o, ok := c.OfferFor(id); ok {
			return &o
		}
	}
	for _, o := range c.Offers {
		if len(o.ProductIDs) == 0 {
			return &o
		}
	}
	return nil
}

// splitItems separates trigger items from offer items. An explicit role
// wins; otherwise items named only by offers are offer items.
func splitItems(c campaign.Campaign, items []AddItem) (triggers, offers []AddItem) {
	offerIDs := c.OfferProductIDs()
	triggerIDs := c.TriggerProductIDs()
	for _, it := range items {
		switch it.Role {
		case RoleTrigger:
			triggers = append(triggers, it)
		case RoleOffer:
			offers = append(offers, it)
		default:
			inOffer := slices.Contains(offerIDs, it.itemID()) || slices.Contains(offerIDs, it.ProductID)
			inTrigger := slices.Contains(triggerIDs, it.itemID()) || slices.Contains(triggerIDs, it.ProductID)
			if inOffer && !inTrigger {
				offers = append(offers, it)
			} else {
				triggers = append(triggers, it)
			}
		}
	}
	return triggers, offers
}

// simpleStrategy adds each item as its own line.
type simpleStrategy struct {
	lifecycle
	keepTiers bool
}

func (s simpleStrategy) Add(ctx context.Context, t *Tracker, sess *Session, c campaign.Campaign, req AddRequest) (AddResult, error) {
	res := AddResult{AllAdded: true}
	for _, item := range req.Items {
		qty := itemQuantity(item)
		if c.QuantitySelector && req.SelectedQuantity > qty {
			qty = req.SelectedQuantity
		}
		tag := newTag(c, RoleItem)
		tag.Offer = offerSnapshot(c, item)
		if s.keepTiers {
			tag.Offers = slices.Clone(c.Offers)
		}

		key, ok, err := t.addLine(ctx, sess, c, item, qty, tag)
		if err != nil {
			return res, err
		}
		if !ok {
			res.Failed = append(res.Failed, item.ProductID)
			res.AllAdded = false
			continue
		}
		res.Keys = append(res.Keys, key)
	}
	return res, nil
}

// buyXGetYStrategy adds every trigger as its own line. The last trigger
// line carries the keys of its siblings so removal can cascade.
type buyXGetYStrategy struct{}

func (buyXGetYStrategy) Add(ctx context.Context, t *Tracker, sess *Session, c campaign.Campaign, req AddRequest) (AddResult, error) {
	triggers, offers := splitItems(c, req.Items)
	required := make(map[int64]int)
	for _, it := range triggers {
		required[it.itemID()] += itemQuantity(it)
	}

	// Lines already added stay in the cart when a later one fails.
	res := AddResult{AllAdded: len(triggers) > 0}
	var triggerKeys []string
	var lastTag *Tag
	for _, it := range triggers {
		tag := newTag(c, RoleTrigger)
		tag.RequiredTriggers = required
		key, ok, err := t.addLine(ctx, sess, c, it, itemQuantity(it), tag)
		if err != nil {
			return res, err
		}
		if !ok {
			res.Failed = append(res.Failed, it.ProductID)
			res.AllAdded = false
			continue
		}
		triggerKeys = append(triggerKeys, key)
		lastTag = tag
		res.Keys = append(res.Keys, key)
	}
	if n := len(triggerKeys); n > 1 {
		lastTag.SiblingKeys = slices.Clone(triggerKeys[:n-1])
		if err := sess.Cart.SetLineTag(ctx, triggerKeys[n-1], lastTag); err != nil {
			return res, err
		}
	}

	for _, it := range offers {
		tag := newTag(c, RoleOffer)
		tag.Offer = offerSnapshot(c, it)
		tag.RequiredTriggers = required
		tag.TriggerKeys = slices.Clone(triggerKeys)
		key, ok, err := t.addLine(ctx, sess, c, it, itemQuantity(it), tag)
		if err != nil {
			return res, err
		}
		if !ok {
			res.Failed = append(res.Failed, it.ProductID)
			res.AllAdded = false
			continue
		}
		res.Keys = append(res.Keys, key)
	}

	if res.AllAdded {
		t.notify(ctx, sess, c, events.BundleAdded, req.ProductID, triggerKeys[len(triggerKeys)-1], res.Keys)
	}
	return res, nil
}

func (buyXGetYStrategy) Removed(line Line) events.Event {
	return lineEvent(line, events.Removed, relatedKeys(line))
}

func (buyXGetYStrategy) Restored(line Line) events.Event {
	return lineEvent(line, events.Restored, relatedKeys(line))
}

// togetherStrategy adds required and offer lines, then annotates every
// required line with both key lists.
type togetherStrategy struct{}

func (togetherStrategy) Add(ctx context.Context, t *Tracker, sess *Session, c campaign.Campaign, req AddRequest) (AddResult, error) {
	triggers, offers := splitItems(c, req.Items)
	res := AddResult{AllAdded: len(req.Items) > 0}
	tags := make(map[string]*Tag)
	var triggerKeys, offerKeys []string

	for _, it := range triggers {
		tag := newTag(c, RoleTrigger)
		key, ok, err := t.addLine(ctx, sess, c, it, itemQuantity(it), tag)
		if err != nil {
			return res, err
		}
		if !ok {
			res.Failed = append(res.Failed, it.ProductID)
			res.AllAdded = false
			continue
		}
		tags[key] = tag
		triggerKeys = append(triggerKeys, key)
		res.Keys = append(res.Keys, key)
	}

	for _, it := range offers {
		tag := newTag(c, RoleOffer)
		tag.Offer = offerSnapshot(c, it)
		tag.TriggerKeys = slices.Clone(triggerKeys)
		key, ok, err := t.addLine(ctx, sess, c, it, itemQuantity(it), tag)
		if err != nil {
			return res, err
		}
		if !ok {
			res.Failed = append(res.Failed, it.ProductID)
			res.AllAdded = false
			continue
		}
		offerKeys = append(offerKeys, key)
		res.Keys = append(res.Keys, key)
	}

	for _, key := range triggerKeys {
		tag := tags[key]
		tag.TriggerKeys = slices.Clone(triggerKeys)
		tag.OfferKeys = slices.Clone(offerKeys)
		if err := sess.Cart.SetLineTag(ctx, key, tag); err != nil {
			return res, err
		}
	}

	if res.AllAdded {
		t.notify(ctx, sess, c, events.BundleAdded, req.ProductID, "", res.Keys)
	}
	return res, nil
}

func (togetherStrategy) Removed(line Line) events.Event {
	return lineEvent(line, events.Removed, relatedKeys(line))
}

func (togetherStrategy) Restored(line Line) events.Event {
	return lineEvent(line, events.Restored, relatedKeys(line))
}

// bundleStrategy puts the whole bundle in the cart as one line.
type bundleStrategy struct {
	lifecycle
}

func (bundleStrategy) Add(ctx context.Context, t *Tracker, sess *Session, c campaign.Campaign, req AddRequest) (AddResult, error) {
	anchor := AddItem{ProductID: req.ProductID}
	if anchor.ProductID == 0 && len(req.Items) > 0 {
		anchor = req.Items[0]
	}
	qty := req.SelectedQuantity
	if qty < 1 {
		qty = 1
	}

	tag := newTag(c, RoleBundle)
	tag.Offers = slices.Clone(c.Offers)
	for _, o := range c.Offers {
		oq := o.Quantity
		if oq < 1 {
			oq = 1
		}
		ids := o.ProductIDs
		if len(ids) == 0 {
			ids = []int64{anchor.itemID()}
		}
		for _, id := range ids {
			tag.BundleProducts = append(tag.BundleProducts, BundleItem{ProductID: id, Quantity: oq})
		}
	}
	tag.TriggerProducts = c.TriggerProductIDs()

	key, ok, err := t.addLine(ctx, sess, c, anchor, qty, tag)
	if err != nil {
		return AddResult{}, err
	}
	if !ok {
		return AddResult{Failed: []int64{anchor.ProductID}}, nil
	}
	return AddResult{Keys: []string{key}, AllAdded: true}, nil
}

func relatedKeys(line Line) []string {
	var out []string
	for _, list := range [][]string{line.Tag.SiblingKeys, line.Tag.TriggerKeys, line.Tag.OfferKeys} {
		for _, k := range list {
			if k != line.Key && !slices.Contains(out, k) {
				out = append(out, k)
			}
		}
	}
	return out
}
