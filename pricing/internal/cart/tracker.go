package cart

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"campaign_pricing/pricing/internal/campaign"
	"campaign_pricing/pricing/internal/events"
	"campaign_pricing/pricing/internal/logic"
)

// AddItem is one product a campaign action asks to put in the cart.
type AddItem struct {
	ProductID   int64             `json:"product_id"`
	VariationID int64             `json:"variation_id,omitempty"`
	Quantity    int               `json:"quantity"`
	Attributes  map[string]string `json:"attributes,omitempty"`
	Role        Role              `json:"role,omitempty"`
}

func (i AddItem) itemID() int64 {
	if i.VariationID > 0 {
		return i.VariationID
	}
	return i.ProductID
}

// AddRequest is a campaign add-to-cart action.
type AddRequest struct {
	ProductID        int64     `json:"product_id"`
	SelectedQuantity int       `json:"quantity"`
	Items            []AddItem `json:"items"`
}

type AddResult struct {
	Keys     []string `json:"keys"`
	Failed   []int64  `json:"failed,omitempty"`
	AllAdded bool     `json:"all_added"`
}

type Tracker struct {
	catalog  campaign.Catalog
	calc     *logic.Calculator
	notifier events.Notifier
	registry Registry
	logger   *slog.Logger
}

func NewTracker(catalog campaign.Catalog, calc *logic.Calculator, notifier events.Notifier, registry Registry, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	if notifier == nil {
		notifier = events.Multi{}
	}
	if registry == nil {
		registry = DefaultRegistry()
	}
	return &Tracker{
		catalog:  catalog,
		calc:     calc,
		notifier: notifier,
		registry: registry,
		logger:   logger.With("component", "cart"),
	}
}

// AddFromCampaign runs the campaign type's add flow.
func (t *Tracker) AddFromCampaign(ctx context.Context, sess *Session, c campaign.Campaign, req AddRequest) (AddResult, error) {
	strategy, ok := t.registry[c.Type]
	if !ok {
		return AddResult{}, fmt.Errorf("campaign type %q cannot add to cart", c.Type)
	}
	if len(req.Items) == 0 && req.ProductID > 0 {
		req.Items = []AddItem{{ProductID: req.ProductID, Quantity: 1}}
	}
	res, err := strategy.Add(ctx, t, sess, c, req)
	if err != nil {
		return res, err
	}
	t.logger.Info("campaign add",
		"session_id", sess.ID, "campaign_id", c.ID, "type", c.Type,
		"lines", len(res.Keys), "failed", len(res.Failed), "all_added", res.AllAdded)
	return res, nil
}

// addLine puts one tagged line in the cart and records it. A rejected
// add is reported through ok=false rather than an error.
func (t *Tracker) addLine(ctx context.Context, sess *Session, c campaign.Campaign, item AddItem, qty int, tag *Tag) (string, bool, error) {
	p, err := t.catalog.GetProduct(ctx, item.itemID())
	if errors.Is(err, campaign.ErrNotFound) {
		t.logger.Warn("campaign add skipped, unknown product", "campaign_id", c.ID, "product_id", item.itemID())
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	key, err := sess.Cart.AddLine(ctx, LineRequest{
		ProductID:   item.ProductID,
		VariationID: item.VariationID,
		Quantity:    qty,
		Attributes:  item.Attributes,
		UnitPrice:   t.calc.BasePrice(*p),
		Tag:         tag,
	})
	if errors.Is(err, ErrAddRejected) {
		t.logger.Warn("cart rejected campaign line", "campaign_id", c.ID, "product_id", item.ProductID)
		t.notify(ctx, sess, c, events.AddFailed, item.ProductID, "", nil)
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if err := t.OnAdded(ctx, sess, c, item.ProductID, key); err != nil {
		return key, true, err
	}
	return key, true, nil
}

// OnAdded records the line for (campaign, product) unless one is already
// recorded, then notifies "<type>.added".
func (t *Tracker) OnAdded(ctx context.Context, sess *Session, c campaign.Campaign, productID int64, key string) error {
	assoc, err := sess.Associations(ctx)
	if err != nil {
		return err
	}
	if assoc.Record(c.ID, productID, key) {
		if err := sess.saveAssociations(ctx); err != nil {
			return err
		}
	}
	t.notify(ctx, sess, c, events.Added, productID, key, nil)
	return nil
}

// InCart reports whether the campaign already has a line for productID.
func (t *Tracker) InCart(ctx context.Context, sess *Session, campaignID, productID int64) (bool, error) {
	assoc, err := sess.Associations(ctx)
	if err != nil {
		return false, err
	}
	_, ok := assoc.Lookup(campaignID, productID)
	return ok, nil
}

// Remove takes a line out of the cart and reacts to it.
func (t *Tracker) Remove(ctx context.Context, sess *Session, key string) (Line, error) {
	line, err := sess.Cart.RemoveLine(ctx, key)
	if err != nil {
		return Line{}, err
	}
	return line, t.OnRemoved(ctx, sess, line)
}

// OnRemoved forgets the removed line's mapping and dispatches the
// type-specific removed notification.
func (t *Tracker) OnRemoved(ctx context.Context, sess *Session, line Line) error {
	if !line.Tagged() {
		return nil
	}
	assoc, err := sess.Associations(ctx)
	if err != nil {
		return err
	}
	if assoc.Forget(line.Tag.CampaignID, line.ProductID, line.Key) {
		if err := sess.saveAssociations(ctx); err != nil {
			return err
		}
	}
	if s, ok := t.registry[line.Tag.CampaignType]; ok {
		e := s.Removed(line)
		e.SessionID = sess.ID
		t.notifier.Notify(ctx, e)
	}
	return nil
}

// UpdateQuantity sets a line's quantity. Zero or less removes the line
// through Remove, so its association goes with it.
func (t *Tracker) UpdateQuantity(ctx context.Context, sess *Session, key string, qty int) error {
	if qty <= 0 {
		_, err := t.Remove(ctx, sess, key)
		return err
	}
	return sess.Cart.SetQuantity(ctx, key, qty)
}

// Restore brings a removed line back and reacts to it.
func (t *Tracker) Restore(ctx context.Context, sess *Session, key string) (Line, error) {
	line, err := sess.Cart.RestoreLine(ctx, key)
	if err != nil {
		return Line{}, err
	}
	return line, t.OnRestored(ctx, sess, line)
}

// OnRestored reinstates the mapping with first-writer-wins semantics.
func (t *Tracker) OnRestored(ctx context.Context, sess *Session, line Line) error {
	if !line.Tagged() {
		return nil
	}
	assoc, err := sess.Associations(ctx)
	if err != nil {
		return err
	}
	if assoc.Record(line.Tag.CampaignID, line.ProductID, line.Key) {
		if err := sess.saveAssociations(ctx); err != nil {
			return err
		}
	}
	if s, ok := t.registry[line.Tag.CampaignType]; ok {
		e := s.Restored(line)
		e.SessionID = sess.ID
		t.notifier.Notify(ctx, e)
	}
	return nil
}

// Empty clears the cart and every association.
func (t *Tracker) Empty(ctx context.Context, sess *Session) error {
	if err := sess.Cart.Empty(ctx); err != nil {
		return err
	}
	return t.OnEmptied(ctx, sess)
}

func (t *Tracker) OnEmptied(ctx context.Context, sess *Session) error {
	assoc, err := sess.Associations(ctx)
	if err != nil {
		return err
	}
	assoc.Clear()
	if err := sess.saveAssociations(ctx); err != nil {
		return err
	}
	t.notifier.Notify(ctx, events.Event{Name: events.CartEmptied, SessionID: sess.ID})
	return nil
}

func (t *Tracker) notify(ctx context.Context, sess *Session, c campaign.Campaign, event string, productID int64, key string, related []string) {
	t.notifier.Notify(ctx, events.Event{
		Name:         events.Name(c.Type, event),
		SessionID:    sess.ID,
		CampaignID:   c.ID,
		CampaignType: c.Type,
		ProductID:    productID,
		LineKey:      key,
		RelatedKeys:  related,
	})
}
