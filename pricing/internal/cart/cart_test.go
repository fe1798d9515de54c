package cart

import (
	"context"
	"errors"
	"testing"

	"campaign_pricing/pricing/internal/campaign"
	"campaign_pricing/pricing/internal/events"
	"campaign_pricing/pricing/internal/logic"
	"campaign_pricing/pricing/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	events []events.Event
}

func (r *recorder) Notify(_ context.Context, e events.Event) {
	r.events = append(r.events, e)
}

func (r *recorder) names() []string {
	var out []string
	for _, e := range r.events {
		out = append(out, e.Name)
	}
	return out
}

// rejectingCart refuses lines for the listed products.
type rejectingCart struct {
	*SessionCart
	reject map[int64]bool
}

func (c *rejectingCart) AddLine(ctx context.Context, req LineRequest) (string, error) {
	if c.reject[req.ProductID] {
		return "", ErrAddRejected
	}
	return c.SessionCart.AddLine(ctx, req)
}

type fixture struct {
	catalog  *store.StaticStore
	sessions *store.LocalSessions
	rec      *recorder
	tracker  *Tracker
	sess     *Session
	cart     *rejectingCart
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	catalog := store.NewStaticStore()
	for id, price := range map[int64]string{1: "10", 2: "20", 3: "30", 4: "40"} {
		catalog.PutProduct(campaign.Product{ID: id, Kind: campaign.ProductSimple, RegularPrice: decimal.RequireFromString(price), Stock: 100})
	}
	sessions := store.NewLocalSessions()
	c := &rejectingCart{SessionCart: NewSessionCart(sessions, "s1", decimal.NewFromInt(5)), reject: map[int64]bool{}}
	rec := &recorder{}
	return &fixture{
		catalog:  catalog,
		sessions: sessions,
		rec:      rec,
		tracker:  NewTracker(catalog, logic.NewCalculator(nil), rec, nil, nil),
		sess:     NewSession("s1", c, sessions),
		cart:     c,
	}
}

func (f *fixture) lines(t *testing.T) map[string]Line {
	t.Helper()
	lines, err := f.sess.Cart.Lines(context.Background())
	require.NoError(t, err)
	out := make(map[string]Line)
	for _, l := range lines {
		out[l.Key] = l
	}
	return out
}

func pct(v int64) campaign.Offer {
	return campaign.Offer{DiscountType: campaign.Percentage, Value: decimal.NewFromInt(v), Quantity: 1}
}

func TestAssociationMap(t *testing.T) {
	m := AssociationMap{}
	assert.True(t, m.Record(7, 1, "a"))
	assert.False(t, m.Record(7, 1, "b"), "first writer wins")
	key, _ := m.Lookup(7, 1)
	assert.Equal(t, "a", key)

	assert.False(t, m.Forget(7, 1, "b"))
	assert.True(t, m.Forget(7, 1, "a"))
	_, ok := m[7]
	assert.False(t, ok, "empty campaign entry removed")

	m.Record(1, 1, "x")
	m.Record(2, 2, "y")
	m.Clear()
	assert.Empty(t, m)
}

func TestAddFromCampaign_SimpleWithQuantitySelector(t *testing.T) {
	f := newFixture(t)
	offer := pct(10)
	offer.ProductIDs = []int64{1}
	c := campaign.Campaign{ID: 7, Type: campaign.NormalDiscount, Offers: []campaign.Offer{offer}, QuantitySelector: true}

	res, err := f.tracker.AddFromCampaign(context.Background(), f.sess, c, AddRequest{ProductID: 1, SelectedQuantity: 3})
	require.NoError(t, err)
	require.True(t, res.AllAdded)
	require.Len(t, res.Keys, 1)

	line := f.lines(t)[res.Keys[0]]
	assert.Equal(t, 3, line.Quantity)
	assert.True(t, line.UnitPrice.Equal(decimal.NewFromInt(10)))
	require.NotNil(t, line.Tag.Offer)
	assert.Equal(t, campaign.Percentage, line.Tag.Offer.DiscountType)

	in, err := f.tracker.InCart(context.Background(), f.sess, 7, 1)
	require.NoError(t, err)
	assert.True(t, in)
	assert.Equal(t, []string{"normal_discount.added"}, f.rec.names())
}

func TestAddFromCampaign_SelectorDisabledKeepsQuantity(t *testing.T) {
	f := newFixture(t)
	c := campaign.Campaign{ID: 7, Type: campaign.VolumeDiscount, Offers: []campaign.Offer{pct(10)}}

	res, err := f.tracker.AddFromCampaign(context.Background(), f.sess, c, AddRequest{ProductID: 1, SelectedQuantity: 4})
	require.NoError(t, err)
	line := f.lines(t)[res.Keys[0]]
	assert.Equal(t, 1, line.Quantity)
	assert.Len(t, line.Tag.Offers, 1)
}

func bxgyCampaign() campaign.Campaign {
	offer := campaign.Offer{DiscountType: campaign.Free, Quantity: 1, ProductIDs: []int64{3}}
	return campaign.Campaign{
		ID:           8,
		Type:         campaign.BuyXGetY,
		FreeShipping: true,
		Triggers:     []campaign.TriggerGroup{{Kind: campaign.TriggerProducts, ProductIDs: []int64{1, 2}}},
		Offers:       []campaign.Offer{offer},
	}
}

func TestAddFromCampaign_BuyXGetY(t *testing.T) {
	f := newFixture(t)
	req := AddRequest{ProductID: 1, Items: []AddItem{{ProductID: 1, Quantity: 1}, {ProductID: 2, Quantity: 2}, {ProductID: 3, Quantity: 1}}}

	res, err := f.tracker.AddFromCampaign(context.Background(), f.sess, bxgyCampaign(), req)
	require.NoError(t, err)
	require.True(t, res.AllAdded)
	require.Len(t, res.Keys, 3)

	lines := f.lines(t)
	first, last, offer := lines[res.Keys[0]], lines[res.Keys[1]], lines[res.Keys[2]]
	assert.Empty(t, first.Tag.SiblingKeys)
	assert.Equal(t, []string{first.Key}, last.Tag.SiblingKeys)
	assert.Equal(t, RoleOffer, offer.Tag.Role)
	assert.Equal(t, []string{first.Key, last.Key}, offer.Tag.TriggerKeys)
	assert.Equal(t, map[int64]int{1: 1, 2: 2}, offer.Tag.RequiredTriggers)
	assert.Contains(t, f.rec.names(), "buy_x_get_y.bundle_added")
}

func TestAddFromCampaign_BuyXGetYPartialFailureIsNotRolledBack(t *testing.T) {
	f := newFixture(t)
	f.cart.reject[2] = true
	req := AddRequest{ProductID: 1, Items: []AddItem{{ProductID: 1}, {ProductID: 2}}}

	res, err := f.tracker.AddFromCampaign(context.Background(), f.sess, bxgyCampaign(), req)
	require.NoError(t, err)
	assert.False(t, res.AllAdded)
	assert.Equal(t, []int64{2}, res.Failed)
	assert.Len(t, f.lines(t), 1)
	assert.NotContains(t, f.rec.names(), "buy_x_get_y.bundle_added")
	assert.Contains(t, f.rec.names(), "buy_x_get_y.add_failed")
}

func TestAddFromCampaign_FrequentlyBoughtTogetherAnnotatesTriggers(t *testing.T) {
	f := newFixture(t)
	c := campaign.Campaign{
		ID:       9,
		Type:     campaign.FrequentlyBoughtTogether,
		Triggers: []campaign.TriggerGroup{{Kind: campaign.TriggerProducts, ProductIDs: []int64{1}}},
		Offers:   []campaign.Offer{{DiscountType: campaign.Percentage, Value: decimal.NewFromInt(15), ProductIDs: []int64{3, 4}}},
	}
	req := AddRequest{ProductID: 1, Items: []AddItem{{ProductID: 1}, {ProductID: 3}, {ProductID: 4}}}

	res, err := f.tracker.AddFromCampaign(context.Background(), f.sess, c, req)
	require.NoError(t, err)
	require.Len(t, res.Keys, 3)

	lines := f.lines(t)
	trigger := lines[res.Keys[0]]
	assert.Equal(t, []string{res.Keys[0]}, trigger.Tag.TriggerKeys)
	assert.Equal(t, []string{res.Keys[1], res.Keys[2]}, trigger.Tag.OfferKeys)
	assert.Equal(t, []string{res.Keys[0]}, lines[res.Keys[1]].Tag.TriggerKeys)
}

func TestAddFromCampaign_BundleIsOneLine(t *testing.T) {
	f := newFixture(t)
	c := campaign.Campaign{
		ID:       10,
		Type:     campaign.BundleDiscount,
		Triggers: []campaign.TriggerGroup{{Kind: campaign.TriggerProducts, ProductIDs: []int64{1}}},
		Offers: []campaign.Offer{
			{DiscountType: campaign.Percentage, Value: decimal.NewFromInt(10), Quantity: 1, ProductIDs: []int64{1}},
			{DiscountType: campaign.FixedDiscount, Value: decimal.NewFromInt(5), Quantity: 2, ProductIDs: []int64{2}},
		},
	}

	res, err := f.tracker.AddFromCampaign(context.Background(), f.sess, c, AddRequest{ProductID: 1})
	require.NoError(t, err)
	require.Len(t, res.Keys, 1)

	line := f.lines(t)[res.Keys[0]]
	assert.Equal(t, RoleBundle, line.Tag.Role)
	assert.Len(t, line.Tag.Offers, 2)
	assert.Equal(t, []BundleItem{{ProductID: 1, Quantity: 1}, {ProductID: 2, Quantity: 2}}, line.Tag.BundleProducts)
	assert.Equal(t, []int64{1}, line.Tag.TriggerProducts)
}

func TestAddFromCampaign_UnsupportedType(t *testing.T) {
	f := newFixture(t)
	_, err := f.tracker.AddFromCampaign(context.Background(), f.sess, campaign.Campaign{ID: 1, Type: campaign.CountdownTimer}, AddRequest{ProductID: 1})
	assert.Error(t, err)
}

func TestRemoveAndRestore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := AddRequest{ProductID: 1, Items: []AddItem{{ProductID: 1}, {ProductID: 2}}}
	res, err := f.tracker.AddFromCampaign(ctx, f.sess, bxgyCampaign(), req)
	require.NoError(t, err)

	_, err = f.tracker.Remove(ctx, f.sess, res.Keys[1])
	require.NoError(t, err)
	assoc, err := f.sess.Associations(ctx)
	require.NoError(t, err)
	_, ok := assoc.Lookup(8, 2)
	assert.False(t, ok)

	last := f.rec.events[len(f.rec.events)-1]
	assert.Equal(t, "buy_x_get_y.removed", last.Name)
	assert.Equal(t, []string{res.Keys[0]}, last.RelatedKeys)

	_, err = f.tracker.Remove(ctx, f.sess, res.Keys[0])
	require.NoError(t, err)
	_, ok = assoc[8]
	assert.False(t, ok, "campaign entry dropped once empty")

	_, err = f.tracker.Restore(ctx, f.sess, res.Keys[1])
	require.NoError(t, err)
	key, ok := assoc.Lookup(8, 2)
	assert.True(t, ok)
	assert.Equal(t, res.Keys[1], key)
	assert.Equal(t, "buy_x_get_y.restored", f.rec.events[len(f.rec.events)-1].Name)
}

func TestRestore_DoesNotOverwriteExistingMapping(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := campaign.Campaign{ID: 7, Type: campaign.NormalDiscount, Offers: []campaign.Offer{pct(10)}}

	first, err := f.tracker.AddFromCampaign(ctx, f.sess, c, AddRequest{ProductID: 1})
	require.NoError(t, err)
	_, err = f.tracker.Remove(ctx, f.sess, first.Keys[0])
	require.NoError(t, err)

	second, err := f.tracker.AddFromCampaign(ctx, f.sess, c, AddRequest{ProductID: 1})
	require.NoError(t, err)
	_, err = f.tracker.Restore(ctx, f.sess, first.Keys[0])
	require.NoError(t, err)

	assoc, _ := f.sess.Associations(ctx)
	key, _ := assoc.Lookup(7, 1)
	assert.Equal(t, second.Keys[0], key)
}

func TestEmptyClearsAssociations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := campaign.Campaign{ID: 7, Type: campaign.NormalDiscount, Offers: []campaign.Offer{pct(10)}}
	_, err := f.tracker.AddFromCampaign(ctx, f.sess, c, AddRequest{ProductID: 1})
	require.NoError(t, err)

	require.NoError(t, f.tracker.Empty(ctx, f.sess))
	assert.Empty(t, f.lines(t))

	reloaded := NewSession("s1", f.cart, f.sessions)
	assoc, err := reloaded.Associations(ctx)
	require.NoError(t, err)
	assert.Empty(t, assoc)
}

func TestSessionCart_TagSurvivesReload(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res, err := f.tracker.AddFromCampaign(ctx, f.sess, bxgyCampaign(), AddRequest{ProductID: 1, Items: []AddItem{{ProductID: 1}, {ProductID: 3}}})
	require.NoError(t, err)

	reloaded := NewSessionCart(f.sessions, "s1", decimal.Zero)
	lines, err := reloaded.Lines(ctx)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, int64(8), lines[1].Tag.CampaignID)
	assert.Equal(t, campaign.BuyXGetY, lines[1].Tag.CampaignType)
	assert.Equal(t, []string{res.Keys[0]}, lines[1].Tag.TriggerKeys)
	assert.True(t, lines[1].Tag.Offer.DiscountType == campaign.Free)
}

func TestSessionCart_Totals(t *testing.T) {
	ctx := context.Background()
	c := NewSessionCart(store.NewLocalSessions(), "s1", decimal.NewFromInt(5))

	totals, err := c.RecalculateTotals(ctx)
	require.NoError(t, err)
	assert.True(t, totals.Total.IsZero(), "no shipping on an empty cart")

	_, err = c.AddLine(ctx, LineRequest{ProductID: 1, Quantity: 2, UnitPrice: decimal.RequireFromString("7.5")})
	require.NoError(t, err)
	totals, err = c.RecalculateTotals(ctx)
	require.NoError(t, err)
	assert.True(t, totals.Total.Equal(decimal.NewFromInt(20)))

	require.NoError(t, c.SetFreeShipping(ctx, true))
	totals, err = c.RecalculateTotals(ctx)
	require.NoError(t, err)
	assert.True(t, totals.Total.Equal(decimal.NewFromInt(15)))
	assert.True(t, totals.FreeShipping)

	_, err = c.AddLine(ctx, LineRequest{ProductID: 1, Quantity: 0})
	assert.ErrorIs(t, err, ErrAddRejected)
}

func TestAddFromCampaign_BuyXGetYSiblingsOnLastAddedTrigger(t *testing.T) {
	f := newFixture(t)
	f.cart.reject[4] = true
	req := AddRequest{ProductID: 1, Items: []AddItem{
		{ProductID: 1}, {ProductID: 2}, {ProductID: 4, Role: RoleTrigger},
	}}

	res, err := f.tracker.AddFromCampaign(context.Background(), f.sess, bxgyCampaign(), req)
	require.NoError(t, err)
	require.Len(t, res.Keys, 2)

	lines := f.lines(t)
	assert.Empty(t, lines[res.Keys[0]].Tag.SiblingKeys)
	assert.Equal(t, []string{res.Keys[0]}, lines[res.Keys[1]].Tag.SiblingKeys)
}

func TestAddFromCampaign_BundleOfferWithoutProductsCoversAnchor(t *testing.T) {
	f := newFixture(t)
	c := campaign.Campaign{ID: 11, Type: campaign.BundleDiscount, Offers: []campaign.Offer{pct(10)}}

	res, err := f.tracker.AddFromCampaign(context.Background(), f.sess, c, AddRequest{ProductID: 2})
	require.NoError(t, err)
	require.Len(t, res.Keys, 1)
	assert.Equal(t, []BundleItem{{ProductID: 2, Quantity: 1}}, f.lines(t)[res.Keys[0]].Tag.BundleProducts)
}

func TestUpdateQuantity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := campaign.Campaign{ID: 7, Type: campaign.NormalDiscount, Offers: []campaign.Offer{pct(10)}}
	res, err := f.tracker.AddFromCampaign(ctx, f.sess, c, AddRequest{ProductID: 1})
	require.NoError(t, err)
	key := res.Keys[0]

	require.NoError(t, f.tracker.UpdateQuantity(ctx, f.sess, key, 4))
	assert.Equal(t, 4, f.lines(t)[key].Quantity)

	require.NoError(t, f.tracker.UpdateQuantity(ctx, f.sess, key, 0))
	assert.Empty(t, f.lines(t))
	in, err := f.tracker.InCart(ctx, f.sess, 7, 1)
	require.NoError(t, err)
	assert.False(t, in)
	assert.Equal(t, "normal_discount.removed", f.rec.events[len(f.rec.events)-1].Name)

	assert.ErrorIs(t, f.tracker.UpdateQuantity(ctx, f.sess, "missing", 2), ErrLineNotFound)
	assert.ErrorIs(t, f.cart.SetQuantity(ctx, key, 0), ErrBadQuantity)
}

// flakySessions fails the first failLoads reads.
type flakySessions struct {
	*store.LocalSessions
	failLoads int
}

func (s *flakySessions) Load(ctx context.Context, sessionID, name string) ([]byte, bool, error) {
	if s.failLoads > 0 {
		s.failLoads--
		return nil, false, errors.New("connection refused")
	}
	return s.LocalSessions.Load(ctx, sessionID, name)
}

func TestAssociations_FailedLoadKeepsStoredMap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := campaign.Campaign{ID: 7, Type: campaign.NormalDiscount, Offers: []campaign.Offer{pct(10)}}
	_, err := f.tracker.AddFromCampaign(ctx, f.sess, c, AddRequest{ProductID: 1})
	require.NoError(t, err)

	flaky := &flakySessions{LocalSessions: f.sessions, failLoads: 1}
	sess := NewSession("s1", f.cart, flaky)
	_, err = sess.Associations(ctx)
	require.Error(t, err)

	// The next read retries the store instead of handing out an empty map.
	in, err := f.tracker.InCart(ctx, sess, 7, 1)
	require.NoError(t, err)
	assert.True(t, in)
}
