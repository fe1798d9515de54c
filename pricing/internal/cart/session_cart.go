package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const cartName = "cart"

type cartState struct {
	Lines        []Line `json:"lines"`
	Removed      []Line `json:"removed,omitempty"`
	FreeShipping bool   `json:"free_shipping"`
}

// SessionCart is a Cart persisted as one JSON document per session.
type SessionCart struct {
	store        SessionStore
	sessionID    string
	flatShipping decimal.Decimal
}

func NewSessionCart(store SessionStore, sessionID string, flatShipping decimal.Decimal) *SessionCart {
	return &SessionCart{store: store, sessionID: sessionID, flatShipping: flatShipping}
}

func (c *SessionCart) load(ctx context.Context) (*cartState, error) {
	raw, ok, err := c.store.Load(ctx, c.sessionID, cartName)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	st := &cartState{}
	if !ok || len(raw) == 0 {
		return st, nil
	}
	if err := json.Unmarshal(raw, st); err != nil {
		return nil, fmt.Errorf("failed to decode cart: %w", err)
	}
	return st, nil
}

func (c *SessionCart) save(ctx context.Context, st *cartState) error {
	data, err := json.Marshal(st)
	if err != nil {
		return err
	}
	if err := c.store.Save(ctx, c.sessionID, cartName, data); err != nil {
		return fmt.Errorf("failed to save cart: %w", err)
	}
	return nil
}

func (c *SessionCart) Lines(ctx context.Context) ([]Line, error) {
	st, err := c.load(ctx)
	if err != nil {
		return nil, err
	}
	return st.Lines, nil
}

func (c *SessionCart) AddLine(ctx context.Context, req LineRequest) (string, error) {
	if req.ProductID <= 0 || req.Quantity <= 0 {
		return "", ErrAddRejected
	}
	st, err := c.load(ctx)
	if err != nil {
		return "", err
	}
	line := Line{
		Key:         uuid.New().String(),
		ProductID:   req.ProductID,
		VariationID: req.VariationID,
		Quantity:    req.Quantity,
		Attributes:  req.Attributes,
		UnitPrice:   req.UnitPrice,
		Tag:         req.Tag,
	}
	st.Lines = append(st.Lines, line)
	if err := c.save(ctx, st); err != nil {
		return "", err
	}
	return line.Key, nil
}

func (c *SessionCart) RemoveLine(ctx context.Context, key string) (Line, error) {
	st, err := c.load(ctx)
	if err != nil {
		return Line{}, err
	}
	i := slices.IndexFunc(st.Lines, func(l Line) bool { return l.Key == key })
	if i < 0 {
		return Line{}, ErrLineNotFound
	}
	line := st.Lines[i]
	st.Lines = slices.Delete(st.Lines, i, i+1)
	st.Removed = append(st.Removed, line)
	return line, c.save(ctx, st)
}

func (c *SessionCart) RestoreLine(ctx context.Context, key string) (Line, error) {
	st, err := c.load(ctx)
	if err != nil {
		return Line{}, err
	}
	i := slices.IndexFunc(st.Removed, func(l Line) bool { return l.Key == key })
	if i < 0 {
		return Line{}, ErrLineNotFound
	}
	line := st.Removed[i]
	st.Removed = slices.Delete(st.Removed, i, i+1)
	st.Lines = append(st.Lines, line)
	return line, c.save(ctx, st)
}

func (c *SessionCart) SetLineTag(ctx context.Context, key string, tag *Tag) error {
	return c.update(ctx, key, func(l *Line) { l.Tag = tag })
}

func (c *SessionCart) SetLinePrice(ctx context.Context, key string, price decimal.Decimal) error {
	return c.update(ctx, key, func(l *Line) { l.UnitPrice = price })
}

// SetQuantity changes a line quantity. Lines are taken out through
// RemoveLine, never by a zero quantity.
func (c *SessionCart) SetQuantity(ctx context.Context, key string, qty int) error {
	if qty <= 0 {
		return ErrBadQuantity
	}
	return c.update(ctx, key, func(l *Line) { l.Quantity = qty })
}

func (c *SessionCart) update(ctx context.Context, key string, fn func(*Line)) error {
	st, err := c.load(ctx)
	if err != nil {
		return err
	}
	i := slices.IndexFunc(st.Lines, func(l Line) bool { return l.Key == key })
	if i < 0 {
		return ErrLineNotFound
	}
	fn(&st.Lines[i])
	return c.save(ctx, st)
}

func (c *SessionCart) SetFreeShipping(ctx context.Context, eligible bool) error {
	st, err := c.load(ctx)
	if err != nil {
		return err
	}
	if st.FreeShipping == eligible {
		return nil
	}
	st.FreeShipping = eligible
	return c.save(ctx, st)
}

func (c *SessionCart) RecalculateTotals(ctx context.Context) (Totals, error) {
	st, err := c.load(ctx)
	if err != nil {
		return Totals{}, err
	}
	var t Totals
	for _, l := range st.Lines {
		t.Subtotal = t.Subtotal.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
		t.Items += l.Quantity
	}
	t.FreeShipping = st.FreeShipping
	if len(st.Lines) > 0 && !st.FreeShipping {
		t.Shipping = c.flatShipping
	}
	t.Total = t.Subtotal.Add(t.Shipping)
	return t, nil
}

func (c *SessionCart) Empty(ctx context.Context) error {
	return c.save(ctx, &cartState{})
}
