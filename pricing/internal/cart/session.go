package cart

import (
	"context"
	"encoding/json"
	"fmt"
)

// SessionStore persists opaque per-session blobs.
type SessionStore interface {
	Load(ctx context.Context, sessionID, name string) ([]byte, bool, error)
	Save(ctx context.Context, sessionID, name string, data []byte) error
	Delete(ctx context.Context, sessionID, name string) error
}

const associationsName = "campaign_cart_items"

// AssociationMap maps campaign id -> product id -> cart line key.
type AssociationMap map[int64]map[int64]string

// Record stores the key unless the pair is already mapped.
// It reports whether a new mapping was written.
func (m AssociationMap) Record(campaignID, productID int64, key string) bool {
	sub, ok := m[campaignID]
	if !ok {
		sub = make(map[int64]string)
		m[campaignID] = sub
	}
	if _, exists := sub[productID]; exists {
		return false
	}
	sub[productID] = key
	return true
}

// Forget drops the pair when it still points at key, and the campaign
// entry once it has no products left.
func (m AssociationMap) Forget(campaignID, productID int64, key string) bool {
	sub, ok := m[campaignID]
	if !ok || sub[productID] != key {
		return false
	}
	delete(sub, productID)
	if len(sub) == 0 {
		delete(m, campaignID)
	}
	return true
}

func (m AssociationMap) Lookup(campaignID, productID int64) (string, bool) {
	key, ok := m[campaignID][productID]
	return key, ok
}

func (m AssociationMap) Clear() {
	for k := range m {
		delete(m, k)
	}
}

// Session is the per-visitor state threaded through cart operations.
type Session struct {
	ID   string
	Cart Cart

	store       SessionStore
	assoc       AssociationMap
	reconciling bool
}

func NewSession(id string, c Cart, store SessionStore) *Session {
	return &Session{ID: id, Cart: c, store: store}
}

// Associations loads the association map on first use.
func (s *Session) Associations(ctx context.Context) (AssociationMap, error) {
	if s.assoc != nil {
		return s.assoc, nil
	}
	raw, ok, err := s.store.Load(ctx, s.ID, associationsName)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart associations: %w", err)
	}
	assoc := make(AssociationMap)
	if ok && len(raw) > 0 {
		if err := json.Unmarshal(raw, &assoc); err != nil {
			// A corrupt map is replaced rather than blocking the cart.
			assoc = make(AssociationMap)
		}
	}
	s.assoc = assoc
	return s.assoc, nil
}

func (s *Session) saveAssociations(ctx context.Context) error {
	data, err := json.Marshal(s.assoc)
	if err != nil {
		return err
	}
	if err := s.store.Save(ctx, s.ID, associationsName, data); err != nil {
		return fmt.Errorf("failed to save cart associations: %w", err)
	}
	return nil
}

// BeginReconcile marks a reconciliation pass as running. It returns false
// when one is already in progress for this session.
func (s *Session) BeginReconcile() bool {
	if s.reconciling {
		return false
	}
	s.reconciling = true
	return true
}

func (s *Session) EndReconcile() {
	s.reconciling = false
}
