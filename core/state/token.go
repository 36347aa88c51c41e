package state

import (
	"fmt"

	"dropgate/native/drop"
)

// The reference token layer: a minimal multi-id collection implementation of
// the drop module's TokenUnit capability, backed by the state manager. The
// daemon and the integration tests run against it; a production chain swaps
// in its own token contracts.

var (
	tokenRegisteredPrefix = []byte("token/registered/")
	tokenSupplyPrefix     = []byte("token/supply/")
	tokenMaxPrefix        = []byte("token/max/")
	tokenOwnerPrefix      = []byte("token/owner/")
	tokenBalancePrefix    = []byte("token/balance/")
)

func tokenRegisteredKey(collection [20]byte) []byte {
	return append(append([]byte{}, tokenRegisteredPrefix...), collection[:]...)
}

func tokenSupplyKey(collection [20]byte, tokenID uint64) []byte {
	key := append(append([]byte{}, tokenSupplyPrefix...), collection[:]...)
	return appendUint64(key, tokenID)
}

func tokenMaxKey(collection [20]byte, tokenID uint64) []byte {
	key := append(append([]byte{}, tokenMaxPrefix...), collection[:]...)
	return appendUint64(key, tokenID)
}

func tokenOwnerKey(collection [20]byte, tokenID uint64) []byte {
	key := append(append([]byte{}, tokenOwnerPrefix...), collection[:]...)
	return appendUint64(key, tokenID)
}

func tokenBalanceKey(collection, wallet [20]byte, tokenID uint64) []byte {
	key := append(append([]byte{}, tokenBalancePrefix...), collection[:]...)
	key = append(key, wallet[:]...)
	return appendUint64(key, tokenID)
}

func appendUint64(buf []byte, v uint64) []byte {
	return append(buf,
		byte(v>>56), byte(v>>48), byte(v>>40), byte(v>>32),
		byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

// TokenBook resolves collection addresses to their token units and doubles
// as the gating-collection ownership reader.
type TokenBook struct {
	m *Manager
}

// NewTokenBook creates a token book over the manager's state.
func NewTokenBook(m *Manager) *TokenBook {
	return &TokenBook{m: m}
}

// Register enrols a collection so mints against it resolve.
func (b *TokenBook) Register(collection [20]byte) error {
	if b == nil || b.m == nil {
		return errNilManager
	}
	return b.m.KVPut(tokenRegisteredKey(collection), true)
}

// Token implements drop.TokenRegistry.
func (b *TokenBook) Token(collection [20]byte) (drop.TokenUnit, bool) {
	if b == nil || b.m == nil {
		return nil, false
	}
	var registered bool
	found, err := b.m.KVGet(tokenRegisteredKey(collection), &registered)
	if err != nil || !found || !registered {
		return nil, false
	}
	return &TokenCollection{m: b.m, collection: collection}, true
}

// Collection returns a handle regardless of registration, for administrative
// setup such as seeding max supplies.
func (b *TokenBook) Collection(collection [20]byte) *TokenCollection {
	return &TokenCollection{m: b.m, collection: collection}
}

// OwnerOf implements drop.OwnershipView against locally tracked collections.
func (b *TokenBook) OwnerOf(collection [20]byte, tokenID uint64) ([20]byte, error) {
	return b.Collection(collection).OwnerOf(tokenID)
}

// TokenCollection is one registered collection's token unit.
type TokenCollection struct {
	m          *Manager
	collection [20]byte
}

// CurrentSupply implements drop.TokenUnit.
func (t *TokenCollection) CurrentSupply(tokenID uint64) (uint64, error) {
	var supply uint64
	if _, err := t.m.KVGet(tokenSupplyKey(t.collection, tokenID), &supply); err != nil {
		return 0, err
	}
	return supply, nil
}

// MaxSupply implements drop.TokenUnit. Zero means no ceiling is configured.
func (t *TokenCollection) MaxSupply(tokenID uint64) (uint64, error) {
	var max uint64
	if _, err := t.m.KVGet(tokenMaxKey(t.collection, tokenID), &max); err != nil {
		return 0, err
	}
	return max, nil
}

// SetMaxSupply seeds the absolute ceiling for a token id.
func (t *TokenCollection) SetMaxSupply(tokenID, max uint64) error {
	return t.m.KVPut(tokenMaxKey(t.collection, tokenID), max)
}

// Mint implements drop.TokenUnit: it advances supply, credits the wallet
// balance, and records single-unit first mints as the token owner so the
// collection can serve 721-style ownership reads.
func (t *TokenCollection) Mint(to [20]byte, tokenID uint64, quantity uint64) error {
	if quantity == 0 {
		return fmt.Errorf("token: mint quantity must be positive")
	}
	supply, err := t.CurrentSupply(tokenID)
	if err != nil {
		return err
	}
	if err := t.m.KVPut(tokenSupplyKey(t.collection, tokenID), supply+quantity); err != nil {
		return err
	}
	var balance uint64
	if _, err := t.m.KVGet(tokenBalanceKey(t.collection, to, tokenID), &balance); err != nil {
		return err
	}
	if err := t.m.KVPut(tokenBalanceKey(t.collection, to, tokenID), balance+quantity); err != nil {
		return err
	}
	if supply == 0 && quantity == 1 {
		return t.m.KVPut(tokenOwnerKey(t.collection, tokenID), to)
	}
	return nil
}

// OwnerOf returns the recorded owner of a single-unit token.
func (t *TokenCollection) OwnerOf(tokenID uint64) ([20]byte, error) {
	var owner [20]byte
	found, err := t.m.KVGet(tokenOwnerKey(t.collection, tokenID), &owner)
	if err != nil {
		return owner, err
	}
	if !found {
		return owner, fmt.Errorf("token: no owner recorded for token %d", tokenID)
	}
	return owner, nil
}

// SetOwner records the owner of a single-unit token directly. Gating
// fixtures and transfers maintained by an outer token layer use it.
func (t *TokenCollection) SetOwner(tokenID uint64, owner [20]byte) error {
	return t.m.KVPut(tokenOwnerKey(t.collection, tokenID), owner)
}

// BalanceOf returns the wallet's balance for a token id.
func (t *TokenCollection) BalanceOf(wallet [20]byte, tokenID uint64) (uint64, error) {
	var balance uint64
	if _, err := t.m.KVGet(tokenBalanceKey(t.collection, wallet, tokenID), &balance); err != nil {
		return 0, err
	}
	return balance, nil
}
