package drop

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/rlp"

	"dropgate/core/events"
)

// mockState is an in-memory State backed by the same RLP encoding the
// production manager uses.
type mockState struct {
	kv map[string][]byte
}

func newMockState() *mockState {
	return &mockState{kv: make(map[string][]byte)}
}

func (m *mockState) KVGet(key []byte, out interface{}) (bool, error) {
	raw, ok := m.kv[string(key)]
	if !ok {
		return false, nil
	}
	if out == nil {
		return true, nil
	}
	if err := rlp.DecodeBytes(raw, out); err != nil {
		return false, err
	}
	return true, nil
}

func (m *mockState) KVPut(key []byte, value interface{}) error {
	raw, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	m.kv[string(key)] = raw
	return nil
}

func (m *mockState) KVDelete(key []byte) error {
	delete(m.kv, string(key))
	return nil
}

func (m *mockState) snapshot() map[string][]byte {
	out := make(map[string][]byte, len(m.kv))
	for k, v := range m.kv {
		out[k] = append([]byte(nil), v...)
	}
	return out
}

func (m *mockState) equal(other map[string][]byte) bool {
	if len(m.kv) != len(other) {
		return false
	}
	for k, v := range m.kv {
		w, ok := other[k]
		if !ok || string(v) != string(w) {
			return false
		}
	}
	return true
}

// mockToken tracks supply and mints per token id.
type mockToken struct {
	supply  map[uint64]uint64
	ceiling map[uint64]uint64
	minted  map[uint64]uint64
	mintErr error
}

func newMockToken() *mockToken {
	return &mockToken{
		supply:  make(map[uint64]uint64),
		ceiling: make(map[uint64]uint64),
		minted:  make(map[uint64]uint64),
	}
}

func (t *mockToken) CurrentSupply(tokenID uint64) (uint64, error) { return t.supply[tokenID], nil }
func (t *mockToken) MaxSupply(tokenID uint64) (uint64, error)     { return t.ceiling[tokenID], nil }

func (t *mockToken) Mint(_ [20]byte, tokenID uint64, quantity uint64) error {
	if t.mintErr != nil {
		return t.mintErr
	}
	t.supply[tokenID] += quantity
	t.minted[tokenID] += quantity
	return nil
}

type mockTokenRegistry struct {
	tokens map[[20]byte]*mockToken
}

func (r *mockTokenRegistry) Token(collection [20]byte) (TokenUnit, bool) {
	token, ok := r.tokens[collection]
	return token, ok
}

// mockOwnership serves OwnerOf for gating collections.
type mockOwnership struct {
	owners map[[20]byte]map[uint64][20]byte
}

func newMockOwnership() *mockOwnership {
	return &mockOwnership{owners: make(map[[20]byte]map[uint64][20]byte)}
}

func (o *mockOwnership) set(collection [20]byte, tokenID uint64, owner [20]byte) {
	if o.owners[collection] == nil {
		o.owners[collection] = make(map[uint64][20]byte)
	}
	o.owners[collection][tokenID] = owner
}

func (o *mockOwnership) OwnerOf(collection [20]byte, tokenID uint64) ([20]byte, error) {
	owner, ok := o.owners[collection][tokenID]
	if !ok {
		return [20]byte{}, ErrGatingTokenNotOwned
	}
	return owner, nil
}

type transfer struct {
	token  [20]byte
	to     [20]byte
	amount *big.Int
}

// recordingSink captures fund transfers in call order.
type recordingSink struct {
	transfers []transfer
}

func (s *recordingSink) Transfer(paymentToken, to [20]byte, amount *big.Int) error {
	s.transfers = append(s.transfers, transfer{token: paymentToken, to: to, amount: new(big.Int).Set(amount)})
	return nil
}

func (s *recordingSink) totalFor(to [20]byte) *big.Int {
	total := big.NewInt(0)
	for _, tr := range s.transfers {
		if tr.to == to {
			total.Add(total, tr.amount)
		}
	}
	return total
}

// reentrantSink calls back into the engine from Transfer, the way a
// malicious payment recipient would, and records what the nested call saw.
type reentrantSink struct {
	engine    *Engine
	request   *MintRequest
	walletKey QuotaKey
	inner     []error
	committed []uint64
}

func (s *reentrantSink) Transfer(_, _ [20]byte, _ *big.Int) error {
	total, err := s.engine.Ledger().Total(s.walletKey)
	if err != nil {
		return err
	}
	s.committed = append(s.committed, total)
	_, mintErr := s.engine.Mint(s.request)
	s.inner = append(s.inner, mintErr)
	return nil
}

// recordingEmitter captures event types in emission order.
type recordingEmitter struct {
	types []string
}

func (e *recordingEmitter) Emit(evt events.Event) {
	if evt != nil {
		e.types = append(e.types, evt.EventType())
	}
}

func testAddr(b byte) [20]byte {
	var out [20]byte
	for i := range out {
		out[i] = b
	}
	return out
}

// fixture wires an engine over mock dependencies with a claimed authority,
// registered token unit, and a 90/10 creator split.
type fixture struct {
	t          *testing.T
	st         *mockState
	registry   *Registry
	engine     *Engine
	token      *mockToken
	funds      *recordingSink
	ownership  *mockOwnership
	collection [20]byte
	authority  [20]byte
	creatorA   [20]byte
	creatorB   [20]byte
	now        int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := newMockState()
	registry := NewRegistry(st)
	f := &fixture{
		t:          t,
		st:         st,
		registry:   registry,
		token:      newMockToken(),
		funds:      &recordingSink{},
		ownership:  newMockOwnership(),
		collection: testAddr(0xC0),
		authority:  testAddr(0xAD),
		creatorA:   testAddr(0xA1),
		creatorB:   testAddr(0xB2),
		now:        1_500,
	}
	if err := registry.SetAuthority(f.authority, f.collection, f.authority); err != nil {
		t.Fatalf("claim authority: %v", err)
	}
	if err := registry.SetPayouts(f.authority, f.collection, []CreatorPayout{
		{Address: f.creatorA, Bps: 9_000},
		{Address: f.creatorB, Bps: 1_000},
	}); err != nil {
		t.Fatalf("set payouts: %v", err)
	}

	engine := NewEngine()
	engine.SetState(st)
	engine.SetRegistry(registry)
	engine.SetTokens(&mockTokenRegistry{tokens: map[[20]byte]*mockToken{f.collection: f.token}})
	engine.SetOwnership(f.ownership)
	engine.SetFunds(f.funds)
	engine.SetNowFunc(func() int64 { return f.now })
	f.engine = engine
	return f
}

func (f *fixture) publicStage() *StageConfig {
	return &StageConfig{
		Kind:              StageKindPublic,
		PriceStart:        big.NewInt(100),
		PriceEnd:          big.NewInt(100),
		TimeStart:         1_000,
		TimeEnd:           2_000,
		FromTokenID:       1,
		ToTokenID:         10,
		MaxPerWallet:      5,
		MaxSupplyForStage: 8,
		FeeBps:            500,
	}
}

func (f *fixture) setStage(index uint64, cfg *StageConfig) {
	f.t.Helper()
	if err := f.registry.SetStage(f.authority, f.collection, index, cfg); err != nil {
		f.t.Fatalf("set stage %d: %v", index, err)
	}
}

func (f *fixture) publicRequest(payer [20]byte, quantity uint64) *MintRequest {
	return &MintRequest{
		Kind:         StageKindPublic,
		Collection:   f.collection,
		Payer:        payer,
		FeeRecipient: testAddr(0xFE),
		Items:        []MintItem{{TokenID: 1, Quantity: quantity}},
		PaymentValue: big.NewInt(int64(quantity) * 100),
		StageIndex:   0,
	}
}
