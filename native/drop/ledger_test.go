package drop

import (
	"errors"
	"testing"
)

func walletQuotaKey(wallet byte) QuotaKey {
	return QuotaKey{
		Collection: testAddr(0xC0),
		Scope:      ScopeWallet,
		Wallet:     testAddr(wallet),
		StageID:    StageID{0x01},
	}
}

func TestLedgerBatchCommit(t *testing.T) {
	st := newMockState()
	ledger := NewLedger(st)
	key := walletQuotaKey(0x01)

	batch := ledger.Begin()
	if _, err := batch.CheckAndIncrement(key, 3, 5); err != nil {
		t.Fatalf("check: %v", err)
	}
	// Nothing hits state until commit.
	total, err := ledger.Total(key)
	if err != nil {
		t.Fatalf("total: %v", err)
	}
	if total != 0 {
		t.Fatalf("total before commit = %d, want 0", total)
	}
	if err := batch.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	total, err = ledger.Total(key)
	if err != nil {
		t.Fatalf("total: %v", err)
	}
	if total != 3 {
		t.Fatalf("total after commit = %d, want 3", total)
	}
}

func TestLedgerBatchAggregatesWithinOneRequest(t *testing.T) {
	st := newMockState()
	ledger := NewLedger(st)
	key := walletQuotaKey(0x01)

	batch := ledger.Begin()
	if _, err := batch.CheckAndIncrement(key, 3, 5); err != nil {
		t.Fatalf("first increment: %v", err)
	}
	// The same key in the same batch accumulates: 3 + 3 breaches the cap.
	if _, err := batch.CheckAndIncrement(key, 3, 5); !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("err = %v, want ErrQuotaExceeded", err)
	}
}

func TestLedgerBatchCapExceededDetails(t *testing.T) {
	st := newMockState()
	ledger := NewLedger(st)
	key := walletQuotaKey(0x01)

	batch := ledger.Begin()
	if _, err := batch.CheckAndIncrement(key, 4, 5); err != nil {
		t.Fatalf("check: %v", err)
	}
	if err := batch.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	batch = ledger.Begin()
	_, err := batch.CheckAndIncrement(key, 2, 5)
	var quotaErr *QuotaExceededError
	if !errors.As(err, &quotaErr) {
		t.Fatalf("err = %v, want *QuotaExceededError", err)
	}
	if quotaErr.Attempted != 6 || quotaErr.Cap != 5 {
		t.Fatalf("attempted/cap = %d/%d, want 6/5", quotaErr.Attempted, quotaErr.Cap)
	}
}

func TestLedgerUnlimitedCap(t *testing.T) {
	st := newMockState()
	ledger := NewLedger(st)
	key := walletQuotaKey(0x01)

	batch := ledger.Begin()
	if _, err := batch.CheckAndIncrement(key, 1_000_000, 0); err != nil {
		t.Fatalf("unlimited cap rejected: %v", err)
	}
	if err := batch.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	total, err := ledger.Total(key)
	if err != nil {
		t.Fatalf("total: %v", err)
	}
	if total != 1_000_000 {
		t.Fatalf("total = %d", total)
	}
}

func TestLedgerAbandonedBatchWritesNothing(t *testing.T) {
	st := newMockState()
	ledger := NewLedger(st)
	before := st.snapshot()

	batch := ledger.Begin()
	if _, err := batch.CheckAndIncrement(walletQuotaKey(0x01), 2, 5); err != nil {
		t.Fatalf("check: %v", err)
	}
	if _, err := batch.CheckAndIncrement(walletQuotaKey(0x02), 9, 5); !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("err = %v, want ErrQuotaExceeded", err)
	}
	// The batch is dropped on failure, never committed.
	if !st.equal(before) {
		t.Fatal("abandoned batch mutated state")
	}
}

func TestLedgerScopesAreIndependent(t *testing.T) {
	st := newMockState()
	ledger := NewLedger(st)
	wallet := walletQuotaKey(0x01)
	perToken := wallet
	perToken.Scope = ScopeWalletToken
	perToken.TokenID = 7

	batch := ledger.Begin()
	if _, err := batch.CheckAndIncrement(wallet, 2, 5); err != nil {
		t.Fatalf("wallet scope: %v", err)
	}
	if _, err := batch.CheckAndIncrement(perToken, 2, 2); err != nil {
		t.Fatalf("per-token scope: %v", err)
	}
	if err := batch.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	walletTotal, _ := ledger.Total(wallet)
	tokenTotal, _ := ledger.Total(perToken)
	if walletTotal != 2 || tokenTotal != 2 {
		t.Fatalf("totals = %d/%d, want 2/2", walletTotal, tokenTotal)
	}
}

func TestLedgerBatchStagedPutsLandOnCommit(t *testing.T) {
	st := newMockState()
	ledger := NewLedger(st)
	key := walletQuotaKey(0x01)
	digest := [32]byte{0x42}

	batch := ledger.Begin()
	if _, err := batch.CheckAndIncrement(key, 1, 5); err != nil {
		t.Fatalf("check: %v", err)
	}
	batch.StagePut(digestKey(digest), true)

	var used bool
	found, err := st.KVGet(digestKey(digest), &used)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if found {
		t.Fatal("staged put visible before commit")
	}

	if err := batch.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	found, err = st.KVGet(digestKey(digest), &used)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !found || !used {
		t.Fatalf("staged put missing after commit: found=%v used=%v", found, used)
	}
	total, err := ledger.Total(key)
	if err != nil {
		t.Fatalf("total: %v", err)
	}
	if total != 1 {
		t.Fatalf("counter = %d, want 1", total)
	}
}

func TestLedgerAbandonedBatchDropsStagedPuts(t *testing.T) {
	st := newMockState()
	ledger := NewLedger(st)
	before := st.snapshot()

	batch := ledger.Begin()
	if _, err := batch.CheckAndIncrement(walletQuotaKey(0x01), 1, 5); err != nil {
		t.Fatalf("check: %v", err)
	}
	batch.StagePut(digestKey([32]byte{0x42}), true)

	// The batch goes out of scope without a commit.
	if !st.equal(before) {
		t.Fatal("abandoned batch wrote state")
	}
}
