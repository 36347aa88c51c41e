package drop

import (
	"errors"
	"math/big"
	"testing"
)

func TestRegistryAuthorityClaimAndRotate(t *testing.T) {
	st := newMockState()
	registry := NewRegistry(st)
	collection := testAddr(0xC0)
	first := testAddr(0x01)
	second := testAddr(0x02)

	if err := registry.SetAuthority(first, collection, first); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if err := registry.SetAuthority(second, collection, second); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("foreign rotate err = %v, want ErrUnauthorized", err)
	}
	if err := registry.SetAuthority(first, collection, second); err != nil {
		t.Fatalf("rotate: %v", err)
	}
	authority, found, err := registry.Authority(collection)
	if err != nil || !found {
		t.Fatalf("authority lookup: found=%v err=%v", found, err)
	}
	if authority != second {
		t.Fatalf("authority = %x, want %x", authority, second)
	}
}

func TestRegistrySetStageRequiresAuthority(t *testing.T) {
	f := newFixture(t)
	outsider := testAddr(0x99)
	if err := f.registry.SetStage(outsider, f.collection, 0, f.publicStage()); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
}

func TestRegistrySetStageRejectsProofBoundKinds(t *testing.T) {
	f := newFixture(t)
	for _, kind := range []StageKind{StageKindAllowList, StageKindSigned} {
		cfg := f.publicStage()
		cfg.Kind = kind
		if err := f.registry.SetStage(f.authority, f.collection, 0, cfg); !errors.Is(err, ErrInvalidConfig) {
			t.Fatalf("kind %s: err = %v, want ErrInvalidConfig", kind, err)
		}
	}
}

func TestRegistryStageValidation(t *testing.T) {
	f := newFixture(t)
	cases := []struct {
		name   string
		mutate func(*StageConfig)
	}{
		{"negative price", func(c *StageConfig) { c.PriceStart = big.NewInt(-1) }},
		{"nil price", func(c *StageConfig) { c.PriceEnd = nil }},
		{"inverted window", func(c *StageConfig) { c.TimeEnd = c.TimeStart - 1 }},
		{"inverted token range", func(c *StageConfig) { c.FromTokenID = 11 }},
		{"zero wallet cap", func(c *StageConfig) { c.MaxPerWallet = 0 }},
		{"zero stage supply", func(c *StageConfig) { c.MaxSupplyForStage = 0 }},
		{"fee above denominator", func(c *StageConfig) { c.FeeBps = 10_001 }},
		{"gating fields on public stage", func(c *StageConfig) { c.GatingCollection = testAddr(0x6A) }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := f.publicStage()
			tc.mutate(cfg)
			if err := f.registry.SetStage(f.authority, f.collection, 0, cfg); !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("err = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestRegistryTokenGatedStageValidation(t *testing.T) {
	f := newFixture(t)
	cfg := f.publicStage()
	cfg.Kind = StageKindTokenGated
	if err := f.registry.SetStage(f.authority, f.collection, 0, cfg); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("missing gating collection err = %v, want ErrInvalidConfig", err)
	}
	cfg.GatingCollection = f.collection
	cfg.MaxPerRedeemedToken = 1
	if err := f.registry.SetStage(f.authority, f.collection, 0, cfg); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("self-gating err = %v, want ErrInvalidConfig", err)
	}
	cfg.GatingCollection = testAddr(0x6A)
	if err := f.registry.SetStage(f.authority, f.collection, 0, cfg); err != nil {
		t.Fatalf("valid token-gated stage rejected: %v", err)
	}
}

func TestRegistryGetStageAbsent(t *testing.T) {
	f := newFixture(t)
	_, found, err := f.registry.GetStage(f.collection, 42)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if found {
		t.Fatal("absent slot reported as found")
	}
}

func TestRegistryStageRoundTrip(t *testing.T) {
	f := newFixture(t)
	cfg := f.publicStage()
	f.setStage(3, cfg)
	got, found, err := f.registry.GetStage(f.collection, 3)
	if err != nil || !found {
		t.Fatalf("get: found=%v err=%v", found, err)
	}
	if got.ID() != cfg.ID() {
		t.Fatal("stored stage hashes differently")
	}
}

func TestRegistrySetStageIdempotent(t *testing.T) {
	f := newFixture(t)
	cfg := f.publicStage()
	f.setStage(0, cfg)
	before := f.st.snapshot()
	f.setStage(0, cfg.Clone())
	if !f.st.equal(before) {
		t.Fatal("idempotent rewrite mutated state")
	}
}

func TestRegistryStagesEnumeration(t *testing.T) {
	f := newFixture(t)
	f.setStage(0, f.publicStage())
	f.setStage(2, f.publicStage())
	f.setStage(5, f.publicStage())

	entries, err := f.registry.Stages(f.collection)
	if err != nil {
		t.Fatalf("stages: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("entries = %d, want 3", len(entries))
	}

	if err := f.registry.RemoveStage(f.authority, f.collection, 2); err != nil {
		t.Fatalf("remove: %v", err)
	}
	entries, err = f.registry.Stages(f.collection)
	if err != nil {
		t.Fatalf("stages: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries after remove = %d, want 2", len(entries))
	}
	for _, entry := range entries {
		if entry.Index == 2 {
			t.Fatal("removed slot still enumerated")
		}
	}
}

func TestRegistryRemoveAbsentStageIsNoop(t *testing.T) {
	f := newFixture(t)
	before := f.st.snapshot()
	if err := f.registry.RemoveStage(f.authority, f.collection, 9); err != nil {
		t.Fatalf("remove absent: %v", err)
	}
	if !f.st.equal(before) {
		t.Fatal("removing an absent stage mutated state")
	}
}

func TestRegistryAllowlistRootLifecycle(t *testing.T) {
	f := newFixture(t)
	_, found, err := f.registry.AllowlistRoot(f.collection)
	if err != nil {
		t.Fatalf("root: %v", err)
	}
	if found {
		t.Fatal("unset root reported as found")
	}

	root := [32]byte{0xAA}
	if err := f.registry.SetAllowlistRoot(f.authority, f.collection, root); err != nil {
		t.Fatalf("set root: %v", err)
	}
	got, found, err := f.registry.AllowlistRoot(f.collection)
	if err != nil || !found {
		t.Fatalf("root lookup: found=%v err=%v", found, err)
	}
	if got != root {
		t.Fatalf("root = %x, want %x", got, root)
	}

	// A zero root clears the list.
	if err := f.registry.SetAllowlistRoot(f.authority, f.collection, [32]byte{}); err != nil {
		t.Fatalf("clear root: %v", err)
	}
	_, found, err = f.registry.AllowlistRoot(f.collection)
	if err != nil {
		t.Fatalf("root: %v", err)
	}
	if found {
		t.Fatal("cleared root reported as found")
	}
}

func TestRegistrySignerLifecycle(t *testing.T) {
	f := newFixture(t)
	signer := testAddr(0x51)
	tpl := &SignerTemplate{
		MinPrice:        big.NewInt(10),
		MaxMaxPerWallet: 5,
		MaxTimeEnd:      5_000,
		MaxStageSupply:  100,
		MaxFeeBps:       1_000,
	}
	if err := f.registry.SetSignerTemplate(f.authority, f.collection, signer, tpl); err != nil {
		t.Fatalf("set signer: %v", err)
	}
	got, found, err := f.registry.SignerTemplate(f.collection, signer)
	if err != nil || !found {
		t.Fatalf("signer lookup: found=%v err=%v", found, err)
	}
	if got.MinPrice.Cmp(tpl.MinPrice) != 0 || got.MaxMaxPerWallet != tpl.MaxMaxPerWallet {
		t.Fatal("stored template differs")
	}

	signers, err := f.registry.Signers(f.collection)
	if err != nil {
		t.Fatalf("signers: %v", err)
	}
	if len(signers) != 1 || signers[0] != signer {
		t.Fatalf("signers = %v", signers)
	}

	if err := f.registry.RemoveSigner(f.authority, f.collection, signer); err != nil {
		t.Fatalf("remove signer: %v", err)
	}
	_, found, err = f.registry.SignerTemplate(f.collection, signer)
	if err != nil {
		t.Fatalf("signer lookup: %v", err)
	}
	if found {
		t.Fatal("removed signer still registered")
	}
	signers, err = f.registry.Signers(f.collection)
	if err != nil {
		t.Fatalf("signers: %v", err)
	}
	if len(signers) != 0 {
		t.Fatalf("signers after removal = %v", signers)
	}
}

func TestRegistryMembershipSets(t *testing.T) {
	f := newFixture(t)
	recipient := testAddr(0xFE)
	payer := testAddr(0x70)

	allowed, err := f.registry.IsFeeRecipientAllowed(f.collection, recipient)
	if err != nil {
		t.Fatalf("membership: %v", err)
	}
	if allowed {
		t.Fatal("recipient allowed before being added")
	}
	if err := f.registry.SetFeeRecipientAllowed(f.authority, f.collection, recipient, true); err != nil {
		t.Fatalf("allow recipient: %v", err)
	}
	// Adding twice is a no-op.
	before := f.st.snapshot()
	if err := f.registry.SetFeeRecipientAllowed(f.authority, f.collection, recipient, true); err != nil {
		t.Fatalf("re-allow recipient: %v", err)
	}
	if !f.st.equal(before) {
		t.Fatal("idempotent membership write mutated state")
	}

	if err := f.registry.SetPayerAllowed(f.authority, f.collection, payer, true); err != nil {
		t.Fatalf("allow payer: %v", err)
	}
	payers, err := f.registry.Payers(f.collection)
	if err != nil {
		t.Fatalf("payers: %v", err)
	}
	if len(payers) != 1 || payers[0] != payer {
		t.Fatalf("payers = %v", payers)
	}
	if err := f.registry.SetPayerAllowed(f.authority, f.collection, payer, false); err != nil {
		t.Fatalf("disallow payer: %v", err)
	}
	payers, err = f.registry.Payers(f.collection)
	if err != nil {
		t.Fatalf("payers: %v", err)
	}
	if len(payers) != 0 {
		t.Fatalf("payers after removal = %v", payers)
	}
}

func TestRegistryPayoutsValidation(t *testing.T) {
	f := newFixture(t)
	err := f.registry.SetPayouts(f.authority, f.collection, []CreatorPayout{
		{Address: testAddr(0x01), Bps: 5_000},
	})
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("err = %v, want ErrInvalidConfig", err)
	}

	payouts, err := f.registry.Payouts(f.collection)
	if err != nil {
		t.Fatalf("payouts: %v", err)
	}
	if len(payouts) != 2 {
		t.Fatalf("fixture payouts = %d, want the original 2", len(payouts))
	}
}

func TestRegistryPayoutsIdempotent(t *testing.T) {
	f := newFixture(t)
	before := f.st.snapshot()
	err := f.registry.SetPayouts(f.authority, f.collection, []CreatorPayout{
		{Address: f.creatorA, Bps: 9_000},
		{Address: f.creatorB, Bps: 1_000},
	})
	if err != nil {
		t.Fatalf("rewrite payouts: %v", err)
	}
	if !f.st.equal(before) {
		t.Fatal("idempotent payout rewrite mutated state")
	}
}

func TestRegistrySignerTemplateIdempotent(t *testing.T) {
	f := newFixture(t)
	emitter := &recordingEmitter{}
	f.registry.SetEmitter(emitter)
	signer := testAddr(0x51)
	tpl := &SignerTemplate{
		MinPrice:        big.NewInt(10),
		MaxMaxPerWallet: 5,
		MaxTimeEnd:      5_000,
		MaxStageSupply:  100,
		MaxFeeBps:       1_000,
	}
	if err := f.registry.SetSignerTemplate(f.authority, f.collection, signer, tpl); err != nil {
		t.Fatalf("set signer: %v", err)
	}
	before := f.st.snapshot()

	// Re-writing the identical template neither mutates state nor emits.
	if err := f.registry.SetSignerTemplate(f.authority, f.collection, signer, tpl.Clone()); err != nil {
		t.Fatalf("re-set signer: %v", err)
	}
	if !f.st.equal(before) {
		t.Fatal("identical template rewrite mutated state")
	}
	events := 0
	for _, typ := range emitter.types {
		if typ == TypeSignerUpdated {
			events++
		}
	}
	if events != 1 {
		t.Fatalf("SignerUpdated emitted %d times, want 1", events)
	}

	// A changed bound still goes through.
	changed := tpl.Clone()
	changed.MaxStageSupply = 200
	if err := f.registry.SetSignerTemplate(f.authority, f.collection, signer, changed); err != nil {
		t.Fatalf("update signer: %v", err)
	}
	got, found, err := f.registry.SignerTemplate(f.collection, signer)
	if err != nil || !found {
		t.Fatalf("signer lookup: found=%v err=%v", found, err)
	}
	if got.MaxStageSupply != 200 {
		t.Fatalf("stage supply bound = %d, want 200", got.MaxStageSupply)
	}
}
