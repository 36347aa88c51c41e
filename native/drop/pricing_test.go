package drop

import (
	"math/big"
	"testing"
)

func decayStage(priceStart, priceEnd int64, timeStart, timeEnd int64) *StageConfig {
	return &StageConfig{
		Kind:              StageKindPublic,
		PriceStart:        big.NewInt(priceStart),
		PriceEnd:          big.NewInt(priceEnd),
		TimeStart:         timeStart,
		TimeEnd:           timeEnd,
		ToTokenID:         10,
		MaxPerWallet:      10,
		MaxSupplyForStage: 100,
	}
}

func TestPriceAtEndpoints(t *testing.T) {
	cfg := decayStage(1_000, 100, 100, 1_100)
	if got := PriceAt(cfg, 100); got.Cmp(big.NewInt(1_000)) != 0 {
		t.Fatalf("price at start = %s, want 1000", got)
	}
	if got := PriceAt(cfg, 1_100); got.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("price at end = %s, want 100", got)
	}
}

func TestPriceAtClampsOutsideWindow(t *testing.T) {
	cfg := decayStage(1_000, 100, 100, 1_100)
	if got := PriceAt(cfg, 50); got.Cmp(big.NewInt(1_000)) != 0 {
		t.Fatalf("price before window = %s, want 1000", got)
	}
	if got := PriceAt(cfg, 5_000); got.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("price after window = %s, want 100", got)
	}
}

func TestPriceAtMonotonicDecay(t *testing.T) {
	cfg := decayStage(1_000, 100, 0, 1_000)
	prev := PriceAt(cfg, 0)
	for now := int64(1); now <= 1_000; now += 37 {
		price := PriceAt(cfg, now)
		if price.Cmp(prev) > 0 {
			t.Fatalf("price increased from %s to %s at t=%d", prev, price, now)
		}
		prev = price
	}
}

func TestPriceAtInstantStage(t *testing.T) {
	cfg := decayStage(500, 100, 1_000, 1_000)
	if got := PriceAt(cfg, 1_000); got.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("zero-length window price = %s, want the start price", got)
	}
}

func TestPriceAtFlat(t *testing.T) {
	cfg := decayStage(250, 250, 0, 1_000)
	if got := PriceAt(cfg, 500); got.Cmp(big.NewInt(250)) != 0 {
		t.Fatalf("flat price = %s, want 250", got)
	}
}

func TestTotalCost(t *testing.T) {
	total, err := TotalCost(big.NewInt(100), 7)
	if err != nil {
		t.Fatalf("total cost: %v", err)
	}
	if total.Cmp(big.NewInt(700)) != 0 {
		t.Fatalf("total = %s, want 700", total)
	}
}

func TestTotalCostFree(t *testing.T) {
	total, err := TotalCost(big.NewInt(0), 5)
	if err != nil {
		t.Fatalf("total cost: %v", err)
	}
	if total.Sign() != 0 {
		t.Fatalf("free mint total = %s, want 0", total)
	}
}

func TestSplitPaymentExact(t *testing.T) {
	payouts := []CreatorPayout{
		{Address: testAddr(1), Bps: 9_000},
		{Address: testAddr(2), Bps: 1_000},
	}
	total := big.NewInt(10_000)
	fee, creators, err := SplitPayment(total, 500, payouts)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if fee.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("fee = %s, want 500", fee)
	}
	sum := new(big.Int).Set(fee)
	for _, payout := range creators {
		sum.Add(sum, payout.Amount)
	}
	if sum.Cmp(total) != 0 {
		t.Fatalf("split sum = %s, want %s", sum, total)
	}
}

func TestSplitPaymentRemainderToLastPayout(t *testing.T) {
	payouts := []CreatorPayout{
		{Address: testAddr(1), Bps: 3_333},
		{Address: testAddr(2), Bps: 3_333},
		{Address: testAddr(3), Bps: 3_334},
	}
	total := big.NewInt(100)
	fee, creators, err := SplitPayment(total, 0, payouts)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if fee.Sign() != 0 {
		t.Fatalf("fee = %s, want 0", fee)
	}
	if len(creators) != 3 {
		t.Fatalf("creators = %d, want 3", len(creators))
	}
	sum := big.NewInt(0)
	for _, payout := range creators {
		sum.Add(sum, payout.Amount)
	}
	if sum.Cmp(total) != 0 {
		t.Fatalf("split sum = %s, want %s: dust must land on the final payout", sum, total)
	}
	if creators[2].Amount.Cmp(creators[0].Amount) < 0 {
		t.Fatalf("last payout %s smaller than first %s", creators[2].Amount, creators[0].Amount)
	}
}

func TestSplitPaymentZeroTotal(t *testing.T) {
	payouts := []CreatorPayout{{Address: testAddr(1), Bps: 10_000}}
	fee, creators, err := SplitPayment(big.NewInt(0), 1_000, payouts)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if fee.Sign() != 0 {
		t.Fatalf("fee = %s, want 0", fee)
	}
	if creators[0].Amount.Sign() != 0 {
		t.Fatalf("creator amount = %s, want 0", creators[0].Amount)
	}
}

func TestValidatePayouts(t *testing.T) {
	if err := ValidatePayouts([]CreatorPayout{{Address: testAddr(1), Bps: 10_000}}); err != nil {
		t.Fatalf("valid payouts rejected: %v", err)
	}
	cases := []struct {
		name    string
		payouts []CreatorPayout
	}{
		{"empty", nil},
		{"sum below denominator", []CreatorPayout{{Address: testAddr(1), Bps: 9_999}}},
		{"sum above denominator", []CreatorPayout{{Address: testAddr(1), Bps: 9_000}, {Address: testAddr(2), Bps: 1_001}}},
		{"zero share", []CreatorPayout{{Address: testAddr(1), Bps: 10_000}, {Address: testAddr(2), Bps: 0}}},
		{"zero address", []CreatorPayout{{Address: [20]byte{}, Bps: 10_000}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := ValidatePayouts(tc.payouts); err == nil {
				t.Fatalf("expected rejection")
			}
		})
	}
}

func TestSplitPaymentLargeTotalStaysExact(t *testing.T) {
	total := new(big.Int).Lsh(big.NewInt(1), 255)
	payouts := []CreatorPayout{
		{Address: testAddr(0xA1), Bps: 9_000},
		{Address: testAddr(0xB2), Bps: 1_000},
	}
	fee, creators, err := SplitPayment(total, 5_000, payouts)
	if err != nil {
		t.Fatalf("split: %v", err)
	}

	wantFee := new(big.Int).Rsh(total, 1)
	if fee.Cmp(wantFee) != 0 {
		t.Fatalf("fee = %s, want %s", fee, wantFee)
	}
	remainder := new(big.Int).Sub(total, fee)
	wantFirst := new(big.Int).Mul(remainder, big.NewInt(9_000))
	wantFirst.Quo(wantFirst, big.NewInt(10_000))
	if creators[0].Amount.Cmp(wantFirst) != 0 {
		t.Fatalf("first share = %s, want %s", creators[0].Amount, wantFirst)
	}

	sum := new(big.Int).Set(fee)
	for _, payout := range creators {
		sum.Add(sum, payout.Amount)
	}
	if sum.Cmp(total) != 0 {
		t.Fatalf("pieces sum to %s, want %s", sum, total)
	}
}
