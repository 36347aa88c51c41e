package drop

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
)

// PriceAt returns the unit price for the stage at the supplied timestamp:
// linear interpolation between PriceStart and PriceEnd over the activity
// window, clamped to the endpoints. The boundary behaviour is exact:
// now == TimeStart yields PriceStart, now == TimeEnd yields PriceEnd.
func PriceAt(cfg *StageConfig, now int64) *big.Int {
	start := cfg.PriceStart
	end := cfg.PriceEnd
	if start == nil {
		start = big.NewInt(0)
	}
	if end == nil {
		end = big.NewInt(0)
	}
	if now <= cfg.TimeStart || cfg.TimeStart == cfg.TimeEnd {
		return new(big.Int).Set(start)
	}
	if now >= cfg.TimeEnd {
		return new(big.Int).Set(end)
	}
	elapsed := big.NewInt(now - cfg.TimeStart)
	duration := big.NewInt(cfg.TimeEnd - cfg.TimeStart)
	diff := new(big.Int).Sub(end, start)
	step := new(big.Int).Mul(diff, elapsed)
	step.Quo(step, duration)
	return step.Add(step, start)
}

// TotalCost multiplies the unit price by the aggregate quantity with
// overflow-checked 256-bit math.
func TotalCost(unitPrice *big.Int, quantity uint64) (*big.Int, error) {
	if unitPrice == nil || unitPrice.Sign() == 0 || quantity == 0 {
		return big.NewInt(0), nil
	}
	unit, overflow := uint256.FromBig(unitPrice)
	if overflow {
		return nil, ErrValueTooLarge
	}
	total := new(uint256.Int)
	if _, overflow := total.MulOverflow(unit, uint256.NewInt(quantity)); overflow {
		return nil, ErrValueTooLarge
	}
	return total.ToBig(), nil
}

// SplitPayment partitions a total into the fee share and the per-creator
// amounts. The fee is floor(total * feeBps / 10000); the remainder is
// distributed across payouts in list order by floored basis-point share,
// except the final payout which receives the exact unallocated balance so
// the pieces always sum to the total. A fee that rounds to zero is valid.
func SplitPayment(total *big.Int, feeBps uint32, payouts []CreatorPayout) (*big.Int, []PayoutAmount, error) {
	if err := ValidatePayouts(payouts); err != nil {
		return nil, nil, err
	}
	if feeBps > BpsDenominator {
		return nil, nil, fmt.Errorf("%w: fee bps %d exceeds %d", ErrInvalidConfig, feeBps, BpsDenominator)
	}
	if total == nil || total.Sign() < 0 {
		return nil, nil, errors.New("drop: split total must be non-negative")
	}
	amount, overflow := uint256.FromBig(total)
	if overflow {
		return nil, nil, ErrValueTooLarge
	}
	denominator := uint256.NewInt(BpsDenominator)
	// The bps products exceed 256 bits for totals near the ceiling, so the
	// multiply-divide runs with a 512-bit intermediate.
	fee, overflow := new(uint256.Int).MulDivOverflow(amount, uint256.NewInt(uint64(feeBps)), denominator)
	if overflow {
		return nil, nil, ErrValueTooLarge
	}
	remainder := new(uint256.Int).Sub(amount, fee)

	creatorAmounts := make([]PayoutAmount, len(payouts))
	allocated := new(uint256.Int)
	for i, payout := range payouts {
		if i == len(payouts)-1 {
			last := new(uint256.Int).Sub(remainder, allocated)
			creatorAmounts[i] = PayoutAmount{Address: payout.Address, Amount: last.ToBig()}
			break
		}
		share, overflow := new(uint256.Int).MulDivOverflow(remainder, uint256.NewInt(uint64(payout.Bps)), denominator)
		if overflow {
			return nil, nil, ErrValueTooLarge
		}
		allocated.Add(allocated, share)
		creatorAmounts[i] = PayoutAmount{Address: payout.Address, Amount: share.ToBig()}
	}
	return fee.ToBig(), creatorAmounts, nil
}
