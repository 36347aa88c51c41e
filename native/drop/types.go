package drop

import (
	"errors"
	"fmt"
	"math/big"
)

// BpsDenominator is the scaling factor for basis point math across fees and
// creator payout shares.
const BpsDenominator = 10_000

// StageKind selects the authorization mode governing a drop stage.
type StageKind uint8

const (
	StageKindUnknown StageKind = iota
	StageKindPublic
	StageKindAllowList
	StageKindTokenGated
	StageKindSigned
)

func (k StageKind) String() string {
	switch k {
	case StageKindPublic:
		return "public"
	case StageKindAllowList:
		return "allowlist"
	case StageKindTokenGated:
		return "tokenGated"
	case StageKindSigned:
		return "signed"
	default:
		return "unknown"
	}
}

// Valid reports whether the kind names one of the four authorization modes.
func (k StageKind) Valid() bool {
	return k >= StageKindPublic && k <= StageKindSigned
}

// StageConfig captures every parameter governing a single drop stage. Prices
// are denominated in the smallest unit of the payment currency; a zero
// PaymentToken means the native currency. Timestamps are unix seconds and the
// activity window is inclusive on both ends.
type StageConfig struct {
	Kind                  StageKind
	PriceStart            *big.Int
	PriceEnd              *big.Int
	TimeStart             int64
	TimeEnd               int64
	PaymentToken          [20]byte
	FromTokenID           uint64
	ToTokenID             uint64
	MaxPerWallet          uint64
	MaxPerWalletPerToken  uint64
	MaxSupplyForStage     uint64
	FeeBps                uint32
	RestrictFeeRecipients bool

	// Token-gated stages only.
	GatingCollection    [20]byte
	MaxPerRedeemedToken uint64
}

// Clone returns a deep copy so callers cannot alias stored big integers.
func (c *StageConfig) Clone() *StageConfig {
	if c == nil {
		return nil
	}
	clone := *c
	if c.PriceStart != nil {
		clone.PriceStart = new(big.Int).Set(c.PriceStart)
	}
	if c.PriceEnd != nil {
		clone.PriceEnd = new(big.Int).Set(c.PriceEnd)
	}
	return &clone
}

// ContainsToken reports whether the stage may mint the supplied token id.
func (c *StageConfig) ContainsToken(tokenID uint64) bool {
	if c == nil {
		return false
	}
	return tokenID >= c.FromTokenID && tokenID <= c.ToTokenID
}

// Validate enforces the configuration invariants that must hold before a
// stage is stored or a caller-declared stage is honoured. The owning
// collection is required to reject self-referential gating.
func (c *StageConfig) Validate(collection [20]byte) error {
	if c == nil {
		return fmt.Errorf("%w: nil stage", ErrInvalidConfig)
	}
	if !c.Kind.Valid() {
		return fmt.Errorf("%w: unknown stage kind %d", ErrInvalidConfig, c.Kind)
	}
	if c.PriceStart == nil || c.PriceStart.Sign() < 0 {
		return fmt.Errorf("%w: price start must be a non-negative integer", ErrInvalidConfig)
	}
	if c.PriceEnd == nil || c.PriceEnd.Sign() < 0 {
		return fmt.Errorf("%w: price end must be a non-negative integer", ErrInvalidConfig)
	}
	if c.TimeStart < 0 || c.TimeEnd < 0 || c.TimeEnd < c.TimeStart {
		return fmt.Errorf("%w: invalid activity window [%d, %d]", ErrInvalidConfig, c.TimeStart, c.TimeEnd)
	}
	if c.ToTokenID < c.FromTokenID {
		return fmt.Errorf("%w: invalid token id range [%d, %d]", ErrInvalidConfig, c.FromTokenID, c.ToTokenID)
	}
	if c.MaxPerWallet == 0 {
		return fmt.Errorf("%w: max per wallet must be positive", ErrInvalidConfig)
	}
	if c.MaxSupplyForStage == 0 {
		return fmt.Errorf("%w: max supply for stage must be positive", ErrInvalidConfig)
	}
	if c.FeeBps > BpsDenominator {
		return fmt.Errorf("%w: fee bps %d exceeds %d", ErrInvalidConfig, c.FeeBps, BpsDenominator)
	}
	if c.Kind == StageKindTokenGated {
		if c.GatingCollection == ([20]byte{}) {
			return fmt.Errorf("%w: gating collection must not be the zero address", ErrInvalidConfig)
		}
		if c.GatingCollection == collection {
			return fmt.Errorf("%w: gating collection must not be the drop collection itself", ErrInvalidConfig)
		}
		if c.MaxPerRedeemedToken == 0 {
			return fmt.Errorf("%w: max mintable per redeemed token must be positive", ErrInvalidConfig)
		}
	} else {
		if c.GatingCollection != ([20]byte{}) || c.MaxPerRedeemedToken != 0 {
			return fmt.Errorf("%w: gating fields are only valid on token-gated stages", ErrInvalidConfig)
		}
	}
	return nil
}

// ID derives the content-hash stage identifier. Two stages with identical
// fields share an identifier, which is what binds allow-list proofs and
// signed vouchers to one exact configuration.
func (c *StageConfig) ID() StageID {
	return stageIDFromBytes(encodeStageConfig(c))
}

// StageID scopes quota counters and redemption records to one stage. Indexed
// stages derive it from their registry slot, proof- and signature-bound
// stages from their configuration content hash.
type StageID [32]byte

// SignerTemplate bounds the stage parameters an off-chain signer is allowed
// to vouch for. A voucher whose declared configuration falls outside any
// bound is rejected even when the signature itself is valid.
type SignerTemplate struct {
	MinPrice                       *big.Int
	MaxMaxPerWallet                uint64
	MinTimeStart                   int64
	MaxTimeEnd                     int64
	MaxStageSupply                 uint64
	MinFeeBps                      uint32
	MaxFeeBps                      uint32
	RequireFeeRecipientRestriction bool
}

// Clone returns a deep copy of the template.
func (t *SignerTemplate) Clone() *SignerTemplate {
	if t == nil {
		return nil
	}
	clone := *t
	if t.MinPrice != nil {
		clone.MinPrice = new(big.Int).Set(t.MinPrice)
	}
	return &clone
}

// Validate checks the template bounds for internal consistency.
func (t *SignerTemplate) Validate() error {
	if t == nil {
		return fmt.Errorf("%w: nil signer template", ErrInvalidConfig)
	}
	if t.MinPrice == nil || t.MinPrice.Sign() < 0 {
		return fmt.Errorf("%w: template min price must be a non-negative integer", ErrInvalidConfig)
	}
	if t.MinFeeBps > t.MaxFeeBps {
		return fmt.Errorf("%w: template min fee bps %d exceeds max %d", ErrInvalidConfig, t.MinFeeBps, t.MaxFeeBps)
	}
	if t.MaxFeeBps > BpsDenominator {
		return fmt.Errorf("%w: template max fee bps %d exceeds %d", ErrInvalidConfig, t.MaxFeeBps, BpsDenominator)
	}
	if t.MinTimeStart < 0 || t.MaxTimeEnd < 0 || t.MaxTimeEnd < t.MinTimeStart {
		return fmt.Errorf("%w: invalid template time bounds [%d, %d]", ErrInvalidConfig, t.MinTimeStart, t.MaxTimeEnd)
	}
	if t.MaxMaxPerWallet == 0 {
		return fmt.Errorf("%w: template max per wallet bound must be positive", ErrInvalidConfig)
	}
	if t.MaxStageSupply == 0 {
		return fmt.Errorf("%w: template stage supply bound must be positive", ErrInvalidConfig)
	}
	return nil
}

// CreatorPayout routes a basis-point share of the creator remainder to one
// payout address.
type CreatorPayout struct {
	Address [20]byte
	Bps     uint32
}

// ValidatePayouts enforces the payout invariants: every address non-zero,
// every share positive, and shares summing to exactly BpsDenominator.
func ValidatePayouts(payouts []CreatorPayout) error {
	if len(payouts) == 0 {
		return fmt.Errorf("%w: at least one creator payout required", ErrInvalidConfig)
	}
	total := uint64(0)
	for i, p := range payouts {
		if p.Address == ([20]byte{}) {
			return fmt.Errorf("%w: payout %d address must not be zero", ErrInvalidConfig, i)
		}
		if p.Bps == 0 {
			return fmt.Errorf("%w: payout %d share must be positive", ErrInvalidConfig, i)
		}
		total += uint64(p.Bps)
	}
	if total != BpsDenominator {
		return fmt.Errorf("%w: payout shares sum to %d, want %d", ErrInvalidConfig, total, BpsDenominator)
	}
	return nil
}

// QuotaScope identifies which cap a quota counter enforces.
type QuotaScope uint8

const (
	ScopeWallet QuotaScope = iota + 1
	ScopeWalletToken
	ScopeStage
)

func (s QuotaScope) String() string {
	switch s {
	case ScopeWallet:
		return "wallet"
	case ScopeWalletToken:
		return "walletToken"
	case ScopeStage:
		return "stage"
	default:
		return "unknown"
	}
}

// QuotaKey addresses one cumulative mint counter. Wallet is zero for
// stage-scoped counters and TokenID is zero for wallet-global counters.
type QuotaKey struct {
	Collection [20]byte
	Scope      QuotaScope
	Wallet     [20]byte
	TokenID    uint64
	StageID    StageID
}

// MintItem requests a quantity of one underlying token id.
type MintItem struct {
	TokenID  uint64
	Quantity uint64
}

// MintRequest is the decoded form of a mint call. Which fields are consulted
// depends on Kind; DecodeMintRequest produces exactly the populated subset.
type MintRequest struct {
	Kind         StageKind
	Collection   [20]byte
	Payer        [20]byte
	Minter       [20]byte
	FeeRecipient [20]byte
	Items        []MintItem
	PaymentValue *big.Int

	// Public and token-gated stages reference a stored registry slot.
	StageIndex uint64

	// Allow-list and signed stages carry the full caller-declared
	// configuration; the proof or signature binds it.
	Config *StageConfig

	// Allow-list.
	Proof [][32]byte

	// Token-gated.
	GatingTokenIDs []uint64
	GatingAmounts  []uint64

	// Signed.
	Salt      [32]byte
	Signature []byte
}

// Quantity returns the aggregate number of units requested across all items.
func (r *MintRequest) Quantity() (uint64, error) {
	total := uint64(0)
	for _, item := range r.Items {
		if item.Quantity == 0 {
			return 0, ErrZeroQuantity
		}
		next := total + item.Quantity
		if next < total {
			return 0, errors.New("drop: request quantity overflow")
		}
		total = next
	}
	return total, nil
}

// PayoutAmount pairs a payout address with the exact amount owed to it.
type PayoutAmount struct {
	Address [20]byte
	Amount  *big.Int
}

// Receipt summarises a completed mint for callers and indexers.
type Receipt struct {
	Collection     [20]byte
	Payer          [20]byte
	Minter         [20]byte
	FeeRecipient   [20]byte
	StageID        StageID
	StageKind      StageKind
	Items          []MintItem
	Quantity       uint64
	UnitPrice      *big.Int
	PaymentToken   [20]byte
	FeeBps         uint32
	Total          *big.Int
	FeeAmount      *big.Int
	CreatorAmounts []PayoutAmount
	Refund         *big.Int
}

// StageEntry pairs a registry slot with its stored configuration when
// enumerating stages.
type StageEntry struct {
	Index  uint64
	Config *StageConfig
}

// RedemptionRecord tracks how much mint allowance a single gating token has
// already redeemed. Records are created on first redemption and never
// deleted so ever-used gating tokens stay enumerable.
type RedemptionRecord struct {
	GatingCollection [20]byte
	GatingTokenID    uint64
	RedeemedCount    uint64
}
