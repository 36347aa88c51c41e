package drop

import "math/big"

// State is the narrow persistence surface the drop module requires. The
// production implementation is core/state.Manager; tests provide an
// in-memory substitute. Values are opaque to the module's callers and
// encoded by the state layer.
type State interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	KVDelete(key []byte) error
}

var (
	stagePrefix           = []byte("drop/stage/")
	stageIndexPrefix      = []byte("drop/stages/")
	quotaPrefix           = []byte("drop/quota/")
	digestPrefix          = []byte("drop/digest/")
	redemptionPrefix      = []byte("drop/redemption/")
	redemptionIndexPrefix = []byte("drop/redemptions/")
	allowRootPrefix       = []byte("drop/allowroot/")
	signerPrefix          = []byte("drop/signer/")
	signerIndexPrefix     = []byte("drop/signers/")
	allowSetPrefix        = []byte("drop/set/")
	payoutsPrefix         = []byte("drop/payouts/")
	authorityPrefix       = []byte("drop/authority/")
)

const (
	setFeeRecipients = "feerecipients"
	setPayers        = "payers"
)

func stageKey(collection [20]byte, index uint64) []byte {
	key := append([]byte{}, stagePrefix...)
	key = append(key, collection[:]...)
	return appendUint64(key, index)
}

func stageIndexKey(collection [20]byte) []byte {
	key := append([]byte{}, stageIndexPrefix...)
	return append(key, collection[:]...)
}

func quotaStateKey(k QuotaKey) []byte {
	key := append([]byte{}, quotaPrefix...)
	key = append(key, k.Collection[:]...)
	key = append(key, byte(k.Scope))
	key = append(key, k.Wallet[:]...)
	key = appendUint64(key, k.TokenID)
	return append(key, k.StageID[:]...)
}

func digestKey(digest [32]byte) []byte {
	key := append([]byte{}, digestPrefix...)
	return append(key, digest[:]...)
}

func redemptionKey(collection, gatingCollection [20]byte, tokenID uint64) []byte {
	key := append([]byte{}, redemptionPrefix...)
	key = append(key, collection[:]...)
	key = append(key, gatingCollection[:]...)
	return appendUint64(key, tokenID)
}

func redemptionIndexKey(collection [20]byte) []byte {
	key := append([]byte{}, redemptionIndexPrefix...)
	return append(key, collection[:]...)
}

func allowRootKey(collection [20]byte) []byte {
	key := append([]byte{}, allowRootPrefix...)
	return append(key, collection[:]...)
}

func signerKey(collection, signer [20]byte) []byte {
	key := append([]byte{}, signerPrefix...)
	key = append(key, collection[:]...)
	return append(key, signer[:]...)
}

func signerIndexKey(collection [20]byte) []byte {
	key := append([]byte{}, signerIndexPrefix...)
	return append(key, collection[:]...)
}

func allowSetKey(collection [20]byte, set string, addr [20]byte) []byte {
	key := append([]byte{}, allowSetPrefix...)
	key = append(key, collection[:]...)
	key = append(key, set...)
	key = append(key, '/')
	return append(key, addr[:]...)
}

func allowSetIndexKey(collection [20]byte, set string) []byte {
	key := append([]byte{}, allowSetPrefix...)
	key = append(key, collection[:]...)
	key = append(key, set...)
	return append(key, "/index"...)
}

func payoutsKey(collection [20]byte) []byte {
	key := append([]byte{}, payoutsPrefix...)
	return append(key, collection[:]...)
}

func authorityKey(collection [20]byte) []byte {
	key := append([]byte{}, authorityPrefix...)
	return append(key, collection[:]...)
}

// --- stored representations ---
//
// The state layer encodes values with RLP, which has no signed integers, so
// timestamps are persisted as uint64. Stage validation guarantees they are
// non-negative.

type storedStageConfig struct {
	Kind                  uint8
	PriceStart            *big.Int
	PriceEnd              *big.Int
	TimeStart             uint64
	TimeEnd               uint64
	PaymentToken          [20]byte
	FromTokenID           uint64
	ToTokenID             uint64
	MaxPerWallet          uint64
	MaxPerWalletPerToken  uint64
	MaxSupplyForStage     uint64
	FeeBps                uint32
	RestrictFeeRecipients bool
	GatingCollection      [20]byte
	MaxPerRedeemedToken   uint64
}

func toStoredStage(c *StageConfig) *storedStageConfig {
	stored := &storedStageConfig{
		Kind:                  uint8(c.Kind),
		PriceStart:            big.NewInt(0),
		PriceEnd:              big.NewInt(0),
		TimeStart:             uint64(c.TimeStart),
		TimeEnd:               uint64(c.TimeEnd),
		PaymentToken:          c.PaymentToken,
		FromTokenID:           c.FromTokenID,
		ToTokenID:             c.ToTokenID,
		MaxPerWallet:          c.MaxPerWallet,
		MaxPerWalletPerToken:  c.MaxPerWalletPerToken,
		MaxSupplyForStage:     c.MaxSupplyForStage,
		FeeBps:                c.FeeBps,
		RestrictFeeRecipients: c.RestrictFeeRecipients,
		GatingCollection:      c.GatingCollection,
		MaxPerRedeemedToken:   c.MaxPerRedeemedToken,
	}
	if c.PriceStart != nil {
		stored.PriceStart = new(big.Int).Set(c.PriceStart)
	}
	if c.PriceEnd != nil {
		stored.PriceEnd = new(big.Int).Set(c.PriceEnd)
	}
	return stored
}

func (s *storedStageConfig) toConfig() *StageConfig {
	return &StageConfig{
		Kind:                  StageKind(s.Kind),
		PriceStart:            cloneOrZero(s.PriceStart),
		PriceEnd:              cloneOrZero(s.PriceEnd),
		TimeStart:             int64(s.TimeStart),
		TimeEnd:               int64(s.TimeEnd),
		PaymentToken:          s.PaymentToken,
		FromTokenID:           s.FromTokenID,
		ToTokenID:             s.ToTokenID,
		MaxPerWallet:          s.MaxPerWallet,
		MaxPerWalletPerToken:  s.MaxPerWalletPerToken,
		MaxSupplyForStage:     s.MaxSupplyForStage,
		FeeBps:                s.FeeBps,
		RestrictFeeRecipients: s.RestrictFeeRecipients,
		GatingCollection:      s.GatingCollection,
		MaxPerRedeemedToken:   s.MaxPerRedeemedToken,
	}
}

type storedSignerTemplate struct {
	MinPrice                       *big.Int
	MaxMaxPerWallet                uint64
	MinTimeStart                   uint64
	MaxTimeEnd                     uint64
	MaxStageSupply                 uint64
	MinFeeBps                      uint32
	MaxFeeBps                      uint32
	RequireFeeRecipientRestriction bool
}

func toStoredTemplate(t *SignerTemplate) *storedSignerTemplate {
	stored := &storedSignerTemplate{
		MinPrice:                       big.NewInt(0),
		MaxMaxPerWallet:                t.MaxMaxPerWallet,
		MinTimeStart:                   uint64(t.MinTimeStart),
		MaxTimeEnd:                     uint64(t.MaxTimeEnd),
		MaxStageSupply:                 t.MaxStageSupply,
		MinFeeBps:                      t.MinFeeBps,
		MaxFeeBps:                      t.MaxFeeBps,
		RequireFeeRecipientRestriction: t.RequireFeeRecipientRestriction,
	}
	if t.MinPrice != nil {
		stored.MinPrice = new(big.Int).Set(t.MinPrice)
	}
	return stored
}

func (s *storedSignerTemplate) toTemplate() *SignerTemplate {
	return &SignerTemplate{
		MinPrice:                       cloneOrZero(s.MinPrice),
		MaxMaxPerWallet:                s.MaxMaxPerWallet,
		MinTimeStart:                   int64(s.MinTimeStart),
		MaxTimeEnd:                     int64(s.MaxTimeEnd),
		MaxStageSupply:                 s.MaxStageSupply,
		MinFeeBps:                      s.MinFeeBps,
		MaxFeeBps:                      s.MaxFeeBps,
		RequireFeeRecipientRestriction: s.RequireFeeRecipientRestriction,
	}
}

type storedPayout struct {
	Address [20]byte
	Bps     uint32
}

type redemptionIndexEntry struct {
	GatingCollection [20]byte
	GatingTokenID    uint64
}

func cloneOrZero(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
