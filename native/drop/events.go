package drop

import (
	"encoding/hex"
	"math/big"
	"strconv"

	"dropgate/core/types"
	"dropgate/crypto"
)

const (
	TypeStageUpdated        = "drop.stage.updated"
	TypeStageRemoved        = "drop.stage.removed"
	TypeAllowlistUpdated    = "drop.allowlist.updated"
	TypeSignerUpdated       = "drop.signer.updated"
	TypeSignerRemoved       = "drop.signer.removed"
	TypeFeeRecipientUpdated = "drop.feeRecipient.updated"
	TypePayerUpdated        = "drop.payer.updated"
	TypePayoutsUpdated      = "drop.payouts.updated"
	TypeAuthorityUpdated    = "drop.authority.updated"
	TypeMintCompleted       = "drop.mint.completed"
)

func addrString(addr [20]byte) string {
	return crypto.NewAddress(crypto.DropPrefix, addr[:]).String()
}

func amountString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

type StageUpdated struct {
	Collection [20]byte
	Index      uint64
	Kind       StageKind
}

func (StageUpdated) EventType() string { return TypeStageUpdated }

func (e StageUpdated) Event() *types.Event {
	return &types.Event{
		Type: TypeStageUpdated,
		Attributes: map[string]string{
			"collection": addrString(e.Collection),
			"index":      strconv.FormatUint(e.Index, 10),
			"kind":       e.Kind.String(),
		},
	}
}

type StageRemoved struct {
	Collection [20]byte
	Index      uint64
}

func (StageRemoved) EventType() string { return TypeStageRemoved }

func (e StageRemoved) Event() *types.Event {
	return &types.Event{
		Type: TypeStageRemoved,
		Attributes: map[string]string{
			"collection": addrString(e.Collection),
			"index":      strconv.FormatUint(e.Index, 10),
		},
	}
}

type AllowlistUpdated struct {
	Collection [20]byte
	Root       [32]byte
}

func (AllowlistUpdated) EventType() string { return TypeAllowlistUpdated }

func (e AllowlistUpdated) Event() *types.Event {
	return &types.Event{
		Type: TypeAllowlistUpdated,
		Attributes: map[string]string{
			"collection": addrString(e.Collection),
			"root":       hex.EncodeToString(e.Root[:]),
		},
	}
}

type SignerUpdated struct {
	Collection [20]byte
	Signer     [20]byte
}

func (SignerUpdated) EventType() string { return TypeSignerUpdated }

func (e SignerUpdated) Event() *types.Event {
	return &types.Event{
		Type: TypeSignerUpdated,
		Attributes: map[string]string{
			"collection": addrString(e.Collection),
			"signer":     addrString(e.Signer),
		},
	}
}

type SignerRemoved struct {
	Collection [20]byte
	Signer     [20]byte
}

func (SignerRemoved) EventType() string { return TypeSignerRemoved }

func (e SignerRemoved) Event() *types.Event {
	return &types.Event{
		Type: TypeSignerRemoved,
		Attributes: map[string]string{
			"collection": addrString(e.Collection),
			"signer":     addrString(e.Signer),
		},
	}
}

type FeeRecipientUpdated struct {
	Collection [20]byte
	Recipient  [20]byte
	Allowed    bool
}

func (FeeRecipientUpdated) EventType() string { return TypeFeeRecipientUpdated }

func (e FeeRecipientUpdated) Event() *types.Event {
	return &types.Event{
		Type: TypeFeeRecipientUpdated,
		Attributes: map[string]string{
			"collection": addrString(e.Collection),
			"recipient":  addrString(e.Recipient),
			"allowed":    strconv.FormatBool(e.Allowed),
		},
	}
}

type PayerUpdated struct {
	Collection [20]byte
	Payer      [20]byte
	Allowed    bool
}

func (PayerUpdated) EventType() string { return TypePayerUpdated }

func (e PayerUpdated) Event() *types.Event {
	return &types.Event{
		Type: TypePayerUpdated,
		Attributes: map[string]string{
			"collection": addrString(e.Collection),
			"payer":      addrString(e.Payer),
			"allowed":    strconv.FormatBool(e.Allowed),
		},
	}
}

type PayoutsUpdated struct {
	Collection [20]byte
	Count      int
}

func (PayoutsUpdated) EventType() string { return TypePayoutsUpdated }

func (e PayoutsUpdated) Event() *types.Event {
	return &types.Event{
		Type: TypePayoutsUpdated,
		Attributes: map[string]string{
			"collection": addrString(e.Collection),
			"count":      strconv.Itoa(e.Count),
		},
	}
}

type AuthorityUpdated struct {
	Collection [20]byte
	Authority  [20]byte
}

func (AuthorityUpdated) EventType() string { return TypeAuthorityUpdated }

func (e AuthorityUpdated) Event() *types.Event {
	return &types.Event{
		Type: TypeAuthorityUpdated,
		Attributes: map[string]string{
			"collection": addrString(e.Collection),
			"authority":  addrString(e.Authority),
		},
	}
}

// MintCompleted is the structured record emitted once per successful mint for
// off-chain indexing.
type MintCompleted struct {
	Collection   [20]byte
	Payer        [20]byte
	Minter       [20]byte
	FeeRecipient [20]byte
	Quantity     uint64
	UnitPrice    *big.Int
	PaymentToken [20]byte
	FeeBps       uint32
	StageID      StageID
}

func (MintCompleted) EventType() string { return TypeMintCompleted }

func (e MintCompleted) Event() *types.Event {
	return &types.Event{
		Type: TypeMintCompleted,
		Attributes: map[string]string{
			"collection":   addrString(e.Collection),
			"payer":        addrString(e.Payer),
			"minter":       addrString(e.Minter),
			"feeRecipient": addrString(e.FeeRecipient),
			"quantity":     strconv.FormatUint(e.Quantity, 10),
			"unitPrice":    amountString(e.UnitPrice),
			"paymentToken": hex.EncodeToString(e.PaymentToken[:]),
			"feeBps":       strconv.FormatUint(uint64(e.FeeBps), 10),
			"stageId":      hex.EncodeToString(e.StageID[:]),
		},
	}
}
