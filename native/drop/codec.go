package drop

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// Wire layout: tag byte, fee recipient, minter, payment value, items, then
// variant-specific fields, in that fixed order. All numeric fields are
// fixed-width big-endian. The tag byte is the StageKind value.

var (
	// ErrTruncatedPayload indicates the payload ended before a required field.
	ErrTruncatedPayload = errors.New("drop: truncated mint payload")
	// ErrTrailingBytes indicates unconsumed bytes after the last field.
	ErrTrailingBytes = errors.New("drop: trailing bytes in mint payload")
	// ErrUnknownVariant indicates an unrecognised tag byte.
	ErrUnknownVariant = errors.New("drop: unknown request variant")
	// ErrValueTooLarge indicates a payment value that does not fit 32 bytes.
	ErrValueTooLarge = errors.New("drop: payment value exceeds 32 bytes")
)

const (
	stageConfigEncodedLen = 174
	signatureLen          = 65
)

// encodeStageConfig produces the canonical fixed-width encoding of a stage
// configuration. The same bytes feed the allow-list Merkle leaf, the voucher
// digest, and the content-hash stage identifier, so any field mismatch
// changes all three.
func encodeStageConfig(c *StageConfig) []byte {
	buf := make([]byte, 0, stageConfigEncodedLen)
	buf = append(buf, byte(c.Kind))
	buf = append(buf, bigTo32(c.PriceStart)...)
	buf = append(buf, bigTo32(c.PriceEnd)...)
	buf = appendUint64(buf, uint64(c.TimeStart))
	buf = appendUint64(buf, uint64(c.TimeEnd))
	buf = append(buf, c.PaymentToken[:]...)
	buf = appendUint64(buf, c.FromTokenID)
	buf = appendUint64(buf, c.ToTokenID)
	buf = appendUint64(buf, c.MaxPerWallet)
	buf = appendUint64(buf, c.MaxPerWalletPerToken)
	buf = appendUint64(buf, c.MaxSupplyForStage)
	buf = appendUint32(buf, c.FeeBps)
	if c.RestrictFeeRecipients {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}
	buf = append(buf, c.GatingCollection[:]...)
	buf = appendUint64(buf, c.MaxPerRedeemedToken)
	return buf
}

func decodeStageConfig(r *reader) (*StageConfig, error) {
	cfg := &StageConfig{}
	kind, err := r.byte()
	if err != nil {
		return nil, err
	}
	cfg.Kind = StageKind(kind)
	if cfg.PriceStart, err = r.big32(); err != nil {
		return nil, err
	}
	if cfg.PriceEnd, err = r.big32(); err != nil {
		return nil, err
	}
	start, err := r.uint64()
	if err != nil {
		return nil, err
	}
	end, err := r.uint64()
	if err != nil {
		return nil, err
	}
	cfg.TimeStart = int64(start)
	cfg.TimeEnd = int64(end)
	if cfg.PaymentToken, err = r.addr(); err != nil {
		return nil, err
	}
	if cfg.FromTokenID, err = r.uint64(); err != nil {
		return nil, err
	}
	if cfg.ToTokenID, err = r.uint64(); err != nil {
		return nil, err
	}
	if cfg.MaxPerWallet, err = r.uint64(); err != nil {
		return nil, err
	}
	if cfg.MaxPerWalletPerToken, err = r.uint64(); err != nil {
		return nil, err
	}
	if cfg.MaxSupplyForStage, err = r.uint64(); err != nil {
		return nil, err
	}
	if cfg.FeeBps, err = r.uint32(); err != nil {
		return nil, err
	}
	restrict, err := r.byte()
	if err != nil {
		return nil, err
	}
	cfg.RestrictFeeRecipients = restrict != 0
	if cfg.GatingCollection, err = r.addr(); err != nil {
		return nil, err
	}
	if cfg.MaxPerRedeemedToken, err = r.uint64(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func stageIDFromBytes(b []byte) StageID {
	var id StageID
	copy(id[:], ethcrypto.Keccak256(b))
	return id
}

// stageIDForIndex derives the quota scope identifier for a registry-stored
// stage from its slot rather than its contents, so editing a stored stage
// keeps its historical counters.
func stageIDForIndex(kind StageKind, index uint64) StageID {
	buf := make([]byte, 0, 16)
	buf = append(buf, []byte("drop/stage/")...)
	buf = append(buf, byte(kind))
	buf = appendUint64(buf, index)
	return stageIDFromBytes(buf)
}

// EncodeMintRequest packs a mint request into the opaque wire payload
// consumed by AuthorizeMint. Collection and payer travel out of band.
func EncodeMintRequest(req *MintRequest) ([]byte, error) {
	if req == nil {
		return nil, errors.New("drop: nil request")
	}
	if !req.Kind.Valid() {
		return nil, fmt.Errorf("%w: tag %d", ErrUnknownVariant, req.Kind)
	}
	buf := []byte{byte(req.Kind)}
	buf = append(buf, req.FeeRecipient[:]...)
	buf = append(buf, req.Minter[:]...)
	value := bigTo32(req.PaymentValue)
	if req.PaymentValue != nil && req.PaymentValue.BitLen() > 256 {
		return nil, ErrValueTooLarge
	}
	buf = append(buf, value...)
	buf = appendUint16(buf, uint16(len(req.Items)))
	for _, item := range req.Items {
		buf = appendUint64(buf, item.TokenID)
		buf = appendUint64(buf, item.Quantity)
	}
	switch req.Kind {
	case StageKindPublic:
		buf = appendUint64(buf, req.StageIndex)
	case StageKindAllowList:
		if req.Config == nil {
			return nil, errors.New("drop: allow-list request requires a stage config")
		}
		buf = append(buf, encodeStageConfig(req.Config)...)
		buf = appendUint16(buf, uint16(len(req.Proof)))
		for _, node := range req.Proof {
			buf = append(buf, node[:]...)
		}
	case StageKindTokenGated:
		buf = appendUint64(buf, req.StageIndex)
		buf = appendUint16(buf, uint16(len(req.GatingTokenIDs)))
		for _, id := range req.GatingTokenIDs {
			buf = appendUint64(buf, id)
		}
		buf = appendUint16(buf, uint16(len(req.GatingAmounts)))
		for _, amount := range req.GatingAmounts {
			buf = appendUint64(buf, amount)
		}
	case StageKindSigned:
		if req.Config == nil {
			return nil, errors.New("drop: signed request requires a stage config")
		}
		if len(req.Signature) != signatureLen {
			return nil, fmt.Errorf("drop: signature must be %d bytes", signatureLen)
		}
		buf = append(buf, encodeStageConfig(req.Config)...)
		buf = append(buf, req.Salt[:]...)
		buf = append(buf, req.Signature...)
	}
	return buf, nil
}

// DecodeMintRequest parses the opaque wire payload. The collection address
// and the transaction payer are supplied by the transport layer.
func DecodeMintRequest(collection, payer [20]byte, payload []byte) (*MintRequest, error) {
	r := &reader{buf: payload}
	tag, err := r.byte()
	if err != nil {
		return nil, err
	}
	kind := StageKind(tag)
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: tag %d", ErrUnknownVariant, tag)
	}
	req := &MintRequest{Kind: kind, Collection: collection, Payer: payer}
	if req.FeeRecipient, err = r.addr(); err != nil {
		return nil, err
	}
	if req.Minter, err = r.addr(); err != nil {
		return nil, err
	}
	if req.PaymentValue, err = r.big32(); err != nil {
		return nil, err
	}
	itemCount, err := r.uint16()
	if err != nil {
		return nil, err
	}
	req.Items = make([]MintItem, 0, itemCount)
	for i := 0; i < int(itemCount); i++ {
		tokenID, err := r.uint64()
		if err != nil {
			return nil, err
		}
		quantity, err := r.uint64()
		if err != nil {
			return nil, err
		}
		req.Items = append(req.Items, MintItem{TokenID: tokenID, Quantity: quantity})
	}
	switch kind {
	case StageKindPublic:
		if req.StageIndex, err = r.uint64(); err != nil {
			return nil, err
		}
	case StageKindAllowList:
		if req.Config, err = decodeStageConfig(r); err != nil {
			return nil, err
		}
		proofCount, err := r.uint16()
		if err != nil {
			return nil, err
		}
		req.Proof = make([][32]byte, 0, proofCount)
		for i := 0; i < int(proofCount); i++ {
			node, err := r.hash()
			if err != nil {
				return nil, err
			}
			req.Proof = append(req.Proof, node)
		}
	case StageKindTokenGated:
		if req.StageIndex, err = r.uint64(); err != nil {
			return nil, err
		}
		idCount, err := r.uint16()
		if err != nil {
			return nil, err
		}
		req.GatingTokenIDs = make([]uint64, 0, idCount)
		for i := 0; i < int(idCount); i++ {
			id, err := r.uint64()
			if err != nil {
				return nil, err
			}
			req.GatingTokenIDs = append(req.GatingTokenIDs, id)
		}
		amountCount, err := r.uint16()
		if err != nil {
			return nil, err
		}
		req.GatingAmounts = make([]uint64, 0, amountCount)
		for i := 0; i < int(amountCount); i++ {
			amount, err := r.uint64()
			if err != nil {
				return nil, err
			}
			req.GatingAmounts = append(req.GatingAmounts, amount)
		}
	case StageKindSigned:
		if req.Config, err = decodeStageConfig(r); err != nil {
			return nil, err
		}
		if req.Salt, err = r.hash(); err != nil {
			return nil, err
		}
		sig, err := r.bytes(signatureLen)
		if err != nil {
			return nil, err
		}
		req.Signature = sig
	}
	if r.remaining() != 0 {
		return nil, ErrTrailingBytes
	}
	return req, nil
}

// --- encoding helpers ---

func bigTo32(v *big.Int) []byte {
	out := make([]byte, 32)
	if v == nil || v.Sign() == 0 {
		return out
	}
	return v.FillBytes(out)
}

func appendUint64(buf []byte, v uint64) []byte {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	return append(buf, tmp[:]...)
}

func appendUint32(buf []byte, v uint32) []byte {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	return append(buf, tmp[:]...)
}

func appendUint16(buf []byte, v uint16) []byte {
	var tmp [2]byte
	binary.BigEndian.PutUint16(tmp[:], v)
	return append(buf, tmp[:]...)
}

type reader struct {
	buf []byte
	off int
}

func (r *reader) remaining() int { return len(r.buf) - r.off }

func (r *reader) bytes(n int) ([]byte, error) {
	if r.remaining() < n {
		return nil, ErrTruncatedPayload
	}
	out := make([]byte, n)
	copy(out, r.buf[r.off:r.off+n])
	r.off += n
	return out, nil
}

func (r *reader) byte() (byte, error) {
	b, err := r.bytes(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *reader) uint16() (uint16, error) {
	b, err := r.bytes(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (r *reader) uint32() (uint32, error) {
	b, err := r.bytes(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (r *reader) uint64() (uint64, error) {
	b, err := r.bytes(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

func (r *reader) addr() ([20]byte, error) {
	var out [20]byte
	b, err := r.bytes(20)
	if err != nil {
		return out, err
	}
	copy(out[:], b)
	return out, nil
}

func (r *reader) hash() ([32]byte, error) {
	var out [32]byte
	b, err := r.bytes(32)
	if err != nil {
		return out, err
	}
	copy(out[:], b)
	return out, nil
}

func (r *reader) big32() (*big.Int, error) {
	b, err := r.bytes(32)
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(b), nil
}
