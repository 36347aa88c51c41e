package drop

import (
	"crypto/ecdsa"
	"errors"
	"fmt"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// VoucherDomainV1 is the domain separator mixed into every voucher digest so
// signatures cannot be replayed against other signing schemes.
const VoucherDomainV1 = "DROPGATE_MINT_V1"

// MintVoucher is the payload an authorized signer commits to off-chain. The
// digest covers the collection, the minter, the fee recipient, every stage
// field, and the salt; together with the salt it forms a single-use nonce.
type MintVoucher struct {
	Collection   [20]byte
	Minter       [20]byte
	FeeRecipient [20]byte
	Config       *StageConfig
	Salt         [32]byte
}

// Digest computes the keccak256 hash the signer commits to.
func (v *MintVoucher) Digest() ([32]byte, error) {
	var digest [32]byte
	if v == nil {
		return digest, errors.New("drop: nil voucher")
	}
	if v.Config == nil {
		return digest, errors.New("drop: voucher requires a stage config")
	}
	payload := make([]byte, 0, len(VoucherDomainV1)+20*3+stageConfigEncodedLen+32)
	payload = append(payload, []byte(VoucherDomainV1)...)
	payload = append(payload, v.Collection[:]...)
	payload = append(payload, v.Minter[:]...)
	payload = append(payload, v.FeeRecipient[:]...)
	payload = append(payload, encodeStageConfig(v.Config)...)
	payload = append(payload, v.Salt[:]...)
	copy(digest[:], ethcrypto.Keccak256(payload))
	return digest, nil
}

// SignVoucher produces the 65-byte recoverable signature over the voucher
// digest.
func SignVoucher(v *MintVoucher, key *ecdsa.PrivateKey) ([]byte, error) {
	if key == nil {
		return nil, errors.New("drop: nil signing key")
	}
	digest, err := v.Digest()
	if err != nil {
		return nil, err
	}
	sig, err := ethcrypto.Sign(digest[:], key)
	if err != nil {
		return nil, fmt.Errorf("drop: sign voucher: %w", err)
	}
	return sig, nil
}

// RecoverVoucherSigner recomputes the digest and recovers the signer address
// from a 65-byte signature. Verification is stateless; consuming the digest
// is the orchestrator's job.
func RecoverVoucherSigner(v *MintVoucher, sig []byte) ([20]byte, [32]byte, error) {
	var signer [20]byte
	digest, err := v.Digest()
	if err != nil {
		return signer, digest, err
	}
	if len(sig) != signatureLen {
		return signer, digest, fmt.Errorf("%w: signature must be %d bytes", ErrInvalidSignature, signatureLen)
	}
	pub, err := ethcrypto.SigToPub(digest[:], sig)
	if err != nil {
		return signer, digest, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	copy(signer[:], ethcrypto.PubkeyToAddress(*pub).Bytes())
	return signer, digest, nil
}

// CheckTemplateBounds verifies the declared stage fields satisfy the signer's
// validation template pointwise.
func CheckTemplateBounds(cfg *StageConfig, tpl *SignerTemplate) error {
	if cfg == nil || tpl == nil {
		return ErrSignerNotRegistered
	}
	// A decaying stage reaches PriceEnd, so the floor applies to both ends.
	if tpl.MinPrice != nil {
		if cfg.PriceStart.Cmp(tpl.MinPrice) < 0 || cfg.PriceEnd.Cmp(tpl.MinPrice) < 0 {
			return ErrInvalidSignedPrice
		}
	}
	if cfg.MaxPerWallet > tpl.MaxMaxPerWallet {
		return ErrInvalidSignedMaxPerWallet
	}
	if cfg.TimeStart < tpl.MinTimeStart {
		return ErrInvalidSignedStartTime
	}
	if cfg.TimeEnd > tpl.MaxTimeEnd {
		return ErrInvalidSignedEndTime
	}
	if cfg.MaxSupplyForStage > tpl.MaxStageSupply {
		return ErrInvalidSignedStageSupply
	}
	if cfg.FeeBps < tpl.MinFeeBps || cfg.FeeBps > tpl.MaxFeeBps {
		return ErrInvalidSignedFeeBps
	}
	if tpl.RequireFeeRecipientRestriction && !cfg.RestrictFeeRecipients {
		return ErrSignedMintsMustRestrictFeeRecipients
	}
	return nil
}
