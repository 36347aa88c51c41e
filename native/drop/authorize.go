package drop

import (
	"fmt"
)

// authOutcome carries the state mutations an authorization earns the right
// to perform. Nothing in it is committed until every other check has passed.
type authOutcome struct {
	// markDigest is the voucher digest to consume, for signed mints.
	markDigest *[32]byte
	// redemptions are the updated per-gating-token records, in request order.
	redemptions []RedemptionRecord
	// newRedemptions lists records that did not exist before this request
	// and must be appended to the ever-used enumeration.
	newRedemptions []redemptionIndexEntry
}

// resolveStage produces the effective stage configuration and quota scope
// identifier for the request. Public and token-gated requests reference a
// stored slot; allow-list and signed requests declare their configuration,
// which the proof or signature must bind.
func (e *Engine) resolveStage(req *MintRequest) (*StageConfig, StageID, error) {
	switch req.Kind {
	case StageKindPublic, StageKindTokenGated:
		cfg, found, err := e.registry.GetStage(req.Collection, req.StageIndex)
		if err != nil {
			return nil, StageID{}, err
		}
		if !found {
			return nil, StageID{}, ErrStageNotFound
		}
		if cfg.Kind != req.Kind {
			return nil, StageID{}, fmt.Errorf("%w: stored %s, requested %s", ErrStageKindMismatch, cfg.Kind, req.Kind)
		}
		return cfg, stageIDForIndex(cfg.Kind, req.StageIndex), nil
	case StageKindAllowList, StageKindSigned:
		cfg := req.Config
		if cfg == nil {
			return nil, StageID{}, fmt.Errorf("%w: missing declared stage", ErrInvalidConfig)
		}
		if cfg.Kind != req.Kind {
			return nil, StageID{}, fmt.Errorf("%w: declared %s, requested %s", ErrStageKindMismatch, cfg.Kind, req.Kind)
		}
		// Declared stages pass the same validation stored stages do, so a
		// zeroed or malformed declaration can never look active.
		if err := cfg.Validate(req.Collection); err != nil {
			return nil, StageID{}, err
		}
		return cfg, cfg.ID(), nil
	default:
		return nil, StageID{}, fmt.Errorf("%w: tag %d", ErrUnknownVariant, req.Kind)
	}
}

// checkPayer enforces the delegated-payer rule common to all variants: the
// caller must be the minter, an allowed payer, or a registered delegate of
// the minter.
func (e *Engine) checkPayer(req *MintRequest, minter [20]byte) error {
	if req.Payer == minter {
		return nil
	}
	allowed, err := e.registry.IsPayerAllowed(req.Collection, req.Payer)
	if err != nil {
		return err
	}
	if allowed {
		return nil
	}
	if e.delegates != nil && e.delegates.IsDelegateFor(req.Payer, minter) {
		return nil
	}
	return ErrPayerNotAllowed
}

// checkFeeRecipient validates the fee recipient against the allow-set when
// the stage restricts recipients. A zero recipient is never accepted.
func (e *Engine) checkFeeRecipient(req *MintRequest, cfg *StageConfig) error {
	if req.FeeRecipient == ([20]byte{}) {
		return fmt.Errorf("%w: zero address", ErrFeeRecipientNotAllowed)
	}
	if !cfg.RestrictFeeRecipients {
		return nil
	}
	allowed, err := e.registry.IsFeeRecipientAllowed(req.Collection, req.FeeRecipient)
	if err != nil {
		return err
	}
	if !allowed {
		return ErrFeeRecipientNotAllowed
	}
	return nil
}

// authorize runs the variant-specific proof material checks. It performs no
// writes; successful outcomes are committed by the orchestrator only after
// quota and payment checks pass.
func (e *Engine) authorize(req *MintRequest, cfg *StageConfig, minter [20]byte, quantity uint64) (*authOutcome, error) {
	switch req.Kind {
	case StageKindPublic:
		return &authOutcome{}, nil
	case StageKindAllowList:
		return e.authorizeAllowList(req, cfg, minter)
	case StageKindTokenGated:
		return e.authorizeTokenGated(req, cfg, minter, quantity)
	case StageKindSigned:
		return e.authorizeSigned(req, cfg, minter)
	default:
		return nil, fmt.Errorf("%w: tag %d", ErrUnknownVariant, req.Kind)
	}
}

func (e *Engine) authorizeAllowList(req *MintRequest, cfg *StageConfig, minter [20]byte) (*authOutcome, error) {
	root, found, err := e.registry.AllowlistRoot(req.Collection)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrAllowlistRootNotSet
	}
	// The leaf is recomputed from the minter and the exact fields being
	// minted under; a proof generated for different fields cannot resolve.
	leaf := AllowListLeaf(minter, cfg)
	if !VerifyProof(leaf, req.Proof, root) {
		return nil, ErrInvalidProof
	}
	return &authOutcome{}, nil
}

func (e *Engine) authorizeTokenGated(req *MintRequest, cfg *StageConfig, minter [20]byte, quantity uint64) (*authOutcome, error) {
	if len(req.GatingTokenIDs) != len(req.GatingAmounts) {
		return nil, ErrGatingLengthMismatch
	}
	if len(req.GatingTokenIDs) == 0 {
		return nil, fmt.Errorf("%w: no gating tokens supplied", ErrGatingTokenNotOwned)
	}
	total := uint64(0)
	for _, amount := range req.GatingAmounts {
		if amount == 0 {
			return nil, ErrZeroQuantity
		}
		total += amount
	}
	if total != quantity {
		return nil, ErrGatingQuantityMismatch
	}
	if e.ownership == nil {
		return nil, fmt.Errorf("drop: ownership view not configured")
	}
	outcome := &authOutcome{}
	// Pending counts let one request redeem the same gating token through
	// multiple pairs while still respecting its cap.
	pending := make(map[uint64]int)
	for i, tokenID := range req.GatingTokenIDs {
		owner, err := e.ownership.OwnerOf(cfg.GatingCollection, tokenID)
		if err != nil {
			return nil, fmt.Errorf("%w: token %d: %v", ErrGatingTokenNotOwned, tokenID, err)
		}
		if owner != minter {
			return nil, fmt.Errorf("%w: token %d", ErrGatingTokenNotOwned, tokenID)
		}
		record := RedemptionRecord{GatingCollection: cfg.GatingCollection, GatingTokenID: tokenID}
		if idx, seen := pending[tokenID]; seen {
			record = outcome.redemptions[idx]
		} else {
			count, found, err := e.redemptionCount(req.Collection, cfg.GatingCollection, tokenID)
			if err != nil {
				return nil, err
			}
			record.RedeemedCount = count
			if !found {
				outcome.newRedemptions = append(outcome.newRedemptions, redemptionIndexEntry{
					GatingCollection: cfg.GatingCollection,
					GatingTokenID:    tokenID,
				})
			}
		}
		next := record.RedeemedCount + req.GatingAmounts[i]
		if next < record.RedeemedCount || next > cfg.MaxPerRedeemedToken {
			return nil, fmt.Errorf("%w: token %d: attempted %d, cap %d",
				ErrGatingRedemptionExhausted, tokenID, next, cfg.MaxPerRedeemedToken)
		}
		record.RedeemedCount = next
		if idx, seen := pending[tokenID]; seen {
			outcome.redemptions[idx] = record
		} else {
			pending[tokenID] = len(outcome.redemptions)
			outcome.redemptions = append(outcome.redemptions, record)
		}
	}
	return outcome, nil
}

func (e *Engine) authorizeSigned(req *MintRequest, cfg *StageConfig, minter [20]byte) (*authOutcome, error) {
	voucher := &MintVoucher{
		Collection:   req.Collection,
		Minter:       minter,
		FeeRecipient: req.FeeRecipient,
		Config:       cfg,
		Salt:         req.Salt,
	}
	signer, digest, err := RecoverVoucherSigner(voucher, req.Signature)
	if err != nil {
		return nil, err
	}
	tpl, found, err := e.registry.SignerTemplate(req.Collection, signer)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrSignerNotRegistered
	}
	if err := CheckTemplateBounds(cfg, tpl); err != nil {
		return nil, err
	}
	used, err := e.digestUsed(digest)
	if err != nil {
		return nil, err
	}
	if used {
		return nil, ErrSignatureAlreadyUsed
	}
	return &authOutcome{markDigest: &digest}, nil
}

func (e *Engine) digestUsed(digest [32]byte) (bool, error) {
	var used bool
	found, err := e.st.KVGet(digestKey(digest), &used)
	if err != nil {
		return false, err
	}
	return found && used, nil
}

func (e *Engine) redemptionCount(collection, gatingCollection [20]byte, tokenID uint64) (uint64, bool, error) {
	var count uint64
	found, err := e.st.KVGet(redemptionKey(collection, gatingCollection, tokenID), &count)
	if err != nil {
		return 0, false, err
	}
	return count, found, nil
}
