package drop

import (
	"errors"
	"fmt"
	"math/big"
)

var (
	// ErrInvalidConfig rejects a configuration write that violates a stage,
	// template, or payout invariant. It never reaches mint time for stored
	// stages.
	ErrInvalidConfig = errors.New("drop: invalid configuration")
	// ErrUnauthorized indicates the caller is not the collection authority.
	ErrUnauthorized = errors.New("drop: caller is not the collection authority")
	// ErrStageNotFound indicates the referenced registry slot holds no stage.
	ErrStageNotFound = errors.New("drop: stage not found")
	// ErrStageKindMismatch indicates the stored stage is of a different kind
	// than the request claims.
	ErrStageKindMismatch = errors.New("drop: stage kind mismatch")

	// ErrInvalidProof covers both "minter not on the list" and "tampered
	// stage fields": the Merkle leaf recomputed from the declared fields does
	// not resolve to the stored root.
	ErrInvalidProof = errors.New("drop: invalid allow-list proof")
	// ErrAllowlistRootNotSet indicates no allow-list root is configured for
	// the collection.
	ErrAllowlistRootNotSet = errors.New("drop: allow-list root not set")
	// ErrInvalidSignature indicates the voucher signature could not be
	// recovered.
	ErrInvalidSignature = errors.New("drop: invalid voucher signature")
	// ErrSignerNotRegistered indicates the recovered signer has no validation
	// template on record.
	ErrSignerNotRegistered = errors.New("drop: signer not registered")
	// ErrSignatureAlreadyUsed rejects a replayed voucher digest.
	ErrSignatureAlreadyUsed = errors.New("drop: signature already used")
	// ErrPayerNotAllowed indicates the caller is neither the minter, an
	// allowed payer, nor a registered delegate of the minter.
	ErrPayerNotAllowed = errors.New("drop: payer not allowed")
	// ErrFeeRecipientNotAllowed indicates the supplied fee recipient is not
	// in the allow-set while the stage restricts recipients.
	ErrFeeRecipientNotAllowed = errors.New("drop: fee recipient not allowed")
	// ErrGatingTokenNotOwned indicates the minter does not currently own the
	// gating token being redeemed.
	ErrGatingTokenNotOwned = errors.New("drop: gating token not owned by minter")
	// ErrGatingLengthMismatch indicates gating token id and amount arrays
	// differ in length.
	ErrGatingLengthMismatch = errors.New("drop: gating token ids and amounts length mismatch")
	// ErrGatingRedemptionExhausted indicates a gating token has no redemption
	// allowance left.
	ErrGatingRedemptionExhausted = errors.New("drop: gating token redemption exhausted")
	// ErrGatingQuantityMismatch indicates the gating amounts do not add up to
	// the requested mint quantity.
	ErrGatingQuantityMismatch = errors.New("drop: gating amounts do not match requested quantity")

	// ErrSignedMintsMustRestrictFeeRecipients rejects a voucher whose
	// declared stage leaves fee recipients unrestricted while the signer's
	// template demands restriction.
	ErrSignedMintsMustRestrictFeeRecipients = errors.New("drop: signed mints must restrict fee recipients")
	// ErrInvalidSignedPrice indicates the declared price is below the
	// template minimum.
	ErrInvalidSignedPrice = errors.New("drop: signed price below template minimum")
	// ErrInvalidSignedMaxPerWallet indicates the declared per-wallet cap
	// exceeds the template bound.
	ErrInvalidSignedMaxPerWallet = errors.New("drop: signed max per wallet above template bound")
	// ErrInvalidSignedStartTime indicates the declared start precedes the
	// template minimum.
	ErrInvalidSignedStartTime = errors.New("drop: signed start time before template bound")
	// ErrInvalidSignedEndTime indicates the declared end exceeds the template
	// maximum.
	ErrInvalidSignedEndTime = errors.New("drop: signed end time after template bound")
	// ErrInvalidSignedStageSupply indicates the declared stage supply cap
	// exceeds the template bound.
	ErrInvalidSignedStageSupply = errors.New("drop: signed stage supply above template bound")
	// ErrInvalidSignedFeeBps indicates the declared fee is outside the
	// template's [min, max] range.
	ErrInvalidSignedFeeBps = errors.New("drop: signed fee bps outside template bounds")

	// ErrDuplicateTokenID rejects a batch request naming the same token id
	// twice.
	ErrDuplicateTokenID = errors.New("drop: duplicate token id in request")
	// ErrTokenOutOfRange indicates a requested token id falls outside the
	// stage's token id range.
	ErrTokenOutOfRange = errors.New("drop: token id outside stage range")
	// ErrZeroQuantity rejects a request with no items or a zero quantity.
	ErrZeroQuantity = errors.New("drop: quantity must be positive")
	// ErrPayoutsNotConfigured indicates the collection has no creator payout
	// split on record.
	ErrPayoutsNotConfigured = errors.New("drop: creator payouts not configured")
	// ErrCollectionNotRegistered indicates no token unit serves the
	// collection address.
	ErrCollectionNotRegistered = errors.New("drop: collection not registered")
	// ErrReentrantCall rejects a mint issued while another mint on the same
	// engine is still fulfilling payments.
	ErrReentrantCall = errors.New("drop: reentrant call")

	// ErrQuotaExceeded is the sentinel matched by QuotaExceededError.
	ErrQuotaExceeded = errors.New("drop: quota exceeded")
	// ErrMaxSupplyExceeded is the sentinel matched by SupplyExceededError.
	ErrMaxSupplyExceeded = errors.New("drop: max supply exceeded")
	// ErrStageNotActive is the sentinel matched by NotActiveError.
	ErrStageNotActive = errors.New("drop: stage not active")
	// ErrInsufficientPayment is the sentinel matched by PaymentError.
	ErrInsufficientPayment = errors.New("drop: insufficient payment")
)

// QuotaExceededError reports a failed cap check with enough detail for
// callers to display remaining capacity. Attempted is the cumulative total
// the request would have reached.
type QuotaExceededError struct {
	Scope     QuotaScope
	TokenID   uint64
	Attempted uint64
	Cap       uint64
}

func (e *QuotaExceededError) Error() string {
	if e.Scope == ScopeWalletToken {
		return fmt.Sprintf("drop: %s quota exceeded for token %d: attempted %d, cap %d", e.Scope, e.TokenID, e.Attempted, e.Cap)
	}
	return fmt.Sprintf("drop: %s quota exceeded: attempted %d, cap %d", e.Scope, e.Attempted, e.Cap)
}

func (e *QuotaExceededError) Is(target error) bool { return target == ErrQuotaExceeded }

// SupplyExceededError reports a mint that would push a token past the
// collection's absolute ceiling.
type SupplyExceededError struct {
	TokenID   uint64
	Attempted uint64
	Cap       uint64
}

func (e *SupplyExceededError) Error() string {
	return fmt.Sprintf("drop: max supply exceeded for token %d: attempted %d, cap %d", e.TokenID, e.Attempted, e.Cap)
}

func (e *SupplyExceededError) Is(target error) bool { return target == ErrMaxSupplyExceeded }

// NotActiveError reports a mint outside the stage's activity window.
type NotActiveError struct {
	Now   int64
	Start int64
	End   int64
}

func (e *NotActiveError) Error() string {
	return fmt.Sprintf("drop: stage not active at %d: window [%d, %d]", e.Now, e.Start, e.End)
}

func (e *NotActiveError) Is(target error) bool { return target == ErrStageNotActive }

// PaymentError reports an underpaid mint. Overpayment is never an error; the
// surplus is refunded.
type PaymentError struct {
	Supplied *big.Int
	Required *big.Int
}

func (e *PaymentError) Error() string {
	supplied, required := "0", "0"
	if e.Supplied != nil {
		supplied = e.Supplied.String()
	}
	if e.Required != nil {
		required = e.Required.String()
	}
	return fmt.Sprintf("drop: insufficient payment: supplied %s, required %s", supplied, required)
}

func (e *PaymentError) Is(target error) bool { return target == ErrInsufficientPayment }
