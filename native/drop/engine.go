package drop

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"dropgate/core/events"
	nativecommon "dropgate/native/common"
)

const moduleName = "drop"

// TokenUnit is the capability the surrounding token layer implements. A
// single-fixed-id collection and a multi-id collection expose the same
// surface, which is why the core exists once instead of per variant.
type TokenUnit interface {
	CurrentSupply(tokenID uint64) (uint64, error)
	MaxSupply(tokenID uint64) (uint64, error)
	Mint(to [20]byte, tokenID uint64, quantity uint64) error
}

// TokenRegistry resolves the token unit serving a collection address.
type TokenRegistry interface {
	Token(collection [20]byte) (TokenUnit, bool)
}

// DelegateView is the external delegation oracle: whether the payer holds a
// delegation capability granted by the minter.
type DelegateView interface {
	IsDelegateFor(payer, minter [20]byte) bool
}

// OwnershipView reads current ownership on an external gating collection.
// Ownership is re-verified at authorization time, never cached.
type OwnershipView interface {
	OwnerOf(collection [20]byte, tokenID uint64) ([20]byte, error)
}

// FundSink fulfils value transfers once a mint has committed. Transfers run
// strictly after all state mutations, so a malicious recipient re-entering
// the engine observes only fully committed state and trips the guard.
type FundSink interface {
	Transfer(paymentToken, to [20]byte, amount *big.Int) error
}

// Engine is the mint orchestrator. It composes the registry, the quota
// ledger, the authorization checks, and the pricing rules into the single
// entry point the token layer calls. Execution is serialized and
// all-or-nothing: every check runs against a consistent snapshot before any
// counter is written.
type Engine struct {
	st        State
	registry  *Registry
	ledger    *Ledger
	emitter   events.Emitter
	nowFn     func() int64
	pauses    nativecommon.PauseView
	tokens    TokenRegistry
	delegates DelegateView
	ownership OwnershipView
	funds     FundSink
	busy      bool
}

// NewEngine constructs an engine with default dependencies.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn: func() int64 {
			return time.Now().Unix()
		},
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(st State) {
	e.st = st
	e.ledger = NewLedger(st)
}

// SetRegistry wires the stage registry, which must share the engine's state.
func (e *Engine) SetRegistry(r *Registry) { e.registry = r }

// SetEmitter configures the event emitter used by the engine.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source for deterministic testing.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// SetPauses configures the module pause view.
func (e *Engine) SetPauses(p nativecommon.PauseView) { e.pauses = p }

// SetTokens configures the token unit resolver.
func (e *Engine) SetTokens(t TokenRegistry) { e.tokens = t }

// SetDelegates configures the delegation oracle. Optional: without it only
// the minter itself and allow-listed payers may pay.
func (e *Engine) SetDelegates(d DelegateView) { e.delegates = d }

// SetOwnership configures the gating-collection ownership reader.
func (e *Engine) SetOwnership(o OwnershipView) { e.ownership = o }

// SetFunds configures the payment sink. Optional: an embedding token layer
// that settles funds itself may leave it unset.
func (e *Engine) SetFunds(f FundSink) { e.funds = f }

// Ledger exposes read access to the quota counters.
func (e *Engine) Ledger() *Ledger { return e.ledger }

func (e *Engine) emit(evt events.Event) {
	if e == nil || e.emitter == nil {
		return
	}
	e.emitter.Emit(evt)
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

// AuthorizeMint is the single call surface exposed to the token layer: it
// decodes the variant-tagged payload and runs the full mint pipeline.
func (e *Engine) AuthorizeMint(collection, payer [20]byte, payload []byte) (*Receipt, error) {
	req, err := DecodeMintRequest(collection, payer, payload)
	if err != nil {
		return nil, err
	}
	return e.Mint(req)
}

// Mint validates, authorizes, accounts, prices, and finally mints. Any
// failure at any step aborts the whole call with no state mutation; value
// transfers run only after every mutation has committed.
func (e *Engine) Mint(req *MintRequest) (*Receipt, error) {
	if e == nil || e.st == nil || e.registry == nil {
		return nil, errors.New("drop: engine not configured")
	}
	if e.busy {
		return nil, ErrReentrantCall
	}
	e.busy = true
	defer func() { e.busy = false }()

	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if req == nil {
		return nil, errors.New("drop: nil request")
	}
	if len(req.Items) == 0 {
		return nil, ErrZeroQuantity
	}
	seen := make(map[uint64]struct{}, len(req.Items))
	for _, item := range req.Items {
		if _, dup := seen[item.TokenID]; dup {
			return nil, ErrDuplicateTokenID
		}
		seen[item.TokenID] = struct{}{}
	}
	quantity, err := req.Quantity()
	if err != nil {
		return nil, err
	}

	// Zero minter means "the payer mints for itself".
	minter := req.Minter
	if minter == ([20]byte{}) {
		minter = req.Payer
	}

	cfg, stageID, err := e.resolveStage(req)
	if err != nil {
		return nil, err
	}

	now := e.now()
	if now < cfg.TimeStart || now > cfg.TimeEnd {
		return nil, &NotActiveError{Now: now, Start: cfg.TimeStart, End: cfg.TimeEnd}
	}

	for _, item := range req.Items {
		if !cfg.ContainsToken(item.TokenID) {
			return nil, fmt.Errorf("%w: token %d outside [%d, %d]", ErrTokenOutOfRange, item.TokenID, cfg.FromTokenID, cfg.ToTokenID)
		}
	}

	if err := e.checkPayer(req, minter); err != nil {
		return nil, err
	}
	if err := e.checkFeeRecipient(req, cfg); err != nil {
		return nil, err
	}

	outcome, err := e.authorize(req, cfg, minter, quantity)
	if err != nil {
		return nil, err
	}

	token, err := e.resolveToken(req.Collection)
	if err != nil {
		return nil, err
	}

	// Quota preconditions: evaluate every cap against a consistent snapshot
	// through one batch, in caller-supplied item order, before any write.
	batch := e.ledger.Begin()
	walletKey := QuotaKey{Collection: req.Collection, Scope: ScopeWallet, Wallet: minter, StageID: stageID}
	if _, err := batch.CheckAndIncrement(walletKey, quantity, cfg.MaxPerWallet); err != nil {
		return nil, err
	}
	for _, item := range req.Items {
		perTokenKey := QuotaKey{
			Collection: req.Collection,
			Scope:      ScopeWalletToken,
			Wallet:     minter,
			TokenID:    item.TokenID,
			StageID:    stageID,
		}
		if _, err := batch.CheckAndIncrement(perTokenKey, item.Quantity, cfg.MaxPerWalletPerToken); err != nil {
			return nil, err
		}
	}
	stageQuota := QuotaKey{Collection: req.Collection, Scope: ScopeStage, StageID: stageID}
	if _, err := batch.CheckAndIncrement(stageQuota, quantity, cfg.MaxSupplyForStage); err != nil {
		return nil, err
	}
	for _, item := range req.Items {
		if err := e.checkTokenSupply(token, item); err != nil {
			return nil, err
		}
	}

	// Pricing and payment.
	unitPrice := PriceAt(cfg, now)
	total, err := TotalCost(unitPrice, quantity)
	if err != nil {
		return nil, err
	}
	supplied := big.NewInt(0)
	if req.PaymentValue != nil {
		supplied = req.PaymentValue
	}
	if supplied.Cmp(total) < 0 {
		return nil, &PaymentError{Supplied: new(big.Int).Set(supplied), Required: total}
	}
	refund := new(big.Int).Sub(supplied, total)

	payouts, err := e.registry.Payouts(req.Collection)
	if err != nil {
		return nil, err
	}
	if len(payouts) == 0 {
		return nil, ErrPayoutsNotConfigured
	}
	feeAmount, creatorAmounts, err := SplitPayment(total, cfg.FeeBps, payouts)
	if err != nil {
		return nil, err
	}

	// Every check has passed: counters, redemptions, and the digest go
	// through one commit point, then the tokens mint, then value moves.
	// Nothing before this point wrote state.
	if err := e.stageRedemptions(batch, req.Collection, outcome); err != nil {
		return nil, err
	}
	if outcome.markDigest != nil {
		batch.StagePut(digestKey(*outcome.markDigest), true)
	}
	if err := batch.Commit(); err != nil {
		return nil, err
	}
	for _, item := range req.Items {
		if err := token.Mint(minter, item.TokenID, item.Quantity); err != nil {
			return nil, fmt.Errorf("drop: token mint: %w", err)
		}
	}

	if e.funds != nil {
		if feeAmount.Sign() > 0 {
			if err := e.funds.Transfer(cfg.PaymentToken, req.FeeRecipient, feeAmount); err != nil {
				return nil, fmt.Errorf("drop: fee transfer: %w", err)
			}
		}
		for _, payout := range creatorAmounts {
			if payout.Amount.Sign() == 0 {
				continue
			}
			if err := e.funds.Transfer(cfg.PaymentToken, payout.Address, payout.Amount); err != nil {
				return nil, fmt.Errorf("drop: creator transfer: %w", err)
			}
		}
		if refund.Sign() > 0 {
			if err := e.funds.Transfer(cfg.PaymentToken, req.Payer, refund); err != nil {
				return nil, fmt.Errorf("drop: refund transfer: %w", err)
			}
		}
	}

	e.emit(MintCompleted{
		Collection:   req.Collection,
		Payer:        req.Payer,
		Minter:       minter,
		FeeRecipient: req.FeeRecipient,
		Quantity:     quantity,
		UnitPrice:    unitPrice,
		PaymentToken: cfg.PaymentToken,
		FeeBps:       cfg.FeeBps,
		StageID:      stageID,
	})

	items := make([]MintItem, len(req.Items))
	copy(items, req.Items)
	return &Receipt{
		Collection:     req.Collection,
		Payer:          req.Payer,
		Minter:         minter,
		FeeRecipient:   req.FeeRecipient,
		StageID:        stageID,
		StageKind:      cfg.Kind,
		Items:          items,
		Quantity:       quantity,
		UnitPrice:      unitPrice,
		PaymentToken:   cfg.PaymentToken,
		FeeBps:         cfg.FeeBps,
		Total:          total,
		FeeAmount:      feeAmount,
		CreatorAmounts: creatorAmounts,
		Refund:         refund,
	}, nil
}

func (e *Engine) resolveToken(collection [20]byte) (TokenUnit, error) {
	if e.tokens == nil {
		return nil, ErrCollectionNotRegistered
	}
	token, ok := e.tokens.Token(collection)
	if !ok {
		return nil, ErrCollectionNotRegistered
	}
	return token, nil
}

func (e *Engine) checkTokenSupply(token TokenUnit, item MintItem) error {
	current, err := token.CurrentSupply(item.TokenID)
	if err != nil {
		return err
	}
	ceiling, err := token.MaxSupply(item.TokenID)
	if err != nil {
		return err
	}
	attempted := current + item.Quantity
	if attempted < current {
		return nativecommon.ErrQuotaCounterOverflow
	}
	if ceiling > 0 && attempted > ceiling {
		return &SupplyExceededError{TokenID: item.TokenID, Attempted: attempted, Cap: ceiling}
	}
	return nil
}

func (e *Engine) stageRedemptions(batch *LedgerBatch, collection [20]byte, outcome *authOutcome) error {
	for _, record := range outcome.redemptions {
		batch.StagePut(redemptionKey(collection, record.GatingCollection, record.GatingTokenID), record.RedeemedCount)
	}
	if len(outcome.newRedemptions) == 0 {
		return nil
	}
	var index []redemptionIndexEntry
	if _, err := e.st.KVGet(redemptionIndexKey(collection), &index); err != nil {
		return err
	}
	index = append(index, outcome.newRedemptions...)
	batch.StagePut(redemptionIndexKey(collection), index)
	return nil
}

// Redemption returns how many units a gating token has redeemed so far.
func (e *Engine) Redemption(collection, gatingCollection [20]byte, tokenID uint64) (uint64, error) {
	count, _, err := e.redemptionCount(collection, gatingCollection, tokenID)
	return count, err
}

// Redemptions enumerates every gating token that has ever redeemed against
// the collection. Records are never deleted.
func (e *Engine) Redemptions(collection [20]byte) ([]RedemptionRecord, error) {
	var index []redemptionIndexEntry
	if _, err := e.st.KVGet(redemptionIndexKey(collection), &index); err != nil {
		return nil, err
	}
	records := make([]RedemptionRecord, 0, len(index))
	for _, entry := range index {
		count, _, err := e.redemptionCount(collection, entry.GatingCollection, entry.GatingTokenID)
		if err != nil {
			return nil, err
		}
		records = append(records, RedemptionRecord{
			GatingCollection: entry.GatingCollection,
			GatingTokenID:    entry.GatingTokenID,
			RedeemedCount:    count,
		})
	}
	return records, nil
}
