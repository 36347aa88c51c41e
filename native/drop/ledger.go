package drop

import (
	"errors"

	nativecommon "dropgate/native/common"
)

// Ledger exposes the monotonic mint counters. Counters only ever grow and
// are never deleted; a removed stage leaves its history queryable.
type Ledger struct {
	st State
}

func NewLedger(st State) *Ledger {
	return &Ledger{st: st}
}

// Total returns the committed counter for the supplied key.
func (l *Ledger) Total(key QuotaKey) (uint64, error) {
	if l == nil || l.st == nil {
		return 0, errors.New("drop: ledger state not configured")
	}
	var total uint64
	if _, err := l.st.KVGet(quotaStateKey(key), &total); err != nil {
		return 0, err
	}
	return total, nil
}

// Begin opens a batch over a consistent snapshot of the committed counters.
// Every cap is checked through the batch before any counter is written, so a
// request that fails one cap leaves all counters untouched.
func (l *Ledger) Begin() *LedgerBatch {
	return &LedgerBatch{
		ledger:  l,
		pending: make(map[string]uint64),
	}
}

// LedgerBatch accumulates check-and-increment operations. Increments against
// the same key within one batch observe each other, which is how the
// aggregate wallet cap is enforced across a multi-token request.
type LedgerBatch struct {
	ledger  *Ledger
	pending map[string]uint64
	order   []QuotaKey
	puts    []stagedPut
}

type stagedPut struct {
	key   []byte
	value interface{}
}

// StagePut queues an arbitrary state write behind the batch commit point, so
// quota counters, redemption records, and voucher digests land together or
// not at all.
func (b *LedgerBatch) StagePut(key []byte, value interface{}) {
	b.puts = append(b.puts, stagedPut{key: append([]byte(nil), key...), value: value})
}

// CheckAndIncrement verifies current + delta fits the cap and stages the new
// total. The returned value is the staged total. On failure nothing is
// staged and the error carries the attempted total and the cap.
func (b *LedgerBatch) CheckAndIncrement(key QuotaKey, delta, cap uint64) (uint64, error) {
	stateKey := string(quotaStateKey(key))
	current, staged := b.pending[stateKey]
	if !staged {
		committed, err := b.ledger.Total(key)
		if err != nil {
			return 0, err
		}
		current = committed
	}
	next, err := nativecommon.CheckQuota(current, delta, cap)
	if err != nil {
		if errors.Is(err, nativecommon.ErrQuotaCapExceeded) {
			return current, &QuotaExceededError{
				Scope:     key.Scope,
				TokenID:   key.TokenID,
				Attempted: current + delta,
				Cap:       cap,
			}
		}
		return current, err
	}
	if !staged {
		b.order = append(b.order, key)
	}
	b.pending[stateKey] = next
	return next, nil
}

// Commit writes every staged counter in the order the keys first appeared,
// then the staged puts in staging order.
func (b *LedgerBatch) Commit() error {
	for _, key := range b.order {
		stateKey := quotaStateKey(key)
		if err := b.ledger.st.KVPut(stateKey, b.pending[string(stateKey)]); err != nil {
			return err
		}
	}
	for _, put := range b.puts {
		if err := b.ledger.st.KVPut(put.key, put.value); err != nil {
			return err
		}
	}
	return nil
}
