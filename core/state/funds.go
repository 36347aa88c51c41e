package state

import (
	"fmt"
	"math/big"
)

var fundsBalancePrefix = []byte("funds/balance/")

func fundsBalanceKey(paymentToken, account [20]byte) []byte {
	key := append(append([]byte{}, fundsBalancePrefix...), paymentToken[:]...)
	return append(key, account[:]...)
}

// PaymentLedger settles mint proceeds by crediting account balances per
// payment currency. A zero payment token denotes the native currency.
type PaymentLedger struct {
	m *Manager
}

// NewPaymentLedger creates a payment ledger over the manager's state.
func NewPaymentLedger(m *Manager) *PaymentLedger {
	return &PaymentLedger{m: m}
}

// Transfer credits the recipient. Zero transfers are accepted and ignored so
// callers do not have to special-case empty fee or refund legs.
func (p *PaymentLedger) Transfer(paymentToken, to [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	if amount.Sign() < 0 {
		return fmt.Errorf("funds: transfer amount must not be negative")
	}
	balance, err := p.Balance(paymentToken, to)
	if err != nil {
		return err
	}
	next := new(big.Int).Add(balance, amount)
	return p.m.KVPut(fundsBalanceKey(paymentToken, to), next)
}

// Balance returns the credited balance for an account in a currency.
func (p *PaymentLedger) Balance(paymentToken, account [20]byte) (*big.Int, error) {
	balance := new(big.Int)
	if _, err := p.m.KVGet(fundsBalanceKey(paymentToken, account), balance); err != nil {
		return nil, err
	}
	return balance, nil
}
