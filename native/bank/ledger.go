package bank

import (
	"fmt"
	"math/big"
	"strings"

	cerrs "zusdchain/core/errors"
	"zusdchain/crypto"
)

var (
	ErrNilState           = cerrs.New(cerrs.KindValidation, "bank: state not configured")
	ErrInvalidAmount      = cerrs.New(cerrs.KindValidation, "bank: amount must be positive")
	ErrDenomNotRegistered = cerrs.New(cerrs.KindValidation, "bank: denom not registered")
	ErrDenomExists        = cerrs.New(cerrs.KindValidation, "bank: denom already registered")
	ErrInsufficientFunds  = cerrs.New(cerrs.KindResource, "bank: insufficient funds")
)

// stateKV abstracts the subset of state manager functionality required by the
// token ledger.
type stateKV interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
}

var (
	denomPrefix   = []byte("bank/denom/")
	balancePrefix = []byte("bank/balance/")
)

type storedDenom struct {
	Name     string
	Decimals uint8
}

type storedBalance struct {
	Amount *big.Int
}

// Denom describes a registered token denomination.
type Denom struct {
	Name     string
	Decimals uint8
}

// Ledger implements the atomic transfer/mint/burn primitives the vault engine
// depends on. Balances are keyed by (owner, denom), so every movement is
// structurally bound to both the account owner and the token denomination; a
// caller cannot redirect one denom's funds through another denom's account.
type Ledger struct {
	state stateKV
}

// NewLedger constructs a ledger bound to the provided storage backend.
func NewLedger(state stateKV) *Ledger {
	return &Ledger{state: state}
}

func denomKey(name string) []byte {
	return append(append([]byte(nil), denomPrefix...), []byte(name)...)
}

func balanceKey(denom string, addr crypto.Address) []byte {
	return []byte(fmt.Sprintf("%s%s/%s/%x", balancePrefix, denom, addr.Prefix(), addr.Bytes()))
}

func normalizeDenom(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// RegisterDenom records a denomination and its base-unit precision.
func (l *Ledger) RegisterDenom(name string, decimals uint8) error {
	if l == nil || l.state == nil {
		return ErrNilState
	}
	name = normalizeDenom(name)
	if name == "" {
		return cerrs.New(cerrs.KindValidation, "bank: denom name required")
	}
	exists, err := l.state.KVGet(denomKey(name), nil)
	if err != nil {
		return err
	}
	if exists {
		return ErrDenomExists
	}
	return l.state.KVPut(denomKey(name), &storedDenom{Name: name, Decimals: decimals})
}

// DenomDecimals resolves the registered precision for a denom.
func (l *Ledger) DenomDecimals(name string) (uint8, error) {
	if l == nil || l.state == nil {
		return 0, ErrNilState
	}
	var stored storedDenom
	found, err := l.state.KVGet(denomKey(normalizeDenom(name)), &stored)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, ErrDenomNotRegistered
	}
	return stored.Decimals, nil
}

// Balance reports the current holdings of addr in denom.
func (l *Ledger) Balance(denom string, addr crypto.Address) (*big.Int, error) {
	if l == nil || l.state == nil {
		return nil, ErrNilState
	}
	denom = normalizeDenom(denom)
	if err := l.requireDenom(denom); err != nil {
		return nil, err
	}
	var stored storedBalance
	found, err := l.state.KVGet(balanceKey(denom, addr), &stored)
	if err != nil {
		return nil, err
	}
	if !found || stored.Amount == nil {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(stored.Amount), nil
}

// Transfer moves amount of denom from one account to another atomically with
// respect to the surrounding operation.
func (l *Ledger) Transfer(denom string, from, to crypto.Address, amount *big.Int) error {
	if l == nil || l.state == nil {
		return ErrNilState
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	denom = normalizeDenom(denom)
	if err := l.requireDenom(denom); err != nil {
		return err
	}
	fromBal, err := l.Balance(denom, from)
	if err != nil {
		return err
	}
	if fromBal.Cmp(amount) < 0 {
		return ErrInsufficientFunds
	}
	toBal, err := l.Balance(denom, to)
	if err != nil {
		return err
	}
	if err := l.putBalance(denom, from, new(big.Int).Sub(fromBal, amount)); err != nil {
		return err
	}
	return l.putBalance(denom, to, new(big.Int).Add(toBal, amount))
}

// Mint credits freshly issued denom units to an account.
func (l *Ledger) Mint(denom string, to crypto.Address, amount *big.Int) error {
	if l == nil || l.state == nil {
		return ErrNilState
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	denom = normalizeDenom(denom)
	if err := l.requireDenom(denom); err != nil {
		return err
	}
	bal, err := l.Balance(denom, to)
	if err != nil {
		return err
	}
	return l.putBalance(denom, to, new(big.Int).Add(bal, amount))
}

// Burn destroys denom units held by an account.
func (l *Ledger) Burn(denom string, from crypto.Address, amount *big.Int) error {
	if l == nil || l.state == nil {
		return ErrNilState
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	denom = normalizeDenom(denom)
	if err := l.requireDenom(denom); err != nil {
		return err
	}
	bal, err := l.Balance(denom, from)
	if err != nil {
		return err
	}
	if bal.Cmp(amount) < 0 {
		return ErrInsufficientFunds
	}
	return l.putBalance(denom, from, new(big.Int).Sub(bal, amount))
}

func (l *Ledger) requireDenom(denom string) error {
	found, err := l.state.KVGet(denomKey(denom), nil)
	if err != nil {
		return err
	}
	if !found {
		return ErrDenomNotRegistered
	}
	return nil
}

func (l *Ledger) putBalance(denom string, addr crypto.Address, amount *big.Int) error {
	return l.state.KVPut(balanceKey(denom, addr), &storedBalance{Amount: amount})
}
