// Package domain contains pure ledger types with ZERO infrastructure imports.
// Adapters (CSV, SQLite, HTTP) and the replay engine all speak these types.
package domain

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// ─── Identifiers ────────────────────────────────────────────────────────────

// ClientID identifies a client account.
type ClientID uint16

// TxID identifies an amount-bearing transaction.
type TxID uint32

// AmountPlaces is the number of fractional digits retained for every amount.
const AmountPlaces int32 = 4

// ─── Transaction Kinds ──────────────────────────────────────────────────────

// Kind is the closed set of record types in a transaction log.
type Kind uint8

const (
	KindDeposit Kind = iota + 1
	KindWithdrawal
	KindDispute
	KindResolve
	KindChargeback
)

var kindNames = map[Kind]string{
	KindDeposit:    "deposit",
	KindWithdrawal: "withdrawal",
	KindDispute:    "dispute",
	KindResolve:    "resolve",
	KindChargeback: "chargeback",
}

// String returns the lowercase wire token for the kind.
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// CarriesAmount reports whether records of this kind bring a new amount.
// Deposits and withdrawals do; the dispute family references an earlier tx.
func (k Kind) CarriesAmount() bool {
	return k == KindDeposit || k == KindWithdrawal
}

// ParseKind maps a wire token to a Kind. Matching is case-insensitive and
// ignores surrounding whitespace.
func ParseKind(s string) (Kind, error) {
	token := strings.ToLower(strings.TrimSpace(s))
	for k, name := range kindNames {
		if name == token {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// AllKinds returns every kind in declaration order.
func AllKinds() []Kind {
	return []Kind{KindDeposit, KindWithdrawal, KindDispute, KindResolve, KindChargeback}
}

// ─── Records ────────────────────────────────────────────────────────────────

// Record is one immutable row of the transaction log.
// Amount is only meaningful for deposits and withdrawals.
type Record struct {
	Kind   Kind
	Client ClientID
	Tx     TxID
	Amount decimal.NullDecimal
}

// NewRecord builds a record, normalising a present amount to AmountPlaces
// fractional digits.
func NewRecord(kind Kind, client ClientID, tx TxID, amount *decimal.Decimal) Record {
	rec := Record{Kind: kind, Client: client, Tx: tx}
	if amount != nil && kind.CarriesAmount() {
		rec.Amount = decimal.NewNullDecimal(NormalizeAmount(*amount))
	}
	return rec
}

// Deposit is shorthand for a deposit record.
func Deposit(client ClientID, tx TxID, amount decimal.Decimal) Record {
	return NewRecord(KindDeposit, client, tx, &amount)
}

// Withdrawal is shorthand for a withdrawal record.
func Withdrawal(client ClientID, tx TxID, amount decimal.Decimal) Record {
	return NewRecord(KindWithdrawal, client, tx, &amount)
}

// Dispute is shorthand for a dispute record.
func Dispute(client ClientID, tx TxID) Record {
	return NewRecord(KindDispute, client, tx, nil)
}

// Resolve is shorthand for a resolve record.
func Resolve(client ClientID, tx TxID) Record {
	return NewRecord(KindResolve, client, tx, nil)
}

// Chargeback is shorthand for a chargeback record.
func Chargeback(client ClientID, tx TxID) Record {
	return NewRecord(KindChargeback, client, tx, nil)
}

// NormalizeAmount rounds to AmountPlaces using banker's rounding.
func NormalizeAmount(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(AmountPlaces)
}

// ─── Accounts ───────────────────────────────────────────────────────────────

// Account is the balance state of one client.
// Total always equals Available + Held; Locked never goes back to false.
type Account struct {
	Client    ClientID        `json:"client"`
	Available decimal.Decimal `json:"available"`
	Held      decimal.Decimal `json:"held"`
	Total     decimal.Decimal `json:"total"`
	Locked    bool            `json:"locked"`
}

// NewAccount returns a zero-balance, unlocked account.
func NewAccount(client ClientID) Account {
	return Account{
		Client:    client,
		Available: decimal.Zero,
		Held:      decimal.Zero,
		Total:     decimal.Zero,
	}
}

// Balanced reports whether Total == Available + Held.
func (a Account) Balanced() bool {
	return a.Total.Equal(a.Available.Add(a.Held))
}

// Equal compares two accounts by value.
func (a Account) Equal(b Account) bool {
	return a.Client == b.Client &&
		a.Available.Equal(b.Available) &&
		a.Held.Equal(b.Held) &&
		a.Total.Equal(b.Total) &&
		a.Locked == b.Locked
}

// HistoryEntry remembers a dispute-eligible transaction.
// Amount is fixed at creation; only Disputed changes afterwards.
type HistoryEntry struct {
	Owner    ClientID
	Amount   decimal.Decimal
	Disputed bool
}

// ─── Snapshot ───────────────────────────────────────────────────────────────

// Snapshot is the final account table ordered by client id.
type Snapshot []Account

// NewSnapshot orders a client → account mapping into a Snapshot.
func NewSnapshot(accounts map[ClientID]Account) Snapshot {
	snap := make(Snapshot, 0, len(accounts))
	for _, a := range accounts {
		snap = append(snap, a)
	}
	sort.Slice(snap, func(i, j int) bool { return snap[i].Client < snap[j].Client })
	return snap
}

// Find returns the account for client, if present.
func (s Snapshot) Find(client ClientID) (Account, bool) {
	i := sort.Search(len(s), func(i int) bool { return s[i].Client >= client })
	if i < len(s) && s[i].Client == client {
		return s[i], true
	}
	return Account{}, false
}

// LockedCount returns how many accounts are locked.
func (s Snapshot) LockedCount() int {
	n := 0
	for _, a := range s {
		if a.Locked {
			n++
		}
	}
	return n
}
