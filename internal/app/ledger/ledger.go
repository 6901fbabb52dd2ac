// Package ledger replays a transaction log into per-client account state.
//
// The ledger:
//  1. Resolves (or lazily creates) the client's account
//  2. Drops every record for a locked account
//  3. Dispatches on the record kind and applies the balance transition
//  4. Reports the outcome to an optional observer
//
// Business-rule violations (insufficient funds, unknown or foreign tx,
// wrong dispute state) are silent no-ops; nothing in this package returns
// an error. A Ledger is single-pass and not safe for concurrent use.
package ledger

import (
	"iter"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tutu-network/ledger/internal/domain"
)

// Observer receives the outcome of every applied or rejected record.
type Observer interface {
	Observe(rec domain.Record, outcome domain.Outcome)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(domain.Record, domain.Outcome)

// Observe calls f(rec, outcome).
func (f ObserverFunc) Observe(rec domain.Record, outcome domain.Outcome) { f(rec, outcome) }

// Option configures a Ledger.
type Option func(*Ledger)

// WithObserver registers an observer for record outcomes.
func WithObserver(o Observer) Option {
	return func(l *Ledger) { l.observer = o }
}

// WithLogger sets the logger used for debug traces of rejected records.
func WithLogger(log *zap.Logger) Option {
	return func(l *Ledger) {
		if log != nil {
			l.log = log
		}
	}
}

// Ledger owns the account table and the dispute history of one run.
type Ledger struct {
	accounts map[domain.ClientID]*domain.Account
	history  map[domain.TxID]*domain.HistoryEntry
	observer Observer
	log      *zap.Logger
	stats    Stats
}

// New creates an empty ledger.
func New(opts ...Option) *Ledger {
	l := &Ledger{
		accounts: make(map[domain.ClientID]*domain.Account),
		history:  make(map[domain.TxID]*domain.HistoryEntry),
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Process replays records in order and returns the final account of every
// client referenced, including clients whose balances ended at zero.
func Process(records []domain.Record, opts ...Option) map[domain.ClientID]domain.Account {
	l := New(opts...)
	for _, rec := range records {
		l.Apply(rec)
	}
	return l.Accounts()
}

// ProcessSeq replays a record stream and returns the ledger so callers can
// take a snapshot and read statistics.
func ProcessSeq(seq iter.Seq[domain.Record], opts ...Option) *Ledger {
	l := New(opts...)
	for rec := range seq {
		l.Apply(rec)
	}
	return l
}

// Apply runs one record through the state machine.
func (l *Ledger) Apply(rec domain.Record) domain.Outcome {
	acct := l.account(rec.Client)

	var outcome domain.Outcome
	if acct.Locked {
		outcome = domain.Rejected(domain.RejectLocked)
	} else {
		switch rec.Kind {
		case domain.KindDeposit:
			outcome = l.deposit(acct, rec)
		case domain.KindWithdrawal:
			outcome = l.withdraw(acct, rec)
		case domain.KindDispute:
			outcome = l.dispute(acct, rec)
		case domain.KindResolve:
			outcome = l.resolve(acct, rec)
		case domain.KindChargeback:
			outcome = l.chargeback(acct, rec)
		default:
			outcome = domain.Rejected(domain.RejectUnknownKind)
		}
	}

	l.stats.record(rec.Kind, outcome)
	if !outcome.OK() {
		l.log.Debug("record rejected",
			zap.Uint16("client", uint16(rec.Client)),
			zap.Uint32("tx", uint32(rec.Tx)),
			zap.Stringer("kind", rec.Kind),
			zap.String("reason", string(outcome.Reason)),
		)
	}
	if l.observer != nil {
		l.observer.Observe(rec, outcome)
	}
	return outcome
}

// account returns the live account for client, creating it on first use.
func (l *Ledger) account(client domain.ClientID) *domain.Account {
	acct, ok := l.accounts[client]
	if !ok {
		a := domain.NewAccount(client)
		acct = &a
		l.accounts[client] = acct
	}
	return acct
}

// ─── Transitions ────────────────────────────────────────────────────────────

func (l *Ledger) deposit(acct *domain.Account, rec domain.Record) domain.Outcome {
	amount, reject := amountOf(rec)
	if reject != domain.RejectNone {
		return domain.Rejected(reject)
	}

	acct.Available = saturatingAdd(acct.Available, amount)
	acct.Total = saturatingAdd(acct.Total, amount)
	l.remember(rec.Client, rec.Tx, amount)
	return domain.Applied
}

func (l *Ledger) withdraw(acct *domain.Account, rec domain.Record) domain.Outcome {
	amount, reject := amountOf(rec)
	if reject != domain.RejectNone {
		return domain.Rejected(reject)
	}
	if acct.Available.LessThan(amount) {
		return domain.Rejected(domain.RejectInsufficientFunds)
	}

	acct.Available = saturatingSub(acct.Available, amount)
	acct.Total = saturatingSub(acct.Total, amount)
	// Withdrawals are disputable too and use the same entry shape.
	l.remember(rec.Client, rec.Tx, amount)
	return domain.Applied
}

func (l *Ledger) dispute(acct *domain.Account, rec domain.Record) domain.Outcome {
	entry, reject := l.lookup(rec)
	if reject != domain.RejectNone {
		return domain.Rejected(reject)
	}
	if entry.Disputed {
		return domain.Rejected(domain.RejectAlreadyDisputed)
	}

	acct.Available = saturatingSub(acct.Available, entry.Amount)
	acct.Held = saturatingAdd(acct.Held, entry.Amount)
	entry.Disputed = true
	return domain.Applied
}

func (l *Ledger) resolve(acct *domain.Account, rec domain.Record) domain.Outcome {
	entry, reject := l.lookup(rec)
	if reject != domain.RejectNone {
		return domain.Rejected(reject)
	}
	if !entry.Disputed {
		return domain.Rejected(domain.RejectNotDisputed)
	}

	acct.Available = saturatingAdd(acct.Available, entry.Amount)
	acct.Held = saturatingSub(acct.Held, entry.Amount)
	entry.Disputed = false
	return domain.Applied
}

func (l *Ledger) chargeback(acct *domain.Account, rec domain.Record) domain.Outcome {
	entry, reject := l.lookup(rec)
	if reject != domain.RejectNone {
		return domain.Rejected(reject)
	}
	if !entry.Disputed {
		return domain.Rejected(domain.RejectNotDisputed)
	}

	acct.Held = saturatingSub(acct.Held, entry.Amount)
	acct.Total = saturatingSub(acct.Total, entry.Amount)
	acct.Locked = true
	return domain.Applied
}

// remember records a dispute-eligible transaction. A reused tx id replaces
// the earlier entry.
func (l *Ledger) remember(client domain.ClientID, tx domain.TxID, amount decimal.Decimal) {
	l.history[tx] = &domain.HistoryEntry{Owner: client, Amount: amount}
}

// lookup finds the history entry a dispute-family record refers to.
func (l *Ledger) lookup(rec domain.Record) (*domain.HistoryEntry, domain.RejectReason) {
	entry, ok := l.history[rec.Tx]
	if !ok {
		return nil, domain.RejectUnknownTx
	}
	if entry.Owner != rec.Client {
		return nil, domain.RejectForeignTx
	}
	return entry, domain.RejectNone
}

// amountOf extracts the amount of a deposit or withdrawal.
func amountOf(rec domain.Record) (decimal.Decimal, domain.RejectReason) {
	if !rec.Amount.Valid {
		return decimal.Zero, domain.RejectMissingAmount
	}
	if rec.Amount.Decimal.IsNegative() {
		return decimal.Zero, domain.RejectNegativeAmount
	}
	return rec.Amount.Decimal, domain.RejectNone
}

// ─── Queries ────────────────────────────────────────────────────────────────

// Account returns a copy of the client's account.
func (l *Ledger) Account(client domain.ClientID) (domain.Account, bool) {
	acct, ok := l.accounts[client]
	if !ok {
		return domain.Account{}, false
	}
	return *acct, true
}

// Accounts returns value copies of every account.
func (l *Ledger) Accounts() map[domain.ClientID]domain.Account {
	out := make(map[domain.ClientID]domain.Account, len(l.accounts))
	for id, acct := range l.accounts {
		out[id] = *acct
	}
	return out
}

// Snapshot returns the account table ordered by client id.
func (l *Ledger) Snapshot() domain.Snapshot {
	return domain.NewSnapshot(l.Accounts())
}

// History returns a copy of the history entry for tx.
func (l *Ledger) History(tx domain.TxID) (domain.HistoryEntry, bool) {
	entry, ok := l.history[tx]
	if !ok {
		return domain.HistoryEntry{}, false
	}
	return *entry, true
}

// Stats returns replay counters.
func (l *Ledger) Stats() Stats {
	s := l.stats
	s.Accounts = len(l.accounts)
	s.HistoryEntries = len(l.history)
	s.Rejected = copyCounts(l.stats.Rejected)
	return s
}
