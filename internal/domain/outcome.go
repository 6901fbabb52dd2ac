package domain

// ─── Replay Outcomes ────────────────────────────────────────────────────────
// Business-rule rejections are never errors. The outcome of a record exists
// only so callers can count and log what the ledger silently dropped.

// RejectReason says why a record left the ledger unchanged.
type RejectReason string

const (
	RejectNone              RejectReason = ""
	RejectUnknownKind       RejectReason = "unknown_kind"
	RejectLocked            RejectReason = "locked"
	RejectMissingAmount     RejectReason = "missing_amount"
	RejectNegativeAmount    RejectReason = "negative_amount"
	RejectInsufficientFunds RejectReason = "insufficient_funds"
	RejectUnknownTx         RejectReason = "unknown_tx"
	RejectForeignTx         RejectReason = "foreign_tx"
	RejectAlreadyDisputed   RejectReason = "already_disputed"
	RejectNotDisputed       RejectReason = "not_disputed"
)

// Outcome is the result of applying one record.
type Outcome struct {
	Reason RejectReason
}

// Applied is the outcome of a record that changed ledger state.
var Applied = Outcome{}

// Rejected builds an outcome for a dropped record.
func Rejected(reason RejectReason) Outcome {
	return Outcome{Reason: reason}
}

// OK reports whether the record was applied.
func (o Outcome) OK() bool { return o.Reason == RejectNone }

// Label returns "applied" or the rejection reason, for metrics labels.
func (o Outcome) Label() string {
	if o.OK() {
		return "applied"
	}
	return string(o.Reason)
}
