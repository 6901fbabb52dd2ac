package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Only the parsing boundary produces these. The ledger itself never fails.

var (
	// Record errors
	ErrUnknownKind    = errors.New("unknown transaction type")
	ErrMissingField   = errors.New("missing required field")
	ErrInvalidClient  = errors.New("client id must be an unsigned 16-bit integer")
	ErrInvalidTx      = errors.New("tx id must be an unsigned 32-bit integer")
	ErrInvalidAmount  = errors.New("amount is not a valid decimal")
	ErrNegativeAmount = errors.New("amount must not be negative")

	// Stream errors
	ErrBadHeader = errors.New("input header must name type, client and tx columns")
)
