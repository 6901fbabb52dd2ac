// Package csvio reads transaction logs from delimited text and writes the
// final account table back out.
//
// Input rows look like:
//
//	type,       client, tx, amount
//	deposit,         1,  1,    1.0
//	dispute,         1,  1,
//
// Columns are matched by header name, so their order is free and the
// amount column may be missing entirely. Whitespace around every field is
// ignored.
package csvio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"iter"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tutu-network/ledger/internal/domain"
)

// RecordError reports a malformed input row.
type RecordError struct {
	Line int
	Err  error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *RecordError) Unwrap() error { return e.Err }

// ReaderOption configures a Reader.
type ReaderOption func(*Reader)

// WithStrict makes Records stop at the first malformed row instead of
// skipping it.
func WithStrict(strict bool) ReaderOption {
	return func(r *Reader) { r.strict = strict }
}

// WithLogger sets the logger used to report skipped rows.
func WithLogger(log *zap.Logger) ReaderOption {
	return func(r *Reader) {
		if log != nil {
			r.log = log
		}
	}
}

// WithMalformedHook registers a callback invoked for every malformed row.
func WithMalformedHook(fn func(*RecordError)) ReaderOption {
	return func(r *Reader) { r.onMalformed = fn }
}

// Reader decodes records from CSV input.
type Reader struct {
	csv         *csv.Reader
	cols        columns
	headerRead  bool
	strict      bool
	log         *zap.Logger
	onMalformed func(*RecordError)

	skipped int
	err     error
}

type columns struct {
	kind, client, tx, amount int
}

// NewReader creates a Reader over r.
func NewReader(r io.Reader, opts ...ReaderOption) *Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // dispute rows often omit the trailing amount
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	rd := &Reader{
		csv:  cr,
		cols: columns{kind: -1, client: -1, tx: -1, amount: -1},
		log:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(rd)
	}
	return rd
}

// Next returns the next record. It returns io.EOF at the end of input and a
// *RecordError for a row that cannot be decoded; reading may continue after
// a *RecordError.
func (r *Reader) Next() (domain.Record, error) {
	if !r.headerRead {
		if err := r.readHeader(); err != nil {
			return domain.Record{}, err
		}
	}

	row, err := r.csv.Read()
	if err != nil {
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			return domain.Record{}, &RecordError{Line: perr.Line, Err: err}
		}
		return domain.Record{}, err
	}
	line, _ := r.csv.FieldPos(0)

	rec, err := r.decode(row)
	if err != nil {
		return domain.Record{}, &RecordError{Line: line, Err: err}
	}
	return rec, nil
}

// Records yields every decodable record. Malformed rows are logged and
// skipped, or end the sequence in strict mode; Err reports why a sequence
// ended early.
func (r *Reader) Records() iter.Seq[domain.Record] {
	return func(yield func(domain.Record) bool) {
		for {
			rec, err := r.Next()
			if err == io.EOF {
				return
			}
			if err != nil {
				var rerr *RecordError
				if !errors.As(err, &rerr) {
					r.err = err
					return
				}
				r.skipped++
				if r.onMalformed != nil {
					r.onMalformed(rerr)
				}
				if r.strict {
					r.err = err
					return
				}
				r.log.Warn("skipping malformed row", zap.Int("line", rerr.Line), zap.Error(rerr.Err))
				continue
			}
			if !yield(rec) {
				return
			}
		}
	}
}

// Err returns the error that ended Records, if any.
func (r *Reader) Err() error { return r.err }

// Skipped returns how many malformed rows were seen by Records.
func (r *Reader) Skipped() int { return r.skipped }

func (r *Reader) readHeader() error {
	r.headerRead = true
	row, err := r.csv.Read()
	if err == io.EOF {
		return io.EOF
	}
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}

	for i, name := range row {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "type":
			r.cols.kind = i
		case "client":
			r.cols.client = i
		case "tx":
			r.cols.tx = i
		case "amount":
			r.cols.amount = i
		}
	}
	if r.cols.kind < 0 || r.cols.client < 0 || r.cols.tx < 0 {
		return fmt.Errorf("%w: got %q", domain.ErrBadHeader, strings.Join(row, ","))
	}
	return nil
}

func (r *Reader) decode(row []string) (domain.Record, error) {
	kindStr, ok := field(row, r.cols.kind)
	if !ok {
		return domain.Record{}, fmt.Errorf("%w: type", domain.ErrMissingField)
	}
	kind, err := domain.ParseKind(kindStr)
	if err != nil {
		return domain.Record{}, err
	}

	clientStr, ok := field(row, r.cols.client)
	if !ok {
		return domain.Record{}, fmt.Errorf("%w: client", domain.ErrMissingField)
	}
	client, err := strconv.ParseUint(clientStr, 10, 16)
	if err != nil {
		return domain.Record{}, fmt.Errorf("%w: %q", domain.ErrInvalidClient, clientStr)
	}

	txStr, ok := field(row, r.cols.tx)
	if !ok {
		return domain.Record{}, fmt.Errorf("%w: tx", domain.ErrMissingField)
	}
	tx, err := strconv.ParseUint(txStr, 10, 32)
	if err != nil {
		return domain.Record{}, fmt.Errorf("%w: %q", domain.ErrInvalidTx, txStr)
	}

	// The dispute family never reads the amount column.
	var amount *decimal.Decimal
	if amountStr, ok := field(row, r.cols.amount); ok && kind.CarriesAmount() {
		d, err := parseAmount(amountStr)
		if err != nil {
			return domain.Record{}, err
		}
		amount = &d
	}

	return domain.NewRecord(kind, domain.ClientID(client), domain.TxID(tx), amount), nil
}

// plainAmount is the only accepted amount form: no exponents, no thousands
// separators.
var plainAmount = regexp.MustCompile(`^[+-]?\d+(\.\d+)?$`)

// maxAmountLen bounds a cell well above the 29 integer digits a balance can
// hold plus any sensible fraction.
const maxAmountLen = 64

func parseAmount(s string) (decimal.Decimal, error) {
	if len(s) > maxAmountLen || !plainAmount.MatchString(s) {
		return decimal.Decimal{}, fmt.Errorf("%w: %q", domain.ErrInvalidAmount, s)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %q", domain.ErrInvalidAmount, s)
	}
	if d.IsNegative() {
		return decimal.Decimal{}, fmt.Errorf("%w: %q", domain.ErrNegativeAmount, s)
	}
	return d, nil
}

// field returns the trimmed value at idx; empty or absent cells report false.
func field(row []string, idx int) (string, bool) {
	if idx < 0 || idx >= len(row) {
		return "", false
	}
	v := strings.TrimSpace(row[idx])
	return v, v != ""
}
