package csvio

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/tutu-network/ledger/internal/domain"
)

// Header is the column layout of the account table.
var Header = []string{"client", "available", "held", "total", "locked"}

// Writer encodes account snapshots as CSV.
type Writer struct {
	w      io.Writer
	places int32
}

// NewWriter creates a Writer that prints decimals with the given number of
// fractional digits.
func NewWriter(w io.Writer, places int32) *Writer {
	if places < 0 {
		places = domain.AmountPlaces
	}
	return &Writer{w: w, places: places}
}

// WriteSnapshot implements domain.SnapshotSink.
func (w *Writer) WriteSnapshot(snap domain.Snapshot) error {
	cw := csv.NewWriter(w.w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, a := range snap {
		row := []string{
			strconv.FormatUint(uint64(a.Client), 10),
			a.Available.StringFixed(w.places),
			a.Held.StringFixed(w.places),
			a.Total.StringFixed(w.places),
			strconv.FormatBool(a.Locked),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write client %d: %w", a.Client, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
