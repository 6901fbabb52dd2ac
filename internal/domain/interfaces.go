package domain

// ─── Adapter Interfaces ─────────────────────────────────────────────────────
// Infrastructure implements these; the CLI wires them around the ledger.

// RecordSource yields records one at a time. Next returns io.EOF when the
// source is exhausted.
type RecordSource interface {
	Next() (Record, error)
}

// SnapshotSink receives the final account table of a run.
type SnapshotSink interface {
	WriteSnapshot(snap Snapshot) error
}

// SnapshotWriterFunc adapts a function to SnapshotSink.
type SnapshotWriterFunc func(Snapshot) error

// WriteSnapshot calls f(snap).
func (f SnapshotWriterFunc) WriteSnapshot(snap Snapshot) error { return f(snap) }
