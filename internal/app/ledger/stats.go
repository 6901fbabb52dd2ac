package ledger

import "github.com/tutu-network/ledger/internal/domain"

// Stats summarises one replay.
type Stats struct {
	Records        int64                         `json:"records"`
	Applied        int64                         `json:"applied"`
	Rejected       map[domain.RejectReason]int64 `json:"rejected"`
	ByKind         [6]int64                      `json:"-"`
	Accounts       int                           `json:"accounts"`
	HistoryEntries int                           `json:"history_entries"`
}

func (s *Stats) record(kind domain.Kind, outcome domain.Outcome) {
	s.Records++
	if int(kind) < len(s.ByKind) {
		s.ByKind[kind]++
	}
	if outcome.OK() {
		s.Applied++
		return
	}
	if s.Rejected == nil {
		s.Rejected = make(map[domain.RejectReason]int64)
	}
	s.Rejected[outcome.Reason]++
}

// RejectedTotal returns the number of records that changed nothing.
func (s Stats) RejectedTotal() int64 {
	return s.Records - s.Applied
}

// Kind returns how many records of kind were seen.
func (s Stats) Kind(kind domain.Kind) int64 {
	if int(kind) >= len(s.ByKind) {
		return 0
	}
	return s.ByKind[kind]
}

func copyCounts(in map[domain.RejectReason]int64) map[domain.RejectReason]int64 {
	out := make(map[domain.RejectReason]int64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
