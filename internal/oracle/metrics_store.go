package oracle

import (
	"sort"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"qroute/internal/qubo"
)

// SolveRecord is the bookkeeping kept for one Minimize call.
type SolveRecord struct {
	SolveID    string           `json:"solveId"`
	Oracle     string           `json:"oracle"`
	Status     Status           `json:"status"`
	Variables  int              `json:"variables"`
	Value      float64          `json:"value"`
	Seed       int64            `json:"seed,omitempty"`
	Elapsed    time.Duration    `json:"elapsedNs"`
	At         time.Time        `json:"at"`
	Violations *qubo.Violations `json:"violations,omitempty"`
	Metrics    *Metrics         `json:"metrics,omitempty"`
}

// MetricsStore keeps recent solve records in memory, keyed by solve id.
type MetricsStore struct {
	records *xsync.MapOf[string, SolveRecord]
	limit   int
}

// NewMetricsStore keeps at most limit records; older ones are evicted first.
func NewMetricsStore(limit int) *MetricsStore {
	if limit <= 0 {
		limit = 256
	}
	return &MetricsStore{records: xsync.NewMapOf[string, SolveRecord](), limit: limit}
}

func (s *MetricsStore) Record(r SolveRecord) {
	if r.At.IsZero() {
		r.At = time.Now().UTC()
	}
	s.records.Store(r.SolveID, r)
	if s.records.Size() > s.limit {
		s.evict()
	}
}

func (s *MetricsStore) Get(solveID string) (SolveRecord, bool) {
	return s.records.Load(solveID)
}

// List returns records newest first, optionally filtered by oracle name.
func (s *MetricsStore) List(oracle string, limit int) []SolveRecord {
	var out []SolveRecord
	s.records.Range(func(_ string, r SolveRecord) bool {
		if oracle == "" || r.Oracle == oracle {
			out = append(out, r)
		}
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].At.After(out[j].At) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (s *MetricsStore) evict() {
	all := s.List("", 0)
	for _, r := range all[min(len(all), s.limit):] {
		s.records.Delete(r.SolveID)
	}
}
