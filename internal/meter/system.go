package meter

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/nugget/smldaq/internal/events"
)

// System owns every configured meter's Reader, indexed by the meter's
// configured position (0..n-1, dense and unique — validated at config
// load, re-checked here defensively since System can be built directly
// in tests). It caches the most recent Snapshot per meter and returns
// a copy of all of them from Sweep; it has no subscribers of its own.
type System struct {
	logger *slog.Logger

	mu       sync.Mutex
	readers  []*Reader
	latest   []Snapshot
	hasValue []bool
}

// NewSystem builds a System from readers, which must be indexed 0..n-1
// with no gaps or duplicates, matching the dense MeterConfig.Index
// contract already enforced by config.Validate.
func NewSystem(logger *slog.Logger, readers []*Reader) (*System, error) {
	byIndex := make(map[uint32]*Reader, len(readers))
	for _, r := range readers {
		if _, dup := byIndex[r.cfg.Index]; dup {
			return nil, fmt.Errorf("meter: duplicate meter index %d", r.cfg.Index)
		}
		byIndex[r.cfg.Index] = r
	}

	indices := make([]uint32, 0, len(byIndex))
	for idx := range byIndex {
		indices = append(indices, idx)
	}
	sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })

	ordered := make([]*Reader, len(byIndex))
	for i, idx := range indices {
		if int(idx) != i {
			return nil, fmt.Errorf("meter: meter indices must be dense starting at 0, found gap at %d", i)
		}
		ordered[i] = byIndex[idx]
	}

	s := &System{
		logger:   logger,
		readers:  ordered,
		latest:   make([]Snapshot, len(ordered)),
		hasValue: make([]bool, len(ordered)),
	}
	for _, r := range ordered {
		r.Subscribe(s)
	}
	return s, nil
}

// Notify implements events.Subscriber[Snapshot]: every Reader in the
// System subscribes s to itself, so this is called once per completed
// telegram from any meter.
func (s *System) Notify(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if int(snap.MeterIndex) >= len(s.latest) {
		s.logger.Warn("snapshot for unknown meter index", "index", snap.MeterIndex)
		return
	}
	s.latest[snap.MeterIndex] = snap
	s.hasValue[snap.MeterIndex] = true
}

// Readers returns the System's Readers in index order, for callers that
// need to register each one with a reactor.Reactor.
func (s *System) Readers() []*Reader {
	return s.readers
}

// Sweep returns a copy of the most recently observed Snapshot for every
// meter that has reported at least once, in index order. Meters that
// have never reported are omitted rather than represented with a zero
// Snapshot.
func (s *System) Sweep() []Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Snapshot, 0, len(s.latest))
	for i, has := range s.hasValue {
		if has {
			out = append(out, s.latest[i])
		}
	}
	return out
}

var _ events.Subscriber[Snapshot] = (*System)(nil)
