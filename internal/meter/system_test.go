package meter

import (
	"log/slog"
	"testing"
	"time"

	"github.com/nugget/smldaq/internal/config"
)

func newTestReader(t *testing.T, index uint32) *Reader {
	t.Helper()
	port, _ := newPipePort()
	cfg := config.MeterConfig{Index: index, Name: "ehz"}
	return NewReader(slog.New(slog.DiscardHandler), cfg, port)
}

func TestNewSystemRejectsGap(t *testing.T) {
	readers := []*Reader{newTestReader(t, 0), newTestReader(t, 2)}
	if _, err := NewSystem(slog.New(slog.DiscardHandler), readers); err == nil {
		t.Fatal("expected error for non-dense meter indices")
	}
}

func TestNewSystemRejectsDuplicate(t *testing.T) {
	readers := []*Reader{newTestReader(t, 0), newTestReader(t, 0)}
	if _, err := NewSystem(slog.New(slog.DiscardHandler), readers); err == nil {
		t.Fatal("expected error for duplicate meter index")
	}
}

func TestSystemSweepReflectsLatestNotify(t *testing.T) {
	r0 := newTestReader(t, 0)
	r1 := newTestReader(t, 1)
	s, err := NewSystem(slog.New(slog.DiscardHandler), []*Reader{r0, r1})
	if err != nil {
		t.Fatalf("NewSystem: %v", err)
	}

	if got := s.Sweep(); len(got) != 0 {
		t.Fatalf("Sweep before any notify = %d entries, want 0", len(got))
	}

	s.Notify(Snapshot{MeterIndex: 1, MeterName: "ehz", Timestamp: time.Now()})
	got := s.Sweep()
	if len(got) != 1 || got[0].MeterIndex != 1 {
		t.Fatalf("Sweep = %+v, want one entry for meter 1", got)
	}
}

func TestSystemNotifyIgnoresUnknownIndex(t *testing.T) {
	r0 := newTestReader(t, 0)
	s, err := NewSystem(slog.New(slog.DiscardHandler), []*Reader{r0})
	if err != nil {
		t.Fatalf("NewSystem: %v", err)
	}
	s.Notify(Snapshot{MeterIndex: 99})
	if got := s.Sweep(); len(got) != 0 {
		t.Fatalf("Sweep = %d entries, want 0", len(got))
	}
}
