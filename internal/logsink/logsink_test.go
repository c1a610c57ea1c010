package logsink

import (
	"log/slog"
	"testing"
	"time"

	"github.com/nugget/smldaq/internal/meter"
)

func TestWritePersistsOneRowPerMeasurement(t *testing.T) {
	s, err := Open(":memory:", slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	snaps := []meter.Snapshot{
		{
			MeterIndex: 0,
			MeterName:  "ehz1",
			Timestamp:  time.Now(),
			Measurements: []meter.Measurement{
				{Label: "power", Value: 123.4, Unit: "W"},
				{Label: "status", Raw: true, RawOctet: []byte{0x01, 0x02}},
			},
		},
	}

	if err := s.Write(snaps); err != nil {
		t.Fatalf("Write: %v", err)
	}

	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM readings`).Scan(&count); err != nil {
		t.Fatalf("count query: %v", err)
	}
	if count != 2 {
		t.Fatalf("row count = %d, want 2", count)
	}
}

func TestWriteEmptyBatchIsNoop(t *testing.T) {
	s, err := Open(":memory:", slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	if err := s.Write(nil); err != nil {
		t.Fatalf("Write(nil): %v", err)
	}
}

func TestNotifyLogsErrorRatherThanPanicking(t *testing.T) {
	s, err := Open(":memory:", slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	s.Close() // force subsequent writes to fail
	s.Notify([]meter.Snapshot{{MeterIndex: 0, Measurements: []meter.Measurement{{Label: "x"}}}})
}
