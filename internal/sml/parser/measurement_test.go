package parser

import (
	"testing"

	"github.com/nugget/smldaq/internal/sml/lexer"
)

func TestSmlTimeSecIndex(t *testing.T) {
	ctx := NewContext()
	tm := NewSmlTime()
	toks := []lexer.Token{
		listTok(2),
		uintTok(tagTimeSecIndex),
		listTok(1),
		uintTok(123456),
	}
	if r := feedAll(t, tm, ctx, toks); r != Done {
		t.Fatalf("Feed = %v, want Done", r)
	}
}

func TestSmlTimeOptionalAbsent(t *testing.T) {
	ctx := NewContext()
	tm := NewSmlTimeOptional()
	if r := tm.Feed(ctx, optTok()); r != Done {
		t.Fatalf("Feed = %v, want Done", r)
	}
	if !tm.Absent {
		t.Fatal("expected Absent = true")
	}
	if len(tm.Children()) != 0 {
		t.Fatal("absent SmlTimeOptional should expose no children")
	}
}

func TestSmlTimeOptionalPresent(t *testing.T) {
	ctx := NewContext()
	tm := NewSmlTimeOptional()
	toks := []lexer.Token{
		listTok(2),
		uintTok(tagTimeTimestamp),
		listTok(1),
		uintTok(1700000000),
	}
	if r := feedAll(t, tm, ctx, toks); r != Done {
		t.Fatalf("Feed = %v, want Done", r)
	}
	if tm.Absent {
		t.Fatal("expected Absent = false")
	}
}

func TestSmlListEntry(t *testing.T) {
	ctx := NewContext()
	e := NewSmlListEntry()
	toks := []lexer.Token{
		listTok(7),
		octetTok(1, 0, 1, 8, 0, 255), // objName
		uintTok(0),                  // status
		optTok(),                    // valTime absent
		uintTok(30),                 // unit
		{Type: lexer.SignedInt, Int64: -1}, // scaler
		uintTok(12345), // value
		optTok(),       // valueSignature absent
	}
	if r := feedAll(t, e, ctx, toks); r != Done {
		t.Fatalf("Feed = %v, want Done", r)
	}
	entry := e.(*SmlListEntry)
	if entry.RawValue.Uint64 != 12345 {
		t.Fatalf("RawValue = %v, want 12345", entry.RawValue.Uint64)
	}
	if entry.Scaler.Value != -1 {
		t.Fatalf("Scaler = %v, want -1", entry.Scaler.Value)
	}
}

func TestSmlGetListResponseEmptyList(t *testing.T) {
	ctx := NewContext()
	r := NewSmlGetListResponse()
	toks := []lexer.Token{
		listTok(7),
		octetTok(1), // clientId
		octetTok(2), // serverId
		octetTok(3), // listName
		optTok(),    // actSensorTime absent
		listTok(0),  // valList: zero entries
		optTok(),    // listSignature absent
		optTok(),    // actGatewayTime absent
	}
	if got := feedAll(t, r, ctx, toks); got != Done {
		t.Fatalf("Feed = %v, want Done", got)
	}
	resp := r.(*SmlGetListResponse)
	if len(resp.ValList.Children()) != 0 {
		t.Fatalf("ValList children = %d, want 0", len(resp.ValList.Children()))
	}
}
