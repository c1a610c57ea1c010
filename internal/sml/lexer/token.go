// Package lexer turns the byte stream recognized by escseq into a
// stream of SML tokens: the type-length-value primitives that the
// parser assembles into a parse tree.
package lexer

import "github.com/nugget/smldaq/internal/escseq"

// Type identifies what kind of token was produced.
type Type int

const (
	// StartOfFile marks the ESC-Start sequence that opens an SML file.
	StartOfFile Type = iota
	// EndOfFile marks the ESC-Stop sequence that closes an SML file.
	EndOfFile
	// EndOfMessage marks the 0x00 byte that closes an SML message.
	EndOfMessage
	// Optional marks a present-but-empty grammar slot (TL byte 0x01).
	Optional
	Boolean
	SignedInt
	UnsignedInt
	Octet
	List
	// NotYetDetected means the lexer consumed the byte but has not
	// produced a complete token yet; callers should feed another byte.
	NotYetDetected
	// Error means the byte stream does not match the SML grammar.
	Error
)

// Token is the immutable result of one or more bytes run through the
// lexer. Only the fields relevant to Type are meaningful; callers
// switch on Type before reading Bool/Int64/Uint64/Octet/FileEnd.
type Token struct {
	Type    Type
	Length  int
	Bool    bool
	Int64   int64
	Uint64  uint64
	Octet   []byte
	FileEnd escseq.FileEnd
}

// AsDouble converts a Boolean/SignedInt/UnsignedInt token to a float64,
// mirroring the SML convention that measured values are transmitted as
// the narrowest integer type that fits and scaled by a separate
// exponent carried alongside in the list entry.
func (t Token) AsDouble() float64 {
	switch t.Type {
	case UnsignedInt:
		return float64(t.Uint64)
	case SignedInt:
		return float64(t.Int64)
	case Boolean:
		if t.Bool {
			return 1
		}
		return 0
	default:
		return 0
	}
}
