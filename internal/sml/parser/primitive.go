package parser

import "github.com/nugget/smldaq/internal/sml/lexer"

// Octet matches a single OCTET token, or an OPTIONAL token when the
// grammar slot allows it to be absent.
type Octet struct {
	done   bool
	Value  []byte
	Absent bool
}

func (o *Octet) Feed(ctx *Context, tok lexer.Token) FeedResult {
	if o.done {
		return Error
	}
	switch tok.Type {
	case lexer.Optional:
		o.Absent = true
		o.done = true
		return Done
	case lexer.Octet:
		o.Value = tok.Octet
		o.done = true
		return Done
	default:
		return Error
	}
}

// Unsigned matches a single UNSIGNED_INTEGER token, or OPTIONAL.
type Unsigned struct {
	done   bool
	Value  uint64
	Absent bool
}

func (u *Unsigned) Feed(ctx *Context, tok lexer.Token) FeedResult {
	if u.done {
		return Error
	}
	switch tok.Type {
	case lexer.Optional:
		u.Absent = true
		u.done = true
		return Done
	case lexer.UnsignedInt:
		u.Value = tok.Uint64
		u.done = true
		return Done
	default:
		return Error
	}
}

// Signed matches a single SIGNED_INTEGER token, or OPTIONAL.
type Signed struct {
	done   bool
	Value  int64
	Absent bool
}

func (s *Signed) Feed(ctx *Context, tok lexer.Token) FeedResult {
	if s.done {
		return Error
	}
	switch tok.Type {
	case lexer.Optional:
		s.Absent = true
		s.done = true
		return Done
	case lexer.SignedInt:
		s.Value = tok.Int64
		s.done = true
		return Done
	default:
		return Error
	}
}

// Boolean matches a single BOOLEAN token, or OPTIONAL.
type Boolean struct {
	done   bool
	Value  bool
	Absent bool
}

func (b *Boolean) Feed(ctx *Context, tok lexer.Token) FeedResult {
	if b.done {
		return Error
	}
	switch tok.Type {
	case lexer.Optional:
		b.Absent = true
		b.done = true
		return Done
	case lexer.Boolean:
		b.Value = tok.Bool
		b.done = true
		return Done
	default:
		return Error
	}
}

// listPrefix matches a single LIST token, the token type used both as
// a Sequence's fixed arity announcement and as a SequenceOf's dynamic
// arity announcement.
type listPrefix struct {
	done   bool
	Length int
}

func (l *listPrefix) Feed(ctx *Context, tok lexer.Token) FeedResult {
	if tok.Type != lexer.List {
		return Error
	}
	l.Length = tok.Length
	l.done = true
	return Done
}

// Value matches whatever primitive token type the SML measurement
// value turns out to be: SmlListEntry declares its "value" field
// generically because different OBIS entries carry different
// encodings (octet status strings vs. scaled integers vs. booleans).
type Value struct {
	done   bool
	Type   lexer.Type
	Uint64 uint64
	Int64  int64
	Octet  []byte
	Bool   bool
}

func (v *Value) Feed(ctx *Context, tok lexer.Token) FeedResult {
	if v.done {
		return Error
	}
	switch tok.Type {
	case lexer.Optional, lexer.UnsignedInt, lexer.SignedInt, lexer.Octet, lexer.Boolean:
		v.Type = tok.Type
		v.Uint64 = tok.Uint64
		v.Int64 = tok.Int64
		v.Octet = tok.Octet
		v.Bool = tok.Bool
		v.done = true
		return Done
	default:
		return Error
	}
}

// AsDouble returns the value as a float64 for number-typed OBIS
// entries, 0 for anything else (string/absent entries are read via
// Octet/done instead).
func (v *Value) AsDouble() float64 {
	switch v.Type {
	case lexer.UnsignedInt:
		return float64(v.Uint64)
	case lexer.SignedInt:
		return float64(v.Int64)
	case lexer.Boolean:
		if v.Bool {
			return 1
		}
		return 0
	default:
		return 0
	}
}
