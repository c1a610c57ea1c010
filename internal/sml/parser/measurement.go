package parser

import "github.com/nugget/smldaq/internal/sml/lexer"

const (
	tagTimeSecIndex  = 0x01
	tagTimeTimestamp = 0x02
)

// secIndexOrTimestamp is the single-field body of either SmlTime
// variant: a running seconds counter for SecIndex, a Unix timestamp
// for Timestamp. Both are encoded identically on the wire.
type secIndexOrTimestamp struct {
	*Sequence
	Value *Unsigned
}

func newSecIndexOrTimestamp() Node {
	t := &secIndexOrTimestamp{Value: &Unsigned{}}
	t.Sequence = NewSequence(false, t.Value)
	return t
}

// SmlTime is the Choice of SecIndex/Timestamp time encodings used
// throughout the measurement list.
type SmlTime struct {
	*Choice
}

// NewSmlTime returns an SmlTime ready to dispatch on its type tag.
func NewSmlTime() *SmlTime {
	factory := map[uint64]func() Node{
		tagTimeSecIndex:  newSecIndexOrTimestamp,
		tagTimeTimestamp: newSecIndexOrTimestamp,
	}
	return &SmlTime{Choice: NewChoice(factory, nil)}
}

// SmlTimeOptional wraps SmlTime for the common case where the grammar
// allows the timestamp field to be entirely absent rather than a
// present-but-empty Choice.
type SmlTimeOptional struct {
	started bool
	done    bool
	Absent  bool
	inner   *SmlTime
}

// NewSmlTimeOptional returns an SmlTimeOptional ready to be fed
// tokens.
func NewSmlTimeOptional() *SmlTimeOptional {
	return &SmlTimeOptional{inner: NewSmlTime()}
}

func (s *SmlTimeOptional) Feed(ctx *Context, tok lexer.Token) FeedResult {
	if s.done {
		return Error
	}
	if !s.started {
		s.started = true
		if tok.Type == lexer.Optional {
			s.Absent = true
			s.done = true
			return Done
		}
	}
	r := s.inner.Feed(ctx, tok)
	if r == Done {
		s.done = true
	}
	return r
}

// Children exposes the inner SmlTime for tree traversal, or nothing
// when the field was absent.
func (s *SmlTimeOptional) Children() []Node {
	if s.Absent {
		return nil
	}
	return []Node{s.inner}
}

// SmlListEntry is one measured value in a GetListResponse's valList:
// an OBIS object name, a status word, an optional capture time, a
// physical unit code, a decimal scaler and the raw value itself.
type SmlListEntry struct {
	*Sequence
	ObjName        *Octet
	Status         *Value
	ValTime        *SmlTimeOptional
	Unit           *Unsigned
	Scaler         *Signed
	RawValue       *Value
	ValueSignature *Octet
}

// NewSmlListEntry returns an SmlListEntry ready to be fed tokens. It
// is exposed as a Node-returning constructor so it can be used
// directly as a SequenceOf element factory.
func NewSmlListEntry() Node {
	e := &SmlListEntry{
		ObjName:        &Octet{},
		Status:         &Value{},
		ValTime:        NewSmlTimeOptional(),
		Unit:           &Unsigned{},
		Scaler:         &Signed{},
		RawValue:       &Value{},
		ValueSignature: &Octet{},
	}
	e.Sequence = NewSequence(false,
		e.ObjName, e.Status, e.ValTime, e.Unit, e.Scaler, e.RawValue, e.ValueSignature)
	return e
}

// SmlGetListResponse is the message body carrying a meter's list of
// measured OBIS values, the only message type smldaq extracts
// measurements from.
type SmlGetListResponse struct {
	*Sequence
	ClientID       *Octet
	ServerID       *Octet
	ListName       *Octet
	ActSensorTime  *SmlTimeOptional
	ValList        *SequenceOf
	ListSignature  *Octet
	ActGatewayTime *SmlTimeOptional
}

// NewSmlGetListResponse returns an SmlGetListResponse ready to be fed
// tokens.
func NewSmlGetListResponse() Node {
	r := &SmlGetListResponse{
		ClientID:       &Octet{},
		ServerID:       &Octet{},
		ListName:       &Octet{},
		ActSensorTime:  NewSmlTimeOptional(),
		ValList:        NewSequenceOf(NewSmlListEntry),
		ListSignature:  &Octet{},
		ActGatewayTime: NewSmlTimeOptional(),
	}
	r.Sequence = NewSequence(false,
		r.ClientID, r.ServerID, r.ListName, r.ActSensorTime, r.ValList, r.ListSignature, r.ActGatewayTime)
	return r
}
