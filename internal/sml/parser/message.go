package parser

import "github.com/nugget/smldaq/internal/sml/lexer"

// Message body type tags, as carried in the SmlChoice tag field of a
// SmlMessageBody. EDL21 meters are only required to emit these three;
// anything else falls through to MessageBodyAny.
const (
	tagPublicOpenResponse  = 0x0101
	tagPublicCloseResponse = 0x0201
	tagGetListResponse     = 0x0701
)

// MessageBodyAny swallows every token of an unrecognized message body
// up to its End-of-message marker, then tells the enclosing SmlMessage
// to skip its own crc16 and end-of-message fields: a message body we
// don't know how to parse structurally also means we don't know where
// its real end-of-message boundary inside the body ends and the
// SmlMessage's own trailing fields begin, so treat the body's own
// End-of-message token as the whole message's end. Since the
// message's EndOfSmlMessage is skipped, this token also arms the
// message-level CRC for whatever message follows.
type MessageBodyAny struct {
	done bool
}

func (m *MessageBodyAny) Feed(ctx *Context, tok lexer.Token) FeedResult {
	if tok.Type == lexer.EndOfMessage {
		ctx.IgnoreRestOfSequence = true
		ctx.MessageCRC.Start()
		m.done = true
		return Done
	}
	return Processing
}

// SmlMessageBody is the Choice of known message body types, with
// MessageBodyAny registered as the unknown-tag fallback. On a
// successful, non-ignored match it stops the message-level CRC: the
// next byte on the wire is the message's crc16 field itself, which
// must not be folded into the checksum it is verifying.
type SmlMessageBody struct {
	*Choice
}

// NewSmlMessageBody returns a SmlMessageBody ready to dispatch on the
// known EDL21 message type tags.
func NewSmlMessageBody() *SmlMessageBody {
	factory := map[uint64]func() Node{
		tagPublicOpenResponse:  func() Node { return NewSmlPublicOpenResponse() },
		tagPublicCloseResponse: func() Node { return NewSmlPublicCloseResponse() },
		tagGetListResponse:     func() Node { return NewSmlGetListResponse() },
	}
	return &SmlMessageBody{Choice: NewChoice(factory, func() Node { return &MessageBodyAny{} })}
}

func (m *SmlMessageBody) Feed(ctx *Context, tok lexer.Token) FeedResult {
	r := m.Choice.Feed(ctx, tok)
	if r == Done && !ctx.IgnoreRestOfSequence {
		ctx.MessageCRC.Stop()
	}
	return r
}

// Unsigned16CRC matches the message's trailing crc16 field and
// compares it against the message-level CRC accumulated since the
// matching EndOfSmlMessage armed it.
type Unsigned16CRC struct {
	done  bool
	Value uint16
}

func (u *Unsigned16CRC) Feed(ctx *Context, tok lexer.Token) FeedResult {
	if tok.Type != lexer.UnsignedInt {
		return Error
	}
	u.Value = uint16(tok.Uint64)
	u.done = true
	if u.Value != ctx.MessageCRC.Result() {
		return Error
	}
	return Done
}

// EndOfSmlMessage matches the END_OF_MESSAGE token that terminates
// every SmlMessage, then arms the message-level CRC for whatever
// message follows.
type EndOfSmlMessage struct {
	done bool
}

func (e *EndOfSmlMessage) Feed(ctx *Context, tok lexer.Token) FeedResult {
	if tok.Type != lexer.EndOfMessage {
		return Error
	}
	e.done = true
	ctx.MessageCRC.Start()
	return Done
}

// SmlMessage is the envelope every SML message is wrapped in:
// transaction id, group number, abort-on-error flag, the dispatched
// body, a crc16 check and a trailing end-of-message marker.
type SmlMessage struct {
	*Sequence
	TransactionID *Octet
	GroupNo       *Unsigned
	AbortOnError  *Unsigned
	MessageBody   *SmlMessageBody
	CRC16         *Unsigned16CRC
	EndOfMessage  *EndOfSmlMessage
}

// NewSmlMessage returns an empty SmlMessage ready to be fed tokens.
func NewSmlMessage() *SmlMessage {
	m := &SmlMessage{
		TransactionID: &Octet{},
		GroupNo:       &Unsigned{},
		AbortOnError:  &Unsigned{},
		MessageBody:   NewSmlMessageBody(),
		CRC16:         &Unsigned16CRC{},
		EndOfMessage:  &EndOfSmlMessage{},
	}
	m.Sequence = NewSequence(true,
		m.TransactionID, m.GroupNo, m.AbortOnError, m.MessageBody, m.CRC16, m.EndOfMessage)
	return m
}

// SmlPublicOpenResponse is the session-open handshake message; smldaq
// does not act on its contents but still parses it so the byte stream
// stays in sync.
type SmlPublicOpenResponse struct {
	*Sequence
	Codepage   *Octet
	ClientID   *Octet
	ReqFileID  *Octet
	ServerID   *Octet
	RefTime    *SmlTimeOptional
	SmlVersion *Octet
}

func NewSmlPublicOpenResponse() Node {
	p := &SmlPublicOpenResponse{
		Codepage:   &Octet{},
		ClientID:   &Octet{},
		ReqFileID:  &Octet{},
		ServerID:   &Octet{},
		RefTime:    NewSmlTimeOptional(),
		SmlVersion: &Octet{},
	}
	p.Sequence = NewSequence(false,
		p.Codepage, p.ClientID, p.ReqFileID, p.ServerID, p.RefTime, p.SmlVersion)
	return p
}

// SmlPublicCloseResponse is the session-close message.
type SmlPublicCloseResponse struct {
	*Sequence
	GlobalSignature *Octet
}

func NewSmlPublicCloseResponse() Node {
	p := &SmlPublicCloseResponse{GlobalSignature: &Octet{}}
	p.Sequence = NewSequence(false, p.GlobalSignature)
	return p
}
