package http1

import (
	"github.com/indigo-web/respparse/http/proto"
	"github.com/indigo-web/respparse/http/status"
	"github.com/indigo-web/respparse/kv"
)

// Message is the result of parsing a single response. Fields are filled in as the parser
// advances: the version, code and reason after the status line, framing after headers are
// complete, and keep-alive after the message is complete.
type Message struct {
	Major, Minor uint8
	Code         status.Code
	Reason       string
	Headers      *kv.Storage
	// Trailers are populated only for chunked bodies.
	Trailers *kv.Storage
	Mode     Mode
	// ContentLength is the declared body length in ModeContentLength.
	ContentLength uint64
	// Remaining is how many body bytes are still expected in ModeContentLength.
	Remaining uint64
	KeepAlive KeepAlive
}

func newMessage(headersNumber int) *Message {
	return &Message{
		Headers:  kv.NewPrealloc(headersNumber),
		Trailers: kv.New(),
	}
}

func (m *Message) Proto() proto.Proto {
	return proto.Parse(m.Major, m.Minor)
}
