package http1

// Kind classifies a parsing failure.
type Kind uint8

const (
	InvalidStartLine Kind = iota + 1
	InvalidHeaderLine
	InvalidContentLength
	InvalidChunkSize
	ConflictingFraming
	ConsumerAborted
	IncompleteMessage
	UnexpectedDataAfterComplete
)

func (k Kind) String() string {
	switch k {
	case InvalidStartLine:
		return "invalid start line"
	case InvalidHeaderLine:
		return "invalid header line"
	case InvalidContentLength:
		return "invalid content length"
	case InvalidChunkSize:
		return "invalid chunk size"
	case ConflictingFraming:
		return "conflicting framing"
	case ConsumerAborted:
		return "consumer aborted"
	case IncompleteMessage:
		return "incomplete message"
	case UnexpectedDataAfterComplete:
		return "unexpected data after complete message"
	default:
		return "unknown error"
	}
}

// ParseError is the terminal error of a parser. Once a parser has failed, the same
// *ParseError is returned on every subsequent call.
type ParseError struct {
	Kind   Kind
	Reason string
	// Cause is set only for ConsumerAborted and holds the error returned by the handler.
	Cause error
}

func NewError(kind Kind, reason string) *ParseError {
	return &ParseError{
		Kind:   kind,
		Reason: reason,
	}
}

func (p *ParseError) Error() string {
	msg := p.Kind.String()
	if len(p.Reason) > 0 {
		msg += ": " + p.Reason
	}

	if p.Cause != nil {
		msg += ": " + p.Cause.Error()
	}

	return msg
}

func (p *ParseError) Unwrap() error {
	return p.Cause
}

// Is reports whether the target is a *ParseError of the same kind. This makes the
// sentinel values below usable with errors.Is.
func (p *ParseError) Is(target error) bool {
	t, ok := target.(*ParseError)
	return ok && t.Kind == p.Kind
}

var (
	ErrInvalidStartLine            = NewError(InvalidStartLine, "")
	ErrInvalidHeaderLine           = NewError(InvalidHeaderLine, "")
	ErrInvalidContentLength        = NewError(InvalidContentLength, "")
	ErrInvalidChunkSize            = NewError(InvalidChunkSize, "")
	ErrConflictingFraming          = NewError(ConflictingFraming, "")
	ErrConsumerAborted             = NewError(ConsumerAborted, "")
	ErrIncompleteMessage           = NewError(IncompleteMessage, "")
	ErrUnexpectedDataAfterComplete = NewError(UnexpectedDataAfterComplete, "")
)

func aborted(event string, cause error) *ParseError {
	return &ParseError{
		Kind:   ConsumerAborted,
		Reason: event,
		Cause:  cause,
	}
}
