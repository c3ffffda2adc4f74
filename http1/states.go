package http1

// State is the current position of the parser in the response grammar.
type State uint8

const (
	Start State = iota
	StatusLine
	HeaderField
	HeaderValue
	HeadersComplete
	Body
	ChunkSize
	ChunkData
	ChunkCRLF
	Trailer
	Done
	Error
)

func (s State) String() string {
	lut := [...]string{
		Start:           "Start",
		StatusLine:      "StatusLine",
		HeaderField:     "HeaderField",
		HeaderValue:     "HeaderValue",
		HeadersComplete: "HeadersComplete",
		Body:            "Body",
		ChunkSize:       "ChunkSize",
		ChunkData:       "ChunkData",
		ChunkCRLF:       "ChunkCRLF",
		Trailer:         "Trailer",
		Done:            "Done",
		Error:           "Error",
	}

	if int(s) >= len(lut) {
		return "Unknown"
	}

	return lut[s]
}

// Mode is the rule determining where the body ends.
type Mode uint8

const (
	ModeUnknown Mode = iota
	ModeContentLength
	ModeChunked
	ModeCloseDelimited
)

func (m Mode) String() string {
	switch m {
	case ModeContentLength:
		return "content-length"
	case ModeChunked:
		return "chunked"
	case ModeCloseDelimited:
		return "close-delimited"
	default:
		return "unknown"
	}
}

type KeepAlive uint8

const (
	KeepAliveUnknown KeepAlive = iota
	KeepAliveTrue
	KeepAliveFalse
)

func (k KeepAlive) String() string {
	switch k {
	case KeepAliveTrue:
		return "true"
	case KeepAliveFalse:
		return "false"
	default:
		return "unknown"
	}
}
