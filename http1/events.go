package http1

import (
	"fmt"

	"github.com/indigo-web/respparse/http/status"
)

type EventKind uint8

const (
	EventMessageBegin EventKind = iota + 1
	EventStatus
	EventHeaderField
	EventHeaderValue
	EventHeadersComplete
	EventBody
	EventMessageComplete
)

func (e EventKind) String() string {
	lut := [...]string{
		EventMessageBegin:    "MessageBegin",
		EventStatus:          "Status",
		EventHeaderField:     "HeaderField",
		EventHeaderValue:     "HeaderValue",
		EventHeadersComplete: "HeadersComplete",
		EventBody:            "Body",
		EventMessageComplete: "MessageComplete",
	}

	if int(e) >= len(lut) || len(lut[e]) == 0 {
		return "Unknown"
	}

	return lut[e]
}

type Event struct {
	Kind EventKind
	Code status.Code
	Data string
}

func (e Event) String() string {
	switch e.Kind {
	case EventStatus:
		return fmt.Sprintf("%s(%d)", e.Kind, e.Code)
	case EventHeaderField, EventHeaderValue, EventBody:
		return fmt.Sprintf("%s(%q)", e.Kind, e.Data)
	default:
		return e.Kind.String()
	}
}

// Recorder is a Handler storing every event it receives. Adjacent Body events are merged,
// so the recorded sequence doesn't depend on how the input was split. Action is returned
// from OnHeadersComplete.
type Recorder struct {
	Events []Event
	Action Action
}

var _ Handler = new(Recorder)

func (r *Recorder) OnMessageBegin() error {
	r.push(Event{Kind: EventMessageBegin})
	return nil
}

func (r *Recorder) OnStatus(code status.Code, _ []byte) error {
	r.push(Event{Kind: EventStatus, Code: code})
	return nil
}

func (r *Recorder) OnHeaderField(key []byte) error {
	r.push(Event{Kind: EventHeaderField, Data: string(key)})
	return nil
}

func (r *Recorder) OnHeaderValue(value []byte) error {
	r.push(Event{Kind: EventHeaderValue, Data: string(value)})
	return nil
}

func (r *Recorder) OnHeadersComplete() (Action, error) {
	r.push(Event{Kind: EventHeadersComplete})
	return r.Action, nil
}

func (r *Recorder) OnBody(chunk []byte) error {
	if n := len(r.Events); n > 0 && r.Events[n-1].Kind == EventBody {
		r.Events[n-1].Data += string(chunk)
		return nil
	}

	r.push(Event{Kind: EventBody, Data: string(chunk)})
	return nil
}

func (r *Recorder) OnMessageComplete() error {
	r.push(Event{Kind: EventMessageComplete})
	return nil
}

// Body returns all the recorded body bytes.
func (r *Recorder) Body() (body string) {
	for _, event := range r.Events {
		if event.Kind == EventBody {
			body += event.Data
		}
	}

	return body
}

func (r *Recorder) Reset() {
	r.Events = r.Events[:0]
}

func (r *Recorder) push(e Event) {
	r.Events = append(r.Events, e)
}
