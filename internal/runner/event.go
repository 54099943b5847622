package runner

import (
	"encoding/json"
	"fmt"
)

// Kind tags a run event.
type Kind string

const (
	KindStdout Kind = "stdout"
	KindStderr Kind = "stderr"
	KindError  Kind = "error"
	KindExit   Kind = "exit"
)

// Event is one step of a script run. Output events carry Text, an error
// event carries Message and an exit event carries Code. Exactly one
// terminal event (error or exit) ends a run.
type Event struct {
	Kind    Kind
	Text    string
	Message string
	Code    int
}

// Stdout returns an output event for standard output.
func Stdout(text string) Event { return Event{Kind: KindStdout, Text: text} }

// Stderr returns an output event for standard error.
func Stderr(text string) Event { return Event{Kind: KindStderr, Text: text} }

// Failure returns a terminal error event.
func Failure(message string) Event { return Event{Kind: KindError, Message: message} }

// Exit returns a terminal exit event.
func Exit(code int) Event { return Event{Kind: KindExit, Code: code} }

// Terminal reports whether e ends a run.
func (e Event) Terminal() bool {
	return e.Kind == KindError || e.Kind == KindExit
}

// Success reports whether e is an exit with status 0.
func (e Event) Success() bool {
	return e.Kind == KindExit && e.Code == 0
}

type outputWire struct {
	Kind Kind   `json:"kind"`
	Text string `json:"text"`
}

type errorWire struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

type exitWire struct {
	Kind Kind `json:"kind"`
	Code int  `json:"code"`
}

// MarshalJSON encodes only the fields of e's variant.
func (e Event) MarshalJSON() ([]byte, error) {
	switch e.Kind {
	case KindStdout, KindStderr:
		return json.Marshal(outputWire{Kind: e.Kind, Text: e.Text})
	case KindError:
		return json.Marshal(errorWire{Kind: e.Kind, Message: e.Message})
	case KindExit:
		return json.Marshal(exitWire{Kind: e.Kind, Code: e.Code})
	}
	return nil, fmt.Errorf("unknown event kind %q", e.Kind)
}

// UnmarshalJSON decodes one event, rejecting unknown kinds and exit
// events without a numeric code.
func (e *Event) UnmarshalJSON(data []byte) error {
	var raw struct {
		Kind    Kind    `json:"kind"`
		Text    *string `json:"text"`
		Message *string `json:"message"`
		Code    *int    `json:"code"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch raw.Kind {
	case KindStdout, KindStderr:
		*e = Event{Kind: raw.Kind}
		if raw.Text != nil {
			e.Text = *raw.Text
		}
	case KindError:
		*e = Event{Kind: raw.Kind}
		if raw.Message != nil {
			e.Message = *raw.Message
		}
	case KindExit:
		if raw.Code == nil {
			return fmt.Errorf("exit event without code")
		}
		*e = Event{Kind: raw.Kind, Code: *raw.Code}
	default:
		return fmt.Errorf("unknown event kind %q", raw.Kind)
	}
	return nil
}
