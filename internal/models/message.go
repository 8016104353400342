package models

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// EventType names a frame on the signaling socket
type EventType string

const (
	// Inbound
	EventJoin   EventType = "join"
	EventSignal EventType = "signal"

	// Outbound
	EventConnected  EventType = "connected"
	EventUsers      EventType = "users"
	EventUserJoined EventType = "user-joined"
	EventUserLeft   EventType = "user-left"
)

// ErrMalformedMessage is returned for frames that cannot be routed.
var ErrMalformedMessage = errors.New("malformed message")

var validate = validator.New(validator.WithRequiredStructEnabled())

// Envelope is the frame exchanged over the websocket in both directions
type Envelope struct {
	Event EventType       `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// OutboundMessage is an event queued for delivery to one or more connections
type OutboundMessage struct {
	Event EventType
	Data  any
}

// Encode renders the message as an Envelope frame
func (m OutboundMessage) Encode() ([]byte, error) {
	data, err := json.Marshal(m.Data)
	if err != nil {
		return nil, fmt.Errorf("encode %s data: %w", m.Event, err)
	}
	return json.Marshal(Envelope{Event: m.Event, Data: data})
}

// JoinRequest is the data of an inbound join
type JoinRequest struct {
	Room string `json:"room"`
	Name string `json:"name"`
}

// joinFrame distinguishes an absent name from an empty one. A pointer
// passes "required" as long as the key was sent.
type joinFrame struct {
	Room string  `json:"room" validate:"required"`
	Name *string `json:"name" validate:"required"`
}

// SignalFields is an opaque negotiation payload. Values are kept raw so
// they are forwarded exactly as received.
type SignalFields map[string]json.RawMessage

type signalHeader struct {
	Room string `json:"room" validate:"required"`
}

type ConnectedData struct {
	ID string `json:"id"`
}

type UsersData struct {
	Users []string `json:"users"`
}

type UserJoinedData struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type UserLeftData struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Users []string `json:"users"`
}

// DecodeEnvelope parses a raw frame
func DecodeEnvelope(raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if env.Event == "" {
		return Envelope{}, fmt.Errorf("%w: missing event", ErrMalformedMessage)
	}
	return env, nil
}

// DecodeJoin parses and validates the data of a join frame
func DecodeJoin(data json.RawMessage) (JoinRequest, error) {
	var frame joinFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return JoinRequest{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if err := validate.Struct(frame); err != nil {
		return JoinRequest{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	return JoinRequest{Room: frame.Room, Name: *frame.Name}, nil
}

// DecodeSignal extracts the target room from a signal frame and returns
// the untouched field set.
func DecodeSignal(data json.RawMessage) (string, SignalFields, error) {
	var fields SignalFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	rawRoom, ok := fields["room"]
	if !ok {
		return "", nil, fmt.Errorf("%w: missing room", ErrMalformedMessage)
	}
	var hdr signalHeader
	if err := json.Unmarshal(rawRoom, &hdr.Room); err != nil {
		return "", nil, fmt.Errorf("%w: room must be a string", ErrMalformedMessage)
	}
	if err := validate.Struct(hdr); err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	return hdr.Room, fields, nil
}

// WithSender returns a copy of the fields tagged with the sender. Any
// client-supplied from/from_name is overwritten.
func (f SignalFields) WithSender(id, name string) SignalFields {
	out := make(SignalFields, len(f)+2)
	for k, v := range f {
		out[k] = v
	}
	out["from"] = mustMarshalString(id)
	out["from_name"] = mustMarshalString(name)
	return out
}

func mustMarshalString(s string) json.RawMessage {
	// Marshalling a string cannot fail.
	b, _ := json.Marshal(s)
	return b
}
