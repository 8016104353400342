package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeEnvelope(t *testing.T) {
	env, err := DecodeEnvelope([]byte(`{"event":"join","data":{"room":"lobby","name":"Alice"}}`))
	require.NoError(t, err)
	require.Equal(t, EventJoin, env.Event)

	_, err = DecodeEnvelope([]byte(`not json`))
	require.ErrorIs(t, err, ErrMalformedMessage)

	_, err = DecodeEnvelope([]byte(`{"data":{}}`))
	require.ErrorIs(t, err, ErrMalformedMessage)
}

func TestDecodeJoin(t *testing.T) {
	req, err := DecodeJoin(json.RawMessage(`{"room":"lobby","name":"Alice"}`))
	require.NoError(t, err)
	require.Equal(t, JoinRequest{Room: "lobby", Name: "Alice"}, req)

	cases := map[string]string{
		"missing room": `{"name":"Alice"}`,
		"empty room":   `{"room":"","name":"Alice"}`,
		"missing name": `{"room":"lobby"}`,
		"null name":    `{"room":"lobby","name":null}`,
		"wrong type":   `{"room":7,"name":"Alice"}`,
		"numeric name": `{"room":"lobby","name":7}`,
		"not object":   `"lobby"`,
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeJoin(json.RawMessage(data))
			require.ErrorIs(t, err, ErrMalformedMessage)
		})
	}
}

func TestDecodeJoin_EmptyNameIsAccepted(t *testing.T) {
	req, err := DecodeJoin(json.RawMessage(`{"room":"lobby","name":""}`))

	require.NoError(t, err)
	require.Equal(t, JoinRequest{Room: "lobby", Name: ""}, req)
}

func TestDecodeSignal_KeepsFieldsRaw(t *testing.T) {
	room, fields, err := DecodeSignal(json.RawMessage(`{"room":"lobby","type":"offer","sdp":"v=0\r\n","n":1.50}`))
	require.NoError(t, err)
	require.Equal(t, "lobby", room)
	require.Equal(t, `"offer"`, string(fields["type"]))
	require.Equal(t, `1.50`, string(fields["n"]))
	require.Equal(t, `"v=0\r\n"`, string(fields["sdp"]))
}

func TestDecodeSignal_RejectsMissingRoom(t *testing.T) {
	for _, data := range []string{`{"type":"offer"}`, `{"room":""}`, `{"room":["a"]}`, `[]`} {
		_, _, err := DecodeSignal(json.RawMessage(data))
		require.ErrorIs(t, err, ErrMalformedMessage, data)
	}
}

func TestSignalFields_WithSender(t *testing.T) {
	in := SignalFields{
		"room":      json.RawMessage(`"lobby"`),
		"from_name": json.RawMessage(`"Mallory"`),
	}

	out := in.WithSender("c1", "Alice")

	require.Equal(t, `"Alice"`, string(out["from_name"]))
	require.Equal(t, `"c1"`, string(out["from"]))
	require.Equal(t, `"lobby"`, string(out["room"]))
	require.Equal(t, `"Mallory"`, string(in["from_name"]), "input must not be mutated")
}

func TestOutboundMessage_Encode(t *testing.T) {
	raw, err := OutboundMessage{Event: EventUsers, Data: UsersData{Users: []string{"Alice"}}}.Encode()
	require.NoError(t, err)
	require.JSONEq(t, `{"event":"users","data":{"users":["Alice"]}}`, string(raw))
}
