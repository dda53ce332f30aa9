package protocol

import (
	"testing"

	"parley/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutgoingRoundTrip(t *testing.T) {
	msgs := []OutgoingMessage{
		Login("alice"),
		CreateAccount("bob"),
		Message("bob", "hi | there, \"quoted\""),
		FetchChat("alice"),
		{Type: OutLogin, ID: 42, Username: "carol"},
	}

	for _, msg := range msgs {
		t.Run(msg.Type.String(), func(t *testing.T) {
			frame, err := EncodeOutgoing(msg)
			require.NoError(t, err)

			got, err := DecodeOutgoing(frame)
			require.NoError(t, err)
			assert.Equal(t, msg, got)
		})
	}
}

func TestIncomingRoundTrip(t *testing.T) {
	msgs := []IncomingMessage{
		Live("alice", "hi"),
		Control(InSuccessfulLogin, 7),
		Control(InDuplicateUsername, 0),
		Error(3, "session required"),
		History(9, []models.HistoryEntry{
			{From: "alice", To: "bob", Payload: "hi"},
			{From: "bob", To: "alice", Payload: "hey"},
		}),
	}

	for _, msg := range msgs {
		t.Run(msg.Type.String(), func(t *testing.T) {
			frame, err := EncodeIncoming(msg)
			require.NoError(t, err)

			got, err := DecodeIncoming(frame)
			require.NoError(t, err)
			assert.Equal(t, msg, got)
		})
	}
}

func TestDecodeWireCompatible(t *testing.T) {
	out, err := DecodeOutgoing([]byte(`{"type":"2","to":"bob","message":"hi"}`))
	require.NoError(t, err)
	assert.Equal(t, Message("bob", "hi"), out)

	in, err := DecodeIncoming([]byte(`{"type":"5","messages":[{"from":"alice","to":"bob","payload":"hi"}]}`))
	require.NoError(t, err)
	require.Len(t, in.Messages, 1)
	assert.Equal(t, "alice", in.Messages[0].From)
	assert.Equal(t, "hi", in.Messages[0].Payload)

	ctl, err := DecodeIncoming([]byte(`{"type":"1","payload":""}`))
	require.NoError(t, err)
	assert.Equal(t, InSuccessfulLogin, ctl.Type)
	assert.Zero(t, ctl.ID)
}

func TestDecodeMalformed(t *testing.T) {
	frames := map[string]string{
		"not json":      `hello`,
		"array":         `["0","alice"]`,
		"missing type":  `{"username":"alice"}`,
		"unknown type":  `{"type":"9"}`,
		"truncated":     `{"type":"0"`,
		"wrong type ty": `{"type":0}`,
	}

	for name, frame := range frames {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeOutgoing([]byte(frame))
			assert.ErrorIs(t, err, ErrMalformedFrame)
		})
	}

	_, err := DecodeIncoming([]byte(`{"type":"6"}`))
	assert.ErrorIs(t, err, ErrMalformedFrame, "timeout never travels over the wire")
}

func TestEncodeRejectsInvalidKinds(t *testing.T) {
	_, err := EncodeIncoming(Control(InTimeout, 1))
	assert.ErrorIs(t, err, ErrMalformedFrame)

	_, err = EncodeOutgoing(OutgoingMessage{Type: "x"})
	assert.ErrorIs(t, err, ErrMalformedFrame)
}

func TestKinds(t *testing.T) {
	assert.True(t, InChatHistory.IsReply())
	assert.True(t, InError.IsReply())
	assert.False(t, InMessage.IsReply())
	assert.False(t, InTimeout.IsReply())
	assert.Equal(t, "FETCH_CHAT", OutFetchChat.String())
	assert.Equal(t, "TIMEOUT", InTimeout.String())
}
