package handlers

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/madhavavukkum/Cipher-Chat/internal/models"
)

func TestInboundEventDecode(t *testing.T) {
	receiver := uuid.New()
	raw := `{"type":"send-message","receiver_id":"` + receiver.String() + `","body":"hello","kind":"text"}`

	var ev inboundEvent
	require.NoError(t, json.Unmarshal([]byte(raw), &ev))
	assert.Equal(t, "send-message", ev.Type)
	assert.Equal(t, receiver, ev.ReceiverID)
	assert.Equal(t, "hello", ev.Body)

	var bad inboundEvent
	assert.Error(t, json.Unmarshal([]byte(`{"type":"typing","receiver_id":"not-a-uuid"}`), &bad))
}

func TestValidateSendMessage(t *testing.T) {
	receiver := uuid.New()

	ev := &inboundEvent{Type: "send-message", ReceiverID: receiver, Body: "  hello  "}
	require.NoError(t, validateSendMessage(ev))
	assert.Equal(t, "hello", ev.Body, "body should be trimmed")
	assert.Equal(t, models.MessageKindText, ev.Kind, "kind should default to text")

	cases := []struct {
		name string
		ev   inboundEvent
	}{
		{"missing receiver", inboundEvent{Body: "hello"}},
		{"empty body", inboundEvent{ReceiverID: receiver, Body: ""}},
		{"whitespace body", inboundEvent{ReceiverID: receiver, Body: "   \t\n"}},
		{"unknown kind", inboundEvent{ReceiverID: receiver, Body: "hi", Kind: "video"}},
	}
	for _, tc := range cases {
		assert.Error(t, validateSendMessage(&tc.ev), tc.name)
	}

	for _, kind := range []string{models.MessageKindText, models.MessageKindImage, models.MessageKindFile} {
		ev := &inboundEvent{ReceiverID: receiver, Body: "hi", Kind: kind}
		assert.NoError(t, validateSendMessage(ev), kind)
	}
}

func TestExtractCookieToken(t *testing.T) {
	assert.Equal(t, "abc", extractCookieToken("auth_token=abc", "auth_token"))
	assert.Equal(t, "abc", extractCookieToken("other=x; auth_token=abc; more=y", "auth_token"))
	assert.Equal(t, "", extractCookieToken("other=x", "auth_token"))
}
