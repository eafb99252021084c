package meta

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadlinehq/leadline/internal/channel"
)

func TestParseWhatsAppPayload(t *testing.T) {
	raw := []byte(`{
		"object": "whatsapp_business_account",
		"entry": [{
			"id": "1001",
			"changes": [{
				"field": "messages",
				"value": {
					"messages": [
						{"from": "5511999990000", "type": "text", "text": {"body": "oi, quero saber mais"}},
						{"from": "5511999990001", "type": "image"},
						{"from": "", "type": "text", "text": {"body": "sem remetente"}}
					]
				}
			}]
		}]
	}`)

	inbounds, err := ParsePayload(raw)
	require.NoError(t, err)
	require.Len(t, inbounds, 1)
	assert.Equal(t, channel.ChannelWhatsApp, inbounds[0].Channel)
	assert.Equal(t, "5511999990000", inbounds[0].ExternalID)
	assert.Equal(t, "oi, quero saber mais", inbounds[0].Text)
}

func TestParseWhatsAppStatusOnlyPayload(t *testing.T) {
	raw := []byte(`{
		"object": "whatsapp_business_account",
		"entry": [{"changes": [{"field": "messages", "value": {"statuses": [{"id": "wamid.1"}]}}]}]
	}`)

	inbounds, err := ParsePayload(raw)
	require.NoError(t, err)
	assert.Empty(t, inbounds)
}

func TestParseInstagramPayload(t *testing.T) {
	raw := []byte(`{
		"object": "instagram",
		"entry": [{
			"messaging": [
				{"sender": {"id": "ig_42"}, "message": {"text": "adorei o conteúdo"}},
				{"sender": {"id": "ig_agent"}, "message": {"text": "resposta nossa", "is_echo": true}}
			]
		}]
	}`)

	inbounds, err := ParsePayload(raw)
	require.NoError(t, err)
	require.Len(t, inbounds, 1)
	assert.Equal(t, channel.ChannelInstagram, inbounds[0].Channel)
	assert.Equal(t, "ig_42", inbounds[0].ExternalID)
}

func TestParseMessengerPayload(t *testing.T) {
	raw := []byte(`{
		"object": "page",
		"entry": [{"messaging": [{"sender": {"id": "fb_7"}, "message": {"text": "olá"}}]}]
	}`)

	inbounds, err := ParsePayload(raw)
	require.NoError(t, err)
	require.Len(t, inbounds, 1)
	assert.Equal(t, channel.ChannelMessenger, inbounds[0].Channel)
}

func TestParseUnknownObject(t *testing.T) {
	_, err := ParsePayload([]byte(`{"object": "something_else"}`))
	assert.Error(t, err)
}

func TestParseMalformedPayload(t *testing.T) {
	_, err := ParsePayload([]byte(`{not json`))
	assert.Error(t, err)
}
