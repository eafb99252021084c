// Package meta implements the WhatsApp, Instagram and Messenger surfaces of
// the Meta platform: webhook payload parsing plus Graph API sends.
package meta

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/leadlinehq/leadline/internal/channel"
)

const (
	objectWhatsApp  = "whatsapp_business_account"
	objectInstagram = "instagram"
	objectPage      = "page"
)

type webhookPayload struct {
	Object string  `json:"object"`
	Entry  []entry `json:"entry"`
}

type entry struct {
	ID        string      `json:"id"`
	Changes   []change    `json:"changes,omitempty"`
	Messaging []messaging `json:"messaging,omitempty"`
}

// change is the WhatsApp Business payload shape.
type change struct {
	Field string `json:"field"`
	Value struct {
		Messages []waMessage `json:"messages,omitempty"`
	} `json:"value"`
}

type waMessage struct {
	From string `json:"from"`
	Type string `json:"type"`
	Text struct {
		Body string `json:"body"`
	} `json:"text"`
}

// messaging is the Instagram and Messenger payload shape.
type messaging struct {
	Sender struct {
		ID string `json:"id"`
	} `json:"sender"`
	Message struct {
		Text   string `json:"text"`
		IsEcho bool   `json:"is_echo"`
	} `json:"message"`
}

// ParsePayload turns one raw webhook body into canonical inbound messages.
// Statuses, echoes and non-text messages are skipped silently; an unknown
// top-level object is an error.
func ParsePayload(raw []byte) ([]channel.Inbound, error) {
	var payload webhookPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("parse webhook payload: %w", err)
	}

	switch payload.Object {
	case objectWhatsApp:
		return parseWhatsApp(payload), nil
	case objectInstagram:
		return parseMessaging(payload, channel.ChannelInstagram), nil
	case objectPage:
		return parseMessaging(payload, channel.ChannelMessenger), nil
	default:
		return nil, fmt.Errorf("unknown webhook object %q", payload.Object)
	}
}

func parseWhatsApp(payload webhookPayload) []channel.Inbound {
	var inbounds []channel.Inbound
	for _, e := range payload.Entry {
		for _, c := range e.Changes {
			for _, msg := range c.Value.Messages {
				if msg.Type != "text" {
					continue
				}
				text := strings.TrimSpace(msg.Text.Body)
				if msg.From == "" || text == "" {
					continue
				}
				inbounds = append(inbounds, channel.Inbound{
					Channel:    channel.ChannelWhatsApp,
					ExternalID: msg.From,
					Text:       text,
				})
			}
		}
	}
	return inbounds
}

func parseMessaging(payload webhookPayload, ct channel.ChannelType) []channel.Inbound {
	var inbounds []channel.Inbound
	for _, e := range payload.Entry {
		for _, m := range e.Messaging {
			if m.Message.IsEcho {
				continue
			}
			text := strings.TrimSpace(m.Message.Text)
			if m.Sender.ID == "" || text == "" {
				continue
			}
			inbounds = append(inbounds, channel.Inbound{
				Channel:    ct,
				ExternalID: m.Sender.ID,
				Text:       text,
			})
		}
	}
	return inbounds
}
