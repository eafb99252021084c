// Package channel defines the canonical message types and the adapter
// registry for every surface the agent talks through.
package channel

import "strings"

// ChannelType identifies a conversation surface.
type ChannelType string

const (
	ChannelWeb       ChannelType = "web"
	ChannelWhatsApp  ChannelType = "whatsapp"
	ChannelInstagram ChannelType = "instagram"
	ChannelMessenger ChannelType = "messenger"
)

func (c ChannelType) String() string { return string(c) }

// Inbound is one canonical inbound message after adapter parsing.
type Inbound struct {
	Channel    ChannelType
	ExternalID string
	Text       string
}

func normalizeChannelType(raw string) ChannelType {
	return ChannelType(strings.ToLower(strings.TrimSpace(raw)))
}
