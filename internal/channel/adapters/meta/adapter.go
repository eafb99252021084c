package meta

import (
	"context"

	"github.com/leadlinehq/leadline/internal/channel"
)

// Adapter binds one Meta channel type to the shared Graph client.
type Adapter struct {
	ct     channel.ChannelType
	client *Client
}

func NewWhatsAppAdapter(client *Client) *Adapter {
	return &Adapter{ct: channel.ChannelWhatsApp, client: client}
}

func NewInstagramAdapter(client *Client) *Adapter {
	return &Adapter{ct: channel.ChannelInstagram, client: client}
}

func NewMessengerAdapter(client *Client) *Adapter {
	return &Adapter{ct: channel.ChannelMessenger, client: client}
}

func (a *Adapter) Type() channel.ChannelType { return a.ct }

func (a *Adapter) Send(ctx context.Context, externalID, text string) error {
	if a.ct == channel.ChannelWhatsApp {
		return a.client.SendWhatsApp(ctx, externalID, text)
	}
	return a.client.SendMessaging(ctx, externalID, text)
}
