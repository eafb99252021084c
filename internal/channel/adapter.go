package channel

import "context"

// Adapter is the base interface every channel implements.
type Adapter interface {
	Type() ChannelType
}

// Sender is implemented by adapters that can push a reply to the contact.
type Sender interface {
	Adapter
	Send(ctx context.Context, externalID, text string) error
}
