// Package web is the loopback surface behind the public chat endpoint.
// Replies return in the HTTP response body, so Send has nothing to push.
package web

import (
	"context"

	"github.com/leadlinehq/leadline/internal/channel"
)

type Adapter struct{}

func NewAdapter() *Adapter { return &Adapter{} }

func (a *Adapter) Type() channel.ChannelType { return channel.ChannelWeb }

func (a *Adapter) Send(ctx context.Context, externalID, text string) error {
	return nil
}
