// Package telegram adapts the Telegram Bot API to the access-gateway
// contract the subscription engine depends on: revoking and restoring a
// subscriber's membership in the gated channel.
package telegram

import (
	"context"

	"github.com/wb-go/wbf/retry"
)

type botClient interface {
	BanChatMember(chatID string, userID int64) error
	UnbanChatMember(chatID string, userID int64) error
}

// Gateway revokes and restores channel access for subscribers.
//
// Both operations are idempotent at the Telegram level, so callers can
// retry a failed one on the next sweep without special handling.
type Gateway struct {
	client    botClient
	channelID string
	strategy  retry.Strategy
}

// NewGateway creates a Gateway bound to one channel.
func NewGateway(client botClient, channelID string, strategy retry.Strategy) *Gateway {
	return &Gateway{
		client:    client,
		channelID: channelID,
		strategy:  strategy,
	}
}

// Revoke bans the subscriber from the channel.
func (g *Gateway) Revoke(ctx context.Context, userID int64) error {
	return retry.Do(func() error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			return g.client.BanChatMember(g.channelID, userID)
		}
	}, g.strategy)
}

// Restore lifts the subscriber's ban so they can rejoin.
func (g *Gateway) Restore(ctx context.Context, userID int64) error {
	return retry.Do(func() error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			return g.client.UnbanChatMember(g.channelID, userID)
		}
	}, g.strategy)
}
