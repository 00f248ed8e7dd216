package events

import (
	"github.com/princekumarofficial/winsome-service/internal/types"
)

// NotificationHub is the slice of the WebSocket hub the publisher needs.
type NotificationHub interface {
	BroadcastToUser(username string, event *types.Event)
	IsUserConnected(username string) bool
}

// Publisher fans store-side changes out to connected clients. It implements
// the social store's FollowNotifier, so follow-graph changes reach the
// affected user as soon as they are committed.
type Publisher struct {
	hub NotificationHub
}

// NewPublisher creates a new event publisher
func NewPublisher(hub NotificationHub) *Publisher {
	return &Publisher{
		hub: hub,
	}
}

// OnFollow notifies the followed user that their follower list grew.
func (p *Publisher) OnFollow(follower, followed string) {
	if !p.hub.IsUserConnected(followed) {
		return
	}

	event := types.NewEvent(types.EventFollowed, &types.FollowChangedEvent{
		Follower: follower,
		Followed: followed,
	})
	p.hub.BroadcastToUser(followed, event)
}

// OnUnfollow notifies the followed user that a follower left.
func (p *Publisher) OnUnfollow(follower, followed string) {
	if !p.hub.IsUserConnected(followed) {
		return
	}

	event := types.NewEvent(types.EventUnfollowed, &types.FollowChangedEvent{
		Follower: follower,
		Followed: followed,
	})
	p.hub.BroadcastToUser(followed, event)
}

// PublishWalletCredited notifies a user that a reward cycle paid them.
func (p *Publisher) PublishWalletCredited(username string, amount float64) {
	if !p.hub.IsUserConnected(username) {
		return
	}

	event := types.NewEvent(types.EventWalletCredited, &types.WalletCreditedEvent{
		Username: username,
		Amount:   amount,
	})
	p.hub.BroadcastToUser(username, event)
}
