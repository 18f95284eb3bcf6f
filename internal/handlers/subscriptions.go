package handlers

import (
	"net/http"

	"github.com/vidtube/backend/internal/envelope"
)

// SubscriptionHandler implements channel subscription endpoints.
type SubscriptionHandler struct {
	Subscriptions SubscriptionStore
}

// Toggle handles POST /api/v1/subscriptions/c/{channelId}.
func (h SubscriptionHandler) Toggle(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	user, err := currentUser(r)
	if err != nil {
		return err
	}

	channelID, err := pathID(r, "channelId")
	if err != nil {
		return err
	}
	if channelID == user.ID {
		return envelope.BadRequest("you cannot subscribe to your own channel")
	}

	subscribed, err := h.Subscriptions.Toggle(ctx, user.ID, channelID)
	if err != nil {
		return storeError(err, "channel")
	}

	message := "unsubscribed successfully"
	if subscribed {
		message = "subscribed successfully"
	}
	envelope.JSON(ctx, w, http.StatusOK, map[string]bool{"isSubscribed": subscribed}, message)
	return nil
}

// Subscribers handles GET /api/v1/subscriptions/u/{channelId}.
func (h SubscriptionHandler) Subscribers(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	channelID, err := pathID(r, "channelId")
	if err != nil {
		return err
	}

	subscribers, err := h.Subscriptions.ListSubscribers(ctx, channelID)
	if err != nil {
		return envelope.Internal("failed to list subscribers", err)
	}

	envelope.JSON(ctx, w, http.StatusOK, subscribers, "subscribers fetched successfully")
	return nil
}

// Channels handles GET /api/v1/subscriptions/c/{subscriberId}.
func (h SubscriptionHandler) Channels(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	subscriberID, err := pathID(r, "subscriberId")
	if err != nil {
		return err
	}

	channels, err := h.Subscriptions.ListChannels(ctx, subscriberID)
	if err != nil {
		return envelope.Internal("failed to list subscribed channels", err)
	}

	envelope.JSON(ctx, w, http.StatusOK, channels, "subscribed channels fetched successfully")
	return nil
}
