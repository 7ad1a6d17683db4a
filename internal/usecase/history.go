package usecase

import (
	"context"
	"errors"
	"strings"

	"easy-chat-server/internal/domain"
)

// History serves paginated message history for a conversation pair.
type History struct {
	connections ConnectionStore
	messages    MessageStore
	gateway     Pusher
}

type GetMessagesInput struct {
	ConnectionID   string
	TargetNickname string
	Limit          int
	StartKey       map[string]any
}

func NewHistory(connections ConnectionStore, messages MessageStore, gateway Pusher) (*History, error) {
	if connections == nil {
		return nil, errors.New("usecase: connection store must not be nil")
	}
	if messages == nil {
		return nil, errors.New("usecase: message store must not be nil")
	}
	if gateway == nil {
		return nil, errors.New("usecase: push gateway must not be nil")
	}
	return &History{connections: connections, messages: messages, gateway: gateway}, nil
}

// GetMessages pushes one page of the requester's conversation with the
// target, newest first, to the requester. The page order is the contract:
// clients reverse it for chronological display. An empty conversation is a
// normal outcome and yields an empty page.
func (h *History) GetMessages(ctx context.Context, in GetMessagesInput) error {
	requester, found, err := h.connections.GetConnection(ctx, in.ConnectionID)
	if err != nil {
		return newError(ErrorInfrastructure, "requester_lookup_error", err)
	}
	if !found {
		return newError(ErrorUnauthenticated, "unknown_requester_connection", nil)
	}

	target := strings.TrimSpace(in.TargetNickname)
	if target == "" {
		return newError(ErrorValidation, "missing_target", nil)
	}
	if in.Limit <= 0 {
		return newError(ErrorValidation, "invalid_limit", nil)
	}

	key := domain.ConversationKey(requester.Nickname, target)
	msgs, lastKey, err := h.messages.QueryMessages(ctx, key, int32(in.Limit), in.StartKey)
	if err != nil {
		return newError(ErrorInfrastructure, "message_query_error", err)
	}

	if err := h.gateway.Post(ctx, in.ConnectionID, domain.MessagesPush(msgs, lastKey)); err != nil {
		if isGone(err) {
			reapConnection(ctx, h.connections, in.ConnectionID)
			return nil
		}
		return newError(ErrorInfrastructure, "history_push_error", err)
	}
	return nil
}
