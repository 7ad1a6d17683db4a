package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"easy-chat-server/internal/domain"
)

// MessageStore holds the durable message records.
type MessageStore interface {
	PutMessage(ctx context.Context, msg domain.Message) error
	QueryMessages(ctx context.Context, conversationKey string, limit int32, startKey map[string]any) ([]domain.Message, map[string]any, error)
}

// Relay validates, persists and forwards direct messages.
type Relay struct {
	connections ConnectionStore
	messages    MessageStore
	gateway     Pusher
}

type SendInput struct {
	SenderConnectionID string
	RecipientNickname  string
	Text               string
}

func NewRelay(connections ConnectionStore, messages MessageStore, gateway Pusher) (*Relay, error) {
	if connections == nil {
		return nil, errors.New("usecase: connection store must not be nil")
	}
	if messages == nil {
		return nil, errors.New("usecase: message store must not be nil")
	}
	if gateway == nil {
		return nil, errors.New("usecase: push gateway must not be nil")
	}
	return &Relay{connections: connections, messages: messages, gateway: gateway}, nil
}

// Send persists a message and forwards it to the recipient's live session,
// if any. The write always precedes the delivery attempt: a message is
// never lost because the recipient happens to be offline.
func (r *Relay) Send(ctx context.Context, in SendInput) error {
	sender, found, err := r.connections.GetConnection(ctx, in.SenderConnectionID)
	if err != nil {
		return newError(ErrorInfrastructure, "sender_lookup_error", err)
	}
	if !found {
		return newError(ErrorUnauthenticated, "unknown_sender_connection", nil)
	}

	recipient := strings.TrimSpace(in.RecipientNickname)
	if recipient == "" {
		return newError(ErrorValidation, "missing_recipient", nil)
	}
	if strings.TrimSpace(in.Text) == "" {
		return newError(ErrorValidation, "empty_message", nil)
	}

	msg := domain.Message{
		MessageID:       newUUID(),
		ConversationKey: domain.ConversationKey(sender.Nickname, recipient),
		Sender:          sender.Nickname,
		Text:            in.Text,
		CreatedAt:       now().UnixMilli(),
	}
	if err := r.messages.PutMessage(ctx, msg); err != nil {
		return newError(ErrorInfrastructure, "message_write_error", err)
	}

	conn, online, err := r.connections.FindConnectionByNickname(ctx, recipient)
	if err != nil {
		return newError(ErrorInfrastructure, "recipient_lookup_error", err)
	}
	if !online {
		// Persisted for later retrieval; nothing to deliver.
		return nil
	}

	if err := r.gateway.Post(ctx, conn.ConnectionID, domain.MessagePush(sender.Nickname, in.Text)); err != nil {
		if isGone(err) {
			reapConnection(ctx, r.connections, conn.ConnectionID)
			return nil
		}
		return newError(ErrorInfrastructure, "message_push_error", err)
	}
	return nil
}

var newUUID = func() string {
	return uuid.NewString()
}

var now = time.Now
