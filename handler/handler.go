package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/aws/aws-lambda-go/events"

	"easy-chat-server/internal/domain"
	"easy-chat-server/internal/usecase"
)

const (
	routeConnect     = "$connect"
	routeDisconnect  = "$disconnect"
	routeGetClients  = "getClients"
	routeSendMessage = "sendMessage"
	routeGetMessages = "getMessages"
)

type Registry interface {
	Bind(ctx context.Context, connectionID, nickname string) error
	Unbind(ctx context.Context, connectionID string) error
}

type Presence interface {
	RosterFor(ctx context.Context, connectionID string) error
}

type Relay interface {
	Send(ctx context.Context, in usecase.SendInput) error
}

type History interface {
	GetMessages(ctx context.Context, in usecase.GetMessagesInput) error
}

type Pusher interface {
	Post(ctx context.Context, connectionID string, payload any) error
}

// Handler routes inbound websocket events to the services behind them.
type Handler struct {
	registry Registry
	presence Presence
	relay    Relay
	history  History
	gateway  Pusher
}

func NewHandler(registry Registry, presence Presence, relay Relay, history History, gateway Pusher) (*Handler, error) {
	if registry == nil {
		return nil, errors.New("handler: registry must not be nil")
	}
	if presence == nil {
		return nil, errors.New("handler: presence must not be nil")
	}
	if relay == nil {
		return nil, errors.New("handler: relay must not be nil")
	}
	if history == nil {
		return nil, errors.New("handler: history must not be nil")
	}
	if gateway == nil {
		return nil, errors.New("handler: gateway must not be nil")
	}
	return &Handler{registry: registry, presence: presence, relay: relay, history: history, gateway: gateway}, nil
}

type sendMessageBody struct {
	RecipientNickname string `json:"recipientNickname"`
	Message           string `json:"message"`
}

type getMessagesBody struct {
	TargetNickname string         `json:"targetNickname"`
	Limit          int            `json:"limit"`
	StartKey       map[string]any `json:"startKey"`
}

// Handle dispatches one inbound event by route key. Client mistakes are
// reported back over the socket and the event is still acknowledged, so the
// connection stays usable; infrastructure failures surface as Lambda faults.
func (h *Handler) Handle(ctx context.Context, event events.APIGatewayWebsocketProxyRequest) (events.APIGatewayProxyResponse, error) {
	routeKey := event.RequestContext.RouteKey
	connectionID := event.RequestContext.ConnectionID

	var err error
	switch routeKey {
	case routeConnect:
		err = h.registry.Bind(ctx, connectionID, event.QueryStringParameters["nickname"])
	case routeDisconnect:
		err = h.registry.Unbind(ctx, connectionID)
	case routeGetClients:
		err = h.presence.RosterFor(ctx, connectionID)
	case routeSendMessage:
		var body sendMessageBody
		if err = decodeBody(event.Body, &body); err == nil {
			err = h.relay.Send(ctx, usecase.SendInput{
				SenderConnectionID: connectionID,
				RecipientNickname:  body.RecipientNickname,
				Text:               body.Message,
			})
		}
	case routeGetMessages:
		var body getMessagesBody
		if err = decodeBody(event.Body, &body); err == nil {
			err = h.history.GetMessages(ctx, usecase.GetMessagesInput{
				ConnectionID:   connectionID,
				TargetNickname: body.TargetNickname,
				Limit:          body.Limit,
				StartKey:       body.StartKey,
			})
		}
	default:
		return response(http.StatusInternalServerError, ""), nil
	}

	if err == nil {
		return response(http.StatusOK, "ok"), nil
	}
	if !isClientError(err) {
		return events.APIGatewayProxyResponse{}, err
	}

	h.pushError(ctx, connectionID, err)
	if routeKey == routeConnect {
		// The session is not fully open yet; refuse it so the transport
		// closes the connection.
		return response(http.StatusForbidden, ""), nil
	}
	return response(http.StatusOK, "ok"), nil
}

func (h *Handler) pushError(ctx context.Context, connectionID string, err error) {
	message := "invalid request"
	var ucErr *usecase.Error
	if errors.As(err, &ucErr) {
		message = ucErr.Reason
	}
	if pushErr := h.gateway.Post(ctx, connectionID, domain.ErrorPush(message)); pushErr != nil {
		slog.Warn("failed to push error reply", "connectionId", connectionID, "err", pushErr)
	}
}

func decodeBody(raw string, v any) error {
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return &usecase.Error{Code: usecase.ErrorValidation, Reason: "malformed_body", Err: err}
	}
	return nil
}

func isClientError(err error) bool {
	var ucErr *usecase.Error
	if !errors.As(err, &ucErr) {
		return false
	}
	switch ucErr.Code {
	case usecase.ErrorValidation, usecase.ErrorNicknameTaken, usecase.ErrorUnauthenticated:
		return true
	}
	return false
}

func response(code int, body string) events.APIGatewayProxyResponse {
	return events.APIGatewayProxyResponse{
		StatusCode: code,
		Body:       body,
	}
}
