package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"easy-chat-server/internal/domain"
)

// ConnectionStore holds the live connection records.
type ConnectionStore interface {
	PutConnection(ctx context.Context, conn domain.Connection) error
	DeleteConnection(ctx context.Context, connectionID string) error
	GetConnection(ctx context.Context, connectionID string) (domain.Connection, bool, error)
	FindConnectionByNickname(ctx context.Context, nickname string) (domain.Connection, bool, error)
	ListConnections(ctx context.Context) ([]domain.Connection, error)
}

// Pusher delivers a payload to a single open session.
type Pusher interface {
	Post(ctx context.Context, connectionID string, payload any) error
}

// RosterNotifier broadcasts the current roster after a presence change.
type RosterNotifier interface {
	NotifyAll(ctx context.Context, excludeConnectionID string) error
}

// Registry maps connections to nicknames and reaps stale bindings.
type Registry struct {
	store    ConnectionStore
	gateway  Pusher
	notifier RosterNotifier
}

func NewRegistry(store ConnectionStore, gateway Pusher, notifier RosterNotifier) (*Registry, error) {
	if store == nil {
		return nil, errors.New("usecase: connection store must not be nil")
	}
	if gateway == nil {
		return nil, errors.New("usecase: push gateway must not be nil")
	}
	if notifier == nil {
		return nil, errors.New("usecase: roster notifier must not be nil")
	}
	return &Registry{store: store, gateway: gateway, notifier: notifier}, nil
}

// Bind claims a nickname for a newly opened session. If another connection
// holds the nickname it is probed with a ping; only a session the gateway
// reports gone may be displaced. The probe and the write are not atomic, so
// two simultaneous binds for the same nickname can both succeed.
func (r *Registry) Bind(ctx context.Context, connectionID, nickname string) error {
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		return newError(ErrorValidation, "missing_nickname", nil)
	}

	existing, found, err := r.store.FindConnectionByNickname(ctx, nickname)
	if err != nil {
		return newError(ErrorInfrastructure, "connection_lookup_error", err)
	}
	if found && existing.ConnectionID != connectionID {
		probeErr := r.gateway.Post(ctx, existing.ConnectionID, domain.PingPush())
		switch {
		case probeErr == nil:
			return newError(ErrorNicknameTaken, "nickname_in_use", nil)
		case isGone(probeErr):
			r.Reap(ctx, existing.ConnectionID)
		default:
			return newError(ErrorInfrastructure, "liveness_probe_error", probeErr)
		}
	}

	if err := r.store.PutConnection(ctx, domain.Connection{ConnectionID: connectionID, Nickname: nickname}); err != nil {
		return newError(ErrorInfrastructure, "connection_write_error", err)
	}
	// The new connection requests its own roster separately.
	return r.notifier.NotifyAll(ctx, connectionID)
}

// Unbind releases a connection's record when its session closes. Deleting
// an id that was never bound, or was already reaped, succeeds.
func (r *Registry) Unbind(ctx context.Context, connectionID string) error {
	if err := r.store.DeleteConnection(ctx, connectionID); err != nil {
		return newError(ErrorInfrastructure, "connection_delete_error", err)
	}
	return r.notifier.NotifyAll(ctx, connectionID)
}

// Lookup resolves a nickname to its live connection, if any.
func (r *Registry) Lookup(ctx context.Context, nickname string) (domain.Connection, bool, error) {
	conn, found, err := r.store.FindConnectionByNickname(ctx, nickname)
	if err != nil {
		return domain.Connection{}, false, newError(ErrorInfrastructure, "connection_lookup_error", err)
	}
	return conn, found, nil
}

// Reap deletes a connection record after a failed delivery to it. It never
// returns an error; the requester that triggered the delivery is not at fault.
func (r *Registry) Reap(ctx context.Context, connectionID string) {
	reapConnection(ctx, r.store, connectionID)
}

func reapConnection(ctx context.Context, store ConnectionStore, connectionID string) {
	if err := store.DeleteConnection(ctx, connectionID); err != nil {
		slog.Warn("failed to reap stale connection", "connectionId", connectionID, "err", err)
	}
}
