package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"easy-chat-server/internal/domain"
)

// Presence pushes the current roster of live connections.
type Presence struct {
	store   ConnectionStore
	gateway Pusher
}

func NewPresence(store ConnectionStore, gateway Pusher) (*Presence, error) {
	if store == nil {
		return nil, errors.New("usecase: connection store must not be nil")
	}
	if gateway == nil {
		return nil, errors.New("usecase: push gateway must not be nil")
	}
	return &Presence{store: store, gateway: gateway}, nil
}

// NotifyAll pushes the roster to every live connection except
// excludeConnectionID. Recipients are pushed concurrently and one
// recipient's failure never blocks delivery to the rest; a recipient the
// gateway reports gone is reaped.
func (p *Presence) NotifyAll(ctx context.Context, excludeConnectionID string) error {
	conns, err := p.store.ListConnections(ctx)
	if err != nil {
		return newError(ErrorInfrastructure, "connection_list_error", err)
	}
	payload := domain.ClientsPush(conns)

	var wg sync.WaitGroup
	for _, conn := range conns {
		if conn.ConnectionID == excludeConnectionID {
			continue
		}
		wg.Add(1)
		go func(connectionID string) {
			defer wg.Done()
			p.deliver(ctx, connectionID, payload)
		}(conn.ConnectionID)
	}
	wg.Wait()
	return nil
}

// RosterFor pushes the roster to exactly one connection, used when a client
// asks for the client list after opening its session.
func (p *Presence) RosterFor(ctx context.Context, connectionID string) error {
	conns, err := p.store.ListConnections(ctx)
	if err != nil {
		return newError(ErrorInfrastructure, "connection_list_error", err)
	}
	if err := p.gateway.Post(ctx, connectionID, domain.ClientsPush(conns)); err != nil {
		if isGone(err) {
			reapConnection(ctx, p.store, connectionID)
			return nil
		}
		return newError(ErrorInfrastructure, "roster_push_error", err)
	}
	return nil
}

func (p *Presence) deliver(ctx context.Context, connectionID string, payload domain.Envelope) {
	err := p.gateway.Post(ctx, connectionID, payload)
	switch {
	case err == nil:
	case isGone(err):
		reapConnection(ctx, p.store, connectionID)
	default:
		slog.Warn("presence push failed", "connectionId", connectionID, "err", err)
	}
}
