package pgstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/goliatone/go-settings/pkg/state"
)

// DefaultChannel is the LISTEN/NOTIFY channel carrying setting changes.
const DefaultChannel = "site_settings_changed"

// Notifier publishes each change as pg_notify(channel, "site:name").
type Notifier struct {
	pool    *pgxpool.Pool
	channel string
}

// NewNotifier returns a notifier on channel, or DefaultChannel when empty.
func NewNotifier(pool *pgxpool.Pool, channel string) *Notifier {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Notifier{pool: pool, channel: channel}
}

// Notify implements state.Notifier.
func (n *Notifier) Notify(ctx context.Context, change state.Change) error {
	payload, err := change.Ref().Identifier()
	if err != nil {
		return err
	}
	if _, err := n.pool.Exec(ctx, `SELECT pg_notify($1, $2)`, n.channel, payload); err != nil {
		return fmt.Errorf("pgstore: notify %s: %w", n.channel, err)
	}
	return nil
}

// Listener receives change notifications published by Notifier.
type Listener struct {
	pool    *pgxpool.Pool
	channel string
	onError func(error)
}

// NewListener returns a listener on channel, or DefaultChannel when empty.
// Malformed payloads are reported to onError, which may be nil.
func NewListener(pool *pgxpool.Pool, channel string, onError func(error)) *Listener {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Listener{pool: pool, channel: channel, onError: onError}
}

// Listen holds one pooled connection and calls fn for every notification
// until ctx is done. A cancelled context ends Listen with a nil error.
func (l *Listener) Listen(ctx context.Context, fn func(ctx context.Context, ref state.Ref)) error {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("pgstore: acquire listener connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{l.channel}.Sanitize()); err != nil {
		return fmt.Errorf("pgstore: listen %s: %w", l.channel, err)
	}

	for {
		notification, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("pgstore: wait for notification: %w", err)
		}
		ref, err := state.ParseIdentifier(notification.Payload)
		if err != nil {
			if l.onError != nil {
				l.onError(err)
			}
			continue
		}
		fn(ctx, ref)
	}
}
