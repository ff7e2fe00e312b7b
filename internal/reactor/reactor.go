// Package reactor turns steady-state session events into outbound calls:
// staying invisible and acknowledging status broadcasts.
package reactor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/vburojevic/lurk/internal/domain"
)

// DefaultEphemeral is the expiration attached to self-notifications.
const DefaultEphemeral = 24 * time.Hour

// Client is the subset of a session the reactor drives.
type Client interface {
	User() domain.User
	SendMessage(ctx context.Context, to domain.JID, msg domain.OutgoingMessage) error
	MarkRead(ctx context.Context, keys []domain.MessageKey) error
	SetPresence(ctx context.Context, p domain.Presence) error
}

// Stats counts what the reactor did.
type Stats struct {
	Messages    int
	StatusRead  int
	Duplicates  int
	PresenceAck int
}

// Reactor handles presence queries and inbound messages for one session.
type Reactor struct {
	client    Client
	seen      *SeenFilter
	ephemeral time.Duration
	logger    *zap.Logger
	stats     Stats
}

// New builds a reactor bound to client. seen may be shared across sessions so
// that redelivered status messages are acknowledged once per process.
func New(client Client, seen *SeenFilter, ephemeral time.Duration, logger *zap.Logger) *Reactor {
	if seen == nil {
		seen = NewSeenFilter(nil, 0)
	}
	if ephemeral <= 0 {
		ephemeral = DefaultEphemeral
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reactor{
		client:    client,
		seen:      seen,
		ephemeral: ephemeral,
		logger:    logger.Named("reactor"),
	}
}

// Stats returns the counters accumulated so far.
func (r *Reactor) Stats() Stats { return r.stats }

// HandlePresence answers every presence query by going unavailable again.
func (r *Reactor) HandlePresence(ctx context.Context, q domain.PresenceQuery) error {
	r.stats.PresenceAck++
	if err := r.client.SetPresence(ctx, domain.PresenceUnavailable); err != nil {
		return fmt.Errorf("set presence after query from %s: %w", q.From, err)
	}
	return nil
}

// HandleMessages acknowledges status broadcasts from other participants and
// ignores everything else. A failed status does not stop the rest of the
// batch; it is forgotten so a redelivery can retry it.
func (r *Reactor) HandleMessages(ctx context.Context, up domain.MessagesUpsert) error {
	r.stats.Messages += len(up.Messages)
	statuses := lo.Filter(up.Messages, func(m domain.Message, _ int) bool {
		return isStatusFromOther(m)
	})
	var errs []error
	for _, m := range statuses {
		key := string(m.Key.Participant) + "/" + m.Key.ID
		if res := r.seen.Check(key); !res.First {
			r.stats.Duplicates++
			r.logger.Debug("status already read", zap.String("id", m.Key.ID), zap.Int("count", res.Count))
			continue
		}
		if err := r.readStatus(ctx, m); err != nil {
			r.seen.Forget(key)
			errs = append(errs, err)
			continue
		}
		r.stats.StatusRead++
	}
	return errors.Join(errs...)
}

func isStatusFromOther(m domain.Message) bool {
	return !m.Key.FromMe && m.Key.RemoteJID == domain.StatusBroadcast
}

func (r *Reactor) readStatus(ctx context.Context, m domain.Message) error {
	if err := r.client.MarkRead(ctx, []domain.MessageKey{m.Key}); err != nil {
		return fmt.Errorf("mark status %s read: %w", m.Key.ID, err)
	}

	self := r.client.User().ID.Normalized()
	quoted := m
	note := domain.OutgoingMessage{
		Text:      "Read Story @" + m.Key.Participant.User(),
		Mentions:  []domain.JID{m.Key.Participant},
		Quoted:    &quoted,
		Ephemeral: r.ephemeral,
	}
	if err := r.client.SendMessage(ctx, self, note); err != nil {
		return fmt.Errorf("send status note for %s: %w", m.Key.ID, err)
	}
	r.logger.Info("status read", zap.String("participant", string(m.Key.Participant)), zap.String("id", m.Key.ID))
	return nil
}
