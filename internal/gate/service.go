// ABOUTME: Side-effecting orchestration around the pure gate classification
// ABOUTME: Applies session writes, audit entries, dedupe, and the chat forward

package gate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/wassist/handoff-gateway/internal/config"
	"github.com/wassist/handoff-gateway/internal/dedupe"
	"github.com/wassist/handoff-gateway/internal/event"
	"github.com/wassist/handoff-gateway/internal/store"
)

// Forwarder delivers an admitted event to the chat processor.
type Forwarder interface {
	Forward(ctx context.Context, req *ForwardRequest) error
}

// Service applies the gate over incoming webhook bodies and performs the
// resulting side effects. It is safe for concurrent use; the session upsert
// is the only shared state.
type Service struct {
	store     store.Store
	forwarder Forwarder
	seen      *dedupe.Cache
	cfg       config.AdmissionConfig
	logger    *slog.Logger

	// now is replaceable in tests
	now func() time.Time
}

// NewService creates a gate service. The dedupe cache may be nil to disable
// redelivery protection.
func NewService(s store.Store, f Forwarder, seen *dedupe.Cache, cfg config.AdmissionConfig, logger *slog.Logger) *Service {
	return &Service{
		store:     s,
		forwarder: f,
		seen:      seen,
		cfg:       cfg,
		logger:    logger.With("component", "gate"),
		now:       time.Now,
	}
}

// Handle classifies one raw webhook body and applies the decision.
// The returned tag is the webhook response status. An error is returned only
// for session-write failures; every other failure class is absorbed, audited,
// and converted into an acknowledge.
func (s *Service) Handle(ctx context.Context, body []byte) (string, error) {
	ev := event.Parse(body)

	if ev.Type == event.TypeOther {
		s.logger.Debug("ignoring unroutable event", "chat_id", ev.ChatID)
		s.audit(ctx, TagIgnored, ev.ChatID, map[string]any{"reason": "unroutable"})
		return TagIgnored, nil
	}

	if s.seen != nil && ev.MessageID != "" && s.seen.Seen(ev.MessageID) {
		s.logger.Debug("dropping redelivered event", "message_id", ev.MessageID, "chat_id", ev.ChatID)
		s.audit(ctx, TagDuplicate, ev.ChatID, map[string]any{"message_id": ev.MessageID})
		return TagDuplicate, nil
	}

	decision, change := Classify(s.now(), ev, s.lookup(ctx), s.cfg)

	if change != nil {
		if err := s.applyChange(ctx, decision.ChatID, change); err != nil {
			return decision.Tag, err
		}
	}

	s.audit(ctx, decision.Tag, decision.ChatID, auditDetail(ev, decision))

	if decision.Forward != nil {
		s.forward(ctx, decision.Forward)
	}

	return decision.Tag, nil
}

// lookup builds the session lookup for Classify. Read failures fail open to
// active so a degraded database never silently drops real conversations.
func (s *Service) lookup(ctx context.Context) SessionLookup {
	return func(chatID string) *store.Session {
		session, err := s.store.GetSession(ctx, chatID)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		if err != nil {
			s.logger.Error("session read failed, assuming active", "chat_id", chatID, "error", err)
			return nil
		}
		return session
	}
}

// applyChange persists a pause-state transition. Write failures propagate:
// the state is inconsistent and the caller decides whether to retry.
func (s *Service) applyChange(ctx context.Context, chatID string, change *SessionChange) error {
	now := s.now().UTC()
	session := &store.Session{
		ChatID:    chatID,
		IsPaused:  change.Pause,
		UpdatedAt: now,
	}
	if change.Pause {
		session.LastHumanAt = &now
	}

	if err := s.store.UpsertSession(ctx, session); err != nil {
		return fmt.Errorf("persisting pause state for %s: %w", chatID, err)
	}

	if change.Pause {
		s.logger.Info("human intervention detected, pausing bot", "chat_id", chatID)
	} else {
		s.logger.Info("bot resumed", "chat_id", chatID)
	}
	return nil
}

// forward hands the request to the chat processor. Failures are audited and
// absorbed: the webhook must acknowledge regardless, and the provider would
// otherwise retry-storm us.
func (s *Service) forward(ctx context.Context, req *ForwardRequest) {
	if s.forwarder == nil {
		return
	}

	if err := s.forwarder.Forward(ctx, req); err != nil {
		s.logger.Error("forward to chat processor failed", "chat_id", req.ChatID, "error", err)
		s.audit(ctx, "forward_failed", req.ChatID, map[string]any{
			"error":        err.Error(),
			"message_type": req.MessageType,
		})
		return
	}

	s.logger.Debug("forwarded to chat processor", "chat_id", req.ChatID, "background", req.Background)
}

// audit writes one trail entry. The trail is an observability contract, but a
// failed append must not take the webhook down with it.
func (s *Service) audit(ctx context.Context, tag, chatID string, detail map[string]any) {
	err := s.store.AppendAuditLog(ctx, &store.AuditEntry{
		ChatID:   chatID,
		Decision: tag,
		Detail:   detail,
	})
	if err != nil {
		s.logger.Warn("audit append failed", "decision", tag, "chat_id", chatID, "error", err)
	}
}

// auditDetail collects the identifiers relevant to a decision.
func auditDetail(ev *event.InboundEvent, decision Decision) map[string]any {
	detail := map[string]any{
		"event_type": string(ev.Type),
		"sender":     event.BareNumber(ev.SenderID),
	}
	if name := displayName(ev); name != "" {
		detail["name"] = name
	}
	if decision.Forward != nil {
		detail["message_type"] = decision.Forward.MessageType
		detail["background"] = decision.Forward.Background
	}
	return detail
}

func displayName(ev *event.InboundEvent) string {
	if ev.SenderName != "" {
		return ev.SenderName
	}
	return ev.ChatName
}
