// ABOUTME: Scheduled job that clears expired hand-off pauses store-side
// ABOUTME: Complements the lazy per-message expiry check for idle chats

package sweeper

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/wassist/handoff-gateway/internal/config"
	"github.com/wassist/handoff-gateway/internal/store"
)

// Sweeper periodically resumes chats whose pause window has passed. Without
// it an idle chat stays paused in the store forever; nothing is wrong
// functionally (the next message clears it), but the sessions listing lies.
type Sweeper struct {
	store    store.Store
	cfg      config.AdmissionConfig
	schedule string
	logger   *slog.Logger
	cron     *cron.Cron

	now func() time.Time
}

// New creates a sweeper with the given cron schedule.
func New(st store.Store, admission config.AdmissionConfig, schedule string, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		store:    st,
		cfg:      admission,
		schedule: schedule,
		logger:   logger.With("component", "sweeper"),
		cron:     cron.New(),
		now:      time.Now,
	}
}

// Start schedules the sweep and begins running it.
func (s *Sweeper) Start() error {
	_, err := s.cron.AddFunc(s.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		s.Sweep(ctx)
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("pause sweeper started", "schedule", s.schedule)
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("pause sweeper stopped")
}

// Sweep resumes every chat whose pause has expired and returns the count.
func (s *Sweeper) Sweep(ctx context.Context) int {
	sessions, err := s.store.ListSessions(ctx)
	if err != nil {
		s.logger.Error("listing sessions failed", "error", err)
		return 0
	}

	now := s.now()
	cleared := 0
	for _, session := range sessions {
		if !session.IsPaused || !s.expired(now, session) {
			continue
		}

		update := &store.Session{
			ChatID:    session.ChatID,
			IsPaused:  false,
			UpdatedAt: now.UTC(),
		}
		if err := s.store.UpsertSession(ctx, update); err != nil {
			s.logger.Error("resuming expired pause failed", "chat_id", session.ChatID, "error", err)
			continue
		}

		s.logger.Info("expired pause cleared", "chat_id", session.ChatID)
		cleared++
	}

	if cleared > 0 {
		s.logger.Info("sweep complete", "cleared", cleared)
	}
	return cleared
}

// expired mirrors the gate's pause-window rule, VIP duration included.
func (s *Sweeper) expired(now time.Time, session *store.Session) bool {
	if session.LastHumanAt == nil {
		return true
	}

	duration := s.cfg.PauseDuration
	if session.ChatID == s.cfg.VIPChatID {
		duration = s.cfg.VIPPauseDuration
	}
	return now.Sub(*session.LastHumanAt) >= duration
}
