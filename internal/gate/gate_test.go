// ABOUTME: Table tests for the pure admission rules
// ABOUTME: Covers ordering, filters, pause-expiry boundaries and the self-chat rewrite

package gate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wassist/handoff-gateway/internal/config"
	"github.com/wassist/handoff-gateway/internal/event"
	"github.com/wassist/handoff-gateway/internal/store"
)

func testAdmissionConfig() config.AdmissionConfig {
	return config.AdmissionConfig{
		OwnerWID:          "972500000001@c.us",
		AuthorizedNumbers: []string{"972526672663", "972542619636"},
		WhitelistKeywords: []string{"Office", "מרפאה"},
		BlacklistNames:    []string{"Karin"},
		UnpausePhrases:    []string{"resume bot", "חזרי לעבודה"},
		VIPChatID:         "972542619636@c.us",
		GroupSuffix:       "@g.us",
		AudioPlaceholder:  "[voice message]",
		PauseDuration:     6 * time.Hour,
		VIPPauseDuration:  24 * time.Hour,
	}
}

func noSession(string) *store.Session { return nil }

func pausedSession(lastHuman time.Time) SessionLookup {
	return func(string) *store.Session {
		return &store.Session{IsPaused: true, LastHumanAt: &lastHuman}
	}
}

func incoming(chatID string) *event.InboundEvent {
	return &event.InboundEvent{
		Type:        event.TypeIncoming,
		ChatID:      chatID,
		SenderID:    chatID,
		MessageID:   "msg-1",
		MessageText: "hello",
	}
}

func TestClassifyRuleOrder(t *testing.T) {
	cfg := testAdmissionConfig()
	now := time.Now()

	tests := []struct {
		name       string
		ev         *event.InboundEvent
		lookup     SessionLookup
		wantTag    string
		wantChange *SessionChange
	}{
		{
			name: "manual outgoing to third party pauses",
			ev: &event.InboundEvent{
				Type:        event.TypeOutgoing,
				ChatID:      "972526672663@c.us",
				MessageText: "I'll take it from here",
			},
			lookup:     noSession,
			wantTag:    TagPaused,
			wantChange: &SessionChange{Pause: true},
		},
		{
			name: "manual outgoing with resume phrase unpauses",
			ev: &event.InboundEvent{
				Type:        event.TypeOutgoing,
				ChatID:      "972526672663@c.us",
				MessageText: "ok RESUME BOT please",
			},
			lookup:     noSession,
			wantTag:    TagUnpaused,
			wantChange: &SessionChange{Pause: false},
		},
		{
			name: "localized resume phrase matches exactly",
			ev: &event.InboundEvent{
				Type:        event.TypeOutgoingAPI,
				ChatID:      "972526672663@c.us",
				MessageText: "חזרי לעבודה",
			},
			lookup:     noSession,
			wantTag:    TagUnpaused,
			wantChange: &SessionChange{Pause: false},
		},
		{
			name: "api-sent outgoing is acknowledged only",
			ev: &event.InboundEvent{
				Type:       event.TypeOutgoingAPI,
				ChatID:     "972526672663@c.us",
				SentViaAPI: true,
			},
			lookup:  noSession,
			wantTag: TagIgnored,
		},
		{
			name:    "unclassified event type is acknowledged only",
			ev:      &event.InboundEvent{Type: event.TypeOther, ChatID: "972526672663@c.us"},
			lookup:  noSession,
			wantTag: TagIgnored,
		},
		{
			name:    "group chat is ignored",
			ev:      incoming("120363000000000001@g.us"),
			lookup:  noSession,
			wantTag: TagIgnoredGroup,
		},
		{
			name: "group filter outranks allow list",
			ev: &event.InboundEvent{
				Type:        event.TypeIncoming,
				ChatID:      "120363000000000001@g.us",
				SenderID:    "972526672663@c.us",
				MessageText: "hello",
			},
			lookup:  noSession,
			wantTag: TagIgnoredGroup,
		},
		{
			name:    "unknown sender is ignored",
			ev:      incoming("972500999999@c.us"),
			lookup:  noSession,
			wantTag: TagIgnoredWhitelist,
		},
		{
			name: "keyword in chat name authorizes",
			ev: &event.InboundEvent{
				Type:        event.TypeIncoming,
				ChatID:      "972500999999@c.us",
				SenderID:    "972500999999@c.us",
				ChatName:    "Dr. Levi Office",
				MessageText: "hi",
			},
			lookup:  noSession,
			wantTag: TagForwarded,
		},
		{
			name: "blacklisted name is ignored",
			ev: &event.InboundEvent{
				Type:        event.TypeIncoming,
				ChatID:      "972500999999@c.us",
				SenderID:    "972500999999@c.us",
				SenderName:  "Karin Office",
				MessageText: "hi",
			},
			lookup:  noSession,
			wantTag: TagIgnoredBlacklist,
		},
		{
			name: "allow-listed number bypasses the blacklist",
			ev: &event.InboundEvent{
				Type:        event.TypeIncoming,
				ChatID:      "972526672663@c.us",
				SenderID:    "972526672663@c.us",
				SenderName:  "Karin",
				MessageText: "hi",
			},
			lookup:  noSession,
			wantTag: TagForwarded,
		},
		{
			name:    "admitted message with no session forwards in foreground",
			ev:      incoming("972526672663@c.us"),
			lookup:  noSession,
			wantTag: TagForwarded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision, change := Classify(now, tt.ev, tt.lookup, cfg)
			assert.Equal(t, tt.wantTag, decision.Tag)
			assert.Equal(t, tt.wantChange, change)
			if tt.wantTag == TagForwarded {
				require.NotNil(t, decision.Forward)
				assert.False(t, decision.Forward.Background)
			} else {
				assert.Nil(t, decision.Forward)
			}
		})
	}
}

func TestClassifySelfChatRewrite(t *testing.T) {
	cfg := testAdmissionConfig()

	ev := &event.InboundEvent{
		Type:        event.TypeOutgoing,
		ChatID:      cfg.OwnerWID,
		MessageText: "what is on my calendar",
	}

	decision, change := Classify(time.Now(), ev, noSession, cfg)

	// A note-to-self is a command to the bot, never a hand-off.
	assert.Equal(t, TagIgnoredWhitelist, decision.Tag)
	assert.Nil(t, change)

	// The original event is left untouched by the rewrite.
	assert.Equal(t, event.TypeOutgoing, ev.Type)
	assert.Empty(t, ev.SenderID)
}

func TestClassifySelfChatRewriteAuthorized(t *testing.T) {
	cfg := testAdmissionConfig()
	cfg.AuthorizedNumbers = append(cfg.AuthorizedNumbers, "972500000001")

	ev := &event.InboundEvent{
		Type:        event.TypeOutgoing,
		ChatID:      cfg.OwnerWID,
		MessageText: "what is on my calendar",
	}

	decision, change := Classify(time.Now(), ev, noSession, cfg)
	require.Equal(t, TagForwarded, decision.Tag)
	assert.Nil(t, change)
	assert.Equal(t, "what is on my calendar", decision.Forward.Message)
	assert.False(t, decision.Forward.Background)
}

func TestClassifyPauseWindow(t *testing.T) {
	cfg := testAdmissionConfig()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name           string
		chatID         string
		handOffAgo     time.Duration
		wantBackground bool
		wantUnpause    bool
	}{
		{"just paused", "972526672663@c.us", time.Second, true, false},
		{"one second before expiry", "972526672663@c.us", 6*time.Hour - time.Second, true, false},
		{"one second past expiry", "972526672663@c.us", 6*time.Hour + time.Second, false, true},
		{"vip still paused past the standard window", "972542619636@c.us", 7 * time.Hour, true, false},
		{"vip one second before expiry", "972542619636@c.us", 24*time.Hour - time.Second, true, false},
		{"vip one second past expiry", "972542619636@c.us", 24*time.Hour + time.Second, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lookup := pausedSession(now.Add(-tt.handOffAgo))
			decision, change := Classify(now, incoming(tt.chatID), lookup, cfg)

			require.Equal(t, TagForwarded, decision.Tag)
			require.NotNil(t, decision.Forward)
			assert.Equal(t, tt.wantBackground, decision.Forward.Background)
			if tt.wantUnpause {
				require.NotNil(t, change)
				assert.False(t, change.Pause)
			} else {
				assert.Nil(t, change)
			}
		})
	}
}

func TestClassifyPausedWithoutTimestampExpires(t *testing.T) {
	cfg := testAdmissionConfig()
	lookup := func(string) *store.Session {
		return &store.Session{IsPaused: true}
	}

	decision, change := Classify(time.Now(), incoming("972526672663@c.us"), lookup, cfg)

	require.Equal(t, TagForwarded, decision.Tag)
	assert.False(t, decision.Forward.Background)
	require.NotNil(t, change)
	assert.False(t, change.Pause)
}

func TestClassifyUnpausedSessionStaysForeground(t *testing.T) {
	cfg := testAdmissionConfig()
	lookup := func(string) *store.Session {
		return &store.Session{IsPaused: false}
	}

	decision, change := Classify(time.Now(), incoming("972526672663@c.us"), lookup, cfg)

	require.Equal(t, TagForwarded, decision.Tag)
	assert.False(t, decision.Forward.Background)
	assert.Nil(t, change)
}

func TestBuildForwardAudio(t *testing.T) {
	cfg := testAdmissionConfig()

	ev := incoming("972526672663@c.us")
	ev.MessageText = ""
	ev.IsAudio = true
	ev.Attachment = &event.Attachment{
		DownloadURL: "https://media.example/file.ogg",
		MimeType:    "audio/ogg",
	}

	decision, _ := Classify(time.Now(), ev, noSession, cfg)
	require.Equal(t, TagForwarded, decision.Tag)

	fwd := decision.Forward
	assert.Equal(t, MessageTypeAudio, fwd.MessageType)
	assert.Equal(t, cfg.AudioPlaceholder, fwd.Message)
	assert.Equal(t, "https://media.example/file.ogg", fwd.DownloadURL)
	assert.Equal(t, "audio/ogg", fwd.MimeType)
}

func TestBuildForwardAudioWithCaption(t *testing.T) {
	cfg := testAdmissionConfig()

	ev := incoming("972526672663@c.us")
	ev.MessageText = "listen to this"
	ev.IsAudio = true

	decision, _ := Classify(time.Now(), ev, noSession, cfg)
	require.Equal(t, TagForwarded, decision.Tag)
	assert.Equal(t, "listen to this", decision.Forward.Message)
	assert.Equal(t, MessageTypeAudio, decision.Forward.MessageType)
}

func TestContainsUnpausePhrase(t *testing.T) {
	phrases := []string{"resume bot", "חזרי לעבודה"}

	assert.True(t, containsUnpausePhrase("Resume Bot now", phrases))
	assert.True(t, containsUnpausePhrase("בסדר, חזרי לעבודה בבקשה", phrases))
	assert.False(t, containsUnpausePhrase("resume", phrases))
	assert.False(t, containsUnpausePhrase("", phrases))
	assert.False(t, containsUnpausePhrase("anything", nil))
}
