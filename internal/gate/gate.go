// ABOUTME: Pure classification logic for the admission and human-handoff gate
// ABOUTME: Evaluates the fixed rule order over one event and the chat's pause record

package gate

import (
	"strings"
	"time"

	"github.com/wassist/handoff-gateway/internal/config"
	"github.com/wassist/handoff-gateway/internal/event"
	"github.com/wassist/handoff-gateway/internal/store"
)

// SessionLookup returns the current pause record for a chat, or nil when the
// chat has none. Lookup failures must be absorbed by the caller (fail open to
// active) so classification never blocks on a read error.
type SessionLookup func(chatID string) *store.Session

// Classify runs the admission rules over one normalized event and returns the
// routing decision plus the session write it requires (nil for none).
//
// The rules are evaluated strictly in order; each either terminates with a
// decision or falls through:
//
//  1. A manually-typed message to the owner's own chat is rewritten as an
//     incoming prompt (the self-chat is a command channel).
//  2. A manually-typed outgoing message containing an unpause phrase resumes
//     the bot for that chat.
//  3. Any other manually-typed outgoing message to a third party is a human
//     hand-off: pause the bot for that chat.
//  4. Remaining outgoing or unclassified events are acknowledged, no action.
//  5. Incoming messages continue through the filters:
//  6. group chats are ignored;
//  7. unauthorized senders (neither allow-listed number nor keyword-matched
//     display name) are ignored;
//  8. blacklisted display names are ignored, unless the number itself is
//     allow-listed;
//  9. a live pause keeps the chat in background mode until it expires, with
//     the VIP chat getting the longer duration;
//  10. everything left is forwarded to the chat processor.
func Classify(now time.Time, ev *event.InboundEvent, lookup SessionLookup, cfg config.AdmissionConfig) (Decision, *SessionChange) {
	ownerWID := ev.OwnerWID
	if ownerWID == "" {
		ownerWID = cfg.OwnerWID
	}

	manualOutgoing := (ev.Type == event.TypeOutgoing || ev.Type == event.TypeOutgoingAPI) && !ev.SentViaAPI

	// Rule 1: self-outgoing reclassification.
	if manualOutgoing && ev.ChatID == ownerWID {
		rewritten := *ev
		rewritten.Type = event.TypeIncoming
		rewritten.SenderID = ownerWID
		if rewritten.SenderName == "" {
			rewritten.SenderName = "Owner"
		}
		ev = &rewritten
		manualOutgoing = false
	}

	// Rule 2: unpause command.
	if manualOutgoing && containsUnpausePhrase(ev.MessageText, cfg.UnpausePhrases) {
		return Decision{Tag: TagUnpaused, ChatID: ev.ChatID}, &SessionChange{Pause: false}
	}

	// Rule 3: human hand-off detection.
	if manualOutgoing && ev.ChatID != ownerWID {
		return Decision{Tag: TagPaused, ChatID: ev.ChatID}, &SessionChange{Pause: true}
	}

	// Rule 4: everything that is not an incoming message is acknowledged only.
	if ev.Type != event.TypeIncoming {
		return Decision{Tag: TagIgnored, ChatID: ev.ChatID}, nil
	}

	// Rule 6: group filter.
	if strings.HasSuffix(ev.ChatID, cfg.GroupSuffix) {
		return Decision{Tag: TagIgnoredGroup, ChatID: ev.ChatID}, nil
	}

	// Rule 7: authorization filter.
	authorizedNumber := containsString(cfg.AuthorizedNumbers, event.BareNumber(ev.SenderID))
	authorizedKeyword := nameMatchesAny(ev.SenderName, ev.ChatName, cfg.WhitelistKeywords)
	if !authorizedNumber && !authorizedKeyword {
		return Decision{Tag: TagIgnoredWhitelist, ChatID: ev.ChatID}, nil
	}

	// Rule 8: blacklist filter. An allow-listed number is never blacklisted.
	if !authorizedNumber && nameMatchesAny(ev.SenderName, ev.ChatName, cfg.BlacklistNames) {
		return Decision{Tag: TagIgnoredBlacklist, ChatID: ev.ChatID}, nil
	}

	// Rule 9: pause-expiry check.
	background := false
	var change *SessionChange
	if session := lookup(ev.ChatID); session != nil && session.IsPaused {
		if withinPause(now, session, ev.ChatID, cfg) {
			background = true
		} else {
			change = &SessionChange{Pause: false}
		}
	}

	// Rule 10: forward.
	return Decision{
		Tag:     TagForwarded,
		ChatID:  ev.ChatID,
		Forward: buildForward(ev, cfg, background),
	}, change
}

// withinPause reports whether a paused session is still inside its pause
// window. A paused record without a hand-off timestamp counts as expired.
func withinPause(now time.Time, session *store.Session, chatID string, cfg config.AdmissionConfig) bool {
	if session.LastHumanAt == nil {
		return false
	}

	duration := cfg.PauseDuration
	if chatID == cfg.VIPChatID {
		duration = cfg.VIPPauseDuration
	}

	return now.Sub(*session.LastHumanAt) < duration
}

// buildForward shapes the chat-processor request for an admitted event.
func buildForward(ev *event.InboundEvent, cfg config.AdmissionConfig, background bool) *ForwardRequest {
	req := &ForwardRequest{
		ChatID:      ev.ChatID,
		Message:     ev.MessageText,
		MessageID:   ev.MessageID,
		MessageType: MessageTypeText,
		Background:  background,
	}

	if ev.IsAudio {
		req.MessageType = MessageTypeAudio
		if req.Message == "" {
			req.Message = cfg.AudioPlaceholder
		}
		if ev.Attachment != nil {
			req.DownloadURL = ev.Attachment.DownloadURL
			req.MimeType = ev.Attachment.MimeType
		}
	}

	return req
}

// containsUnpausePhrase reports whether text contains any configured resume
// phrase. ASCII phrases match case-insensitively; localized phrases match as
// exact substrings.
func containsUnpausePhrase(text string, phrases []string) bool {
	lower := strings.ToLower(text)
	for _, phrase := range phrases {
		if phrase == "" {
			continue
		}
		if isASCII(phrase) {
			if strings.Contains(lower, strings.ToLower(phrase)) {
				return true
			}
		} else if strings.Contains(text, phrase) {
			return true
		}
	}
	return false
}

// nameMatchesAny reports whether either display name contains any of the terms.
func nameMatchesAny(senderName, chatName string, terms []string) bool {
	for _, term := range terms {
		if term == "" {
			continue
		}
		if strings.Contains(senderName, term) || strings.Contains(chatName, term) {
			return true
		}
	}
	return false
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}
