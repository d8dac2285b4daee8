// ABOUTME: Chat processor: turns one admitted message into an assistant reply
// ABOUTME: Handles typing, voice transcription, background suppression and the send

package chat

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/wassist/handoff-gateway/internal/greenapi"
	"github.com/wassist/handoff-gateway/internal/store"
)

// Request is one admitted message handed over by the gate's forward client.
// The field names are the forward wire format.
type Request struct {
	ChatID      string `json:"chatId"`
	Message     string `json:"message"`
	MessageID   string `json:"messageId"`
	MessageType string `json:"messageType"`
	DownloadURL string `json:"downloadUrl"`
	MimeType    string `json:"mimeType"`

	// Background (isPaused on the wire): generate the reply but do not send
	// it, a human is handling the chat.
	Background bool `json:"isPaused"`
}

// Response reports what the processor did with the message.
type Response struct {
	Reply      string `json:"reply"`
	Suppressed bool   `json:"suppressed"`
	ReplyKind  string `json:"replyKind"` // "text" or "audio", empty when suppressed
}

// Sender is the WhatsApp surface the processor replies through.
type Sender interface {
	SendMessage(ctx context.Context, chatID, message string) (*greenapi.SendResult, error)
	SendFileByUpload(ctx context.Context, chatID, fileName string, data []byte) (*greenapi.SendResult, error)
	SendTyping(ctx context.Context, chatID string) error
	DownloadFile(ctx context.Context, downloadURL string) ([]byte, string, error)
}

// Speech converts between voice audio and text.
type Speech interface {
	Enabled() bool
	Transcribe(ctx context.Context, audio []byte, fileName string) (string, error)
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Replier produces the assistant's answer.
type Replier interface {
	Reply(ctx context.Context, senderID, message string) (string, error)
}

// Service processes admitted messages end to end.
type Service struct {
	sender  Sender
	speech  Speech
	replier Replier
	store   store.Store
	logger  *slog.Logger
}

// NewService creates a chat processor. speech may be nil when voice support
// is not configured.
func NewService(sender Sender, speech Speech, replier Replier, st store.Store, logger *slog.Logger) *Service {
	return &Service{
		sender:  sender,
		speech:  speech,
		replier: replier,
		store:   st,
		logger:  logger.With("component", "chat"),
	}
}

// Process generates and delivers the reply for one admitted message.
// A background request still generates the reply (the conversation state
// moves forward) but suppresses the visible send.
func (s *Service) Process(ctx context.Context, req *Request) (*Response, error) {
	if !req.Background {
		if err := s.sender.SendTyping(ctx, req.ChatID); err != nil {
			s.logger.Debug("typing indicator failed", "chat_id", req.ChatID, "error", err)
		}
	}

	prompt, wasAudio := s.resolvePrompt(ctx, req)

	reply, err := s.replier.Reply(ctx, req.ChatID, prompt)
	if err != nil {
		return nil, fmt.Errorf("generating reply for %s: %w", req.ChatID, err)
	}

	if req.Background {
		s.logger.Info("reply suppressed, chat is handed off", "chat_id", req.ChatID)
		return &Response{Reply: reply, Suppressed: true}, nil
	}

	kind, err := s.deliver(ctx, req.ChatID, reply, wasAudio)
	if err != nil {
		return nil, err
	}
	return &Response{Reply: reply, ReplyKind: kind}, nil
}

// resolvePrompt returns the text handed to the model. Voice notes are
// transcribed when speech is configured; any failure falls back to the
// placeholder text the gate already put in the message.
func (s *Service) resolvePrompt(ctx context.Context, req *Request) (prompt string, wasAudio bool) {
	if req.MessageType != "audio" {
		return req.Message, false
	}
	if s.speech == nil || !s.speech.Enabled() || req.DownloadURL == "" {
		return req.Message, true
	}

	audio, _, err := s.sender.DownloadFile(ctx, req.DownloadURL)
	if err != nil {
		s.logger.Error("voice note download failed", "chat_id", req.ChatID, "error", err)
		return req.Message, true
	}

	text, err := s.speech.Transcribe(ctx, audio, fileNameFor(req.MimeType))
	if err != nil || text == "" {
		s.logger.Error("transcription failed, using placeholder", "chat_id", req.ChatID, "error", err)
		return req.Message, true
	}

	s.logger.Debug("voice note transcribed", "chat_id", req.ChatID)
	return text, true
}

// deliver sends the reply, spoken when the user spoke and speech is
// configured. Synthesis failures degrade to a text send rather than silence.
func (s *Service) deliver(ctx context.Context, chatID, reply string, wasAudio bool) (string, error) {
	if wasAudio && s.speech != nil && s.speech.Enabled() {
		audio, err := s.speech.Synthesize(ctx, reply)
		if err != nil {
			s.logger.Error("synthesis failed, replying with text", "chat_id", chatID, "error", err)
		} else {
			result, err := s.sender.SendFileByUpload(ctx, chatID, "reply.mp3", audio)
			if err != nil {
				return "", fmt.Errorf("sending voice reply to %s: %w", chatID, err)
			}
			s.record(ctx, chatID, result.IDMessage, reply, "audio")
			return "audio", nil
		}
	}

	result, err := s.sender.SendMessage(ctx, chatID, reply)
	if err != nil {
		return "", fmt.Errorf("sending reply to %s: %w", chatID, err)
	}
	s.record(ctx, chatID, result.IDMessage, reply, "text")
	return "text", nil
}

// record logs the sent message. The messages table is observability, not
// state: a failed insert must not fail the send that already happened.
func (s *Service) record(ctx context.Context, chatID, providerID, text, kind string) {
	err := s.store.SaveMessage(ctx, &store.SentMessage{
		ChatID:     chatID,
		ProviderID: providerID,
		Text:       text,
		Kind:       kind,
	})
	if err != nil {
		s.logger.Warn("recording sent message failed", "chat_id", chatID, "error", err)
	}
}

// fileNameFor picks an upload name whose extension matches the mime type;
// the transcription API sniffs format from the name.
func fileNameFor(mimeType string) string {
	switch mimeType {
	case "audio/mpeg":
		return "note.mp3"
	case "audio/mp4":
		return "note.m4a"
	default:
		return "note.ogg"
	}
}
