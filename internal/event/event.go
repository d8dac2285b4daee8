// ABOUTME: Normalized inbound WhatsApp event model for the admission gate
// ABOUTME: Converts raw Green API webhook payloads into strongly-typed events

package event

import (
	"encoding/json"
	"strings"
)

// Type classifies a webhook notification.
type Type string

const (
	TypeIncoming    Type = "incoming"     // incomingMessageReceived
	TypeOutgoing    Type = "outgoing"     // outgoingMessageReceived (sent from the phone)
	TypeOutgoingAPI Type = "outgoing_api" // outgoingAPIMessageReceived (sent through the API)
	TypeOther       Type = "other"        // anything else, including malformed payloads
)

// Attachment describes a file carried by a message, if any.
type Attachment struct {
	DownloadURL string
	MimeType    string
	FileName    string
}

// InboundEvent is one normalized webhook notification. Every optional field
// of the raw payload has an explicit zero-value fallback here, so downstream
// logic never touches the vendor JSON shape.
type InboundEvent struct {
	Type        Type
	ChatID      string
	SenderID    string
	SenderName  string
	ChatName    string
	OwnerWID    string // the bot-owning account's own WhatsApp id
	SentViaAPI  bool   // true when an outgoing message originated from the bot itself
	MessageID   string
	MessageText string
	IsAudio     bool
	Attachment  *Attachment
}

// notification mirrors the subset of the Green API webhook body the gate
// consumes. This is the only type that knows the wire shape.
type notification struct {
	TypeWebhook string `json:"typeWebhook"`
	ChatID      string `json:"chatId"`
	IDMessage   string `json:"idMessage"`
	SendByAPI   bool   `json:"sendByApi"`

	InstanceData struct {
		WID string `json:"wid"`
	} `json:"instanceData"`

	SenderData struct {
		ChatID     string `json:"chatId"`
		Sender     string `json:"sender"`
		SenderName string `json:"senderName"`
		ChatName   string `json:"chatName"`
	} `json:"senderData"`

	MessageData struct {
		TypeMessage     string `json:"typeMessage"`
		TextMessageData struct {
			TextMessage string `json:"textMessage"`
		} `json:"textMessageData"`
		ExtendedTextMessageData struct {
			Text string `json:"text"`
		} `json:"extendedTextMessageData"`
		FileMessageData struct {
			DownloadURL string `json:"downloadUrl"`
			MimeType    string `json:"mimeType"`
			FileName    string `json:"fileName"`
		} `json:"fileMessageData"`
	} `json:"messageData"`
}

// Parse decodes a raw webhook body into a normalized InboundEvent.
// Malformed JSON or payloads without a chat id produce a TypeOther event
// rather than an error: the webhook must acknowledge everything.
func Parse(body []byte) *InboundEvent {
	var n notification
	if err := json.Unmarshal(body, &n); err != nil {
		return &InboundEvent{Type: TypeOther}
	}
	return normalize(&n)
}

// normalize maps the wire notification onto the event model.
func normalize(n *notification) *InboundEvent {
	ev := &InboundEvent{
		Type:       eventType(n.TypeWebhook),
		ChatID:     firstNonEmpty(n.ChatID, n.SenderData.ChatID),
		SenderName: n.SenderData.SenderName,
		ChatName:   n.SenderData.ChatName,
		OwnerWID:   n.InstanceData.WID,
		SentViaAPI: n.SendByAPI,
		MessageID:  n.IDMessage,
	}

	// Direct chats often omit the sender; fall back to the chat id.
	ev.SenderID = firstNonEmpty(n.SenderData.Sender, ev.ChatID)

	ev.MessageText = firstNonEmpty(
		n.MessageData.TextMessageData.TextMessage,
		n.MessageData.ExtendedTextMessageData.Text,
	)

	if n.MessageData.TypeMessage == "audioMessage" {
		ev.IsAudio = true
		ev.Attachment = &Attachment{
			DownloadURL: n.MessageData.FileMessageData.DownloadURL,
			MimeType:    n.MessageData.FileMessageData.MimeType,
			FileName:    n.MessageData.FileMessageData.FileName,
		}
	}

	// An event without a chat id cannot be routed; treat it as noise.
	if ev.ChatID == "" {
		ev.Type = TypeOther
	}

	return ev
}

// eventType maps a typeWebhook string to an event Type.
func eventType(typeWebhook string) Type {
	switch typeWebhook {
	case "incomingMessageReceived":
		return TypeIncoming
	case "outgoingMessageReceived":
		return TypeOutgoing
	case "outgoingAPIMessageReceived":
		return TypeOutgoingAPI
	default:
		return TypeOther
	}
}

// BareNumber strips the @-suffix from a WhatsApp id ("972...@c.us" -> "972...").
func BareNumber(id string) string {
	if i := strings.IndexByte(id, '@'); i >= 0 {
		return id[:i]
	}
	return id
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
