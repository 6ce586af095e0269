package chat

import (
	"encoding/json"

	"github.com/kuitang/agent-dashboard/internal/completion"
)

// Sender identifies who wrote a message.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
	// senderLegacyBot is how older transcripts spell the assistant.
	senderLegacyBot = "bot"
)

func (s *Sender) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if raw == senderLegacyBot {
		raw = string(SenderAssistant)
	}
	*s = Sender(raw)
	return nil
}

// Message is one transcript entry. Timestamp is Unix milliseconds.
type Message struct {
	ID        string `json:"id"`
	Sender    Sender `json:"sender"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

func (m Message) EntityID() string { return m.ID }

// Turn maps the message onto the completion endpoint's roles.
func (m Message) Turn() completion.Turn {
	if m.Sender == SenderUser {
		return completion.Turn{Role: completion.RoleUser, Text: m.Text}
	}
	return completion.Turn{Role: completion.RoleAssistant, Text: m.Text}
}

// Turns converts a transcript into completion turns.
func Turns(msgs []Message) []completion.Turn {
	out := make([]completion.Turn, len(msgs))
	for i, m := range msgs {
		out[i] = m.Turn()
	}
	return out
}
