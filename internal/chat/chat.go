// Package chat keeps a user's assistant transcript and relays new messages
// to the completion endpoint.
package chat

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kuitang/agent-dashboard/internal/collection"
	"github.com/kuitang/agent-dashboard/internal/completion"
	"github.com/kuitang/agent-dashboard/internal/errs"
	"github.com/kuitang/agent-dashboard/internal/kv"
	"github.com/kuitang/agent-dashboard/internal/obs"
	"github.com/kuitang/agent-dashboard/internal/ratelimit"
)

const (
	// StorageKey holds the JSON array of messages.
	StorageKey = "chat_messages"

	WelcomeID   = "welcome"
	WelcomeText = "Hello! I'm your AI assistant. How can I help you today?"

	// FallbackReply replaces the assistant turn when the completion fails.
	FallbackReply = "I'm sorry, I couldn't get a response right now. Please try again in a moment."
	// FailureNotice is the transient notification shown alongside FallbackReply.
	FailureNotice = "Failed to get a response from the AI assistant. Check your API key and try again."
)

var (
	// ErrCredentialRequired blocks a send before anything is appended.
	ErrCredentialRequired = errs.New(errs.FailedPrecondition, "Please add your OpenAI API key to start chatting")
	errRateLimited        = errs.New(errs.ResourceExhausted, "You're sending messages too quickly. Please wait a moment.")
)

func welcome(now time.Time) Message {
	return Message{ID: WelcomeID, Sender: SenderAssistant, Text: WelcomeText, Timestamp: now.UnixMilli()}
}

// Deps wires a Service.
type Deps struct {
	Store       kv.Store
	Policy      collection.CorruptPolicy
	Credentials *CredentialStore
	Completer   completion.Completer
	Gate        ratelimit.UserGate
	Clock       func() time.Time
	NewID       func() string
}

// SendResult is the outcome of one send. Notice is set only when the
// reply is FallbackReply.
type SendResult struct {
	User   Message `json:"user"`
	Reply  Message `json:"reply"`
	Notice string  `json:"notice,omitempty"`
}

// Service handles chat operations for one user.
type Service struct {
	items     *collection.Collection[Message, string]
	creds     *CredentialStore
	completer completion.Completer
	gate      ratelimit.UserGate
	now       func() time.Time
	newID     func() string

	// sendMu keeps one request in flight so replies follow their prompts.
	sendMu sync.Mutex
}

// NewService returns an unloaded service.
func NewService(d Deps) *Service {
	if d.Clock == nil {
		d.Clock = time.Now
	}
	if d.NewID == nil {
		d.NewID = uuid.NewString
	}
	return &Service{
		items: collection.New[Message, string](d.Store, collection.Options[Message]{
			Key:    StorageKey,
			Seed:   func() []Message { return []Message{welcome(d.Clock())} },
			Policy: d.Policy,
		}),
		creds:     d.Credentials,
		completer: d.Completer,
		gate:      d.Gate,
		now:       d.Clock,
		newID:     d.NewID,
	}
}

// Load reads or seeds the transcript.
func (s *Service) Load(ctx context.Context) error {
	return s.items.Load(ctx)
}

// History returns the transcript, oldest first.
func (s *Service) History() []Message {
	return s.items.Items()
}

// Credentials exposes the user's API key custody.
func (s *Service) Credentials() *CredentialStore {
	return s.creds
}

// Send appends text as a user message and then exactly one assistant
// message: the completion on success, FallbackReply otherwise.
func (s *Service) Send(ctx context.Context, text string) (SendResult, error) {
	if strings.TrimSpace(text) == "" {
		return SendResult{}, errs.Invalidf("Message cannot be empty")
	}
	apiKey, found, err := s.creds.Get(ctx)
	if err != nil {
		return SendResult{}, err
	}
	if !found {
		return SendResult{}, ErrCredentialRequired
	}
	if !s.gate.Allow() {
		return SendResult{}, errRateLimited
	}

	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	if err := s.items.Load(ctx); err != nil {
		return SendResult{}, err
	}
	prior := s.items.Items()
	user := Message{ID: s.newID(), Sender: SenderUser, Text: text, Timestamp: s.now().UnixMilli()}
	if err := s.items.Add(ctx, user); err != nil {
		return SendResult{}, err
	}

	result := SendResult{User: user}
	replyText, err := s.completer.Complete(ctx, apiKey, Turns(prior), text)
	if err != nil {
		obs.From(ctx).Warn("chat_completion_fallback", "pkg", "chat", "error", err)
		replyText = FallbackReply
		result.Notice = FailureNotice
	}
	result.Reply = Message{ID: s.newID(), Sender: SenderAssistant, Text: replyText, Timestamp: s.now().UnixMilli()}
	if err := s.items.Add(ctx, result.Reply); err != nil {
		return result, err
	}
	return result, nil
}

// Clear resets the transcript to the welcome message.
func (s *Service) Clear(ctx context.Context) error {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	return s.items.Reset(ctx, []Message{welcome(s.now())})
}
