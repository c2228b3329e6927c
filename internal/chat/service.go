// Package chat composes the session store, the document index and a
// generation provider into streaming conversational turns.
package chat

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/acelabs/aceai/internal/ai"
	"github.com/acelabs/aceai/internal/chatstore"
	"github.com/acelabs/aceai/internal/index"
)

type EventType string

const (
	// EventSession carries the resolved session id and always precedes any
	// generated content, so callers can capture ids of newly created
	// sessions.
	EventSession EventType = "session"
	EventDelta   EventType = "delta"
	EventError   EventType = "error"
	EventDone    EventType = "done"
)

type Event struct {
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id,omitempty"`
	Delta     string    `json:"delta,omitempty"`
	Error     string    `json:"error,omitempty"`
	MessageID uint64    `json:"message_id,omitempty"`
}

const sessionNameRunes = 20

type Service struct {
	sessions      *chatstore.Store
	index         *index.Index
	provider      ai.Provider
	historyWindow int
	retrieveK     int
	systemPrompt  string
}

func NewService(sessions *chatstore.Store, ix *index.Index, provider ai.Provider, historyWindow, retrieveK int, systemPrompt string) *Service {
	if historyWindow <= 0 || historyWindow > 100 {
		historyWindow = 10
	}
	if retrieveK <= 0 {
		retrieveK = 3
	}
	return &Service{
		sessions:      sessions,
		index:         ix,
		provider:      provider,
		historyWindow: historyWindow,
		retrieveK:     retrieveK,
		systemPrompt:  systemPrompt,
	}
}

// StreamTurn runs one conversational turn. Failures before generation
// starts (unknown session, storage, retrieval backend) are returned
// directly; once the event stream begins, a generation failure degrades to
// a final inline error event instead of an abort. The user message
// persisted up front is never rolled back.
func (s *Service) StreamTurn(ctx context.Context, apiKeyID uint64, sessionID, message string) (<-chan Event, error) {
	sess, err := s.resolveSession(ctx, apiKeyID, sessionID, message)
	if err != nil {
		return nil, err
	}

	if _, err := s.sessions.AddMessage(ctx, sess.ID, chatstore.RoleUser, message); err != nil {
		return nil, err
	}

	history, err := s.sessions.GetMessages(ctx, sess.ID)
	if err != nil {
		return nil, err
	}
	if len(history) > s.historyWindow {
		history = history[len(history)-s.historyWindow:]
	}

	results, err := s.index.Query(ctx, message, s.retrieveK)
	if err != nil {
		return nil, err
	}

	prompt := s.buildPrompt(history, results)

	events := make(chan Event, 16)
	go s.generate(ctx, sess.ID, prompt, events)
	return events, nil
}

func (s *Service) resolveSession(ctx context.Context, apiKeyID uint64, sessionID, message string) (*chatstore.Session, error) {
	if sessionID == "" {
		return s.sessions.CreateSession(ctx, apiKeyID, sessionName(message))
	}
	return s.sessions.GetSession(ctx, sessionID, apiKeyID)
}

// sessionName derives a session label from the opening of the first message.
func sessionName(message string) string {
	runes := []rune(strings.TrimSpace(message))
	if len(runes) > sessionNameRunes {
		runes = runes[:sessionNameRunes]
	}
	return string(runes)
}

// buildPrompt assembles the system instruction, retrieved context and
// bounded history into the provider message list. With no retrieved chunks
// the context block is omitted entirely.
func (s *Service) buildPrompt(history []chatstore.Message, results []index.Result) []ai.Message {
	system := s.systemPrompt
	if len(results) > 0 {
		texts := make([]string, 0, len(results))
		for _, r := range results {
			texts = append(texts, r.Chunk.Text)
		}
		system += "\n\nAnswer using the reference material below. If the answer is not in it, say so.\n\nReference material:\n" +
			strings.Join(texts, "\n\n")
	}

	msgs := make([]ai.Message, 0, len(history)+1)
	msgs = append(msgs, ai.Message{Role: "system", Content: system})
	for _, m := range history {
		msgs = append(msgs, ai.Message{Role: m.Role, Content: m.Content})
	}
	return msgs
}

func (s *Service) generate(ctx context.Context, sessionID string, prompt []ai.Message, events chan<- Event) {
	defer close(events)

	if !s.emit(ctx, events, Event{Type: EventSession, SessionID: sessionID}) {
		return
	}

	var full strings.Builder

	sp, streaming := s.provider.(ai.StreamProvider)
	if !streaming {
		// provider without incremental output: one delta with the whole reply
		reply, err := s.provider.Chat(ctx, prompt)
		if err != nil {
			s.emit(ctx, events, Event{Type: EventError, Error: err.Error()})
			return
		}
		full.WriteString(reply)
		if !s.emit(ctx, events, Event{Type: EventDelta, Delta: reply}) {
			return
		}
	} else {
		chunks, errs := sp.StreamChat(ctx, prompt)
		for chunk := range chunks {
			full.WriteString(chunk)
			if !s.emit(ctx, events, Event{Type: EventDelta, Delta: chunk}) {
				return
			}
		}
		if err := <-errs; err != nil {
			s.emit(ctx, events, Event{Type: EventError, Error: err.Error()})
			return
		}
	}

	if ctx.Err() != nil {
		return
	}

	msg, err := s.sessions.AddMessage(ctx, sessionID, chatstore.RoleAssistant, full.String())
	if err != nil {
		log.Printf("[chat] persist assistant reply failed session_id=%s err=%v", sessionID, err)
		s.emit(ctx, events, Event{Type: EventError, Error: fmt.Sprintf("failed to persist reply: %v", err)})
		return
	}
	s.emit(ctx, events, Event{Type: EventDone, MessageID: msg.ID})
}

// emit forwards an event unless the consumer has gone away.
func (s *Service) emit(ctx context.Context, events chan<- Event, e Event) bool {
	select {
	case events <- e:
		return true
	case <-ctx.Done():
		return false
	}
}
