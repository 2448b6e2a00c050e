package session

import (
	"errors"
	"fmt"
	"time"
)

const SchemaVersion = 1

var (
	// ErrSessionBusy is returned when a run is already active on the session.
	ErrSessionBusy = errors.New("session busy")
	// ErrCorruptSession is returned when a stored session fails validation.
	ErrCorruptSession = errors.New("corrupt session")
	// ErrSessionNotFound is returned when no session exists under the name.
	ErrSessionNotFound = errors.New("session not found")
)

type Message struct {
	Role      string            `json:"role"`
	Content   string            `json:"content"`
	Timestamp time.Time         `json:"timestamp"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Session accumulates the conversation with the orchestrator: every task and
// result, plus the state a follow-up needs to continue from.
type Session struct {
	SchemaVersion int       `json:"schema_version"`
	Name          string    `json:"name"`
	Messages      []Message `json:"messages"`
	Workflow      string    `json:"workflow,omitempty"`
	LastTask      string    `json:"last_task,omitempty"`
	LastOutput    string    `json:"last_output,omitempty"`
	LastFiles     []string  `json:"last_files,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func New(name string) *Session {
	now := time.Now().UTC()
	return &Session{
		SchemaVersion: SchemaVersion,
		Name:          name,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Append records a message and bumps the update time.
func (s *Session) Append(role, content string, metadata map[string]string) {
	s.Messages = append(s.Messages, Message{
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
		Metadata:  metadata,
	})
	s.UpdatedAt = time.Now().UTC()
}

// RecordRun stores the outcome of a workflow run as the session's latest state.
func (s *Session) RecordRun(task, output string, files []string) {
	s.LastTask = task
	s.LastOutput = output
	if len(files) > 0 {
		s.LastFiles = files
	}
	s.UpdatedAt = time.Now().UTC()
}

// Validate rejects sessions that cannot safely drive a follow-up.
func (s *Session) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("%w: missing name", ErrCorruptSession)
	}
	if s.SchemaVersion != SchemaVersion {
		return fmt.Errorf("%w: schema version %d, want %d",
			ErrCorruptSession, s.SchemaVersion, SchemaVersion)
	}
	if s.CreatedAt.IsZero() || s.UpdatedAt.IsZero() {
		return fmt.Errorf("%w: missing timestamps", ErrCorruptSession)
	}
	for i, msg := range s.Messages {
		if msg.Role == "" {
			return fmt.Errorf("%w: message %d has no role", ErrCorruptSession, i)
		}
	}
	return nil
}
