package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"instructorcopilot/internal/repos"
)

// sessionStore binds the pipeline's Store contract to one session row plus
// its event log. One instance exists per claimed run, so writes are
// single-writer by construction.
type sessionStore struct {
	sessionID uuid.UUID
	sessions  repos.SessionRepo
	events    repos.SessionEventRepo
}

func newSessionStore(sessionID uuid.UUID, sessions repos.SessionRepo, events repos.SessionEventRepo) *sessionStore {
	return &sessionStore{sessionID: sessionID, sessions: sessions, events: events}
}

func (s *sessionStore) State(ctx context.Context) (map[string]string, error) {
	return s.sessions.State(ctx, nil, s.sessionID)
}

func (s *sessionStore) Set(ctx context.Context, key, value string) error {
	return s.sessions.SetStateKey(ctx, nil, s.sessionID, key, value)
}

func (s *sessionStore) Append(ctx context.Context, key, value string) error {
	return s.sessions.AppendStateKey(ctx, nil, s.sessionID, key, value)
}

func (s *sessionStore) AppendEvent(ctx context.Context, author, text string) error {
	_, err := s.events.Append(ctx, nil, s.sessionID, author, text)
	return err
}

func (s *sessionStore) EventLog(ctx context.Context) (string, error) {
	events, err := s.events.ListBySession(ctx, nil, s.sessionID)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for i, ev := range events {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "[%s] %s", ev.Author, ev.Text)
	}
	return sb.String(), nil
}
