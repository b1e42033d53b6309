package repos

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"instructorcopilot/internal/logger"
	"instructorcopilot/internal/types"
)

type SessionRepo interface {
	Create(ctx context.Context, tx *gorm.DB, userID string) (*types.Session, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Session, error)

	// State reads the full snapshot as stageKey -> text.
	State(ctx context.Context, tx *gorm.DB, id uuid.UUID) (map[string]string, error)

	// SetStateKey replaces the value under key. AppendStateKey concatenates
	// onto whatever is already there; it never shrinks the stored value.
	SetStateKey(ctx context.Context, tx *gorm.DB, id uuid.UUID, key, value string) error
	AppendStateKey(ctx context.Context, tx *gorm.DB, id uuid.UUID, key, value string) error
}

type SessionEventRepo interface {
	// Append writes one immutable event with the next ordinal for the session.
	Append(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID, author, text string) (*types.SessionEvent, error)
	// ListBySession returns all events in ordinal order.
	ListBySession(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) ([]*types.SessionEvent, error)
}

type sessionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSessionRepo(db *gorm.DB, baseLog *logger.Logger) SessionRepo {
	return &sessionRepo{db: db, log: baseLog.With("repo", "SessionRepo")}
}

func (r *sessionRepo) Create(ctx context.Context, tx *gorm.DB, userID string) (*types.Session, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	sess := &types.Session{
		ID:     uuid.New(),
		UserID: userID,
		State:  datatypes.JSON([]byte(`{}`)),
	}
	if err := transaction.WithContext(ctx).Create(sess).Error; err != nil {
		return nil, err
	}
	return sess, nil
}

func (r *sessionRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Session, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var sess types.Session
	err := transaction.WithContext(ctx).Where("id = ?", id).Limit(1).Find(&sess).Error
	if err != nil {
		return nil, err
	}
	if sess.ID == uuid.Nil {
		return nil, nil
	}
	return &sess, nil
}

func (r *sessionRepo) State(ctx context.Context, tx *gorm.DB, id uuid.UUID) (map[string]string, error) {
	sess, err := r.GetByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, fmt.Errorf("session %s not found", id)
	}
	state := map[string]string{}
	if len(sess.State) > 0 {
		if err := json.Unmarshal(sess.State, &state); err != nil {
			return nil, fmt.Errorf("decode session state: %w", err)
		}
	}
	return state, nil
}

func (r *sessionRepo) SetStateKey(ctx context.Context, tx *gorm.DB, id uuid.UUID, key, value string) error {
	return r.mutateState(ctx, tx, id, func(state map[string]string) {
		state[key] = value
	})
}

func (r *sessionRepo) AppendStateKey(ctx context.Context, tx *gorm.DB, id uuid.UUID, key, value string) error {
	return r.mutateState(ctx, tx, id, func(state map[string]string) {
		prev := state[key]
		if prev == "" {
			state[key] = value
			return
		}
		state[key] = prev + "\n\n" + value
	})
}

// mutateState rewrites the snapshot inside one transaction. Only the worker
// that claimed the run ever writes a given session, so read-modify-write is
// safe here.
func (r *sessionRepo) mutateState(ctx context.Context, tx *gorm.DB, id uuid.UUID, mutate func(map[string]string)) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		var sess types.Session
		if err := txx.Where("id = ?", id).First(&sess).Error; err != nil {
			return err
		}
		state := map[string]string{}
		if len(sess.State) > 0 {
			if err := json.Unmarshal(sess.State, &state); err != nil {
				return fmt.Errorf("decode session state: %w", err)
			}
		}
		mutate(state)
		raw, err := json.Marshal(state)
		if err != nil {
			return err
		}
		return txx.Model(&types.Session{}).
			Where("id = ?", id).
			Updates(map[string]interface{}{
				"state":      datatypes.JSON(raw),
				"updated_at": time.Now(),
			}).Error
	})
}

type sessionEventRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSessionEventRepo(db *gorm.DB, baseLog *logger.Logger) SessionEventRepo {
	return &sessionEventRepo{db: db, log: baseLog.With("repo", "SessionEventRepo")}
}

func (r *sessionEventRepo) Append(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID, author, text string) (*types.SessionEvent, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var created *types.SessionEvent
	err := transaction.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		var maxOrdinal int64
		row := txx.Model(&types.SessionEvent{}).
			Where("session_id = ?", sessionID).
			Select("COALESCE(MAX(ordinal), 0)")
		if err := row.Scan(&maxOrdinal).Error; err != nil {
			return err
		}
		ev := &types.SessionEvent{
			ID:        uuid.New(),
			SessionID: sessionID,
			Ordinal:   maxOrdinal + 1,
			Author:    author,
			Text:      text,
		}
		if err := txx.Create(ev).Error; err != nil {
			return err
		}
		created = ev
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (r *sessionEventRepo) ListBySession(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) ([]*types.SessionEvent, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var events []*types.SessionEvent
	if err := transaction.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("ordinal ASC").
		Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}
