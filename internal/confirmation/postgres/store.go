package postgres

import (
	"context"
	"encoding/json"
	stdErrors "errors"
	"fmt"
	"time"

	"github.com/frahmantamala/expense-assistant/internal/confirmation"
	attemptDatamodel "github.com/frahmantamala/expense-assistant/internal/core/datamodel/attempt"
	"gorm.io/gorm"
)

// AttemptStore keeps pending attempts in the pending_attempts table so they
// survive restarts and are shared between replicas.
type AttemptStore struct {
	db  *gorm.DB
	now func() time.Time
}

var _ confirmation.Store = (*AttemptStore)(nil)

func NewAttemptStore(db *gorm.DB, now func() time.Time) *AttemptStore {
	if now == nil {
		now = time.Now
	}
	return &AttemptStore{db: db, now: now}
}

func (s *AttemptStore) Put(ctx context.Context, a *confirmation.Attempt) error {
	row, err := toRow(a)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Save(row).Error
}

func (s *AttemptStore) Get(ctx context.Context, key string) (*confirmation.Attempt, error) {
	var row attemptDatamodel.PendingAttempt
	err := s.db.WithContext(ctx).
		Where("attempt_key = ? AND expires_at > ?", key, s.now().UTC()).
		First(&row).Error
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, confirmation.ErrNotFound
		}
		return nil, err
	}
	return fromRow(&row)
}

func (s *AttemptStore) Update(ctx context.Context, a *confirmation.Attempt) error {
	row, err := toRow(a)
	if err != nil {
		return err
	}
	res := s.db.WithContext(ctx).
		Model(&attemptDatamodel.PendingAttempt{}).
		Where("attempt_key = ? AND expires_at > ?", a.Key, s.now().UTC()).
		Updates(map[string]interface{}{
			"state":      row.State,
			"expense":    row.Expense,
			"choices":    row.Choices,
			"expires_at": row.ExpiresAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return confirmation.ErrNotFound
	}
	return nil
}

// Take relies on the delete's affected row count, so two concurrent takes
// of the same key cannot both succeed.
func (s *AttemptStore) Take(ctx context.Context, key string) (*confirmation.Attempt, error) {
	var taken *confirmation.Attempt
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row attemptDatamodel.PendingAttempt
		if err := tx.Where("attempt_key = ? AND expires_at > ?", key, s.now().UTC()).First(&row).Error; err != nil {
			if stdErrors.Is(err, gorm.ErrRecordNotFound) {
				return confirmation.ErrNotFound
			}
			return err
		}

		res := tx.Where("attempt_key = ?", key).Delete(&attemptDatamodel.PendingAttempt{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return confirmation.ErrNotFound
		}

		a, err := fromRow(&row)
		if err != nil {
			return err
		}
		taken = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return taken, nil
}

func (s *AttemptStore) Delete(ctx context.Context, key string) error {
	return s.db.WithContext(ctx).Where("attempt_key = ?", key).Delete(&attemptDatamodel.PendingAttempt{}).Error
}

func (s *AttemptStore) Sweep(ctx context.Context, now time.Time) (int, error) {
	res := s.db.WithContext(ctx).Where("expires_at <= ?", now.UTC()).Delete(&attemptDatamodel.PendingAttempt{})
	return int(res.RowsAffected), res.Error
}

func toRow(a *confirmation.Attempt) (*attemptDatamodel.PendingAttempt, error) {
	expense, err := json.Marshal(a.Expense)
	if err != nil {
		return nil, fmt.Errorf("encode attempt expense: %w", err)
	}
	choices, err := json.Marshal(a.Choices)
	if err != nil {
		return nil, fmt.Errorf("encode attempt choices: %w", err)
	}
	return &attemptDatamodel.PendingAttempt{
		Key:       a.Key,
		ChatID:    a.ChatID,
		State:     string(a.State),
		Expense:   string(expense),
		Choices:   string(choices),
		CreatedAt: a.CreatedAt.UTC(),
		ExpiresAt: a.ExpiresAt.UTC(),
	}, nil
}

func fromRow(row *attemptDatamodel.PendingAttempt) (*confirmation.Attempt, error) {
	a := &confirmation.Attempt{
		Key:       row.Key,
		ChatID:    row.ChatID,
		State:     confirmation.State(row.State),
		CreatedAt: row.CreatedAt,
		ExpiresAt: row.ExpiresAt,
	}
	if err := json.Unmarshal([]byte(row.Expense), &a.Expense); err != nil {
		return nil, fmt.Errorf("decode attempt expense: %w", err)
	}
	if row.Choices != "" {
		if err := json.Unmarshal([]byte(row.Choices), &a.Choices); err != nil {
			return nil, fmt.Errorf("decode attempt choices: %w", err)
		}
	}
	return a, nil
}
