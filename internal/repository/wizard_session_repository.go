package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"agrisa-ops/internal/assignment"
	"agrisa-ops/internal/models"
	utils "agrisa-ops/shared/utils"

	"github.com/redis/go-redis/v9"
)

// WizardSessionRepository keeps wizard sessions in Redis. Every save
// refreshes the TTL, so idle sessions expire on their own.
type WizardSessionRepository struct {
	redisClient *redis.Client
	ttl         time.Duration
}

func NewWizardSessionRepository(redisClient *redis.Client, ttl time.Duration) *WizardSessionRepository {
	return &WizardSessionRepository{redisClient: redisClient, ttl: ttl}
}

func wizardSessionKey(id string) string {
	return "assignment:wizard_session:" + id
}

func (r *WizardSessionRepository) TTL() time.Duration {
	return r.ttl
}

// Save writes session when the stored copy still has the version session
// was loaded with, then bumps session.Version. A concurrent save fails with
// models.ErrInvalidState; a deleted or expired session with
// models.ErrNotFound.
func (r *WizardSessionRepository) Save(ctx context.Context, session *assignment.Session) error {
	key := wizardSessionKey(session.ID)
	next := *session
	next.Version++
	data, err := utils.SerializeModel(&next)
	if err != nil {
		return fmt.Errorf("failed to serialize wizard session: %w", err)
	}

	err = r.redisClient.Watch(ctx, func(tx *redis.Tx) error {
		stored, err := r.load(ctx, tx, key)
		if err != nil {
			return err
		}
		if err := assignment.CheckVersion(stored, session); err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, r.ttl)
			return nil
		})
		return err
	}, key)

	switch {
	case err == nil:
		session.Version = next.Version
		return nil
	case errors.Is(err, redis.TxFailedErr):
		return fmt.Errorf("%w: wizard session %s was changed by another request", models.ErrInvalidState, session.ID)
	case errors.Is(err, models.ErrInvalidState), errors.Is(err, models.ErrNotFound):
		return err
	default:
		return fmt.Errorf("failed to save wizard session %s: %w", session.ID, err)
	}
}

// load reads the session under key inside a WATCH. It returns nil when the
// key does not exist.
func (r *WizardSessionRepository) load(ctx context.Context, tx *redis.Tx, key string) (*assignment.Session, error) {
	data, err := tx.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var stored assignment.Session
	if err := utils.DeserializeModel(data, &stored); err != nil {
		return nil, fmt.Errorf("failed to deserialize wizard session: %w", err)
	}
	return &stored, nil
}

func (r *WizardSessionRepository) Get(ctx context.Context, id string) (*assignment.Session, error) {
	data, err := r.redisClient.Get(ctx, wizardSessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: wizard session %s", models.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get wizard session %s: %w", id, err)
	}

	var session assignment.Session
	if err := utils.DeserializeModel(data, &session); err != nil {
		return nil, fmt.Errorf("failed to deserialize wizard session %s: %w", id, err)
	}
	return &session, nil
}

func (r *WizardSessionRepository) Delete(ctx context.Context, id string) error {
	n, err := r.redisClient.Del(ctx, wizardSessionKey(id)).Result()
	if err != nil {
		return fmt.Errorf("failed to delete wizard session %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: wizard session %s", models.ErrNotFound, id)
	}
	return nil
}
