package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"tourhub/internal/shared/apperrors"
)

// Guard deduplicates retried commands by client-supplied key.
type Guard struct {
	store  Store
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger
}

// NewGuard creates a Guard whose records live for ttl
func NewGuard(store Store, ttl time.Duration, logger *slog.Logger) *Guard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard{
		store:  store,
		ttl:    ttl,
		now:    func() time.Time { return time.Now().UTC() },
		logger: logger,
	}
}

// HashRequest fingerprints a command payload.
func HashRequest(request interface{}) (string, error) {
	data, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("failed to hash request: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Execute runs fn at most once per (scope, key). A replay with the same
// request returns the stored result; a different request under the same key
// is a validation error; a duplicate that races an in-flight execution is a
// concurrency conflict. A failed fn releases the key so the client can retry.
// An empty key or nil guard runs fn directly.
func Execute[T any](ctx context.Context, g *Guard, scope, key string, request interface{}, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if g == nil || key == "" {
		return fn(ctx)
	}

	hash, err := HashRequest(request)
	if err != nil {
		return zero, err
	}

	if replay, done, err := lookup[T](ctx, g, scope, key, hash); done {
		return replay, err
	}

	rec := &Record{
		Scope:       scope,
		Key:         key,
		RequestHash: hash,
		Status:      StatusInProgress,
		ExpiresAt:   g.now().Add(g.ttl),
	}
	if err := g.store.Reserve(ctx, rec); err != nil {
		if errors.Is(err, ErrAlreadyReserved) {
			if replay, done, lookupErr := lookup[T](ctx, g, scope, key, hash); done {
				return replay, lookupErr
			}
			return zero, apperrors.ConcurrencyConflict("a request with this idempotency key is already in progress")
		}
		return zero, err
	}

	result, err := fn(ctx)
	if err != nil {
		if releaseErr := g.store.Release(ctx, scope, key); releaseErr != nil {
			g.logger.WarnContext(ctx, "failed to release idempotency key",
				slog.String("scope", scope), slog.String("key", key), slog.String("error", releaseErr.Error()))
		}
		return zero, err
	}

	body, err := json.Marshal(result)
	if err != nil {
		return result, fmt.Errorf("failed to encode idempotent response: %w", err)
	}
	if err := g.store.Complete(ctx, scope, key, body); err != nil {
		// The command already took effect; a later retry is caught by entity state checks.
		g.logger.ErrorContext(ctx, "failed to complete idempotency record",
			slog.String("scope", scope), slog.String("key", key), slog.String("error", err.Error()))
	}
	return result, nil
}

// lookup reports done=true when an existing record decides the outcome.
func lookup[T any](ctx context.Context, g *Guard, scope, key, hash string) (T, bool, error) {
	var zero T
	rec, err := g.store.Get(ctx, scope, key, g.now())
	if err != nil {
		return zero, true, err
	}
	if rec == nil {
		return zero, false, nil
	}
	if rec.RequestHash != hash {
		return zero, true, apperrors.Validation("idempotency key was already used for a different request")
	}
	if rec.Status != StatusCompleted {
		return zero, true, apperrors.ConcurrencyConflict("a request with this idempotency key is already in progress")
	}

	var replay T
	if err := json.Unmarshal(rec.ResponseBody, &replay); err != nil {
		return zero, true, fmt.Errorf("failed to decode idempotent response: %w", err)
	}
	return replay, true, nil
}
