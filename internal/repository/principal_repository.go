package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/fungi-catalog/internal/auth"
	"github.com/spec-kit/fungi-catalog/internal/domain"
)

// PrincipalRepository holds the server-side identity bound to each opaque
// session token.
type PrincipalRepository interface {
	Put(ctx context.Context, opaqueToken string, principal domain.Principal, ttl time.Duration) error
	// Get returns nil without error when no principal is bound to the token.
	Get(ctx context.Context, opaqueToken string) (*domain.Principal, error)
	Delete(ctx context.Context, userID int64, opaqueToken string) error
	DeleteAllForUser(ctx context.Context, userID int64) error
}

const maxWatchRetries = 5

type redisPrincipalRepository struct {
	client *redis.Client
	prefix string
}

// NewRedisPrincipalRepository stores principals under "<prefix>:session:<digest>"
// with a per-user index set for bulk removal.
func NewRedisPrincipalRepository(client *redis.Client, prefix string) PrincipalRepository {
	return &redisPrincipalRepository{client: client, prefix: prefix}
}

func (r *redisPrincipalRepository) sessionKey(digest string) string {
	return r.prefix + ":session:" + digest
}

func (r *redisPrincipalRepository) userKey(userID int64) string {
	return r.prefix + ":user:" + strconv.FormatInt(userID, 10) + ":sessions"
}

func (r *redisPrincipalRepository) Put(ctx context.Context, opaqueToken string, principal domain.Principal, ttl time.Duration) error {
	data, err := json.Marshal(principal)
	if err != nil {
		return fmt.Errorf("encode principal: %w", err)
	}
	digest := auth.TokenDigest(opaqueToken)
	userKey := r.userKey(principal.UserID)

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.sessionKey(digest), data, ttl)
		pipe.SAdd(ctx, userKey, digest)
		pipe.Expire(ctx, userKey, ttl)
		return nil
	})
	return err
}

func (r *redisPrincipalRepository) Get(ctx context.Context, opaqueToken string) (*domain.Principal, error) {
	data, err := r.client.Get(ctx, r.sessionKey(auth.TokenDigest(opaqueToken))).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var principal domain.Principal
	if err := json.Unmarshal(data, &principal); err != nil {
		return nil, fmt.Errorf("decode principal: %w", err)
	}
	return &principal, nil
}

func (r *redisPrincipalRepository) Delete(ctx context.Context, userID int64, opaqueToken string) error {
	digest := auth.TokenDigest(opaqueToken)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, r.sessionKey(digest))
		pipe.SRem(ctx, r.userKey(userID), digest)
		return nil
	})
	return err
}

// DeleteAllForUser removes every principal indexed for the user. The index is
// watched so a concurrent Put either lands before the delete or aborts it.
func (r *redisPrincipalRepository) DeleteAllForUser(ctx context.Context, userID int64) error {
	userKey := r.userKey(userID)
	txf := func(tx *redis.Tx) error {
		digests, err := tx.SMembers(ctx, userKey).Result()
		if err != nil {
			return err
		}

		keys := make([]string, 0, len(digests)+1)
		for _, d := range digests {
			keys = append(keys, r.sessionKey(d))
		}
		keys = append(keys, userKey)

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, keys...)
			return nil
		})
		return err
	}

	for i := 0; i < maxWatchRetries; i++ {
		err := r.client.Watch(ctx, txf, userKey)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return fmt.Errorf("delete sessions of user %d: %w", userID, redis.TxFailedErr)
}
