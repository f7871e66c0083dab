package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/fungi-catalog/internal/auth"
	"github.com/spec-kit/fungi-catalog/internal/domain"
)

// TokenRepository is the session store and revocation registry. Raw tokens
// never reach the database; rows hold their SHA-256 digests.
type TokenRepository interface {
	// Create persists both tokens of a login and the user's token mirror in one transaction.
	Create(ctx context.Context, pair domain.SessionPair) error
	// IsActive reports whether a non-revoked, unexpired record of kind exists for the user.
	IsActive(ctx context.Context, userID int64, kind domain.TokenKind, token string) (bool, error)
	// Revoke soft-deletes a single token. Returns pgx.ErrNoRows when the user has no such token.
	Revoke(ctx context.Context, userID int64, token string) error
	// RevokeAll soft-deletes every opaque and signed token of the user in one transaction.
	RevokeAll(ctx context.Context, userID int64) error
}

type tokenRepository struct {
	db DB
}

// NewTokenRepository returns a Postgres-backed implementation.
func NewTokenRepository(db DB) TokenRepository {
	return &tokenRepository{db: db}
}

func (r *tokenRepository) Create(ctx context.Context, pair domain.SessionPair) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := insertTokenTx(ctx, tx, pair.UserID, domain.TokenKindOpaque, pair.OpaqueToken, pair); err != nil {
		return fmt.Errorf("insert opaque token: %w", err)
	}
	if err := insertTokenTx(ctx, tx, pair.UserID, domain.TokenKindSigned, pair.SignedToken, pair); err != nil {
		return fmt.Errorf("insert signed token: %w", err)
	}

	cmd, err := tx.Exec(ctx, `UPDATE users SET token=$1 WHERE id=$2`, auth.TokenDigest(pair.OpaqueToken), pair.UserID)
	if err != nil {
		return fmt.Errorf("update token mirror: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("update token mirror: %w", pgx.ErrNoRows)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func insertTokenTx(ctx context.Context, tx pgx.Tx, userID int64, kind domain.TokenKind, token string, pair domain.SessionPair) error {
	const query = `
        INSERT INTO jwt_tokens (id, user_id, kind, token, expires_at)
        VALUES ($1, $2, $3, $4, $5)`

	_, err := tx.Exec(ctx, query, uuid.NewString(), userID, kind, auth.TokenDigest(token), pair.ExpiresAt)
	if isUniqueViolation(err) {
		return ErrTokenExists
	}
	return err
}

func (r *tokenRepository) IsActive(ctx context.Context, userID int64, kind domain.TokenKind, token string) (bool, error) {
	const query = `
        SELECT EXISTS (
            SELECT 1 FROM jwt_tokens
            WHERE user_id=$1 AND kind=$2 AND token=$3
              AND NOT is_revoked AND expires_at > NOW()
        )`

	var active bool
	if err := r.db.QueryRow(ctx, query, userID, kind, auth.TokenDigest(token)).Scan(&active); err != nil {
		return false, err
	}
	return active, nil
}

func (r *tokenRepository) Revoke(ctx context.Context, userID int64, token string) error {
	const query = `
        UPDATE jwt_tokens SET is_revoked=TRUE
        WHERE user_id=$1 AND token=$2`

	cmd, err := r.db.Exec(ctx, query, userID, auth.TokenDigest(token))
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *tokenRepository) RevokeAll(ctx context.Context, userID int64) error {
	const revokeKind = `
        UPDATE jwt_tokens SET is_revoked=TRUE
        WHERE user_id=$1 AND kind=$2 AND NOT is_revoked`

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, revokeKind, userID, domain.TokenKindOpaque); err != nil {
		return fmt.Errorf("revoke opaque tokens: %w", err)
	}
	if _, err := tx.Exec(ctx, revokeKind, userID, domain.TokenKindSigned); err != nil {
		return fmt.Errorf("revoke signed tokens: %w", err)
	}
	if _, err := tx.Exec(ctx, `UPDATE users SET token=NULL WHERE id=$1`, userID); err != nil {
		return fmt.Errorf("clear token mirror: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
