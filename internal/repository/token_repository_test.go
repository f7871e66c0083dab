package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/fungi-catalog/internal/auth"
	"github.com/spec-kit/fungi-catalog/internal/domain"
)

var errInjected = errors.New("injected failure")

// fakeTx records statements and fails the failOn-th Exec (1-based).
type fakeTx struct {
	pgx.Tx

	execs      []string
	args       [][]any
	failOn     int
	rows       int64
	commitErr  error
	committed  bool
	rolledBack bool
}

func (t *fakeTx) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	t.execs = append(t.execs, sql)
	t.args = append(t.args, args)
	if t.failOn == len(t.execs) {
		return pgconn.CommandTag{}, errInjected
	}
	return pgconn.NewCommandTag(fmt.Sprintf("UPDATE %d", t.rows)), nil
}

func (t *fakeTx) Commit(context.Context) error {
	if t.commitErr != nil {
		return t.commitErr
	}
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(context.Context) error {
	if t.committed {
		return pgx.ErrTxClosed
	}
	t.rolledBack = true
	return nil
}

type fakeRow struct {
	scan func(dest ...any) error
}

func (r fakeRow) Scan(dest ...any) error { return r.scan(dest...) }

type fakeDB struct {
	tx       *fakeTx
	beginErr error

	execTag  pgconn.CommandTag
	execErr  error
	execArgs []any

	row     pgx.Row
	rowArgs []any
}

func (d *fakeDB) Begin(context.Context) (pgx.Tx, error) {
	if d.beginErr != nil {
		return nil, d.beginErr
	}
	return d.tx, nil
}

func (d *fakeDB) Exec(_ context.Context, _ string, args ...any) (pgconn.CommandTag, error) {
	d.execArgs = args
	return d.execTag, d.execErr
}

func (d *fakeDB) QueryRow(_ context.Context, _ string, args ...any) pgx.Row {
	d.rowArgs = args
	return d.row
}

func testPair() domain.SessionPair {
	return domain.SessionPair{
		UserID:      42,
		OpaqueToken: "opaque-raw",
		SignedToken: "header.payload.signature",
		ExpiresAt:   time.Now().Add(time.Hour),
	}
}

func TestTokenRepository_CreatePersistsBothTokensAndMirror(t *testing.T) {
	tx := &fakeTx{rows: 1}
	repo := NewTokenRepository(&fakeDB{tx: tx})

	require.NoError(t, repo.Create(context.Background(), testPair()))

	require.Len(t, tx.execs, 3)
	assert.True(t, tx.committed)
	assert.False(t, tx.rolledBack)

	assert.Equal(t, domain.TokenKindOpaque, tx.args[0][2])
	assert.Equal(t, auth.TokenDigest("opaque-raw"), tx.args[0][3])
	assert.Equal(t, domain.TokenKindSigned, tx.args[1][2])
	assert.Equal(t, auth.TokenDigest("header.payload.signature"), tx.args[1][3])
	assert.Equal(t, auth.TokenDigest("opaque-raw"), tx.args[2][0])

	for _, args := range tx.args {
		for _, a := range args {
			assert.NotEqual(t, "opaque-raw", a)
			assert.NotEqual(t, "header.payload.signature", a)
		}
	}
}

func TestTokenRepository_CreateRollsBackOnAnyWriteFailure(t *testing.T) {
	for failOn := 1; failOn <= 3; failOn++ {
		tx := &fakeTx{rows: 1, failOn: failOn}
		repo := NewTokenRepository(&fakeDB{tx: tx})

		err := repo.Create(context.Background(), testPair())
		require.ErrorIs(t, err, errInjected, "write %d", failOn)
		assert.False(t, tx.committed, "write %d", failOn)
		assert.True(t, tx.rolledBack, "write %d", failOn)
	}
}

func TestTokenRepository_CreateFailsForUnknownUser(t *testing.T) {
	tx := &fakeTx{rows: 0}
	repo := NewTokenRepository(&fakeDB{tx: tx})

	err := repo.Create(context.Background(), testPair())
	require.ErrorIs(t, err, pgx.ErrNoRows)
	assert.False(t, tx.committed)
	assert.True(t, tx.rolledBack)
}

func TestTokenRepository_CreateSurfacesBeginAndCommitErrors(t *testing.T) {
	repo := NewTokenRepository(&fakeDB{beginErr: context.DeadlineExceeded})
	assert.ErrorIs(t, repo.Create(context.Background(), testPair()), context.DeadlineExceeded)

	tx := &fakeTx{rows: 1, commitErr: errInjected}
	repo = NewTokenRepository(&fakeDB{tx: tx})
	assert.ErrorIs(t, repo.Create(context.Background(), testPair()), errInjected)
	assert.True(t, tx.rolledBack)
}

func TestTokenRepository_RevokeAllIsAtomic(t *testing.T) {
	tx := &fakeTx{rows: 1}
	repo := NewTokenRepository(&fakeDB{tx: tx})

	require.NoError(t, repo.RevokeAll(context.Background(), 42))
	require.Len(t, tx.execs, 3)
	assert.Equal(t, []any{int64(42), domain.TokenKindOpaque}, tx.args[0])
	assert.Equal(t, []any{int64(42), domain.TokenKindSigned}, tx.args[1])
	assert.True(t, tx.committed)
}

func TestTokenRepository_RevokeAllFaultOnSecondWrite(t *testing.T) {
	tx := &fakeTx{rows: 1, failOn: 2}
	repo := NewTokenRepository(&fakeDB{tx: tx})

	err := repo.RevokeAll(context.Background(), 42)
	require.ErrorIs(t, err, errInjected)
	assert.Len(t, tx.execs, 2)
	assert.False(t, tx.committed, "opaque revocation must not be committed without the signed one")
	assert.True(t, tx.rolledBack)
}

func TestTokenRepository_IsActiveQueriesByDigest(t *testing.T) {
	db := &fakeDB{row: fakeRow{scan: func(dest ...any) error {
		*dest[0].(*bool) = true
		return nil
	}}}
	repo := NewTokenRepository(db)

	active, err := repo.IsActive(context.Background(), 42, domain.TokenKindSigned, "header.payload.signature")
	require.NoError(t, err)
	assert.True(t, active)
	assert.Equal(t, []any{int64(42), domain.TokenKindSigned, auth.TokenDigest("header.payload.signature")}, db.rowArgs)
}

func TestTokenRepository_IsActivePropagatesStoreErrors(t *testing.T) {
	db := &fakeDB{row: fakeRow{scan: func(...any) error { return context.DeadlineExceeded }}}
	repo := NewTokenRepository(db)

	active, err := repo.IsActive(context.Background(), 42, domain.TokenKindOpaque, "x")
	assert.False(t, active)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTokenRepository_Revoke(t *testing.T) {
	db := &fakeDB{execTag: pgconn.NewCommandTag("UPDATE 1")}
	repo := NewTokenRepository(db)
	require.NoError(t, repo.Revoke(context.Background(), 42, "opaque-raw"))
	assert.Equal(t, []any{int64(42), auth.TokenDigest("opaque-raw")}, db.execArgs)

	db = &fakeDB{execTag: pgconn.NewCommandTag("UPDATE 0")}
	repo = NewTokenRepository(db)
	assert.ErrorIs(t, repo.Revoke(context.Background(), 42, "unknown"), pgx.ErrNoRows)
}

func TestUserRepository_CreateMapsUniqueViolation(t *testing.T) {
	db := &fakeDB{row: fakeRow{scan: func(...any) error {
		return &pgconn.PgError{Code: "23505", ConstraintName: "users_username_key"}
	}}}
	repo := NewUserRepository(db)

	err := repo.Create(context.Background(), &domain.User{Username: "ana", Email: "ana@example.com"})
	assert.ErrorIs(t, err, ErrUserExists)
}
