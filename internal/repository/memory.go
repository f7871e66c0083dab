package repository

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/fungi-catalog/internal/auth"
	"github.com/spec-kit/fungi-catalog/internal/domain"
)

// In-memory stores back local development when no database is configured.
// They honour the same contracts as the Postgres and Redis implementations.

type memoryUserRepository struct {
	mu     sync.RWMutex
	nextID int64
	byID   map[int64]*domain.User
	now    func() time.Time
}

// NewMemoryUserRepository returns an in-memory UserRepository.
func NewMemoryUserRepository() UserRepository {
	return &memoryUserRepository{byID: make(map[int64]*domain.User), now: time.Now}
}

func (r *memoryUserRepository) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.byID {
		if u.Username == user.Username || u.Email == user.Email {
			return ErrUserExists
		}
	}
	r.nextID++
	user.ID = r.nextID
	user.CreatedAt = r.now()
	cp := *user
	r.byID[user.ID] = &cp
	return nil
}

func (r *memoryUserRepository) GetByID(_ context.Context, id int64) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *u
	return &cp, nil
}

func (r *memoryUserRepository) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.byID {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memoryUserRepository) UpdateRole(_ context.Context, id int64, role domain.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	u.Role = role
	return nil
}

type memoryTokenRepository struct {
	mu      sync.Mutex
	records map[string]*domain.TokenRecord
	now     func() time.Time
}

// NewMemoryTokenRepository returns an in-memory TokenRepository using now as its clock.
func NewMemoryTokenRepository(now func() time.Time) TokenRepository {
	if now == nil {
		now = time.Now
	}
	return &memoryTokenRepository{records: make(map[string]*domain.TokenRecord), now: now}
}

func (r *memoryTokenRepository) Create(_ context.Context, pair domain.SessionPair) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	opaque := auth.TokenDigest(pair.OpaqueToken)
	signed := auth.TokenDigest(pair.SignedToken)
	if _, ok := r.records[opaque]; ok {
		return ErrTokenExists
	}
	if _, ok := r.records[signed]; ok {
		return ErrTokenExists
	}

	created := r.now()
	r.records[opaque] = &domain.TokenRecord{UserID: pair.UserID, Kind: domain.TokenKindOpaque, Token: opaque, ExpiresAt: pair.ExpiresAt, CreatedAt: created}
	r.records[signed] = &domain.TokenRecord{UserID: pair.UserID, Kind: domain.TokenKindSigned, Token: signed, ExpiresAt: pair.ExpiresAt, CreatedAt: created}
	return nil
}

func (r *memoryTokenRepository) IsActive(_ context.Context, userID int64, kind domain.TokenKind, token string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[auth.TokenDigest(token)]
	if !ok || rec.UserID != userID || rec.Kind != kind {
		return false, nil
	}
	return rec.Active(r.now()), nil
}

func (r *memoryTokenRepository) Revoke(_ context.Context, userID int64, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[auth.TokenDigest(token)]
	if !ok || rec.UserID != userID {
		return pgx.ErrNoRows
	}
	rec.IsRevoked = true
	return nil
}

func (r *memoryTokenRepository) RevokeAll(_ context.Context, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, rec := range r.records {
		if rec.UserID == userID {
			rec.IsRevoked = true
		}
	}
	return nil
}

type memoryPrincipal struct {
	principal domain.Principal
	expiresAt time.Time
}

type memoryPrincipalRepository struct {
	mu      sync.Mutex
	entries map[string]memoryPrincipal
	now     func() time.Time
}

// NewMemoryPrincipalRepository returns an in-memory PrincipalRepository using now as its clock.
func NewMemoryPrincipalRepository(now func() time.Time) PrincipalRepository {
	if now == nil {
		now = time.Now
	}
	return &memoryPrincipalRepository{entries: make(map[string]memoryPrincipal), now: now}
}

func (r *memoryPrincipalRepository) Put(_ context.Context, opaqueToken string, principal domain.Principal, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries[auth.TokenDigest(opaqueToken)] = memoryPrincipal{principal: principal, expiresAt: r.now().Add(ttl)}
	return nil
}

func (r *memoryPrincipalRepository) Get(_ context.Context, opaqueToken string) (*domain.Principal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := auth.TokenDigest(opaqueToken)
	e, ok := r.entries[key]
	if !ok {
		return nil, nil
	}
	if !r.now().Before(e.expiresAt) {
		delete(r.entries, key)
		return nil, nil
	}
	p := e.principal
	return &p, nil
}

func (r *memoryPrincipalRepository) Delete(_ context.Context, _ int64, opaqueToken string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.entries, auth.TokenDigest(opaqueToken))
	return nil
}

func (r *memoryPrincipalRepository) DeleteAllForUser(_ context.Context, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for k, e := range r.entries {
		if e.principal.UserID == userID {
			delete(r.entries, k)
		}
	}
	return nil
}
