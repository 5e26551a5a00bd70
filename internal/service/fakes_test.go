package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/authgate/backend/internal/config"
	"github.com/authgate/backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var errUniqueViolation = &pgconn.PgError{Code: "23505"}

type fakeUserStore struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*model.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[int64]*model.User)}
}

func (f *fakeUserStore) CreateUser(ctx context.Context, draft model.UserDraft) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, u := range f.users {
		if u.Email == draft.Email {
			return nil, errUniqueViolation
		}
	}

	f.nextID++
	now := time.Now()
	user := &model.User{
		ID:           f.nextID,
		FullName:     draft.FullName,
		Email:        draft.Email,
		PasswordHash: draft.PasswordHash,
		Role:         draft.Role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	f.users[user.ID] = user
	return scrub(user), nil
}

func (f *fakeUserStore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, u := range f.users {
		if u.Email == email {
			return scrub(u), nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeUserStore) GetUserByEmailWithPassword(ctx context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, u := range f.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeUserStore) GetUserByID(ctx context.Context, userID int64) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if u, ok := f.users[userID]; ok {
		return scrub(u), nil
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeUserStore) ListUsers(ctx context.Context) ([]model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []model.User
	for _, u := range f.users {
		out = append(out, *scrub(u))
	}
	return out, nil
}

func (f *fakeUserStore) UpdateUser(ctx context.Context, userID int64, patch model.UserPatch) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	user, ok := f.users[userID]
	if !ok {
		return nil, pgx.ErrNoRows
	}

	if patch.Email != nil {
		for id, u := range f.users {
			if id != userID && u.Email == *patch.Email {
				return nil, errUniqueViolation
			}
		}
		user.Email = *patch.Email
	}
	if patch.FullName != nil {
		user.FullName = *patch.FullName
	}
	if patch.PasswordHash != nil {
		user.PasswordHash = *patch.PasswordHash
	}
	if patch.Role != nil {
		user.Role = *patch.Role
	}
	if patch.AvatarURL != nil {
		user.AvatarURL = *patch.AvatarURL
	}
	user.UpdatedAt = time.Now()
	return scrub(user), nil
}

func (f *fakeUserStore) DeleteUser(ctx context.Context, userID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.users[userID]; !ok {
		return false, nil
	}
	delete(f.users, userID)
	return true, nil
}

func scrub(u *model.User) *model.User {
	copied := *u
	copied.PasswordHash = ""
	return &copied
}

type fakeTokenStore struct {
	mu         sync.Mutex
	records    map[string]model.RefreshTokenRecord
	failCreate bool
}

func newFakeTokenStore() *fakeTokenStore {
	return &fakeTokenStore{records: make(map[string]model.RefreshTokenRecord)}
}

func (f *fakeTokenStore) CreateRefreshToken(ctx context.Context, userID int64, expiresAt time.Time) (*model.RefreshTokenRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failCreate {
		return nil, errors.New("storage down")
	}

	record := model.RefreshTokenRecord{
		ID:        uuid.NewString(),
		UserID:    userID,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}
	f.records[record.ID] = record
	return &record, nil
}

func (f *fakeTokenStore) GetRefreshTokenByID(ctx context.Context, tokenID string) (*model.RefreshTokenRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if record, ok := f.records[tokenID]; ok {
		return &record, nil
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeTokenStore) DeleteRefreshToken(ctx context.Context, tokenID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.records[tokenID]; !ok {
		return false, nil
	}
	delete(f.records, tokenID)
	return true, nil
}

func (f *fakeTokenStore) DeleteRefreshTokensByUser(ctx context.Context, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for id, record := range f.records {
		if record.UserID == userID {
			delete(f.records, id)
		}
	}
	return nil
}

func (f *fakeTokenStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

type fakeMailer struct {
	mu      sync.Mutex
	lastOtp string
	sentTo  []string
	fail    bool
}

func (m *fakeMailer) SendOtp(ctx context.Context, email, otp string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.fail {
		return errors.New("smtp down")
	}
	m.lastOtp = otp
	m.sentTo = append(m.sentTo, email)
	return nil
}

func testCredentialService(t *testing.T) *CredentialService {
	t.Helper()
	creds, err := NewCredentialService(config.OtpConfig{HashSecret: "otp-test-secret", TTL: "10m"})
	if err != nil {
		t.Fatalf("NewCredentialService: %v", err)
	}
	return creds
}

func testTokenService(t *testing.T, store tokenStore) *TokenService {
	t.Helper()
	tokens, err := NewTokenService(store, config.AuthConfig{
		AccessSecret:  "access-test-secret",
		RefreshSecret: "refresh-test-secret",
		AccessTTL:     "24h",
		RefreshTTL:    "8760h",
		CookieSecure:  "false",
	})
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return tokens
}
