package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jonathan/account-api/internal/config"
	"github.com/jonathan/account-api/internal/db"
	"github.com/jonathan/account-api/internal/i18n"
	"github.com/jonathan/account-api/internal/server/ratelimit"
)

// fakeUserStore is an in-memory UserStore that enforces email uniqueness like the users table.
type fakeUserStore struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*db.User

	getErr            error
	checkErr          error
	updatePasswordErr error
	updateEmailErr    error

	updatePasswordCalls int
	updateEmailCalls    int
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[int64]*db.User)}
}

func (f *fakeUserStore) CreateUser(_ context.Context, email, passwordHash string, step db.RegistrationStep) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	email = db.NormalizeEmail(email)
	if f.byEmailLocked(email) != nil {
		return 0, db.ErrDuplicateEmail
	}
	f.nextID++
	now := time.Now()
	f.users[f.nextID] = &db.User{
		ID:               f.nextID,
		Email:            email,
		PasswordHash:     passwordHash,
		PasswordSet:      passwordHash != "",
		RegistrationStep: step,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	return f.nextID, nil
}

func (f *fakeUserStore) GetUser(_ context.Context, id int64) (*db.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserStore) GetUserByEmail(_ context.Context, email string) (*db.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	u := f.byEmailLocked(db.NormalizeEmail(email))
	if u == nil {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserStore) CheckEmailExists(_ context.Context, email string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.checkErr != nil {
		return false, f.checkErr
	}
	return f.byEmailLocked(db.NormalizeEmail(email)) != nil, nil
}

func (f *fakeUserStore) UpdatePassword(_ context.Context, id int64, passwordHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updatePasswordCalls++
	if f.updatePasswordErr != nil {
		return f.updatePasswordErr
	}
	u, ok := f.users[id]
	if !ok {
		return fmt.Errorf("user not found: %d", id)
	}
	u.PasswordHash = passwordHash
	u.PasswordSet = true
	u.UpdatedAt = time.Now()
	return nil
}

func (f *fakeUserStore) UpdateEmail(_ context.Context, id int64, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateEmailCalls++
	if f.updateEmailErr != nil {
		return f.updateEmailErr
	}
	email = db.NormalizeEmail(email)
	if other := f.byEmailLocked(email); other != nil && other.ID != id {
		return db.ErrDuplicateEmail
	}
	u, ok := f.users[id]
	if !ok {
		return fmt.Errorf("user not found: %d", id)
	}
	u.Email = email
	u.UpdatedAt = time.Now()
	return nil
}

func (f *fakeUserStore) byEmailLocked(email string) *db.User {
	for _, u := range f.users {
		if u.Email == email {
			return u
		}
	}
	return nil
}

func (f *fakeUserStore) user(id int64) db.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.users[id]
}

// testPasswordConfig uses the minimum bcrypt cost to keep tests fast.
func testPasswordConfig() *config.PasswordConfig {
	return &config.PasswordConfig{BcryptCost: bcrypt.MinCost}
}

func testJWTConfig() *config.JWTConfig {
	return &config.JWTConfig{
		Secret:          "test-secret-key-for-jwt-signing-minimum-32-bytes",
		ExpirationHours: 24,
		Issuer:          "account-api",
	}
}

// seedUser stores a user with a hashed password and returns its ID.
func seedUser(t *testing.T, store *fakeUserStore, email, password string) int64 {
	t.Helper()
	hash, err := testPasswordConfig().HashPassword(password)
	require.NoError(t, err)
	id, err := store.CreateUser(context.Background(), email, hash, db.RegistrationStepAccount)
	require.NoError(t, err)
	return id
}

type testEnv struct {
	server *Server
	store  *fakeUserStore
	jwt    *JWTService
}

type pingFunc func(ctx context.Context) error

func (p pingFunc) Ping(ctx context.Context) error { return p(ctx) }

// newTestEnv builds a server over an in-memory store with rate limiting disabled.
func newTestEnv(t *testing.T, mutate ...func(*Dependencies)) *testEnv {
	t.Helper()
	translator, err := i18n.NewTranslator("en")
	require.NoError(t, err)

	store := newFakeUserStore()
	deps := Dependencies{
		Store:          store,
		Health:         pingFunc(func(context.Context) error { return nil }),
		PasswordConfig: testPasswordConfig(),
		JWTConfig:      testJWTConfig(),
		Translator:     translator,
		RateLimiter:    ratelimit.NewLimiter(&ratelimit.Config{Enabled: false}),
	}
	for _, m := range mutate {
		m(&deps)
	}

	s := NewWithDependencies(Config{Port: 0}, deps)
	t.Cleanup(s.Close)
	return &testEnv{server: s, store: store, jwt: s.jwtService}
}

// do sends a request through the full middleware chain.
func (e *testEnv) do(t *testing.T, method, path, body string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

// bearer returns an Authorization header for userID.
func (e *testEnv) bearer(t *testing.T, userID int64) http.Header {
	t.Helper()
	token, err := e.jwt.GenerateToken(userID)
	require.NoError(t, err)
	return http.Header{"Authorization": {"Bearer " + token}}
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}
