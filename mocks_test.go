package auth_test

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	auth "github.com/goliatone/go-signin"
	"github.com/goliatone/go-signin/config"
)

// MockUserStore implements auth.UserStore
type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	args := m.Called(ctx, email)
	user, _ := args.Get(0).(*auth.User)
	return user, args.Error(1)
}

func (m *MockUserStore) Register(ctx context.Context, user *auth.User) (*auth.User, error) {
	args := m.Called(ctx, user)
	created, _ := args.Get(0).(*auth.User)
	return created, args.Error(1)
}

func (m *MockUserStore) LinkAccount(ctx context.Context, account *auth.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

// MockActivitySink implements auth.ActivitySink
type MockActivitySink struct {
	mu     sync.Mutex
	events []auth.ActivityEvent
}

func (m *MockActivitySink) Record(_ context.Context, event auth.ActivityEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *MockActivitySink) Events() []auth.ActivityEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]auth.ActivityEvent, len(m.events))
	copy(out, m.events)
	return out
}

func (m *MockActivitySink) Types() []auth.ActivityEventType {
	out := []auth.ActivityEventType{}
	for _, e := range m.Events() {
		out = append(out, e.EventType)
	}
	return out
}

// memStore is an in memory auth.UserStore
type memStore struct {
	mu       sync.Mutex
	users    map[string]*auth.User
	accounts []*auth.Account
}

func newMemStore(users ...*auth.User) *memStore {
	s := &memStore{users: map[string]*auth.User{}}
	for _, u := range users {
		if u.ID == uuid.Nil {
			u.ID = uuid.New()
		}
		s.users[auth.NormalizeEmail(u.Email)] = u
	}
	return s
}

func (s *memStore) FindByEmail(_ context.Context, email string) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[auth.NormalizeEmail(email)]; ok {
		return u, nil
	}
	return nil, auth.ErrUserNotFound
}

func (s *memStore) Register(_ context.Context, user *auth.User) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email := auth.NormalizeEmail(user.Email)
	if _, ok := s.users[email]; ok {
		return nil, auth.ErrEmailTaken
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.Email = email
	s.users[email] = user
	return user, nil
}

func (s *memStore) LinkAccount(_ context.Context, account *auth.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts = append(s.accounts, account)
	return nil
}

func (s *memStore) linked() []*auth.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*auth.Account(nil), s.accounts...)
}

const testPassword = "password123"

// bcrypt at the production cost is slow, hash once per test binary
var testPasswordHash = mustHash(testPassword)

func mustHash(password string) string {
	hash, err := auth.HashPassword(password)
	if err != nil {
		panic(err)
	}
	return hash
}

func testUser() *auth.User {
	return &auth.User{
		ID:           uuid.MustParse("6f1c2a52-4d3e-4a4b-9a0d-2f7f1c9b1e11"),
		Email:        "user@example.com",
		Name:         "Test User",
		PasswordHash: testPasswordHash,
	}
}

func testConfig() *config.Config {
	return &config.Config{
		AuthSecret:        "session-secret",
		JWTSecret:         "jwt-secret",
		BaseURL:           "http://localhost:3000",
		SignInPage:        "/auth/signin",
		ErrorPage:         "/auth/error",
		SuccessRedirect:   "/dashboard",
		TokenExpiration:   1,
		SessionCookieName: "session_token",
		TokenCookieName:   "token",
		ContextKey:        "user",
		SigningMethod:     "HS256",
	}
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

func hasCookie(setCookies []string, name string) bool {
	for _, c := range setCookies {
		if strings.HasPrefix(c, name+"=") {
			return true
		}
	}
	return false
}
