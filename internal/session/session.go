// Package session keeps the signed-in user in a pluggable key/value store.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/evanschultz/taskflow/internal/domain"
)

// Store keys, shared with any other reader of the same store.
const (
	KeyAuthenticated = "isAuthenticated"
	KeyUser          = "user"
)

// ErrInvalidCredentials reports a sign-in without an email address.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrNotSignedIn reports an operation that needs a signed-in user.
var ErrNotSignedIn = errors.New("not signed in")

// Store persists string values by key.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Session is the authentication state handed to the UI and CLI.
type Session struct {
	store Store
}

// New wraps store.
func New(store Store) *Session {
	return &Session{store: store}
}

// SignIn accepts any non-empty email, deriving a display name from its local part when name
// is empty.
func (s *Session) SignIn(ctx context.Context, email, name string) (domain.User, error) {
	email = strings.TrimSpace(email)
	name = strings.TrimSpace(name)
	if email == "" {
		return domain.User{}, ErrInvalidCredentials
	}
	if name == "" {
		name = displayNameFromEmail(email)
	}
	user := domain.User{
		Name:   name,
		Email:  email,
		Avatar: domain.AvatarURL(name),
	}
	if err := s.writeUser(ctx, user); err != nil {
		return domain.User{}, err
	}
	if err := s.store.Set(ctx, KeyAuthenticated, "true"); err != nil {
		return domain.User{}, fmt.Errorf("store auth flag: %w", err)
	}
	return user, nil
}

// SignOut clears the stored session.
func (s *Session) SignOut(ctx context.Context) error {
	if err := s.store.Delete(ctx, KeyAuthenticated); err != nil {
		return fmt.Errorf("clear auth flag: %w", err)
	}
	if err := s.store.Delete(ctx, KeyUser); err != nil {
		return fmt.Errorf("clear user: %w", err)
	}
	return nil
}

// IsAuthenticated reports whether the auth flag is set.
func (s *Session) IsAuthenticated(ctx context.Context) (bool, error) {
	raw, ok, err := s.store.Get(ctx, KeyAuthenticated)
	if err != nil {
		return false, err
	}
	return ok && raw == "true", nil
}

// CurrentUser returns the stored user, or ErrNotSignedIn.
func (s *Session) CurrentUser(ctx context.Context) (domain.User, error) {
	authed, err := s.IsAuthenticated(ctx)
	if err != nil {
		return domain.User{}, err
	}
	if !authed {
		return domain.User{}, ErrNotSignedIn
	}
	raw, ok, err := s.store.Get(ctx, KeyUser)
	if err != nil {
		return domain.User{}, err
	}
	if !ok {
		return domain.User{}, ErrNotSignedIn
	}
	var user domain.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return domain.User{}, fmt.Errorf("decode stored user: %w", err)
	}
	return user, nil
}

// UpdateUser replaces the stored user's name and email; the avatar follows the name.
func (s *Session) UpdateUser(ctx context.Context, name, email string) (domain.User, error) {
	user, err := s.CurrentUser(ctx)
	if err != nil {
		return domain.User{}, err
	}
	if name = strings.TrimSpace(name); name != "" {
		user.Name = name
		user.Avatar = domain.AvatarURL(name)
	}
	if email = strings.TrimSpace(email); email != "" {
		user.Email = email
	}
	if err := s.writeUser(ctx, user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

func (s *Session) writeUser(ctx context.Context, user domain.User) error {
	encoded, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	if err := s.store.Set(ctx, KeyUser, string(encoded)); err != nil {
		return fmt.Errorf("store user: %w", err)
	}
	return nil
}

// displayNameFromEmail turns "jane.doe@example.com" into "Jane Doe".
func displayNameFromEmail(email string) string {
	local, _, _ := strings.Cut(email, "@")
	parts := strings.FieldsFunc(local, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == '+'
	})
	for i, part := range parts {
		first, size := utf8.DecodeRuneInString(part)
		parts[i] = string(unicode.ToUpper(first)) + part[size:]
	}
	if len(parts) == 0 {
		return email
	}
	return strings.Join(parts, " ")
}

// MemoryStore is a map-backed Store for tests.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore constructs an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: map[string]string{}}
}

// Get returns the value stored under key.
func (m *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

// Set stores value under key.
func (m *MemoryStore) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

// Delete removes key.
func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}
