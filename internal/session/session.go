// Package session implements the authentication gateway: operator sign-in
// against the identity store, token issuance, the admin allow-list, and the
// auth-state subscription the dashboard guard consumes.
package session

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"bienestar/internal/models"
	"bienestar/internal/repository"
	"bienestar/internal/validation"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	tokenIssuer   = "bienestar-api"
	tokenAudience = "bienestar-admin"
	tokenTTL      = 7 * 24 * time.Hour
)

// Principal identifies a signed-in operator.
type Principal struct {
	UserID uint   `json:"userId"`
	Email  string `json:"email"`
}

// AllowList is the set of operator emails granted admin access. Membership
// is checked case-insensitively; the list is fixed at startup.
type AllowList struct {
	emails map[string]struct{}
}

// NewAllowList builds the set from the configured emails, normalizing each
// entry and dropping blanks.
func NewAllowList(emails []string) *AllowList {
	set := map[string]struct{}{}
	for _, e := range emails {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" {
			set[e] = struct{}{}
		}
	}
	return &AllowList{emails: set}
}

// IsAdmin reports whether the email is on the list.
func (a *AllowList) IsAdmin(email string) bool {
	_, ok := a.emails[strings.ToLower(strings.TrimSpace(email))]
	return ok
}

// Len returns the number of allow-listed emails.
func (a *AllowList) Len() int {
	return len(a.emails)
}

// Listener receives the auth state each time it changes. A nil principal
// means signed out.
type Listener func(p *Principal)

// Manager verifies operator credentials, issues tokens and broadcasts
// auth-state changes to subscribed listeners.
type Manager struct {
	users  repository.UserRepository
	secret string

	mu        sync.Mutex
	current   *Principal
	listeners map[int]Listener
	nextID    int
}

// NewManager creates a session manager backed by the given identity store.
func NewManager(users repository.UserRepository, secret string) *Manager {
	return &Manager{
		users:     users,
		secret:    secret,
		listeners: map[int]Listener{},
	}
}

// SignIn verifies the credentials and returns the principal with a signed
// token. Unknown emails and wrong passwords yield the same error, so a
// caller cannot enumerate accounts.
func (m *Manager) SignIn(ctx context.Context, email, password string) (*Principal, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := m.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, "", err
	}
	if user == nil {
		return nil, "", models.NewAuthError("Invalid email or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, "", models.NewAuthError("Invalid email or password")
	}

	token, err := m.generateToken(user.ID, user.Email)
	if err != nil {
		return nil, "", models.NewInternalError(err)
	}

	p := &Principal{UserID: user.ID, Email: user.Email}
	m.broadcast(p)
	return p, token, nil
}

// SignOut clears the session state and notifies listeners.
func (m *Manager) SignOut() {
	m.broadcast(nil)
}

// Current returns the last broadcast principal, nil when signed out.
func (m *Manager) Current() *Principal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Subscribe registers a listener and synchronously replays the current state
// to it before returning, so a late subscriber never misses the resolved
// auth state. The replay runs under the manager lock so a concurrent
// broadcast cannot deliver a newer state ahead of it; listeners must not
// call back into the manager. The returned function unsubscribes.
func (m *Manager) Subscribe(fn Listener) func() {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	fn(m.current)
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}

func (m *Manager) broadcast(p *Principal) {
	m.mu.Lock()
	m.current = p
	fns := make([]Listener, 0, len(m.listeners))
	for _, fn := range m.listeners {
		fns = append(fns, fn)
	}
	m.mu.Unlock()

	for _, fn := range fns {
		fn(p)
	}
}

// generateToken creates a signed JWT for the given operator.
func (m *Manager) generateToken(userID uint, email string) (string, error) {
	if m.secret == "" {
		return "", fmt.Errorf("JWT secret not configured")
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   strconv.FormatUint(uint64(userID), 10),
		"email": email,
		"iss":   tokenIssuer,
		"aud":   tokenAudience,
		"exp":   now.Add(tokenTTL).Unix(),
		"iat":   now.Unix(),
		"nbf":   now.Unix(),
		"jti":   fmt.Sprintf("%d-%s", now.Unix(), uuid.New().String()[:8]),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(m.secret))
}

// Register creates an operator account with a bcrypt-hashed password. Used
// by the seeder; there is no public sign-up surface.
func (m *Manager) Register(ctx context.Context, email, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validation.ValidateEmail(email); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	existing, err := m.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.NewValidationError("Email already registered")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	user := &models.User{Email: email, Password: string(hash)}
	if err := m.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
