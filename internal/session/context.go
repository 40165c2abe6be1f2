package session

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/abhisek/edubot/internal/content"
)

// Mode is the client-side authoring toggle for elevated users.
type Mode string

const (
	ModeStudent Mode = "student"
	ModeTeacher Mode = "teacher"
)

// SessionContext holds the credential and role of the signed-in user. It is
// shared by the controller and the API client, which reads the token from
// it for every request.
type SessionContext struct {
	mu      sync.RWMutex
	token   string
	email   string
	name    string
	role    content.Role
	mode    Mode
	expires time.Time
}

func NewSessionContext() *SessionContext {
	return &SessionContext{role: content.RoleStudent, mode: ModeStudent}
}

// SetToken installs a bearer token and reads its claims. The signature is
// not checked: the server is the authority, the claims only seed the UI
// until LoadRole answers.
func (s *SessionContext) SetToken(token string) error {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return fmt.Errorf("parse token: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.email, _ = claims["email"].(string)
	if s.email == "" {
		s.email, _ = claims.GetSubject()
	}
	s.name, _ = claims["username"].(string)
	s.expires = time.Time{}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		s.expires = exp.Time
	}
	role, _ := claims["role"].(string)
	s.setRoleLocked(content.ParseRole(role))
	return nil
}

// Token implements api.TokenSource.
func (s *SessionContext) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *SessionContext) Email() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.email
}

// DisplayName is the username claim, or the email when absent.
func (s *SessionContext) DisplayName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if strings.TrimSpace(s.name) != "" {
		return s.name
	}
	return s.email
}

// Authenticated reports whether a token is installed and not expired.
func (s *SessionContext) Authenticated(now time.Time) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" {
		return false
	}
	return s.expires.IsZero() || now.Before(s.expires)
}

func (s *SessionContext) Expires() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expires
}

func (s *SessionContext) Role() content.Role {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.role
}

// SetRole records the authoritative role and resets the mode to the highest
// capability it grants.
func (s *SessionContext) SetRole(role content.Role) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setRoleLocked(role)
}

func (s *SessionContext) setRoleLocked(role content.Role) {
	s.role = content.ParseRole(string(role))
	s.mode = ModeStudent
	if s.role.Elevated() {
		s.mode = ModeTeacher
	}
}

func (s *SessionContext) Mode() Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

// SetMode switches the authoring toggle. Students cannot enter teacher mode.
func (s *SessionContext) SetMode(m Mode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch m {
	case ModeStudent:
	case ModeTeacher:
		if !s.role.Elevated() {
			return ErrNotPermitted
		}
	default:
		return fmt.Errorf("unknown mode %q", m)
	}
	s.mode = m
	return nil
}

// AssignEnabled reports whether creation flows may assign work to a student.
func (s *SessionContext) AssignEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode == ModeTeacher && s.role.Elevated()
}

// CanViewDashboard gates the teacher dashboard.
func (s *SessionContext) CanViewDashboard() bool {
	return s.AssignEnabled()
}

// CanAdmin gates the admin panel.
func (s *SessionContext) CanAdmin() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.role == content.RoleAdmin
}

// Clear forgets the credential, on logout or auth failure.
func (s *SessionContext) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token, s.email, s.name = "", "", ""
	s.expires = time.Time{}
	s.role = content.RoleStudent
	s.mode = ModeStudent
}
