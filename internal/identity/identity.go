// Package identity resolves session tokens to actors and manages
// registration, login and logout.
package identity

import (
	"context"
	"errors"
	"strings"

	"drainwatch/backend/internal/apperror"
	"drainwatch/backend/internal/config"
	"drainwatch/backend/internal/models"
	"drainwatch/backend/internal/ratelimit"
	"drainwatch/backend/internal/session"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

// UserStore is the subset of storage the resolver needs.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// Service is the Identity & Role Resolver.
type Service struct {
	users      UserStore
	sessions   *session.Manager
	limiter    ratelimit.Limiter
	loginLimit int
	hashCost   int
	log        zerolog.Logger

	// dummyHash is compared against when the email is unknown so both
	// login failure paths cost one bcrypt comparison.
	dummyHash []byte
}

// Option configures a Service.
type Option func(*Service)

// WithLoginLimiter throttles login attempts per email.
func WithLoginLimiter(l ratelimit.Limiter, limit int) Option {
	return func(s *Service) {
		s.limiter = l
		s.loginLimit = limit
	}
}

// WithHashCost overrides the bcrypt cost. Tests use bcrypt.MinCost.
func WithHashCost(cost int) Option {
	return func(s *Service) { s.hashCost = cost }
}

// WithLogger attaches a logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.log = l }
}

func NewService(users UserStore, sessions *session.Manager, opts ...Option) *Service {
	s := &Service{
		users:      users,
		sessions:   sessions,
		loginLimit: config.LoginAttemptLimit,
		hashCost:   config.BcryptCost,
		log:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("drainwatch-dummy-password"), s.hashCost)
	return s
}

// Register creates a citizen account and opens a session for it.
// Emails are matched exactly and case-sensitively.
func (s *Service) Register(ctx context.Context, name, email, password string) (*models.User, session.Token, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	switch {
	case name == "":
		return nil, session.Token{}, apperror.Validation("name", "is required")
	case email == "":
		return nil, session.Token{}, apperror.Validation("email", "is required")
	case !strings.Contains(email, "@"):
		return nil, session.Token{}, apperror.Validation("email", "is not a valid address")
	case password == "":
		return nil, session.Token{}, apperror.Validation("password", "is required")
	}

	if _, err := s.users.GetUserByEmail(ctx, email); err == nil {
		return nil, session.Token{}, apperror.ErrDuplicateEmail
	} else if !errors.Is(err, apperror.ErrNotFound) {
		return nil, session.Token{}, apperror.Internal(err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return nil, session.Token{}, apperror.Validation("password", "is too long")
		}
		return nil, session.Token{}, apperror.Internal(err)
	}

	user := &models.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         models.RoleCitizen,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrDuplicateEmail) {
			return nil, session.Token{}, apperror.ErrDuplicateEmail
		}
		return nil, session.Token{}, apperror.Internal(err)
	}

	tok, err := s.sessions.Issue(ctx, user.ID)
	if err != nil {
		return nil, session.Token{}, apperror.Internal(err)
	}
	s.log.Info().Str("user_id", user.ID).Msg("user registered")
	return user, tok, nil
}

func loginKey(email, clientIP string) string {
	return "login:" + clientIP + "|" + email
}

// Login verifies credentials and opens a session. Unknown email and wrong
// password produce the same InvalidCredentials error.
//
// Attempts are counted per client address and email, and a successful login
// clears the count, so another client cannot lock the account out.
func (s *Service) Login(ctx context.Context, email, password, clientIP string) (*models.User, session.Token, error) {
	email = strings.TrimSpace(email)
	key := loginKey(email, clientIP)

	if s.limiter != nil {
		if d := s.limiter.Allow(ctx, key, s.loginLimit); !d.Allowed {
			s.log.Warn().Int("attempts", d.Count).Str("client_ip", clientIP).Msg("login throttled")
			return nil, session.Token{}, apperror.ErrRateLimited
		}
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil && !errors.Is(err, apperror.ErrNotFound) {
		return nil, session.Token{}, apperror.Internal(err)
	}
	if user == nil {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		return nil, session.Token{}, apperror.ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, session.Token{}, apperror.ErrInvalidCredentials
	}

	if s.limiter != nil {
		s.limiter.Reset(ctx, key)
	}

	tok, err := s.sessions.Issue(ctx, user.ID)
	if err != nil {
		return nil, session.Token{}, apperror.Internal(err)
	}
	s.log.Info().Str("user_id", user.ID).Msg("user logged in")
	return user, tok, nil
}

// Logout revokes the session. Already-invalid tokens succeed silently.
func (s *Service) Logout(ctx context.Context, token string) error {
	return s.sessions.Revoke(ctx, token)
}

// Authenticate resolves a token to its actor. A session whose actor no longer
// exists is destroyed so the client is forced to log in again.
func (s *Service) Authenticate(ctx context.Context, token string) (*models.User, error) {
	actorID, sessionID, err := s.sessions.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetUserByID(ctx, actorID)
	if errors.Is(err, apperror.ErrNotFound) {
		if rerr := s.sessions.RevokeSession(ctx, sessionID); rerr != nil {
			s.log.Error().Err(rerr).Msg("failed to drop orphaned session")
		}
		return nil, apperror.New(apperror.KindUnauthenticated, "session no longer valid, please log in again")
	}
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return user, nil
}
