package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"classifieds/internal/auth"
	apperrors "classifieds/internal/errors"
	"classifieds/internal/metrics"
	"classifieds/internal/model"
	"classifieds/internal/repository"
)

const bcryptCost = 10

// AuthResult is a signed-in user together with the session that was issued.
type AuthResult struct {
	User         *model.User
	SessionToken string
	ExpiresAt    time.Time
}

// AuthService handles authentication operations.
type AuthService interface {
	Register(ctx context.Context, email, password, name string) (*AuthResult, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	SSOLogin(ctx context.Context, sessionID string) (*AuthResult, error)
	CurrentUser(ctx context.Context, token string) (*model.User, error)
	Logout(ctx context.Context, token string) error
}

type authService struct {
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	issuer      *auth.TokenIssuer
	sessions    auth.SessionCacheInterface
	identity    auth.IdentityProvider
	metrics     metrics.Recorder
	now         func() time.Time
}

// NewAuthService creates a new authentication service.
func NewAuthService(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	issuer *auth.TokenIssuer,
	sessions auth.SessionCacheInterface,
	identity auth.IdentityProvider,
	recorder metrics.Recorder,
) AuthService {
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	return &authService{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		issuer:      issuer,
		sessions:    sessions,
		identity:    identity,
		metrics:     recorder,
		now:         time.Now,
	}
}

// Register creates a password account and signs it in.
func (s *authService) Register(ctx context.Context, email, password, name string) (*AuthResult, error) {
	_, err := s.userRepo.FindByEmail(ctx, email)
	if err == nil {
		return nil, apperrors.ErrEmailAlreadyRegistered
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("check user existence: %w", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	hash := string(hashed)

	user := &model.User{
		Email:        email,
		Name:         name,
		PasswordHash: &hash,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		// A concurrent registration won the unique index.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.ErrEmailAlreadyRegistered
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	return s.issueSession(ctx, user, "register")
}

// Login verifies a password and issues a new session.
func (s *authService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}

	// SSO-only accounts have no password to compare against.
	if user.PasswordHash == nil {
		return nil, apperrors.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(password)); err != nil {
		return nil, apperrors.ErrInvalidCredentials
	}

	return s.issueSession(ctx, user, "password")
}

func (s *authService) issueSession(ctx context.Context, user *model.User, method string) (*AuthResult, error) {
	token, expiresAt, err := s.issuer.Issue(user.UserID)
	if err != nil {
		return nil, fmt.Errorf("generate session token: %w", err)
	}

	if err := s.sessionRepo.Create(ctx, &model.Session{
		SessionToken: token,
		UserID:       user.UserID,
		ExpiresAt:    expiresAt,
	}); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}

	s.metrics.RecordLogin(method)
	return &AuthResult{User: user, SessionToken: token, ExpiresAt: expiresAt}, nil
}

// SSOLogin exchanges a provider session id, upserts the user and replaces
// every prior session of that user with the provider's token.
func (s *authService) SSOLogin(ctx context.Context, sessionID string) (*AuthResult, error) {
	if sessionID == "" {
		return nil, apperrors.ErrSessionIDRequired
	}

	identity, err := s.identity.Exchange(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	user, err := s.upsertSSOUser(ctx, identity)
	if err != nil {
		return nil, err
	}

	purged, err := s.sessionRepo.DeleteByUserID(ctx, user.UserID)
	if err != nil {
		return nil, fmt.Errorf("purge sessions: %w", err)
	}
	s.sessions.Invalidate(ctx, purged...)

	expiresAt := s.now().UTC().Add(auth.SessionTTL)
	if err := s.sessionRepo.Create(ctx, &model.Session{
		SessionToken: identity.SessionToken,
		UserID:       user.UserID,
		ExpiresAt:    expiresAt,
	}); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}

	s.metrics.RecordLogin("sso")
	return &AuthResult{User: user, SessionToken: identity.SessionToken, ExpiresAt: expiresAt}, nil
}

func (s *authService) upsertSSOUser(ctx context.Context, identity *auth.Identity) (*model.User, error) {
	user, err := s.userRepo.FindByEmail(ctx, identity.Email)
	switch {
	case err == nil:
		if err := s.userRepo.UpdateProfile(ctx, user.UserID, identity.Name, identity.Picture); err != nil {
			return nil, fmt.Errorf("update profile: %w", err)
		}
		user.Name = identity.Name
		user.Picture = identity.Picture
		return user, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("find user: %w", err)
	}

	user = &model.User{
		Email:   identity.Email,
		Name:    identity.Name,
		Picture: identity.Picture,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("create user: %w", err)
		}
		// Lost a race with another first-time login for the same email.
		return s.userRepo.FindByEmail(ctx, identity.Email)
	}
	return user, nil
}

// CurrentUser resolves a session token to its user.
func (s *authService) CurrentUser(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, apperrors.ErrNotAuthenticated
	}

	session, err := s.lookupSession(ctx, token)
	if err != nil {
		return nil, err
	}
	if session.Expired(s.now()) {
		return nil, apperrors.ErrSessionExpired
	}

	user, err := s.userRepo.FindByID(ctx, session.UserID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

// lookupSession reads the session through the cache, filling it on a miss.
func (s *authService) lookupSession(ctx context.Context, token string) (*model.Session, error) {
	if cached, ok := s.sessions.Get(ctx, token); ok {
		return &model.Session{SessionToken: token, UserID: cached.UserID, ExpiresAt: cached.ExpiresAt}, nil
	}

	session, err := s.sessionRepo.FindByToken(ctx, token)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrInvalidSession
	}
	if err != nil {
		return nil, fmt.Errorf("find session: %w", err)
	}
	s.sessions.Put(ctx, token, auth.CachedSession{UserID: session.UserID, ExpiresAt: session.ExpiresAt})
	return session, nil
}

// Logout deletes the session if it exists. It never fails for unknown tokens.
func (s *authService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.sessionRepo.DeleteByToken(ctx, token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	s.sessions.Invalidate(ctx, token)
	return nil
}
