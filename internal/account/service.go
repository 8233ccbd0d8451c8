// Package account signs users in through the identity provider and keeps
// their local account, credit balance and cached session in step.
package account

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"go.uber.org/zap"

	"styleswap/internal/monitoring"
	"styleswap/internal/styleswap"
)

type Store interface {
	EnsureAccount(ctx context.Context, account *styleswap.Account) (*styleswap.Account, error)
	GetAccount(ctx context.Context, id string) (*styleswap.Account, error)
	GrantBonus(ctx context.Context, accountId string, credits int64) (bool, *styleswap.Account, error)
}

type IdentityProvider interface {
	SignUp(ctx context.Context, email, password string, attrs map[string]interface{}) (*styleswap.AuthSession, error)
	SignInWithPassword(ctx context.Context, email, password string) (*styleswap.AuthSession, error)
	SendPasswordReset(ctx context.Context, email, redirectURL string) error
	UpdatePassword(ctx context.Context, accessToken, password string) error
	SignOut(ctx context.Context, accessToken string) error
}

type SessionCache interface {
	Get(ctx context.Context, userId string) (*styleswap.User, error)
	Set(ctx context.Context, user *styleswap.User) error
	Invalidate(ctx context.Context, userId string) error
}

// Login is the result of a successful sign-up or sign-in. Session is empty
// when the provider requires email confirmation first.
type Login struct {
	User    *styleswap.User        `json:"user"`
	Session *styleswap.AuthSession `json:"session,omitempty"`
}

type Service struct {
	idp    IdentityProvider
	store  Store
	cache  SessionCache
	origin string
	log    *zap.Logger
}

func NewService(idp IdentityProvider, store Store, cache SessionCache, origin string, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		idp:    idp,
		store:  store,
		cache:  cache,
		origin: strings.TrimSuffix(origin, "/"),
		log:    log.Named("account"),
	}
}

func validateCredentials(email, password string) error {
	if _, err := mail.ParseAddress(email); err != nil {
		return styleswap.NewValidationError("email", "Please enter a valid email address")
	}
	if password == "" {
		return styleswap.NewValidationError("password", "Password is required")
	}
	return nil
}

func (s *Service) SignUp(ctx context.Context, email, password, fullName string) (*Login, error) {
	email = strings.TrimSpace(email)
	if err := validateCredentials(email, password); err != nil {
		return nil, err
	}
	name := styleswap.DisplayName(fullName, email)
	session, err := s.idp.SignUp(ctx, email, password, map[string]interface{}{"full_name": name})
	if err != nil {
		s.log.Info("sign-up rejected", zap.String("email", email), zap.Error(err))
		return nil, err
	}
	identity := session.Identity
	if identity.FullName == "" {
		identity.FullName = name
	}
	user, err := s.Authenticated(ctx, identity)
	if err != nil {
		return nil, err
	}
	login := &Login{User: user}
	if session.AccessToken != "" {
		login.Session = session
	}
	return login, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (*Login, error) {
	email = strings.TrimSpace(email)
	if err := validateCredentials(email, password); err != nil {
		return nil, err
	}
	session, err := s.idp.SignInWithPassword(ctx, email, password)
	if err != nil {
		s.log.Info("sign-in rejected", zap.String("email", email), zap.Error(err))
		return nil, err
	}
	user, err := s.Authenticated(ctx, session.Identity)
	if err != nil {
		return nil, err
	}
	return &Login{User: user, Session: session}, nil
}

// Authenticated runs on every successful authentication: it creates the
// account on first sight, applies the signup bonus and refreshes the cached
// session.
func (s *Service) Authenticated(ctx context.Context, identity styleswap.Identity) (*styleswap.User, error) {
	account, err := s.store.EnsureAccount(ctx, &styleswap.Account{
		Id:        identity.Id,
		Email:     identity.Email,
		FullName:  styleswap.DisplayName(identity.FullName, identity.Email),
		AvatarUrl: identity.AvatarUrl,
	})
	if err != nil {
		s.log.Error("ensure account", zap.String("user_id", identity.Id), zap.Error(err))
		return nil, err
	}
	account, err = s.GrantSignupBonus(ctx, account)
	if err != nil {
		return nil, err
	}
	user := account.User()
	s.storeSession(ctx, user)
	return user, nil
}

// GrantSignupBonus credits an account that has never held credits. Accounts
// with a balance, or that already received the bonus, are returned unchanged.
func (s *Service) GrantSignupBonus(ctx context.Context, account *styleswap.Account) (*styleswap.Account, error) {
	if account.Credits != 0 || account.BonusGranted {
		return account, nil
	}
	granted, updated, err := s.store.GrantBonus(ctx, account.Id, styleswap.SignupBonusCredits)
	if err != nil {
		s.log.Error("grant signup bonus", zap.String("user_id", account.Id), zap.Error(err))
		return nil, err
	}
	if granted {
		monitoring.SignupBonusesTotal.Inc()
		s.log.Info("signup bonus granted", zap.String("user_id", account.Id), zap.Int64("credits", updated.Credits))
	}
	return updated, nil
}

// CurrentUser serves the cached session, rebuilding it from the store on a miss.
func (s *Service) CurrentUser(ctx context.Context, identity styleswap.Identity) (*styleswap.User, error) {
	if s.cache != nil {
		user, err := s.cache.Get(ctx, identity.Id)
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, styleswap.ErrNotFound) {
			s.log.Warn("session cache read", zap.String("user_id", identity.Id), zap.Error(err))
		}
	}
	return s.Authenticated(ctx, identity)
}

// RefreshCredits re-reads the balance from the store and updates the session.
func (s *Service) RefreshCredits(ctx context.Context, userId string) (*styleswap.User, error) {
	account, err := s.store.GetAccount(ctx, userId)
	if err != nil {
		return nil, err
	}
	user := account.User()
	s.storeSession(ctx, user)
	return user, nil
}

func (s *Service) Logout(ctx context.Context, accessToken, userId string) error {
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, userId); err != nil {
			s.log.Warn("session cache invalidate", zap.String("user_id", userId), zap.Error(err))
		}
	}
	if err := s.idp.SignOut(ctx, accessToken); err != nil {
		s.log.Info("sign-out", zap.String("user_id", userId), zap.Error(err))
		return err
	}
	return nil
}

// ResetPassword emails a reset link that lands on the storefront's reset page.
func (s *Service) ResetPassword(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return styleswap.NewValidationError("email", "Please enter a valid email address")
	}
	return s.idp.SendPasswordReset(ctx, email, s.origin+"/reset-password")
}

func (s *Service) UpdatePassword(ctx context.Context, accessToken, password, confirm string) error {
	if password == "" {
		return styleswap.NewValidationError("password", "Password is required")
	}
	if password != confirm {
		return styleswap.NewValidationError("confirm_password", "Passwords do not match")
	}
	return s.idp.UpdatePassword(ctx, accessToken, password)
}

func (s *Service) storeSession(ctx context.Context, user *styleswap.User) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, user); err != nil {
		s.log.Warn("session cache write", zap.String("user_id", user.Id), zap.Error(err))
	}
}
