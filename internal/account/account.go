// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package account manages accounts: creation, passwords and reset codes,
// API keys, sessions and the disabled flag.
package account

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/pdiddy/publications/internal/mail"
	"github.com/pdiddy/publications/internal/normalize"
	"github.com/pdiddy/publications/internal/store"
	"github.com/pdiddy/publications/pkg/types"
)

// Errors returned by the account service.
var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrNotAuthorized    = errors.New("not authorized")
	ErrDisabled         = errors.New("account disabled")
	ErrInvalidPassword  = errors.New("invalid password")
	ErrInvalidCode      = errors.New("invalid reset code")
)

// Defaults for an unset AccountConfig.
const (
	DefaultMinPasswordLength = 6
	DefaultLoginMaxAgeDays   = 14
)

// Service runs account flows against a store.
type Service struct {
	store     *store.Store
	mailer    mail.Mailer
	tokens    TokenService
	minLength int
	baseURL   string
	siteName  string
	logger    zerolog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithSite sets the site name and base URL used in notification mails.
func WithSite(name, baseURL string) Option {
	return func(s *Service) { s.siteName, s.baseURL = name, strings.TrimRight(baseURL, "/") }
}

// New returns a Service. A nil mailer discards notifications.
func New(st *store.Store, cfg types.AccountConfig, mailer mail.Mailer, opts ...Option) *Service {
	if mailer == nil {
		mailer = mail.Nop{}
	}
	if cfg.MinPasswordLength <= 0 {
		cfg.MinPasswordLength = DefaultMinPasswordLength
	}
	if cfg.LoginMaxAgeDays <= 0 {
		cfg.LoginMaxAgeDays = DefaultLoginMaxAgeDays
	}
	s := &Service{
		store:  st,
		mailer: mailer,
		tokens: TokenService{
			Secret:   []byte(cfg.CookieSecret),
			Issuer:   "publications",
			Duration: cfg.LoginMaxAge(),
			Now:      st.Now,
		},
		minLength: cfg.MinPasswordLength,
		siteName:  "Publications",
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Tokens returns the session token service.
func (s *Service) Tokens() TokenService { return s.tokens }

// NewKey returns a random 32-character hex string for API keys and
// reset codes.
func NewKey() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

type createRequest struct {
	Email string
	Role  types.Role
}

func (r createRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.EmailFormat, validation.Length(3, 255)),
		validation.Field(&r.Role, validation.Required, validation.In(types.RoleAdmin, types.RoleCurator)),
	)
}

// Create adds an account with a pending password reset and mails the
// reset code. Labels not matching an existing Label are dropped.
func (s *Service) Create(ctx context.Context, email string, role types.Role, labels []string, actor string) (*types.Account, error) {
	req := createRequest{Email: normalize.Email(email), Role: role}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrInvalid, err)
	}
	if _, err := s.store.GetAccount(ctx, req.Email); err == nil {
		return nil, fmt.Errorf("%w: account %s", store.ErrDuplicate, req.Email)
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	known, err := s.knownLabels(ctx, labels)
	if err != nil {
		return nil, err
	}
	a := &types.Account{Email: req.Email, Role: role, Code: NewKey(), Labels: known}
	if _, err := s.store.SaveAccount(ctx, a, actor); err != nil {
		return nil, err
	}
	s.logger.Info().Str("email", a.Email).Str("role", string(role)).Str("actor", actor).Msg("created account")
	s.notifyCode(ctx, a, "account created")
	return a, nil
}

// SetLabels replaces the default labels of an account.
func (s *Service) SetLabels(ctx context.Context, email string, labels []string, actor string) (*types.Account, error) {
	known, err := s.knownLabels(ctx, labels)
	if err != nil {
		return nil, err
	}
	return s.update(ctx, email, actor, func(a *types.Account) error {
		a.Labels = known
		return nil
	})
}

// knownLabels maps each value to the display form of its Label,
// dropping unknown and repeated values.
func (s *Service) knownLabels(ctx context.Context, values []string) ([]string, error) {
	var out []string
	seen := make(map[string]bool)
	for _, v := range values {
		l, err := s.store.GetLabel(ctx, v)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if !seen[l.NormalizedValue] {
			seen[l.NormalizedValue] = true
			out = append(out, l.Value)
		}
	}
	return out, nil
}

func (s *Service) update(ctx context.Context, email, actor string, mutate func(*types.Account) error) (*types.Account, error) {
	a, err := s.store.GetAccount(ctx, email)
	if err != nil {
		return nil, err
	}
	if err := mutate(a); err != nil {
		return nil, err
	}
	if _, err := s.store.SaveAccount(ctx, a, actor); err != nil {
		return nil, err
	}
	return a, nil
}

// ResetPassword clears the password, sets a new reset code and mails it.
func (s *Service) ResetPassword(ctx context.Context, email, actor string) (*types.Account, error) {
	a, err := s.update(ctx, email, actor, func(a *types.Account) error {
		a.Password = ""
		a.Code = NewKey()
		a.Login = ""
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notifyCode(ctx, a, "password reset")
	return a, nil
}

// SetPassword sets a new password given the pending reset code.
func (s *Service) SetPassword(ctx context.Context, email, code, password string) (*types.Account, error) {
	return s.update(ctx, email, normalize.Email(email), func(a *types.Account) error {
		if a.Code == "" || code != a.Code {
			return ErrInvalidCode
		}
		return s.setPassword(a, password)
	})
}

// ChangePassword sets a new password without a reset code.
func (s *Service) ChangePassword(ctx context.Context, email, password, actor string) (*types.Account, error) {
	return s.update(ctx, email, actor, func(a *types.Account) error {
		return s.setPassword(a, password)
	})
}

func (s *Service) setPassword(a *types.Account, password string) error {
	if len(password) < s.minLength {
		return fmt.Errorf("%w: shorter than %d characters", ErrInvalidPassword, s.minLength)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	a.Password = string(hash)
	a.Code = ""
	return nil
}

// GenerateAPIKey gives the account a new API key, replacing any old one.
func (s *Service) GenerateAPIKey(ctx context.Context, email, actor string) (*types.Account, error) {
	return s.update(ctx, email, actor, func(a *types.Account) error {
		a.APIKey = NewKey()
		return nil
	})
}

// SetDisabled enables or disables an account. Disabling ends its sessions.
func (s *Service) SetDisabled(ctx context.Context, email string, disabled bool, actor string) (*types.Account, error) {
	return s.update(ctx, email, actor, func(a *types.Account) error {
		a.Disabled = disabled
		if disabled {
			a.Login = ""
		}
		return nil
	})
}

// Authenticate checks a password.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*types.Account, error) {
	a, err := s.store.GetAccount(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotAuthenticated
	}
	if err != nil {
		return nil, err
	}
	if a.Disabled {
		return nil, ErrDisabled
	}
	if a.Password == "" || bcrypt.CompareHashAndPassword([]byte(a.Password), []byte(password)) != nil {
		return nil, ErrNotAuthenticated
	}
	return a, nil
}

// Login authenticates, records the login time and returns a session token.
func (s *Service) Login(ctx context.Context, email, password string) (*types.Account, string, error) {
	a, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return nil, "", err
	}
	now := s.store.Now()
	a.Login = types.Timestamp(now)
	if _, err := s.store.SaveAccount(ctx, a, a.Email); err != nil {
		return nil, "", err
	}
	token, _, err := s.tokens.Sign(a.Email)
	if err != nil {
		return nil, "", err
	}
	s.logger.Info().Str("email", a.Email).Msg("logged in")
	return a, token, nil
}

// Logout clears the login time, invalidating every session of the account.
func (s *Service) Logout(ctx context.Context, email string) error {
	_, err := s.update(ctx, email, normalize.Email(email), func(a *types.Account) error {
		a.Login = ""
		return nil
	})
	return err
}

// Session returns the account a session token belongs to. Tokens of
// disabled accounts, of accounts logged out since, or issued before the
// latest login are rejected.
func (s *Service) Session(ctx context.Context, token string) (*types.Account, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotAuthenticated, err)
	}
	a, err := s.store.GetAccount(ctx, claims.Email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotAuthenticated
	}
	if err != nil {
		return nil, err
	}
	if a.Disabled || a.Login == "" {
		return nil, ErrNotAuthenticated
	}
	login, err := types.ParseTimestamp(a.Login)
	if err != nil || claims.IssuedAt == nil || claims.IssuedAt.Time.Before(login.Truncate(time.Second)) {
		return nil, ErrNotAuthenticated
	}
	return a, nil
}

// APIKey returns the enabled account holding key.
func (s *Service) APIKey(ctx context.Context, key string) (*types.Account, error) {
	if key == "" {
		return nil, ErrNotAuthenticated
	}
	a, err := s.store.GetAccountByAPIKey(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotAuthenticated
	}
	if err != nil {
		return nil, err
	}
	if a.Disabled {
		return nil, ErrNotAuthenticated
	}
	return a, nil
}

// RequireAdmin fails unless a is an enabled admin.
func RequireAdmin(a *types.Account) error {
	if a == nil {
		return ErrNotAuthenticated
	}
	if a.Disabled || !a.IsAdmin() {
		return ErrNotAuthorized
	}
	return nil
}

// notifyCode mails the reset code. Failures are logged only.
func (s *Service) notifyCode(ctx context.Context, a *types.Account, reason string) {
	link := fmt.Sprintf("%s/password?email=%s&code=%s", s.baseURL, url.QueryEscape(a.Email), a.Code)
	msg := mail.Message{
		To:      a.Email,
		Subject: fmt.Sprintf("%s: %s", s.siteName, reason),
		Body:    fmt.Sprintf("Set your password using the one-time code %s\n\n%s\n", a.Code, link),
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		s.logger.Warn().Err(err).Str("email", a.Email).Msg("mailing reset code")
	}
}
