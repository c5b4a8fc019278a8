package memory

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"maps"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	"golang.org/x/oauth2/google"
	"golang.org/x/time/rate"

	"github.com/dmitrymomot/storytime/pkg/localstore"
	"github.com/dmitrymomot/storytime/pkg/logger"
	"github.com/dmitrymomot/storytime/pkg/validator"
	"github.com/dmitrymomot/storytime/svc/auth"
	"github.com/dmitrymomot/storytime/svc/session"
)

var ErrUnknownAccount = errors.New("memory auth: unknown account")

type account struct {
	user      session.User
	hash      []byte
	confirmed bool
}

// Provider is an in-process auth.Provider for development and tests.
// Accounts live in memory; the current session can be persisted to a
// localstore.Storage so separate processes sharing it see the same user.
type Provider struct {
	cfg        Config
	logger     *slog.Logger
	storage    localstore.Storage
	limiter    *rate.Limiter
	oauth      map[string]*oauth2.Config
	now        func() time.Time
	onRecovery func(ctx context.Context, email, token string)
	events     *auth.Emitter
	onDrop     func(auth.EventKind)

	mu       sync.Mutex
	accounts map[string]*account
	current  *auth.Session
	recovery map[string]string
}

var _ auth.Provider = (*Provider)(nil)

type Option func(*Provider)

func WithLogger(l *slog.Logger) Option {
	return func(p *Provider) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithEventDropHook is called for every auth event a slow
// OnAuthStateChange handler lost.
func WithEventDropHook(fn func(auth.EventKind)) Option {
	return func(p *Provider) { p.onDrop = fn }
}

// WithStorage persists the current session under localstore.KeyAuthToken.
func WithStorage(s localstore.Storage) Option {
	return func(p *Provider) { p.storage = s }
}

func WithClock(now func() time.Time) Option {
	return func(p *Provider) {
		if now != nil {
			p.now = now
		}
	}
}

// WithRecoveryHook receives password recovery tokens in place of an email.
func WithRecoveryHook(fn func(ctx context.Context, email, token string)) Option {
	return func(p *Provider) { p.onRecovery = fn }
}

func New(cfg Config, opts ...Option) *Provider {
	p := &Provider{
		cfg:      cfg,
		logger:   logger.Discard(),
		oauth:    make(map[string]*oauth2.Config),
		now:      time.Now,
		accounts: make(map[string]*account),
		recovery: make(map[string]string),
	}
	if p.cfg.BcryptCost == 0 {
		p.cfg.BcryptCost = bcrypt.DefaultCost
	}
	if p.cfg.SessionTTL <= 0 {
		p.cfg.SessionTTL = time.Hour
	}
	if cfg.RateLimit > 0 {
		p.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), max(cfg.RateBurst, 1))
	}
	if cfg.GoogleClientID != "" {
		p.oauth[auth.OAuthProviderGoogle] = &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.OAuthRedirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		}
	}
	if cfg.GithubClientID != "" {
		p.oauth[auth.OAuthProviderGithub] = &oauth2.Config{
			ClientID:     cfg.GithubClientID,
			ClientSecret: cfg.GithubClientSecret,
			RedirectURL:  cfg.OAuthRedirectURL,
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     github.Endpoint,
		}
	}

	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With(logger.Component("memory_auth"))
	p.events = auth.NewEmitter(16, auth.WithEmitterLogger(p.logger), auth.WithDropHook(p.onDrop))
	return p
}

func (p *Provider) SignInWithPassword(ctx context.Context, email, password string) (*auth.Session, error) {
	if err := p.allow(); err != nil {
		return nil, err
	}
	email = normalizeEmail(email)

	p.mu.Lock()
	acc, ok := p.accounts[email]
	var (
		hash      []byte
		user      session.User
		confirmed bool
	)
	if ok {
		hash, user, confirmed = acc.hash, acc.user, acc.confirmed
	}
	p.mu.Unlock()

	if !ok || bcrypt.CompareHashAndPassword(hash, []byte(password)) != nil {
		p.logger.WarnContext(ctx, "sign in rejected", logger.Email(email))
		return nil, errInvalidCredentials
	}
	if !confirmed {
		return nil, errEmailNotConfirmed
	}

	return p.startSession(ctx, user), nil
}

func (p *Provider) SignInWithOAuth(ctx context.Context, provider string) (string, error) {
	cfg, ok := p.oauth[provider]
	if !ok {
		return "", unsupportedOAuth(provider)
	}

	p.logger.DebugContext(ctx, "oauth authorization requested", slog.String("provider", provider))
	return cfg.AuthCodeURL(uuid.NewString(), oauth2.AccessTypeOffline), nil
}

func (p *Provider) SignUp(ctx context.Context, email, password string, metadata map[string]any) (*session.User, error) {
	if err := p.allow(); err != nil {
		return nil, err
	}
	if err := validator.Apply(validator.ValidEmail("email", email)); err != nil {
		return nil, invalidEmail()
	}
	if len(password) < p.cfg.MinPasswordLength {
		return nil, weakPassword(p.cfg.MinPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.cfg.BcryptCost)
	if err != nil {
		return nil, &auth.ProviderError{Status: http.StatusInternalServerError, Message: "failed to hash password", Err: err}
	}

	email = normalizeEmail(email)
	user := session.User{
		ID:       uuid.NewString(),
		Email:    email,
		Metadata: maps.Clone(metadata),
	}

	p.mu.Lock()
	if _, exists := p.accounts[email]; exists {
		p.mu.Unlock()
		return nil, errUserExists
	}
	p.accounts[email] = &account{user: user, hash: hash, confirmed: p.cfg.AutoConfirm}
	p.mu.Unlock()

	p.logger.InfoContext(ctx, "account registered", logger.UserID(user.ID), logger.Email(email))

	if p.cfg.AutoConfirm {
		p.startSession(ctx, user)
	}
	out := user
	out.Metadata = maps.Clone(user.Metadata)
	return &out, nil
}

// Confirm marks an account's email as verified.
func (p *Provider) Confirm(_ context.Context, email string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	acc, ok := p.accounts[normalizeEmail(email)]
	if !ok {
		return ErrUnknownAccount
	}
	acc.confirmed = true
	return nil
}

func (p *Provider) SignOut(ctx context.Context) error {
	p.mu.Lock()
	was := p.current
	p.current = nil
	if was != nil {
		p.events.Emit(ctx, auth.EventSignedOut, nil)
	}
	p.mu.Unlock()

	if was != nil {
		p.logger.InfoContext(ctx, "signed out", logger.UserID(was.User.ID))
	}
	if p.storage != nil {
		if err := p.storage.Delete(ctx, localstore.KeyAuthToken); err != nil {
			return &auth.ProviderError{Status: http.StatusInternalServerError, Message: "failed to drop persisted session", Err: err}
		}
	}
	return nil
}

// ResetPasswordForEmail always succeeds for well-formed addresses so the
// response does not reveal which emails are registered.
func (p *Provider) ResetPasswordForEmail(ctx context.Context, email string) error {
	if err := p.allow(); err != nil {
		return err
	}
	if err := validator.Apply(validator.ValidEmail("email", email)); err != nil {
		return invalidEmail()
	}
	email = normalizeEmail(email)

	var token string
	p.mu.Lock()
	if _, ok := p.accounts[email]; ok {
		token = uuid.NewString()
		p.recovery[token] = email
	}
	p.mu.Unlock()

	if token == "" {
		p.logger.DebugContext(ctx, "recovery requested for unknown email", logger.Email(email))
		return nil
	}
	p.logger.InfoContext(ctx, "recovery token issued", logger.Email(email))
	if p.onRecovery != nil {
		p.onRecovery(ctx, email, token)
	}
	return nil
}

// Recover consumes a recovery token and signs its owner in.
func (p *Provider) Recover(ctx context.Context, token string) (*auth.Session, error) {
	p.mu.Lock()
	email, ok := p.recovery[token]
	delete(p.recovery, token)
	var acc *account
	if ok {
		acc = p.accounts[email]
	}
	var user session.User
	if acc != nil {
		acc.confirmed = true
		user = acc.user
	}
	p.mu.Unlock()

	if acc == nil {
		return nil, &auth.ProviderError{Status: http.StatusForbidden, Code: "otp_expired", Message: "Token has expired or is invalid"}
	}
	return p.startSession(ctx, user), nil
}

func (p *Provider) UpdatePassword(ctx context.Context, password string) error {
	if len(password) < p.cfg.MinPasswordLength {
		return weakPassword(p.cfg.MinPasswordLength)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.cfg.BcryptCost)
	if err != nil {
		return &auth.ProviderError{Status: http.StatusInternalServerError, Message: "failed to hash password", Err: err}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current == nil || p.expired(p.current) {
		return errSessionMissing
	}
	acc, ok := p.accounts[p.current.User.Email]
	if !ok {
		return errSessionMissing
	}
	acc.hash = hash
	p.events.Emit(ctx, auth.EventUserUpdated, p.current)
	p.logger.InfoContext(ctx, "password updated", logger.UserID(acc.user.ID))
	return nil
}

// RefreshSession rotates the current tokens and emits TOKEN_REFRESHED.
func (p *Provider) RefreshSession(ctx context.Context) (*auth.Session, error) {
	p.mu.Lock()
	if p.current == nil {
		p.mu.Unlock()
		return nil, errSessionMissing
	}
	sess := p.issue(*p.current.User)
	p.current = sess
	p.events.Emit(ctx, auth.EventTokenRefreshed, sess)
	out := sess.Clone()
	p.mu.Unlock()

	p.persist(ctx, out)
	return out, nil
}

func (p *Provider) GetSession(ctx context.Context) (*auth.Session, error) {
	p.mu.Lock()
	cur := p.current
	if cur != nil && p.expired(cur) {
		p.current, cur = nil, nil
	}
	out := cur.Clone()
	p.mu.Unlock()
	if out != nil {
		return out, nil
	}

	restored, err := p.restore(ctx)
	if err != nil || restored == nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		p.current = restored
	}
	return p.current.Clone(), nil
}

// OnAuthStateChange delivers EventInitialSession with the current session
// first, then every later event in order.
func (p *Provider) OnAuthStateChange(handler func(auth.Event)) auth.Subscription {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.events.Subscribe(handler, p.current)
}

// Close stops event delivery to every subscriber.
func (p *Provider) Close() error {
	return p.events.Close()
}

func (p *Provider) startSession(ctx context.Context, user session.User) *auth.Session {
	p.mu.Lock()
	sess := p.issue(user)
	p.current = sess
	p.events.Emit(ctx, auth.EventSignedIn, sess)
	out := sess.Clone()
	p.mu.Unlock()

	p.persist(ctx, out)
	p.logger.InfoContext(ctx, "session started", logger.UserID(user.ID))
	return out
}

func (p *Provider) issue(user session.User) *auth.Session {
	s := &auth.Session{
		AccessToken:  uuid.NewString(),
		RefreshToken: uuid.NewString(),
		ExpiresAt:    p.now().Add(p.cfg.SessionTTL),
		User:         &user,
	}
	return s.Clone()
}

func (p *Provider) persist(ctx context.Context, sess *auth.Session) {
	if p.storage == nil {
		return
	}
	data, err := json.Marshal(sess)
	if err == nil {
		err = p.storage.Set(ctx, localstore.KeyAuthToken, data, sess.ExpiresAt.Sub(p.now()))
	}
	if err != nil {
		p.logger.WarnContext(ctx, "failed to persist session", logger.Error(err))
	}
}

func (p *Provider) restore(ctx context.Context) (*auth.Session, error) {
	if p.storage == nil {
		return nil, nil
	}
	data, err := p.storage.Get(ctx, localstore.KeyAuthToken)
	if errors.Is(err, localstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, &auth.ProviderError{Status: http.StatusServiceUnavailable, Message: "failed to load persisted session", Err: err}
	}

	var sess auth.Session
	if err := json.Unmarshal(data, &sess); err != nil || sess.User == nil || p.expired(&sess) {
		p.logger.WarnContext(ctx, "discarding persisted session")
		return nil, nil
	}
	return &sess, nil
}

func (p *Provider) expired(s *auth.Session) bool {
	return !s.ExpiresAt.IsZero() && !p.now().Before(s.ExpiresAt)
}

func (p *Provider) allow() error {
	if p.limiter != nil && !p.limiter.Allow() {
		return errRateLimited
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
