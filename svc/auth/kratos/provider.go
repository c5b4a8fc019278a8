package kratos

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"net/http"
	"net/url"
	"sync"
	"time"

	kratos "github.com/ory/kratos-client-go"

	"github.com/dmitrymomot/storytime/pkg/localstore"
	"github.com/dmitrymomot/storytime/pkg/logger"
	"github.com/dmitrymomot/storytime/svc/auth"
	"github.com/dmitrymomot/storytime/svc/session"
)

const methodPassword = "password"

var oidcProviders = map[string]bool{
	auth.OAuthProviderGoogle: true,
	auth.OAuthProviderGithub: true,
}

// Provider talks to the Kratos public API.
type Provider struct {
	api     *kratos.APIClient
	cfg     Config
	storage localstore.Storage
	logger  *slog.Logger
	events  *auth.Emitter
	onDrop  func(auth.EventKind)

	mu      sync.Mutex
	token   string
	current *auth.Session
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

// WithStorage persists the session token under localstore.KeyAuthToken.
func WithStorage(s localstore.Storage) Option {
	return func(p *Provider) { p.storage = s }
}

// WithHTTPClient replaces the client built from Config.Timeout.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) {
		if c != nil {
			p.api.GetConfig().HTTPClient = c
		}
	}
}

func New(cfg Config, opts ...Option) (*Provider, error) {
	u, err := url.Parse(cfg.PublicURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, errors.Join(ErrInvalidURL, err)
	}

	conf := kratos.NewConfiguration()
	conf.Servers = []kratos.ServerConfiguration{{URL: cfg.PublicURL}}
	conf.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	conf.DefaultHeader["Accept"] = "application/json"

	p := &Provider{
		api:    kratos.NewAPIClient(conf),
		cfg:    cfg,
		logger: logger.Discard(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With(logger.Component("kratos"))
	p.events = auth.NewEmitter(16, auth.WithEmitterLogger(p.logger), auth.WithDropHook(p.onDrop))
	return p, nil
}

func (p *Provider) SignInWithPassword(ctx context.Context, email, password string) (*auth.Session, error) {
	flow, resp, err := p.api.FrontendAPI.CreateNativeLoginFlow(ctx).Execute()
	if err != nil {
		return nil, p.fail(ctx, "create_login_flow", err, resp, 0)
	}

	body := kratos.UpdateLoginFlowWithPasswordMethod{
		Method:     methodPassword,
		Identifier: email,
		Password:   password,
	}
	res, resp, err := p.api.FrontendAPI.
		UpdateLoginFlow(ctx).
		Flow(flow.Id).
		UpdateLoginFlowBody(kratos.UpdateLoginFlowWithPasswordMethodAsUpdateLoginFlowBody(&body)).
		Execute()
	if err != nil {
		return nil, p.fail(ctx, "login", err, resp, 0)
	}

	ks := res.GetSession()
	sess := toSession(res.GetSessionToken(), &ks)
	p.signedIn(ctx, sess)
	return sess.Clone(), nil
}

// SignInWithOAuth starts an OIDC login; Kratos answers with the upstream
// authorization URL the browser has to visit.
func (p *Provider) SignInWithOAuth(ctx context.Context, provider string) (string, error) {
	if !oidcProviders[provider] {
		return "", &auth.ProviderError{
			Status:  http.StatusUnprocessableEntity,
			Message: "Unsupported provider: " + provider,
			Err:     auth.ErrUnsupportedOAuth,
		}
	}

	flow, resp, err := p.api.FrontendAPI.CreateNativeLoginFlow(ctx).Execute()
	if err != nil {
		return "", p.fail(ctx, "create_login_flow", err, resp, 0)
	}

	body := kratos.UpdateLoginFlowWithOidcMethod{Method: "oidc", Provider: provider}
	_, resp, err = p.api.FrontendAPI.
		UpdateLoginFlow(ctx).
		Flow(flow.Id).
		UpdateLoginFlowBody(kratos.UpdateLoginFlowWithOidcMethodAsUpdateLoginFlowBody(&body)).
		Execute()
	if err == nil {
		return "", ErrMissingRedirect
	}
	if b, ok := parseBody(err); ok && b.RedirectBrowserTo != "" {
		return b.RedirectBrowserTo, nil
	}
	return "", p.fail(ctx, "oidc_login", err, resp, 0)
}

func (p *Provider) SignUp(ctx context.Context, email, password string, metadata map[string]any) (*session.User, error) {
	flow, resp, err := p.api.FrontendAPI.CreateNativeRegistrationFlow(ctx).Execute()
	if err != nil {
		return nil, p.fail(ctx, "create_registration_flow", err, resp, http.StatusUnprocessableEntity)
	}

	traits := maps.Clone(metadata)
	if traits == nil {
		traits = make(map[string]any, 1)
	}
	traits["email"] = email

	body := kratos.UpdateRegistrationFlowWithPasswordMethod{
		Method:   methodPassword,
		Password: password,
		Traits:   traits,
	}
	res, resp, err := p.api.FrontendAPI.
		UpdateRegistrationFlow(ctx).
		Flow(flow.Id).
		UpdateRegistrationFlowBody(kratos.UpdateRegistrationFlowWithPasswordMethodAsUpdateRegistrationFlowBody(&body)).
		Execute()
	if err != nil {
		return nil, p.fail(ctx, "registration", err, resp, http.StatusUnprocessableEntity)
	}

	identity := res.GetIdentity()
	user := toUser(&identity)
	p.logger.InfoContext(ctx, "account registered", logger.UserID(user.ID))

	// Kratos issues a session right away unless email verification is
	// required before login.
	if ks, ok := res.GetSessionOk(); ok && res.GetSessionToken() != "" {
		p.signedIn(ctx, toSession(res.GetSessionToken(), ks))
	}
	return user, nil
}

func (p *Provider) SignOut(ctx context.Context) error {
	p.mu.Lock()
	token, had := p.token, p.current != nil
	p.token, p.current = "", nil
	if had {
		p.events.Emit(ctx, auth.EventSignedOut, nil)
	}
	p.mu.Unlock()

	if p.storage != nil {
		if err := p.storage.Delete(ctx, localstore.KeyAuthToken); err != nil {
			p.logger.WarnContext(ctx, "failed to drop session token", logger.Error(err))
		}
	}
	if token == "" {
		return nil
	}

	resp, err := p.api.FrontendAPI.
		PerformNativeLogout(ctx).
		PerformNativeLogoutBody(*kratos.NewPerformNativeLogoutBody(token)).
		Execute()
	if err != nil {
		return p.fail(ctx, "logout", err, resp, 0)
	}
	return nil
}

func (p *Provider) ResetPasswordForEmail(ctx context.Context, email string) error {
	flow, resp, err := p.api.FrontendAPI.CreateNativeRecoveryFlow(ctx).Execute()
	if err != nil {
		return p.fail(ctx, "create_recovery_flow", err, resp, http.StatusUnprocessableEntity)
	}

	body := kratos.UpdateRecoveryFlowWithCodeMethod{Method: "code", Email: &email}
	_, resp, err = p.api.FrontendAPI.
		UpdateRecoveryFlow(ctx).
		Flow(flow.Id).
		UpdateRecoveryFlowBody(kratos.UpdateRecoveryFlowWithCodeMethodAsUpdateRecoveryFlowBody(&body)).
		Execute()
	if err != nil {
		return p.fail(ctx, "recovery", err, resp, http.StatusUnprocessableEntity)
	}

	p.logger.InfoContext(ctx, "recovery code requested", logger.Email(email))
	return nil
}

func (p *Provider) UpdatePassword(ctx context.Context, password string) error {
	token := p.sessionToken(ctx)
	if token == "" {
		return errSessionMissing
	}

	flow, resp, err := p.api.FrontendAPI.CreateNativeSettingsFlow(ctx).XSessionToken(token).Execute()
	if err != nil {
		return p.fail(ctx, "create_settings_flow", err, resp, http.StatusUnprocessableEntity)
	}

	body := kratos.UpdateSettingsFlowWithPasswordMethod{Method: methodPassword, Password: password}
	_, resp, err = p.api.FrontendAPI.
		UpdateSettingsFlow(ctx).
		Flow(flow.Id).
		XSessionToken(token).
		UpdateSettingsFlowBody(kratos.UpdateSettingsFlowWithPasswordMethodAsUpdateSettingsFlowBody(&body)).
		Execute()
	if err != nil {
		return p.fail(ctx, "settings", err, resp, http.StatusUnprocessableEntity)
	}

	p.mu.Lock()
	if p.current != nil {
		p.events.Emit(ctx, auth.EventUserUpdated, p.current)
	}
	p.mu.Unlock()
	return nil
}

// GetSession resolves the stored token against Kratos. A token Kratos no
// longer accepts is dropped and reported as no session.
func (p *Provider) GetSession(ctx context.Context) (*auth.Session, error) {
	token := p.sessionToken(ctx)
	if token == "" {
		return nil, nil
	}

	ks, resp, err := p.api.FrontendAPI.ToSession(ctx).XSessionToken(token).Execute()
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			p.forget(ctx, token)
			return nil, nil
		}
		return nil, p.fail(ctx, "whoami", err, resp, 0)
	}

	sess := toSession(token, ks)
	p.mu.Lock()
	if p.token == token {
		p.current = sess
	}
	p.mu.Unlock()
	return sess.Clone(), nil
}

func (p *Provider) OnAuthStateChange(handler func(auth.Event)) auth.Subscription {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.events.Subscribe(handler, p.current)
}

// Poll re-checks the session every interval (Config.PollInterval when
// zero) until ctx is done. A session Kratos dropped yields SIGNED_OUT; an
// extended one yields TOKEN_REFRESHED.
func (p *Provider) Poll(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = p.cfg.PollInterval
	}
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.check(ctx)
		}
	}
}

func (p *Provider) check(ctx context.Context) {
	p.mu.Lock()
	prev := p.current.Clone()
	p.mu.Unlock()
	if prev == nil {
		return
	}

	sess, err := p.GetSession(ctx)
	switch {
	case err != nil:
		p.logger.WarnContext(ctx, "session poll failed", logger.Error(err))
	case sess == nil:
		// forget already emitted SIGNED_OUT.
	case sess.ExpiresAt.After(prev.ExpiresAt):
		p.mu.Lock()
		if p.current != nil {
			p.events.Emit(ctx, auth.EventTokenRefreshed, p.current)
		}
		p.mu.Unlock()
	}
}

func (p *Provider) Close() error {
	return p.events.Close()
}

func (p *Provider) signedIn(ctx context.Context, sess *auth.Session) {
	p.mu.Lock()
	p.token, p.current = sess.AccessToken, sess
	p.events.Emit(ctx, auth.EventSignedIn, sess)
	p.mu.Unlock()

	if p.storage != nil {
		ttl := time.Duration(0)
		if !sess.ExpiresAt.IsZero() {
			ttl = time.Until(sess.ExpiresAt)
		}
		if err := p.storage.Set(ctx, localstore.KeyAuthToken, []byte(sess.AccessToken), ttl); err != nil {
			p.logger.WarnContext(ctx, "failed to persist session token", logger.Error(err))
		}
	}
	p.logger.InfoContext(ctx, "signed in", logger.UserID(sess.User.ID))
}

// forget drops token if it is still the current one.
func (p *Provider) forget(ctx context.Context, token string) {
	p.mu.Lock()
	if p.token != token {
		p.mu.Unlock()
		return
	}
	had := p.current != nil
	p.token, p.current = "", nil
	if had {
		p.events.Emit(ctx, auth.EventSignedOut, nil)
	}
	p.mu.Unlock()

	if p.storage != nil {
		_ = p.storage.Delete(ctx, localstore.KeyAuthToken)
	}
	p.logger.InfoContext(ctx, "session no longer valid")
}

func (p *Provider) sessionToken(ctx context.Context) string {
	p.mu.Lock()
	token := p.token
	p.mu.Unlock()
	if token != "" || p.storage == nil {
		return token
	}

	raw, err := p.storage.Get(ctx, localstore.KeyAuthToken)
	if err != nil {
		if !errors.Is(err, localstore.ErrNotFound) {
			p.logger.WarnContext(ctx, "failed to load session token", logger.Error(err))
		}
		return ""
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.token == "" {
		p.token = string(raw)
	}
	return p.token
}

func (p *Provider) fail(ctx context.Context, op string, err error, resp *http.Response, remapped int) error {
	out := providerError(op, err, resp, remapped)
	p.logger.WarnContext(ctx, "kratos request failed",
		slog.String("op", op),
		logger.Status(statusOf(resp)),
		logger.Error(out))
	return out
}

func statusOf(resp *http.Response) int {
	if resp == nil {
		return 0
	}
	return resp.StatusCode
}

func toSession(token string, ks *kratos.Session) *auth.Session {
	s := &auth.Session{
		AccessToken: token,
		ExpiresAt:   ks.GetExpiresAt(),
	}
	if identity, ok := ks.GetIdentityOk(); ok {
		s.User = toUser(identity)
	} else {
		s.User = &session.User{}
	}
	return s
}

func toUser(identity *kratos.Identity) *session.User {
	u := &session.User{ID: identity.Id}

	traits, _ := identity.GetTraits().(map[string]any)
	if email, ok := traits["email"].(string); ok {
		u.Email = email
	}
	meta := make(map[string]any, len(traits))
	for k, v := range traits {
		if k != "email" {
			meta[k] = v
		}
	}
	if public, ok := identity.GetMetadataPublic().(map[string]any); ok {
		maps.Copy(meta, public)
	}
	if avatar, ok := meta["avatar_url"].(string); ok {
		u.AvatarURL = avatar
	}
	if len(meta) > 0 {
		u.Metadata = meta
	}
	return u
}
