// Package session owns the signed-in identity: the opaque token plus the user record,
// kept in memory and mirrored to durable storage.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/angelmondragon/storefront/pkg/auth"
	"github.com/angelmondragon/storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/gateway"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/storage"
	"github.com/go-playground/validator/v10"
	"go.uber.org/multierr"
)

// Persisted keys. Both are always written and removed together.
const (
	KeyAuthToken = "authToken"
	KeyUser      = "user"
)

const (
	loginFailedMessage    = "Login failed. Please try again."
	invalidResponseFormat = "Invalid response format from server"
)

var validate = validator.New()

type gatewayClient interface {
	Login(ctx context.Context, creds gateway.Credentials) (*gateway.LoginResponse, error)
	Logout(ctx context.Context, token string) error
	Register(ctx context.Context, reg gateway.Registration) error
	VerifyAdmin(ctx context.Context, token string) (bool, error)
}

// Snapshot is a point-in-time copy of the session.
type Snapshot struct {
	Token         string        `json:"-"`
	User          *gateway.User `json:"user"`
	Authenticated bool          `json:"authenticated"`
}

// StoreParams bundles the dependencies of a Store.
type StoreParams struct {
	Gateway gatewayClient
	Storage storage.Store
	Logger  *logger.Logger
	// DiscardExpired drops a persisted JWT whose exp has passed instead of restoring it.
	DiscardExpired bool
	Now            func() time.Time
}

// Store is the single source of truth for who is signed in.
type Store struct {
	gw             gatewayClient
	storage        storage.Store
	logg           *logger.Logger
	discardExpired bool
	now            func() time.Time

	initOnce sync.Once
	ready    chan struct{}

	mu        sync.RWMutex
	loading   bool
	token     string
	user      *gateway.User
	listeners []func(context.Context)
}

// NewStore builds a Store in the loading state. Call Initialize before serving.
func NewStore(params StoreParams) (*Store, error) {
	if params.Gateway == nil {
		return nil, fmt.Errorf("gateway client is required")
	}
	if params.Storage == nil {
		return nil, fmt.Errorf("storage is required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Store{
		gw:             params.Gateway,
		storage:        params.Storage,
		logg:           logg,
		discardExpired: params.DiscardExpired,
		now:            now,
		ready:          make(chan struct{}),
		loading:        true,
	}, nil
}

// Initialize restores the persisted session. A corrupted or stale record is cleared and the
// store stays signed out. A restored admin is re-verified before loading ends.
func (s *Store) Initialize(ctx context.Context) error {
	var err error
	s.initOnce.Do(func() {
		defer s.finishLoading()
		err = s.restore(ctx)
	})
	return err
}

func (s *Store) restore(ctx context.Context) error {
	token, hasToken, err := s.storage.Get(ctx, KeyAuthToken)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read persisted session")
	}
	rawUser, hasUser, err := s.storage.Get(ctx, KeyUser)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read persisted session")
	}

	if !hasToken && !hasUser {
		return nil
	}
	if !hasToken || !hasUser || token == "" {
		s.discard(ctx, "incomplete persisted session")
		return nil
	}

	user, err := decodeUser(rawUser)
	if err != nil {
		s.discard(ctx, "corrupted persisted user")
		return nil
	}
	if s.discardExpired && auth.TokenExpired(token, s.now()) {
		s.discard(ctx, "persisted token expired")
		return nil
	}

	s.mu.Lock()
	s.token = token
	s.user = user
	s.mu.Unlock()

	if err := s.VerifyRole(ctx); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "session.restore.verify_role_failed")
	}
	return nil
}

func (s *Store) finishLoading() {
	s.mu.Lock()
	s.loading = false
	s.mu.Unlock()
	close(s.ready)
}

func (s *Store) discard(ctx context.Context, reason string) {
	if err := s.storage.Delete(ctx, KeyAuthToken, KeyUser); err != nil {
		s.logg.Error(ctx, "session.discard.delete_failed", err)
	}
	s.logg.Warn(s.logg.WithField(ctx, "reason", reason), "session.discarded")
}

func decodeUser(raw string) (*gateway.User, error) {
	var user gateway.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return nil, err
	}
	if err := validate.Struct(user); err != nil {
		return nil, err
	}
	role, err := enums.ParseRole(string(user.Role))
	if err != nil {
		return nil, err
	}
	user.Role = role
	return &user, nil
}

// Loading reports whether Initialize is still resolving.
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Ready is closed once Initialize has resolved.
func (s *Store) Ready() <-chan struct{} {
	return s.ready
}

// Login authenticates with the gateway. Any failure leaves the store signed out with nothing
// persisted; the returned error carries the gateway's message when one was sent.
func (s *Store) Login(ctx context.Context, creds gateway.Credentials) (*gateway.User, error) {
	resp, err := s.gw.Login(ctx, creds)
	if err != nil {
		s.signOut(ctx, "login_failed")
		return nil, loginError(err)
	}

	rawUser, err := json.Marshal(resp.User)
	if err != nil {
		s.signOut(ctx, "login_failed")
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, loginFailedMessage)
	}
	if err := s.storage.SetAll(ctx, map[string]string{
		KeyAuthToken: resp.Token,
		KeyUser:      string(rawUser),
	}); err != nil {
		s.signOut(ctx, "login_failed")
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, loginFailedMessage)
	}

	s.mu.Lock()
	previous := s.user
	s.token = resp.Token
	user := *resp.User
	s.user = &user
	s.mu.Unlock()

	if previous != nil && previous.ID != user.ID {
		s.notify(ctx)
	}

	logCtx := s.logg.WithUserID(ctx, user.ID)
	s.logg.Info(s.logg.WithActorRole(logCtx, user.Role.String()), "session.login")
	out := user
	return &out, nil
}

func loginError(err error) error {
	switch {
	case pkgerrors.IsCode(err, pkgerrors.CodeValidation):
		return err
	case pkgerrors.IsCode(err, pkgerrors.CodeContract):
		return pkgerrors.Wrap(pkgerrors.CodeContract, err, invalidResponseFormat)
	}
	code := pkgerrors.CodeUnauthorized
	if typed := pkgerrors.As(err); typed != nil {
		code = typed.Code()
	}
	msg := gateway.ServerMessage(err)
	if msg == "" {
		msg = loginFailedMessage
	}
	return pkgerrors.Wrap(code, err, msg)
}

// Logout tells the gateway best-effort and always clears the local session.
func (s *Store) Logout(ctx context.Context) error {
	token := s.Token()

	var errs error
	if token != "" {
		errs = multierr.Append(errs, s.gw.Logout(ctx, token))
	}
	errs = multierr.Append(errs, s.clear(ctx))

	if errs != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", errs.Error()), "session.logout.partial_failure")
	} else {
		s.logg.Info(ctx, "session.logout")
	}
	return nil
}

// VerifyRole re-checks a cached admin role against the gateway. A received refusal
// downgrades the role to Regular; a transport failure leaves it as is.
func (s *Store) VerifyRole(ctx context.Context) error {
	snap := s.Snapshot()
	if !snap.Authenticated || !snap.User.Role.IsAdmin() {
		return nil
	}

	ok, err := s.gw.VerifyAdmin(ctx, snap.Token)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}

	downgraded := *snap.User
	downgraded.Role = enums.RoleRegular
	rawUser, err := json.Marshal(downgraded)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode user")
	}

	s.mu.Lock()
	if s.token != snap.Token {
		s.mu.Unlock()
		return nil
	}
	s.user = &downgraded
	s.mu.Unlock()

	s.logg.Warn(s.logg.WithUserID(ctx, downgraded.ID), "session.role_downgraded")
	if err := s.storage.SetAll(ctx, map[string]string{
		KeyAuthToken: snap.Token,
		KeyUser:      string(rawUser),
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist downgraded role")
	}
	return nil
}

// Register creates an account. It does not sign in.
func (s *Store) Register(ctx context.Context, reg gateway.Registration) error {
	return s.gw.Register(ctx, reg)
}

// HandleUnauthorized is the gateway hook for 401 answers.
func (s *Store) HandleUnauthorized(ctx context.Context) {
	if !s.Authenticated() {
		return
	}
	s.signOut(ctx, "unauthorized")
}

// OnSignOut registers fn to run whenever the session is cleared.
func (s *Store) OnSignOut(fn func(context.Context)) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// PersistedToken reads the token straight from durable storage.
func (s *Store) PersistedToken(ctx context.Context) (string, error) {
	token, ok, err := s.storage.Get(ctx, KeyAuthToken)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read persisted token")
	}
	if !ok {
		return "", nil
	}
	return token, nil
}

// Snapshot returns a copy of the current session.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{Token: s.token}
	if s.user != nil {
		user := *s.user
		snap.User = &user
	}
	snap.Authenticated = snap.Token != "" && snap.User != nil
	return snap
}

// Token implements gateway.TokenSource.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Store) User() *gateway.User {
	return s.Snapshot().User
}

func (s *Store) Authenticated() bool {
	return s.Snapshot().Authenticated
}

func (s *Store) signOut(ctx context.Context, reason string) {
	if err := s.clear(ctx); err != nil {
		s.logg.Error(s.logg.WithField(ctx, "reason", reason), "session.clear_failed", err)
	}
}

// clear removes both persisted keys and resets memory. Listeners run when a session existed.
func (s *Store) clear(ctx context.Context) error {
	err := s.storage.Delete(ctx, KeyAuthToken, KeyUser)

	s.mu.Lock()
	hadSession := s.token != "" || s.user != nil
	s.token = ""
	s.user = nil
	s.mu.Unlock()

	if hadSession {
		s.notify(ctx)
	}
	return err
}

func (s *Store) notify(ctx context.Context) {
	s.mu.RLock()
	listeners := append([]func(context.Context){}, s.listeners...)
	s.mu.RUnlock()
	for _, fn := range listeners {
		fn(ctx)
	}
}
