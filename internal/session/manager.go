// Package session manages the authenticated session of the Vicere client:
// login against simple-jwt-login, persistence of the session record and
// profile snapshot, freshness checks, restore on startup, and logout.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/example/vicere/internal/store"
	"github.com/example/vicere/internal/wp"
)

// Client is the part of the backend the manager calls. *wp.Client
// implements it.
type Client interface {
	Authenticate(ctx context.Context, login, password string) (string, error)
	ValidateToken(ctx context.Context, token string) (wp.WPUser, error)
	UserData(ctx context.Context, userID int64, hdr http.Header) (wp.Customer, bool, error)
	Customer(ctx context.Context, userID int64, hdr http.Header) (wp.Customer, error)
}

type Option func(*Manager)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.log = l }
}

// WithMaxAge overrides MaxAge. Non-positive values are ignored.
func WithMaxAge(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.maxAge = d
		}
	}
}

// Manager owns the session lifecycle. It is safe for concurrent use; a
// Login while another is in flight fails with ErrLoginInProgress, and the
// other lifecycle operations queue behind it.
type Manager struct {
	store  store.Store
	client Client
	now    func() time.Time
	maxAge time.Duration
	log    *slog.Logger

	op             sync.Mutex
	authenticating atomic.Bool

	mu       sync.RWMutex
	state    State
	identity Identity
	record   *Record
}

func NewManager(st store.Store, client Client, opts ...Option) *Manager {
	m := &Manager{
		store:    st,
		client:   client,
		now:      time.Now,
		maxAge:   MaxAge,
		log:      slog.Default(),
		state:    StateAnonymous,
		identity: Anonymous{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

func (m *Manager) Identity() Identity {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.identity
}

// Session returns the in-memory session record, if any.
func (m *Manager) Session() (Record, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.record == nil {
		return Record{}, false
	}
	return *m.record, true
}

// Login authenticates username and password, persists the new session and
// profile snapshot, and publishes them. Storage is only written once every
// backend call has succeeded. On failure the manager returns to the state
// it was in and previously persisted data stays as it was.
func (m *Manager) Login(ctx context.Context, username, password string) (Authenticated, error) {
	if !m.authenticating.CompareAndSwap(false, true) {
		return Authenticated{}, ErrLoginInProgress
	}
	defer m.authenticating.Store(false)

	m.op.Lock()
	defer m.op.Unlock()

	m.mu.Lock()
	prev := m.state
	m.state = StateAuthenticating
	m.mu.Unlock()

	auth, rec, err := m.login(ctx, username, password)

	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.state = prev
		m.log.Warn("login failed", slog.String("login", username), slog.Any("error", err))
		return Authenticated{}, err
	}
	m.record = &rec
	m.identity = auth
	m.state = StateAuthenticated
	m.log.Info("login succeeded", slog.Int64("user_id", rec.UserID))
	return auth, nil
}

func (m *Manager) login(ctx context.Context, username, password string) (Authenticated, Record, error) {
	token, err := m.client.Authenticate(ctx, username, password)
	if err != nil {
		return Authenticated{}, Record{}, classify("authenticate", err)
	}
	if exp, ok := wp.TokenExpiry(token); ok {
		m.log.Debug("token issued", slog.Time("expires", exp))
	}

	wpUser, err := m.client.ValidateToken(ctx, token)
	if err != nil {
		return Authenticated{}, Record{}, classify("validate token", err)
	}

	rec, err := newRecord(int64(wpUser.ID), token, m.now())
	if err != nil {
		return Authenticated{}, Record{}, err
	}

	cust, found, err := m.client.UserData(ctx, rec.UserID, rec.Headers().HTTP())
	if err != nil {
		return Authenticated{}, Record{}, classify("get user data", err)
	}

	user := User{
		ID:        rec.UserID,
		Email:     wpUser.Email,
		FirstName: wpUser.DisplayName,
		Points:    pointsFrom(cust),
	}
	if found {
		user.Email = firstNonEmpty(cust.Email, user.Email)
		user.FirstName = firstNonEmpty(cust.FirstName, user.FirstName)
		user.LastName = cust.LastName
	}

	if err := m.persist(ctx, rec, user); err != nil {
		return Authenticated{}, Record{}, err
	}
	return Authenticated{User: user, Token: token}, rec, nil
}

// persist writes the snapshot and then the record. The record is what makes
// a session restorable, so when it cannot be written the previous snapshot
// is put back.
func (m *Manager) persist(ctx context.Context, rec Record, user User) error {
	recJSON, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding session record: %w", err)
	}
	userJSON, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encoding profile snapshot: %w", err)
	}

	prevProfile, prevErr := m.store.Get(ctx, KeyProfile)
	if err := m.store.Set(ctx, KeyProfile, string(userJSON)); err != nil {
		return &StorageError{Op: "set", Key: KeyProfile, Err: err}
	}
	if err := m.store.Set(ctx, KeySession, string(recJSON)); err != nil {
		var rbErr error
		switch {
		case prevErr == nil:
			rbErr = m.store.Set(ctx, KeyProfile, prevProfile)
		case errors.Is(prevErr, store.ErrNotFound):
			rbErr = m.store.Remove(ctx, KeyProfile)
		default:
			rbErr = prevErr
		}
		if rbErr != nil {
			m.log.Error("rolling back profile snapshot", slog.Any("error", rbErr))
		}
		return &StorageError{Op: "set", Key: KeySession, Err: err}
	}
	return nil
}

// RestoreSession loads the persisted session at startup. It reports whether
// a fresh session was restored and never fails: unreadable or malformed
// records count as no session, and stale ones are deleted.
func (m *Manager) RestoreSession(ctx context.Context) bool {
	m.op.Lock()
	defer m.op.Unlock()

	rec, ok := m.loadFresh(ctx)
	if !ok {
		m.mu.Lock()
		if m.state != StateExpired {
			m.state = StateAnonymous
		}
		m.identity = Anonymous{}
		m.record = nil
		m.mu.Unlock()
		return false
	}

	user := m.loadProfile(ctx, rec.UserID)

	m.mu.Lock()
	m.record = &rec
	m.identity = Authenticated{User: user, Token: rec.Token}
	m.state = StateAuthenticated
	m.mu.Unlock()

	m.log.Info("session restored",
		slog.Int64("user_id", rec.UserID),
		slog.Duration("age", m.now().Sub(rec.CreatedAt())),
	)
	return true
}

// IsSessionValid reports whether storage holds a fresh session. A stale
// record is deleted. Nothing in memory is restored.
func (m *Manager) IsSessionValid(ctx context.Context) bool {
	m.op.Lock()
	defer m.op.Unlock()
	_, ok := m.loadFresh(ctx)
	return ok
}

// loadFresh reads the stored record. Malformed records are removed; stale
// ones are removed and the manager moves to StateExpired.
func (m *Manager) loadFresh(ctx context.Context) (Record, bool) {
	raw, err := m.store.Get(ctx, KeySession)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			m.log.Warn("reading session record", slog.Any("error", err))
		}
		return Record{}, false
	}
	rec, err := decodeRecord(raw)
	if err != nil {
		m.log.Warn("discarding session record", slog.Any("error", err))
		if err := m.store.Remove(ctx, KeySession); err != nil {
			m.log.Warn("removing session record", slog.Any("error", err))
		}
		return Record{}, false
	}
	if !rec.freshFor(m.now(), m.maxAge) {
		m.expire(ctx)
		return Record{}, false
	}
	return rec, true
}

// loadProfile reads the snapshot for userID. A missing or mismatched
// snapshot yields a user carrying only the ID.
func (m *Manager) loadProfile(ctx context.Context, userID int64) User {
	raw, err := m.store.Get(ctx, KeyProfile)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			m.log.Warn("reading profile snapshot", slog.Any("error", err))
		}
		return User{ID: userID}
	}
	var user User
	if err := json.Unmarshal([]byte(raw), &user); err != nil || user.ID != userID {
		m.log.Warn("ignoring profile snapshot", slog.Int64("user_id", userID))
		return User{ID: userID}
	}
	return user
}

// expire removes the stored record and drops to an anonymous identity.
// Callers hold m.op.
func (m *Manager) expire(ctx context.Context) {
	if err := m.store.Remove(ctx, KeySession); err != nil {
		m.log.Warn("removing stale session record", slog.Any("error", err))
	}
	m.mu.Lock()
	m.state = StateExpired
	m.identity = Anonymous{}
	m.record = nil
	m.mu.Unlock()
	m.log.Info("session expired")
}

// Logout drops the in-memory session first and then removes both stored
// keys. Removal failures are returned after the reset as *StorageError.
func (m *Manager) Logout(ctx context.Context) error {
	m.op.Lock()
	defer m.op.Unlock()

	m.mu.Lock()
	m.state = StateAnonymous
	m.identity = Anonymous{}
	m.record = nil
	m.mu.Unlock()

	var errs []error
	for _, key := range []string{KeySession, KeyProfile} {
		if err := m.store.Remove(ctx, key); err != nil {
			errs = append(errs, &StorageError{Op: "remove", Key: key, Err: err})
		}
	}
	if len(errs) > 0 {
		m.log.Error("logout left stored data behind", slog.Any("error", errors.Join(errs...)))
		return errors.Join(errs...)
	}
	m.log.Info("logged out")
	return nil
}

// Headers returns the headers for an authenticated call. Freshness is
// checked on every call, so a long-running process cannot use a session
// past its max age.
func (m *Manager) Headers(ctx context.Context) (Headers, error) {
	m.mu.RLock()
	rec := m.record
	m.mu.RUnlock()
	if rec == nil {
		return Headers{}, ErrNotAuthenticated
	}
	if rec.freshFor(m.now(), m.maxAge) {
		return rec.Headers(), nil
	}

	m.op.Lock()
	defer m.op.Unlock()
	// a login may have replaced the record while we waited
	m.mu.RLock()
	rec = m.record
	m.mu.RUnlock()
	if rec == nil {
		return Headers{}, ErrNotAuthenticated
	}
	if rec.freshFor(m.now(), m.maxAge) {
		return rec.Headers(), nil
	}
	m.expire(ctx)
	return Headers{}, ErrSessionExpired
}

// RefreshUserData re-reads the WooCommerce customer and rewrites the
// profile snapshot.
func (m *Manager) RefreshUserData(ctx context.Context) (User, error) {
	m.op.Lock()
	defer m.op.Unlock()

	m.mu.RLock()
	rec := m.record
	current, _ := m.identity.(Authenticated)
	m.mu.RUnlock()
	if rec == nil {
		return User{}, ErrNotAuthenticated
	}
	if !rec.freshFor(m.now(), m.maxAge) {
		m.expire(ctx)
		return User{}, ErrSessionExpired
	}

	cust, err := m.client.Customer(ctx, rec.UserID, rec.Headers().HTTP())
	if err != nil {
		return User{}, classify("get customer", err)
	}
	prev := current.User
	user := User{
		ID:        rec.UserID,
		Email:     firstNonEmpty(cust.Email, prev.Email),
		FirstName: firstNonEmpty(cust.FirstName, prev.FirstName),
		LastName:  firstNonEmpty(cust.LastName, prev.LastName),
		Points:    pointsFrom(cust),
	}

	b, err := json.Marshal(user)
	if err != nil {
		return User{}, fmt.Errorf("encoding profile snapshot: %w", err)
	}
	if err := m.store.Set(ctx, KeyProfile, string(b)); err != nil {
		return User{}, &StorageError{Op: "set", Key: KeyProfile, Err: err}
	}

	m.mu.Lock()
	m.identity = Authenticated{User: user, Token: rec.Token}
	m.mu.Unlock()
	return user, nil
}

// classify maps backend client errors onto the session error taxonomy.
func classify(op string, err error) error {
	var tErr *wp.TransportError
	var apiErr *wp.APIError
	switch {
	case errors.As(err, &tErr):
		return &TransportError{Op: op, Err: tErr.Err}
	case errors.As(err, &apiErr):
		return &AuthError{Reason: apiErr.Message}
	default:
		return &TransportError{Op: op, Err: err}
	}
}

func pointsFrom(c wp.Customer) PointsProfile {
	points, vicoins := finite(c.Points), finite(c.Vicoins)
	return PointsProfile{
		Balance:     points,
		Vicoins:     vicoins,
		TotalEarned: points,
	}
}

// finite keeps balances encodable in the profile snapshot.
func finite(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
