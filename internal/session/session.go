// Package session keeps the authenticated backend session shared by all resolutions.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

var logins = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "rule_resolver_session_logins_total",
	Help: "Backend authentication exchanges by result",
}, []string{"result"})

// Credentials identify the service account used against the backend.
type Credentials struct {
	Database string
	Username string
	Password string
}

// Handle is an authenticated backend session.
type Handle struct {
	UID        int64
	AcquiredAt time.Time
}

// Authenticator performs one authentication exchange with the backend.
type Authenticator interface {
	Login(ctx context.Context, creds Credentials) (Handle, error)
}

// Provider hands out the current session, acquiring one on first use.
type Provider interface {
	// Ensure returns the memoized handle, logging in if there is none.
	Ensure(ctx context.Context) (Handle, error)

	// Reset drops the memoized handle so the next Ensure logs in again.
	Reset()
}

// Memoized is a Provider holding a single handle for the process lifetime.
// It never refreshes on its own; a stale handle is replaced only after Reset.
type Memoized struct {
	auth   Authenticator
	creds  Credentials
	logger *zerolog.Logger

	mu     sync.RWMutex
	handle *Handle

	// collapses concurrent first logins into one exchange
	sf singleflight.Group
}

// NewMemoized creates a provider that logs in lazily with creds.
func NewMemoized(auth Authenticator, creds Credentials, logger *zerolog.Logger) *Memoized {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	l := logger.With().Str("component", "session").Logger()
	return &Memoized{
		auth:   auth,
		creds:  creds,
		logger: &l,
	}
}

// Ensure implements Provider.
func (m *Memoized) Ensure(ctx context.Context) (Handle, error) {
	m.mu.RLock()
	h := m.handle
	m.mu.RUnlock()
	if h != nil {
		return *h, nil
	}

	v, err, _ := m.sf.Do("login", func() (interface{}, error) {
		m.mu.RLock()
		current := m.handle
		m.mu.RUnlock()
		if current != nil {
			return *current, nil
		}

		// A caller giving up must not fail the others waiting on this login.
		loginCtx := context.WithoutCancel(ctx)

		handle, err := m.auth.Login(loginCtx, m.creds)
		if err != nil {
			logins.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("login as %s: %w", m.creds.Username, err)
		}
		logins.WithLabelValues("ok").Inc()

		if handle.AcquiredAt.IsZero() {
			handle.AcquiredAt = time.Now()
		}

		m.mu.Lock()
		m.handle = &handle
		m.mu.Unlock()

		m.logger.Info().
			Int64("uid", handle.UID).
			Str("database", m.creds.Database).
			Msg("Backend session acquired")
		return handle, nil
	})
	if err != nil {
		return Handle{}, err
	}
	return v.(Handle), nil
}

// Reset implements Provider.
func (m *Memoized) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.handle != nil {
		m.logger.Info().Int64("uid", m.handle.UID).Msg("Backend session reset")
	}
	m.handle = nil
}

var _ Provider = (*Memoized)(nil)
