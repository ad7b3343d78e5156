// Package session orchestrates login, logout and the proactive token
// refresh. It is the only component that calls the backend token endpoints;
// everything else observes session state through the store.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/explanner/planner-client/internal/api"
	authErrors "github.com/explanner/planner-client/internal/auth/errors"
	"github.com/explanner/planner-client/internal/auth/model"
	"github.com/explanner/planner-client/internal/auth/store"
	"github.com/explanner/planner-client/internal/metrics"
)

// TokenClient is the slice of the backend client the controller needs.
type TokenClient interface {
	Token(ctx context.Context, username, password string) (model.TokenPair, error)
	TokenRefresh(ctx context.Context, refreshToken string) (model.TokenPair, error)
}

// Controller drives the session lifecycle. One instance exists per process;
// it is safe for concurrent use by the web handlers and its own timer
// goroutine.
type Controller struct {
	store    *store.Store
	client   TokenClient
	log      *zap.Logger
	metrics  *metrics.Metrics
	interval time.Duration
	skew     time.Duration
	onChange func(authenticated bool)

	mu   sync.Mutex
	stop chan struct{}

	errMu   sync.Mutex
	lastErr string
}

// Option configures the controller.
type Option func(*Controller)

// WithMetrics wires auth counters and the active-session gauge.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Controller) {
		c.metrics = m
	}
}

// WithOnChange registers a callback invoked on authenticated/unauthenticated
// transitions.
func WithOnChange(fn func(authenticated bool)) Option {
	return func(c *Controller) {
		c.onChange = fn
	}
}

// New builds the controller. interval is how often the background refresh
// fires; skew is subtracted from the access token's expiry claim so a refresh
// always lands before the token dies, whichever bound is tighter. If the
// store rehydrated a session at startup the timer starts immediately.
func New(s *store.Store, client TokenClient, log *zap.Logger, interval, skew time.Duration, opts ...Option) *Controller {
	c := &Controller{
		store:    s,
		client:   client,
		log:      log,
		interval: interval,
		skew:     skew,
	}
	for _, opt := range opts {
		opt(c)
	}

	if s.Authenticated() {
		c.mu.Lock()
		c.startTimerLocked()
		c.mu.Unlock()
		c.setGauge(1)
		c.notify(true)
	}
	return c
}

// Login exchanges staff credentials for a credential pair and stores it. On
// any failure the previous session is left untouched and the user-facing
// message lands in the error slot; nothing escapes as an unhandled fault.
func (c *Controller) Login(ctx context.Context, username, password string) error {
	username = strings.ToLower(strings.TrimSpace(username))

	pair, err := c.client.Token(ctx, username, password)
	if err != nil {
		c.countLogin(metrics.ResultFailed)
		c.setError(userMessage(err))
		var apiErr *api.Error
		if errors.As(err, &apiErr) {
			c.log.Info("login rejected", zap.String("username", username), zap.Int("status", apiErr.Status))
			return fmt.Errorf("%w: %s", authErrors.ErrInvalidCredentials, userMessage(err))
		}
		c.log.Warn("login transport failure", zap.Error(err))
		return authErrors.WrapTransport(err, "login")
	}

	wasAuthenticated, err := c.adopt(pair)
	if err != nil {
		return authErrors.WrapInternal(err, "login")
	}

	c.ClearError()
	c.countLogin(metrics.ResultOK)
	c.setGauge(1)
	if !wasAuthenticated {
		c.notify(true)
	}
	c.log.Info("login succeeded", zap.String("username", username))
	return nil
}

// Refresh exchanges the current refresh token for a new pair. A failure for
// the current pair is fatal: an invalid refresh token cannot self-heal, so
// the session is torn down instead of retried. A result arriving after the
// session it was issued for is gone or replaced is discarded outright,
// whether it succeeded or failed.
func (c *Controller) Refresh(ctx context.Context) error {
	pair, ok := c.store.Pair()
	if !ok {
		return authErrors.ErrNoSession
	}

	newPair, err := c.client.TokenRefresh(ctx, pair.RefreshToken)

	c.mu.Lock()
	defer c.mu.Unlock()

	current, stillPresent := c.store.Pair()
	if !stillPresent || current.RefreshToken != pair.RefreshToken {
		// The session changed while this refresh was in flight. Applying
		// the outcome, success or failure, would act on dead state.
		c.log.Debug("discarding refresh result for a stale session")
		return nil
	}

	if err != nil {
		c.countRefresh(metrics.ResultFailed)
		c.log.Warn("token refresh failed, tearing down session", zap.Error(err))
		c.stopTimerLocked()
		c.store.Clear()
		c.setGauge(0)
		c.notify(false)
		return fmt.Errorf("%w: refresh: %v", authErrors.ErrInvalidToken, err)
	}

	if err := c.store.Set(newPair); err != nil {
		return authErrors.WrapInternal(err, "refresh")
	}
	c.countRefresh(metrics.ResultOK)
	c.log.Debug("access token refreshed")
	return nil
}

// adopt installs a freshly issued pair and ensures the refresh timer is
// running. The unlock is deferred so the store's contract-violation panic on
// an undecodable token cannot leave the mutex held.
func (c *Controller) adopt(pair model.TokenPair) (wasAuthenticated bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	wasAuthenticated = c.store.Authenticated()
	if err := c.store.Set(pair); err != nil {
		return wasAuthenticated, err
	}
	c.startTimerLocked()
	return wasAuthenticated, nil
}

// Logout clears the session, deletes the persisted record and stops the
// refresh timer. Idempotent.
func (c *Controller) Logout() {
	c.mu.Lock()
	wasAuthenticated := c.store.Authenticated()
	c.stopTimerLocked()
	c.store.Clear()
	c.mu.Unlock()

	c.setGauge(0)
	if wasAuthenticated {
		c.notify(false)
		c.log.Info("logged out")
	}
}

// Close stops the refresh timer without touching the session. Used on
// process shutdown so the persisted pair survives for the next start.
func (c *Controller) Close() {
	c.mu.Lock()
	c.stopTimerLocked()
	c.mu.Unlock()
}

// LastError returns the user-facing message recorded by the last failed
// login, or "" when the last login succeeded.
func (c *Controller) LastError() string {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.lastErr
}

// ClearError empties the error slot, typically once the message has been
// rendered.
func (c *Controller) ClearError() {
	c.errMu.Lock()
	c.lastErr = ""
	c.errMu.Unlock()
}

func (c *Controller) setError(msg string) {
	c.errMu.Lock()
	c.lastErr = msg
	c.errMu.Unlock()
}

// startTimerLocked starts the background refresh loop if none is running.
// Callers hold c.mu, which is what keeps the one-timer-per-session
// invariant.
func (c *Controller) startTimerLocked() {
	if c.stop != nil {
		return
	}
	stop := make(chan struct{})
	c.stop = stop
	go c.run(stop)
}

func (c *Controller) stopTimerLocked() {
	if c.stop == nil {
		return
	}
	close(c.stop)
	c.stop = nil
}

func (c *Controller) run(stop chan struct{}) {
	for {
		timer := time.NewTimer(c.nextFire())
		select {
		case <-stop:
			timer.Stop()
			return
		case <-timer.C:
			if err := c.Refresh(context.Background()); err != nil {
				// The failure tore the session down and stopped the
				// timer; just exit.
				return
			}
		}
	}
}

// nextFire picks the earlier of the configured interval and the access
// token's own expiry minus the safety skew.
func (c *Controller) nextFire() time.Duration {
	d := c.interval
	if id, ok := c.store.Identity(); ok && !id.ExpiresAt.IsZero() {
		if until := time.Until(id.ExpiresAt) - c.skew; until < d {
			d = until
		}
	}
	if d <= 0 {
		d = time.Second
	}
	return d
}

func (c *Controller) timerActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stop != nil
}

func (c *Controller) countLogin(result string) {
	if c.metrics != nil {
		c.metrics.LoginsTotal.WithLabelValues(result).Inc()
	}
}

func (c *Controller) countRefresh(result string) {
	if c.metrics != nil {
		c.metrics.RefreshesTotal.WithLabelValues(result).Inc()
	}
}

func (c *Controller) setGauge(v float64) {
	if c.metrics != nil {
		c.metrics.ActiveSession.Set(v)
	}
}

func (c *Controller) notify(authenticated bool) {
	if c.onChange != nil {
		c.onChange(authenticated)
	}
}

// userMessage extracts the message shown on the login page: the backend's
// detail field when present, otherwise the transport error.
func userMessage(err error) string {
	var apiErr *api.Error
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		return apiErr.Detail
	}
	return err.Error()
}
