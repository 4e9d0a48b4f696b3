package breaker

import (
	"context"
	"errors"
	"sync"
	"time"

	applogger "MacroCompass/pkg/logger"

	"github.com/sony/gobreaker"
)

// Config controls when a provider breaker opens and how long it stays open.
type Config struct {
	ConsecutiveFailures uint32
	OpenTimeout         time.Duration
}

// Group holds one circuit breaker per provider. An open breaker fails calls
// immediately with gobreaker.ErrOpenState, which callers treat like any other
// provider failure.
type Group struct {
	cfg Config
	log *applogger.Logger

	mu sync.Mutex
	m  map[string]*gobreaker.CircuitBreaker
}

// NewGroup creates a breaker group.
func NewGroup(cfg Config, l *applogger.Logger) *Group {
	if cfg.ConsecutiveFailures == 0 {
		cfg.ConsecutiveFailures = 3
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 5 * time.Minute
	}
	if l == nil {
		l = applogger.Nop()
	}
	return &Group{cfg: cfg, log: l, m: make(map[string]*gobreaker.CircuitBreaker)}
}

func (g *Group) get(name string) *gobreaker.CircuitBreaker {
	g.mu.Lock()
	defer g.mu.Unlock()
	if cb, ok := g.m[name]; ok {
		return cb
	}
	threshold := g.cfg.ConsecutiveFailures
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    name,
		Timeout: g.cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			var gone *callerGone
			return err == nil || errors.As(err, &gone)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			g.log.Warn("provider breaker state change",
				applogger.String("provider", name),
				applogger.String("from", from.String()),
				applogger.String("to", to.String()),
			)
		},
	})
	g.m[name] = cb
	return cb
}

// State returns the current state of the named breaker.
func (g *Group) State(name string) gobreaker.State {
	return g.get(name).State()
}

// callerGone marks an error produced after the caller's context ended. The
// provider may be healthy, so it does not count against the breaker.
type callerGone struct{ err error }

func (e *callerGone) Error() string { return e.err.Error() }
func (e *callerGone) Unwrap() error { return e.err }

// Execute runs fn through the named breaker. A call whose ctx is already done
// never reaches the breaker, and a failure seen after ctx ends is not counted.
func Execute[T any](ctx context.Context, g *Group, name string, fn func() (T, error)) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	if g == nil {
		return fn()
	}
	out, err := g.get(name).Execute(func() (interface{}, error) {
		v, err := fn()
		if err != nil && ctx.Err() != nil {
			return nil, &callerGone{err: err}
		}
		return v, err
	})
	if err != nil {
		var gone *callerGone
		if errors.As(err, &gone) {
			return zero, gone.err
		}
		return zero, err
	}
	v, _ := out.(T)
	return v, nil
}
