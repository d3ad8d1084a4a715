package payment

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
)

// guard bounds every gateway call with a timeout and a per-gateway circuit
// breaker. Breakers are created lazily and live for the process.
type guard struct {
	timeout  time.Duration
	failures uint32
	cooldown time.Duration

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[any]
}

func newGuard(timeout time.Duration, failures uint32, cooldown time.Duration) *guard {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if failures == 0 {
		failures = 5
	}
	return &guard{timeout: timeout, failures: failures, cooldown: cooldown, breakers: map[string]*gobreaker.CircuitBreaker[any]{}}
}

func (g *guard) breaker(name string) *gobreaker.CircuitBreaker[any] {
	g.mu.Lock()
	defer g.mu.Unlock()
	if cb, ok := g.breakers[name]; ok {
		return cb
	}
	failures := g.failures
	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        "payment-" + name,
		MaxRequests: 1,
		Timeout:     g.cooldown,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= failures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || isCallerError(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Printf("[payment] circuit %s: %s -> %s", name, from, to)
		},
	})
	g.breakers[name] = cb
	return cb
}

// invoke runs fn against the named gateway. Caller errors reported by the
// gateway pass through unchanged; timeouts, open circuits and provider
// errors come back wrapped in ErrGatewayFailure.
func invoke[T any](ctx context.Context, g *guard, gateway, op string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	res, err := g.breaker(gateway).Execute(func() (any, error) {
		type result struct {
			v   T
			err error
		}
		done := make(chan result, 1)
		go func() {
			v, err := fn(ctx)
			done <- result{v, err}
		}()
		select {
		case r := <-done:
			return r.v, r.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})
	if err != nil {
		if isCallerError(err) {
			return zero, err
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			log.Printf("[payment] %s %s rejected: %v", gateway, op, err)
		} else {
			log.Printf("[payment] %s %s failed: %v", gateway, op, err)
		}
		return zero, fmt.Errorf("%w: %s %s: %w", ErrGatewayFailure, gateway, op, err)
	}
	v, _ := res.(T)
	return v, nil
}
