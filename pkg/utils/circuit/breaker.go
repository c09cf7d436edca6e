// Package circuit stops calling a failing dependency for a while after
// repeated failures.
package circuit

import (
	"context"
	"sync"
	"time"

	"github.com/rzzdr/quant-curve-engine/pkg/utils/errors"
	"github.com/rzzdr/quant-curve-engine/pkg/utils/logger"
)

type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half_open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// ErrOpen is returned without calling through while the breaker is open
var ErrOpen = errors.New("circuit breaker is open")

type Config struct {
	MaxFailures   int                               // consecutive failures before opening
	Timeout       time.Duration                     // time spent open before a trial call
	IsFailure     func(error) bool                  // which errors count against the breaker
	OnStateChange func(name string, from, to State) // optional
}

func DefaultConfig() Config {
	return Config{
		MaxFailures: 5,
		Timeout:     30 * time.Second,
	}
}

// Breaker lets one trial call through after Timeout in the open state; its
// outcome closes or reopens the breaker
type Breaker struct {
	name     string
	config   Config
	state    State
	failures int
	openedAt time.Time
	trial    bool
	now      func() time.Time
	mutex    sync.Mutex
	log      *logger.Logger
}

func NewBreaker(name string, config Config) *Breaker {
	def := DefaultConfig()
	if config.MaxFailures <= 0 {
		config.MaxFailures = def.MaxFailures
	}
	if config.Timeout <= 0 {
		config.Timeout = def.Timeout
	}
	if config.IsFailure == nil {
		config.IsFailure = func(err error) bool { return err != nil }
	}
	return &Breaker{
		name:   name,
		config: config,
		now:    time.Now,
		log:    logger.GetLogger("circuit." + name),
	}
}

// Execute calls fn unless the breaker is open
func (b *Breaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := b.before(); err != nil {
		return err
	}

	err := fn(ctx)
	if err != nil && ctx.Err() != nil {
		// the caller gave up; nothing is recorded
		b.release()
		return err
	}
	b.after(err != nil && b.config.IsFailure(err))
	return err
}

func (b *Breaker) release() {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.trial = false
}

func (b *Breaker) before() error {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	switch b.state {
	case StateOpen:
		if b.now().Sub(b.openedAt) < b.config.Timeout {
			return errors.Wrapf(ErrOpen, "calling %s", b.name)
		}
		b.transition(StateHalfOpen)
		b.trial = true
		return nil
	case StateHalfOpen:
		if b.trial {
			return errors.Wrapf(ErrOpen, "calling %s", b.name)
		}
		b.trial = true
		return nil
	default:
		return nil
	}
}

func (b *Breaker) after(failed bool) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.trial = false
	if !failed {
		b.failures = 0
		if b.state != StateClosed {
			b.transition(StateClosed)
		}
		return
	}

	b.failures++
	if b.state == StateHalfOpen || b.failures >= b.config.MaxFailures {
		b.openedAt = b.now()
		if b.state != StateOpen {
			b.transition(StateOpen)
		}
	}
}

func (b *Breaker) transition(to State) {
	from := b.state
	b.state = to
	if to == StateOpen {
		b.log.Warnw("Circuit breaker opened", "breaker", b.name, "from", from.String(), "failures", b.failures)
	} else {
		b.log.Infow("Circuit breaker state changed", "breaker", b.name, "from", from.String(), "to", to.String())
	}
	if b.config.OnStateChange != nil {
		b.config.OnStateChange(b.name, from, to)
	}
}

func (b *Breaker) State() State {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.state
}

// Reset closes the breaker
func (b *Breaker) Reset() {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.failures = 0
	b.trial = false
	if b.state != StateClosed {
		b.transition(StateClosed)
	}
}

func (b *Breaker) Name() string {
	return b.name
}
