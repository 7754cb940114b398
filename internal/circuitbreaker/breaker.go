package circuitbreaker

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

var ErrOpen = errors.New("circuit breaker is open")

type Config struct {
	Name        string
	MaxFailures int
	Cooldown    time.Duration
	MaxProbes   int
}

// Breaker trips after MaxFailures consecutive failures, rejects calls for
// Cooldown, then lets at most MaxProbes requests through half-open before
// deciding to close or re-open.
type Breaker struct {
	name        string
	maxFailures int
	cooldown    time.Duration
	maxProbes   int

	mutex        sync.Mutex
	state        State
	failures     int
	probes       int
	lastFailTime time.Time

	totalRequests  int64
	totalFailures  int64
	totalSuccesses int64

	logger *logrus.Logger
}

func New(config Config, logger *logrus.Logger) *Breaker {
	if config.Name == "" {
		config.Name = "unnamed"
	}
	if config.MaxFailures <= 0 {
		config.MaxFailures = 5
	}
	if config.Cooldown <= 0 {
		config.Cooldown = 30 * time.Second
	}
	if config.MaxProbes <= 0 {
		config.MaxProbes = 1
	}

	return &Breaker{
		name:        config.Name,
		maxFailures: config.MaxFailures,
		cooldown:    config.Cooldown,
		maxProbes:   config.MaxProbes,
		state:       StateClosed,
		logger:      logger,
	}
}

func (b *Breaker) Execute(fn func() error) error {
	b.mutex.Lock()

	if b.state == StateOpen {
		if time.Since(b.lastFailTime) > b.cooldown {
			b.setState(StateHalfOpen)
			b.probes = 0
		} else {
			b.mutex.Unlock()
			return ErrOpen
		}
	}

	if b.state == StateHalfOpen && b.probes >= b.maxProbes {
		b.mutex.Unlock()
		return ErrOpen
	}

	b.totalRequests++
	if b.state == StateHalfOpen {
		b.probes++
	}
	b.mutex.Unlock()

	err := fn()

	b.mutex.Lock()
	defer b.mutex.Unlock()

	if err != nil {
		b.totalFailures++
		b.onFailure()
		return err
	}

	b.totalSuccesses++
	b.onSuccess()
	return nil
}

func (b *Breaker) onSuccess() {
	b.failures = 0
	if b.state == StateHalfOpen {
		b.setState(StateClosed)
		b.probes = 0
	}
}

func (b *Breaker) onFailure() {
	b.failures++
	b.lastFailTime = time.Now()

	if b.state == StateClosed && b.failures >= b.maxFailures {
		b.setState(StateOpen)
	} else if b.state == StateHalfOpen {
		b.setState(StateOpen)
	}
}

func (b *Breaker) setState(newState State) {
	if b.state == newState {
		return
	}

	oldState := b.state
	b.state = newState

	b.logger.WithFields(logrus.Fields{
		"circuit_breaker": b.name,
		"from_state":      oldState.String(),
		"to_state":        newState.String(),
	}).Info("Circuit breaker state changed")
}

func (b *Breaker) State() State {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.state
}

func (b *Breaker) Metrics() map[string]interface{} {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	return map[string]interface{}{
		"name":            b.name,
		"state":           b.state.String(),
		"failures":        b.failures,
		"total_requests":  b.totalRequests,
		"total_failures":  b.totalFailures,
		"total_successes": b.totalSuccesses,
	}
}

func (b *Breaker) Reset() {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.setState(StateClosed)
	b.failures = 0
	b.probes = 0
	b.lastFailTime = time.Time{}
}

func (b *Breaker) String() string {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return fmt.Sprintf("Breaker(name=%s, state=%s, failures=%d/%d)",
		b.name, b.state.String(), b.failures, b.maxFailures)
}
