package memcache

import (
	"context"
	"time"

	"github.com/sony/gobreaker/v2"
)

// NodeState is the liveness state a FailurePolicy assigns to a node.
type NodeState int

const (
	// Alive serves operations normally.
	Alive NodeState = iota
	// Dead refuses operations until a probe succeeds (spec.md §4.6).
	Dead
)

func (s NodeState) String() string {
	if s == Dead {
		return "dead"
	}
	return "alive"
}

// FailurePolicy decides, from a stream of per-operation outcomes, whether a
// node is Alive or Dead, and gates the single probe attempt while Dead
// (spec.md §4.6, "Throttling failure policy").
type FailurePolicy interface {
	// Run executes op if the policy currently permits it, recording the
	// outcome. Returns the circuit-open sentinel error without calling op
	// when the node is Dead and not yet due for a probe.
	Run(op func() error) error
	State() NodeState
}

// NoFailurePolicy never marks a node Dead; every operation is attempted.
type NoFailurePolicy struct{}

func (NoFailurePolicy) Run(op func() error) error { return op() }
func (NoFailurePolicy) State() NodeState          { return Alive }

// ThrottlingFailurePolicy implements a throttling liveness policy with
// sony/gobreaker: failures within resetAfter trip the breaker to open
// (Dead); after deadTimeout it allows exactly one probe (half-open) before
// deciding again.
type ThrottlingFailurePolicy struct {
	breaker *gobreaker.CircuitBreaker[struct{}]
}

// NewThrottlingFailurePolicy builds a policy that goes Dead after
// failureThreshold consecutive failures observed within resetAfter, and
// probes again after deadTimeout.
func NewThrottlingFailurePolicy(name string, failureThreshold uint32, resetAfter, deadTimeout time.Duration) *ThrottlingFailurePolicy {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    resetAfter,
		Timeout:     deadTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failureThreshold
		},
	}
	return &ThrottlingFailurePolicy{breaker: gobreaker.NewCircuitBreaker[struct{}](settings)}
}

func (p *ThrottlingFailurePolicy) Run(op func() error) error {
	_, err := p.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, op()
	})
	return err
}

// State reports Dead while the breaker is open or half-open, so a node stays
// out of rotation until the single half-open probe succeeds.
func (p *ThrottlingFailurePolicy) State() NodeState {
	if s := p.breaker.State(); s == gobreaker.StateOpen || s == gobreaker.StateHalfOpen {
		return Dead
	}
	return Alive
}

// probeLiveness runs fn (a NoOp/Version send) against a node considered
// Dead, honoring ctx cancellation, through the node's failure policy.
func probeLiveness(ctx context.Context, policy FailurePolicy, fn func(context.Context) error) error {
	return policy.Run(func() error { return fn(ctx) })
}
