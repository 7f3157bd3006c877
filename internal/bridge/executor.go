package bridge

import (
	"context"
	"fmt"
	"time"

	"github.com/nerrad567/switchbot-mqtt/internal/device"
)

// DefaultAttempts is used when RetryPolicy.Attempts is not positive.
const DefaultAttempts = 3

// RetryPolicy bounds the attempts made for one operation.
type RetryPolicy struct {
	// Attempts is the maximum number of tries, including the first.
	Attempts int

	// Backoff is the pause between attempts. Zero retries immediately.
	Backoff time.Duration
}

func (p RetryPolicy) attempts() int {
	if p.Attempts <= 0 {
		return DefaultAttempts
	}
	return p.Attempts
}

// Executor runs commands against device handles under a retry policy.
//
// Every attempt counter is local to one Execute or fetch call.
type Executor struct {
	policy RetryPolicy
	sleep  func(ctx context.Context, d time.Duration)
}

// NewExecutor creates an executor with the given policy.
func NewExecutor(policy RetryPolicy) *Executor {
	return &Executor{
		policy: policy,
		sleep:  sleepContext,
	}
}

// Execute runs cmd on the device behind h, holding the handle exclusively
// for the whole retry loop.
func (e *Executor) Execute(ctx context.Context, h *device.Handle, class DeviceClass, cmd Command) error {
	if err := checkAction(class, cmd); err != nil {
		return err
	}

	return h.Exclusive(func(p device.Protocol) error {
		return e.retry(ctx, func() error {
			return invoke(ctx, p, cmd)
		})
	})
}

// fetch reads one integer metric under the retry policy. The caller must
// already hold the handle.
func (e *Executor) fetch(ctx context.Context, get func(context.Context) (int, error)) (int, error) {
	var value int
	err := e.retry(ctx, func() error {
		v, err := get(ctx)
		if err != nil {
			return err
		}
		value = v
		return nil
	})
	return value, err
}

func (e *Executor) retry(ctx context.Context, op func() error) error {
	attempts := e.policy.attempts()

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := op()
		if err == nil {
			return nil
		}
		lastErr = fmt.Errorf("%w: attempt %d/%d: %w", ErrTransportFailure, attempt, attempts, err)

		if attempt < attempts && e.policy.Backoff > 0 {
			e.sleep(ctx, e.policy.Backoff)
		}
	}

	return fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, attempts, lastErr)
}

// checkAction rejects actions the class does not support and re-validates
// the target position.
func checkAction(class DeviceClass, cmd Command) error {
	switch cmd.Action {
	case ActionTurnOn, ActionTurnOff:
		if class != ClassSwitch {
			return fmt.Errorf("%w: %s on %s", ErrUnsupportedAction, cmd.Action, class)
		}
	case ActionOpen, ActionClose, ActionStop:
		if class != ClassCurtain {
			return fmt.Errorf("%w: %s on %s", ErrUnsupportedAction, cmd.Action, class)
		}
	case ActionSetPosition:
		if class != ClassCurtain {
			return fmt.Errorf("%w: %s on %s", ErrUnsupportedAction, cmd.Action, class)
		}
		return validatePosition(cmd.Position)
	default:
		return fmt.Errorf("%w: %d", ErrUnsupportedAction, cmd.Action)
	}
	return nil
}

func invoke(ctx context.Context, p device.Protocol, cmd Command) error {
	switch cmd.Action {
	case ActionTurnOn:
		return p.TurnOn(ctx)
	case ActionTurnOff:
		return p.TurnOff(ctx)
	case ActionOpen:
		return p.Open(ctx)
	case ActionClose:
		return p.Close(ctx)
	case ActionStop:
		return p.Stop(ctx)
	case ActionSetPosition:
		return p.SetPosition(ctx, cmd.Position)
	default:
		return fmt.Errorf("%w: %d", ErrUnsupportedAction, cmd.Action)
	}
}

func sleepContext(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
