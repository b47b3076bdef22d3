package services

import (
	"context"
	"errors"

	loopfsm "github.com/looplab/fsm"

	"github.com/Odiabackend099/voxanne-console/internal/core/domain"
)

// guardEvents converts domain.GuardTransitions into looplab/fsm EventDesc
// format, consolidating transitions with the same event and destination
// into a single EventDesc with multiple source states.
var guardEvents = buildGuardEvents()

func buildGuardEvents() []loopfsm.EventDesc {
	type key struct {
		event string
		dst   string
	}
	grouped := make(map[key][]string)
	order := make([]key, 0)

	for _, t := range domain.GuardTransitions {
		k := key{event: string(t.Event), dst: string(t.Dst)}
		if _, exists := grouped[k]; !exists {
			order = append(order, k)
		}
		grouped[k] = append(grouped[k], string(t.Src))
	}

	out := make([]loopfsm.EventDesc, 0, len(order))
	for _, k := range order {
		out = append(out, loopfsm.EventDesc{
			Name: k.event,
			Src:  grouped[k],
			Dst:  k.dst,
		})
	}
	return out
}

// guardMachine is the looplab-backed state machine for one access check.
// Illegal events are rejected with a domain.GuardTransitionError instead
// of being silently absorbed.
type guardMachine struct {
	fsm *loopfsm.FSM
}

func newGuardMachine() *guardMachine {
	return &guardMachine{
		fsm: loopfsm.NewFSM(string(domain.GuardIdle), guardEvents, nil),
	}
}

func (m *guardMachine) current() domain.GuardState {
	return domain.GuardState(m.fsm.Current())
}

func (m *guardMachine) fire(ctx context.Context, event domain.GuardEvent) error {
	if err := m.fsm.Event(ctx, string(event)); err != nil {
		var invalidEvent loopfsm.InvalidEventError
		var noTransition loopfsm.NoTransitionError
		if errors.As(err, &invalidEvent) || errors.As(err, &noTransition) {
			return &domain.GuardTransitionError{
				Event:   event,
				Current: m.current(),
			}
		}
		return err
	}
	return nil
}
