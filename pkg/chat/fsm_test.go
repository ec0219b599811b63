package chat

import (
	"errors"
	"testing"
)

func TestStateMachineToolCallCycle(t *testing.T) {
	sm := newStateMachine()
	var seen []StateChange
	sm.AddListener(ListenerFunc(func(ev StateChange) {
		seen = append(seen, ev)
	}))

	if sm.State() != StateAwaitingResponse {
		t.Fatalf("expected initial AWAITING_RESPONSE, got %s", sm.State())
	}
	if err := sm.Transition(StateHandlingToolCall, "model requested calculator"); err != nil {
		t.Fatalf("transition error: %v", err)
	}
	if err := sm.Transition(StateAwaitingResponse, "tool result appended"); err != nil {
		t.Fatalf("transition error: %v", err)
	}
	if err := sm.Transition(StateDone, "assistant answered"); err != nil {
		t.Fatalf("transition error: %v", err)
	}

	if len(seen) != 3 {
		t.Fatalf("expected 3 state changes, got %d", len(seen))
	}
	if seen[0].ToState != StateHandlingToolCall || seen[2].ToState != StateDone {
		t.Fatalf("unexpected transition order: %+v", seen)
	}
	if seen[0].Reason != "model requested calculator" {
		t.Fatalf("reason lost: %q", seen[0].Reason)
	}
}

func TestStateMachineRejectsInvalidTransition(t *testing.T) {
	sm := newStateMachine()
	if err := sm.Transition(StateHandlingToolCall, "tool call"); err != nil {
		t.Fatalf("transition error: %v", err)
	}
	err := sm.Transition(StateDone, "skipping the response")
	if err == nil {
		t.Fatal("expected invalid transition error")
	}
	var invalid *InvalidTransitionError
	if !errors.As(err, &invalid) {
		t.Fatalf("unexpected error type: %v", err)
	}
	if invalid.From != StateHandlingToolCall || invalid.To != StateDone {
		t.Fatalf("unexpected error detail: %+v", invalid)
	}
	if sm.State() != StateHandlingToolCall {
		t.Fatalf("state changed on rejected transition: %s", sm.State())
	}
}

func TestStateMachineDoneIsTerminal(t *testing.T) {
	sm := newStateMachine()
	if err := sm.Transition(StateDone, "answered"); err != nil {
		t.Fatalf("transition error: %v", err)
	}
	if err := sm.Transition(StateAwaitingResponse, "one more turn"); err == nil {
		t.Fatal("expected DONE to be terminal")
	}
}
