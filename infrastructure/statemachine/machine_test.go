package statemachine

import (
	"errors"
	"testing"

	"github.com/felixgeelhaar/react-agent/domain/agent"
)

func TestNewLifecycleMachine(t *testing.T) {
	t.Parallel()

	machine, err := NewLifecycleMachine()
	if err != nil {
		t.Fatalf("NewLifecycleMachine() error = %v", err)
	}
	if machine == nil {
		t.Fatal("NewLifecycleMachine() returned nil machine")
	}

	running := machine.GetState(stateRunning)
	if running == nil {
		t.Fatal("GetState(running) = nil")
	}
	var step bool
	for _, tr := range running.Transitions {
		if tr.Event == EventStep {
			step = tr.Target == stateRunning
		}
	}
	if !step {
		t.Error("running has no STEP self-transition")
	}
}

func TestEventFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status agent.Status
		want   string
	}{
		{agent.StatusFinished, "FINISH"},
		{agent.StatusFailed, "FAIL"},
		{agent.StatusExhausted, "EXHAUST"},
	}
	for _, tt := range tests {
		if got := EventFor(tt.status); string(got) != tt.want {
			t.Errorf("EventFor(%s) = %s, want %s", tt.status, got, tt.want)
		}
		if got := statusFromEvent(EventFor(tt.status)); got != tt.status {
			t.Errorf("statusFromEvent(EventFor(%s)) = %s", tt.status, got)
		}
	}
}

func TestLifecycle_Terminal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		fire func(*Lifecycle) error
		want agent.Status
	}{
		{"finish", func(l *Lifecycle) error { return l.Finish("answered") }, agent.StatusFinished},
		{"fail", func(l *Lifecycle) error { return l.Fail("oracle timeout") }, agent.StatusFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			l, err := NewLifecycle("run-1", 3)
			if err != nil {
				t.Fatalf("NewLifecycle() error = %v", err)
			}
			defer l.Stop()

			if l.Status() != agent.StatusRunning {
				t.Fatalf("Status() = %v, want running", l.Status())
			}
			if err := tt.fire(l); err != nil {
				t.Fatalf("fire error = %v", err)
			}
			if l.Status() != tt.want || !l.Done() {
				t.Errorf("Status() = %v, Done() = %v", l.Status(), l.Done())
			}

			trs := l.Transitions()
			if len(trs) != 1 || trs[0].From != agent.StatusRunning || trs[0].To != tt.want {
				t.Errorf("Transitions() = %+v", trs)
			}
		})
	}
}

func TestLifecycle_Step(t *testing.T) {
	t.Parallel()

	l, err := NewLifecycle("run-1", 5)
	if err != nil {
		t.Fatalf("NewLifecycle() error = %v", err)
	}
	defer l.Stop()

	for i := 1; i <= 3; i++ {
		if err := l.Step(); err != nil {
			t.Fatalf("Step() #%d error = %v", i, err)
		}
		if l.Iteration() != i {
			t.Errorf("Iteration() = %d, want %d", l.Iteration(), i)
		}
	}
	if l.Status() != agent.StatusRunning || l.Done() {
		t.Errorf("Status() = %v, Done() = %v, want running", l.Status(), l.Done())
	}
	if len(l.Transitions()) != 0 {
		t.Errorf("Transitions() = %+v, want none for steps", l.Transitions())
	}
	if got := statusFromEvent(EventStep); got != agent.StatusRunning {
		t.Errorf("statusFromEvent(STEP) = %s, want running", got)
	}
}

func TestLifecycle_ExhaustGuard(t *testing.T) {
	t.Parallel()

	l, _ := NewLifecycle("run-1", 2)
	defer l.Stop()

	_ = l.Step()
	if err := l.Exhaust(); !errors.Is(err, agent.ErrIllegalState) {
		t.Fatalf("Exhaust() with budget left error = %v, want ErrIllegalState", err)
	}
	if l.Status() != agent.StatusRunning {
		t.Errorf("Status() = %v, want running", l.Status())
	}

	_ = l.Step()
	if err := l.Exhaust(); err != nil {
		t.Fatalf("Exhaust() error = %v", err)
	}
	if l.Status() != agent.StatusExhausted || l.Iteration() != 2 {
		t.Errorf("Status() = %v, Iteration() = %d", l.Status(), l.Iteration())
	}
}

func TestLifecycle_FinalIsAbsorbing(t *testing.T) {
	t.Parallel()

	l, _ := NewLifecycle("run-1", 1)
	defer l.Stop()
	_ = l.Fail("boom")

	if err := l.Step(); !errors.Is(err, agent.ErrIllegalState) {
		t.Errorf("Step() after fail error = %v", err)
	}
	if err := l.Finish("late"); !errors.Is(err, agent.ErrIllegalState) {
		t.Errorf("Finish() after fail error = %v", err)
	}
	if err := l.Fail("again"); !errors.Is(err, agent.ErrIllegalState) {
		t.Errorf("Fail() after fail error = %v", err)
	}
	if l.Status() != agent.StatusFailed {
		t.Errorf("Status() = %v, want failed", l.Status())
	}
	if len(l.Transitions()) != 1 {
		t.Errorf("Transitions() = %d, want 1", len(l.Transitions()))
	}
}
