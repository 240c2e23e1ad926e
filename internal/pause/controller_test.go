package pause

import (
	"errors"
	"math"
	"testing"

	"diamond-token/internal/domain"
)

func TestPauseUnpause_Cooldown(t *testing.T) {
	state := &domain.TokenState{}

	if err := Pause(state, 0); err != nil {
		t.Fatalf("Pause failed: %v", err)
	}
	if !state.IsPaused || state.LastPauseTimestamp != 0 {
		t.Fatalf("Unexpected state after pause: %+v", state)
	}

	if err := Unpause(state, 500); !errors.Is(err, domain.ErrPauseCooldownNotElapsed) {
		t.Errorf("Expected ErrPauseCooldownNotElapsed at 500, got %v", err)
	}
	if !state.IsPaused {
		t.Error("Failed unpause changed state")
	}

	if err := Unpause(state, 899); !errors.Is(err, domain.ErrPauseCooldownNotElapsed) {
		t.Errorf("Expected ErrPauseCooldownNotElapsed at 899, got %v", err)
	}

	if err := Unpause(state, 900); err != nil {
		t.Fatalf("Unpause at 900 failed: %v", err)
	}
	if state.IsPaused {
		t.Error("Expected active state after unpause")
	}
}

func TestPause_AlreadyPaused(t *testing.T) {
	state := &domain.TokenState{IsPaused: true, LastPauseTimestamp: 10}

	if err := Pause(state, 20); !errors.Is(err, domain.ErrAlreadyPaused) {
		t.Errorf("Expected ErrAlreadyPaused, got %v", err)
	}
	if state.LastPauseTimestamp != 10 {
		t.Errorf("Timestamp changed to %d", state.LastPauseTimestamp)
	}
}

func TestUnpause_NotPaused(t *testing.T) {
	state := &domain.TokenState{}
	if err := Unpause(state, 10_000); !errors.Is(err, domain.ErrNotPaused) {
		t.Errorf("Expected ErrNotPaused, got %v", err)
	}
}

func TestUnpause_ClockBeforePause(t *testing.T) {
	state := &domain.TokenState{IsPaused: true, LastPauseTimestamp: 5_000}
	if err := Unpause(state, 1_000); !errors.Is(err, domain.ErrPauseCooldownNotElapsed) {
		t.Errorf("Expected ErrPauseCooldownNotElapsed, got %v", err)
	}
}

func TestCooldownElapsed_Extremes(t *testing.T) {
	if CooldownElapsed(math.MaxInt64, math.MinInt64) {
		t.Error("Expected false when now precedes last")
	}
	if !CooldownElapsed(0, math.MaxInt64) {
		t.Error("Expected true for a large gap")
	}
}

func TestRequireActive(t *testing.T) {
	if err := RequireActive(domain.TokenState{}); err != nil {
		t.Errorf("Expected nil when active, got %v", err)
	}
	if err := RequireActive(domain.TokenState{IsPaused: true}); !errors.Is(err, domain.ErrOperationsPaused) {
		t.Errorf("Expected ErrOperationsPaused, got %v", err)
	}
}
