// Package pause implements the two-state circuit breaker on TokenState.
package pause

import "diamond-token/internal/domain"

// CooldownSeconds is the minimum time between a pause and the next unpause.
const CooldownSeconds int64 = 900

// Pause moves state to Paused and records now as the pause timestamp.
func Pause(state *domain.TokenState, now int64) error {
	if state.IsPaused {
		return domain.ErrAlreadyPaused
	}
	state.IsPaused = true
	state.LastPauseTimestamp = now
	return nil
}

// Unpause moves state back to Active once the cooldown has elapsed.
// A clock that reads earlier than the last pause never satisfies the cooldown.
func Unpause(state *domain.TokenState, now int64) error {
	if !state.IsPaused {
		return domain.ErrNotPaused
	}
	if !CooldownElapsed(state.LastPauseTimestamp, now) {
		return domain.ErrPauseCooldownNotElapsed
	}
	state.IsPaused = false
	return nil
}

// CooldownElapsed reports whether now is at least CooldownSeconds past last.
func CooldownElapsed(last, now int64) bool {
	if now < last {
		return false
	}
	return uint64(now)-uint64(last) >= uint64(CooldownSeconds)
}

// RequireActive returns ErrOperationsPaused while paused.
func RequireActive(state domain.TokenState) error {
	if state.IsPaused {
		return domain.ErrOperationsPaused
	}
	return nil
}
