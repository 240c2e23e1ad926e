package ledger

import (
	"diamond-token/internal/blacklist"
	"diamond-token/internal/domain"
	"diamond-token/internal/pause"
)

// Pause trips the circuit breaker.
func (e *Engine) Pause(snap *domain.Snapshot, inv Invocation) (*Result, error) {
	if err := e.beginPrivileged(snap, inv, PauseOperation(versionOf(snap))); err != nil {
		return nil, err
	}

	next := snap.Clone()
	if err := pause.Pause(&next.State, inv.Now); err != nil {
		return nil, err
	}
	return commit(snap, next, inv, domain.EventPaused, &domain.PauseTogglePayload{Timestamp: inv.Now})
}

// Unpause resets the circuit breaker once the cooldown has elapsed.
func (e *Engine) Unpause(snap *domain.Snapshot, inv Invocation) (*Result, error) {
	if err := e.beginPrivileged(snap, inv, UnpauseOperation(versionOf(snap))); err != nil {
		return nil, err
	}

	next := snap.Clone()
	if err := pause.Unpause(&next.State, inv.Now); err != nil {
		return nil, err
	}
	return commit(snap, next, inv, domain.EventUnpaused, &domain.PauseTogglePayload{Timestamp: inv.Now})
}

// AddToBlacklist bars req.Address from moving value.
func (e *Engine) AddToBlacklist(snap *domain.Snapshot, inv Invocation, req BlacklistRequest) (*Result, error) {
	if err := e.beginPrivileged(snap, inv, req.AddOperation(versionOf(snap))); err != nil {
		return nil, err
	}

	bl, err := blacklist.Add(snap.Blacklist, req.Address)
	if err != nil {
		return nil, err
	}
	next := snap.Clone()
	next.Blacklist = bl
	return commit(snap, next, inv, domain.EventBlacklistUpdated, &domain.BlacklistUpdatedPayload{
		Address:     req.Address,
		Blacklisted: true,
	})
}

// RemoveFromBlacklist lifts the bar on req.Address.
func (e *Engine) RemoveFromBlacklist(snap *domain.Snapshot, inv Invocation, req BlacklistRequest) (*Result, error) {
	if err := e.beginPrivileged(snap, inv, req.RemoveOperation(versionOf(snap))); err != nil {
		return nil, err
	}

	bl, err := blacklist.Remove(snap.Blacklist, req.Address)
	if err != nil {
		return nil, err
	}
	next := snap.Clone()
	next.Blacklist = bl
	return commit(snap, next, inv, domain.EventBlacklistUpdated, &domain.BlacklistUpdatedPayload{
		Address:     req.Address,
		Blacklisted: false,
	})
}
