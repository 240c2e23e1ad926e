package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"diamond-token/internal/domain"
)

func TestPauseUnpause_Scenario(t *testing.T) {
	e := NewEngine()
	snap := setup(t, e, 100, 1_000)

	paused := mustApply(t)(e.Pause(snap, as(authority, 0)))
	assert.True(t, paused.State.IsPaused)
	assert.Equal(t, int64(0), paused.State.LastPauseTimestamp)

	_, err := e.Unpause(paused, as(authority, 500))
	assert.ErrorIs(t, err, domain.ErrPauseCooldownNotElapsed)

	res, err := e.Unpause(paused, as(authority, 900))
	require.NoError(t, err)
	assert.False(t, res.Snapshot.State.IsPaused)
	assert.Equal(t, domain.EventUnpaused, res.Events[0].Kind)
}

func TestPause_TwoStateMachine(t *testing.T) {
	e := NewEngine()
	snap := setup(t, e, 100, 1_000)

	_, err := e.Unpause(snap, as(authority, now))
	assert.ErrorIs(t, err, domain.ErrNotPaused)

	paused := mustApply(t)(e.Pause(snap, as(authority, now)))
	_, err = e.Pause(paused, as(authority, now+10_000))
	assert.ErrorIs(t, err, domain.ErrAlreadyPaused)
}

func TestPause_RequiresPrivilege(t *testing.T) {
	e := NewEngine()
	snap := setup(t, e, 100, 1_000)

	_, err := e.Pause(snap, as(stranger, now))
	assert.ErrorIs(t, err, domain.ErrNotAuthorized)

	inv := as(stranger, now)
	inv.Proofs = quorum(t, PauseOperation(snap.Version), 3)
	res, err := e.Pause(snap, inv)
	require.NoError(t, err)
	assert.True(t, res.Snapshot.State.IsPaused)

	// a pause quorum does not authorize unpause
	later := as(stranger, now+1_000)
	later.Proofs = quorum(t, PauseOperation(res.Snapshot.Version), 3)
	_, err = e.Unpause(res.Snapshot, later)
	assert.ErrorIs(t, err, domain.ErrNotAuthorized)
}

func TestBlacklist_AddRemove(t *testing.T) {
	e := NewEngine()
	snap := setup(t, e, 100, 1_000)

	added := mustApply(t)(e.AddToBlacklist(snap, as(authority, now), BlacklistRequest{Address: buyer}))
	assert.Equal(t, []domain.Pubkey{buyer}, added.Blacklist.Addresses)

	_, err := e.AddToBlacklist(added, as(authority, now), BlacklistRequest{Address: buyer})
	assert.ErrorIs(t, err, domain.ErrAddressAlreadyBlacklisted)

	res, err := e.RemoveFromBlacklist(added, as(authority, now), BlacklistRequest{Address: buyer})
	require.NoError(t, err)
	assert.Empty(t, res.Snapshot.Blacklist.Addresses)
	payload := res.Events[0].Payload.(*domain.BlacklistUpdatedPayload)
	assert.False(t, payload.Blacklisted)

	_, err = e.RemoveFromBlacklist(res.Snapshot, as(authority, now), BlacklistRequest{Address: buyer})
	assert.ErrorIs(t, err, domain.ErrAddressNotBlacklisted)

	_, err = e.AddToBlacklist(snap, as(stranger, now), BlacklistRequest{Address: buyer})
	assert.ErrorIs(t, err, domain.ErrNotAuthorized)
}

func TestBlacklist_101stEntryRejected(t *testing.T) {
	e := NewEngine()
	snap := setup(t, e, 100, 1_000)

	for i := 0; i < domain.BlacklistCapacity; i++ {
		addr := domain.Pubkey{0xEE, byte(i)}
		snap = mustApply(t)(e.AddToBlacklist(snap, as(authority, now), BlacklistRequest{Address: addr}))
	}
	require.Len(t, snap.Blacklist.Addresses, domain.BlacklistCapacity)

	_, err := e.AddToBlacklist(snap, as(authority, now), BlacklistRequest{Address: domain.Pubkey{0xEF}})
	assert.ErrorIs(t, err, domain.ErrBlacklistFull)
	assert.Len(t, snap.Blacklist.Addresses, domain.BlacklistCapacity)
}

func TestPause_QuorumScopedToProgram(t *testing.T) {
	e := NewEngine(WithProgramID(domain.Pubkey{0x5E}))
	snap := setup(t, e, 100, 1_000)

	inv := as(stranger, now)
	inv.Proofs = quorum(t, PauseOperation(snap.Version), 3) // signed for DefaultProgramID
	_, err := e.Pause(snap, inv)
	assert.ErrorIs(t, err, domain.ErrNotAuthorized)
}
