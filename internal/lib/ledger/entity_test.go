package ledger

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDepositDerivesEntityFromLedgerState(t *testing.T) {
	env := newTestLedger(t)
	collector := addr(1)
	user := addr(2)

	id1, err := env.ledger.Deposit(collector, KindPool, user, user, units(1))
	require.NoError(t, err)
	assert.Equal(t, EntityID(collector, 1), id1, "first slot gets sequence 1")

	// further deposits land on the same open slot
	id2, err := env.ledger.Deposit(collector, KindPool, user, user, units(2))
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	entity, err := env.ledger.GetEntity(id1)
	require.NoError(t, err)
	require.NotNil(t, entity)
	assert.Equal(t, 0, entity.Collected.Cmp(units(3)))
	assert.Equal(t, uint64(1), entity.Seq)

	// a different collector gets its own slot
	other := addr(9)
	id3, err := env.ledger.Deposit(other, KindPool, user, user, units(1))
	require.NoError(t, err)
	assert.NotEqual(t, id1, id3)
}

func TestDepositValidation(t *testing.T) {
	env := newTestLedger(t)
	collector := addr(1)
	user := addr(2)

	_, err := env.ledger.Deposit(collector, KindPool, user, user, nil)
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = env.ledger.Deposit(collector, KindPool, user, user, big.NewInt(0))
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = env.ledger.Deposit(collector, KindPool, user, user, units(-1))
	assert.ErrorIs(t, err, ErrInvalidAmount)
	// not a multiple of the minimum unit
	_, err = env.ledger.Deposit(collector, KindPool, user, user, big.NewInt(12345))
	assert.ErrorIs(t, err, ErrInvalidAmount)

	// overshooting the staking unit is rejected, not truncated
	_, err = env.ledger.Deposit(collector, KindPool, user, user, units(33))
	assert.ErrorIs(t, err, ErrQuotaExceeded)

	_, err = env.ledger.Deposit(collector, KindPool, user, user, units(30))
	require.NoError(t, err)
	_, err = env.ledger.Deposit(collector, KindPool, user, user, units(3))
	assert.ErrorIs(t, err, ErrQuotaExceeded)
	// landing exactly on the unit is fine
	_, err = env.ledger.Deposit(collector, KindPool, user, user, units(2))
	require.NoError(t, err)
}

func TestDepositToPinnedEntity(t *testing.T) {
	env := newTestLedger(t)
	collector := addr(1)
	user := addr(2)

	err := env.ledger.DepositTo(EntityID(collector, 7), user, user, units(1))
	assert.ErrorIs(t, err, ErrUnknownEntity)

	id, err := env.ledger.Deposit(collector, KindPool, user, user, units(32))
	require.NoError(t, err)
	require.NoError(t, env.ledger.Finalize(id, collector))

	err = env.ledger.DepositTo(id, user, user, units(1))
	assert.ErrorIs(t, err, ErrEntityFinalized)
}

func TestCancelDeposit(t *testing.T) {
	env := newTestLedger(t)
	collector := addr(1)
	user := addr(2)

	id, err := env.ledger.Deposit(collector, KindPool, user, user, units(5))
	require.NoError(t, err)

	err = env.ledger.Cancel(id, user, user, units(6))
	assert.ErrorIs(t, err, ErrInsufficientContribution)
	err = env.ledger.Cancel(id, addr(3), addr(3), units(1))
	assert.ErrorIs(t, err, ErrInsufficientContribution)

	require.NoError(t, env.ledger.Cancel(id, user, user, units(2)))
	contrib, err := env.ledger.ContributionOf(id, user, user)
	require.NoError(t, err)
	require.NotNil(t, contrib)
	assert.Equal(t, 0, contrib.Amount.Cmp(units(3)))

	// cancel the rest - position disappears entirely
	require.NoError(t, env.ledger.Cancel(id, user, user, units(3)))
	contrib, err = env.ledger.ContributionOf(id, user, user)
	require.NoError(t, err)
	assert.Nil(t, contrib)

	entity, err := env.ledger.GetEntity(id)
	require.NoError(t, err)
	assert.Equal(t, 0, entity.Collected.Sign())
}

func TestFinalize(t *testing.T) {
	env := newTestLedger(t)
	collector := addr(1)
	user := addr(2)

	err := env.ledger.Finalize(EntityID(collector, 3), collector)
	assert.ErrorIs(t, err, ErrUnknownEntity)

	id, err := env.ledger.Deposit(collector, KindPool, user, user, units(31))
	require.NoError(t, err)

	err = env.ledger.Finalize(id, addr(8))
	assert.ErrorIs(t, err, ErrPermissionDenied)
	err = env.ledger.Finalize(id, collector)
	assert.ErrorIs(t, err, ErrQuotaNotReached)

	_, err = env.ledger.Deposit(collector, KindPool, user, user, units(1))
	require.NoError(t, err)
	require.NoError(t, env.ledger.Finalize(id, collector))

	err = env.ledger.Finalize(id, collector)
	assert.ErrorIs(t, err, ErrEntityFinalized)

	// cancel against a finalized entity is rejected
	err = env.ledger.Cancel(id, user, user, units(1))
	assert.ErrorIs(t, err, ErrEntityFinalized)

	// the collector's next deposit opens a fresh slot with the next sequence
	next, err := env.ledger.Deposit(collector, KindPool, user, user, units(1))
	require.NoError(t, err)
	assert.Equal(t, EntityID(collector, 2), next)
}

func TestDepositJournalsEvents(t *testing.T) {
	env := newTestLedger(t)
	collector := addr(1)
	user := addr(2)

	_, err := env.ledger.Deposit(collector, KindPool, user, user, units(1))
	require.NoError(t, err)
	id, err := env.ledger.Deposit(collector, KindPool, user, user, units(2))
	require.NoError(t, err)
	require.NoError(t, env.ledger.Cancel(id, user, user, units(1)))

	events, err := env.ledger.Events(0, 0)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, EvDepositAdded, events[0].Kind)
	assert.Equal(t, EvDepositAdded, events[1].Kind)
	assert.Equal(t, EvDepositCanceled, events[2].Kind)
	assert.Equal(t, uint64(3), events[2].Seq)

	// pagination picks up after a given sequence
	tail, err := env.ledger.Events(2, 0)
	require.NoError(t, err)
	require.Len(t, tail, 1)
	assert.Equal(t, EvDepositCanceled, tail[0].Kind)
}
