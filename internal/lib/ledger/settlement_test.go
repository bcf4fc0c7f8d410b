package ledger

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fundEntity deposits the full staking unit from the given positions and
// finalizes the slot.
func fundEntity(t *testing.T, env *testEnv, collector Address, positions map[Address]*big.Int) ID {
	t.Helper()
	var id ID
	for user, amount := range positions {
		var err error
		id, err = env.ledger.Deposit(collector, KindPool, user, user, amount)
		require.NoError(t, err)
	}
	require.NoError(t, env.ledger.Finalize(id, collector))
	return id
}

func TestRegisterValidator(t *testing.T) {
	env := newTestLedger(t)
	operator := env.auth.operator
	collector := addr(1)
	user := addr(2)
	pubKey := []byte("validator-pubkey-0001")

	entityID := fundEntity(t, env, collector, map[Address]*big.Int{user: units(32)})

	_, err := env.ledger.Register(user, entityID, RegisterParams{PubKey: pubKey})
	assert.ErrorIs(t, err, ErrPermissionDenied)

	_, err = env.ledger.Register(operator, EntityID(collector, 9), RegisterParams{PubKey: pubKey})
	assert.ErrorIs(t, err, ErrUnknownEntity)

	// an unfinalized slot cannot back a validator
	openID, err := env.ledger.Deposit(addr(3), KindPool, user, user, units(1))
	require.NoError(t, err)
	_, err = env.ledger.Register(operator, openID, RegisterParams{PubKey: pubKey})
	assert.ErrorIs(t, err, ErrEntityNotFinalized)

	vID, err := env.ledger.Register(operator, entityID, RegisterParams{PubKey: pubKey})
	require.NoError(t, err)
	assert.Equal(t, ValidatorID(pubKey), vID)

	_, err = env.ledger.Register(operator, entityID, RegisterParams{PubKey: pubKey})
	assert.ErrorIs(t, err, ErrValidatorAlreadyExists)

	v, err := env.ledger.GetValidator(vID)
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, entityID, v.CurrentEntityID)
	// defaults pulled from settings and the backing entity
	assert.Equal(t, 0, v.Terms.DepositAmount.Cmp(units(32)))
	assert.Equal(t, uint64(2000), v.Terms.MaintainerFee)
	assert.Equal(t, uint64(730), v.Terms.StakingDuration)
	assert.Equal(t, uint64(180), v.Terms.MinStakingDuration)

	entity, err := env.ledger.GetEntity(entityID)
	require.NoError(t, err)
	assert.Equal(t, vID, entity.ValidatorID)
}

func TestTransferFeeSplit(t *testing.T) {
	env := newTestLedger(t)
	operator := env.auth.operator
	collector1, collector2 := addr(1), addr(2)
	user := addr(3)
	pubKey := []byte("validator-pubkey-0001")

	entity1 := fundEntity(t, env, collector1, map[Address]*big.Int{user: units(32)})
	entity2 := fundEntity(t, env, collector2, map[Address]*big.Int{user: units(32)})
	vID, err := env.ledger.Register(operator, entity1, RegisterParams{PubKey: pubKey})
	require.NoError(t, err)

	// 0.034871228 units accrued at a 20% fee
	accrued := big.NewInt(34_871_228_000_000_000)
	require.NoError(t, env.ledger.Transfer(collector2, vID, entity2, TransferParams{AccruedReward: accrued}))

	debt, err := env.ledger.DebtOf(vID)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(6_974_245_600_000_000), debt.MaintainerDebt, "maintainer share floors at the fee")
	assert.Equal(t, big.NewInt(27_896_982_400_000_000), debt.UserDebt)
	// the split conserves the accrued reward exactly
	assert.Equal(t, 0, accrued.Cmp(new(big.Int).Add(debt.UserDebt, debt.MaintainerDebt)))

	rewards, err := env.ledger.RewardsOf(entity1)
	require.NoError(t, err)
	require.Len(t, rewards, 1)
	assert.Equal(t, big.NewInt(27_896_982_400_000_000), rewards[0].Amount)
	assert.Equal(t, uint64(1), rewards[0].TransferSeq)
	assert.Equal(t, 0, rewards[0].Collected.Cmp(units(32)))

	v, err := env.ledger.GetValidator(vID)
	require.NoError(t, err)
	assert.Equal(t, entity2, v.CurrentEntityID)
	assert.Equal(t, uint64(1), v.Transfers)
}

func TestTransferValidation(t *testing.T) {
	env := newTestLedger(t)
	operator := env.auth.operator
	admin := env.auth.admin
	collector1, collector2 := addr(1), addr(2)
	user := addr(3)
	pubKey := []byte("validator-pubkey-0001")

	entity1 := fundEntity(t, env, collector1, map[Address]*big.Int{user: units(32)})
	entity2 := fundEntity(t, env, collector2, map[Address]*big.Int{user: units(32)})
	vID, err := env.ledger.Register(operator, entity1, RegisterParams{PubKey: pubKey})
	require.NoError(t, err)

	reward := units(1)

	err = env.ledger.Transfer(collector2, vID, EntityID(collector2, 9), TransferParams{AccruedReward: reward})
	assert.ErrorIs(t, err, ErrUnknownEntity)

	err = env.ledger.Transfer(addr(7), vID, entity2, TransferParams{AccruedReward: reward})
	assert.ErrorIs(t, err, ErrPermissionDenied)

	err = env.ledger.Transfer(collector2, ValidatorID([]byte("nope")), entity2, TransferParams{AccruedReward: reward})
	assert.ErrorIs(t, err, ErrUnknownValidator)

	openID, err := env.ledger.Deposit(collector2, KindPool, user, user, units(1))
	require.NoError(t, err)
	err = env.ledger.Transfer(collector2, vID, openID, TransferParams{AccruedReward: reward})
	assert.ErrorIs(t, err, ErrUnknownEntity)

	err = env.ledger.Transfer(collector2, vID, entity2, TransferParams{})
	assert.ErrorIs(t, err, ErrInvalidAmount)
	err = env.ledger.Transfer(collector2, vID, entity2, TransferParams{AccruedReward: units(-1)})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	err = env.ledger.Transfer(collector1, vID, entity1, TransferParams{AccruedReward: reward})
	assert.ErrorIs(t, err, ErrAlreadyAssigned)

	// pause blocks transfers until resumed
	require.NoError(t, env.ledger.SetTransfersPaused(admin, true))
	err = env.ledger.Transfer(collector2, vID, entity2, TransferParams{AccruedReward: reward})
	assert.ErrorIs(t, err, ErrTransfersPaused)
	assert.ErrorIs(t, env.ledger.SetTransfersPaused(user, false), ErrPermissionDenied)
	require.NoError(t, env.ledger.SetTransfersPaused(admin, false))

	require.NoError(t, env.ledger.Transfer(collector2, vID, entity2, TransferParams{AccruedReward: reward}))

	// the displaced entity's reward is captured once, ever
	err = env.ledger.Transfer(collector1, vID, entity1, TransferParams{AccruedReward: reward})
	assert.ErrorIs(t, err, ErrRewardCaptured)
}

func TestTransferDebtAccumulatesAndTermsRefresh(t *testing.T) {
	env := newTestLedger(t)
	operator := env.auth.operator
	user := addr(9)
	pubKey := []byte("validator-pubkey-0001")

	collectors := []Address{addr(1), addr(2), addr(3)}
	var entities []ID
	for _, c := range collectors {
		entities = append(entities, fundEntity(t, env, c, map[Address]*big.Int{user: units(32)}))
	}
	vID, err := env.ledger.Register(operator, entities[0], RegisterParams{PubKey: pubKey})
	require.NoError(t, err)

	// first transfer at 20%, refreshing the fee to 10%
	require.NoError(t, env.ledger.Transfer(collectors[1], vID, entities[1], TransferParams{
		AccruedReward:    units(10),
		NewMaintainerFee: 1000,
	}))
	// second transfer splits at the refreshed 10%
	require.NoError(t, env.ledger.Transfer(collectors[2], vID, entities[2], TransferParams{
		AccruedReward: units(10),
	}))

	debt, err := env.ledger.DebtOf(vID)
	require.NoError(t, err)
	assert.Equal(t, 0, debt.MaintainerDebt.Cmp(units(3)), "2 + 1 units of maintainer debt")
	assert.Equal(t, 0, debt.UserDebt.Cmp(units(17)), "8 + 9 units of user debt")

	v, err := env.ledger.GetValidator(vID)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), v.Terms.MaintainerFee)
	assert.Equal(t, uint64(2), v.Transfers)

	rewards, err := env.ledger.RewardsOf(entities[1])
	require.NoError(t, err)
	require.Len(t, rewards, 1)
	assert.Equal(t, uint64(2), rewards[0].TransferSeq)
}

func TestWithdraw(t *testing.T) {
	env := newTestLedger(t)
	ctx := context.Background()
	operator := env.auth.operator
	collector1, collector2 := addr(1), addr(2)
	user := addr(3)
	pubKey := []byte("validator-pubkey-0001")

	entity1 := fundEntity(t, env, collector1, map[Address]*big.Int{user: units(32)})
	entity2 := fundEntity(t, env, collector2, map[Address]*big.Int{user: units(32)})
	vID, err := env.ledger.Register(operator, entity1, RegisterParams{PubKey: pubKey})
	require.NoError(t, err)

	_, err = env.ledger.Withdraw(ctx, EntityID(collector1, 9), user, user)
	assert.ErrorIs(t, err, ErrUnknownEntity)
	_, err = env.ledger.Withdraw(ctx, entity1, addr(8), addr(8))
	assert.ErrorIs(t, err, ErrNoShare)

	accrued := big.NewInt(34_871_228_000_000_000)
	require.NoError(t, env.ledger.Transfer(collector2, vID, entity2, TransferParams{AccruedReward: accrued}))

	// wallet has not confirmed transfer 1 yet - only the principal pays out
	paid, err := env.ledger.Withdraw(ctx, entity1, user, user)
	require.NoError(t, err)
	assert.Equal(t, 0, paid.Cmp(units(32)))
	assert.Equal(t, 0, env.payer.payments[user].Cmp(units(32)))

	// nothing left until the reward becomes resolvable
	_, err = env.ledger.Withdraw(ctx, entity1, user, user)
	assert.ErrorIs(t, err, ErrNothingToWithdraw)

	env.wallets[vID] = 1

	// split claim: the reward pays out in a second withdrawal
	paid, err = env.ledger.Withdraw(ctx, entity1, user, user)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(27_896_982_400_000_000), paid)

	expectedTotal := new(big.Int).Add(units(32), big.NewInt(27_896_982_400_000_000))
	assert.Equal(t, 0, env.payer.payments[user].Cmp(expectedTotal))

	// fully settled - withdrawing again never pays twice
	_, err = env.ledger.Withdraw(ctx, entity1, user, user)
	assert.ErrorIs(t, err, ErrNothingToWithdraw)
}

func TestWithdrawProportionalShares(t *testing.T) {
	env := newTestLedger(t)
	ctx := context.Background()
	operator := env.auth.operator
	collector1, collector2 := addr(1), addr(2)
	alice, bob := addr(3), addr(4)
	pubKey := []byte("validator-pubkey-0001")

	entity1 := fundEntity(t, env, collector1, map[Address]*big.Int{
		alice: units(20),
		bob:   units(12),
	})
	entity2 := fundEntity(t, env, collector2, map[Address]*big.Int{alice: units(32)})
	vID, err := env.ledger.Register(operator, entity1, RegisterParams{PubKey: pubKey})
	require.NoError(t, err)

	accrued := big.NewInt(34_871_228_000_000_000)
	require.NoError(t, env.ledger.Transfer(collector2, vID, entity2, TransferParams{AccruedReward: accrued}))
	env.wallets[vID] = 1

	alicePaid, err := env.ledger.Withdraw(ctx, entity1, alice, alice)
	require.NoError(t, err)
	bobPaid, err := env.ledger.Withdraw(ctx, entity1, bob, bob)
	require.NoError(t, err)

	aliceReward := new(big.Int).Sub(alicePaid, units(20))
	bobReward := new(big.Int).Sub(bobPaid, units(12))
	assert.Equal(t, big.NewInt(17_435_614_000_000_000), aliceReward, "20/32 of the user share")
	assert.Equal(t, big.NewInt(10_461_368_400_000_000), bobReward, "12/32 of the user share")

	// payouts never exceed the captured user share
	userShare := big.NewInt(27_896_982_400_000_000)
	total := new(big.Int).Add(aliceReward, bobReward)
	assert.True(t, total.Cmp(userShare) <= 0)
}

func TestClaimableReward(t *testing.T) {
	env := newTestLedger(t)
	operator := env.auth.operator
	collector1, collector2 := addr(1), addr(2)
	user := addr(3)
	pubKey := []byte("validator-pubkey-0001")

	entity1 := fundEntity(t, env, collector1, map[Address]*big.Int{user: units(32)})
	entity2 := fundEntity(t, env, collector2, map[Address]*big.Int{user: units(32)})
	vID, err := env.ledger.Register(operator, entity1, RegisterParams{PubKey: pubKey})
	require.NoError(t, err)

	_, err = env.ledger.ClaimableReward(entity1, addr(8), addr(8))
	assert.ErrorIs(t, err, ErrNoShare)

	reward, err := env.ledger.ClaimableReward(entity1, user, user)
	require.NoError(t, err)
	assert.Equal(t, 0, reward.Sign())

	require.NoError(t, env.ledger.Transfer(collector2, vID, entity2, TransferParams{AccruedReward: units(10)}))

	// still pending while the wallet lifecycle lags behind
	reward, err = env.ledger.ClaimableReward(entity1, user, user)
	require.NoError(t, err)
	assert.Equal(t, 0, reward.Sign())

	env.wallets[vID] = 1
	reward, err = env.ledger.ClaimableReward(entity1, user, user)
	require.NoError(t, err)
	assert.Equal(t, 0, reward.Cmp(units(8)), "80% of 10 units at the 20% fee")
}
