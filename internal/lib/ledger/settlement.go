package ledger

import (
	"context"
	"math/big"

	"go.etcd.io/bbolt"

	"github.com/unitstake/poolmgr/internal/lib/misc"
)

// TransferParams carries the refreshed terms a validator adopts when it moves
// to a new collector entity. Zero values leave the corresponding term
// unchanged.
type TransferParams struct {
	// AccruedReward is the reward earned for the displaced entity since the
	// validator's previous settlement point
	AccruedReward         *big.Int
	NewMaintainerFee      uint64
	NewStakingDuration    uint64
	NewMinStakingDuration uint64
}

// Transfer settles a validator onto a new collector entity. The accrued
// reward is split by the validator's current maintainer fee, recorded as an
// immutable reward for the displaced entity plus accumulated debt on the
// validator, and only then do the validator's terms refresh.
func (l *Ledger) Transfer(actingParty Address, validatorID, newEntityID ID, params TransferParams) error {
	return l.store.db.Update(func(tx *bbolt.Tx) error {
		if getPaused(tx) {
			return ErrTransfersPaused
		}
		newEntity, err := getEntity(tx, newEntityID)
		if err != nil {
			return err
		}
		if newEntity == nil {
			return ErrUnknownEntity
		}
		if !l.auth.AuthorizeCollector(actingParty, newEntity.Collector) {
			return ErrPermissionDenied
		}
		validator, err := getValidator(tx, validatorID)
		if err != nil {
			return err
		}
		if validator == nil {
			return ErrUnknownValidator
		}
		// an unfinalized destination is not yet a registerable entity
		if !newEntity.Finalized {
			return ErrUnknownEntity
		}
		if params.AccruedReward == nil || params.AccruedReward.Sign() < 0 {
			return ErrInvalidAmount
		}
		prevEntityID := validator.CurrentEntityID
		if prevEntityID == newEntityID {
			return ErrAlreadyAssigned
		}
		existing, err := getReward(tx, prevEntityID, validatorID)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrRewardCaptured
		}
		prevEntity, err := getEntity(tx, prevEntityID)
		if err != nil {
			return err
		}
		if prevEntity == nil {
			return ErrUnknownEntity
		}

		// split at the fee in force before this transfer, floor division,
		// remainder to the users
		maintainerDelta := new(big.Int).Mul(params.AccruedReward, new(big.Int).SetUint64(validator.Terms.MaintainerFee))
		maintainerDelta.Quo(maintainerDelta, big.NewInt(FeeDenominator))
		userDelta := new(big.Int).Sub(params.AccruedReward, maintainerDelta)

		debt, err := getDebt(tx, validatorID)
		if err != nil {
			return err
		}
		if debt == nil {
			debt = &ValidatorDebt{
				ValidatorID:    validatorID,
				UserDebt:       new(big.Int),
				MaintainerDebt: new(big.Int),
			}
		}
		debt.UserDebt.Add(debt.UserDebt, userDelta)
		debt.MaintainerDebt.Add(debt.MaintainerDebt, maintainerDelta)
		if err := putDebt(tx, debt); err != nil {
			return err
		}

		reward := &EntityReward{
			EntityID:    prevEntityID,
			ValidatorID: validatorID,
			Amount:      userDelta,
			TransferSeq: validator.Transfers + 1,
			Collected:   new(big.Int).Set(prevEntity.Collected),
		}
		if err := putReward(tx, reward); err != nil {
			return err
		}

		validator.CurrentEntityID = newEntityID
		validator.Transfers++
		if params.NewMaintainerFee != 0 {
			validator.Terms.MaintainerFee = params.NewMaintainerFee
		}
		if params.NewStakingDuration != 0 {
			validator.Terms.StakingDuration = params.NewStakingDuration
		}
		if params.NewMinStakingDuration != 0 {
			validator.Terms.MinStakingDuration = params.NewMinStakingDuration
		}
		if err := putValidator(tx, validator); err != nil {
			return err
		}
		newEntity.ValidatorID = validatorID
		if err := putEntity(tx, newEntity); err != nil {
			return err
		}
		if err := journal(tx, EvValidatorTransferred, ValidatorTransferred{
			ValidatorID:           validatorID,
			PrevEntityID:          prevEntityID,
			NewEntityID:           newEntityID,
			UserDebt:              userDelta,
			MaintainerDebt:        maintainerDelta,
			NewMaintainerFee:      validator.Terms.MaintainerFee,
			NewMinStakingDuration: validator.Terms.MinStakingDuration,
			NewStakingDuration:    validator.Terms.StakingDuration,
		}); err != nil {
			return err
		}
		promTransfers.Inc()
		misc.Infof(l.Logger, "validator %s transferred %s -> %s, user debt +%s, maintainer debt +%s",
			validatorID.Short(), prevEntityID.Short(), newEntityID.Short(),
			FormattedUnitAmount(userDelta), FormattedUnitAmount(maintainerDelta))
		return nil
	})
}

// SetTransfersPaused flips the process-wide transfer pause flag. Admin-only.
func (l *Ledger) SetTransfersPaused(actingParty Address, paused bool) error {
	if !l.auth.Authorize(actingParty, CapAdmin) {
		return ErrPermissionDenied
	}
	err := l.store.db.Update(func(tx *bbolt.Tx) error {
		if err := setPaused(tx, paused); err != nil {
			return err
		}
		return journal(tx, EvTransfersPaused, TransfersPausedEvent{
			IsPaused: paused,
			Issuer:   actingParty,
		})
	})
	if err != nil {
		return err
	}
	misc.Warnf(l.Logger, "validator transfers paused:%v by %s", paused, actingParty)
	return nil
}

// claim is the decomposed withdrawable value for one position.
type claim struct {
	Principal *big.Int
	Reward    *big.Int
	// Entitled is the lifetime resolvable reward, principal excluded
	Entitled *big.Int
}

func (c *claim) total() *big.Int {
	return new(big.Int).Add(c.Principal, c.Reward)
}

// computeClaim derives the withdrawable principal and reward for one position
// inside a read or write transaction. confirmed maps validator id to the
// wallet-confirmed transfer ordinal; rewards whose TransferSeq exceeds it are
// not yet resolvable and stay pending.
func computeClaim(tx *bbolt.Tx, contrib *Contribution, confirmed map[ID]uint64) (*claim, error) {
	entitled := new(big.Int)
	err := forEachReward(tx, contrib.EntityID, func(r *EntityReward) error {
		if confirmed[r.ValidatorID] < r.TransferSeq {
			return nil
		}
		if r.Collected == nil || r.Collected.Sign() == 0 {
			return nil
		}
		share := new(big.Int).Mul(r.Amount, contrib.Deposited)
		share.Quo(share, r.Collected)
		entitled.Add(entitled, share)
		return nil
	})
	if err != nil {
		return nil, err
	}
	reward := new(big.Int).Sub(entitled, contrib.RewardPaid)
	if reward.Sign() < 0 {
		reward.SetInt64(0)
	}
	return &claim{
		Principal: new(big.Int).Set(contrib.Amount),
		Reward:    reward,
		Entitled:  entitled,
	}, nil
}

// confirmedSeqs queries the wallet collaborator for every validator that has
// captured a reward against the entity. Reads happen outside any ledger
// transaction; confirmations only ever advance, so a stale read can only
// understate what is resolvable.
func (l *Ledger) confirmedSeqs(entityID ID) (map[ID]uint64, error) {
	var validatorIDs []ID
	err := l.store.db.View(func(tx *bbolt.Tx) error {
		return forEachReward(tx, entityID, func(r *EntityReward) error {
			validatorIDs = append(validatorIDs, r.ValidatorID)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	confirmed := make(map[ID]uint64, len(validatorIDs))
	for _, vID := range validatorIDs {
		seq, err := l.wallets.ConfirmedSeq(vID)
		if err != nil {
			return nil, err
		}
		confirmed[vID] = seq
	}
	return confirmed, nil
}

// Withdraw pays out a position's principal plus its resolvable reward,
// exactly once. All claimable state is zeroed and committed before the payer
// is invoked, so a failed or re-entering payment can never double-spend -
// repeating the call after success fails with ErrNothingToWithdraw.
func (l *Ledger) Withdraw(ctx context.Context, entityID ID, sender, withdrawer Address) (*big.Int, error) {
	confirmed, err := l.confirmedSeqs(entityID)
	if err != nil {
		return nil, err
	}

	var paid *big.Int
	err = l.store.db.Update(func(tx *bbolt.Tx) error {
		entity, err := getEntity(tx, entityID)
		if err != nil {
			return err
		}
		if entity == nil || !entity.Finalized {
			return ErrUnknownEntity
		}
		contrib, err := getContribution(tx, entityID, sender, withdrawer)
		if err != nil {
			return err
		}
		if contrib == nil || contrib.Deposited.Sign() == 0 {
			return ErrNoShare
		}
		cl, err := computeClaim(tx, contrib, confirmed)
		if err != nil {
			return err
		}
		if cl.Principal.Sign() == 0 && cl.Reward.Sign() == 0 {
			return ErrNothingToWithdraw
		}
		contrib.Amount = new(big.Int)
		contrib.RewardPaid = new(big.Int).Set(cl.Entitled)
		if err := putContribution(tx, contrib); err != nil {
			return err
		}
		if err := journal(tx, EvUserWithdrawn, UserWithdrawn{
			CollectorEntityID: entityID,
			Sender:            sender,
			Withdrawer:        withdrawer,
			DepositAmount:     cl.Principal,
			RewardAmount:      cl.Reward,
		}); err != nil {
			return err
		}
		promWithdrawals.Inc()
		paid = cl.total()
		misc.Infof(l.Logger, "withdrawal from entity %s for %s: principal %s, reward %s",
			entityID.Short(), withdrawer, FormattedUnitAmount(cl.Principal), FormattedUnitAmount(cl.Reward))
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := l.payer.Pay(ctx, withdrawer, paid); err != nil {
		return nil, err
	}
	return paid, nil
}

// ClaimableReward reports the currently resolvable, not-yet-paid reward for a
// position without mutating anything.
func (l *Ledger) ClaimableReward(entityID ID, sender, recipient Address) (*big.Int, error) {
	confirmed, err := l.confirmedSeqs(entityID)
	if err != nil {
		return nil, err
	}
	reward := new(big.Int)
	err = l.store.db.View(func(tx *bbolt.Tx) error {
		contrib, err := getContribution(tx, entityID, sender, recipient)
		if err != nil {
			return err
		}
		if contrib == nil {
			return ErrNoShare
		}
		cl, err := computeClaim(tx, contrib, confirmed)
		if err != nil {
			return err
		}
		reward.Set(cl.Reward)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reward, nil
}
