package ledger

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"go.etcd.io/bbolt"

	"github.com/unitstake/poolmgr/internal/lib/misc"
)

// RegisterParams carries the operator-supplied fields for a new validator.
// Zero-valued durations and a nil DepositAmount fall back to the ledger
// settings and the entity's collected amount.
type RegisterParams struct {
	PubKey                []byte
	WithdrawalCredentials []byte
	DepositAmount         *big.Int
	MaintainerFee         uint64
	StakingDuration       uint64
	MinStakingDuration    uint64
}

// Register creates a validator backed by a finalized entity. Operator-only.
// The validator id is derived from the public key, so registering the same
// key twice fails with ErrValidatorAlreadyExists.
func (l *Ledger) Register(actingParty Address, entityID ID, params RegisterParams) (ID, error) {
	if !l.auth.Authorize(actingParty, CapOperator) {
		return ZeroID, ErrPermissionDenied
	}
	if len(params.PubKey) == 0 {
		return ZeroID, ErrInvalidPubKey
	}
	vID := ValidatorID(params.PubKey)
	var feeUsed uint64
	err := l.store.db.Update(func(tx *bbolt.Tx) error {
		entity, err := getEntity(tx, entityID)
		if err != nil {
			return err
		}
		if entity == nil {
			return ErrUnknownEntity
		}
		if !entity.Finalized {
			return ErrEntityNotFinalized
		}
		existing, err := getValidator(tx, vID)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrValidatorAlreadyExists
		}
		terms := ValidatorTerms{
			DepositAmount:         params.DepositAmount,
			MaintainerFee:         params.MaintainerFee,
			StakingDuration:       params.StakingDuration,
			MinStakingDuration:    params.MinStakingDuration,
			WithdrawalCredentials: params.WithdrawalCredentials,
		}
		if terms.DepositAmount == nil {
			terms.DepositAmount = new(big.Int).Set(entity.Collected)
		}
		if terms.MaintainerFee == 0 {
			terms.MaintainerFee = l.settings.MaintainerFee
		}
		if terms.StakingDuration == 0 {
			terms.StakingDuration = l.settings.StakingDuration
		}
		if terms.MinStakingDuration == 0 {
			terms.MinStakingDuration = l.settings.MinStakingDuration
		}
		if len(terms.WithdrawalCredentials) == 0 && l.settings.WithdrawalCredentials != "" {
			wc, err := hex.DecodeString(strings.TrimPrefix(l.settings.WithdrawalCredentials, "0x"))
			if err != nil {
				return fmt.Errorf("ledger: invalid withdrawal credentials in settings: %w", err)
			}
			terms.WithdrawalCredentials = wc
		}
		validator := &Validator{
			ID:              vID,
			PubKey:          params.PubKey,
			Terms:           terms,
			CurrentEntityID: entityID,
		}
		if err := putValidator(tx, validator); err != nil {
			return err
		}
		entity.ValidatorID = vID
		if err := putEntity(tx, entity); err != nil {
			return err
		}
		feeUsed = terms.MaintainerFee
		return journal(tx, EvValidatorRegistered, ValidatorRegistered{
			PubKey:                hex.EncodeToString(params.PubKey),
			EntityID:              entityID,
			WithdrawalCredentials: hex.EncodeToString(terms.WithdrawalCredentials),
			StakingDuration:       terms.StakingDuration,
			DepositAmount:         terms.DepositAmount,
			MaintainerFee:         terms.MaintainerFee,
			MinStakingDuration:    terms.MinStakingDuration,
		})
	})
	if err != nil {
		return ZeroID, err
	}
	misc.Infof(l.Logger, "validator %s registered from entity %s, fee %d bps",
		vID.Short(), entityID.Short(), feeUsed)
	return vID, nil
}

// GetValidator returns the validator or nil if unknown.
func (l *Ledger) GetValidator(validatorID ID) (*Validator, error) {
	var validator *Validator
	err := l.store.db.View(func(tx *bbolt.Tx) error {
		var err error
		validator, err = getValidator(tx, validatorID)
		return err
	})
	return validator, err
}

// Validators returns all registered validators, unordered.
func (l *Ledger) Validators() ([]*Validator, error) {
	var validators []*Validator
	err := l.store.db.View(func(tx *bbolt.Tx) error {
		return forEachValidator(tx, func(v *Validator) error {
			validators = append(validators, v)
			return nil
		})
	})
	return validators, err
}

// DebtOf returns the accumulated transfer debt for a validator. A validator
// with no transfers yet gets a zeroed record.
func (l *Ledger) DebtOf(validatorID ID) (*ValidatorDebt, error) {
	var debt *ValidatorDebt
	err := l.store.db.View(func(tx *bbolt.Tx) error {
		var err error
		debt, err = getDebt(tx, validatorID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if debt == nil {
		debt = &ValidatorDebt{
			ValidatorID:    validatorID,
			UserDebt:       new(big.Int),
			MaintainerDebt: new(big.Int),
		}
	}
	return debt, nil
}

// RewardsOf returns the immutable reward records captured against one entity.
func (l *Ledger) RewardsOf(entityID ID) ([]*EntityReward, error) {
	var rewards []*EntityReward
	err := l.store.db.View(func(tx *bbolt.Tx) error {
		return forEachReward(tx, entityID, func(r *EntityReward) error {
			rewards = append(rewards, r)
			return nil
		})
	})
	return rewards, err
}
