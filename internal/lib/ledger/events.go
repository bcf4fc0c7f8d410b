package ledger

import (
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"go.etcd.io/bbolt"
)

// Event kinds as journaled and logged.
const (
	EvDepositAdded         = "DepositAdded"
	EvDepositCanceled      = "DepositCanceled"
	EvValidatorRegistered  = "ValidatorRegistered"
	EvValidatorTransferred = "ValidatorTransferred"
	EvUserWithdrawn        = "UserWithdrawn"
	EvTransfersPaused      = "TransfersPaused"
)

type DepositAdded struct {
	Collector Address  `json:"collector"`
	EntityID  ID       `json:"entityId"`
	Sender    Address  `json:"sender"`
	Recipient Address  `json:"recipient"`
	Amount    *big.Int `json:"amount"`
}

type DepositCanceled struct {
	Collector Address  `json:"collector"`
	EntityID  ID       `json:"entityId"`
	Sender    Address  `json:"sender"`
	Recipient Address  `json:"recipient"`
	Amount    *big.Int `json:"amount"`
}

type ValidatorRegistered struct {
	PubKey                string   `json:"pubKey"`
	EntityID              ID       `json:"entityId"`
	WithdrawalCredentials string   `json:"withdrawalCredentials"`
	StakingDuration       uint64   `json:"stakingDuration"`
	DepositAmount         *big.Int `json:"depositAmount"`
	MaintainerFee         uint64   `json:"maintainerFee"`
	MinStakingDuration    uint64   `json:"minStakingDuration"`
}

type ValidatorTransferred struct {
	ValidatorID           ID       `json:"validatorId"`
	PrevEntityID          ID       `json:"prevEntityId"`
	NewEntityID           ID       `json:"newEntityId"`
	UserDebt              *big.Int `json:"userDebt"`
	MaintainerDebt        *big.Int `json:"maintainerDebt"`
	NewMaintainerFee      uint64   `json:"newMaintainerFee"`
	NewMinStakingDuration uint64   `json:"newMinStakingDuration"`
	NewStakingDuration    uint64   `json:"newStakingDuration"`
}

type UserWithdrawn struct {
	CollectorEntityID ID       `json:"collectorEntityId"`
	Sender            Address  `json:"sender"`
	Withdrawer        Address  `json:"withdrawer"`
	DepositAmount     *big.Int `json:"depositAmount"`
	RewardAmount      *big.Int `json:"rewardAmount"`
}

type TransfersPausedEvent struct {
	IsPaused bool    `json:"isPaused"`
	Issuer   Address `json:"issuer"`
}

// EventRecord is one journaled event. The journal write happens inside the
// same bbolt transaction as the state mutation it describes, so an event
// exists exactly when its mutation committed.
type EventRecord struct {
	Seq  uint64          `json:"seq"`
	At   time.Time       `json:"at"`
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

func journal(tx *bbolt.Tx, kind string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("ledger: encode %s event: %w", kind, err)
	}
	meta := tx.Bucket(bucketMeta)
	var seq uint64
	if raw := meta.Get(metaEventSeqKey); len(raw) == 8 {
		seq = beUint64(raw)
	}
	seq++
	if err := meta.Put(metaEventSeqKey, beBytes(seq)); err != nil {
		return err
	}
	rec := EventRecord{Seq: seq, At: time.Now().UTC(), Kind: kind, Data: data}
	enc, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("ledger: encode event record: %w", err)
	}
	return tx.Bucket(bucketEvents).Put(beBytes(seq), enc)
}

// Events returns journaled events with seq > afterSeq, oldest first, up to
// limit (0 means no limit).
func (l *Ledger) Events(afterSeq uint64, limit int) ([]EventRecord, error) {
	var events []EventRecord
	err := l.store.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketEvents).Cursor()
		for k, v := c.Seek(beBytes(afterSeq + 1)); k != nil; k, v = c.Next() {
			var rec EventRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("ledger: decode event record: %w", err)
			}
			events = append(events, rec)
			if limit > 0 && len(events) >= limit {
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}
