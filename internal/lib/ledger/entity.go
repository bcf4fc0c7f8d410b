package ledger

import (
	"math/big"

	"go.etcd.io/bbolt"

	"github.com/unitstake/poolmgr/internal/lib/misc"
)

func (l *Ledger) validDepositAmount(amount *big.Int) bool {
	if amount == nil || amount.Sign() <= 0 {
		return false
	}
	rem := new(big.Int).Mod(amount, l.settings.UserDepositMinUnit)
	return rem.Sign() == 0
}

// Deposit credits amount to the collector's currently open funding slot,
// creating a fresh entity (next sequence number) if none is open. The entity
// id is derived from the ledger's own sequence state and returned - callers
// never supply sequence numbers.
func (l *Ledger) Deposit(collector Address, kind CollectorKind, sender, recipient Address, amount *big.Int) (ID, error) {
	if !l.validDepositAmount(amount) {
		return ZeroID, ErrInvalidAmount
	}
	var entityID ID
	err := l.store.db.Update(func(tx *bbolt.Tx) error {
		var entity *Entity
		if openID, ok := getOpenEntity(tx, collector, kind); ok {
			var err error
			entity, err = getEntity(tx, openID)
			if err != nil {
				return err
			}
		}
		if entity == nil || entity.Finalized {
			seq := getCollectorSeq(tx, collector, kind) + 1
			entity = &Entity{
				ID:        EntityID(collector, seq),
				Collector: collector,
				Kind:      kind,
				Seq:       seq,
				Collected: new(big.Int),
			}
			if err := setCollectorSeq(tx, collector, kind, seq); err != nil {
				return err
			}
			if err := setOpenEntity(tx, collector, kind, entity.ID); err != nil {
				return err
			}
			misc.Debugf(l.Logger, "opened entity %s for collector %s seq %d", entity.ID, collector, seq)
		}
		entityID = entity.ID
		return l.credit(tx, entity, sender, recipient, amount)
	})
	if err != nil {
		return ZeroID, err
	}
	return entityID, nil
}

// DepositTo credits a caller-pinned entity. Unlike Deposit it never opens a
// new slot: an unknown id fails, and a finalized one fails with
// ErrEntityFinalized.
func (l *Ledger) DepositTo(entityID ID, sender, recipient Address, amount *big.Int) error {
	if !l.validDepositAmount(amount) {
		return ErrInvalidAmount
	}
	return l.store.db.Update(func(tx *bbolt.Tx) error {
		entity, err := getEntity(tx, entityID)
		if err != nil {
			return err
		}
		if entity == nil {
			return ErrUnknownEntity
		}
		if entity.Finalized {
			return ErrEntityFinalized
		}
		return l.credit(tx, entity, sender, recipient, amount)
	})
}

func (l *Ledger) credit(tx *bbolt.Tx, entity *Entity, sender, recipient Address, amount *big.Int) error {
	newCollected := new(big.Int).Add(entity.Collected, amount)
	if newCollected.Cmp(l.settings.ValidatorDepositAmount) > 0 {
		return ErrQuotaExceeded
	}
	contrib, err := getContribution(tx, entity.ID, sender, recipient)
	if err != nil {
		return err
	}
	if contrib == nil {
		contrib = &Contribution{
			EntityID:   entity.ID,
			Sender:     sender,
			Recipient:  recipient,
			Amount:     new(big.Int),
			Deposited:  new(big.Int),
			RewardPaid: new(big.Int),
		}
	}
	contrib.Amount.Add(contrib.Amount, amount)
	contrib.Deposited.Add(contrib.Deposited, amount)
	entity.Collected = newCollected
	if err := putContribution(tx, contrib); err != nil {
		return err
	}
	if err := putEntity(tx, entity); err != nil {
		return err
	}
	if err := journal(tx, EvDepositAdded, DepositAdded{
		Collector: entity.Collector,
		EntityID:  entity.ID,
		Sender:    sender,
		Recipient: recipient,
		Amount:    amount,
	}); err != nil {
		return err
	}
	promDeposits.Inc()
	misc.Infof(l.Logger, "deposit of %s added to entity %s (collected %s of %s)",
		FormattedUnitAmount(amount), entity.ID.Short(),
		FormattedUnitAmount(entity.Collected), FormattedUnitAmount(l.settings.ValidatorDepositAmount))
	return nil
}

// Cancel removes amount from an unfinalized contribution.
func (l *Ledger) Cancel(entityID ID, sender, recipient Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	return l.store.db.Update(func(tx *bbolt.Tx) error {
		entity, err := getEntity(tx, entityID)
		if err != nil {
			return err
		}
		if entity == nil {
			return ErrUnknownEntity
		}
		if entity.Finalized {
			return ErrEntityFinalized
		}
		contrib, err := getContribution(tx, entityID, sender, recipient)
		if err != nil {
			return err
		}
		if contrib == nil || contrib.Amount.Cmp(amount) < 0 {
			return ErrInsufficientContribution
		}
		contrib.Amount.Sub(contrib.Amount, amount)
		contrib.Deposited.Sub(contrib.Deposited, amount)
		entity.Collected.Sub(entity.Collected, amount)
		if contrib.Deposited.Sign() == 0 {
			if err := deleteContribution(tx, contrib); err != nil {
				return err
			}
		} else if err := putContribution(tx, contrib); err != nil {
			return err
		}
		if err := putEntity(tx, entity); err != nil {
			return err
		}
		if err := journal(tx, EvDepositCanceled, DepositCanceled{
			Collector: entity.Collector,
			EntityID:  entity.ID,
			Sender:    sender,
			Recipient: recipient,
			Amount:    amount,
		}); err != nil {
			return err
		}
		promCancels.Inc()
		misc.Infof(l.Logger, "deposit of %s canceled on entity %s", FormattedUnitAmount(amount), entity.ID.Short())
		return nil
	})
}

// Finalize transitions an entity whose collected amount exactly equals the
// staking unit. Collector-only. A finalized entity is immutable and its
// collector's next deposit opens a fresh slot.
func (l *Ledger) Finalize(entityID ID, actingParty Address) error {
	return l.store.db.Update(func(tx *bbolt.Tx) error {
		entity, err := getEntity(tx, entityID)
		if err != nil {
			return err
		}
		if entity == nil {
			return ErrUnknownEntity
		}
		if !l.auth.AuthorizeCollector(actingParty, entity.Collector) {
			return ErrPermissionDenied
		}
		if entity.Finalized {
			return ErrEntityFinalized
		}
		if entity.Collected.Cmp(l.settings.ValidatorDepositAmount) != 0 {
			return ErrQuotaNotReached
		}
		entity.Finalized = true
		if err := putEntity(tx, entity); err != nil {
			return err
		}
		if err := clearOpenEntity(tx, entity.Collector, entity.Kind); err != nil {
			return err
		}
		misc.Infof(l.Logger, "entity %s finalized at %s - ready for validator registration",
			entity.ID.Short(), FormattedUnitAmount(entity.Collected))
		return nil
	})
}

// GetEntity returns the entity or nil if unknown.
func (l *Ledger) GetEntity(entityID ID) (*Entity, error) {
	var entity *Entity
	err := l.store.db.View(func(tx *bbolt.Tx) error {
		var err error
		entity, err = getEntity(tx, entityID)
		return err
	})
	return entity, err
}

// Entities returns all entities, unordered.
func (l *Ledger) Entities() ([]*Entity, error) {
	var entities []*Entity
	err := l.store.db.View(func(tx *bbolt.Tx) error {
		return forEachEntity(tx, func(e *Entity) error {
			entities = append(entities, e)
			return nil
		})
	})
	return entities, err
}

// ContributionOf returns the position for (entity, sender, recipient), nil if
// none recorded.
func (l *Ledger) ContributionOf(entityID ID, sender, recipient Address) (*Contribution, error) {
	var contrib *Contribution
	err := l.store.db.View(func(tx *bbolt.Tx) error {
		var err error
		contrib, err = getContribution(tx, entityID, sender, recipient)
		return err
	})
	return contrib, err
}

// Contributions returns all positions recorded against one entity.
func (l *Ledger) Contributions(entityID ID) ([]*Contribution, error) {
	var contribs []*Contribution
	err := l.store.db.View(func(tx *bbolt.Tx) error {
		return forEachContribution(tx, entityID, func(c *Contribution) error {
			contribs = append(contribs, c)
			return nil
		})
	})
	return contribs, err
}
