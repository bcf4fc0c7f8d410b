package ledger

import (
	"log/slog"
	"math/big"

	"go.etcd.io/bbolt"

	"github.com/unitstake/poolmgr/internal/lib/misc"
)

// Ledger is the settlement ledger over its store plus the injected external
// collaborators. All mutating operations are serialized by the store's write
// transaction - callers never need additional locking, but every payout still
// zeroes claimable state before value leaves the ledger so a re-entering
// recipient observes already-settled state.
type Ledger struct {
	Logger *slog.Logger

	store    *Store
	settings Settings
	auth     Authorizer
	wallets  Wallets
	payer    Payer
}

func New(store *Store, settings Settings, auth Authorizer, wallets Wallets, payer Payer, logger *slog.Logger) *Ledger {
	l := &Ledger{
		Logger:   logger,
		store:    store,
		settings: settings,
		auth:     auth,
		wallets:  wallets,
		payer:    payer,
	}
	misc.Infof(logger, "ledger initialized, staking unit:%s, maintainer fee:%d bps",
		FormattedUnitAmount(settings.ValidatorDepositAmount), settings.MaintainerFee)
	return l
}

func (l *Ledger) Settings() Settings {
	return l.settings
}

// TransfersPaused reports the persisted process-wide pause flag.
func (l *Ledger) TransfersPaused() (bool, error) {
	var paused bool
	err := l.store.db.View(func(tx *bbolt.Tx) error {
		paused = getPaused(tx)
		return nil
	})
	return paused, err
}

// Snapshot is an aggregate view over the whole ledger, consumed by the daemon
// metrics refresh and the CLI.
type Snapshot struct {
	Entities        int
	FinalizedCount  int
	Validators      int
	Collected       *big.Int
	UserDebt        *big.Int
	MaintainerDebt  *big.Int
	TransfersPaused bool
}

func (l *Ledger) TakeSnapshot() (*Snapshot, error) {
	snap := &Snapshot{
		Collected:      new(big.Int),
		UserDebt:       new(big.Int),
		MaintainerDebt: new(big.Int),
	}
	err := l.store.db.View(func(tx *bbolt.Tx) error {
		snap.TransfersPaused = getPaused(tx)
		if err := forEachEntity(tx, func(e *Entity) error {
			snap.Entities++
			if e.Finalized {
				snap.FinalizedCount++
			}
			snap.Collected.Add(snap.Collected, e.Collected)
			return nil
		}); err != nil {
			return err
		}
		return forEachValidator(tx, func(v *Validator) error {
			snap.Validators++
			debt, err := getDebt(tx, v.ID)
			if err != nil {
				return err
			}
			if debt != nil {
				snap.UserDebt.Add(snap.UserDebt, debt.UserDebt)
				snap.MaintainerDebt.Add(snap.MaintainerDebt, debt.MaintainerDebt)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// RefreshMetrics pushes the current snapshot into the prometheus gauges.
func (l *Ledger) RefreshMetrics() error {
	snap, err := l.TakeSnapshot()
	if err != nil {
		return err
	}
	promEntityCount.Set(float64(snap.Entities))
	promCollectedTotal.Set(AmountInUnits(snap.Collected))
	promUserDebtTotal.Set(AmountInUnits(snap.UserDebt))
	promMaintainerDebtTotal.Set(AmountInUnits(snap.MaintainerDebt))
	return nil
}
