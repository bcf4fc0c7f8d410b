// Package wallet tracks the per-validator confirmation sequence fed by the
// external wallet lifecycle. Confirming transfer n means the funds backing
// every transfer up to and including n are verified available, which is what
// makes the corresponding entity rewards resolvable for withdrawal.
package wallet

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"go.etcd.io/bbolt"

	"github.com/unitstake/poolmgr/internal/lib/ledger"
)

var bucketConfirms = []byte("confirms")

// Store persists confirmation sequences in its own database file, separate
// from the ledger store so wallet reads never nest inside a ledger write
// transaction.
type Store struct {
	db *bbolt.DB
}

var _ ledger.Wallets = (*Store)(nil)

func OpenStore(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("wallet: create directory: %w", err)
	}
	db, err := bbolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("wallet: open db: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketConfirms)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("wallet: create bucket: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// ErrStaleConfirmation rejects confirmations that would move a validator's
// sequence backwards.
var ErrStaleConfirmation = fmt.Errorf("wallet: confirmation sequence must not decrease")

// Confirm records that the wallet lifecycle has verified funds through
// transfer ordinal seq for the validator. Sequences are strictly monotone;
// re-confirming the current value is a no-op.
func (s *Store) Confirm(validatorID ledger.ID, seq uint64) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketConfirms)
		if raw := b.Get(validatorID[:]); len(raw) == 8 {
			if cur := beUint64(raw); seq < cur {
				return fmt.Errorf("%w: have %d, got %d", ErrStaleConfirmation, cur, seq)
			}
		}
		return b.Put(validatorID[:], beBytes(seq))
	})
}

// ConfirmedSeq returns the highest confirmed transfer ordinal for the
// validator, zero if none.
func (s *Store) ConfirmedSeq(validatorID ledger.ID) (uint64, error) {
	var seq uint64
	err := s.db.View(func(tx *bbolt.Tx) error {
		if raw := tx.Bucket(bucketConfirms).Get(validatorID[:]); len(raw) == 8 {
			seq = beUint64(raw)
		}
		return nil
	})
	return seq, err
}

// All returns every validator's confirmed sequence.
func (s *Store) All() (map[ledger.ID]uint64, error) {
	out := map[ledger.ID]uint64{}
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketConfirms).ForEach(func(k, v []byte) error {
			if len(k) != len(ledger.ID{}) || len(v) != 8 {
				return nil
			}
			var id ledger.ID
			copy(id[:], k)
			out[id] = beUint64(v)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func beBytes(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

func beUint64(b []byte) uint64 {
	return binary.BigEndian.Uint64(b)
}
