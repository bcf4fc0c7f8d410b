package ledger

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"

	"go.etcd.io/bbolt"
)

var (
	bucketEntities   = []byte("entities")
	bucketContribs   = []byte("contributions")
	bucketValidators = []byte("validators")
	bucketDebts      = []byte("debts")
	bucketRewards    = []byte("rewards")
	bucketEvents     = []byte("events")
	bucketMeta       = []byte("meta")
)

var (
	metaPausedKey   = []byte("transfersPaused")
	metaEventSeqKey = []byte("eventSeq")
)

// Store wraps a bbolt database holding all ledger state. Every mutating
// operation runs as one Update transaction: bbolt serializes writers, which
// gives the single-writer, all-or-nothing, linearizable-per-key semantics the
// ledger requires without any locking of our own.
type Store struct {
	db *bbolt.DB
}

// OpenStore opens or creates the ledger database at dbPath, creating the
// parent directory if needed.
func OpenStore(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("ledger: create directory: %w", err)
	}
	db, err := bbolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("ledger: open db: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{
			bucketEntities, bucketContribs, bucketValidators,
			bucketDebts, bucketRewards, bucketEvents, bucketMeta,
		} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("ledger: create bucket %q: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

func encodeGob(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeGob(data []byte, v any) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}

// --- entities ---

func getEntity(tx *bbolt.Tx, id ID) (*Entity, error) {
	data := tx.Bucket(bucketEntities).Get(id[:])
	if data == nil {
		return nil, nil
	}
	var e Entity
	if err := decodeGob(data, &e); err != nil {
		return nil, fmt.Errorf("ledger: decode entity: %w", err)
	}
	return &e, nil
}

func putEntity(tx *bbolt.Tx, e *Entity) error {
	data, err := encodeGob(e)
	if err != nil {
		return fmt.Errorf("ledger: encode entity: %w", err)
	}
	return tx.Bucket(bucketEntities).Put(e.ID[:], data)
}

func forEachEntity(tx *bbolt.Tx, fn func(*Entity) error) error {
	return tx.Bucket(bucketEntities).ForEach(func(k, v []byte) error {
		var e Entity
		if err := decodeGob(v, &e); err != nil {
			return fmt.Errorf("ledger: decode entity in scan: %w", err)
		}
		return fn(&e)
	})
}

// --- contributions ---

func getContribution(tx *bbolt.Tx, entityID ID, sender, recipient Address) (*Contribution, error) {
	data := tx.Bucket(bucketContribs).Get(contributionKey(entityID, sender, recipient))
	if data == nil {
		return nil, nil
	}
	var c Contribution
	if err := decodeGob(data, &c); err != nil {
		return nil, fmt.Errorf("ledger: decode contribution: %w", err)
	}
	return &c, nil
}

func putContribution(tx *bbolt.Tx, c *Contribution) error {
	data, err := encodeGob(c)
	if err != nil {
		return fmt.Errorf("ledger: encode contribution: %w", err)
	}
	return tx.Bucket(bucketContribs).Put(contributionKey(c.EntityID, c.Sender, c.Recipient), data)
}

func deleteContribution(tx *bbolt.Tx, c *Contribution) error {
	return tx.Bucket(bucketContribs).Delete(contributionKey(c.EntityID, c.Sender, c.Recipient))
}

func forEachContribution(tx *bbolt.Tx, entityID ID, fn func(*Contribution) error) error {
	c := tx.Bucket(bucketContribs).Cursor()
	for k, v := c.Seek(entityID[:]); k != nil && bytes.HasPrefix(k, entityID[:]); k, v = c.Next() {
		var contrib Contribution
		if err := decodeGob(v, &contrib); err != nil {
			return fmt.Errorf("ledger: decode contribution in scan: %w", err)
		}
		if err := fn(&contrib); err != nil {
			return err
		}
	}
	return nil
}

// --- validators ---

func getValidator(tx *bbolt.Tx, id ID) (*Validator, error) {
	data := tx.Bucket(bucketValidators).Get(id[:])
	if data == nil {
		return nil, nil
	}
	var v Validator
	if err := decodeGob(data, &v); err != nil {
		return nil, fmt.Errorf("ledger: decode validator: %w", err)
	}
	return &v, nil
}

func putValidator(tx *bbolt.Tx, v *Validator) error {
	data, err := encodeGob(v)
	if err != nil {
		return fmt.Errorf("ledger: encode validator: %w", err)
	}
	return tx.Bucket(bucketValidators).Put(v.ID[:], data)
}

func forEachValidator(tx *bbolt.Tx, fn func(*Validator) error) error {
	return tx.Bucket(bucketValidators).ForEach(func(k, v []byte) error {
		var val Validator
		if err := decodeGob(v, &val); err != nil {
			return fmt.Errorf("ledger: decode validator in scan: %w", err)
		}
		return fn(&val)
	})
}

// --- debts ---

func getDebt(tx *bbolt.Tx, validatorID ID) (*ValidatorDebt, error) {
	data := tx.Bucket(bucketDebts).Get(validatorID[:])
	if data == nil {
		return nil, nil
	}
	var d ValidatorDebt
	if err := decodeGob(data, &d); err != nil {
		return nil, fmt.Errorf("ledger: decode debt: %w", err)
	}
	return &d, nil
}

func putDebt(tx *bbolt.Tx, d *ValidatorDebt) error {
	data, err := encodeGob(d)
	if err != nil {
		return fmt.Errorf("ledger: encode debt: %w", err)
	}
	return tx.Bucket(bucketDebts).Put(d.ValidatorID[:], data)
}

// --- entity rewards ---

func getReward(tx *bbolt.Tx, entityID, validatorID ID) (*EntityReward, error) {
	data := tx.Bucket(bucketRewards).Get(rewardKey(entityID, validatorID))
	if data == nil {
		return nil, nil
	}
	var r EntityReward
	if err := decodeGob(data, &r); err != nil {
		return nil, fmt.Errorf("ledger: decode reward: %w", err)
	}
	return &r, nil
}

func putReward(tx *bbolt.Tx, r *EntityReward) error {
	data, err := encodeGob(r)
	if err != nil {
		return fmt.Errorf("ledger: encode reward: %w", err)
	}
	return tx.Bucket(bucketRewards).Put(rewardKey(r.EntityID, r.ValidatorID), data)
}

func forEachReward(tx *bbolt.Tx, entityID ID, fn func(*EntityReward) error) error {
	c := tx.Bucket(bucketRewards).Cursor()
	for k, v := c.Seek(entityID[:]); k != nil && bytes.HasPrefix(k, entityID[:]); k, v = c.Next() {
		var r EntityReward
		if err := decodeGob(v, &r); err != nil {
			return fmt.Errorf("ledger: decode reward in scan: %w", err)
		}
		if err := fn(&r); err != nil {
			return err
		}
	}
	return nil
}

// --- meta ---

func getPaused(tx *bbolt.Tx) bool {
	data := tx.Bucket(bucketMeta).Get(metaPausedKey)
	return len(data) == 1 && data[0] == 1
}

func setPaused(tx *bbolt.Tx, paused bool) error {
	val := []byte{0}
	if paused {
		val[0] = 1
	}
	return tx.Bucket(bucketMeta).Put(metaPausedKey, val)
}

func collectorSeqKey(collector Address, kind CollectorKind) []byte {
	return append([]byte{'s', byte(kind)}, collector[:]...)
}

func collectorOpenKey(collector Address, kind CollectorKind) []byte {
	return append([]byte{'o', byte(kind)}, collector[:]...)
}

func getCollectorSeq(tx *bbolt.Tx, collector Address, kind CollectorKind) uint64 {
	data := tx.Bucket(bucketMeta).Get(collectorSeqKey(collector, kind))
	if len(data) != 8 {
		return 0
	}
	return beUint64(data)
}

func setCollectorSeq(tx *bbolt.Tx, collector Address, kind CollectorKind, seq uint64) error {
	return tx.Bucket(bucketMeta).Put(collectorSeqKey(collector, kind), beBytes(seq))
}

// getOpenEntity returns the collector's current unfinalized entity id, if any.
func getOpenEntity(tx *bbolt.Tx, collector Address, kind CollectorKind) (ID, bool) {
	data := tx.Bucket(bucketMeta).Get(collectorOpenKey(collector, kind))
	if len(data) != len(ID{}) {
		return ZeroID, false
	}
	var id ID
	copy(id[:], data)
	return id, true
}

func setOpenEntity(tx *bbolt.Tx, collector Address, kind CollectorKind, id ID) error {
	return tx.Bucket(bucketMeta).Put(collectorOpenKey(collector, kind), id[:])
}

func clearOpenEntity(tx *bbolt.Tx, collector Address, kind CollectorKind) error {
	return tx.Bucket(bucketMeta).Delete(collectorOpenKey(collector, kind))
}
