package ledger

import (
	"encoding/binary"
	"math/big"

	"golang.org/x/crypto/sha3"
)

// FeeDenominator is the fixed denominator for maintainer fees expressed in
// basis points (2000 = 20%).
const FeeDenominator = 10_000

// UnitScale is the number of base units per staking unit (wei-style 18
// decimals). All ledger amounts are kept in base units.
var UnitScale = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

func keccak(parts ...[]byte) []byte {
	h := sha3.NewLegacyKeccak256()
	for _, p := range parts {
		h.Write(p)
	}
	return h.Sum(nil)
}

// EntityID derives the identifier for a collector's n-th funding slot. Pure
// function of its inputs - any node computing the same (collector, seq) gets
// the same id without a central counter.
func EntityID(collector Address, seq uint64) ID {
	ibytes := make([]byte, 8)
	binary.BigEndian.PutUint64(ibytes, seq)
	var id ID
	copy(id[:], keccak(collector[:], ibytes))
	return id
}

// ValidatorID derives the validator identifier from its public identity.
func ValidatorID(pubKey []byte) ID {
	var id ID
	copy(id[:], keccak(pubKey))
	return id
}

// contributionKey is hash(entityId, sender, recipient), prefixed with the
// entity id so per-entity positions are a single cursor prefix scan.
func contributionKey(entityID ID, sender, recipient Address) []byte {
	suffix := keccak(entityID[:], sender[:], recipient[:])
	return append(entityID[:], suffix...)
}

// rewardKey stores one immutable EntityReward per (entity, validator) pair.
func rewardKey(entityID, validatorID ID) []byte {
	return append(entityID[:], validatorID[:]...)
}

func beBytes(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

func beUint64(b []byte) uint64 {
	return binary.BigEndian.Uint64(b)
}
