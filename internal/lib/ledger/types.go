package ledger

import (
	"context"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
)

// Address is a 20-byte account identifier, rendered as 0x-prefixed hex.
type Address [20]byte

var ZeroAddress Address

func DecodeAddress(s string) (Address, error) {
	var addr Address
	raw := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	b, err := hex.DecodeString(raw)
	if err != nil {
		return addr, fmt.Errorf("invalid address %q: %w", s, err)
	}
	if len(b) != len(addr) {
		return addr, fmt.Errorf("invalid address %q: must be %d bytes", s, len(addr))
	}
	copy(addr[:], b)
	return addr, nil
}

func (a Address) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Address) UnmarshalText(text []byte) error {
	decoded, err := DecodeAddress(string(text))
	if err != nil {
		return err
	}
	*a = decoded
	return nil
}

// ID is a 32-byte derived identifier (entity ids, validator ids).
type ID [32]byte

var ZeroID ID

func DecodeID(s string) (ID, error) {
	var id ID
	raw := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	b, err := hex.DecodeString(raw)
	if err != nil {
		return id, fmt.Errorf("invalid id %q: %w", s, err)
	}
	if len(b) != len(id) {
		return id, fmt.Errorf("invalid id %q: must be %d bytes", s, len(id))
	}
	copy(id[:], b)
	return id, nil
}

func (id ID) String() string {
	return "0x" + hex.EncodeToString(id[:])
}

// Short returns an abbreviated form for table display.
func (id ID) Short() string {
	return "0x" + hex.EncodeToString(id[:4]) + ".." + hex.EncodeToString(id[28:])
}

func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *ID) UnmarshalText(text []byte) error {
	decoded, err := DecodeID(string(text))
	if err != nil {
		return err
	}
	*id = decoded
	return nil
}

// CollectorKind distinguishes the funding-pool flavors a collector can run.
type CollectorKind uint8

const (
	KindPool CollectorKind = iota + 1
	KindIndividual
	KindGroup
)

func (k CollectorKind) String() string {
	switch k {
	case KindPool:
		return "pool"
	case KindIndividual:
		return "individual"
	case KindGroup:
		return "group"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

func KindFromString(s string) (CollectorKind, error) {
	switch strings.ToLower(s) {
	case "pool":
		return KindPool, nil
	case "individual":
		return KindIndividual, nil
	case "group":
		return KindGroup, nil
	}
	return 0, fmt.Errorf("unknown collector kind:%s", s)
}

// Entity is one collector funding slot. Immutable once finalized - the
// validator created from its funds may move elsewhere but the entity record
// itself never changes again.
type Entity struct {
	ID        ID
	Collector Address
	Kind      CollectorKind
	// Seq is the per-collector sequence number the id was derived from
	Seq       uint64
	Collected *big.Int
	Finalized bool
	// ValidatorID of the validator registered from this entity's funds
	// (zero until registration)
	ValidatorID ID
}

// Contribution tracks one (entity, sender, recipient) deposit position.
type Contribution struct {
	EntityID  ID
	Sender    Address
	Recipient Address
	// Amount is the principal still withdrawable - zeroed on withdrawal
	Amount *big.Int
	// Deposited is frozen at finalization and is the basis for the
	// depositor's proportional reward share
	Deposited *big.Int
	// RewardPaid is the reward already paid out to this position
	RewardPaid *big.Int
}

// ValidatorTerms are snapshotted at registration. Only the maintainer fee and
// durations may later be refreshed by a transfer.
type ValidatorTerms struct {
	DepositAmount         *big.Int
	MaintainerFee         uint64 // basis points of FeeDenominator
	StakingDuration       uint64 // days
	MinStakingDuration    uint64 // days
	WithdrawalCredentials []byte
}

type Validator struct {
	ID     ID
	PubKey []byte
	Terms  ValidatorTerms
	// CurrentEntityID is the entity presently entitled to this validator's
	// future rewards - mutated only by Transfer
	CurrentEntityID ID
	// Transfers counts completed transfers; it is also the TransferSeq of the
	// newest EntityReward captured on this validator
	Transfers uint64
}

// ValidatorDebt accumulates across repeated transfers of the same validator.
type ValidatorDebt struct {
	ValidatorID    ID
	UserDebt       *big.Int
	MaintainerDebt *big.Int
}

// EntityReward is the reward captured for a displaced entity at transfer
// time. Immutable once written for the (entity, validator) pair.
type EntityReward struct {
	EntityID    ID
	ValidatorID ID
	Amount      *big.Int
	// TransferSeq is the 1-based ordinal of the transfer that captured this
	// reward; withdrawal requires the wallet lifecycle to have confirmed
	// funds up to at least this ordinal
	TransferSeq uint64
	// Collected is the entity's collected amount when the reward was
	// captured - the denominator for proportional shares
	Collected *big.Int
}

// Settings are the configuration constants consumed from the local config.
type Settings struct {
	UserDepositMinUnit     *big.Int `json:"userDepositMinUnit"`
	ValidatorDepositAmount *big.Int `json:"validatorDepositAmount"`
	MaintainerFee          uint64   `json:"maintainerFee"` // basis points
	WithdrawalCredentials  string   `json:"withdrawalCredentials"`
	StakingDuration        uint64   `json:"stakingDuration"`    // days
	MinStakingDuration     uint64   `json:"minStakingDuration"` // days
}

func DefaultSettings() Settings {
	return Settings{
		UserDepositMinUnit:     new(big.Int).Set(UnitScale), // 1 unit
		ValidatorDepositAmount: new(big.Int).Mul(big.NewInt(32), UnitScale),
		MaintainerFee:          2000,
		StakingDuration:        730,
		MinStakingDuration:     180,
	}
}

// Capability is a coarse permission checked through the injected Authorizer.
type Capability uint8

const (
	CapAdmin Capability = iota + 1
	CapOperator
	CapWalletManager
)

func (c Capability) String() string {
	switch c {
	case CapAdmin:
		return "admin"
	case CapOperator:
		return "operator"
	case CapWalletManager:
		return "wallet-manager"
	}
	return fmt.Sprintf("capability(%d)", uint8(c))
}

// Authorizer is the external access-control collaborator. The ledger never
// stores roles itself.
type Authorizer interface {
	Authorize(caller Address, capability Capability) bool
	// AuthorizeCollector reports whether caller may act for the given
	// collector address (transfer registration, finalization).
	AuthorizeCollector(caller Address, collector Address) bool
}

// Wallets is the wallet-lifecycle collaborator. ConfirmedSeq returns how many
// of a validator's transfers have their backing funds confirmed available;
// confirmations are strictly monotone so older debts always resolve first.
type Wallets interface {
	ConfirmedSeq(validatorID ID) (uint64, error)
}

// Payer moves value to a recipient. It is invoked only after all ledger state
// for the claim has been zeroed and committed.
type Payer interface {
	Pay(ctx context.Context, to Address, amount *big.Int) error
}
