package ledger

import (
	"errors"
)

// The first four errors carry the exact reason strings surfaced to users;
// callers compare with errors.Is and show Error() verbatim.
var (
	ErrPermissionDenied  = errors.New("Permission denied.")
	ErrUnknownEntity     = errors.New("Collector entity is not registered.")
	ErrNoShare           = errors.New("User does not have a share in this collector entity.")
	ErrNothingToWithdraw = errors.New("Nothing to withdraw.")
)

var (
	ErrInvalidAmount            = errors.New("amount must be a positive multiple of the minimum deposit unit")
	ErrEntityFinalized          = errors.New("collector entity already finalized")
	ErrQuotaExceeded            = errors.New("deposit would exceed the staking unit for this entity")
	ErrQuotaNotReached          = errors.New("collected amount has not reached the staking unit")
	ErrInsufficientContribution = errors.New("cancel amount exceeds the recorded contribution")
	ErrEntityNotFinalized       = errors.New("collector entity has not reached quota")
	ErrValidatorAlreadyExists   = errors.New("validator already registered for this public key")
	ErrUnknownValidator         = errors.New("no validator registered with this id")
	ErrAlreadyAssigned          = errors.New("validator is already assigned to this collector entity")
	ErrRewardCaptured           = errors.New("entity reward already captured for this entity/validator pair")
	ErrTransfersPaused          = errors.New("validator transfers are paused")
	ErrInvalidPubKey            = errors.New("validator public key must not be empty")
)
