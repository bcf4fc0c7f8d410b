// Package access implements the role table the ledger consults for
// capability checks. Roles come from the local config file and are static for
// the life of the process.
package access

import (
	"github.com/unitstake/poolmgr/internal/lib/ledger"
)

type RoleTable struct {
	admins         map[ledger.Address]bool
	operators      map[ledger.Address]bool
	walletManagers map[ledger.Address]bool
}

var _ ledger.Authorizer = (*RoleTable)(nil)

func NewRoleTable(admins, operators, walletManagers []ledger.Address) *RoleTable {
	t := &RoleTable{
		admins:         make(map[ledger.Address]bool, len(admins)),
		operators:      make(map[ledger.Address]bool, len(operators)),
		walletManagers: make(map[ledger.Address]bool, len(walletManagers)),
	}
	for _, a := range admins {
		t.admins[a] = true
	}
	for _, a := range operators {
		t.operators[a] = true
	}
	for _, a := range walletManagers {
		t.walletManagers[a] = true
	}
	return t
}

// Authorize checks a capability. Admins hold every capability.
func (t *RoleTable) Authorize(caller ledger.Address, capability ledger.Capability) bool {
	if caller == ledger.ZeroAddress {
		return false
	}
	if t.admins[caller] {
		return true
	}
	switch capability {
	case ledger.CapOperator:
		return t.operators[caller]
	case ledger.CapWalletManager:
		return t.walletManagers[caller]
	}
	return false
}

// AuthorizeCollector allows a collector to act only for itself.
func (t *RoleTable) AuthorizeCollector(caller, collector ledger.Address) bool {
	return caller != ledger.ZeroAddress && caller == collector
}
