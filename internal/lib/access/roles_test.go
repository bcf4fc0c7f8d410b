package access

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/unitstake/poolmgr/internal/lib/ledger"
)

func addr(b byte) ledger.Address {
	var a ledger.Address
	a[19] = b
	return a
}

func TestRoleTable(t *testing.T) {
	admin := addr(1)
	operator := addr(2)
	walletManager := addr(3)
	outsider := addr(4)

	table := NewRoleTable(
		[]ledger.Address{admin},
		[]ledger.Address{operator},
		[]ledger.Address{walletManager},
	)

	// admins hold every capability
	assert.True(t, table.Authorize(admin, ledger.CapAdmin))
	assert.True(t, table.Authorize(admin, ledger.CapOperator))
	assert.True(t, table.Authorize(admin, ledger.CapWalletManager))

	assert.True(t, table.Authorize(operator, ledger.CapOperator))
	assert.False(t, table.Authorize(operator, ledger.CapAdmin))
	assert.False(t, table.Authorize(operator, ledger.CapWalletManager))

	assert.True(t, table.Authorize(walletManager, ledger.CapWalletManager))
	assert.False(t, table.Authorize(walletManager, ledger.CapOperator))

	assert.False(t, table.Authorize(outsider, ledger.CapOperator))
	assert.False(t, table.Authorize(ledger.ZeroAddress, ledger.CapAdmin))
}

func TestAuthorizeCollector(t *testing.T) {
	table := NewRoleTable(nil, nil, nil)
	collector := addr(5)

	assert.True(t, table.AuthorizeCollector(collector, collector))
	assert.False(t, table.AuthorizeCollector(addr(6), collector))
	assert.False(t, table.AuthorizeCollector(ledger.ZeroAddress, ledger.ZeroAddress))
}
